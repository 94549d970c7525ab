package agentloop

import (
	"context"
	"fmt"

	"github.com/fieldmesh/fieldagent/llm"
)

// Config parameterizes one loop. Zero values take the documented defaults.
type Config struct {
	// MaxTurns bounds the number of model calls per Run. Default 25.
	MaxTurns int

	// MaxToolOutput caps each tool result's character count before it is fed
	// back to the model. Default 30000. Negative disables truncation.
	MaxToolOutput int
}

const (
	defaultMaxTurns      = 25
	defaultMaxToolOutput = 30000
)

// ExhaustedMarker is appended to the best-effort answer when the turn budget
// runs out before the model finishes.
const ExhaustedMarker = "[warning: turn budget exhausted before the model finished]"

// NoAnswerFallback is returned when the budget runs out and the most recent
// assistant turn carried no text at all.
const NoAnswerFallback = "No answer was produced: the turn budget was exhausted " +
	"before the model emitted any final text. " + ExhaustedMarker

func (c Config) withDefaults() Config {
	if c.MaxTurns == 0 {
		c.MaxTurns = defaultMaxTurns
	}
	if c.MaxToolOutput == 0 {
		c.MaxToolOutput = defaultMaxToolOutput
	}
	return c
}

// Result is the terminal outcome of one loop invocation. Both terminal
// states yield a usable Text; Exhausted distinguishes them.
type Result struct {
	Text      string
	Turns     int
	ToolCalls int
	Usage     llm.TokenUsage
	Exhausted bool
}

// Loop drives a bounded tool-calling conversation against one provider
// adapter. Each Run owns its conversation and turn counter exclusively; a
// Loop may serve sequential Runs but holds no per-run state between calls.
type Loop struct {
	adapter  llm.ProviderAdapter
	registry *ToolRegistry
	config   Config
	observer Observer
}

// New creates a loop controller. registry may be nil, in which case Run
// performs a single tool-free completion. observer may be nil.
func New(adapter llm.ProviderAdapter, registry *ToolRegistry, config Config, observer Observer) *Loop {
	if observer == nil {
		observer = NopObserver{}
	}
	return &Loop{
		adapter:  adapter,
		registry: registry,
		config:   config.withDefaults(),
		observer: observer,
	}
}

// Run executes the conversation to a terminal state and returns the final
// answer. Tool failures are folded into the conversation as error-flagged
// results and never surface here; only transport-fatal adapter errors
// propagate, since those mean the conversation cannot continue.
func (l *Loop) Run(ctx context.Context, systemPrompt, taskPrompt string) (Result, error) {
	var result Result

	// No registry at all means a plain one-shot completion. An attached but
	// empty registry still runs the full loop: the model may hallucinate
	// tool calls and must see the unknown-tool diagnostics.
	if l.registry == nil {
		return l.runSimple(ctx, systemPrompt, taskPrompt)
	}

	conv := llm.Conversation{llm.UserTurn(taskPrompt)}
	tools := l.registry.Definitions()

	// Text of the most recent assistant turn. The conversation ends on a
	// results turn when the budget runs out, so this is tracked separately.
	var lastText string

	for turn := 1; turn <= l.config.MaxTurns; turn++ {
		result.Turns = turn
		l.observer.OnTurnStart(turn)

		sc, err := l.adapter.CompleteWithTools(ctx, systemPrompt, conv, tools)
		if err != nil {
			return result, fmt.Errorf("turn %d: %w", turn, err)
		}
		result.Usage.Add(sc.Usage)
		conv = append(conv, llm.AssistantTurn(sc.Segments))
		lastText = sc.Text()

		// Invocation presence is authoritative over the stop-reason label:
		// some vendors report end_turn while still emitting invocations.
		invocations := sc.Invocations()
		if len(invocations) == 0 {
			result.Text = sc.Text()
			return result, nil
		}

		// Sequential dispatch in emission order, so side effects within one
		// turn observe each other. Exactly one result per invocation.
		results := make([]llm.ToolResult, len(invocations))
		for i, inv := range invocations {
			l.observer.OnToolCall(inv)
			results[i] = l.registry.Dispatch(ctx, inv, l.config.MaxToolOutput)
			l.observer.OnToolResult(results[i])
			result.ToolCalls++
		}
		conv = append(conv, llm.ResultsTurn(results))
	}

	// Budget exhausted: best-effort answer from the last assistant turn.
	result.Exhausted = true
	if lastText != "" {
		result.Text = lastText + "\n" + ExhaustedMarker
	} else {
		result.Text = NoAnswerFallback
	}
	return result, nil
}

func (l *Loop) runSimple(ctx context.Context, systemPrompt, taskPrompt string) (Result, error) {
	l.observer.OnTurnStart(1)
	comp, err := l.adapter.Complete(ctx, systemPrompt, taskPrompt)
	if err != nil {
		return Result{Turns: 1}, err
	}
	result := Result{Text: comp.Text, Turns: 1}
	result.Usage.Add(comp.Usage)
	return result, nil
}
