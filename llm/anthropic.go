package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	anthropicopt "github.com/anthropics/anthropic-sdk-go/option"
)

// anthropicAdapter speaks the Anthropic Messages API. Tool results travel
// back as tool_result blocks inside user messages, correlated by tool_use_id.
type anthropicAdapter struct {
	client    anthropic.Client
	model     string
	maxTokens int
	timeout   time.Duration
}

func newAnthropicAdapter(cfg Config) *anthropicAdapter {
	opts := []anthropicopt.RequestOption{anthropicopt.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, anthropicopt.WithBaseURL(cfg.BaseURL))
	}
	return &anthropicAdapter{
		client:    anthropic.NewClient(opts...),
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		timeout:   cfg.Timeout,
	}
}

func (a *anthropicAdapter) Name() string { return string(VendorAnthropic) }

func (a *anthropicAdapter) Complete(ctx context.Context, systemPrompt, userPrompt string) (*Completion, error) {
	sc, err := a.CompleteWithTools(ctx, systemPrompt, Conversation{UserTurn(userPrompt)}, nil)
	if err != nil {
		return nil, err
	}
	return &Completion{Text: sc.Text(), Usage: sc.Usage}, nil
}

func (a *anthropicAdapter) CompleteWithTools(ctx context.Context, systemPrompt string, conv Conversation, tools []ToolDefinition) (*StructuredCompletion, error) {
	ctx, cancel := callTimeout(ctx, a.timeout)
	defer cancel()

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: int64(a.maxTokens),
		Messages:  anthropicMessages(conv),
	}
	if systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: systemPrompt}}
	}
	if len(tools) > 0 {
		params.Tools = anthropicTools(tools)
	}

	msg, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return nil, translateAnthropicError(err)
	}
	if len(msg.Content) == 0 {
		return nil, &MalformedResponseError{AdapterError: AdapterError{
			Message: "anthropic: response carried no content blocks",
		}}
	}

	var segments []Segment
	for _, block := range msg.Content {
		switch variant := block.AsAny().(type) {
		case anthropic.TextBlock:
			if variant.Text != "" {
				segments = append(segments, TextSegment(variant.Text))
			}
		case anthropic.ToolUseBlock:
			segments = append(segments, InvocationSegment(variant.ID, variant.Name, variant.Input))
		}
	}

	return &StructuredCompletion{
		Segments:   segments,
		StopReason: anthropicStopReason(string(msg.StopReason)),
		Usage:      usageOrNil(int(msg.Usage.InputTokens), int(msg.Usage.OutputTokens)),
	}, nil
}

// anthropicMessages converts the internal conversation to Messages API
// message params. Tool results become tool_result blocks inside user
// messages; prior tool invocations are replayed as tool_use blocks so the
// result blocks have something to correlate against.
func anthropicMessages(conv Conversation) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(conv))
	for _, turn := range conv {
		blocks := make([]anthropic.ContentBlockParamUnion, 0, len(turn.Segments))
		for _, seg := range turn.Segments {
			switch seg.Kind {
			case SegmentText:
				if seg.Text != "" {
					blocks = append(blocks, anthropic.NewTextBlock(seg.Text))
				}
			case SegmentToolInvocation:
				if seg.Invocation != nil {
					blocks = append(blocks, anthropic.NewToolUseBlock(seg.Invocation.ID, seg.Invocation.Args, seg.Invocation.Name))
				}
			case SegmentToolResult:
				if seg.Result != nil {
					blocks = append(blocks, anthropic.NewToolResultBlock(seg.Result.InvocationID, seg.Result.Content, seg.Result.IsError))
				}
			}
		}
		if len(blocks) == 0 {
			continue
		}
		if turn.Role == RoleAssistant {
			out = append(out, anthropic.NewAssistantMessage(blocks...))
		} else {
			out = append(out, anthropic.NewUserMessage(blocks...))
		}
	}
	return out
}

func anthropicTools(tools []ToolDefinition) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, 0, len(tools))
	for _, def := range tools {
		param := anthropic.ToolParam{
			Name:        def.Name,
			Description: anthropic.String(def.Description),
			InputSchema: anthropic.ToolInputSchemaParam{
				Type:       "object",
				Properties: def.Properties(),
				Required:   def.RequiredParams(),
			},
		}
		out = append(out, anthropic.ToolUnionParam{OfTool: &param})
	}
	return out
}

func anthropicStopReason(raw string) StopReason {
	switch raw {
	case "tool_use":
		return StopToolUse
	case "max_tokens":
		return StopMaxTokens
	default:
		// end_turn, stop_sequence, and anything future-dated ends the turn.
		return StopEndTurn
	}
}

func translateAnthropicError(err error) error {
	var apierr *anthropic.Error
	if errors.As(err, &apierr) {
		return ErrorFromStatusCode(apierr.StatusCode, fmt.Sprintf("anthropic: %v", apierr), string(VendorAnthropic), nil)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &RequestTimeoutError{AdapterError: AdapterError{Message: "anthropic: request timed out", Cause: err}}
	}
	return &NetworkError{AdapterError: AdapterError{Message: "anthropic: request failed", Cause: err}}
}

var _ ProviderAdapter = (*anthropicAdapter)(nil)
