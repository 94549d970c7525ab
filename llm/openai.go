package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// openaiAdapter speaks the OpenAI Chat Completions API. Tool results travel
// back in the dedicated "tool" message role, correlated by tool_call_id.
// BaseURL overrides make it work against OpenAI-compatible gateways.
type openaiAdapter struct {
	client    *openai.Client
	model     string
	maxTokens int
	timeout   time.Duration
}

func newOpenAIAdapter(cfg Config) *openaiAdapter {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &openaiAdapter{
		client:    openai.NewClientWithConfig(clientCfg),
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		timeout:   cfg.Timeout,
	}
}

func (o *openaiAdapter) Name() string { return string(VendorOpenAI) }

func (o *openaiAdapter) Complete(ctx context.Context, systemPrompt, userPrompt string) (*Completion, error) {
	sc, err := o.CompleteWithTools(ctx, systemPrompt, Conversation{UserTurn(userPrompt)}, nil)
	if err != nil {
		return nil, err
	}
	return &Completion{Text: sc.Text(), Usage: sc.Usage}, nil
}

func (o *openaiAdapter) CompleteWithTools(ctx context.Context, systemPrompt string, conv Conversation, tools []ToolDefinition) (*StructuredCompletion, error) {
	ctx, cancel := callTimeout(ctx, o.timeout)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model:     o.model,
		MaxTokens: o.maxTokens,
		Messages:  openaiMessages(systemPrompt, conv),
	}
	for _, def := range tools {
		req.Tools = append(req.Tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        def.Name,
				Description: def.Description,
				Parameters:  def.Parameters,
			},
		})
	}

	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, translateOpenAIError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, &MalformedResponseError{AdapterError: AdapterError{
			Message: "openai: response carried no choices",
		}}
	}

	choice := resp.Choices[0]
	var segments []Segment
	if choice.Message.Content != "" {
		segments = append(segments, TextSegment(choice.Message.Content))
	}
	for _, tc := range choice.Message.ToolCalls {
		segments = append(segments, InvocationSegment(tc.ID, tc.Function.Name, json.RawMessage(tc.Function.Arguments)))
	}

	return &StructuredCompletion{
		Segments:   segments,
		StopReason: openaiStopReason(choice.FinishReason, len(choice.Message.ToolCalls) > 0),
		Usage:      usageOrNil(resp.Usage.PromptTokens, resp.Usage.CompletionTokens),
	}, nil
}

// openaiMessages flattens the internal conversation into chat messages. An
// assistant turn containing invocations becomes one assistant message with
// tool_calls attached; each result segment becomes its own tool-role message.
func openaiMessages(systemPrompt string, conv Conversation) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(conv)+1)
	if systemPrompt != "" {
		out = append(out, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: systemPrompt,
		})
	}
	for _, turn := range conv {
		if turn.Role == RoleAssistant {
			msg := openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleAssistant,
				Content: turn.Text(),
			}
			for _, inv := range turn.Invocations() {
				msg.ToolCalls = append(msg.ToolCalls, openai.ToolCall{
					ID:   inv.ID,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      inv.Name,
						Arguments: string(inv.Args),
					},
				})
			}
			out = append(out, msg)
			continue
		}
		// User turns: result segments go out as tool-role messages, text as
		// a plain user message.
		for _, seg := range turn.Segments {
			if seg.Kind == SegmentToolResult && seg.Result != nil {
				content := seg.Result.Content
				if seg.Result.IsError {
					content = "Error: " + content
				}
				out = append(out, openai.ChatCompletionMessage{
					Role:       openai.ChatMessageRoleTool,
					Content:    content,
					ToolCallID: seg.Result.InvocationID,
				})
			}
		}
		if text := turn.Text(); text != "" {
			out = append(out, openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleUser,
				Content: text,
			})
		}
	}
	return out
}

// openaiStopReason maps a finish reason into the closed set. Pending tool
// calls are authoritative over the label: some gateways report "stop" while
// still emitting tool calls.
func openaiStopReason(reason openai.FinishReason, hasToolCalls bool) StopReason {
	if hasToolCalls {
		return StopToolUse
	}
	switch reason {
	case openai.FinishReasonToolCalls, openai.FinishReasonFunctionCall:
		return StopToolUse
	case openai.FinishReasonLength:
		return StopMaxTokens
	default:
		return StopEndTurn
	}
}

func translateOpenAIError(err error) error {
	var apierr *openai.APIError
	if errors.As(err, &apierr) {
		return ErrorFromStatusCode(apierr.HTTPStatusCode, fmt.Sprintf("openai: %s", apierr.Message), string(VendorOpenAI), nil)
	}
	var reqerr *openai.RequestError
	if errors.As(err, &reqerr) {
		return ErrorFromStatusCode(reqerr.HTTPStatusCode, fmt.Sprintf("openai: %v", reqerr.Err), string(VendorOpenAI), nil)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &RequestTimeoutError{AdapterError: AdapterError{Message: "openai: request timed out", Cause: err}}
	}
	return &NetworkError{AdapterError: AdapterError{Message: "openai: request failed", Cause: err}}
}

var _ ProviderAdapter = (*openaiAdapter)(nil)
