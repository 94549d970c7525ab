package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/google/uuid"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// geminiAdapter speaks the Gemini API via the official genai client. Two
// impedance mismatches are absorbed here: Gemini has no invocation IDs, so
// the adapter synthesizes UUIDs on receipt and strips them on replay; and
// function responses are keyed by tool NAME rather than ID, so the name is
// recovered from the invocation the result answers.
type geminiAdapter struct {
	client    *genai.Client
	model     string
	maxTokens int
	timeout   time.Duration
}

func newGeminiAdapter(ctx context.Context, cfg Config) (*geminiAdapter, error) {
	opts := []option.ClientOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithEndpoint(cfg.BaseURL))
	}
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, &ConfigurationError{AdapterError: AdapterError{
			Message: "gemini: client initialization failed",
			Cause:   err,
		}}
	}
	return &geminiAdapter{
		client:    client,
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		timeout:   cfg.Timeout,
	}, nil
}

func (g *geminiAdapter) Name() string { return string(VendorGemini) }

func (g *geminiAdapter) Complete(ctx context.Context, systemPrompt, userPrompt string) (*Completion, error) {
	sc, err := g.CompleteWithTools(ctx, systemPrompt, Conversation{UserTurn(userPrompt)}, nil)
	if err != nil {
		return nil, err
	}
	return &Completion{Text: sc.Text(), Usage: sc.Usage}, nil
}

func (g *geminiAdapter) CompleteWithTools(ctx context.Context, systemPrompt string, conv Conversation, tools []ToolDefinition) (*StructuredCompletion, error) {
	ctx, cancel := callTimeout(ctx, g.timeout)
	defer cancel()

	model := g.client.GenerativeModel(g.model)
	model.SetMaxOutputTokens(int32(g.maxTokens))
	if systemPrompt != "" {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(systemPrompt)},
		}
	}
	if len(tools) > 0 {
		decls := make([]*genai.FunctionDeclaration, 0, len(tools))
		for _, def := range tools {
			decls = append(decls, &genai.FunctionDeclaration{
				Name:        def.Name,
				Description: def.Description,
				Parameters:  geminiSchema(def.Parameters),
			})
		}
		model.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
	}

	contents, err := geminiContents(conv)
	if err != nil {
		return nil, err
	}
	if len(contents) == 0 {
		return nil, &InvalidRequestError{ProviderError: ProviderError{
			AdapterError: AdapterError{Message: "gemini: conversation is empty"},
			Provider:     string(VendorGemini),
			StatusCode:   400,
		}}
	}

	// The genai chat session wants history plus the latest message split
	// apart. Everything up to the final content is history.
	session := model.StartChat()
	session.History = contents[:len(contents)-1]
	resp, err := session.SendMessage(ctx, contents[len(contents)-1].Parts...)
	if err != nil {
		return nil, translateGeminiError(err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, &MalformedResponseError{AdapterError: AdapterError{
			Message: "gemini: response carried no candidates",
		}}
	}

	candidate := resp.Candidates[0]
	var segments []Segment
	for _, part := range candidate.Content.Parts {
		switch p := part.(type) {
		case genai.Text:
			if p != "" {
				segments = append(segments, TextSegment(string(p)))
			}
		case genai.FunctionCall:
			args, err := json.Marshal(p.Args)
			if err != nil {
				return nil, &MalformedResponseError{AdapterError: AdapterError{
					Message: fmt.Sprintf("gemini: function call %q carried unencodable args", p.Name),
					Cause:   err,
				}}
			}
			segments = append(segments, InvocationSegment(uuid.NewString(), p.Name, args))
		}
	}
	if len(segments) == 0 {
		return nil, &MalformedResponseError{AdapterError: AdapterError{
			Message: "gemini: response carried no usable parts",
		}}
	}

	sc := &StructuredCompletion{
		Segments:   segments,
		StopReason: geminiStopReason(candidate.FinishReason, hasInvocations(segments)),
	}
	if resp.UsageMetadata != nil {
		sc.Usage = &TokenUsage{
			InputTokens:  int(resp.UsageMetadata.PromptTokenCount),
			OutputTokens: int(resp.UsageMetadata.CandidatesTokenCount),
		}
	}
	return sc, nil
}

func hasInvocations(segments []Segment) bool {
	for _, seg := range segments {
		if seg.Kind == SegmentToolInvocation {
			return true
		}
	}
	return false
}

// geminiContents converts the conversation into genai history. Synthesized
// invocation IDs never reach the wire; instead a side table maps them back
// to tool names so result segments can be rendered as FunctionResponse
// parts, which Gemini correlates by name.
func geminiContents(conv Conversation) ([]*genai.Content, error) {
	nameByID := make(map[string]string)
	var out []*genai.Content
	for _, turn := range conv {
		role := "user"
		if turn.Role == RoleAssistant {
			role = "model"
		}
		var parts []genai.Part
		for _, seg := range turn.Segments {
			switch seg.Kind {
			case SegmentText:
				if seg.Text != "" {
					parts = append(parts, genai.Text(seg.Text))
				}
			case SegmentToolInvocation:
				if seg.Invocation == nil {
					continue
				}
				nameByID[seg.Invocation.ID] = seg.Invocation.Name
				args := map[string]any{}
				if len(seg.Invocation.Args) > 0 {
					if err := json.Unmarshal(seg.Invocation.Args, &args); err != nil {
						return nil, &InvalidRequestError{ProviderError: ProviderError{
							AdapterError: AdapterError{
								Message: fmt.Sprintf("gemini: invocation %q args are not a JSON object", seg.Invocation.Name),
								Cause:   err,
							},
							Provider:   string(VendorGemini),
							StatusCode: 400,
						}}
					}
				}
				parts = append(parts, genai.FunctionCall{Name: seg.Invocation.Name, Args: args})
			case SegmentToolResult:
				if seg.Result == nil {
					continue
				}
				name, ok := nameByID[seg.Result.InvocationID]
				if !ok {
					return nil, &InvalidRequestError{ProviderError: ProviderError{
						AdapterError: AdapterError{
							Message: fmt.Sprintf("gemini: result %q answers no prior invocation", seg.Result.InvocationID),
						},
						Provider:   string(VendorGemini),
						StatusCode: 400,
					}}
				}
				response := map[string]any{"result": seg.Result.Content}
				if seg.Result.IsError {
					response = map[string]any{"error": seg.Result.Content}
				}
				parts = append(parts, genai.FunctionResponse{Name: name, Response: response})
			}
		}
		if len(parts) == 0 {
			continue
		}
		out = append(out, &genai.Content{Role: role, Parts: parts})
	}
	return out, nil
}

// geminiSchema converts a JSON-schema parameter object into the genai schema
// type. Unknown or missing types default to string, which is the safest
// rendering for free-form values.
func geminiSchema(params map[string]any) *genai.Schema {
	if len(params) == 0 {
		return &genai.Schema{Type: genai.TypeObject}
	}
	schema := &genai.Schema{Type: geminiType(params["type"])}
	if desc, ok := params["description"].(string); ok {
		schema.Description = desc
	}
	if props, ok := params["properties"].(map[string]any); ok {
		schema.Properties = make(map[string]*genai.Schema, len(props))
		for name, raw := range props {
			if sub, ok := raw.(map[string]any); ok {
				schema.Properties[name] = geminiSchema(sub)
			}
		}
	}
	if items, ok := params["items"].(map[string]any); ok {
		schema.Items = geminiSchema(items)
	}
	if raw, ok := params["required"]; ok {
		switch v := raw.(type) {
		case []string:
			schema.Required = v
		case []any:
			for _, item := range v {
				if s, ok := item.(string); ok {
					schema.Required = append(schema.Required, s)
				}
			}
		}
	}
	if raw, ok := params["enum"].([]any); ok {
		for _, item := range raw {
			if s, ok := item.(string); ok {
				schema.Enum = append(schema.Enum, s)
			}
		}
	}
	return schema
}

func geminiType(raw any) genai.Type {
	t, _ := raw.(string)
	switch t {
	case "string":
		return genai.TypeString
	case "number":
		return genai.TypeNumber
	case "integer":
		return genai.TypeInteger
	case "boolean":
		return genai.TypeBoolean
	case "array":
		return genai.TypeArray
	case "object":
		return genai.TypeObject
	default:
		return genai.TypeString
	}
}

func geminiStopReason(reason genai.FinishReason, hasToolCalls bool) StopReason {
	if hasToolCalls {
		return StopToolUse
	}
	switch reason {
	case genai.FinishReasonMaxTokens:
		return StopMaxTokens
	default:
		return StopEndTurn
	}
}

func translateGeminiError(err error) error {
	var apierr *googleapi.Error
	if errors.As(err, &apierr) {
		return ErrorFromStatusCode(apierr.Code, fmt.Sprintf("gemini: %s", apierr.Message), string(VendorGemini), nil)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &RequestTimeoutError{AdapterError: AdapterError{Message: "gemini: request timed out", Cause: err}}
	}
	return &NetworkError{AdapterError: AdapterError{Message: "gemini: request failed", Cause: err}}
}

var _ ProviderAdapter = (*geminiAdapter)(nil)
