package llm

import (
	"encoding/json"
	"strings"
)

// Role identifies who produced a turn in a conversation.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// SegmentKind is the discriminator tag for Segment.
type SegmentKind string

const (
	SegmentText           SegmentKind = "text"
	SegmentToolInvocation SegmentKind = "tool_invocation"
	SegmentToolResult     SegmentKind = "tool_result"
)

// ToolInvocation is a model-initiated request to run a tool. Args is the raw
// JSON argument object exactly as the vendor reported it.
type ToolInvocation struct {
	ID   string          `json:"id"`
	Name string          `json:"name"`
	Args json.RawMessage `json:"args"`
}

// ToolResult answers one ToolInvocation, matched by InvocationID.
type ToolResult struct {
	InvocationID string `json:"invocation_id"`
	Content      string `json:"content"`
	IsError      bool   `json:"is_error"`
}

// Segment is a tagged union representing one unit of a turn's payload.
type Segment struct {
	Kind       SegmentKind     `json:"kind"`
	Text       string          `json:"text,omitempty"`
	Invocation *ToolInvocation `json:"invocation,omitempty"`
	Result     *ToolResult     `json:"result,omitempty"`
}

// TextSegment creates a text Segment.
func TextSegment(text string) Segment {
	return Segment{Kind: SegmentText, Text: text}
}

// InvocationSegment creates a tool_invocation Segment.
func InvocationSegment(id, name string, args json.RawMessage) Segment {
	return Segment{
		Kind:       SegmentToolInvocation,
		Invocation: &ToolInvocation{ID: id, Name: name, Args: args},
	}
}

// ResultSegment creates a tool_result Segment.
func ResultSegment(invocationID, content string, isError bool) Segment {
	return Segment{
		Kind:   SegmentToolResult,
		Result: &ToolResult{InvocationID: invocationID, Content: content, IsError: isError},
	}
}

// Turn is one exchange unit in a conversation. Tool results travel in
// user-role turns carrying result segments, which preserves the strict
// user/assistant alternation every vendor requires.
type Turn struct {
	Role     Role      `json:"role"`
	Segments []Segment `json:"segments"`
}

// UserTurn creates a user turn with a single text segment.
func UserTurn(text string) Turn {
	return Turn{Role: RoleUser, Segments: []Segment{TextSegment(text)}}
}

// AssistantTurn creates an assistant turn from a segment list.
func AssistantTurn(segments []Segment) Turn {
	return Turn{Role: RoleAssistant, Segments: segments}
}

// ResultsTurn creates a user turn carrying tool results.
func ResultsTurn(results []ToolResult) Turn {
	segments := make([]Segment, len(results))
	for i, r := range results {
		segments[i] = ResultSegment(r.InvocationID, r.Content, r.IsError)
	}
	return Turn{Role: RoleUser, Segments: segments}
}

// Text returns the newline-joined text segments of the turn, in order.
func (t Turn) Text() string {
	var parts []string
	for _, seg := range t.Segments {
		if seg.Kind == SegmentText && seg.Text != "" {
			parts = append(parts, seg.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// Invocations returns the tool invocations embedded in the turn, in
// emission order.
func (t Turn) Invocations() []ToolInvocation {
	var invs []ToolInvocation
	for _, seg := range t.Segments {
		if seg.Kind == SegmentToolInvocation && seg.Invocation != nil {
			invs = append(invs, *seg.Invocation)
		}
	}
	return invs
}

// Conversation is an ordered sequence of turns, alternating user/assistant
// starting with user.
type Conversation []Turn

// Last returns the final turn, or a zero Turn for an empty conversation.
func (c Conversation) Last() Turn {
	if len(c) == 0 {
		return Turn{}
	}
	return c[len(c)-1]
}

// ToolDefinition describes a callable tool as advertised to the model.
// Parameters is a JSON-schema object with "properties" and an optional
// "required" list. Definitions are assembled once at startup and shared
// read-only by all adapters.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// RequiredParams returns the schema's required-parameter list, if any.
func (d ToolDefinition) RequiredParams() []string {
	raw, ok := d.Parameters["required"]
	if !ok {
		return nil
	}
	switch v := raw.(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// Properties returns the schema's property map, if any.
func (d ToolDefinition) Properties() map[string]any {
	if props, ok := d.Parameters["properties"].(map[string]any); ok {
		return props
	}
	return nil
}

// StopReason is the normalized signal indicating why generation ended.
type StopReason string

const (
	StopEndTurn   StopReason = "end_turn"
	StopToolUse   StopReason = "tool_use"
	StopMaxTokens StopReason = "max_tokens"
)

// TokenUsage tracks token consumption for one completion. Vendors may omit
// usage entirely, in which case the pointer carrying it is nil.
type TokenUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Total returns input plus output tokens.
func (u TokenUsage) Total() int { return u.InputTokens + u.OutputTokens }

// Add accumulates another usage count in place.
func (u *TokenUsage) Add(other *TokenUsage) {
	if other == nil {
		return
	}
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
}

// usageOrNil builds a TokenUsage from vendor counts, keeping omitted usage
// distinguishable from zero tokens: an all-zero count means the vendor sent
// nothing and yields nil.
func usageOrNil(inputTokens, outputTokens int) *TokenUsage {
	if inputTokens == 0 && outputTokens == 0 {
		return nil
	}
	return &TokenUsage{InputTokens: inputTokens, OutputTokens: outputTokens}
}

// Completion is a simple single-turn result.
type Completion struct {
	Text  string      `json:"text"`
	Usage *TokenUsage `json:"usage,omitempty"`
}

// StructuredCompletion is the normalized multi-turn-capable result: an
// ordered segment list plus the stop reason mapped into the closed set.
type StructuredCompletion struct {
	Segments   []Segment   `json:"segments"`
	StopReason StopReason  `json:"stop_reason"`
	Usage      *TokenUsage `json:"usage,omitempty"`
}

// Text returns the newline-joined text segments of the completion.
func (sc StructuredCompletion) Text() string {
	return Turn{Segments: sc.Segments}.Text()
}

// Invocations returns the tool invocations in the completion, in emission
// order.
func (sc StructuredCompletion) Invocations() []ToolInvocation {
	return Turn{Segments: sc.Segments}.Invocations()
}
