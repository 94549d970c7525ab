package llm

import "context"

// PlaceholderText is returned by the placeholder adapter in place of a model
// answer when no credential is configured.
const PlaceholderText = "No API key is configured for this provider; " +
	"running in placeholder mode. Configure a credential to get real completions."

// PlaceholderAdapter implements the adapter contract without any network
// calls. It reports end_turn so the loop controller needs no special-casing.
type PlaceholderAdapter struct {
	vendor string
}

// NewPlaceholder creates a placeholder adapter labeled with the vendor it
// stands in for.
func NewPlaceholder(vendor string) *PlaceholderAdapter {
	if vendor == "" {
		vendor = "placeholder"
	}
	return &PlaceholderAdapter{vendor: vendor}
}

func (p *PlaceholderAdapter) Name() string { return p.vendor + " (placeholder)" }

func (p *PlaceholderAdapter) Complete(_ context.Context, _, _ string) (*Completion, error) {
	return &Completion{Text: PlaceholderText}, nil
}

func (p *PlaceholderAdapter) CompleteWithTools(_ context.Context, _ string, _ Conversation, _ []ToolDefinition) (*StructuredCompletion, error) {
	return &StructuredCompletion{
		Segments:   []Segment{TextSegment(PlaceholderText)},
		StopReason: StopEndTurn,
	}, nil
}

var _ ProviderAdapter = (*PlaceholderAdapter)(nil)
