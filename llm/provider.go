package llm

import (
	"context"
	"fmt"
	"time"
)

// Vendor is the closed set of supported LLM backends.
type Vendor string

const (
	VendorAnthropic Vendor = "anthropic"
	VendorOpenAI    Vendor = "openai"
	VendorGemini    Vendor = "gemini"
)

// ProviderAdapter translates between the internal conversation
// representation and one vendor's wire protocol. Implementations hold no
// per-call mutable state, so a single adapter is safe for concurrent use.
type ProviderAdapter interface {
	// Name returns the vendor identifier.
	Name() string

	// Complete performs a single-turn completion with no tools attached.
	Complete(ctx context.Context, systemPrompt, userPrompt string) (*Completion, error)

	// CompleteWithTools sends the full conversation plus tool definitions
	// and parses the response into segments and a normalized stop reason.
	CompleteWithTools(ctx context.Context, systemPrompt string, conv Conversation, tools []ToolDefinition) (*StructuredCompletion, error)
}

// Config selects and parameterizes a provider adapter.
type Config struct {
	Vendor    Vendor
	APIKey    string
	Model     string        // defaults per vendor, see DefaultModel
	BaseURL   string        // optional override, OpenAI-compatible gateways
	MaxTokens int           // defaults to 4096
	Timeout   time.Duration // per-call network timeout, defaults to 2 minutes
}

const (
	defaultMaxTokens = 4096
	defaultTimeout   = 2 * time.Minute
)

// DefaultModel returns the default model identifier for a vendor.
func DefaultModel(vendor Vendor) string {
	switch vendor {
	case VendorAnthropic:
		return "claude-sonnet-4-5"
	case VendorOpenAI:
		return "gpt-4o"
	case VendorGemini:
		return "gemini-2.0-flash"
	default:
		return ""
	}
}

func (c Config) withDefaults() Config {
	if c.Model == "" {
		c.Model = DefaultModel(c.Vendor)
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = defaultMaxTokens
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	return c
}

// New constructs the adapter for the configured vendor. A missing API key is
// not an error: it degrades to the placeholder adapter so the rest of the
// pipeline stays exercisable without credentials.
func New(ctx context.Context, cfg Config) (ProviderAdapter, error) {
	if cfg.APIKey == "" {
		return NewPlaceholder(string(cfg.Vendor)), nil
	}
	cfg = cfg.withDefaults()
	switch cfg.Vendor {
	case VendorAnthropic:
		return newAnthropicAdapter(cfg), nil
	case VendorOpenAI:
		return newOpenAIAdapter(cfg), nil
	case VendorGemini:
		return newGeminiAdapter(ctx, cfg)
	default:
		return nil, &ConfigurationError{AdapterError: AdapterError{
			Message: fmt.Sprintf("unsupported vendor %q", cfg.Vendor),
		}}
	}
}

// callTimeout applies the adapter's per-call timeout unless the caller's
// context already carries an earlier deadline.
func callTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < timeout {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}
