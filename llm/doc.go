// Package llm provides a provider-agnostic client for tool-calling LLM
// completions across Anthropic, OpenAI, and Gemini.
//
// Conversations are held in a vendor-neutral representation: ordered turns
// of tagged segments (text, tool invocations, tool results). Each adapter
// translates that representation to and from its vendor's wire protocol and
// maps the vendor's stop signal into the closed set {end_turn, tool_use,
// max_tokens}. Callers never see vendor message types.
//
// Adapters perform exactly one request per call and never retry internally.
// Retry policy belongs to the caller; the generic Retry helper implements
// exponential backoff honoring the error taxonomy in this package.
package llm
