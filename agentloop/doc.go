// Package agentloop drives a bounded tool-calling conversation against an
// LLM provider adapter.
//
// The controller is a small state machine: call the model, and either return
// its text (end of turn) or dispatch the tool invocations it emitted,
// sequentially and in emission order, feeding the results back as the next
// user turn. A fixed turn budget bounds the loop; exhausting it yields a
// best-effort answer with a warning marker rather than an error.
//
// Tool failures never cross the loop boundary. Unknown tool names and
// executor errors become error-flagged results the model can react to. Only
// transport-fatal adapter errors propagate, because those mean the
// conversation cannot continue.
//
// The loop performs no direct I/O; hosts observe progress through the
// Observer interface.
package agentloop
