package agentloop

import "github.com/fieldmesh/fieldagent/llm"

// Observer receives loop progress callbacks. The loop itself performs no
// direct I/O; hosts that want logging or progress display inject one.
type Observer interface {
	// OnTurnStart fires before each model call with the 1-based turn number.
	OnTurnStart(turn int)

	// OnToolCall fires before an invocation is dispatched.
	OnToolCall(inv llm.ToolInvocation)

	// OnToolResult fires after an invocation completes.
	OnToolResult(res llm.ToolResult)
}

// NopObserver discards all callbacks.
type NopObserver struct{}

func (NopObserver) OnTurnStart(int)               {}
func (NopObserver) OnToolCall(llm.ToolInvocation) {}
func (NopObserver) OnToolResult(llm.ToolResult)   {}

var _ Observer = NopObserver{}
