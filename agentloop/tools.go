package agentloop

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/fieldmesh/fieldagent/llm"
)

// ToolExecutor runs one tool invocation. It receives the raw JSON argument
// object exactly as the model emitted it.
type ToolExecutor func(ctx context.Context, args json.RawMessage) (string, error)

// RegisteredTool pairs a tool definition with its executor.
type RegisteredTool struct {
	Definition llm.ToolDefinition
	Executor   ToolExecutor
}

// ToolRegistry maps tool names to implementations. Registries are assembled
// once at startup and shared read-only by every adapter afterward, but the
// lock keeps concurrent host loops safe regardless.
type ToolRegistry struct {
	mu    sync.RWMutex
	tools map[string]RegisteredTool
}

// NewToolRegistry creates an empty registry.
func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{tools: make(map[string]RegisteredTool)}
}

// Register adds a tool. Name collisions overwrite: last registration wins.
func (r *ToolRegistry) Register(tool RegisteredTool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[tool.Definition.Name] = tool
}

// Count returns the number of registered tools.
func (r *ToolRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// Definitions returns every registered definition sorted by name, for
// advertising the tool set to a provider adapter.
func (r *ToolRegistry) Definitions() []llm.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]llm.ToolDefinition, 0, len(r.tools))
	for _, tool := range r.tools {
		defs = append(defs, tool.Definition)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

// Dispatch executes one invocation and folds every failure mode into the
// result envelope. An unknown tool name or a failing executor produces an
// error-flagged result, never an error: the model may have hallucinated the
// name or the arguments, and it gets to see the diagnostic and retry.
func (r *ToolRegistry) Dispatch(ctx context.Context, inv llm.ToolInvocation, maxOutput int) llm.ToolResult {
	r.mu.RLock()
	tool, ok := r.tools[inv.Name]
	r.mu.RUnlock()
	if !ok {
		return llm.ToolResult{
			InvocationID: inv.ID,
			Content:      fmt.Sprintf("unknown tool: %s", inv.Name),
			IsError:      true,
		}
	}

	output, err := tool.Executor(ctx, inv.Args)
	if err != nil {
		return llm.ToolResult{
			InvocationID: inv.ID,
			Content:      fmt.Sprintf("tool %s failed: %v", inv.Name, err),
			IsError:      true,
		}
	}

	return llm.ToolResult{
		InvocationID: inv.ID,
		Content:      truncateOutput(output, maxOutput),
	}
}

// truncateOutput caps oversized tool output with a head/tail split so the
// model sees both the beginning and the end of what the tool produced.
func truncateOutput(output string, maxChars int) string {
	if maxChars <= 0 || len(output) <= maxChars {
		return output
	}
	half := maxChars / 2
	removed := len(output) - maxChars
	return output[:half] +
		fmt.Sprintf("\n[... output truncated: %d characters removed from the middle; re-run the tool with more targeted parameters to see specific parts ...]\n", removed) +
		output[len(output)-half:]
}

// ParseArgs unmarshals an invocation's argument object into a map.
func ParseArgs(raw json.RawMessage) (map[string]any, error) {
	if len(raw) == 0 {
		return map[string]any{}, nil
	}
	var args map[string]any
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, fmt.Errorf("invalid tool arguments: %w", err)
	}
	return args, nil
}

// StringArg extracts a string argument from parsed arguments.
func StringArg(args map[string]any, key string) (string, bool) {
	v, ok := args[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// IntArg extracts an integer argument from parsed arguments.
func IntArg(args map[string]any, key string) (int, bool) {
	v, ok := args[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return int(i), true
	default:
		return 0, false
	}
}
