package agentloop

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/fieldmesh/fieldagent/llm"
)

func staticTool(name, output string) RegisteredTool {
	return RegisteredTool{
		Definition: llm.ToolDefinition{Name: name, Description: "static"},
		Executor: func(context.Context, json.RawMessage) (string, error) {
			return output, nil
		},
	}
}

func TestRegisterLastWins(t *testing.T) {
	reg := NewToolRegistry()
	reg.Register(staticTool("dup", "first"))
	reg.Register(staticTool("dup", "second"))

	if reg.Count() != 1 {
		t.Fatalf("count = %d, want 1", reg.Count())
	}
	res := reg.Dispatch(context.Background(), llm.ToolInvocation{ID: "c1", Name: "dup"}, 0)
	if res.Content != "second" {
		t.Errorf("last registration should win, got %q", res.Content)
	}
}

func TestDefinitionsSorted(t *testing.T) {
	reg := NewToolRegistry()
	reg.Register(staticTool("zeta", ""))
	reg.Register(staticTool("alpha", ""))
	reg.Register(staticTool("mid", ""))

	defs := reg.Definitions()
	if len(defs) != 3 {
		t.Fatalf("definitions = %d", len(defs))
	}
	if defs[0].Name != "alpha" || defs[1].Name != "mid" || defs[2].Name != "zeta" {
		t.Errorf("definitions unsorted: %v", defs)
	}
}

func TestDispatchUnknownTool(t *testing.T) {
	reg := NewToolRegistry()
	res := reg.Dispatch(context.Background(), llm.ToolInvocation{ID: "c1", Name: "nope"}, 0)
	if !res.IsError {
		t.Fatal("expected error-flagged result")
	}
	if res.InvocationID != "c1" {
		t.Errorf("invocation ID = %q", res.InvocationID)
	}
	if !strings.Contains(res.Content, "nope") {
		t.Errorf("diagnostic should name the tool: %q", res.Content)
	}
}

func TestDispatchExecutorFailure(t *testing.T) {
	reg := NewToolRegistry()
	reg.Register(RegisteredTool{
		Definition: llm.ToolDefinition{Name: "boom"},
		Executor: func(context.Context, json.RawMessage) (string, error) {
			return "", fmt.Errorf("disk on fire")
		},
	})

	res := reg.Dispatch(context.Background(), llm.ToolInvocation{ID: "c1", Name: "boom"}, 0)
	if !res.IsError {
		t.Fatal("expected error-flagged result")
	}
	if !strings.Contains(res.Content, "disk on fire") {
		t.Errorf("diagnostic should carry the failure message: %q", res.Content)
	}
}

func TestDispatchTruncatesOutput(t *testing.T) {
	reg := NewToolRegistry()
	reg.Register(staticTool("big", strings.Repeat("a", 500)+strings.Repeat("z", 500)))

	res := reg.Dispatch(context.Background(), llm.ToolInvocation{ID: "c1", Name: "big"}, 100)
	if res.IsError {
		t.Fatalf("unexpected error result: %q", res.Content)
	}
	if !strings.Contains(res.Content, "truncated") {
		t.Errorf("expected truncation notice: %q", res.Content)
	}
	if !strings.HasPrefix(res.Content, "aaaaa") || !strings.HasSuffix(res.Content, "zzzzz") {
		t.Errorf("head/tail split lost the ends: %q", res.Content)
	}
}

func TestTruncateOutputNoop(t *testing.T) {
	if got := truncateOutput("short", 100); got != "short" {
		t.Errorf("short output must pass through: %q", got)
	}
	long := strings.Repeat("x", 1000)
	if got := truncateOutput(long, -1); got != long {
		t.Errorf("negative cap must disable truncation")
	}
}

func TestParseArgs(t *testing.T) {
	args, err := ParseArgs(json.RawMessage(`{"path":"a.txt","limit":5,"deep":true}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s, ok := StringArg(args, "path"); !ok || s != "a.txt" {
		t.Errorf("path = %q, %v", s, ok)
	}
	if n, ok := IntArg(args, "limit"); !ok || n != 5 {
		t.Errorf("limit = %d, %v", n, ok)
	}
	if _, ok := StringArg(args, "absent"); ok {
		t.Error("absent key should not resolve")
	}
	if _, ok := IntArg(args, "path"); ok {
		t.Error("string value should not resolve as int")
	}
}

func TestParseArgsEmpty(t *testing.T) {
	args, err := ParseArgs(nil)
	if err != nil {
		t.Fatalf("empty args should parse: %v", err)
	}
	if len(args) != 0 {
		t.Errorf("args = %v", args)
	}
}

func TestParseArgsInvalid(t *testing.T) {
	if _, err := ParseArgs(json.RawMessage(`not json`)); err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}
