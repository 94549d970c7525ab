package agentloop

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/fieldmesh/fieldagent/llm"
)

// RegisterCoreTools registers the standard tool set backed by a workspace:
// read_file, write_file, list_dir, exec_shell, and http_fetch.
func RegisterCoreTools(reg *ToolRegistry, ws *Workspace) {
	registerReadFile(reg, ws)
	registerWriteFile(reg, ws)
	registerListDir(reg, ws)
	registerExecShell(reg, ws)
	registerHTTPFetch(reg)
}

func registerReadFile(reg *ToolRegistry, ws *Workspace) {
	reg.Register(RegisteredTool{
		Definition: llm.ToolDefinition{
			Name:        "read_file",
			Description: "Read a file from the workspace. Returns line-numbered content.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"path": map[string]any{
						"type":        "string",
						"description": "Path relative to the workspace root.",
					},
					"offset": map[string]any{
						"type":        "integer",
						"description": "1-based line number to start reading from.",
					},
					"limit": map[string]any{
						"type":        "integer",
						"description": "Maximum number of lines to read. Default: 2000.",
					},
				},
				"required": []any{"path"},
			},
		},
		Executor: func(_ context.Context, raw json.RawMessage) (string, error) {
			args, err := ParseArgs(raw)
			if err != nil {
				return "", err
			}
			path, ok := StringArg(args, "path")
			if !ok || path == "" {
				return "", fmt.Errorf("path is required")
			}
			offset, _ := IntArg(args, "offset")
			limit, _ := IntArg(args, "limit")
			if limit == 0 {
				limit = 2000
			}
			return ws.ReadFile(path, offset, limit)
		},
	})
}

func registerWriteFile(reg *ToolRegistry, ws *Workspace) {
	reg.Register(RegisteredTool{
		Definition: llm.ToolDefinition{
			Name:        "write_file",
			Description: "Write content to a file in the workspace. Creates the file and parent directories if needed.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"path": map[string]any{
						"type":        "string",
						"description": "Path relative to the workspace root.",
					},
					"content": map[string]any{
						"type":        "string",
						"description": "The full file content to write.",
					},
				},
				"required": []any{"path", "content"},
			},
		},
		Executor: func(_ context.Context, raw json.RawMessage) (string, error) {
			args, err := ParseArgs(raw)
			if err != nil {
				return "", err
			}
			path, ok := StringArg(args, "path")
			if !ok || path == "" {
				return "", fmt.Errorf("path is required")
			}
			content, ok := StringArg(args, "content")
			if !ok {
				return "", fmt.Errorf("content is required")
			}
			if err := ws.WriteFile(path, content); err != nil {
				return "", err
			}
			return fmt.Sprintf("wrote %d bytes to %s", len(content), path), nil
		},
	})
}

func registerListDir(reg *ToolRegistry, ws *Workspace) {
	reg.Register(RegisteredTool{
		Definition: llm.ToolDefinition{
			Name:        "list_dir",
			Description: "List the entries of a workspace directory. Directories are suffixed with a slash.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"path": map[string]any{
						"type":        "string",
						"description": "Directory path relative to the workspace root. Defaults to the root.",
					},
				},
			},
		},
		Executor: func(_ context.Context, raw json.RawMessage) (string, error) {
			args, err := ParseArgs(raw)
			if err != nil {
				return "", err
			}
			path, _ := StringArg(args, "path")
			return ws.ListDir(path)
		},
	})
}

func registerExecShell(reg *ToolRegistry, ws *Workspace) {
	reg.Register(RegisteredTool{
		Definition: llm.ToolDefinition{
			Name:        "exec_shell",
			Description: "Run a shell command in the workspace root. Returns combined output and the exit code.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"command": map[string]any{
						"type":        "string",
						"description": "The shell command to run.",
					},
				},
				"required": []any{"command"},
			},
		},
		Executor: func(ctx context.Context, raw json.RawMessage) (string, error) {
			args, err := ParseArgs(raw)
			if err != nil {
				return "", err
			}
			command, ok := StringArg(args, "command")
			if !ok || command == "" {
				return "", fmt.Errorf("command is required")
			}
			result, err := ws.Exec(ctx, command)
			if err != nil {
				return "", err
			}
			return result.Output(), nil
		},
	})
}

const maxFetchBytes = 1 << 20 // 1MB

func registerHTTPFetch(reg *ToolRegistry) {
	client := &http.Client{}
	reg.Register(RegisteredTool{
		Definition: llm.ToolDefinition{
			Name:        "http_fetch",
			Description: "Fetch a URL with an HTTP GET and return the response body as text.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"url": map[string]any{
						"type":        "string",
						"description": "The http or https URL to fetch.",
					},
				},
				"required": []any{"url"},
			},
		},
		Executor: func(ctx context.Context, raw json.RawMessage) (string, error) {
			args, err := ParseArgs(raw)
			if err != nil {
				return "", err
			}
			url, ok := StringArg(args, "url")
			if !ok || url == "" {
				return "", fmt.Errorf("url is required")
			}
			if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
				return "", fmt.Errorf("url must be http or https")
			}
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
			if err != nil {
				return "", err
			}
			resp, err := client.Do(req)
			if err != nil {
				return "", err
			}
			defer resp.Body.Close()
			body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes))
			if err != nil {
				return "", err
			}
			if resp.StatusCode >= 400 {
				return "", fmt.Errorf("fetch %s: status %d: %s", url, resp.StatusCode, strings.TrimSpace(string(body)))
			}
			return string(body), nil
		},
	})
}
