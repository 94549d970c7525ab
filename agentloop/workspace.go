package agentloop

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"
)

// Workspace confines tool side effects to one directory tree. All paths the
// model supplies resolve relative to the root and must stay inside it; shell
// commands run in the root with a filtered environment and a hard timeout.
type Workspace struct {
	root           string
	commandTimeout time.Duration
}

const defaultCommandTimeout = 60 * time.Second

// NewWorkspace creates a workspace rooted at dir, creating it if needed.
func NewWorkspace(dir string) (*Workspace, error) {
	if dir == "" {
		var err error
		dir, err = os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("workspace: %w", err)
		}
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("workspace: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("workspace: %w", err)
	}
	return &Workspace{root: abs, commandTimeout: defaultCommandTimeout}, nil
}

// SetCommandTimeout overrides the per-command timeout.
func (w *Workspace) SetCommandTimeout(d time.Duration) {
	if d > 0 {
		w.commandTimeout = d
	}
}

// Root returns the workspace root directory.
func (w *Workspace) Root() string { return w.root }

// resolve maps a model-supplied path into the workspace and rejects escapes.
func (w *Workspace) resolve(path string) (string, error) {
	if path == "" {
		return w.root, nil
	}
	candidate := path
	if !filepath.IsAbs(candidate) {
		candidate = filepath.Join(w.root, candidate)
	}
	candidate = filepath.Clean(candidate)
	if candidate != w.root && !strings.HasPrefix(candidate, w.root+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q is outside the workspace", path)
	}
	return candidate, nil
}

// ReadFile returns up to limit lines of a file starting at the 1-based
// offset, formatted with line numbers.
func (w *Workspace) ReadFile(path string, offset, limit int) (string, error) {
	resolved, err := w.resolve(path)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(resolved)
	if err != nil {
		return "", fmt.Errorf("read_file: %w", err)
	}

	lines := strings.Split(string(data), "\n")
	start := 0
	if offset > 0 {
		start = offset - 1
	}
	if start >= len(lines) {
		return "", nil
	}
	end := len(lines)
	if limit > 0 && start+limit < end {
		end = start + limit
	}

	var sb strings.Builder
	for i := start; i < end; i++ {
		fmt.Fprintf(&sb, "%d | %s\n", i+1, lines[i])
	}
	return sb.String(), nil
}

// WriteFile writes content to a file, creating parent directories.
func (w *Workspace) WriteFile(path, content string) error {
	resolved, err := w.resolve(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return fmt.Errorf("write_file: %w", err)
	}
	if err := os.WriteFile(resolved, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write_file: %w", err)
	}
	return nil
}

// ListDir returns the entries of a directory, one per line, directories
// suffixed with a slash.
func (w *Workspace) ListDir(path string) (string, error) {
	resolved, err := w.resolve(path)
	if err != nil {
		return "", err
	}
	entries, err := os.ReadDir(resolved)
	if err != nil {
		return "", fmt.Errorf("list_dir: %w", err)
	}
	var sb strings.Builder
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() {
			name += "/"
		}
		sb.WriteString(name)
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

// ExecResult holds the outcome of one shell command.
type ExecResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
	TimedOut bool
}

// Output renders the result for feeding back to the model.
func (r ExecResult) Output() string {
	var sb strings.Builder
	if r.Stdout != "" {
		sb.WriteString(r.Stdout)
	}
	if r.Stderr != "" {
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(r.Stderr)
	}
	if r.TimedOut {
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString("[command timed out]")
	}
	if r.ExitCode != 0 {
		fmt.Fprintf(&sb, "\n[exit code %d]", r.ExitCode)
	}
	return sb.String()
}

// Exec runs a shell command in the workspace root under the configured
// timeout. A non-zero exit is not an error: the model sees the exit code and
// stderr and decides what to do.
func (w *Workspace) Exec(ctx context.Context, command string) (*ExecResult, error) {
	ctx, cancel := context.WithTimeout(ctx, w.commandTimeout)
	defer cancel()

	shell, shellArg := "/bin/bash", "-c"
	if runtime.GOOS == "windows" {
		shell, shellArg = "cmd.exe", "/c"
	}

	cmd := exec.CommandContext(ctx, shell, shellArg, command)
	cmd.Dir = w.root
	cmd.Env = filterEnvironment()
	// Own process group so a timeout can kill the whole tree.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := &ExecResult{Stdout: stdout.String(), Stderr: stderr.String()}
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			result.TimedOut = true
			result.ExitCode = -1
			if cmd.Process != nil {
				_ = syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
			}
		} else if exitErr, ok := err.(*exec.ExitError); ok {
			result.ExitCode = exitErr.ExitCode()
		} else {
			return nil, fmt.Errorf("exec: %w", err)
		}
	}
	return result, nil
}

// sensitiveEnvSuffixes are case-insensitive suffixes for environment
// variables withheld from tool subprocesses.
var sensitiveEnvSuffixes = []string{
	"_API_KEY",
	"_SECRET",
	"_TOKEN",
	"_PASSWORD",
	"_CREDENTIAL",
}

// safeEnvVars are always passed through regardless of suffix filtering.
var safeEnvVars = map[string]bool{
	"PATH": true, "HOME": true, "USER": true, "SHELL": true,
	"LANG": true, "TERM": true, "TMPDIR": true,
	"GOPATH": true, "GOROOT": true,
	"XDG_CONFIG_HOME": true, "XDG_DATA_HOME": true, "XDG_CACHE_HOME": true,
}

func isSensitiveEnvVar(name string) bool {
	upper := strings.ToUpper(name)
	for _, suffix := range sensitiveEnvSuffixes {
		if strings.HasSuffix(upper, suffix) {
			return true
		}
	}
	return false
}

func filterEnvironment() []string {
	var filtered []string
	for _, env := range os.Environ() {
		name, _, ok := strings.Cut(env, "=")
		if !ok {
			continue
		}
		if safeEnvVars[name] || !isSensitiveEnvVar(name) {
			filtered = append(filtered, env)
		}
	}
	return filtered
}
