// fieldagent is an autonomous task-marketplace agent. It claims units of
// work from a remote marketplace, solves them with a tool-calling LLM loop,
// and submits the results.
//
// Subcommands:
//
//	run <prompt>  run one agent loop against the configured provider
//	work          poll the marketplace, claim tasks, solve, submit
//	setup         interactive configuration wizard
//	version       print the version
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/fieldmesh/fieldagent/agentloop"
	"github.com/fieldmesh/fieldagent/config"
	"github.com/fieldmesh/fieldagent/llm"
	"github.com/fieldmesh/fieldagent/skills"
)

const version = "0.3.0"

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		printUsage()
		return fmt.Errorf("a subcommand is required")
	}

	switch args[0] {
	case "run":
		return runOnce(args[1:])
	case "work":
		return runWorker(args[1:])
	case "setup":
		return runSetup(args[1:])
	case "version", "--version":
		fmt.Println("fieldagent " + version)
		return nil
	case "help", "--help", "-h":
		printUsage()
		return nil
	default:
		printUsage()
		return fmt.Errorf("unknown subcommand %q", args[0])
	}
}

func printUsage() {
	fmt.Fprint(os.Stderr, `fieldagent: autonomous task-marketplace agent

Usage:
  fieldagent run [flags] <prompt>   run one agent loop
  fieldagent work [flags]           poll, claim, solve, submit
  fieldagent setup                  interactive configuration wizard
  fieldagent version                print the version

Run "fieldagent <subcommand> --help" for subcommand flags.
`)
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// commonFlags carries the flags shared by run and work.
type commonFlags struct {
	configPath string
	vendor     string
	model      string
	maxTurns   int
	noTools    bool
	verbose    bool
}

func addCommonFlags(fs *pflag.FlagSet, f *commonFlags) {
	fs.StringVar(&f.configPath, "config", "", "config file path (default ~/.fieldagent/config.json)")
	fs.StringVar(&f.vendor, "vendor", "", "LLM vendor: anthropic, openai, or gemini")
	fs.StringVar(&f.model, "model", "", "model identifier (default per vendor)")
	fs.IntVar(&f.maxTurns, "max-turns", 0, "turn budget per agent loop (default 25)")
	fs.BoolVar(&f.noTools, "no-tools", false, "disable tools: single completion only")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "debug logging")
}

// agent bundles everything one loop invocation needs.
type agent struct {
	loop   *agentloop.Loop
	cfg    config.Config
	skills []skills.Skill
	logger *slog.Logger
}

// buildAgent resolves config, constructs the provider adapter (placeholder
// when no credential is set), the workspace-backed tool registry, and the
// loop.
func buildAgent(ctx context.Context, flags commonFlags) (*agent, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, err
	}
	if flags.vendor != "" {
		cfg.Vendor = flags.vendor
	}
	if flags.model != "" {
		cfg.Model = flags.model
	}
	if flags.maxTurns > 0 {
		cfg.MaxTurns = flags.maxTurns
	}

	logger := newLogger(flags.verbose)

	adapter, err := llm.New(ctx, llm.Config{
		Vendor: llm.Vendor(cfg.Vendor),
		APIKey: cfg.APIKey(cfg.Vendor),
		Model:  cfg.Model,
	})
	if err != nil {
		return nil, err
	}
	logger.Debug("provider ready", "adapter", adapter.Name())

	var registry *agentloop.ToolRegistry
	if !flags.noTools {
		workspace, err := agentloop.NewWorkspace(cfg.WorkspaceDir)
		if err != nil {
			return nil, err
		}
		registry = agentloop.NewToolRegistry()
		agentloop.RegisterCoreTools(registry, workspace)
		logger.Debug("tools registered", "count", registry.Count(), "workspace", workspace.Root())
	}

	loaded, err := skills.LoadDir(cfg.SkillsDir)
	if err != nil {
		return nil, err
	}

	loop := agentloop.New(adapter, registry, agentloop.Config{MaxTurns: cfg.MaxTurns}, &logObserver{logger: logger})
	return &agent{loop: loop, cfg: cfg, skills: loaded, logger: logger}, nil
}

// solve runs one loop invocation for a task prompt, selecting relevant
// skills into the system prompt.
func (a *agent) solve(ctx context.Context, taskPrompt string) (agentloop.Result, error) {
	selected := skills.Select(a.skills, taskPrompt, 3)
	blocks := make([]agentloop.SkillBlock, len(selected))
	for i, s := range selected {
		blocks[i] = agentloop.SkillBlock{
			Name:         s.Name,
			Category:     s.Category,
			Instructions: s.Instructions,
		}
		a.logger.Debug("skill selected", "name", s.Name)
	}

	systemPrompt := agentloop.PromptSpec{
		Identity: a.cfg.Identity,
		Skills:   blocks,
	}.Build()

	return a.loop.Run(ctx, systemPrompt, taskPrompt)
}

// logObserver adapts loop callbacks to structured logging.
type logObserver struct {
	logger *slog.Logger
}

func (o *logObserver) OnTurnStart(turn int) {
	o.logger.Debug("turn start", "turn", turn)
}

func (o *logObserver) OnToolCall(inv llm.ToolInvocation) {
	o.logger.Info("tool call", "tool", inv.Name, "id", inv.ID)
}

func (o *logObserver) OnToolResult(res llm.ToolResult) {
	if res.IsError {
		o.logger.Warn("tool error", "id", res.InvocationID, "message", res.Content)
		return
	}
	o.logger.Debug("tool result", "id", res.InvocationID, "bytes", len(res.Content))
}

func runOnce(args []string) error {
	var flags commonFlags
	fs := pflag.NewFlagSet("run", pflag.ContinueOnError)
	addCommonFlags(fs, &flags)
	if err := fs.Parse(args); err != nil {
		return err
	}
	prompt := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if prompt == "" {
		return fmt.Errorf("run: a prompt is required")
	}

	ctx := context.Background()
	ag, err := buildAgent(ctx, flags)
	if err != nil {
		return err
	}

	start := time.Now()
	result, err := ag.solve(ctx, prompt)
	if err != nil {
		return err
	}
	ag.logger.Info("loop finished",
		"turns", result.Turns,
		"tool_calls", result.ToolCalls,
		"tokens", result.Usage.Total(),
		"exhausted", result.Exhausted,
		"elapsed", time.Since(start).Round(time.Millisecond))

	fmt.Println(result.Text)
	return nil
}
