package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/pflag"

	"github.com/fieldmesh/fieldagent/config"
	"github.com/fieldmesh/fieldagent/llm"
)

// runSetup walks the user through a config file interactively. Existing
// values become the defaults, so re-running edits rather than resets.
func runSetup(args []string) error {
	var configPath string
	fs := pflag.NewFlagSet("setup", pflag.ContinueOnError)
	fs.StringVar(&configPath, "config", "", "config file path (default ~/.fieldagent/config.json)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	in := bufio.NewScanner(os.Stdin)
	ask := func(label, current string) string {
		if current != "" {
			fmt.Printf("%s [%s]: ", label, current)
		} else {
			fmt.Printf("%s: ", label)
		}
		if !in.Scan() {
			return current
		}
		answer := strings.TrimSpace(in.Text())
		if answer == "" {
			return current
		}
		return answer
	}

	fmt.Println("fieldagent setup (press enter to keep the current value)")

	for {
		cfg.Vendor = ask("LLM vendor (anthropic, openai, gemini)", cfg.Vendor)
		if cfg.Vendor == "anthropic" || cfg.Vendor == "openai" || cfg.Vendor == "gemini" {
			break
		}
		fmt.Println("unrecognized vendor, try again")
	}

	defaultModel := llm.DefaultModel(llm.Vendor(cfg.Vendor))
	cfg.Model = ask(fmt.Sprintf("Model (default %s)", defaultModel), cfg.Model)

	key := ask("API key (blank runs in placeholder mode)", cfg.APIKey(cfg.Vendor))
	if key != "" {
		if cfg.APIKeys == nil {
			cfg.APIKeys = make(map[string]string)
		}
		cfg.APIKeys[cfg.Vendor] = key
	}

	cfg.MarketplaceURL = ask("Marketplace URL", cfg.MarketplaceURL)
	if cfg.MarketplaceURL != "" {
		cfg.MarketplaceToken = ask("Marketplace token", cfg.MarketplaceToken)
	}
	cfg.SkillsDir = ask("Skills directory (blank for none)", cfg.SkillsDir)
	cfg.WorkspaceDir = ask("Workspace directory (blank for cwd)", cfg.WorkspaceDir)
	cfg.Identity = ask("Identity text (blank for none)", cfg.Identity)

	current := ""
	if cfg.MaxTurns > 0 {
		current = strconv.Itoa(cfg.MaxTurns)
	}
	if answer := ask("Max turns per task (blank for default 25)", current); answer != "" {
		n, err := strconv.Atoi(answer)
		if err != nil || n <= 0 {
			fmt.Println("keeping the default turn budget")
		} else {
			cfg.MaxTurns = n
		}
	}

	if err := config.Save(configPath, cfg); err != nil {
		return err
	}

	path := configPath
	if path == "" {
		path, _ = config.DefaultPath()
	}
	fmt.Printf("configuration written to %s\n", path)
	if cfg.APIKey(cfg.Vendor) == "" {
		fmt.Println("note: no API key set; the agent will run in placeholder mode")
	}
	return nil
}
