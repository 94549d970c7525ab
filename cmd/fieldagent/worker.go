package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/fieldmesh/fieldagent/llm"
	"github.com/fieldmesh/fieldagent/marketplace"
)

const (
	defaultPollInterval = 15 * time.Second
	heartbeatInterval   = 60 * time.Second
	listLimit           = 10
)

// worker is the outer task loop: poll the marketplace, claim a task, solve
// it with the agent loop, submit the answer. A heartbeat ticker runs
// independently; the two share nothing but the marketplace client, which is
// safe for concurrent use.
type worker struct {
	agent  *agent
	market *marketplace.Client
	logger *slog.Logger
	poll   time.Duration
	retry  llm.RetryPolicy
}

func runWorker(args []string) error {
	var flags commonFlags
	fs := pflag.NewFlagSet("work", pflag.ContinueOnError)
	addCommonFlags(fs, &flags)
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ag, err := buildAgent(ctx, flags)
	if err != nil {
		return err
	}
	if ag.cfg.MarketplaceURL == "" {
		return fmt.Errorf("work: no marketplace URL configured; run \"fieldagent setup\"")
	}

	market, err := marketplace.NewClient(marketplace.Config{
		BaseURL: ag.cfg.MarketplaceURL,
		Token:   ag.cfg.MarketplaceToken,
	})
	if err != nil {
		return err
	}

	poll := defaultPollInterval
	if ag.cfg.PollIntervalSeconds > 0 {
		poll = time.Duration(ag.cfg.PollIntervalSeconds) * time.Second
	}

	w := &worker{
		agent:  ag,
		market: market,
		logger: ag.logger,
		poll:   poll,
		retry:  llm.DefaultRetryPolicy(),
	}
	return w.run(ctx)
}

func (w *worker) run(ctx context.Context) error {
	w.logger.Info("worker started", "poll", w.poll)

	go w.heartbeatLoop(ctx)

	ticker := time.NewTicker(w.poll)
	defer ticker.Stop()

	for {
		w.pollOnce(ctx)
		select {
		case <-ctx.Done():
			w.logger.Info("worker stopping")
			return nil
		case <-ticker.C:
		}
	}
}

// pollOnce processes at most one task. Every failure is logged and absorbed:
// the task stays unclaimed or unfinished on the marketplace side and a later
// poll retries it. The worker never crashes the host over a single task.
func (w *worker) pollOnce(ctx context.Context) {
	tasks, err := w.market.ListAvailable(ctx, listLimit)
	if err != nil {
		w.logger.Error("list tasks failed", "error", err)
		return
	}
	if len(tasks) == 0 {
		w.logger.Debug("no open tasks")
		return
	}

	for _, task := range tasks {
		if ctx.Err() != nil {
			return
		}
		if !w.claim(ctx, task.ID) {
			continue
		}
		w.logger.Info("task claimed", "task", task.ID, "title", task.Title)

		result, err := w.agent.solve(ctx, task.Prompt())
		if err != nil {
			// Transport-fatal loop error: leave the task for a later poll.
			w.logger.Error("loop failed", "task", task.ID, "error", err)
			return
		}
		if result.Exhausted {
			w.logger.Warn("turn budget exhausted", "task", task.ID, "turns", result.Turns)
		}

		if err := w.submit(ctx, task.ID, result.Text); err != nil {
			w.logger.Error("submit failed", "task", task.ID, "error", err)
			return
		}
		w.logger.Info("task submitted",
			"task", task.ID,
			"turns", result.Turns,
			"tool_calls", result.ToolCalls,
			"tokens", result.Usage.Total())
		return
	}
}

// claim reserves a task, retrying transient failures. Conflicts mean another
// agent won the race; not an error.
func (w *worker) claim(ctx context.Context, taskID string) bool {
	_, err := llm.Retry(ctx, w.retry, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, w.market.Claim(ctx, taskID)
	})
	if err == nil {
		return true
	}
	if marketplace.IsConflict(err) {
		w.logger.Debug("task already claimed", "task", taskID)
	} else {
		w.logger.Warn("claim failed", "task", taskID, "error", err)
	}
	return false
}

func (w *worker) submit(ctx context.Context, taskID, content string) error {
	_, err := llm.Retry(ctx, w.retry, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, w.market.Submit(ctx, taskID, content)
	})
	return err
}

func (w *worker) heartbeatLoop(ctx context.Context) {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.market.Heartbeat(ctx); err != nil {
				w.logger.Warn("heartbeat failed", "error", err)
			}
		}
	}
}
