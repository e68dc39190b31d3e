package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"unwrapped/internal/composition"
	"unwrapped/internal/config"
	"unwrapped/internal/logging"
	"unwrapped/internal/poller"
	"unwrapped/internal/profile"
	"unwrapped/internal/renderclient"
	"unwrapped/internal/session"
)

type renderOutput struct {
	Username  string  `json:"username"`
	State     string  `json:"state"`
	JobID     string  `json:"jobId,omitempty"`
	URL       string  `json:"url,omitempty"`
	Error     string  `json:"error,omitempty"`
	SubmitErr string  `json:"submitError,omitempty"`
	Progress  float64 `json:"progress"`
	Polls     int     `json:"polls"`
}

type renderFlags struct {
	rocket     string
	watch      bool
	strict     bool
	jsonOutput bool
	interval   time.Duration
	timeout    time.Duration
}

func newRenderCommand(ctx *commandContext) *cobra.Command {
	var flags renderFlags

	cmd := &cobra.Command{
		Use:   "render <username>",
		Short: "Request a video for a user and wait for it",
		Long: "Derive the composition for a user, submit it to the render service, and\n" +
			"poll until the video is ready or the job fails.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			opts, err := flags.sessionOptions(cfg)
			if err != nil {
				return err
			}

			runCtx := cmd.Context()
			if runCtx == nil {
				runCtx = context.Background()
			}
			if flags.timeout > 0 {
				var cancel context.CancelFunc
				runCtx, cancel = context.WithTimeout(runCtx, flags.timeout)
				defer cancel()
			}

			source, err := profile.NewSource(runCtx, cfg)
			if err != nil {
				return err
			}
			defer source.Close()

			sc, err := session.Load(runCtx, source, args[0])
			if err != nil {
				return err
			}
			defer sc.Close()

			logger, err := logging.New(logging.Options{Level: "warn", Format: cfg.Logging.Format, OutputPaths: []string{"stderr"}})
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			deps := session.Deps{Client: renderclient.NewFromConfig(cfg), Logger: logger}

			var view session.View
			var runErr error
			switch {
			case flags.watch && !flags.jsonOutput && isTerminal(cmd.OutOrStdout()):
				view, runErr = runWatch(runCtx, cmd, sc, deps, opts)
			case flags.watch && !flags.jsonOutput:
				opts.OnUpdate = progressPrinter(cmd)
				view, runErr = session.Run(runCtx, sc, deps, opts)
			default:
				view, runErr = session.Run(runCtx, sc, deps, opts)
			}
			return reportView(cmd, sc.Username(), view, runErr, flags.jsonOutput)
		},
	}

	cmd.Flags().StringVar(&flags.rocket, "rocket", "", "Override the derived rocket (blue, orange, yellow)")
	cmd.Flags().BoolVarP(&flags.watch, "watch", "w", false, "Show live render progress")
	cmd.Flags().BoolVar(&flags.strict, "strict", false, "Start polling only after the submission settles")
	cmd.Flags().BoolVar(&flags.jsonOutput, "json", false, "Output the final state as JSON")
	cmd.Flags().DurationVar(&flags.interval, "interval", 0, "Progress poll interval (default render.poll_interval_ms)")
	cmd.Flags().DurationVar(&flags.timeout, "timeout", 0, "Give up after this long (0 waits indefinitely)")
	return cmd
}

func (f renderFlags) sessionOptions(cfg *config.Config) (session.Options, error) {
	opts := session.Options{
		Ordering:     session.OrderConcurrent,
		PollInterval: cfg.PollInterval(),
	}
	if f.strict {
		opts.Ordering = session.OrderAfterSubmit
	}
	if f.interval > 0 {
		opts.PollInterval = f.interval
	}
	if value := strings.ToLower(strings.TrimSpace(f.rocket)); value != "" {
		rocket, err := composition.ParseRocket(value)
		if err != nil {
			return session.Options{}, err
		}
		opts.Rocket = &rocket
	}
	return opts, nil
}

// progressPrinter writes one line per distinct progress percentage.
func progressPrinter(cmd *cobra.Command) func(poller.Snapshot) {
	last := -1
	return func(snap poller.Snapshot) {
		pct := int(snap.Progress * 100)
		if snap.State == poller.StatePolling && pct == last {
			return
		}
		last = pct
		fmt.Fprintf(cmd.OutOrStdout(), "%-9s %3d%%\n", snap.State, pct)
	}
}

func reportView(cmd *cobra.Command, username string, view session.View, runErr error, jsonOutput bool) error {
	if jsonOutput {
		out := renderOutput{
			Username: username,
			State:    string(view.Kind),
			URL:      view.URL,
			Error:    view.Error,
			Progress: view.Snapshot.Progress,
			Polls:    view.Snapshot.Polls,
		}
		if view.Ack != nil {
			out.JobID = view.Ack.JobID
		}
		if view.SubmitErr != nil {
			out.SubmitErr = view.SubmitErr.Error()
		}
		if err := writeJSON(cmd, out); err != nil {
			return err
		}
	} else {
		printView(cmd, username, view)
	}

	if runErr != nil {
		if errors.Is(runErr, context.DeadlineExceeded) {
			return fmt.Errorf("render still pending: %w", runErr)
		}
		return runErr
	}
	return view.Err()
}

func printView(cmd *cobra.Command, username string, view session.View) {
	out := cmd.OutOrStdout()
	switch view.Kind {
	case session.ViewNotFound:
		fmt.Fprintf(out, "No statistics found for %s\n", username)
	case session.ViewSucceeded:
		fmt.Fprintf(out, "Video ready: %s\n", view.URL)
	case session.ViewFailed:
		fmt.Fprintf(out, "Render failed: %s\n", view.Error)
	default:
		fmt.Fprintf(out, "Render pending for %s (%.0f%%)\n", username, view.Snapshot.Progress*100)
	}
}
