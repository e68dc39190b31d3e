package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"unwrapped/internal/api"
	"unwrapped/internal/queue"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	jobsCmd := &cobra.Command{
		Use:     "jobs",
		Aliases: []string{"queue"},
		Short:   "Inspect and manage render jobs",
	}

	jobsCmd.AddCommand(newJobsStatusCommand(ctx))
	jobsCmd.AddCommand(newJobsListCommand(ctx))
	jobsCmd.AddCommand(newJobsShowCommand(ctx))
	jobsCmd.AddCommand(newJobsClearCommand(ctx))
	jobsCmd.AddCommand(newJobsRemoveCommand(ctx))
	jobsCmd.AddCommand(newJobsHealthCommand(ctx))

	return jobsCmd
}

func newJobsStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show job counts by state",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *queue.Store) error {
				stats, err := store.Stats(cmd.Context())
				if err != nil {
					return err
				}
				merged := api.MergeJobStats(stats)
				if jsonOutput {
					return writeJSON(cmd, merged)
				}
				rows := make([][]string, 0, len(merged))
				for _, status := range queue.AllStatuses() {
					rows = append(rows, []string{string(status), strconv.Itoa(merged[string(status)])})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"State", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newJobsListCommand(ctx *commandContext) *cobra.Command {
	var statuses []string
	var username string
	var limit int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List render jobs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := queue.ListFilter{Username: strings.TrimSpace(username), Limit: limit}
			for _, raw := range statuses {
				status, ok := queue.ParseStatus(raw)
				if !ok {
					return fmt.Errorf("unknown job state %q", raw)
				}
				filter.Statuses = append(filter.Statuses, status)
			}

			return ctx.withStore(func(store *queue.Store) error {
				jobs, err := store.List(cmd.Context(), filter)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, api.JobListResponse{Jobs: api.FromJobs(jobs)})
				}
				if len(jobs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No render jobs")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "User", "State", "Progress", "Updated"},
					jobRows(jobs),
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&statuses, "status", "s", nil, "Filter by state (pending, rendering, done, failed)")
	cmd.Flags().StringVarP(&username, "user", "u", "", "Filter by username")
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Maximum jobs to list (0 for all)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newJobsShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one render job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *queue.Store) error {
				job, err := store.GetByID(cmd.Context(), strings.TrimSpace(args[0]))
				if err != nil {
					return err
				}
				if job == nil {
					return fmt.Errorf("render job %s not found", args[0])
				}
				summary := api.FromJob(job)
				if jsonOutput {
					return writeJSON(cmd, summary)
				}
				rows := [][]string{
					{"ID", summary.ID},
					{"User", summary.Username},
					{"State", string(summary.State)},
					{"Progress", formatPercent(summary.Progress)},
					{"Fingerprint", shortFingerprint(summary.Fingerprint)},
					{"Created", summary.CreatedAt},
					{"Started", dashIfEmpty(summary.StartedAt)},
					{"Finished", dashIfEmpty(summary.FinishedAt)},
					{"URL", dashIfEmpty(summary.URL)},
					{"Output", dashIfEmpty(summary.OutputPath)},
					{"Error", dashIfEmpty(summary.ErrorMessage)},
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Field", "Value"}, rows, nil))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newJobsClearCommand(ctx *commandContext) *cobra.Command {
	var all bool
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove finished jobs",
		Long:  "Remove done and failed jobs. With --all every job is removed, including pending and rendering ones.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if all && olderThan > 0 {
				return errors.New("--all and --older-than are mutually exclusive")
			}
			return ctx.withStore(func(store *queue.Store) error {
				var removed int64
				var err error
				switch {
				case all:
					removed, err = store.ClearAll(cmd.Context())
				case olderThan > 0:
					removed, err = store.ClearFinished(cmd.Context(), time.Now().Add(-olderThan))
				default:
					removed, err = store.ClearFinished(cmd.Context(), time.Time{})
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d job(s)\n", removed)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Remove every job")
	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "Only remove jobs finished longer ago than this")
	return cmd
}

func newJobsRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove one job that is not rendering",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *queue.Store) error {
				removed, err := store.Remove(cmd.Context(), strings.TrimSpace(args[0]))
				if err != nil {
					return err
				}
				if !removed {
					return fmt.Errorf("render job %s not found or still rendering", args[0])
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed job %s\n", args[0])
				return nil
			})
		},
	}
}

func newJobsHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check the job database",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *queue.Store) error {
				health, err := store.CheckHealth(cmd.Context())
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Database: %s\n", health.DBPath)
				fmt.Fprintf(out, "Schema version: %d\n", health.SchemaVersion)
				fmt.Fprintf(out, "Integrity check: %s\n", yesNo(health.IntegrityCheck))
				fmt.Fprintf(out, "Total jobs: %d\n", health.TotalJobs)
				if health.Error != "" {
					fmt.Fprintf(out, "Error: %s\n", health.Error)
				}
				return err
			})
		},
	}
}

func jobRows(jobs []*queue.Job) [][]string {
	rows := make([][]string, 0, len(jobs))
	for _, job := range jobs {
		rows = append(rows, []string{
			job.ID,
			job.Username,
			string(job.Status),
			formatPercent(job.Progress),
			job.UpdatedAt.Local().Format("2006-01-02 15:04:05"),
		})
	}
	return rows
}

func formatPercent(fraction float64) string {
	return strconv.Itoa(int(fraction*100)) + "%"
}

func shortFingerprint(value string) string {
	if len(value) > 12 {
		return value[:12]
	}
	return dashIfEmpty(value)
}

func dashIfEmpty(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}
