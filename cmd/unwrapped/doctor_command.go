package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"unwrapped/internal/preflight"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	var skipService bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check directories, profile source, tools, and the render service",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			results := preflight.RunAll(cmd.Context(), cfg)
			if !skipService {
				results = append(results, preflight.CheckRenderService(cmd.Context(), cfg.Render.ServiceURL))
			}

			out := cmd.OutOrStdout()
			colorize := isTerminal(out)
			fmt.Fprintln(out, renderSectionHeader("Environment", colorize))
			for _, result := range results {
				kind := statusOK
				if !result.Passed {
					kind = statusError
				}
				fmt.Fprintln(out, renderStatusLine(result.Name, kind, result.Detail, colorize))
			}

			if failed := preflight.Failed(results); len(failed) > 0 {
				return fmt.Errorf("%d check(s) failed", len(failed))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&skipService, "skip-service", false, "Do not check the render service")
	return cmd
}

