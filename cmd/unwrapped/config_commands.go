package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"unwrapped/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigInitCommand())
	configCmd.AddCommand(newConfigValidateCommand(ctx))
	configCmd.AddCommand(newConfigShowCommand(ctx))

	return configCmd
}

type configInitOptions struct {
	path      string
	overwrite bool
	stdout    bool
}

func newConfigInitCommand() *cobra.Command {
	var opts configInitOptions
	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Create a sample configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&opts.path, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&opts.overwrite, "overwrite", false, "Replace an existing file")
	cmd.Flags().BoolVar(&opts.stdout, "stdout", false, "Print the sample instead of writing it")
	cmd.MarkFlagsMutuallyExclusive("stdout", "path")
	return cmd
}

func (o configInitOptions) run(out io.Writer) error {
	if o.stdout {
		_, err := io.WriteString(out, config.Sample())
		return err
	}
	target, err := initTarget(o.path)
	if err != nil {
		return err
	}
	if !o.overwrite {
		switch _, statErr := os.Stat(target); {
		case statErr == nil:
			return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
		case !errors.Is(statErr, fs.ErrNotExist):
			return fmt.Errorf("check config path: %w", statErr)
		}
	}
	if err := config.CreateSample(target); err != nil {
		return err
	}
	fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
	fmt.Fprintln(out, "Point [profiles] at your statistics records and [render] at the render service before running unwrapped serve.")
	return nil
}

func initTarget(path string) (string, error) {
	if path = strings.TrimSpace(path); path != "" {
		expanded, err := config.ExpandPath(path)
		if err != nil {
			return "", fmt.Errorf("resolve config path: %w", err)
		}
		return expanded, nil
	}
	target, err := config.DefaultConfigPath()
	if err != nil {
		return "", fmt.Errorf("determine default config path: %w", err)
	}
	return target, nil
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "validate",
		Short:       "Validate the configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			colorize := isTerminal(out)
			_, path, exists, err := config.Load(ctx.configArg())
			if err != nil {
				fmt.Fprintln(out, renderStatusLine("Config", statusError, err.Error(), colorize))
				return fmt.Errorf("load config: %w", err)
			}
			source := path
			if !exists {
				source = path + " (missing, defaults used)"
			}
			fmt.Fprintln(out, renderStatusLine("Config", statusOK, source, colorize))
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			token := "-"
			if cfg.Paths.APIToken != "" {
				token = "(set)"
			}
			rows := [][]string{
				{"Config file", dashIfEmpty(ctx.configPath)},
				{"Data dir", cfg.Paths.DataDir},
				{"Output dir", cfg.Paths.OutputDir},
				{"Log dir", cfg.Paths.LogDir},
				{"API bind", cfg.Paths.APIBind},
				{"API token", token},
				{"Profile source", cfg.Profiles.Source},
				{"Render service", cfg.Render.ServiceURL},
				{"Poll interval", cfg.PollInterval().String()},
				{"Renderer", cfg.Render.RendererCommand},
				{"Ntfy topic", dashIfEmpty(cfg.Notifications.NtfyTopic)},
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Setting", "Value"}, rows, nil))
			return nil
		},
	}
}
