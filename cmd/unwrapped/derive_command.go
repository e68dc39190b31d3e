package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"unwrapped/internal/composition"
	"unwrapped/internal/profile"
	"unwrapped/internal/scene"
	"unwrapped/internal/services"
)

type deriveOutput struct {
	Parameters *composition.Parameters `json:"parameters"`
	Layout     *scene.Layout           `json:"layout,omitempty"`
}

func newDeriveCommand(ctx *commandContext) *cobra.Command {
	var explain bool
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "derive <username>",
		Short: "Derive composition parameters for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := ctx.deriveParameters(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			result := deriveOutput{Parameters: params}
			if explain {
				result.Layout = scene.Explain(params)
			}
			if jsonOutput {
				return writeJSON(cmd, result)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable([]string{"Field", "Value"}, parameterRows(params), nil))
			if result.Layout != nil {
				fmt.Fprintln(out)
				fmt.Fprintln(out, renderTable([]string{"Scene", "Value"}, layoutRows(result.Layout), nil))
				if len(result.Layout.Ufos) > 0 {
					fmt.Fprintln(out)
					fmt.Fprintln(out, renderTable(
						[]string{"UFO", "X", "Y", "Scale"},
						ufoRows(result.Layout.Ufos),
						[]columnAlignment{alignRight, alignRight, alignRight, alignRight},
					))
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&explain, "explain", false, "Include the derived scene layout")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

// deriveParameters looks up username in the configured profile source.
func (c *commandContext) deriveParameters(ctx context.Context, username string) (*composition.Parameters, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	source, err := profile.NewSource(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer source.Close()

	stats, err := source.Lookup(ctx, username)
	if err != nil {
		return nil, err
	}
	params := composition.Derive(stats)
	if params == nil {
		return nil, fmt.Errorf("%w for %q", services.ErrNoData, username)
	}
	return params, nil
}

func parameterRows(p *composition.Parameters) [][]string {
	rocket := "-"
	if p.Rocket != nil {
		rocket = string(*p.Rocket)
	}
	return [][]string{
		{"Login", p.Login},
		{"Planet", string(p.Planet)},
		{"Accent color", string(p.AccentColor)},
		{"Rocket", rocket},
		{"Corner", string(p.Corner)},
		{"Start angle", string(p.OpeningSceneStartAngle)},
		{"Languages", languageSummary(p.TopLanguages)},
		{"Stars given", strconv.Itoa(p.StarsGiven)},
		{"Issues opened", strconv.Itoa(p.IssuesOpened)},
		{"Issues closed", strconv.Itoa(p.IssuesClosed)},
		{"Pull requests", strconv.Itoa(p.TotalPullRequests)},
		{"Top weekday", p.TopWeekday},
		{"Top hour", p.TopHour},
	}
}

func languageSummary(langs *composition.TopLanguages) string {
	if langs == nil {
		return "-"
	}
	names := []string{languageLabel(langs.Language1)}
	for _, l := range []*composition.Language{langs.Language2, langs.Language3} {
		if l != nil {
			names = append(names, languageLabel(*l))
		}
	}
	return strings.Join(names, ", ")
}

func languageLabel(l composition.Language) string {
	if l.Type == composition.LanguageOther {
		return l.Name + " (other)"
	}
	return l.Name
}

func layoutRows(l *scene.Layout) [][]string {
	return [][]string{
		{"Enter direction", string(l.Enter)},
		{"Clock direction", string(l.Clock)},
		{"Start rotation", strconv.FormatFloat(l.StartRotation, 'f', 4, 64)},
		{"Issues per row", strconv.Itoa(l.IssuesPerRow)},
	}
}

func ufoRows(ufos []scene.UfoPosition) [][]string {
	rows := make([][]string, 0, len(ufos))
	for i, u := range ufos {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			strconv.FormatFloat(u.X, 'f', 1, 64),
			strconv.FormatFloat(u.Y, 'f', 1, 64),
			strconv.FormatFloat(u.Scale, 'f', 3, 64),
		})
	}
	return rows
}
