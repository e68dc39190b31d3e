package preflight

import (
	"context"
	"fmt"

	"unwrapped/internal/config"
	"unwrapped/internal/deps"
)

// minFreeBytes is the free space below which the output directory check fails.
const minFreeBytes = 512 << 20

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir),
		CheckFreeSpace("Output free space", cfg.Paths.OutputDir, minFreeBytes),
		CheckProfileSource(ctx, cfg),
	}
	for _, status := range CheckSystemDeps(cfg) {
		results = append(results, fromDependency(status))
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, result := range results {
		if !result.Passed {
			failed = append(failed, result)
		}
	}
	return failed
}

// CheckSystemDeps evaluates the binaries the configured renderer needs.
// Both the daemon status and the CLI doctor command use this list.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	requirements := []deps.Requirement{
		{
			Name:        "Renderer",
			Command:     cfg.Render.RendererCommand,
			Description: "Required to render videos",
		},
	}
	if cfg.Render.RendererCommand == "npx" {
		requirements = append(requirements, deps.Requirement{
			Name:        "Node.js",
			Command:     "node",
			Description: "Runs the composition bundler",
		})
	}
	requirements = append(requirements, deps.Requirement{
		Name:        "FFmpeg",
		Command:     "ffmpeg",
		Description: "Used by the renderer when its bundled encoder is unavailable",
		Optional:    true,
	})
	return deps.CheckBinaries(requirements)
}

func fromDependency(status deps.Status) Result {
	name := status.Name
	if status.Optional {
		name += " (optional)"
	}
	if status.Available {
		detail := status.Command
		if status.Detail != "" {
			detail = status.Detail
		}
		return Result{Name: name, Passed: true, Detail: detail}
	}
	return Result{
		Name:   name,
		Passed: status.Optional,
		Detail: fmt.Sprintf("%s: %s", status.Description, status.Detail),
	}
}
