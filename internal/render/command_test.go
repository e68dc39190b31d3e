package render_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"unwrapped/internal/render"
	"unwrapped/internal/services"
	"unwrapped/internal/testsupport"
)

type stubExecutor struct {
	lines   []string
	err     error
	write   bool
	args    []string
	binary  string
	props   string
	blockOn bool
}

func (s *stubExecutor) Run(ctx context.Context, binary string, args []string, onOutput func(string)) error {
	s.binary = binary
	s.args = append([]string(nil), args...)
	propsFlag := args[len(args)-1]
	if data, err := os.ReadFile(strings.TrimPrefix(propsFlag, "--props=")); err == nil {
		s.props = string(data)
	}
	for _, line := range s.lines {
		onOutput(line)
	}
	if s.blockOn {
		<-ctx.Done()
		return ctx.Err()
	}
	if s.write {
		output := args[len(args)-2]
		if err := os.WriteFile(output, []byte("video"), 0o644); err != nil {
			return err
		}
	}
	return s.err
}

func newJob() render.Job {
	return render.Job{ID: "job-1", Username: "Ada", Props: json.RawMessage(`{"login":"Ada"}`)}
}

func TestRenderRunsCommandAndReportsProgress(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	exec := &stubExecutor{
		write: true,
		lines: []string{"Bundling 50%", "Rendered 15/30", "Encoded 30/30"},
	}
	r, err := render.NewCommandRenderer(cfg, render.WithExecutor(exec))
	if err != nil {
		t.Fatalf("NewCommandRenderer: %v", err)
	}

	var seen []float64
	result, err := r.Render(context.Background(), newJob(), func(f float64) { seen = append(seen, f) })
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	wantOutput := filepath.Join(cfg.Paths.OutputDir, "ada-job-1.mp4")
	if result.OutputPath != wantOutput {
		t.Fatalf("unexpected output path %q", result.OutputPath)
	}
	if result.URL != "http://127.0.0.1:8080/videos/ada-job-1.mp4" {
		t.Fatalf("unexpected url %q", result.URL)
	}
	if exec.binary != "npx" {
		t.Fatalf("unexpected binary %q", exec.binary)
	}
	staged := filepath.Join(cfg.Paths.DataDir, "staging", "ada-job-1.mp4")
	wantArgs := []string{"remotion", "render", cfg.Render.EntryPoint, cfg.Render.CompositionID, staged}
	for i, want := range wantArgs {
		if exec.args[i] != want {
			t.Fatalf("arg %d: got %q want %q (all %v)", i, exec.args[i], want, exec.args)
		}
	}
	if exec.props != `{"login":"Ada"}` {
		t.Fatalf("props file not written before run: %q", exec.props)
	}
	if _, err := os.Stat(filepath.Join(cfg.Paths.DataDir, "staging", "job-1.props.json")); !os.IsNotExist(err) {
		t.Fatalf("expected props file removed, got %v", err)
	}
	if _, err := os.Stat(staged); !os.IsNotExist(err) {
		t.Fatalf("expected staged video moved, got %v", err)
	}
	if data, err := os.ReadFile(wantOutput); err != nil || string(data) != "video" {
		t.Fatalf("expected published video, got %q, %v", data, err)
	}
	want := []float64{0.4, 1, 1}
	if len(seen) != len(want) {
		t.Fatalf("unexpected progress %v", seen)
	}
	for i := range want {
		if diff := seen[i] - want[i]; diff > 1e-9 || diff < -1e-9 {
			t.Fatalf("progress %d: got %v want %v", i, seen[i], want[i])
		}
	}
}

func TestRenderUsesPublicBaseURL(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Render.PublicBaseURL = "https://cdn.example.com/unwrapped"
	r, _ := render.NewCommandRenderer(cfg, render.WithExecutor(&stubExecutor{write: true}))
	result, err := r.Render(context.Background(), newJob(), nil)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if result.URL != "https://cdn.example.com/unwrapped/ada-job-1.mp4" {
		t.Fatalf("unexpected url %q", result.URL)
	}
}

func TestRenderFailureIsExternalToolError(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	exec := &stubExecutor{err: errors.New("exit status 1"), lines: []string{"Error: composition Main not found"}}
	r, _ := render.NewCommandRenderer(cfg, render.WithExecutor(exec))
	_, err := r.Render(context.Background(), newJob(), nil)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
	if !strings.Contains(err.Error(), "composition Main not found") {
		t.Fatalf("expected renderer output in error, got %v", err)
	}
}

func TestRenderMissingOutputFails(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	r, _ := render.NewCommandRenderer(cfg, render.WithExecutor(&stubExecutor{}))
	if _, err := r.Render(context.Background(), newJob(), nil); !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected missing output error, got %v", err)
	}
}

func TestRenderTimeout(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Render.JobTimeout = 1
	r, _ := render.NewCommandRenderer(cfg, render.WithExecutor(&stubExecutor{blockOn: true}))
	if _, err := r.Render(context.Background(), newJob(), nil); !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected timeout error, got %v", err)
	}
}

func TestRenderRunsRealCommand(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	script := filepath.Join(testsupport.BaseDir(cfg), "fake-renderer")
	testsupport.WriteScript(t, script, strings.Join([]string{
		"echo 'Rendered 1/2'",
		"printf 'Encoded 2/2\\r'",
		"eval \"target=\\${$(($# - 1))}\"",
		"echo video > \"$target\"",
	}, "\n"))
	cfg.Render.RendererCommand = script
	cfg.Render.RendererArgs = nil

	r, err := render.NewCommandRenderer(cfg)
	if err != nil {
		t.Fatalf("NewCommandRenderer: %v", err)
	}
	var last float64
	result, err := r.Render(context.Background(), newJob(), func(f float64) { last = f })
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if _, err := os.Stat(result.OutputPath); err != nil {
		t.Fatalf("expected output file: %v", err)
	}
	if last != 1 {
		t.Fatalf("expected final progress 1, got %v", last)
	}
}
