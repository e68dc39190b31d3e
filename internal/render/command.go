package render

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"unwrapped/internal/config"
	"unwrapped/internal/fileutil"
	"unwrapped/internal/logging"
	"unwrapped/internal/services"
)

// VideoRoute is the path prefix under which the API serves rendered files.
const VideoRoute = "/videos/"

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, onOutput func(string)) error
}

// Option configures the renderer.
type Option func(*CommandRenderer)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(r *CommandRenderer) {
		if exec != nil {
			r.exec = exec
		}
	}
}

// WithLogger sets the logger used for renderer invocations.
func WithLogger(logger *slog.Logger) Option {
	return func(r *CommandRenderer) {
		r.logger = logging.NewComponentLogger(logger, "renderer")
	}
}

// CommandRenderer runs an external renderer process per job.
type CommandRenderer struct {
	binary        string
	leadingArgs   []string
	entryPoint    string
	compositionID string
	outputDir     string
	stagingDir    string
	baseURL       string
	timeout       time.Duration
	exec          Executor
	logger        *slog.Logger
}

// NewCommandRenderer builds a renderer from configuration.
func NewCommandRenderer(cfg *config.Config, opts ...Option) (*CommandRenderer, error) {
	if cfg == nil {
		return nil, errors.New("config required")
	}
	binary := strings.TrimSpace(cfg.Render.RendererCommand)
	if binary == "" {
		return nil, errors.New("renderer command required")
	}
	baseURL := cfg.Render.PublicBaseURL
	if baseURL == "" {
		baseURL = strings.TrimRight(cfg.Render.ServiceURL, "/") + strings.TrimRight(VideoRoute, "/")
	}
	r := &CommandRenderer{
		binary:        binary,
		leadingArgs:   append([]string(nil), cfg.Render.RendererArgs...),
		entryPoint:    cfg.Render.EntryPoint,
		compositionID: cfg.Render.CompositionID,
		outputDir:     cfg.Paths.OutputDir,
		stagingDir:    filepath.Join(cfg.Paths.DataDir, "staging"),
		baseURL:       baseURL,
		timeout:       cfg.JobTimeout(),
		exec:          commandExecutor{},
		logger:        logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Render writes the props file, runs the renderer into the staging directory,
// and moves the finished video into the output directory.
func (r *CommandRenderer) Render(ctx context.Context, job Job, progress ProgressFunc) (Result, error) {
	if job.ID == "" {
		return Result{}, services.Wrap(services.ErrValidation, "renderer", "render", "job id required", nil)
	}
	for _, dir := range []string{r.outputDir, r.stagingDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return Result{}, services.Wrap(services.ErrConfiguration, "renderer", "prepare directories", dir, err)
		}
	}

	propsPath := filepath.Join(r.stagingDir, job.ID+".props.json")
	if err := fileutil.WriteAtomic(propsPath, job.Props, 0o644); err != nil {
		return Result{}, services.Wrap(services.ErrTransient, "renderer", "write props", propsPath, err)
	}
	defer os.Remove(propsPath)

	fileName := OutputFileName(job)
	stagedPath := filepath.Join(r.stagingDir, fileName)
	outputPath := filepath.Join(r.outputDir, fileName)
	defer os.Remove(stagedPath)

	args := append([]string(nil), r.leadingArgs...)
	args = append(args, r.entryPoint, r.compositionID, stagedPath, "--props="+propsPath)

	runCtx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	logging.WithContext(ctx, r.logger).Debug("renderer started",
		logging.Event("renderer_started"),
		logging.String("binary", r.binary),
		logging.String("args", strings.Join(args, " ")),
	)

	var tail outputTail
	err := r.exec.Run(runCtx, r.binary, args, func(line string) {
		tail.add(line)
		if progress == nil {
			return
		}
		if fraction, ok := parseProgress(line); ok {
			progress(fraction)
		}
	})
	if err != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return Result{}, services.Wrap(services.ErrTimeout, "renderer", "render", fmt.Sprintf("exceeded %s", r.timeout), err)
		}
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		return Result{}, services.Wrap(services.ErrExternalTool, "renderer", "render", tail.String(), err)
	}

	info, err := os.Stat(stagedPath)
	if err != nil || info.Size() == 0 {
		return Result{}, services.Wrap(services.ErrExternalTool, "renderer", "render", "renderer produced no output file", err)
	}
	if err := fileutil.Promote(stagedPath, outputPath); err != nil {
		return Result{}, services.Wrap(services.ErrTransient, "renderer", "publish output", outputPath, err)
	}
	if progress != nil {
		progress(1)
	}
	return Result{OutputPath: outputPath, URL: r.baseURL + "/" + url.PathEscape(fileName)}, nil
}

// OutputFileName names the video for a job.
func OutputFileName(job Job) string {
	name := sanitizeFileName(strings.ToLower(job.Username))
	if name == "" {
		return job.ID + ".mp4"
	}
	return name + "-" + job.ID + ".mp4"
}

func sanitizeFileName(name string) string {
	name = strings.TrimSpace(name)
	replacer := strings.NewReplacer("/", "-", "\\", "-", ":", "-", "*", "-", "?", "", "\"", "", "<", "", ">", "", "|", "", " ", "-")
	return strings.TrimSpace(replacer.Replace(name))
}

// outputTail keeps the last few renderer lines for failure messages.
type outputTail struct {
	mu    sync.Mutex
	lines []string
}

const tailLines = 5

func (t *outputTail) add(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lines = append(t.lines, line)
	if len(t.lines) > tailLines {
		t.lines = t.lines[len(t.lines)-tailLines:]
	}
}

func (t *outputTail) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.lines) == 0 {
		return "renderer exited with error"
	}
	return strings.Join(t.lines, " | ")
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string, onOutput func(string)) error {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start command: %w", err)
	}

	var wg sync.WaitGroup
	var scanErr error
	var once sync.Once

	scan := func(r io.Reader) {
		defer wg.Done()
		scanner := bufio.NewScanner(r)
		scanner.Split(scanLinesOrCarriageReturns)
		for scanner.Scan() {
			if onOutput != nil {
				onOutput(scanner.Text())
			}
		}
		if err := scanner.Err(); err != nil {
			once.Do(func() {
				scanErr = err
			})
		}
	}

	wg.Add(2)
	go scan(stdout)
	go scan(stderr)

	wg.Wait()
	if scanErr != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return fmt.Errorf("scan output: %w", scanErr)
	}

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("wait command: %w", err)
	}
	return nil
}

// scanLinesOrCarriageReturns splits on \n or \r so in-place progress bars
// produce one token per redraw.
func scanLinesOrCarriageReturns(data []byte, atEOF bool) (int, []byte, error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	for i, b := range data {
		if b == '\n' || b == '\r' {
			return i + 1, data[:i], nil
		}
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
