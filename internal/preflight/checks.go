package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"unwrapped/internal/config"
	"unwrapped/internal/profile"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckFreeSpace verifies that the filesystem holding path has at least
// minBytes available to unprivileged users.
func CheckFreeSpace(name, path string, minBytes uint64) Result {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: statfs: %v)", path, err)}
	}
	free := stat.Bavail * uint64(stat.Bsize)
	detail := fmt.Sprintf("%s free on %s", formatBytes(free), path)
	if free < minBytes {
		return Result{Name: name, Detail: fmt.Sprintf("%s (need %s)", detail, formatBytes(minBytes))}
	}
	return Result{Name: name, Passed: true, Detail: detail}
}

// CheckProfileSource verifies that the statistics source can be opened.
func CheckProfileSource(ctx context.Context, cfg *config.Config) Result {
	const name = "Profile source"

	switch cfg.Profiles.Source {
	case config.ProfileSourcePostgres:
		checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		source, err := profile.OpenPostgres(checkCtx, cfg.Profiles.DatabaseURL)
		if err != nil {
			return Result{Name: name, Detail: fmt.Sprintf("postgres unreachable (%v)", err)}
		}
		_ = source.Close()
		return Result{Name: name, Passed: true, Detail: "postgres reachable"}
	default:
		check := CheckDirectoryAccess(name, cfg.Profiles.Dir)
		if check.Passed {
			check.Detail = fmt.Sprintf("%s (directory source)", cfg.Profiles.Dir)
		}
		return check
	}
}

// CheckRenderService verifies that the render service answers progress
// queries. Any JSON reply, including 404 for an unknown user, counts as up.
func CheckRenderService(ctx context.Context, baseURL string) Result {
	const name = "Render service"

	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return Result{Name: name, Detail: "missing service_url"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	body := strings.NewReader(`{"username":"unwrapped-preflight"}`)
	req, err := http.NewRequestWithContext(checkCtx, http.MethodPost, base+"/api/progress", body)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("request failed (%v)", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return Result{Name: name, Detail: summarizeNetError(err)}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNotFound:
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s reachable", base)}
	default:
		return Result{Name: name, Detail: fmt.Sprintf("%s replied %d", base, resp.StatusCode)}
	}
}

func summarizeNetError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "timed out (service unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timed out (service unreachable)"
	}
	return err.Error()
}

func formatBytes(value uint64) string {
	const unit = 1024
	if value < unit {
		return fmt.Sprintf("%d B", value)
	}
	div, exp := uint64(unit), 0
	for n := value / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(value)/float64(div), "KMGTPE"[exp])
}
