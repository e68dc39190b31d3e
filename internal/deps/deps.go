package deps

import (
	"fmt"
	"os/exec"
	"strings"
)

// Requirement names an external program the render worker shells out to.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status is a Requirement after its command was looked up on PATH.
type Status struct {
	Requirement
	Available bool
	Detail    string
}

// Check resolves one requirement. Detail holds the resolved path when it
// differs from the configured command, or the reason the lookup failed.
func Check(req Requirement) Status {
	req.Command = strings.TrimSpace(req.Command)
	req.Description = strings.TrimSpace(req.Description)
	status := Status{Requirement: req}
	if req.Command == "" {
		status.Detail = "command not configured"
		return status
	}
	path, err := exec.LookPath(req.Command)
	if err != nil {
		status.Detail = fmt.Sprintf("binary %q not found", req.Command)
		return status
	}
	status.Available = true
	if path != req.Command {
		status.Detail = path
	}
	return status
}

// CheckBinaries resolves every requirement in order.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, len(requirements))
	for i, req := range requirements {
		results[i] = Check(req)
	}
	return results
}

// Missing filters statuses down to unavailable, non-optional entries.
func Missing(statuses []Status) []Status {
	var missing []Status
	for _, status := range statuses {
		if status.Optional || status.Available {
			continue
		}
		missing = append(missing, status)
	}
	return missing
}
