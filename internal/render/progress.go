package render

import (
	"regexp"
	"strconv"
)

// Frame rendering dominates wall time; encoding fills the remainder.
const renderWeight = 0.8

var progressPattern = regexp.MustCompile(`\b(Rendered|Encoded)\s+(\d+)\s*/\s*(\d+)`)

// parseProgress extracts an overall progress fraction from one renderer output line.
func parseProgress(line string) (float64, bool) {
	match := progressPattern.FindStringSubmatch(line)
	if match == nil {
		return 0, false
	}
	done, err := strconv.Atoi(match[2])
	if err != nil {
		return 0, false
	}
	total, err := strconv.Atoi(match[3])
	if err != nil || total <= 0 {
		return 0, false
	}
	fraction := float64(done) / float64(total)
	if fraction > 1 {
		fraction = 1
	}
	if match[1] == "Rendered" {
		return fraction * renderWeight, true
	}
	return renderWeight + fraction*(1-renderWeight), true
}
