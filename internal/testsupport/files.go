package testsupport

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"unwrapped/internal/config"
	"unwrapped/internal/profile"
)

// WriteProfile stores stats as <lowercased username>.json in the configured
// profiles directory and returns the file path.
func WriteProfile(t testing.TB, cfg *config.Config, stats profile.Stats) string {
	t.Helper()

	stats.Normalize()
	data, err := json.Marshal(stats)
	if err != nil {
		t.Fatalf("marshal profile: %v", err)
	}
	if err := os.MkdirAll(cfg.Profiles.Dir, 0o755); err != nil {
		t.Fatalf("mkdir profiles: %v", err)
	}
	path := filepath.Join(cfg.Profiles.Dir, stats.LowercasedUsername+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write profile %s: %v", path, err)
	}
	return path
}

// SampleStats returns a fully populated statistics record.
func SampleStats(username string) profile.Stats {
	return profile.Stats{
		Username:           username,
		TotalContributions: 2500,
		TotalStars:         12,
		OpenIssues:         3,
		ClosedIssues:       17,
		TotalPullRequests:  42,
		TopWeekday:         "2",
		TopHour:            "14",
		GraphData:          json.RawMessage(`{"weeks":[1,2,3]}`),
		ContributionData:   []int{0, 3, 5, 1},
		SampleStarredRepos: []string{"remotion-dev/remotion", "golang/go"},
		TopLanguages: []profile.TopLanguage{
			{LanguageName: "Go", Color: "#00ADD8"},
			{LanguageName: "Rust", Color: "#dea584"},
			{LanguageName: "Elixir", Color: "#6e4a7e"},
		},
	}
}
