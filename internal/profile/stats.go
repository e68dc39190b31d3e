package profile

import (
	"encoding/json"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// TopLanguage is one entry of the usage-ordered language list.
type TopLanguage struct {
	LanguageName string `json:"languageName"`
	Color        string `json:"color"`
}

// Stats is the upstream statistics record for one identity.
type Stats struct {
	Username           string          `json:"username"`
	LowercasedUsername string          `json:"lowercasedUsername"`
	TotalContributions int             `json:"totalContributions"`
	TotalStars         int             `json:"totalStars"`
	OpenIssues         int             `json:"openIssues"`
	ClosedIssues       int             `json:"closedIssues"`
	TotalPullRequests  int             `json:"totalPullRequests"`
	TopWeekday         string          `json:"topWeekday"`
	TopHour            string          `json:"topHour"`
	GraphData          json.RawMessage `json:"graphData"`
	ContributionData   []int           `json:"contributionData"`
	SampleStarredRepos []string        `json:"sampleStarredRepos"`
	TopLanguages       []TopLanguage   `json:"topLanguages"`
}

// LowercaseUsername applies the identity case normalization used for seeds
// and lookups.
func LowercaseUsername(username string) string {
	return cases.Lower(language.Und).String(strings.TrimSpace(username))
}

// Normalize fills lowercasedUsername when the collector omitted it. A value
// supplied upstream is kept verbatim because it seeds every derived visual.
func (s *Stats) Normalize() {
	if s == nil {
		return
	}
	s.Username = strings.TrimSpace(s.Username)
	if strings.TrimSpace(s.LowercasedUsername) == "" {
		s.LowercasedUsername = LowercaseUsername(s.Username)
	}
}

// Decode parses a JSON statistics document and normalizes it.
func Decode(data []byte) (*Stats, error) {
	var stats Stats
	if err := json.Unmarshal(data, &stats); err != nil {
		return nil, err
	}
	stats.Normalize()
	return &stats, nil
}
