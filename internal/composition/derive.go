package composition

import (
	"slices"

	"unwrapped/internal/profile"
	"unwrapped/internal/seedrand"
)

const (
	goldThreshold   = 10000
	silverThreshold = 1000
	maxLanguages    = 3
)

// Seed discriminators appended to the lowercased username.
const (
	seedAccent     = "accent"
	seedRocket     = "rocket"
	seedCorner     = "corner"
	seedStartAngle = "startAngle"
	seedRust       = "rust"
)

// Deriver computes Parameters using an injectable random function.
type Deriver struct {
	random seedrand.Func
}

// NewDeriver returns a Deriver drawing from random. A nil random uses
// seedrand.Float.
func NewDeriver(random seedrand.Func) *Deriver {
	if random == nil {
		random = seedrand.Float
	}
	return &Deriver{random: random}
}

var defaultDeriver = NewDeriver(nil)

// Derive projects stats into composition parameters with the production
// random source. A nil record yields nil.
func Derive(stats *profile.Stats) *Parameters {
	return defaultDeriver.Derive(stats)
}

// Derive projects stats into composition parameters. A nil record yields nil.
func (d *Deriver) Derive(stats *profile.Stats) *Parameters {
	if stats == nil {
		return nil
	}
	seed := stats.LowercasedUsername
	draw := func(discriminator string) float64 {
		return d.random(seed + discriminator)
	}

	rocket := rockets[seedrand.Index(draw(seedRocket), len(rockets))]
	return &Parameters{
		Login:                  stats.Username,
		Corner:                 corners[seedrand.Index(draw(seedCorner), len(corners))],
		TopLanguages:           classifyTopLanguages(stats.TopLanguages, draw(seedRust)),
		ShowHelperLine:         false,
		Planet:                 PlanetFor(stats.TotalContributions),
		StarsGiven:             stats.TotalStars,
		IssuesClosed:           stats.ClosedIssues,
		IssuesOpened:           stats.OpenIssues,
		TotalPullRequests:      stats.TotalPullRequests,
		TopWeekday:             stats.TopWeekday,
		TopHour:                stats.TopHour,
		GraphData:              slices.Clone(stats.GraphData),
		OpeningSceneStartAngle: StartAngleFor(draw(seedStartAngle)),
		AccentColor:            accentColors[seedrand.Index(draw(seedAccent), len(accentColors))],
		Rocket:                 &rocket,
		ContributionData:       slices.Clone(stats.ContributionData),
		SampleStarredRepos:     slices.Clone(stats.SampleStarredRepos),
	}
}

// PlanetFor maps total contributions to a tier. Boundaries are exclusive:
// exactly 1000 stays Ice and exactly 10000 stays Silver.
func PlanetFor(totalContributions int) Planet {
	switch {
	case totalContributions > goldThreshold:
		return PlanetGold
	case totalContributions > silverThreshold:
		return PlanetSilver
	default:
		return PlanetIce
	}
}

// StartAngleFor maps the startAngle draw; exactly 0.5 is "left".
func StartAngleFor(draw float64) StartAngle {
	if draw > 0.5 {
		return StartAngleRight
	}
	return StartAngleLeft
}

func classifyTopLanguages(entries []profile.TopLanguage, rustDraw float64) *TopLanguages {
	if len(entries) == 0 {
		return nil
	}
	slots := make([]*Language, maxLanguages)
	for i := 0; i < maxLanguages && i < len(entries); i++ {
		lang := ClassifyLanguage(entries[i], rustDraw)
		slots[i] = &lang
	}
	return &TopLanguages{
		Language1: *slots[0],
		Language2: slots[1],
		Language3: slots[2],
	}
}
