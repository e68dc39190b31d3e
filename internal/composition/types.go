package composition

import (
	"encoding/json"
	"fmt"
	"slices"
)

// Planet is the contribution tier.
type Planet string

const (
	PlanetIce    Planet = "Ice"
	PlanetSilver Planet = "Silver"
	PlanetGold   Planet = "Gold"
)

// AccentColor is the palette used for gradients.
type AccentColor string

const (
	AccentBlue   AccentColor = "blue"
	AccentPurple AccentColor = "purple"
)

// Rocket is the rocket artwork variant.
type Rocket string

const (
	RocketBlue   Rocket = "blue"
	RocketOrange Rocket = "orange"
	RocketYellow Rocket = "yellow"
)

// Corner is the layout starting corner of the language scene.
type Corner string

const (
	CornerTopLeft     Corner = "top-left"
	CornerTopRight    Corner = "top-right"
	CornerBottomLeft  Corner = "bottom-left"
	CornerBottomRight Corner = "bottom-right"
)

// StartAngle is the side the opening scene swings in from.
type StartAngle string

const (
	StartAngleLeft  StartAngle = "left"
	StartAngleRight StartAngle = "right"
)

// Ordered value sets. Index order is part of the derivation contract.
var (
	accentColors = []AccentColor{AccentBlue, AccentPurple}
	rockets      = []Rocket{RocketBlue, RocketOrange, RocketYellow}
	corners      = []Corner{CornerTopLeft, CornerTopRight, CornerBottomLeft, CornerBottomRight}
)

// AccentColors returns the accent palette in draw order.
func AccentColors() []AccentColor { return append([]AccentColor(nil), accentColors...) }

// Rockets returns the rocket variants in draw order.
func Rockets() []Rocket { return append([]Rocket(nil), rockets...) }

// Corners returns the layout corners in draw order.
func Corners() []Corner { return append([]Corner(nil), corners...) }

// ParseRocket validates a user supplied rocket name.
func ParseRocket(value string) (Rocket, error) {
	for _, r := range rockets {
		if string(r) == value {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown rocket %q (want one of blue, orange, yellow)", value)
}

// LanguageType tags a language slot.
type LanguageType string

const (
	LanguageDesigned LanguageType = "designed"
	LanguageOther    LanguageType = "other"
)

// Language is a classified top-language slot: either a designed artwork
// (Name is a DesignedLanguage) or an "other" fallback carrying the upstream
// name and color.
type Language struct {
	Type  LanguageType
	Name  string
	Color string
}

type designedLanguageJSON struct {
	Type LanguageType `json:"type"`
	Name string       `json:"name"`
}

type otherLanguageJSON struct {
	Type  LanguageType `json:"type"`
	Color string       `json:"color"`
	Name  string       `json:"name"`
}

// MarshalJSON emits {type,name} for designed slots and {type,color,name}
// for the fallback.
func (l Language) MarshalJSON() ([]byte, error) {
	if l.Type == LanguageOther {
		return json.Marshal(otherLanguageJSON{Type: l.Type, Color: l.Color, Name: l.Name})
	}
	return json.Marshal(designedLanguageJSON{Type: l.Type, Name: l.Name})
}

// UnmarshalJSON accepts either shape.
func (l *Language) UnmarshalJSON(data []byte) error {
	var raw otherLanguageJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch raw.Type {
	case LanguageDesigned:
		if !IsDesignedLanguage(raw.Name) {
			return fmt.Errorf("unknown designed language %q", raw.Name)
		}
		*l = Language{Type: LanguageDesigned, Name: raw.Name}
	case LanguageOther:
		*l = Language{Type: LanguageOther, Name: raw.Name, Color: raw.Color}
	default:
		return fmt.Errorf("unknown language type %q", raw.Type)
	}
	return nil
}

// TopLanguages holds up to three classified slots. Language1 is always set
// when the group exists.
type TopLanguages struct {
	Language1 Language  `json:"language1"`
	Language2 *Language `json:"language2"`
	Language3 *Language `json:"language3"`
}

// Parameters is the immutable input of the video composition.
type Parameters struct {
	Login                  string          `json:"login"`
	Corner                 Corner          `json:"corner"`
	TopLanguages           *TopLanguages   `json:"topLanguages"`
	ShowHelperLine         bool            `json:"showHelperLine"`
	Planet                 Planet          `json:"planet"`
	StarsGiven             int             `json:"starsGiven"`
	IssuesClosed           int             `json:"issuesClosed"`
	IssuesOpened           int             `json:"issuesOpened"`
	TotalPullRequests      int             `json:"totalPullRequests"`
	TopWeekday             string          `json:"topWeekday"`
	TopHour                string          `json:"topHour"`
	GraphData              json.RawMessage `json:"graphData"`
	OpeningSceneStartAngle StartAngle      `json:"openingSceneStartAngle"`
	AccentColor            AccentColor     `json:"accentColor"`
	Rocket                 *Rocket         `json:"rocket"`
	ContributionData       []int           `json:"contributionData"`
	SampleStarredRepos     []string        `json:"sampleStarredRepos"`
}

// WithRocket returns a copy using the viewer's chosen rocket.
func (p *Parameters) WithRocket(r Rocket) *Parameters {
	if p == nil {
		return nil
	}
	clone := *p
	clone.Rocket = &r
	return &clone
}

// Validate checks that every enumerated field holds a known value. It is
// applied to parameters arriving over the wire.
func (p *Parameters) Validate() error {
	if p == nil {
		return fmt.Errorf("parameters missing")
	}
	if p.Login == "" {
		return fmt.Errorf("login is required")
	}
	if !slices.Contains(corners, p.Corner) {
		return fmt.Errorf("invalid corner %q", p.Corner)
	}
	if !slices.Contains(accentColors, p.AccentColor) {
		return fmt.Errorf("invalid accentColor %q", p.AccentColor)
	}
	if p.Rocket != nil && !slices.Contains(rockets, *p.Rocket) {
		return fmt.Errorf("invalid rocket %q", *p.Rocket)
	}
	switch p.Planet {
	case PlanetIce, PlanetSilver, PlanetGold:
	default:
		return fmt.Errorf("invalid planet %q", p.Planet)
	}
	switch p.OpeningSceneStartAngle {
	case StartAngleLeft, StartAngleRight:
	default:
		return fmt.Errorf("invalid openingSceneStartAngle %q", p.OpeningSceneStartAngle)
	}
	return nil
}
