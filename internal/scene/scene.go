package scene

import (
	"math"

	"unwrapped/internal/composition"
)

// FPS is the composition frame rate.
const FPS = 30

// Canvas geometry of the issues scene.
const (
	CanvasWidth       = 1080
	Padding           = 100
	UsableCanvasWidth = CanvasWidth - Padding*2
	UfoGutter         = 10
	UfoWidth          = 1000
	UfoHeight         = 700
)

// EnterDirection is the horizontal direction the language spiral enters from.
type EnterDirection string

const (
	LeftToRight EnterDirection = "left-to-right"
	RightToLeft EnterDirection = "right-to-left"
)

// ClockDirection is the rotation sense of the spiral.
type ClockDirection string

const (
	Clockwise        ClockDirection = "clockwise"
	CounterClockwise ClockDirection = "counter-clockwise"
)

// EnterDirectionFor maps a starting corner to its entry direction.
func EnterDirectionFor(corner composition.Corner) EnterDirection {
	switch corner {
	case composition.CornerTopLeft, composition.CornerBottomLeft:
		return LeftToRight
	default:
		return RightToLeft
	}
}

// ClockDirectionFor returns the rotation sense for an entry direction.
func ClockDirectionFor(enter EnterDirection) ClockDirection {
	if enter == LeftToRight {
		return Clockwise
	}
	return CounterClockwise
}

// StartRotation returns the spiral's initial angle in radians.
func StartRotation(enter EnterDirection) float64 {
	if enter == LeftToRight {
		return math.Pi
	}
	return 0
}

// UfoPosition places one UFO: x is the horizontal centre, y the row top.
type UfoPosition struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Scale float64 `json:"scale"`
}

// IssuesPerRow returns the grid width used for count UFOs.
func IssuesPerRow(count int) int {
	switch {
	case count < 4:
		return 3
	case count < 15:
		return 4
	case count < 30:
		return 6
	default:
		return 8
	}
}

// UfoPositions lays out count UFOs row by row inside the padded canvas.
func UfoPositions(count int) []UfoPosition {
	if count <= 0 {
		return nil
	}
	perRow := IssuesPerRow(count)
	width := float64(UsableCanvasWidth-(perRow-1)*UfoGutter) / float64(perRow)
	scale := width / UfoWidth
	rowHeight := UfoHeight*scale + UfoGutter

	positions := make([]UfoPosition, count)
	for i := range positions {
		row := i / perRow
		column := i % perRow
		positions[i] = UfoPosition{
			X:     width*float64(column) + Padding + width/2 + float64(column*UfoGutter),
			Y:     Padding + float64(row)*rowHeight,
			Scale: scale,
		}
	}
	return positions
}

// Layout bundles the scene values derived from one parameter set.
type Layout struct {
	Enter         EnterDirection `json:"enterDirection"`
	Clock         ClockDirection `json:"clockDirection"`
	StartRotation float64        `json:"startRotation"`
	IssuesPerRow  int            `json:"issuesPerRow"`
	Ufos          []UfoPosition  `json:"ufos"`
}

// Explain derives the scene layout for p. It returns nil for nil parameters.
func Explain(p *composition.Parameters) *Layout {
	if p == nil {
		return nil
	}
	enter := EnterDirectionFor(p.Corner)
	issues := p.IssuesOpened + p.IssuesClosed
	return &Layout{
		Enter:         enter,
		Clock:         ClockDirectionFor(enter),
		StartRotation: StartRotation(enter),
		IssuesPerRow:  IssuesPerRow(issues),
		Ufos:          UfoPositions(issues),
	}
}
