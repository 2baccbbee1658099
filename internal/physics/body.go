package physics

import (
	"math"

	"github.com/google/uuid"
	"github.com/lucasb-eyer/go-colorful"
)

// Color is an RGBA color with channels in [0, 1].
type Color [4]float64

// DefaultColor is used when a color string cannot be parsed.
var DefaultColor = Color{0.78, 0.78, 1, 1}

// ParseColor parses a "#rrggbb" string into an opaque Color.
func ParseColor(hex string) (Color, error) {
	c, err := colorful.Hex(hex)
	if err != nil {
		return DefaultColor, err
	}
	return Color{c.R, c.G, c.B, 1}, nil
}

// RandomColor returns a random saturated, reasonably bright color.
func RandomColor() Color {
	c := colorful.HappyColor()
	return Color{c.R, c.G, c.B, 1}
}

// Hex formats the RGB channels as "#rrggbb". Alpha is dropped.
func (c Color) Hex() string {
	return colorful.Color{R: c[0], G: c[1], B: c[2]}.Clamped().Hex()
}

// Body is a point mass tracked by the engine.
type Body struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Position    Vec2    `json:"position"`
	Velocity    Vec2    `json:"velocity"`
	Force       Vec2    `json:"force"` // valid only within a step
	Mass        float64 `json:"mass"`
	Radius      float64 `json:"radius"`
	Color       Color   `json:"color"`
	ParentIndex int     `json:"parent_index"`

	// Trail holds flattened x,y pairs, parent-relative when ParentIndex >= 0.
	Trail []float64 `json:"trail"`
}

// NewBody returns a body at rest with no parent and an empty trail.
func NewBody(name string, position Vec2, mass, radius float64, color Color) Body {
	return Body{
		ID:          uuid.NewString(),
		Name:        name,
		Position:    position,
		Mass:        mass,
		Radius:      radius,
		Color:       color,
		ParentIndex: NoParent,
	}
}

// Speed returns the magnitude of the body's velocity.
func (b *Body) Speed() float64 {
	return b.Velocity.Magnitude()
}

// ClearTrail drops all recorded trail points.
func (b *Body) ClearTrail() {
	b.Trail = b.Trail[:0]
}

// TrailPoints returns the number of x,y pairs in the trail.
func (b *Body) TrailPoints() int {
	return len(b.Trail) / 2
}

func (b *Body) valid() bool {
	return b.Mass > 0 && b.Radius > 0 &&
		!math.IsInf(b.Mass, 0) && !math.IsInf(b.Radius, 0) &&
		b.Position.IsFinite() && b.Velocity.IsFinite()
}
