package physics

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Vec2 is a 2D vector in simulation space.
type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func NewVec2(x, y float64) Vec2 {
	return Vec2{X: x, Y: y}
}

func (v Vec2) r2() r2.Vec {
	return r2.Vec{X: v.X, Y: v.Y}
}

func fromR2(p r2.Vec) Vec2 {
	return Vec2{X: p.X, Y: p.Y}
}

func (v Vec2) Plus(o Vec2) Vec2 {
	return fromR2(r2.Add(v.r2(), o.r2()))
}

func (v Vec2) Minus(o Vec2) Vec2 {
	return fromR2(r2.Sub(v.r2(), o.r2()))
}

func (v Vec2) Times(s float64) Vec2 {
	return fromR2(r2.Scale(s, v.r2()))
}

func (v Vec2) Magnitude() float64 {
	return r2.Norm(v.r2())
}

func (v Vec2) MagnitudeSquared() float64 {
	return r2.Norm2(v.r2())
}

// DistanceTo returns the Euclidean distance between v and o.
func (v Vec2) DistanceTo(o Vec2) float64 {
	return o.Minus(v).Magnitude()
}

func (v Vec2) IsZero() bool {
	return v.X == 0 && v.Y == 0
}

func (v Vec2) IsFinite() bool {
	return !math.IsNaN(v.X) && !math.IsNaN(v.Y) && !math.IsInf(v.X, 0) && !math.IsInf(v.Y, 0)
}
