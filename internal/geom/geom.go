// Package geom holds the logical-pixel value types shared by the pipeline.
package geom

import "fmt"

// Position is a point in logical pixels.
type Position struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Size is a width/height pair in logical pixels.
type Size struct {
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// Rect is an origin plus a size.
type Rect struct {
	Origin Position `json:"origin" yaml:"origin"`
	Size   Size     `json:"size" yaml:"size"`
}

// NewRect builds a Rect from its four components.
func NewRect(x, y, w, h float64) Rect {
	return Rect{Origin: Position{X: x, Y: y}, Size: Size{Width: w, Height: h}}
}

// Add returns p translated by d.
func (p Position) Add(d Position) Position {
	return Position{X: p.X + d.X, Y: p.Y + d.Y}
}

// Sub returns p - d.
func (p Position) Sub(d Position) Position {
	return Position{X: p.X - d.X, Y: p.Y - d.Y}
}

// IsZero reports whether both components are zero.
func (p Position) IsZero() bool {
	return p.X == 0 && p.Y == 0
}

func (p Position) String() string {
	return fmt.Sprintf("(%g,%g)", p.X, p.Y)
}

// Exceeds reports whether s is larger than o in either dimension.
func (s Size) Exceeds(o Size) bool {
	return s.Width > o.Width || s.Height > o.Height
}

// Contains reports whether p lies inside r (right/bottom edges exclusive).
func (r Rect) Contains(p Position) bool {
	return p.X >= r.Origin.X && p.Y >= r.Origin.Y &&
		p.X < r.Origin.X+r.Size.Width && p.Y < r.Origin.Y+r.Size.Height
}

// Max returns the bottom-right corner.
func (r Rect) Max() Position {
	return Position{X: r.Origin.X + r.Size.Width, Y: r.Origin.Y + r.Size.Height}
}

func (r Rect) String() string {
	return fmt.Sprintf("%s+%gx%g", r.Origin, r.Size.Width, r.Size.Height)
}

// Clamp limits v to [lo, hi]. If hi < lo, lo wins.
func Clamp(v, lo, hi float64) float64 {
	if v > hi {
		v = hi
	}
	if v < lo {
		v = lo
	}
	return v
}
