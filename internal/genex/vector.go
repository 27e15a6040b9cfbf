package genex

import "math"

// Vector2 is a 2D vector in model space.
type Vector2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func NewVector2(x, y float64) Vector2 {
	return Vector2{X: x, Y: y}
}

func (v Vector2) Add(other Vector2) Vector2 {
	return Vector2{X: v.X + other.X, Y: v.Y + other.Y}
}

func (v Vector2) Sub(other Vector2) Vector2 {
	return Vector2{X: v.X - other.X, Y: v.Y - other.Y}
}

func (v Vector2) Scale(factor float64) Vector2 {
	return Vector2{X: v.X * factor, Y: v.Y * factor}
}

func (v Vector2) Magnitude() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y)
}

func (v Vector2) Distance(other Vector2) float64 {
	return v.Sub(other).Magnitude()
}

// Normalized returns a unit vector in the same direction, or the zero
// vector when the magnitude is zero.
func (v Vector2) Normalized() Vector2 {
	mag := v.Magnitude()
	if mag == 0 {
		return Vector2{}
	}
	return Vector2{X: v.X / mag, Y: v.Y / mag}
}

// Rect is an axis-aligned rectangle in model space.
type Rect struct {
	MinX float64 `json:"min_x"`
	MinY float64 `json:"min_y"`
	MaxX float64 `json:"max_x"`
	MaxY float64 `json:"max_y"`
}

func NewRect(minX, minY, width, height float64) Rect {
	return Rect{MinX: minX, MinY: minY, MaxX: minX + width, MaxY: minY + height}
}

func (r Rect) Width() float64  { return r.MaxX - r.MinX }
func (r Rect) Height() float64 { return r.MaxY - r.MinY }

func (r Rect) Center() Vector2 {
	return Vector2{X: (r.MinX + r.MaxX) / 2, Y: (r.MinY + r.MaxY) / 2}
}

func (r Rect) LowerLeft() Vector2  { return Vector2{X: r.MinX, Y: r.MinY} }
func (r Rect) LowerRight() Vector2 { return Vector2{X: r.MaxX, Y: r.MinY} }
func (r Rect) UpperLeft() Vector2  { return Vector2{X: r.MinX, Y: r.MaxY} }

func (r Rect) Contains(p Vector2) bool {
	return p.X >= r.MinX && p.X <= r.MaxX && p.Y >= r.MinY && p.Y <= r.MaxY
}

func (r Rect) Translated(v Vector2) Rect {
	return Rect{MinX: r.MinX + v.X, MinY: r.MinY + v.Y, MaxX: r.MaxX + v.X, MaxY: r.MaxY + v.Y}
}

// Clamp returns the closest point to p that lies within the rectangle.
func (r Rect) Clamp(p Vector2) Vector2 {
	return Vector2{
		X: math.Min(math.Max(p.X, r.MinX), r.MaxX),
		Y: math.Min(math.Max(p.Y, r.MinY), r.MaxY),
	}
}
