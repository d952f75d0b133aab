package geom

import (
	"image/color"
	"math"
)

// Canvas is the drawing capability shapes render onto.
type Canvas interface {
	SetPixel(x, y int, c color.RGBA)
	StrokeLine(x0, y0, x1, y1, width float64, c color.RGBA)
}

// Shape is one of Dot, Segment or Polygon.
type Shape interface {
	Render(c Canvas)
	Bounds() Rect
	shape()
}

var (
	_ Shape = Dot{}
	_ Shape = Segment{}
	_ Shape = Polygon{}
)

// Dot is a single pixel.
type Dot struct {
	At    Point
	Color color.RGBA
}

func (Dot) shape() {}

func (d Dot) Render(c Canvas) {
	c.SetPixel(int(math.Floor(d.At.X)), int(math.Floor(d.At.Y)), d.Color)
}

func (d Dot) Bounds() Rect {
	x, y := math.Floor(d.At.X), math.Floor(d.At.Y)
	return Rect{Min: Point{X: x, Y: y}, Max: Point{X: x + 1, Y: y + 1}}
}

// Segment is a straight stroke from P0 to P1.
type Segment struct {
	P0, P1 Point
	Color  color.RGBA
	Width  float64
}

func (Segment) shape() {}

// Length returns |P1 - P0|.
func (s Segment) Length() float64 { return s.P0.Distance(s.P1) }

// Angle returns the direction of P0->P1 in radians, in (-pi, pi].
func (s Segment) Angle() float64 {
	return math.Atan2(s.P1.Y-s.P0.Y, s.P1.X-s.P0.X)
}

func (s Segment) Render(c Canvas) {
	c.StrokeLine(s.P0.X, s.P0.Y, s.P1.X, s.P1.Y, strokeWidth(s.Width), s.Color)
}

func (s Segment) Bounds() Rect {
	return boundsOf(strokeWidth(s.Width)/2, s.P0, s.P1)
}

// Rotate returns s rotated by angle radians around pivot.
func (s Segment) Rotate(pivot Point, angle float64) Segment {
	s.P0 = s.P0.Rotate(pivot, angle)
	s.P1 = s.P1.Rotate(pivot, angle)
	return s
}

// Polygon is a closed outline through Points.
type Polygon struct {
	Points []Point
	Color  color.RGBA
	Width  float64
}

func (Polygon) shape() {}

// Edges returns the closing sequence of segments, one per vertex. Polygons
// with fewer than two points have no edges.
func (p Polygon) Edges() []Segment {
	n := len(p.Points)
	if n < 2 {
		return nil
	}
	edges := make([]Segment, 0, n)
	for i := 0; i < n; i++ {
		edges = append(edges, Segment{
			P0:    p.Points[i],
			P1:    p.Points[(i+1)%n],
			Color: p.Color,
			Width: p.Width,
		})
	}
	if n == 2 {
		edges = edges[:1]
	}
	return edges
}

func (p Polygon) Render(c Canvas) {
	if len(p.Points) == 1 {
		Dot{At: p.Points[0], Color: p.Color}.Render(c)
		return
	}
	for _, e := range p.Edges() {
		e.Render(c)
	}
}

func (p Polygon) Bounds() Rect {
	return boundsOf(strokeWidth(p.Width)/2, p.Points...)
}

// Rotate returns a copy of p rotated by angle radians around pivot.
func (p Polygon) Rotate(pivot Point, angle float64) Polygon {
	pts := make([]Point, len(p.Points))
	for i, pt := range p.Points {
		pts[i] = pt.Rotate(pivot, angle)
	}
	p.Points = pts
	return p
}

// Centroid returns the mean of the vertices.
func (p Polygon) Centroid() Point {
	if len(p.Points) == 0 {
		return Point{}
	}
	var c Point
	for _, pt := range p.Points {
		c = c.Add(pt)
	}
	n := float64(len(p.Points))
	return Point{X: c.X / n, Y: c.Y / n}
}

// Square returns the axis-aligned square with top-left corner origin.
// Use Polygon.Rotate for a turned square.
func Square(origin Point, side float64, c color.RGBA, width float64) Polygon {
	return Polygon{
		Points: []Point{
			origin,
			{X: origin.X + side, Y: origin.Y},
			{X: origin.X + side, Y: origin.Y + side},
			{X: origin.X, Y: origin.Y + side},
		},
		Color: c,
		Width: width,
	}
}

func strokeWidth(w float64) float64 {
	if w <= 0 {
		return 1
	}
	return w
}
