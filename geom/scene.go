package geom

import "sync"

// Scene is an ordered list of shapes. Later shapes draw over earlier ones.
//
// A Scene is safe for concurrent use, but rendering into a canvas is only as
// safe as the canvas itself.
type Scene struct {
	mu     sync.RWMutex
	shapes []Shape
}

// NewScene returns an empty scene.
func NewScene() *Scene { return &Scene{} }

// Add appends shapes and returns the index of the first one added.
func (s *Scene) Add(shapes ...Shape) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	first := len(s.shapes)
	for _, sh := range shapes {
		if sh != nil {
			s.shapes = append(s.shapes, sh)
		}
	}
	return first
}

// Len returns the number of shapes.
func (s *Scene) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.shapes)
}

// Shapes returns a copy of the shape list.
func (s *Scene) Shapes() []Shape {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Shape, len(s.shapes))
	copy(out, s.shapes)
	return out
}

// Render draws every shape onto c.
func (s *Scene) Render(c Canvas) { s.RenderFrom(c, 0) }

// RenderFrom draws shapes[from:] onto c. It is the incremental path: a canvas
// that already holds shapes[:from] only needs the tail.
func (s *Scene) RenderFrom(c Canvas, from int) int {
	if from < 0 {
		from = 0
	}
	s.mu.RLock()
	var tail []Shape
	if from < len(s.shapes) {
		tail = append(tail, s.shapes[from:]...)
	}
	s.mu.RUnlock()

	for _, sh := range tail {
		sh.Render(c)
	}
	return len(tail)
}

// Bounds returns the union of all shape bounds.
func (s *Scene) Bounds() Rect {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var r Rect
	for _, sh := range s.shapes {
		r = r.Union(sh.Bounds())
	}
	return r
}

// Reset removes every shape.
func (s *Scene) Reset() {
	s.mu.Lock()
	s.shapes = nil
	s.mu.Unlock()
}
