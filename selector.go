package poserender

import "sync/atomic"

// Selector is the shared "which layer to render" control.  It is written by
// a control or UI goroutine and read once per frame by the renderer, a
// change takes effect on the next frame rendered.
type Selector struct {
	element atomic.Int64
	// count is the number of selectable elements, zero for unbounded
	count int
}

// NewSelector returns a Selector set to the initial element that wraps
// around after count elements.  A count of zero disables wrapping.
func NewSelector(initial, count int) *Selector {
	s := &Selector{count: count}
	s.Set(initial)
	return s
}

// Count returns the number of selectable elements
func (s *Selector) Count() int {
	return s.count
}

// Load returns the currently selected element
func (s *Selector) Load() int {
	return int(s.element.Load())
}

// Set selects the given element.  When the selector has a count the value
// wraps into [0, count).  Negative values select element 0 on an unbounded
// selector.
func (s *Selector) Set(element int) {
	s.element.Store(int64(s.wrap(element)))
}

// Increase selects the next element
func (s *Selector) Increase() int {
	return s.add(1)
}

// Decrease selects the previous element
func (s *Selector) Decrease() int {
	return s.add(-1)
}

// add moves the selection by delta, wrapping around
func (s *Selector) add(delta int) int {
	for {
		old := s.element.Load()
		next := int64(s.wrap(int(old) + delta))

		if s.element.CompareAndSwap(old, next) {
			return int(next)
		}
	}
}

// wrap brings the element into range
func (s *Selector) wrap(element int) int {

	if s.count <= 0 {
		if element < 0 {
			return 0
		}
		return element
	}

	return ((element % s.count) + s.count) % s.count
}
