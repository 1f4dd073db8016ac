package propsym

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptySequence is returned when a sequence would have no steps.
	ErrEmptySequence = errors.New("sequence has no steps")
	// ErrIndexOutOfRange is returned by Slide for an index outside [0, steps).
	ErrIndexOutOfRange = errors.New("sequence index out of range")
)

// Sequence is a bounded index that wraps at both ends.
// It is not safe for concurrent use.
type Sequence struct {
	index int
	steps int
}

// NewSequence returns a sequence over [0, steps) positioned at 0.
func NewSequence(steps int) (*Sequence, error) {
	if steps < 1 {
		return nil, ErrEmptySequence
	}
	return &Sequence{steps: steps}, nil
}

// Index returns the current position.
func (s *Sequence) Index() int { return s.index }

// Steps returns the number of positions.
func (s *Sequence) Steps() int { return s.steps }

// Forward advances one step, wrapping past the last index to 0.
func (s *Sequence) Forward() int {
	s.index++
	if s.index > s.steps-1 {
		s.index = 0
	}
	return s.index
}

// Reverse steps back, wrapping below 0 to the last index.
func (s *Sequence) Reverse() int {
	s.index--
	if s.index < 0 {
		s.index = s.steps - 1
	}
	return s.index
}

// Slide jumps straight to i.
func (s *Sequence) Slide(i int) (int, error) {
	if i < 0 || i > s.steps-1 {
		return s.index, fmt.Errorf("%w: %d not in [0, %d]", ErrIndexOutOfRange, i, s.steps-1)
	}
	s.index = i
	return s.index, nil
}
