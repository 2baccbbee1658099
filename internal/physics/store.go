package physics

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrInvalidBody     = errors.New("body mass and radius must be positive and finite")
	ErrIndexOutOfRange = errors.New("body index out of range")
)

// Store is the ordered body collection. Indices are identities: removing a
// body renumbers every parent reference in the same call.
type Store struct {
	bodies []*Body
}

// NewStore builds a store from the given bodies, validating each one.
func NewStore(bodies ...Body) (*Store, error) {
	s := &Store{bodies: make([]*Body, 0, len(bodies))}
	for _, b := range bodies {
		if _, err := s.insert(b); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Store) Len() int {
	return len(s.bodies)
}

// At returns the body at index i, or nil when i is out of range.
func (s *Store) At(i int) *Body {
	if i < 0 || i >= len(s.bodies) {
		return nil
	}
	return s.bodies[i]
}

// Bodies returns the live body slice. Callers must not retain it across a
// Remove.
func (s *Store) Bodies() []*Body {
	return s.bodies
}

// Add appends a new body with zero velocity and force, no parent and an
// empty trail. It returns the new index.
func (s *Store) Add(name string, position Vec2, mass, radius float64, color Color) (int, error) {
	return s.insert(NewBody(name, position, mass, radius, color))
}

func (s *Store) insert(b Body) (int, error) {
	if !b.valid() {
		return -1, fmt.Errorf("%w: %q mass=%g radius=%g", ErrInvalidBody, b.Name, b.Mass, b.Radius)
	}
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	b.Force = Vec2{}
	b.ParentIndex = NoParent
	b.Trail = nil
	s.bodies = append(s.bodies, &b)
	return len(s.bodies) - 1, nil
}

// SetVelocity overwrites the velocity of body i.
func (s *Store) SetVelocity(i int, v Vec2) error {
	b := s.At(i)
	if b == nil {
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, i)
	}
	if !v.IsFinite() {
		return fmt.Errorf("%w: velocity must be finite", ErrInvalidBody)
	}
	b.Velocity = v
	return nil
}

// Grow enlarges body i by one growth step, adding mass proportional to the
// new radius.
func (s *Store) Grow(i int) error {
	b := s.At(i)
	if b == nil {
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, i)
	}
	b.Radius += GrowRadiusStep
	b.Mass += b.Radius * GrowMassPerRadius
	return nil
}

// Remove deletes body i. Parent references above i shift down by one;
// references to i reset to NoParent and clear that body's trail.
func (s *Store) Remove(i int) error {
	if i < 0 || i >= len(s.bodies) {
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, i)
	}
	copy(s.bodies[i:], s.bodies[i+1:])
	s.bodies[len(s.bodies)-1] = nil
	s.bodies = s.bodies[:len(s.bodies)-1]

	for _, b := range s.bodies {
		switch {
		case b.ParentIndex == i:
			b.ParentIndex = NoParent
			b.ClearTrail()
		case b.ParentIndex > i:
			b.ParentIndex--
		}
	}
	return nil
}

// IndexOf returns the index of the body with the given ID, or -1.
func (s *Store) IndexOf(id string) int {
	for i, b := range s.bodies {
		if b.ID == id {
			return i
		}
	}
	return -1
}
