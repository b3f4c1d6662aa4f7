package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/avelazco/cursoteca/core/cart"
)

// AddToCart projects a line item from the mirrored course and reserves a
// seat by incrementing the course's inscritos count. Adding a course that
// is already in the cart is a no-op. The reservation is a plain
// read-then-write against the course document and can lose updates under
// concurrent reservations of the same course.
func (s *Store) AddToCart(ctx context.Context, courseID string) error {
	s.mu.Lock()
	for _, it := range s.state.Cart {
		if it.CourseID == courseID {
			s.mu.Unlock()
			return nil
		}
	}

	var item cart.Item
	found := false
	for _, c := range s.state.Courses {
		if c.ID == courseID {
			item = cart.Project(c)
			found = true
			break
		}
	}
	if !found {
		s.mu.Unlock()
		return ErrUnknownCourse
	}

	s.state.Cart = append(s.state.Cart, item)
	s.mu.Unlock()

	if err := s.adjustSeats(ctx, courseID, +1); err != nil {
		s.log.Errorf("reserving seat on course[%s]: %v", courseID, err)
		return fmt.Errorf("reserving seat on course[%s]: %w", courseID, err)
	}
	return nil
}

// RemoveFromCart drops the line item and gives the seat back. Removing a
// course that is not in the cart does nothing.
func (s *Store) RemoveFromCart(ctx context.Context, courseID string) error {
	s.mu.Lock()
	idx := -1
	for i, it := range s.state.Cart {
		if it.CourseID == courseID {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return nil
	}
	s.state.Cart = append(s.state.Cart[:idx], s.state.Cart[idx+1:]...)
	s.mu.Unlock()

	if err := s.adjustSeats(ctx, courseID, -1); err != nil {
		s.log.Errorf("restoring seat on course[%s]: %v", courseID, err)
		return fmt.Errorf("restoring seat on course[%s]: %w", courseID, err)
	}
	return nil
}

// ClearCart abandons the cart: every reservation is given back, then the
// cart is emptied. Used by cancel flows; the checkout empties the cart
// itself, without restoring seats.
func (s *Store) ClearCart(ctx context.Context) error {
	s.mu.Lock()
	items := append([]cart.Item(nil), s.state.Cart...)
	s.mu.Unlock()

	var first error
	for _, it := range items {
		if err := s.adjustSeats(ctx, it.CourseID, -1); err != nil {
			s.log.Errorf("restoring seat on course[%s]: %v", it.CourseID, err)
			if first == nil {
				first = fmt.Errorf("restoring seat on course[%s]: %w", it.CourseID, err)
			}
		}
	}

	s.mu.Lock()
	s.state.Cart = nil
	s.mu.Unlock()
	return first
}

// adjustSeats applies a read-then-write delta to a course's inscritos
// field, clamped from below at zero on the way down.
func (s *Store) adjustSeats(ctx context.Context, courseID string, delta int) error {
	fields, err := s.courses.Get(ctx, courseID)
	if err != nil {
		return fmt.Errorf("fetching course document: %w", err)
	}

	n := asInt(fields["inscritos"]) + delta
	if n < 0 {
		n = 0
	}

	if err := s.courses.Update(ctx, courseID, map[string]any{"inscritos": n}); err != nil {
		return fmt.Errorf("writing seat count: %w", err)
	}
	return nil
}

// asInt normalizes the numeric types a decoded document may carry.
func asInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	case json.Number:
		i, _ := n.Int64()
		return int(i)
	default:
		return 0
	}
}
