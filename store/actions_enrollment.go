package store

import (
	"context"
	"fmt"
	"time"

	"github.com/avelazco/cursoteca/backend"
	"github.com/avelazco/cursoteca/core/cart"
	"github.com/avelazco/cursoteca/core/enrollment"
)

// WatchEnrollments mirrors the enrollment collection the same way
// WatchCourses mirrors the catalog. Idempotent while a subscription is
// active.
func (s *Store) WatchEnrollments(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.enrollCancel != nil {
		return nil
	}

	s.enrollGen++
	gen := s.enrollGen
	s.state.LoadingEnrollments = true

	cancel, err := s.enrolls.Subscribe(
		func(docs []backend.Document) { s.applyEnrollments(gen, docs) },
		func(err error) {
			s.log.Errorf("enrollments subscription: %v", err)
			s.mu.Lock()
			if gen == s.enrollGen {
				s.state.LoadingEnrollments = false
			}
			s.mu.Unlock()
		},
	)
	if err != nil {
		s.state.LoadingEnrollments = false
		s.log.Errorf("watching enrollments: %v", err)
		return fmt.Errorf("watching enrollments: %w", err)
	}

	s.enrollCancel = cancel
	return nil
}

func (s *Store) applyEnrollments(gen int, docs []backend.Document) {
	enrolls := make([]enrollment.Enrollment, 0, len(docs))
	for _, d := range docs {
		var e enrollment.Enrollment
		if err := d.Decode(&e); err != nil {
			s.log.Errorf("decoding enrollment: %v", err)
			continue
		}
		enrolls = append(enrolls, e)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.enrollGen {
		return
	}
	s.state.Enrollments = enrolls
	s.state.LoadingEnrollments = false
}

// Checkout converts the cart into one enrollment document per line item,
// each written with status "confirmada". The writes are sequential and not
// atomic: a mid-sequence failure aborts, leaving the earlier documents
// committed and the cart untouched. On full success the cart is emptied
// WITHOUT restoring seats: capacity was consumed at add-to-cart time and
// stays consumed after the purchase.
func (s *Store) Checkout(ctx context.Context, method enrollment.PaymentMethod) ([]string, error) {
	s.mu.Lock()
	sess := s.state.Session
	items := append([]cart.Item(nil), s.state.Cart...)
	s.mu.Unlock()

	if sess == nil {
		return nil, ErrNoSession
	}
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}
	if !enrollment.ValidMethod(method) {
		return nil, ErrInvalidPayment
	}

	now := time.Now().UTC()
	ids := make([]string, 0, len(items))
	for _, it := range items {
		e := enrollment.Enrollment{
			UserID:        sess.UID,
			UserEmail:     sess.Email,
			CourseID:      it.CourseID,
			CourseName:    it.CourseName,
			CoursePrice:   it.CoursePrice,
			EnrolledAt:    now,
			Status:        enrollment.Confirmed,
			PaymentMethod: method,
			Total:         it.CoursePrice,
		}

		fields, err := backend.Encode(e)
		if err != nil {
			return ids, fmt.Errorf("encoding enrollment for course[%s]: %w", it.CourseID, err)
		}

		id, err := s.enrolls.Add(ctx, fields)
		if err != nil {
			s.log.Errorf("creating enrollment for course[%s] (%d already committed): %v", it.CourseID, len(ids), err)
			return ids, fmt.Errorf("creating enrollment for course[%s]: %w", it.CourseID, err)
		}
		ids = append(ids, id)
	}

	s.mu.Lock()
	s.state.Cart = nil
	s.mu.Unlock()
	return ids, nil
}

// EnrollmentsForCourse queries the backend directly, so the admin view can
// list a course's enrollments without a live mirror.
func (s *Store) EnrollmentsForCourse(ctx context.Context, courseID string) ([]enrollment.Enrollment, error) {
	docs, err := s.enrolls.Query(ctx, "cursoId", courseID)
	if err != nil {
		s.log.Errorf("querying enrollments of course[%s]: %v", courseID, err)
		return nil, fmt.Errorf("querying enrollments of course[%s]: %w", courseID, err)
	}

	enrolls := make([]enrollment.Enrollment, 0, len(docs))
	for _, d := range docs {
		var e enrollment.Enrollment
		if err := d.Decode(&e); err != nil {
			return nil, fmt.Errorf("decoding enrollment: %w", err)
		}
		enrolls = append(enrolls, e)
	}
	return enrolls, nil
}
