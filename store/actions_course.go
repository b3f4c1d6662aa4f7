package store

import (
	"context"
	"fmt"
	"time"

	"github.com/avelazco/cursoteca/backend"
	"github.com/avelazco/cursoteca/core/course"
)

// WatchCourses opens the live subscription on the course collection and
// keeps the local mirror equal to every pushed snapshot. It is idempotent:
// while a subscription is active, further calls are no-ops.
func (s *Store) WatchCourses(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.courseCancel != nil {
		return nil
	}

	s.courseGen++
	gen := s.courseGen
	s.state.LoadingCourses = true

	cancel, err := s.courses.Subscribe(
		func(docs []backend.Document) { s.applyCourses(gen, docs) },
		func(err error) {
			s.log.Errorf("courses subscription: %v", err)
			s.mu.Lock()
			if gen == s.courseGen {
				s.state.LoadingCourses = false
			}
			s.mu.Unlock()
		},
	)
	if err != nil {
		s.state.LoadingCourses = false
		s.log.Errorf("watching courses: %v", err)
		return fmt.Errorf("watching courses: %w", err)
	}

	s.courseCancel = cancel
	return nil
}

// applyCourses replaces the mirror wholesale with the pushed snapshot. A
// notification from a superseded subscription (stale generation) is
// dropped; on a decode failure the offending document is skipped.
func (s *Store) applyCourses(gen int, docs []backend.Document) {
	courses := make([]course.Course, 0, len(docs))
	for _, d := range docs {
		var c course.Course
		if err := d.Decode(&c); err != nil {
			s.log.Errorf("decoding course: %v", err)
			continue
		}
		courses = append(courses, c)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.courseGen {
		return
	}
	s.state.Courses = courses
	s.state.LoadingCourses = false
}

// AddCourse writes a new course document and returns the backend-assigned
// id. The mirror is not touched directly: the live subscription echoes the
// insert, and WatchCourses is re-invoked as a safety net in case nothing is
// watching yet.
func (s *Store) AddCourse(ctx context.Context, cn course.CourseNew) (string, error) {
	fields, err := backend.Encode(cn)
	if err != nil {
		return "", fmt.Errorf("encoding course: %w", err)
	}
	fields["inscritos"] = 0
	fields["fechaCreacion"] = time.Now().UTC()

	id, err := s.courses.Add(ctx, fields)
	if err != nil {
		s.log.Errorf("adding course: %v", err)
		return "", fmt.Errorf("adding course: %w", err)
	}

	if err := s.WatchCourses(ctx); err != nil {
		return "", err
	}
	return id, nil
}

// UpdateCourse applies a partial field replace to an existing document.
// The change reaches the mirror through the subscription only.
func (s *Store) UpdateCourse(ctx context.Context, id string, up course.CourseUp) error {
	partial, err := backend.EncodePartial(up)
	if err != nil {
		return fmt.Errorf("encoding course update: %w", err)
	}
	if len(partial) == 0 {
		return nil
	}

	if err := s.courses.Update(ctx, id, partial); err != nil {
		s.log.Errorf("updating course[%s]: %v", id, err)
		return fmt.Errorf("updating course[%s]: %w", id, err)
	}
	return nil
}

func (s *Store) DeleteCourse(ctx context.Context, id string) error {
	if err := s.courses.Delete(ctx, id); err != nil {
		s.log.Errorf("deleting course[%s]: %v", id, err)
		return fmt.Errorf("deleting course[%s]: %w", id, err)
	}
	return nil
}
