// Package store holds the central application state: session, course
// mirror, cart, and enrollment mirror. All writes go through actions on a
// Store; reads go through Snapshot, which hands out an immutable copy of
// the state that the pure getters derive from.
package store

import (
	"context"
	"sync"

	"github.com/avelazco/cursoteca/auth"
	"github.com/avelazco/cursoteca/backend"
	"github.com/avelazco/cursoteca/core/cart"
	"github.com/avelazco/cursoteca/core/course"
	"github.com/avelazco/cursoteca/core/enrollment"
	"github.com/avelazco/cursoteca/core/session"
	"github.com/sirupsen/logrus"
)

const (
	coursesCollection     = "cursos"
	enrollmentsCollection = "inscripciones"
)

// Named routes pushed to the Navigator by the auth actions.
const (
	RouteHome  = "home"
	RouteLogin = "login"
)

// Navigator receives named-route navigation requests as a side effect of
// the auth actions. The serving layer decides what "navigating" means.
type Navigator interface {
	Push(ctx context.Context, route string)
}

type NavigatorFunc func(ctx context.Context, route string)

func (f NavigatorFunc) Push(ctx context.Context, route string) { f(ctx, route) }

// Store is the single authoritative holder of one client's state. It is
// constructed explicitly, used concurrently (actions and subscription
// callbacks run on separate goroutines), and torn down with Close.
type Store struct {
	backend backend.Store
	auth    auth.Facade
	nav     Navigator
	log     logrus.FieldLogger

	courses backend.Collection
	enrolls backend.Collection

	mu    sync.Mutex
	state State

	// Subscription handles with their generation tokens. A bumped
	// generation invalidates notifications still in flight from a
	// cancelled subscription.
	courseCancel backend.CancelFunc
	courseGen    int
	enrollCancel backend.CancelFunc
	enrollGen    int
}

func New(b backend.Store, a auth.Facade, nav Navigator, log logrus.FieldLogger) *Store {
	if nav == nil {
		nav = NavigatorFunc(func(context.Context, string) {})
	}
	return &Store{
		backend: b,
		auth:    a,
		nav:     nav,
		log:     log,
		courses: b.Collection(coursesCollection),
		enrolls: b.Collection(enrollmentsCollection),
	}
}

// Snapshot returns a deep copy of the current state. Getters on the copy
// are pure: nothing the caller does with it affects the store.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// Close cancels every live subscription. The state itself needs no
// teardown; it dies with the Store.
func (s *Store) Close() {
	s.resetCourses()
	s.resetEnrollments()
}

// State is the in-memory snapshot of one client's world.
type State struct {
	Session *session.Session

	LoadingUser        bool
	LoadingCourses     bool
	LoadingEnrollments bool

	Courses     []course.Course
	Cart        []cart.Item
	Enrollments []enrollment.Enrollment
}

func (st State) clone() State {
	out := st
	if st.Session != nil {
		sess := *st.Session
		out.Session = &sess
	}
	out.Courses = append([]course.Course(nil), st.Courses...)
	out.Cart = append([]cart.Item(nil), st.Cart...)
	out.Enrollments = append([]enrollment.Enrollment(nil), st.Enrollments...)
	return out
}

// --- mutations ---
//
// Mutations are the only code paths that touch s.state. Each one is
// synchronous and atomic under s.mu; actions compose them.

func (s *Store) setSession(sess *session.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Session = sess
}

func (s *Store) setLoadingUser(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.LoadingUser = v
}

// resetCourses empties the course mirror and tears down the subscription:
// cancel, clear the handle, bump the generation so a racing notification
// from the old subscription is dropped.
func (s *Store) resetCourses() {
	s.mu.Lock()
	cancel := s.courseCancel
	s.courseCancel = nil
	s.courseGen++
	s.state.Courses = nil
	s.state.LoadingCourses = false
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

func (s *Store) resetEnrollments() {
	s.mu.Lock()
	cancel := s.enrollCancel
	s.enrollCancel = nil
	s.enrollGen++
	s.state.Enrollments = nil
	s.state.LoadingEnrollments = false
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}
