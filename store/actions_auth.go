package store

import (
	"context"
	"fmt"

	"github.com/avelazco/cursoteca/core/session"
)

// Register creates an account and signs the user in. The loading flag is
// cleared on every exit path; on success the navigator is pushed to home.
func (s *Store) Register(ctx context.Context, email, password string) error {
	s.setLoadingUser(true)
	defer s.setLoadingUser(false)

	sess, err := s.auth.Register(ctx, email, password)
	if err != nil {
		s.log.Errorf("registering user: %v", err)
		return fmt.Errorf("registering user: %w", err)
	}

	s.setSession(&sess)
	s.nav.Push(ctx, RouteHome)
	return nil
}

func (s *Store) Login(ctx context.Context, email, password string) error {
	s.setLoadingUser(true)
	defer s.setLoadingUser(false)

	sess, err := s.auth.Login(ctx, email, password)
	if err != nil {
		s.log.Errorf("signing in: %v", err)
		return fmt.Errorf("signing in: %w", err)
	}

	s.setSession(&sess)
	s.nav.Push(ctx, RouteHome)
	return nil
}

// Logout signs out, clears the session, and tears down the course mirror
// along with its subscription. The catalog stays empty until the next
// WatchCourses call.
func (s *Store) Logout(ctx context.Context) error {
	if err := s.auth.Logout(ctx); err != nil {
		s.log.Errorf("signing out: %v", err)
		return fmt.Errorf("signing out: %w", err)
	}

	s.setSession(nil)
	s.resetCourses()
	s.nav.Push(ctx, RouteLogin)
	return nil
}

// ResolveSession performs a single-shot query against the auth facade's
// change feed: subscribe, take the first value, cancel. Route guards call
// it to learn whether a user is present before rendering a gated route.
func (s *Store) ResolveSession(ctx context.Context) (*session.Session, error) {
	ch := make(chan *session.Session, 1)
	cancel := s.auth.OnChange(func(sess *session.Session) {
		select {
		case ch <- sess:
		default:
		}
	})
	defer cancel()

	select {
	case sess := <-ch:
		if sess != nil {
			s.setSession(sess)
		} else {
			s.setSession(nil)
			s.resetCourses()
		}
		return sess, nil

	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
