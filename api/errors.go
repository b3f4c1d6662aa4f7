package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/avelazco/cursoteca/api/weberr"
	"github.com/avelazco/cursoteca/auth"
	"github.com/avelazco/cursoteca/backend"
	"github.com/avelazco/cursoteca/store"
)

// toWebErr translates store and facade failures into HTTP responses; an
// unrecognized error falls through as a plain 500.
func toWebErr(err error) error {
	var ve *store.ValidationError
	switch {
	case errors.As(err, &ve):
		return weberr.NewError(err, ve.Msg, http.StatusUnprocessableEntity)

	case errors.Is(err, auth.ErrInvalidCredentials):
		return weberr.NotAuthorized(err)

	case errors.Is(err, auth.ErrEmailTaken):
		return weberr.Conflict(err)

	case errors.Is(err, backend.ErrNotFound):
		return weberr.NotFound(err)
	}
	return err
}

// courseMirror opens the course watch and waits for the first snapshot to
// land, then returns the settled state. Later requests find the mirror
// already live and return immediately.
func courseMirror(ctx context.Context, s *store.Store) (store.State, error) {
	if err := s.WatchCourses(ctx); err != nil {
		return store.State{}, err
	}
	return waitSettled(ctx, s, func(st store.State) bool { return !st.LoadingCourses })
}

func enrollmentMirror(ctx context.Context, s *store.Store) (store.State, error) {
	if err := s.WatchEnrollments(ctx); err != nil {
		return store.State{}, err
	}
	return waitSettled(ctx, s, func(st store.State) bool { return !st.LoadingEnrollments })
}

func waitSettled(ctx context.Context, s *store.Store, settled func(store.State) bool) (store.State, error) {
	for {
		st := s.Snapshot()
		if settled(st) {
			return st, nil
		}

		select {
		case <-ctx.Done():
			return st, ctx.Err()
		case <-time.After(5 * time.Millisecond):
		}
	}
}
