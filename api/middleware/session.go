package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/alexedwards/scs/v2"
	"github.com/avelazco/cursoteca/api/web"
	"github.com/avelazco/cursoteca/api/weberr"
	"github.com/avelazco/cursoteca/random"
	"github.com/avelazco/cursoteca/store"
)

type storeKeyCtx int

const storeKey storeKeyCtx = 1

// Sessions bridges the scs load/commit cycle into the handler chain.
func Sessions(sm *scs.SessionManager) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {

			var err error
			wrapped := sm.LoadAndSave(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				err = handler(r.Context(), w, r)
			}))

			wrapped.ServeHTTP(w, r)
			return err
		}
		return h
	}
	return m
}

// BindStore resolves the state store belonging to the client session and
// hangs it on the context. A fresh session gets a random binding id, which
// scs persists alongside the rest of the session data.
func BindStore(sm *scs.SessionManager, stores *store.Manager) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {

			sid := sm.GetString(ctx, "sid")
			if sid == "" {
				sid = random.String(24)
				sm.Put(ctx, "sid", sid)
			}

			ctx = context.WithValue(ctx, storeKey, stores.Get(sid))
			return handler(ctx, w, r)
		}
		return h
	}
	return m
}

// ContextStore returns the store bound by BindStore.
func ContextStore(ctx context.Context) (*store.Store, error) {
	s, ok := ctx.Value(storeKey).(*store.Store)
	if !ok {
		return nil, errors.New("no store bound to context")
	}
	return s, nil
}

// Authenticate guards a route: it resolves the current session through the
// store's single-shot auth check and rejects when no user is present.
func Authenticate() web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {

			s, err := ContextStore(ctx)
			if err != nil {
				return weberr.NotAuthorized(err)
			}

			sess, err := s.ResolveSession(ctx)
			if err != nil {
				return weberr.NotAuthorized(err)
			}
			if sess == nil {
				return weberr.NotAuthorized(errors.New("user not authenticated"))
			}

			return handler(ctx, w, r)
		}
		return h
	}
	return m
}
