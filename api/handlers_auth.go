package api

import (
	"context"
	"net/http"

	"github.com/alexedwards/scs/v2"
	"github.com/avelazco/cursoteca/api/middleware"
	"github.com/avelazco/cursoteca/api/web"
	"github.com/avelazco/cursoteca/api/weberr"
	"github.com/avelazco/cursoteca/store"
	"github.com/avelazco/cursoteca/validate"
)

type credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type authResponse struct {
	Email string `json:"email"`
	UID   string `json:"uid"`
	Route string `json:"route"`
}

func handleSignup(sm *scs.SessionManager) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var creds credentials
		if err := web.Decode(w, r, &creds); err != nil {
			return weberr.BadRequest(err)
		}
		if err := validate.Check(creds); err != nil {
			return weberr.Unprocessable(err)
		}

		s, err := middleware.ContextStore(ctx)
		if err != nil {
			return err
		}

		if err := s.Register(ctx, creds.Email, creds.Password); err != nil {
			return toWebErr(err)
		}

		// renew on privilege change
		if err := sm.RenewToken(ctx); err != nil {
			return err
		}

		return respondSession(ctx, w, sm, s, http.StatusCreated)
	}
}

func handleLogin(sm *scs.SessionManager) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var creds credentials
		if err := web.Decode(w, r, &creds); err != nil {
			return weberr.BadRequest(err)
		}
		if err := validate.Check(creds); err != nil {
			return weberr.Unprocessable(err)
		}

		s, err := middleware.ContextStore(ctx)
		if err != nil {
			return err
		}

		if err := s.Login(ctx, creds.Email, creds.Password); err != nil {
			return toWebErr(err)
		}

		if err := sm.RenewToken(ctx); err != nil {
			return err
		}

		return respondSession(ctx, w, sm, s, http.StatusOK)
	}
}

func handleLogout(sm *scs.SessionManager, stores *store.Manager) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		s, err := middleware.ContextStore(ctx)
		if err != nil {
			return err
		}

		if err := s.Logout(ctx); err != nil {
			return toWebErr(err)
		}

		route := sm.GetString(ctx, "route")

		stores.Drop(sm.GetString(ctx, "sid"))
		if err := sm.Destroy(ctx); err != nil {
			return err
		}

		return web.Respond(ctx, w, map[string]string{"route": route}, http.StatusOK)
	}
}

// handleSession is the route-guard endpoint: a single-shot auth check that
// tells the client whether a user is present.
func handleSession() web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		s, err := middleware.ContextStore(ctx)
		if err != nil {
			return err
		}

		sess, err := s.ResolveSession(ctx)
		if err != nil {
			return toWebErr(err)
		}

		return web.Respond(ctx, w, map[string]any{"user": sess}, http.StatusOK)
	}
}

func respondSession(ctx context.Context, w http.ResponseWriter, sm *scs.SessionManager, s *store.Store, status int) error {
	st := s.Snapshot()
	resp := authResponse{
		Email: st.UserEmail(),
		Route: sm.GetString(ctx, "route"),
	}
	if st.Session != nil {
		resp.UID = st.Session.UID
	}
	return web.Respond(ctx, w, resp, status)
}
