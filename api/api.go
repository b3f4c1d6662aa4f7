package api

import (
	"context"
	"net/http"

	"github.com/alexedwards/scs/v2"
	"github.com/avelazco/cursoteca/api/middleware"
	"github.com/avelazco/cursoteca/api/web"
	"github.com/avelazco/cursoteca/rate"
	"github.com/avelazco/cursoteca/store"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

type APIConfig struct {
	CorsOrigin string
	Log        logrus.FieldLogger
	Session    *scs.SessionManager
	Stores     *store.Manager
	Limiter    *rate.Limiter
}

type api struct {
	*mux.Router
	mw  []web.Middleware
	log logrus.FieldLogger
}

func APIMux(cfg APIConfig) http.Handler {
	a := &api{
		Router: mux.NewRouter(),
		log:    cfg.Log,
	}

	a.mw = append(a.mw, middleware.Sessions(cfg.Session))
	a.mw = append(a.mw, middleware.BindStore(cfg.Session, cfg.Stores))
	a.mw = append(a.mw, middleware.RequestID())
	a.mw = append(a.mw, middleware.Logger(cfg.Log))
	a.mw = append(a.mw, middleware.Errors(cfg.Log))
	a.mw = append(a.mw, middleware.Panics())

	if cfg.Limiter != nil {
		a.mw = append(a.mw, middleware.RateLimit(cfg.Limiter))
	}

	if cfg.CorsOrigin != "" {
		a.mw = append(a.mw, middleware.Cors(cfg.CorsOrigin))

		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			w.WriteHeader(http.StatusNoContent)
			return nil
		}

		a.Handle(http.MethodOptions, "/{path:.*}", h)
	}

	authen := middleware.Authenticate()

	a.Handle(http.MethodPost, "/auth/signup", handleSignup(cfg.Session))
	a.Handle(http.MethodPost, "/auth/login", handleLogin(cfg.Session))
	a.Handle(http.MethodPost, "/auth/logout", handleLogout(cfg.Session, cfg.Stores), authen)
	a.Handle(http.MethodGet, "/auth/session", handleSession())

	a.Handle(http.MethodGet, "/courses/active", handleActiveCourses())
	a.Handle(http.MethodGet, "/courses/{id}/enrollments", handleCourseEnrollments(), authen)
	a.Handle(http.MethodGet, "/courses/{id}", handleCourse())
	a.Handle(http.MethodGet, "/courses", handleCourses())
	a.Handle(http.MethodPost, "/courses", handleCreateCourse(), authen)
	a.Handle(http.MethodPut, "/courses/{id}", handleUpdateCourse(), authen)
	a.Handle(http.MethodDelete, "/courses/{id}", handleDeleteCourse(), authen)

	a.Handle(http.MethodGet, "/cart", handleShowCart(), authen)
	a.Handle(http.MethodPut, "/cart/items", handleAddCartItem(), authen)
	a.Handle(http.MethodDelete, "/cart/items/{course_id}", handleRemoveCartItem(), authen)
	a.Handle(http.MethodDelete, "/cart", handleClearCart(), authen)

	a.Handle(http.MethodPost, "/checkout", handleCheckout(), authen)
	a.Handle(http.MethodGet, "/enrollments", handleEnrollments(), authen)

	return a.Router
}

func (a *api) Handle(method string, path string, handler web.Handler, mw ...web.Middleware) {

	handler = web.WrapMiddleware(mw, handler)

	handler = web.WrapMiddleware(a.mw, handler)

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		ctx := r.Context()

		if err := handler(ctx, w, r); err != nil {

			a.log.WithFields(logrus.Fields{
				"req_id":  middleware.ContextRequestID(ctx),
				"message": err,
			}).Error("ERROR")
		}
	})

	a.Router.Handle(path, h).Methods(method)
}
