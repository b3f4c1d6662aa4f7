package api

import (
	"context"
	"net/http"

	"github.com/avelazco/cursoteca/api/middleware"
	"github.com/avelazco/cursoteca/api/web"
	"github.com/avelazco/cursoteca/api/weberr"
	"github.com/avelazco/cursoteca/core/enrollment"
)

func handleCheckout() web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var in struct {
			Method enrollment.PaymentMethod `json:"metodoPago"`
		}
		if err := web.Decode(w, r, &in); err != nil {
			return weberr.BadRequest(err)
		}

		s, err := middleware.ContextStore(ctx)
		if err != nil {
			return err
		}

		ids, err := s.Checkout(ctx, in.Method)
		if err != nil {
			return toWebErr(err)
		}

		return web.Respond(ctx, w, map[string]any{"inscripciones": ids}, http.StatusCreated)
	}
}

func handleEnrollments() web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		s, err := middleware.ContextStore(ctx)
		if err != nil {
			return err
		}

		st, err := enrollmentMirror(ctx, s)
		if err != nil {
			return toWebErr(err)
		}

		return web.Respond(ctx, w, st.Enrollments, http.StatusOK)
	}
}

func handleCourseEnrollments() web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		id := web.Param(r, "id")

		s, err := middleware.ContextStore(ctx)
		if err != nil {
			return err
		}

		enrolls, err := s.EnrollmentsForCourse(ctx, id)
		if err != nil {
			return toWebErr(err)
		}

		return web.Respond(ctx, w, enrolls, http.StatusOK)
	}
}
