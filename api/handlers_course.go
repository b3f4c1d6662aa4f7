package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/avelazco/cursoteca/api/middleware"
	"github.com/avelazco/cursoteca/api/web"
	"github.com/avelazco/cursoteca/api/weberr"
	"github.com/avelazco/cursoteca/core/course"
	"github.com/avelazco/cursoteca/validate"
)

func handleCourses() web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		s, err := middleware.ContextStore(ctx)
		if err != nil {
			return err
		}

		st, err := courseMirror(ctx, s)
		if err != nil {
			return toWebErr(err)
		}

		return web.Respond(ctx, w, st.Courses, http.StatusOK)
	}
}

func handleActiveCourses() web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		s, err := middleware.ContextStore(ctx)
		if err != nil {
			return err
		}

		st, err := courseMirror(ctx, s)
		if err != nil {
			return toWebErr(err)
		}

		return web.Respond(ctx, w, st.ActiveCourses(), http.StatusOK)
	}
}

func handleCourse() web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		id := web.Param(r, "id")
		if err := validate.CheckID(id); err != nil {
			return weberr.Unprocessable(err)
		}

		s, err := middleware.ContextStore(ctx)
		if err != nil {
			return err
		}

		st, err := courseMirror(ctx, s)
		if err != nil {
			return toWebErr(err)
		}

		c, ok := st.CourseByID(id)
		if !ok {
			return weberr.NotFound(errors.New("course is not in the catalog"))
		}
		return web.Respond(ctx, w, c, http.StatusOK)
	}
}

func handleCreateCourse() web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var cn course.CourseNew
		if err := web.Decode(w, r, &cn); err != nil {
			return weberr.BadRequest(err)
		}
		if err := validate.Check(cn); err != nil {
			return weberr.Unprocessable(err)
		}

		s, err := middleware.ContextStore(ctx)
		if err != nil {
			return err
		}

		id, err := s.AddCourse(ctx, cn)
		if err != nil {
			return toWebErr(err)
		}

		return web.Respond(ctx, w, map[string]string{"id": id}, http.StatusCreated)
	}
}

func handleUpdateCourse() web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		id := web.Param(r, "id")
		if err := validate.CheckID(id); err != nil {
			return weberr.Unprocessable(err)
		}

		var up course.CourseUp
		if err := web.Decode(w, r, &up); err != nil {
			return weberr.BadRequest(err)
		}
		if err := validate.Check(up); err != nil {
			return weberr.Unprocessable(err)
		}

		s, err := middleware.ContextStore(ctx)
		if err != nil {
			return err
		}

		if err := s.UpdateCourse(ctx, id, up); err != nil {
			return toWebErr(err)
		}
		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}

func handleDeleteCourse() web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		id := web.Param(r, "id")
		if err := validate.CheckID(id); err != nil {
			return weberr.Unprocessable(err)
		}

		s, err := middleware.ContextStore(ctx)
		if err != nil {
			return err
		}

		if err := s.DeleteCourse(ctx, id); err != nil {
			return toWebErr(err)
		}
		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}
