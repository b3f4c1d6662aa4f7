package api

import (
	"context"
	"net/http"

	"github.com/avelazco/cursoteca/api/middleware"
	"github.com/avelazco/cursoteca/api/web"
	"github.com/avelazco/cursoteca/api/weberr"
	"github.com/avelazco/cursoteca/core/cart"
	"github.com/avelazco/cursoteca/validate"
)

type cartResponse struct {
	Items []cart.Item `json:"items"`
	Count int         `json:"count"`
	Total int         `json:"total"`
}

func handleShowCart() web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		s, err := middleware.ContextStore(ctx)
		if err != nil {
			return err
		}

		st := s.Snapshot()
		resp := cartResponse{
			Items: st.Cart,
			Count: st.CartCount(),
			Total: st.CartTotal(),
		}
		if resp.Items == nil {
			resp.Items = []cart.Item{}
		}
		return web.Respond(ctx, w, resp, http.StatusOK)
	}
}

func handleAddCartItem() web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var in struct {
			CourseID string `json:"cursoId" validate:"required"`
		}
		if err := web.Decode(w, r, &in); err != nil {
			return weberr.BadRequest(err)
		}
		if err := validate.Check(in); err != nil {
			return weberr.Unprocessable(err)
		}

		s, err := middleware.ContextStore(ctx)
		if err != nil {
			return err
		}

		// line items are projected from the mirror, so it must be live
		if _, err := courseMirror(ctx, s); err != nil {
			return toWebErr(err)
		}

		if err := s.AddToCart(ctx, in.CourseID); err != nil {
			return toWebErr(err)
		}
		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}

func handleRemoveCartItem() web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		s, err := middleware.ContextStore(ctx)
		if err != nil {
			return err
		}

		if err := s.RemoveFromCart(ctx, web.Param(r, "course_id")); err != nil {
			return toWebErr(err)
		}
		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}

func handleClearCart() web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		s, err := middleware.ContextStore(ctx)
		if err != nil {
			return err
		}

		if err := s.ClearCart(ctx); err != nil {
			return toWebErr(err)
		}
		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}
