package controllers

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/catalogbrowser/api/middleware"
	"github.com/angelmondragon/catalogbrowser/api/responses"
	"github.com/angelmondragon/catalogbrowser/api/validators"
	"github.com/angelmondragon/catalogbrowser/internal/shop"
	pkgerrors "github.com/angelmondragon/catalogbrowser/pkg/errors"
	"github.com/angelmondragon/catalogbrowser/pkg/logger"
)

const maxProductNameLen = 200

type addCartItemRequest struct {
	Name     string `json:"name" validate:"required,max=200"`
	Quantity *int   `json:"quantity" validate:"required,max=10000"`
}

func GetCart(svc shop.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view, err := svc.Cart(r.Context(), middleware.SessionIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// AddCartItem merges {name, quantity} into the session cart.
func AddCartItem(svc shop.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload addCartItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.AddToCart(r.Context(), middleware.SessionIDFromContext(r.Context()), payload.Name, *payload.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// RemoveCartItem deletes the line named by the path. Unknown names leave the cart unchanged.
func RemoveCartItem(svc shop.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name, err := pathName(r)
		if err != nil || name == "" || len(name) > maxProductNameLen {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid product name").
				WithDetails(map[string]any{"field": "name"}))
			return
		}

		view, err := svc.RemoveFromCart(r.Context(), middleware.SessionIDFromContext(r.Context()), name)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// pathName returns the decoded {name} segment. chi only hands back an escaped segment when the
// router matched on RawPath, which happens for names holding an escaped slash.
func pathName(r *http.Request) (string, error) {
	name := chi.URLParam(r, "name")
	if r.URL.RawPath == "" {
		return name, nil
	}
	return url.PathUnescape(name)
}
