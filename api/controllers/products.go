package controllers

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/catalogbrowser/api/middleware"
	"github.com/angelmondragon/catalogbrowser/api/responses"
	"github.com/angelmondragon/catalogbrowser/api/validators"
	"github.com/angelmondragon/catalogbrowser/internal/catalog"
	"github.com/angelmondragon/catalogbrowser/internal/shop"
	"github.com/angelmondragon/catalogbrowser/pkg/enums"
	pkgerrors "github.com/angelmondragon/catalogbrowser/pkg/errors"
	"github.com/angelmondragon/catalogbrowser/pkg/logger"
)

const (
	maxSearchTextLen = 200
	maxCategoryLen   = 100
	maxPrice         = 1e9
	maxRating        = 5
)

type productListResponse struct {
	Products []catalog.Product `json:"products"`
	Count    int               `json:"count"`
}

// BrowseProducts runs search, filters and sort in one request:
// ?q=&category=&price_min=&price_max=&rating_min=&sort=
func BrowseProducts(svc shop.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "shop service unavailable"))
			return
		}

		query, err := parseBrowseQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		products, err := svc.Browse(r.Context(), middleware.SessionIDFromContext(r.Context()), query)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if products == nil {
			products = []catalog.Product{}
		}

		responses.WriteSuccess(w, productListResponse{Products: products, Count: len(products)})
	}
}

func parseBrowseQuery(r *http.Request) (shop.BrowseQuery, error) {
	var q shop.BrowseQuery
	var err error

	text := r.URL.Query().Get("q")
	if len(text) > maxSearchTextLen {
		return q, pkgerrors.New(pkgerrors.CodeValidation, "search text too long").
			WithDetails(map[string]any{"field": "q", "max_length": maxSearchTextLen})
	}
	q.Text = text
	q.Categories = validators.ParseQueryStrings(r, "category", maxCategoryLen)

	if q.PriceMin, err = validators.ParseQueryFloat(r, "price_min", 0, maxPrice); err != nil {
		return q, err
	}
	if q.PriceMax, err = validators.ParseQueryFloat(r, "price_max", 0, maxPrice); err != nil {
		return q, err
	}
	if q.PriceMin != nil && q.PriceMax != nil && *q.PriceMin > *q.PriceMax {
		return q, pkgerrors.New(pkgerrors.CodeValidation, "price_min must not exceed price_max").
			WithDetails(map[string]any{"price_min": *q.PriceMin, "price_max": *q.PriceMax})
	}
	if q.MinRating, err = validators.ParseQueryFloat(r, "rating_min", 0, maxRating); err != nil {
		return q, err
	}

	if raw := strings.TrimSpace(r.URL.Query().Get("sort")); raw != "" {
		key, parseErr := enums.ParseSortKey(raw)
		if parseErr != nil {
			return q, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "unknown sort key").
				WithDetails(map[string]any{"field": "sort", "allowed": enums.SortKeys()})
		}
		q.Sort = key
	}
	return q, nil
}

// ListCategories returns the distinct catalog categories in first-seen order.
func ListCategories(svc shop.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		categories, err := svc.Categories(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if categories == nil {
			categories = []string{}
		}
		responses.WriteSuccess(w, map[string]any{"categories": categories})
	}
}

func PriceRange(svc shop.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bounds, err := svc.PriceBounds(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, bounds)
	}
}
