package controllers

import (
	"net/http"

	"github.com/angelmondragon/catalogbrowser/api/middleware"
	"github.com/angelmondragon/catalogbrowser/api/responses"
	"github.com/angelmondragon/catalogbrowser/api/validators"
	"github.com/angelmondragon/catalogbrowser/internal/ledger"
	"github.com/angelmondragon/catalogbrowser/internal/shop"
	"github.com/angelmondragon/catalogbrowser/pkg/logger"
	"github.com/angelmondragon/catalogbrowser/pkg/pagination"
)

// Checkout records the session cart as a purchase and empties the cart.
func Checkout(svc shop.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		purchase, err := svc.Checkout(r.Context(), middleware.SessionIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, purchase)
	}
}

type purchaseListResponse struct {
	Purchases  []ledger.Purchase `json:"purchases"`
	Count      int               `json:"count"`
	Total      *int64            `json:"total,omitempty"`
	NextCursor string            `json:"next_cursor,omitempty"`
}

// ListPurchases returns the whole session history, or one cursor page when limit or cursor
// is given.
func ListPurchases(svc shop.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := middleware.SessionIDFromContext(r.Context())
		query := r.URL.Query()
		if query.Has("limit") || query.Has("cursor") {
			listPurchasePage(w, r, svc, logg, sessionID)
			return
		}

		purchases, err := svc.Purchases(r.Context(), sessionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if purchases == nil {
			purchases = []ledger.Purchase{}
		}
		responses.WriteSuccess(w, purchaseListResponse{Purchases: purchases, Count: len(purchases)})
	}
}

func listPurchasePage(w http.ResponseWriter, r *http.Request, svc shop.Service, logg *logger.Logger, sessionID string) {
	limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return
	}

	page, err := svc.PurchasePage(r.Context(), sessionID, pagination.Params{
		Limit:  limit,
		Cursor: r.URL.Query().Get("cursor"),
	})
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return
	}
	purchases := page.Purchases
	if purchases == nil {
		purchases = []ledger.Purchase{}
	}
	responses.WriteSuccess(w, purchaseListResponse{
		Purchases:  purchases,
		Count:      len(purchases),
		Total:      &page.Total,
		NextCursor: page.NextCursor,
	})
}
