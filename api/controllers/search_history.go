package controllers

import (
	"net/http"

	"github.com/angelmondragon/catalogbrowser/api/middleware"
	"github.com/angelmondragon/catalogbrowser/api/responses"
	"github.com/angelmondragon/catalogbrowser/internal/history"
	"github.com/angelmondragon/catalogbrowser/internal/shop"
	"github.com/angelmondragon/catalogbrowser/pkg/logger"
)

func SearchHistory(svc shop.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries, err := svc.SearchHistory(r.Context(), middleware.SessionIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if entries == nil {
			entries = []history.Entry{}
		}
		responses.WriteSuccess(w, map[string]any{"searches": entries, "count": len(entries)})
	}
}
