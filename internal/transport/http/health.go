package http

import (
	"net/http"
	"time"
)

type healthResponse struct {
	Status         string     `json:"status"`
	CatalogVersion uint64     `json:"catalog_version"`
	CatalogUpdated *time.Time `json:"catalog_updated_at,omitempty"`
}

// HandleHealth reports liveness and how far the catalog projection has
// caught up. Version 0 means no snapshot has arrived from the store yet.
func HandleHealth(catalog CatalogReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view := catalog.View()
		resp := healthResponse{Status: "ok", CatalogVersion: view.Version}
		if !view.UpdatedAt.IsZero() {
			updated := view.UpdatedAt
			resp.CatalogUpdated = &updated
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
