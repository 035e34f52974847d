package api

import (
	"net/http"

	"github.com/erazemk/totetrack/internal/catalog"
)

// InventoryHandler serves account-wide inventory summaries.
type InventoryHandler struct {
	Catalog *catalog.Catalog
}

// Statistics handles GET /api/statistics.
func (h *InventoryHandler) Statistics(w http.ResponseWriter, r *http.Request) {
	stats, err := scope(h.Catalog, r).Statistics(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, stats)
}
