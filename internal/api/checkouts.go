package api

import (
	"net/http"

	"github.com/erazemk/totetrack/internal/checkout"
	"github.com/erazemk/totetrack/internal/model"
)

// CheckoutsHandler lists active checkouts.
type CheckoutsHandler struct {
	Ledger *checkout.Ledger
}

// List handles GET /api/checkouts.
func (h *CheckoutsHandler) List(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Ledger.ListCheckedOut(r.Context(), CurrentUser(r.Context()).AccountID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if entries == nil {
		entries = []model.CheckedOutItem{}
	}
	jsonResponse(w, http.StatusOK, entries)
}

// Mine handles GET /api/checkouts/mine.
func (h *CheckoutsHandler) Mine(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Ledger.ListCheckedOutByUser(r.Context(), CurrentUser(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if entries == nil {
		entries = []model.CheckedOutItem{}
	}
	jsonResponse(w, http.StatusOK, entries)
}
