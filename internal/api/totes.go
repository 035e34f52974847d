package api

import (
	"net/http"

	"github.com/erazemk/totetrack/internal/catalog"
	"github.com/erazemk/totetrack/internal/model"
)

// TotesHandler handles tote endpoints.
type TotesHandler struct {
	Catalog *catalog.Catalog
}

// List handles GET /api/totes.
func (h *TotesHandler) List(w http.ResponseWriter, r *http.Request) {
	totes, err := scope(h.Catalog, r).ListTotes(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if totes == nil {
		totes = []model.Tote{}
	}
	jsonResponse(w, http.StatusOK, totes)
}

// Create handles POST /api/totes.
func (h *TotesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.ToteCreate
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	tote, err := scope(h.Catalog, r).CreateTote(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusCreated, tote)
}

// Get handles GET /api/totes/{id}.
func (h *TotesHandler) Get(w http.ResponseWriter, r *http.Request) {
	tote, err := scope(h.Catalog, r).GetTote(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, tote)
}

// Update handles PUT /api/totes/{id}.
func (h *TotesHandler) Update(w http.ResponseWriter, r *http.Request) {
	var patch model.TotePatch
	if err := decodeJSON(r, &patch); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	tote, err := scope(h.Catalog, r).UpdateTote(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, tote)
}

// Delete handles DELETE /api/totes/{id}. The tote's items go with it.
func (h *TotesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := scope(h.Catalog, r).DeleteTote(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	message(w, "tote deleted")
}

// Items handles GET /api/totes/{id}/items.
func (h *TotesHandler) Items(w http.ResponseWriter, r *http.Request) {
	items, err := scope(h.Catalog, r).ToteItems(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if items == nil {
		items = []model.Item{}
	}
	jsonResponse(w, http.StatusOK, items)
}

// CreateItem handles POST /api/totes/{id}/items.
func (h *TotesHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	in, upload, err := readItemCreate(w, r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	toteID := r.PathValue("id")
	in.ToteID = &toteID

	item, err := scope(h.Catalog, r).CreateItem(r.Context(), in, upload)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusCreated, item)
}
