package api

import (
	"net/http"

	"github.com/erazemk/totetrack/internal/catalog"
	"github.com/erazemk/totetrack/internal/model"
)

// LocationsHandler handles location endpoints.
type LocationsHandler struct {
	Catalog *catalog.Catalog
}

// scope returns the catalog of the authenticated user's account.
func scope(c *catalog.Catalog, r *http.Request) *catalog.Scope {
	return c.Account(CurrentUser(r.Context()).AccountID)
}

// List handles GET /api/locations.
func (h *LocationsHandler) List(w http.ResponseWriter, r *http.Request) {
	locations, err := scope(h.Catalog, r).ListLocations(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if locations == nil {
		locations = []model.Location{}
	}
	jsonResponse(w, http.StatusOK, locations)
}

// Create handles POST /api/locations.
func (h *LocationsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.LocationCreate
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	location, err := scope(h.Catalog, r).CreateLocation(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusCreated, location)
}

// Get handles GET /api/locations/{id}.
func (h *LocationsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt64(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid location id")
		return
	}

	location, err := scope(h.Catalog, r).GetLocation(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, location)
}

// Update handles PUT /api/locations/{id}.
func (h *LocationsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt64(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid location id")
		return
	}

	var patch model.LocationPatch
	if err := decodeJSON(r, &patch); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	location, err := scope(h.Catalog, r).UpdateLocation(r.Context(), id, patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, location)
}

// Delete handles DELETE /api/locations/{id}.
func (h *LocationsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt64(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid location id")
		return
	}

	if err := scope(h.Catalog, r).DeleteLocation(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	message(w, "location deleted")
}

// Totes handles GET /api/locations/{id}/totes.
func (h *LocationsHandler) Totes(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt64(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid location id")
		return
	}

	totes, err := scope(h.Catalog, r).LocationTotes(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if totes == nil {
		totes = []model.Tote{}
	}
	jsonResponse(w, http.StatusOK, totes)
}
