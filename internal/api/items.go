package api

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/erazemk/totetrack/internal/catalog"
	"github.com/erazemk/totetrack/internal/checkout"
	"github.com/erazemk/totetrack/internal/model"
)

// maxUploadSize bounds multipart item requests.
const maxUploadSize = 10 << 20

// ItemsHandler handles item endpoints, including checkout and checkin.
type ItemsHandler struct {
	Catalog *catalog.Catalog
	Ledger  *checkout.Ledger
}

func isMultipart(r *http.Request) bool {
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return ct == "multipart/form-data"
}

// parseItemForm reads a multipart item form and its optional image part.
func parseItemForm(w http.ResponseWriter, r *http.Request) (map[string][]string, *model.Upload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		return nil, nil, errors.New("file too large or invalid multipart form")
	}

	file, header, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return r.MultipartForm.Value, nil, nil
	}
	if err != nil {
		return nil, nil, errors.New("invalid image part")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, nil, errors.New("failed to read image")
	}
	// Browsers send an empty, unnamed part when no file was chosen.
	if len(data) == 0 && header.Filename == "" {
		return r.MultipartForm.Value, nil, nil
	}
	return r.MultipartForm.Value, &model.Upload{Data: data, Filename: header.Filename}, nil
}

func formString(values map[string][]string, key string) *string {
	v, ok := values[key]
	if !ok || len(v) == 0 {
		return nil
	}
	s := v[0]
	return &s
}

func formInt(values map[string][]string, key string) (*int, error) {
	s := formString(values, key)
	if s == nil || *s == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(*s)
	if err != nil {
		return nil, errors.New(key + " must be an integer")
	}
	return &n, nil
}

// readItemCreate decodes an item creation request from a multipart form
// or a JSON body.
func readItemCreate(w http.ResponseWriter, r *http.Request) (model.ItemCreate, *model.Upload, error) {
	var in model.ItemCreate
	if !isMultipart(r) {
		if err := decodeJSON(r, &in); err != nil {
			return in, nil, errors.New("invalid request body")
		}
		return in, nil, nil
	}

	values, upload, err := parseItemForm(w, r)
	if err != nil {
		return in, nil, err
	}
	if s := formString(values, "name"); s != nil {
		in.Name = *s
	}
	if s := formString(values, "description"); s != nil {
		in.Description = *s
	}
	if s := formString(values, "tote_id"); s != nil && *s != "" {
		in.ToteID = s
	}
	if in.Quantity, err = formInt(values, "quantity"); err != nil {
		return in, nil, err
	}
	return in, upload, nil
}

// readItemPatch decodes an item update request from a multipart form or a
// JSON body.
func readItemPatch(w http.ResponseWriter, r *http.Request) (model.ItemPatch, *model.Upload, error) {
	var patch model.ItemPatch
	if !isMultipart(r) {
		if err := decodeJSON(r, &patch); err != nil {
			return patch, nil, errors.New("invalid request body")
		}
		return patch, nil, nil
	}

	values, upload, err := parseItemForm(w, r)
	if err != nil {
		return patch, nil, err
	}
	patch.Name = formString(values, "name")
	patch.Description = formString(values, "description")
	if s := formString(values, "tote_id"); s != nil && *s != "" {
		patch.ToteID = s
	}
	if s := formString(values, "unassign"); s != nil {
		patch.Unassign, _ = strconv.ParseBool(*s)
	}
	if patch.Quantity, err = formInt(values, "quantity"); err != nil {
		return patch, nil, err
	}
	return patch, upload, nil
}

// List handles GET /api/items.
func (h *ItemsHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := scope(h.Catalog, r).ListItems(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if items == nil {
		items = []model.Item{}
	}
	jsonResponse(w, http.StatusOK, items)
}

// Create handles POST /api/items.
func (h *ItemsHandler) Create(w http.ResponseWriter, r *http.Request) {
	in, upload, err := readItemCreate(w, r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	item, err := scope(h.Catalog, r).CreateItem(r.Context(), in, upload)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusCreated, item)
}

// Get handles GET /api/items/{id}.
func (h *ItemsHandler) Get(w http.ResponseWriter, r *http.Request) {
	item, err := scope(h.Catalog, r).GetItem(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, item)
}

// Update handles PUT /api/items/{id}.
func (h *ItemsHandler) Update(w http.ResponseWriter, r *http.Request) {
	patch, upload, err := readItemPatch(w, r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	item, err := scope(h.Catalog, r).UpdateItem(r.Context(), r.PathValue("id"), patch, upload)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, item)
}

// Delete handles DELETE /api/items/{id}.
func (h *ItemsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := scope(h.Catalog, r).DeleteItem(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	message(w, "item deleted")
}

// RemoveImage handles DELETE /api/items/{id}/image.
func (h *ItemsHandler) RemoveImage(w http.ResponseWriter, r *http.Request) {
	item, err := scope(h.Catalog, r).RemoveItemImage(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, item)
}

// CheckoutStatus handles GET /api/items/{id}/checkout.
func (h *ItemsHandler) CheckoutStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.Ledger.Status(r.Context(), CurrentUser(r.Context()).AccountID, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, status)
}

// Checkout handles POST /api/items/{id}/checkout.
func (h *ItemsHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	entry, err := h.Ledger.Checkout(r.Context(), CurrentUser(r.Context()), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusCreated, entry)
}

// Checkin handles POST /api/items/{id}/checkin.
func (h *ItemsHandler) Checkin(w http.ResponseWriter, r *http.Request) {
	if err := h.Ledger.Checkin(r.Context(), CurrentUser(r.Context()), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	message(w, "item checked in")
}
