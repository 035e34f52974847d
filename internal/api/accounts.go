package api

import (
	"log/slog"
	"net/http"

	"github.com/erazemk/totetrack/internal/model"
	"github.com/erazemk/totetrack/internal/tenancy"
)

// AccountsHandler handles account creation and deletion.
type AccountsHandler struct {
	Users *tenancy.Manager
}

type accountResponse struct {
	Account *model.Account `json:"account"`
	Owner   *model.User    `json:"owner"`
}

// Create handles POST /api/accounts.
func (h *AccountsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.AccountCreate
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	account, owner, err := h.Users.BootstrapAccount(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusCreated, accountResponse{Account: account, Owner: owner})
}

// Delete handles DELETE /api/accounts/me.
func (h *AccountsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user := CurrentUser(r.Context())
	if err := h.Users.DeleteAccount(r.Context(), user); err != nil {
		writeError(w, r, err)
		return
	}
	slog.Info("account deleted via api", "account_id", user.AccountID)
	message(w, "account deleted")
}
