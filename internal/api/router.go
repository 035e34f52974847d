package api

import (
	"net/http"

	"github.com/erazemk/totetrack/internal/catalog"
	"github.com/erazemk/totetrack/internal/checkout"
	"github.com/erazemk/totetrack/internal/filestore"
	"github.com/erazemk/totetrack/internal/ratelimit"
	"github.com/erazemk/totetrack/internal/tenancy"
)

// Deps are the components the API serves.
type Deps struct {
	Users   *tenancy.Manager
	Catalog *catalog.Catalog
	Ledger  *checkout.Ledger

	// Media serves stored images under /media/ when set.
	Media *filestore.Dir

	// Limiter throttles login, recovery and sign-up. Nil disables it.
	Limiter   ratelimit.Limiter
	RateLimit int
}

// NewRouter creates the API router with all endpoints registered.
func NewRouter(d Deps) http.Handler {
	mux := http.NewServeMux()

	authHandler := &AuthHandler{Users: d.Users}
	accountsHandler := &AccountsHandler{Users: d.Users}
	usersHandler := &UsersHandler{Users: d.Users}
	locationsHandler := &LocationsHandler{Catalog: d.Catalog}
	totesHandler := &TotesHandler{Catalog: d.Catalog}
	itemsHandler := &ItemsHandler{Catalog: d.Catalog, Ledger: d.Ledger}
	checkoutsHandler := &CheckoutsHandler{Ledger: d.Ledger}
	inventoryHandler := &InventoryHandler{Catalog: d.Catalog}

	authMW := AuthMiddleware(d.Users)
	throttle := ratelimit.Middleware(d.Limiter, d.RateLimit, func(r *http.Request) string {
		return r.URL.Path + ":" + ratelimit.ClientIP(r)
	})
	authed := func(h http.HandlerFunc) http.Handler { return authMW(h) }
	superuser := func(h http.HandlerFunc) http.Handler { return authMW(RequireSuperuser(h)) }

	// Public: sign-up, login and password recovery.
	mux.Handle("POST /api/accounts", throttle(http.HandlerFunc(accountsHandler.Create)))
	mux.Handle("POST /api/auth/token", throttle(http.HandlerFunc(authHandler.Token)))
	mux.Handle("POST /api/auth/recovery", throttle(http.HandlerFunc(authHandler.RequestRecovery)))
	mux.Handle("POST /api/auth/recovery/confirm", throttle(http.HandlerFunc(authHandler.ConfirmRecovery)))

	// Session.
	mux.Handle("POST /api/auth/logout", authed(authHandler.Logout))
	mux.Handle("GET /api/auth/me", authed(authHandler.Me))
	mux.Handle("PUT /api/auth/password", authed(authHandler.ChangePassword))
	mux.Handle("DELETE /api/accounts/me", superuser(accountsHandler.Delete))

	// Users: members may read and edit themselves.
	mux.Handle("GET /api/users", superuser(usersHandler.List))
	mux.Handle("POST /api/users", superuser(usersHandler.Create))
	mux.Handle("GET /api/users/{id}", authed(usersHandler.Get))
	mux.Handle("PUT /api/users/{id}", authed(usersHandler.Update))
	mux.Handle("DELETE /api/users/{id}", superuser(usersHandler.Delete))
	mux.Handle("POST /api/users/{id}/superuser", superuser(usersHandler.TransferSuperuser))

	// Locations.
	mux.Handle("GET /api/locations", authed(locationsHandler.List))
	mux.Handle("POST /api/locations", authed(locationsHandler.Create))
	mux.Handle("GET /api/locations/{id}", authed(locationsHandler.Get))
	mux.Handle("PUT /api/locations/{id}", authed(locationsHandler.Update))
	mux.Handle("DELETE /api/locations/{id}", authed(locationsHandler.Delete))
	mux.Handle("GET /api/locations/{id}/totes", authed(locationsHandler.Totes))

	// Totes.
	mux.Handle("GET /api/totes", authed(totesHandler.List))
	mux.Handle("POST /api/totes", authed(totesHandler.Create))
	mux.Handle("GET /api/totes/{id}", authed(totesHandler.Get))
	mux.Handle("PUT /api/totes/{id}", authed(totesHandler.Update))
	mux.Handle("DELETE /api/totes/{id}", authed(totesHandler.Delete))
	mux.Handle("GET /api/totes/{id}/items", authed(totesHandler.Items))
	mux.Handle("POST /api/totes/{id}/items", authed(totesHandler.CreateItem))

	// Items and checkouts.
	mux.Handle("GET /api/items", authed(itemsHandler.List))
	mux.Handle("POST /api/items", authed(itemsHandler.Create))
	mux.Handle("GET /api/items/{id}", authed(itemsHandler.Get))
	mux.Handle("PUT /api/items/{id}", authed(itemsHandler.Update))
	mux.Handle("DELETE /api/items/{id}", authed(itemsHandler.Delete))
	mux.Handle("DELETE /api/items/{id}/image", authed(itemsHandler.RemoveImage))
	mux.Handle("GET /api/items/{id}/checkout", authed(itemsHandler.CheckoutStatus))
	mux.Handle("POST /api/items/{id}/checkout", authed(itemsHandler.Checkout))
	mux.Handle("POST /api/items/{id}/checkin", authed(itemsHandler.Checkin))

	mux.Handle("GET /api/checkouts", authed(checkoutsHandler.List))
	mux.Handle("GET /api/checkouts/mine", authed(checkoutsHandler.Mine))
	mux.Handle("GET /api/statistics", authed(inventoryHandler.Statistics))

	if d.Media != nil {
		mediaHandler := &MediaHandler{Dir: d.Media}
		mux.HandleFunc("GET /media/{name}", mediaHandler.Serve)
	}

	return mux
}
