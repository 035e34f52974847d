package api

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/erazemk/totetrack/internal/auth"
	"github.com/erazemk/totetrack/internal/catalog"
	"github.com/erazemk/totetrack/internal/checkout"
	"github.com/erazemk/totetrack/internal/db"
	"github.com/erazemk/totetrack/internal/filestore"
	"github.com/erazemk/totetrack/internal/model"
	"github.com/erazemk/totetrack/internal/ratelimit"
	"github.com/erazemk/totetrack/internal/tenancy"
)

const testSecret = "test-secret"

func newTestDeps(t *testing.T) Deps {
	t.Helper()
	database := db.NewTestDB(t)
	media, err := filestore.NewDir(t.TempDir())
	if err != nil {
		t.Fatalf("NewDir: %v", err)
	}
	credentials := &auth.Service{DB: database, Secret: testSecret}
	return Deps{
		Users:   &tenancy.Manager{DB: database, Credentials: credentials, Files: media, PublicURL: "http://localhost"},
		Catalog: &catalog.Catalog{DB: database, Files: media},
		Ledger:  &checkout.Ledger{DB: database},
		Media:   media,
	}
}

func newTestServer(t *testing.T, d Deps) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(NewRouter(d))
	t.Cleanup(server.Close)
	return server
}

// signUp creates an account through the API and returns the owner's token.
func signUp(t *testing.T, server *httptest.Server, name, email string) string {
	t.Helper()
	resp := do(t, "POST", server.URL+"/api/accounts", "", model.AccountCreate{
		Name:          name,
		OwnerEmail:    email,
		OwnerFullName: "Owner",
		OwnerPassword: "password123",
	})
	expectStatus(t, resp, http.StatusCreated)
	resp.Body.Close()
	return login(t, server, email, "password123")
}

func login(t *testing.T, server *httptest.Server, email, password string) string {
	t.Helper()
	form := url.Values{"username": {email}, "password": {password}}
	resp, err := http.PostForm(server.URL+"/api/auth/token", form)
	if err != nil {
		t.Fatalf("login request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login failed: %d", resp.StatusCode)
	}

	var tok tokenResponse
	json.NewDecoder(resp.Body).Decode(&tok)
	if tok.AccessToken == "" || tok.TokenType != "bearer" {
		t.Fatalf("unexpected token response: %+v", tok)
	}
	return tok.AccessToken
}

func do(t *testing.T, method, url, token string, body any) *http.Response {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	return resp
}

func expectStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		var body map[string]any
		json.NewDecoder(resp.Body).Decode(&body)
		t.Fatalf("%s %s: expected %d, got %d (%v)", resp.Request.Method, resp.Request.URL.Path, want, resp.StatusCode, body)
	}
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return v
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := 0; x < 8; x++ {
		img.Set(x, x, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encoding png: %v", err)
	}
	return buf.Bytes()
}

func TestLoginEndpoint(t *testing.T) {
	server := newTestServer(t, newTestDeps(t))
	signUp(t, server, "Home", "owner@example.com")

	// Wrong password.
	resp := do(t, "POST", server.URL+"/api/auth/token", "", map[string]string{"email": "owner@example.com", "password": "wrong-password"})
	expectStatus(t, resp, http.StatusUnauthorized)
	resp.Body.Close()

	// Unknown email gets the same answer.
	resp = do(t, "POST", server.URL+"/api/auth/token", "", map[string]string{"email": "nobody@example.com", "password": "password123"})
	expectStatus(t, resp, http.StatusUnauthorized)
	resp.Body.Close()

	// JSON login works too.
	resp = do(t, "POST", server.URL+"/api/auth/token", "", map[string]string{"email": "OWNER@example.com", "password": "password123"})
	expectStatus(t, resp, http.StatusOK)
	resp.Body.Close()
}

func TestUnauthenticatedAccess(t *testing.T) {
	server := newTestServer(t, newTestDeps(t))

	resp, _ := http.Get(server.URL + "/api/items")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 for unauthenticated request, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = do(t, "GET", server.URL+"/api/items", "garbage", nil)
	expectStatus(t, resp, http.StatusUnauthorized)
	resp.Body.Close()
}

func TestMeAndDuplicateSignUp(t *testing.T) {
	server := newTestServer(t, newTestDeps(t))
	token := signUp(t, server, "Home", "owner@example.com")

	me := decode[model.User](t, do(t, "GET", server.URL+"/api/auth/me", token, nil))
	if me.Email != "owner@example.com" || !me.IsSuperuser {
		t.Errorf("unexpected me: %+v", me)
	}

	resp := do(t, "POST", server.URL+"/api/accounts", "", model.AccountCreate{
		Name: "Other", OwnerEmail: "owner@example.com", OwnerPassword: "password123",
	})
	expectStatus(t, resp, http.StatusConflict)
	resp.Body.Close()
}

func TestSuperuserOnlyEndpoints(t *testing.T) {
	server := newTestServer(t, newTestDeps(t))
	owner := signUp(t, server, "Home", "owner@example.com")

	resp := do(t, "POST", server.URL+"/api/users", owner, map[string]any{
		"email": "member@example.com", "full_name": "Member", "password": "password123",
	})
	expectStatus(t, resp, http.StatusCreated)
	created := decode[model.User](t, resp)
	if created.IsSuperuser {
		t.Fatal("new user should be a member")
	}

	// A second superuser is rejected.
	resp = do(t, "POST", server.URL+"/api/users", owner, map[string]any{
		"email": "second@example.com", "password": "password123", "is_superuser": true,
	})
	expectStatus(t, resp, http.StatusConflict)
	resp.Body.Close()

	member := login(t, server, "member@example.com", "password123")

	for _, tc := range []struct{ method, path string }{
		{"GET", "/api/users"},
		{"POST", "/api/users"},
		{"DELETE", "/api/accounts/me"},
	} {
		resp := do(t, tc.method, server.URL+tc.path, member, map[string]string{})
		expectStatus(t, resp, http.StatusForbidden)
		resp.Body.Close()
	}

	// Members can promote themselves neither directly nor via patch.
	resp = do(t, "PUT", server.URL+"/api/users/"+itoa(created.ID), member, map[string]any{"is_superuser": true})
	expectStatus(t, resp, http.StatusForbidden)
	resp.Body.Close()

	// Members can rename themselves.
	resp = do(t, "PUT", server.URL+"/api/users/"+itoa(created.ID), member, map[string]any{"full_name": "Renamed"})
	expectStatus(t, resp, http.StatusOK)
	if u := decode[model.User](t, resp); u.FullName != "Renamed" {
		t.Errorf("full_name = %q", u.FullName)
	}

	// Handing over the role leaves exactly one superuser.
	resp = do(t, "POST", server.URL+"/api/users/"+itoa(created.ID)+"/superuser", owner, nil)
	expectStatus(t, resp, http.StatusOK)
	resp.Body.Close()

	users := decode[[]model.User](t, do(t, "GET", server.URL+"/api/users", member, nil))
	supers := 0
	for _, u := range users {
		if u.IsSuperuser {
			supers++
		}
	}
	if supers != 1 {
		t.Errorf("expected exactly 1 superuser, got %d", supers)
	}
}

func TestCatalogAPIFlow(t *testing.T) {
	server := newTestServer(t, newTestDeps(t))
	token := signUp(t, server, "Home", "owner@example.com")

	resp := do(t, "POST", server.URL+"/api/locations", token, model.LocationCreate{Name: "Garage"})
	expectStatus(t, resp, http.StatusCreated)
	loc := decode[model.Location](t, resp)

	resp = do(t, "POST", server.URL+"/api/totes", token, model.ToteCreate{Name: "Tools", LocationID: &loc.ID})
	expectStatus(t, resp, http.StatusCreated)
	tote := decode[model.Tote](t, resp)

	resp = do(t, "POST", server.URL+"/api/totes/"+tote.ID+"/items", token, model.ItemCreate{Name: "Hammer"})
	expectStatus(t, resp, http.StatusCreated)
	item := decode[model.Item](t, resp)
	if item.Quantity != model.DefaultQuantity || item.ToteID == nil || *item.ToteID != tote.ID {
		t.Errorf("unexpected item: %+v", item)
	}

	totes := decode[[]model.Tote](t, do(t, "GET", server.URL+"/api/locations/"+itoa(loc.ID)+"/totes", token, nil))
	if len(totes) != 1 {
		t.Errorf("expected 1 tote at location, got %d", len(totes))
	}

	got := decode[model.Tote](t, do(t, "GET", server.URL+"/api/totes/"+tote.ID, token, nil))
	if len(got.Items) != 1 {
		t.Errorf("expected tote with 1 item, got %d", len(got.Items))
	}

	found := decode[[]model.Item](t, do(t, "GET", server.URL+"/api/items?search=ham", token, nil))
	if len(found) != 1 {
		t.Errorf("expected search to find 1 item, got %d", len(found))
	}

	// Bad metadata is rejected.
	resp = do(t, "POST", server.URL+"/api/totes", token, model.ToteCreate{MetadataJSON: "{not json"})
	expectStatus(t, resp, http.StatusBadRequest)
	resp.Body.Close()

	// Unassign the item, then delete the tote; the item survives.
	resp = do(t, "PUT", server.URL+"/api/items/"+item.ID, token, model.ItemPatch{Unassign: true})
	expectStatus(t, resp, http.StatusOK)
	if moved := decode[model.Item](t, resp); moved.ToteID != nil {
		t.Errorf("expected unassigned item, got tote %v", *moved.ToteID)
	}

	resp = do(t, "DELETE", server.URL+"/api/totes/"+tote.ID, token, nil)
	expectStatus(t, resp, http.StatusOK)
	resp.Body.Close()

	resp = do(t, "GET", server.URL+"/api/items/"+item.ID, token, nil)
	expectStatus(t, resp, http.StatusOK)
	resp.Body.Close()

	stats := decode[model.Statistics](t, do(t, "GET", server.URL+"/api/statistics", token, nil))
	if stats.LocationsCount != 1 || stats.TotesCount != 0 || stats.ItemsCount != 1 {
		t.Errorf("unexpected statistics: %+v", stats)
	}
}

func TestItemImageUpload(t *testing.T) {
	server := newTestServer(t, newTestDeps(t))
	token := signUp(t, server, "Home", "owner@example.com")

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	mw.WriteField("name", "Cordless Drill")
	mw.WriteField("quantity", "2")
	fw, _ := mw.CreateFormFile("image", "drill.png")
	fw.Write(pngBytes(t))
	mw.Close()

	req, _ := http.NewRequest("POST", server.URL+"/api/items", &body)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	expectStatus(t, resp, http.StatusCreated)
	item := decode[model.Item](t, resp)
	if item.ImagePath == "" || item.Quantity != 2 {
		t.Fatalf("unexpected item: %+v", item)
	}
	if !strings.HasPrefix(item.ImagePath, "item_Cordless_Drill_") || !strings.HasSuffix(item.ImagePath, ".jpg") {
		t.Errorf("unexpected image path %q", item.ImagePath)
	}

	resp, _ = http.Get(server.URL + "/media/" + item.ImagePath)
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != "image/jpeg" {
		t.Errorf("media: status %d, type %q", resp.StatusCode, resp.Header.Get("Content-Type"))
	}
	resp.Body.Close()

	resp = do(t, "DELETE", server.URL+"/api/items/"+item.ID+"/image", token, nil)
	expectStatus(t, resp, http.StatusOK)
	if cleared := decode[model.Item](t, resp); cleared.ImagePath != "" {
		t.Errorf("image path not cleared: %q", cleared.ImagePath)
	}

	resp, _ = http.Get(server.URL + "/media/" + item.ImagePath)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected removed image to 404, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestInvalidImageRejected(t *testing.T) {
	server := newTestServer(t, newTestDeps(t))
	token := signUp(t, server, "Home", "owner@example.com")

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	mw.WriteField("name", "Notes")
	fw, _ := mw.CreateFormFile("image", "notes.txt")
	fw.Write([]byte("definitely not an image"))
	mw.Close()

	req, _ := http.NewRequest("POST", server.URL+"/api/items", &body)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	expectStatus(t, resp, http.StatusBadRequest)
	resp.Body.Close()

	items := decode[[]model.Item](t, do(t, "GET", server.URL+"/api/items", token, nil))
	if len(items) != 0 {
		t.Errorf("expected no items after rejected upload, got %d", len(items))
	}
}

func TestCheckoutAPIFlow(t *testing.T) {
	server := newTestServer(t, newTestDeps(t))
	token := signUp(t, server, "Home", "owner@example.com")

	resp := do(t, "POST", server.URL+"/api/items", token, model.ItemCreate{Name: "Ladder"})
	expectStatus(t, resp, http.StatusCreated)
	item := decode[model.Item](t, resp)

	resp = do(t, "POST", server.URL+"/api/items/"+item.ID+"/checkout", token, nil)
	expectStatus(t, resp, http.StatusCreated)
	resp.Body.Close()

	resp = do(t, "POST", server.URL+"/api/items/"+item.ID+"/checkout", token, nil)
	expectStatus(t, resp, http.StatusConflict)
	resp.Body.Close()

	status := decode[model.ItemCheckoutStatus](t, do(t, "GET", server.URL+"/api/items/"+item.ID+"/checkout", token, nil))
	if !status.CheckedOut || status.Checkout == nil {
		t.Errorf("expected item to be checked out: %+v", status)
	}

	mine := decode[[]model.CheckedOutItem](t, do(t, "GET", server.URL+"/api/checkouts/mine", token, nil))
	if len(mine) != 1 || mine[0].ItemName != "Ladder" {
		t.Errorf("unexpected checkouts: %+v", mine)
	}

	resp = do(t, "POST", server.URL+"/api/items/"+item.ID+"/checkin", token, nil)
	expectStatus(t, resp, http.StatusOK)
	resp.Body.Close()

	resp = do(t, "POST", server.URL+"/api/items/"+item.ID+"/checkin", token, nil)
	expectStatus(t, resp, http.StatusConflict)
	resp.Body.Close()

	all := decode[[]model.CheckedOutItem](t, do(t, "GET", server.URL+"/api/checkouts", token, nil))
	if len(all) != 0 {
		t.Errorf("expected no checkouts, got %d", len(all))
	}
}

func TestCrossAccountIsolation(t *testing.T) {
	server := newTestServer(t, newTestDeps(t))
	alpha := signUp(t, server, "Alpha", "alpha@example.com")
	beta := signUp(t, server, "Beta", "beta@example.com")

	resp := do(t, "POST", server.URL+"/api/totes", alpha, model.ToteCreate{Name: "Alpha tote"})
	expectStatus(t, resp, http.StatusCreated)
	tote := decode[model.Tote](t, resp)

	resp = do(t, "GET", server.URL+"/api/totes/"+tote.ID, beta, nil)
	expectStatus(t, resp, http.StatusNotFound)
	resp.Body.Close()

	resp = do(t, "DELETE", server.URL+"/api/totes/"+tote.ID, beta, nil)
	expectStatus(t, resp, http.StatusNotFound)
	resp.Body.Close()

	totes := decode[[]model.Tote](t, do(t, "GET", server.URL+"/api/totes", beta, nil))
	if len(totes) != 0 {
		t.Errorf("beta sees %d totes of alpha", len(totes))
	}
}

func TestPasswordRecoveryDoesNotLeakEmails(t *testing.T) {
	server := newTestServer(t, newTestDeps(t))
	signUp(t, server, "Home", "owner@example.com")

	for _, email := range []string{"owner@example.com", "nobody@example.com"} {
		resp := do(t, "POST", server.URL+"/api/auth/recovery", "", recoveryRequest{Email: email})
		expectStatus(t, resp, http.StatusOK)
		resp.Body.Close()
	}

	resp := do(t, "POST", server.URL+"/api/auth/recovery/confirm", "", recoveryConfirmRequest{Token: "bogus", NewPassword: "password456"})
	expectStatus(t, resp, http.StatusNotFound)
	resp.Body.Close()
}

type denyAfter struct {
	n    int
	seen int
}

func (d *denyAfter) Allow(context.Context, string) (ratelimit.Decision, error) {
	d.seen++
	if d.seen > d.n {
		return ratelimit.Decision{RetryAfter: 30 * time.Second}, nil
	}
	return ratelimit.Decision{Allowed: true, Remaining: d.n - d.seen}, nil
}

func TestLoginIsRateLimited(t *testing.T) {
	d := newTestDeps(t)
	d.Limiter = &denyAfter{n: 1}
	d.RateLimit = 1
	server := newTestServer(t, d)

	body := map[string]string{"email": "nobody@example.com", "password": "password123"}
	resp := do(t, "POST", server.URL+"/api/auth/token", "", body)
	expectStatus(t, resp, http.StatusUnauthorized)
	resp.Body.Close()

	resp = do(t, "POST", server.URL+"/api/auth/token", "", body)
	expectStatus(t, resp, http.StatusTooManyRequests)
	if resp.Header.Get("Retry-After") != "30" {
		t.Errorf("Retry-After = %q", resp.Header.Get("Retry-After"))
	}
	resp.Body.Close()
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
