package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/Simplici0/hvacquote/internal/config"
	"github.com/Simplici0/hvacquote/internal/db"
	"github.com/Simplici0/hvacquote/internal/migrations"
	"github.com/Simplici0/hvacquote/internal/seed"
)

const (
	testAdminEmail    = "admin@northwindhvac.ca"
	testAdminPassword = "heat-pump-2024"
)

func newTestServer(t *testing.T) *server {
	t.Helper()

	ctx := context.Background()
	database, err := db.Open(ctx, filepath.Join(t.TempDir(), "server.db"))
	if err != nil {
		t.Fatalf("open sqlite database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	if err := migrations.Up(ctx, database); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	if _, err := seed.Run(ctx, database, seed.Config{AdminEmail: testAdminEmail, AdminPassword: testAdminPassword}); err != nil {
		t.Fatalf("seed database: %v", err)
	}

	srv, err := newServer(ctx, database, config.Config{
		SessionSecret: "test-secret",
		SessionTTL:    time.Hour,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("newServer: %v", err)
	}
	return srv
}

func do(t *testing.T, h http.Handler, method, target, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

type quoteLineBody struct {
	Kind       string          `json:"kind"`
	Name       string          `json:"name"`
	TotalPrice decimal.Decimal `json:"total_price"`
}

type quoteBody struct {
	Items      []quoteLineBody `json:"items"`
	GrandTotal decimal.Decimal `json:"grand_total"`
}

type quoteMetaBody struct {
	Title      string `json:"title"`
	Complexity string `json:"complexity"`
	Urgency    string `json:"urgency"`
}

type programBody struct {
	Name string `json:"name"`
}

type savedQuoteBody struct {
	ID    string        `json:"id"`
	Meta  quoteMetaBody `json:"meta"`
	Quote quoteBody     `json:"quote"`
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func TestQuoteCreateFetchAndCheckout(t *testing.T) {
	srv := newTestServer(t)
	h := srv.routes()

	rec := do(t, h, http.MethodPost, "/api/quotes", `{
		"title": "Henderson furnace swap",
		"complexity": "moderate",
		"selections": [{"category": "furnace", "match_key": "60000/92% AFUE"}]
	}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var created savedQuoteBody
	decodeBody(t, rec, &created)
	if created.ID == "" {
		t.Fatal("expected quote ID in response")
	}
	if !created.Quote.GrandTotal.Equal(decimal.NewFromInt(4814)) {
		t.Fatalf("expected grand total 4814, got %s", created.Quote.GrandTotal)
	}
	if len(created.Quote.Items) != 2 || created.Quote.Items[1].Kind != "labor" {
		t.Fatalf("expected equipment line followed by labor, got %+v", created.Quote.Items)
	}
	if created.Meta.Urgency != "standard" {
		t.Fatalf("expected omitted urgency to be stored as standard, got %q", created.Meta.Urgency)
	}
	if loc := rec.Header().Get("Location"); loc != "/api/quotes/"+created.ID {
		t.Fatalf("unexpected Location header %q", loc)
	}

	rec = do(t, h, http.MethodGet, "/api/quotes/"+created.ID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var fetched savedQuoteBody
	decodeBody(t, rec, &fetched)
	if !fetched.Quote.GrandTotal.Equal(created.Quote.GrandTotal) || fetched.Meta.Title != "Henderson furnace swap" {
		t.Fatalf("fetched quote differs from created: %+v", fetched)
	}

	rec = do(t, h, http.MethodGet, "/api/quotes/"+created.ID+"/checkout", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var payload checkoutPayload
	decodeBody(t, rec, &payload)
	if payload.Amount != 481400 || payload.Currency != "CAD" {
		t.Fatalf("unexpected checkout amount: %+v", payload)
	}
	wantDescription := "60,000 BTU 92% AFUE Furnace x1 @ 3150.00 = 3150.00\n" +
		"Installation: 60,000 BTU 92% AFUE Furnace x1 @ 1664.00 = 1664.00"
	if payload.Description != wantDescription {
		t.Fatalf("unexpected description:\n%s", payload.Description)
	}

	rec = do(t, h, http.MethodGet, "/api/quotes?q=henderson", "")
	var list struct {
		Quotes []struct {
			ID string `json:"id"`
		} `json:"quotes"`
	}
	decodeBody(t, rec, &list)
	if len(list.Quotes) != 1 || list.Quotes[0].ID != created.ID {
		t.Fatalf("expected search to find the saved quote, got %+v", list.Quotes)
	}
}

func TestQuoteCreateErrors(t *testing.T) {
	srv := newTestServer(t)
	h := srv.routes()

	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{"malformed body", `{"complexity":`, http.StatusBadRequest},
		{"unknown field", `{"complexity": "simple", "discount": 10}`, http.StatusBadRequest},
		{"unknown complexity", `{"complexity": "heroic", "selections": []}`, http.StatusUnprocessableEntity},
		{"unknown urgency", `{"complexity": "simple", "urgency": "yesterday"}`, http.StatusUnprocessableEntity},
		{"negative quantity", `{"complexity": "simple", "selections": [{"category": "material", "match_key": "DUCT-6", "quantity": -2}]}`, http.StatusUnprocessableEntity},
		{"missing item", `{"complexity": "simple", "selections": [{"category": "ac", "match_key": "7/30 SEER"}]}`, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/api/quotes", tt.body)
			if rec.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d: %s", tt.wantStatus, rec.Code, rec.Body.String())
			}
		})
	}

	rec := do(t, h, http.MethodGet, "/api/quotes", "")
	var list struct {
		Quotes []json.RawMessage `json:"quotes"`
	}
	decodeBody(t, rec, &list)
	if len(list.Quotes) != 0 {
		t.Fatalf("failed builds must not be saved, found %d quotes", len(list.Quotes))
	}
}

func TestHandleQuoteDetailNotFound(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/quotes/does-not-exist", nil)
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("id", "does-not-exist")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))

	rec := httptest.NewRecorder()
	srv.handleQuoteDetail(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}
}

func TestRebatesEndpoint(t *testing.T) {
	srv := newTestServer(t)
	h := srv.routes()

	rec := do(t, h, http.MethodGet, "/api/rebates?category=furnace&efficiency=96", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Programs []programBody   `json:"programs"`
		Total    decimal.Decimal `json:"total"`
	}
	decodeBody(t, rec, &body)
	if len(body.Programs) != 2 || !body.Total.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("expected two stacked rebates totalling 1000, got %+v", body)
	}

	rec = do(t, h, http.MethodGet, "/api/rebates?category=furnace&efficiency=80", "")
	decodeBody(t, rec, &body)
	if len(body.Programs) != 0 || !body.Total.IsZero() {
		t.Fatalf("expected no rebates for an 80%% furnace, got %+v", body)
	}

	for _, target := range []string{"/api/rebates?category=boiler&efficiency=90", "/api/rebates?category=ac&efficiency=high"} {
		if rec := do(t, h, http.MethodGet, target, ""); rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("%s: expected status 422, got %d", target, rec.Code)
		}
	}
}

func TestROIEndpoint(t *testing.T) {
	srv := newTestServer(t)
	h := srv.routes()

	rec := do(t, h, http.MethodPost, "/api/roi", `{
		"current": {"category": "furnace", "efficiency_rating": 80},
		"proposed": {"category": "furnace", "efficiency_rating": 96, "price": 4275},
		"monthly_bill": 250
	}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body struct {
		AnnualSavings decimal.Decimal `json:"annual_savings"`
		NetCost       decimal.Decimal `json:"net_cost"`
		Payback       struct {
			Status string          `json:"status"`
			Years  decimal.Decimal `json:"years"`
		} `json:"payback"`
	}
	decodeBody(t, rec, &body)
	if !body.AnnualSavings.Equal(decimal.NewFromInt(480)) || !body.NetCost.Equal(decimal.NewFromInt(3275)) {
		t.Fatalf("unexpected savings/net cost: %+v", body)
	}
	if body.Payback.Status != "payback" || !body.Payback.Years.Equal(decimal.RequireFromString("6.82")) {
		t.Fatalf("unexpected payback: %+v", body.Payback)
	}

	rec = do(t, h, http.MethodPost, "/api/roi", `{
		"current": {"category": "furnace", "efficiency_rating": 0},
		"proposed": {"category": "furnace", "efficiency_rating": 96, "price": 4275},
		"monthly_bill": 250
	}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status 422 for zero rating, got %d", rec.Code)
	}
}

func TestAdminRoutesRequireSession(t *testing.T) {
	srv := newTestServer(t)
	h := srv.routes()

	if rec := do(t, h, http.MethodGet, "/admin/catalog", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401 without session, got %d", rec.Code)
	}

	form := url.Values{"email": {testAdminEmail}, "password": {"wrong"}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401 for bad password, got %d", rec.Code)
	}

	form.Set("password", testAdminPassword)
	req = httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected status 303 after login, got %d: %s", rec.Code, rec.Body.String())
	}

	var session *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookieName {
			session = c
		}
	}
	if session == nil || session.Value == "" {
		t.Fatal("expected a session cookie after login")
	}

	rec = do(t, h, http.MethodGet, "/admin/catalog", "", session)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 with session, got %d", rec.Code)
	}
}

func TestAdminReloadSwapsEngine(t *testing.T) {
	srv := newTestServer(t)
	h := srv.routes()

	token, err := srv.auth.createSessionValue(testAdminEmail)
	if err != nil {
		t.Fatalf("createSessionValue: %v", err)
	}
	session := &http.Cookie{Name: sessionCookieName, Value: token}

	before := srv.engine.Load()
	if _, err := srv.db.Exec(`UPDATE catalog_items SET unit_price_cents = 300000 WHERE match_key = ?`, "60000/92% AFUE"); err != nil {
		t.Fatalf("update price: %v", err)
	}

	// The live engine keeps the old price until a reload.
	item, err := srv.engine.Load().Catalog().FindItem("furnace", "60000/92% AFUE")
	if err != nil || !item.UnitPrice.Equal(decimal.NewFromInt(3150)) {
		t.Fatalf("expected old price before reload, got %s (%v)", item.UnitPrice, err)
	}

	rec := do(t, h, http.MethodPost, "/admin/catalog/reload", "", session)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if srv.engine.Load() == before {
		t.Fatal("expected reload to install a new engine")
	}

	item, err = srv.engine.Load().Catalog().FindItem("furnace", "60000/92% AFUE")
	if err != nil || !item.UnitPrice.Equal(decimal.NewFromInt(3000)) {
		t.Fatalf("expected new price after reload, got %s (%v)", item.UnitPrice, err)
	}
	oldItem, _ := before.Catalog().FindItem("furnace", "60000/92% AFUE")
	if !oldItem.UnitPrice.Equal(decimal.NewFromInt(3150)) {
		t.Fatalf("previous engine must stay unchanged, got %s", oldItem.UnitPrice)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	srv := newTestServer(t)
	h := srv.routes()

	if rec := do(t, h, http.MethodGet, "/healthz", ""); rec.Code != http.StatusOK {
		t.Fatalf("expected healthz 200, got %d", rec.Code)
	}
	do(t, h, http.MethodPost, "/api/quotes", `{"complexity": "simple", "selections": [{"category": "fitting", "match_key": "ELBOW-6", "quantity": 4}]}`)

	rec := do(t, h, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected metrics 200, got %d", rec.Code)
	}
	for _, want := range []string{
		`hvac_quotes_built_total{outcome="ok"} 1`,
		`route="/api/quotes"`,
	} {
		if !strings.Contains(rec.Body.String(), want) {
			t.Fatalf("expected metrics output to contain %q", want)
		}
	}
}

func TestMetricsLabelUnknownPathsAsUnmatched(t *testing.T) {
	srv := newTestServer(t)
	h := srv.routes()

	for _, path := range []string{"/wp-login.php", "/scan-1", "/scan-2"} {
		if rec := do(t, h, http.MethodGet, path, ""); rec.Code != http.StatusNotFound {
			t.Fatalf("%s: expected status 404, got %d", path, rec.Code)
		}
	}

	body := do(t, h, http.MethodGet, "/metrics", "").Body.String()
	want := `hvac_http_request_duration_seconds_count{method="GET",route="unmatched",status="404"} 3`
	if !strings.Contains(body, want) {
		t.Fatalf("expected metrics output to contain %q", want)
	}
	for _, path := range []string{"/wp-login.php", "/scan-1", "/scan-2"} {
		if strings.Contains(body, `route="`+path+`"`) {
			t.Fatalf("raw path %s leaked into the route label", path)
		}
	}
}
