package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"laptopprice/app"
	"laptopprice/config"
)

func newTestApp(t *testing.T, persist bool) *app.App {
	t.Helper()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatal(err)
	}
	cfg.Dataset.Path = filepath.Join("..", "data", "traineddata.csv")
	cfg.Model.Path = filepath.Join("..", "models", "pipe.json")
	cfg.Store.Path = filepath.Join(t.TempDir(), "predictions.db")
	cfg.Store.Enabled = &persist
	a, err := app.New(cfg, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}

func newTestMux(t *testing.T, a *app.App, feed *Feed) http.Handler {
	t.Helper()
	handlers, err := NewHandlers(a, feed)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return NewHandler(DefaultServerConfig(), handlers, nil)
}

func TestHealthHandler(t *testing.T) {
	req, err := http.NewRequest("GET", "/api/health", nil)
	if err != nil {
		t.Fatal(err)
	}

	rr := httptest.NewRecorder()
	handler := http.HandlerFunc(handleHealth)

	handler.ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusOK {
		t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusOK)
	}

	expected := `{"status":"ok"}`
	if rr.Body.String() != expected+"\n" && rr.Body.String() != expected {
		t.Errorf("handler returned unexpected body: got %v want %v", rr.Body.String(), expected)
	}
}

func TestOptionsHandler(t *testing.T) {
	mux := newTestMux(t, newTestApp(t, false), nil)

	req := httptest.NewRequest(http.MethodGet, "/api/options", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var payload struct {
		Companies   []string `json:"companies"`
		Ram         []int    `json:"ram"`
		Resolutions []string `json:"resolutions"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(payload.Companies) == 0 || payload.Companies[0] != "HP" {
		t.Fatalf("expected dataset order, got %v", payload.Companies)
	}
	if len(payload.Ram) != 9 || len(payload.Resolutions) != 9 {
		t.Fatalf("unexpected fixed sets: %v %v", payload.Ram, payload.Resolutions)
	}
}

func TestFormRendersLayout(t *testing.T) {
	mux := newTestMux(t, newTestApp(t, false), nil)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "grid-template-columns: 1fr 1fr") {
		t.Fatal("expected two column layout")
	}
	if !strings.Contains(body, "<option>2304x1440</option>") {
		t.Fatal("expected resolution options")
	}
}

func TestFormSubmit(t *testing.T) {
	mux := newTestMux(t, newTestApp(t, false), nil)

	form := url.Values{
		"company":     {"Dell"},
		"type_name":   {"Notebook"},
		"ram":         {"8"},
		"cpu":         {"Intel Core i5"},
		"hdd":         {"0"},
		"ssd":         {"256"},
		"os":          {"Windows"},
		"gpu":         {"Intel"},
		"weight":      {"2.1"},
		"touchscreen": {"No"},
		"ips":         {"No"},
		"screen_size": {"15.6"},
		"resolution":  {"1920x1080"},
	}
	req := httptest.NewRequest(http.MethodPost, "/predict", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "₹37,819 – ₹39,819") {
		t.Fatalf("expected price range in page, got %s", w.Body.String())
	}

	form.Set("screen_size", "0")
	req = httptest.NewRequest(http.MethodPost, "/predict", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w = httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "error-box") {
		t.Fatal("expected inline error")
	}
}

func TestPredictionsDisabled(t *testing.T) {
	mux := newTestMux(t, newTestApp(t, false), nil)

	req := httptest.NewRequest(http.MethodGet, "/api/predictions", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestSecurityHeadersAndRequestID(t *testing.T) {
	mux := newTestMux(t, newTestApp(t, false), nil)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatal("expected security headers")
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Fatal("expected request id header")
	}
}

func TestMetricsHandler(t *testing.T) {
	mux := newTestMux(t, newTestApp(t, false), nil)

	postPredict(t, mux, dellBody)

	req := httptest.NewRequest(http.MethodGet, "/api/metrics?format=prometheus", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `estimates_total{outcome="ok"} 1`) {
		t.Fatalf("expected estimate counter, got %s", w.Body.String())
	}
}

func TestOutOfRangeRequestsAreCounted(t *testing.T) {
	mux := newTestMux(t, newTestApp(t, false), nil)

	body := strings.Replace(dellBody, `"screen_size": 15.6`, `"screen_size": 1`, 1)
	if w := postPredict(t, mux, body); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/metrics", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	var payload struct {
		Metrics []struct {
			Name   string            `json:"name"`
			Labels map[string]string `json:"labels"`
			Value  float64           `json:"value"`
		} `json:"metrics"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	found := false
	for _, m := range payload.Metrics {
		if m.Name == "estimates_total" && m.Labels["outcome"] == "invalid" && m.Value == 1 {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected one invalid estimate, got %+v", payload.Metrics)
	}
}

func TestRequestIDReachesHandlers(t *testing.T) {
	var seen string
	handler := LoggerMiddleware(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("X-Request-ID", "req-42")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if seen != "req-42" || w.Header().Get("X-Request-ID") != "req-42" {
		t.Fatalf("expected request id to propagate, got %q", seen)
	}
}
