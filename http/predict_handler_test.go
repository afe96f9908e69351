package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"laptopprice/app"
	"laptopprice/ml"
)

const dellBody = `{
	"company": "Dell", "type_name": "Notebook", "ram": 8, "weight": 2.1,
	"touchscreen": "Yes", "ips": false, "cpu": "Intel Core i5", "hdd": 0,
	"ssd": 256, "gpu": "Intel", "os": "Windows", "screen_size": 15.6,
	"resolution": "1920x1080"
}`

func postPredict(t *testing.T, mux http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/predict", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func TestHandlePredict(t *testing.T) {
	mux := newTestMux(t, newTestApp(t, true), nil)

	w := postPredict(t, mux, dellBody)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var est app.Estimate
	if err := json.Unmarshal(w.Body.Bytes(), &est); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if est.Features.TouchScreen != 1 || est.Features.IPS != 0 {
		t.Fatalf("unexpected flags (%d, %d)", est.Features.TouchScreen, est.Features.IPS)
	}
	if est.Result.High-est.Result.Low != 2000 {
		t.Fatalf("unexpected range %+v", est.Result)
	}
	if est.RecordID == 0 {
		t.Fatal("expected the estimate to be stored")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/predictions?limit=5", nil)
	hw := httptest.NewRecorder()
	mux.ServeHTTP(hw, req)
	if hw.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", hw.Code)
	}
	var history struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(hw.Body.Bytes(), &history); err != nil {
		t.Fatal(err)
	}
	if history.Count != 1 {
		t.Fatalf("expected 1 stored record, got %d", history.Count)
	}
}

func TestHandlePredictInvalidInput(t *testing.T) {
	mux := newTestMux(t, newTestApp(t, false), nil)

	tests := map[string]struct {
		body  string
		field string
	}{
		"bad resolution": {strings.Replace(dellBody, "1920x1080", "1920*1080", 1), ml.ColResolution},
		"heavy laptop":   {strings.Replace(dellBody, `"weight": 2.1`, `"weight": 9`, 1), ml.ColWeight},
		"unknown brand":  {strings.Replace(dellBody, `"Dell"`, `"Acme"`, 1), ml.ColCompany},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			w := postPredict(t, mux, tt.body)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
			}
			var payload map[string]string
			if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
				t.Fatal(err)
			}
			if payload["field"] != tt.field {
				t.Fatalf("expected field %s, got %v", tt.field, payload)
			}
		})
	}

	if w := postPredict(t, mux, `{"ram": "lots"}`); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed body, got %d", w.Code)
	}
}

type brokenModel struct{}

func (brokenModel) Predict(ctx context.Context, record ml.Record) (float64, error) {
	return 0, errors.New("pipeline missing")
}

func TestHandlePredictModelFailure(t *testing.T) {
	a := newTestApp(t, true)
	service, err := ml.NewService(brokenModel{}, ml.ServiceConfig{Margin: ml.DefaultMargin}, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	a.Service = service
	mux := newTestMux(t, a, nil)

	w := postPredict(t, mux, dellBody)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	records, err := a.Store.Recent(context.Background(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 0 {
		t.Fatalf("expected nothing stored, got %d rows", len(records))
	}
}

func TestYesNoAcceptsLabelsAndBools(t *testing.T) {
	var req predictRequest
	if err := json.NewDecoder(bytes.NewBufferString(`{"touchscreen": "yes", "ips": true}`)).Decode(&req); err != nil {
		t.Fatal(err)
	}
	if !bool(req.TouchScreen) || !bool(req.IPS) {
		t.Fatalf("unexpected flags %+v", req)
	}
	if err := json.Unmarshal([]byte(`{"ips": "sometimes"}`), &req); err == nil {
		t.Fatal("expected error for unknown label")
	}
}

func TestFeedBroadcastsEstimates(t *testing.T) {
	feed := NewFeed(nil)
	go feed.Run()
	defer feed.Stop()

	server := httptest.NewServer(newTestMux(t, newTestApp(t, false), feed))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/ws/predictions"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for feed.Clients() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	resp, err := http.Post(server.URL+"/api/predict", "application/json", strings.NewReader(dellBody))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if msg.Type != EstimateMessage || msg.ID == "" {
		t.Fatalf("unexpected message %+v", msg)
	}
	var est app.Estimate
	if err := json.Unmarshal(msg.Data, &est); err != nil {
		t.Fatal(err)
	}
	if est.Result.Amount == 0 {
		t.Fatalf("expected estimate payload, got %+v", est)
	}
}
