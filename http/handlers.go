package http

import (
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"laptopprice/app"
	"laptopprice/catalog"
	"laptopprice/ml"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 200
)

//go:embed templates/*.html
var templateFS embed.FS

// Handlers 估价接口
type Handlers struct {
	app    *app.App
	feed   *Feed
	form   *template.Template
	logger *zap.Logger
}

// NewHandlers feed 可以为空，为空时不推送
func NewHandlers(a *app.App, feed *Feed) (*Handlers, error) {
	form, err := template.ParseFS(templateFS, "templates/form.html")
	if err != nil {
		return nil, err
	}
	logger := a.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{app: a, feed: feed, form: form, logger: logger}, nil
}

func (h *Handlers) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/health", handleHealth)
	mux.HandleFunc("GET /api/options", h.handleOptions)
	mux.HandleFunc("POST /api/predict", h.handlePredict)
	mux.HandleFunc("GET /api/predictions", h.handlePredictions)
	mux.HandleFunc("GET /api/metrics", h.handleMetrics)
	if h.feed != nil {
		mux.HandleFunc("GET /api/ws/predictions", h.feed.HandleWebSocket)
	}
	mux.HandleFunc("GET /{$}", h.handleForm)
	mux.HandleFunc("POST /predict", h.handleFormSubmit)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handlers) handleOptions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.app.Catalog.Options())
}

// yesNo 接受 true/false 或表单标签 "Yes"/"No"
type yesNo bool

func (v *yesNo) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*v = yesNo(b)
		return nil
	}
	var label string
	if err := json.Unmarshal(data, &label); err != nil {
		return errors.New("expected a boolean or Yes/No")
	}
	parsed, err := ml.ParseYesNo("flag", label)
	if err != nil {
		return err
	}
	*v = yesNo(parsed)
	return nil
}

type predictRequest struct {
	Company     string  `json:"company"`
	TypeName    string  `json:"type_name"`
	Ram         int     `json:"ram"`
	Weight      float64 `json:"weight"`
	TouchScreen yesNo   `json:"touchscreen"`
	IPS         yesNo   `json:"ips"`
	CPU         string  `json:"cpu"`
	HDD         int     `json:"hdd"`
	SSD         int     `json:"ssd"`
	GPU         string  `json:"gpu"`
	OpSys       string  `json:"os"`
	ScreenSize  float64 `json:"screen_size"`
	Resolution  string  `json:"resolution"`
}

func (p predictRequest) spec() ml.LaptopSpec {
	return ml.LaptopSpec{
		Company:     p.Company,
		TypeName:    p.TypeName,
		Ram:         p.Ram,
		Weight:      p.Weight,
		TouchScreen: bool(p.TouchScreen),
		IPS:         bool(p.IPS),
		CPU:         p.CPU,
		HDD:         p.HDD,
		SSD:         p.SSD,
		GPU:         p.GPU,
		OpSys:       p.OpSys,
		ScreenSize:  p.ScreenSize,
		Resolution:  p.Resolution,
	}
}

func (h *Handlers) handlePredict(w http.ResponseWriter, r *http.Request) {
	var req predictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error(), "")
		return
	}
	est, err := h.app.Estimate(r.Context(), req.spec())
	if err != nil {
		h.writeEstimateError(w, err)
		return
	}
	h.logger.Info("estimate served",
		zap.String("request_id", GetRequestID(r.Context())),
		zap.Int("amount", est.Result.Amount),
		zap.Int64("record_id", est.RecordID),
	)
	h.publish(est)
	writeJSON(w, http.StatusOK, est)
}

func (h *Handlers) handlePredictions(w http.ResponseWriter, r *http.Request) {
	if h.app.Store == nil {
		writeError(w, http.StatusNotFound, "prediction history is disabled", "")
		return
	}
	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		l, err := strconv.Atoi(v)
		if err != nil || l <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer", "limit")
			return
		}
		limit = min(l, maxHistoryLimit)
	}

	records, err := h.app.Store.Recent(r.Context(), limit)
	if err != nil {
		h.logger.Error("history query failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "history unavailable", "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count": len(records),
		"data":  records,
	})
}

// handleMetrics 默认返回JSON，format=prometheus 返回文本格式
func (h *Handlers) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("format") == "prometheus" {
		h.app.Metrics.Handler().ServeHTTP(w, r)
		return
	}
	snapshot, err := h.app.Metrics.Snapshot()
	if err != nil {
		h.logger.Error("metrics gather failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "metrics unavailable", "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"metrics": snapshot,
		"feed":    h.feedClients(),
	})
}

func (h *Handlers) feedClients() int {
	if h.feed == nil {
		return 0
	}
	return h.feed.Clients()
}

type formView struct {
	Layout   string
	Options  catalog.Options
	Selected ml.LaptopSpec
	Estimate *app.Estimate
	Error    string
}

func (h *Handlers) handleForm(w http.ResponseWriter, r *http.Request) {
	h.renderForm(w, http.StatusOK, formView{
		Selected: ml.LaptopSpec{Weight: ml.MinWeight, ScreenSize: ml.MinScreenSize},
	})
}

func (h *Handlers) handleFormSubmit(w http.ResponseWriter, r *http.Request) {
	spec, err := parseForm(r)
	if err != nil {
		h.renderForm(w, http.StatusBadRequest, formView{Selected: spec, Error: err.Error()})
		return
	}

	est, err := h.app.Estimate(r.Context(), spec)
	if err != nil {
		status := http.StatusInternalServerError
		msg := "Prediction failed, please try again."
		if ml.IsInvalidInput(err) {
			status = http.StatusBadRequest
			msg = err.Error()
		}
		h.renderForm(w, status, formView{Selected: spec, Error: msg})
		return
	}
	h.publish(est)
	h.renderForm(w, http.StatusOK, formView{Selected: spec, Estimate: &est})
}

func (h *Handlers) renderForm(w http.ResponseWriter, status int, view formView) {
	view.Layout = h.app.Config.UI.Layout
	view.Options = h.app.Catalog.Options()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := h.form.Execute(w, view); err != nil {
		h.logger.Error("render form failed", zap.Error(err))
	}
}

func (h *Handlers) publish(est app.Estimate) {
	if h.feed == nil {
		return
	}
	h.feed.Publish(EstimateMessage, est)
}

func (h *Handlers) writeEstimateError(w http.ResponseWriter, err error) {
	var inputErr *ml.InvalidInputError
	if errors.As(err, &inputErr) {
		writeError(w, http.StatusBadRequest, inputErr.Error(), inputErr.Field)
		return
	}
	if ml.IsPredictionFailure(err) {
		writeError(w, http.StatusInternalServerError, "prediction failed", "")
		return
	}
	h.logger.Error("unexpected estimate error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal server error", "")
}

// parseForm 读取表单字段，数字格式错误按无效输入处理
func parseForm(r *http.Request) (ml.LaptopSpec, error) {
	if err := r.ParseForm(); err != nil {
		return ml.LaptopSpec{}, &ml.InvalidInputError{Field: "form", Reason: err.Error()}
	}
	spec := ml.LaptopSpec{
		Company:    r.PostFormValue("company"),
		TypeName:   r.PostFormValue("type_name"),
		CPU:        r.PostFormValue("cpu"),
		GPU:        r.PostFormValue("gpu"),
		OpSys:      r.PostFormValue("os"),
		Resolution: r.PostFormValue("resolution"),
	}

	ints := []struct {
		key, column string
		dst         *int
	}{
		{"ram", ml.ColRam, &spec.Ram},
		{"hdd", ml.ColHDD, &spec.HDD},
		{"ssd", ml.ColSSD, &spec.SSD},
	}
	for _, f := range ints {
		v, err := strconv.Atoi(strings.TrimSpace(r.PostFormValue(f.key)))
		if err != nil {
			return spec, &ml.InvalidInputError{Field: f.column, Reason: "must be a whole number"}
		}
		*f.dst = v
	}

	floats := []struct {
		key, column string
		dst         *float64
	}{
		{"weight", ml.ColWeight, &spec.Weight},
		{"screen_size", ml.ColScreenSize, &spec.ScreenSize},
	}
	for _, f := range floats {
		v, err := strconv.ParseFloat(strings.TrimSpace(r.PostFormValue(f.key)), 64)
		if err != nil {
			return spec, &ml.InvalidInputError{Field: f.column, Reason: "must be a number"}
		}
		*f.dst = v
	}

	var err error
	if spec.TouchScreen, err = ml.ParseYesNo(ml.ColTouchScreen, r.PostFormValue("touchscreen")); err != nil {
		return spec, err
	}
	if spec.IPS, err = ml.ParseYesNo(ml.ColIPS, r.PostFormValue("ips")); err != nil {
		return spec, err
	}
	return spec, nil
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message, field string) {
	body := map[string]string{"error": message}
	if field != "" {
		body["field"] = field
	}
	writeJSON(w, status, body)
}
