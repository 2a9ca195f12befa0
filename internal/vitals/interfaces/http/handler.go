package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"respcare-monitor/internal/vitals/application"
	vitals "respcare-monitor/internal/vitals/domain"
)

const (
	timeLayout   = time.RFC3339
	maxBodyBytes = 1 << 20
)

// Handler serves the dashboard API under /api/v1.
type Handler struct {
	service *application.Service
	logger  *zap.Logger
}

// NewHandler constructs a handler.
func NewHandler(service *application.Service, logger *zap.Logger) (*Handler, error) {
	if service == nil {
		return nil, errors.New("vitals handler: nil service")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{service: service, logger: logger}, nil
}

// Register mounts the handler's routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	for _, path := range []string{
		"/api/v1/observations",
		"/api/v1/latest",
		"/api/v1/cards",
		"/api/v1/alerts",
		"/api/v1/series",
		"/api/v1/emergency",
		"/api/v1/thresholds",
	} {
		mux.Handle(path, h)
	}
}

// ServeHTTP routes dashboard requests.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/api/v1/observations":
		switch r.Method {
		case http.MethodGet:
			h.handleList(w, r)
		case http.MethodPost:
			h.handleRecord(w, r)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	switch r.URL.Path {
	case "/api/v1/latest":
		h.handleLatest(w, r)
	case "/api/v1/cards":
		writeJSON(w, http.StatusOK, h.service.Dashboard())
	case "/api/v1/alerts":
		writeJSON(w, http.StatusOK, h.service.Alerts())
	case "/api/v1/series":
		h.handleSeries(w, r)
	case "/api/v1/emergency":
		writeJSON(w, http.StatusOK, h.service.Emergency())
	case "/api/v1/thresholds":
		h.handleThresholds(w)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	signal := vitals.SignalType(r.URL.Query().Get("type"))
	writeJSON(w, http.StatusOK, h.service.Observations(signal))
}

func (h *Handler) handleRecord(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	var in application.RecordInput
	if err := json.Unmarshal(body, &in); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	in.Type = vitals.SignalType(strings.TrimSpace(string(in.Type)))

	o, err := h.service.Record(r.Context(), in)
	if err != nil {
		switch {
		case errors.Is(err, vitals.ErrInvalidObservation):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, application.ErrPersist):
			h.logger.Error("record observation", zap.Error(err))
			http.Error(w, "observation could not be saved", http.StatusInsufficientStorage)
		default:
			h.logger.Error("record observation", zap.Error(err))
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, http.StatusCreated, o)
}

type latestResponse struct {
	Signals       map[vitals.SignalType]vitals.Observation `json:"signals"`
	BloodPressure *vitals.BloodPressure                    `json:"bloodPressure"`
}

func (h *Handler) handleLatest(w http.ResponseWriter, r *http.Request) {
	if raw := r.URL.Query().Get("type"); raw != "" {
		o, ok := h.service.Latest(vitals.SignalType(raw))
		if !ok {
			http.Error(w, "no observations", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, o)
		return
	}
	all := h.service.Observations("")
	resp := latestResponse{Signals: make(map[vitals.SignalType]vitals.Observation)}
	for _, signal := range vitals.AllSignals {
		if o, ok := vitals.LatestOf(all, signal); ok {
			resp.Signals[signal] = o
		}
	}
	if bp, ok := vitals.LatestBloodPressure(all); ok {
		resp.BloodPressure = &bp
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleSeries(w http.ResponseWriter, r *http.Request) {
	signal := vitals.SignalType(r.URL.Query().Get("type"))
	if signal == "" {
		http.Error(w, "type is required", http.StatusBadRequest)
		return
	}
	from, err := parseOptionalTime(r, "from")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	to, err := parseOptionalTime(r, "to")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !from.IsZero() && !to.IsZero() && !to.After(from) {
		http.Error(w, "to must be after from", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, h.service.Series(signal, from, to))
}

type thresholdsResponse struct {
	DiastolicMode vitals.DiastolicMode                      `json:"diastolicMode"`
	Sets          map[vitals.SignalType]vitals.ThresholdSet `json:"sets"`
}

func (h *Handler) handleThresholds(w http.ResponseWriter) {
	classifier := h.service.Classifier()
	writeJSON(w, http.StatusOK, thresholdsResponse{
		DiastolicMode: classifier.DiastolicMode(),
		Sets:          classifier.Table().Sets(),
	})
}

func parseOptionalTime(r *http.Request, key string) (time.Time, error) {
	value := r.URL.Query().Get(key)
	if value == "" {
		return time.Time{}, nil
	}
	parsed, err := time.Parse(timeLayout, value)
	if err != nil {
		return time.Time{}, errors.New(key + " must be RFC3339")
	}
	return parsed.UTC(), nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
