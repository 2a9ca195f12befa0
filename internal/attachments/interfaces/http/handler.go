package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	attachments "respcare-monitor/internal/attachments/domain"
)

// Clock provides time.
type Clock interface {
	Now() time.Time
}

// Handler serves /api/v1/photos and /api/v1/devices.
type Handler struct {
	repo      attachments.Repository
	patientID string
	clock     Clock
	logger    *zap.Logger
}

// NewHandler constructs a handler for patientID.
func NewHandler(repo attachments.Repository, patientID string, clock Clock, logger *zap.Logger) (*Handler, error) {
	if repo == nil {
		return nil, errors.New("attachments handler: nil repository")
	}
	if patientID == "" {
		return nil, errors.New("attachments handler: empty patient id")
	}
	if clock == nil {
		clock = systemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, patientID: patientID, clock: clock, logger: logger}, nil
}

// Register mounts the handler's routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.Handle("/api/v1/photos", h)
	mux.Handle("/api/v1/devices", h)
}

// ServeHTTP routes attachment requests.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/api/v1/photos" && r.Method == http.MethodGet:
		photos, err := h.repo.ListPhotos(r.Context())
		h.respond(w, http.StatusOK, photos, err)
	case r.URL.Path == "/api/v1/photos" && r.Method == http.MethodPost:
		h.handleAddPhoto(w, r)
	case r.URL.Path == "/api/v1/devices" && r.Method == http.MethodGet:
		devices, err := h.repo.ListDevices(r.Context())
		h.respond(w, http.StatusOK, devices, err)
	case r.URL.Path == "/api/v1/devices" && r.Method == http.MethodPost:
		h.handleSaveDevice(w, r)
	case r.URL.Path == "/api/v1/photos" || r.URL.Path == "/api/v1/devices":
		w.WriteHeader(http.StatusMethodNotAllowed)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *Handler) handleAddPhoto(w http.ResponseWriter, r *http.Request) {
	var photo attachments.Photo
	if err := decode(r, attachments.MaxPhotoBytes*2, &photo); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	photo.ID = uuid.NewString()
	photo.PatientID = h.patientID
	if photo.TakenAt.IsZero() {
		photo.TakenAt = h.clock.Now().UTC()
	}
	h.respond(w, http.StatusCreated, photo, h.repo.AddPhoto(r.Context(), photo))
}

func (h *Handler) handleSaveDevice(w http.ResponseWriter, r *http.Request) {
	var device attachments.Device
	if err := decode(r, 64<<10, &device); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if device.ID == "" {
		device.ID = uuid.NewString()
	}
	device.PatientID = h.patientID
	device.UpdatedAt = h.clock.Now().UTC()
	h.respond(w, http.StatusCreated, device, h.repo.SaveDevice(r.Context(), device))
}

func (h *Handler) respond(w http.ResponseWriter, status int, v any, err error) {
	if err != nil {
		if errors.Is(err, attachments.ErrInvalidPhoto) || errors.Is(err, attachments.ErrInvalidDevice) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.logger.Error("attachments request failed", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decode(r *http.Request, limit int64, v any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, limit))
	if err != nil {
		return err
	}
	return json.Unmarshal(body, v)
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }
