package http

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"respcare-monitor/internal/vitals/application"
	"respcare-monitor/internal/vitals/interfaces/export"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	pdfContentType  = "application/pdf"
)

// ExportHandler serves GET /api/v1/exports/observations.{xlsx,pdf}.
type ExportHandler struct {
	service *application.Service
	opts    export.Options
	logger  *zap.Logger
}

// NewExportHandler constructs an export handler.
func NewExportHandler(service *application.Service, opts export.Options, logger *zap.Logger) (*ExportHandler, error) {
	if service == nil {
		return nil, errors.New("export handler: nil service")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportHandler{service: service, opts: opts, logger: logger}, nil
}

// ServeHTTP renders the requested document.
func (h *ExportHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	report := export.Report{
		Dashboard:    h.service.Dashboard(),
		Observations: h.service.Observations(""),
	}

	var (
		data        []byte
		err         error
		contentType string
		filename    string
	)
	switch r.URL.Path {
	case "/api/v1/exports/observations.xlsx":
		data, err = export.BuildObservationsXLSX(report, h.opts)
		contentType, filename = xlsxContentType, "observations.xlsx"
	case "/api/v1/exports/observations.pdf":
		data, err = export.BuildObservationsPDF(report, h.opts)
		contentType, filename = pdfContentType, "observations.pdf"
	default:
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("export failed", zap.String("path", r.URL.Path), zap.Error(err))
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
