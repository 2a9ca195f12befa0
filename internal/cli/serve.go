package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	attachfile "respcare-monitor/internal/attachments/infrastructure/file"
	attachhttp "respcare-monitor/internal/attachments/interfaces/http"
	"respcare-monitor/internal/logging"
	"respcare-monitor/internal/observability/metrics"
	vitalshttp "respcare-monitor/internal/vitals/interfaces/http"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Serve the dashboard API, the alert event stream, exports, attachments,
Prometheus metrics on /metrics and a liveness check on /healthz.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runServe(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides http.addr)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.HTTP.Addr = serveAddr
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format, serviceName)
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	metrics.Init()
	broker := vitalshttp.NewSSEBroker()
	a, err := buildApp(ctx, cfg, logger, broker)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("closing backends", zap.Error(err))
		}
	}()

	handler, err := newServerHandler(a, broker)
	if err != nil {
		return err
	}
	server := newHTTPServer(cfg.HTTP.Addr, handler, broker)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening",
			zap.String("addr", cfg.HTTP.Addr),
			zap.String("patient_id", cfg.PatientID),
			zap.String("storage", cfg.Storage.Backend),
		)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// newHTTPServer ends open alert streams on Shutdown so it does not wait out
// its deadline on connected dashboards.
func newHTTPServer(addr string, handler http.Handler, broker *vitalshttp.SSEBroker) *http.Server {
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	if broker != nil {
		server.RegisterOnShutdown(broker.Close)
	}
	return server
}

// newServerHandler builds the routed, logged HTTP handler for a.
func newServerHandler(a *app, broker *vitalshttp.SSEBroker) (http.Handler, error) {
	metrics.RegisterSnapshotGauges(a.store.Len, func() int { return len(a.service.Alerts()) })

	mux := http.NewServeMux()

	vitalsHandler, err := vitalshttp.NewHandler(a.service, a.logger)
	if err != nil {
		return nil, err
	}
	vitalsHandler.Register(mux)

	exportHandler, err := vitalshttp.NewExportHandler(a.service, a.exportOptions(), a.logger)
	if err != nil {
		return nil, err
	}
	mux.Handle("/api/v1/exports/observations.xlsx", exportHandler)
	mux.Handle("/api/v1/exports/observations.pdf", exportHandler)

	if broker != nil {
		mux.Handle("/api/v1/alerts/stream", vitalshttp.NewStreamHandler(broker))
	}

	attachHandler, err := attachhttp.NewHandler(attachfile.NewRepository(a.cfg.Attachments.Path), a.cfg.PatientID, nil, a.logger)
	if err != nil {
		return nil, err
	}
	attachHandler.Register(mux)

	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return vitalshttp.LoggingMiddleware(mux, a.logger), nil
}
