package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"respcare-monitor/internal/config"
	"respcare-monitor/internal/vitals/application"
	"respcare-monitor/internal/vitals/demo"
	vitals "respcare-monitor/internal/vitals/domain"
	"respcare-monitor/internal/vitals/infrastructure/file"
	"respcare-monitor/internal/vitals/infrastructure/memory"
	"respcare-monitor/internal/vitals/infrastructure/postgres"
	redisstore "respcare-monitor/internal/vitals/infrastructure/redis"
	"respcare-monitor/internal/vitals/interfaces/export"
	"respcare-monitor/internal/vitals/notify"
)

// app holds the wired service graph for one command invocation.
type app struct {
	cfg        *config.Config
	logger     *zap.Logger
	classifier *vitals.Classifier
	store      *application.Store
	service    *application.Service
	notifier   *notify.Notifier
	closers    []io.Closer
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// buildApp wires persistence, classification and notification. extra
// notifiers (the SSE broker for serve) are added to the fan-out.
func buildApp(ctx context.Context, cfg *config.Config, logger *zap.Logger, extra ...application.AlertNotifier) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	classifier, err := config.BuildClassifier(cfg.Thresholds)
	if err != nil {
		return nil, err
	}
	a.classifier = classifier

	persist, err := a.openPersistence(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	store, err := application.OpenStore(ctx, persist,
		application.WithLogger(logger),
		application.WithBackendName(cfg.Storage.Backend),
	)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.store = store

	var svc *application.Service
	notifiers := append([]application.AlertNotifier{}, extra...)
	if cfg.Notify.WebhookURL != "" {
		n, err := a.buildWebhookNotifier(func() []vitals.Alert { return svc.Alerts() })
		if err != nil {
			a.Close()
			return nil, err
		}
		a.notifier = n
		a.closers = append(a.closers, closerFunc(func() error { n.Close(); return nil }))
		notifiers = append(notifiers, n)
	}

	opts := []application.ServiceOption{
		application.WithServiceLogger(logger),
		application.WithPalette(application.Palette{
			Normal:  cfg.Palette.Normal,
			Warning: cfg.Palette.Warning,
			Danger:  cfg.Palette.Danger,
		}),
		application.WithEmergencyContact(application.EmergencyContact{
			Name:  cfg.Emergency.Name,
			Phone: cfg.Emergency.Phone,
			Note:  cfg.Emergency.Note,
		}),
	}
	if len(notifiers) > 0 {
		opts = append(opts, application.WithNotifier(notify.NewMultiNotifier(notifiers...)))
	}
	svc, err = application.NewService(store, classifier, cfg.PatientID, opts...)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.service = svc

	if cfg.Demo.SeedOnEmpty && store.Len() == 0 {
		if _, err := a.seed(ctx, cfg.Demo.Days, cfg.Demo.PerDay, cfg.Demo.Seed); err != nil {
			a.Close()
			return nil, err
		}
	}
	return a, nil
}

func (a *app) openPersistence(ctx context.Context) (application.Persistence, error) {
	st := a.cfg.Storage
	switch st.Backend {
	case config.BackendMemory:
		return memory.NewObservationStore(), nil
	case config.BackendFile:
		return file.NewObservationStore(st.FilePath, a.cfg.PatientID), nil
	case config.BackendPostgres:
		db, err := sql.Open("pgx", st.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		a.closers = append(a.closers, db)
		if err := db.PingContext(ctx); err != nil {
			return nil, fmt.Errorf("ping postgres: %w", err)
		}
		repo := postgres.NewObservationRepository(db, a.cfg.PatientID, postgres.WithTable(st.PostgresTable))
		if err := repo.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		return repo, nil
	case config.BackendRedis:
		client := redisstore.NewClient(st.RedisAddr, st.RedisPassword, st.RedisDB)
		a.closers = append(a.closers, client)
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		return redisstore.NewObservationStore(client, a.cfg.PatientID, redisstore.WithKeyPrefix(st.RedisKeyPrefix)), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", st.Backend)
	}
}

func (a *app) buildWebhookNotifier(active notify.AlertReaderFunc) (*notify.Notifier, error) {
	n := a.cfg.Notify
	envelope, err := notify.ParseEnvelope(n.Envelope)
	if err != nil {
		return nil, err
	}
	opts := []notify.WebhookOption{notify.WithEnvelope(envelope)}
	if n.Token != "" {
		opts = append(opts, notify.WithHeader("Authorization", "Bearer "+n.Token))
	}
	channel, err := notify.NewWebhookChannel(n.WebhookURL, opts...)
	if err != nil {
		return nil, err
	}
	tpl, err := notify.NewTemplate(n.Template)
	if err != nil {
		return nil, fmt.Errorf("notify template: %w", err)
	}
	contact := strings.TrimSpace(a.cfg.Emergency.Name + " " + a.cfg.Emergency.Phone)
	return notify.NewNotifier(channel, tpl,
		notify.WithLogger(a.logger),
		notify.WithCooldown(n.Cooldown),
		notify.WithDedupeWindow(n.DedupeWindow),
		notify.WithRequestTimeout(n.Timeout),
		notify.WithEscalation(n.Escalation, active),
		notify.WithContact(contact),
	)
}

// seed appends generated readings ending now.
func (a *app) seed(ctx context.Context, days, perDay int, seed int64) (int, error) {
	rng := rand.New(rand.NewSource(seed))
	batch := demo.Generate(rng, a.cfg.PatientID, time.Now().UTC().Truncate(time.Minute), days, perDay, a.classifier)
	if err := a.store.AppendAll(ctx, batch); err != nil {
		return 0, err
	}
	a.logger.Info("demo observations seeded", zap.Int("count", len(batch)))
	return len(batch), nil
}

func (a *app) exportOptions() export.Options {
	loc, err := time.LoadLocation(a.cfg.Export.Timezone)
	if err != nil {
		loc = time.UTC
	}
	return export.Options{FontPath: a.cfg.Export.FontPath, Location: loc}
}

// Close releases backend connections.
func (a *app) Close() error {
	if a == nil {
		return nil
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
