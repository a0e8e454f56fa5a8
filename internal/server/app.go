// Package server builds the harvester's dependency graph and runs the HTTP
// service on top of it.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/JakeFAU/annual-report-harvester/internal/api"
	"github.com/JakeFAU/annual-report-harvester/internal/archive"
	"github.com/JakeFAU/annual-report-harvester/internal/clock/system"
	"github.com/JakeFAU/annual-report-harvester/internal/config"
	collyfetcher "github.com/JakeFAU/annual-report-harvester/internal/fetcher/colly"
	"github.com/JakeFAU/annual-report-harvester/internal/harvest"
	"github.com/JakeFAU/annual-report-harvester/internal/hash/sha256"
	"github.com/JakeFAU/annual-report-harvester/internal/id/uuid"
	"github.com/JakeFAU/annual-report-harvester/internal/metrics"
	"github.com/JakeFAU/annual-report-harvester/internal/miner"
	"github.com/JakeFAU/annual-report-harvester/internal/navigator"
	"github.com/JakeFAU/annual-report-harvester/internal/notify"
	"github.com/JakeFAU/annual-report-harvester/internal/pipeline"
	"github.com/JakeFAU/annual-report-harvester/internal/policy/ratelimit"
	gcppublisher "github.com/JakeFAU/annual-report-harvester/internal/publisher/pubsub"
	drivestore "github.com/JakeFAU/annual-report-harvester/internal/storage/drive"
	gcsstore "github.com/JakeFAU/annual-report-harvester/internal/storage/gcs"
	memorystore "github.com/JakeFAU/annual-report-harvester/internal/storage/memory"
	pgstore "github.com/JakeFAU/annual-report-harvester/internal/storage/postgres"
)

const shutdownTimeout = 10 * time.Second

// App owns the long-lived clients and the orchestrator built from config.
type App struct {
	cfg          config.Config
	logger       *zap.Logger
	orchestrator *pipeline.Orchestrator
	storage      *storage.Client
	pubsubClient *pubsub.Client
	publisher    *gcppublisher.Publisher
	pgLedger     *pgstore.Ledger
}

// Build creates the application's dependencies. On error every client opened
// so far is closed.
func Build(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics.Init()
	app := &App{cfg: cfg, logger: logger}
	app.logger.Info("building application dependencies",
		zap.Int("port", cfg.Server.Port),
		zap.String("archive_backend", cfg.Archive.Backend),
		zap.String("ledger_backend", cfg.Ledger.Backend),
		zap.Bool("pubsub", cfg.PubSubEnabled()),
	)

	orch, err := app.build(ctx)
	if err != nil {
		app.closeInfrastructure()
		return nil, err
	}
	app.orchestrator = orch
	return app, nil
}

func (a *App) build(ctx context.Context) (*pipeline.Orchestrator, error) {
	nav, err := a.setupNavigator()
	if err != nil {
		return nil, err
	}
	fetcher := collyfetcher.New(collyfetcher.Config{
		UserAgent:   a.cfg.Miner.UserAgent,
		Timeout:     a.cfg.DownloadTimeout(),
		MaxBodySize: a.cfg.Miner.MaxBytes,
	})
	backend, err := a.setupArchive(ctx)
	if err != nil {
		return nil, err
	}
	ledger, err := a.setupLedger(ctx)
	if err != nil {
		return nil, err
	}
	notifier, err := a.setupNotifier(ctx)
	if err != nil {
		return nil, err
	}
	selector, err := pipeline.NewReportSelector(a.cfg.Pipeline.ReportPattern, a.cfg.Pipeline.ReportIndex)
	if err != nil {
		return nil, fmt.Errorf("report selector init failed: %w", err)
	}

	deps := pipeline.Deps{
		Navigator: nav,
		Fetcher:   fetcher,
		Miner:     miner.New(fetcher, miner.NewPDFExtractor(), a.logger.Named("miner")),
		Folders: archive.NewHierarchy(backend, a.logger.Named("archive"),
			archive.WithSerializedCreates(a.cfg.Archive.SerializeFolders)),
		Uploader: archive.NewUploader(backend, a.cfg.Archive.ContentType, a.logger.Named("archive")),
		Granter:  archive.NewGranter(backend, a.cfg.Archive.Role, a.logger.Named("archive")),
		Notifier: notifier,
		Ledger:   ledger,
		Hasher:   sha256.New(),
		Clock:    system.New(),
		IDs:      uuid.New(),
	}
	orch, err := pipeline.New(deps, pipeline.Config{
		RootFolder:             a.cfg.Archive.RootFolder,
		Recipient:              a.cfg.Archive.Recipient,
		HaltAfterFirstIndustry: a.cfg.Pipeline.HaltAfterFirstIndustry,
		MinDocuments:           a.cfg.Pipeline.MinDocuments,
		Selector:               selector,
	}, a.logger)
	if err != nil {
		return nil, fmt.Errorf("pipeline init failed: %w", err)
	}
	a.logger.Info("pipeline config",
		zap.String("root_folder", a.cfg.Archive.RootFolder),
		zap.Bool("halt_after_first_industry", a.cfg.Pipeline.HaltAfterFirstIndustry),
		zap.Int("min_documents", a.cfg.Pipeline.MinDocuments),
		zap.Int("report_index", a.cfg.Pipeline.ReportIndex),
	)
	return orch, nil
}

func (a *App) setupNavigator() (*navigator.Navigator, error) {
	browser, err := navigator.NewChromeBrowser(navigator.ChromeConfig{
		MaxParallel:       a.cfg.Browser.MaxParallel,
		UserAgent:         a.cfg.Browser.UserAgent,
		NavigationTimeout: a.cfg.NavTimeout(),
		ExecPath:          a.cfg.Browser.ExecPath,
		NoSandbox:         a.cfg.Browser.NoSandbox,
	})
	if err != nil {
		return nil, fmt.Errorf("browser init failed: %w", err)
	}
	limiter := ratelimit.New(ratelimit.Config{
		DefaultRPS:   a.cfg.Browser.RatePerSecond,
		DefaultBurst: 1,
	})
	a.logger.Info("using headless browser",
		zap.Int("max_parallel", a.cfg.Browser.MaxParallel),
		zap.Float64("rate_per_second", a.cfg.Browser.RatePerSecond),
		zap.Duration("nav_timeout", a.cfg.NavTimeout()),
	)
	nav, err := navigator.New(browser, limiter, navigator.Config{
		IndustryListURL:  a.cfg.Site.IndustryListURL,
		IndustryViewURL:  a.cfg.Site.IndustryViewURL,
		ReportPathSuffix: a.cfg.Site.ReportPathSuffix,
	}, a.logger.Named("navigator"))
	if err != nil {
		return nil, fmt.Errorf("navigator init failed: %w", err)
	}
	return nav, nil
}

func (a *App) setupArchive(ctx context.Context) (archive.Backend, error) {
	switch a.cfg.Archive.Backend {
	case "gcs":
		a.logger.Info("using GCS archive backend", zap.String("bucket", a.cfg.GCS.Bucket))
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("gcs client init failed: %w", err)
		}
		a.storage = client
		backend, err := gcsstore.New(client, gcsstore.Config{Bucket: a.cfg.GCS.Bucket})
		if err != nil {
			return nil, fmt.Errorf("gcs archive init failed: %w", err)
		}
		return backend, nil
	case "memory":
		a.logger.Warn("using in-memory archive backend, documents are lost on exit")
		return memorystore.NewBackend(), nil
	default:
		a.logger.Info("using Google Drive archive backend")
		backend, err := drivestore.New(ctx, drivestore.Config{CredentialsFile: a.cfg.Drive.CredentialsFile})
		if err != nil {
			return nil, fmt.Errorf("drive archive init failed: %w", err)
		}
		return backend, nil
	}
}

func (a *App) setupLedger(ctx context.Context) (harvest.Ledger, error) {
	if a.cfg.Ledger.Backend != "postgres" {
		a.logger.Info("using in-memory ledger")
		return memorystore.NewLedger(), nil
	}
	ledger, err := pgstore.NewLedger(ctx, pgstore.LedgerConfig{
		DSN:      a.cfg.DB.DSN,
		Table:    a.cfg.DB.Table,
		MaxConns: a.cfg.DB.MaxConns,
	})
	if err != nil {
		return nil, fmt.Errorf("ledger init failed: %w", err)
	}
	a.pgLedger = ledger
	if err := ledger.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ledger schema failed: %w", err)
	}
	a.logger.Info("postgres ledger initialized", zap.String("table", a.cfg.DB.Table))
	return ledger, nil
}

func (a *App) setupNotifier(ctx context.Context) (harvest.Notifier, error) {
	webhook, err := notify.NewWebhook(notify.WebhookConfig{
		Endpoint: a.cfg.Notify.Endpoint,
		Timeout:  a.cfg.NotifyTimeout(),
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("webhook init failed: %w", err)
	}
	if !a.cfg.PubSubEnabled() {
		return notify.NewRelay(webhook, a.logger.Named("notify")), nil
	}
	a.pubsubClient, err = pubsub.NewClient(ctx, a.cfg.PubSub.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("pubsub client init failed: %w", err)
	}
	a.publisher = gcppublisher.New(a.pubsubClient.Topic(a.cfg.PubSub.TopicName))
	a.logger.Info("Pub/Sub mirror initialized",
		zap.String("project", a.cfg.PubSub.ProjectID),
		zap.String("topic", a.cfg.PubSub.TopicName),
	)
	return notify.NewRelay(webhook, a.logger.Named("notify"), a.publisher), nil
}

// Harvester exposes the pipeline for one-shot commands.
func (a *App) Harvester() api.Harvester {
	return a.orchestrator
}

// Logger returns the application logger.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// Handler builds the HTTP handler. Runs started through it are parented on
// runCtx.
func (a *App) Handler(runCtx context.Context) http.Handler {
	apiKey := ""
	if a.cfg.Auth.Enabled {
		apiKey = a.cfg.Auth.APIKey
	}
	return api.NewServer(a.orchestrator, api.Options{
		APIKey:         apiKey,
		RequestTimeout: a.cfg.RequestTimeout(),
		RunContext:     runCtx,
		RequestIDs:     uuid.New().NewRequestID,
	}, a.logger).Handler()
}

// Run serves HTTP until ctx is canceled, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := context.WithCancel(ctx)
	defer stop()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:           a.Handler(ctx),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("http server started", zap.Int("port", a.cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("http server error", zap.Error(err))
			errCh <- err
			stop()
		}
	}()

	<-ctx.Done()
	a.logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("server shutdown error", zap.Error(err))
	}

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	default:
		return nil
	}
}

// Close releases every client the app opened.
func (a *App) Close() {
	a.closeInfrastructure()
	a.logger.Info("shutdown complete")
}

func (a *App) closeInfrastructure() {
	if a.publisher != nil {
		a.publisher.Stop()
	}
	if a.pubsubClient != nil {
		if err := a.pubsubClient.Close(); err != nil {
			a.logger.Warn("pubsub client close failed", zap.Error(err))
		}
	}
	if a.storage != nil {
		if err := a.storage.Close(); err != nil {
			a.logger.Warn("gcs client close failed", zap.Error(err))
		}
	}
	if a.pgLedger != nil {
		a.pgLedger.Close()
	}
}
