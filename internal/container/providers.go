package container

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/garyjia/benefits-portal/internal/application/dispatcher"
	"github.com/garyjia/benefits-portal/internal/application/port"
	"github.com/garyjia/benefits-portal/internal/application/service"
	"github.com/garyjia/benefits-portal/internal/infrastructure/codegen"
	"github.com/garyjia/benefits-portal/internal/infrastructure/importer"
	"github.com/garyjia/benefits-portal/internal/infrastructure/metrics"
	"github.com/garyjia/benefits-portal/internal/infrastructure/notify"
	"github.com/garyjia/benefits-portal/internal/infrastructure/persistence/repository"
	"github.com/garyjia/benefits-portal/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/benefits-portal/internal/infrastructure/storage"
	"github.com/garyjia/benefits-portal/pkg/database"
	"github.com/garyjia/benefits-portal/pkg/utils"
)

// DatabaseBundle holds database-related components.
type DatabaseBundle struct {
	SqlDB          *database.DB
	TransactionMgr *sqlite.DB
}

// StorageBundle holds attachment storage components.
type StorageBundle struct {
	Blobs   port.BlobStore
	Sniffer port.ContentSniffer
}

// MetricsBundle holds the registry and the recorder registered on it.
type MetricsBundle struct {
	Registry *prometheus.Registry
	Recorder *metrics.Metrics
	Handler  http.Handler
}

// ProvideDatabase opens the database and applies the embedded migrations.
func ProvideDatabase(cfg *DatabaseConfig, logger *zap.Logger) (*DatabaseBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	db, err := database.New(database.Config{
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	}, logger)
	if err != nil {
		return nil, err
	}

	if err := database.NewMigrator(db, logger).Migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &DatabaseBundle{
		SqlDB:          db,
		TransactionMgr: sqlite.NewDB(db.DB, logger),
	}, nil
}

// ProvideRepositories creates all repositories on top of the transaction manager.
func ProvideRepositories(db *sqlite.DB, logger *zap.Logger) (*RepositoryBundle, error) {
	if db == nil {
		return nil, fmt.Errorf("transaction manager is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return &RepositoryBundle{
		Applications: repository.NewApplicationRepository(db, logger),
		Payouts:      repository.NewPayoutRepository(db, logger),
		Complaints:   repository.NewComplaintRepository(db, logger),
		History:      repository.NewHistoryRepository(db, logger),
		Programs:     repository.NewProgramRepository(db, logger),
	}, nil
}

// ProvideStorage creates the local blob store and content sniffer.
func ProvideStorage(cfg *StorageConfig, logger *zap.Logger) (*StorageBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("storage config is required")
	}
	if cfg.BlobDir == "" {
		return nil, fmt.Errorf("blob directory is required")
	}

	return &StorageBundle{
		Blobs:   storage.NewLocalBlobStore(cfg.BlobDir, logger),
		Sniffer: storage.MimeSniffer{},
	}, nil
}

// ProvideMetrics creates a dedicated registry with runtime collectors and
// the workflow counters.
func ProvideMetrics(cfg *MetricsConfig) *MetricsBundle {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	bundle := &MetricsBundle{
		Registry: reg,
		Recorder: metrics.New(reg),
	}
	if cfg != nil && cfg.Enabled {
		bundle.Handler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
	}
	return bundle
}

// ProvideDispatcher creates the event dispatcher and subscribes the
// configured notification sink to every event type.
func ProvideDispatcher(cfg *NotificationConfig, logger *zap.Logger) (dispatcher.Dispatcher, error) {
	if cfg == nil {
		return nil, fmt.Errorf("notification config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	disp := dispatcher.NewDispatcher(
		dispatcher.WithLogger(utils.NewKeyValueLogger(logger.Named("dispatcher"))),
	)

	switch cfg.Sink {
	case "lark":
		client := notify.NewLarkClient(notify.LarkConfig{
			AppID:     cfg.LarkAppID,
			AppSecret: cfg.LarkAppSecret,
			ChatID:    cfg.LarkChatID,
		}, logger)
		disp.SubscribeAll("lark-chat", notify.NewLarkSink(client, cfg.LarkChatID, logger).Handle)
	default:
		disp.SubscribeAll("event-log", notify.NewLogSink(logger.Named("events")).Handle)
	}

	return disp, nil
}

// ServiceDeps holds dependencies required for creating the workflow service.
type ServiceDeps struct {
	Repos      *RepositoryBundle
	Storage    *StorageBundle
	TxManager  port.TransactionManager
	Dispatcher dispatcher.Dispatcher
	Metrics    port.MetricsRecorder
	Logger     *zap.Logger
}

// ProvideWorkflowService creates the workflow service.
func ProvideWorkflowService(deps *ServiceDeps) (service.WorkflowService, error) {
	if deps == nil {
		return nil, fmt.Errorf("service dependencies are required")
	}
	if deps.Repos == nil {
		return nil, fmt.Errorf("repositories are required")
	}
	if deps.Storage == nil {
		return nil, fmt.Errorf("storage is required")
	}
	if deps.TxManager == nil {
		return nil, fmt.Errorf("transaction manager is required")
	}

	return service.NewWorkflowService(service.Dependencies{
		Applications: deps.Repos.Applications,
		Payouts:      deps.Repos.Payouts,
		Complaints:   deps.Repos.Complaints,
		History:      deps.Repos.History,
		Programs:     deps.Repos.Programs,
		Blobs:        deps.Storage.Blobs,
		Sniffer:      deps.Storage.Sniffer,
		Parser:       importer.NewParser(deps.Logger),
		Codes:        codegen.New(),
		Sink:         deps.Dispatcher,
		TxManager:    deps.TxManager,
		Metrics:      deps.Metrics,
	}, utils.NewKeyValueLogger(deps.Logger.Named("workflow"))), nil
}
