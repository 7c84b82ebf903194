package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/feral-file/registry-indexer/internal/adapter"
	"github.com/feral-file/registry-indexer/internal/api/server"
	"github.com/feral-file/registry-indexer/internal/block"
	"github.com/feral-file/registry-indexer/internal/config"
	"github.com/feral-file/registry-indexer/internal/contracts"
	"github.com/feral-file/registry-indexer/internal/emitter"
	"github.com/feral-file/registry-indexer/internal/indexer"
	"github.com/feral-file/registry-indexer/internal/logger"
	"github.com/feral-file/registry-indexer/internal/messaging"
	"github.com/feral-file/registry-indexer/internal/metrics"
	"github.com/feral-file/registry-indexer/internal/projector"
	"github.com/feral-file/registry-indexer/internal/providers/ethereum"
	"github.com/feral-file/registry-indexer/internal/providers/jetstream"
	"github.com/feral-file/registry-indexer/internal/ratelimit"
	"github.com/feral-file/registry-indexer/internal/store"
)

var (
	configFile = flag.String("config", "", "Path to configuration file")
	envPath    = flag.String("env", "config/", "Path to environment files")
)

// shared holds the handles every domain supervisor is built from
type shared struct {
	cfg       *config.RegistryIndexerConfig
	client    adapter.EthClient
	store     store.Store
	blocks    block.BlockProvider
	publisher messaging.Publisher
	metrics   *metrics.Metrics
	clock     adapter.Clock
}

func main() {
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadRegistryIndexerConfig(*configFile, *envPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Create context canceled on shutdown signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize logger with sentry integration
	err = logger.Initialize(logger.Config{
		Debug:           cfg.Debug,
		SentryDSN:       cfg.SentryDSN,
		BreadcrumbLevel: zapcore.InfoLevel,
		Tags: map[string]string{
			"service": "registry-indexer",
			"chain":   string(cfg.Ethereum.ChainID),
		},
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Flush(2 * time.Second)
	logger.InfoCtx(ctx, "Starting Registry Indexer")

	// Connect to database
	db, err := gorm.Open(postgres.Open(cfg.Database.DSN()), &gorm.Config{})
	if err != nil {
		logger.FatalCtx(ctx, "Failed to connect to database", zap.Error(err), zap.String("host", cfg.Database.Host))
	}
	if err := store.ConfigureConnectionPool(db,
		cfg.Database.MaxOpenConns,
		cfg.Database.MaxIdleConns,
		cfg.Database.ConnMaxLifetime,
		cfg.Database.ConnMaxIdleTime); err != nil {
		logger.FatalCtx(ctx, "Failed to configure connection pool", zap.Error(err))
	}
	if err := store.Migrate(ctx, db); err != nil {
		logger.FatalCtx(ctx, "Failed to migrate database", zap.Error(err))
	}
	logger.InfoCtx(ctx, "Connected to database")

	dataStore := store.NewPGStore(db)
	clockAdapter := adapter.NewClock()

	// Initialize ethereum client, shared by both registries
	rawClient, err := adapter.NewEthClientDialer().Dial(ctx, cfg.Ethereum.Endpoint())
	if err != nil {
		logger.FatalCtx(ctx, "Failed to dial Ethereum endpoint", zap.Error(err))
	}
	ethClient := ratelimit.NewEthClientProxy(rawClient, ratelimit.Config{
		RequestsPerSecond: cfg.Ethereum.RequestsPerSecond,
		Burst:             cfg.Ethereum.Burst,
	})
	defer ethClient.Close()

	blockProvider := block.NewBlockProvider(
		ethereum.NewHeaderFetcher(ethClient),
		block.Config{
			TTL:                 2 * time.Second,
			StaleWindow:         time.Minute,
			BlockTimestampTTL:   cfg.Ethereum.BlockTimestampTTL,
			MaxCachedTimestamps: cfg.Ethereum.BlockCacheSize,
		},
		clockAdapter,
	)

	// Initialize projection notice publisher
	publisher := messaging.NewNopPublisher()
	if cfg.NATS.URL != "" {
		publisher, err = jetstream.NewPublisher(ctx, jetstream.Config{
			URL:            cfg.NATS.URL,
			StreamName:     cfg.NATS.StreamName,
			SubjectPrefix:  cfg.NATS.SubjectPrefix,
			MaxReconnects:  cfg.NATS.MaxReconnects,
			ReconnectWait:  cfg.NATS.ReconnectWait,
			ConnectionName: cfg.NATS.ConnectionName,
		}, adapter.NewNatsJetStream(), adapter.NewJSON())
		if err != nil {
			logger.FatalCtx(ctx, "Failed to create NATS publisher", zap.Error(err))
		}
		logger.InfoCtx(ctx, "Connected to NATS JetStream")
	}
	defer publisher.Close()

	// Initialize metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	deps := shared{
		cfg:       cfg,
		client:    ethClient,
		store:     dataStore,
		blocks:    blockProvider,
		publisher: publisher,
		metrics:   metrics.New(registry),
		clock:     clockAdapter,
	}

	supervisors, err := newSupervisors(deps)
	if err != nil {
		logger.FatalCtx(ctx, "Failed to create supervisors", zap.Error(err))
	}

	// Start ops server
	reporters := make([]server.StatusReporter, 0, len(supervisors))
	for _, sup := range supervisors {
		reporters = append(reporters, sup)
	}
	opsServer := server.New(server.Config{
		Debug:        cfg.Debug,
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}, reporters, dataStore, blockProvider, registry)

	go func() {
		if err := opsServer.Start(); err != nil {
			logger.ErrorCtx(ctx, err, zap.String("component", "ops_server"))
		}
	}()

	// Run supervisors until shutdown; a domain stopped on a non-retryable
	// error leaves the others running
	runErr := indexer.NewRunner(supervisors...).Run(ctx)
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		logger.ErrorCtx(ctx, runErr, zap.String("component", "runner"))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := opsServer.Shutdown(shutdownCtx); err != nil {
		logger.Error(err, zap.String("component", "ops_server"))
	}

	// Use non-context logger for final shutdown message since context is already canceled
	logger.Info("Registry Indexer stopped")

	if runErr != nil && ctx.Err() == nil {
		logger.Flush(2 * time.Second)
		os.Exit(1)
	}
}

// newSupervisors builds one supervisor per enabled registry
func newSupervisors(deps shared) ([]*indexer.Supervisor, error) {
	var supervisors []*indexer.Supervisor

	if deps.cfg.Indexer.AuthenticityEnabled {
		binding, err := contracts.NewAuthenticityBinding(common.HexToAddress(deps.cfg.Contracts.AuthenticityAddress))
		if err != nil {
			return nil, err
		}
		reader := contracts.NewCaller(binding, deps.client)
		sup, err := newSupervisor(deps, binding, func(w *projector.Writer) projector.Routes {
			return projector.NewAuthenticityProjector(w, reader, deps.metrics).Routes()
		})
		if err != nil {
			return nil, err
		}
		supervisors = append(supervisors, sup)
	}

	if deps.cfg.Indexer.OwnershipEnabled {
		binding, err := contracts.NewOwnershipBinding(common.HexToAddress(deps.cfg.Contracts.OwnershipAddress))
		if err != nil {
			return nil, err
		}
		reader := contracts.NewCaller(binding, deps.client)
		sup, err := newSupervisor(deps, binding, func(w *projector.Writer) projector.Routes {
			return projector.NewOwnershipProjector(w, reader, deps.metrics).Routes()
		})
		if err != nil {
			return nil, err
		}
		supervisors = append(supervisors, sup)
	}

	return supervisors, nil
}

// newSupervisor wires the source, router and live emitter of one registry
func newSupervisor(deps shared, binding *contracts.Binding, routes func(*projector.Writer) projector.Routes) (*indexer.Supervisor, error) {
	d := binding.Domain()
	cfg := deps.cfg

	writer := projector.NewWriter(d, deps.store, deps.blocks, deps.publisher, deps.metrics,
		logger.ForDomain(d))

	router, err := projector.NewRouter(d, binding.DeclaredKinds(), routes(writer), deps.metrics)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s router: %w", d, err)
	}

	source := ethereum.NewLogSource(ethereum.Config{
		ChainID:       cfg.Ethereum.ChainID,
		MaxBlockRange: cfg.Ethereum.MaxBlockRange,
		PollInterval:  cfg.Ethereum.PollInterval,
	}, binding, deps.client, deps.clock)

	liveEmitter := emitter.NewEmitter(source, router, deps.store, emitter.Config{
		CursorSaveFreq:  cfg.Indexer.CursorSaveFreq,
		CursorSaveDelay: cfg.Indexer.CursorSaveDelay,
	}, deps.clock, deps.metrics)

	return indexer.NewSupervisor(source, router, deps.store, liveEmitter, indexer.Config{
		BackfillWindow:   cfg.Indexer.BackfillWindow,
		ChunkSize:        cfg.Indexer.ChunkSize,
		RetryDelay:       cfg.Indexer.RetryDelay,
		ResumeFromCursor: cfg.Indexer.ResumeFromCursor,
	}, deps.metrics), nil
}
