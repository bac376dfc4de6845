package system

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/natheelic/iot-device-hub/internal/api/rest"
	"github.com/natheelic/iot-device-hub/internal/api/websocket"
	"github.com/natheelic/iot-device-hub/internal/codegen"
	"github.com/natheelic/iot-device-hub/internal/config"
	"github.com/natheelic/iot-device-hub/internal/interfaces"
	"github.com/natheelic/iot-device-hub/internal/storage"
	"go.uber.org/zap"
)

type LifecycleManager struct {
	config    *config.Config
	storage   *storage.PostgresClient
	generator *codegen.Generator
	wsHub     *websocket.Hub
	logger    *zap.Logger

	restServer *rest.Server

	stateMu      sync.RWMutex
	currentState SystemState

	shutdownChan chan struct{}
	shutdownOnce sync.Once
}

func NewLifecycleManager(
	storage *storage.PostgresClient,
	cfg *config.Config,
	logger *zap.Logger,
) *LifecycleManager {
	return &LifecycleManager{
		config:       cfg,
		storage:      storage,
		generator:    codegen.New(),
		wsHub:        websocket.NewHub(logger),
		logger:       logger,
		currentState: StateInitializing,
		shutdownChan: make(chan struct{}),
	}
}

// Start bootstraps the schema and starts the hub and the REST API.
func (lm *LifecycleManager) Start() error {
	lm.logger.Info("Starting IoT Device Hub")

	// Schema bootstrap is best effort: a partially created schema is
	// still reported, but the remaining statements have already run.
	ctx := context.Background()
	if err := lm.storage.Bootstrap(ctx); err != nil {
		lm.logger.Warn("Schema bootstrap reported failures", zap.Error(err))
	}
	if err := lm.storage.SeedTemplates(ctx, codegen.TemplateCatalog()); err != nil {
		lm.logger.Warn("Template seeding reported failures", zap.Error(err))
	}

	go lm.wsHub.Run()

	if err := lm.startRESTServer(); err != nil {
		lm.setState(StateError)
		return fmt.Errorf("failed to start REST API: %w", err)
	}

	lm.setState(StateRunning)

	lm.logger.Info("System started successfully",
		zap.Int("http_port", lm.config.Server.HTTPPort))

	return nil
}

func (lm *LifecycleManager) startRESTServer() error {
	server, err := rest.NewServer(lm.config, lm.storage, lm.generator, lm, lm.logger, lm.wsHub)
	if err != nil {
		return err
	}
	lm.restServer = server
	return lm.restServer.Start()
}

// Shutdown gracefully shuts down the system
func (lm *LifecycleManager) Shutdown(ctx context.Context) error {
	var shutdownErr error

	lm.shutdownOnce.Do(func() {
		lm.logger.Info("Shutting down system")

		lm.setState(StateStopping)

		if lm.restServer != nil {
			shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()

			if err := lm.restServer.Shutdown(shutdownCtx); err != nil {
				shutdownErr = fmt.Errorf("rest api shutdown failed: %w", err)
			}
		}

		lm.storage.Close()

		lm.setState(StateStopped)
		close(lm.shutdownChan)
	})

	return shutdownErr
}

func (lm *LifecycleManager) setState(state SystemState) {
	lm.stateMu.Lock()
	defer lm.stateMu.Unlock()

	if err := ValidateTransition(lm.currentState, state); err != nil {
		lm.logger.Warn("Ignoring invalid state transition", zap.Error(err))
		return
	}
	lm.currentState = state
}

// GetCurrentStatus returns current system status (Interface implementation)
func (lm *LifecycleManager) GetCurrentStatus() interfaces.SystemStatus {
	lm.stateMu.RLock()
	state := lm.currentState
	lm.stateMu.RUnlock()

	status := interfaces.SystemStatus{
		State:     state.String(),
		WSClients: lm.wsHub.GetClientCount(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if counts, err := lm.storage.Counts(ctx); err == nil {
		status.ActiveProfiles = counts.Profiles
		status.TelemetryRecords = counts.Telemetry
	} else {
		lm.logger.Warn("Status count query failed", zap.Error(err))
	}

	return status
}

// Config returns the configuration
func (lm *LifecycleManager) Config() *config.Config {
	return lm.config
}

// Storage returns the storage client
func (lm *LifecycleManager) Storage() *storage.PostgresClient {
	return lm.storage
}

// Hub returns the websocket hub
func (lm *LifecycleManager) Hub() *websocket.Hub {
	return lm.wsHub
}
