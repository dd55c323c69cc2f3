// Package wire provides dependency injection for the rfe application.
// It creates singleton services with lazy initialization.
package wire

import (
	"log"
	"sync"

	"github.com/example/rfe/internal/adapters/filesystem"
	"github.com/example/rfe/internal/adapters/logging"
	"github.com/example/rfe/internal/adapters/sqlite"
	"github.com/example/rfe/internal/adapters/tmux"
	"github.com/example/rfe/internal/app"
	"github.com/example/rfe/internal/config"
	"github.com/example/rfe/internal/db"
	"github.com/example/rfe/internal/personas"
	"github.com/example/rfe/internal/ports/primary"
)

var (
	workflowService primary.WorkflowService
	sessionService  primary.SessionService
	cfg             *config.Config
	once            sync.Once
)

// WorkflowService returns the singleton WorkflowService instance.
func WorkflowService() primary.WorkflowService {
	once.Do(initServices)
	return workflowService
}

// SessionService returns the singleton SessionService instance.
func SessionService() primary.SessionService {
	once.Do(initServices)
	return sessionService
}

// Configuration returns the loaded configuration.
func Configuration() *config.Config {
	once.Do(initServices)
	return cfg
}

// initServices initializes all services and their dependencies.
// This is called once via sync.Once.
func initServices() {
	var err error
	cfg, err = config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	database, err := db.GetDB()
	if err != nil {
		log.Fatalf("failed to initialize database: %v", err)
	}

	workflowRepo := sqlite.NewWorkflowRepository(database)
	sessionRepo := sqlite.NewSessionRepository(database)
	inspector := filesystem.NewInspector()
	events := logging.NewEventLogger()

	runner, err := tmux.NewRunner(cfg.AgentCommand)
	if err != nil {
		log.Fatalf("failed to connect to tmux: %v", err)
	}

	registry, err := loadRegistry()
	if err != nil {
		log.Fatalf("failed to load personas: %v", err)
	}

	reconciler := app.NewReconciler(workflowRepo, inspector, events)
	workflowService = app.NewWorkflowService(workflowRepo, reconciler, events, cfg.WorkspaceBase)
	sessionService = app.NewSessionService(sessionRepo, workflowRepo, reconciler, runner, registry, events)
}

func loadRegistry() (*personas.Registry, error) {
	if cfg.PersonasFile != "" {
		return personas.LoadFile(cfg.PersonasFile)
	}
	return personas.LoadDefault()
}
