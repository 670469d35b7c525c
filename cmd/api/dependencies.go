package main

import (
	"context"
	"fmt"
	"log/slog"

	backupdomain "github.com/renobook/renobook/internal/domain/backup"
	backuphandler "github.com/renobook/renobook/internal/domain/backup/handler"
	budgethandler "github.com/renobook/renobook/internal/domain/budget/handler"
	"github.com/renobook/renobook/internal/domain/budget/repository"
	budgetservice "github.com/renobook/renobook/internal/domain/budget/service"
	"github.com/renobook/renobook/internal/domain/quickadd"
	quickaddhandler "github.com/renobook/renobook/internal/domain/quickadd/handler"
	"github.com/renobook/renobook/internal/domain/report"

	"github.com/renobook/renobook/pkg/config"
	"github.com/renobook/renobook/pkg/cron"
	"github.com/renobook/renobook/pkg/db"
)

// Dependencies holds all application dependencies
type Dependencies struct {
	Config *config.Config
	DB     *db.DB
	Logger *slog.Logger

	// Repositories
	BudgetRepo repository.BudgetRepository

	// Services
	BudgetService   *budgetservice.BudgetService
	QuickAddService *quickadd.Service
	BackupService   *backupdomain.Service
	Renderer        *report.Renderer
	Scheduler       *cron.Scheduler

	// Handlers
	BudgetHandler   *budgethandler.BudgetHandler
	QuickAddHandler *quickaddhandler.QuickAddHandler
	BackupHandler   *backuphandler.BackupHandler
}

// InitDependencies initializes all application dependencies
func InitDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if err := deps.initDatabase(ctx); err != nil {
		return nil, fmt.Errorf("failed to init database: %w", err)
	}
	deps.initServices()
	deps.initHandlers()

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

// initDatabase opens the store and ensures the schema exists.
func (d *Dependencies) initDatabase(ctx context.Context) error {
	database, err := db.New(db.Config{Path: d.Config.Storage.DatabasePath})
	if err != nil {
		return err
	}
	d.DB = database
	d.BudgetRepo = repository.NewSQLiteBudgetRepository(database)

	if err := d.BudgetRepo.Init(ctx); err != nil {
		return fmt.Errorf("failed to init schema: %w", err)
	}

	d.Logger.Info("database connected and schema ensured",
		slog.String("path", d.Config.Storage.DatabasePath),
		slog.Bool("persistent", d.Config.Storage.UsePersistent))
	return nil
}

func (d *Dependencies) initServices() {
	d.BackupService = backupdomain.NewService(
		d.DB,
		d.Config.Storage.BackupDir,
		d.Config.Backup.RetentionCount,
		d.Logger,
	)
	d.BudgetService = budgetservice.NewBudgetService(d.BudgetRepo, d.BackupService, d.Logger)
	d.QuickAddService = quickadd.NewService(d.BudgetService, d.Logger)
	d.Renderer = report.NewRenderer(d.Config.Report.FontPath, d.Logger)
	d.Scheduler = cron.NewScheduler(d.BackupService, d.Config.Backup.Schedule, d.Logger)

	d.Logger.Info("services initialized")
}

func (d *Dependencies) initHandlers() {
	d.BudgetHandler = budgethandler.NewBudgetHandler(d.BudgetService, d.Renderer, budgethandler.UploadConfig{
		Dir:      d.Config.Storage.UploadDir,
		MaxBytes: d.Config.Storage.MaxUploadBytes,
	})
	d.QuickAddHandler = quickaddhandler.NewQuickAddHandler(d.QuickAddService)
	d.BackupHandler = backuphandler.NewBackupHandler(d.BackupService)

	d.Logger.Info("handlers initialized")
}
