package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"showdown-tracker/internal/config"
	"showdown-tracker/internal/database"
	"showdown-tracker/internal/fetch"
	"showdown-tracker/internal/handlers"
	"showdown-tracker/internal/importer"
	"showdown-tracker/internal/jobs"
	"showdown-tracker/internal/logger"
	"showdown-tracker/internal/util"
	"showdown-tracker/internal/watcher"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/plugins/migratecmd"
)

// App wraps PocketBase with application-specific components and methods
type App struct {
	*pocketbase.PocketBase // Embed PocketBase - all its methods are available

	Config   *config.Config
	Fetcher  *fetch.Client
	Importer *importer.Importer
	Watcher  *watcher.Watcher

	customLogger *logger.Logger // writes to both console and file
	stopMonitor  context.CancelFunc

	// Version information (injected at build time via ldflags)
	Version string
	Commit  string
	Date    string
}

// New creates and initializes the showdown-tracker application
func New() (*App, error) {
	return NewWithVersion("dev", "unknown", "unknown")
}

// NewWithVersion creates a new app with version information
func NewWithVersion(version, commit, date string) (*App, error) {
	app := &App{
		PocketBase: pocketbase.New(),
		Version:    version,
		Commit:     commit,
		Date:       date,
	}

	if err := app.setupServices(); err != nil {
		return nil, fmt.Errorf("failed to setup services: %w", err)
	}

	app.setupPlugins()

	return app, nil
}

// setupServices loads the config and builds the logger, fetch client and importer.
func (app *App) setupServices() error {
	cfgVal := app.Store().GetOrSet("config", func() any {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		return cfg
	})
	if err, ok := cfgVal.(error); ok {
		return fmt.Errorf("failed to load config: %w", err)
	}
	app.Config = cfgVal.(*config.Config)

	if err := app.setupLogger(); err != nil {
		return fmt.Errorf("failed to setup logger: %w", err)
	}

	fetchCfg := app.Config.Fetch
	app.Fetcher = fetch.NewClient(fetch.Options{
		RequestsPerSecond: fetchCfg.RequestsPerSecond,
		Burst:             fetchCfg.Burst,
		Timeout:           fetchCfg.Timeout(),
		MaxRetries:        fetchCfg.MaxRetries,
		UserAgent:         fetchCfg.UserAgent,
	})

	app.Importer = importer.New(app, app.Fetcher, app.Logger(), importer.Options{
		Concurrency: fetchCfg.Concurrency,
		MaxAttempts: app.Config.Import.MaxAttempts,
	})

	return nil
}

// setupLogger creates the console + file logger from the logging config
func (app *App) setupLogger() error {
	logCfg := app.Config.Logging
	level := logger.ParseLevel(logCfg.Level)

	console := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	l, err := logger.NewLogger(console, logger.FileHandlerConfig{
		FilePath:   logCfg.File,
		Level:      level,
		MaxSize:    int64(logCfg.MaxSizeMB) * 1024 * 1024,
		MaxBackups: logCfg.MaxBackups,
	})
	if err != nil {
		return err
	}
	app.customLogger = l
	return nil
}

// setupPlugins configures PocketBase plugins and the tracker's commands
func (app *App) setupPlugins() {
	migratecmd.MustRegister(app.PocketBase, app.RootCmd, migratecmd.Config{
		Automigrate: true,
	})

	app.RootCmd.AddCommand(
		newVersionCmd(app.Version, app.Commit, app.Date),
		newParseCmd(),
		newStatsCmd(),
		newInitConfigCmd(),
	)
}

// Bootstrap registers routes and lifecycle hooks
func (app *App) Bootstrap() error {
	h := handlers.New(app.Importer, app.Fetcher, app.Logger()).WithVersion(app.Version)
	handlers.Register(app, h)

	app.OnServe().BindFunc(app.onServe)
	app.OnTerminate().BindFunc(app.onTerminate)

	return nil
}

// onServe is called when the server starts
func (app *App) onServe(e *core.ServeEvent) error {
	log := app.Logger().With("component", "APP")
	log.Info("Starting showdown-tracker", "version", app.Version)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if err := app.Importer.WarmUp(ctx); err != nil {
		log.Warn("Failed to warm up replay filter", "error", err)
	}

	importCfg := app.Config.Import
	if err := importer.RegisterQueueJob(app, app.Importer, importCfg.QueueSchedule, importCfg.QueueBatchSize); err != nil {
		return err
	}
	jobs.RegisterPruneImportJobs(app, app.Logger(), importCfg.RetentionDays)

	if importCfg.WatchDir != "" {
		if err := app.startWatcher(importCfg.WatchDir, importCfg.WatchUser); err != nil {
			// the API is still useful without the watcher
			log.Error("File watcher not started", "dir", importCfg.WatchDir, "error", err)
		}
	}

	if logger.ParseLevel(app.Config.Logging.Level) == slog.LevelDebug {
		monitorCtx, stop := context.WithCancel(context.Background())
		app.stopMonitor = stop
		util.StartMemoryMonitor(monitorCtx, time.Minute, app.Logger())
	}

	return e.Next()
}

func (app *App) startWatcher(dir, email string) error {
	userID, err := database.FindUserByEmail(app, email)
	if err != nil {
		return fmt.Errorf("watch user %s: %w", email, err)
	}

	w, err := watcher.New(app.Importer, userID, app.Logger().With("component", "WATCHER"), watcher.Options{})
	if err != nil {
		return err
	}
	if err := w.AddDir(dir); err != nil {
		w.Stop()
		return err
	}

	app.Watcher = w
	w.Start()
	return nil
}

// onTerminate is called when the application shuts down
func (app *App) onTerminate(e *core.TerminateEvent) error {
	if app.Watcher != nil {
		app.Watcher.Stop()
	}
	if app.stopMonitor != nil {
		app.stopMonitor()
	}

	err := e.Next()
	if app.customLogger != nil {
		err = errors.Join(err, app.customLogger.Close())
	}
	return err
}

// Logger returns the tracker logger, falling back to PocketBase's
func (app *App) Logger() *slog.Logger {
	if app.customLogger != nil {
		return app.customLogger.Logger
	}
	return app.PocketBase.Logger()
}
