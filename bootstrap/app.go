package bootstrap

import (
	"fmt"

	"libmvt/config"
	"libmvt/storage"
	"libmvt/threat"
	"libmvt/threat/feeds"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// Options control how an App is assembled
type Options struct {
	ConfigPath string
	Overrides  map[string]any // viper keys set last, usually from flags
	Color      bool
	Fs         afero.Fs           // defaults to the OS filesystem
	Logger     *zap.SugaredLogger // skips logger construction when set
}

// App holds the components every command shares
type App struct {
	Config *config.Config
	Dirs   DataDirectories
	Fs     afero.Fs
	Logger *zap.Logger
	Sugar  *zap.SugaredLogger

	sqlite *storage.SQLite
	store  *storage.ResultStore
}

// NewApp loads configuration and builds the logger. Databases and
// indicators are opened on first use.
func NewApp(opts Options) (*App, error) {
	cfg, err := config.LoadConfig(opts.ConfigPath, opts.Overrides)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	app := &App{
		Config: cfg,
		Dirs:   DataDirectoriesFromConfig(cfg),
		Fs:     opts.Fs,
		Sugar:  opts.Logger,
	}
	if app.Fs == nil {
		app.Fs = afero.NewOsFs()
	}

	if app.Sugar == nil {
		logger, sugar, err := InitLogger(cfg.LogLevel, opts.Color)
		if err != nil {
			return nil, err
		}
		app.Logger, app.Sugar = logger, sugar
	} else {
		app.Logger = app.Sugar.Desugar()
	}

	app.Sugar.Debugw("Data paths configuration",
		"data_dir", app.Dirs.Base,
		"indicators_dir", app.Dirs.Indicators,
		"sqlite_path", app.Dirs.SQLite)

	return app, nil
}

// LoadIndicators builds the matching engine from the configured indicators
// directory plus any extra files or directories. Unreadable sources are
// reported in the result, never as an error. With match_cache_size above
// zero the engine is wrapped in a MatchCache.
func (a *App) LoadIndicators(extra ...string) (threat.Matcher, *feeds.LoadResult, error) {
	paths := append([]string{a.Dirs.Indicators}, extra...)
	ind, result, err := feeds.NewLoader(a.Fs, a.Sugar).Load(paths...)
	if err != nil {
		return nil, result, fmt.Errorf("failed to build indicator engine: %w", err)
	}

	if a.Config.MatchCacheSize == 0 {
		return ind, result, nil
	}
	cache, err := threat.NewMatchCache(ind, a.Config.MatchCacheSize)
	if err != nil {
		return nil, result, err
	}
	return cache, result, nil
}

// Updater returns an indicator feed updater writing under the data directory
func (a *App) Updater() (*feeds.Updater, error) {
	if err := EnsureDataDirectories(a.Fs, a.Dirs, a.Sugar); err != nil {
		return nil, err
	}
	return feeds.NewUpdater(a.Fs, feeds.UpdaterConfig{
		DataDir:  a.Dirs.Base,
		IndexURL: a.Config.Updater.IndexURL,
		Timeout:  a.Config.Updater.Timeout,
	}, a.Sugar)
}

// Store opens the results database on first call
func (a *App) Store() (*storage.ResultStore, error) {
	if a.store != nil {
		return a.store, nil
	}
	sqlite, err := InitSQLite(a.Dirs, a.Sugar)
	if err != nil {
		return nil, err
	}
	a.sqlite = sqlite
	a.store = storage.NewResultStore(sqlite, a.Sugar)
	return a.store, nil
}

// Shutdown closes the database and flushes the logger
func (a *App) Shutdown() {
	if a.sqlite != nil {
		if err := a.sqlite.Close(); err != nil {
			a.Sugar.Warnw("Failed to close results database", "error", err)
		}
		a.sqlite, a.store = nil, nil
	}
	_ = a.Sugar.Sync()
}
