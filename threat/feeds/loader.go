package feeds

import (
	"fmt"
	"os"
	"path/filepath"

	"libmvt/core"
	"libmvt/metrics"
	"libmvt/threat"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// =============================================================================
// Indicator Loader
// =============================================================================

// Loader reads a directory of indicator files into an immutable engine
type Loader struct {
	fs       afero.Fs
	handlers []SourceHandler
	logger   *zap.SugaredLogger
}

// NewLoader creates a loader over fs with the JSON and STIX2 handlers
func NewLoader(fs afero.Fs, logger *zap.SugaredLogger) *Loader {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Loader{
		fs:       fs,
		handlers: []SourceHandler{NewJSONHandler(), NewSTIXHandler()},
		logger:   logger,
	}
}

// handlerFor picks the handler accepting name, or nil
func (l *Loader) handlerFor(name string) SourceHandler {
	for _, h := range l.handlers {
		if h.Accepts(name) {
			return h
		}
	}
	return nil
}

// LoadDirectory indexes every recognised file in dir, in name order.
// Unreadable or unparseable files become warnings in the result and add
// nothing. A missing directory yields an empty engine and one warning.
func (l *Loader) LoadDirectory(dir string) (*threat.Indicators, *LoadResult, error) {
	return l.Load(dir)
}

// LoadFiles indexes an explicit list of files regardless of directory
func (l *Loader) LoadFiles(paths ...string) (*threat.Indicators, *LoadResult, error) {
	return l.Load(paths...)
}

// Load indexes every path into one engine. Directories contribute the
// files they contain; a file given explicitly must have a recognised
// extension.
func (l *Loader) Load(paths ...string) (*threat.Indicators, *LoadResult, error) {
	builder := threat.NewBuilder()
	result := &LoadResult{}

	for _, path := range paths {
		info, err := l.fs.Stat(path)
		if err != nil {
			l.warn(result, path, err)
			continue
		}
		if info.IsDir() {
			l.loadDir(builder, result, path)
			continue
		}
		stats, err := l.loadFile(builder, path)
		if err != nil {
			l.warn(result, path, err)
			continue
		}
		if stats == nil {
			l.warn(result, path, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path)))
			continue
		}
		result.Files = append(result.Files, *stats)
	}

	ind, err := builder.Build()
	if err != nil {
		return nil, result, err
	}

	l.logger.Infow("Indicators loaded",
		"paths", paths,
		"files", len(result.Files),
		"warnings", result.WarningCount(),
		"domains", ind.Count(core.CategoryDomain),
		"urls", ind.Count(core.CategoryURL),
		"processes", ind.Count(core.CategoryProcessName),
		"app_ids", ind.Count(core.CategoryAppID),
		"properties", ind.Count(core.CategoryPropertyName))

	return ind, result, nil
}

func (l *Loader) loadDir(sink KeywordSink, result *LoadResult, dir string) {
	entries, err := afero.ReadDir(l.fs, dir)
	if err != nil {
		l.warn(result, dir, err)
		return
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		stats, err := l.loadFile(sink, path)
		if err != nil {
			l.warn(result, path, err)
			continue
		}
		if stats != nil {
			result.Files = append(result.Files, *stats)
		}
	}
}

// loadFile parses one file and adds its values. It returns nil stats for
// files no handler accepts.
func (l *Loader) loadFile(sink KeywordSink, path string) (*FileStats, error) {
	h := l.handlerFor(filepath.Base(path))
	if h == nil {
		return nil, nil
	}

	data, err := afero.ReadFile(l.fs, path)
	if err != nil {
		return nil, err
	}

	stats := &FileStats{Path: path, Format: h.Format()}
	var values []FieldValue
	if sh, ok := h.(*STIXHandler); ok {
		values, stats.Fallback, err = sh.ParseWithFallback(data)
	} else {
		values, err = h.Parse(data)
	}
	if err != nil {
		return nil, err
	}

	for _, v := range values {
		if sink.AddField(v.Field, v.Value) {
			stats.Values++
		}
	}
	if stats.Fallback {
		l.logger.Debugw("STIX bundle loaded with lenient parser", "file", path)
	}
	return stats, nil
}

func (l *Loader) warn(result *LoadResult, path string, err error) {
	w := &core.IndicatorLoadWarning{Path: path, Err: err}
	result.Warnings = append(result.Warnings, w)
	metrics.IndicatorLoadWarnings.Inc()
	if os.IsNotExist(err) {
		l.logger.Warnw("Indicator path does not exist", "path", path)
		return
	}
	l.logger.Warnw("Skipping indicator file", "file", path, "error", err)
}

// LoadFromDirectory is a convenience wrapper over the OS filesystem
func LoadFromDirectory(dir string, logger *zap.SugaredLogger) (*threat.Indicators, error) {
	ind, _, err := NewLoader(afero.NewOsFs(), logger).LoadDirectory(dir)
	return ind, err
}
