package artifacts

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"libmvt/core"
	"libmvt/metrics"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// =============================================================================
// AndroidQF Runner
// =============================================================================

const (
	dumpsysFile   = "dumpsys.txt"
	tombstonesDir = "tombstones"
)

var dumpsysDelimiter = strings.Repeat("-", 78)

// moduleSpec describes how the runner feeds one artifact
type moduleSpec struct {
	name    string
	service string // dumpsys service, if the input is a dumpsys section
	file    string // plain file name otherwise
	factory func() Artifact
}

var modules = []moduleSpec{
	{name: "dumpsys_accessibility", service: "accessibility", factory: func() Artifact { return NewDumpsysAccessibility() }},
	{name: "dumpsys_activities", service: "package", factory: func() Artifact { return NewDumpsysActivities() }},
	{name: "dumpsys_receivers", service: "package", factory: func() Artifact { return NewDumpsysReceivers() }},
	{name: "dumpsys_adb", service: "adb", factory: func() Artifact { return NewDumpsysAdb() }},
	{name: "dumpsys_appops", service: "appops", factory: func() Artifact { return NewDumpsysAppops() }},
	{name: "dumpsys_battery_daily", service: "batterystats", factory: func() Artifact { return NewDumpsysBatteryDaily() }},
	{name: "dumpsys_battery_history", service: "batterystats", factory: func() Artifact { return NewDumpsysBatteryHistory() }},
	{name: "dumpsys_dbinfo", service: "dbinfo", factory: func() Artifact { return NewDumpsysDBInfo() }},
	{name: "dumpsys_packages", service: "package", factory: func() Artifact { return NewDumpsysPackages() }},
	{name: "dumpsys_platform_compat", service: "platform_compat", factory: func() Artifact { return NewDumpsysPlatformCompat() }},
	{name: "processes", file: "ps.txt", factory: func() Artifact { return NewProcesses() }},
	{name: "getprop", file: "getprop.txt", factory: func() Artifact { return NewGetProp() }},
	{name: "settings", factory: func() Artifact { return NewSettings() }},
	{name: "tombstones", factory: func() Artifact { return NewTombstoneCrashes() }},
}

// AvailableModules lists module names in the order RunAll runs them
func AvailableModules() []string {
	names := make([]string, len(modules))
	for i, m := range modules {
		names[i] = m.name
	}
	return names
}

// Result is the outcome of running one module
type Result struct {
	Module     string
	Artifact   Artifact
	Detections []core.Detection
}

// Runner runs artifact modules over an AndroidQF acquisition directory
type Runner struct {
	fs      afero.Fs
	dir     string
	matcher Matcher
	logger  *zap.SugaredLogger
}

// NewRunner creates a runner for dir on fs. Without a matcher only the
// indicator-free checks run.
func NewRunner(fs afero.Fs, dir string, matcher Matcher, logger *zap.SugaredLogger) *Runner {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Runner{fs: fs, dir: dir, matcher: matcher, logger: logger}
}

// RunModule runs a single module. It returns nil, nil when the module's
// input is not part of the acquisition.
func (r *Runner) RunModule(name string) (*Result, error) {
	spec, ok := lookupModule(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownModule, name)
	}

	input, found, err := r.readInput(spec)
	if err != nil {
		return nil, fmt.Errorf("module %s: %w", name, err)
	}
	if !found {
		r.logger.Debugw("Module input not found", "module", name, "dir", r.dir)
		return nil, nil
	}

	art := spec.factory()
	if err := art.Parse(input); err != nil {
		return nil, fmt.Errorf("module %s: %w", name, err)
	}
	metrics.ArtifactsParsed.WithLabelValues(name).Inc()

	result := &Result{
		Module:     name,
		Artifact:   art,
		Detections: art.CheckIndicators(r.matcher),
	}
	r.logger.Infow("Module completed", "module", name, "records", len(art.Results()), "detections", len(result.Detections))
	return result, nil
}

// RunAll runs every module in order, skipping those without input. A failing
// module is logged and does not stop the others; the failures are joined
// into the returned error.
func (r *Runner) RunAll() ([]*Result, error) {
	var results []*Result
	var errs []error
	for _, spec := range modules {
		res, err := r.RunModule(spec.name)
		if err != nil {
			r.logger.Warnw("Module failed", "module", spec.name, "error", err)
			errs = append(errs, err)
			continue
		}
		if res != nil {
			results = append(results, res)
		}
	}
	return results, errors.Join(errs...)
}

func lookupModule(name string) (moduleSpec, bool) {
	for _, m := range modules {
		if m.name == name {
			return m, true
		}
	}
	return moduleSpec{}, false
}

func (r *Runner) readInput(spec moduleSpec) (string, bool, error) {
	switch {
	case spec.service != "":
		dumpsys, ok, err := r.readFile(filepath.Join(r.dir, dumpsysFile))
		if err != nil || !ok {
			return "", ok, err
		}
		return ExtractDumpsysSection(dumpsys, spec.service), true, nil
	case spec.file != "":
		return r.readFile(filepath.Join(r.dir, spec.file))
	case spec.name == "settings":
		return r.readMatching(r.dir, func(name string) bool {
			return strings.HasPrefix(name, "settings_") && strings.HasSuffix(name, ".txt")
		})
	case spec.name == "tombstones":
		return r.readMatching(filepath.Join(r.dir, tombstonesDir), func(name string) bool {
			return !strings.HasSuffix(name, ".pb")
		})
	}
	return "", false, nil
}

func (r *Runner) readFile(path string) (string, bool, error) {
	data, err := afero.ReadFile(r.fs, path)
	if errors.Is(err, os.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return string(data), true, nil
}

// readMatching concatenates the files in dir accepted by keep, in name order
func (r *Runner) readMatching(dir string, keep func(string) bool) (string, bool, error) {
	entries, err := afero.ReadDir(r.fs, dir)
	if errors.Is(err, os.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}

	var sb strings.Builder
	found := false
	for _, entry := range entries {
		if entry.IsDir() || !keep(entry.Name()) {
			continue
		}
		data, err := afero.ReadFile(r.fs, filepath.Join(dir, entry.Name()))
		if err != nil {
			return "", false, err
		}
		sb.Write(data)
		sb.WriteString("\n")
		found = true
	}
	return sb.String(), found, nil
}

// ExtractDumpsysSection returns the lines of one service's section of a
// dumpsys.txt capture: everything after "DUMP OF SERVICE <service>:" up to
// the dashed delimiter line.
func ExtractDumpsysSection(dumpsys, service string) string {
	header := "DUMP OF SERVICE " + service + ":"
	var lines []string
	inSection := false
	for _, line := range splitLines(dumpsys) {
		trimmed := strings.TrimSpace(line)
		if !inSection {
			inSection = trimmed == header
			continue
		}
		if strings.HasPrefix(trimmed, dumpsysDelimiter) {
			break
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}
