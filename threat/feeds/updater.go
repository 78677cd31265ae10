package feeds

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// Indicator Feed Updater
// =============================================================================

const (
	// DefaultIndexURL is the public index of indicator feeds
	DefaultIndexURL = "https://raw.githubusercontent.com/mvt-project/mvt-indicators/main/indicators.yaml"

	// DefaultUpdateTimeout applies to the index fetch and to each download
	DefaultUpdateTimeout = 15 * time.Second

	githubRawURL = "https://raw.githubusercontent.com/%s/%s/%s/%s"

	latestUpdateFile = "latest_indicators_update"
	latestCheckFile  = "latest_indicators_check"
	indicatorsSubdir = "indicators"

	maxDownloadSize = 64 * 1024 * 1024
)

var httpSchemeRe = regexp.MustCompile(`^https?://`)

// IndexEntry is one feed listed in the indicators index
type IndexEntry struct {
	Name        string        `yaml:"name"`
	Type        string        `yaml:"type"`
	DownloadURL string        `yaml:"download_url"`
	GitHub      *GitHubSource `yaml:"github"`
}

// GitHubSource locates a file in a GitHub repository
type GitHubSource struct {
	Owner  string `yaml:"owner"`
	Repo   string `yaml:"repo"`
	Branch string `yaml:"branch"`
	Path   string `yaml:"path"`
}

type indexDocument struct {
	Indicators []IndexEntry `yaml:"indicators"`
}

// URL resolves the download location of an entry, or "" if it has none
func (e IndexEntry) URL() string {
	if e.Type == "github" {
		if e.GitHub == nil {
			return ""
		}
		branch := e.GitHub.Branch
		if branch == "" {
			branch = "main"
		}
		return fmt.Sprintf(githubRawURL, e.GitHub.Owner, e.GitHub.Repo, branch, e.GitHub.Path)
	}
	return strings.TrimSpace(e.DownloadURL)
}

// UpdaterConfig configures an Updater. DataDir is required; there is no
// implicit home-directory default.
type UpdaterConfig struct {
	DataDir  string
	IndexURL string
	Timeout  time.Duration
}

// Updater refreshes the local indicators directory from the feed index
type Updater struct {
	fs         afero.Fs
	dataDir    string
	indexURL   string
	timeout    time.Duration
	httpClient *http.Client
	logger     *zap.SugaredLogger
	now        func() time.Time
}

// NewUpdater creates an updater writing under cfg.DataDir on fs
func NewUpdater(fs afero.Fs, cfg UpdaterConfig, logger *zap.SugaredLogger) (*Updater, error) {
	if strings.TrimSpace(cfg.DataDir) == "" {
		return nil, ErrMissingDataDir
	}
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if cfg.IndexURL == "" {
		cfg.IndexURL = DefaultIndexURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultUpdateTimeout
	}

	u := &Updater{
		fs:         fs,
		dataDir:    cfg.DataDir,
		indexURL:   cfg.IndexURL,
		timeout:    cfg.Timeout,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
		now:        time.Now,
	}
	if err := fs.MkdirAll(u.IndicatorsDir(), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create indicators directory: %w", err)
	}
	return u, nil
}

// IndicatorsDir is where downloaded indicator files are stored
func (u *Updater) IndicatorsDir() string {
	return filepath.Join(u.dataDir, indicatorsSubdir)
}

// Update fetches the index and downloads every listed feed. Individual
// download failures are logged and skipped. It returns the written paths.
func (u *Updater) Update(ctx context.Context) ([]string, error) {
	u.writeTimestamp(latestCheckFile)

	entries, err := u.fetchIndex(ctx)
	if err != nil {
		return nil, err
	}

	var written []string
	for _, entry := range entries {
		src := entry.URL()
		if src == "" {
			u.logger.Warnw("Skipping indicator entry", "name", entry.Name, "error", ErrMissingSourceURL)
			continue
		}
		path, err := u.Download(ctx, src)
		if err != nil {
			u.logger.Warnw("Failed to download indicators", "name", entry.Name, "url", src, "error", err)
			continue
		}
		written = append(written, path)
	}

	u.writeTimestamp(latestUpdateFile)
	u.logger.Infow("Indicators updated", "index", u.indexURL, "files", len(written), "entries", len(entries))
	return written, nil
}

// Download stores a single indicator file in IndicatorsDir and returns its path
func (u *Updater) Download(ctx context.Context, src string) (string, error) {
	data, err := u.fetch(ctx, src)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}

	dest := filepath.Join(u.IndicatorsDir(), LocalFileName(src))
	if err := afero.WriteFile(u.fs, dest, data, 0o644); err != nil {
		return "", fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}
	return dest, nil
}

// LocalFileName maps a download URL onto a flat file name: an http(s)
// scheme is dropped and path separators become underscores.
func LocalFileName(src string) string {
	name := httpSchemeRe.ReplaceAllString(src, "")
	return strings.NewReplacer("/", "_", `\`, "_").Replace(name)
}

// LatestCheck returns when the index was last checked (zero if never)
func (u *Updater) LatestCheck() time.Time {
	return u.readTimestamp(latestCheckFile)
}

// LatestUpdate returns when indicators were last downloaded (zero if never)
func (u *Updater) LatestUpdate() time.Time {
	return u.readTimestamp(latestUpdateFile)
}

// ShouldCheck reports whether the last check is older than interval
func (u *Updater) ShouldCheck(interval time.Duration) bool {
	last := u.LatestCheck()
	return last.IsZero() || u.now().Sub(last) >= interval
}

// =============================================================================
// Internal Methods
// =============================================================================

func (u *Updater) fetchIndex(ctx context.Context) ([]IndexEntry, error) {
	data, err := u.fetch(ctx, u.indexURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIndexFetch, err)
	}
	var doc indexDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidIndex, err)
	}
	return doc.Indicators, nil
}

// fetch reads src over HTTP(S) or from a file:// URL on the updater's fs
func (u *Updater) fetch(ctx context.Context, src string) ([]byte, error) {
	parsed, err := url.Parse(src)
	if err != nil {
		return nil, err
	}

	switch parsed.Scheme {
	case "file":
		return afero.ReadFile(u.fs, parsed.Path)
	case "http", "https":
		return u.fetchHTTP(ctx, src)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, parsed.Scheme)
	}
}

func (u *Updater) fetchHTTP(ctx context.Context, src string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, err
	}

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxDownloadSize))
}

func (u *Updater) writeTimestamp(name string) {
	path := filepath.Join(u.dataDir, name)
	ts := strconv.FormatInt(u.now().Unix(), 10)
	if err := afero.WriteFile(u.fs, path, []byte(ts), 0o644); err != nil {
		u.logger.Warnw("Failed to record timestamp", "file", path, "error", err)
	}
}

func (u *Updater) readTimestamp(name string) time.Time {
	data, err := afero.ReadFile(u.fs, filepath.Join(u.dataDir, name))
	if err != nil {
		return time.Time{}
	}
	secs, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil || secs <= 0 {
		return time.Time{}
	}
	return time.Unix(secs, 0)
}
