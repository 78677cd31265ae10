package bootstrap

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"libmvt/core"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

func TestInitLogger(t *testing.T) {
	tests := []struct {
		level   string
		wantErr bool
	}{
		{"debug", false},
		{"info", false},
		{"warn", false},
		{"error", false},
		{"verbose", true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			logger, sugar, err := InitLogger(tt.level, false)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("InitLogger(%q) expected error", tt.level)
				}
				return
			}
			if err != nil {
				t.Fatalf("InitLogger(%q) error = %v", tt.level, err)
			}
			if logger == nil || sugar == nil {
				t.Fatal("InitLogger() returned nil logger")
			}
		})
	}
}

func TestEnsureDataDirectories(t *testing.T) {
	fs := afero.NewMemMapFs()
	dirs := DataDirectories{Base: "/data", Indicators: "/data/indicators", SQLite: "/data/libmvt.db"}

	if err := EnsureDataDirectories(fs, dirs, zap.NewNop().Sugar()); err != nil {
		t.Fatalf("EnsureDataDirectories() error = %v", err)
	}

	for _, dir := range []string{dirs.Base, dirs.Indicators} {
		ok, err := afero.DirExists(fs, dir)
		if err != nil || !ok {
			t.Errorf("directory %s was not created", dir)
		}
		if exists, _ := afero.Exists(fs, filepath.Join(dir, ".libmvt_write_test")); exists {
			t.Errorf("write test file left behind in %s", dir)
		}
	}
}

func TestEnsureDataDirectories_ReadOnly(t *testing.T) {
	fs := afero.NewReadOnlyFs(afero.NewMemMapFs())
	dirs := DataDirectories{Base: "/data", Indicators: "/data/indicators"}

	if err := EnsureDataDirectories(fs, dirs, zap.NewNop().Sugar()); err == nil {
		t.Fatal("expected error on read-only filesystem")
	}
}

func TestClassifySQLiteError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		contains string
	}{
		{"nil error", nil, ""},
		{"permission denied", errors.New("open: permission denied"), "Permission denied"},
		{"locked", errors.New("database is locked (5) (SQLITE_BUSY)"), "locked by another process"},
		{"corrupt", errors.New("database disk image is malformed"), "corrupted"},
		{"read-only", errors.New("attempt to write a read-only database"), "read-only file system"},
		{"generic", errors.New("something else"), "Failed to open results database"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := ClassifySQLiteError(tt.err, "/tmp/test.db")
			if tt.contains == "" {
				if msg != "" {
					t.Errorf("ClassifySQLiteError(nil) = %q, want empty", msg)
				}
				return
			}
			if !strings.Contains(msg, tt.contains) {
				t.Errorf("ClassifySQLiteError() = %q, want to contain %q", msg, tt.contains)
			}
		})
	}
}

func TestNewApp(t *testing.T) {
	dataDir := t.TempDir()
	fs := afero.NewMemMapFs()

	app, err := NewApp(Options{
		ConfigPath: writeAppConfig(t, "log_level: info\n"),
		Overrides: map[string]any{
			"data_dir":    dataDir,
			"sqlite_path": ":memory:",
		},
		Fs:     fs,
		Logger: zap.NewNop().Sugar(),
	})
	if err != nil {
		t.Fatalf("NewApp() error = %v", err)
	}
	defer app.Shutdown()

	if app.Dirs.Indicators != filepath.Join(dataDir, "indicators") {
		t.Errorf("Dirs.Indicators = %q", app.Dirs.Indicators)
	}

	if err := afero.WriteFile(fs, filepath.Join(app.Dirs.Indicators, "magisk.json"),
		[]byte(`{"indicators": [{"app:id": "com.topjohnwu.magisk"}]}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := afero.WriteFile(fs, "/extra/evil.json",
		[]byte(`{"indicators": [{"domain-name:value": "evil.example"}]}`), 0o644); err != nil {
		t.Fatal(err)
	}

	matcher, result, err := app.LoadIndicators("/extra/evil.json")
	if err != nil {
		t.Fatalf("LoadIndicators() error = %v", err)
	}
	if len(result.Files) != 2 {
		t.Errorf("loaded %d files, want 2", len(result.Files))
	}
	if got := matcher.MatchString("com.topjohnwu.magisk", core.CategoryAppID); len(got) != 1 {
		t.Errorf("app id detections = %v", got)
	}
	if got := matcher.MatchString("http://www.evil.example/", core.CategoryDomain); len(got) != 1 {
		t.Errorf("domain detections = %v", got)
	}

	store, err := app.Store()
	if err != nil {
		t.Fatalf("Store() error = %v", err)
	}
	again, _ := app.Store()
	if store != again {
		t.Error("Store() opened a second database")
	}

	if _, err := app.Updater(); err != nil {
		t.Fatalf("Updater() error = %v", err)
	}
}

func writeAppConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := afero.WriteFile(afero.NewOsFs(), path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}
