package bootstrap

import (
	"fmt"
	"path/filepath"
	"strings"

	"libmvt/config"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// DataDirectories defines the paths libmvt reads and writes
type DataDirectories struct {
	Base       string // Base data directory
	Indicators string // Downloaded indicator files
	SQLite     string // Results database path
}

// DataDirectoriesFromConfig creates DataDirectories from configuration
func DataDirectoriesFromConfig(cfg *config.Config) DataDirectories {
	return DataDirectories{
		Base:       cfg.DataDir,
		Indicators: cfg.IndicatorsDir,
		SQLite:     cfg.SQLitePath,
	}
}

// EnsureDataDirectories creates the data and indicator directories and
// checks they are writable
func EnsureDataDirectories(fs afero.Fs, dirs DataDirectories, sugar *zap.SugaredLogger) error {
	for _, dir := range []string{dirs.Base, dirs.Indicators} {
		if err := fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w\n"+
				"  Remediation: Ensure the parent directory exists and is writable", dir, err)
		}

		testFile := filepath.Join(dir, ".libmvt_write_test")
		if err := afero.WriteFile(fs, testFile, []byte("test"), 0o644); err != nil {
			return fmt.Errorf("directory %s is not writable: %w\n"+
				"  Remediation: Check file system permissions or set --data-dir", dir, err)
		}
		_ = fs.Remove(testFile)

		sugar.Debugw("Data directory ready", "path", dir)
	}
	return nil
}

// ClassifySQLiteError turns a results database failure into an actionable
// message
func ClassifySQLiteError(err error, dbPath string) string {
	if err == nil {
		return ""
	}

	errStr := strings.ToLower(err.Error())
	absPath, _ := filepath.Abs(dbPath)
	parentDir := filepath.Dir(absPath)

	switch {
	case strings.Contains(errStr, "permission denied") || strings.Contains(errStr, "access denied"):
		return fmt.Sprintf("Permission denied accessing results database at %s.\n"+
			"  Remediation:\n"+
			"  - Check directory permissions: ls -la %s\n"+
			"  - Or skip persistence with --no-store", absPath, parentDir)

	case strings.Contains(errStr, "database is locked") || strings.Contains(errStr, "sqlite_busy"):
		return fmt.Sprintf("Results database at %s is locked by another process.\n"+
			"  Remediation:\n"+
			"  - Wait for the other libmvt run to finish\n"+
			"  - Or point sqlite_path at a different file", absPath)

	case strings.Contains(errStr, "corrupt") || strings.Contains(errStr, "malformed"):
		return fmt.Sprintf("Results database at %s appears to be corrupted.\n"+
			"  Remediation:\n"+
			"  - Check integrity: sqlite3 %s \"PRAGMA integrity_check;\"\n"+
			"  - Move the file aside; a new database is created on the next run", absPath, absPath)

	case strings.Contains(errStr, "read-only"):
		return fmt.Sprintf("Results database location is on a read-only file system: %s.\n"+
			"  Remediation:\n"+
			"  - Set LIBMVT_SQLITE_PATH to a writable location", absPath)
	}

	return fmt.Sprintf("Failed to open results database at %s: %v\n"+
		"  Remediation:\n"+
		"  - Ensure the directory %s exists and is writable", absPath, err, parentDir)
}
