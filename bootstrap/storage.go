package bootstrap

import (
	"fmt"

	"libmvt/storage"

	"go.uber.org/zap"
)

// InitSQLite opens the results database
func InitSQLite(dirs DataDirectories, sugar *zap.SugaredLogger) (*storage.SQLite, error) {
	sqlite, err := storage.NewSQLite(dirs.SQLite, sugar)
	if err != nil {
		sugar.Errorw("Results database unavailable", "detail", ClassifySQLiteError(err, dirs.SQLite))
		return nil, fmt.Errorf("failed to initialize SQLite: %w", err)
	}

	sugar.Debugw("SQLite initialized", "path", dirs.SQLite)
	return sqlite, nil
}
