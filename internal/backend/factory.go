package backend

import (
	"fmt"
	"log/slog"

	"fatture/internal/storage"
)

// Result carries the opened repository and its cleanup function.
type Result struct {
	Repository storage.Repository
	Cleanup    func() error
}

// Open creates the repository described by the config. Migrations run as a
// side effect for the SQL backends and are idempotent.
func Open(cfg Config, logger *slog.Logger) (*Result, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Type {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("initialize sqlite backend: %w", err)
		}
		logger.Info("Initialized SQLite backend", "db_path", cfg.SQLiteDBPath)
		return &Result{Repository: repo, Cleanup: repo.Close}, nil

	case PostgresBackend:
		repo, err := storage.NewPostgresRepository(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("initialize postgres backend: %w", err)
		}
		logger.Info("Initialized Postgres backend")
		return &Result{Repository: repo, Cleanup: repo.Close}, nil

	case MemoryBackend:
		repo := storage.NewMemoryRepository()
		logger.Info("Initialized memory backend")
		return &Result{Repository: repo, Cleanup: repo.Close}, nil

	default:
		return nil, fmt.Errorf("unsupported backend type: %s", cfg.Type)
	}
}
