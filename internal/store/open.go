package store

import (
	"fmt"

	"github.com/ashureev/aifriend/internal/config"
)

// Open returns the repository selected by cfg.Backend.
func Open(cfg config.HistoryConfig) (Repository, error) {
	switch cfg.Backend {
	case config.HistoryBackendJSON, "":
		return NewJSONFile(cfg.Path)
	case config.HistoryBackendSQLite:
		return NewSQLite(cfg.DBPath)
	default:
		return nil, fmt.Errorf("unknown history backend %q", cfg.Backend)
	}
}
