// internal/persist/factory.go
package persist

import (
	"fmt"

	"github.com/sanderboers48/orbat-mapper/internal/config"
)

// NewStore creates a persistence backend based on configuration.
func NewStore(cfg config.StorageConfig) (Store, error) {
	switch cfg.Type {
	case "memory":
		return NewMemory(), nil
	case "filesystem":
		return NewFilesystem(cfg.Dir)
	case "sqlite":
		return NewSQLite(cfg.Path)
	case "postgres":
		return NewPostgres(cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
