package storage

import (
	"context"
	"fmt"

	"budgetapp/internal/config"
)

// Open builds the Storage selected by cfg.StorageBackend.
func Open(ctx context.Context, cfg *config.Config) (Storage, error) {
	switch cfg.StorageBackend {
	case "", "local":
		return NewLocal(cfg.StorageDir)
	case "gcs":
		return NewGCS(ctx, cfg.GCSBucket, "budgetapp/", cfg.GCSCredentialsFile)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}
