package storage

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"marketplace/internal/config"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Str("component", "storage").Logger()

// BlobStore persists uploaded bytes and resolves their public URL.
type BlobStore interface {
	Put(ctx context.Context, bucket, key, contentType string, data []byte) error
	URL(bucket, key string) string
}

// NewBlobStore picks the implementation named by cfg.Driver.
func NewBlobStore(ctx context.Context, cfg config.StorageConfig) (BlobStore, error) {
	switch cfg.Driver {
	case "local":
		return NewLocalStore(cfg.LocalRoot, cfg.PublicBaseURL)
	case "s3":
		return NewS3Store(ctx, cfg)
	default:
		return nil, fmt.Errorf("storage: unsupported driver %q", cfg.Driver)
	}
}
