package storage

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// LocalStore writes blobs under root/<bucket>/<key> and serves them from
// baseURL/<bucket>/<key>.
type LocalStore struct {
	root    string
	baseURL string
}

func NewLocalStore(root, baseURL string) (*LocalStore, error) {
	if root == "" {
		return nil, fmt.Errorf("storage: local root is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create root: %w", err)
	}
	return &LocalStore{root: root, baseURL: strings.TrimSuffix(baseURL, "/")}, nil
}

func (s *LocalStore) Put(ctx context.Context, bucket, key, contentType string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	rel := path.Clean("/" + path.Join(bucket, key))
	target := filepath.Join(s.root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("storage: create dir: %w", err)
	}
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return fmt.Errorf("storage: write %s: %w", rel, err)
	}
	return nil
}

func (s *LocalStore) URL(bucket, key string) string {
	return s.baseURL + path.Clean("/"+path.Join(bucket, key))
}
