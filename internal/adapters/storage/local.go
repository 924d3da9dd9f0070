// internal/adapters/storage/local.go
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ammerola/finops-console/internal/core/ports"
)

// LocalStorage keeps export files on the local filesystem. It backs the
// worker when no bucket is configured.
type LocalStorage struct {
	basePath string
	logger   *slog.Logger
}

var _ ports.ObjectStorage = (*LocalStorage)(nil)

// NewLocalStorage creates the base directory if needed
func NewLocalStorage(basePath string, logger *slog.Logger) (*LocalStorage, error) {
	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve storage path: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage dir: %w", err)
	}
	return &LocalStorage{
		basePath: abs,
		logger:   logger.With(slog.String("storage", "local")),
	}, nil
}

func (l *LocalStorage) path(key string) (string, error) {
	p := filepath.Join(l.basePath, filepath.FromSlash(key))
	if p != l.basePath && !strings.HasPrefix(p, l.basePath+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	return p, nil
}

// Upload writes data to basePath/key
func (l *LocalStorage) Upload(ctx context.Context, key string, data io.Reader, _ string) (string, error) {
	p, err := l.path(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return "", fmt.Errorf("failed to create dir: %w", err)
	}

	f, err := os.Create(p)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	n, err := io.Copy(f, data)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	l.logger.InfoContext(ctx, "file stored", slog.String("key", key), slog.Int64("bytes", n))
	return p, nil
}

// Delete removes keys, ignoring ones that are already gone
func (l *LocalStorage) Delete(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		p, err := l.path(key)
		if err != nil {
			return err
		}
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to delete file: %w", err)
		}
	}
	return nil
}

// PresignedURL returns a file URL. Local files do not expire.
func (l *LocalStorage) PresignedURL(_ context.Context, key string, _ time.Duration) (string, error) {
	p, err := l.path(key)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(p); err != nil {
		return "", fmt.Errorf("failed to stat file: %w", err)
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(p)}).String(), nil
}

// List walks every file under prefix
func (l *LocalStorage) List(_ context.Context, prefix string) ([]ports.ObjectInfo, error) {
	var objects []ports.ObjectInfo
	err := filepath.WalkDir(l.basePath, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(l.basePath, p)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if !strings.HasPrefix(key, prefix) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		objects = append(objects, ports.ObjectInfo{Key: key, LastModified: info.ModTime().UTC()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	return objects, nil
}
