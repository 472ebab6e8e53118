package blob

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/duetapp/duet-server/internal/config"
	"github.com/duetapp/duet-server/internal/utils/platformerrors"
)

// LocalStore stores blobs under a base directory on the local filesystem.
type LocalStore struct {
	basePath string
	log      zerolog.Logger
}

// NewLocalStore creates a local filesystem blob backend.
func NewLocalStore(cfg *config.Config, log zerolog.Logger) (*LocalStore, error) {
	logger := log.With().Str("component", "local-blob").Logger()

	basePath := cfg.LocalBlobPath
	if basePath == "" {
		return nil, fmt.Errorf("DUET_LOCAL_BLOB_PATH is empty")
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create blob directory: %w", err)
	}

	logger.Info().Str("path", basePath).Msg("local blob store initialized")

	return &LocalStore{basePath: basePath, log: logger}, nil
}

func (l *LocalStore) fullPath(path string) string {
	return filepath.Join(l.basePath, filepath.FromSlash(path))
}

// Put writes the blob, creating parent directories as needed.
func (l *LocalStore) Put(ctx context.Context, path string, data []byte, contentType string) error {
	full := l.fullPath(path)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return storageErr(ctx, "create directory", err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return storageErr(ctx, "write blob", err)
	}

	l.log.Debug().Str("path", path).Int("bytes", len(data)).Msg("blob written")
	return nil
}

// Get reads the blob contents.
func (l *LocalStore) Get(ctx context.Context, path string) ([]byte, error) {
	data, err := os.ReadFile(l.fullPath(path))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, platformerrors.NewError(ctx, platformerrors.LayerInfrastructure,
				platformerrors.ErrorTypeNotFound, fmt.Sprintf("blob not found: %s", path), err, "")
		}
		return nil, storageErr(ctx, "read blob", err)
	}
	return data, nil
}

// Delete removes the blob. Deleting a missing blob is not an error.
func (l *LocalStore) Delete(ctx context.Context, path string) error {
	if err := os.Remove(l.fullPath(path)); err != nil && !os.IsNotExist(err) {
		return storageErr(ctx, "delete blob", err)
	}
	return nil
}

// Health checks that the base directory is writable.
func (l *LocalStore) Health(ctx context.Context) error {
	testFile := filepath.Join(l.basePath, ".health_check")
	if err := os.WriteFile(testFile, []byte("ok"), 0o644); err != nil {
		return fmt.Errorf("blob directory not writable: %w", err)
	}
	_ = os.Remove(testFile)
	return nil
}

func storageErr(ctx context.Context, op string, err error) error {
	return platformerrors.NewError(ctx, platformerrors.LayerInfrastructure,
		platformerrors.ErrorTypeStorageUnavailable, op+" failed", err, "")
}
