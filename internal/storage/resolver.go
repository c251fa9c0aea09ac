package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/bregovic/docmeta/internal/common"
)

// Resolver turns a document's storage pointer into a local file path.
// The engine never interprets the backend beyond "give me local bytes".
type Resolver interface {
	// Resolve returns a readable local path and a cleanup func for any
	// temporary copy it had to make. cleanup is never nil.
	Resolve(ctx context.Context, pointer string) (string, func(), error)
}

type fileResolver struct {
	minio  *minio.Client
	logger *slog.Logger
}

// NewResolver builds a resolver handling plain local paths and, when cfg is
// populated, minio://bucket/key object pointers.
func NewResolver(cfg common.StorageConfig, logger *slog.Logger) (Resolver, error) {
	if logger == nil {
		logger = slog.Default()
	}
	r := &fileResolver{logger: logger}
	if cfg.MinioEndpoint != "" {
		client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
			Secure: cfg.MinioUseSSL,
		})
		if err != nil {
			return nil, common.NewAppError("STORAGE_INIT", "failed to create minio client", err)
		}
		r.minio = client
	}
	return r, nil
}

func (r *fileResolver) Resolve(ctx context.Context, pointer string) (string, func(), error) {
	noop := func() {}
	if strings.HasPrefix(pointer, "minio://") {
		return r.fetchObject(ctx, pointer)
	}

	if _, err := os.Stat(pointer); err != nil {
		return "", noop, common.NewAppError("FILE_UNAVAILABLE", "document file is not readable", err)
	}
	return pointer, noop, nil
}

// fetchObject localizes a minio://bucket/key object into a temp file.
func (r *fileResolver) fetchObject(ctx context.Context, pointer string) (string, func(), error) {
	noop := func() {}
	if r.minio == nil {
		return "", noop, common.NewAppError("STORAGE_UNCONFIGURED", "minio pointer but no MINIO_ENDPOINT configured", common.ErrInvalidInput)
	}

	trimmed := strings.TrimPrefix(pointer, "minio://")
	bucket, key, ok := strings.Cut(trimmed, "/")
	if !ok || bucket == "" || key == "" {
		return "", noop, common.NewAppError("STORAGE_POINTER", fmt.Sprintf("malformed object pointer %q", pointer), common.ErrInvalidInput)
	}

	local := filepath.Join(os.TempDir(), "docmeta-obj-"+uuid.NewString()+filepath.Ext(key))
	if err := r.minio.FGetObject(ctx, bucket, key, local, minio.GetObjectOptions{}); err != nil {
		r.logger.Error("failed to fetch object", "bucket", bucket, "key", key, "error", err)
		return "", noop, common.NewAppError("FILE_UNAVAILABLE", "failed to fetch object from storage", err)
	}

	r.logger.Debug("object localized", "bucket", bucket, "key", key, "local", local)
	cleanup := func() {
		if err := os.Remove(local); err != nil && !os.IsNotExist(err) {
			r.logger.Warn("failed to remove localized object", "path", local, "error", err)
		}
	}
	return local, cleanup, nil
}
