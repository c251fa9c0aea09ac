package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/bregovic/docmeta/internal/common"
	"github.com/bregovic/docmeta/internal/entity"
)

type DocumentRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Document, error)
}

type documentRepo struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewDocumentRepository(db *sql.DB, logger *slog.Logger) DocumentRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &documentRepo{db: db, logger: logger}
}

func (r *documentRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.Document, error) {
	const q = `SELECT id, tenant_id, media_type, storage_path, doc_type_id
		FROM documents WHERE id = $1`

	var (
		doc       entity.Document
		docID     string
		tenantID  string
		docTypeID sql.NullString
	)
	err := r.db.QueryRowContext(ctx, q, id.String()).Scan(
		&docID, &tenantID, &doc.MediaType, &doc.StoragePath, &docTypeID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.NewAppError("DOC_NOT_FOUND", "document does not exist", common.ErrNotFound)
	}
	if err != nil {
		r.logger.Error("failed to get document", "document_id", id, "error", err)
		return nil, common.NewAppError("DOC_QUERY", "failed to load document", err)
	}

	if doc.ID, err = uuid.Parse(docID); err != nil {
		return nil, common.NewAppError("DOC_QUERY", "malformed document id", err)
	}
	if doc.TenantID, err = uuid.Parse(tenantID); err != nil {
		return nil, common.NewAppError("DOC_QUERY", "malformed tenant id", err)
	}
	if docTypeID.Valid {
		dt, err := uuid.Parse(docTypeID.String)
		if err != nil {
			return nil, common.NewAppError("DOC_QUERY", "malformed doc type id", err)
		}
		doc.DocTypeID = &dt
	}
	return &doc, nil
}
