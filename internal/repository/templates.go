package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/google/uuid"

	"github.com/bregovic/docmeta/internal/common"
	"github.com/bregovic/docmeta/internal/entity"
)

type TemplateRepository interface {
	// ListForDocType returns templates whose doc-type link matches docTypeID
	// or is absent (wildcard), in stable sort order. Matching precedence among
	// the returned templates is positional: first match wins downstream.
	ListForDocType(ctx context.Context, tenantID uuid.UUID, docTypeID *uuid.UUID) ([]entity.Template, error)
}

type templateRepo struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewTemplateRepository(db *sql.DB, logger *slog.Logger) TemplateRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &templateRepo{db: db, logger: logger}
}

func (r *templateRepo) ListForDocType(ctx context.Context, tenantID uuid.UUID, docTypeID *uuid.UUID) ([]entity.Template, error) {
	const q = `SELECT id, name, doc_type_id, anchor_text
		FROM templates
		WHERE tenant_id = $1 AND (doc_type_id IS NULL OR doc_type_id = $2)
		ORDER BY sort_order, id`

	var docType any
	if docTypeID != nil {
		docType = docTypeID.String()
	}
	rows, err := r.db.QueryContext(ctx, q, tenantID.String(), docType)
	if err != nil {
		r.logger.Error("failed to list templates", "tenant_id", tenantID, "error", err)
		return nil, common.NewAppError("TPL_QUERY", "failed to list templates", err)
	}
	defer rows.Close()

	var tpls []entity.Template
	byID := map[uuid.UUID]int{}
	for rows.Next() {
		var (
			t      entity.Template
			rawID  string
			dt     sql.NullString
			anchor sql.NullString
		)
		if err := rows.Scan(&rawID, &t.Name, &dt, &anchor); err != nil {
			return nil, common.NewAppError("TPL_QUERY", "failed to scan template", err)
		}
		if t.ID, err = uuid.Parse(rawID); err != nil {
			return nil, common.NewAppError("TPL_QUERY", "malformed template id", err)
		}
		t.TenantID = tenantID
		t.AnchorText = anchor.String
		if dt.Valid {
			v, err := uuid.Parse(dt.String)
			if err != nil {
				return nil, common.NewAppError("TPL_QUERY", "malformed template doc type id", err)
			}
			t.DocTypeID = &v
		}
		byID[t.ID] = len(tpls)
		tpls = append(tpls, t)
	}
	if err := rows.Err(); err != nil {
		return nil, common.NewAppError("TPL_QUERY", "template iteration failed", err)
	}
	if len(tpls) == 0 {
		return tpls, nil
	}

	if err := r.loadZones(ctx, tenantID, tpls, byID); err != nil {
		return nil, err
	}
	return tpls, nil
}

func (r *templateRepo) loadZones(ctx context.Context, tenantID uuid.UUID, tpls []entity.Template, byID map[uuid.UUID]int) error {
	const q = `SELECT z.id, z.template_id, z.attr_code, z.x, z.y, z.width, z.height, z.data_type, z.pattern
		FROM template_zones z
		JOIN templates t ON t.id = z.template_id
		WHERE t.tenant_id = $1
		ORDER BY z.template_id, z.sort_order, z.id`

	rows, err := r.db.QueryContext(ctx, q, tenantID.String())
	if err != nil {
		r.logger.Error("failed to list template zones", "tenant_id", tenantID, "error", err)
		return common.NewAppError("TPL_QUERY", "failed to list zones", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			z       entity.Zone
			rawID   string
			tplID   string
			pattern sql.NullString
		)
		if err := rows.Scan(&rawID, &tplID, &z.AttrCode, &z.X, &z.Y, &z.Width, &z.Height, &z.DataType, &pattern); err != nil {
			return common.NewAppError("TPL_QUERY", "failed to scan zone", err)
		}
		if z.ID, err = uuid.Parse(rawID); err != nil {
			return common.NewAppError("TPL_QUERY", "malformed zone id", err)
		}
		tid, err := uuid.Parse(tplID)
		if err != nil {
			return common.NewAppError("TPL_QUERY", "malformed zone template id", err)
		}
		z.Pattern = pattern.String
		if i, ok := byID[tid]; ok {
			tpls[i].Zones = append(tpls[i].Zones, z)
		}
	}
	return rows.Err()
}
