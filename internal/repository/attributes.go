package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/google/uuid"

	"github.com/bregovic/docmeta/internal/common"
	"github.com/bregovic/docmeta/internal/entity"
)

type AttributeRepository interface {
	ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]entity.Attribute, error)
}

type attributeRepo struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewAttributeRepository(db *sql.DB, logger *slog.Logger) AttributeRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &attributeRepo{db: db, logger: logger}
}

func (r *attributeRepo) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]entity.Attribute, error) {
	const q = `SELECT id, name, code, data_type, direction
		FROM attributes WHERE tenant_id = $1 ORDER BY name, id`

	rows, err := r.db.QueryContext(ctx, q, tenantID.String())
	if err != nil {
		r.logger.Error("failed to list attributes", "tenant_id", tenantID, "error", err)
		return nil, common.NewAppError("ATTR_QUERY", "failed to list attributes", err)
	}
	defer rows.Close()

	var attrs []entity.Attribute
	byID := map[uuid.UUID]int{}
	for rows.Next() {
		var (
			a     entity.Attribute
			rawID string
			code  sql.NullString
			dir   sql.NullString
		)
		if err := rows.Scan(&rawID, &a.Name, &code, &a.DataType, &dir); err != nil {
			return nil, common.NewAppError("ATTR_QUERY", "failed to scan attribute", err)
		}
		if a.ID, err = uuid.Parse(rawID); err != nil {
			return nil, common.NewAppError("ATTR_QUERY", "malformed attribute id", err)
		}
		a.TenantID = tenantID
		a.Code = code.String
		a.Direction = entity.ScanDirection(dir.String)
		if a.Direction == "" {
			a.Direction = entity.DirectionAuto
		}
		byID[a.ID] = len(attrs)
		attrs = append(attrs, a)
	}
	if err := rows.Err(); err != nil {
		return nil, common.NewAppError("ATTR_QUERY", "attribute iteration failed", err)
	}

	if err := r.loadAliases(ctx, tenantID, attrs, byID); err != nil {
		return nil, err
	}
	return attrs, nil
}

// loadAliases attaches translated keyword synonyms to the listed attributes.
func (r *attributeRepo) loadAliases(ctx context.Context, tenantID uuid.UUID, attrs []entity.Attribute, byID map[uuid.UUID]int) error {
	const q = `SELECT aa.attribute_id, aa.alias
		FROM attribute_aliases aa
		JOIN attributes a ON a.id = aa.attribute_id
		WHERE a.tenant_id = $1 ORDER BY aa.attribute_id, aa.position`

	rows, err := r.db.QueryContext(ctx, q, tenantID.String())
	if err != nil {
		r.logger.Error("failed to list attribute aliases", "tenant_id", tenantID, "error", err)
		return common.NewAppError("ATTR_QUERY", "failed to list aliases", err)
	}
	defer rows.Close()

	for rows.Next() {
		var rawID, alias string
		if err := rows.Scan(&rawID, &alias); err != nil {
			return common.NewAppError("ATTR_QUERY", "failed to scan alias", err)
		}
		id, err := uuid.Parse(rawID)
		if err != nil {
			return common.NewAppError("ATTR_QUERY", "malformed alias attribute id", err)
		}
		if i, ok := byID[id]; ok && alias != "" {
			attrs[i].Aliases = append(attrs[i].Aliases, alias)
		}
	}
	return rows.Err()
}
