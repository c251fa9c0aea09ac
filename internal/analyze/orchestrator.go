// Package analyze orchestrates one extraction run: load the document,
// localize its file, acquire text, then template extraction with a
// heuristic fallback. Runs are stateless; nothing is written back.
package analyze

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/bregovic/docmeta/constants"
	"github.com/bregovic/docmeta/internal/entity"
	"github.com/bregovic/docmeta/internal/templates"
)

type DocumentStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Document, error)
}

type AttributeStore interface {
	ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]entity.Attribute, error)
}

type TemplateStore interface {
	ListForDocType(ctx context.Context, tenantID uuid.UUID, docTypeID *uuid.UUID) ([]entity.Template, error)
}

type StorageResolver interface {
	Resolve(ctx context.Context, pointer string) (string, func(), error)
}

type TextSource interface {
	FullText(ctx context.Context, path, mediaType string) (string, error)
}

type TemplateMatcher interface {
	MatchAndExtract(ctx context.Context, doc *entity.Document, localPath, fullText string,
		tpls []entity.Template, attrs []entity.Attribute) ([]entity.ExtractionResult, error)
}

type HeuristicExtractor interface {
	Extract(fullText string, attrs []entity.Attribute) []entity.ExtractionResult
}

// Result is the outcome of one analysis run.
type Result struct {
	DocumentID     uuid.UUID                 `json:"document_id"`
	StrategyUsed   string                    `json:"strategy_used"`
	RawTextPreview string                    `json:"raw_text_preview"`
	Attributes     []entity.ExtractionResult `json:"attributes"`
}

const previewRunes = 500

type Service struct {
	docs     DocumentStore
	attrs    AttributeStore
	tpls     TemplateStore
	resolver StorageResolver
	text     TextSource
	matcher  TemplateMatcher
	heur     HeuristicExtractor
	tplDir   string
	logger   *slog.Logger
}

func NewService(docs DocumentStore, attrs AttributeStore, tpls TemplateStore,
	resolver StorageResolver, text TextSource, matcher TemplateMatcher,
	heur HeuristicExtractor, tplDir string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		docs: docs, attrs: attrs, tpls: tpls,
		resolver: resolver, text: text, matcher: matcher, heur: heur,
		tplDir: tplDir, logger: logger,
	}
}

// Analyze runs the full pipeline for one document. Lookup, localization and
// text acquisition failures abort the run; a failed or empty template pass
// degrades to the heuristic pass instead.
func (s *Service) Analyze(ctx context.Context, documentID uuid.UUID) (*Result, error) {
	started := time.Now()

	doc, err := s.docs.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}

	localPath, cleanup, err := s.resolver.Resolve(ctx, doc.StoragePath)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	fullText, err := s.text.FullText(ctx, localPath, doc.MediaType)
	if err != nil {
		return nil, err
	}
	s.logger.Info("text acquired", "document_id", documentID, "chars", len(fullText))

	attrs, err := s.attrs.ListByTenant(ctx, doc.TenantID)
	if err != nil {
		return nil, err
	}

	tpls, err := s.collectTemplates(ctx, doc)
	if err != nil {
		return nil, err
	}

	results, strategy := s.extract(ctx, doc, localPath, fullText, tpls, attrs)

	s.logger.Info("analysis finished",
		"document_id", documentID,
		"strategy", strategy,
		"attributes", len(results),
		"duration_ms", time.Since(started).Milliseconds())

	return &Result{
		DocumentID:     documentID,
		StrategyUsed:   strategy,
		RawTextPreview: preview(fullText),
		Attributes:     results,
	}, nil
}

// collectTemplates merges database templates with file-based ones from the
// configured directory. Database templates keep precedence.
func (s *Service) collectTemplates(ctx context.Context, doc *entity.Document) ([]entity.Template, error) {
	tpls, err := s.tpls.ListForDocType(ctx, doc.TenantID, doc.DocTypeID)
	if err != nil {
		return nil, err
	}
	extra, err := templates.LoadDir(s.tplDir, doc.TenantID, s.logger)
	if err != nil {
		// file templates are supplementary; a broken directory must not take
		// down database-driven analysis
		s.logger.Warn("failed to load file templates", "dir", s.tplDir, "error", err)
		return tpls, nil
	}
	return append(tpls, extra...), nil
}

func (s *Service) extract(ctx context.Context, doc *entity.Document, localPath, fullText string,
	tpls []entity.Template, attrs []entity.Attribute) ([]entity.ExtractionResult, string) {

	if len(tpls) > 0 {
		results, err := s.matcher.MatchAndExtract(ctx, doc, localPath, fullText, tpls, attrs)
		if err != nil {
			s.logger.Warn("template extraction failed, falling back", "document_id", doc.ID, "error", err)
		}
		if len(results) > 0 {
			return results, constants.StrategyTemplate
		}
	}
	return s.heur.Extract(fullText, attrs), constants.StrategyRegex
}

func preview(s string) string {
	runes := []rune(s)
	if len(runes) <= previewRunes {
		return s
	}
	return string(runes[:previewRunes])
}
