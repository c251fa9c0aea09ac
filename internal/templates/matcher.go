// Package templates selects a layout template by anchor text and extracts
// values from its declared zones on the rasterized page image.
package templates

import (
	"context"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"

	"github.com/bregovic/docmeta/constants"
	"github.com/bregovic/docmeta/internal/entity"
	"github.com/bregovic/docmeta/internal/fieldval"
)

// PageRenderer rasterizes one 1-based PDF page to an image file.
type PageRenderer interface {
	RenderPage(ctx context.Context, pdfPath string, page int) (string, func(), error)
}

// Recognizer runs OCR over a single image file (page or crop).
type Recognizer interface {
	RecognizeImage(ctx context.Context, path string) (string, error)
}

type Matcher struct {
	renderer PageRenderer
	rec      Recognizer
	logger   *slog.Logger
}

func NewMatcher(renderer PageRenderer, rec Recognizer, logger *slog.Logger) *Matcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Matcher{renderer: renderer, rec: rec, logger: logger}
}

// MatchAndExtract picks the first template matching the document and drives
// zone extraction across it. An empty slice means no template matched (or
// the page could not be rendered) and the caller should fall back.
func (m *Matcher) MatchAndExtract(ctx context.Context, doc *entity.Document, localPath, fullText string,
	tpls []entity.Template, attrs []entity.Attribute) ([]entity.ExtractionResult, error) {

	tpl := selectTemplate(doc, fullText, tpls)
	if tpl == nil {
		m.logger.Debug("no template matched", "document_id", doc.ID, "candidates", len(tpls))
		return nil, nil
	}
	m.logger.Info("template matched", "document_id", doc.ID, "template", tpl.Name, "zones", len(tpl.Zones))

	// rasterize once per document, not once per zone
	imgPath := localPath
	cleanup := func() {}
	if constants.MapMediaTypeToFormat(doc.MediaType) == constants.PDF {
		var err error
		imgPath, cleanup, err = m.renderer.RenderPage(ctx, localPath, 1)
		if err != nil {
			m.logger.Warn("page render failed, template path abandoned", "document_id", doc.ID, "error", err)
			return nil, nil
		}
	}
	defer cleanup()

	img, err := imaging.Open(imgPath)
	if err != nil {
		m.logger.Warn("page image unreadable, template path abandoned", "path", imgPath, "error", err)
		return nil, nil
	}

	attrByCode := map[string]entity.Attribute{}
	for _, a := range attrs {
		if a.Code != "" {
			attrByCode[a.Code] = a
		}
	}

	var results []entity.ExtractionResult
	for _, zone := range tpl.Zones {
		res, err := m.extractZone(ctx, img, zone, attrByCode)
		if err != nil {
			m.logger.Warn("zone extraction failed", "template", tpl.Name, "zone", zone.AttrCode, "error", err)
			continue
		}
		if res != nil {
			results = append(results, *res)
		}
	}
	return results, nil
}

// extractZone crops the zone, OCRs the crop alone and coerces the raw text.
// No value means the attribute is simply omitted, not reported as a failure.
func (m *Matcher) extractZone(ctx context.Context, img image.Image, zone entity.Zone,
	attrByCode map[string]entity.Attribute) (*entity.ExtractionResult, error) {

	bounds := img.Bounds()
	rect := pixelRect(zone, bounds.Dx(), bounds.Dy())
	crop := imaging.Crop(img, image.Rect(rect.X, rect.Y, rect.X+rect.Width, rect.Y+rect.Height))

	tmp := filepath.Join(os.TempDir(), "docmeta-zone-"+uuid.NewString()+".png")
	if err := imaging.Save(crop, tmp); err != nil {
		return nil, err
	}
	defer func() {
		if err := os.Remove(tmp); err != nil && !os.IsNotExist(err) {
			m.logger.Warn("failed to remove zone crop", "path", tmp, "error", err)
		}
	}()

	raw, err := m.rec.RecognizeImage(ctx, tmp)
	if err != nil {
		return nil, err
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	value, ok := coerceZoneValue(raw, zone)
	if !ok {
		return nil, nil
	}

	res := &entity.ExtractionResult{
		Code:       zone.AttrCode,
		Name:       zone.AttrCode,
		Value:      value,
		Confidence: constants.ConfidenceHigh,
		Strategy:   constants.StrategyTemplateZone,
		Source:     &rect,
	}
	if attr, known := attrByCode[zone.AttrCode]; known {
		res.AttributeID = attr.ID
		res.Name = attr.Name
	}
	return res, nil
}

// coerceZoneValue applies the zone's regex override (first capturing group,
// or whole match if ungrouped) and otherwise falls through to generic
// type-based parsing.
func coerceZoneValue(raw string, zone entity.Zone) (any, bool) {
	if zone.Pattern != "" {
		re, err := regexp.Compile(zone.Pattern)
		if err != nil {
			return nil, false
		}
		m := re.FindStringSubmatch(raw)
		if m == nil {
			return nil, false
		}
		if len(m) > 1 && m[1] != "" {
			return m[1], true
		}
		return m[0], m[0] != ""
	}
	return fieldval.ParseValue(raw, zone.DataType, zone.AttrCode)
}

// pixelRect multiplies the fractional bounds by the image dimensions,
// rounding down, with a hard floor of 1 px to avoid degenerate crops.
func pixelRect(zone entity.Zone, imgW, imgH int) entity.Rect {
	x := int(zone.X * float64(imgW))
	y := int(zone.Y * float64(imgH))
	w := int(zone.Width * float64(imgW))
	h := int(zone.Height * float64(imgH))
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	if x > imgW-1 {
		x = imgW - 1
	}
	if y > imgH-1 {
		y = imgH - 1
	}
	if x+w > imgW {
		w = imgW - x
	}
	if y+h > imgH {
		h = imgH - y
	}
	return entity.Rect{X: x, Y: y, Width: w, Height: h}
}

// selectTemplate returns the first candidate whose anchor matches; template
// order is the tie-break, there is no scoring. Anchor comparison folds case
// and whitespace. Absence of the anchor is a non-match even when the
// document type matches exactly.
func selectTemplate(doc *entity.Document, fullText string, tpls []entity.Template) *entity.Template {
	folded := foldText(fullText)
	for i := range tpls {
		tpl := &tpls[i]
		if !docTypeMatches(doc, tpl) {
			continue
		}
		if tpl.AnchorText == "" || strings.Contains(folded, foldText(tpl.AnchorText)) {
			return tpl
		}
	}
	return nil
}

func docTypeMatches(doc *entity.Document, tpl *entity.Template) bool {
	if tpl.DocTypeID == nil {
		return true
	}
	return doc.DocTypeID != nil && *doc.DocTypeID == *tpl.DocTypeID
}

var reFoldSpace = regexp.MustCompile(`\s+`)

func foldText(s string) string {
	return reFoldSpace.ReplaceAllString(strings.ToLower(s), " ")
}
