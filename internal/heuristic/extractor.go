// Package heuristic extracts attribute values from recognized text by
// keyword proximity: per-code regex rules first, then generic same-line /
// next-line scanning, then position-independent global fallbacks.
package heuristic

import (
	"log/slog"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/bregovic/docmeta/constants"
	"github.com/bregovic/docmeta/internal/entity"
	"github.com/bregovic/docmeta/internal/fieldval"
)

// buyerMarkers open the counterparty section on two-party documents.
// Supplier-side attributes must never bind to values near these.
var buyerMarkers = []string{"odběratel", "odberatel", "příjemce", "prijemce"}

// supplierMarkers reopen the supplier side after a buyer block.
var supplierMarkers = []string{"dodavatel"}

type Extractor struct {
	logger *slog.Logger
}

func NewExtractor(logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{logger: logger}
}

// Extract scans the full text line-by-line for every attribute. Each
// attribute yields at most one result; attribute order does not affect
// correctness, keyword and rule order within one attribute do.
func (e *Extractor) Extract(fullText string, attrs []entity.Attribute) []entity.ExtractionResult {
	if strings.TrimSpace(fullText) == "" {
		return nil
	}
	lines := strings.Split(fullText, "\n")
	zone := buyerZone(lines)

	var results []entity.ExtractionResult
	for _, attr := range attrs {
		res := e.extractAttribute(lines, zone, attr)
		if res == nil {
			res = globalFallback(lines, attr)
		}
		if res != nil {
			e.logger.Debug("heuristic hit",
				"code", attr.Code, "strategy", res.Strategy, "confidence", res.Confidence)
			results = append(results, *res)
		}
	}
	return results
}

// extractAttribute tries each keyword synonym in turn; the first keyword
// that yields a value wins and short-circuits the rest.
func (e *Extractor) extractAttribute(lines []string, zone []bool, attr entity.Attribute) *entity.ExtractionResult {
	isSupplier := isSupplierField(attr.Code)

	keywords := make([]string, 0, 1+len(attr.Aliases))
	if attr.Name != "" {
		keywords = append(keywords, attr.Name)
	}
	keywords = append(keywords, attr.Aliases...)

	for _, kw := range keywords {
		kwLow := strings.ToLower(strings.TrimSpace(kw))
		if kwLow == "" {
			continue
		}
		for i, line := range lines {
			lineLow, offs := foldLine(line)
			idx := strings.Index(lineLow, kwLow)
			if idx < 0 {
				continue
			}
			if isSupplier && zone[i] {
				continue
			}
			if lineExcluded(attr.Code, lineLow) {
				continue
			}

			end := idx + len(kwLow)
			if offs != nil {
				end = offs[end]
			}
			in := ruleInput{
				Attr:       attr,
				Line:       line,
				Suffix:     trimSeparators(line[end:]),
				Next:       nextLine(lines, i),
				IsSupplier: isSupplier,
			}
			if res := applyCodeRules(in); res != nil {
				return res
			}
			if res := genericScan(in); res != nil {
				return res
			}
		}
	}
	return nil
}

// genericScan applies the direction-gated same-line / next-line rules.
func genericScan(in ruleInput) *entity.ExtractionResult {
	dir := in.Attr.Direction
	if dir == "" {
		dir = entity.DirectionAuto
	}

	if dir == entity.DirectionAuto || dir == entity.DirectionRight {
		if v, ok := fieldval.ParseValue(in.Suffix, in.Attr.DataType, in.Attr.Code); ok && candidateOK(in.Attr.Code, v) {
			return result(in.Attr, v, constants.ConfidenceHigh, constants.StrategySameLine)
		}
	}
	if dir == entity.DirectionAuto || dir == entity.DirectionDown {
		next := strings.TrimSpace(in.Next)
		// a trailing colon means the next line is probably another label
		if next != "" && !strings.HasSuffix(next, ":") {
			if v, ok := fieldval.ParseValue(next, in.Attr.DataType, in.Attr.Code); ok && candidateOK(in.Attr.Code, v) {
				return result(in.Attr, v, constants.ConfidenceMedium, constants.StrategyNextLine)
			}
		}
	}
	return nil
}

// candidateOK rejects supplier-name candidates that grabbed a document-type
// label or a bare code instead of a name.
func candidateOK(code string, v any) bool {
	if code != fieldval.CodeSupplierName {
		return true
	}
	s, ok := v.(string)
	if !ok {
		return true
	}
	low := strings.ToLower(s)
	if strings.Contains(low, "faktura") || strings.Contains(low, "doklad") {
		return false
	}
	return !fieldval.IsNumericOnly(s)
}

func isSupplierField(code string) bool {
	return strings.Contains(code, "SUPPLIER_") || code == "IBAN" || code == "BANK_ACCOUNT"
}

// buyerZone marks lines inside the counterparty block: from a buyer marker
// until a supplier marker reopens the supplier side. The marker line itself
// counts as part of the block.
func buyerZone(lines []string) []bool {
	zone := make([]bool, len(lines))
	in := false
	for i, line := range lines {
		low := strings.ToLower(line)
		if containsBuyerMarker(low) {
			in = true
		} else if containsSupplierMarker(low) {
			in = false
		}
		zone[i] = in
	}
	return zone
}

func containsSupplierMarker(lineLow string) bool {
	for _, m := range supplierMarkers {
		if strings.Contains(lineLow, m) {
			return true
		}
	}
	return false
}

func containsBuyerMarker(lineLow string) bool {
	for _, m := range buyerMarkers {
		if strings.Contains(lineLow, m) {
			return true
		}
	}
	return false
}

// foldLine lowercases a line for keyword search. When the fold changes the
// byte length (e.g. İ shrinks to i), it also returns a map from every folded
// byte to its originating offset, so suffix slicing stays anchored to the
// original line; a nil map means offsets are identical.
func foldLine(s string) (string, []int) {
	lower := strings.ToLower(s)
	if len(lower) == len(s) {
		return lower, nil
	}

	var b strings.Builder
	offs := make([]int, 0, len(lower)+1)
	for i, r := range s {
		lr := unicode.ToLower(r)
		for k := 0; k < utf8.RuneLen(lr); k++ {
			offs = append(offs, i)
		}
		b.WriteRune(lr)
	}
	offs = append(offs, len(s))
	return b.String(), offs
}

// trimSeparators strips the label separators between a keyword and its value.
func trimSeparators(s string) string {
	return strings.TrimLeft(s, ": \t-")
}

func nextLine(lines []string, i int) string {
	if i+1 < len(lines) {
		return lines[i+1]
	}
	return ""
}

func result(attr entity.Attribute, v any, conf constants.Confidence, strategy string) *entity.ExtractionResult {
	return &entity.ExtractionResult{
		AttributeID: attr.ID,
		Code:        attr.Code,
		Name:        attr.Name,
		Value:       v,
		Confidence:  conf,
		Strategy:    strategy,
	}
}
