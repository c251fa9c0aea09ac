// Package fieldval normalizes raw recognized text fragments into typed
// values. Every parser is pure; a miss is (nil, false), never an error.
package fieldval

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/bregovic/docmeta/internal/entity"
)

// CodeSupplierName gets extra stop-phrase truncation: OCR flattens the
// multi-column supplier block into one line, so unrelated fields frequently
// trail the name.
const CodeSupplierName = "SUPPLIER_NAME"

var (
	reWhitespaceRun = regexp.MustCompile(`\s+`)
	reNumberRun     = regexp.MustCompile("[0-9][0-9  .,]*")
	reDateDotted    = regexp.MustCompile(`\b\d{1,2}\s*\.\s*\d{1,2}\s*\.\s*\d{4}\b`)
	reDateISO       = regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`)
	reDigitsOnly    = regexp.MustCompile(`^\d+$`)
)

// stopWords are label tokens that commonly trail a value on the same OCR
// line; the candidate is cut at the first one.
var stopWords = map[string]struct{}{
	"datum":   {},
	"dič":     {},
	"dic":     {},
	"ičo":     {},
	"ico":     {},
	"ič":      {},
	"tel":     {},
	"telefon": {},
	"mobil":   {},
	"fax":     {},
	"email":   {},
	"e-mail":  {},
}

// supplierStopPhrases truncate supplier-name candidates; all lowercase,
// diacritic variants listed because OCR drops them inconsistently.
var supplierStopPhrases = []string{
	"variabilní symbol", "variabilni symbol", "var. symbol", "var.symbol",
	"konstantní symbol", "konstantni symbol",
	"objednávk", "objednavk",
	"odběratel", "odberatel",
	"příjemce", "prijemce",
	"bankovní spojení", "bankovni spojeni", "banka", "iban",
	"č. účtu", "c. uctu", "číslo účtu", "cislo uctu", "účet", "ucet",
}

// ParseValue converts a raw text fragment plus a declared data type into a
// cleaned typed value. code selects per-field special casing; pass "" for
// generic handling. The bool is false when no usable value was found.
func ParseValue(raw string, dataType entity.DataType, code string) (any, bool) {
	s := clean(raw)
	if s == "" {
		return nil, false
	}

	switch dataType {
	case entity.DataTypeNumber:
		return ParseNumber(s)
	case entity.DataTypeDate:
		return ParseDate(s)
	default:
		return parseText(s, code)
	}
}

// clean trims whitespace, strips leading OCR noise characters and applies
// the generic stop-word cut.
func clean(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimLeft(s, "|._-")
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	tokens := strings.Fields(s)
	for i, tok := range tokens {
		key := strings.ToLower(strings.Trim(tok, ":.,"))
		if _, stop := stopWords[key]; stop {
			return strings.TrimSpace(strings.Join(tokens[:i], " "))
		}
	}
	return s
}

func parseText(s, code string) (any, bool) {
	if code == CodeSupplierName {
		cut := len(s)
		low := strings.ToLower(s)
		for _, phrase := range supplierStopPhrases {
			if idx := strings.Index(low, phrase); idx >= 0 && idx < cut {
				cut = idx
			}
		}
		s = strings.TrimSpace(s[:cut])
		if s == "" {
			// signal the caller to try the next-line strategy instead
			return nil, false
		}
	}
	s = reWhitespaceRun.ReplaceAllString(s, " ")
	if utf8.RuneCountInString(s) <= 1 {
		return nil, false
	}
	return s, true
}

// ParseNumber extracts the longest digit/space/dot/comma run and resolves
// the decimal separator by position: the rightmost of comma and dot is the
// decimal separator, the other is thousands and is removed. This handles
// both 1.234,56 and 1,234.56 without knowing the locale.
func ParseNumber(s string) (any, bool) {
	candidates := reNumberRun.FindAllString(s, -1)
	if len(candidates) == 0 {
		return nil, false
	}
	best := ""
	for _, c := range candidates {
		if len(c) > len(best) {
			best = c
		}
	}

	// strip thousands-separator spaces, including non-breaking ones
	c := strings.NewReplacer(" ", "", " ", "").Replace(best)
	c = strings.Trim(c, ".,")
	if c == "" {
		return nil, false
	}

	v, err := strconv.ParseFloat(decimalize(c), 64)
	if err != nil {
		return nil, false
	}
	return v, true
}

// decimalize keeps only the rightmost separator (as a dot) and drops the rest.
func decimalize(c string) string {
	lastComma := strings.LastIndexByte(c, ',')
	lastDot := strings.LastIndexByte(c, '.')
	decimal := lastComma
	if lastDot > lastComma {
		decimal = lastDot
	}

	var b strings.Builder
	for i := 0; i < len(c); i++ {
		switch c[i] {
		case ',', '.':
			if i == decimal {
				b.WriteByte('.')
			}
		default:
			b.WriteByte(c[i])
		}
	}
	return b.String()
}

// ParseDate matches D(D).M(M).YYYY (optionally space-separated around the
// dots) or ISO YYYY-MM-DD and returns the matched literal unmodified. No
// calendar validation on purpose: the review UI sees what the OCR saw.
func ParseDate(s string) (any, bool) {
	if m := reDateDotted.FindString(s); m != "" {
		return m, true
	}
	if m := reDateISO.FindString(s); m != "" {
		return m, true
	}
	return nil, false
}

// IsNumericOnly reports whether s is purely digits after removing spaces.
func IsNumericOnly(s string) bool {
	compact := strings.NewReplacer(" ", "", " ", "").Replace(strings.TrimSpace(s))
	return compact != "" && reDigitsOnly.MatchString(compact)
}
