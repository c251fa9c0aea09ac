package heuristic

import (
	"regexp"
	"strings"

	"github.com/bregovic/docmeta/constants"
	"github.com/bregovic/docmeta/internal/entity"
	"github.com/bregovic/docmeta/internal/fieldval"
)

// ruleInput carries one keyword hit: the matched line, the remainder after
// the keyword, the following line, and whether the attribute belongs to the
// supplier side of the document.
type ruleInput struct {
	Attr       entity.Attribute
	Line       string
	Suffix     string
	Next       string
	IsSupplier bool
}

type ruleFunc func(in ruleInput) *entity.ExtractionResult

// codeRules is the per-field-code rule table. Row order is the rule
// priority; changing it changes which value wins on ambiguous documents.
var codeRules = []struct {
	match func(code string) bool
	rules []ruleFunc
}{
	{codeIs("INVOICE_NUMBER"), []ruleFunc{invoiceNumberRule}},
	{codeIn("BANK_ACCOUNT", "IBAN"), []ruleFunc{ibanRule}},
	{codeContains("ICO"), []ruleFunc{icoRule}},
	{codeIs("SUPPLIER_VAT_ID"), []ruleFunc{vatIDRule}},
	{codeIn("VARIABLE_SYMBOL", "CONSTANT_SYMBOL"), []ruleFunc{symbolRule}},
	{codePrefix("VAT_"), []ruleFunc{vatAmountRule}},
}

// applyCodeRules runs every matching rule in table order; the first rule
// producing a value returns immediately.
func applyCodeRules(in ruleInput) *entity.ExtractionResult {
	code := in.Attr.Code
	if code == "" {
		return nil
	}
	for _, row := range codeRules {
		if !row.match(code) {
			continue
		}
		for _, rule := range row.rules {
			if res := rule(in); res != nil {
				return res
			}
		}
	}
	return nil
}

func codeIs(want string) func(string) bool {
	return func(code string) bool { return code == want }
}

func codeIn(want ...string) func(string) bool {
	return func(code string) bool {
		for _, w := range want {
			if code == w {
				return true
			}
		}
		return false
	}
}

func codeContains(sub string) func(string) bool {
	return func(code string) bool { return strings.Contains(code, sub) }
}

func codePrefix(prefix string) func(string) bool {
	return func(code string) bool { return strings.HasPrefix(code, prefix) }
}

var (
	reInvoiceNumber = regexp.MustCompile(`(?i)(?:(?:č|c)\.?\s*|no\.?\s*|number\s*|#\s*)?(\d{6,15})\b`)
	reIBAN          = regexp.MustCompile(`CZ(?:\s?\d){22}`)
	reICO           = regexp.MustCompile(`\b(\d{8})\b`)
	reVATID         = regexp.MustCompile(`\bCZ\d{8,10}\b`)
	reSymbol        = regexp.MustCompile(`\b(\d{1,10})\b`)
)

// invoiceNumberExcludes are deposit/order mentions: a number next to them is
// a related-but-wrong number, not the invoice number.
var invoiceNumberExcludes = []string{"záloh", "zaloh", "objedn", "deposit", "order"}

// lineExcluded drops whole keyword lines for codes with exclusion lists, so
// neither the code rules nor the generic scan can bind a value from them.
func lineExcluded(code, lineLow string) bool {
	if code != "INVOICE_NUMBER" {
		return false
	}
	for _, ex := range invoiceNumberExcludes {
		if strings.Contains(lineLow, ex) {
			return true
		}
	}
	return false
}

func invoiceNumberRule(in ruleInput) *entity.ExtractionResult {
	if m := reInvoiceNumber.FindStringSubmatch(in.Suffix); m != nil {
		return result(in.Attr, m[1], constants.ConfidenceHigh, constants.StrategyInvoiceNumber)
	}
	return nil
}

func ibanRule(in ruleInput) *entity.ExtractionResult {
	if m := reIBAN.FindString(in.Line); m != "" {
		return result(in.Attr, compactDigits(m), constants.ConfidenceHigh, constants.StrategyIBAN)
	}
	if in.Next != "" && !(in.IsSupplier && containsBuyerMarker(strings.ToLower(in.Next))) {
		if m := reIBAN.FindString(in.Next); m != "" {
			return result(in.Attr, compactDigits(m), constants.ConfidenceHigh, constants.StrategyIBANNextLine)
		}
	}
	return nil
}

func icoRule(in ruleInput) *entity.ExtractionResult {
	if m := reICO.FindStringSubmatch(in.Line); m != nil {
		return result(in.Attr, m[1], constants.ConfidenceHigh, constants.StrategyICO)
	}
	// the next line is rejected for supplier fields when it opens the buyer
	// section, so the counterparty's ID is never cross-assigned
	if in.Next != "" && !(in.IsSupplier && containsBuyerMarker(strings.ToLower(in.Next))) {
		if m := reICO.FindStringSubmatch(in.Next); m != nil {
			return result(in.Attr, m[1], constants.ConfidenceHigh, constants.StrategyICONextLine)
		}
	}
	return nil
}

func vatIDRule(in ruleInput) *entity.ExtractionResult {
	if m := reVATID.FindString(in.Line); m != "" {
		return result(in.Attr, m, constants.ConfidenceHigh, constants.StrategyVATID)
	}
	if in.Next != "" && !(in.IsSupplier && containsBuyerMarker(strings.ToLower(in.Next))) {
		if m := reVATID.FindString(in.Next); m != "" {
			return result(in.Attr, m, constants.ConfidenceHigh, constants.StrategyVATIDNextLine)
		}
	}
	return nil
}

func symbolRule(in ruleInput) *entity.ExtractionResult {
	if m := reSymbol.FindStringSubmatch(in.Suffix); m != nil {
		return result(in.Attr, m[1], constants.ConfidenceMedium, constants.StrategySymbol)
	}
	if in.Next != "" {
		if m := reSymbol.FindStringSubmatch(in.Next); m != nil {
			return result(in.Attr, m[1], constants.ConfidenceMedium, constants.StrategySymbolNextLine)
		}
	}
	return nil
}

func vatAmountRule(in ruleInput) *entity.ExtractionResult {
	if v, ok := fieldval.ParseNumber(in.Suffix); ok {
		return result(in.Attr, v, constants.ConfidenceMedium, constants.StrategyVATAmount)
	}
	return nil
}

func compactDigits(s string) string {
	return strings.ReplaceAll(s, " ", "")
}
