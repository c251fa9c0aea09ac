package heuristic

import (
	"regexp"
	"strings"

	"github.com/bregovic/docmeta/constants"
	"github.com/bregovic/docmeta/internal/entity"
	"github.com/bregovic/docmeta/internal/fieldval"
)

// Global fallback searches: independent of keyword position, they run only
// when the keyword scan produced nothing for the attribute.

var (
	reISOCurrency = regexp.MustCompile(`\b(CZK|EUR|USD|GBP|CHF|PLN|HUF|SEK|NOK|DKK)\b`)
	reBankCode    = regexp.MustCompile(`/(\d{4})\b`)
)

// totalPhrases mark the payable-total line of Czech invoices.
var totalPhrases = []string{
	"celkem", "k úhradě", "k uhrade", "k zaplacení", "k zaplaceni", "částka", "castka",
}

// itemSectionHeaders open the line-items block.
var itemSectionHeaders = []string{
	"fakturujeme vám", "fakturujeme vam", "označení dodávky", "oznaceni dodavky", "položky", "polozky",
}

// itemColumnWords appear in table header rows, not in item lines.
var itemColumnWords = []string{
	"cena", "množství", "mnozstvi", "dph", "sazba", "m.j.", "jedn.",
}

const maxItemLines = 10

func globalFallback(lines []string, attr entity.Attribute) *entity.ExtractionResult {
	switch attr.Code {
	case "CURRENCY":
		return currencyFallback(lines, attr)
	case "TOTAL_AMOUNT":
		return totalAmountFallback(lines, attr)
	case "BANK_CODE":
		return bankCodeFallback(lines, attr)
	case "CUSTOMER_NAME":
		return customerNameFallback(lines, attr)
	case "INVOICE_ITEMS":
		return invoiceItemsFallback(lines, attr)
	default:
		return nil
	}
}

func currencyFallback(lines []string, attr entity.Attribute) *entity.ExtractionResult {
	for _, line := range lines {
		if m := reISOCurrency.FindString(line); m != "" {
			return result(attr, m, constants.ConfidenceMedium, constants.StrategyCurrencyGlobal)
		}
		if strings.Contains(line, "Kč") || strings.Contains(line, "Kc ") {
			return result(attr, "CZK", constants.ConfidenceMedium, constants.StrategyCurrencyGlobal)
		}
	}
	return nil
}

func totalAmountFallback(lines []string, attr entity.Attribute) *entity.ExtractionResult {
	for _, line := range lines {
		lineLow := strings.ToLower(line)
		for _, phrase := range totalPhrases {
			idx := strings.Index(lineLow, phrase)
			if idx < 0 {
				continue
			}
			rest := line[idx+len(phrase):]
			if v, ok := fieldval.ParseNumber(rest); ok {
				if f, isFloat := v.(float64); isFloat && f > 0 {
					return result(attr, f, constants.ConfidenceMedium, constants.StrategyTotalAmountGlobal)
				}
			}
		}
	}
	return nil
}

// bankCodeFallback exploits the account-number/bank-code convention: the
// four digits after a slash are the clearing code.
func bankCodeFallback(lines []string, attr entity.Attribute) *entity.ExtractionResult {
	for _, line := range lines {
		if m := reBankCode.FindStringSubmatch(line); m != nil {
			return result(attr, m[1], constants.ConfidenceMedium, constants.StrategyBankCodeGlobal)
		}
	}
	return nil
}

func customerNameFallback(lines []string, attr entity.Attribute) *entity.ExtractionResult {
	for i, line := range lines {
		if !containsBuyerMarker(strings.ToLower(line)) {
			continue
		}
		for j := i + 1; j < len(lines); j++ {
			candidate := strings.TrimSpace(lines[j])
			if candidate == "" {
				continue
			}
			if fieldval.IsNumericOnly(candidate) {
				continue
			}
			return result(attr, candidate, constants.ConfidenceMedium, constants.StrategyCustomerNameGlobal)
		}
		return nil
	}
	return nil
}

func invoiceItemsFallback(lines []string, attr entity.Attribute) *entity.ExtractionResult {
	start := -1
	for i, line := range lines {
		lineLow := strings.ToLower(line)
		for _, h := range itemSectionHeaders {
			if strings.Contains(lineLow, h) {
				start = i + 1
				break
			}
		}
		if start >= 0 {
			break
		}
	}
	if start < 0 {
		return nil
	}

	var items []string
	for i := start; i < len(lines) && i < start+maxItemLines; i++ {
		candidate := strings.TrimSpace(lines[i])
		if candidate == "" {
			continue
		}
		if isTotalsLine(candidate) {
			break
		}
		if isTableHeader(candidate) {
			continue
		}
		items = append(items, candidate)
	}
	if len(items) == 0 {
		return nil
	}
	return result(attr, strings.Join(items, "; "), constants.ConfidenceLow, constants.StrategyInvoiceItemsGlobal)
}

func isTotalsLine(line string) bool {
	lineLow := strings.ToLower(line)
	for _, phrase := range totalPhrases {
		if strings.Contains(lineLow, phrase) {
			return true
		}
	}
	return false
}

// isTableHeader flags lines built from column captions rather than content:
// two or more column words and no long digit run.
func isTableHeader(line string) bool {
	lineLow := strings.ToLower(line)
	hits := 0
	for _, w := range itemColumnWords {
		if strings.Contains(lineLow, w) {
			hits++
		}
	}
	return hits >= 2
}
