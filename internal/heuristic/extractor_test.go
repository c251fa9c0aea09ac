package heuristic

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bregovic/docmeta/constants"
	"github.com/bregovic/docmeta/internal/entity"
)

func attr(name, code string, dt entity.DataType, aliases ...string) entity.Attribute {
	return entity.Attribute{
		ID:        uuid.New(),
		Name:      name,
		Code:      code,
		DataType:  dt,
		Direction: entity.DirectionAuto,
		Aliases:   aliases,
	}
}

func findResult(t *testing.T, results []entity.ExtractionResult, code string) entity.ExtractionResult {
	t.Helper()
	for _, r := range results {
		if r.Code == code {
			return r
		}
	}
	t.Fatalf("no result for code %s", code)
	return entity.ExtractionResult{}
}

const sampleInvoice = `FAKTURA - daňový doklad
Dodavatel: ACME s.r.o.
IČO: 12345678
DIČ: CZ87654321
Číslo faktury: 2024001234
Variabilní symbol: 2024001234
Odběratel: Novák a syn
IČO: 87654321
Datum vystavení: 15. 03. 2024
Celkem k úhradě: 12 500,00 Kč`

func TestExtractSupplierIdentifiers(t *testing.T) {
	e := NewExtractor(nil)
	attrs := []entity.Attribute{
		attr("IČO dodavatele", "SUPPLIER_ICO", entity.DataTypeText, "IČO", "ICO"),
		attr("DIČ dodavatele", "SUPPLIER_VAT_ID", entity.DataTypeText, "DIČ", "DIC"),
	}

	results := e.Extract(sampleInvoice, attrs)

	ico := findResult(t, results, "SUPPLIER_ICO")
	assert.Equal(t, "12345678", ico.Value)
	assert.Equal(t, constants.ConfidenceHigh, ico.Confidence)
	assert.Equal(t, constants.StrategyICO, ico.Strategy)

	vat := findResult(t, results, "SUPPLIER_VAT_ID")
	assert.Equal(t, "CZ87654321", vat.Value)
	assert.Equal(t, constants.StrategyVATID, vat.Strategy)
}

func TestExtractSupplierSkipsBuyerSection(t *testing.T) {
	// the first IČO line belongs to the supplier; a buyer-marker line with the
	// same keyword must not be bound to a supplier field
	text := "Odběratel: Novák a syn\nIČO: 87654321\nDodavatel: ACME s.r.o.\nIČO: 12345678"
	e := NewExtractor(nil)
	attrs := []entity.Attribute{
		attr("IČO dodavatele", "SUPPLIER_ICO", entity.DataTypeText, "IČO"),
	}

	results := e.Extract(text, attrs)

	// the keyword hit inside the buyer block is skipped; the first acceptable
	// hit is in the supplier block reopened by "Dodavatel"
	require.Len(t, results, 1)
	assert.Equal(t, "12345678", results[0].Value)
}

func TestExtractSupplierNeverTakesBuyerID(t *testing.T) {
	// only a buyer block exists; a supplier field must stay empty rather than
	// grab the counterparty's ID
	text := "Odběratel: Novák a syn\nIČO: 87654321"
	e := NewExtractor(nil)
	attrs := []entity.Attribute{
		attr("IČO dodavatele", "SUPPLIER_ICO", entity.DataTypeText, "IČO"),
	}

	assert.Empty(t, e.Extract(text, attrs))
}

func TestExtractInvoiceNumber(t *testing.T) {
	e := NewExtractor(nil)
	attrs := []entity.Attribute{
		attr("Číslo faktury", "INVOICE_NUMBER", entity.DataTypeText, "Číslo faktury", "Faktura č."),
	}

	results := e.Extract(sampleInvoice, attrs)

	res := findResult(t, results, "INVOICE_NUMBER")
	assert.Equal(t, "2024001234", res.Value)
	assert.Equal(t, constants.StrategyInvoiceNumber, res.Strategy)
	assert.Equal(t, constants.ConfidenceHigh, res.Confidence)
}

func TestExtractInvoiceNumberIgnoresDepositLines(t *testing.T) {
	text := "Zálohová faktura č. 9900112233\nFaktura č. 2024000555"
	e := NewExtractor(nil)
	attrs := []entity.Attribute{
		attr("Číslo faktury", "INVOICE_NUMBER", entity.DataTypeText, "Faktura č."),
	}

	results := e.Extract(text, attrs)

	require.Len(t, results, 1)
	assert.Equal(t, "2024000555", results[0].Value)
}

func TestExtractIBANCompacted(t *testing.T) {
	text := "Bankovní spojení\nIBAN: CZ65 0800 0000 1920 0014 5399"
	e := NewExtractor(nil)
	attrs := []entity.Attribute{
		attr("IBAN", "IBAN", entity.DataTypeText, "IBAN"),
	}

	results := e.Extract(text, attrs)

	require.Len(t, results, 1)
	assert.Equal(t, "CZ6508000000192000145399", results[0].Value)
	assert.Equal(t, constants.StrategyIBAN, results[0].Strategy)
}

func TestExtractGenericSameLine(t *testing.T) {
	text := "Datum vystavení: 15. 03. 2024"
	e := NewExtractor(nil)
	attrs := []entity.Attribute{
		attr("Datum vystavení", "ISSUE_DATE", entity.DataTypeDate, "Datum vystavení"),
	}

	results := e.Extract(text, attrs)

	require.Len(t, results, 1)
	assert.Equal(t, "15. 03. 2024", results[0].Value)
	assert.Equal(t, constants.StrategySameLine, results[0].Strategy)
	assert.Equal(t, constants.ConfidenceHigh, results[0].Confidence)
}

func TestExtractGenericNextLine(t *testing.T) {
	text := "Splatnost\n20. 04. 2024"
	e := NewExtractor(nil)
	attrs := []entity.Attribute{
		attr("Splatnost", "DUE_DATE", entity.DataTypeDate, "Splatnost"),
	}

	results := e.Extract(text, attrs)

	require.Len(t, results, 1)
	assert.Equal(t, "20. 04. 2024", results[0].Value)
	assert.Equal(t, constants.StrategyNextLine, results[0].Strategy)
	assert.Equal(t, constants.ConfidenceMedium, results[0].Confidence)
}

func TestExtractDirectionRightSkipsNextLine(t *testing.T) {
	text := "Splatnost\n20. 04. 2024"
	a := attr("Splatnost", "DUE_DATE", entity.DataTypeDate, "Splatnost")
	a.Direction = entity.DirectionRight
	e := NewExtractor(nil)

	results := e.Extract(text, []entity.Attribute{a})

	assert.Empty(t, results)
}

func TestExtractSupplierNameRejectsDocLabel(t *testing.T) {
	// "FAKTURA" on the keyword line is a document-type label, not a name
	text := "Dodavatel: FAKTURA 2024\nACME s.r.o."
	e := NewExtractor(nil)
	attrs := []entity.Attribute{
		attr("Dodavatel", "SUPPLIER_NAME", entity.DataTypeText, "Dodavatel"),
	}

	results := e.Extract(text, attrs)

	require.Len(t, results, 1)
	assert.Equal(t, "ACME s.r.o.", results[0].Value)
	assert.Equal(t, constants.StrategyNextLine, results[0].Strategy)
}

func TestGlobalFallbackCurrency(t *testing.T) {
	e := NewExtractor(nil)
	attrs := []entity.Attribute{
		attr("Měna", "CURRENCY", entity.DataTypeText),
	}

	results := e.Extract("Celkem k úhradě: 12 500,00 Kč", attrs)

	require.Len(t, results, 1)
	assert.Equal(t, "CZK", results[0].Value)
	assert.Equal(t, constants.StrategyCurrencyGlobal, results[0].Strategy)
	assert.Equal(t, constants.ConfidenceMedium, results[0].Confidence)
}

func TestGlobalFallbackTotalAmount(t *testing.T) {
	e := NewExtractor(nil)
	attrs := []entity.Attribute{
		attr("Částka celkem", "TOTAL_AMOUNT", entity.DataTypeNumber),
	}

	results := e.Extract("Celkem k úhradě: 12 500,00 Kč", attrs)

	require.Len(t, results, 1)
	assert.Equal(t, 12500.00, results[0].Value)
	assert.Equal(t, constants.StrategyTotalAmountGlobal, results[0].Strategy)
}

func TestGlobalFallbackBankCode(t *testing.T) {
	e := NewExtractor(nil)
	attrs := []entity.Attribute{
		attr("Kód banky", "BANK_CODE", entity.DataTypeText),
	}

	results := e.Extract("Účet: 19-2000145399/0800", attrs)

	require.Len(t, results, 1)
	assert.Equal(t, "0800", results[0].Value)
}

func TestGlobalFallbackCustomerName(t *testing.T) {
	e := NewExtractor(nil)
	attrs := []entity.Attribute{
		attr("Odběratel jméno", "CUSTOMER_NAME", entity.DataTypeText),
	}

	results := e.Extract("Odběratel:\n12345\nNovák a syn", attrs)

	require.Len(t, results, 1)
	assert.Equal(t, "Novák a syn", results[0].Value)
	assert.Equal(t, constants.StrategyCustomerNameGlobal, results[0].Strategy)
}

func TestGlobalFallbackInvoiceItems(t *testing.T) {
	text := `Fakturujeme Vám:
Cena  Množství  DPH
Konzultace březen  10 000,00
Serverhosting  2 500,00
Celkem: 12 500,00`
	e := NewExtractor(nil)
	attrs := []entity.Attribute{
		attr("Položky", "INVOICE_ITEMS", entity.DataTypeText),
	}

	results := e.Extract(text, attrs)

	require.Len(t, results, 1)
	assert.Equal(t, "Konzultace březen  10 000,00; Serverhosting  2 500,00", results[0].Value)
	assert.Equal(t, constants.ConfidenceLow, results[0].Confidence)
}

func TestExtractKeywordSurvivesShrinkingCaseFold(t *testing.T) {
	// İ folds from two bytes to one; the suffix must still start after the
	// keyword in the original line, not one byte inside it
	text := "İD: ABC123"
	e := NewExtractor(nil)
	attrs := []entity.Attribute{
		attr("İD", "REFERENCE", entity.DataTypeText),
	}

	results := e.Extract(text, attrs)

	require.Len(t, results, 1)
	assert.Equal(t, "ABC123", results[0].Value)
	assert.Equal(t, constants.StrategySameLine, results[0].Strategy)
}

func TestExtractEmptyText(t *testing.T) {
	e := NewExtractor(nil)
	attrs := []entity.Attribute{
		attr("Měna", "CURRENCY", entity.DataTypeText),
	}

	assert.Nil(t, e.Extract("   \n ", attrs))
}

func TestExtractMissingAttributesOmitted(t *testing.T) {
	e := NewExtractor(nil)
	attrs := []entity.Attribute{
		attr("Neexistující pole", "NO_SUCH_FIELD", entity.DataTypeText, "žádný výskyt"),
	}

	assert.Empty(t, e.Extract(sampleInvoice, attrs))
}
