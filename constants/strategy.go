package constants

// Overall strategy labels returned by analyze.
const (
	StrategyTemplate = "Template"
	StrategyRegex    = "Regex"
)

// Per-result strategy labels. Kept stable: review UIs key on them for audit.
const (
	StrategyTemplateZone = "TemplateZone"

	StrategySameLine = "SameLine"
	StrategyNextLine = "NextLine"

	StrategyInvoiceNumber      = "InvoiceNumber_Regex"
	StrategyIBAN               = "IBAN_Regex"
	StrategyIBANNextLine       = "IBAN_Regex_NextLine"
	StrategyICO                = "ICO_Regex"
	StrategyICONextLine        = "ICO_Regex_NextLine"
	StrategyVATID              = "VATID_Regex"
	StrategyVATIDNextLine      = "VATID_Regex_NextLine"
	StrategySymbol             = "Symbol_Regex"
	StrategySymbolNextLine     = "Symbol_Regex_NextLine"
	StrategyVATAmount          = "VAT_Amount"
	StrategyCurrencyGlobal     = "Currency_Global"
	StrategyTotalAmountGlobal  = "TotalAmount_Global"
	StrategyBankCodeGlobal     = "BankCode_Global"
	StrategyCustomerNameGlobal = "CustomerName_Global"
	StrategyInvoiceItemsGlobal = "InvoiceItems_Global"
)
