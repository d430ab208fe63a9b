package invoice

const (
	// Sentinels used when a field could not be recovered from the text
	UnknownInvoiceNumber = "UNKNOWN"
	UnknownVendor        = "Unknown Vendor"
	ZeroAmount           = "0.00"
	DefaultCurrency      = "USD"

	// notesLimit is the number of leading characters of raw text kept as notes
	notesLimit = 500
)

// Supported currency codes, in detection priority order
const (
	CurrencyUSD = "USD"
	CurrencyEUR = "EUR"
	CurrencyGBP = "GBP"
	CurrencyINR = "INR"
)

// LineItem is a single tabular row recovered from the invoice text
type LineItem struct {
	Description string `json:"description"`
	Qty         int    `json:"qty"`
	UnitPrice   string `json:"unitPrice"`
	Amount      string `json:"amount"`
}

// ExtractedInvoiceData is the structured result of one extraction run.
// Monetary values are decimal strings with two fractional digits.
type ExtractedInvoiceData struct {
	InvoiceNumber  string     `json:"invoiceNumber"`
	VendorCustomer string     `json:"vendorCustomer"`
	IssueDate      string     `json:"issueDate"`
	DueDate        string     `json:"dueDate"`
	Subtotal       string     `json:"subtotal"`
	Tax            string     `json:"tax"`
	Total          string     `json:"total"`
	Currency       string     `json:"currency"`
	Notes          string     `json:"notes"`
	LineItems      []LineItem `json:"lineItems"`
}

// Items returns a copy of the line items so callers cannot mutate the record
func (d ExtractedInvoiceData) Items() []LineItem {
	out := make([]LineItem, len(d.LineItems))
	copy(out, d.LineItems)
	return out
}
