package invoice

import (
	"regexp"
	"strings"
)

var (
	reInvoiceNumber = regexp.MustCompile(`(?i)(?:invoice|bill)\s*(?:number|#|no\.?)?:?\s*([A-Z0-9-]+)`)
	reVendor        = regexp.MustCompile(`(?i)(?:from|vendor|seller|company):\s*([^\n]+)`)
	reIssueDate     = regexp.MustCompile(`(?i)(?:invoice\s*)?date:?\s*(\d{1,2}[-/]\d{1,2}[-/]\d{2,4})`)
	reDueDate       = regexp.MustCompile(`(?i)due\s*date:?\s*(\d{1,2}[-/]\d{1,2}[-/]\d{2,4})`)

	// total and tax are anchored on a word boundary so "subtotal" is not read as a total
	reTotal    = regexp.MustCompile(`(?i)\b(?:total|amount\s*due):?\s*\$?\s*([\d,]+\.?\d{0,2})`)
	reTax      = regexp.MustCompile(`(?i)\b(?:tax|vat|gst):?\s*\$?\s*([\d,]+\.?\d{0,2})`)
	reSubtotal = regexp.MustCompile(`(?i)(?:subtotal|sub-total):?\s*\$?\s*([\d,]+\.?\d{0,2})`)
)

// currencyRules are evaluated in order; the first rule present in the text wins
var currencyRules = []struct {
	code string
	re   *regexp.Regexp
}{
	{CurrencyUSD, regexp.MustCompile(`(?i)\$|USD|US\$`)},
	{CurrencyEUR, regexp.MustCompile(`(?i)€|EUR`)},
	{CurrencyGBP, regexp.MustCompile(`(?i)£|GBP`)},
	{CurrencyINR, regexp.MustCompile(`(?i)₹|INR`)},
}

// firstMatch returns the first capture group of the first match of re
func firstMatch(re *regexp.Regexp, text string) (string, bool) {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return m[1], true
}

func extractInvoiceNumber(text string) (string, bool) {
	return firstMatch(reInvoiceNumber, text)
}

func extractVendor(text string) (string, bool) {
	v, ok := firstMatch(reVendor, text)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func extractIssueDate(text string) (string, bool) {
	d, ok := firstMatch(reIssueDate, text)
	if !ok {
		return "", false
	}
	return NormalizeDate(d), true
}

func extractDueDate(text string) (string, bool) {
	d, ok := firstMatch(reDueDate, text)
	if !ok {
		return "", false
	}
	return NormalizeDate(d), true
}

func extractAmount(re *regexp.Regexp, text string) (string, bool) {
	raw, ok := firstMatch(re, text)
	if !ok {
		return "", false
	}
	return canonicalMoney(raw)
}

func extractTotal(text string) (string, bool)    { return extractAmount(reTotal, text) }
func extractTax(text string) (string, bool)      { return extractAmount(reTax, text) }
func extractSubtotal(text string) (string, bool) { return extractAmount(reSubtotal, text) }

// DetectCurrency returns the highest-priority currency whose symbol or code
// appears anywhere in text, or DefaultCurrency when none does
func DetectCurrency(text string) string {
	for _, rule := range currencyRules {
		if rule.re.MatchString(text) {
			return rule.code
		}
	}
	return DefaultCurrency
}

// extractor is a single-field scan returning the matched value, if any
type extractor func(text string) (string, bool)

// resolve runs fn over text and falls back to def when nothing matched
func resolve(fn extractor, text, def string) string {
	if v, ok := fn(text); ok {
		return v
	}
	return def
}

// ParseText runs every field extractor and the line-item scan over raw text
// and assembles the record. It never fails: unmatched fields take their
// sentinel defaults.
func ParseText(text string) ExtractedInvoiceData {
	total := resolve(extractTotal, text, ZeroAmount)
	tax := resolve(extractTax, text, ZeroAmount)
	subtotal := resolve(extractSubtotal, text, ZeroAmount)

	return ExtractedInvoiceData{
		InvoiceNumber:  resolve(extractInvoiceNumber, text, UnknownInvoiceNumber),
		VendorCustomer: resolve(extractVendor, text, UnknownVendor),
		IssueDate:      resolve(extractIssueDate, text, ""),
		DueDate:        resolve(extractDueDate, text, ""),
		Subtotal:       deriveSubtotal(subtotal, tax, total),
		Tax:            tax,
		Total:          total,
		Currency:       DetectCurrency(text),
		Notes:          summarize(text),
		LineItems:      ExtractLineItems(text),
	}
}
