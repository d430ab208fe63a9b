package invoice

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var reDateSep = regexp.MustCompile(`[-/]`)

// NormalizeDate converts a month-first M/D/Y or M-D-Y token into YYYY-MM-DD.
// Tokens that do not split into exactly three parts are returned unchanged.
// Two-digit years are always placed in the 2000s.
func NormalizeDate(s string) string {
	parts := reDateSep.Split(s, -1)
	if len(parts) != 3 {
		return s
	}

	month, day, year := parts[0], parts[1], parts[2]
	if len(year) == 2 {
		year = "20" + year
	}
	if len(month) == 1 {
		month = "0" + month
	}
	if len(day) == 1 {
		day = "0" + day
	}

	return year + "-" + month + "-" + day
}

// parseMoney strips thousands separators and parses a matched amount token.
// It reports false for tokens that are empty, malformed or negative.
func parseMoney(token string) (decimal.Decimal, bool) {
	s := strings.ReplaceAll(token, ",", "")
	s = strings.TrimSuffix(s, ".")
	if s == "" {
		return decimal.Zero, false
	}

	d, err := decimal.NewFromString(s)
	if err != nil || d.IsNegative() {
		return decimal.Zero, false
	}
	return d, true
}

// formatMoney renders an amount with exactly two fractional digits
func formatMoney(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// canonicalMoney turns a raw amount token into its two-digit decimal form
func canonicalMoney(token string) (string, bool) {
	d, ok := parseMoney(token)
	if !ok {
		return "", false
	}
	return formatMoney(d), true
}

// deriveSubtotal fills in a missing subtotal as total minus tax. It only
// applies when the subtotal is zero and the total is positive.
func deriveSubtotal(subtotal, tax, total string) string {
	sub, _ := parseMoney(subtotal)
	tot, _ := parseMoney(total)
	if !sub.IsZero() || !tot.IsPositive() {
		return subtotal
	}

	t, _ := parseMoney(tax)
	derived := tot.Sub(t)
	if derived.IsNegative() {
		derived = decimal.Zero
	}
	return formatMoney(derived)
}

// summarize keeps the first notesLimit characters with whitespace collapsed
func summarize(text string) string {
	runes := []rune(text)
	if len(runes) > notesLimit {
		runes = runes[:notesLimit]
	}
	return strings.Join(strings.Fields(string(runes)), " ")
}
