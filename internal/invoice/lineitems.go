package invoice

import (
	"regexp"
	"strconv"
	"strings"
)

// reLineItem matches {description, qty, unit price, amount} runs anywhere in the text
var reLineItem = regexp.MustCompile(
	`([A-Za-z][A-Za-z\s]+?)\s+(\d+)\s+\$?\s*([\d,]+\.?\d{0,2})\s+\$?\s*([\d,]+\.?\d{0,2})`)

// ExtractLineItems returns every non-overlapping line-item match in document
// order. The result is never nil.
func ExtractLineItems(text string) []LineItem {
	matches := reLineItem.FindAllStringSubmatch(text, -1)
	items := make([]LineItem, 0, len(matches))

	for _, m := range matches {
		qty, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		unitPrice, ok := canonicalMoney(m[3])
		if !ok {
			unitPrice = ZeroAmount
		}
		amount, ok := canonicalMoney(m[4])
		if !ok {
			amount = ZeroAmount
		}

		items = append(items, LineItem{
			Description: strings.TrimSpace(m[1]),
			Qty:         qty,
			UnitPrice:   unitPrice,
			Amount:      amount,
		})
	}

	return items
}
