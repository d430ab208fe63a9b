package descriptions

import "sort"

// Tool descriptions shown to MCP clients, with examples and use cases

const (
	InvoiceExtractDescription = `Extract structured invoice fields from a PDF document.

**When to use:** Need the invoice number, vendor, issue and due dates, subtotal, tax, total, currency or line items of an invoice PDF.

**Why it's useful:** Reads the embedded text layer when there is one and falls back to OCR for scanned invoices, so both digital and scanned documents produce the same record.

**Examples:**
• Book an invoice: "Extract the fields from invoices/acme-2024-001.pdf"
• Check a total: "What is the amount due on scan-0042.pdf?"
• Review line items: "List the line items on supplier-march.pdf"

**What you get back:** the extracted record plus a source block. source.method is "pdf-text" or "pdf-ocr"; source.warnings lists pages or engines that failed.

**Best practices:** Fields that could not be found come back as "UNKNOWN", "Unknown Vendor", "0.00" or an empty date. Treat those as missing, not as real values.`

	InvoiceParseTextDescription = `Run the invoice field extractors over text you already have.

**When to use:** The invoice text came from somewhere other than a PDF in the configured directory (email body, clipboard, another OCR tool).

**Why it's useful:** Same heuristics as invoice_extract without touching the filesystem, so results can be compared or re-run cheaply.

**Examples:**
• Parse an email: "Parse this invoice text: Invoice #INV-77 ... Total: $120.00"
• Compare sources: "Parse the OCR output of page 1 and compare with invoice_extract"

**Best practices:** Keep line breaks. Vendor, dates and line items are matched line by line.`

	InvoiceServerInfoDescription = `Get server configuration, available tools and the invoice PDFs in the configured directory.

**When to use:** First call in a session, or when you need to know which files can be passed to invoice_extract.

**Examples:**
• Discover files: "Which invoices are available?"
• Check OCR setup: "Which OCR language and page source is the server using?"

**Best practices:** Only the first files are listed by name; the total count is always reported.`
)

// ToolDescriptions maps tool names to their descriptions
var ToolDescriptions = map[string]string{
	"invoice_extract":     InvoiceExtractDescription,
	"invoice_parse_text":  InvoiceParseTextDescription,
	"invoice_server_info": InvoiceServerInfoDescription,
}

// GetToolDescription returns the description for a tool
func GetToolDescription(toolName string) string {
	if desc, exists := ToolDescriptions[toolName]; exists {
		return desc
	}
	return "Tool description not available"
}

// GetAllToolNames returns the described tool names in sorted order
func GetAllToolNames() []string {
	names := make([]string, 0, len(ToolDescriptions))
	for name := range ToolDescriptions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
