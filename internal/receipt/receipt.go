package receipt

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"html/template"
	"strings"

	"github.com/shopspring/decimal"

	"tcpos/internal/domain"
	"tcpos/internal/money"
)

var Footer = []string{
	"Thank you for shopping with us!",
	"Visit us again soon",
	"Exchange policy: 7 days with receipt",
}

// Build lays a sale out as a receipt document. Every amount is formatted in
// the sale's stored currency using the rate recorded at checkout, so all
// renderings of the same document show the same figures.
func Build(sale domain.Sale, store domain.StoreInfo, fallbackRate decimal.Decimal) domain.Receipt {
	rate := sale.ExchangeRate
	if !rate.IsPositive() {
		rate = fallbackRate
	}
	conv := money.MustConverter(rate)
	cur := sale.Currency
	if !cur.Valid() {
		cur = domain.CurrencyUSD
	}

	lines := make([]domain.ReceiptLine, 0, len(sale.Items))
	for _, item := range sale.Items {
		lineTotal := item.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		lines = append(lines, domain.ReceiptLine{
			Name:      item.Name,
			Size:      item.SelectedSize,
			UnitPrice: conv.FormatUSD(item.Price, cur),
			Quantity:  item.Quantity,
			LineTotal: conv.FormatUSD(lineTotal, cur),
		})
	}

	doc := domain.Receipt{
		Store:         store,
		SaleID:        sale.ID,
		ReceiptNumber: sale.ReceiptNumber,
		Date:          sale.Date,
		Time:          sale.Time,
		Lines:         lines,
		Subtotal:      conv.FormatUSD(sale.Subtotal, cur),
		TaxRate:       sale.TaxRate.String(),
		Tax:           conv.FormatUSD(sale.Tax, cur),
		Total:         conv.FormatUSD(sale.Total, cur),
		CustomerPaid:  money.Format(sale.CustomerPaid, cur),
		Change:        money.Format(sale.Change, cur),
		PaymentLabel:  PaymentLabel(sale.PaymentMethod, sale.BankName),
		CurrencyLabel: money.CurrencyLabel(cur),
		Footer:        append([]string(nil), Footer...),
	}
	if sale.PaymentMethod == domain.PaymentBank {
		doc.BankSlip = sale.BankSlip
	}
	return doc
}

func PaymentLabel(method domain.PaymentMethod, bank string) string {
	switch method {
	case domain.PaymentBank:
		if bank == "" {
			return "Bank Transfer"
		}
		return fmt.Sprintf("Bank Transfer (%s)", bank)
	case domain.PaymentCredit:
		return "Credit"
	default:
		return "Cash"
	}
}

// TextLines is the on-screen preview, one entry per printed line.
func TextLines(doc domain.Receipt) []string {
	lines := []string{
		doc.Store.Name,
		doc.Store.Tagline,
		"Tel: " + doc.Store.Phone,
		doc.Store.Address,
		"================================",
		"Receipt #: " + doc.ReceiptNumber,
		"Date: " + doc.Date + " " + doc.Time,
		"--------------------------------",
	}
	for _, line := range doc.Lines {
		name := line.Name
		if line.Size != "" {
			name = fmt.Sprintf("%s (%s)", name, line.Size)
		}
		lines = append(lines, name)
		lines = append(lines, fmt.Sprintf("  %s x%d = %s", line.UnitPrice, line.Quantity, line.LineTotal))
	}
	lines = append(lines,
		"--------------------------------",
		row("Subtotal", doc.Subtotal),
		row("Tax ("+doc.TaxRate+"%)", doc.Tax),
		row("Total", doc.Total),
		row("Customer Paid", doc.CustomerPaid),
		row("Change", doc.Change),
		"Payment: "+doc.PaymentLabel,
		"Currency: "+doc.CurrencyLabel,
		"================================",
	)
	if doc.BankSlip != "" {
		lines = append(lines, "Payment slip attached")
	}
	lines = append(lines, doc.Footer...)
	lines = append(lines, "")
	return lines
}

func row(label string, value string) string {
	return fmt.Sprintf("%-14s: %s", label, value)
}

func PreviewText(doc domain.Receipt) string {
	return strings.Join(TextLines(doc), "\n")
}

// Printout encodes the preview for an ESC/POS printer: initialise, text, cut.
func Printout(doc domain.Receipt) domain.ReceiptPrintout {
	lines := TextLines(doc)

	escpos := []byte{0x1b, 0x40}
	for _, line := range lines {
		escpos = append(escpos, []byte(line)...)
		escpos = append(escpos, '\n')
	}
	escpos = append(escpos, []byte{0x1d, 0x56, 0x41, 0x10}...)

	return domain.ReceiptPrintout{
		SaleID:       doc.SaleID,
		EscposBase64: base64.StdEncoding.EncodeToString(escpos),
		PreviewText:  strings.Join(lines, "\n"),
		FileName:     fmt.Sprintf("receipt-%s.bin", doc.ReceiptNumber),
	}
}

var printableTmpl = template.Must(template.New("receipt").Funcs(template.FuncMap{
	"slipURL": func(ref string) template.URL {
		if strings.HasPrefix(ref, "data:image/") || strings.HasPrefix(ref, "https://") || strings.HasPrefix(ref, "http://") {
			return template.URL(ref)
		}
		return ""
	},
}).Parse(`<!doctype html>
<html>
<head>
  <meta charset="utf-8" />
  <title>Receipt {{.ReceiptNumber}}</title>
  <style>
    @page { size: 80mm auto; margin: 4mm; }
    body { font-family: monospace; font-size: 12px; margin: 0 auto; max-width: 72mm; }
    .center { text-align: center; }
    table { width: 100%; border-collapse: collapse; }
    td { padding: 2px 0; vertical-align: top; }
    .num { text-align: right; }
    hr { border: none; border-top: 1px dashed #000; }
    img.slip { max-width: 40mm; display: block; margin: 4px auto; }
  </style>
</head>
<body onload="window.print()">
  <div class="center">
    <h2>{{.Store.Name}}</h2>
    <div>{{.Store.Tagline}}</div>
    <div>Tel: {{.Store.Phone}}</div>
    <div>{{.Store.Address}}</div>
  </div>
  <hr />
  <div>Receipt #: {{.ReceiptNumber}}</div>
  <div>Date: {{.Date}} {{.Time}}</div>
  <hr />
  <table>
    <tbody>{{range .Lines}}
      <tr><td>{{.Name}}{{if .Size}} ({{.Size}}){{end}}<br />{{.UnitPrice}} x {{.Quantity}}</td><td class="num">{{.LineTotal}}</td></tr>{{end}}
    </tbody>
  </table>
  <hr />
  <table>
    <tr><td>Subtotal</td><td class="num">{{.Subtotal}}</td></tr>
    <tr><td>Tax ({{.TaxRate}}%)</td><td class="num">{{.Tax}}</td></tr>
    <tr><td><strong>Total</strong></td><td class="num"><strong>{{.Total}}</strong></td></tr>
    <tr><td>Customer Paid</td><td class="num">{{.CustomerPaid}}</td></tr>
    <tr><td>Change</td><td class="num">{{.Change}}</td></tr>
  </table>
  <hr />
  <div>Payment Method: {{.PaymentLabel}}</div>
  <div>Currency: {{.CurrencyLabel}}</div>
  {{with slipURL .BankSlip}}<div class="center">Payment Slip<img class="slip" src="{{.}}" alt="Payment Slip" /></div>{{end}}
  <hr />
  <div class="center">{{range .Footer}}<div>{{.}}</div>{{end}}</div>
</body>
</html>
`))

// PrintableHTML renders the document for a browser print dialog.
func PrintableHTML(doc domain.Receipt) (string, error) {
	var buf bytes.Buffer
	if err := printableTmpl.Execute(&buf, doc); err != nil {
		return "", err
	}
	return buf.String(), nil
}
