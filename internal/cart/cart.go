package cart

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"tcpos/internal/domain"
	"tcpos/internal/money"
)

// NoSize stands in for the size part of a line key when a line has no size.
const NoSize = "no-size"

var maxTaxRate = decimal.NewFromInt(50)

var (
	ErrSizeRequired    = errors.New("size selection required")
	ErrInvalidSize     = errors.New("size not offered for product")
	ErrUnknownLine     = errors.New("cart line not found")
	ErrInvalidTaxRate  = errors.New("tax rate must be between 0 and 50")
	ErrInvalidAmount   = errors.New("amount tendered must be a non-negative number")
	ErrInvalidCurrency = errors.New("unsupported currency")
	ErrInvalidPayment  = errors.New("unsupported payment method")
	ErrUnknownBank     = errors.New("unknown bank")
	ErrBankRequired    = errors.New("bank transfer requires a bank")
)

func LineKey(productID string, size string) string {
	if size == "" {
		size = NoSize
	}
	return productID + "-" + size
}

type Totals struct {
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

// Engine is one terminal's in-progress transaction. It is not safe for
// concurrent use.
type Engine struct {
	conv  money.Converter
	banks []string

	items    []domain.CartItem
	taxRate  decimal.Decimal
	currency domain.Currency
	tendered decimal.Decimal
	method   domain.PaymentMethod
	bankName string
	bankSlip string

	seenTotal    decimal.Decimal
	seenCurrency domain.Currency
}

func New(conv money.Converter, banks []string) *Engine {
	return &Engine{
		conv:         conv,
		banks:        slices.Clone(banks),
		taxRate:      decimal.Zero,
		currency:     domain.CurrencyUSD,
		tendered:     decimal.Zero,
		method:       domain.PaymentCash,
		seenTotal:    decimal.Zero,
		seenCurrency: domain.CurrencyUSD,
	}
}

func (e *Engine) Empty() bool {
	return len(e.items) == 0
}

func (e *Engine) Items() []domain.CartItem {
	return cloneItems(e.items)
}

// Add puts one unit of p on the cart. A product with sizes needs one of
// them; an existing (product, size) line is incremented instead of duplicated.
func (e *Engine) Add(p domain.Product, size string) error {
	size = strings.TrimSpace(size)
	if p.RequiresSize() {
		if size == "" {
			return ErrSizeRequired
		}
		if !slices.Contains(p.Sizes, size) {
			return fmt.Errorf("%w: %q", ErrInvalidSize, size)
		}
	} else if size != "" {
		return fmt.Errorf("%w: %q", ErrInvalidSize, size)
	}

	key := LineKey(p.ID, size)
	for i := range e.items {
		if LineKey(e.items[i].ID, e.items[i].SelectedSize) == key {
			e.items[i].Quantity++
			e.sync()
			return nil
		}
	}

	snapshot := p
	snapshot.Sizes = slices.Clone(p.Sizes)
	e.items = append(e.items, domain.CartItem{Product: snapshot, Quantity: 1, SelectedSize: size})
	e.sync()
	return nil
}

// ChangeQuantity adjusts a line by delta and drops it once it reaches zero.
func (e *Engine) ChangeQuantity(key string, delta int) error {
	idx := e.indexOf(key)
	if idx < 0 {
		return ErrUnknownLine
	}
	next := e.items[idx].Quantity + delta
	if next <= 0 {
		e.items = slices.Delete(e.items, idx, idx+1)
	} else {
		e.items[idx].Quantity = next
	}
	e.sync()
	return nil
}

func (e *Engine) Remove(key string) error {
	idx := e.indexOf(key)
	if idx < 0 {
		return ErrUnknownLine
	}
	e.items = slices.Delete(e.items, idx, idx+1)
	e.sync()
	return nil
}

// Clear empties the cart and resets payment capture. Tax rate and display
// currency carry over to the next transaction.
func (e *Engine) Clear() {
	e.items = nil
	e.method = domain.PaymentCash
	e.bankName = ""
	e.bankSlip = ""
	e.tendered = decimal.Zero
	e.sync()
}

func (e *Engine) TaxRate() decimal.Decimal {
	return e.taxRate
}

// SetTaxRate accepts a plain percentage in [0, 50]. Currency symbols and
// grouping are rejected. Rejected input leaves the current rate in place.
func (e *Engine) SetTaxRate(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		raw = "0"
	}
	rate, err := decimal.NewFromString(raw)
	if err != nil {
		return ErrInvalidTaxRate
	}
	if rate.IsNegative() || rate.GreaterThan(maxTaxRate) {
		return ErrInvalidTaxRate
	}
	e.taxRate = rate
	e.sync()
	return nil
}

func (e *Engine) Currency() domain.Currency {
	return e.currency
}

func (e *Engine) SetCurrency(cur domain.Currency) error {
	if !cur.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidCurrency, cur)
	}
	e.currency = cur
	e.sync()
	return nil
}

// SetTendered overrides the amount tendered, expressed in the display currency.
func (e *Engine) SetTendered(raw string) error {
	amount, err := money.ParseAmount(raw)
	if err != nil || amount.IsNegative() {
		return ErrInvalidAmount
	}
	e.tendered = amount
	return nil
}

func (e *Engine) Tendered() decimal.Decimal {
	return e.tendered
}

func (e *Engine) SetPayment(method domain.PaymentMethod, bank string) error {
	if !method.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidPayment, method)
	}
	bank = strings.TrimSpace(bank)
	if method != domain.PaymentBank {
		e.method = method
		e.bankName = ""
		e.bankSlip = ""
		return nil
	}
	if bank != "" && !slices.Contains(e.banks, bank) {
		return fmt.Errorf("%w: %q", ErrUnknownBank, bank)
	}
	e.method = method
	e.bankName = bank
	return nil
}

// AttachSlip records a payment slip reference for a bank transfer.
func (e *Engine) AttachSlip(ref string) error {
	if e.method != domain.PaymentBank {
		return fmt.Errorf("%w: slip requires bank transfer", ErrInvalidPayment)
	}
	e.bankSlip = strings.TrimSpace(ref)
	return nil
}

// Totals are exact USD figures. Nothing is rounded here.
func (e *Engine) Totals() Totals {
	subtotal := decimal.Zero
	for _, item := range e.items {
		subtotal = subtotal.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	tax := subtotal.Mul(e.taxRate).Shift(-2)
	return Totals{Subtotal: subtotal, Tax: tax, Total: subtotal.Add(tax)}
}

func (e *Engine) DisplayTotal() decimal.Decimal {
	return e.conv.ToDisplay(e.Totals().Total, e.currency)
}

// Change is computed entirely in the display currency and never negative.
func (e *Engine) Change() decimal.Decimal {
	change := e.tendered.Sub(e.DisplayTotal())
	if change.IsNegative() {
		return decimal.Zero
	}
	return change
}

// Finalize turns the cart into a sale and hands it to commit. The cart is
// cleared only when commit succeeds. An empty cart returns ok=false and
// commit is not called.
func (e *Engine) Finalize(id string, receiptNumber string, at time.Time, commit func(domain.Sale) error) (domain.Sale, bool, error) {
	if e.Empty() {
		return domain.Sale{}, false, nil
	}
	if e.method == domain.PaymentBank && e.bankName == "" {
		return domain.Sale{}, false, ErrBankRequired
	}

	totals := e.Totals()
	sale := domain.Sale{
		ID:            id,
		ReceiptNumber: receiptNumber,
		Date:          at.Format("2006-01-02"),
		Time:          at.Format("15:04"),
		Items:         cloneItems(e.items),
		Subtotal:      totals.Subtotal,
		TaxRate:       e.taxRate,
		Tax:           totals.Tax,
		Total:         totals.Total,
		Currency:      e.currency,
		ExchangeRate:  e.conv.Rate(),
		PaymentMethod: e.method,
		CustomerPaid:  e.tendered,
		Change:        e.Change(),
		CreatedAt:     at.UTC(),
	}
	if e.method == domain.PaymentBank {
		sale.BankName = e.bankName
		sale.BankSlip = e.bankSlip
	}

	if commit != nil {
		if err := commit(sale); err != nil {
			return domain.Sale{}, false, err
		}
	}
	e.Clear()
	return sale, true, nil
}

// View is the serialisable cart state with display figures.
func (e *Engine) View(terminal string) domain.CartView {
	totals := e.Totals()
	lines := make([]domain.CartLine, 0, len(e.items))
	count := 0
	for _, item := range cloneItems(e.items) {
		count += item.Quantity
		lines = append(lines, domain.CartLine{
			Key:       LineKey(item.ID, item.SelectedSize),
			CartItem:  item,
			LineTotal: item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))),
		})
	}
	change := e.Change()
	return domain.CartView{
		Terminal:      terminal,
		Lines:         lines,
		ItemCount:     count,
		TaxRate:       e.taxRate,
		Currency:      e.currency,
		Subtotal:      totals.Subtotal,
		Tax:           totals.Tax,
		Total:         totals.Total,
		DisplayTotal:  e.conv.ToDisplay(totals.Total, e.currency),
		Tendered:      e.tendered,
		Change:        change,
		PaymentMethod: e.method,
		BankName:      e.bankName,
		BankSlip:      e.bankSlip,
		Display: domain.CartDisplay{
			Subtotal: e.conv.FormatUSD(totals.Subtotal, e.currency),
			Tax:      e.conv.FormatUSD(totals.Tax, e.currency),
			Total:    e.conv.FormatUSD(totals.Total, e.currency),
			Tendered: money.Format(e.tendered, e.currency),
			Change:   money.Format(change, e.currency),
		},
	}
}

// sync re-initialises the amount tendered to the converted total whenever
// the total or the display currency moved since the last check.
func (e *Engine) sync() {
	total := e.Totals().Total
	if total.Equal(e.seenTotal) && e.currency == e.seenCurrency {
		return
	}
	e.seenTotal = total
	e.seenCurrency = e.currency
	e.tendered = e.conv.ToDisplay(total, e.currency)
}

func (e *Engine) indexOf(key string) int {
	for i := range e.items {
		if LineKey(e.items[i].ID, e.items[i].SelectedSize) == key {
			return i
		}
	}
	return -1
}

func cloneItems(items []domain.CartItem) []domain.CartItem {
	out := make([]domain.CartItem, len(items))
	for i, item := range items {
		out[i] = item
		out[i].Sizes = slices.Clone(item.Sizes)
	}
	return out
}
