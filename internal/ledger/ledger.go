package ledger

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"tcpos/internal/domain"
)

const (
	receiptPrefix = "RCP"
	receiptModulo = 1_000_000
)

var (
	ErrNotFound    = errors.New("sale not found")
	ErrInvalidEdit = errors.New("invalid sale edit")
)

type Filter struct {
	Receipt string
	Date    string
}

// List returns the sales matching f, most recent first. The input is not modified.
func List(sales []domain.Sale, f Filter) []domain.Sale {
	receipt := strings.ToLower(strings.TrimSpace(f.Receipt))
	date := strings.TrimSpace(f.Date)

	out := make([]domain.Sale, 0, len(sales))
	for i := len(sales) - 1; i >= 0; i-- {
		s := sales[i]
		if receipt != "" && !strings.Contains(strings.ToLower(s.ReceiptNumber), receipt) {
			continue
		}
		if date != "" && s.Date != date {
			continue
		}
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// Revenue sums sale totals in USD regardless of each sale's display currency.
func Revenue(sales []domain.Sale) decimal.Decimal {
	sum := decimal.Zero
	for _, s := range sales {
		sum = sum.Add(s.Total)
	}
	return sum
}

func Find(sales []domain.Sale, id string) (domain.Sale, int, bool) {
	for i, s := range sales {
		if s.ID == id {
			return s, i, true
		}
	}
	return domain.Sale{}, -1, false
}

// Append returns a new slice with sale added at the end.
func Append(sales []domain.Sale, sale domain.Sale) []domain.Sale {
	out := make([]domain.Sale, 0, len(sales)+1)
	out = append(out, sales...)
	return append(out, sale)
}

// Remove returns a new slice without the sale identified by id.
func Remove(sales []domain.Sale, id string) ([]domain.Sale, error) {
	_, idx, ok := Find(sales, id)
	if !ok {
		return nil, ErrNotFound
	}
	out := slices.Clone(sales)
	return slices.Delete(out, idx, idx+1), nil
}

// Replace returns a new slice with the sale of the same id swapped for sale.
func Replace(sales []domain.Sale, sale domain.Sale) ([]domain.Sale, error) {
	_, idx, ok := Find(sales, sale.ID)
	if !ok {
		return nil, ErrNotFound
	}
	out := slices.Clone(sales)
	out[idx] = sale
	return out, nil
}

// ApplyEdit updates the editable fields of a recorded sale. Items and money
// fields are historical and left untouched; change is recomputed from the
// amount paid against the total in the sale's own currency.
func ApplyEdit(sale domain.Sale, patch domain.SalePatch, banks []string, fallbackRate decimal.Decimal) (domain.Sale, error) {
	edited := sale

	if patch.CustomerPaid != nil {
		if patch.CustomerPaid.IsNegative() {
			return domain.Sale{}, fmt.Errorf("%w: customer paid must not be negative", ErrInvalidEdit)
		}
		edited.CustomerPaid = *patch.CustomerPaid
	}
	if patch.PaymentMethod != nil {
		if !patch.PaymentMethod.Valid() {
			return domain.Sale{}, fmt.Errorf("%w: unsupported payment method %q", ErrInvalidEdit, *patch.PaymentMethod)
		}
		edited.PaymentMethod = *patch.PaymentMethod
	}
	if patch.BankName != nil {
		edited.BankName = strings.TrimSpace(*patch.BankName)
	}
	if patch.BankSlip != nil {
		edited.BankSlip = strings.TrimSpace(*patch.BankSlip)
	}

	paymentTouched := patch.PaymentMethod != nil || patch.BankName != nil
	if edited.PaymentMethod == domain.PaymentBank {
		if edited.BankName == "" {
			return domain.Sale{}, fmt.Errorf("%w: bank transfer requires a bank", ErrInvalidEdit)
		}
		if paymentTouched && !slices.Contains(banks, edited.BankName) {
			return domain.Sale{}, fmt.Errorf("%w: unknown bank %q", ErrInvalidEdit, edited.BankName)
		}
	} else {
		edited.BankName = ""
		edited.BankSlip = ""
	}

	edited.Change = ChangeFor(edited, fallbackRate)
	return edited, nil
}

// ChangeFor computes max(0, paid - total) in the sale's display currency.
func ChangeFor(sale domain.Sale, fallbackRate decimal.Decimal) decimal.Decimal {
	total := sale.Total.Round(2)
	if sale.Currency == domain.CurrencyKHR {
		rate := sale.ExchangeRate
		if !rate.IsPositive() {
			rate = fallbackRate
		}
		total = sale.Total.Mul(rate).Round(0)
	}
	change := sale.CustomerPaid.Sub(total)
	if change.IsNegative() {
		return decimal.Zero
	}
	return change
}

// UniqueReceiptNumber returns candidate, or the next free number after it
// when the ledger already holds it.
func UniqueReceiptNumber(sales []domain.Sale, candidate string) string {
	taken := make(map[string]struct{}, len(sales))
	for _, s := range sales {
		taken[s.ReceiptNumber] = struct{}{}
	}
	if _, ok := taken[candidate]; !ok {
		return candidate
	}
	n, err := strconv.Atoi(strings.TrimPrefix(candidate, receiptPrefix))
	if err != nil {
		n = 0
	}
	for i := 0; i < receiptModulo; i++ {
		n = (n + 1) % receiptModulo
		next := fmt.Sprintf("%s%06d", receiptPrefix, n)
		if _, ok := taken[next]; !ok {
			return next
		}
	}
	return candidate
}

type DaySummary struct {
	Date         string
	Revenue      decimal.Decimal
	Transactions int
	AverageOrder decimal.Decimal
}

func Summarize(sales []domain.Sale, date string) DaySummary {
	day := List(sales, Filter{Date: date})
	summary := DaySummary{Date: date, Revenue: Revenue(day), Transactions: len(day), AverageOrder: decimal.Zero}
	if summary.Transactions > 0 {
		summary.AverageOrder = summary.Revenue.Div(decimal.NewFromInt(int64(summary.Transactions))).Round(2)
	}
	return summary
}
