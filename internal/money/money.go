package money

import (
	"errors"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"tcpos/internal/domain"
)

// DefaultKHRRate is the fixed USD to KHR rate used when none is configured.
const DefaultKHRRate = 4100

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidRate   = errors.New("exchange rate must be greater than zero")
)

// Converter turns USD base amounts into display amounts. It never feeds
// rounded values back into USD arithmetic.
type Converter struct {
	rate decimal.Decimal
}

func NewConverter(rate decimal.Decimal) (Converter, error) {
	if !rate.IsPositive() {
		return Converter{}, ErrInvalidRate
	}
	return Converter{rate: rate}, nil
}

func MustConverter(rate decimal.Decimal) Converter {
	c, err := NewConverter(rate)
	if err != nil {
		panic(err)
	}
	return c
}

func (c Converter) Rate() decimal.Decimal {
	return c.rate
}

// ToDisplay converts a USD amount into cur. KHR has no minor unit so it is
// rounded to whole riel; USD keeps two places.
func (c Converter) ToDisplay(usd decimal.Decimal, cur domain.Currency) decimal.Decimal {
	if cur == domain.CurrencyKHR {
		return usd.Mul(c.rate).Round(0)
	}
	return usd.Round(2)
}

// ToUSD converts a display amount in cur back into USD.
func (c Converter) ToUSD(amount decimal.Decimal, cur domain.Currency) decimal.Decimal {
	if cur == domain.CurrencyKHR {
		return amount.Div(c.rate)
	}
	return amount
}

// Format renders an amount that is already expressed in cur.
func Format(amount decimal.Decimal, cur domain.Currency) string {
	if cur == domain.CurrencyKHR {
		return group(amount, 0) + "៛"
	}
	if amount.IsNegative() {
		return "-$" + group(amount.Abs(), 2)
	}
	return "$" + group(amount, 2)
}

// FormatUSD converts and formats a USD base amount for display in cur.
func (c Converter) FormatUSD(usd decimal.Decimal, cur domain.Currency) string {
	return Format(c.ToDisplay(usd, cur), cur)
}

func group(amount decimal.Decimal, places int32) string {
	fixed := amount.Abs().StringFixed(places)
	whole, frac, _ := strings.Cut(fixed, ".")
	n, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return amount.StringFixed(places)
	}
	out := message.NewPrinter(language.English).Sprintf("%d", n)
	if frac != "" {
		out += "." + frac
	}
	if amount.IsNegative() && amount.Round(places).Sign() != 0 {
		out = "-" + out
	}
	return out
}

// ParseAmount reads operator input such as "20", "$20.00", "72,160" or
// "72160៛". Blank input is zero.
func ParseAmount(raw string) (decimal.Decimal, error) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "$")
	cleaned = strings.TrimSuffix(cleaned, "៛")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// CurrencyLabel is the long name printed on receipts.
func CurrencyLabel(cur domain.Currency) string {
	if cur == domain.CurrencyKHR {
		return "Cambodian Riel (៛)"
	}
	return "US Dollar ($)"
}
