package domain

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyKHR Currency = "KHR"
)

func (c Currency) Valid() bool {
	return c == CurrencyUSD || c == CurrencyKHR
}

type PaymentMethod string

const (
	PaymentCash   PaymentMethod = "cash"
	PaymentCredit PaymentMethod = "credit"
	PaymentBank   PaymentMethod = "bank"
)

func (m PaymentMethod) Valid() bool {
	return m == PaymentCash || m == PaymentCredit || m == PaymentBank
}

type Product struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Category string          `json:"category"`
	Price    decimal.Decimal `json:"price"`
	Image    string          `json:"image"`
	Stock    int             `json:"stock"`
	Sizes    []string        `json:"sizes,omitempty"`
}

// RequiresSize reports whether a cart line for p must carry a size.
func (p Product) RequiresSize() bool {
	return len(p.Sizes) > 0
}

type Category struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
	Icon  string `json:"icon,omitempty"`
}

type CartItem struct {
	Product
	Quantity     int    `json:"quantity"`
	SelectedSize string `json:"selectedSize,omitempty"`
}

type Sale struct {
	ID            string          `json:"id"`
	ReceiptNumber string          `json:"receiptNumber"`
	Date          string          `json:"date"`
	Time          string          `json:"time"`
	Items         []CartItem      `json:"items"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	TaxRate       decimal.Decimal `json:"taxRate"`
	Tax           decimal.Decimal `json:"tax"`
	Total         decimal.Decimal `json:"total"`
	Currency      Currency        `json:"currency"`
	ExchangeRate  decimal.Decimal `json:"exchangeRate"`
	PaymentMethod PaymentMethod   `json:"paymentMethod"`
	BankName      string          `json:"bankName,omitempty"`
	BankSlip      string          `json:"bankSlip,omitempty"`
	CustomerPaid  decimal.Decimal `json:"customerPaid"`
	Change        decimal.Decimal `json:"change"`
	CreatedAt     time.Time       `json:"createdAt"`
}

type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Avatar   string `json:"avatar,omitempty"`
}

type Actor struct {
	Username string `json:"username"`
	Name     string `json:"name"`
	Role     string `json:"role"`
}

type StoreInfo struct {
	Name    string `json:"name"`
	Tagline string `json:"tagline"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresAt   string `json:"expires_at"`
	User        User   `json:"user"`
}

type ProductInput struct {
	Name     string          `json:"name"`
	Category string          `json:"category"`
	Price    decimal.Decimal `json:"price"`
	Image    string          `json:"image"`
	Stock    int             `json:"stock"`
	Sizes    []string        `json:"sizes"`
}

type CategoryInput struct {
	Name  string `json:"name"`
	Color string `json:"color"`
	Icon  string `json:"icon"`
}

type AddToCartRequest struct {
	ProductID string `json:"productId"`
	Size      string `json:"size"`
}

type QuantityChangeRequest struct {
	Delta int `json:"delta"`
}

// AmountRequest carries operator-typed numeric input. Numbers and numeric
// strings are both accepted.
type AmountRequest struct {
	Value json.Number `json:"value"`
}

type CurrencyRequest struct {
	Currency Currency `json:"currency"`
}

type PaymentRequest struct {
	Method   PaymentMethod `json:"method"`
	BankName string        `json:"bankName"`
}

type SlipRequest struct {
	BankSlip string `json:"bankSlip"`
}

type CartLine struct {
	Key string `json:"key"`
	CartItem
	LineTotal decimal.Decimal `json:"lineTotal"`
}

// CartDisplay holds cart figures converted and formatted in the display currency.
type CartDisplay struct {
	Subtotal string `json:"subtotal"`
	Tax      string `json:"tax"`
	Total    string `json:"total"`
	Tendered string `json:"tendered"`
	Change   string `json:"change"`
}

type CartView struct {
	Terminal      string          `json:"terminal"`
	Lines         []CartLine      `json:"lines"`
	ItemCount     int             `json:"itemCount"`
	TaxRate       decimal.Decimal `json:"taxRate"`
	Currency      Currency        `json:"currency"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	Tax           decimal.Decimal `json:"tax"`
	Total         decimal.Decimal `json:"total"`
	DisplayTotal  decimal.Decimal `json:"displayTotal"`
	Tendered      decimal.Decimal `json:"tendered"`
	Change        decimal.Decimal `json:"change"`
	PaymentMethod PaymentMethod   `json:"paymentMethod"`
	BankName      string          `json:"bankName,omitempty"`
	BankSlip      string          `json:"bankSlip,omitempty"`
	Display       CartDisplay     `json:"display"`
}

type SalePatch struct {
	CustomerPaid  *decimal.Decimal `json:"customerPaid"`
	PaymentMethod *PaymentMethod   `json:"paymentMethod"`
	BankName      *string          `json:"bankName"`
	BankSlip      *string          `json:"bankSlip"`
}

type SaleListResponse struct {
	Sales          []Sale          `json:"sales"`
	Count          int             `json:"count"`
	Revenue        decimal.Decimal `json:"revenue"`
	RevenueDisplay string          `json:"revenueDisplay"`
}

type CheckoutResponse struct {
	Sale    Sale    `json:"sale"`
	Receipt Receipt `json:"receipt"`
}

type ReceiptLine struct {
	Name      string `json:"name"`
	Size      string `json:"size,omitempty"`
	UnitPrice string `json:"unitPrice"`
	Quantity  int    `json:"quantity"`
	LineTotal string `json:"lineTotal"`
}

type Receipt struct {
	Store         StoreInfo     `json:"store"`
	SaleID        string        `json:"saleId"`
	ReceiptNumber string        `json:"receiptNumber"`
	Date          string        `json:"date"`
	Time          string        `json:"time"`
	Lines         []ReceiptLine `json:"lines"`
	Subtotal      string        `json:"subtotal"`
	TaxRate       string        `json:"taxRate"`
	Tax           string        `json:"tax"`
	Total         string        `json:"total"`
	CustomerPaid  string        `json:"customerPaid"`
	Change        string        `json:"change"`
	PaymentLabel  string        `json:"paymentLabel"`
	CurrencyLabel string        `json:"currencyLabel"`
	BankSlip      string        `json:"bankSlip,omitempty"`
	Footer        []string      `json:"footer"`
}

type ReceiptPrintout struct {
	SaleID       string `json:"sale_id"`
	EscposBase64 string `json:"escpos_base64"`
	PreviewText  string `json:"preview_text"`
	FileName     string `json:"file_name"`
}

type Dashboard struct {
	Date              string          `json:"date"`
	TodayRevenue      decimal.Decimal `json:"todayRevenue"`
	TodayRevenueText  string          `json:"todayRevenueText"`
	TodayTransactions int             `json:"todayTransactions"`
	AverageOrder      decimal.Decimal `json:"averageOrder"`
	ProductCount      int             `json:"productCount"`
	LowStock          []Product       `json:"lowStock"`
	RecentSales       []Sale          `json:"recentSales"`
}

type Meta struct {
	Store          StoreInfo       `json:"store"`
	Banks          []string        `json:"banks"`
	Currencies     []Currency      `json:"currencies"`
	PaymentMethods []PaymentMethod `json:"paymentMethods"`
	ExchangeRate   decimal.Decimal `json:"exchangeRate"`
}

type MediaUpload struct {
	Reference   string `json:"reference"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
}
