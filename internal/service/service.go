package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"tcpos/internal/cart"
	"tcpos/internal/catalog"
	"tcpos/internal/domain"
	"tcpos/internal/events"
	"tcpos/internal/ledger"
	"tcpos/internal/media"
	"tcpos/internal/money"
	"tcpos/internal/receipt"
	"tcpos/internal/store"
	"tcpos/internal/xid"
)

const (
	DefaultTerminal     = "terminal-1"
	defaultCategoryHue  = "#3B82F6"
	defaultCategoryIcon = "👕"
	lowStockThreshold   = 10
	recentSalesLimit    = 5
)

var DefaultBanks = []string{
	"ABA Bank",
	"Acleda Bank",
	"Wing Bank",
	"Vattanac Bank",
	"Canadia Bank",
	"Chip Mong Commercial Bank",
	"Prince Bank",
	"FTB Bank",
}

var (
	ErrCategoryNotFound     = errors.New("category does not exist")
	ErrCategoryInUse        = errors.New("category is used by products")
	ErrDuplicateCategory    = errors.New("category name already exists")
	ErrConfirmationRequired = errors.New("confirmation required")
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type Options struct {
	ExchangeRate decimal.Decimal
	Banks        []string
	Store        domain.StoreInfo
	Location     *time.Location
	Events       events.Publisher
	Media        *media.Uploader
	Now          func() time.Time
}

// Service owns the catalog, the ledger and every terminal's cart. State is
// loaded once and written through to the repository on each mutation; the
// in-memory copy is only swapped after the write succeeds.
type Service struct {
	mu sync.Mutex

	repo      store.Repository
	conv      money.Converter
	banks     []string
	storeInfo domain.StoreInfo
	loc       *time.Location
	now       func() time.Time
	events    events.Publisher
	media     *media.Uploader

	products   []domain.Product
	categories []domain.Category
	sales      []domain.Sale
	carts      map[string]*cart.Engine
}

func New(ctx context.Context, repo store.Repository, opts Options) (*Service, error) {
	if opts.ExchangeRate.IsZero() {
		opts.ExchangeRate = decimal.NewFromInt(money.DefaultKHRRate)
	}
	conv, err := money.NewConverter(opts.ExchangeRate)
	if err != nil {
		return nil, err
	}
	if len(opts.Banks) == 0 {
		opts.Banks = DefaultBanks
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Events == nil {
		opts.Events = events.Noop{}
	}
	if opts.Media == nil {
		opts.Media = media.NewUploader(nil, 0)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	products, err := repo.LoadProducts(ctx)
	if err != nil {
		return nil, err
	}
	categories, err := repo.LoadCategories(ctx)
	if err != nil {
		return nil, err
	}
	sales, err := repo.LoadSales(ctx)
	if err != nil {
		return nil, err
	}

	return &Service{
		repo:       repo,
		conv:       conv,
		banks:      slices.Clone(opts.Banks),
		storeInfo:  opts.Store,
		loc:        opts.Location,
		now:        opts.Now,
		events:     opts.Events,
		media:      opts.Media,
		products:   products,
		categories: categories,
		sales:      sales,
		carts:      make(map[string]*cart.Engine),
	}, nil
}

func (s *Service) Meta() domain.Meta {
	return domain.Meta{
		Store:          s.storeInfo,
		Banks:          slices.Clone(s.banks),
		Currencies:     []domain.Currency{domain.CurrencyUSD, domain.CurrencyKHR},
		PaymentMethods: []domain.PaymentMethod{domain.PaymentCash, domain.PaymentCredit, domain.PaymentBank},
		ExchangeRate:   s.conv.Rate(),
	}
}

// ---- catalog ----

func (s *Service) ListProducts(_ context.Context, category string, search string) []domain.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	return catalog.Filter(s.products, category, search)
}

func (s *Service) CreateProduct(ctx context.Context, in domain.ProductInput) (domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	product, err := s.normalizeProduct(in)
	if err != nil {
		return domain.Product{}, err
	}
	product.ID = xid.New("prod")

	next := append(slices.Clone(s.products), product)
	if err := s.repo.SaveProducts(ctx, next); err != nil {
		return domain.Product{}, err
	}
	s.products = next
	log.Printf("[service] product %s created by %s", product.ID, actorName(ctx))
	return product, nil
}

func (s *Service) UpdateProduct(ctx context.Context, id string, in domain.ProductInput) (domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.productIndex(id)
	if idx < 0 {
		return domain.Product{}, store.ErrNotFound
	}
	product, err := s.normalizeProduct(in)
	if err != nil {
		return domain.Product{}, err
	}
	product.ID = s.products[idx].ID

	next := slices.Clone(s.products)
	next[idx] = product
	if err := s.repo.SaveProducts(ctx, next); err != nil {
		return domain.Product{}, err
	}
	s.products = next
	return product, nil
}

func (s *Service) DeleteProduct(ctx context.Context, id string, confirm bool) error {
	if !confirm {
		return ErrConfirmationRequired
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.productIndex(id)
	if idx < 0 {
		return store.ErrNotFound
	}
	next := slices.Delete(slices.Clone(s.products), idx, idx+1)
	if err := s.repo.SaveProducts(ctx, next); err != nil {
		return err
	}
	s.products = next
	log.Printf("[service] product %s deleted by %s", id, actorName(ctx))
	return nil
}

func (s *Service) normalizeProduct(in domain.ProductInput) (domain.Product, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return domain.Product{}, fmt.Errorf("%w: product name is required", store.ErrInvalid)
	}
	if in.Price.IsNegative() {
		return domain.Product{}, fmt.Errorf("%w: price must not be negative", store.ErrInvalid)
	}
	if !in.Price.Equal(in.Price.Round(2)) {
		return domain.Product{}, fmt.Errorf("%w: price must have at most 2 decimal places", store.ErrInvalid)
	}
	if in.Stock < 0 {
		return domain.Product{}, fmt.Errorf("%w: stock must not be negative", store.ErrInvalid)
	}
	category, ok := catalog.FindCategory(s.categories, in.Category)
	if !ok {
		return domain.Product{}, fmt.Errorf("%w: %q", ErrCategoryNotFound, strings.TrimSpace(in.Category))
	}

	return domain.Product{
		Name:     name,
		Category: category.Name,
		Price:    in.Price,
		Image:    strings.TrimSpace(in.Image),
		Stock:    in.Stock,
		Sizes:    normalizeSizes(in.Sizes),
	}, nil
}

func normalizeSizes(sizes []string) []string {
	var out []string
	for _, size := range sizes {
		size = strings.TrimSpace(size)
		if size == "" || slices.Contains(out, size) {
			continue
		}
		out = append(out, size)
	}
	return out
}

func (s *Service) productIndex(id string) int {
	return slices.IndexFunc(s.products, func(p domain.Product) bool { return p.ID == id })
}

func (s *Service) ListCategories(_ context.Context) []domain.Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.categories)
}

func (s *Service) CategoryLabels(_ context.Context) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return catalog.Labels(s.categories)
}

func (s *Service) CreateCategory(ctx context.Context, in domain.CategoryInput) (domain.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	category, err := s.normalizeCategory(in, "")
	if err != nil {
		return domain.Category{}, err
	}
	category.ID = xid.New("cat")

	next := append(slices.Clone(s.categories), category)
	if err := s.repo.SaveCategories(ctx, next); err != nil {
		return domain.Category{}, err
	}
	s.categories = next
	return category, nil
}

// UpdateCategory edits a category. A rename is carried over to every product
// filed under the old name.
func (s *Service) UpdateCategory(ctx context.Context, id string, in domain.CategoryInput) (domain.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.categoryIndex(id)
	if idx < 0 {
		return domain.Category{}, store.ErrNotFound
	}
	category, err := s.normalizeCategory(in, id)
	if err != nil {
		return domain.Category{}, err
	}
	category.ID = id
	oldName := s.categories[idx].Name

	nextCategories := slices.Clone(s.categories)
	nextCategories[idx] = category
	if err := s.repo.SaveCategories(ctx, nextCategories); err != nil {
		return domain.Category{}, err
	}

	nextProducts := s.products
	if oldName != category.Name {
		nextProducts = slices.Clone(s.products)
		for i := range nextProducts {
			if nextProducts[i].Category == oldName {
				nextProducts[i].Category = category.Name
			}
		}
		if err := s.repo.SaveProducts(ctx, nextProducts); err != nil {
			if rollbackErr := s.repo.SaveCategories(ctx, s.categories); rollbackErr != nil {
				log.Printf("[service] WARN: category rollback failed id=%s: %v", id, rollbackErr)
			}
			return domain.Category{}, err
		}
	}

	s.categories = nextCategories
	s.products = nextProducts
	return category, nil
}

// DeleteCategory removes an unused category. Categories still referenced by
// products are kept.
func (s *Service) DeleteCategory(ctx context.Context, id string, confirm bool) error {
	if !confirm {
		return ErrConfirmationRequired
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.categoryIndex(id)
	if idx < 0 {
		return store.ErrNotFound
	}
	name := s.categories[idx].Name
	if n := catalog.CountInCategory(s.products, name); n > 0 {
		return fmt.Errorf("%w: %d product(s) in %q", ErrCategoryInUse, n, name)
	}

	next := slices.Delete(slices.Clone(s.categories), idx, idx+1)
	if err := s.repo.SaveCategories(ctx, next); err != nil {
		return err
	}
	s.categories = next
	log.Printf("[service] category %s deleted by %s", id, actorName(ctx))
	return nil
}

func (s *Service) normalizeCategory(in domain.CategoryInput, selfID string) (domain.Category, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return domain.Category{}, fmt.Errorf("%w: category name is required", store.ErrInvalid)
	}
	if strings.EqualFold(name, catalog.All) {
		return domain.Category{}, fmt.Errorf("%w: %q is reserved", store.ErrInvalid, catalog.All)
	}
	if existing, ok := catalog.FindCategory(s.categories, name); ok && existing.ID != selfID {
		return domain.Category{}, fmt.Errorf("%w: %q", ErrDuplicateCategory, name)
	}
	color := strings.TrimSpace(in.Color)
	if color == "" {
		color = defaultCategoryHue
	}
	icon := strings.TrimSpace(in.Icon)
	if icon == "" {
		icon = defaultCategoryIcon
	}
	return domain.Category{Name: name, Color: color, Icon: icon}, nil
}

func (s *Service) categoryIndex(id string) int {
	return slices.IndexFunc(s.categories, func(c domain.Category) bool { return c.ID == id })
}

// ---- cart ----

func (s *Service) Cart(terminal string) domain.CartView {
	s.mu.Lock()
	defer s.mu.Unlock()
	terminal = normalizeTerminal(terminal)
	if engine, ok := s.carts[terminal]; ok {
		return engine.View(terminal)
	}
	return cart.New(s.conv, s.banks).View(terminal)
}

func (s *Service) AddToCart(_ context.Context, terminal string, req domain.AddToCartRequest) (domain.CartView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.productIndex(strings.TrimSpace(req.ProductID))
	if idx < 0 {
		return domain.CartView{}, store.ErrNotFound
	}
	return s.mutateCart(terminal, func(e *cart.Engine) error {
		return e.Add(s.products[idx], req.Size)
	})
}

func (s *Service) ChangeQuantity(_ context.Context, terminal string, key string, delta int) (domain.CartView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mutateCart(terminal, func(e *cart.Engine) error {
		return e.ChangeQuantity(key, delta)
	})
}

func (s *Service) RemoveLine(_ context.Context, terminal string, key string) (domain.CartView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mutateCart(terminal, func(e *cart.Engine) error {
		return e.Remove(key)
	})
}

func (s *Service) ClearCart(_ context.Context, terminal string) domain.CartView {
	s.mu.Lock()
	defer s.mu.Unlock()
	terminal = normalizeTerminal(terminal)
	engine, ok := s.carts[terminal]
	if !ok {
		return cart.New(s.conv, s.banks).View(terminal)
	}
	engine.Clear()
	return engine.View(terminal)
}

func (s *Service) SetTaxRate(_ context.Context, terminal string, raw string) (domain.CartView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mutateCart(terminal, func(e *cart.Engine) error {
		return e.SetTaxRate(raw)
	})
}

func (s *Service) SetCurrency(_ context.Context, terminal string, cur domain.Currency) (domain.CartView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mutateCart(terminal, func(e *cart.Engine) error {
		return e.SetCurrency(cur)
	})
}

func (s *Service) SetTendered(_ context.Context, terminal string, raw string) (domain.CartView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mutateCart(terminal, func(e *cart.Engine) error {
		return e.SetTendered(raw)
	})
}

func (s *Service) SetPayment(_ context.Context, terminal string, req domain.PaymentRequest) (domain.CartView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mutateCart(terminal, func(e *cart.Engine) error {
		return e.SetPayment(req.Method, req.BankName)
	})
}

func (s *Service) AttachSlip(_ context.Context, terminal string, ref string) (domain.CartView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mutateCart(terminal, func(e *cart.Engine) error {
		return e.AttachSlip(ref)
	})
}

// Checkout finalizes a terminal's cart. ok is false when the cart was empty,
// in which case nothing is recorded.
func (s *Service) Checkout(ctx context.Context, terminal string) (domain.CheckoutResponse, bool, error) {
	s.mu.Lock()
	terminal = normalizeTerminal(terminal)
	engine, exists := s.carts[terminal]
	if !exists {
		s.mu.Unlock()
		return domain.CheckoutResponse{}, false, nil
	}

	at := s.now().In(s.loc)
	receiptNumber := ledger.UniqueReceiptNumber(s.sales, xid.ReceiptNumber(at))
	sale, ok, err := engine.Finalize(xid.New("sale"), receiptNumber, at, func(sale domain.Sale) error {
		next := ledger.Append(s.sales, sale)
		if err := s.repo.SaveSales(ctx, next); err != nil {
			return err
		}
		s.sales = next
		return nil
	})
	s.mu.Unlock()

	if err != nil || !ok {
		return domain.CheckoutResponse{}, ok, err
	}

	log.Printf("[service] sale %s (%s) recorded on %s by %s", sale.ID, sale.ReceiptNumber, terminal, actorName(ctx))
	s.publish(ctx, events.Event{Type: events.SaleCreated, SaleID: sale.ID, Sale: &sale})
	return domain.CheckoutResponse{
		Sale:    sale,
		Receipt: receipt.Build(sale, s.storeInfo, s.conv.Rate()),
	}, true, nil
}

func (s *Service) mutateCart(terminal string, fn func(e *cart.Engine) error) (domain.CartView, error) {
	terminal = normalizeTerminal(terminal)
	engine := s.cartFor(terminal)
	if err := fn(engine); err != nil {
		return domain.CartView{}, err
	}
	return engine.View(terminal), nil
}

// cartFor returns the terminal's engine, creating it on first mutation.
// Reads go through Cart and never register a terminal.
func (s *Service) cartFor(terminal string) *cart.Engine {
	engine, ok := s.carts[terminal]
	if !ok {
		engine = cart.New(s.conv, s.banks)
		s.carts[terminal] = engine
	}
	return engine
}

func normalizeTerminal(terminal string) string {
	terminal = strings.TrimSpace(terminal)
	if terminal == "" {
		return DefaultTerminal
	}
	return terminal
}

// ---- ledger ----

func (s *Service) ListSales(_ context.Context, filter ledger.Filter) domain.SaleListResponse {
	s.mu.Lock()
	sales := ledger.List(s.sales, filter)
	s.mu.Unlock()

	revenue := ledger.Revenue(sales)
	return domain.SaleListResponse{
		Sales:          sales,
		Count:          len(sales),
		Revenue:        revenue,
		RevenueDisplay: s.conv.FormatUSD(revenue, domain.CurrencyUSD),
	}
}

func (s *Service) GetSale(_ context.Context, id string) (domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sale, _, ok := ledger.Find(s.sales, id)
	if !ok {
		return domain.Sale{}, store.ErrNotFound
	}
	return sale, nil
}

// UpdateSale applies an edit to a recorded sale. Only payment details change;
// change is recomputed from the amount paid.
func (s *Service) UpdateSale(ctx context.Context, id string, patch domain.SalePatch) (domain.Sale, error) {
	s.mu.Lock()
	current, _, ok := ledger.Find(s.sales, id)
	if !ok {
		s.mu.Unlock()
		return domain.Sale{}, store.ErrNotFound
	}
	edited, err := ledger.ApplyEdit(current, patch, s.banks, s.conv.Rate())
	if err != nil {
		s.mu.Unlock()
		return domain.Sale{}, err
	}
	next, err := ledger.Replace(s.sales, edited)
	if err == nil {
		err = s.repo.SaveSales(ctx, next)
	}
	if err != nil {
		s.mu.Unlock()
		return domain.Sale{}, err
	}
	s.sales = next
	s.mu.Unlock()

	s.publish(ctx, events.Event{Type: events.SaleUpdated, SaleID: edited.ID, Sale: &edited})
	return edited, nil
}

func (s *Service) DeleteSale(ctx context.Context, id string, confirm bool) error {
	if !confirm {
		return ErrConfirmationRequired
	}
	s.mu.Lock()
	next, err := ledger.Remove(s.sales, id)
	if errors.Is(err, ledger.ErrNotFound) {
		s.mu.Unlock()
		return store.ErrNotFound
	}
	if err == nil {
		err = s.repo.SaveSales(ctx, next)
	}
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.sales = next
	s.mu.Unlock()

	log.Printf("[service] sale %s deleted by %s", id, actorName(ctx))
	s.publish(ctx, events.Event{Type: events.SaleDeleted, SaleID: id})
	return nil
}

// ClearSales empties the ledger and returns how many sales were removed.
func (s *Service) ClearSales(ctx context.Context, confirm bool) (int, error) {
	if !confirm {
		return 0, ErrConfirmationRequired
	}
	s.mu.Lock()
	removed := len(s.sales)
	if err := s.repo.SaveSales(ctx, []domain.Sale{}); err != nil {
		s.mu.Unlock()
		return 0, err
	}
	s.sales = []domain.Sale{}
	s.mu.Unlock()

	log.Printf("[service] ledger cleared (%d sales) by %s", removed, actorName(ctx))
	s.publish(ctx, events.Event{Type: events.SalesCleared})
	return removed, nil
}

func (s *Service) Receipt(ctx context.Context, id string) (domain.Receipt, error) {
	sale, err := s.GetSale(ctx, id)
	if err != nil {
		return domain.Receipt{}, err
	}
	return receipt.Build(sale, s.storeInfo, s.conv.Rate()), nil
}

func (s *Service) Dashboard(_ context.Context) domain.Dashboard {
	s.mu.Lock()
	defer s.mu.Unlock()

	today := s.now().In(s.loc).Format("2006-01-02")
	summary := ledger.Summarize(s.sales, today)

	lowStock := make([]domain.Product, 0)
	for _, p := range s.products {
		if p.Stock <= lowStockThreshold {
			lowStock = append(lowStock, p)
		}
	}
	recent := ledger.List(s.sales, ledger.Filter{})
	if len(recent) > recentSalesLimit {
		recent = recent[:recentSalesLimit]
	}

	return domain.Dashboard{
		Date:              today,
		TodayRevenue:      summary.Revenue,
		TodayRevenueText:  s.conv.FormatUSD(summary.Revenue, domain.CurrencyUSD),
		TodayTransactions: summary.Transactions,
		AverageOrder:      summary.AverageOrder,
		ProductCount:      len(s.products),
		LowStock:          lowStock,
		RecentSales:       recent,
	}
}

// ---- media ----

func (s *Service) UploadImage(ctx context.Context, src io.Reader) (domain.MediaUpload, error) {
	return s.media.Upload(ctx, src)
}

func (s *Service) MaxImageBytes() int64 {
	return s.media.MaxBytes()
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	event.OccurredAt = s.now().UTC()
	if err := s.events.Publish(context.WithoutCancel(ctx), event); err != nil {
		log.Printf("[service] WARN: publish %s failed: %v", event.Type, err)
	}
}

func actorName(ctx context.Context) string {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Username == "" {
		return "system"
	}
	return actor.Username
}
