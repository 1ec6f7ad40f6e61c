package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"tcpos/internal/cart"
	"tcpos/internal/domain"
	"tcpos/internal/events"
	"tcpos/internal/ledger"
	"tcpos/internal/store"
	"tcpos/internal/store/memory"
)

var fixedNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

type recordingPublisher struct {
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, event events.Event) error {
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

type flakyRepo struct {
	*store.Collections
	failSales    bool
	failProducts bool
}

func (r *flakyRepo) SaveSales(ctx context.Context, sales []domain.Sale) error {
	if r.failSales {
		return errors.New("disk full")
	}
	return r.Collections.SaveSales(ctx, sales)
}

func (r *flakyRepo) SaveProducts(ctx context.Context, products []domain.Product) error {
	if r.failProducts {
		return errors.New("disk full")
	}
	return r.Collections.SaveProducts(ctx, products)
}

func newTestService(t *testing.T) (*Service, *flakyRepo, *recordingPublisher) {
	t.Helper()
	repo := &flakyRepo{Collections: store.NewCollections(memory.New())}
	pub := &recordingPublisher{}
	svc, err := New(context.Background(), repo, Options{
		Store:    domain.StoreInfo{Name: "T&C Clothing Shop"},
		Location: time.UTC,
		Events:   pub,
		Now:      func() time.Time { return fixedNow },
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, repo, pub
}

func TestCheckoutRecordsSaleAndClearsCart(t *testing.T) {
	svc, repo, pub := newTestService(t)
	ctx := WithActor(context.Background(), domain.Actor{Username: "admin", Role: "admin"})

	if _, err := svc.AddToCart(ctx, "", domain.AddToCartRequest{ProductID: "66"}); err != nil {
		t.Fatalf("add socks: %v", err)
	}
	if _, err := svc.AddToCart(ctx, "", domain.AddToCartRequest{ProductID: "1", Size: "M"}); err != nil {
		t.Fatalf("add shirt: %v", err)
	}
	if _, err := svc.SetTendered(ctx, "", "10"); err != nil {
		t.Fatalf("set tendered: %v", err)
	}

	resp, ok, err := svc.Checkout(ctx, "")
	if err != nil || !ok {
		t.Fatalf("checkout failed: ok=%v err=%v", ok, err)
	}
	if !resp.Sale.Total.Equal(decimal.RequireFromString("4.5")) {
		t.Fatalf("expected total 4.5, got %s", resp.Sale.Total)
	}
	if !resp.Sale.Change.Equal(decimal.RequireFromString("5.5")) {
		t.Fatalf("expected change 5.5, got %s", resp.Sale.Change)
	}
	if resp.Sale.Date != "2026-03-14" || resp.Sale.Time != "09:30" {
		t.Fatalf("expected sale stamped with store clock, got %s %s", resp.Sale.Date, resp.Sale.Time)
	}
	if resp.Receipt.ReceiptNumber != resp.Sale.ReceiptNumber {
		t.Fatalf("expected receipt to carry sale receipt number")
	}

	if view := svc.Cart(""); view.ItemCount != 0 {
		t.Fatalf("expected cleared cart, got %d items", view.ItemCount)
	}
	persisted, err := repo.LoadSales(ctx)
	if err != nil || len(persisted) != 1 {
		t.Fatalf("expected persisted sale, got %d (%v)", len(persisted), err)
	}
	if len(pub.events) != 1 || pub.events[0].Type != events.SaleCreated {
		t.Fatalf("expected sale.created event, got %+v", pub.events)
	}
}

func TestCheckoutEmptyCartIsNoop(t *testing.T) {
	svc, _, pub := newTestService(t)

	_, ok, err := svc.Checkout(context.Background(), "terminal-9")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatalf("expected empty checkout to report ok=false")
	}
	if list := svc.ListSales(context.Background(), ledger.Filter{}); list.Count != 0 {
		t.Fatalf("expected no sales, got %d", list.Count)
	}
	if len(pub.events) != 0 {
		t.Fatalf("expected no events")
	}
}

func TestCheckoutPersistFailureKeepsCart(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.AddToCart(ctx, "t1", domain.AddToCartRequest{ProductID: "66"}); err != nil {
		t.Fatalf("add: %v", err)
	}
	repo.failSales = true

	if _, _, err := svc.Checkout(ctx, "t1"); err == nil {
		t.Fatalf("expected checkout to surface storage failure")
	}
	if view := svc.Cart("t1"); view.ItemCount != 1 {
		t.Fatalf("expected cart retained after failed checkout, got %d", view.ItemCount)
	}
	if list := svc.ListSales(ctx, ledger.Filter{}); list.Count != 0 {
		t.Fatalf("expected ledger unchanged, got %d", list.Count)
	}
}

func TestCheckoutReceiptNumbersAreUnique(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	seen := map[string]bool{}
	for i := 0; i < 3; i++ {
		if _, err := svc.AddToCart(ctx, "", domain.AddToCartRequest{ProductID: "66"}); err != nil {
			t.Fatalf("add: %v", err)
		}
		resp, ok, err := svc.Checkout(ctx, "")
		if err != nil || !ok {
			t.Fatalf("checkout %d failed: %v", i, err)
		}
		if seen[resp.Sale.ReceiptNumber] {
			t.Fatalf("duplicate receipt number %s", resp.Sale.ReceiptNumber)
		}
		seen[resp.Sale.ReceiptNumber] = true
	}
}

func TestCartsAreIsolatedPerTerminal(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.AddToCart(ctx, "front", domain.AddToCartRequest{ProductID: "66"}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if view := svc.Cart("back"); view.ItemCount != 0 {
		t.Fatalf("expected back terminal to be empty, got %d", view.ItemCount)
	}
}

func TestAddToCartErrors(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.AddToCart(ctx, "", domain.AddToCartRequest{ProductID: "nope"}); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := svc.AddToCart(ctx, "", domain.AddToCartRequest{ProductID: "1"}); !errors.Is(err, cart.ErrSizeRequired) {
		t.Fatalf("expected ErrSizeRequired, got %v", err)
	}
}

func TestCreateProductValidation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateProduct(ctx, domain.ProductInput{Name: "Cap", Category: "Hats", Price: decimal.NewFromInt(4)})
	if !errors.Is(err, ErrCategoryNotFound) {
		t.Fatalf("expected ErrCategoryNotFound, got %v", err)
	}
	_, err = svc.CreateProduct(ctx, domain.ProductInput{Name: "Cap", Category: "Shirts", Price: decimal.RequireFromString("4.999")})
	if !errors.Is(err, store.ErrInvalid) {
		t.Fatalf("expected ErrInvalid for sub-cent price, got %v", err)
	}
	_, err = svc.CreateProduct(ctx, domain.ProductInput{Name: "Cap", Category: "Shirts", Price: decimal.NewFromInt(4), Stock: -1})
	if !errors.Is(err, store.ErrInvalid) {
		t.Fatalf("expected ErrInvalid for negative stock, got %v", err)
	}

	p, err := svc.CreateProduct(ctx, domain.ProductInput{
		Name:     " Polo ",
		Category: "shirts",
		Price:    decimal.RequireFromString("11.50"),
		Stock:    20,
		Sizes:    []string{"M", " M ", "", "L"},
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	if p.Name != "Polo" || p.Category != "Shirts" {
		t.Fatalf("expected normalized name and category, got %q %q", p.Name, p.Category)
	}
	if len(p.Sizes) != 2 {
		t.Fatalf("expected deduplicated sizes, got %v", p.Sizes)
	}
	if got := svc.ListProducts(ctx, "Shirts", "Polo"); len(got) != 1 {
		t.Fatalf("expected new product listed, got %d", len(got))
	}
}

func TestUpdateProductFailedWriteKeepsState(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	repo.failProducts = true
	_, err := svc.UpdateProduct(ctx, "66", domain.ProductInput{Name: "Socks", Category: "Sets", Price: decimal.NewFromInt(2)})
	if err == nil {
		t.Fatalf("expected storage error")
	}
	for _, p := range svc.ListProducts(ctx, "", "") {
		if p.ID == "66" && !p.Price.Equal(decimal.RequireFromString("1.5")) {
			t.Fatalf("expected price unchanged, got %s", p.Price)
		}
	}
}

func TestDeleteRequiresConfirmation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	if err := svc.DeleteProduct(ctx, "66", false); !errors.Is(err, ErrConfirmationRequired) {
		t.Fatalf("expected ErrConfirmationRequired, got %v", err)
	}
	if err := svc.DeleteProduct(ctx, "66", true); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := svc.DeleteProduct(ctx, "66", true); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
	if _, err := svc.ClearSales(ctx, false); !errors.Is(err, ErrConfirmationRequired) {
		t.Fatalf("expected ErrConfirmationRequired for clear, got %v", err)
	}
}

func TestCategoryLifecycle(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreateCategory(ctx, domain.CategoryInput{Name: "Hats"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Color != "#3B82F6" || created.Icon != "👕" {
		t.Fatalf("expected default color and icon, got %q %q", created.Color, created.Icon)
	}
	if _, err := svc.CreateCategory(ctx, domain.CategoryInput{Name: "hats"}); !errors.Is(err, ErrDuplicateCategory) {
		t.Fatalf("expected ErrDuplicateCategory, got %v", err)
	}
	if _, err := svc.CreateCategory(ctx, domain.CategoryInput{Name: "All"}); !errors.Is(err, store.ErrInvalid) {
		t.Fatalf("expected reserved name rejected, got %v", err)
	}

	labels := svc.CategoryLabels(ctx)
	if labels[0] != "All" || labels[len(labels)-1] != "Hats" {
		t.Fatalf("expected All first and Hats last, got %v", labels)
	}

	if err := svc.DeleteCategory(ctx, created.ID, true); err != nil {
		t.Fatalf("delete unused category: %v", err)
	}
	if err := svc.DeleteCategory(ctx, "1", true); !errors.Is(err, ErrCategoryInUse) {
		t.Fatalf("expected ErrCategoryInUse, got %v", err)
	}
}

func TestCategoryRenameCascadesToProducts(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.UpdateCategory(ctx, "2", domain.CategoryInput{Name: "Denim", Color: "#06B6D4"}); err != nil {
		t.Fatalf("rename: %v", err)
	}
	if got := svc.ListProducts(ctx, "Jeans", ""); len(got) != 0 {
		t.Fatalf("expected no products under old name, got %d", len(got))
	}
	if got := svc.ListProducts(ctx, "Denim", ""); len(got) != 3 {
		t.Fatalf("expected 3 products under new name, got %d", len(got))
	}
}

func TestUpdateSaleRecomputesChange(t *testing.T) {
	svc, _, pub := newTestService(t)
	ctx := context.Background()

	if _, err := svc.AddToCart(ctx, "", domain.AddToCartRequest{ProductID: "66"}); err != nil {
		t.Fatalf("add: %v", err)
	}
	resp, _, err := svc.Checkout(ctx, "")
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}

	paid := decimal.NewFromInt(2)
	edited, err := svc.UpdateSale(ctx, resp.Sale.ID, domain.SalePatch{CustomerPaid: &paid})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !edited.Change.Equal(decimal.RequireFromString("0.5")) {
		t.Fatalf("expected change 0.5, got %s", edited.Change)
	}
	if !edited.Total.Equal(resp.Sale.Total) {
		t.Fatalf("expected total untouched")
	}

	if _, err := svc.UpdateSale(ctx, "missing", domain.SalePatch{CustomerPaid: &paid}); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if last := pub.events[len(pub.events)-1]; last.Type != events.SaleUpdated {
		t.Fatalf("expected sale.updated event, got %s", last.Type)
	}
}

func TestDashboardSummarizesToday(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := svc.AddToCart(ctx, "", domain.AddToCartRequest{ProductID: "66"}); err != nil {
			t.Fatalf("add: %v", err)
		}
		if _, _, err := svc.Checkout(ctx, ""); err != nil {
			t.Fatalf("checkout: %v", err)
		}
	}

	dash := svc.Dashboard(ctx)
	if dash.Date != "2026-03-14" {
		t.Fatalf("expected store date, got %s", dash.Date)
	}
	if dash.TodayTransactions != 2 || !dash.TodayRevenue.Equal(decimal.NewFromInt(3)) {
		t.Fatalf("expected 2 sales worth 3, got %d worth %s", dash.TodayTransactions, dash.TodayRevenue)
	}
	if dash.TodayRevenueText != "$3.00" {
		t.Fatalf("expected $3.00, got %s", dash.TodayRevenueText)
	}
	if len(dash.RecentSales) != 2 {
		t.Fatalf("expected 2 recent sales, got %d", len(dash.RecentSales))
	}
}

func TestClearSalesEmptiesLedger(t *testing.T) {
	svc, _, pub := newTestService(t)
	ctx := context.Background()

	if _, err := svc.AddToCart(ctx, "", domain.AddToCartRequest{ProductID: "66"}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, _, err := svc.Checkout(ctx, ""); err != nil {
		t.Fatalf("checkout: %v", err)
	}

	removed, err := svc.ClearSales(ctx, true)
	if err != nil || removed != 1 {
		t.Fatalf("expected 1 removed, got %d (%v)", removed, err)
	}
	if list := svc.ListSales(ctx, ledger.Filter{}); list.Count != 0 {
		t.Fatalf("expected empty ledger, got %d", list.Count)
	}
	if last := pub.events[len(pub.events)-1]; last.Type != events.SalesCleared {
		t.Fatalf("expected sales.cleared event, got %s", last.Type)
	}
}

func TestActorContextRoundTrip(t *testing.T) {
	ctx := WithActor(context.Background(), domain.Actor{Username: "cashier"})
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Username != "cashier" {
		t.Fatalf("expected actor cashier, got %+v", actor)
	}
	if _, ok := ActorFromContext(context.Background()); ok {
		t.Fatalf("expected no actor on bare context")
	}
}

func TestCartReadsDoNotRegisterTerminals(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	for _, terminal := range []string{"a", "b", "c"} {
		if view := svc.Cart(terminal); view.ItemCount != 0 || view.Terminal != terminal {
			t.Fatalf("expected empty view for %s, got %+v", terminal, view)
		}
		svc.ClearCart(ctx, terminal)
		if _, ok, err := svc.Checkout(ctx, terminal); ok || err != nil {
			t.Fatalf("expected empty checkout for %s, got ok=%v err=%v", terminal, ok, err)
		}
	}
	if len(svc.carts) != 0 {
		t.Fatalf("expected no carts registered by reads, got %d", len(svc.carts))
	}

	if _, err := svc.AddToCart(ctx, "a", domain.AddToCartRequest{ProductID: "66"}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if len(svc.carts) != 1 {
		t.Fatalf("expected one cart after a mutation, got %d", len(svc.carts))
	}
}
