package catalog

import (
	"testing"

	"github.com/shopspring/decimal"

	"tcpos/internal/domain"
)

func sampleProducts() []domain.Product {
	return []domain.Product{
		{ID: "1", Name: "Shirt Basic", Category: "Shirts", Price: decimal.RequireFromString("3")},
		{ID: "2", Name: "Shirt Oxford", Category: "Shirts", Price: decimal.RequireFromString("10")},
		{ID: "3", Name: "Slim Jeans", Category: "Jeans", Price: decimal.RequireFromString("10")},
		{ID: "4", Name: "Socks", Category: "Socks", Price: decimal.RequireFromString("1.5")},
	}
}

func ids(products []domain.Product) []string {
	out := make([]string, 0, len(products))
	for _, p := range products {
		out = append(out, p.ID)
	}
	return out
}

func TestFilterAllPassesEveryCategory(t *testing.T) {
	got := Filter(sampleProducts(), All, "")
	if len(got) != 4 {
		t.Fatalf("expected 4 products, got %v", ids(got))
	}
}

func TestFilterByCategoryIsExact(t *testing.T) {
	got := Filter(sampleProducts(), "Shirts", "")
	if len(got) != 2 || got[0].ID != "1" || got[1].ID != "2" {
		t.Fatalf("expected shirts 1 and 2, got %v", ids(got))
	}
	if got := Filter(sampleProducts(), "shirts", ""); len(got) != 0 {
		t.Fatalf("expected category match to be case sensitive, got %v", ids(got))
	}
}

func TestFilterByNameSubstringIgnoresCase(t *testing.T) {
	got := Filter(sampleProducts(), All, "  SHIRT ")
	if len(got) != 2 {
		t.Fatalf("expected 2 shirts, got %v", ids(got))
	}
}

func TestFilterByPriceTerm(t *testing.T) {
	for _, term := range []string{"10", "$10", "10.0", "$10.00"} {
		got := Filter(sampleProducts(), All, term)
		if len(got) != 2 || got[0].ID != "2" || got[1].ID != "3" {
			t.Fatalf("term %q: expected products 2 and 3, got %v", term, ids(got))
		}
	}

	got := Filter(sampleProducts(), All, "1.5")
	if len(got) != 1 || got[0].ID != "4" {
		t.Fatalf("expected socks for 1.5, got %v", ids(got))
	}
}

func TestFilterCombinesCategoryAndSearch(t *testing.T) {
	got := Filter(sampleProducts(), "Jeans", "10")
	if len(got) != 1 || got[0].ID != "3" {
		t.Fatalf("expected only jeans priced 10, got %v", ids(got))
	}
}

func TestFilterNoMatchIsEmptyNotNil(t *testing.T) {
	got := Filter(sampleProducts(), All, "hat")
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty result, got %v", got)
	}
}

func TestFilterThreeDecimalTermFallsBackToName(t *testing.T) {
	got := Filter(sampleProducts(), All, "1.500")
	if len(got) != 0 {
		t.Fatalf("expected name match only, got %v", ids(got))
	}
}

func TestLabelsPrependsAll(t *testing.T) {
	labels := Labels([]domain.Category{{Name: "Shirts"}, {Name: "Jeans"}})
	if len(labels) != 3 || labels[0] != All || labels[1] != "Shirts" || labels[2] != "Jeans" {
		t.Fatalf("unexpected labels %v", labels)
	}
}
