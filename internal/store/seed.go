package store

import (
	"github.com/shopspring/decimal"

	"tcpos/internal/domain"
)

var apparelSizes = []string{"S", "M", "L", "Free Size"}

func DefaultCategories() []domain.Category {
	return []domain.Category{
		{ID: "1", Name: "Shirts", Color: "#F59E0B", Icon: "👕"},
		{ID: "2", Name: "Jeans", Color: "#06B6D4", Icon: "👖"},
		{ID: "3", Name: "Sets", Color: "#10B981", Icon: "🧥"},
	}
}

func DefaultProducts() []domain.Product {
	sized := func(id string, name string, category string, price string, image string) domain.Product {
		return domain.Product{
			ID:       id,
			Name:     name,
			Category: category,
			Price:    decimal.RequireFromString(price),
			Image:    image,
			Stock:    500,
			Sizes:    append([]string(nil), apparelSizes...),
		}
	}

	products := []domain.Product{
		sized("1", "Shirt", "Shirts", "3", "/images/products/shirt-3.jpg"),
		sized("4", "Shirt", "Shirts", "6", "/images/products/shirt-6.jpg"),
		sized("5", "Shirt", "Shirts", "7", "/images/products/shirt-7.jpg"),
		sized("6", "Shirt", "Shirts", "8", "/images/products/shirt-8.jpg"),
		sized("7", "Shirt", "Shirts", "9", "/images/products/shirt-9.jpg"),
		sized("8", "Shirt", "Shirts", "10", "/images/products/shirt-10.jpg"),
		sized("15", "Jeans", "Jeans", "10", "/images/products/jeans-10.jpg"),
		sized("17", "Jeans", "Jeans", "12", "/images/products/jeans-12.jpg"),
		sized("19", "Jeans", "Jeans", "14", "/images/products/jeans-14.jpg"),
		sized("22", "Set", "Sets", "12", "/images/products/set-12.jpg"),
		sized("68", "Skirt", "Sets", "10", "/images/products/skirt-10.jpg"),
	}
	products = append(products, domain.Product{
		ID:       "66",
		Name:     "Socks",
		Category: "Sets",
		Price:    decimal.RequireFromString("1.5"),
		Image:    "/images/products/socks.jpg",
		Stock:    500,
	})
	return products
}
