package models

import "testing"

func TestEffectivePriceUsesSalePriceWhenOnSale(t *testing.T) {
	tests := []struct {
		name    string
		product Product
		want    float64
	}{
		{"on sale", Product{Price: 100, SaleEnabled: true, SalePrice: 75}, 75},
		{"sale disabled", Product{Price: 100, SaleEnabled: false, SalePrice: 75}, 100},
		{"sale price not lower", Product{Price: 100, SaleEnabled: true, SalePrice: 120}, 100},
		{"zero sale price", Product{Price: 100, SaleEnabled: true}, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.product.EffectivePrice(); got != tt.want {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestExternalCodePrefersFinaCode(t *testing.T) {
	if got := (Product{Code: "C-1", FinaCode: "F-1"}).ExternalCode(); got != "F-1" {
		t.Fatalf("expected F-1, got %s", got)
	}
	if got := (Product{Code: "C-1"}).ExternalCode(); got != "C-1" {
		t.Fatalf("expected C-1, got %s", got)
	}
}
