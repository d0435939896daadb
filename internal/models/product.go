package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Product is the read-only catalog projection needed to snapshot an order
// line. Catalog CRUD lives outside this service.
type Product struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name     LocalizedText      `bson:"name" json:"name"`
	Code     string             `bson:"code,omitempty" json:"code,omitempty"`
	FinaCode string             `bson:"finaCode,omitempty" json:"finaCode,omitempty"`
	Image    string             `bson:"image" json:"image"`
	Price    float64            `bson:"price" json:"price"`
	// SaleEnabled and SalePrice are set by catalog admins for a temporary
	// reduction below Price.
	SaleEnabled bool       `bson:"saleEnabled" json:"saleEnabled,omitempty"`
	SalePrice   float64    `bson:"salePrice,omitempty" json:"salePrice,omitempty"`
	IsDeleted   bool       `bson:"isDeleted" json:"isDeleted,omitempty"`
	DeletedAt   *time.Time `bson:"deletedAt,omitempty" json:"deletedAt,omitempty"`
}

// ExternalCode is the code the ERP knows the product by, if any.
func (p Product) ExternalCode() string {
	if p.FinaCode != "" {
		return p.FinaCode
	}
	return p.Code
}

func (p Product) OnSale() bool {
	return p.SaleEnabled && p.SalePrice > 0 && p.SalePrice < p.Price
}

// EffectivePrice is the unit price a buyer pays right now.
func (p Product) EffectivePrice() float64 {
	if p.OnSale() {
		return p.SalePrice
	}
	return p.Price
}
