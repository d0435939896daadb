package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusPaid      OrderStatus = "paid"
	StatusFailed    OrderStatus = "failed"
	StatusShipped   OrderStatus = "shipped"
	StatusDelivered OrderStatus = "delivered"
	StatusCancelled OrderStatus = "cancelled"
)

// Valid reports whether s is one of the known order statuses.
func (s OrderStatus) Valid() bool {
	switch s {
	case StatusPending, StatusPaid, StatusFailed, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

type DeliveryZone string

const (
	ZoneTbilisi DeliveryZone = "tbilisi"
	ZoneRegion  DeliveryZone = "region"
)

type Locale string

const (
	LocaleKA Locale = "ka"
	LocaleEN Locale = "en"
)

// NormalizeLocale falls back to Georgian for anything unrecognised.
func NormalizeLocale(raw string) Locale {
	if Locale(raw) == LocaleEN {
		return LocaleEN
	}
	return LocaleKA
}

// Who moved an order from one status to another.
const (
	SourceAdmin   = "admin"
	SourceGateway = "gateway"
)

// OrderItem is a frozen snapshot of one product at order time. It is never
// re-derived from the catalog after the order is created.
type OrderItem struct {
	ProductID    primitive.ObjectID `bson:"productId" json:"productId"`
	Name         LocalizedText      `bson:"name" json:"name"`
	Image        string             `bson:"image" json:"image"`
	ExternalCode string             `bson:"externalCode,omitempty" json:"externalCode,omitempty"`
	Quantity     int                `bson:"quantity" json:"quantity"`
	UnitPrice    float64            `bson:"unitPrice" json:"unitPrice"`
	LineTotal    float64            `bson:"lineTotal" json:"lineTotal"`
}

// StatusChange is one entry of the order audit trail.
type StatusChange struct {
	From   OrderStatus `bson:"from" json:"from"`
	To     OrderStatus `bson:"to" json:"to"`
	Source string      `bson:"source" json:"source"`
	At     time.Time   `bson:"at" json:"at"`
}

// Order defines the persisted order document. Money fields hold amounts
// rounded to MoneyPlaces; Total always equals Subtotal plus DeliveryPrice in
// minor units.
type Order struct {
	ID            primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	UUID          string              `bson:"uuid" json:"uuid"`
	Locale        Locale              `bson:"locale" json:"locale"`
	Name          string              `bson:"name" json:"name"`
	Surname       string              `bson:"surname" json:"surname"`
	Email         string              `bson:"email,omitempty" json:"email,omitempty"`
	PersonalID    string              `bson:"personalId" json:"personalId"`
	Phone         string              `bson:"phone" json:"phone"`
	Address       string              `bson:"address" json:"address"`
	DeliveryZone  DeliveryZone        `bson:"deliveryType" json:"deliveryType"`
	DeliveryPrice float64             `bson:"deliveryPrice" json:"deliveryPrice"`
	Subtotal      float64             `bson:"subtotal" json:"subtotal"`
	Total         float64             `bson:"total" json:"total"`
	Status        OrderStatus         `bson:"status" json:"status"`
	Items         []OrderItem         `bson:"items" json:"items"`
	StatusHistory []StatusChange      `bson:"statusHistory,omitempty" json:"statusHistory,omitempty"`
	UserID        *primitive.ObjectID `bson:"userId,omitempty" json:"userId,omitempty"`
	CreatedAt     time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time           `bson:"updatedAt" json:"updatedAt"`
}
