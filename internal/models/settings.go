package models

import "time"

const SettingsKey = "main"

// Default delivery rules applied when the settings document is first created.
const (
	DefaultTbilisiFee      = 10
	DefaultTbilisiFreeOver = 150
	DefaultRegionFee       = 15
	DefaultRegionFreeOver  = 300
)

// Settings is the singleton store settings document. Only the delivery rules
// are read by this service.
type Settings struct {
	Key                     string    `bson:"key" json:"key"`
	DeliveryTbilisiPrice    float64   `bson:"deliveryTbilisiPrice" json:"deliveryTbilisiPrice"`
	DeliveryTbilisiFreeOver float64   `bson:"deliveryTbilisiFreeOver" json:"deliveryTbilisiFreeOver"`
	DeliveryRegionPrice     float64   `bson:"deliveryRegionPrice" json:"deliveryRegionPrice"`
	DeliveryRegionFreeOver  float64   `bson:"deliveryRegionFreeOver" json:"deliveryRegionFreeOver"`
	UpdatedAt               time.Time `bson:"updatedAt,omitempty" json:"updatedAt,omitempty"`
}

// ZoneRule is the fee and free-delivery threshold of one delivery zone.
type ZoneRule struct {
	Fee      float64
	FreeOver float64
}

// DeliverySettings maps every known zone to its rule.
type DeliverySettings map[DeliveryZone]ZoneRule

// Delivery extracts the per-zone rules from the settings document.
func (s Settings) Delivery() DeliverySettings {
	return DeliverySettings{
		ZoneTbilisi: {Fee: s.DeliveryTbilisiPrice, FreeOver: s.DeliveryTbilisiFreeOver},
		ZoneRegion:  {Fee: s.DeliveryRegionPrice, FreeOver: s.DeliveryRegionFreeOver},
	}
}
