package orders

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"storefront/internal/models"
)

// DeliveryPolicy prices delivery from the store settings.
type DeliveryPolicy struct {
	settings SettingsReader
}

func NewDeliveryPolicy(settings SettingsReader) *DeliveryPolicy {
	return &DeliveryPolicy{settings: settings}
}

// Quote returns the delivery fee for zone. Delivery is free once subtotal
// reaches the zone threshold.
func (p *DeliveryPolicy) Quote(ctx context.Context, zone models.DeliveryZone, subtotal decimal.Decimal) (decimal.Decimal, error) {
	rules, err := p.settings.DeliverySettings(ctx)
	if err != nil {
		return decimal.Zero, fmt.Errorf("load delivery settings: %w", err)
	}

	rule, ok := rules[zone]
	if !ok {
		return decimal.Zero, &ConfigurationError{Key: "delivery." + string(zone), Reason: "no delivery rule for zone"}
	}
	if rule.Fee < 0 || rule.FreeOver < 0 {
		return decimal.Zero, &ConfigurationError{Key: "delivery." + string(zone), Reason: "negative fee or threshold"}
	}

	if subtotal.GreaterThanOrEqual(decimal.NewFromFloat(rule.FreeOver)) {
		return decimal.Zero, nil
	}
	return decimal.NewFromFloat(rule.Fee), nil
}
