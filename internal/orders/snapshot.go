package orders

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/models"
)

type ItemRequest struct {
	ProductID string
	Quantity  int
}

// Snapshotter freezes live catalog data into order line items.
type Snapshotter struct {
	catalog Catalog
}

func NewSnapshotter(catalog Catalog) *Snapshotter {
	return &Snapshotter{catalog: catalog}
}

// Resolve fetches every distinct product once and returns one line item per
// requested item, in request order, together with the subtotal. If any id is
// unknown the error names all of them.
func (s *Snapshotter) Resolve(ctx context.Context, items []ItemRequest) ([]models.OrderItem, decimal.Decimal, error) {
	if len(items) == 0 {
		return nil, decimal.Zero, validationf("order must include at least one item")
	}

	seen := make(map[primitive.ObjectID]struct{}, len(items))
	parsed := make([]primitive.ObjectID, len(items))
	unique := make([]primitive.ObjectID, 0, len(items))

	for i, item := range items {
		id, err := primitive.ObjectIDFromHex(strings.TrimSpace(item.ProductID))
		if err != nil {
			return nil, decimal.Zero, validationf("invalid productId: %s", item.ProductID)
		}
		if item.Quantity < 1 {
			return nil, decimal.Zero, validationf("quantity for product %s must be at least 1", item.ProductID)
		}
		parsed[i] = id
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}

	products, err := s.catalog.ProductsByIDs(ctx, unique)
	if err != nil {
		return nil, decimal.Zero, fmt.Errorf("fetch products: %w", err)
	}

	byID := make(map[primitive.ObjectID]models.Product, len(products))
	for _, product := range products {
		byID[product.ID] = product
	}

	var missing []string
	for _, id := range unique {
		if _, ok := byID[id]; !ok {
			missing = append(missing, id.Hex())
		}
	}
	if len(missing) > 0 {
		return nil, decimal.Zero, &ProductNotFoundError{IDs: missing}
	}

	lines := make([]models.OrderItem, 0, len(items))
	subtotal := decimal.Zero
	for i, item := range items {
		product := byID[parsed[i]]
		price := product.EffectivePrice()
		if price < 0 {
			return nil, decimal.Zero, fmt.Errorf("catalog price for product %s is negative", product.ID.Hex())
		}

		unitPrice := models.RoundMoney(decimal.NewFromFloat(price))
		lineTotal := unitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
		subtotal = subtotal.Add(lineTotal)

		lines = append(lines, models.OrderItem{
			ProductID:    product.ID,
			Name:         product.Name,
			Image:        product.Image,
			ExternalCode: product.ExternalCode(),
			Quantity:     item.Quantity,
			UnitPrice:    models.StoredAmount(unitPrice),
			LineTotal:    models.StoredAmount(lineTotal),
		})
	}

	return lines, subtotal, nil
}
