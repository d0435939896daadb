package orders

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/models"
)

// Catalog is the read-only product source used to snapshot prices.
type Catalog interface {
	// ProductsByIDs returns the live products among ids. Missing and deleted
	// products are simply absent from the result.
	ProductsByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Product, error)
}

type SettingsReader interface {
	DeliverySettings(ctx context.Context) (models.DeliverySettings, error)
}

type CodeChecker interface {
	CodeExists(ctx context.Context, code string) (bool, error)
}

// Repository persists orders. Status is only ever changed through
// UpdateStatus, which must apply the change atomically and only when the
// stored status is still one of from.
type Repository interface {
	CodeChecker
	Insert(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error)
	FindByUUID(ctx context.Context, uuid string) (*models.Order, error)
	UpdateStatus(ctx context.Context, id primitive.ObjectID, from []models.OrderStatus, change models.StatusChange) (*models.Order, error)
	List(ctx context.Context, filter ListFilter) ([]models.Order, int64, error)
}

// Notifier receives transition side effects. Implementations must not block
// and must never report failure back into the transition.
type Notifier interface {
	OrderPaid(order models.Order)
	OrderStatusChanged(order models.Order, from, to models.OrderStatus)
}

type ListFilter struct {
	Status models.OrderStatus
	UUID   string
	Email  string
	UserID *primitive.ObjectID
	Page   int64
	Limit  int64
}
