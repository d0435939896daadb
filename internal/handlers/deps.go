package handlers

import (
	"context"

	"go.uber.org/zap"

	"storefront/internal/metrics"
	"storefront/internal/models"
	"storefront/internal/orders"
	"storefront/internal/payment"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

// OrderService is the slice of *orders.Service the HTTP layer drives.
type OrderService interface {
	Create(ctx context.Context, in orders.CreateInput) (*models.Order, error)
	Get(ctx context.Context, ref string) (*models.Order, error)
	PaymentTarget(ctx context.Context, ref string) (*models.Order, error)
	List(ctx context.Context, filter orders.ListFilter) (orders.ListResult, error)
	TransitionStatus(ctx context.Context, ref string, to models.OrderStatus) (*models.Order, error)
}

type PaymentGateway interface {
	CreatePaymentLink(ctx context.Context, order models.Order, locale models.Locale) (*payment.Link, error)
	VerifyCallback(fields map[string]string) error
}

type CallbackReconciler interface {
	HandleCallback(ctx context.Context, cb orders.Callback) (orders.Outcome, error)
}

// Deps bundles what the order handlers need.
type Deps struct {
	DB         Pinger
	Orders     OrderService
	Payments   PaymentGateway
	Reconciler CallbackReconciler
	Metrics    *metrics.Metrics
	Logger     *zap.Logger
	// FrontURL ends in a slash.
	FrontURL string
	// VerifyCallbackSignature rejects unsigned or mis-signed callbacks.
	VerifyCallbackSignature bool
}

func (d Deps) log() *zap.Logger {
	if d.Logger == nil {
		return zap.NewNop()
	}
	return d.Logger.Named("handlers")
}
