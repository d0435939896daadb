package orders

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"storefront/internal/models"
)

const GatewayApproved = "approved"

// Callback is a validated payment gateway webhook.
type Callback struct {
	// OrderRef is the internal id or uuid the payment was created for.
	OrderRef    string
	Status      string
	AmountMinor int64
}

// Outcome is what a callback did to its order. Every outcome is acknowledged
// to the gateway.
type Outcome string

const (
	OutcomePaid           Outcome = "paid"
	OutcomeDuplicate      Outcome = "duplicate"
	OutcomeDeclined       Outcome = "declined"
	OutcomeAmountMismatch Outcome = "amount_mismatch"
	OutcomeIgnored        Outcome = "ignored"
)

// Reconciler applies payment callbacks to stored orders. Redelivery of a
// callback is safe: only the first approval of an order notifies the buyer.
type Reconciler struct {
	orders   *Service
	notifier Notifier
	logger   *zap.Logger
}

func NewReconciler(orders *Service, notifier Notifier, logger *zap.Logger) *Reconciler {
	return &Reconciler{
		orders:   orders,
		notifier: notifier,
		logger:   logger.Named("reconciler"),
	}
}

func (r *Reconciler) HandleCallback(ctx context.Context, cb Callback) (Outcome, error) {
	order, err := r.orders.Get(ctx, cb.OrderRef)
	if err != nil {
		return "", err
	}

	log := r.logger.With(
		zap.String("order_id", order.ID.Hex()),
		zap.String("uuid", order.UUID),
		zap.String("gateway_status", cb.Status),
	)

	if !strings.EqualFold(cb.Status, GatewayApproved) {
		return r.fail(ctx, log, order, OutcomeDeclined)
	}

	if expected := order.TotalMinorUnits(); cb.AmountMinor != expected {
		log.Warn("payment amount mismatch",
			zap.Int64("amount", cb.AmountMinor),
			zap.Int64("expected", expected),
		)
		return r.fail(ctx, log, order, OutcomeAmountMismatch)
	}

	current, changed, err := r.orders.applyGatewayStatus(ctx, order, models.StatusPaid)
	if err != nil {
		return "", err
	}
	if !changed {
		if current.Status == models.StatusPaid {
			log.Info("duplicate approval ignored")
			return OutcomeDuplicate, nil
		}
		log.Warn("approval for order that cannot be paid", zap.String("status", string(current.Status)))
		return OutcomeIgnored, nil
	}

	log.Info("order paid")
	r.notifier.OrderPaid(*current)
	return OutcomePaid, nil
}

func (r *Reconciler) fail(ctx context.Context, log *zap.Logger, order *models.Order, outcome Outcome) (Outcome, error) {
	current, changed, err := r.orders.applyGatewayStatus(ctx, order, models.StatusFailed)
	if err != nil {
		return "", err
	}
	if !changed {
		log.Info("failure callback left order unchanged", zap.String("status", string(current.Status)))
		if current.Status == models.StatusFailed {
			return OutcomeDuplicate, nil
		}
		return OutcomeIgnored, nil
	}
	log.Info("order marked failed", zap.String("reason", string(outcome)))
	return outcome, nil
}
