package orders

import "storefront/internal/models"

// adminTransitions lists the statuses an administrator may move an order to
// from each status. Anything missing is rejected.
var adminTransitions = map[models.OrderStatus][]models.OrderStatus{
	models.StatusPending: {models.StatusPaid, models.StatusFailed, models.StatusCancelled},
	models.StatusPaid:    {models.StatusShipped, models.StatusCancelled},
	models.StatusShipped: {models.StatusDelivered, models.StatusCancelled},
}

// gatewaySources lists, per target status, the statuses a payment callback
// may move an order out of. A paid order is never touched by the gateway.
var gatewaySources = map[models.OrderStatus][]models.OrderStatus{
	models.StatusPaid:   {models.StatusPending, models.StatusFailed},
	models.StatusFailed: {models.StatusPending},
}

// CanTransition reports whether an administrator may move an order from one
// status to another.
func CanTransition(from, to models.OrderStatus) bool {
	return contains(adminTransitions[from], to)
}

// Payable reports whether a payment link may be issued for an order in status.
func Payable(status models.OrderStatus) bool {
	return contains(gatewaySources[models.StatusPaid], status)
}

func contains(list []models.OrderStatus, status models.OrderStatus) bool {
	for _, s := range list {
		if s == status {
			return true
		}
	}
	return false
}
