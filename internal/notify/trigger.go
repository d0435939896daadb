package notify

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"storefront/internal/metrics"
	"storefront/internal/models"
)

const defaultSendTimeout = 15 * time.Second

// Dispatcher delivers one order email.
type Dispatcher interface {
	SendOrderPaid(ctx context.Context, to string, locale models.Locale, order models.Order) error
	SendOrderStatusChanged(ctx context.Context, recipient string, locale models.Locale, order models.Order, from, to models.OrderStatus) error
}

// UserDirectory resolves the account an order was placed under.
type UserDirectory interface {
	UserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
}

// Trigger sends order emails in the background. Failures are logged and
// counted, never returned.
type Trigger struct {
	dispatcher Dispatcher
	users      UserDirectory
	metrics    *metrics.Metrics
	logger     *zap.Logger
	timeout    time.Duration
	wg         sync.WaitGroup
}

func NewTrigger(dispatcher Dispatcher, users UserDirectory, m *metrics.Metrics, logger *zap.Logger) *Trigger {
	return &Trigger{
		dispatcher: dispatcher,
		users:      users,
		metrics:    m,
		logger:     logger.Named("notify"),
		timeout:    defaultSendTimeout,
	}
}

func (t *Trigger) OrderPaid(order models.Order) {
	t.dispatch("paid", order, func(ctx context.Context, to string) error {
		return t.dispatcher.SendOrderPaid(ctx, to, order.Locale, order)
	})
}

func (t *Trigger) OrderStatusChanged(order models.Order, from, to models.OrderStatus) {
	t.dispatch("status_changed", order, func(ctx context.Context, recipient string) error {
		return t.dispatcher.SendOrderStatusChanged(ctx, recipient, order.Locale, order, from, to)
	})
}

// Wait blocks until every dispatched notification has finished.
func (t *Trigger) Wait() {
	t.wg.Wait()
}

func (t *Trigger) dispatch(kind string, order models.Order, send func(ctx context.Context, to string) error) {
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		log := t.logger.With(zap.String("kind", kind), zap.String("order_id", order.ID.Hex()), zap.String("uuid", order.UUID))

		defer func() {
			if r := recover(); r != nil {
				log.Error("notification panicked", zap.Any("panic", r))
				t.metrics.Notification(kind, "failed")
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
		defer cancel()

		to := t.recipient(ctx, order, log)
		if to == "" {
			log.Info("no recipient for order notification")
			t.metrics.Notification(kind, "skipped")
			return
		}

		if err := send(ctx, to); err != nil {
			log.Error("notification failed", zap.Error(err))
			t.metrics.Notification(kind, "failed")
			return
		}
		t.metrics.Notification(kind, "sent")
	}()
}

// recipient prefers the email given at checkout and falls back to the
// placing account.
func (t *Trigger) recipient(ctx context.Context, order models.Order, log *zap.Logger) string {
	if order.Email != "" {
		return order.Email
	}
	if order.UserID == nil || t.users == nil {
		return ""
	}
	user, err := t.users.UserByID(ctx, *order.UserID)
	if err != nil {
		log.Warn("recipient lookup failed", zap.Error(err))
		return ""
	}
	return user.Email
}
