package orders

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"storefront/internal/models"
)

const (
	maxTransitionAttempts = 3
	defaultPageLimit      = 10
	maxPageLimit          = 100
)

type Config struct {
	// CodeMaxAttempts bounds order code regeneration on collision.
	CodeMaxAttempts int
}

type CustomerInfo struct {
	Name       string
	Surname    string
	Email      string
	PersonalID string
	Phone      string
	Address    string
	Locale     models.Locale
}

type CreateInput struct {
	Customer CustomerInfo
	Zone     models.DeliveryZone
	Items    []ItemRequest
	UserID   *primitive.ObjectID
}

type ListResult struct {
	Orders []models.Order `json:"data"`
	Total  int64          `json:"total"`
	Page   int64          `json:"page"`
	Limit  int64          `json:"limit"`
	Pages  int64          `json:"pages"`
}

// Service owns the order aggregate: creation and every status change.
type Service struct {
	repo      Repository
	snapshots *Snapshotter
	delivery  *DeliveryPolicy
	codes     *CodeGenerator
	notifier  Notifier
	logger    *zap.Logger
	now       func() time.Time
	maxInsert int
}

func NewService(cfg Config, repo Repository, catalog Catalog, settings SettingsReader, notifier Notifier, logger *zap.Logger) *Service {
	codes := NewCodeGenerator(repo, cfg.CodeMaxAttempts)
	return &Service{
		repo:      repo,
		snapshots: NewSnapshotter(catalog),
		delivery:  NewDeliveryPolicy(settings),
		codes:     codes,
		notifier:  notifier,
		logger:    logger.Named("orders"),
		now:       time.Now,
		maxInsert: codes.maxAttempts,
	}
}

// Create prices the requested items and persists a pending order. Nothing is
// written unless every product resolves.
func (s *Service) Create(ctx context.Context, in CreateInput) (*models.Order, error) {
	if in.Zone != models.ZoneTbilisi && in.Zone != models.ZoneRegion {
		return nil, validationf("invalid deliveryType: %s", in.Zone)
	}

	items, subtotal, err := s.snapshots.Resolve(ctx, in.Items)
	if err != nil {
		return nil, err
	}

	fee, err := s.delivery.Quote(ctx, in.Zone, subtotal)
	if err != nil {
		return nil, err
	}
	subtotal, fee = models.RoundMoney(subtotal), models.RoundMoney(fee)
	total := subtotal.Add(fee)

	now := s.now().UTC()
	order := &models.Order{
		Locale:        models.NormalizeLocale(string(in.Customer.Locale)),
		Name:          strings.TrimSpace(in.Customer.Name),
		Surname:       strings.TrimSpace(in.Customer.Surname),
		Email:         strings.ToLower(strings.TrimSpace(in.Customer.Email)),
		PersonalID:    strings.TrimSpace(in.Customer.PersonalID),
		Phone:         strings.TrimSpace(in.Customer.Phone),
		Address:       strings.TrimSpace(in.Customer.Address),
		DeliveryZone:  in.Zone,
		DeliveryPrice: models.StoredAmount(fee),
		Subtotal:      models.StoredAmount(subtotal),
		Total:         models.StoredAmount(total),
		Status:        models.StatusPending,
		Items:         items,
		UserID:        in.UserID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	// The existence check in Generate narrows the window, the unique index
	// closes it.
	for attempt := 0; ; attempt++ {
		code, err := s.codes.Generate(ctx)
		if err != nil {
			return nil, err
		}
		order.UUID = code

		err = s.repo.Insert(ctx, order)
		if err == nil {
			break
		}
		if !errors.Is(err, ErrDuplicateCode) || attempt+1 >= s.maxInsert {
			return nil, fmt.Errorf("insert order: %w", err)
		}
		s.logger.Warn("order code taken at insert, regenerating", zap.String("uuid", code))
	}

	s.logger.Info("order created",
		zap.String("order_id", order.ID.Hex()),
		zap.String("uuid", order.UUID),
		zap.Float64("total", order.Total),
		zap.Bool("guest", order.UserID == nil),
	)
	return order, nil
}

// Get resolves an order by internal id or by its ORD- code.
func (s *Service) Get(ctx context.Context, ref string) (*models.Order, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, validationf("order id is required")
	}
	if id, err := primitive.ObjectIDFromHex(ref); err == nil {
		return s.repo.FindByID(ctx, id)
	}
	return s.repo.FindByUUID(ctx, strings.ToUpper(ref))
}

// PaymentTarget loads the order a payment link is requested for and checks
// that it can still be paid.
func (s *Service) PaymentTarget(ctx context.Context, ref string) (*models.Order, error) {
	order, err := s.Get(ctx, ref)
	if err != nil {
		return nil, err
	}
	if !Payable(order.Status) {
		return nil, ErrOrderNotPayable
	}
	return order, nil
}

func (s *Service) List(ctx context.Context, filter ListFilter) (ListResult, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return ListResult{}, validationf("invalid status: %s", filter.Status)
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = defaultPageLimit
	}
	if filter.Limit > maxPageLimit {
		filter.Limit = maxPageLimit
	}
	filter.UUID = strings.ToUpper(strings.TrimSpace(filter.UUID))
	filter.Email = strings.ToLower(strings.TrimSpace(filter.Email))

	orders, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return ListResult{}, fmt.Errorf("list orders: %w", err)
	}
	return ListResult{
		Orders: orders,
		Total:  total,
		Page:   filter.Page,
		Limit:  filter.Limit,
		Pages:  int64(math.Ceil(float64(total) / float64(filter.Limit))),
	}, nil
}

// TransitionStatus applies an administrator status change. Asking for the
// current status is a no-op and notifies nobody.
func (s *Service) TransitionStatus(ctx context.Context, ref string, to models.OrderStatus) (*models.Order, error) {
	if !to.Valid() {
		return nil, validationf("invalid status: %s", to)
	}

	for attempt := 0; attempt < maxTransitionAttempts; attempt++ {
		order, err := s.Get(ctx, ref)
		if err != nil {
			return nil, err
		}
		if order.Status == to {
			return order, nil
		}
		if !CanTransition(order.Status, to) {
			return nil, &InvalidTransitionError{From: order.Status, To: to}
		}

		updated, err := s.repo.UpdateStatus(ctx, order.ID, []models.OrderStatus{order.Status}, s.change(order.Status, to, models.SourceAdmin))
		if errors.Is(err, ErrStatusConflict) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("update order status: %w", err)
		}

		s.logger.Info("order status changed",
			zap.String("order_id", updated.ID.Hex()),
			zap.String("from", string(order.Status)),
			zap.String("status", string(to)),
		)
		s.notifier.OrderStatusChanged(*updated, order.Status, to)
		return updated, nil
	}
	return nil, ErrStatusConflict
}

// applyGatewayStatus moves order to status on behalf of the payment gateway.
// changed is false when another delivery already moved the order or when the
// order is in a state the gateway may not touch. The returned order is then
// the current stored one.
func (s *Service) applyGatewayStatus(ctx context.Context, order *models.Order, to models.OrderStatus) (current *models.Order, changed bool, err error) {
	for attempt := 0; attempt < maxTransitionAttempts; attempt++ {
		if !contains(gatewaySources[to], order.Status) {
			return order, false, nil
		}

		updated, err := s.repo.UpdateStatus(ctx, order.ID, []models.OrderStatus{order.Status}, s.change(order.Status, to, models.SourceGateway))
		if errors.Is(err, ErrStatusConflict) {
			if order, err = s.repo.FindByID(ctx, order.ID); err != nil {
				return nil, false, err
			}
			continue
		}
		if err != nil {
			return nil, false, fmt.Errorf("update order status: %w", err)
		}
		return updated, true, nil
	}
	return order, false, ErrStatusConflict
}

func (s *Service) change(from, to models.OrderStatus, source string) models.StatusChange {
	return models.StatusChange{From: from, To: to, Source: source, At: s.now().UTC()}
}
