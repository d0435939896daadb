package orders

import (
	"context"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"storefront/internal/models"
)

type memoryRepo struct {
	mu      sync.Mutex
	orders  map[primitive.ObjectID]*models.Order
	taken   map[string]bool
	checked []string
	updates int
	// collide makes the first n code checks report the code as taken.
	collide int
	// interleave runs once inside the next UpdateStatus, before the status
	// guard, standing in for a concurrent writer.
	interleave func(o *models.Order)
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		orders: map[primitive.ObjectID]*models.Order{},
		taken:  map[string]bool{},
	}
}

func cloneOrder(o *models.Order) *models.Order {
	c := *o
	c.Items = append([]models.OrderItem(nil), o.Items...)
	c.StatusHistory = append([]models.StatusChange(nil), o.StatusHistory...)
	return &c
}

func (r *memoryRepo) CodeExists(_ context.Context, code string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checked = append(r.checked, code)
	if len(r.checked) <= r.collide {
		return true, nil
	}
	return r.taken[code], nil
}

func (r *memoryRepo) Insert(_ context.Context, order *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.taken[order.UUID] {
		return ErrDuplicateCode
	}
	if order.ID.IsZero() {
		order.ID = primitive.NewObjectID()
	}
	r.orders[order.ID] = cloneOrder(order)
	r.taken[order.UUID] = true
	return nil
}

func (r *memoryRepo) FindByID(_ context.Context, id primitive.ObjectID) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	return cloneOrder(o), nil
}

func (r *memoryRepo) FindByUUID(_ context.Context, uuid string) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.orders {
		if o.UUID == uuid {
			return cloneOrder(o), nil
		}
	}
	return nil, ErrOrderNotFound
}

func (r *memoryRepo) UpdateStatus(_ context.Context, id primitive.ObjectID, from []models.OrderStatus, change models.StatusChange) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	if r.interleave != nil {
		interleave := r.interleave
		r.interleave = nil
		interleave(o)
	}
	if !contains(from, o.Status) {
		return nil, ErrStatusConflict
	}
	o.Status = change.To
	o.StatusHistory = append(o.StatusHistory, change)
	o.UpdatedAt = change.At
	r.updates++
	return cloneOrder(o), nil
}

func (r *memoryRepo) List(_ context.Context, filter ListFilter) ([]models.Order, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Order, 0)
	for _, o := range r.orders {
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		if filter.UUID != "" && o.UUID != filter.UUID {
			continue
		}
		out = append(out, *cloneOrder(o))
	}
	return out, int64(len(out)), nil
}

func (r *memoryRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.orders)
}

type fakeCatalog struct {
	products map[primitive.ObjectID]models.Product
	calls    int
	lastIDs  []primitive.ObjectID
}

func newFakeCatalog(products ...models.Product) *fakeCatalog {
	c := &fakeCatalog{products: map[primitive.ObjectID]models.Product{}}
	for _, p := range products {
		c.products[p.ID] = p
	}
	return c
}

func (c *fakeCatalog) ProductsByIDs(_ context.Context, ids []primitive.ObjectID) ([]models.Product, error) {
	c.calls++
	c.lastIDs = ids
	out := make([]models.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := c.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

type fakeSettings struct {
	rules models.DeliverySettings
}

func defaultSettings() fakeSettings {
	return fakeSettings{rules: models.Settings{
		DeliveryTbilisiPrice:    10,
		DeliveryTbilisiFreeOver: 150,
		DeliveryRegionPrice:     15,
		DeliveryRegionFreeOver:  300,
	}.Delivery()}
}

func (s fakeSettings) DeliverySettings(context.Context) (models.DeliverySettings, error) {
	return s.rules, nil
}

type statusChange struct {
	order    models.Order
	from, to models.OrderStatus
}

type recordingNotifier struct {
	mu      sync.Mutex
	paid    []models.Order
	changes []statusChange
}

func (n *recordingNotifier) OrderPaid(order models.Order) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.paid = append(n.paid, order)
}

func (n *recordingNotifier) OrderStatusChanged(order models.Order, from, to models.OrderStatus) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.changes = append(n.changes, statusChange{order: order, from: from, to: to})
}

func (n *recordingNotifier) paidCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.paid)
}

func (n *recordingNotifier) changeCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.changes)
}

type fixture struct {
	repo     *memoryRepo
	catalog  *fakeCatalog
	notifier *recordingNotifier
	service  *Service
}

func newFixture(products ...models.Product) *fixture {
	repo := newMemoryRepo()
	catalog := newFakeCatalog(products...)
	notifier := &recordingNotifier{}
	service := NewService(Config{CodeMaxAttempts: 10}, repo, catalog, defaultSettings(), notifier, zap.NewNop())
	return &fixture{repo: repo, catalog: catalog, notifier: notifier, service: service}
}

func product(price float64) models.Product {
	return models.Product{
		ID:       primitive.NewObjectID(),
		Name:     models.LocalizedText{KA: "ბურღი", EN: "Drill"},
		Image:    "/uploads/drill.png",
		FinaCode: "F-100",
		Price:    price,
	}
}

func customer() CustomerInfo {
	return CustomerInfo{
		Name:       "John",
		Surname:    "Doe",
		Email:      "john@example.com",
		PersonalID: "01017012345",
		Phone:      "577955582",
		Address:    "Tbilisi, Ksani st. 36",
		Locale:     models.LocaleEN,
	}
}
