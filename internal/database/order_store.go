package database

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"storefront/internal/models"
	"storefront/internal/orders"
)

// OrderStore is the MongoDB implementation of orders.Repository.
type OrderStore struct {
	coll *mongo.Collection
}

func NewOrderStore(db *mongo.Database) *OrderStore {
	return &OrderStore{coll: db.Collection(ordersCollection)}
}

func (s *OrderStore) CodeExists(ctx context.Context, code string) (bool, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	n, err := s.coll.CountDocuments(ctx, bson.M{"uuid": code}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("count order code: %w", err)
	}
	return n > 0, nil
}

func (s *OrderStore) Insert(ctx context.Context, order *models.Order) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	order.ID = primitive.NewObjectID()
	if _, err := s.coll.InsertOne(ctx, order); err != nil {
		order.ID = primitive.NilObjectID
		if mongo.IsDuplicateKeyError(err) {
			return orders.ErrDuplicateCode
		}
		return err
	}
	return nil
}

func (s *OrderStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

func (s *OrderStore) FindByUUID(ctx context.Context, uuid string) (*models.Order, error) {
	return s.findOne(ctx, bson.M{"uuid": uuid})
}

func (s *OrderStore) findOne(ctx context.Context, filter bson.M) (*models.Order, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var order models.Order
	err := s.coll.FindOne(ctx, filter).Decode(&order)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, orders.ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// UpdateStatus sets the new status and appends the audit entry in a single
// document update guarded on the current status.
func (s *OrderStore) UpdateStatus(ctx context.Context, id primitive.ObjectID, from []models.OrderStatus, change models.StatusChange) (*models.Order, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var order models.Order
	err := s.coll.FindOneAndUpdate(
		ctx,
		statusGuardFilter(id, from),
		statusUpdate(change),
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&order)
	if err == nil {
		return &order, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, err
	}

	n, err := s.coll.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, orders.ErrOrderNotFound
	}
	return nil, orders.ErrStatusConflict
}

func (s *OrderStore) List(ctx context.Context, filter orders.ListFilter) ([]models.Order, int64, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := listFilter(filter)
	total, err := s.coll.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip((filter.Page - 1) * filter.Limit).
		SetLimit(filter.Limit)

	cursor, err := s.coll.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	result := make([]models.Order, 0, filter.Limit)
	if err := cursor.All(ctx, &result); err != nil {
		return nil, 0, err
	}
	return result, total, nil
}

func statusGuardFilter(id primitive.ObjectID, from []models.OrderStatus) bson.M {
	return bson.M{
		"_id":    id,
		"status": bson.M{"$in": from},
	}
}

func statusUpdate(change models.StatusChange) bson.M {
	return bson.M{
		"$set": bson.M{
			"status":    change.To,
			"updatedAt": change.At,
		},
		"$push": bson.M{"statusHistory": change},
	}
}

func listFilter(filter orders.ListFilter) bson.M {
	query := bson.M{}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	if filter.UUID != "" {
		query["uuid"] = filter.UUID
	}
	if filter.Email != "" {
		query["email"] = filter.Email
	}
	if filter.UserID != nil {
		query["userId"] = *filter.UserID
	}
	return query
}
