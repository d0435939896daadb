package database

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"storefront/internal/orders"
)

const backfillAssignAttempts = 3

// CodeSource issues order codes no stored order uses yet.
type CodeSource interface {
	Generate(ctx context.Context) (string, error)
}

type codeBackfillStore interface {
	OrdersMissingCode(ctx context.Context) ([]primitive.ObjectID, error)
	AssignCode(ctx context.Context, id primitive.ObjectID, code string) (bool, error)
}

// missingCodeFilter matches orders created before codes existed.
func missingCodeFilter() bson.M {
	return bson.M{"$or": bson.A{
		bson.M{"uuid": bson.M{"$exists": false}},
		bson.M{"uuid": nil},
		bson.M{"uuid": ""},
	}}
}

func (s *OrderStore) OrdersMissingCode(ctx context.Context) ([]primitive.ObjectID, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	cursor, err := s.coll.Find(ctx, missingCodeFilter(), options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	ids := make([]primitive.ObjectID, 0, len(docs))
	for _, doc := range docs {
		ids = append(ids, doc.ID)
	}
	return ids, nil
}

// AssignCode sets code on an order that still has none. It reports false when
// another process filled it first.
func (s *OrderStore) AssignCode(ctx context.Context, id primitive.ObjectID, code string) (bool, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	filter := missingCodeFilter()
	filter["_id"] = id
	res, err := s.coll.UpdateOne(ctx, filter, bson.M{"$set": bson.M{"uuid": code}})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, orders.ErrDuplicateCode
		}
		return false, err
	}
	return res.ModifiedCount == 1, nil
}

// BackfillOrderCodes gives every order without a code a fresh one. It must
// run before the unique code index is built.
func BackfillOrderCodes(ctx context.Context, store codeBackfillStore, codes CodeSource, logger *zap.Logger) (int, error) {
	log := logger.Named("backfill")

	ids, err := store.OrdersMissingCode(ctx)
	if err != nil {
		return 0, fmt.Errorf("find orders without code: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	assigned := 0
	for _, id := range ids {
		ok, err := assignOne(ctx, store, codes, id)
		if err != nil {
			return assigned, fmt.Errorf("assign code to order %s: %w", id.Hex(), err)
		}
		if ok {
			assigned++
		}
	}

	log.Info("order codes backfilled", zap.Int("found", len(ids)), zap.Int("assigned", assigned))
	return assigned, nil
}

func assignOne(ctx context.Context, store codeBackfillStore, codes CodeSource, id primitive.ObjectID) (bool, error) {
	for attempt := 0; attempt < backfillAssignAttempts; attempt++ {
		code, err := codes.Generate(ctx)
		if err != nil {
			return false, err
		}
		ok, err := store.AssignCode(ctx, id, code)
		if errors.Is(err, orders.ErrDuplicateCode) {
			continue
		}
		return ok, err
	}
	return false, orders.ErrDuplicateCode
}
