package database

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"storefront/internal/models"
)

// CatalogStore reads products for order pricing. It never writes.
type CatalogStore struct {
	coll *mongo.Collection
}

func NewCatalogStore(db *mongo.Database) *CatalogStore {
	return &CatalogStore{coll: db.Collection(productsCollection)}
}

func (s *CatalogStore) ProductsByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Product, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	projection := bson.M{"name": 1, "code": 1, "finaCode": 1, "image": 1, "price": 1, "saleEnabled": 1, "salePrice": 1, "isDeleted": 1}
	cursor, err := s.coll.Find(ctx, liveProductsFilter(ids), options.Find().SetProjection(projection))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	products := make([]models.Product, 0, len(ids))
	if err := cursor.All(ctx, &products); err != nil {
		return nil, err
	}
	return products, nil
}

func liveProductsFilter(ids []primitive.ObjectID) bson.M {
	return bson.M{
		"_id":       bson.M{"$in": ids},
		"isDeleted": bson.M{"$ne": true},
	}
}
