package database

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const (
	ordersCollection   = "orders"
	productsCollection = "products"
	settingsCollection = "settings"
	usersCollection    = "users"
)

func orderIndexModels() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			// Order codes are globally unique. Creation relies on this index
			// to detect a code collision that slipped past the existence check.
			Keys:    bson.D{{Key: "uuid", Value: 1}},
			Options: options.Index().
				SetName("uuid_unique").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{
					"uuid": bson.M{"$type": "string"},
				}),
		},
		{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("userId_createdAt"),
		},
		{
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("status_createdAt"),
		},
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetName("email_index"),
		},
	}
}

func EnsureOrderIndexes(db *mongo.Database, logger *zap.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	indexModels := orderIndexModels()
	logger.Info("creating order indexes", zap.Int("count", len(indexModels)))
	names, err := db.Collection(ordersCollection).Indexes().CreateMany(ctx, indexModels)
	if err != nil {
		logger.Error("order index error", zap.Error(err))
		return err
	}
	logger.Info("order indexes ready", zap.Strings("names", names))
	return nil
}

func EnsureSettingsIndexes(db *mongo.Database, logger *zap.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	keyIndex := mongo.IndexModel{
		Keys:    bson.D{{Key: "key", Value: 1}},
		Options: options.Index().SetName("key_unique").SetUnique(true),
	}

	if _, err := db.Collection(settingsCollection).Indexes().CreateOne(ctx, keyIndex); err != nil {
		logger.Error("settings index error", zap.Error(err))
		return err
	}
	logger.Info("settings key_unique index ready")
	return nil
}
