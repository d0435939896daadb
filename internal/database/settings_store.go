package database

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"storefront/internal/models"
)

type SettingsStore struct {
	coll *mongo.Collection
	now  func() time.Time
}

func NewSettingsStore(db *mongo.Database) *SettingsStore {
	return &SettingsStore{coll: db.Collection(settingsCollection), now: time.Now}
}

// DeliverySettings returns the delivery rules, creating the settings document
// with default rules the first time it is read.
func (s *SettingsStore) DeliverySettings(ctx context.Context) (models.DeliverySettings, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var settings models.Settings
	err := s.coll.FindOneAndUpdate(
		ctx,
		bson.M{"key": models.SettingsKey},
		bson.M{"$setOnInsert": defaultSettings(s.now().UTC())},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&settings)
	if err != nil {
		return nil, err
	}
	return settings.Delivery(), nil
}

func defaultSettings(now time.Time) bson.M {
	return bson.M{
		"deliveryTbilisiPrice":    models.DefaultTbilisiFee,
		"deliveryTbilisiFreeOver": models.DefaultTbilisiFreeOver,
		"deliveryRegionPrice":     models.DefaultRegionFee,
		"deliveryRegionFreeOver":  models.DefaultRegionFreeOver,
		"updatedAt":               now,
	}
}
