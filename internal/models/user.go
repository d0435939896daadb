package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is the slice of the user directory needed to address notifications.
type User struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email    string             `bson:"email" json:"email"`
	Name     string             `bson:"name" json:"name"`
	Surname  string             `bson:"surname" json:"surname"`
	IsActive bool               `bson:"isActive" json:"isActive"`
}
