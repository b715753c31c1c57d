package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Activity actions.
const (
	ActionCreated  = "created"
	ActionUpdated  = "updated"
	ActionDeleted  = "deleted"
	ActionExported = "exported"
)

// Activity is one character mutation recorded in MongoDB.
type Activity struct {
	ID            primitive.ObjectID `json:"id"             bson:"_id,omitempty"`
	UserID        int64              `json:"user_id"        bson:"user_id"`
	CharacterID   int64              `json:"character_id"   bson:"character_id"`
	CharacterName string             `json:"character_name" bson:"character_name"`
	Action        string             `json:"action"         bson:"action"`
	CreatedAt     time.Time          `json:"created_at"     bson:"created_at"`
}
