// internal/domain/models/notification.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Notification is an in-app message for a single user.
// SourceKey identifies what produced it (e.g. "reminder:<id>") and is
// unique, which makes producers idempotent.
type Notification struct {
	ID        primitive.ObjectID  `bson:"_id" json:"id"`
	UserID    primitive.ObjectID  `bson:"user_id" json:"user_id"`
	GroupID   *primitive.ObjectID `bson:"group_id,omitempty" json:"group_id,omitempty"`
	Message   string              `bson:"message" json:"message"`
	SourceKey string              `bson:"source_key,omitempty" json:"-"`
	Read      bool                `bson:"read" json:"read"`
	CreatedAt time.Time           `bson:"created_at" json:"created_at"`
}
