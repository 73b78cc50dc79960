// internal/domain/models/message.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// GroupMessage is a chat message posted to a group.
// The ObjectID gives messages a monotonic order used by polling clients.
type GroupMessage struct {
	ID             primitive.ObjectID `bson:"_id" json:"id"`
	GroupID        primitive.ObjectID `bson:"group_id" json:"group_id"`
	SenderID       primitive.ObjectID `bson:"sender_id" json:"sender_id"`
	Content        string             `bson:"content" json:"content"`
	IsAnnouncement bool               `bson:"is_announcement" json:"is_announcement"`
	MediaPath      string             `bson:"media_path,omitempty" json:"media_path,omitempty"`
	CreatedAt      time.Time          `bson:"created_at" json:"created_at"`
	EditedAt       *time.Time         `bson:"edited_at,omitempty" json:"edited_at,omitempty"`
}
