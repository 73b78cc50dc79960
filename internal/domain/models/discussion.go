// internal/domain/models/discussion.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Discussion is a titled thread inside a group.
type Discussion struct {
	ID       primitive.ObjectID `bson:"_id" json:"id"`
	GroupID  primitive.ObjectID `bson:"group_id" json:"group_id"`
	UserID   primitive.ObjectID `bson:"user_id" json:"user_id"`
	Title    string             `bson:"title" json:"title"`
	Content  string             `bson:"content" json:"content"` // markdown
	IsPinned bool               `bson:"is_pinned" json:"is_pinned"`
	PostedAt time.Time          `bson:"posted_at" json:"posted_at"`
}

// Reply is a response inside a discussion. GroupID is denormalized so a
// group cascade can remove replies without walking discussions.
type Reply struct {
	ID           primitive.ObjectID `bson:"_id" json:"id"`
	DiscussionID primitive.ObjectID `bson:"discussion_id" json:"discussion_id"`
	GroupID      primitive.ObjectID `bson:"group_id" json:"group_id"`
	UserID       primitive.ObjectID `bson:"user_id" json:"user_id"`
	Content      string             `bson:"content" json:"content"` // markdown
	RepliedAt    time.Time          `bson:"replied_at" json:"replied_at"`
}
