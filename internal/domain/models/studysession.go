// internal/domain/models/studysession.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// StudySession is a scheduled meeting of a group.
type StudySession struct {
	ID          primitive.ObjectID `bson:"_id" json:"id"`
	GroupID     primitive.ObjectID `bson:"group_id" json:"group_id"`
	Title       string             `bson:"title" json:"title"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	StartsAt    time.Time          `bson:"starts_at" json:"starts_at"`
	MeetingLink string             `bson:"meeting_link,omitempty" json:"meeting_link,omitempty"`
	CreatedBy   primitive.ObjectID `bson:"created_by" json:"created_by"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
}

// SessionReminder is a user's opt-in to be notified before a session.
// Exactly one document per (session_id, user_id).
type SessionReminder struct {
	ID        primitive.ObjectID `bson:"_id" json:"id"`
	SessionID primitive.ObjectID `bson:"session_id" json:"session_id"`
	GroupID   primitive.ObjectID `bson:"group_id" json:"group_id"`
	UserID    primitive.ObjectID `bson:"user_id" json:"user_id"`
	StartsAt  time.Time          `bson:"starts_at" json:"starts_at"` // copied from the session for due queries
	Enabled   bool               `bson:"enabled" json:"enabled"`
	Sent      bool               `bson:"sent" json:"sent"`
	SentAt    *time.Time         `bson:"sent_at,omitempty" json:"sent_at,omitempty"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}
