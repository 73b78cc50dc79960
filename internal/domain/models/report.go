// internal/domain/models/report.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Report types.
const (
	ReportUserActivity      = "user_activity"
	ReportGroupEngagement   = "group_engagement"
	ReportResourceDownloads = "resource_downloads"
	ReportSystemUsage       = "system_usage"
)

// ReportTypes is the set of report types an admin may generate.
var ReportTypes = []string{
	ReportUserActivity,
	ReportGroupEngagement,
	ReportResourceDownloads,
	ReportSystemUsage,
}

// Report is a persisted aggregate generated by an admin.
type Report struct {
	ID        primitive.ObjectID `bson:"_id" json:"id"`
	AdminID   primitive.ObjectID `bson:"admin_id" json:"admin_id"`
	Type      string             `bson:"type" json:"type"`
	StartDate time.Time          `bson:"start_date" json:"start_date"`
	EndDate   time.Time          `bson:"end_date" json:"end_date"`
	Data      bson.M             `bson:"data" json:"data"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}

// Download records one fetch of a message attachment.
type Download struct {
	ID        primitive.ObjectID `bson:"_id" json:"id"`
	MessageID primitive.ObjectID `bson:"message_id" json:"message_id"`
	GroupID   primitive.ObjectID `bson:"group_id" json:"group_id"`
	UserID    primitive.ObjectID `bson:"user_id" json:"user_id"`
	Category  string             `bson:"category" json:"category"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}
