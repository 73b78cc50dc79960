// internal/domain/models/group.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// StudyGroup is a named study collective.
//
// NOTE:
//   - Members are not embedded on the group.
//     All membership is stored in the group_memberships collection.
//   - JoinCode is set when the group is created private. It is kept when
//     the group is later made public so that switching back restores it.
type StudyGroup struct {
	ID          primitive.ObjectID `bson:"_id" json:"id"`
	Name        string             `bson:"name" json:"name"`
	NameCI      string             `bson:"name_ci" json:"-"`
	Description string             `bson:"description" json:"description"`
	Subject     string             `bson:"subject" json:"subject"`
	IsPrivate   bool               `bson:"is_private" json:"is_private"`
	JoinCode    string             `bson:"join_code,omitempty" json:"-"`
	CreatedBy   primitive.ObjectID `bson:"created_by" json:"created_by"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
