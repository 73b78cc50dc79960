// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Account roles.
const (
	RoleAdmin   = "admin"
	RoleStudent = "student"
)

// Account statuses. Only Active accounts may perform write operations
// outside of their own profile.
const (
	StatusActive  = "Active"
	StatusPending = "Pending"
	StatusBanned  = "Banned"
)

// Statuses lists account statuses in display order.
var Statuses = []string{StatusPending, StatusActive, StatusBanned}

// IsValidStatus reports whether s is a known account status.
func IsValidStatus(s string) bool {
	for _, st := range Statuses {
		if st == s {
			return true
		}
	}
	return false
}

// User represents admins and students.
//
// NOTE:
//   - Group membership is not embedded on User.
//     Use the group_memberships collection to discover a user's groups.
//   - PasswordHash is never serialized to JSON.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	FullName     string             `bson:"full_name" json:"full_name"`
	FullNameCI   string             `bson:"full_name_ci" json:"-"` // lowercase, diacritics-stripped
	Email        string             `bson:"email" json:"email"`
	EmailCI      string             `bson:"email_ci" json:"-"`
	NationalID   string             `bson:"national_id" json:"national_id"`
	PasswordHash string             `bson:"password_hash" json:"-"`
	Role         string             `bson:"role" json:"role"`     // admin | student
	Status       string             `bson:"status" json:"status"` // Active | Pending | Banned
	IsActive     bool               `bson:"is_active" json:"is_active"`

	Profile Profile `bson:"profile" json:"profile"`

	LastLoginAt *time.Time `bson:"last_login_at,omitempty" json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `bson:"updated_at" json:"updated_at"`
}

// Profile holds the self-editable contact fields of a user.
type Profile struct {
	Phone    string `bson:"phone" json:"phone"`
	Age      int    `bson:"age" json:"age"`
	Address  string `bson:"address" json:"address"`
	Town     string `bson:"town,omitempty" json:"town,omitempty"`
	Region   string `bson:"region,omitempty" json:"region,omitempty"`
	Postcode string `bson:"postcode" json:"postcode"`
	Country  string `bson:"country" json:"country"`
}

// CanWrite reports whether the account may perform write operations
// other than editing its own profile.
func (u User) CanWrite() bool {
	return u.Status == StatusActive && u.IsActive
}
