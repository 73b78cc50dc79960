// internal/app/system/validators/validators.go
package validators

import (
	"context"
	"errors"
	"strings"

	"github.com/dalemusser/studyhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Collections lists every collection the app writes. They are created up
// front because multi-document transactions cannot create collections on
// older servers.
var Collections = []string{
	"users",
	"groups",
	"group_memberships",
	"group_messages",
	"discussions",
	"discussion_replies",
	"study_sessions",
	"session_reminders",
	"notifications",
	"reports",
	"downloads",
	"audit_events",
}

// EnsureAll creates collections (if missing) and tries to attach JSON-Schema
// validators. On servers that don't support collMod/validators we log and
// skip.
func EnsureAll(ctx context.Context, db *mongo.Database, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	schemas := map[string]bson.M{
		"users":             usersSchema(),
		"groups":            groupsSchema(),
		"group_memberships": membershipsSchema(),
		"group_messages":    messagesSchema(),
		"session_reminders": remindersSchema(),
	}

	existing := map[string]bool{}
	if names, err := db.ListCollectionNames(ctx, bson.M{}); err == nil {
		for _, n := range names {
			existing[n] = true
		}
	}

	var problems []string
	for _, name := range Collections {
		if !existing[name] {
			if err := db.CreateCollection(ctx, name); err != nil && !isNamespaceExistsErr(err) {
				problems = append(problems, name+": "+err.Error())
				continue
			}
			log.Info("created collection", zap.String("collection", name))
		}
		schema, ok := schemas[name]
		if !ok {
			continue
		}
		if err := setValidator(ctx, db, name, schema); err != nil {
			if isNoSuchCommand(err) || isNotImplemented(err) {
				log.Info("validator skipped (unsupported)", zap.String("collection", name))
				continue
			}
			problems = append(problems, name+": "+err.Error())
		}
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

func setValidator(ctx context.Context, db *mongo.Database, name string, validator bson.M) error {
	cmd := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
		{Key: "validationLevel", Value: "moderate"},
		{Key: "validationAction", Value: "error"},
	}
	return db.RunCommand(ctx, cmd).Err()
}

/* ------------------------- error helpers ------------------------- */

func commandErr(err error, code int32, needles ...string) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == code {
		return true
	}
	s := strings.ToLower(err.Error())
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

func isNamespaceExistsErr(err error) bool {
	return commandErr(err, 48, "already exists", "namespace exists")
}

func isNoSuchCommand(err error) bool {
	return commandErr(err, 59, "no such command")
}

func isNotImplemented(err error) bool {
	return commandErr(err, 115, "not implemented", "not supported")
}

/* ------------------------- JSON-Schema docs ---------------------- */

var nonBlank = bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"}

func strEnum(vals ...string) bson.M {
	a := bson.A{}
	for _, v := range vals {
		a = append(a, v)
	}
	return bson.M{"enum": a}
}

func usersSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"full_name", "email", "email_ci", "password_hash", "role", "status", "is_active"},
			"properties": bson.M{
				"full_name":     nonBlank,
				"email":         nonBlank,
				"email_ci":      nonBlank,
				"password_hash": nonBlank,
				"role":          strEnum(models.RoleAdmin, models.RoleStudent),
				"status":        strEnum(models.StatusActive, models.StatusPending, models.StatusBanned),
				"is_active":     bson.M{"bsonType": "bool"},
			},
		},
	}
}

func groupsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"name", "name_ci", "is_private", "created_by"},
			"properties": bson.M{
				"name":       nonBlank,
				"name_ci":    nonBlank,
				"is_private": bson.M{"bsonType": "bool"},
				"join_code":  bson.M{"bsonType": "string"},
				"created_by": bson.M{"bsonType": "objectId"},
			},
		},
	}
}

func membershipsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"group_id", "user_id", "role"},
			"properties": bson.M{
				"group_id":  bson.M{"bsonType": "objectId"},
				"user_id":   bson.M{"bsonType": "objectId"},
				"role":      strEnum(models.MemberRoles...),
				"joined_at": bson.M{"bsonType": "date"},
			},
		},
	}
}

func messagesSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"group_id", "sender_id", "content", "is_announcement", "created_at"},
			"properties": bson.M{
				"group_id":        bson.M{"bsonType": "objectId"},
				"sender_id":       bson.M{"bsonType": "objectId"},
				"content":         bson.M{"bsonType": "string"},
				"is_announcement": bson.M{"bsonType": "bool"},
				"created_at":      bson.M{"bsonType": "date"},
			},
		},
	}
}

func remindersSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"session_id", "user_id", "enabled", "sent"},
			"properties": bson.M{
				"session_id": bson.M{"bsonType": "objectId"},
				"user_id":    bson.M{"bsonType": "objectId"},
				"enabled":    bson.M{"bsonType": "bool"},
				"sent":       bson.M{"bsonType": "bool"},
			},
		},
	}
}
