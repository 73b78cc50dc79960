// internal/app/store/reminders/reminderstore.go
package reminderstore

import (
	"context"
	"time"

	"github.com/dalemusser/studyhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("session_reminders")}
}

// Toggle flips the user's reminder for a session, creating it enabled on
// first use. It returns the reminder as stored after the flip.
func (s *Store) Toggle(ctx context.Context, session models.StudySession, userID primitive.ObjectID) (models.SessionReminder, error) {
	now := time.Now().UTC()
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"enabled":    bson.M{"$not": bson.A{bson.M{"$ifNull": bson.A{"$enabled", false}}}},
			"group_id":   session.GroupID,
			"starts_at":  session.StartsAt.UTC(),
			"sent":       bson.M{"$ifNull": bson.A{"$sent", false}},
			"created_at": bson.M{"$ifNull": bson.A{"$created_at", now}},
		}}},
	}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var rm models.SessionReminder
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"session_id": session.ID, "user_id": userID},
		update, opts).Decode(&rm)
	return rm, err
}

// Get returns mongo.ErrNoDocuments when the user never opted in.
func (s *Store) Get(ctx context.Context, sessionID, userID primitive.ObjectID) (models.SessionReminder, error) {
	var rm models.SessionReminder
	err := s.c.FindOne(ctx, bson.M{"session_id": sessionID, "user_id": userID}).Decode(&rm)
	return rm, err
}

// EnabledFor returns the set of sessionIDs the user has an enabled reminder for.
func (s *Store) EnabledFor(ctx context.Context, userID primitive.ObjectID, sessionIDs []primitive.ObjectID) (map[primitive.ObjectID]bool, error) {
	out := make(map[primitive.ObjectID]bool, len(sessionIDs))
	if len(sessionIDs) == 0 {
		return out, nil
	}
	cur, err := s.c.Find(ctx, bson.M{
		"user_id":    userID,
		"session_id": bson.M{"$in": sessionIDs},
		"enabled":    true,
	}, options.Find().SetProjection(bson.M{"session_id": 1}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		var row struct {
			SessionID primitive.ObjectID `bson:"session_id"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		out[row.SessionID] = true
	}
	return out, cur.Err()
}

// Due returns enabled, unsent reminders whose session starts in
// [now, now+window], soonest first.
func (s *Store) Due(ctx context.Context, now time.Time, window time.Duration) ([]models.SessionReminder, error) {
	now = now.UTC()
	cur, err := s.c.Find(ctx, bson.M{
		"enabled":   true,
		"sent":      false,
		"starts_at": bson.M{"$gte": now, "$lte": now.Add(window)},
	}, options.Find().SetSort(bson.D{{Key: "starts_at", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.SessionReminder{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// MarkSent flags a reminder as sent. It reports false when the reminder was
// already sent (or no longer exists).
func (s *Store) MarkSent(ctx context.Context, id primitive.ObjectID, at time.Time) (bool, error) {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "sent": false},
		bson.M{"$set": bson.M{"sent": true, "sent_at": at.UTC()}})
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}

// DeleteBySession removes every reminder for a session.
func (s *Store) DeleteBySession(ctx context.Context, sessionID primitive.ObjectID) (int64, error) {
	return s.deleteMany(ctx, bson.M{"session_id": sessionID})
}

// DeleteByGroup removes every reminder for a group's sessions.
func (s *Store) DeleteByGroup(ctx context.Context, groupID primitive.ObjectID) (int64, error) {
	return s.deleteMany(ctx, bson.M{"group_id": groupID})
}

// DeleteByUser removes a user's reminders, optionally only within one group.
func (s *Store) DeleteByUser(ctx context.Context, userID primitive.ObjectID, groupID *primitive.ObjectID) (int64, error) {
	q := bson.M{"user_id": userID}
	if groupID != nil {
		q["group_id"] = *groupID
	}
	return s.deleteMany(ctx, q)
}

func (s *Store) deleteMany(ctx context.Context, q bson.M) (int64, error) {
	res, err := s.c.DeleteMany(ctx, q)
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
