// internal/app/store/users/userstore.go
package userstore

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/dalemusser/studyhub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrDuplicateEmail      = errors.New("an account with this email already exists")
	ErrDuplicateNationalID = errors.New("an account with this national ID already exists")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("users")}
}

// GetByID returns mongo.ErrNoDocuments when the user does not exist.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByEmail looks a user up by case-folded email.
func (s *Store) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"email_ci": text.Fold(strings.TrimSpace(email))}).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Create inserts u, filling ID, folded fields and timestamps.
// Unique violations map to ErrDuplicateEmail or ErrDuplicateNationalID.
func (s *Store) Create(ctx context.Context, u models.User) (models.User, error) {
	now := time.Now().UTC()
	u.ID = primitive.NewObjectID()
	u.Email = strings.TrimSpace(u.Email)
	u.EmailCI = text.Fold(u.Email)
	u.FullNameCI = text.Fold(u.FullName)
	if u.Status == "" {
		u.Status = models.StatusPending
	}
	u.CreatedAt = now
	u.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, u); err != nil {
		if wafflemongo.IsDup(err) {
			if strings.Contains(err.Error(), "national_id") {
				return models.User{}, ErrDuplicateNationalID
			}
			return models.User{}, ErrDuplicateEmail
		}
		return models.User{}, err
	}
	return u, nil
}

// EmailExists reports whether any account uses email.
func (s *Store) EmailExists(ctx context.Context, email string) (bool, error) {
	n, err := s.c.CountDocuments(ctx, bson.M{"email_ci": text.Fold(strings.TrimSpace(email))}, options.Count().SetLimit(1))
	return n > 0, err
}

// NationalIDExists reports whether any account uses nationalID.
func (s *Store) NationalIDExists(ctx context.Context, nationalID string) (bool, error) {
	n, err := s.c.CountDocuments(ctx, bson.M{"national_id": strings.TrimSpace(nationalID)}, options.Count().SetLimit(1))
	return n > 0, err
}

// ProfileUpdate holds the self-editable fields.
type ProfileUpdate struct {
	FullName string
	Profile  models.Profile
}

// UpdateProfile replaces the user's name and contact fields. Age is kept
// when the update carries zero.
func (s *Store) UpdateProfile(ctx context.Context, id primitive.ObjectID, upd ProfileUpdate) error {
	set := bson.M{
		"full_name":        upd.FullName,
		"full_name_ci":     text.Fold(upd.FullName),
		"profile.phone":    upd.Profile.Phone,
		"profile.address":  upd.Profile.Address,
		"profile.town":     upd.Profile.Town,
		"profile.region":   upd.Profile.Region,
		"profile.postcode": upd.Profile.Postcode,
		"profile.country":  upd.Profile.Country,
		"updated_at":       time.Now().UTC(),
	}
	if upd.Profile.Age > 0 {
		set["profile.age"] = upd.Profile.Age
	}
	res, err := s.c.UpdateByID(ctx, id, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// SetPassword stores a new password hash.
func (s *Store) SetPassword(ctx context.Context, id primitive.ObjectID, hash string) error {
	res, err := s.c.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"password_hash": hash,
		"updated_at":    time.Now().UTC(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// SetStatus changes the account status and active flag together.
func (s *Store) SetStatus(ctx context.Context, id primitive.ObjectID, status string, isActive bool) error {
	res, err := s.c.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"status":     status,
		"is_active":  isActive,
		"updated_at": time.Now().UTC(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// SetRole changes the account role.
func (s *Store) SetRole(ctx context.Context, id primitive.ObjectID, role string) error {
	res, err := s.c.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"role":       role,
		"updated_at": time.Now().UTC(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// TouchLogin records a successful sign-in.
func (s *Store) TouchLogin(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	_, err := s.c.UpdateByID(ctx, id, bson.M{"$set": bson.M{"last_login_at": at.UTC()}})
	return err
}

// Delete removes a user by ID. Returns the number of documents deleted (0 or 1).
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// ListFilter narrows List.
type ListFilter struct {
	Role   string
	Status string
	Search string // folded prefix match on name or email
	Limit  int64
}

// List returns users ordered by name.
func (s *Store) List(ctx context.Context, f ListFilter) ([]models.User, error) {
	q := bson.M{}
	if f.Role != "" {
		q["role"] = f.Role
	}
	if f.Status != "" {
		q["status"] = f.Status
	}
	if term := text.Fold(strings.TrimSpace(f.Search)); term != "" {
		prefix := bson.M{"$regex": "^" + regexp.QuoteMeta(term)}
		q["$or"] = bson.A{
			bson.M{"full_name_ci": prefix},
			bson.M{"email_ci": prefix},
		}
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "full_name_ci", Value: 1}, {Key: "_id", Value: 1}}).
		SetProjection(bson.M{"password_hash": 0})
	if f.Limit > 0 {
		opts.SetLimit(f.Limit)
	}

	cur, err := s.c.Find(ctx, q, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.User
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// NamesByID returns full names keyed by ID for the given users.
func (s *Store) NamesByID(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.User, error) {
	out := make(map[primitive.ObjectID]models.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	cur, err := s.c.Find(ctx, bson.M{"_id": bson.M{"$in": ids}},
		options.Find().SetProjection(bson.M{"full_name": 1, "role": 1, "email": 1}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		var u models.User
		if err := cur.Decode(&u); err != nil {
			return nil, err
		}
		out[u.ID] = u
	}
	return out, cur.Err()
}

// CountByStatus returns the number of users in each status, limited to
// one role unless role is "".
func (s *Store) CountByStatus(ctx context.Context, role string) (map[string]int64, error) {
	match := bson.M{}
	if role != "" {
		match["role"] = role
	}
	cur, err := s.c.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$group", Value: bson.M{"_id": "$status", "n": bson.M{"$sum": 1}}}},
	})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := map[string]int64{}
	for cur.Next(ctx) {
		var row struct {
			Status string `bson:"_id"`
			N      int64  `bson:"n"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		out[row.Status] = row.N
	}
	return out, cur.Err()
}

// CountCreatedBetween counts registrations in [start, end).
func (s *Store) CountCreatedBetween(ctx context.Context, start, end time.Time) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"created_at": bson.M{"$gte": start, "$lt": end}})
}
