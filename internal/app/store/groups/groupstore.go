// internal/app/store/groups/groupstore.go
package groupstore

import (
	"context"
	"errors"
	"regexp"
	"sort"
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

type Store struct {
	c *mongo.Collection
}

var ErrDuplicateGroupName = errors.New("a group with this name already exists")

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("groups")}
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.StudyGroup, error) {
	var g models.StudyGroup
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&g); err != nil {
		return models.StudyGroup{}, err
	}
	return g, nil
}

// Create inserts g. An ID already set by the caller is kept so that the
// owner membership can be written in the same transaction.
func (s *Store) Create(ctx context.Context, g models.StudyGroup) (models.StudyGroup, error) {
	now := time.Now().UTC()
	if g.ID.IsZero() {
		g.ID = primitive.NewObjectID()
	}
	g.NameCI = text.Fold(g.Name)
	g.CreatedAt = now
	g.UpdatedAt = now
	_, err := s.c.InsertOne(ctx, g)
	if err != nil {
		if wafflemongo.IsDup(err) {
			return models.StudyGroup{}, ErrDuplicateGroupName
		}
		return models.StudyGroup{}, err
	}
	return g, nil
}

// NameTaken reports whether another group already uses name
// (case-insensitive). excludeID may be NilObjectID.
func (s *Store) NameTaken(ctx context.Context, name string, excludeID primitive.ObjectID) (bool, error) {
	q := bson.M{"name_ci": text.Fold(strings.TrimSpace(name))}
	if !excludeID.IsZero() {
		q["_id"] = bson.M{"$ne": excludeID}
	}
	n, err := s.c.CountDocuments(ctx, q, options.Count().SetLimit(1))
	return n > 0, err
}

// InfoUpdate holds the editable descriptive fields of a group.
type InfoUpdate struct {
	Name        string
	Description string
	Subject     string
}

func (s *Store) UpdateInfo(ctx context.Context, id primitive.ObjectID, upd InfoUpdate) error {
	set := bson.M{
		"description": upd.Description,
		"subject":     upd.Subject,
		"updated_at":  time.Now().UTC(),
	}
	if strings.TrimSpace(upd.Name) != "" {
		set["name"] = upd.Name
		set["name_ci"] = text.Fold(upd.Name)
	}
	res, err := s.c.UpdateByID(ctx, id, bson.M{"$set": set})
	if err != nil {
		if wafflemongo.IsDup(err) {
			return ErrDuplicateGroupName
		}
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// SetPrivacy sets is_private. A non-empty joinCode is stored as well; an
// empty one leaves any existing code in place.
func (s *Store) SetPrivacy(ctx context.Context, id primitive.ObjectID, private bool, joinCode string) error {
	set := bson.M{
		"is_private": private,
		"updated_at": time.Now().UTC(),
	}
	if joinCode != "" {
		set["join_code"] = joinCode
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

// Delete removes a group by ID. Returns the number of documents deleted (0 or 1).
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// ListFilter narrows List.
type ListFilter struct {
	Subject string
	Search  string // folded prefix match on name
	IDs     []primitive.ObjectID
	Limit   int64
	Offset  int64
}

func (f ListFilter) toBSON() bson.M {
	q := bson.M{}
	if f.Subject != "" {
		q["subject"] = f.Subject
	}
	if term := text.Fold(strings.TrimSpace(f.Search)); term != "" {
		q["name_ci"] = bson.M{"$regex": "^" + regexp.QuoteMeta(term)}
	}
	if f.IDs != nil {
		q["_id"] = bson.M{"$in": f.IDs}
	}
	return q
}

// List returns groups ordered by name.
func (s *Store) List(ctx context.Context, f ListFilter) ([]models.StudyGroup, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name_ci", Value: 1}, {Key: "_id", Value: 1}})
	if f.Limit > 0 {
		opts.SetLimit(f.Limit)
	}
	if f.Offset > 0 {
		opts.SetSkip(f.Offset)
	}
	cur, err := s.c.Find(ctx, f.toBSON(), opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.StudyGroup
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Count returns the number of groups matching f (Limit and Offset ignored).
func (s *Store) Count(ctx context.Context, f ListFilter) (int64, error) {
	return s.c.CountDocuments(ctx, f.toBSON())
}

// Subjects returns the distinct subjects in use, sorted.
func (s *Store) Subjects(ctx context.Context) ([]string, error) {
	vals, err := s.c.Distinct(ctx, "subject", bson.M{"subject": bson.M{"$ne": ""}})
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		if str, ok := v.(string); ok {
			out = append(out, str)
		}
	}
	sort.Slice(out, func(i, j int) bool { return text.Fold(out[i]) < text.Fold(out[j]) })
	return out, nil
}
