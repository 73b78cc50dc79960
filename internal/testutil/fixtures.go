package testutil

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/studyhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"
)

// TestPassword is the plaintext password of every fixture user.
const TestPassword = "longenough1"

var testHash = func() string {
	h, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	return string(h)
}()

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
// Calling it again on the same request adds to the existing params.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx, ok := r.Context().Value(chi.RouteCtxKey).(*chi.Context)
	if !ok || rctx == nil {
		rctx = chi.NewRouteContext()
		r = r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
	}
	rctx.URLParams.Add(key, value)
	return r
}

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
	n  int
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

func (f *Fixtures) insert(ctx context.Context, coll string, doc any) {
	f.t.Helper()
	if _, err := f.db.Collection(coll).InsertOne(ctx, doc); err != nil {
		f.t.Fatalf("failed to insert into %s: %v", coll, err)
	}
}

// CreateUser creates a user with the given role and status.
// The password is TestPassword.
func (f *Fixtures) CreateUser(ctx context.Context, fullName, email, role, status string) models.User {
	f.t.Helper()

	f.n++
	now := time.Now().UTC()
	u := models.User{
		ID:           primitive.NewObjectID(),
		FullName:     fullName,
		FullNameCI:   text.Fold(fullName),
		Email:        email,
		EmailCI:      text.Fold(email),
		NationalID:   nationalID(f.n),
		PasswordHash: testHash,
		Role:         role,
		Status:       status,
		IsActive:     status == models.StatusActive,
		Profile: models.Profile{
			Phone:    "+1 555 0100",
			Age:      20,
			Address:  "1 Test Street",
			Postcode: "12345",
			Country:  "Testland",
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	f.insert(ctx, "users", u)
	return u
}

// CreateStudent creates an active student.
func (f *Fixtures) CreateStudent(ctx context.Context, fullName, email string) models.User {
	f.t.Helper()
	return f.CreateUser(ctx, fullName, email, models.RoleStudent, models.StatusActive)
}

// CreatePendingStudent creates a student awaiting approval.
func (f *Fixtures) CreatePendingStudent(ctx context.Context, fullName, email string) models.User {
	f.t.Helper()
	return f.CreateUser(ctx, fullName, email, models.RoleStudent, models.StatusPending)
}

// CreateAdmin creates an active admin.
func (f *Fixtures) CreateAdmin(ctx context.Context, fullName, email string) models.User {
	f.t.Helper()
	return f.CreateUser(ctx, fullName, email, models.RoleAdmin, models.StatusActive)
}

// CreateGroup creates a public group owned by owner, including the owner
// membership row.
func (f *Fixtures) CreateGroup(ctx context.Context, name string, owner primitive.ObjectID) models.StudyGroup {
	f.t.Helper()
	return f.createGroup(ctx, name, owner, "")
}

// CreatePrivateGroup creates a private group with the given join code.
func (f *Fixtures) CreatePrivateGroup(ctx context.Context, name string, owner primitive.ObjectID, code string) models.StudyGroup {
	f.t.Helper()
	return f.createGroup(ctx, name, owner, code)
}

func (f *Fixtures) createGroup(ctx context.Context, name string, owner primitive.ObjectID, code string) models.StudyGroup {
	f.t.Helper()

	now := time.Now().UTC()
	g := models.StudyGroup{
		ID:          primitive.NewObjectID(),
		Name:        name,
		NameCI:      text.Fold(name),
		Description: "A group created for testing purposes.",
		Subject:     "Testing",
		IsPrivate:   code != "",
		JoinCode:    code,
		CreatedBy:   owner,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	f.insert(ctx, "groups", g)
	f.AddMember(ctx, g.ID, owner, models.MemberRoleOwner)
	return g
}

// AddMember adds userID to groupID with the given role.
func (f *Fixtures) AddMember(ctx context.Context, groupID, userID primitive.ObjectID, role string) models.GroupMembership {
	f.t.Helper()

	m := models.GroupMembership{
		ID:       primitive.NewObjectID(),
		GroupID:  groupID,
		UserID:   userID,
		Role:     role,
		JoinedAt: time.Now().UTC(),
	}
	f.insert(ctx, "group_memberships", m)
	return m
}

// CreateMessage posts a plain chat message.
func (f *Fixtures) CreateMessage(ctx context.Context, groupID, senderID primitive.ObjectID, content string) models.GroupMessage {
	f.t.Helper()
	return f.CreateMessageWithMedia(ctx, groupID, senderID, content, "")
}

// CreateMessageWithMedia posts a chat message that references mediaPath.
func (f *Fixtures) CreateMessageWithMedia(ctx context.Context, groupID, senderID primitive.ObjectID, content, mediaPath string) models.GroupMessage {
	f.t.Helper()

	m := models.GroupMessage{
		ID:        primitive.NewObjectID(),
		GroupID:   groupID,
		SenderID:  senderID,
		Content:   content,
		MediaPath: mediaPath,
		CreatedAt: time.Now().UTC(),
	}
	f.insert(ctx, "group_messages", m)
	return m
}

// CreateDiscussion starts a discussion thread.
func (f *Fixtures) CreateDiscussion(ctx context.Context, groupID, userID primitive.ObjectID, title string) models.Discussion {
	f.t.Helper()

	d := models.Discussion{
		ID:       primitive.NewObjectID(),
		GroupID:  groupID,
		UserID:   userID,
		Title:    title,
		Content:  "Discussion body for " + title,
		PostedAt: time.Now().UTC(),
	}
	f.insert(ctx, "discussions", d)
	return d
}

// CreateReply adds a reply to d.
func (f *Fixtures) CreateReply(ctx context.Context, d models.Discussion, userID primitive.ObjectID, content string) models.Reply {
	f.t.Helper()

	rp := models.Reply{
		ID:           primitive.NewObjectID(),
		DiscussionID: d.ID,
		GroupID:      d.GroupID,
		UserID:       userID,
		Content:      content,
		RepliedAt:    time.Now().UTC(),
	}
	f.insert(ctx, "discussion_replies", rp)
	return rp
}

// CreateSession schedules a study session at startsAt.
func (f *Fixtures) CreateSession(ctx context.Context, groupID, createdBy primitive.ObjectID, title string, startsAt time.Time) models.StudySession {
	f.t.Helper()

	s := models.StudySession{
		ID:        primitive.NewObjectID(),
		GroupID:   groupID,
		Title:     title,
		StartsAt:  startsAt.UTC(),
		CreatedBy: createdBy,
		CreatedAt: time.Now().UTC(),
	}
	f.insert(ctx, "study_sessions", s)
	return s
}

// CreateReminder opts userID into a reminder for s.
func (f *Fixtures) CreateReminder(ctx context.Context, s models.StudySession, userID primitive.ObjectID) models.SessionReminder {
	f.t.Helper()

	rm := models.SessionReminder{
		ID:        primitive.NewObjectID(),
		SessionID: s.ID,
		GroupID:   s.GroupID,
		UserID:    userID,
		StartsAt:  s.StartsAt,
		Enabled:   true,
		CreatedAt: time.Now().UTC(),
	}
	f.insert(ctx, "session_reminders", rm)
	return rm
}

// Count returns the number of documents in coll matching filter.
func (f *Fixtures) Count(ctx context.Context, coll string, filter any) int64 {
	f.t.Helper()
	n, err := f.db.Collection(coll).CountDocuments(ctx, filter)
	if err != nil {
		f.t.Fatalf("CountDocuments(%s): %v", coll, err)
	}
	return n
}

func nationalID(n int) string {
	s := []byte("10000-0000000-0")
	for i := len(s) - 3; i >= 6 && n > 0; i-- {
		s[i] = byte('0' + n%10)
		n /= 10
	}
	return string(s)
}
