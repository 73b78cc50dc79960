package userstore_test

import (
	"errors"
	"testing"
	"time"

	userstore "github.com/dalemusser/studyhub/internal/app/store/users"
	"github.com/dalemusser/studyhub/internal/app/system/indexes"
	"github.com/dalemusser/studyhub/internal/domain/models"
	"github.com/dalemusser/studyhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func newStudent(email, nationalID string) models.User {
	return models.User{
		FullName:   "Ada Lovelace",
		Email:      email,
		NationalID: nationalID,
		Role:       models.RoleStudent,
	}
}

func TestStore_Create_DefaultsToPending(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, err := store.Create(ctx, newStudent("  Ada@Example.com ", "12345-1234567-1"))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if created.ID == primitive.NilObjectID {
		t.Error("expected ID to be assigned")
	}
	if created.Email != "Ada@Example.com" {
		t.Errorf("Email = %q, want trimmed", created.Email)
	}
	if created.EmailCI != "ada@example.com" {
		t.Errorf("EmailCI = %q", created.EmailCI)
	}
	if created.Status != models.StatusPending {
		t.Errorf("Status = %q, want Pending", created.Status)
	}
	if created.CreatedAt.IsZero() || created.UpdatedAt.IsZero() {
		t.Error("expected timestamps to be set")
	}

	got, err := store.GetByEmail(ctx, "ADA@example.COM")
	if err != nil {
		t.Fatalf("GetByEmail: %v", err)
	}
	if got.ID != created.ID {
		t.Error("GetByEmail returned a different user")
	}
}

func TestStore_Create_Duplicates(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db, nil); err != nil {
		t.Fatalf("EnsureAll: %v", err)
	}
	store := userstore.New(db)

	if _, err := store.Create(ctx, newStudent("a@x.com", "12345-1234567-1")); err != nil {
		t.Fatalf("first Create: %v", err)
	}

	_, err := store.Create(ctx, newStudent("A@X.com", "99999-1234567-1"))
	if !errors.Is(err, userstore.ErrDuplicateEmail) {
		t.Errorf("duplicate email err = %v, want ErrDuplicateEmail", err)
	}

	_, err = store.Create(ctx, newStudent("b@x.com", "12345-1234567-1"))
	if !errors.Is(err, userstore.ErrDuplicateNationalID) {
		t.Errorf("duplicate national id err = %v, want ErrDuplicateNationalID", err)
	}

	exists, err := store.EmailExists(ctx, "a@X.COM")
	if err != nil || !exists {
		t.Errorf("EmailExists = %v, %v; want true", exists, err)
	}
	exists, err = store.NationalIDExists(ctx, "00000-0000000-0")
	if err != nil || exists {
		t.Errorf("NationalIDExists = %v, %v; want false", exists, err)
	}
}

func TestStore_SetStatusAndProfile(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := fixtures.CreatePendingStudent(ctx, "Pat Pending", "pat@x.com")

	if err := store.SetStatus(ctx, u.ID, models.StatusActive, true); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	err := store.UpdateProfile(ctx, u.ID, userstore.ProfileUpdate{
		FullName: "Pat Active",
		Profile:  models.Profile{Phone: "555 1234", Address: "2 Road", Postcode: "999", Country: "X"},
	})
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}

	got, err := store.GetByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if !got.CanWrite() {
		t.Error("user should be able to write after activation")
	}
	if got.FullName != "Pat Active" || got.FullNameCI != "pat active" {
		t.Errorf("name = %q / %q", got.FullName, got.FullNameCI)
	}
	if got.Profile.Age != u.Profile.Age {
		t.Errorf("zero age in update should keep %d, got %d", u.Profile.Age, got.Profile.Age)
	}

	if err := store.SetStatus(ctx, primitive.NewObjectID(), models.StatusBanned, false); !errors.Is(err, mongo.ErrNoDocuments) {
		t.Errorf("SetStatus on missing user err = %v, want ErrNoDocuments", err)
	}
}

func TestStore_ListAndCounts(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fixtures.CreateAdmin(ctx, "Admin", "admin@x.com")
	fixtures.CreateStudent(ctx, "Bob Active", "bob@x.com")
	fixtures.CreatePendingStudent(ctx, "Bella Pending", "bella@x.com")
	fixtures.CreatePendingStudent(ctx, "Carl (Pending)", "carl@x.com")

	pending, err := store.List(ctx, userstore.ListFilter{Role: models.RoleStudent, Status: models.StatusPending})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("pending = %d, want 2", len(pending))
	}
	if pending[0].PasswordHash != "" {
		t.Error("List must not return password hashes")
	}

	b, err := store.List(ctx, userstore.ListFilter{Search: "B"})
	if err != nil {
		t.Fatalf("List search: %v", err)
	}
	if len(b) != 2 {
		t.Errorf("search B = %d results, want 2", len(b))
	}

	// regex metacharacters are matched literally
	paren, err := store.List(ctx, userstore.ListFilter{Search: "carl ("})
	if err != nil {
		t.Fatalf("List paren: %v", err)
	}
	if len(paren) != 1 {
		t.Errorf("search with paren = %d results, want 1", len(paren))
	}

	counts, err := store.CountByStatus(ctx, "")
	if err != nil {
		t.Fatalf("CountByStatus: %v", err)
	}
	if counts[models.StatusActive] != 2 || counts[models.StatusPending] != 2 {
		t.Errorf("counts = %v", counts)
	}
	students, err := store.CountByStatus(ctx, models.RoleStudent)
	if err != nil {
		t.Fatalf("CountByStatus(student): %v", err)
	}
	if students[models.StatusActive] != 1 {
		t.Errorf("active students = %d, want 1", students[models.StatusActive])
	}

	n, err := store.CountCreatedBetween(ctx, time.Now().Add(-time.Hour), time.Now().Add(time.Hour))
	if err != nil || n != 4 {
		t.Errorf("CountCreatedBetween = %d, %v; want 4", n, err)
	}
}

func TestFetcher_FetchUser(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := fixtures.CreatePendingStudent(ctx, "Pat", "pat@x.com")
	f := userstore.NewFetcher(db)

	su := f.FetchUser(ctx, u.ID.Hex())
	if su == nil {
		t.Fatal("expected user")
	}
	if su.Status != models.StatusPending || su.CanWrite() {
		t.Errorf("pending user should not write: %+v", su)
	}
	if f.FetchUser(ctx, primitive.NewObjectID().Hex()) != nil {
		t.Error("missing user should return nil")
	}
	if f.FetchUser(ctx, "not-an-id") != nil {
		t.Error("bad id should return nil")
	}
}
