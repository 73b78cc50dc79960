package reminderstore_test

import (
	"testing"
	"time"

	reminderstore "github.com/dalemusser/studyhub/internal/app/store/reminders"
	"github.com/dalemusser/studyhub/internal/app/system/indexes"
	"github.com/dalemusser/studyhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_Toggle(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db, nil); err != nil {
		t.Fatalf("EnsureAll: %v", err)
	}
	store := reminderstore.New(db)
	fixtures := testutil.NewFixtures(t, db)

	uid := primitive.NewObjectID()
	sess := fixtures.CreateSession(ctx, primitive.NewObjectID(), uid, "s", time.Now().Add(time.Hour))

	rm, err := store.Toggle(ctx, sess, uid)
	if err != nil {
		t.Fatalf("Toggle: %v", err)
	}
	if !rm.Enabled || rm.Sent || rm.GroupID != sess.GroupID {
		t.Errorf("first toggle = %+v, want enabled and unsent", rm)
	}

	rm2, err := store.Toggle(ctx, sess, uid)
	if err != nil {
		t.Fatalf("second Toggle: %v", err)
	}
	if rm2.Enabled {
		t.Error("second toggle should disable")
	}
	if rm2.ID != rm.ID {
		t.Error("toggle must reuse the same document")
	}

	if n := fixtures.Count(ctx, "session_reminders", map[string]any{}); n != 1 {
		t.Errorf("reminder documents = %d, want 1", n)
	}
}

func TestStore_DueAndMarkSent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := reminderstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	now := time.Now().UTC()
	gid, uid := primitive.NewObjectID(), primitive.NewObjectID()
	soon := fixtures.CreateSession(ctx, gid, uid, "soon", now.Add(30*time.Minute))
	later := fixtures.CreateSession(ctx, gid, uid, "later", now.Add(3*time.Hour))
	gone := fixtures.CreateSession(ctx, gid, uid, "gone", now.Add(-time.Minute))

	due := fixtures.CreateReminder(ctx, soon, uid)
	fixtures.CreateReminder(ctx, later, uid)
	fixtures.CreateReminder(ctx, gone, uid)

	list, err := store.Due(ctx, now, time.Hour)
	if err != nil {
		t.Fatalf("Due: %v", err)
	}
	if len(list) != 1 || list[0].ID != due.ID {
		t.Fatalf("due = %+v", list)
	}

	ok, err := store.MarkSent(ctx, due.ID, now)
	if err != nil || !ok {
		t.Fatalf("MarkSent = %v, %v", ok, err)
	}
	ok, _ = store.MarkSent(ctx, due.ID, now)
	if ok {
		t.Error("second MarkSent should report false")
	}

	list, _ = store.Due(ctx, now, time.Hour)
	if len(list) != 0 {
		t.Errorf("due after send = %d, want 0", len(list))
	}

	enabled, err := store.EnabledFor(ctx, uid, []primitive.ObjectID{soon.ID, later.ID, primitive.NewObjectID()})
	if err != nil {
		t.Fatalf("EnabledFor: %v", err)
	}
	if !enabled[soon.ID] || !enabled[later.ID] || len(enabled) != 2 {
		t.Errorf("enabled = %v", enabled)
	}
}
