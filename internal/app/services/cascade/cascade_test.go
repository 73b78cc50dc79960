package cascade_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dalemusser/studyhub/internal/app/services/cascade"
	"github.com/dalemusser/studyhub/internal/app/system/filestore"
	"github.com/dalemusser/studyhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func TestDeleteGroup_RemovesEveryDependent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx := testutil.NewFixtures(t, db)
	files := filestore.NewMemory(0)

	owner := fx.CreateStudent(ctx, "Owner", "owner@example.com")
	other := fx.CreateStudent(ctx, "Other", "other@example.com")
	g := fx.CreateGroup(ctx, "Algebra Study", owner.ID)
	keep := fx.CreateGroup(ctx, "Geometry Study", other.ID)
	fx.AddMember(ctx, g.ID, other.ID, "member")

	path, err := files.Save(ctx, "png", bytes.NewReader([]byte("img")))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	fx.CreateMessageWithMedia(ctx, g.ID, owner.ID, "with file", path)
	fx.CreateMessage(ctx, g.ID, owner.ID, "two")
	fx.CreateMessage(ctx, g.ID, other.ID, "three")
	d1 := fx.CreateDiscussion(ctx, g.ID, owner.ID, "First thread")
	d2 := fx.CreateDiscussion(ctx, g.ID, other.ID, "Second thread")
	for i := 0; i < 3; i++ {
		fx.CreateReply(ctx, d1, other.ID, "reply")
	}
	for i := 0; i < 2; i++ {
		fx.CreateReply(ctx, d2, owner.ID, "reply")
	}
	s := fx.CreateSession(ctx, g.ID, owner.ID, "Exam prep", time.Now().Add(2*time.Hour))
	fx.CreateReminder(ctx, s, other.ID)

	fx.CreateMessage(ctx, keep.ID, other.ID, "untouched")

	c := cascade.New(db, files, zap.NewNop())
	var res cascade.Result
	err = testutil.Runner(db).Run(ctx, func(ctx context.Context) error {
		var err error
		res, err = c.DeleteGroup(ctx, g.ID)
		return err
	})
	if err != nil {
		t.Fatalf("DeleteGroup: %v", err)
	}
	c.RemoveMedia(res.MediaPaths)

	if res.Messages != 3 || res.Discussions != 2 || res.Replies != 5 || res.Sessions != 1 || res.Memberships != 2 || res.Reminders != 1 {
		t.Errorf("unexpected counts: %+v", res)
	}

	for _, coll := range []string{"group_memberships", "group_messages", "discussions", "discussion_replies", "study_sessions", "session_reminders"} {
		if n := fx.Count(ctx, coll, bson.M{"group_id": g.ID}); n != 0 {
			t.Errorf("%s: %d rows remain for deleted group", coll, n)
		}
	}
	if n := fx.Count(ctx, "groups", bson.M{"_id": g.ID}); n != 0 {
		t.Error("group row still present")
	}
	if n := fx.Count(ctx, "group_messages", bson.M{"group_id": keep.ID}); n != 1 {
		t.Errorf("other group's messages = %d, want 1", n)
	}
	if files.Exists(path) {
		t.Error("media file should be removed after cascade")
	}
}

func TestDeleteGroup_MissingGroup(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	c := cascade.New(db, nil, nil)
	_, err := c.DeleteGroup(ctx, primitive.NewObjectID())
	if !errors.Is(err, mongo.ErrNoDocuments) {
		t.Fatalf("err = %v, want ErrNoDocuments", err)
	}
}

func TestDeleteGroup_RollsBackOnFailure(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	testutil.RequireTransactions(t, db)
	fx := testutil.NewFixtures(t, db)

	owner := fx.CreateStudent(ctx, "Owner", "owner@example.com")
	g := fx.CreateGroup(ctx, "Physics Study", owner.ID)
	fx.CreateMessage(ctx, g.ID, owner.ID, "hello")

	c := cascade.New(db, nil, zap.NewNop())
	boom := errors.New("boom")
	err := testutil.Runner(db).Strict().Run(ctx, func(ctx context.Context) error {
		if _, err := c.DeleteGroup(ctx, g.ID); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	if n := fx.Count(ctx, "groups", bson.M{"_id": g.ID}); n != 1 {
		t.Error("group should survive an aborted cascade")
	}
	if n := fx.Count(ctx, "group_messages", bson.M{"group_id": g.ID}); n != 1 {
		t.Error("messages should survive an aborted cascade")
	}
}
