package downloadstore_test

import (
	"testing"
	"time"

	downloadstore "github.com/dalemusser/studyhub/internal/app/store/downloads"
	"github.com/dalemusser/studyhub/internal/domain/models"
	"github.com/dalemusser/studyhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_CountByCategoryBetween(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := downloadstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	gid, uid := primitive.NewObjectID(), primitive.NewObjectID()
	for _, c := range []string{models.MediaImage, models.MediaImage, models.MediaDocument} {
		if err := store.Record(ctx, models.Download{GroupID: gid, UserID: uid, MessageID: primitive.NewObjectID(), Category: c}); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}
	store.Record(ctx, models.Download{GroupID: gid, UserID: uid, Category: models.MediaVideo, CreatedAt: time.Now().Add(-72 * time.Hour)})

	counts, err := store.CountByCategoryBetween(ctx, time.Now().Add(-time.Hour), time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("CountByCategoryBetween: %v", err)
	}
	if counts[models.MediaImage] != 2 || counts[models.MediaDocument] != 1 || counts[models.MediaVideo] != 0 {
		t.Errorf("counts = %v", counts)
	}

	n, _ := store.DeleteByGroup(ctx, gid)
	if n != 4 {
		t.Errorf("DeleteByGroup = %d, want 4", n)
	}
}
