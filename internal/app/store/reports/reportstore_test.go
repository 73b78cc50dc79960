package reportstore_test

import (
	"testing"

	reportstore "github.com/dalemusser/studyhub/internal/app/store/reports"
	"github.com/dalemusser/studyhub/internal/domain/models"
	"github.com/dalemusser/studyhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_CreateListDelete(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := reportstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	r, err := store.Create(ctx, models.Report{
		AdminID: primitive.NewObjectID(),
		Type:    models.ReportSystemUsage,
		Data:    bson.M{"users": int64(3)},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	list, err := store.List(ctx, 10)
	if err != nil || len(list) != 1 {
		t.Fatalf("List = %v, %v", list, err)
	}
	if list[0].Data != nil {
		t.Error("List should omit the data payload")
	}

	got, err := store.GetByID(ctx, r.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Data["users"] == nil {
		t.Error("GetByID should include data")
	}

	n, _ := store.Delete(ctx, r.ID)
	if n != 1 {
		t.Errorf("Delete = %d, want 1", n)
	}
}
