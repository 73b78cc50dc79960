package testutil

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dalemusser/studyhub/internal/app/system/txn"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// DefaultMongoURI is used when STUDYHUB_TEST_MONGO_URI is not set.
const DefaultMongoURI = "mongodb://localhost:27017"

var (
	clientOnce sync.Once
	client     *mongo.Client
	clientErr  error
)

func sharedClient() (*mongo.Client, error) {
	clientOnce.Do(func() {
		uri := os.Getenv("STUDYHUB_TEST_MONGO_URI")
		if uri == "" {
			uri = DefaultMongoURI
		}
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()

		c, err := mongo.Connect(ctx, options.Client().
			ApplyURI(uri).
			SetServerSelectionTimeout(2*time.Second))
		if err != nil {
			clientErr = err
			return
		}
		if err := c.Ping(ctx, readpref.Primary()); err != nil {
			_ = c.Disconnect(context.Background())
			clientErr = err
			return
		}
		client = c
	})
	return client, clientErr
}

// SetupTestDB returns a fresh, uniquely named database for the calling test.
// The test is skipped when MongoDB is unreachable, and the database is
// dropped when the test finishes.
func SetupTestDB(t *testing.T) *mongo.Database {
	t.Helper()

	c, err := sharedClient()
	if err != nil {
		t.Skipf("MongoDB not available: %v", err)
	}

	name := fmt.Sprintf("studyhub_test_%s_%d", sanitize(t.Name()), time.Now().UnixNano())
	if len(name) > 60 {
		name = name[len(name)-60:]
	}
	db := c.Database(name)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = db.Drop(ctx)
	})
	return db
}

// TestContext returns a context with a timeout suitable for one test.
func TestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}

// RequireTransactions skips the test unless the server supports
// multi-document transactions (replica set or sharded cluster).
func RequireTransactions(t *testing.T, db *mongo.Database) {
	t.Helper()

	ctx, cancel := TestContext()
	defer cancel()

	var hello bson.M
	err := db.Client().Database("admin").RunCommand(ctx, bson.D{{Key: "hello", Value: 1}}).Decode(&hello)
	if err != nil {
		t.Skipf("cannot determine topology: %v", err)
	}
	if _, ok := hello["setName"]; ok {
		return
	}
	if msg, _ := hello["msg"].(string); msg == "isdbgrid" {
		return
	}
	t.Skip("MongoDB is standalone; transactions unsupported")
}

// Runner returns a transaction runner for db that falls back to
// non-transactional execution on standalone servers.
func Runner(db *mongo.Database) *txn.Runner {
	return txn.New(db.Client(), nil)
}

func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		}
		return '_'
	}, s)
}
