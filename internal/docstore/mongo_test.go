package docstore

import (
	"context"
	"os"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// TestMongoStore_Conformance runs against a real server when MONGO_URI is
// set, e.g. mongodb://localhost:27017.
func TestMongoStore_Conformance(t *testing.T) {
	uri := os.Getenv("MONGO_URI")
	if uri == "" {
		t.Skip("MONGO_URI not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { _ = client.Disconnect(context.Background()) })
	if err := client.Ping(ctx, nil); err != nil {
		t.Fatalf("ping: %v", err)
	}

	db := client.Database("portfolio_test")
	coll := testCollection("mongo")
	t.Cleanup(func() { _ = db.Collection(coll).Drop(context.Background()) })

	s := NewMongoStore(db)
	if err := s.EnsureIndexes(ctx, coll); err != nil {
		t.Fatalf("indexes: %v", err)
	}
	runStoreConformance(t, s, coll)
}
