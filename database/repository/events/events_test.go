package eventsRepo

import (
	"context"
	"os"
	"testing"
	"time"

	"rallyrent/database"
	"rallyrent/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

func TestClaimUpsertNeverInsertsDirectly(t *testing.T) {
	at := time.Date(2026, 6, 1, 19, 0, 0, 0, time.UTC)
	filter, update := claimUpsert("stripe:evt_1", "stripe", at)

	if filter["key"] != "stripe:evt_1" || len(filter) != 1 {
		t.Fatalf("filter = %v", filter)
	}
	if len(update) != 1 {
		t.Fatalf("update has %d operators, want only $setOnInsert: %v", len(update), update)
	}
	doc, ok := update["$setOnInsert"].(models.ProcessedEvent)
	if !ok {
		t.Fatalf("$setOnInsert = %T", update["$setOnInsert"])
	}
	if doc.Key != "stripe:evt_1" || doc.Kind != "stripe" || !doc.ProcessedAt.Equal(at) {
		t.Fatalf("inserted doc = %+v", doc)
	}
}

// Needs a replica set, e.g. RALLYRENT_TEST_MONGO_URI=mongodb://localhost:27017/?replicaSet=rs0.
func TestRedeliveredKeyCommitsInsideTransaction(t *testing.T) {
	uri := os.Getenv("RALLYRENT_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("RALLYRENT_TEST_MONGO_URI not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := database.Connect(ctx, uri, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	defer client.Disconnect(ctx)

	db := client.Database("rallyrent_test_" + uuid.NewString()[:8])
	defer db.Drop(ctx)

	repo, err := NewMongoEventRepo(db)
	if err != nil {
		t.Fatal(err)
	}
	tx := database.NewMongoTransactor(client)

	claim := func() bool {
		var fresh bool
		err := tx.WithTransaction(ctx, func(ctx context.Context) error {
			var err error
			fresh, err = repo.Claim(ctx, "intake:ext-1:created", "intake")
			return err
		})
		if err != nil {
			t.Fatalf("transaction: %v", err)
		}
		return fresh
	}

	if !claim() {
		t.Fatal("first delivery not fresh")
	}
	if claim() {
		t.Fatal("redelivery reported fresh")
	}
	n, err := db.Collection("processed_events").CountDocuments(ctx, bson.M{"key": "intake:ext-1:created"})
	if err != nil || n != 1 {
		t.Fatalf("stored keys = %d, %v", n, err)
	}
}
