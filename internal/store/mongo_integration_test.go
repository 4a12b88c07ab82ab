package store

import (
	"context"
	"errors"
	"os"
	"testing"
)

// setupMongoTestStore opens a MongoDB store and clears test data. Set
// GITFORGED_TEST_MONGO_URI to run MongoDB tests, for example:
//
//	GITFORGED_TEST_MONGO_URI=mongodb://localhost:27017
func setupMongoTestStore(t *testing.T) *MongoStore {
	t.Helper()

	uri := os.Getenv("GITFORGED_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("Skipping MongoDB test: GITFORGED_TEST_MONGO_URI not set")
	}

	ctx := context.Background()
	s, err := OpenMongo(ctx, MongoConfig{URI: uri, Database: "gitforged_test"})
	if err != nil {
		t.Fatalf("Failed to open MongoDB: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})

	for _, coll := range []string{"users", "games", "quests"} {
		if err := s.client.Database("gitforged_test").Collection(coll).Drop(ctx); err != nil {
			t.Fatalf("Failed to drop collection %s: %v", coll, err)
		}
	}
	return s
}

func TestMongoQuestRoundTrip(t *testing.T) {
	s := setupMongoTestStore(t)
	ctx := context.Background()

	rec := &QuestRecord{
		Key:             "github:1234:IntroQuest",
		GameKey:         "github:1234",
		QuestName:       "IntroQuest",
		Version:         "1.2.0",
		CompletedStages: []string{"Start"},
		SerializedData:  `{"data":{},"stage_data":{}}`,
	}
	if err := s.PutQuest(ctx, rec); err != nil {
		t.Fatalf("PutQuest failed: %v", err)
	}

	got, err := s.GetQuest(ctx, rec.Key)
	if err != nil {
		t.Fatalf("GetQuest failed: %v", err)
	}
	if got.Version != "1.2.0" || len(got.CompletedStages) != 1 {
		t.Errorf("Unexpected quest record: %+v", got)
	}

	rec.Complete = true
	if err := s.PutQuest(ctx, rec); err != nil {
		t.Fatalf("PutQuest upsert failed: %v", err)
	}

	incomplete, err := s.IncompleteQuests(ctx)
	if err != nil {
		t.Fatalf("IncompleteQuests failed: %v", err)
	}
	if len(incomplete) != 0 {
		t.Errorf("Expected no incomplete quests, got %d", len(incomplete))
	}
}

func TestMongoUserLookup(t *testing.T) {
	s := setupMongoTestStore(t)
	ctx := context.Background()

	user := &UserRecord{Key: "github:1234", Source: "github", UserID: "1234", Handle: "testuser"}
	if err := s.PutUser(ctx, user); err != nil {
		t.Fatalf("PutUser failed: %v", err)
	}

	got, err := s.FindUserBySource(ctx, "github", "1234")
	if err != nil {
		t.Fatalf("FindUserBySource failed: %v", err)
	}
	if got.Handle != "testuser" {
		t.Errorf("Handle = %q, want %q", got.Handle, "testuser")
	}

	if _, err := s.GetGame(ctx, "github:missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}
