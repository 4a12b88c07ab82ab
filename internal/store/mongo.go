package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore implements Store on MongoDB.
type MongoStore struct {
	client *mongo.Client
	users  *mongo.Collection
	games  *mongo.Collection
	quests *mongo.Collection
}

type mongoUser struct {
	Key    string    `bson:"_id"`
	Source string    `bson:"source"`
	UserID string    `bson:"user_id"`
	UID    string    `bson:"uid"`
	Name   string    `bson:"name"`
	Handle string    `bson:"handle"`
	Joined time.Time `bson:"joined"`
}

type mongoGame struct {
	Key       string    `bson:"_id"`
	UserKey   string    `bson:"user_key"`
	ForkURL   string    `bson:"fork_url"`
	PlayerID  int64     `bson:"player_id"`
	CreatedAt time.Time `bson:"created_at"`
}

type mongoQuest struct {
	Key             string    `bson:"_id"`
	GameKey         string    `bson:"game_key"`
	QuestName       string    `bson:"quest_name"`
	Version         string    `bson:"version"`
	CompletedStages []string  `bson:"completed_stages"`
	SerializedData  string    `bson:"data"`
	Complete        bool      `bson:"complete"`
	LastRun         time.Time `bson:"last_run"`
}

// OpenMongo connects to MongoDB and verifies the connection with a ping.
func OpenMongo(ctx context.Context, cfg MongoConfig) (*MongoStore, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	db := client.Database(cfg.Database)
	s := &MongoStore{
		client: client,
		users:  db.Collection("users"),
		games:  db.Collection("games"),
		quests: db.Collection("quests"),
	}

	indexes := []struct {
		coll *mongo.Collection
		keys bson.D
	}{
		{s.users, bson.D{{Key: "source", Value: 1}, {Key: "user_id", Value: 1}}},
		{s.quests, bson.D{{Key: "game_key", Value: 1}}},
		{s.quests, bson.D{{Key: "complete", Value: 1}}},
	}
	for _, idx := range indexes {
		_, err := idx.coll.Indexes().CreateOne(connectCtx, mongo.IndexModel{Keys: idx.keys})
		if err != nil {
			client.Disconnect(context.Background())
			return nil, fmt.Errorf("failed to create index: %w", err)
		}
	}

	return s, nil
}

// Close disconnects from MongoDB.
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func upsert(ctx context.Context, coll *mongo.Collection, key string, doc any) error {
	opts := options.Replace().SetUpsert(true)
	if _, err := coll.ReplaceOne(ctx, bson.M{"_id": key}, doc, opts); err != nil {
		return fmt.Errorf("failed to save record: %w", err)
	}
	return nil
}

// GetUser returns the user with the given key.
func (s *MongoStore) GetUser(ctx context.Context, key string) (*UserRecord, error) {
	return s.decodeUser(s.users.FindOne(ctx, bson.M{"_id": key}))
}

// FindUserBySource looks a user up by external identity.
func (s *MongoStore) FindUserBySource(ctx context.Context, source, userID string) (*UserRecord, error) {
	return s.decodeUser(s.users.FindOne(ctx, bson.M{"source": source, "user_id": userID}))
}

func (s *MongoStore) decodeUser(res *mongo.SingleResult) (*UserRecord, error) {
	var doc mongoUser
	err := res.Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return &UserRecord{
		Key:    doc.Key,
		Source: doc.Source,
		UserID: doc.UserID,
		UID:    doc.UID,
		Name:   doc.Name,
		Handle: doc.Handle,
		Joined: doc.Joined,
	}, nil
}

// PutUser inserts or updates a user.
func (s *MongoStore) PutUser(ctx context.Context, user *UserRecord) error {
	return upsert(ctx, s.users, user.Key, mongoUser{
		Key:    user.Key,
		Source: user.Source,
		UserID: user.UserID,
		UID:    user.UID,
		Name:   user.Name,
		Handle: user.Handle,
		Joined: user.Joined,
	})
}

// GetGame returns the game with the given key.
func (s *MongoStore) GetGame(ctx context.Context, key string) (*GameRecord, error) {
	var doc mongoGame
	err := s.games.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query game: %w", err)
	}
	return &GameRecord{
		Key:       doc.Key,
		UserKey:   doc.UserKey,
		ForkURL:   doc.ForkURL,
		PlayerID:  doc.PlayerID,
		CreatedAt: doc.CreatedAt,
	}, nil
}

// PutGame inserts or updates a game.
func (s *MongoStore) PutGame(ctx context.Context, g *GameRecord) error {
	return upsert(ctx, s.games, g.Key, mongoGame{
		Key:       g.Key,
		UserKey:   g.UserKey,
		ForkURL:   g.ForkURL,
		PlayerID:  g.PlayerID,
		CreatedAt: g.CreatedAt,
	})
}

// GetQuest returns the quest record with the given key.
func (s *MongoStore) GetQuest(ctx context.Context, key string) (*QuestRecord, error) {
	var doc mongoQuest
	err := s.quests.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query quest: %w", err)
	}
	return questFromMongo(&doc), nil
}

func questFromMongo(doc *mongoQuest) *QuestRecord {
	stages := doc.CompletedStages
	if stages == nil {
		stages = []string{}
	}
	return &QuestRecord{
		Key:             doc.Key,
		GameKey:         doc.GameKey,
		QuestName:       doc.QuestName,
		Version:         doc.Version,
		CompletedStages: stages,
		SerializedData:  doc.SerializedData,
		Complete:        doc.Complete,
		LastRun:         doc.LastRun,
	}
}

// PutQuest inserts or updates a quest record.
func (s *MongoStore) PutQuest(ctx context.Context, rec *QuestRecord) error {
	stages := rec.CompletedStages
	if stages == nil {
		stages = []string{}
	}
	return upsert(ctx, s.quests, rec.Key, mongoQuest{
		Key:             rec.Key,
		GameKey:         rec.GameKey,
		QuestName:       rec.QuestName,
		Version:         rec.Version,
		CompletedStages: stages,
		SerializedData:  rec.SerializedData,
		Complete:        rec.Complete,
		LastRun:         rec.LastRun,
	})
}

// DeleteQuest removes a quest record. Deleting a missing record is not an error.
func (s *MongoStore) DeleteQuest(ctx context.Context, key string) error {
	if _, err := s.quests.DeleteOne(ctx, bson.M{"_id": key}); err != nil {
		return fmt.Errorf("failed to delete quest: %w", err)
	}
	return nil
}

// IncompleteQuests returns every quest record not yet complete.
func (s *MongoStore) IncompleteQuests(ctx context.Context) ([]*QuestRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	cursor, err := s.quests.Find(ctx, bson.M{"complete": false}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query incomplete quests: %w", err)
	}
	defer cursor.Close(ctx)

	var records []*QuestRecord
	for cursor.Next(ctx) {
		var doc mongoQuest
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode quest: %w", err)
		}
		records = append(records, questFromMongo(&doc))
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate quests: %w", err)
	}
	return records, nil
}
