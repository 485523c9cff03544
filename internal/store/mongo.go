package store

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoConfig holds MongoDB store configuration.
type MongoConfig struct {
	URI            string        `json:"uri"`
	Database       string        `json:"database"`
	Collection     string        `json:"collection"`
	ConnectTimeout time.Duration `json:"connect_timeout"`
	PingTimeout    time.Duration `json:"ping_timeout"`
	MaxPoolSize    uint64        `json:"max_pool_size"`
}

// DefaultMongoConfig returns default MongoDB store configuration.
func DefaultMongoConfig() *MongoConfig {
	return &MongoConfig{
		URI:            "mongodb://localhost:27017",
		Database:       "ephemeral_chat",
		Collection:     "room_tables",
		ConnectTimeout: 10 * time.Second,
		PingTimeout:    5 * time.Second,
		MaxPoolSize:    100,
	}
}

// tableDocID is the _id of the single document holding the room table.
// Keeping the whole table in one document keeps writes last-writer-wins
// at table granularity, the same contract as the other backends.
const tableDocID = "chat_rooms"

// tableDocument is the MongoDB document structure for the room table.
type tableDocument struct {
	ID        string    `bson:"_id"`
	Data      []byte    `bson:"data"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// MongoStore implements Store using a MongoDB collection. Cross-client
// change signals are not produced by this backend; peers converge
// through their periodic polls.
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
	config     *MongoConfig

	mutex       sync.Mutex
	subscribers map[int]func()
	nextSubID   int
}

// NewMongoStore connects to MongoDB and returns a Mongo-backed store.
func NewMongoStore(config *MongoConfig) (*MongoStore, error) {
	if config == nil {
		config = DefaultMongoConfig()
	}

	clientOptions := options.Client().
		ApplyURI(config.URI).
		SetConnectTimeout(config.ConnectTimeout).
		SetMaxPoolSize(config.MaxPoolSize)

	ctx, cancel := context.WithTimeout(context.Background(), config.ConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(context.Background(), config.PingTimeout)
	defer pingCancel()

	if err := client.Ping(pingCtx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	log.Printf("✅ Connected to MongoDB: %s/%s", config.URI, config.Database)

	return &MongoStore{
		client:      client,
		collection:  client.Database(config.Database).Collection(config.Collection),
		config:      config,
		subscribers: make(map[int]func()),
	}, nil
}

// Load reads the table document.
func (s *MongoStore) Load(ctx context.Context) ([]byte, bool, error) {
	var doc tableDocument
	err := s.collection.FindOne(ctx, bson.M{"_id": tableDocID}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read room table: %w", err)
	}
	return doc.Data, true, nil
}

// Save upserts the table document and notifies local subscribers.
func (s *MongoStore) Save(ctx context.Context, data []byte) error {
	doc := tableDocument{
		ID:        tableDocID,
		Data:      data,
		UpdatedAt: time.Now(),
	}

	opts := options.Replace().SetUpsert(true)
	if _, err := s.collection.ReplaceOne(ctx, bson.M{"_id": tableDocID}, doc, opts); err != nil {
		return fmt.Errorf("failed to write room table: %w", err)
	}

	s.mutex.Lock()
	subscribers := make([]func(), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subscribers = append(subscribers, fn)
	}
	s.mutex.Unlock()

	for _, fn := range subscribers {
		fn()
	}
	return nil
}

// Subscribe registers a change callback. Only saves through this store
// instance fire it.
func (s *MongoStore) Subscribe(fn func()) func() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn

	return func() {
		s.mutex.Lock()
		defer s.mutex.Unlock()
		delete(s.subscribers, id)
	}
}

// Close disconnects from MongoDB.
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect from MongoDB: %w", err)
	}
	return nil
}
