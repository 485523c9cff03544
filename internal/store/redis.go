package store

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig holds Redis store configuration.
type RedisConfig struct {
	Addr     string `json:"addr"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	Key      string `json:"key"`
	Channel  string `json:"channel"`
}

// DefaultRedisConfig returns default Redis store configuration.
func DefaultRedisConfig() *RedisConfig {
	return &RedisConfig{
		Addr:    "localhost:6379",
		Key:     "chat:rooms",
		Channel: "chat:rooms:changed",
	}
}

// RedisStore implements Store using a single Redis key for the table
// blob. Every save publishes on a pub/sub channel, which delivers the
// cross-client change signal to subscribed peers.
type RedisStore struct {
	client *redis.Client
	config *RedisConfig
	pubsub *redis.PubSub

	mutex       sync.Mutex
	subscribers map[int]func()
	nextSubID   int
	stop        chan struct{}
	stopOnce    sync.Once
}

// NewRedisStore connects to Redis and returns a Redis-backed store.
func NewRedisStore(config *RedisConfig) (*RedisStore, error) {
	if config == nil {
		config = DefaultRedisConfig()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	log.Printf("✅ Connected to Redis: %s", config.Addr)

	s := &RedisStore{
		client:      client,
		config:      config,
		pubsub:      client.Subscribe(context.Background(), config.Channel),
		subscribers: make(map[int]func()),
		stop:        make(chan struct{}),
	}
	go s.listen()

	return s, nil
}

// Load reads the table blob from the configured key.
func (s *RedisStore) Load(ctx context.Context) ([]byte, bool, error) {
	data, err := s.client.Get(ctx, s.config.Key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read room table: %w", err)
	}
	return data, true, nil
}

// Save replaces the table blob and publishes the change signal. The
// publisher receives its own signal back through the channel, which is
// fine: subscribers re-read and compare, they never trust the signal.
func (s *RedisStore) Save(ctx context.Context, data []byte) error {
	if err := s.client.Set(ctx, s.config.Key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to write room table: %w", err)
	}
	if err := s.client.Publish(ctx, s.config.Channel, "changed").Err(); err != nil {
		return fmt.Errorf("failed to publish change signal: %w", err)
	}
	return nil
}

// Subscribe registers a change callback.
func (s *RedisStore) Subscribe(fn func()) func() {
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

// Close stops the pub/sub listener and disconnects.
func (s *RedisStore) Close() error {
	s.stopOnce.Do(func() { close(s.stop) })
	if err := s.pubsub.Close(); err != nil {
		return err
	}
	return s.client.Close()
}

// listen forwards pub/sub messages to subscribers.
func (s *RedisStore) listen() {
	ch := s.pubsub.Channel()
	for {
		select {
		case <-s.stop:
			return
		case _, ok := <-ch:
			if !ok {
				return
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
		}
	}
}
