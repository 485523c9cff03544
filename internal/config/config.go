package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds the application configuration.
type Config struct {
	// Server settings
	Port string `json:"port"`

	// Store settings. Backend is one of: memory, file, mongo, redis.
	StoreBackend     string        `json:"store_backend"`
	FilePath         string        `json:"file_path"`
	FilePollInterval time.Duration `json:"file_poll_interval"`
	MongoURI         string        `json:"mongo_uri"`
	MongoDatabase    string        `json:"mongo_database"`
	RedisAddr        string        `json:"redis_addr"`

	// Room settings
	MaxMessages    int `json:"max_messages"`
	RoomCodeLength int `json:"room_code_length"`

	// Expiry settings
	InactivityTimeout   time.Duration `json:"inactivity_timeout"`
	EmptyRoomGrace      time.Duration `json:"empty_room_grace"`
	SweepInterval       time.Duration `json:"sweep_interval"`
	DeletionNoticeDelay time.Duration `json:"deletion_notice_delay"`
	PeerPollInterval    time.Duration `json:"peer_poll_interval"`

	// Input limits
	MinUsernameLength int `json:"min_username_length"`
	MaxUsernameLength int `json:"max_username_length"`
	MaxMessageLength  int `json:"max_message_length"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Port: ":9090",

		StoreBackend:     "memory",
		FilePath:         "chat_rooms.json",
		FilePollInterval: 2 * time.Second,
		MongoURI:         "mongodb://localhost:27017",
		MongoDatabase:    "ephemeral_chat",
		RedisAddr:        "localhost:6379",

		MaxMessages:    50,
		RoomCodeLength: 6,

		InactivityTimeout:   1 * time.Hour,
		EmptyRoomGrace:      5 * time.Minute,
		SweepInterval:       5 * time.Minute,
		DeletionNoticeDelay: 2 * time.Second,
		PeerPollInterval:    1 * time.Minute,

		MinUsernameLength: 2,
		MaxUsernameLength: 50,
		MaxMessageLength:  1000,
	}
}

// Load builds the configuration from defaults, an optional JSON file,
// and environment variable overrides, in that order.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadFromFile(cfg, path); err != nil {
			// Keep running on defaults; a missing or broken config file
			// is not fatal.
			fmt.Printf("⚠️ Failed to load config file %s: %v\n", path, err)
		}
	}

	loadFromEnv(cfg)
	return cfg, nil
}

// loadFromFile overlays configuration from a JSON file.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

// loadFromEnv overlays configuration from environment variables.
func loadFromEnv(cfg *Config) {
	if port := os.Getenv("CHAT_PORT"); port != "" {
		cfg.Port = port
	}

	if backend := os.Getenv("CHAT_STORE_BACKEND"); backend != "" {
		cfg.StoreBackend = backend
	}
	if path := os.Getenv("CHAT_FILE_PATH"); path != "" {
		cfg.FilePath = path
	}
	if uri := os.Getenv("CHAT_MONGO_URI"); uri != "" {
		cfg.MongoURI = uri
	}
	if db := os.Getenv("CHAT_MONGO_DATABASE"); db != "" {
		cfg.MongoDatabase = db
	}
	if addr := os.Getenv("CHAT_REDIS_ADDR"); addr != "" {
		cfg.RedisAddr = addr
	}

	if maxMessages := os.Getenv("CHAT_MAX_MESSAGES"); maxMessages != "" {
		if val, err := strconv.Atoi(maxMessages); err == nil {
			cfg.MaxMessages = val
		}
	}

	if timeout := os.Getenv("CHAT_INACTIVITY_TIMEOUT"); timeout != "" {
		if val, err := time.ParseDuration(timeout); err == nil {
			cfg.InactivityTimeout = val
		}
	}
	if grace := os.Getenv("CHAT_EMPTY_ROOM_GRACE"); grace != "" {
		if val, err := time.ParseDuration(grace); err == nil {
			cfg.EmptyRoomGrace = val
		}
	}
	if interval := os.Getenv("CHAT_SWEEP_INTERVAL"); interval != "" {
		if val, err := time.ParseDuration(interval); err == nil {
			cfg.SweepInterval = val
		}
	}
	if poll := os.Getenv("CHAT_PEER_POLL_INTERVAL"); poll != "" {
		if val, err := time.ParseDuration(poll); err == nil {
			cfg.PeerPollInterval = val
		}
	}

	if maxMsgLen := os.Getenv("CHAT_MAX_MESSAGE_LENGTH"); maxMsgLen != "" {
		if val, err := strconv.Atoi(maxMsgLen); err == nil {
			cfg.MaxMessageLength = val
		}
	}
	if maxUserLen := os.Getenv("CHAT_MAX_USERNAME_LENGTH"); maxUserLen != "" {
		if val, err := strconv.Atoi(maxUserLen); err == nil {
			cfg.MaxUsernameLength = val
		}
	}
}
