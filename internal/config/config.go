package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendMongo  = "mongo"
	BackendSQLite = "sqlite"
)

type Config struct {
	APIBaseURL string
	APIToken   string
	APITimeout time.Duration
	PageSize   int

	StorageBackend string
	StorageKey     string
	ShopperID      string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisTTL      time.Duration

	MongoURI    string
	MongoDBName string

	SQLitePath string

	HTTPPort        string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration

	KafkaBrokers  []string
	CheckoutTopic string
	KafkaGroupID  string

	LogLevel string
}

// Load reads an optional .env file (or the given files) and then the
// environment. Values already in the environment win over the file.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load env file: %w", err)
	}

	cfg := &Config{
		APIBaseURL:     getEnv("CART_API_BASE_URL", "http://localhost:8080"),
		APIToken:       getEnv("CART_API_TOKEN", ""),
		StorageBackend: strings.ToLower(getEnv("CART_STORAGE_BACKEND", BackendSQLite)),
		StorageKey:     getEnv("CART_STORAGE_KEY", "myshop_cart"),
		ShopperID:      getEnv("CART_SHOPPER_ID", ""),
		RedisAddr:      getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
		MongoURI:       getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDBName:    getEnv("MONGO_DB_NAME", "cartdb"),
		SQLitePath:     getEnv("CART_SQLITE_PATH", defaultSQLitePath()),
		HTTPPort:       getEnv("HTTP_PORT", "8090"),
		CheckoutTopic:  getEnv("KAFKA_CHECKOUT_TOPIC", "checkout-outbox"),
		KafkaGroupID:   getEnv("KAFKA_GROUP_ID", "cart-sync-consumer"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		KafkaBrokers:   splitList(getEnv("KAFKA_BROKERS", "")),
	}

	var err error
	if cfg.APITimeout, err = getDuration("CART_API_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.PageSize, err = getInt("CART_PAGE_SIZE", 50); err != nil {
		return nil, err
	}
	if cfg.RedisDB, err = getInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.RedisTTL, err = getDuration("REDIS_TTL", 0); err != nil {
		return nil, err
	}
	if cfg.RequestTimeout, err = getDuration("HTTP_REQUEST_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.ShutdownTimeout, err = getDuration("HTTP_SHUTDOWN_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Key is the storage key for this shopper's cart.
func (c *Config) Key() string {
	if c.ShopperID == "" {
		return c.StorageKey
	}
	return c.StorageKey + ":" + c.ShopperID
}

func (c *Config) validate() error {
	switch c.StorageBackend {
	case BackendMemory, BackendRedis, BackendMongo, BackendSQLite:
	default:
		return fmt.Errorf("unknown CART_STORAGE_BACKEND %q", c.StorageBackend)
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("CART_PAGE_SIZE must be positive, got %d", c.PageSize)
	}
	if c.StorageBackend == BackendSQLite && c.SQLitePath == "" {
		return errors.New("CART_SQLITE_PATH must not be empty")
	}
	if c.StorageKey == "" {
		return errors.New("CART_STORAGE_KEY must not be empty")
	}
	return nil
}

// defaultSQLitePath is cart.db under the user's cache directory, or the
// working directory when there is none.
func defaultSQLitePath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "cart-sync.db"
	}
	return filepath.Join(dir, "cart-sync", "cart.db")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
