package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config stores all configuration of the service
type Config struct {
	ServerPort string

	Database Database

	// JWT
	JWTSecretKey string
	JWTTTL       time.Duration
	AdminIDs     []string

	// Redis rate limiting
	RedisAddr          string
	RedisPassword      string
	RedisDB            int
	RateLimitPerMinute int

	S3 S3

	BreakerMaxFailures int
	BreakerCooldown    time.Duration

	LogLevel  string
	LogFormat string
}

type Database struct {
	Driver   string // postgres or sqlite
	URL      string
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
	Path     string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnectAttempts int
	RetryDelay      time.Duration
}

type S3 struct {
	Bucket          string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string
	PathStyle       bool
	PresignTTL      time.Duration
}

// Load reads the environment, after merging an optional .env file.
func Load(envFiles ...string) *Config {
	// A missing .env is the normal case in containers.
	_ = godotenv.Load(envFiles...)

	return &Config{
		ServerPort: getEnv("SERVER_PORT", "8080"),

		Database: Database{
			Driver:          strings.ToLower(getEnv("DB_DRIVER", "postgres")),
			URL:             getEnv("DATABASE_URL", ""),
			Host:            getEnv("DB_HOST", ""),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", ""),
			Password:        getEnv("DB_PASSWORD", ""),
			Name:            getEnv("DB_NAME", "bloodbank"),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			Path:            getEnv("DB_PATH", ""),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 10),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
			ConnectAttempts: getEnvAsInt("DB_CONNECT_ATTEMPTS", 3),
			RetryDelay:      getEnvAsDuration("DB_RETRY_DELAY", 2*time.Second),
		},

		JWTSecretKey: getEnv("JWT_SECRET_KEY", "bloodbank-secret-key-change-in-production"),
		JWTTTL:       getEnvAsDuration("JWT_TTL", 0),
		AdminIDs:     getEnvAsList("ADMIN_IDS", DefaultAdminIDs()),

		RedisAddr:          getEnv("REDIS_ADDR", ""),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
		RedisDB:            getEnvAsInt("REDIS_DB", 0),
		RateLimitPerMinute: getEnvAsInt("RATE_LIMIT_PER_MINUTE", 20),

		S3: S3{
			Bucket:          getEnv("S3_BUCKET_NAME", ""),
			Region:          getEnv("AWS_REGION", "us-east-1"),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			Endpoint:        getEnv("S3_ENDPOINT", ""),
			PathStyle:       getEnvAsBool("S3_PATH_STYLE", false),
			PresignTTL:      getEnvAsDuration("S3_PRESIGN_TTL", 15*time.Minute),
		},

		BreakerMaxFailures: getEnvAsInt("BREAKER_MAX_FAILURES", 5),
		BreakerCooldown:    getEnvAsDuration("BREAKER_COOLDOWN", 30*time.Second),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}
}

// DefaultAdminIDs is the built-in administrator whitelist ADMIN001..ADMIN010.
func DefaultAdminIDs() []string {
	ids := make([]string, 0, 10)
	for i := 1; i <= 10; i++ {
		ids = append(ids, fmt.Sprintf("ADMIN%03d", i))
	}
	return ids
}

// Configured reports whether enough settings are present to try the persistent store.
func (d Database) Configured() bool {
	if d.Driver == "sqlite" {
		return d.Path != ""
	}
	return d.URL != "" || (d.Host != "" && d.User != "")
}

// DSN returns the connection string for the configured driver.
func (d Database) DSN() string {
	if d.Driver == "sqlite" {
		return d.Path
	}
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		d.Host, d.User, d.Password, d.Name, d.Port, d.SSLMode)
}

// Configured reports whether uploads should go to S3 instead of memory.
func (s S3) Configured() bool {
	return s.Bucket != "" && s.AccessKeyID != "" && s.SecretAccessKey != ""
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	if v, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return v
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if v, err := strconv.ParseBool(getEnv(key, "")); err == nil {
		return v
	}
	return defaultValue
}

// getEnvAsDuration accepts Go durations ("90s") or a bare number of seconds.
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
