package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"milkroad_server/models"
)

// Store backends
const (
	StoreBackendDynamo = "dynamodb"
	StoreBackendMemory = "memory"
)

type Config struct {
	Server  ServerConfig
	AWS     AWSConfig
	Tables  TablesConfig
	Auth    AuthConfig
	Redis   RedisConfig
	Cache   CacheConfig
	Sharing SharingConfig
	Tracing TracingConfig
}

type ServerConfig struct {
	Port            int
	AllowedOrigins  []string
	HandlerTimeout  time.Duration
	DefaultTimezone *time.Location
	StoreBackend    string
}

type AWSConfig struct {
	Region           string
	DynamoDBEndpoint string
	ExportBucket     string
	ExportURLExpiry  time.Duration
}

type TablesConfig struct {
	Feeds       string
	Sleep       string
	OpenSleep   string
	Shares      string
	Connections string
}

type AuthConfig struct {
	ClerkSecretKey string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Channel  string
}

type CacheConfig struct {
	TTL time.Duration
}

type SharingConfig struct {
	CodeTTL time.Duration
}

type TracingConfig struct {
	OTLPEndpoint string
	ServiceName  string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	tzName := GetEnv("DEFAULT_TIMEZONE", "UTC").(string)
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return nil, fmt.Errorf("invalid DEFAULT_TIMEZONE %q: %w", tzName, err)
	}

	backend := strings.ToLower(GetEnv("STORE_BACKEND", StoreBackendDynamo).(string))
	if backend != StoreBackendDynamo && backend != StoreBackendMemory {
		return nil, fmt.Errorf("unsupported STORE_BACKEND %q (expected %s or %s)", backend, StoreBackendDynamo, StoreBackendMemory)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:            GetEnv("PORT", 8080).(int),
			AllowedOrigins:  parseList(GetEnv("ALLOWED_ORIGINS", "*").(string)),
			HandlerTimeout:  GetEnv("HANDLER_TIMEOUT", 10*time.Second).(time.Duration),
			DefaultTimezone: loc,
			StoreBackend:    backend,
		},
		AWS: AWSConfig{
			Region:           GetEnv("AWS_REGION", "").(string),
			DynamoDBEndpoint: GetEnv("DYNAMODB_ENDPOINT", "").(string),
			ExportBucket:     GetEnv("S3_BUCKET_NAME", "").(string),
			ExportURLExpiry:  GetEnv("EXPORT_URL_EXPIRY", 15*time.Minute).(time.Duration),
		},
		Tables: TablesConfig{
			Feeds:       GetEnv("FEEDS_TABLE", models.FeedsTable).(string),
			Sleep:       GetEnv("SLEEP_TABLE", models.SleepTable).(string),
			OpenSleep:   GetEnv("OPEN_SLEEP_TABLE", models.OpenSleepTable).(string),
			Shares:      GetEnv("SHARES_TABLE", models.SharesTable).(string),
			Connections: GetEnv("CONNECTIONS_TABLE", models.ConnectionsTable).(string),
		},
		Auth: AuthConfig{
			ClerkSecretKey: GetEnv("CLERK_SECRET_KEY", "").(string),
		},
		Redis: RedisConfig{
			Addr:     GetEnv("REDIS_ADDR", "").(string),
			Password: GetEnv("REDIS_PASSWORD", "").(string),
			DB:       GetEnv("REDIS_DB", 0).(int),
			Channel:  GetEnv("REDIS_CHANNEL", "milkroad:refresh").(string),
		},
		Cache: CacheConfig{
			TTL: GetEnv("CACHE_TTL", 30*time.Second).(time.Duration),
		},
		Sharing: SharingConfig{
			CodeTTL: GetEnv("SHARE_CODE_TTL", 7*24*time.Hour).(time.Duration),
		},
		Tracing: TracingConfig{
			OTLPEndpoint: GetEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "").(string),
			ServiceName:  GetEnv("OTEL_SERVICE_NAME", "milkroad-server").(string),
		},
	}

	if cfg.Server.StoreBackend == StoreBackendDynamo && cfg.AWS.Region == "" && cfg.AWS.DynamoDBEndpoint == "" {
		return nil, fmt.Errorf("missing env AWS_REGION (or set STORE_BACKEND=memory)")
	}

	return cfg, nil
}

func parseList(s string) []string {
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func GetEnv(key string, defaultValue any) any {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}

	switch def := defaultValue.(type) {
	case string:
		return value
	case int:
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
		return def
	case bool:
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
		return def
	case time.Duration:
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		return def
	default:
		return defaultValue
	}
}
