package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Store backends selectable through STORE_BACKEND / OTP_BACKEND.
const (
	BackendMongo  = "mongo"
	BackendDynamo = "dynamo"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort  string
	AppEnv   string
	LogLevel string

	StoreBackend string
	OtpBackend   string // empty means same as StoreBackend

	MongoURI             string
	MongoDatabase        string
	MongoUsersCollection string
	MongoOtpsCollection  string

	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string
	DynamoTables   DynamoTables

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	SMTPHost       string
	SMTPPort       int
	SMTPFrom       string
	SMTPFromName   string
	SMTPUsername   string
	SMTPPassword   string
	SMTPRequireTLS bool // refuse to send without STARTTLS

	OtpTTL       time.Duration
	StoreTimeout time.Duration
	MailTimeout  time.Duration

	AllowedOrigins []string // CORS allowed origins
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	Users      string
	UserEmails string
	Otps       string
}

// Load reads all configuration from environment variables.
func Load() *Config {
	return &Config{
		AppPort:  getEnv("APP_PORT", "8088"),
		AppEnv:   getEnv("APP_ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		StoreBackend: strings.ToLower(getEnv("STORE_BACKEND", BackendMongo)),
		OtpBackend:   strings.ToLower(getEnv("OTP_BACKEND", "")),

		MongoURI:             getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase:        getEnv("DB_NAME", "chat_app"),
		MongoUsersCollection: getEnv("MONGO_USERS_COLLECTION", "users"),
		MongoOtpsCollection:  getEnv("MONGO_OTPS_COLLECTION", "otps"),

		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		DynamoTables: DynamoTables{
			Users:      getEnv("DYNAMO_TABLE_USERS", "users"),
			UserEmails: getEnv("DYNAMO_TABLE_USER_EMAILS", "user_emails"),
			Otps:       getEnv("DYNAMO_TABLE_OTPS", "otps"),
		},

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		SMTPHost:       getEnv("SMTP_HOST", "localhost"),
		SMTPPort:       getEnvInt("SMTP_PORT", 1025),
		SMTPFrom:       getEnv("SMTP_FROM", "noreply@example.com"),
		SMTPFromName:   getEnv("SMTP_FROM_NAME", "Chat App"),
		SMTPUsername:   getEnv("SMTP_USERNAME", ""),
		SMTPPassword:   getEnv("SMTP_PASSWORD", ""),
		SMTPRequireTLS: getEnv("SMTP_REQUIRE_TLS", "false") == "true",

		OtpTTL:       getEnvDuration("OTP_TTL", 5*time.Minute),
		StoreTimeout: getEnvDuration("STORE_TIMEOUT", 5*time.Second),
		MailTimeout:  getEnvDuration("MAIL_TIMEOUT", 10*time.Second),

		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
	}
}

// OtpStoreBackend resolves which backend holds OTP records.
func (c *Config) OtpStoreBackend() string {
	if c.OtpBackend == "" {
		return c.StoreBackend
	}
	return c.OtpBackend
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}
