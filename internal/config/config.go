package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const insecureJWTSecret = "mylib_secret_key_change_in_production"

type Config struct {
	ServiceName string
	ServerPort  int
	LogLevel    string

	DBDriver    string
	DatabaseURL string

	JWTSecret []byte

	StorageBackend string
	UploadDir      string
	S3             S3Config

	KafkaBrokers []string
	KafkaTopic   string

	ESURL      string
	ESUser     string
	ESPassword string

	CORSOrigins []string
	BodyLimit   string
	// AuthRateLimit is requests per second per client IP on /api/auth, 0 disables it.
	AuthRateLimit float64

	AdminUsername string
	AdminPassword string

	SweepGrace time.Duration
}

type S3Config struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

// Load reads .env (if present) and the process environment.
func Load() Config {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Notice: .env file not found: %v. Using system environment variables", err)
	}
	return FromEnv()
}

func FromEnv() Config {
	cfg := Config{
		ServiceName: EnvDefault("SERVICE_NAME", "mylib"),
		ServerPort:  EnvIntDefault("SERVER_PORT", 5000),
		LogLevel:    EnvDefault("LOG_LEVEL", "info"),

		DBDriver:    strings.ToLower(EnvDefault("DB_DRIVER", "sqlite")),
		DatabaseURL: EnvDefault("DATABASE_URL", "mylib.db"),

		JWTSecret: []byte(EnvDefault("JWT_SECRET", insecureJWTSecret)),

		StorageBackend: strings.ToLower(EnvDefault("STORAGE_BACKEND", "local")),
		UploadDir:      EnvDefault("UPLOAD_DIR", "uploads"),
		S3: S3Config{
			Bucket:    os.Getenv("S3_BUCKET"),
			Region:    EnvDefault("S3_REGION", "us-east-1"),
			Endpoint:  os.Getenv("S3_ENDPOINT"),
			AccessKey: os.Getenv("S3_ACCESS_KEY"),
			SecretKey: os.Getenv("S3_SECRET_KEY"),
		},

		KafkaBrokers: CSV(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:   EnvDefault("KAFKA_TOPIC", "content_events"),

		ESURL:      os.Getenv("ES_URL"),
		ESUser:     os.Getenv("ES_USER"),
		ESPassword: os.Getenv("ES_PASSWORD"),

		CORSOrigins:   CSV(EnvDefault("CORS_ORIGINS", "http://localhost:3000,http://localhost:5173,https://mylib-frontend.netlify.app")),
		BodyLimit:     EnvDefault("BODY_LIMIT", "200M"),
		AuthRateLimit: EnvFloatDefault("AUTH_RATE_LIMIT", 0),

		AdminUsername: EnvDefault("ADMIN_USERNAME", "admin"),
		AdminPassword: EnvDefault("ADMIN_PASSWORD", "admin123"),

		SweepGrace: EnvDurationDefault("SWEEP_GRACE", time.Hour),
	}
	return cfg
}

// InsecureSecret reports whether the signing secret is still the shipped default.
func (c Config) InsecureSecret() bool {
	return string(c.JWTSecret) == insecureJWTSecret
}

func CSV(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func EnvDefault(key, def string) string {
	if os.Getenv(key) != "" {
		return os.Getenv(key)
	}
	return def
}

func EnvIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func EnvFloatDefault(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return n
}

func EnvDurationDefault(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
