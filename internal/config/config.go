package config

import (
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

type Config struct {
	Addr string

	DatabaseURL string

	JWTSecret []byte
	TokenTTL  time.Duration

	AllowedOrigin string

	KafkaBrokers []string
	EventsTopic  string

	ESURL      string
	ESUser     string
	ESPassword string
	AuditIndex string

	PruneInterval time.Duration

	LogLevel string
}

func Load() *Config {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("notice: .env file not found, using system environment variables")
	}

	cfg := &Config{
		Addr:          envDefault("AUTH_ADDR", ":8080"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		JWTSecret:     []byte(os.Getenv("JWT_SECRET")),
		TokenTTL:      envDurationDefault("TOKEN_TTL", 24*time.Hour),
		AllowedOrigin: envDefault("ALLOWED_ORIGIN", "http://localhost:5555"),
		KafkaBrokers:  csv(os.Getenv("KAFKA_BROKERS")),
		EventsTopic:   envDefault("EVENTS_TOPIC", "user_events"),
		ESURL:         os.Getenv("ES_URL"),
		ESUser:        os.Getenv("ES_USER"),
		ESPassword:    os.Getenv("ES_PASSWORD"),
		AuditIndex:    envDefault("AUDIT_INDEX", "auth-audit"),
		PruneInterval: envDurationDefault("PRUNE_INTERVAL", time.Hour),
		LogLevel:      envDefault("LOG_LEVEL", "info"),
	}

	MustNonEmpty(cfg.DatabaseURL, "DATABASE_URL")
	MustNonEmptyBytes(cfg.JWTSecret, "JWT_SECRET")

	return cfg
}

func MustNonEmpty(value, envName string) {
	if value == "" {
		log.Fatalf("missing required env %s", envName)
	}
}

func MustNonEmptyBytes(value []byte, envName string) {
	if len(value) == 0 {
		log.Fatalf("missing required env %s", envName)
	}
}

func envDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envDurationDefault(key string, def time.Duration) time.Duration {
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

func csv(v string) []string {
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
