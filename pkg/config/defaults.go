// Package config provides centralized default values for BallotDesk
package config

import (
	"errors"
	"log"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

var envLoaded sync.Once

func loadEnvFile() {
	envLoaded.Do(func() {
		if err := godotenv.Load(); err == nil {
			log.Println("Loading configuration overrides from .env file...")
		}
	})
}

func getEnvInt(key string, defaultValue int) int {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := strconv.Atoi(valStr); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%d (default: %d)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

func getEnvString(key string, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		if val != defaultValue {
			log.Printf("Config override: %s=%s (default: %s)", key, val, defaultValue)
		}
		return val
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := time.ParseDuration(valStr); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%s (default: %s)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

var (
	// Server Configuration
	Port               string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration
	ServerIdleTimeout  time.Duration

	// Database
	DBDriver                 string // "sqlite3" or "libsql"
	DBPath                   string
	DBURL                    string
	DBAuthToken              string
	DBMaxOpenConns           int
	DBMaxIdleConns           int
	DBConnMaxLifetimeMinutes int
	SlowQueryThreshold       time.Duration

	// Secrets
	VoterKeySecret string
	JWTSecret      string

	// Voter session tokens
	SessionTokenTTL time.Duration

	// Scheduler cadences
	NotificationCleanupInterval time.Duration
	ScheduledFlushInterval      time.Duration
	ReminderSweepInterval       time.Duration
	ActivationSweepInterval     time.Duration
	ReminderWindow              time.Duration
	FanoutBatchSize             int

	// Email
	ResendAPIKey  string
	EmailFrom     string
	EmailFromName string

	// Ops feed
	OpsFeedInterval time.Duration
)

// ErrMissingVoterKeySecret is returned when the credential encryption
// secret is absent from the environment.
var ErrMissingVoterKeySecret = errors.New("VOTER_KEY_ENCRYPTION_KEY is not set")

func init() {
	loadEnvFile()

	// Server Configuration
	Port = getEnvString("PORT", "8080")
	ServerReadTimeout = getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second)
	ServerWriteTimeout = getEnvDuration("SERVER_WRITE_TIMEOUT", 15*time.Second)
	ServerIdleTimeout = getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second)

	// Database
	DBDriver = getEnvString("DB_DRIVER", "sqlite3")
	DBPath = getEnvString("DB_PATH", "./data/ballotdesk.db")
	DBURL = getEnvString("DB_URL", "")
	DBAuthToken = getEnvString("DB_AUTH_TOKEN", "")
	DBMaxOpenConns = getEnvInt("DB_MAX_OPEN_CONNS", 10)
	DBMaxIdleConns = getEnvInt("DB_MAX_IDLE_CONNS", 3)
	DBConnMaxLifetimeMinutes = getEnvInt("DB_CONN_MAX_LIFETIME_MINUTES", 30)
	SlowQueryThreshold = getEnvDuration("SLOW_QUERY_THRESHOLD", 100*time.Millisecond)

	// Secrets. The voter key secret has no default on purpose; callers
	// must fail startup through RequireVoterKeySecret when it is empty.
	VoterKeySecret = os.Getenv("VOTER_KEY_ENCRYPTION_KEY")
	JWTSecret = getEnvString("JWT_SECRET", "")

	SessionTokenTTL = getEnvDuration("SESSION_TOKEN_TTL", 2*time.Hour)

	// Scheduler cadences
	NotificationCleanupInterval = getEnvDuration("NOTIFICATION_CLEANUP_INTERVAL", time.Hour)
	ScheduledFlushInterval = getEnvDuration("SCHEDULED_FLUSH_INTERVAL", 5*time.Minute)
	ReminderSweepInterval = getEnvDuration("REMINDER_SWEEP_INTERVAL", 6*time.Hour)
	ActivationSweepInterval = getEnvDuration("ACTIVATION_SWEEP_INTERVAL", time.Minute)
	ReminderWindow = getEnvDuration("REMINDER_WINDOW", 24*time.Hour)
	FanoutBatchSize = getEnvInt("FANOUT_BATCH_SIZE", 500)

	// Email
	ResendAPIKey = getEnvString("RESEND_API_KEY", "")
	EmailFrom = getEnvString("EMAIL_FROM", "noreply@ballotdesk.io")
	EmailFromName = getEnvString("EMAIL_FROM_NAME", "BallotDesk")

	OpsFeedInterval = getEnvDuration("OPS_FEED_INTERVAL", 20*time.Second)
}

// RequireVoterKeySecret returns the credential encryption secret or an
// error when it is missing. Credential operations must not run without it.
func RequireVoterKeySecret() (string, error) {
	if strings.TrimSpace(VoterKeySecret) == "" {
		return "", ErrMissingVoterKeySecret
	}
	return VoterKeySecret, nil
}
