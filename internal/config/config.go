package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"

	"github.com/adi-253/Talkie/chatcore/internal/logging"
)

// Config holds all environment configuration values for the application.
// These values are loaded from a .env file at startup.
type Config struct {
	// ServerPort is the port the HTTP server listens on
	ServerPort string

	// CORSOrigins lists the origins allowed to call the API
	CORSOrigins []string

	// LogLevel and LogFormat configure zerolog (format: console or json)
	LogLevel  string
	LogFormat string

	// StorageBackend selects where conversations are loaded from and saved to: sqlite or supabase
	StorageBackend string

	// SQLitePath is the database file used by the sqlite backend
	SQLitePath string

	// SeedFile is a JSON array of conversations written to an empty repository at startup
	SeedFile string

	// SupabaseURL is the URL of your Supabase project
	SupabaseURL string

	// SupabaseKey is the service role key for backend operations
	// This key has elevated privileges and should never be exposed to clients
	SupabaseKey string

	// DeliveredDelay and ReadDelay drive the simulated delivery lifecycle,
	// both measured from the moment a message is sent
	DeliveredDelay time.Duration
	ReadDelay      time.Duration

	// HighlightDuration is how long a jumped-to message stays highlighted
	HighlightDuration time.Duration

	// JumpBackTTL is how long the jump-back affordance stays available
	JumpBackTTL time.Duration

	// TypingTimeout is the quiet period after which the typing signal stops
	TypingTimeout time.Duration

	// DayBucketLocation is the fixed time reference used for day grouping
	DayBucketLocation *time.Location

	// MaxAttachmentSize is the largest file accepted by the ingestor, in bytes
	MaxAttachmentSize int64

	// IngestConcurrency bounds parallel file resolution
	IngestConcurrency int

	// SnippetWidth is the display width of previews and reply quotes
	SnippetWidth int

	// SessionIdleTimeout and CleanupInterval drive the session reaper
	SessionIdleTimeout time.Duration
	CleanupInterval    time.Duration
}

// Load reads environment variables and returns a populated Config struct.
// It will load from a .env file if present, then read from environment variables.
// Falls back to sensible defaults if values are not set.
func Load() *Config {
	log := logging.Component("config")

	// Not an error if .env doesn't exist; production uses real environment variables
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("no .env file found, using environment variables")
	}

	config := &Config{
		ServerPort:         getEnv("PORT", "8080"),
		CORSOrigins:        getList("CORS_ORIGINS", []string{"http://localhost:5173", "http://localhost:3000"}),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogFormat:          getEnv("LOG_FORMAT", "console"),
		StorageBackend:     strings.ToLower(getEnv("STORAGE_BACKEND", "sqlite")),
		SQLitePath:         getEnv("SQLITE_PATH", "data/talkie.db"),
		SeedFile:           getEnv("SEED_FILE", ""),
		SupabaseURL:        getEnv("SUPABASE_URL", ""),
		SupabaseKey:        getEnv("SUPABASE_SERVICE_ROLE_KEY", ""),
		DeliveredDelay:     getDuration("DELIVERED_DELAY", time.Second),
		ReadDelay:          getDuration("READ_DELAY", 3*time.Second),
		HighlightDuration:  getDuration("HIGHLIGHT_DURATION", 2*time.Second),
		JumpBackTTL:        getDuration("JUMP_BACK_TTL", 5*time.Second),
		TypingTimeout:      getDuration("TYPING_TIMEOUT", 1500*time.Millisecond),
		DayBucketLocation:  getLocation("DAY_BUCKET_TZ", time.UTC),
		MaxAttachmentSize:  getBytes("MAX_ATTACHMENT_SIZE", 25*humanize.MByte),
		IngestConcurrency:  getInt("INGEST_CONCURRENCY", 4),
		SnippetWidth:       getInt("SNIPPET_WIDTH", 40),
		SessionIdleTimeout: getDuration("SESSION_IDLE_TIMEOUT", 30*time.Minute),
		CleanupInterval:    getDuration("CLEANUP_INTERVAL", time.Minute),
	}

	config.normalize()
	return config
}

// normalize repairs combinations that would break the engine's invariants.
func (c *Config) normalize() {
	log := logging.Component("config")

	if c.ReadDelay <= c.DeliveredDelay {
		corrected := c.DeliveredDelay * 3
		log.Warn().
			Dur("delivered_delay", c.DeliveredDelay).
			Dur("read_delay", c.ReadDelay).
			Dur("corrected", corrected).
			Msg("READ_DELAY must be longer than DELIVERED_DELAY")
		c.ReadDelay = corrected
	}
	if c.IngestConcurrency < 1 {
		c.IngestConcurrency = 1
	}
	if c.SnippetWidth < 8 {
		c.SnippetWidth = 8
	}

	switch c.StorageBackend {
	case "sqlite":
	case "supabase":
		if c.SupabaseURL == "" {
			log.Warn().Msg("SUPABASE_URL is not set")
		}
		if c.SupabaseKey == "" {
			log.Warn().Msg("SUPABASE_SERVICE_ROLE_KEY is not set")
		}
	default:
		log.Warn().Str("backend", c.StorageBackend).Msg("unknown STORAGE_BACKEND, using sqlite")
		c.StorageBackend = "sqlite"
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getList splits a comma-separated variable and trims whitespace
func getList(key string, defaultValue []string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		warnInvalid(key, raw, "invalid duration, using default")
		return defaultValue
	}
	return d
}

func getInt(key string, defaultValue int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		warnInvalid(key, raw, "invalid integer, using default")
		return defaultValue
	}
	return n
}

// getBytes accepts human sizes such as "25MB" or "512KiB"
func getBytes(key string, defaultValue int64) int64 {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	n, err := humanize.ParseBytes(raw)
	if err != nil || n == 0 {
		warnInvalid(key, raw, "invalid size, using default")
		return defaultValue
	}
	return int64(n)
}

func getLocation(key string, defaultValue *time.Location) *time.Location {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	loc, err := time.LoadLocation(raw)
	if err != nil {
		warnInvalid(key, raw, "unknown time zone, using default")
		return defaultValue
	}
	return loc
}

func warnInvalid(key, raw, msg string) {
	log := logging.Component("config")
	log.Warn().Str("key", key).Str("value", raw).Msg(msg)
}
