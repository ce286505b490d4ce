package config // package config loads application configuration from environment variables

import (
    "log"     // log is used to report configuration errors and halt execution
    "os"      // os provides access to environment variables
    "strconv" // strconv converts strings to other types
    "time"

    "github.com/joho/godotenv" // godotenv loads an optional .env file before reading the environment
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  Nested groups are loaded by their own helpers
// so they can be reused by tools that only need one of them.
type Config struct {
    Env          string        // application environment (e.g. "dev", "prod")
    Port         string        // HTTP port to listen on
    DBUser       string        // database username
    DBPass       string        // database password (optional)
    DBHost       string        // database host address
    DBPort       string        // database port number
    DBName       string        // database name
    DBMigrate    bool          // apply embedded migrations at start-up
    JWTSecret    string        // secret used to verify staff JWTs
    AccessTTLMin int           // access token time-to-live in minutes
    ReadTimeout  time.Duration // bound on store calls made by read operations
    ReaperEvery  time.Duration // lock reaper interval; 0 disables the reaper
    NotifyBuffer int           // per-observer notification buffer

    Cache     CacheConfig
    RateLimit RateLimitConfig
    AMQP      AMQPConfig
}

// Load reads configuration values from environment variables and returns a
// Config.  A .env file in the working directory is loaded first when
// present.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
    _ = godotenv.Load() // optional; real environment wins over the file
    return Config{
        Env:          must("APP_ENV"),
        Port:         must("APP_PORT"),
        DBUser:       must("DB_USER"),
        DBPass:       os.Getenv("DB_PASS"), // empty allowed
        DBHost:       must("DB_HOST"),
        DBPort:       must("DB_PORT"),
        DBName:       must("DB_NAME"),
        DBMigrate:    envBool("DB_MIGRATE", true),
        JWTSecret:    must("JWT_SECRET"),
        AccessTTLMin: mustInt("ACCESS_TOKEN_TTL_MIN"),
        ReadTimeout:  envDur("READ_TIMEOUT", 3*time.Second),
        ReaperEvery:  envDur("LOCK_REAPER_INTERVAL", 30*time.Second),
        NotifyBuffer: envInt("NOTIFY_BUFFER", 64),
        Cache:        LoadCacheConfig(),
        RateLimit:    LoadRateLimitConfig(),
        AMQP:         LoadAMQPConfig(),
    }
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
    v, ok := os.LookupEnv(key)
    if !ok || v == "" {
        log.Fatalf("missing required env var: %s", key)
    }
    return v
}

// mustInt is like must() but converts the retrieved string into an integer.
// If conversion fails, the application logs a fatal error and exits.
func mustInt(key string) int {
    s := must(key)
    n, err := strconv.Atoi(s)
    if err != nil {
        log.Fatalf("invalid int for %s: %q", key, s)
    }
    return n
}
