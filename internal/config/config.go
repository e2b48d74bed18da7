// Package config loads runtime configuration for the commands from the
// environment, with an optional .env file for development.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every runtime knob of the identity subsystem. All backend
// choices are read once at startup; nothing here mutates at runtime.
type Config struct {
	// Record store
	RemoteBaseURL   string        // base path of the record service, e.g. http://localhost:8080/api
	RemoteTimeout   time.Duration // per-call timeout and abort bound
	LocalCachePath  string        // SQLite file of the local durable cache
	FallbackEnabled bool          // permit local-cache fallback when the authority is down
	MirrorWrites    bool          // mirror successful remote writes into the cache

	// Session
	SessionSignKey  string        // HS256 key signing the durable session pointer
	SessionPoll     time.Duration // pointer polling interval
	SessionBackend  string        // "sqlite" or "redis"
	RedisAddr       string
	RedisPassword   string
	RedisDB         int

	// Credential scheme: "plaintext" (legacy placeholder) or "argon2"
	CredentialScheme string

	// Bootstrap super-administrator
	BootstrapUsername   string
	BootstrapEmail      string
	BootstrapCredential string

	// recordd
	ListenAddr string
	MySQLDSN   string
}

// Load reads configuration from the environment. A .env file in the working
// directory is honored when present and silently skipped otherwise.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		RemoteBaseURL:   getenv("IDENTITY_REMOTE_URL", "http://localhost:8080/api"),
		RemoteTimeout:   getdur("IDENTITY_REMOTE_TIMEOUT", 5*time.Second),
		LocalCachePath:  getenv("IDENTITY_CACHE_PATH", "identity.db"),
		FallbackEnabled: getbool("IDENTITY_FALLBACK", true),
		MirrorWrites:    getbool("IDENTITY_MIRROR_WRITES", true),

		SessionSignKey: os.Getenv("IDENTITY_SESSION_KEY"),
		SessionPoll:    getdur("IDENTITY_SESSION_POLL", time.Second),
		SessionBackend: getenv("IDENTITY_SESSION_BACKEND", "sqlite"),
		RedisAddr:      getenv("IDENTITY_REDIS_ADDR", "localhost:6379"),
		RedisPassword:  os.Getenv("IDENTITY_REDIS_PASSWORD"),
		RedisDB:        getint("IDENTITY_REDIS_DB", 0),

		CredentialScheme: getenv("IDENTITY_CREDENTIAL_SCHEME", "plaintext"),

		BootstrapUsername:   getenv("IDENTITY_BOOTSTRAP_USERNAME", "root"),
		BootstrapEmail:      getenv("IDENTITY_BOOTSTRAP_EMAIL", "root@gamehub.local"),
		BootstrapCredential: getenv("IDENTITY_BOOTSTRAP_CREDENTIAL", "change-me"),

		ListenAddr: getenv("RECORDD_ADDR", ":8080"),
		MySQLDSN:   os.Getenv("RECORDD_MYSQL_DSN"),
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getbool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getint(key string, def int) int {
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

func getdur(key string, def time.Duration) time.Duration {
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
