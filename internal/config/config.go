package config // package config loads application configuration from environment variables

import (
	"log"
	"os"
	"strconv"
)

// Config holds all runtime configuration values. Each field corresponds to
// an environment variable. The database is opened twice: once with the
// restricted application account used by the general CRUD repositories and
// once with the elevated account that is allowed to mutate confirmation
// rows. Keeping the credentials apart makes the trust boundary around the
// decision endpoint explicit instead of conventional.
type Config struct {
	Env    string // application environment (e.g. "dev", "prod")
	Port   string // HTTP port to listen on
	DBHost string // database host address
	DBPort string // database port number
	DBName string // database name

	DBUser string // restricted database username
	DBPass string // restricted database password (optional)

	DBElevatedUser string // elevated username used only for confirmation transitions
	DBElevatedPass string // elevated password (optional)

	JWTSecret      string // secret used to sign JWTs
	AccessTTLMin   int    // access token time-to-live in minutes
	RefreshTTLDays int    // refresh token time-to-live in days
	BcryptCost     int    // bcrypt cost for password hashing

	Confirmation ConfirmationConfig // debt-confirmation workflow settings
}

// ConfirmationConfig groups the knobs of the confirmation-token workflow so
// the issuer/resolver/transition service can be constructed and tested
// without reaching into the environment.
type ConfirmationConfig struct {
	BaseURL       string // public base URL embedded into confirmation links
	TTLDays       int    // how many days an issued token stays actionable
	TokenBytes    int    // random bytes per token (hex doubles the length)
	IssueAttempts int    // bounded retries on a token uniqueness collision
}

// Load reads configuration values from environment variables and returns a
// Config. Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message. The elevated database
// account falls back to the restricted one when not configured, which is
// acceptable for local development but defeats the trust boundary in
// production.
func Load() Config {
	cfg := Config{
		Env:            must("APP_ENV"),
		Port:           must("APP_PORT"),
		DBHost:         must("DB_HOST"),
		DBPort:         must("DB_PORT"),
		DBName:         must("DB_NAME"),
		DBUser:         must("DB_USER"),
		DBPass:         os.Getenv("DB_PASS"),
		DBElevatedUser: os.Getenv("DB_ELEVATED_USER"),
		DBElevatedPass: os.Getenv("DB_ELEVATED_PASS"),
		JWTSecret:      must("JWT_SECRET"),
		AccessTTLMin:   mustInt("ACCESS_TOKEN_TTL_MIN"),
		RefreshTTLDays: mustInt("REFRESH_TOKEN_TTL_DAYS"),
		BcryptCost:     mustInt("BCRYPT_COST"),
		Confirmation: ConfirmationConfig{
			BaseURL:       must("APP_BASE_URL"),
			TTLDays:       intDefault("CONFIRMATION_TTL_DAYS", 7),
			TokenBytes:    intDefault("CONFIRMATION_TOKEN_BYTES", 32),
			IssueAttempts: intDefault("CONFIRMATION_ISSUE_ATTEMPTS", 3),
		},
	}
	if cfg.DBElevatedUser == "" {
		cfg.DBElevatedUser = cfg.DBUser
		cfg.DBElevatedPass = cfg.DBPass
	}
	return cfg
}

// must retrieves the value of a required environment variable. If the
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

// intDefault reads an optional integer variable, returning def when the
// variable is unset or unparsable.
func intDefault(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
