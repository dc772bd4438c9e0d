package config // package config loads application configuration from environment variables

import (
	"fmt"     // fmt builds error messages for invalid values
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
	"strings" // strings splits list-valued variables
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  The signing material lives in Token and is
// handed to the token service once at startup; nothing reads it globally.
type Config struct {
	Env        string      // application environment (e.g. "dev", "prod")
	Port       string      // HTTP port to listen on
	DB         DBConfig    // database connection settings
	Token      TokenConfig // JWT signing and lifetime settings
	BcryptCost int         // bcrypt cost for password hashing
}

// DBConfig selects the SQL driver and its connection parameters.  Driver is
// "mysql" (default) or "sqlite".  Path is only read for sqlite.
type DBConfig struct {
	Driver string
	User   string
	Pass   string
	Host   string
	Port   string
	Name   string
	Path   string
}

// TokenConfig describes how identity tokens are signed and verified.
// KeyID is written into the token header so that keys can be rotated:
// PreviousKeys keeps retired secrets around for verification only.
type TokenConfig struct {
	Secret       string
	KeyID        string
	PreviousKeys map[string]string
	AccessTTLMin int // 0 disables the exp claim
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
	cfg, err := FromEnv()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	return cfg
}

// FromEnv is Load without the fatal exit.
func FromEnv() (Config, error) {
	driver := strings.ToLower(envStr("DB_DRIVER", "mysql"))
	db := DBConfig{Driver: driver}
	switch driver {
	case "mysql":
		var err error
		if db.User, err = required("DB_USER"); err != nil {
			return Config{}, err
		}
		if db.Host, err = required("DB_HOST"); err != nil {
			return Config{}, err
		}
		if db.Port, err = required("DB_PORT"); err != nil {
			return Config{}, err
		}
		if db.Name, err = required("DB_NAME"); err != nil {
			return Config{}, err
		}
		db.Pass = os.Getenv("DB_PASS") // empty allowed
	case "sqlite":
		db.Path = envStr("DB_PATH", "messagely.db")
	default:
		return Config{}, fmt.Errorf("unsupported DB_DRIVER %q", driver)
	}

	secret, err := required("JWT_SECRET")
	if err != nil {
		return Config{}, err
	}
	prev, err := parseKeys(os.Getenv("JWT_PREVIOUS_KEYS"))
	if err != nil {
		return Config{}, err
	}
	ttl, err := optionalInt("ACCESS_TOKEN_TTL_MIN", 24*60)
	if err != nil {
		return Config{}, err
	}
	cost, err := optionalInt("BCRYPT_COST", 12)
	if err != nil {
		return Config{}, err
	}

	return Config{
		Env:  envStr("APP_ENV", "dev"),
		Port: envStr("APP_PORT", "8080"),
		DB:   db,
		Token: TokenConfig{
			Secret:       secret,
			KeyID:        envStr("JWT_KEY_ID", "v1"),
			PreviousKeys: prev,
			AccessTTLMin: ttl,
		},
		BcryptCost: cost,
	}, nil
}

// parseKeys reads "kid:secret,kid:secret" into a map.
func parseKeys(s string) (map[string]string, error) {
	out := map[string]string{}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		kid, secret, ok := strings.Cut(part, ":")
		if !ok || kid == "" || secret == "" {
			return nil, fmt.Errorf("invalid JWT_PREVIOUS_KEYS entry %q", part)
		}
		out[kid] = secret
	}
	return out, nil
}

// required retrieves the value of a required environment variable.
func required(key string) (string, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return "", fmt.Errorf("missing required env var: %s", key)
	}
	return v, nil
}

// optionalInt is like envInt but reports malformed values instead of
// silently using the default.
func optionalInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid int for %s: %q", key, s)
	}
	return n, nil
}
