package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config aggregates application configuration values.
type Config struct {
	HTTP     HTTPConfig
	Graph    GraphConfig
	Logging  LoggingConfig
	Database DatabaseConfig
	Auth     AuthConfig
	Redis    RedisConfig
	Compare  CompareConfig
}

// HTTPConfig governs HTTP server behaviour.
type HTTPConfig struct {
	Host              string
	Port              int
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration
	AllowedOriginsCSV string
}

// GraphConfig describes connectivity to the graph database holding comparison
// history. An empty URI disables history.
type GraphConfig struct {
	URI            string
	Database       string
	Username       string
	Password       string
	MaxConnections int
}

// LoggingConfig controls structured logging settings.
type LoggingConfig struct {
	Level         string
	Format        string // text|json
	IncludeCaller bool
}

// DatabaseConfig points at the sqlite file backing user accounts.
type DatabaseConfig struct {
	Path string
}

// AuthConfig controls session token issuance.
type AuthConfig struct {
	Secret       string
	TokenTTL     time.Duration
	Issuer       string
	CookieSecure bool
}

// RedisConfig enables the shared token revocation store when Addr is set.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// CompareConfig governs the /compare upload endpoint.
type CompareConfig struct {
	MaxUploadBytes int64
	DevMode        bool
	DevDataDir     string
	DefaultTARFile string
	DefaultECBFile string
}

const (
	defaultHost             = "0.0.0.0"
	defaultPort             = 8080
	defaultReadTimeout      = "10s"
	defaultWriteTimeout     = "30s"
	defaultIdleTimeout      = "60s"
	defaultShutdownTimeout  = "10s"
	defaultLoggingLevel     = "info"
	defaultLoggingFormat    = "text"
	defaultGraphMaxSessions = 10
	defaultDBPath           = "users.db"
	defaultTokenTTL         = "24h"
	defaultIssuer           = "shipkeep"
	defaultMaxUploadBytes   = 32 << 20

	// DefaultAuthSecret is only suitable for local development.
	DefaultAuthSecret = "dev-key-please-change-me-before-deploying"

	minSecretLength = 32
)

// Load reads configuration from environment variables and, when CONFIG_FILE is
// set, from that file. Environment variables win over the file.
func Load() (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	return fromViper(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", defaultHost)
	v.SetDefault("server.port", strconv.Itoa(defaultPort))
	v.SetDefault("server.read_timeout", defaultReadTimeout)
	v.SetDefault("server.write_timeout", defaultWriteTimeout)
	v.SetDefault("server.idle_timeout", defaultIdleTimeout)
	v.SetDefault("server.shutdown_timeout", defaultShutdownTimeout)
	v.SetDefault("server.allowed_origins", "")

	v.SetDefault("log.level", defaultLoggingLevel)
	v.SetDefault("log.format", defaultLoggingFormat)
	v.SetDefault("log.include_caller", false)

	v.SetDefault("graph.uri", "")
	v.SetDefault("graph.database", "")
	v.SetDefault("graph.username", "")
	v.SetDefault("graph.password", "")
	v.SetDefault("graph.max_connections", defaultGraphMaxSessions)

	v.SetDefault("db.path", defaultDBPath)

	v.SetDefault("auth.secret", DefaultAuthSecret)
	v.SetDefault("auth.token_ttl", defaultTokenTTL)
	v.SetDefault("auth.issuer", defaultIssuer)
	v.SetDefault("auth.cookie_secure", false)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("compare.max_upload_bytes", defaultMaxUploadBytes)
	v.SetDefault("compare.dev_mode", false)
	v.SetDefault("compare.dev_data_dir", "")
	v.SetDefault("compare.default_tar_file", "ServiceCodes_TAR.csv")
	v.SetDefault("compare.default_ecb_file", "ServiceCodes_ECB.csv")
}

func fromViper(v *viper.Viper) (Config, error) {
	cfg := Config{
		HTTP: HTTPConfig{
			Host:              v.GetString("server.host"),
			AllowedOriginsCSV: v.GetString("server.allowed_origins"),
		},
		Logging: LoggingConfig{
			Level:         v.GetString("log.level"),
			Format:        v.GetString("log.format"),
			IncludeCaller: v.GetBool("log.include_caller"),
		},
		Graph: GraphConfig{
			URI:            v.GetString("graph.uri"),
			Database:       v.GetString("graph.database"),
			Username:       v.GetString("graph.username"),
			Password:       v.GetString("graph.password"),
			MaxConnections: v.GetInt("graph.max_connections"),
		},
		Database: DatabaseConfig{
			Path: v.GetString("db.path"),
		},
		Auth: AuthConfig{
			Secret:       v.GetString("auth.secret"),
			Issuer:       v.GetString("auth.issuer"),
			CookieSecure: v.GetBool("auth.cookie_secure"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Compare: CompareConfig{
			MaxUploadBytes: v.GetInt64("compare.max_upload_bytes"),
			DevMode:        v.GetBool("compare.dev_mode"),
			DevDataDir:     v.GetString("compare.dev_data_dir"),
			DefaultTARFile: v.GetString("compare.default_tar_file"),
			DefaultECBFile: v.GetString("compare.default_ecb_file"),
		},
	}

	port, err := parsePort(v.GetString("server.port"))
	if err != nil {
		return Config{}, err
	}
	cfg.HTTP.Port = port

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"server.read_timeout", &cfg.HTTP.ReadTimeout},
		{"server.write_timeout", &cfg.HTTP.WriteTimeout},
		{"server.idle_timeout", &cfg.HTTP.IdleTimeout},
		{"server.shutdown_timeout", &cfg.HTTP.ShutdownTimeout},
		{"auth.token_ttl", &cfg.Auth.TokenTTL},
	}
	for _, d := range durations {
		parsed, err := time.ParseDuration(v.GetString(d.key))
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", envName(d.key), err)
		}
		*d.dst = parsed
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports configuration combinations the service cannot run with.
func (c Config) Validate() error {
	var errs []error
	if len(c.Auth.Secret) < minSecretLength {
		errs = append(errs, fmt.Errorf("AUTH_SECRET must be at least %d characters", minSecretLength))
	}
	if c.Auth.TokenTTL <= 0 {
		errs = append(errs, errors.New("AUTH_TOKEN_TTL must be positive"))
	}
	if c.Compare.MaxUploadBytes <= 0 {
		errs = append(errs, errors.New("COMPARE_MAX_UPLOAD_BYTES must be positive"))
	}
	if c.Compare.DevMode && c.Compare.DevDataDir == "" {
		errs = append(errs, errors.New("COMPARE_DEV_DATA_DIR is required when COMPARE_DEV_MODE is enabled"))
	}
	if c.Database.Path == "" {
		errs = append(errs, errors.New("DB_PATH is required"))
	}
	return errors.Join(errs...)
}

// AllowedOrigins splits the CSV origin list, dropping blanks.
func (c HTTPConfig) AllowedOrigins() []string {
	if c.AllowedOriginsCSV == "" {
		return nil
	}
	var origins []string
	for _, part := range strings.Split(c.AllowedOriginsCSV, ",") {
		origin := strings.TrimSpace(part)
		if origin == "" {
			continue
		}
		origins = append(origins, origin)
	}
	return origins
}

func parsePort(raw string) (int, error) {
	port, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid SERVER_PORT value %q: %w", raw, err)
	}
	if port <= 0 || port > 65535 {
		return 0, fmt.Errorf("port %d is out of range", port)
	}
	return port, nil
}

func envName(key string) string {
	return strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}
