package config

import (
	"encoding/hex"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/morsecast/morsecast/internal/media"
	"github.com/morsecast/morsecast/internal/pipeline"
)

// Config holds all runtime configuration for the morsecast server.
// Precedence: CLI flags > env vars > defaults.
type Config struct {
	DataDir        string
	HTTPPort       int
	RedirectPort   int // plain HTTP port redirecting to HTTPS, 0 disables
	TLSCert        string
	TLSKey         string
	LogLevel       string
	LogFormat      string // log output format: "text" or "json"
	CORSOrigins    string
	DatabaseDSN    string  // PostgreSQL DSN; empty selects SQLite under DataDir
	JWTSecret      string  // hex-encoded 32-byte secret; empty disables API auth
	TokenTTL       time.Duration
	MaxMorseLength int     // longest Morse string the service will synthesize
	ToneFrequency  float64 // Hz
	ToneVolume     float64 // fraction of full scale
	Performer      string  // artist name attached to clips
	ClipMaxDays    int     // clip retention, 0 keeps clips forever
	RateLimit      float64 // API requests per second per client IP
	TrustProxy     bool    // take the client IP from X-Forwarded-For / X-Real-IP

	Args []string // positional arguments left after flag parsing
}

// defaults
const (
	defaultDataDir     = "./data"
	defaultHTTPPort    = 8080
	defaultLogLevel    = "info"
	defaultLogFormat   = "text"
	defaultTokenTTL    = 24 * time.Hour
	defaultPerformer   = "morsecast"
	defaultClipMaxDays = 30
	defaultRateLimit   = 5
)

// envPrefix is the prefix for all morsecast environment variables.
const envPrefix = "MORSECAST_"

// Load parses configuration from os.Args and environment variables.
func Load() (*Config, error) {
	return LoadArgs(os.Args[1:])
}

// LoadArgs parses configuration from args and environment variables.
// Precedence: CLI flags > env vars > defaults.
func LoadArgs(args []string) (*Config, error) {
	cfg := &Config{}

	fs := flag.NewFlagSet("morsecast", flag.ContinueOnError)

	fs.StringVar(&cfg.DataDir, "data-dir", defaultDataDir, "data directory for the clip database")
	fs.IntVar(&cfg.HTTPPort, "http-port", defaultHTTPPort, "HTTP server listen port")
	fs.IntVar(&cfg.RedirectPort, "redirect-port", 0, "plain HTTP port that redirects to HTTPS (requires TLS, 0 disables)")
	fs.StringVar(&cfg.TLSCert, "tls-cert", "", "path to TLS certificate file")
	fs.StringVar(&cfg.TLSKey, "tls-key", "", "path to TLS private key file")
	fs.StringVar(&cfg.LogLevel, "log-level", defaultLogLevel, "log level (debug, info, warn, error)")
	fs.StringVar(&cfg.LogFormat, "log-format", defaultLogFormat, "log output format (text, json)")
	fs.StringVar(&cfg.CORSOrigins, "cors-origins", "", "comma-separated list of allowed CORS origins (use * for all)")
	fs.StringVar(&cfg.DatabaseDSN, "db-dsn", "", "PostgreSQL DSN for the clip store (SQLite in data-dir if empty)")
	fs.StringVar(&cfg.JWTSecret, "jwt-secret", "", "hex-encoded 32-byte secret for API bearer tokens (API is open if empty)")
	fs.DurationVar(&cfg.TokenTTL, "token-ttl", defaultTokenTTL, "lifetime of issued API tokens")
	fs.IntVar(&cfg.MaxMorseLength, "max-morse-length", pipeline.DefaultMaxMorseLength, "longest Morse string that will be synthesized")
	fs.Float64Var(&cfg.ToneFrequency, "tone-frequency", media.DefaultParams.FrequencyHz, "tone frequency in Hz")
	fs.Float64Var(&cfg.ToneVolume, "tone-volume", media.DefaultParams.Volume, "tone volume as a fraction of full scale (0-1)")
	fs.StringVar(&cfg.Performer, "performer", defaultPerformer, "performer name attached to clips")
	fs.IntVar(&cfg.ClipMaxDays, "clip-max-days", defaultClipMaxDays, "days to keep stored clips (0 keeps forever)")
	fs.Float64Var(&cfg.RateLimit, "rate-limit", defaultRateLimit, "API requests per second per client IP")
	fs.BoolVar(&cfg.TrustProxy, "trust-proxy", false, "trust X-Forwarded-For and X-Real-IP (only behind a reverse proxy)")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parsing flags: %w", err)
	}

	// Apply env var overrides for any flags not explicitly set on the command line.
	applyEnvOverrides(fs, cfg)
	cfg.Args = fs.Args()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides checks environment variables for any flag that was not
// explicitly provided on the command line. Unparseable numeric values are
// ignored and the flag value kept.
func applyEnvOverrides(fs *flag.FlagSet, cfg *Config) {
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		set[f.Name] = true
	})

	fs.VisitAll(func(f *flag.Flag) {
		if set[f.Name] {
			return
		}
		envVar := envPrefix + strings.ToUpper(strings.ReplaceAll(f.Name, "-", "_"))
		val, ok := os.LookupEnv(envVar)
		if !ok || val == "" {
			return
		}
		switch f.Name {
		case "data-dir":
			cfg.DataDir = val
		case "http-port":
			if v, err := strconv.Atoi(val); err == nil {
				cfg.HTTPPort = v
			}
		case "redirect-port":
			if v, err := strconv.Atoi(val); err == nil {
				cfg.RedirectPort = v
			}
		case "tls-cert":
			cfg.TLSCert = val
		case "tls-key":
			cfg.TLSKey = val
		case "log-level":
			cfg.LogLevel = val
		case "log-format":
			cfg.LogFormat = val
		case "cors-origins":
			cfg.CORSOrigins = val
		case "db-dsn":
			cfg.DatabaseDSN = val
		case "jwt-secret":
			cfg.JWTSecret = val
		case "token-ttl":
			if v, err := time.ParseDuration(val); err == nil {
				cfg.TokenTTL = v
			}
		case "max-morse-length":
			if v, err := strconv.Atoi(val); err == nil {
				cfg.MaxMorseLength = v
			}
		case "tone-frequency":
			if v, err := strconv.ParseFloat(val, 64); err == nil {
				cfg.ToneFrequency = v
			}
		case "tone-volume":
			if v, err := strconv.ParseFloat(val, 64); err == nil {
				cfg.ToneVolume = v
			}
		case "performer":
			cfg.Performer = val
		case "clip-max-days":
			if v, err := strconv.Atoi(val); err == nil {
				cfg.ClipMaxDays = v
			}
		case "rate-limit":
			if v, err := strconv.ParseFloat(val, 64); err == nil {
				cfg.RateLimit = v
			}
		case "trust-proxy":
			if v, err := strconv.ParseBool(val); err == nil {
				cfg.TrustProxy = v
			}
		}
	})
}

// validate checks that the config values are sane.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("http-port must be between 1 and 65535, got %d", c.HTTPPort)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.LogLevel)] {
		return fmt.Errorf("log-level must be one of debug, info, warn, error; got %q", c.LogLevel)
	}
	c.LogLevel = strings.ToLower(c.LogLevel)

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.LogFormat)] {
		return fmt.Errorf("log-format must be one of text, json; got %q", c.LogFormat)
	}
	c.LogFormat = strings.ToLower(c.LogFormat)

	// TLS cert and key must both be set or both be empty.
	if (c.TLSCert == "") != (c.TLSKey == "") {
		return fmt.Errorf("tls-cert and tls-key must both be provided or both be omitted")
	}
	if c.RedirectPort != 0 {
		if c.RedirectPort < 1 || c.RedirectPort > 65535 {
			return fmt.Errorf("redirect-port must be between 1 and 65535, got %d", c.RedirectPort)
		}
		if !c.TLSEnabled() {
			return fmt.Errorf("redirect-port requires tls-cert and tls-key")
		}
		if c.RedirectPort == c.HTTPPort {
			return fmt.Errorf("redirect-port must differ from http-port")
		}
	}

	if c.JWTSecret != "" {
		if _, err := c.JWTSecretBytes(); err != nil {
			return err
		}
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("token-ttl must be positive, got %s", c.TokenTTL)
	}

	if c.MaxMorseLength < 1 {
		return fmt.Errorf("max-morse-length must be positive, got %d", c.MaxMorseLength)
	}
	if err := c.ToneParams().Validate(media.SampleRate); err != nil {
		return err
	}
	if strings.TrimSpace(c.Performer) == "" {
		return fmt.Errorf("performer must not be empty")
	}
	if c.ClipMaxDays < 0 {
		return fmt.Errorf("clip-max-days must not be negative, got %d", c.ClipMaxDays)
	}
	if c.RateLimit <= 0 {
		return fmt.Errorf("rate-limit must be positive, got %g", c.RateLimit)
	}

	return nil
}

// TLSEnabled returns true if TLS certificates are configured.
func (c *Config) TLSEnabled() bool {
	return c.TLSCert != ""
}

// AuthEnabled reports whether the API requires bearer tokens.
func (c *Config) AuthEnabled() bool {
	return c.JWTSecret != ""
}

// JWTSecretBytes returns the decoded 32-byte JWT signing secret, or nil if
// no secret is configured.
func (c *Config) JWTSecretBytes() ([]byte, error) {
	if c.JWTSecret == "" {
		return nil, nil
	}
	key, err := hex.DecodeString(c.JWTSecret)
	if err != nil {
		return nil, fmt.Errorf("decoding jwt secret: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("jwt secret must decode to 32 bytes, got %d", len(key))
	}
	return key, nil
}

// ToneParams returns the configured synthesis parameters.
func (c *Config) ToneParams() media.Params {
	return media.Params{FrequencyHz: c.ToneFrequency, Volume: c.ToneVolume}
}

// PipelineConfig returns the caller policy for the pipeline service.
func (c *Config) PipelineConfig() pipeline.Config {
	return pipeline.Config{
		MaxMorseLength: c.MaxMorseLength,
		Params:         c.ToneParams(),
		Performer:      c.Performer,
	}
}

// SlogHandler returns a slog.Handler configured with the appropriate format
// (text or json) and log level.
func (c *Config) SlogHandler(w *os.File) slog.Handler {
	opts := &slog.HandlerOptions{Level: c.SlogLevel()}
	if c.LogFormat == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// SlogLevel returns the slog.Level corresponding to the configured log level.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
