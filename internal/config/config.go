// Package config provides functionality for managing configuration options
// for the memedesk binaries using command-line flags, an optional JSON file,
// a .env file and environment variables.
package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Duration is a time.Duration that reads "18s"-style strings from JSON.
type Duration time.Duration

// UnmarshalJSON accepts either a Go duration string or a number of milliseconds.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		v, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("parse duration %q: %w", s, err)
		}
		*d = Duration(v)
		return nil
	}
	var ms int64
	if err := json.Unmarshal(b, &ms); err != nil {
		return fmt.Errorf("duration must be a string or milliseconds: %w", err)
	}
	*d = Duration(time.Duration(ms) * time.Millisecond)
	return nil
}

// ServerOptions holds the configuration of the warmup relay server.
type ServerOptions struct {
	// Addr defines the server's listening address (ip:port).
	Addr string `json:"addr"`

	// BackendURL is the origin of the backend API that is being warmed up.
	BackendURL string `json:"api_url"`

	// WarmupKey is the shared secret sent as x-warmup-key. It never leaves the server.
	WarmupKey string `json:"warmup_key"`

	// WarmupAttempts bounds the number of probes per relay call.
	WarmupAttempts int `json:"warmup_attempts"`

	// WarmupTimeout bounds a single probe.
	WarmupTimeout Duration `json:"warmup_timeout"`

	// WarmupBackoff is the pause between failed probes.
	WarmupBackoff Duration `json:"warmup_backoff"`

	// TLSCert and TLSKey enable HTTPS when both are set.
	TLSCert string `json:"tls_cert"`
	TLSKey  string `json:"tls_key"`

	// LogLevel is the zap level name.
	LogLevel string `json:"log_level"`

	// Config is the path to the Config file.
	Config string `json:"-"`
}

// ClientOptions holds the configuration of the interactive client.
type ClientOptions struct {
	// APIURL is the base origin every API path is appended to.
	APIURL string `json:"api_url"`

	// WarmupURL is the relay endpoint triggered on cold-start failures.
	WarmupURL string `json:"warmup_url"`

	// SessionFile is the JSON file that keeps the bearer token between runs.
	SessionFile string `json:"session_file"`

	// SessionDSN selects the SQL session store instead of the file store.
	SessionDSN string `json:"session_dsn"`

	// Profile names the SQL session row.
	Profile string `json:"profile"`

	// Prompt selects the credential prompt: "tui", "plain" or "" for auto.
	Prompt string `json:"prompt"`

	// CAFile is an optional PEM bundle trusted in addition to system roots.
	CAFile string `json:"ca_file"`

	// DexScreenerURL is the metadata provider origin for logo lookups.
	DexScreenerURL string `json:"dexscreener_api"`

	// LogoLimit caps the logo lookups of a single pass.
	LogoLimit int `json:"logo_limit"`

	// LogLevel is the zap level name.
	LogLevel string `json:"log_level"`

	// Config is the path to the Config file.
	Config string `json:"-"`
}

// ParseServer parses args (without the program name) into ServerOptions.
func ParseServer(args []string) (*ServerOptions, error) {
	_ = godotenv.Load()

	options := &ServerOptions{}
	var timeout, backoff time.Duration

	fs := flag.NewFlagSet("memedesk-server", flag.ContinueOnError)
	fs.StringVar(&options.Addr, "a", "localhost:3000", "run on ip:port server")
	fs.StringVar(&options.BackendURL, "api", "", "backend API origin")
	fs.StringVar(&options.WarmupKey, "warmup-key", "", "shared warmup secret")
	fs.IntVar(&options.WarmupAttempts, "warmup-attempts", 3, "probe attempts per warmup")
	fs.DurationVar(&timeout, "warmup-timeout", 18*time.Second, "timeout of a single probe")
	fs.DurationVar(&backoff, "warmup-backoff", 1500*time.Millisecond, "pause between probes")
	fs.StringVar(&options.TLSCert, "tls-cert", "", "path to server certificate")
	fs.StringVar(&options.TLSKey, "tls-key", "", "path to server key")
	fs.StringVar(&options.LogLevel, "log-level", "info", "log level")
	fs.StringVar(&options.Config, "config", "config.json", "path to config file")
	fs.StringVar(&options.Config, "c", "config.json", "path to config file (shorthand)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	options.WarmupTimeout = Duration(timeout)
	options.WarmupBackoff = Duration(backoff)

	if configPath := os.Getenv("CONFIG"); configPath != "" {
		options.Config = configPath
	}
	if err := loadFile(options.Config, options); err != nil {
		return nil, err
	}

	if v := os.Getenv("SERVER_ADDRESS"); v != "" {
		options.Addr = v
	}
	if v := os.Getenv("API_URL"); v != "" {
		options.BackendURL = v
	}
	if v := os.Getenv("WARMUP_KEY"); v != "" {
		options.WarmupKey = v
	}
	if v := os.Getenv("WARMUP_ATTEMPTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("parse WARMUP_ATTEMPTS: %w", err)
		}
		options.WarmupAttempts = n
	}
	if v := os.Getenv("WARMUP_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("parse WARMUP_TIMEOUT: %w", err)
		}
		options.WarmupTimeout = Duration(d)
	}
	if v := os.Getenv("WARMUP_BACKOFF"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("parse WARMUP_BACKOFF: %w", err)
		}
		options.WarmupBackoff = Duration(d)
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		options.LogLevel = v
	}

	if options.WarmupAttempts < 1 {
		options.WarmupAttempts = 1
	}
	return options, nil
}

// ParseClient parses args (without the program name) into ClientOptions.
func ParseClient(args []string) (*ClientOptions, error) {
	_ = godotenv.Load()

	options := &ClientOptions{}

	fs := flag.NewFlagSet("memedesk", flag.ContinueOnError)
	fs.StringVar(&options.APIURL, "api", "", "backend API origin")
	fs.StringVar(&options.WarmupURL, "warmup-url", "http://localhost:3000/api/warmup", "warmup relay endpoint")
	fs.StringVar(&options.SessionFile, "session-file", "session.json", "file that keeps the session token")
	fs.StringVar(&options.SessionDSN, "session-dsn", "", "sqlite path or postgres:// DSN for the session store")
	fs.StringVar(&options.Profile, "profile", "default", "session profile name")
	fs.StringVar(&options.Prompt, "prompt", "", "credential prompt: tui | plain")
	fs.StringVar(&options.CAFile, "ca", "", "extra CA bundle (PEM)")
	fs.StringVar(&options.DexScreenerURL, "dexscreener", "https://api.dexscreener.com", "token metadata provider")
	fs.IntVar(&options.LogoLimit, "logo-limit", 40, "max logo lookups per pass")
	fs.StringVar(&options.LogLevel, "log-level", "warn", "log level")
	fs.StringVar(&options.Config, "config", "memedesk.json", "path to config file")
	fs.StringVar(&options.Config, "c", "memedesk.json", "path to config file (shorthand)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if configPath := os.Getenv("CONFIG"); configPath != "" {
		options.Config = configPath
	}
	if err := loadFile(options.Config, options); err != nil {
		return nil, err
	}

	if v := os.Getenv("API_URL"); v != "" {
		options.APIURL = v
	}
	if v := os.Getenv("WARMUP_URL"); v != "" {
		options.WarmupURL = v
	}
	if v := os.Getenv("SESSION_FILE"); v != "" {
		options.SessionFile = v
	}
	if v := os.Getenv("SESSION_DSN"); v != "" {
		options.SessionDSN = v
	}
	if v := os.Getenv("DEXSCREENER_API"); v != "" {
		options.DexScreenerURL = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		options.LogLevel = v
	}
	return options, nil
}

// loadFile overlays the JSON file at path onto dst. A missing file is not an error.
func loadFile(path string, dst any) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("error while reading config file: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("error while parsing config file: %w", err)
	}
	return nil
}
