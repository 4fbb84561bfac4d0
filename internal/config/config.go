// Package config loads the process-wide immutable configuration snapshot
// from the environment, following the envOrDefault pattern the rest of the
// stack uses for its CLI entry points.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config is the immutable snapshot read once at startup. Nothing in the
// module re-reads the environment after Load returns.
type Config struct {
	LogLevel string
	Version  string

	DatabasePath string

	NotamAPIURL string
	NotamAPIKey string

	Airports    []string
	SearchTerms []string

	UpdateIntervalSeconds int
	MinRequestDelay       float64
	MaxRequestDelay       float64

	DroneKeywords []string

	ClosureScore     int
	DroneScore       int
	RestrictionScore int

	NtfyURL            string
	NtfyDigestInterval int
	NtfyMinScore       int
	NtfyMaxDigestItems int

	PurgeExpiredAfterDays   int
	PurgeCancelledAfterDays int
}

// Load reads every configuration key from the environment, applies
// defaults, and validates the result. It fails fast: callers that receive
// a non-nil error should exit(1) without attempting to run.
func Load() (Config, error) {
	cfg := Config{
		LogLevel:     envOrDefault("LOG_LEVEL", "INFO"),
		Version:      envOrDefault("VERSION", "v0.0.0"),
		DatabasePath: envOrDefault("DATABASE_PATH", "./data/notam.db"),

		NotamAPIURL: os.Getenv("NOTAM_API_URL"),
		NotamAPIKey: os.Getenv("NOTAM_API_KEY"),

		Airports:    envOrDefaultCSV("AIRPORTS", ""),
		SearchTerms: envOrDefaultCSV("SEARCH_TERMS", ""),

		UpdateIntervalSeconds: envOrDefaultInt("UPDATE_INTERVAL_SECONDS", 3600),
		MinRequestDelay:       envOrDefaultFloat("MIN_REQUEST_DELAY", 2),
		MaxRequestDelay:       envOrDefaultFloat("MAX_REQUEST_DELAY", 5),

		DroneKeywords: lowerAll(envOrDefaultCSV("DRONE_KEYWORDS", "drone,UAS,unmanned,RPAS")),

		ClosureScore:     envOrDefaultInt("CLOSURE_SCORE", 50),
		DroneScore:       envOrDefaultInt("DRONE_SCORE", 30),
		RestrictionScore: envOrDefaultInt("RESTRICTION_SCORE", 20),

		NtfyURL:            os.Getenv("NTFY_URL"),
		NtfyDigestInterval: envOrDefaultInt("NTFY_DIGEST_INTERVAL", 3600),
		NtfyMinScore:       envOrDefaultInt("NTFY_MIN_SCORE", 80),
		NtfyMaxDigestItems: envOrDefaultInt("NTFY_MAX_DIGEST_ITEMS", 10),

		PurgeExpiredAfterDays:   envOrDefaultInt("PURGE_EXPIRED_AFTER_DAYS", 30),
		PurgeCancelledAfterDays: envOrDefaultInt("PURGE_CANCELLED_AFTER_DAYS", 7),
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if len(c.Airports) == 0 && len(c.SearchTerms) == 0 {
		return fmt.Errorf("config: at least one of AIRPORTS or SEARCH_TERMS is required")
	}
	if c.NotamAPIURL == "" {
		return fmt.Errorf("config: NOTAM_API_URL is required")
	}
	if c.Version == "v0.0.0" {
		return fmt.Errorf("config: VERSION must be set to a real release version")
	}
	return nil
}

// Mode reports which scheduler mode this configuration selects. Aerodrome
// mode takes priority when both target lists are non-empty.
func (c Config) Mode() string {
	if len(c.Airports) > 0 {
		return "aerodrome"
	}
	return "search"
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultInt(key string, def int) int {
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

func envOrDefaultFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func envOrDefaultCSV(key, def string) []string {
	v := os.Getenv(key)
	if v == "" {
		v = def
	}
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func lowerAll(ss []string) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = strings.ToLower(s)
	}
	return out
}
