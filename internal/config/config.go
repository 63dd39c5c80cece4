package config

import (
	"errors"
	"os"
	"time"
)

// ErrMissingDatabaseURL is returned when no database DSN is configured.
var ErrMissingDatabaseURL = errors.New("DATABASE_URL is required")

// Config holds application configuration: database, optional Redis, the
// ingest pipeline knobs, and the guide server settings.
type Config struct {
	DatabaseURL string
	RedisURL    string
	ServerPort  string

	// Ingest pipeline.
	ListURL      string        // master catalog CSV URL
	RemotePrefix string        // upstream host prefix feeds live under
	LocalDir     string        // non-empty switches to local-mirror mode
	USAPath      string        // URL prefix classifying feeds as the USA provider
	FetchDelay   time.Duration // politeness gap between feeds
	UserAgent    string
	Timeout      time.Duration

	// VOD packaging.
	VodDir                 string // content directory for generated manifests
	VodDefaultCategory     string
	VodDefaultAddlCategory string

	// GuideTimezone is the fallback viewer timezone for guide queries that
	// do not name one.
	GuideTimezone string
}

// Load builds config from environment variables.
// If DATABASE_URL is not set, Load tries to load .env.local and .env from the
// current directory. DATABASE_URL is required; everything else has defaults.
func Load() (*Config, error) {
	if os.Getenv("DATABASE_URL") == "" {
		loadEnvFiles()
	}
	c := &Config{
		DatabaseURL:            os.Getenv("DATABASE_URL"),
		RedisURL:               os.Getenv("REDIS_URL"),
		ServerPort:             os.Getenv("SERVER_PORT"),
		ListURL:                os.Getenv("EPG_LIST_URL"),
		RemotePrefix:           os.Getenv("EPG_REMOTE_PREFIX"),
		LocalDir:               os.Getenv("EPG_LOCAL_DIR"),
		UserAgent:              os.Getenv("FETCHER_USER_AGENT"),
		VodDir:                 os.Getenv("VOD_DIR"),
		VodDefaultCategory:     os.Getenv("VOD_DEFAULT_CATEGORY"),
		VodDefaultAddlCategory: os.Getenv("VOD_DEFAULT_ADDITIONAL_CATEGORY"),
		GuideTimezone:          os.Getenv("GUIDE_TIMEZONE"),
		FetchDelay:             500 * time.Millisecond,
		Timeout:                30 * time.Second,
	}
	if s := os.Getenv("FETCH_DELAY"); s != "" {
		if d, err := time.ParseDuration(s); err == nil {
			c.FetchDelay = d
		}
	}
	if s := os.Getenv("FETCHER_TIMEOUT"); s != "" {
		if d, err := time.ParseDuration(s); err == nil {
			c.Timeout = d
		}
	}
	c.applyDefaults()
	if c.DatabaseURL == "" {
		return nil, ErrMissingDatabaseURL
	}
	return c, nil
}

// applyDefaults fills in every optional field.
func (c *Config) applyDefaults() {
	if c.ServerPort == "" {
		c.ServerPort = "8080"
	}
	if c.RemotePrefix == "" {
		c.RemotePrefix = "http://epg.example.org"
	}
	if c.ListURL == "" {
		c.ListURL = c.RemotePrefix + "/epg.csv"
	}
	if c.USAPath == "" {
		c.USAPath = c.RemotePrefix + "/public/xml/usa/"
	}
	if c.UserAgent == "" {
		c.UserAgent = "GuideVault/1.0"
	}
	if c.VodDir == "" {
		c.VodDir = "storage/vod"
	}
	if c.GuideTimezone == "" {
		c.GuideTimezone = "UTC"
	}
}
