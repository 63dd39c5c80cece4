package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type fileConfig struct {
	DatabaseURL            string `yaml:"database_url"`
	RedisURL               string `yaml:"redis_url"`
	ServerPort             string `yaml:"server_port"`
	ListURL                string `yaml:"epg_list_url"`
	RemotePrefix           string `yaml:"epg_remote_prefix"`
	LocalDir               string `yaml:"epg_local_dir"`
	USAPath                string `yaml:"epg_usa_path"`
	FetchDelay             string `yaml:"fetch_delay"`
	UserAgent              string `yaml:"user_agent"`
	Timeout                string `yaml:"timeout"`
	VodDir                 string `yaml:"vod_dir"`
	VodDefaultCategory     string `yaml:"vod_default_category"`
	VodDefaultAddlCategory string `yaml:"vod_default_additional_category"`
	GuideTimezone          string `yaml:"guide_timezone"`
}

// LoadFromFile loads config from a YAML file. database_url is required.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f fileConfig
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	if f.DatabaseURL == "" {
		return nil, ErrMissingDatabaseURL
	}
	c := &Config{
		DatabaseURL:            f.DatabaseURL,
		RedisURL:               f.RedisURL,
		ServerPort:             f.ServerPort,
		ListURL:                f.ListURL,
		RemotePrefix:           f.RemotePrefix,
		LocalDir:               f.LocalDir,
		USAPath:                f.USAPath,
		UserAgent:              f.UserAgent,
		VodDir:                 f.VodDir,
		VodDefaultCategory:     f.VodDefaultCategory,
		VodDefaultAddlCategory: f.VodDefaultAddlCategory,
		GuideTimezone:          f.GuideTimezone,
		FetchDelay:             500 * time.Millisecond,
		Timeout:                30 * time.Second,
	}
	if f.FetchDelay != "" {
		if d, err := time.ParseDuration(f.FetchDelay); err == nil {
			c.FetchDelay = d
		}
	}
	if f.Timeout != "" {
		if d, err := time.ParseDuration(f.Timeout); err == nil {
			c.Timeout = d
		}
	}
	c.applyDefaults()
	return c, nil
}
