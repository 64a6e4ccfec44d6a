package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	yaml "gopkg.in/yaml.v3"
)

// FileConfig is the single-file configuration schema. Durations are strings
// accepted by time.ParseDuration, e.g. "1.5s".
type FileConfig struct {
	BaseURL   string `yaml:"baseUrl" json:"baseUrl"`
	StartPath string `yaml:"startPath" json:"startPath"`
	StartURL  string `yaml:"startUrl" json:"startUrl"`
	MaxPages  int    `yaml:"maxPages" json:"maxPages"`
	Delay     string `yaml:"delay" json:"delay"`
	Output    string `yaml:"output" json:"output"`

	HTTP struct {
		UserAgent        string `yaml:"userAgent" json:"userAgent"`
		Proxy            string `yaml:"proxy" json:"proxy"`
		Timeout          string `yaml:"timeout" json:"timeout"`
		Workers          int    `yaml:"workers" json:"workers"`
		DetailDelayFloor string `yaml:"detailDelayFloor" json:"detailDelayFloor"`
	} `yaml:"http" json:"http"`

	Cache struct {
		Dir    string `yaml:"dir" json:"dir"`
		MaxAge string `yaml:"maxAge" json:"maxAge"`
		Clear  bool   `yaml:"clear" json:"clear"`
	} `yaml:"cache" json:"cache"`

	Robots *struct {
		Respect *bool `yaml:"respect" json:"respect"`
	} `yaml:"robots" json:"robots"`

	SkipDetails bool `yaml:"skipDetails" json:"skipDetails"`
	Verbose     bool `yaml:"verbose" json:"verbose"`
}

// LoadConfigFile reads YAML or JSON into FileConfig.
func LoadConfigFile(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	switch ext := filepath.Ext(path); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse yaml: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse json: %w", err)
		}
	default:
		if err := yaml.Unmarshal(b, &fc); err != nil {
			if jerr := json.Unmarshal(b, &fc); jerr != nil {
				return fc, fmt.Errorf("parse config: %v (yaml) / %v (json)", err, jerr)
			}
		}
	}
	return fc, nil
}

// ApplyFileConfig overlays every value present in fc onto cfg. Call it before
// env and flags so they keep precedence.
func ApplyFileConfig(cfg *Config, fc FileConfig) error {
	if cfg == nil {
		return nil
	}
	setString := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	setDuration := func(dst *time.Duration, key, v string) error {
		if v == "" {
			return nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: %s: %w", key, err)
		}
		*dst = d
		return nil
	}

	setString(&cfg.BaseURL, fc.BaseURL)
	setString(&cfg.StartPath, fc.StartPath)
	setString(&cfg.StartURL, fc.StartURL)
	setString(&cfg.OutputPath, fc.Output)
	if fc.MaxPages > 0 {
		cfg.MaxPages = fc.MaxPages
	}
	if err := setDuration(&cfg.Delay, "delay", fc.Delay); err != nil {
		return err
	}

	setString(&cfg.UserAgent, fc.HTTP.UserAgent)
	setString(&cfg.ProxyURL, fc.HTTP.Proxy)
	if err := setDuration(&cfg.Timeout, "http.timeout", fc.HTTP.Timeout); err != nil {
		return err
	}
	if err := setDuration(&cfg.DetailDelayFloor, "http.detailDelayFloor", fc.HTTP.DetailDelayFloor); err != nil {
		return err
	}
	if fc.HTTP.Workers > 0 {
		cfg.Workers = fc.HTTP.Workers
	}

	setString(&cfg.CacheDir, fc.Cache.Dir)
	if err := setDuration(&cfg.CacheMaxAge, "cache.maxAge", fc.Cache.MaxAge); err != nil {
		return err
	}
	if fc.Cache.Clear {
		cfg.CacheClear = true
	}

	if fc.Robots != nil && fc.Robots.Respect != nil {
		cfg.RespectRobots = *fc.Robots.Respect
	}
	if fc.SkipDetails {
		cfg.SkipDetails = true
	}
	if fc.Verbose {
		cfg.Verbose = true
	}
	return nil
}

// ErrInvalidConfig wraps every ValidateConfig failure.
var ErrInvalidConfig = errors.New("invalid config")

// ValidateConfig rejects settings a crawl cannot run with.
func ValidateConfig(cfg Config) error {
	start := cfg.ResolvedStartURL()
	if start == "" {
		return fmt.Errorf("%w: start url is required (set -base and -path, or -start)", ErrInvalidConfig)
	}
	u, err := url.Parse(start)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: start url %q must be an absolute http(s) url", ErrInvalidConfig, start)
	}
	if trim(cfg.OutputPath) == "" {
		return fmt.Errorf("%w: output path is required", ErrInvalidConfig)
	}
	if cfg.MaxPages <= 0 {
		return fmt.Errorf("%w: max pages must be positive, got %d", ErrInvalidConfig, cfg.MaxPages)
	}
	if cfg.Delay < 0 || cfg.DetailDelayFloor < 0 || cfg.Timeout < 0 || cfg.CacheMaxAge < 0 {
		return fmt.Errorf("%w: durations must not be negative", ErrInvalidConfig)
	}
	if cfg.Workers < 0 {
		return fmt.Errorf("%w: workers must not be negative", ErrInvalidConfig)
	}
	if p := trim(cfg.ProxyURL); p != "" {
		pu, err := url.Parse(p)
		if err != nil || pu.Host == "" {
			return fmt.Errorf("%w: proxy url %q is not valid", ErrInvalidConfig, p)
		}
	}
	return nil
}

func trim(s string) string {
	i := 0
	j := len(s)
	for i < j && (s[i] == ' ' || s[i] == '\t' || s[i] == '\n' || s[i] == '\r') {
		i++
	}
	for j > i && (s[j-1] == ' ' || s[j-1] == '\t' || s[j-1] == '\n' || s[j-1] == '\r') {
		j--
	}
	return s[i:j]
}
