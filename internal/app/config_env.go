package app

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// EnvPrefix namespaces every environment variable the crawler reads.
const EnvPrefix = "LISTINGCRAWL_"

func getenv(key string) string {
	return strings.TrimSpace(os.Getenv(EnvPrefix + key))
}

// ApplyEnvOverrides forcefully overrides cfg fields with environment variables
// that are set. Used so env beats a config file while flags stay highest.
func ApplyEnvOverrides(cfg *Config) {
	if cfg == nil {
		return
	}
	set := func(dst *string, key string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	set(&cfg.BaseURL, "BASE_URL")
	set(&cfg.StartPath, "START_PATH")
	set(&cfg.StartURL, "START_URL")
	set(&cfg.OutputPath, "OUTPUT")
	set(&cfg.UserAgent, "USER_AGENT")
	set(&cfg.ProxyURL, "PROXY")
	set(&cfg.CacheDir, "CACHE_DIR")

	if n, ok := envInt("MAX_PAGES"); ok {
		cfg.MaxPages = n
	}
	if n, ok := envInt("WORKERS"); ok {
		cfg.Workers = n
	}
	for key, dst := range map[string]*time.Duration{
		"DELAY":              &cfg.Delay,
		"DETAIL_DELAY_FLOOR": &cfg.DetailDelayFloor,
		"TIMEOUT":            &cfg.Timeout,
		"CACHE_MAX_AGE":      &cfg.CacheMaxAge,
	} {
		if d, ok := envDuration(key); ok {
			*dst = d
		}
	}

	setBool := func(dst *bool, key string) {
		if v, ok := envBool(key); ok {
			*dst = v
		}
	}
	setBool(&cfg.CacheClear, "CACHE_CLEAR")
	setBool(&cfg.SkipDetails, "SKIP_DETAILS")
	setBool(&cfg.Verbose, "VERBOSE")
	setBool(&cfg.RespectRobots, "RESPECT_ROBOTS")
}

func envInt(key string) (int, bool) {
	s := getenv(key)
	if s == "" {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// envDuration accepts Go durations ("1.5s") or plain seconds ("1.5").
func envDuration(key string) (time.Duration, bool) {
	s := getenv(key)
	if s == "" {
		return 0, false
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d, true
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f >= 0 {
		return time.Duration(f * float64(time.Second)), true
	}
	return 0, false
}

func envBool(key string) (bool, bool) {
	switch strings.ToLower(getenv(key)) {
	case "1", "true", "yes", "on":
		return true, true
	case "0", "false", "no", "off":
		return false, true
	}
	return false, false
}
