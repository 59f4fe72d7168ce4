package config

import (
	"log"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone         = "UTC"
	defaultConcurrency      = 50
	defaultBreakerThreshold = 10
	configPathEnv           = "CINEMA_SCANNER_CONFIG"

	StateBackendFile  = "file"
	StateBackendRedis = "redis"
)

// Config holds high-level settings required across the application.
type Config struct {
	Scanner       ScannerConfig      `yaml:"scanner"`
	Catalog       CatalogConfig      `yaml:"catalog"`
	State         StateConfig        `yaml:"state"`
	Output        OutputConfig       `yaml:"output"`
	Master        MasterConfig       `yaml:"master"`
	Database      DatabaseConfig     `yaml:"database"`
	Publish       PublishConfig      `yaml:"publish"`
	Notifications NotificationConfig `yaml:"notifications"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	Logging       LoggingConfig      `yaml:"logging"`
}

// ScannerConfig tunes how locations are fetched.
type ScannerConfig struct {
	BaseURL           string        `yaml:"baseURL"`
	HomePath          string        `yaml:"homePath"`
	DataPath          string        `yaml:"dataPath"`
	Concurrency       int           `yaml:"concurrency" env:"SCANNER_CONCURRENCY"`
	BreakerThreshold  int           `yaml:"breakerThreshold"`
	JitterMin         time.Duration `yaml:"jitterMin"`
	JitterMax         time.Duration `yaml:"jitterMax"`
	RequestTimeout    time.Duration `yaml:"requestTimeout"`
	RequestsPerSecond float64       `yaml:"requestsPerSecond"`
	Identity          string        `yaml:"identity"`
	UserAgent         string        `yaml:"userAgent"`
}

// CatalogConfig points at the static location list.
type CatalogConfig struct {
	Path string `yaml:"path"`
}

// StateConfig selects where resume sets live.
type StateConfig struct {
	Backend      string `yaml:"backend"`
	FetchedPath  string `yaml:"fetchedPath"`
	FailedPath   string `yaml:"failedPath"`
	RedisURL     string `yaml:"redisURL" env:"REDIS_URL"`
	RedisPrefix  string `yaml:"redisPrefix"`
	ResetFetched bool   `yaml:"resetFetched" env:"RESET_FETCHED"`
}

// OutputConfig names the per-run snapshot files.
type OutputConfig struct {
	Dir    string `yaml:"dir"`
	Movies string `yaml:"movies"`
	Venues string `yaml:"venues"`
}

// MasterConfig describes the long-lived master dataset.
type MasterConfig struct {
	Path                string `yaml:"path"`
	PosterCDN           string `yaml:"posterCDN"`
	LegacyPosterPrefix  string `yaml:"legacyPosterPrefix"`
	CurrentPosterPrefix string `yaml:"currentPosterPrefix"`
}

// DatabaseConfig describes the optional Postgres mirror.
type DatabaseConfig struct {
	DSN string `yaml:"dsn" env:"DATABASE_DSN"`
}

// PublishConfig describes the optional S3 artifact upload.
type PublishConfig struct {
	Bucket string `yaml:"bucket" env:"S3_BUCKET"`
	Prefix string `yaml:"prefix"`
	Region string `yaml:"region" env:"S3_REGION"`
}

// NotificationConfig encapsulates outbound channels (Telegram, etc.).
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken" env:"TELEGRAM_BOT_TOKEN"`
	ChatID   string `yaml:"chatId" env:"TELEGRAM_CHAT_ID"`
}

// SchedulerConfig defines whether and how often the scan repeats.
// A zero interval runs once.
type SchedulerConfig struct {
	Interval time.Duration  `yaml:"interval"`
	Timezone string         `yaml:"timezone"`
	location *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// LoggingConfig controls the slog level.
type LoggingConfig struct {
	Level string `yaml:"level" env:"LOG_LEVEL"`
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	return load(os.Getenv(configPathEnv), nil)
}

// load is Load with an explicit file path and environment; a nil environ
// means the process environment.
func load(path string, environ map[string]string) Config {
	cfg := defaultConfig()

	if path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			fileCfg := defaultConfig()
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = fileCfg
			}
		}
	}

	cfg.applyEnvOverrides(environ)
	cfg.clamp()
	cfg.bindTimezone()

	return cfg
}

func (c *Config) applyEnvOverrides(environ map[string]string) {
	opts := env.Options{}
	if environ != nil {
		opts.Environment = environ
	}
	if err := env.ParseWithOptions(c, opts); err != nil {
		log.Printf("config: cannot apply environment overrides: %v", err)
	}
}

func (c *Config) clamp() {
	s := &c.Scanner
	if s.Concurrency <= 0 {
		s.Concurrency = 1
	}
	if s.BreakerThreshold <= 0 {
		s.BreakerThreshold = defaultBreakerThreshold
	}
	if s.JitterMin < 0 {
		s.JitterMin = 0
	}
	if s.JitterMax < s.JitterMin {
		s.JitterMax = s.JitterMin
	}
	if s.RequestsPerSecond < 0 {
		s.RequestsPerSecond = 0
	}

	backend := strings.ToLower(strings.TrimSpace(c.State.Backend))
	if backend != StateBackendRedis {
		if backend != "" && backend != StateBackendFile {
			log.Printf("config: unknown state backend %s, using %s", c.State.Backend, StateBackendFile)
		}
		backend = StateBackendFile
	}
	c.State.Backend = backend

	if c.Scheduler.Interval < 0 {
		c.Scheduler.Interval = 0
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.location = loc
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Scanner: ScannerConfig{
			BaseURL:          "https://in.bookmyshow.com",
			HomePath:         "/explore/home",
			DataPath:         "/serv/getData?cmd=QUICKBOOK&type=MT",
			Concurrency:      defaultConcurrency,
			BreakerThreshold: defaultBreakerThreshold,
			JitterMin:        time.Second,
			JitterMax:        2 * time.Second,
			RequestTimeout:   30 * time.Second,
			Identity:         "randomized",
		},
		Catalog: CatalogConfig{Path: "citiesbms.json"},
		State: StateConfig{
			Backend:     StateBackendFile,
			FetchedPath: "citiesfetched.json",
			FailedPath:  "citiesfailed.json",
			RedisPrefix: "cinemascanner",
		},
		Output: OutputConfig{Dir: "output", Movies: "movies.json", Venues: "venues.json"},
		Master: MasterConfig{
			Path:                "moviedata.json",
			PosterCDN:           "https://in.bmscdn.com/events/moviecard/",
			LegacyPosterPrefix:  "https://in.bmscdn.com/events/moviecard/",
			CurrentPosterPrefix: "https://assets-in.bmscdn.com/iedb/movies/images/mobile/listing/xlarge/",
		},
		Publish:   PublishConfig{Prefix: "cinemascanner"},
		Scheduler: SchedulerConfig{Timezone: defaultTimezone, location: tz},
		Logging:   LoggingConfig{Level: "debug"},
	}
}
