package cfg

import (
	"cmp"
	"fmt"
	"slices"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

var snapshotBackends = []string{"db", "local", "gcs", "redis"}

type rawCfg struct {
	// Storage configuration
	DBPath          string `long:"db-path" env:"DB_PATH" default:"./data/regwatch.db" description:"Path to the SQLite database file"`
	SnapshotBackend string `long:"snapshot-backend" env:"SNAPSHOT_BACKEND" default:"db" description:"Snapshot store backend (db, local, gcs, redis)"`
	SnapshotDir     string `long:"snapshot-dir" env:"SNAPSHOT_DIR" default:"./data/snapshots" description:"Directory for the local snapshot backend"`
	GCSBucket       string `long:"gcs-bucket" env:"GCS_BUCKET" description:"Bucket for the gcs snapshot backend"`
	RedisAddr       string `long:"redis-addr" env:"REDIS_ADDR" default:"localhost:6379" description:"Redis address for the redis snapshot backend"`

	// Application configuration
	SourcesDir        string  `long:"sources-dir" env:"SOURCES_DIR" default:"./sources" description:"Directory containing source configuration files"`
	Port              string  `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	BaseUrl           string  `long:"base-url" env:"BASE_URL" description:"Public base URL for the service (e.g., https://alerts.example.com)"`
	WorkerCount       int     `long:"worker-count" env:"WORKER_COUNT" default:"2" description:"Number of background workers for batch processing"`
	SchedulerInterval int     `long:"scheduler-interval" env:"SCHEDULER_INTERVAL" default:"0" description:"Batch interval in seconds (0 disables the interval trigger)"`
	APIAccessKey      string  `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`
	FetchTimeout      int     `long:"fetch-timeout" env:"FETCH_TIMEOUT" default:"10" description:"Default per-request fetch timeout in seconds"`
	RequestsPerSecond float64 `long:"requests-per-second" env:"REQUESTS_PER_SECOND" default:"2" description:"Per-host request rate limit"`
	RecentWindow      string  `long:"recent-window" env:"RECENT_WINDOW" default:"24h" description:"Default trailing window for /fetch-alerts"`

	// Document summarizer
	OpenAIKey   string `long:"openai-key" env:"OPENAI_API_KEY" description:"OpenAI API key for contract extraction (optional)"`
	OpenAIModel string `long:"openai-model" env:"OPENAI_MODEL" default:"gpt-4" description:"Chat model used for contract extraction"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"RegWatch/1.0" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TIMEZONE" default:"UTC" description:"Timezone for dates without an explicit offset (e.g. Asia/Kolkata)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
	LogFormat string `long:"log-format" env:"LOG_FORMAT" default:"text" description:"Log output format (text, json)"`
}

func Load(args []string) (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.ParseArgs(args); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	recentWindow, err := time.ParseDuration(raw.RecentWindow)
	if err != nil {
		return nil, fmt.Errorf("invalid recent window '%s': %w", raw.RecentWindow, err)
	}

	cfg := &Cfg{
		DBPath:            raw.DBPath,
		SnapshotBackend:   raw.SnapshotBackend,
		SnapshotDir:       raw.SnapshotDir,
		GCSBucket:         raw.GCSBucket,
		RedisAddr:         raw.RedisAddr,
		SourcesDir:        raw.SourcesDir,
		Port:              raw.Port,
		BaseUrl:           raw.BaseUrl,
		WorkerCount:       raw.WorkerCount,
		SchedulerInterval: raw.SchedulerInterval,
		APIAccessKey:      raw.APIAccessKey,
		FetchTimeout:      time.Duration(raw.FetchTimeout) * time.Second,
		RequestsPerSecond: raw.RequestsPerSecond,
		RecentWindow:      recentWindow,
		OpenAIKey:         raw.OpenAIKey,
		OpenAIModel:       raw.OpenAIModel,
		UserAgent:         raw.UserAgent,
		Timezone:          raw.Timezone,
		Debug:             raw.Debug,
		LogFormat:         raw.LogFormat,
		Version:           GetVersion(),
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func validate(cfg *Cfg) error {
	if !slices.Contains(snapshotBackends, cfg.SnapshotBackend) {
		return fmt.Errorf("unknown snapshot backend '%s'", cfg.SnapshotBackend)
	}
	if cfg.SnapshotBackend == "gcs" && cfg.GCSBucket == "" {
		return fmt.Errorf("gcs snapshot backend requires --gcs-bucket")
	}

	nonNegativeFields := map[string]int{
		"worker count":       cfg.WorkerCount,
		"scheduler interval": cfg.SchedulerInterval,
	}

	for fieldName, fieldValue := range nonNegativeFields {
		if fieldValue < 0 {
			return fmt.Errorf("%s must be non-negative", fieldName)
		}
	}

	if cfg.FetchTimeout <= 0 {
		return fmt.Errorf("fetch timeout must be positive")
	}

	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return fmt.Errorf("invalid timezone '%s': %w", cfg.Timezone, err)
	}

	return nil
}
