package cfg

import "time"

type Cfg struct {
	// Storage configuration
	DBPath          string
	SnapshotBackend string // db, local, gcs or redis
	SnapshotDir     string
	GCSBucket       string
	RedisAddr       string

	// Application configuration
	SourcesDir        string
	Port              string
	BaseUrl           string
	WorkerCount       int
	SchedulerInterval int
	APIAccessKey      string
	FetchTimeout      time.Duration
	RequestsPerSecond float64
	RecentWindow      time.Duration

	// Document summarizer
	OpenAIKey   string
	OpenAIModel string

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	LogFormat string
	Version   string
}

// Location resolves Timezone, falling back to UTC for unknown names.
func (c *Cfg) Location() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
