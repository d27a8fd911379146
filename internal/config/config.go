package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from a YAML string like "30s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	d.Duration = dur
	return nil
}

// Check types.
const (
	TypeHTTP                 = "http"
	TypeTCP                  = "tcp"
	TypePing                 = "ping"
	TypeDocker               = "docker"
	TypeRedis                = "redis"
	TypePostgres             = "postgres"
	TypeSQLite               = "sqlite"
	TypeDocumentDBDatabase   = "documentdb-database"
	TypeDocumentDBCollection = "documentdb-collection"
	TypeServiceBusQueue      = "servicebus-queue"
	TypeServiceBusTopic      = "servicebus-topic"
	TypeQueueStorage         = "queue-storage"
	TypeQueueStorageAccount  = "queue-storage-account"
)

// Check describes a single dependency probe.
type Check struct {
	Name             string
	Type             string
	Target           string
	ConnectionString string
	Database         string
	Collection       string
	Queue            string
	Topic            string
	Namespace        string
	Password         string
	DB               int
	Interval         Duration
	Timeout          Duration
	Cache            Duration
	ExpectedStatus   int
	Headers          map[string]string
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Address string `yaml:"address"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// LogConfig controls the slog handler and optional rotating log file.
type LogConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// Config is the root application configuration.
type Config struct {
	Checks  []Check
	Server  ServerConfig
	Metrics MetricsConfig
	Log     LogConfig
}

// requirement lists the fields a check type needs besides name and type.
type requirement struct {
	target, connectionString, database, collection, queue, topic bool
}

var checkTypes = map[string]requirement{
	TypeHTTP:                 {target: true},
	TypeTCP:                  {target: true},
	TypePing:                 {target: true},
	TypeDocker:               {target: true},
	TypeRedis:                {target: true},
	TypePostgres:             {connectionString: true},
	TypeSQLite:               {connectionString: true},
	TypeDocumentDBDatabase:   {connectionString: true, database: true},
	TypeDocumentDBCollection: {connectionString: true, database: true, collection: true},
	TypeServiceBusQueue:      {connectionString: true, queue: true},
	TypeServiceBusTopic:      {connectionString: true, topic: true},
	TypeQueueStorage:         {connectionString: true, queue: true},
	TypeQueueStorageAccount:  {connectionString: true},
}

// Load reads, parses, and validates the config file at path.
// ${VAR} references in targets, connection strings and passwords are
// expanded from the environment.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return Parse(data)
}

// Parse parses and validates raw YAML config data.
func Parse(data []byte) (*Config, error) {
	// Unmarshal into a raw intermediate to report duration errors per check.
	type rawCheck struct {
		Name             string            `yaml:"name"`
		Type             string            `yaml:"type"`
		Target           string            `yaml:"target"`
		ConnectionString string            `yaml:"connection_string"`
		Database         string            `yaml:"database"`
		Collection       string            `yaml:"collection"`
		Queue            string            `yaml:"queue"`
		Topic            string            `yaml:"topic"`
		Namespace        string            `yaml:"namespace"`
		Password         string            `yaml:"password"`
		DB               int               `yaml:"db"`
		Interval         string            `yaml:"interval"`
		Timeout          string            `yaml:"timeout"`
		Cache            string            `yaml:"cache"`
		ExpectedStatus   int               `yaml:"expected_status"`
		Headers          map[string]string `yaml:"headers"`
	}
	type rawConfig struct {
		Checks  []rawCheck    `yaml:"checks"`
		Server  ServerConfig  `yaml:"server"`
		Metrics MetricsConfig `yaml:"metrics"`
		Log     LogConfig     `yaml:"log"`
	}

	raw := rawConfig{Metrics: MetricsConfig{Enabled: true}}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	// Apply defaults.
	if raw.Server.Address == "" {
		raw.Server.Address = ":8080"
	}
	if raw.Metrics.Path == "" {
		raw.Metrics.Path = "/metrics"
	}
	if raw.Log.Level == "" {
		raw.Log.Level = "info"
	}
	if raw.Log.Format == "" {
		raw.Log.Format = "json"
	}
	if raw.Log.Format != "json" && raw.Log.Format != "text" {
		return nil, fmt.Errorf("log: invalid format %q (must be json or text)", raw.Log.Format)
	}

	if len(raw.Checks) == 0 {
		return nil, fmt.Errorf("at least one check must be configured")
	}

	cfg := &Config{
		Server:  raw.Server,
		Metrics: raw.Metrics,
		Log:     raw.Log,
	}

	names := make(map[string]bool, len(raw.Checks))
	for i, rc := range raw.Checks {
		if rc.Name == "" {
			return nil, fmt.Errorf("check[%d]: name is required", i)
		}
		if names[rc.Name] {
			return nil, fmt.Errorf("duplicate check name %q", rc.Name)
		}
		names[rc.Name] = true

		req, ok := checkTypes[rc.Type]
		if !ok {
			return nil, fmt.Errorf("check %q: invalid type %q", rc.Name, rc.Type)
		}

		c := Check{
			Name:             rc.Name,
			Type:             rc.Type,
			Target:           os.ExpandEnv(rc.Target),
			ConnectionString: os.ExpandEnv(rc.ConnectionString),
			Database:         rc.Database,
			Collection:       rc.Collection,
			Queue:            rc.Queue,
			Topic:            rc.Topic,
			Namespace:        rc.Namespace,
			Password:         os.ExpandEnv(rc.Password),
			DB:               rc.DB,
			ExpectedStatus:   rc.ExpectedStatus,
			Headers:          rc.Headers,
		}
		if err := validateRequired(c, req); err != nil {
			return nil, err
		}

		var err error
		if c.Interval, err = parseDuration(rc.Name, "interval", rc.Interval, 30*time.Second); err != nil {
			return nil, err
		}
		if c.Timeout, err = parseDuration(rc.Name, "timeout", rc.Timeout, 10*time.Second); err != nil {
			return nil, err
		}
		if c.Cache, err = parseDuration(rc.Name, "cache", rc.Cache, 0); err != nil {
			return nil, err
		}
		if c.Cache.Duration < 0 {
			return nil, fmt.Errorf("check %q: cache must not be negative", rc.Name)
		}

		// Default expected_status for HTTP.
		if c.Type == TypeHTTP && c.ExpectedStatus == 0 {
			c.ExpectedStatus = 200
		}

		cfg.Checks = append(cfg.Checks, c)
	}

	return cfg, nil
}

func validateRequired(c Check, req requirement) error {
	missing := func(field string) error {
		return fmt.Errorf("check %q: %s is required for type %s", c.Name, field, c.Type)
	}
	switch {
	case req.target && c.Target == "":
		return missing("target")
	case req.connectionString && c.ConnectionString == "":
		return missing("connection_string")
	case req.database && c.Database == "":
		return missing("database")
	case req.collection && c.Collection == "":
		return missing("collection")
	case req.queue && c.Queue == "":
		return missing("queue")
	case req.topic && c.Topic == "":
		return missing("topic")
	}
	return nil
}

func parseDuration(check, field, value string, def time.Duration) (Duration, error) {
	if value == "" {
		return Duration{def}, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return Duration{}, fmt.Errorf("check %q: invalid %s %q: %w", check, field, value, err)
	}
	return Duration{d}, nil
}
