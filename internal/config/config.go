package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Import    ImportConfig    `yaml:"import"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Snowflake SnowflakeConfig `yaml:"snowflake"`
	Archive   ArchiveConfig   `yaml:"archive"`
	Insights  InsightsConfig  `yaml:"insights"`
	Worker    WorkerConfig    `yaml:"worker"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// GetHost returns the server host, with ECS detection
func (c ServerConfig) GetHost() string {
	// On ECS/container, listen on all interfaces
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return "0.0.0.0"
	}
	// Allow override via environment
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	return c.Host
}

// DatabaseConfig holds Postgres connection configuration
type DatabaseConfig struct {
	URL          string `yaml:"url"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

// RedisConfig holds Redis configuration for caching and import locks
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Enabled  bool   `yaml:"enabled"`
}

// ImportConfig holds normalization pipeline settings
type ImportConfig struct {
	MinConfidence   float64 `yaml:"min_confidence"`   // auto-mapper threshold for required fields
	MaxRows         int     `yaml:"max_rows"`         // per-batch row cap, 0 = unlimited
	DefaultPlatform string  `yaml:"default_platform"` // used when an upload names no platform
}

// IngestConfig holds remote row-source settings (URL, S3, XLSX pulls)
type IngestConfig struct {
	S3Bucket          string `yaml:"s3_bucket"`
	S3Region          string `yaml:"s3_region"`
	AWSProfile        string `yaml:"aws_profile"` // Empty string uses default credential chain (IAM role on ECS)
	URLTimeoutSeconds int    `yaml:"url_timeout_seconds"`
}

// Timeout returns the configured URL fetch timeout as a duration
func (c IngestConfig) Timeout() time.Duration {
	return time.Duration(c.URLTimeoutSeconds) * time.Second
}

// SnowflakeConfig holds Snowflake configuration for warehouse row sources
type SnowflakeConfig struct {
	Account   string `yaml:"account"`
	User      string `yaml:"user"`
	Password  string `yaml:"password"`
	Database  string `yaml:"database"`
	Schema    string `yaml:"schema"`
	Warehouse string `yaml:"warehouse"`
	Enabled   bool   `yaml:"enabled"`
}

// ArchiveConfig holds raw-upload archive configuration
type ArchiveConfig struct {
	Type          string `yaml:"type"` // "local", "s3", or "dynamodb"
	LocalPath     string `yaml:"local_path"`
	S3Bucket      string `yaml:"s3_bucket"`
	DynamoDBTable string `yaml:"dynamodb_table"`
	AWSRegion     string `yaml:"aws_region"`
	AWSProfile    string `yaml:"aws_profile"` // Empty string uses default credential chain (IAM role on ECS)
}

// GetAWSProfile returns the AWS profile, with environment variable override
func (c ArchiveConfig) GetAWSProfile() string {
	if envProfile := os.Getenv("AWS_PROFILE_OVERRIDE"); envProfile != "" {
		if envProfile == "none" || envProfile == "iam" {
			return "" // Use default credential chain (IAM role)
		}
		return envProfile
	}
	// On ECS/Lambda, don't use a profile - use IAM role
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return "" // Running on ECS or Lambda, use IAM role
	}
	return c.AWSProfile
}

// InsightsConfig holds Bedrock narrative-summary configuration
type InsightsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Region    string `yaml:"region"`
	ModelID   string `yaml:"model_id"`
	MaxTokens int    `yaml:"max_tokens"`
}

// WorkerConfig holds background import worker configuration
type WorkerConfig struct {
	IntervalSeconds int `yaml:"interval_seconds"`
	LockTTLSeconds  int `yaml:"lock_ttl_seconds"`
}

// Interval returns the worker poll interval as a duration
func (c WorkerConfig) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}

// LockTTL returns the import lock TTL as a duration
func (c WorkerConfig) LockTTL() time.Duration {
	return time.Duration(c.LockTTLSeconds) * time.Second
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = "localhost:6379"
	}
	if cfg.Import.MinConfidence == 0 {
		cfg.Import.MinConfidence = 0.6
	}
	if cfg.Import.MaxRows == 0 {
		cfg.Import.MaxRows = 50000
	}
	if cfg.Import.DefaultPlatform == "" {
		cfg.Import.DefaultPlatform = "linkedin"
	}
	if cfg.Ingest.URLTimeoutSeconds == 0 {
		cfg.Ingest.URLTimeoutSeconds = 30
	}
	if cfg.Ingest.S3Region == "" {
		cfg.Ingest.S3Region = "us-west-2"
	}
	if cfg.Snowflake.Database == "" {
		cfg.Snowflake.Database = "ADPULSE"
	}
	if cfg.Snowflake.Schema == "" {
		cfg.Snowflake.Schema = "PERFORMANCE"
	}
	if cfg.Archive.Type == "" {
		cfg.Archive.Type = "local"
	}
	if cfg.Archive.LocalPath == "" {
		cfg.Archive.LocalPath = "./data/archive"
	}
	if cfg.Archive.AWSRegion == "" {
		cfg.Archive.AWSRegion = "us-west-2"
	}
	if cfg.Insights.Region == "" {
		cfg.Insights.Region = "us-east-1"
	}
	if cfg.Insights.ModelID == "" {
		cfg.Insights.ModelID = "anthropic.claude-3-5-sonnet-20240620-v1:0"
	}
	if cfg.Insights.MaxTokens == 0 {
		cfg.Insights.MaxTokens = 1024
	}
	if cfg.Worker.IntervalSeconds == 0 {
		cfg.Worker.IntervalSeconds = 300
	}
	if cfg.Worker.LockTTLSeconds == 0 {
		cfg.Worker.LockTTLSeconds = 120
	}
}

// LoadFromEnv loads configuration with environment variable overrides.
// It automatically loads a .env file (if present) before reading env vars,
// so secrets can live in .env locally and in real env vars on ECS.
// A missing config file is not an error; everything can come from env.
func LoadFromEnv(path string) (*Config, error) {
	// Load .env file if it exists (no error if missing)
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		cfg = &Config{}
		applyDefaults(cfg)
	}

	// Database override (critical for ECS deployment where config.yaml has local defaults)
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		cfg.Database.URL = dbURL
	}

	// Redis overrides; a provided address implies the cache is wanted
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Redis.Addr = addr
		cfg.Redis.Enabled = true
	}
	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		cfg.Redis.Password = password
	}

	// Ingest overrides
	if v := os.Getenv("INGEST_S3_BUCKET"); v != "" {
		cfg.Ingest.S3Bucket = v
	}
	if v := os.Getenv("INGEST_S3_REGION"); v != "" {
		cfg.Ingest.S3Region = v
	}

	// Snowflake overrides
	if v := os.Getenv("SNOWFLAKE_ACCOUNT"); v != "" {
		cfg.Snowflake.Account = v
	}
	if v := os.Getenv("SNOWFLAKE_USER"); v != "" {
		cfg.Snowflake.User = v
	}
	if v := os.Getenv("SNOWFLAKE_PASSWORD"); v != "" {
		cfg.Snowflake.Password = v
	}

	// Archive overrides
	if v := os.Getenv("ARCHIVE_S3_BUCKET"); v != "" {
		cfg.Archive.S3Bucket = v
	}
	if v := os.Getenv("ARCHIVE_DYNAMODB_TABLE"); v != "" {
		cfg.Archive.DynamoDBTable = v
	}

	// Insights overrides
	if v := os.Getenv("INSIGHTS_MODEL_ID"); v != "" {
		cfg.Insights.ModelID = v
	}

	return cfg, nil
}
