// Package config loads the YAML configuration shared by the gilt tools.
// Every key can be overridden from the environment with the GILTS_ prefix,
// e.g. GILTS_BATCH_WORKERS or GILTS_DATA_BUCKET_NAME.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const EnvPrefix = "GILTS"

type Configuration struct {
	Logging LoggingConfig `mapstructure:"logging"`
	Server  ServerConfig  `mapstructure:"server"`
	Batch   BatchConfig   `mapstructure:"batch"`
	Curve   CurveConfig   `mapstructure:"curve"`
	Data    DataConfig    `mapstructure:"data"`
}

// LoggingConfig holds logging configuration options
type LoggingConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputFile string `mapstructure:"output_file"` // optional file output
}

type ServerConfig struct {
	Addr           string   `mapstructure:"addr"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	MaxBodyBytes   int64    `mapstructure:"max_body_bytes"`
	MaxBatchRows   int      `mapstructure:"max_batch_rows"`
}

type BatchConfig struct {
	Workers        int    `mapstructure:"workers"`
	Output         string `mapstructure:"output"`
	QuoteSource    string `mapstructure:"quote_source"` // dmo, dividenddata or empty
	WriteCashflows bool   `mapstructure:"write_cashflows"`
}

// CurveConfig points at a spot curve snapshot file used for model prices.
type CurveConfig struct {
	Path string `mapstructure:"path"`
}

// DataConfig is the S3 location results are written to.
type DataConfig struct {
	BucketName   string `mapstructure:"bucket_name"`
	BucketPrefix string `mapstructure:"bucket_prefix"`
}

// Destination returns the s3:// location for results, or "" when no bucket
// is configured.
func (d DataConfig) Destination() string {
	if d.BucketName == "" {
		return ""
	}
	if d.BucketPrefix == "" {
		return "s3://" + d.BucketName
	}
	return "s3://" + d.BucketName + "/" + strings.Trim(d.BucketPrefix, "/")
}

func defaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output_file", "")
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.max_body_bytes", 1<<20)
	v.SetDefault("server.max_batch_rows", 500)
	v.SetDefault("batch.workers", 8)
	v.SetDefault("batch.output", "")
	v.SetDefault("batch.quote_source", "")
	v.SetDefault("batch.write_cashflows", false)
	v.SetDefault("curve.path", "")
	v.SetDefault("data.bucket_name", "")
	v.SetDefault("data.bucket_prefix", "")
}

// LoadConfiguration reads the YAML file at configPath, if any, on top of the
// defaults and applies environment overrides.
func LoadConfiguration(configPath string) (*Configuration, error) {
	v := viper.New()
	defaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file, %s", err)
		}
	}

	var configuration Configuration
	if err := v.Unmarshal(&configuration); err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %s", err)
	}

	if err := configuration.Validate(); err != nil {
		return nil, err
	}

	return &configuration, nil
}

func (c *Configuration) Validate() error {
	if c.Batch.Workers < 1 {
		return fmt.Errorf("batch.workers must be at least 1, got %d", c.Batch.Workers)
	}

	switch strings.ToLower(c.Batch.QuoteSource) {
	case "", "dmo", "dividenddata":
	default:
		return fmt.Errorf("unknown batch.quote_source %q", c.Batch.QuoteSource)
	}

	if c.Server.MaxBatchRows < 1 {
		return fmt.Errorf("server.max_batch_rows must be at least 1, got %d", c.Server.MaxBatchRows)
	}

	return nil
}
