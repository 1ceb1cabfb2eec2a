// Package configuration loads grader settings from an optional YAML file,
// a .env file and GRADER_* environment variables.
package configuration

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/ahrav/go-grader/internal/grading"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Config holds the settings of the grader worker and CLI.
type Config struct {
	Temporal TemporalConfig `mapstructure:"temporal" json:"temporal" yaml:"temporal"`
	Redis    RedisConfig    `mapstructure:"redis"    json:"redis"    yaml:"redis"`
	Grading  GradingConfig  `mapstructure:"grading"  json:"grading"  yaml:"grading"`

	LogLevel  string `mapstructure:"log_level"  json:"log_level"  yaml:"log_level"  validate:"oneof=debug info warn warning error"`
	LogFormat string `mapstructure:"log_format" json:"log_format" yaml:"log_format" validate:"oneof=text json"`
}

// TemporalConfig locates the Temporal frontend and the task queue to poll.
type TemporalConfig struct {
	HostPort  string `mapstructure:"host_port"  json:"host_port"  yaml:"host_port"  validate:"required"`
	Namespace string `mapstructure:"namespace"  json:"namespace"  yaml:"namespace"  validate:"required"`
	TaskQueue string `mapstructure:"task_queue" json:"task_queue" yaml:"task_queue" validate:"required"`
}

// RedisConfig configures report persistence and the event stream. When
// disabled, reports are not persisted and events are discarded.
type RedisConfig struct {
	Enabled     bool          `mapstructure:"enabled"      json:"enabled"      yaml:"enabled"`
	Addr        string        `mapstructure:"addr"         json:"addr"         yaml:"addr"         validate:"required_if=Enabled true"`
	Password    string        `mapstructure:"password"     json:"-"            yaml:"-"`
	DB          int           `mapstructure:"db"           json:"db"           yaml:"db"           validate:"min=0"`
	ReportTTL   time.Duration `mapstructure:"report_ttl"   json:"report_ttl"   yaml:"report_ttl"   validate:"min=0"`
	EventStream string        `mapstructure:"event_stream" json:"event_stream" yaml:"event_stream" validate:"required_if=Enabled true"`

	// BreakerFailures consecutive save failures open the report store
	// circuit for BreakerOpenTimeout.
	BreakerFailures    int           `mapstructure:"breaker_failures"     json:"breaker_failures"     yaml:"breaker_failures"     validate:"min=0"`
	BreakerOpenTimeout time.Duration `mapstructure:"breaker_open_timeout" json:"breaker_open_timeout" yaml:"breaker_open_timeout" validate:"min=0"`
}

// GradingConfig bounds grading attempts and lists the graders to load.
type GradingConfig struct {
	ActivityTimeout time.Duration          `mapstructure:"activity_timeout" json:"activity_timeout" yaml:"activity_timeout" validate:"gt=0"`
	MaxAttempts     int32                  `mapstructure:"max_attempts"     json:"max_attempts"     yaml:"max_attempts"     validate:"min=1"`
	Graders         []grading.GraderConfig `mapstructure:"graders"          json:"graders"          yaml:"graders"          validate:"dive"`
}

// Validate checks every section.
func (c *Config) Validate() error { return validate.Struct(c) }
