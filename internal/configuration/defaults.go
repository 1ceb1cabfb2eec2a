package configuration

import "time"

// Temporal defaults.
const (
	DefaultTemporalHostPort  = "localhost:7233"
	DefaultTemporalNamespace = "default"
	DefaultTaskQueue         = "grading"
)

// Redis defaults.
const (
	DefaultRedisAddr   = "localhost:6379"
	DefaultReportTTL   = 30 * 24 * time.Hour
	DefaultEventStream = "grading:events"

	DefaultBreakerFailures    = 5
	DefaultBreakerOpenTimeout = 30 * time.Second
)

// Grading defaults.
const (
	DefaultActivityTimeout = 10 * time.Minute
	DefaultMaxAttempts     = 3
)

// Logging defaults.
const (
	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"
)

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() *Config {
	return &Config{
		Temporal: TemporalConfig{
			HostPort:  DefaultTemporalHostPort,
			Namespace: DefaultTemporalNamespace,
			TaskQueue: DefaultTaskQueue,
		},
		Redis: RedisConfig{
			Addr:        DefaultRedisAddr,
			ReportTTL:   DefaultReportTTL,
			EventStream: DefaultEventStream,

			BreakerFailures:    DefaultBreakerFailures,
			BreakerOpenTimeout: DefaultBreakerOpenTimeout,
		},
		Grading: GradingConfig{
			ActivityTimeout: DefaultActivityTimeout,
			MaxAttempts:     DefaultMaxAttempts,
		},
		LogLevel:  DefaultLogLevel,
		LogFormat: DefaultLogFormat,
	}
}
