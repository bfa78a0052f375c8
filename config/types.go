package config

import "time"

// Config represents the application configuration: app identity, logging,
// telemetry export and the outbound HTTP client.
type Config struct {
	App           AppConfig           `koanf:"app" json:"app" yaml:"app" mapstructure:"app"`
	Log           LogConfig           `koanf:"log" json:"log" yaml:"log" mapstructure:"log"`
	Observability ObservabilityConfig `koanf:"observability" json:"observability" yaml:"observability" mapstructure:"observability"`
	HTTPClient    HTTPClientConfig    `koanf:"httpclient" json:"httpclient" yaml:"httpclient" mapstructure:"httpclient"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name    string `koanf:"name" json:"name" yaml:"name" mapstructure:"name" validate:"required"`
	Version string `koanf:"version" json:"version" yaml:"version" mapstructure:"version" validate:"required"`
	Env     string `koanf:"env" json:"env" yaml:"env" mapstructure:"env" validate:"required"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `koanf:"level" json:"level" yaml:"level" mapstructure:"level" validate:"oneof=trace debug info warn error fatal panic disabled"`
	Pretty bool   `koanf:"pretty" json:"pretty" yaml:"pretty" mapstructure:"pretty"`
}

// ObservabilityConfig controls OpenTelemetry trace and metric export.
type ObservabilityConfig struct {
	Enabled bool `koanf:"enabled" json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	// Endpoint is "stdout" or an OTLP collector address in host:port form.
	Endpoint string            `koanf:"endpoint" json:"endpoint" yaml:"endpoint" mapstructure:"endpoint"`
	Protocol string            `koanf:"protocol" json:"protocol" yaml:"protocol" mapstructure:"protocol" validate:"omitempty,oneof=http grpc"`
	Insecure bool              `koanf:"insecure" json:"insecure" yaml:"insecure" mapstructure:"insecure"`
	Headers  map[string]string `koanf:"headers" json:"headers" yaml:"headers" mapstructure:"headers"`

	SampleRate      float64       `koanf:"samplerate" json:"samplerate" yaml:"samplerate" mapstructure:"samplerate" validate:"gte=0,lte=1"`
	MetricsInterval time.Duration `koanf:"metricsinterval" json:"metricsinterval" yaml:"metricsinterval" mapstructure:"metricsinterval" validate:"gte=0"`
}

// HTTPClientConfig configures the resilient outbound HTTP client.
type HTTPClientConfig struct {
	// Timeout bounds every attempt; 0 disables the deadline.
	Timeout time.Duration `koanf:"timeout" json:"timeout" yaml:"timeout" mapstructure:"timeout" validate:"gte=0"`
	// MaxRetries is the number of additional attempts after the first; negative
	// values mean a single attempt.
	MaxRetries int               `koanf:"maxretries" json:"maxretries" yaml:"maxretries" mapstructure:"maxretries" validate:"lte=100"`
	Retry      RetryStatusConfig `koanf:"retry" json:"retry" yaml:"retry" mapstructure:"retry"`

	LogPayloads        bool `koanf:"logpayloads" json:"logpayloads" yaml:"logpayloads" mapstructure:"logpayloads"`
	MaxPayloadLogBytes int  `koanf:"maxpayloadlogbytes" json:"maxpayloadlogbytes" yaml:"maxpayloadlogbytes" mapstructure:"maxpayloadlogbytes" validate:"gte=0"`

	TraceIDHeader  string            `koanf:"traceidheader" json:"traceidheader" yaml:"traceidheader" mapstructure:"traceidheader"`
	W3CTrace       bool              `koanf:"w3ctrace" json:"w3ctrace" yaml:"w3ctrace" mapstructure:"w3ctrace"`
	DefaultHeaders map[string]string `koanf:"defaultheaders" json:"defaultheaders" yaml:"defaultheaders" mapstructure:"defaultheaders"`

	Breaker   BreakerConfig   `koanf:"breaker" json:"breaker" yaml:"breaker" mapstructure:"breaker"`
	RateLimit RateLimitConfig `koanf:"ratelimit" json:"ratelimit" yaml:"ratelimit" mapstructure:"ratelimit"`
}

// RetryStatusConfig lists the response statuses that trigger another attempt.
type RetryStatusConfig struct {
	// StatusCodes are matched exactly, e.g. "503".
	StatusCodes []string `koanf:"statuscodes" json:"statuscodes" yaml:"statuscodes" mapstructure:"statuscodes" validate:"dive,numeric,len=3"`
	// StatusPatterns are regular expressions, e.g. "^5\\d\\d$".
	StatusPatterns []string `koanf:"statuspatterns" json:"statuspatterns" yaml:"statuspatterns" mapstructure:"statuspatterns"`
}

// BreakerConfig holds circuit breaker settings.
type BreakerConfig struct {
	Enabled             bool          `koanf:"enabled" json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	ConsecutiveFailures uint32        `koanf:"consecutivefailures" json:"consecutivefailures" yaml:"consecutivefailures" mapstructure:"consecutivefailures"`
	MaxRequests         uint32        `koanf:"maxrequests" json:"maxrequests" yaml:"maxrequests" mapstructure:"maxrequests"`
	Interval            time.Duration `koanf:"interval" json:"interval" yaml:"interval" mapstructure:"interval" validate:"gte=0"`
	Timeout             time.Duration `koanf:"timeout" json:"timeout" yaml:"timeout" mapstructure:"timeout" validate:"gte=0"`
}

// RateLimitConfig holds outbound rate limit settings. Zero RequestsPerSecond disables it.
type RateLimitConfig struct {
	RequestsPerSecond float64 `koanf:"requestspersecond" json:"requestspersecond" yaml:"requestspersecond" mapstructure:"requestspersecond" validate:"gte=0"`
	Burst             int     `koanf:"burst" json:"burst" yaml:"burst" mapstructure:"burst" validate:"gte=0"`
}
