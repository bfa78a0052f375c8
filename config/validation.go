package config

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"slices"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// Environment constants
const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"
)

var validEnvs = []string{EnvDevelopment, EnvStaging, EnvProduction}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// structValidator reports fields by their koanf key instead of the Go field name.
func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(field reflect.StructField) string {
			name, _, _ := strings.Cut(field.Tag.Get("koanf"), ",")
			if name == "" || name == "-" {
				return field.Name
			}
			return name
		})
	})
	return validate
}

// Validate checks struct constraints first, then rules that need more than a tag.
func Validate(cfg *Config) error {
	if err := structValidator().Struct(cfg); err != nil {
		return fromValidatorError(err)
	}

	if !slices.Contains(validEnvs, cfg.App.Env) {
		return NewInvalidFieldError("app.env", fmt.Sprintf("invalid environment: %s", cfg.App.Env), validEnvs)
	}

	if err := validateObservability(&cfg.Observability); err != nil {
		return fmt.Errorf("observability config: %w", err)
	}

	if err := validateHTTPClient(&cfg.HTTPClient); err != nil {
		return fmt.Errorf("httpclient config: %w", err)
	}
	return nil
}

// EndpointStdout selects the stdout exporters instead of an OTLP collector.
const EndpointStdout = "stdout"

func validateObservability(cfg *ObservabilityConfig) error {
	if !cfg.Enabled {
		return nil
	}
	if cfg.Endpoint == "" {
		return NewMissingFieldError("observability.endpoint")
	}
	if cfg.Endpoint != EndpointStdout && strings.Contains(cfg.Endpoint, "://") {
		return NewValidationError("observability.endpoint", fmt.Sprintf("expected host:port without a scheme, got %q", cfg.Endpoint))
	}
	return nil
}

func validateHTTPClient(cfg *HTTPClientConfig) error {
	for _, expr := range cfg.Retry.StatusPatterns {
		if _, err := regexp.Compile(expr); err != nil {
			return NewValidationError("httpclient.retry.statuspatterns", fmt.Sprintf("invalid pattern %q: %v", expr, err))
		}
	}
	if cfg.Breaker.Enabled && cfg.Breaker.ConsecutiveFailures == 0 {
		return NewValidationError("httpclient.breaker.consecutivefailures", "must be positive when the breaker is enabled")
	}
	return nil
}

// fromValidatorError converts the first failed constraint into a ConfigError.
func fromValidatorError(err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) || len(validationErrors) == 0 {
		return err
	}

	fe := validationErrors[0]
	field := fieldPath(fe.Namespace())
	switch fe.Tag() {
	case "required":
		return NewMissingFieldError(field)
	case "oneof":
		return NewInvalidFieldError(field, fmt.Sprintf("invalid value: %v", fe.Value()), strings.Fields(fe.Param()))
	default:
		return NewValidationError(field, fmt.Sprintf("failed %s=%s constraint (value: %v)", fe.Tag(), fe.Param(), fe.Value()))
	}
}

// fieldPath strips the root struct name: "Config.httpclient.timeout" -> "httpclient.timeout".
func fieldPath(namespace string) string {
	_, rest, found := strings.Cut(namespace, ".")
	if !found {
		return namespace
	}
	return rest
}
