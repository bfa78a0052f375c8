package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFileDefaults(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "fnbricks", cfg.App.Name)
	assert.Equal(t, EnvDevelopment, cfg.App.Env)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 30*time.Second, cfg.HTTPClient.Timeout)
	assert.Equal(t, 0, cfg.HTTPClient.MaxRetries)
	assert.Equal(t, 1024, cfg.HTTPClient.MaxPayloadLogBytes)
	assert.Equal(t, "X-Request-ID", cfg.HTTPClient.TraceIDHeader)
	assert.False(t, cfg.HTTPClient.Breaker.Enabled)
	assert.Equal(t, uint32(5), cfg.HTTPClient.Breaker.ConsecutiveFailures)
	assert.Zero(t, cfg.HTTPClient.RateLimit.RequestsPerSecond)
	assert.False(t, cfg.Observability.Enabled)
	assert.Equal(t, EndpointStdout, cfg.Observability.Endpoint)
	assert.Equal(t, "http", cfg.Observability.Protocol)
	assert.InDelta(t, 1.0, cfg.Observability.SampleRate, 0.0001)
	assert.Equal(t, 10*time.Second, cfg.Observability.MetricsInterval)
}

func TestLoadBytes(t *testing.T) {
	cfg, err := LoadBytes([]byte(`
app:
  name: billing
httpclient:
  timeout: 250ms
  maxretries: 3
  retry:
    statuscodes: ["503", "504"]
    statuspatterns: ["^42\\d$"]
  defaultheaders:
    Accept: application/json
  ratelimit:
    requestspersecond: 20
    burst: 5
`))
	require.NoError(t, err)

	assert.Equal(t, "billing", cfg.App.Name)
	assert.Equal(t, 250*time.Millisecond, cfg.HTTPClient.Timeout)
	assert.Equal(t, 3, cfg.HTTPClient.MaxRetries)
	assert.Equal(t, []string{"503", "504"}, cfg.HTTPClient.Retry.StatusCodes)
	assert.Equal(t, []string{`^42\d$`}, cfg.HTTPClient.Retry.StatusPatterns)
	assert.Equal(t, "application/json", cfg.HTTPClient.DefaultHeaders["Accept"])
	assert.InDelta(t, 20.0, cfg.HTTPClient.RateLimit.RequestsPerSecond, 0.001)
	assert.Equal(t, 5, cfg.HTTPClient.RateLimit.Burst)
}

func TestLoadBytesInvalidYAML(t *testing.T) {
	_, err := LoadBytes([]byte("app: [unclosed"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse configuration")
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("HTTPCLIENT_TIMEOUT", "5s")
	t.Setenv("HTTPCLIENT_MAXRETRIES", "2")
	t.Setenv("HTTPCLIENT_BREAKER_ENABLED", "true")
	t.Setenv("UNRELATED_SETTING", "ignored")

	cfg, err := LoadBytes([]byte("httpclient:\n  timeout: 1s\n"))
	require.NoError(t, err)

	assert.Equal(t, 5*time.Second, cfg.HTTPClient.Timeout)
	assert.Equal(t, 2, cfg.HTTPClient.MaxRetries)
	assert.True(t, cfg.HTTPClient.Breaker.Enabled)
}

func TestLoadFileWithEnvironmentFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", "app:\n  env: staging\nhttpclient:\n  timeout: 1s\n  maxretries: 1\n")
	writeFile(t, dir, "config.staging.yaml", "httpclient:\n  maxretries: 4\n")

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, EnvStaging, cfg.App.Env)
	assert.Equal(t, time.Second, cfg.HTTPClient.Timeout)
	assert.Equal(t, 4, cfg.HTTPClient.MaxRetries)
}

func TestLoadFileEnvironmentFileSelectedByAppEnv(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", "httpclient:\n  maxretries: 1\n")
	writeFile(t, dir, "config.production.yaml", "httpclient:\n  maxretries: 6\n")
	t.Setenv("APP_ENV", EnvProduction)

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, EnvProduction, cfg.App.Env)
	assert.Equal(t, 6, cfg.HTTPClient.MaxRetries)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name     string
		yaml     string
		contains string
	}{
		{
			name:     "too_many_retries",
			yaml:     "httpclient:\n  maxretries: 101\n",
			contains: "httpclient.maxretries",
		},
		{
			name:     "unknown_log_level",
			yaml:     "log:\n  level: loud\n",
			contains: "must be one of",
		},
		{
			name:     "unknown_environment",
			yaml:     "app:\n  env: qa\n",
			contains: "invalid environment: qa",
		},
		{
			name:     "non_numeric_status_code",
			yaml:     "httpclient:\n  retry:\n    statuscodes: [\"5xx\"]\n",
			contains: "httpclient.retry.statuscodes",
		},
		{
			name:     "bad_status_pattern",
			yaml:     "httpclient:\n  retry:\n    statuspatterns: [\"5(\"]\n",
			contains: "invalid pattern",
		},
		{
			name:     "breaker_without_threshold",
			yaml:     "httpclient:\n  breaker:\n    enabled: true\n    consecutivefailures: 0\n",
			contains: "httpclient.breaker.consecutivefailures",
		},
		{
			name:     "unknown_telemetry_protocol",
			yaml:     "observability:\n  protocol: thrift\n",
			contains: "must be one of: http, grpc",
		},
		{
			name:     "sample_rate_above_one",
			yaml:     "observability:\n  samplerate: 1.5\n",
			contains: "observability.samplerate",
		},
		{
			name:     "collector_endpoint_with_scheme",
			yaml:     "observability:\n  enabled: true\n  endpoint: http://collector:4318\n",
			contains: "expected host:port without a scheme",
		},
		{
			name:     "empty_app_name",
			yaml:     "app:\n  name: \"\"\n",
			contains: "config_missing: app.name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadBytes([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}

func TestLoadBytesAcceptsNegativeRetries(t *testing.T) {
	cfg, err := LoadBytes([]byte("httpclient:\n  maxretries: -1\n"))
	require.NoError(t, err)
	assert.Equal(t, -1, cfg.HTTPClient.MaxRetries)
}

func TestValidateReturnsConfigError(t *testing.T) {
	cfg := &Config{
		App: AppConfig{Name: "svc", Version: "v1", Env: EnvDevelopment},
		Log: LogConfig{Level: "info"},
		HTTPClient: HTTPClientConfig{
			MaxRetries: 101,
		},
	}

	err := Validate(cfg)
	require.Error(t, err)

	var configErr *ConfigError
	require.ErrorAs(t, err, &configErr)
	assert.Equal(t, "httpclient.maxretries", configErr.Field)
	assert.Equal(t, "invalid", configErr.Category)
}

func TestEnvKey(t *testing.T) {
	key, value := envKey("HTTPCLIENT_RETRY_STATUSCODES", "503")
	assert.Equal(t, "httpclient.retry.statuscodes", key)
	assert.Equal(t, "503", value)

	key, _ = envKey("PATH", "/usr/bin")
	assert.Empty(t, key)

	key, _ = envKey("LOG", "debug")
	assert.Empty(t, key)
}
