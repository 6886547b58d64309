package observability

import (
	"testing"

	"github.com/smallbiznis/rentsoft/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestLoadConfig_Defaults(t *testing.T) {
	for _, key := range []string{
		"DEPLOYMENT_ENV", "SERVICE_VERSION", "LOG_LEVEL", "LOG_FORMAT", "LOG_OUTPUT",
		"OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_EXPORTER_OTLP_PROTOCOL",
		"OTEL_EXPORTER_OTLP_TRACES_PROTOCOL", "OTEL_SAMPLING_RATIO", "OTEL_ENABLED",
	} {
		t.Setenv(key, "")
	}

	cfg := LoadConfig(config.Config{Environment: "development", AppVersion: "v1.2.3"})

	assert.Equal(t, "rentsoft", cfg.ServiceName)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "v1.2.3", cfg.Version)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "stderr", cfg.LogOutput)
	assert.Equal(t, "grpc", cfg.OtelExporterProtocol)
	assert.False(t, cfg.OtelEnabled)
	assert.InDelta(t, 0.1, cfg.OtelSamplingRatio, 1e-9)
	assert.True(t, cfg.Debug())
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "collector:4317")
	t.Setenv("OTEL_EXPORTER_OTLP_TRACES_PROTOCOL", "HTTP")
	t.Setenv("OTEL_SAMPLING_RATIO", "0.5")
	t.Setenv("LOG_LEVEL", "WARN")
	t.Setenv("OTEL_ENABLED", "")

	cfg := LoadConfig(config.Config{AppName: "rentsoft-cli", Environment: "production"})

	assert.Equal(t, "rentsoft-cli", cfg.ServiceName)
	assert.True(t, cfg.OtelEnabled)
	assert.Equal(t, "collector:4317", cfg.OtelExporterEndpoint)
	assert.Equal(t, "http", cfg.OtelExporterProtocol)
	assert.InDelta(t, 0.5, cfg.OtelSamplingRatio, 1e-9)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.False(t, cfg.Debug())
}

func TestLoadConfig_SamplingRatioOutOfRange(t *testing.T) {
	t.Setenv("OTEL_SAMPLING_RATIO", "4")
	t.Setenv("OTEL_ENABLED", "false")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "collector:4317")

	cfg := LoadConfig(config.Config{})

	assert.InDelta(t, defaultSamplingRatio, cfg.OtelSamplingRatio, 1e-9)
	assert.False(t, cfg.OtelEnabled)
}
