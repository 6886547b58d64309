package observability

import (
	"strings"

	"github.com/smallbiznis/rentsoft/internal/config"
	"github.com/spf13/viper"
)

const defaultSamplingRatio = 0.1

// Config holds logging and OpenTelemetry settings for a run.
type Config struct {
	ServiceName string
	Environment string
	Version     string

	LogLevel  string
	LogFormat string
	// LogOutput is stderr unless overridden; stdout carries command output.
	LogOutput string

	OtelEnabled          bool
	OtelExporterEndpoint string
	OtelExporterProtocol string
	OtelSamplingRatio    float64
}

// LoadConfig reads observability overrides from the environment on top of
// the application config. Exporting telemetry is off unless OTEL_ENABLED is
// set or an OTLP endpoint is configured.
func LoadConfig(cfg config.Config) Config {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("DEPLOYMENT_ENV", cfg.Environment)
	v.SetDefault("SERVICE_VERSION", cfg.AppVersion)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("LOG_OUTPUT", "stderr")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.OTLPEndpoint)
	v.SetDefault("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc")
	v.SetDefault("OTEL_SAMPLING_RATIO", defaultSamplingRatio)

	endpoint := trimmed(v, "OTEL_EXPORTER_OTLP_ENDPOINT")
	v.SetDefault("OTEL_ENABLED", endpoint != "")

	protocol := lowered(v, "OTEL_EXPORTER_OTLP_PROTOCOL")
	if traces := lowered(v, "OTEL_EXPORTER_OTLP_TRACES_PROTOCOL"); traces != "" {
		protocol = traces
	}

	ratio := v.GetFloat64("OTEL_SAMPLING_RATIO")
	if ratio < 0 || ratio > 1 {
		ratio = defaultSamplingRatio
	}

	serviceName := strings.TrimSpace(cfg.AppName)
	if serviceName == "" {
		serviceName = "rentsoft"
	}

	return Config{
		ServiceName:          serviceName,
		Environment:          trimmed(v, "DEPLOYMENT_ENV"),
		Version:              trimmed(v, "SERVICE_VERSION"),
		LogLevel:             lowered(v, "LOG_LEVEL"),
		LogFormat:            lowered(v, "LOG_FORMAT"),
		LogOutput:            trimmed(v, "LOG_OUTPUT"),
		OtelEnabled:          v.GetBool("OTEL_ENABLED"),
		OtelExporterEndpoint: endpoint,
		OtelExporterProtocol: protocol,
		OtelSamplingRatio:    ratio,
	}
}

// Debug turns on development logging for debug level or local environments.
func (c Config) Debug() bool {
	if strings.EqualFold(strings.TrimSpace(c.LogLevel), "debug") {
		return true
	}
	switch strings.ToLower(strings.TrimSpace(c.Environment)) {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}

func trimmed(v *viper.Viper, key string) string {
	return strings.TrimSpace(v.GetString(key))
}

func lowered(v *viper.Viper, key string) string {
	return strings.ToLower(trimmed(v, key))
}
