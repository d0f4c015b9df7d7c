// Package config resolves run settings. Flags win over NETINTENT_*
// environment variables, which win over the optional config file.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/signalsfoundry/netintent/internal/observability"
)

// EnvPrefix namespaces every environment variable.
const EnvPrefix = "NETINTENT"

// Keys, shared by flags, env vars and config files. Env vars use the
// upper-cased key with dashes turned into underscores.
const (
	KeyConfigFile      = "config"
	KeyIntent          = "intent"
	KeyTopology        = "topology"
	KeyOutputDir       = "output-dir"
	KeySink            = "sink"
	KeyS3Bucket        = "s3-bucket"
	KeyS3Prefix        = "s3-prefix"
	KeyS3Region        = "s3-region"
	KeyParallelism     = "parallelism"
	KeyLogLevel        = "log-level"
	KeyLogFormat       = "log-format"
	KeyMetricsTextfile = "metrics-textfile"
	KeyNoColor         = "no-color"

	KeyTracingEnabled     = "tracing-enabled"
	KeyTracingExporter    = "tracing-exporter"
	KeyTracingServiceName = "tracing-service-name"
	KeyTracingSampleRatio = "tracing-sample-ratio"
	KeyOTLPEndpoint       = "otlp-endpoint"
)

// Sink kinds.
const (
	SinkDir    = "dir"
	SinkStdout = "stdout"
	SinkS3     = "s3"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// Config is a resolved run configuration.
type Config struct {
	Intent   string
	Topology string

	Sink      string
	OutputDir string
	S3Bucket  string
	S3Prefix  string
	S3Region  string

	Parallelism int

	LogLevel        string
	LogFormat       string
	MetricsTextfile string
	NoColor         bool

	Tracing observability.TracingConfig
}

// New returns a viper instance with defaults and env binding in place.
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault(KeyOutputDir, "configs")
	v.SetDefault(KeySink, SinkDir)
	v.SetDefault(KeyParallelism, 0)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "text")
	v.SetDefault(KeyTracingExporter, observability.ExporterStdout)
	v.SetDefault(KeyTracingServiceName, observability.DefaultServiceName)
	v.SetDefault(KeyTracingSampleRatio, 1.0)
	return v
}

// RegisterFlags declares the persistent flags every command shares.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String(KeyConfigFile, "", "config file (yaml, toml or json)")
	fs.StringP(KeyIntent, "i", "", "intent file (json, yaml or toml)")
	fs.StringP(KeyTopology, "t", "", "GNS3 topology file (.gns3, json or yaml)")
	fs.StringP(KeyOutputDir, "o", "configs", "directory for the dir sink, and the reference for diff")
	fs.String(KeySink, SinkDir, "where configurations go: dir, stdout or s3")
	fs.String(KeyS3Bucket, "", "bucket for the s3 sink")
	fs.String(KeyS3Prefix, "", "object key prefix for the s3 sink")
	fs.String(KeyS3Region, "", "AWS region for the s3 sink (default from the AWS config chain)")
	fs.Int(KeyParallelism, 0, "devices synthesized concurrently (0 = GOMAXPROCS)")
	fs.String(KeyLogLevel, "info", "log level: debug, info, warn, error")
	fs.String(KeyLogFormat, "text", "log format: text or json")
	fs.String(KeyMetricsTextfile, "", "write Prometheus metrics to this file after the run")
	fs.Bool(KeyNoColor, false, "disable colored output")
	fs.Bool(KeyTracingEnabled, false, "export compiler spans")
	fs.String(KeyTracingExporter, observability.ExporterStdout, "span exporter: stdout (to stderr) or otlp")
	fs.String(KeyTracingServiceName, observability.DefaultServiceName, "service.name reported with spans")
	fs.Float64(KeyTracingSampleRatio, 1, "fraction of runs traced, 0 to 1")
	fs.String(KeyOTLPEndpoint, "", "OTLP gRPC collector address (default "+observability.DefaultOTLPEndpoint+")")
}

// Load binds fs into v, reads the config file if one is named, and returns
// the resolved configuration.
func Load(v *viper.Viper, fs *pflag.FlagSet) (*Config, error) {
	if err := v.BindPFlags(fs); err != nil {
		return nil, fmt.Errorf("%w: bind flags: %w", ErrInvalidConfig, err)
	}
	if file := v.GetString(KeyConfigFile); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("%w: read %s: %w", ErrInvalidConfig, file, err)
		}
	}

	cfg := &Config{
		Intent:          v.GetString(KeyIntent),
		Topology:        v.GetString(KeyTopology),
		Sink:            strings.ToLower(v.GetString(KeySink)),
		OutputDir:       v.GetString(KeyOutputDir),
		S3Bucket:        v.GetString(KeyS3Bucket),
		S3Prefix:        v.GetString(KeyS3Prefix),
		S3Region:        v.GetString(KeyS3Region),
		Parallelism:     v.GetInt(KeyParallelism),
		LogLevel:        v.GetString(KeyLogLevel),
		LogFormat:       v.GetString(KeyLogFormat),
		MetricsTextfile: v.GetString(KeyMetricsTextfile),
		NoColor:         v.GetBool(KeyNoColor),
		Tracing: observability.TracingConfig{
			Enabled:     v.GetBool(KeyTracingEnabled),
			ServiceName: v.GetString(KeyTracingServiceName),
			Exporter:    strings.ToLower(v.GetString(KeyTracingExporter)),
			Endpoint:    v.GetString(KeyOTLPEndpoint),
			SampleRatio: v.GetFloat64(KeyTracingSampleRatio),
		},
	}
	if r := cfg.Tracing.SampleRatio; r < 0 || r > 1 {
		return nil, fmt.Errorf("%w: --%s %v outside [0, 1]", ErrInvalidConfig, KeyTracingSampleRatio, r)
	}
	return cfg, nil
}

// RequireInputs reports a missing intent or topology path.
func (c *Config) RequireInputs() error {
	var missing []string
	if c.Intent == "" {
		missing = append(missing, KeyIntent)
	}
	if c.Topology == "" {
		missing = append(missing, KeyTopology)
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing --%s", ErrInvalidConfig, strings.Join(missing, ", --"))
	}
	return nil
}

// ValidateSink checks the sink settings used by compile.
func (c *Config) ValidateSink() error {
	switch c.Sink {
	case SinkDir:
		if c.OutputDir == "" {
			return fmt.Errorf("%w: dir sink needs --%s", ErrInvalidConfig, KeyOutputDir)
		}
	case SinkStdout:
	case SinkS3:
		if c.S3Bucket == "" {
			return fmt.Errorf("%w: s3 sink needs --%s", ErrInvalidConfig, KeyS3Bucket)
		}
	default:
		return fmt.Errorf("%w: unknown sink %q (want %s, %s or %s)", ErrInvalidConfig, c.Sink, SinkDir, SinkStdout, SinkS3)
	}
	return nil
}
