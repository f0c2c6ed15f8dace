// Package config loads service configuration from environment variables.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Configuration is the complete service configuration.
type Configuration struct {
	Service       ServiceConfig
	Recognizer    RecognizerConfig
	Dictation     DictationConfig
	Settings      SettingsConfig
	Kafka         KafkaConfig
	Observability ObservabilityConfig
}

type ServiceConfig struct {
	Principal string
	HTTPPort  string
	GRPCPort  string
	Env       string
}

// RecognizerConfig selects the recognition source.
// Provider is one of remote, mock or google.
type RecognizerConfig struct {
	Provider       string
	LanguageCode   string
	SampleRateHz   int
	InterimResults bool
	AudioEncoding  string
}

type DictationConfig struct {
	MergeInterim bool
	MaxDuration  time.Duration
	MaxResults   int
}

// SettingsConfig selects the settings backend: memory, file or redis.
type SettingsConfig struct {
	Backend         string
	Path            string
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	RedisPrefix     string
	User            string
	DefaultLanguage string
}

type KafkaConfig struct {
	Enabled      bool
	Brokers      []string
	TopicPartial string
	TopicFinal   string
	Principal    string
}

type ObservabilityConfig struct {
	LogLevel    string
	LogFormat   string
	MetricsAddr string
}

// Load reads the configuration. Unparseable values fall back to defaults.
func Load() *Configuration {
	principal := envOrDefault("SERVICE_PRINCIPAL", "svc-voice-scribe")

	return &Configuration{
		Service: ServiceConfig{
			Principal: principal,
			HTTPPort:  envOrDefault("HTTP_PORT", "8080"),
			GRPCPort:  envOrDefault("GRPC_PORT", "50051"),
			Env:       envOrDefault("ENV", "prod"),
		},
		Recognizer: RecognizerConfig{
			Provider:       envOrDefault("RECOGNIZER_PROVIDER", "remote"),
			LanguageCode:   envOrDefault("RECOGNIZER_LANGUAGE_CODE", "en-US"),
			SampleRateHz:   envOrDefaultInt("RECOGNIZER_SAMPLE_RATE_HZ", 16000),
			InterimResults: envOrDefaultBool("RECOGNIZER_INTERIM_RESULTS", true),
			AudioEncoding:  envOrDefault("RECOGNIZER_AUDIO_ENCODING", "LINEAR16"),
		},
		Dictation: DictationConfig{
			MergeInterim: envOrDefaultBool("DICTATION_MERGE_INTERIM", true),
			MaxDuration:  envOrDefaultDuration("DICTATION_MAX_DURATION", 10*time.Minute),
			MaxResults:   envOrDefaultInt("DICTATION_MAX_RESULTS", 5000),
		},
		Settings: SettingsConfig{
			Backend:         envOrDefault("SETTINGS_BACKEND", "memory"),
			Path:            envOrDefault("SETTINGS_PATH", "settings.yaml"),
			RedisAddr:       envOrDefault("SETTINGS_REDIS_ADDR", "localhost:6379"),
			RedisPassword:   os.Getenv("SETTINGS_REDIS_PASSWORD"),
			RedisDB:         envOrDefaultInt("SETTINGS_REDIS_DB", 0),
			RedisPrefix:     envOrDefault("SETTINGS_REDIS_PREFIX", "voice-scribe:settings:"),
			User:            envOrDefault("SETTINGS_USER", "default"),
			DefaultLanguage: envOrDefault("SETTINGS_DEFAULT_LANGUAGE", "en-US"),
		},
		Kafka: KafkaConfig{
			Enabled:      envOrDefaultBool("KAFKA_ENABLED", false),
			Brokers:      envOrDefaultList("KAFKA_BROKERS", nil),
			TopicPartial: envOrDefault("KAFKA_TOPIC_PARTIAL", "dictation.transcript.partial"),
			TopicFinal:   envOrDefault("KAFKA_TOPIC_FINAL", "dictation.transcript.final"),
			Principal:    envOrDefault("KAFKA_PRINCIPAL", principal),
		},
		Observability: ObservabilityConfig{
			LogLevel:    envOrDefault("LOG_LEVEL", "info"),
			LogFormat:   envOrDefault("LOG_FORMAT", "json"),
			MetricsAddr: envOrDefault("METRICS_ADDR", ":9090"),
		},
	}
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envOrDefaultBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envOrDefaultDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

// envOrDefaultList splits a comma separated value, dropping empty items.
func envOrDefaultList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
