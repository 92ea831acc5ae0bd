package configs

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/hilthontt/zeroroom/internal/infrastructure/env"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	HTTP        HTTPConfig        `koanf:"http"`
	Room        RoomConfig        `koanf:"room"`
	WS          WSConfig          `koanf:"ws"`
	RateLimiter RateLimiterConfig `koanf:"rateLimiter"`
	Logger      LoggerConfig      `koanf:"logger"`
	Tracing     TracingConfig     `koanf:"tracing"`
	RabbitMQ    RabbitMQConfig    `koanf:"rabbitmq"`
	Mongo       MongoConfig       `koanf:"mongo"`
	Redis       RedisConfig       `koanf:"redis"`
}

type HTTPConfig struct {
	Host           string        `koanf:"host"`
	Port           uint16        `koanf:"port"`
	AllowedOrigins []string      `koanf:"allowed_origins"`
	AllowedHeaders []string      `koanf:"allowed_headers"`
	ReadTimeout    time.Duration `koanf:"read_timeout"`
	WriteTimeout   time.Duration `koanf:"write_timeout"`
}

type RoomConfig struct {
	MaxMembers       int             `koanf:"max_members"`
	DefaultDuration  time.Duration   `koanf:"default_duration"`
	DurationOptions  []time.Duration `koanf:"duration_options"`
	MaxMessageLength int             `koanf:"max_message_length"`
}

type WSConfig struct {
	ReadBufferSize  int           `koanf:"read_buffer_size"`
	WriteBufferSize int           `koanf:"write_buffer_size"`
	SendQueueSize   int           `koanf:"send_queue_size"`
	MaxMessageSize  int64         `koanf:"max_message_size"`
	WriteWait       time.Duration `koanf:"write_wait"`
	PongWait        time.Duration `koanf:"pong_wait"`
}

type RateLimiterConfig struct {
	MaxRatePerSecond  int           `koanf:"maxRatePerSecond"`
	MaxBurst          int           `koanf:"maxBurst"`
	MessagesPerSecond int           `koanf:"messagesPerSecond"`
	MessageBurst      int           `koanf:"messageBurst"`
	CacheTTL          time.Duration `koanf:"cacheTTL"`
	SourceHeaderKey   string        `koanf:"sourceHeaderKey"`
}

type LoggerConfig struct {
	FilePath string `koanf:"file_path"`
	Encoding string `koanf:"encoding"`
	Level    string `koanf:"level"`
	Logger   string `koanf:"logger"`
}

type TracingConfig struct {
	Enabled     bool    `koanf:"enabled"`
	Endpoint    string  `koanf:"endpoint"`
	ServiceName string  `koanf:"service_name"`
	SampleRatio float64 `koanf:"sample_ratio"`
}

type RabbitMQConfig struct {
	URI      string `koanf:"uri"`
	Exchange string `koanf:"exchange"`
	Queue    string `koanf:"queue"`
}

type MongoConfig struct {
	URI      string        `koanf:"uri"`
	Database string        `koanf:"database"`
	AuditTTL time.Duration `koanf:"audit_ttl"`
}

type RedisConfig struct {
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	applyDefaults(k)
	applyEnvOverrides(k)

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error

	if c.HTTP.Port == 0 {
		errs = append(errs, errors.New("http.port must be set"))
	}
	if c.Room.MaxMembers < 1 {
		errs = append(errs, fmt.Errorf("room.max_members must be at least 1, got %d", c.Room.MaxMembers))
	}
	if c.Room.MaxMessageLength < 1 {
		errs = append(errs, fmt.Errorf("room.max_message_length must be at least 1, got %d", c.Room.MaxMessageLength))
	}
	if len(c.Room.DurationOptions) == 0 {
		errs = append(errs, errors.New("room.duration_options must not be empty"))
	}
	for _, d := range c.Room.DurationOptions {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("room.duration_options contains non-positive duration %s", d))
		}
	}
	if !slices.Contains(c.Room.DurationOptions, c.Room.DefaultDuration) {
		errs = append(errs, fmt.Errorf("room.default_duration %s is not one of room.duration_options", c.Room.DefaultDuration))
	}
	if c.WS.SendQueueSize < 1 {
		errs = append(errs, errors.New("ws.send_queue_size must be at least 1"))
	}
	if c.WS.PongWait <= 0 || c.WS.WriteWait <= 0 {
		errs = append(errs, errors.New("ws.pong_wait and ws.write_wait must be positive"))
	}
	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		errs = append(errs, fmt.Errorf("tracing.sample_ratio must be within [0, 1], got %v", c.Tracing.SampleRatio))
	}

	return errors.Join(errs...)
}

func applyDefaults(k *koanf.Koanf) {
	// HTTP defaults
	setDefault(k, "http.host", "0.0.0.0")
	setDefault(k, "http.port", 5000)
	setDefault(k, "http.read_timeout", 10*time.Second)
	setDefault(k, "http.write_timeout", 30*time.Second)
	setDefault(k, "http.allowed_origins", []string{"*"})
	setDefault(k, "http.allowed_headers", []string{"Content-Type", "Authorization"})

	// Room defaults
	setDefault(k, "room.max_members", 10)
	setDefault(k, "room.default_duration", time.Hour)
	setDefault(k, "room.duration_options", []time.Duration{time.Hour, 2 * time.Hour, 3 * time.Hour})
	setDefault(k, "room.max_message_length", 2000)

	// Websocket defaults
	setDefault(k, "ws.read_buffer_size", 1024)
	setDefault(k, "ws.write_buffer_size", 1024)
	setDefault(k, "ws.send_queue_size", 64)
	setDefault(k, "ws.max_message_size", 16*1024)
	setDefault(k, "ws.write_wait", 10*time.Second)
	setDefault(k, "ws.pong_wait", 60*time.Second)

	// Rate limiter defaults
	setDefault(k, "rateLimiter.maxRatePerSecond", 10)
	setDefault(k, "rateLimiter.maxBurst", 20)
	setDefault(k, "rateLimiter.messagesPerSecond", 5)
	setDefault(k, "rateLimiter.messageBurst", 10)
	setDefault(k, "rateLimiter.cacheTTL", 5*time.Minute)
	setDefault(k, "rateLimiter.sourceHeaderKey", "X-Forwarded-For")

	// Logger defaults
	setDefault(k, "logger.encoding", "json")
	setDefault(k, "logger.level", "info")
	setDefault(k, "logger.logger", "zap")

	// Tracing defaults
	setDefault(k, "tracing.enabled", false)
	setDefault(k, "tracing.endpoint", "localhost:4318")
	setDefault(k, "tracing.service_name", "zeroroom")
	setDefault(k, "tracing.sample_ratio", 1.0)

	// Messaging and storage defaults
	setDefault(k, "rabbitmq.exchange", "rooms")
	setDefault(k, "rabbitmq.queue", "rooms.audit")
	setDefault(k, "mongo.database", "zeroroom")
	setDefault(k, "mongo.audit_ttl", 24*time.Hour)
}

func applyEnvOverrides(k *koanf.Koanf) {
	// HTTP config from env
	if host := env.GetString("HTTP_HOST", ""); host != "" {
		k.Set("http.host", host)
	}
	if port := env.GetInt("PORT", 0); port > 0 {
		k.Set("http.port", port)
	}
	if port := env.GetInt("HTTP_PORT", 0); port > 0 {
		k.Set("http.port", port)
	}
	if readTimeout := env.GetInt("HTTP_READ_TIMEOUT_SECONDS", 0); readTimeout > 0 {
		k.Set("http.read_timeout", time.Duration(readTimeout)*time.Second)
	}
	if writeTimeout := env.GetInt("HTTP_WRITE_TIMEOUT_SECONDS", 0); writeTimeout > 0 {
		k.Set("http.write_timeout", time.Duration(writeTimeout)*time.Second)
	}

	// Room config from env
	if maxMembers := env.GetInt("ROOM_MAX_MEMBERS", 0); maxMembers > 0 {
		k.Set("room.max_members", maxMembers)
	}
	if d := env.GetDuration("ROOM_DEFAULT_DURATION", 0); d > 0 {
		k.Set("room.default_duration", d)
	}

	// Rate limiter config from env
	if maxRate := env.GetInt("RATE_LIMIT_MAX_RATE_PER_SECOND", 0); maxRate > 0 {
		k.Set("rateLimiter.maxRatePerSecond", maxRate)
	}
	if maxBurst := env.GetInt("RATE_LIMIT_MAX_BURST", 0); maxBurst > 0 {
		k.Set("rateLimiter.maxBurst", maxBurst)
	}
	if cacheTTL := env.GetInt("RATE_LIMIT_CACHE_TTL_MINUTES", 0); cacheTTL > 0 {
		k.Set("rateLimiter.cacheTTL", time.Duration(cacheTTL)*time.Minute)
	}
	if sourceKey := env.GetString("RATE_LIMIT_SOURCE_HEADER_KEY", ""); sourceKey != "" {
		k.Set("rateLimiter.sourceHeaderKey", sourceKey)
	}

	// Logger config from env
	if level := env.GetString("LOGGER_LEVEL", ""); level != "" {
		k.Set("logger.level", level)
	}
	if logger := env.GetString("LOGGER_LOGGER", ""); logger != "" {
		k.Set("logger.logger", logger)
	}
	if path := env.GetString("LOGGER_FILE_PATH", ""); path != "" {
		k.Set("logger.file_path", path)
	}

	// Backing services from env
	if endpoint := env.GetString("OTEL_EXPORTER_OTLP_ENDPOINT", ""); endpoint != "" {
		k.Set("tracing.endpoint", endpoint)
		k.Set("tracing.enabled", true)
	}
	if uri := env.GetString("RABBITMQ_URI", ""); uri != "" {
		k.Set("rabbitmq.uri", uri)
	}
	if uri := env.GetString("MONGO_URI", ""); uri != "" {
		k.Set("mongo.uri", uri)
	}
	if addr := env.GetString("REDIS_ADDR", ""); addr != "" {
		k.Set("redis.addr", addr)
	}
	if password := env.GetString("REDIS_PASSWORD", ""); password != "" {
		k.Set("redis.password", password)
	}
}

// setDefault only sets the value if the key doesn't already exist
func setDefault(k *koanf.Koanf, key string, value any) {
	if !k.Exists(key) {
		k.Set(key, value)
	}
}
