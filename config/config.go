package config

import (
	"fmt"
	"time"
)

type Configs struct {
	Env      string
	LogLevel string

	Database   DatabaseConfigs
	ApiServer  APIServerConfigs
	Store      StoreConfigs
	Dispatcher DispatcherConfigs
	Redis      RedisConfigs
	Kafka      KafkaConfigs
	RateLimit  RateLimitConfigs
	SnowFlake  SnowFlakeConfigs
	Auth       AuthConfigs
}

type DatabaseConfigs struct {
	Host     string
	Port     string
	Database string
	User     string
	Password string
	LogLevel string
}

func (d DatabaseConfigs) ConnectionString() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		d.User,
		d.Password,
		d.Host,
		d.Port,
		d.Database,
	)
}

type ServerConfigs struct {
	Host string
	Port string
	Cert string
	Key  string
}

func (c ServerConfigs) Address() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

type APIServerConfigs struct {
	ServerConfigs

	// BaseURL is returned by the health endpoint.
	BaseURL        string
	AllowedOrigins []string

	MaxLimit     int
	DefaultLimit int
}

type StoreConfigs struct {
	// Timeout bounds every single store call.
	Timeout time.Duration

	// BatchSize is the number of rows a cursor loads per round trip.
	BatchSize int
}

type DispatcherConfigs struct {
	// Timeout bounds the time waiting for a free slot in a guild queue.
	Timeout time.Duration

	QueueSize         int
	SessionBufferSize int

	// Topic is the kafka topic which every dispatched event is mirrored to. An
	// empty topic disables mirroring.
	Topic string
}

type RedisConfigs struct {
	Enable bool
	Addr   string
}

type KafkaConfigs struct {
	Addr     string
	ClientID string
}

type RateLimitConfigs struct {
	Enable bool

	// MaxKeys bounds the number of buckets held by the in-memory store.
	MaxKeys         int
	CleanupInterval time.Duration
}

type SnowFlakeConfigs struct {
	NodeID int64
}

type AuthConfigs struct {
	BcryptCost int

	// MaxSessions is the maximum number of active session tokens per user.
	MaxSessions int
}
