package main

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/hatsu-chat/backend/config"
	"github.com/hatsu-chat/backend/pkg/keylock"
	"github.com/hatsu-chat/backend/pkg/logger"
	"github.com/hatsu-chat/backend/pkg/xcontext"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

func defaultConfigs() config.Configs {
	return config.Configs{
		Env:      "local",
		LogLevel: "info",
		Database: config.DatabaseConfigs{
			Host:     "localhost",
			Port:     "3306",
			Database: "hatsu",
			User:     "mysql",
			Password: "mysql",
			LogLevel: "error",
		},
		ApiServer: config.APIServerConfigs{
			ServerConfigs: config.ServerConfigs{
				Host: "",
				Port: "8080",
			},
			BaseURL:        "http://localhost:8080",
			AllowedOrigins: []string{"*"},
			MaxLimit:       50,
			DefaultLimit:   50,
		},
		Store: config.StoreConfigs{
			Timeout:   5 * time.Second,
			BatchSize: 100,
		},
		Dispatcher: config.DispatcherConfigs{
			Timeout:           time.Second,
			QueueSize:         1024,
			SessionBufferSize: 256,
		},
		Redis: config.RedisConfigs{
			Addr: "localhost:6379",
		},
		Kafka: config.KafkaConfigs{
			Addr:     "localhost:9092",
			ClientID: "hatsu-api",
		},
		RateLimit: config.RateLimitConfigs{
			Enable:          true,
			MaxKeys:         100000,
			CleanupInterval: time.Minute,
		},
		SnowFlake: config.SnowFlakeConfigs{
			NodeID: 1,
		},
		Auth: config.AuthConfigs{
			BcryptCost:  12,
			MaxSessions: 10,
		},
	}
}

// loadConfig builds the configs from the defaults, then the toml file, then
// the dotenv file and the environment.
func (s *srv) loadConfig(cctx *cli.Context) error {
	cfg := defaultConfigs()

	if path := cctx.String("config"); path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return err
		}
	}

	if err := godotenv.Load(cctx.String("env-file")); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	cfg.Env = getEnv("ENV", cfg.Env)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)

	cfg.Database.Host = getEnv("MYSQL_HOST", cfg.Database.Host)
	cfg.Database.Port = getEnv("MYSQL_PORT", cfg.Database.Port)
	cfg.Database.Database = getEnv("MYSQL_DATABASE", cfg.Database.Database)
	cfg.Database.User = getEnv("MYSQL_USER", cfg.Database.User)
	cfg.Database.Password = getEnv("MYSQL_PASSWORD", cfg.Database.Password)
	cfg.Database.LogLevel = getEnv("DATABASE_LOG_LEVEL", cfg.Database.LogLevel)

	cfg.ApiServer.Host = getEnv("API_HOST", cfg.ApiServer.Host)
	cfg.ApiServer.Port = getEnv("API_PORT", cfg.ApiServer.Port)
	cfg.ApiServer.Cert = getEnv("API_CERT", cfg.ApiServer.Cert)
	cfg.ApiServer.Key = getEnv("API_KEY", cfg.ApiServer.Key)
	cfg.ApiServer.BaseURL = getEnv("API_BASE_URL", cfg.ApiServer.BaseURL)
	cfg.ApiServer.AllowedOrigins = getListEnv("API_ALLOWED_ORIGINS", cfg.ApiServer.AllowedOrigins)
	cfg.ApiServer.MaxLimit = getIntEnv("API_MAX_LIMIT", cfg.ApiServer.MaxLimit)
	cfg.ApiServer.DefaultLimit = getIntEnv("API_DEFAULT_LIMIT", cfg.ApiServer.DefaultLimit)

	cfg.Store.Timeout = getDurationEnv("STORE_TIMEOUT", cfg.Store.Timeout)
	cfg.Store.BatchSize = getIntEnv("STORE_BATCH_SIZE", cfg.Store.BatchSize)

	cfg.Dispatcher.Timeout = getDurationEnv("DISPATCHER_TIMEOUT", cfg.Dispatcher.Timeout)
	cfg.Dispatcher.QueueSize = getIntEnv("DISPATCHER_QUEUE_SIZE", cfg.Dispatcher.QueueSize)
	cfg.Dispatcher.SessionBufferSize = getIntEnv("DISPATCHER_SESSION_BUFFER_SIZE", cfg.Dispatcher.SessionBufferSize)
	cfg.Dispatcher.Topic = getEnv("DISPATCHER_TOPIC", cfg.Dispatcher.Topic)

	cfg.Redis.Enable = getBoolEnv("REDIS_ENABLE", cfg.Redis.Enable)
	cfg.Redis.Addr = getEnv("REDIS_ADDRESS", cfg.Redis.Addr)

	cfg.Kafka.Addr = getEnv("KAFKA_ADDRESS", cfg.Kafka.Addr)
	cfg.Kafka.ClientID = getEnv("KAFKA_CLIENT_ID", cfg.Kafka.ClientID)

	cfg.RateLimit.Enable = getBoolEnv("RATELIMIT_ENABLE", cfg.RateLimit.Enable)
	cfg.RateLimit.MaxKeys = getIntEnv("RATELIMIT_MAX_KEYS", cfg.RateLimit.MaxKeys)
	cfg.RateLimit.CleanupInterval = getDurationEnv("RATELIMIT_CLEANUP_INTERVAL", cfg.RateLimit.CleanupInterval)

	cfg.SnowFlake.NodeID = int64(getIntEnv("SNOWFLAKE_NODE_ID", int(cfg.SnowFlake.NodeID)))

	cfg.Auth.BcryptCost = getIntEnv("AUTH_BCRYPT_COST", cfg.Auth.BcryptCost)
	cfg.Auth.MaxSessions = getIntEnv("AUTH_MAX_SESSIONS", cfg.Auth.MaxSessions)

	s.ctx = xcontext.WithConfigs(s.ctx, cfg)
	s.ctx = xcontext.WithLogger(s.ctx, logger.NewLogger(logger.ParseLevel(cfg.LogLevel)))
	s.locker = keylock.New(keylock.DefaultStripes)
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}

	return fallback
}

func getIntEnv(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}

	i, err := strconv.Atoi(value)
	if err != nil {
		panic(err)
	}

	return i
}

func getBoolEnv(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}

	b, err := strconv.ParseBool(value)
	if err != nil {
		panic(err)
	}

	return b
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}

	d, err := time.ParseDuration(value)
	if err != nil {
		panic(err)
	}

	return d
}

func getListEnv(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}

	result := []string{}
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			result = append(result, item)
		}
	}

	return result
}
