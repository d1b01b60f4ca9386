package testutil

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/hatsu-chat/backend/config"
	"github.com/hatsu-chat/backend/internal/entity"
	"github.com/hatsu-chat/backend/pkg/logger"
	"github.com/hatsu-chat/backend/pkg/xcontext"
	"golang.org/x/crypto/bcrypt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// MockContext returns a context holding an isolated in-memory database with
// every table migrated.
func MockContext() context.Context {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Discard})
	if err != nil {
		panic(err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		panic(err)
	}
	sqlDB.SetMaxOpenConns(1)

	cfg := config.Configs{
		Env: "test",
		ApiServer: config.APIServerConfigs{
			MaxLimit:     50,
			DefaultLimit: 50,
		},
		Store: config.StoreConfigs{
			Timeout:   5 * time.Second,
			BatchSize: 2,
		},
		Dispatcher: config.DispatcherConfigs{
			Timeout:           time.Second,
			QueueSize:         64,
			SessionBufferSize: 64,
		},
		RateLimit: config.RateLimitConfigs{
			MaxKeys: 1000,
		},
		Auth: config.AuthConfigs{
			BcryptCost:  bcrypt.MinCost,
			MaxSessions: 10,
		},
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}

	ctx := context.Background()
	ctx = xcontext.WithConfigs(ctx, cfg)
	ctx = xcontext.WithLogger(ctx, logger.NewLogger(logger.SILENCE))
	ctx = xcontext.WithDB(ctx, db)
	ctx = xcontext.WithSnowFlake(ctx, node)

	if err := entity.MigrateTable(ctx); err != nil {
		panic(err)
	}

	return ctx
}

// MockContextWithToken returns a fixture database context which carries the
// session token of a fixture user.
func MockContextWithToken(token string) context.Context {
	ctx := MockContext()
	CreateFixtureDb(ctx)
	return xcontext.WithSessionToken(ctx, token)
}
