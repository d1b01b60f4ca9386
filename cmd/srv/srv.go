package main

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/hatsu-chat/backend/internal/common"
	"github.com/hatsu-chat/backend/internal/domain"
	"github.com/hatsu-chat/backend/internal/domain/notification/dispatcher"
	"github.com/hatsu-chat/backend/internal/entity"
	"github.com/hatsu-chat/backend/internal/repository"
	"github.com/hatsu-chat/backend/pkg/kafka"
	"github.com/hatsu-chat/backend/pkg/keylock"
	"github.com/hatsu-chat/backend/pkg/pubsub"
	"github.com/hatsu-chat/backend/pkg/ratelimit"
	"github.com/hatsu-chat/backend/pkg/xcontext"
	"github.com/hatsu-chat/backend/pkg/xredis"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type srv struct {
	ctx context.Context

	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
	guildRepo   repository.GuildRepository
	roleRepo    repository.RoleRepository
	memberRepo  repository.MemberRepository
	channelRepo repository.ChannelRepository
	inviteRepo  repository.InviteRepository
	messageRepo repository.MessageRepository

	userDomain    domain.UserDomain
	guildDomain   domain.GuildDomain
	channelDomain domain.ChannelDomain
	inviteDomain  domain.InviteDomain
	messageDomain domain.MessageDomain
	roleDomain    domain.RoleDomain

	guard      *common.Guard
	locker     *keylock.Locker
	dispatcher dispatcher.Dispatcher
	publisher  pubsub.Publisher
	limiter    *ratelimit.Limiter

	redisClient xredis.Client
}

func (s *srv) newDatabase() *gorm.DB {
	cfg := xcontext.Configs(s.ctx).Database
	db, err := gorm.Open(mysql.New(mysql.Config{
		DSN:                       cfg.ConnectionString(),
		DefaultStringSize:         256,
		DisableDatetimePrecision:  true,
		DontSupportRenameIndex:    true,
		DontSupportRenameColumn:   true,
		SkipInitializeWithVersion: false,
	}), &gorm.Config{
		Logger: gormlogger.Default.LogMode(parseDatabaseLogLevel(cfg.LogLevel)),
	})
	if err != nil {
		panic(err)
	}

	return db
}

func (s *srv) migrateDB() {
	if err := entity.MigrateTable(s.ctx); err != nil {
		panic(err)
	}
}

func (s *srv) loadSnowFlake() {
	node, err := snowflake.NewNode(xcontext.Configs(s.ctx).SnowFlake.NodeID)
	if err != nil {
		panic(err)
	}

	s.ctx = xcontext.WithSnowFlake(s.ctx, node)
}

func (s *srv) loadRedisClient() {
	if !xcontext.Configs(s.ctx).Redis.Enable {
		return
	}

	var err error
	s.redisClient, err = xredis.NewClient(s.ctx)
	if err != nil {
		panic(err)
	}
}

// loadPublisher connects to kafka only if a dispatcher topic is configured.
func (s *srv) loadPublisher() {
	cfg := xcontext.Configs(s.ctx)
	if cfg.Dispatcher.Topic == "" {
		return
	}

	publisher, err := kafka.NewPublisher(cfg.Kafka.ClientID, []string{cfg.Kafka.Addr})
	if err != nil {
		panic(err)
	}

	s.publisher = publisher
}

func (s *srv) loadRateLimiter() {
	cfg := xcontext.Configs(s.ctx).RateLimit
	if !cfg.Enable {
		return
	}

	var store ratelimit.Store
	if s.redisClient != nil {
		store = ratelimit.NewRedisStore(s.redisClient)
	} else {
		store = ratelimit.NewMemoryStore(cfg.MaxKeys, cfg.CleanupInterval)
	}

	s.limiter = ratelimit.New(store).
		WithRoute("/register", ratelimit.Rule{Limit: 1, Period: time.Hour})
}

func (s *srv) loadRepos() {
	s.userRepo = repository.NewUserRepository()
	s.sessionRepo = repository.NewSessionRepository()
	s.guildRepo = repository.NewGuildRepository()
	s.roleRepo = repository.NewRoleRepository()
	s.memberRepo = repository.NewMemberRepository()
	s.channelRepo = repository.NewChannelRepository()
	s.inviteRepo = repository.NewInviteRepository()
	s.messageRepo = repository.NewMessageRepository()
}

func (s *srv) loadDispatcher() {
	s.dispatcher = dispatcher.New(s.ctx, s.memberRepo, s.publisher)
}

func (s *srv) loadDomains() {
	s.guard = common.NewGuard(s.sessionRepo, s.userRepo, s.guildRepo, s.memberRepo, s.roleRepo, s.channelRepo)

	s.userDomain = domain.NewUserDomain(s.userRepo, s.sessionRepo, s.memberRepo,
		s.guard, s.dispatcher, s.locker)
	s.guildDomain = domain.NewGuildDomain(s.guildRepo, s.channelRepo, s.memberRepo, s.roleRepo,
		s.inviteRepo, s.messageRepo, s.guard, s.dispatcher, s.locker)
	s.channelDomain = domain.NewChannelDomain(s.channelRepo, s.roleRepo, s.messageRepo,
		s.guard, s.dispatcher, s.locker)
	s.inviteDomain = domain.NewInviteDomain(s.inviteRepo, s.guildRepo, s.memberRepo,
		s.guard, s.dispatcher, s.locker, nil)
	s.messageDomain = domain.NewMessageDomain(s.messageRepo, s.memberRepo,
		s.guard, s.dispatcher, s.locker)
	s.roleDomain = domain.NewRoleDomain(s.roleRepo, s.memberRepo, s.channelRepo,
		s.guard, s.dispatcher, s.locker)
}

func parseDatabaseLogLevel(level string) gormlogger.LogLevel {
	switch level {
	case "silent":
		return gormlogger.Silent
	case "warn":
		return gormlogger.Warn
	case "info":
		return gormlogger.Info
	default:
		return gormlogger.Error
	}
}
