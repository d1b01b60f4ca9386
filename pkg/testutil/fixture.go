package testutil

import (
	"context"
	"database/sql"

	"github.com/hatsu-chat/backend/internal/entity"
	"github.com/hatsu-chat/backend/internal/repository"
	"github.com/hatsu-chat/backend/pkg/crypto"
)

const (
	OwnerToken    = "owner-token"
	ModToken      = "mod-token"
	PlainToken    = "plain-token"
	OutsiderToken = "outsider-token"
	BotToken      = "bot-token"

	FixturePassword = "password"
)

var (
	OwnerUser = &entity.User{
		SnowFlakeBase: entity.SnowFlakeBase{ID: 1},
		Username:      "owner",
		Discriminator: "0001",
		Email:         sql.NullString{Valid: true, String: "owner@hatsu.chat"},
		Verified:      true,
	}

	ModUser = &entity.User{
		SnowFlakeBase: entity.SnowFlakeBase{ID: 2},
		Username:      "moderator",
		Discriminator: "0002",
		Email:         sql.NullString{Valid: true, String: "moderator@hatsu.chat"},
	}

	PlainUser = &entity.User{
		SnowFlakeBase: entity.SnowFlakeBase{ID: 3},
		Username:      "plain",
		Discriminator: "0003",
		Email:         sql.NullString{Valid: true, String: "plain@hatsu.chat"},
	}

	OutsiderUser = &entity.User{
		SnowFlakeBase: entity.SnowFlakeBase{ID: 4},
		Username:      "outsider",
		Discriminator: "0004",
		Email:         sql.NullString{Valid: true, String: "outsider@hatsu.chat"},
	}

	BotUser = &entity.User{
		SnowFlakeBase: entity.SnowFlakeBase{ID: 5},
		Username:      "robot",
		Discriminator: "0005",
		Bot:           true,
		BotOwnerID:    sql.NullInt64{Valid: true, Int64: 1},
	}

	Users = []*entity.User{OwnerUser, ModUser, PlainUser, OutsiderUser, BotUser}

	Sessions = []entity.Session{
		{Token: OwnerToken, UserID: OwnerUser.ID},
		{Token: ModToken, UserID: ModUser.ID},
		{Token: PlainToken, UserID: PlainUser.ID},
		{Token: OutsiderToken, UserID: OutsiderUser.ID},
		{Token: BotToken, UserID: BotUser.ID},
	}

	FixtureGuild = &entity.Guild{
		SnowFlakeBase:     entity.SnowFlakeBase{ID: 100},
		Name:              "Fixture",
		Description:       "Fixture guild",
		OwnerID:           OwnerUser.ID,
		DefaultPermission: entity.DefaultPermission,
	}

	ModRole = &entity.Role{
		SnowFlakeBase: entity.SnowFlakeBase{ID: 200},
		GuildID:       FixtureGuild.ID,
		Name:          "Moderator",
		Position:      2,
		Permissions: entity.DefaultPermission | entity.ManageMessages | entity.KickMembers |
			entity.ManageChannels | entity.ManageRoles,
	}

	MutedRole = &entity.Role{
		SnowFlakeBase: entity.SnowFlakeBase{ID: 201},
		GuildID:       FixtureGuild.ID,
		Name:          "Muted",
		Position:      1,
		Permissions:   entity.ViewChannels | entity.ReadMessageHistory,
	}

	Roles = []*entity.Role{ModRole, MutedRole}

	CategoryChannel = &entity.Channel{
		SnowFlakeBase: entity.SnowFlakeBase{ID: 300},
		GuildID:       FixtureGuild.ID,
		Type:          entity.ChannelCategory,
		Name:          "General",
	}

	GeneralChannel = &entity.Channel{
		SnowFlakeBase: entity.SnowFlakeBase{ID: 301},
		GuildID:       FixtureGuild.ID,
		Type:          entity.ChannelText,
		Name:          "general",
		InsideOf:      sql.NullInt64{Valid: true, Int64: CategoryChannel.ID},
	}

	// AnnouncementChannel denies sending to the plain user but lets them manage
	// messages. Moderators lose ManageMessages there.
	AnnouncementChannel = &entity.Channel{
		SnowFlakeBase: entity.SnowFlakeBase{ID: 302},
		GuildID:       FixtureGuild.ID,
		Type:          entity.ChannelText,
		Name:          "announcements",
		Position:      1,
		InsideOf:      sql.NullInt64{Valid: true, Int64: CategoryChannel.ID},
		Overwrites: entity.Array[entity.PermissionOverwrite]{
			{
				ID:    PlainUser.ID,
				Kind:  entity.OverwriteUser,
				Value: entity.ViewChannels | entity.ReadMessageHistory | entity.ManageMessages,
			},
			{
				ID:    ModRole.ID,
				Kind:  entity.OverwriteRole,
				Value: entity.ViewChannels | entity.ReadMessageHistory | entity.SendMessages,
			},
		},
	}

	Channels = []*entity.Channel{CategoryChannel, GeneralChannel, AnnouncementChannel}

	OwnerMember = &entity.Member{
		GuildID: FixtureGuild.ID,
		UserID:  OwnerUser.ID,
		Profile: entity.NewMemberProfile(OwnerUser),
		Owner:   true,
	}

	ModMember = &entity.Member{
		GuildID: FixtureGuild.ID,
		UserID:  ModUser.ID,
		Profile: entity.NewMemberProfile(ModUser),
		RoleIDs: entity.Array[int64]{ModRole.ID},
	}

	PlainMember = &entity.Member{
		GuildID: FixtureGuild.ID,
		UserID:  PlainUser.ID,
		Profile: entity.NewMemberProfile(PlainUser),
	}

	Members = []*entity.Member{OwnerMember, ModMember, PlainMember}

	FixtureInvite = &entity.Invite{
		Code:      "fixture",
		GuildID:   FixtureGuild.ID,
		CreatorID: OwnerUser.ID,
	}

	FixtureMessage = &entity.Message{
		SnowFlakeBase: entity.SnowFlakeBase{ID: 400},
		GuildID:       FixtureGuild.ID,
		ChannelID:     GeneralChannel.ID,
		AuthorID:      PlainUser.ID,
		Author:        entity.NewMemberProfile(PlainUser),
		Content:       "hello",
	}
)

// CreateFixtureDb inserts the fixture guild with its users, roles, channels,
// members, invite and message.
func CreateFixtureDb(ctx context.Context) {
	InsertUsers(ctx)
	InsertGuild(ctx)
}

func InsertUsers(ctx context.Context) {
	hashed, err := crypto.HashPassword(FixturePassword, 4)
	if err != nil {
		panic(err)
	}

	userRepo := repository.NewUserRepository()
	for _, u := range Users {
		u := *u
		if !u.Bot {
			u.Password = hashed
		}

		if err := userRepo.InsertOne(ctx, &u); err != nil {
			panic(err)
		}
	}

	if err := repository.NewSessionRepository().InsertMany(ctx, Sessions); err != nil {
		panic(err)
	}
}

func InsertGuild(ctx context.Context) {
	guild := *FixtureGuild
	if err := repository.NewGuildRepository().InsertOne(ctx, &guild); err != nil {
		panic(err)
	}

	roleRepo := repository.NewRoleRepository()
	for _, r := range Roles {
		r := *r
		if err := roleRepo.InsertOne(ctx, &r); err != nil {
			panic(err)
		}
	}

	channelRepo := repository.NewChannelRepository()
	for _, c := range Channels {
		c := *c
		if err := channelRepo.InsertOne(ctx, &c); err != nil {
			panic(err)
		}
	}

	memberRepo := repository.NewMemberRepository()
	for _, m := range Members {
		m := *m
		if err := memberRepo.InsertOne(ctx, &m); err != nil {
			panic(err)
		}
	}

	invite := *FixtureInvite
	if err := repository.NewInviteRepository().InsertOne(ctx, &invite); err != nil {
		panic(err)
	}

	message := *FixtureMessage
	if err := repository.NewMessageRepository().InsertOne(ctx, &message); err != nil {
		panic(err)
	}
}
