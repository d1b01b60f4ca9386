package domain

import (
	"strings"
	"testing"

	"github.com/hatsu-chat/backend/internal/common"
	"github.com/hatsu-chat/backend/internal/model"
	"github.com/hatsu-chat/backend/internal/repository"
	"github.com/hatsu-chat/backend/pkg/errorx"
	"github.com/hatsu-chat/backend/pkg/testutil"
	"github.com/stretchr/testify/require"
)

func Test_guildDomain_Create(t *testing.T) {
	tests := []struct {
		name    string
		token   string
		req     *model.CreateGuildRequest
		wantErr error
	}{
		{
			name:  "happy case",
			token: testutil.PlainToken,
			req:   &model.CreateGuildRequest{Name: "  Book club  ", Description: "Reading together"},
		},
		{
			name:    "missing name",
			token:   testutil.PlainToken,
			req:     &model.CreateGuildRequest{Name: "   "},
			wantErr: errorx.New(errorx.BadRequest, "Missing field name"),
		},
		{
			name:  "bots cannot create guilds",
			token: testutil.BotToken,
			req:   &model.CreateGuildRequest{Name: "Bot land"},
			wantErr: errorx.New(errorx.PermissionDenied, "Bots cannot create guilds").
				WithReason(common.ReasonBotForbidden),
		},
		{
			name:    "not authenticated",
			req:     &model.CreateGuildRequest{Name: "Nobody"},
			wantErr: errorx.New(errorx.Unauthenticated, "You need to authenticate before"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newSuite(t)
			d := s.guildDomain()

			resp, err := d.Create(s.as(tt.token), tt.req)
			if tt.wantErr != nil {
				require.Error(t, err)
				require.Equal(t, tt.wantErr, err)
				require.Empty(t, s.dispatcher.ops())
				return
			}

			require.NoError(t, err)
			guild := resp.Guild
			require.Equal(t, "Book club", guild.Name)
			require.Equal(t, model.FormatID(testutil.PlainUser.ID), guild.OwnerID)

			require.Len(t, guild.Channels, 2)
			require.Equal(t, "General", guild.Channels[0].Name)
			require.Equal(t, "category", guild.Channels[0].Type)
			require.Equal(t, "general", guild.Channels[1].Name)
			require.Equal(t, "text", guild.Channels[1].Type)
			require.Equal(t, guild.Channels[0].ID, guild.Channels[1].InsideOf)

			guildID := parseID(t, guild.ID)
			member, err := s.memberRepo.Get(s.ctx, guildID, testutil.PlainUser.ID)
			require.NoError(t, err)
			require.True(t, member.Owner)

			channels, err := s.channelRepo.GetByGuildID(s.ctx, guildID)
			require.NoError(t, err)
			require.Len(t, channels, 2)

			require.Equal(t, []subscription{{GuildID: guildID, UserID: testutil.PlainUser.ID}}, s.dispatcher.joins)
			created := s.dispatcher.eventsOf("GUILD_CREATE")
			require.Len(t, created, 1)
			require.Equal(t, testutil.PlainUser.ID, created[0].UserID)
		})
	}
}

func Test_guildDomain_Get(t *testing.T) {
	s := newSuite(t)
	d := s.guildDomain()

	_, err := d.Get(s.as(testutil.OutsiderToken), &model.GetGuildRequest{GuildID: testutil.FixtureGuild.ID})
	require.Equal(t, errorx.New(errorx.PermissionDenied, "Permission denied").WithReason(common.ReasonNotInGuild), err)

	_, err = d.Get(s.as(testutil.PlainToken), &model.GetGuildRequest{GuildID: 999})
	require.Equal(t, errorx.New(errorx.NotFound, "Not found guild"), err)

	resp, err := d.Get(s.as(testutil.PlainToken), &model.GetGuildRequest{GuildID: testutil.FixtureGuild.ID})
	require.NoError(t, err)
	require.Len(t, resp.Guild.Roles, len(testutil.Roles))
	require.Len(t, resp.Guild.Channels, len(testutil.Channels))
}

func Test_guildDomain_GetPreview(t *testing.T) {
	s := newSuite(t)
	d := s.guildDomain()

	resp, err := d.GetPreview(s.as(testutil.OutsiderToken), &model.GetGuildPreviewRequest{
		GuildID: testutil.FixtureGuild.ID,
	})
	require.NoError(t, err)
	require.Equal(t, int64(len(testutil.Members)), resp.MemberCount)
	require.Len(t, resp.Guild.Channels, len(testutil.Channels))

	_, err = d.GetPreview(s.ctx, &model.GetGuildPreviewRequest{GuildID: 999})
	require.Equal(t, errorx.New(errorx.NotFound, "Not found guild"), err)
}

func Test_guildDomain_Edit(t *testing.T) {
	tests := []struct {
		name    string
		token   string
		req     *model.EditGuildRequest
		wantErr error
	}{
		{
			name:  "happy case",
			token: testutil.OwnerToken,
			req:   &model.EditGuildRequest{GuildID: testutil.FixtureGuild.ID, Name: "Renamed"},
		},
		{
			name:    "nothing to update",
			token:   testutil.OwnerToken,
			req:     &model.EditGuildRequest{GuildID: testutil.FixtureGuild.ID},
			wantErr: errorx.New(errorx.BadRequest, "Nothing to update"),
		},
		{
			name:  "missing manage guild",
			token: testutil.ModToken,
			req:   &model.EditGuildRequest{GuildID: testutil.FixtureGuild.ID, Name: "Renamed"},
			wantErr: errorx.New(errorx.PermissionDenied, "Permission denied").
				WithReason(common.ReasonMissingPermission),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newSuite(t)
			d := s.guildDomain()

			resp, err := d.Edit(s.as(tt.token), tt.req)
			if tt.wantErr != nil {
				require.Error(t, err)
				require.Equal(t, tt.wantErr, err)
				return
			}

			require.NoError(t, err)
			require.Equal(t, tt.req.Name, resp.Guild.Name)
			require.Equal(t, testutil.FixtureGuild.Description, resp.Guild.Description)
			require.Equal(t, []string{"GUILD_UPDATE"}, s.dispatcher.ops())
		})
	}
}

func Test_guildDomain_Edit_Description(t *testing.T) {
	s := newSuite(t)
	d := s.guildDomain()
	ctx := s.as(testutil.OwnerToken)

	description := "About us"
	resp, err := d.Edit(ctx, &model.EditGuildRequest{GuildID: testutil.FixtureGuild.ID, Description: &description})
	require.NoError(t, err)
	require.Equal(t, "About us", resp.Guild.Description)
	require.Equal(t, testutil.FixtureGuild.Name, resp.Guild.Name)

	empty := ""
	resp, err = d.Edit(ctx, &model.EditGuildRequest{GuildID: testutil.FixtureGuild.ID, Description: &empty})
	require.NoError(t, err)
	require.Empty(t, resp.Guild.Description)

	guild, err := s.guildRepo.GetByID(s.ctx, testutil.FixtureGuild.ID)
	require.NoError(t, err)
	require.Empty(t, guild.Description)

	tooLong := strings.Repeat("d", maxDescriptionLength+1)
	_, err = d.Edit(ctx, &model.EditGuildRequest{GuildID: testutil.FixtureGuild.ID, Description: &tooLong})
	require.Error(t, err)
	require.Equal(t, errorx.BadRequest, errorx.CodeOf(err))
}

func Test_guildDomain_Delete(t *testing.T) {
	tests := []struct {
		name    string
		token   string
		wantErr error
	}{
		{
			name:  "owner deletes the guild",
			token: testutil.OwnerToken,
		},
		{
			name:    "moderator is not the owner",
			token:   testutil.ModToken,
			wantErr: errorx.New(errorx.PermissionDenied, "Permission denied").WithReason(common.ReasonNotOwner),
		},
		{
			name:    "outsider",
			token:   testutil.OutsiderToken,
			wantErr: errorx.New(errorx.PermissionDenied, "Permission denied").WithReason(common.ReasonNotInGuild),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newSuite(t)
			d := s.guildDomain()
			guildID := testutil.FixtureGuild.ID

			_, err := d.Delete(s.as(tt.token), &model.DeleteGuildRequest{GuildID: guildID})
			if tt.wantErr != nil {
				require.Error(t, err)
				require.Equal(t, tt.wantErr, err)

				_, err := s.guildRepo.GetByID(s.ctx, guildID)
				require.NoError(t, err)
				require.Empty(t, s.dispatcher.drops)
				return
			}

			require.NoError(t, err)

			_, err = s.guildRepo.GetByID(s.ctx, guildID)
			require.ErrorIs(t, err, repository.ErrNotFound)

			filter := repository.Filter{"guild_id": guildID}
			counts := map[string]func() (int64, error){
				"members":  func() (int64, error) { return s.memberRepo.Count(s.ctx, filter) },
				"roles":    func() (int64, error) { return s.roleRepo.Count(s.ctx, filter) },
				"channels": func() (int64, error) { return s.channelRepo.Count(s.ctx, filter) },
				"invites":  func() (int64, error) { return s.inviteRepo.Count(s.ctx, filter) },
				"messages": func() (int64, error) { return s.messageRepo.Count(s.ctx, filter) },
			}

			for name, count := range counts {
				n, err := count()
				require.NoError(t, err)
				require.Zero(t, n, name)
			}

			require.Equal(t, []string{"GUILD_DELETE"}, s.dispatcher.ops())
			require.Equal(t, []int64{guildID}, s.dispatcher.drops)
		})
	}
}

func Test_guildDomain_GetMembers(t *testing.T) {
	s := newSuite(t)
	d := s.guildDomain()

	resp, err := d.GetMembers(s.as(testutil.PlainToken), &model.GetMembersRequest{GuildID: testutil.FixtureGuild.ID})
	require.NoError(t, err)
	require.Len(t, resp.Members, len(testutil.Members))

	for _, m := range resp.Members {
		require.Equal(t, model.FormatID(testutil.FixtureGuild.ID), m.GuildID)
		require.NotEmpty(t, m.User.Username)
	}

	_, err = d.GetMembers(s.as(testutil.OutsiderToken), &model.GetMembersRequest{GuildID: testutil.FixtureGuild.ID})
	require.Equal(t, errorx.New(errorx.PermissionDenied, "Permission denied").WithReason(common.ReasonNotInGuild), err)
}

func Test_guildDomain_Leave(t *testing.T) {
	s := newSuite(t)
	d := s.guildDomain()
	req := &model.LeaveGuildRequest{GuildID: testutil.FixtureGuild.ID}

	_, err := d.Leave(s.as(testutil.OwnerToken), req)
	require.Equal(t, errorx.New(errorx.PermissionDenied, "Owner cannot leave the guild").
		WithReason(common.ReasonOwnerCannotLeave), err)

	_, err = d.Leave(s.as(testutil.PlainToken), req)
	require.NoError(t, err)

	_, err = s.memberRepo.Get(s.ctx, testutil.FixtureGuild.ID, testutil.PlainUser.ID)
	require.ErrorIs(t, err, repository.ErrNotFound)

	require.Equal(t, []string{"MEMBER_LEAVE"}, s.dispatcher.ops())
	require.Equal(t, []subscription{{GuildID: testutil.FixtureGuild.ID, UserID: testutil.PlainUser.ID}},
		s.dispatcher.leaves)

	// A former member is no longer in the guild.
	_, err = d.Leave(s.as(testutil.PlainToken), req)
	require.Equal(t, errorx.New(errorx.PermissionDenied, "Permission denied").WithReason(common.ReasonNotInGuild), err)
}

func Test_guildDomain_Kick(t *testing.T) {
	tests := []struct {
		name    string
		token   string
		userID  int64
		wantErr error
	}{
		{
			name:   "moderator kicks a plain member",
			token:  testutil.ModToken,
			userID: testutil.PlainUser.ID,
		},
		{
			name:   "owner kicks the moderator",
			token:  testutil.OwnerToken,
			userID: testutil.ModUser.ID,
		},
		{
			name:   "moderator cannot kick the owner",
			token:  testutil.ModToken,
			userID: testutil.OwnerUser.ID,
			wantErr: errorx.New(errorx.PermissionDenied, "Cannot kick the owner").
				WithReason(common.ReasonRoleHierarchy),
		},
		{
			name:   "plain member lacks kick members",
			token:  testutil.PlainToken,
			userID: testutil.ModUser.ID,
			wantErr: errorx.New(errorx.PermissionDenied, "Permission denied").
				WithReason(common.ReasonMissingPermission),
		},
		{
			name:    "kick yourself",
			token:   testutil.ModToken,
			userID:  testutil.ModUser.ID,
			wantErr: errorx.New(errorx.BadRequest, "Cannot kick yourself, leave the guild instead"),
		},
		{
			name:    "not a member",
			token:   testutil.ModToken,
			userID:  testutil.OutsiderUser.ID,
			wantErr: errorx.New(errorx.NotFound, "Not found member"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newSuite(t)
			d := s.guildDomain()

			_, err := d.Kick(s.as(tt.token), &model.KickMemberRequest{
				GuildID: testutil.FixtureGuild.ID,
				UserID:  tt.userID,
			})
			if tt.wantErr != nil {
				require.Error(t, err)
				require.Equal(t, tt.wantErr, err)
				require.Empty(t, s.dispatcher.ops())
				return
			}

			require.NoError(t, err)

			_, err = s.memberRepo.Get(s.ctx, testutil.FixtureGuild.ID, tt.userID)
			require.ErrorIs(t, err, repository.ErrNotFound)
			require.Equal(t, []string{"MEMBER_REMOVE"}, s.dispatcher.ops())
			require.Equal(t, []subscription{{GuildID: testutil.FixtureGuild.ID, UserID: tt.userID}},
				s.dispatcher.leaves)
		})
	}
}
