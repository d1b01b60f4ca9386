package common

import (
	"testing"

	"github.com/hatsu-chat/backend/internal/entity"
	"github.com/hatsu-chat/backend/internal/repository"
	"github.com/hatsu-chat/backend/pkg/errorx"
	"github.com/hatsu-chat/backend/pkg/testutil"
	"github.com/hatsu-chat/backend/pkg/xcontext"
	"github.com/stretchr/testify/require"
)

func newFixtureGuard() *Guard {
	return NewGuard(
		repository.NewSessionRepository(),
		repository.NewUserRepository(),
		repository.NewGuildRepository(),
		repository.NewMemberRepository(),
		repository.NewRoleRepository(),
		repository.NewChannelRepository(),
	)
}

func TestGuard_Authorize(t *testing.T) {
	ctx := testutil.MockContext()
	testutil.CreateFixtureDb(ctx)
	guard := newFixtureGuard()

	type want struct {
		outcome Outcome
		reason  string
		code    errorx.Code
	}

	tests := []struct {
		name   string
		token  string
		target Target
		want   want
	}{
		{
			name:   "owner passes a zero flag",
			token:  testutil.OwnerToken,
			target: Target{GuildID: testutil.FixtureGuild.ID, Flag: 0},
			want:   want{outcome: Allowed},
		},
		{
			name:   "owner passes an unknown flag",
			token:  testutil.OwnerToken,
			target: Target{GuildID: testutil.FixtureGuild.ID, Flag: entity.PermissionFlag(1 << 40)},
			want:   want{outcome: Allowed},
		},
		{
			name:  "owner passes a channel denying everything",
			token: testutil.OwnerToken,
			target: Target{
				GuildID:   testutil.FixtureGuild.ID,
				ChannelID: testutil.AnnouncementChannel.ID,
				Flag:      entity.ManageChannels,
				OwnerOnly: true,
			},
			want: want{outcome: Allowed},
		},
		{
			name:   "unknown session",
			token:  "unknown-token",
			target: Target{GuildID: testutil.FixtureGuild.ID},
			want:   want{outcome: ActorNotFound, code: errorx.Unauthenticated},
		},
		{
			name:   "unknown guild",
			token:  testutil.OwnerToken,
			target: Target{GuildID: 999},
			want:   want{outcome: TargetNotFound, reason: "guild", code: errorx.NotFound},
		},
		{
			name:   "unknown channel",
			token:  testutil.OwnerToken,
			target: Target{GuildID: testutil.FixtureGuild.ID, ChannelID: 999},
			want:   want{outcome: TargetNotFound, reason: "channel", code: errorx.NotFound},
		},
		{
			name:   "not a member",
			token:  testutil.OutsiderToken,
			target: Target{GuildID: testutil.FixtureGuild.ID, Flag: entity.ViewChannels},
			want:   want{outcome: Denied, reason: ReasonNotInGuild, code: errorx.PermissionDenied},
		},
		{
			name:   "missing flag",
			token:  testutil.PlainToken,
			target: Target{GuildID: testutil.FixtureGuild.ID, Flag: entity.ManageMessages},
			want:   want{outcome: Denied, reason: ReasonMissingPermission, code: errorx.PermissionDenied},
		},
		{
			name:   "default permission allows sending",
			token:  testutil.PlainToken,
			target: Target{GuildID: testutil.FixtureGuild.ID, ChannelID: testutil.GeneralChannel.ID, Flag: entity.SendMessages},
			want:   want{outcome: Allowed},
		},
		{
			name:   "user overwrite denies sending",
			token:  testutil.PlainToken,
			target: Target{GuildID: testutil.FixtureGuild.ID, ChannelID: testutil.AnnouncementChannel.ID, Flag: entity.SendMessages},
			want:   want{outcome: Denied, reason: ReasonMissingPermission, code: errorx.PermissionDenied},
		},
		{
			name:   "role overwrite allows sending",
			token:  testutil.ModToken,
			target: Target{GuildID: testutil.FixtureGuild.ID, ChannelID: testutil.AnnouncementChannel.ID, Flag: entity.SendMessages},
			want:   want{outcome: Allowed},
		},
		{
			name:   "role overwrite replaces manage messages",
			token:  testutil.ModToken,
			target: Target{GuildID: testutil.FixtureGuild.ID, ChannelID: testutil.AnnouncementChannel.ID, Flag: entity.ManageMessages},
			want:   want{outcome: Denied, reason: ReasonMissingPermission, code: errorx.PermissionDenied},
		},
		{
			name:   "user overwrite grants manage messages",
			token:  testutil.PlainToken,
			target: Target{GuildID: testutil.FixtureGuild.ID, ChannelID: testutil.AnnouncementChannel.ID, Flag: entity.ManageMessages},
			want:   want{outcome: Allowed},
		},
		{
			name:   "owner only",
			token:  testutil.ModToken,
			target: Target{GuildID: testutil.FixtureGuild.ID, OwnerOnly: true},
			want:   want{outcome: Denied, reason: ReasonNotOwner, code: errorx.PermissionDenied},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := guard.Authorize(xcontext.WithSessionToken(ctx, tt.token), tt.target)
			require.Equal(t, tt.want.outcome, d.Outcome)
			require.Equal(t, tt.want.reason, d.Reason)

			if tt.want.outcome == Allowed {
				require.NoError(t, d.Err())
				require.NotNil(t, d.Guild)
				require.NotNil(t, d.Member)
				return
			}

			err := d.Err()
			require.Error(t, err)
			require.Equal(t, tt.want.code, errorx.CodeOf(err))
		})
	}
}

func TestGuard_Authenticate(t *testing.T) {
	ctx := testutil.MockContext()
	testutil.CreateFixtureDb(ctx)
	guard := newFixtureGuard()

	user, err := guard.Authenticate(xcontext.WithSessionToken(ctx, testutil.ModToken))
	require.NoError(t, err)
	require.Equal(t, testutil.ModUser.ID, user.ID)

	_, err = guard.Authenticate(ctx)
	require.Equal(t, errorx.Unauthenticated, errorx.CodeOf(err))
}
