package domain

import (
	"testing"

	"github.com/hatsu-chat/backend/internal/common"
	"github.com/hatsu-chat/backend/internal/model"
	"github.com/hatsu-chat/backend/internal/repository"
	"github.com/hatsu-chat/backend/pkg/errorx"
	"github.com/hatsu-chat/backend/pkg/testutil"
	"github.com/hatsu-chat/backend/pkg/xcontext"
	"github.com/stretchr/testify/require"
)

func Test_userDomain_Register(t *testing.T) {
	tests := []struct {
		name    string
		req     *model.RegisterRequest
		wantErr error
	}{
		{
			name: "happy case",
			req: &model.RegisterRequest{
				Username:      "newcomer",
				Discriminator: "1234",
				Email:         "Newcomer@Hatsu.Chat",
				Password:      "secret-password",
			},
		},
		{
			name: "same username with another discriminator",
			req: &model.RegisterRequest{
				Username:      "owner",
				Discriminator: "4242",
				Email:         "other-owner@hatsu.chat",
				Password:      "secret-password",
			},
		},
		{
			name: "reserved discriminator",
			req: &model.RegisterRequest{
				Username:      "newcomer",
				Discriminator: "0000",
				Email:         "newcomer@hatsu.chat",
				Password:      "secret-password",
			},
			wantErr: errorx.New(errorx.BadRequest, "Discriminator 0000 is reserved"),
		},
		{
			name: "short discriminator",
			req: &model.RegisterRequest{
				Username:      "newcomer",
				Discriminator: "123",
				Email:         "newcomer@hatsu.chat",
				Password:      "secret-password",
			},
			wantErr: errorx.New(errorx.BadRequest, "Discriminator must have exactly 4 characters"),
		},
		{
			name: "discriminator with letters",
			req: &model.RegisterRequest{
				Username:      "newcomer",
				Discriminator: "12a4",
				Email:         "newcomer@hatsu.chat",
				Password:      "secret-password",
			},
			wantErr: errorx.New(errorx.BadRequest, "Discriminator must contain only digits"),
		},
		{
			name: "invalid email",
			req: &model.RegisterRequest{
				Username:      "newcomer",
				Discriminator: "1234",
				Email:         "newcomer@localhost",
				Password:      "secret-password",
			},
			wantErr: errorx.New(errorx.BadRequest, "Invalid email"),
		},
		{
			name: "short password",
			req: &model.RegisterRequest{
				Username:      "newcomer",
				Discriminator: "1234",
				Email:         "newcomer@hatsu.chat",
				Password:      "12345",
			},
			wantErr: errorx.New(errorx.BadRequest, "Password too short (at least 6 characters)"),
		},
		{
			name: "email taken",
			req: &model.RegisterRequest{
				Username:      "newcomer",
				Discriminator: "1234",
				Email:         "OWNER@hatsu.chat",
				Password:      "secret-password",
			},
			wantErr: errorx.New(errorx.AlreadyExists, "Email is already used").
				WithReason(common.ReasonEmailTaken),
		},
		{
			name: "tag taken",
			req: &model.RegisterRequest{
				Username:      testutil.OwnerUser.Username,
				Discriminator: testutil.OwnerUser.Discriminator,
				Email:         "newcomer@hatsu.chat",
				Password:      "secret-password",
			},
			wantErr: errorx.New(errorx.AlreadyExists, "Username and discriminator are already used").
				WithReason(common.ReasonTagTaken),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newSuite(t)
			d := s.userDomain()

			resp, err := d.Register(s.ctx, tt.req)
			if tt.wantErr != nil {
				require.Error(t, err)
				require.Equal(t, tt.wantErr, err)
				return
			}

			require.NoError(t, err)
			require.NotEmpty(t, resp.Token)
			require.True(t, resp.User.EarlyAdopter)
			require.False(t, resp.User.Verified)

			me, err := d.GetMe(s.as(resp.Token), &model.GetMeRequest{})
			require.NoError(t, err)
			require.Equal(t, resp.User.ID, me.User.ID)
			require.Equal(t, tt.req.Discriminator, me.User.Discriminator)
		})
	}
}

func Test_userDomain_Login(t *testing.T) {
	tests := []struct {
		name    string
		req     *model.LoginRequest
		wantErr error
	}{
		{
			name: "happy case",
			req:  &model.LoginRequest{Email: "Owner@hatsu.chat", Password: testutil.FixturePassword},
		},
		{
			name:    "wrong password",
			req:     &model.LoginRequest{Email: "owner@hatsu.chat", Password: "not-the-password"},
			wantErr: errorx.New(errorx.Unauthenticated, "Invalid email or password"),
		},
		{
			name:    "unknown email",
			req:     &model.LoginRequest{Email: "nobody@hatsu.chat", Password: testutil.FixturePassword},
			wantErr: errorx.New(errorx.Unauthenticated, "Invalid email or password"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newSuite(t)
			d := s.userDomain()

			resp, err := d.Login(s.ctx, tt.req)
			if tt.wantErr != nil {
				require.Error(t, err)
				require.Equal(t, tt.wantErr, err)
				return
			}

			require.NoError(t, err)
			require.Equal(t, model.FormatID(testutil.OwnerUser.ID), resp.User.ID)

			_, err = d.Logout(s.as(resp.Token), &model.LogoutRequest{})
			require.NoError(t, err)

			_, err = d.GetMe(s.as(resp.Token), &model.GetMeRequest{})
			require.Equal(t, errorx.Unauthenticated, errorx.CodeOf(err))
		})
	}
}

func Test_userDomain_EditMe(t *testing.T) {
	tests := []struct {
		name    string
		token   string
		req     *model.EditMeRequest
		wantErr error
	}{
		{
			name:  "happy case",
			token: testutil.PlainToken,
			req:   &model.EditMeRequest{Username: "plainer", Bio: "hello there"},
		},
		{
			name:    "empty patch",
			token:   testutil.PlainToken,
			req:     &model.EditMeRequest{},
			wantErr: errorx.New(errorx.BadRequest, "Nothing to update"),
		},
		{
			name:  "tag of another user",
			token: testutil.PlainToken,
			req: &model.EditMeRequest{
				Username:      testutil.ModUser.Username,
				Discriminator: testutil.ModUser.Discriminator,
			},
			wantErr: errorx.New(errorx.AlreadyExists, "Username and discriminator are already used").
				WithReason(common.ReasonTagTaken),
		},
		{
			name:    "email of another user",
			token:   testutil.PlainToken,
			req:     &model.EditMeRequest{Email: "owner@hatsu.chat"},
			wantErr: errorx.New(errorx.AlreadyExists, "Email is already used").WithReason(common.ReasonEmailTaken),
		},
		{
			name:  "bot cannot set a password",
			token: testutil.BotToken,
			req:   &model.EditMeRequest{Password: "secret-password"},
			wantErr: errorx.New(errorx.PermissionDenied, "Bots have neither email nor password").
				WithReason(common.ReasonBotForbidden),
		},
		{
			name:    "not authenticated",
			req:     &model.EditMeRequest{Bio: "hello"},
			wantErr: errorx.New(errorx.Unauthenticated, "You need to authenticate before"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newSuite(t)
			d := s.userDomain()

			resp, err := d.EditMe(s.as(tt.token), tt.req)
			if tt.wantErr != nil {
				require.Error(t, err)
				require.Equal(t, tt.wantErr, err)
				require.Empty(t, s.dispatcher.ops())
				return
			}

			require.NoError(t, err)
			require.Equal(t, tt.req.Username, resp.User.Username)
			require.Equal(t, tt.req.Bio, resp.User.Bio)

			updates := s.dispatcher.eventsOf("USER_UPDATE")
			require.Len(t, updates, 1)
			require.Equal(t, testutil.PlainUser.ID, updates[0].UserID)
		})
	}
}

func Test_userDomain_EditMe_EmailResetsVerification(t *testing.T) {
	s := newSuite(t)
	d := s.userDomain()
	ctx := s.as(testutil.OwnerToken)

	resp, err := d.EditMe(ctx, &model.EditMeRequest{Email: "new-owner@hatsu.chat"})
	require.NoError(t, err)
	require.False(t, resp.User.Verified)
	require.Equal(t, "new-owner@hatsu.chat", resp.User.Email)

	_, err = d.VerifyEmail(ctx, &model.VerifyEmailRequest{Code: "wrong"})
	require.Equal(t, errorx.New(errorx.PermissionDenied, "Invalid verification code"), err)

	user, err := s.userRepo.GetByID(s.ctx, testutil.OwnerUser.ID)
	require.NoError(t, err)

	_, err = d.VerifyEmail(ctx, &model.VerifyEmailRequest{Code: user.VerificationCode})
	require.NoError(t, err)

	me, err := d.GetMe(ctx, &model.GetMeRequest{})
	require.NoError(t, err)
	require.True(t, me.User.Verified)
}

func Test_userDomain_BlockUser(t *testing.T) {
	s := newSuite(t)
	d := s.userDomain()
	ctx := s.as(testutil.PlainToken)

	_, err := d.BlockUser(ctx, &model.BlockUserRequest{UserID: testutil.PlainUser.ID})
	require.Equal(t, errorx.New(errorx.BadRequest, "Cannot block yourself"), err)

	_, err = d.BlockUser(ctx, &model.BlockUserRequest{UserID: 999})
	require.Equal(t, errorx.New(errorx.NotFound, "Not found user"), err)

	_, err = d.UnblockUser(ctx, &model.UnblockUserRequest{UserID: testutil.ModUser.ID})
	require.Equal(t, errorx.New(errorx.PermissionDenied, "User is not blocked"), err)

	// Blocking twice is a no-op.
	for i := 0; i < 2; i++ {
		_, err = d.BlockUser(ctx, &model.BlockUserRequest{UserID: testutil.ModUser.ID})
		require.NoError(t, err)
	}

	me, err := d.GetMe(ctx, &model.GetMeRequest{})
	require.NoError(t, err)
	require.Equal(t, []string{model.FormatID(testutil.ModUser.ID)}, me.User.BlockedUserIDs)

	_, err = d.UnblockUser(ctx, &model.UnblockUserRequest{UserID: testutil.ModUser.ID})
	require.NoError(t, err)

	me, err = d.GetMe(ctx, &model.GetMeRequest{})
	require.NoError(t, err)
	require.Empty(t, me.User.BlockedUserIDs)
}

func Test_userDomain_CreateBot(t *testing.T) {
	tests := []struct {
		name    string
		token   string
		req     *model.CreateBotRequest
		wantErr error
	}{
		{
			name:  "happy case",
			token: testutil.PlainToken,
			req:   &model.CreateBotRequest{Username: "helper", Discriminator: "0042"},
		},
		{
			name:  "bots cannot create bots",
			token: testutil.BotToken,
			req:   &model.CreateBotRequest{Username: "helper", Discriminator: "0042"},
			wantErr: errorx.New(errorx.PermissionDenied, "Bots cannot create bots").
				WithReason(common.ReasonBotForbidden),
		},
		{
			name:    "reserved discriminator",
			token:   testutil.PlainToken,
			req:     &model.CreateBotRequest{Username: "helper", Discriminator: "0000"},
			wantErr: errorx.New(errorx.BadRequest, "Discriminator 0000 is reserved"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newSuite(t)
			d := s.userDomain()

			resp, err := d.CreateBot(s.as(tt.token), tt.req)
			if tt.wantErr != nil {
				require.Error(t, err)
				require.Equal(t, tt.wantErr, err)
				return
			}

			require.NoError(t, err)
			require.True(t, resp.User.Bot)

			// The bot token authenticates the bot, which cannot log in with a
			// password.
			me, err := d.GetMe(s.as(resp.Token), &model.GetMeRequest{})
			require.NoError(t, err)
			require.Equal(t, resp.User.ID, me.User.ID)
		})
	}
}

func Test_userDomain_DeleteBot(t *testing.T) {
	tests := []struct {
		name    string
		token   string
		botID   int64
		wantErr error
	}{
		{
			name:  "bot deletes itself",
			token: testutil.BotToken,
		},
		{
			name:  "owner deletes the bot",
			token: testutil.OwnerToken,
			botID: testutil.BotUser.ID,
		},
		{
			name:    "another user",
			token:   testutil.PlainToken,
			botID:   testutil.BotUser.ID,
			wantErr: errorx.New(errorx.PermissionDenied, "Permission denied").WithReason(common.ReasonNotOwner),
		},
		{
			name:    "not a bot",
			token:   testutil.OwnerToken,
			botID:   testutil.PlainUser.ID,
			wantErr: errorx.New(errorx.BadRequest, "User is not a bot"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newSuite(t)
			d := s.userDomain()

			_, err := d.DeleteBot(s.as(tt.token), &model.DeleteBotRequest{BotID: tt.botID})
			if tt.wantErr != nil {
				require.Error(t, err)
				require.Equal(t, tt.wantErr, err)
				return
			}

			require.NoError(t, err)

			_, err = s.userRepo.GetByID(s.ctx, testutil.BotUser.ID)
			require.ErrorIs(t, err, repository.ErrNotFound)

			count, err := s.sessionRepo.Count(s.ctx, repository.Filter{"user_id": testutil.BotUser.ID})
			require.NoError(t, err)
			require.Zero(t, count)

			_, err = d.GetMe(s.as(testutil.BotToken), &model.GetMeRequest{})
			require.Equal(t, errorx.Unauthenticated, errorx.CodeOf(err))
		})
	}
}

func Test_userDomain_SessionLimit(t *testing.T) {
	s := newSuite(t)
	d := s.userDomain()

	cfg := xcontext.Configs(s.ctx)
	cfg.Auth.MaxSessions = 2
	ctx := xcontext.WithConfigs(s.ctx, cfg)

	for i := 0; i < 3; i++ {
		_, err := d.Login(ctx, &model.LoginRequest{Email: "plain@hatsu.chat", Password: testutil.FixturePassword})
		require.NoError(t, err)
	}

	count, err := s.sessionRepo.Count(ctx, repository.Filter{"user_id": testutil.PlainUser.ID})
	require.NoError(t, err)
	require.Equal(t, int64(2), count)
}
