package domain

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/hatsu-chat/backend/internal/common"
	"github.com/hatsu-chat/backend/internal/entity"
	"github.com/hatsu-chat/backend/internal/model"
	"github.com/hatsu-chat/backend/internal/repository"
	"github.com/hatsu-chat/backend/pkg/errorx"
	"github.com/hatsu-chat/backend/pkg/testutil"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slices"
)

func Test_messageDomain_Create(t *testing.T) {
	guildID := testutil.FixtureGuild.ID
	general := testutil.GeneralChannel.ID

	tests := []struct {
		name       string
		token      string
		req        *model.CreateMessageRequest
		wantEmbeds int
		wantErr    error
	}{
		{
			name:  "happy case",
			token: testutil.PlainToken,
			req:   &model.CreateMessageRequest{GuildID: guildID, ChannelID: general, Content: "hello"},
		},
		{
			name:  "content of 5000 characters",
			token: testutil.PlainToken,
			req: &model.CreateMessageRequest{
				GuildID:   guildID,
				ChannelID: general,
				Content:   strings.Repeat("a", 5000),
			},
		},
		{
			name:  "content of 5001 characters",
			token: testutil.PlainToken,
			req: &model.CreateMessageRequest{
				GuildID:   guildID,
				ChannelID: general,
				Content:   strings.Repeat("a", 5001),
			},
			wantErr: errorx.New(errorx.BadRequest, "Content too long (at most 5000 characters)"),
		},
		{
			name:  "invalid embed is dropped",
			token: testutil.PlainToken,
			req: &model.CreateMessageRequest{
				GuildID:   guildID,
				ChannelID: general,
				Content:   "look",
				Embeds: []map[string]any{
					{"description": strings.Repeat("a", 201)},
					{"title": "kept"},
				},
			},
			wantEmbeds: 1,
		},
		{
			name:    "empty message",
			token:   testutil.PlainToken,
			req:     &model.CreateMessageRequest{GuildID: guildID, ChannelID: general, Content: "   "},
			wantErr: errorx.New(errorx.BadRequest, "Cannot send an empty message"),
		},
		{
			name:  "only invalid embeds",
			token: testutil.PlainToken,
			req: &model.CreateMessageRequest{
				GuildID:   guildID,
				ChannelID: general,
				Embeds:    []map[string]any{{"description": strings.Repeat("a", 201)}},
			},
			wantErr: errorx.New(errorx.BadRequest, "Cannot send an empty message"),
		},
		{
			name:    "tts is not a boolean",
			token:   testutil.PlainToken,
			req:     &model.CreateMessageRequest{GuildID: guildID, ChannelID: general, Content: "hi", TTS: "yes"},
			wantErr: errorx.New(errorx.BadRequest, "Field tts must be a boolean"),
		},
		{
			name:  "user overwrite denies sending",
			token: testutil.PlainToken,
			req: &model.CreateMessageRequest{
				GuildID:   guildID,
				ChannelID: testutil.AnnouncementChannel.ID,
				Content:   "hi",
			},
			wantErr: errorx.New(errorx.PermissionDenied, "Permission denied").
				WithReason(common.ReasonMissingPermission),
		},
		{
			name:  "role overwrite allows sending",
			token: testutil.ModToken,
			req: &model.CreateMessageRequest{
				GuildID:   guildID,
				ChannelID: testutil.AnnouncementChannel.ID,
				Content:   "news",
			},
		},
		{
			name:  "category",
			token: testutil.OwnerToken,
			req: &model.CreateMessageRequest{
				GuildID:   guildID,
				ChannelID: testutil.CategoryChannel.ID,
				Content:   "hi",
			},
			wantErr: errorx.New(errorx.BadRequest, "Cannot send messages to a category").
				WithReason(common.ReasonCategoryNotAllowed),
		},
		{
			name:    "outsider",
			token:   testutil.OutsiderToken,
			req:     &model.CreateMessageRequest{GuildID: guildID, ChannelID: general, Content: "hi"},
			wantErr: errorx.New(errorx.PermissionDenied, "Permission denied").WithReason(common.ReasonNotInGuild),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newSuite(t)
			d := s.messageDomain()

			resp, err := d.Create(s.as(tt.token), tt.req)
			if tt.wantErr != nil {
				require.Error(t, err)
				require.Equal(t, tt.wantErr, err)
				require.Empty(t, s.dispatcher.ops())
				return
			}

			require.NoError(t, err)
			require.Equal(t, tt.req.Content, resp.Message.Content)
			require.Len(t, resp.Message.Embeds, tt.wantEmbeds)
			require.False(t, resp.Message.TTS)

			id := parseID(t, resp.Message.ID)
			stored, err := s.messageRepo.FindOne(s.ctx, repository.Filter{"id": id})
			require.NoError(t, err)
			require.Equal(t, tt.req.Content, stored.Content)

			created := s.dispatcher.eventsOf("MESSAGE_CREATE")
			require.Len(t, created, 1)
			require.Equal(t, guildID, created[0].GuildID)
		})
	}
}

func Test_messageDomain_Create_TTS(t *testing.T) {
	s := newSuite(t)
	d := s.messageDomain()
	req := &model.CreateMessageRequest{
		GuildID:   testutil.FixtureGuild.ID,
		ChannelID: testutil.GeneralChannel.ID,
		Content:   "read this aloud",
		TTS:       true,
	}

	// The default permission has no SendTTSMessages, so tts is turned off.
	resp, err := d.Create(s.as(testutil.PlainToken), req)
	require.NoError(t, err)
	require.False(t, resp.Message.TTS)

	resp, err = d.Create(s.as(testutil.OwnerToken), req)
	require.NoError(t, err)
	require.True(t, resp.Message.TTS)
}

func Test_messageDomain_Create_Mentions(t *testing.T) {
	s := newSuite(t)
	d := s.messageDomain()

	mod := testutil.ModUser.ID
	content := fmt.Sprintf("<@%d> <@%d> <@!%d> <@%d> <@%d>",
		mod, mod, mod, testutil.PlainUser.ID, testutil.OutsiderUser.ID)

	_, err := d.Create(s.as(testutil.PlainToken), &model.CreateMessageRequest{
		GuildID:   testutil.FixtureGuild.ID,
		ChannelID: testutil.GeneralChannel.ID,
		Content:   content,
	})
	require.NoError(t, err)

	// The author and the outsider are never notified.
	mentions := s.dispatcher.eventsOf("MENTION")
	require.Len(t, mentions, 1)
	require.Equal(t, mod, mentions[0].UserID)
}

func Test_messageDomain_Edit(t *testing.T) {
	content := "edited"
	empty := ""

	tests := []struct {
		name    string
		token   string
		req     *model.EditMessageRequest
		wantErr error
	}{
		{
			name:  "happy case",
			token: testutil.PlainToken,
			req: &model.EditMessageRequest{
				GuildID:   testutil.FixtureGuild.ID,
				ChannelID: testutil.GeneralChannel.ID,
				MessageID: testutil.FixtureMessage.ID,
				Content:   &content,
			},
		},
		{
			name:  "not the author",
			token: testutil.OwnerToken,
			req: &model.EditMessageRequest{
				GuildID:   testutil.FixtureGuild.ID,
				ChannelID: testutil.GeneralChannel.ID,
				MessageID: testutil.FixtureMessage.ID,
				Content:   &content,
			},
			wantErr: errorx.New(errorx.PermissionDenied, "Only the author can edit a message").
				WithReason(common.ReasonNotAuthor),
		},
		{
			name:  "nothing to update",
			token: testutil.PlainToken,
			req: &model.EditMessageRequest{
				GuildID:   testutil.FixtureGuild.ID,
				ChannelID: testutil.GeneralChannel.ID,
				MessageID: testutil.FixtureMessage.ID,
			},
			wantErr: errorx.New(errorx.BadRequest, "Nothing to update"),
		},
		{
			name:  "empty content",
			token: testutil.PlainToken,
			req: &model.EditMessageRequest{
				GuildID:   testutil.FixtureGuild.ID,
				ChannelID: testutil.GeneralChannel.ID,
				MessageID: testutil.FixtureMessage.ID,
				Content:   &empty,
			},
			wantErr: errorx.New(errorx.BadRequest, "Cannot leave an empty message"),
		},
		{
			name:  "message of another channel",
			token: testutil.PlainToken,
			req: &model.EditMessageRequest{
				GuildID:   testutil.FixtureGuild.ID,
				ChannelID: testutil.AnnouncementChannel.ID,
				MessageID: testutil.FixtureMessage.ID,
				Content:   &content,
			},
			wantErr: errorx.New(errorx.NotFound, "Not found message"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newSuite(t)
			d := s.messageDomain()

			resp, err := d.Edit(s.as(tt.token), tt.req)
			if tt.wantErr != nil {
				require.Error(t, err)
				require.Equal(t, tt.wantErr, err)
				return
			}

			require.NoError(t, err)
			require.Equal(t, content, resp.Message.Content)
			require.NotEmpty(t, resp.Message.EditedAt)
			require.Equal(t, []string{"MESSAGE_UPDATE"}, s.dispatcher.ops())
		})
	}
}

func Test_messageDomain_Get(t *testing.T) {
	s := newSuite(t)
	d := s.messageDomain()
	req := &model.GetMessageRequest{
		GuildID:   testutil.FixtureGuild.ID,
		ChannelID: testutil.GeneralChannel.ID,
		MessageID: testutil.FixtureMessage.ID,
	}

	resp, err := d.Get(s.as(testutil.ModToken), req)
	require.NoError(t, err)
	require.Equal(t, testutil.FixtureMessage.Content, resp.Message.Content)
	require.Equal(t, model.FormatID(testutil.PlainUser.ID), resp.Message.Author.ID)

	_, err = d.Get(s.as(testutil.OutsiderToken), req)
	require.Equal(t, errorx.New(errorx.PermissionDenied, "Permission denied").WithReason(common.ReasonNotInGuild), err)

	req.MessageID = 999
	_, err = d.Get(s.as(testutil.ModToken), req)
	require.Equal(t, errorx.New(errorx.NotFound, "Not found message"), err)
}

func Test_messageDomain_GetList(t *testing.T) {
	s := newSuite(t)
	d := s.messageDomain()
	ctx := s.as(testutil.PlainToken)

	for i := 0; i < 3; i++ {
		_, err := d.Create(ctx, &model.CreateMessageRequest{
			GuildID:   testutil.FixtureGuild.ID,
			ChannelID: testutil.GeneralChannel.ID,
			Content:   fmt.Sprintf("message %d", i),
		})
		require.NoError(t, err)
	}

	req := &model.GetMessagesRequest{
		GuildID:   testutil.FixtureGuild.ID,
		ChannelID: testutil.GeneralChannel.ID,
		Limit:     2,
	}

	resp, err := d.GetList(ctx, req)
	require.NoError(t, err)
	require.Equal(t, []string{"message 2", "message 1"}, contents(resp.Messages))

	req.Before = parseID(t, resp.Messages[1].ID)
	resp, err = d.GetList(ctx, req)
	require.NoError(t, err)
	require.Equal(t, []string{"message 0", testutil.FixtureMessage.Content}, contents(resp.Messages))

	req.Limit = 51
	_, err = d.GetList(ctx, req)
	require.Equal(t, errorx.New(errorx.BadRequest, "Exceed the maximum of limit (50)"), err)
}

func Test_messageDomain_Delete(t *testing.T) {
	announcement := &entity.Message{
		SnowFlakeBase: entity.SnowFlakeBase{ID: 401},
		GuildID:       testutil.FixtureGuild.ID,
		ChannelID:     testutil.AnnouncementChannel.ID,
		AuthorID:      testutil.ModUser.ID,
		Author:        entity.NewMemberProfile(testutil.ModUser),
		Content:       "news",
	}

	tests := []struct {
		name      string
		token     string
		channelID int64
		messageID int64
		wantErr   error
	}{
		{
			name:      "role grants manage messages",
			token:     testutil.ModToken,
			channelID: testutil.GeneralChannel.ID,
			messageID: testutil.FixtureMessage.ID,
		},
		{
			name:      "user overwrite grants manage messages",
			token:     testutil.PlainToken,
			channelID: testutil.AnnouncementChannel.ID,
			messageID: announcement.ID,
		},
		{
			name:      "owner",
			token:     testutil.OwnerToken,
			channelID: testutil.AnnouncementChannel.ID,
			messageID: announcement.ID,
		},
		{
			name:      "author without manage messages",
			token:     testutil.PlainToken,
			channelID: testutil.GeneralChannel.ID,
			messageID: testutil.FixtureMessage.ID,
			wantErr: errorx.New(errorx.PermissionDenied, "Permission denied").
				WithReason(common.ReasonMissingPermission),
		},
		{
			name:      "role overwrite removes manage messages",
			token:     testutil.ModToken,
			channelID: testutil.AnnouncementChannel.ID,
			messageID: announcement.ID,
			wantErr: errorx.New(errorx.PermissionDenied, "Permission denied").
				WithReason(common.ReasonMissingPermission),
		},
		{
			name:      "unknown message",
			token:     testutil.ModToken,
			channelID: testutil.GeneralChannel.ID,
			messageID: 999,
			wantErr:   errorx.New(errorx.NotFound, "Not found message"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newSuite(t)
			d := s.messageDomain()
			message := *announcement
			require.NoError(t, s.messageRepo.InsertOne(s.ctx, &message))

			_, err := d.Delete(s.as(tt.token), &model.DeleteMessageRequest{
				GuildID:   testutil.FixtureGuild.ID,
				ChannelID: tt.channelID,
				MessageID: tt.messageID,
			})
			if tt.wantErr != nil {
				require.Error(t, err)
				require.Equal(t, tt.wantErr, err)
				require.Empty(t, s.dispatcher.ops())
				return
			}

			require.NoError(t, err)

			_, err = s.messageRepo.FindOne(s.ctx, repository.Filter{"id": tt.messageID})
			require.ErrorIs(t, err, repository.ErrNotFound)
			require.Equal(t, []string{"MESSAGE_DELETE"}, s.dispatcher.ops())
		})
	}
}

func Test_messageDomain_Create_ChannelDeleted(t *testing.T) {
	s := newSuite(t)
	guildID, channelID := testutil.FixtureGuild.ID, testutil.GeneralChannel.ID

	// Hold the keys like a channel deletion does.
	unlock := s.locker.LockMany(guildLockKey(guildID), channelLockKey(channelID))

	errs := make(chan error, 1)
	go func() {
		_, err := s.messageDomain().Create(s.as(testutil.PlainToken), &model.CreateMessageRequest{
			GuildID:   guildID,
			ChannelID: channelID,
			Content:   "too late",
		})
		errs <- err
	}()

	select {
	case <-errs:
		require.FailNow(t, "message is created while the channel is being deleted")
	case <-time.After(50 * time.Millisecond):
	}

	_, err := s.messageRepo.DeleteMany(s.ctx, repository.Filter{"channel_id": channelID})
	require.NoError(t, err)
	require.NoError(t, s.channelRepo.DeleteOne(s.ctx, repository.Filter{"id": channelID}))
	unlock()

	select {
	case err := <-errs:
		require.Error(t, err)
		require.Equal(t, errorx.NotFound, errorx.CodeOf(err))
	case <-time.After(time.Second):
		require.FailNow(t, "message creation is not released")
	}

	count, err := s.messageRepo.Count(s.ctx, repository.Filter{"channel_id": channelID})
	require.NoError(t, err)
	require.Zero(t, count)
}

func Test_mentionedUserIDs(t *testing.T) {
	ids := mentionedUserIDs("<@10> hi <@!10> <@20> <@abc> <@30> <@10>", 30)
	slices.Sort(ids)
	require.Equal(t, []int64{10, 20}, ids)

	require.Empty(t, mentionedUserIDs("no mention here", 1))
}

func contents(messages []model.Message) []string {
	result := []string{}
	for _, m := range messages {
		result = append(result, m.Content)
	}

	return result
}
