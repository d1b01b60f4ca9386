package domain

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hatsu-chat/backend/internal/common"
	"github.com/hatsu-chat/backend/internal/domain/notification/dispatcher"
	"github.com/hatsu-chat/backend/internal/domain/notification/event"
	"github.com/hatsu-chat/backend/internal/entity"
	"github.com/hatsu-chat/backend/internal/model"
	"github.com/hatsu-chat/backend/internal/repository"
	"github.com/hatsu-chat/backend/pkg/errorx"
	"github.com/hatsu-chat/backend/pkg/keylock"
	"github.com/hatsu-chat/backend/pkg/xcontext"
	"golang.org/x/exp/maps"
)

type MessageDomain interface {
	Create(context.Context, *model.CreateMessageRequest) (*model.CreateMessageResponse, error)
	Edit(context.Context, *model.EditMessageRequest) (*model.EditMessageResponse, error)
	Get(context.Context, *model.GetMessageRequest) (*model.GetMessageResponse, error)
	GetList(context.Context, *model.GetMessagesRequest) (*model.GetMessagesResponse, error)
	Delete(context.Context, *model.DeleteMessageRequest) (*model.DeleteMessageResponse, error)
}

type messageDomain struct {
	messageRepo repository.MessageRepository
	memberRepo  repository.MemberRepository
	guard       *common.Guard
	dispatcher  dispatcher.Dispatcher
	locker      *keylock.Locker
}

func NewMessageDomain(
	messageRepo repository.MessageRepository,
	memberRepo repository.MemberRepository,
	guard *common.Guard,
	dispatcher dispatcher.Dispatcher,
	locker *keylock.Locker,
) MessageDomain {
	return &messageDomain{
		messageRepo: messageRepo,
		memberRepo:  memberRepo,
		guard:       guard,
		dispatcher:  dispatcher,
		locker:      locker,
	}
}

func (d *messageDomain) Create(
	ctx context.Context, req *model.CreateMessageRequest,
) (*model.CreateMessageResponse, error) {
	// Deleting the channel or the guild cannot interleave with the insert.
	unlock := d.locker.RLockMany(guildLockKey(req.GuildID), channelLockKey(req.ChannelID))
	defer unlock()

	decision, err := d.guard.Require(ctx, common.Target{
		GuildID:   req.GuildID,
		ChannelID: req.ChannelID,
		Flag:      entity.SendMessages,
	})
	if err != nil {
		return nil, err
	}

	if decision.Channel.Type == entity.ChannelCategory {
		return nil, errorx.New(errorx.BadRequest, "Cannot send messages to a category").
			WithReason(common.ReasonCategoryNotAllowed)
	}

	if err := checkContent(req.Content); err != nil {
		return nil, err
	}

	tts, err := parseTTS(req.TTS)
	if err != nil {
		return nil, err
	}

	if tts && !entity.HasFlag(decision.Permission, entity.SendTTSMessages) {
		tts = false
	}

	embeds := sanitizeEmbeds(req.Embeds)
	if strings.TrimSpace(req.Content) == "" && len(embeds) == 0 {
		return nil, errorx.New(errorx.BadRequest, "Cannot send an empty message")
	}

	message := &entity.Message{
		SnowFlakeBase: entity.SnowFlakeBase{ID: newID(ctx)},
		GuildID:       decision.Guild.ID,
		ChannelID:     decision.Channel.ID,
		AuthorID:      decision.User.ID,
		Author:        entity.NewMemberProfile(decision.User),
		Content:       req.Content,
		Embeds:        embeds,
		TTS:           tts,
	}

	if err := d.messageRepo.InsertOne(ctx, message); err != nil {
		return nil, common.StoreError(ctx, err, "create message")
	}

	result := model.ConvertMessage(message)
	ev := event.MessageCreateEvent(result)
	dispatchToGuild(ctx, d.dispatcher, message.GuildID, &ev)

	d.notifyMentions(ctx, message, result)

	return &model.CreateMessageResponse{Message: result}, nil
}

func (d *messageDomain) Edit(ctx context.Context, req *model.EditMessageRequest) (*model.EditMessageResponse, error) {
	decision, err := d.guard.Require(ctx, common.Target{GuildID: req.GuildID, ChannelID: req.ChannelID})
	if err != nil {
		return nil, err
	}

	message, err := d.getMessage(ctx, decision.Channel.ID, req.MessageID)
	if err != nil {
		return nil, err
	}

	if message.AuthorID != decision.User.ID {
		return nil, errorx.New(errorx.PermissionDenied, "Only the author can edit a message").
			WithReason(common.ReasonNotAuthor)
	}

	if req.Content == nil && req.Embeds == nil {
		return nil, errorx.New(errorx.BadRequest, "Nothing to update")
	}

	unlock := d.locker.Lock(messageLockKey(message.ID))
	defer unlock()

	// Reload under the lock so the emptiness check sees the latest version.
	message, err = d.getMessage(ctx, decision.Channel.ID, req.MessageID)
	if err != nil {
		return nil, err
	}

	patch := repository.Patch{"edited_at": sql.NullTime{Valid: true, Time: time.Now()}}
	content, embeds := message.Content, message.Embeds

	if req.Content != nil {
		if err := checkContent(*req.Content); err != nil {
			return nil, err
		}

		content = *req.Content
		patch["content"] = content
	}

	if req.Embeds != nil {
		embeds = sanitizeEmbeds(*req.Embeds)
		patch["embeds"] = embeds
	}

	if strings.TrimSpace(content) == "" && len(embeds) == 0 {
		return nil, errorx.New(errorx.BadRequest, "Cannot leave an empty message")
	}

	if err := d.messageRepo.UpdateOne(ctx, repository.Filter{"id": message.ID}, patch); err != nil {
		return nil, common.StoreError(ctx, err, "update message")
	}

	message, err = d.getMessage(ctx, decision.Channel.ID, req.MessageID)
	if err != nil {
		return nil, err
	}

	result := model.ConvertMessage(message)
	ev := event.MessageUpdateEvent(result)
	dispatchToGuild(ctx, d.dispatcher, message.GuildID, &ev)

	return &model.EditMessageResponse{Message: result}, nil
}

// Get honours the overwrites of the channel for ReadMessageHistory.
func (d *messageDomain) Get(ctx context.Context, req *model.GetMessageRequest) (*model.GetMessageResponse, error) {
	decision, err := d.guard.Require(ctx, common.Target{
		GuildID:   req.GuildID,
		ChannelID: req.ChannelID,
		Flag:      entity.ReadMessageHistory,
	})
	if err != nil {
		return nil, err
	}

	message, err := d.getMessage(ctx, decision.Channel.ID, req.MessageID)
	if err != nil {
		return nil, err
	}

	return &model.GetMessageResponse{Message: model.ConvertMessage(message)}, nil
}

// GetList returns a page of history older than req.Before, newest first.
func (d *messageDomain) GetList(
	ctx context.Context, req *model.GetMessagesRequest,
) (*model.GetMessagesResponse, error) {
	decision, err := d.guard.Require(ctx, common.Target{
		GuildID:   req.GuildID,
		ChannelID: req.ChannelID,
		Flag:      entity.ReadMessageHistory,
	})
	if err != nil {
		return nil, err
	}

	apiCfg := xcontext.Configs(ctx).ApiServer
	if req.Limit == 0 {
		req.Limit = apiCfg.DefaultLimit
	}

	if req.Limit < 0 {
		return nil, errorx.New(errorx.BadRequest, "Limit must be positive")
	}

	if req.Limit > apiCfg.MaxLimit {
		return nil, errorx.New(errorx.BadRequest, "Exceed the maximum of limit (%d)", apiCfg.MaxLimit)
	}

	messages, err := d.messageRepo.GetHistory(ctx, decision.Channel.ID, req.Before, req.Limit)
	if err != nil {
		return nil, common.StoreError(ctx, err, "get messages")
	}

	result := []model.Message{}
	for i := range messages {
		result = append(result, model.ConvertMessage(&messages[i]))
	}

	return &model.GetMessagesResponse{Messages: result}, nil
}

// Delete needs ManageMessages in the channel, granted by a role or by an
// overwrite of the channel, or the ownership of the guild.
func (d *messageDomain) Delete(
	ctx context.Context, req *model.DeleteMessageRequest,
) (*model.DeleteMessageResponse, error) {
	decision, err := d.guard.Require(ctx, common.Target{
		GuildID:   req.GuildID,
		ChannelID: req.ChannelID,
		Flag:      entity.ManageMessages,
	})
	if err != nil {
		return nil, err
	}

	message, err := d.getMessage(ctx, decision.Channel.ID, req.MessageID)
	if err != nil {
		return nil, err
	}

	unlock := d.locker.Lock(messageLockKey(message.ID))
	defer unlock()

	if err := d.messageRepo.DeleteOne(ctx, repository.Filter{"id": message.ID}); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, errorx.New(errorx.NotFound, "Not found message")
		}

		return nil, common.StoreError(ctx, err, "delete message")
	}

	dispatchToGuild(ctx, d.dispatcher, message.GuildID, &event.MessageDeleteEvent{
		GuildID:   model.FormatID(message.GuildID),
		ChannelID: model.FormatID(message.ChannelID),
		MessageID: model.FormatID(message.ID),
	})

	return &model.DeleteMessageResponse{}, nil
}

func (d *messageDomain) getMessage(ctx context.Context, channelID, messageID int64) (*entity.Message, error) {
	message, err := d.messageRepo.FindOne(ctx, repository.Filter{"id": messageID, "channel_id": channelID})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, errorx.New(errorx.NotFound, "Not found message")
		}

		return nil, common.StoreError(ctx, err, "get message")
	}

	return message, nil
}

// notifyMentions sends one MENTION to every distinct member mentioned in the
// content, except the author.
func (d *messageDomain) notifyMentions(ctx context.Context, message *entity.Message, result model.Message) {
	ids := mentionedUserIDs(message.Content, message.AuthorID)
	if len(ids) == 0 {
		return
	}

	members, err := d.memberRepo.Find(ctx, repository.Filter{"guild_id": message.GuildID, "user_id": ids}).All()
	if err != nil {
		xcontext.Logger(ctx).Warnf("Cannot get mentioned members: %v", err)
		return
	}

	for _, m := range members {
		ev := event.MentionEvent(result)
		dispatchToUser(ctx, d.dispatcher, m.UserID, &ev)
	}
}

// mentionedUserIDs returns the distinct ids of every <@id> in content.
func mentionedUserIDs(content string, authorID int64) []int64 {
	seen := map[int64]struct{}{}
	for _, match := range mentionRegex.FindAllStringSubmatch(content, -1) {
		id, err := strconv.ParseInt(match[1], 10, 64)
		if err != nil || id == authorID {
			continue
		}

		seen[id] = struct{}{}
	}

	return maps.Keys(seen)
}

func checkContent(content string) error {
	if utf8.RuneCountInString(content) > maxMessageLength {
		return errorx.New(errorx.BadRequest, "Content too long (at most %d characters)", maxMessageLength)
	}

	return nil
}

func parseTTS(v any) (bool, error) {
	switch tts := v.(type) {
	case nil:
		return false, nil
	case bool:
		return tts, nil
	default:
		return false, errorx.New(errorx.BadRequest, "Field tts must be a boolean")
	}
}
