package domain

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/hatsu-chat/backend/internal/common"
	"github.com/hatsu-chat/backend/internal/domain/notification/dispatcher"
	"github.com/hatsu-chat/backend/internal/domain/notification/event"
	"github.com/hatsu-chat/backend/internal/entity"
	"github.com/hatsu-chat/backend/internal/model"
	"github.com/hatsu-chat/backend/internal/repository"
	"github.com/hatsu-chat/backend/pkg/crypto"
	"github.com/hatsu-chat/backend/pkg/errorx"
	"github.com/hatsu-chat/backend/pkg/keylock"
	"github.com/hatsu-chat/backend/pkg/xcontext"
)

const (
	inviteCodeLength      = 8
	inviteCodeMaxAttempts = 5
	inviteMaxAge          = 7 * 24 * time.Hour
)

// CodeGenerator returns an opaque invite code. Collisions are retried.
type CodeGenerator func() string

func DefaultCodeGenerator() string {
	return crypto.GenerateRandomAlphabet(inviteCodeLength)
}

type InviteDomain interface {
	Create(context.Context, *model.CreateInviteRequest) (*model.CreateInviteResponse, error)
	Get(context.Context, *model.GetInviteRequest) (*model.GetInviteResponse, error)
	Redeem(context.Context, *model.RedeemInviteRequest) (*model.RedeemInviteResponse, error)
	Delete(context.Context, *model.DeleteInviteRequest) (*model.DeleteInviteResponse, error)
}

type inviteDomain struct {
	inviteRepo    repository.InviteRepository
	guildRepo     repository.GuildRepository
	memberRepo    repository.MemberRepository
	guard         *common.Guard
	dispatcher    dispatcher.Dispatcher
	locker        *keylock.Locker
	codeGenerator CodeGenerator
}

func NewInviteDomain(
	inviteRepo repository.InviteRepository,
	guildRepo repository.GuildRepository,
	memberRepo repository.MemberRepository,
	guard *common.Guard,
	dispatcher dispatcher.Dispatcher,
	locker *keylock.Locker,
	codeGenerator CodeGenerator,
) InviteDomain {
	if codeGenerator == nil {
		codeGenerator = DefaultCodeGenerator
	}

	return &inviteDomain{
		inviteRepo:    inviteRepo,
		guildRepo:     guildRepo,
		memberRepo:    memberRepo,
		guard:         guard,
		dispatcher:    dispatcher,
		locker:        locker,
		codeGenerator: codeGenerator,
	}
}

func (d *inviteDomain) Create(
	ctx context.Context, req *model.CreateInviteRequest,
) (*model.CreateInviteResponse, error) {
	decision, err := d.guard.Require(ctx, common.Target{GuildID: req.GuildID, Flag: entity.CreateInvites})
	if err != nil {
		return nil, err
	}

	if req.MaxUses < 0 {
		return nil, errorx.New(errorx.BadRequest, "Max uses must not be negative")
	}

	maxAge := time.Duration(req.MaxAge) * time.Second
	if req.MaxAge < 0 || maxAge > inviteMaxAge {
		return nil, errorx.New(errorx.BadRequest, "Max age must be between 0 and %d seconds",
			int(inviteMaxAge.Seconds()))
	}

	guildID := decision.Guild.ID
	unlock := d.locker.Lock(guildLockKey(guildID))
	defer unlock()

	code, err := d.generateCode(ctx)
	if err != nil {
		return nil, err
	}

	invite := &entity.Invite{
		Code:      code,
		GuildID:   guildID,
		CreatorID: decision.User.ID,
		MaxUses:   req.MaxUses,
	}

	if maxAge > 0 {
		invite.ExpiresAt = sql.NullTime{Valid: true, Time: time.Now().Add(maxAge)}
	}

	if err := d.inviteRepo.InsertOne(ctx, invite); err != nil {
		return nil, common.StoreError(ctx, err, "create invite")
	}

	result := model.ConvertInvite(invite)
	ev := event.InviteCreateEvent(result)
	dispatchToGuild(ctx, d.dispatcher, guildID, &ev)

	return &model.CreateInviteResponse{Invite: result}, nil
}

// Get is public, it lets anyone look at an invite before redeeming it.
func (d *inviteDomain) Get(ctx context.Context, req *model.GetInviteRequest) (*model.GetInviteResponse, error) {
	invite, err := d.getUsableInvite(ctx, req.Code)
	if err != nil {
		return nil, err
	}

	guild, err := d.guildRepo.GetByID(ctx, invite.GuildID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, errorx.New(errorx.NotFound, "Not found invite")
		}

		return nil, common.StoreError(ctx, err, "get guild")
	}

	return &model.GetInviteResponse{
		Invite: model.ConvertInvite(invite),
		Guild:  model.ConvertGuild(guild, nil, nil),
	}, nil
}

// Redeem makes the actor a member of the guild of the invite. Redeeming an
// invite of a guild the actor already belongs to is rejected.
func (d *inviteDomain) Redeem(
	ctx context.Context, req *model.RedeemInviteRequest,
) (*model.RedeemInviteResponse, error) {
	user, err := d.guard.Authenticate(ctx)
	if err != nil {
		return nil, err
	}

	if user.Bot {
		return nil, errorx.New(errorx.PermissionDenied, "Bots cannot redeem invites").
			WithReason(common.ReasonBotForbidden)
	}

	invite, err := d.getUsableInvite(ctx, req.Code)
	if err != nil {
		return nil, err
	}

	guildID := invite.GuildID
	unlock := d.locker.LockMany(
		guildLockKey(guildID),
		memberLockKey(guildID, user.ID),
		inviteLockKey(invite.Code),
	)
	defer unlock()

	// The invite may have been used up or deleted while waiting for the lock.
	invite, err = d.getUsableInvite(ctx, req.Code)
	if err != nil {
		return nil, err
	}

	guild, err := d.guildRepo.GetByID(ctx, guildID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, errorx.New(errorx.NotFound, "Not found invite")
		}

		return nil, common.StoreError(ctx, err, "get guild")
	}

	_, err = d.memberRepo.Get(ctx, guildID, user.ID)
	if err == nil {
		return nil, errorx.New(errorx.AlreadyExists, "You are already a member of this guild").
			WithReason(common.ReasonAlreadyInGuild)
	}

	if !errors.Is(err, repository.ErrNotFound) {
		return nil, common.StoreError(ctx, err, "get member")
	}

	member := &entity.Member{
		GuildID:  guildID,
		UserID:   user.ID,
		Profile:  entity.NewMemberProfile(user),
		RoleIDs:  entity.Array[int64]{},
		JoinedAt: time.Now(),
	}

	ctx = xcontext.WithDBTransaction(ctx)
	defer xcontext.WithRollbackDBTransaction(ctx)

	if err := d.memberRepo.InsertOne(ctx, member); err != nil {
		return nil, common.StoreError(ctx, err, "create member")
	}

	err = d.inviteRepo.UpdateOne(ctx, repository.Filter{"code": invite.Code}, repository.Patch{
		"uses": invite.Uses + 1,
	})
	if err != nil {
		return nil, common.StoreError(ctx, err, "increase invite uses")
	}

	if err := xcontext.WithCommitDBTransaction(ctx); err != nil {
		return nil, common.StoreError(ctx, err, "commit member")
	}

	result := model.ConvertMember(member)

	// Subscribe first, so the new member receives its own join event.
	joinGuild(ctx, d.dispatcher, guildID, user.ID)
	ev := event.MemberJoinEvent(result)
	dispatchToGuild(ctx, d.dispatcher, guildID, &ev)

	return &model.RedeemInviteResponse{
		Guild:  model.ConvertGuild(guild, nil, nil),
		Member: result,
	}, nil
}

func (d *inviteDomain) Delete(ctx context.Context, req *model.DeleteInviteRequest) (*model.DeleteInviteResponse, error) {
	invite, err := d.inviteRepo.FindOne(ctx, repository.Filter{"code": req.Code})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, errorx.New(errorx.NotFound, "Not found invite")
		}

		return nil, common.StoreError(ctx, err, "get invite")
	}

	_, err = d.guard.Require(ctx, common.Target{GuildID: invite.GuildID, Flag: entity.ManageGuild})
	if err != nil {
		return nil, err
	}

	unlock := d.locker.Lock(inviteLockKey(invite.Code))
	defer unlock()

	if err := d.inviteRepo.DeleteOne(ctx, repository.Filter{"code": invite.Code}); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, errorx.New(errorx.NotFound, "Not found invite")
		}

		return nil, common.StoreError(ctx, err, "delete invite")
	}

	dispatchToGuild(ctx, d.dispatcher, invite.GuildID, &event.InviteDeleteEvent{
		GuildID: model.FormatID(invite.GuildID),
		Code:    invite.Code,
	})

	return &model.DeleteInviteResponse{}, nil
}

// getUsableInvite treats expired and used up invites as unknown.
func (d *inviteDomain) getUsableInvite(ctx context.Context, code string) (*entity.Invite, error) {
	if code == "" {
		return nil, errorx.New(errorx.NotFound, "Not found invite")
	}

	invite, err := d.inviteRepo.FindOne(ctx, repository.Filter{"code": code})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, errorx.New(errorx.NotFound, "Not found invite")
		}

		return nil, common.StoreError(ctx, err, "get invite")
	}

	if !invite.Usable(time.Now()) {
		return nil, errorx.New(errorx.NotFound, "Not found invite")
	}

	return invite, nil
}

func (d *inviteDomain) generateCode(ctx context.Context) (string, error) {
	for i := 0; i < inviteCodeMaxAttempts; i++ {
		code := d.codeGenerator()

		_, err := d.inviteRepo.FindOne(ctx, repository.Filter{"code": code})
		if errors.Is(err, repository.ErrNotFound) {
			return code, nil
		}

		if err != nil {
			return "", common.StoreError(ctx, err, "get invite by code")
		}
	}

	xcontext.Logger(ctx).Errorf("Cannot generate a unique invite code after %d attempts", inviteCodeMaxAttempts)
	return "", errorx.Unknown
}
