package common

import (
	"context"
	"errors"

	"github.com/hatsu-chat/backend/internal/entity"
	"github.com/hatsu-chat/backend/internal/repository"
	"github.com/hatsu-chat/backend/pkg/errorx"
	"github.com/hatsu-chat/backend/pkg/xcontext"
)

type Outcome int

const (
	Allowed Outcome = iota
	Denied
	ActorNotFound
	TargetNotFound
	Failed
)

const (
	ReasonNotInGuild         = "not_in_guild"
	ReasonNotOwner           = "not_owner"
	ReasonMissingPermission  = "missing_permission"
	ReasonBotForbidden       = "bot_forbidden"
	ReasonRoleHierarchy      = "role_hierarchy"
	ReasonNotAuthor          = "not_author"
	ReasonOwnerCannotLeave   = "owner_cannot_leave"
	ReasonAlreadyInGuild     = "already_in_guild"
	ReasonEmailTaken         = "email_taken"
	ReasonTagTaken           = "tag_taken"
	ReasonCategoryNotAllowed = "category_not_allowed"
)

// Target describes what the actor wants to do. A zero ChannelID targets the
// guild itself.
type Target struct {
	GuildID   int64
	ChannelID int64
	Flag      entity.PermissionFlag
	OwnerOnly bool
}

// Decision is the answer of the guard. It carries every entity loaded while
// deciding so callers never load them twice.
type Decision struct {
	Outcome Outcome
	Reason  string

	User       *entity.User
	Guild      *entity.Guild
	Member     *entity.Member
	Channel    *entity.Channel
	Roles      []entity.Role
	Permission entity.PermissionFlag

	err error
}

func (d Decision) Allowed() bool {
	return d.Outcome == Allowed
}

func (d Decision) Err() error {
	switch d.Outcome {
	case Allowed:
		return nil
	case ActorNotFound:
		return errorx.New(errorx.Unauthenticated, "You need to authenticate before")
	case TargetNotFound:
		return errorx.New(errorx.NotFound, "Not found %s", d.Reason)
	case Denied:
		return errorx.New(errorx.PermissionDenied, "Permission denied").WithReason(d.Reason)
	default:
		return d.err
	}
}

func (d Decision) IsOwner() bool {
	return d.Guild != nil && d.User != nil && IsOwner(d.Guild, d.User.ID)
}

// Guard is the single place where permissions are checked.
type Guard struct {
	sessionRepo repository.SessionRepository
	userRepo    repository.UserRepository
	guildRepo   repository.GuildRepository
	memberRepo  repository.MemberRepository
	roleRepo    repository.RoleRepository
	channelRepo repository.ChannelRepository
}

func NewGuard(
	sessionRepo repository.SessionRepository,
	userRepo repository.UserRepository,
	guildRepo repository.GuildRepository,
	memberRepo repository.MemberRepository,
	roleRepo repository.RoleRepository,
	channelRepo repository.ChannelRepository,
) *Guard {
	return &Guard{
		sessionRepo: sessionRepo,
		userRepo:    userRepo,
		guildRepo:   guildRepo,
		memberRepo:  memberRepo,
		roleRepo:    roleRepo,
		channelRepo: channelRepo,
	}
}

// Authenticate resolves the session token of ctx to its user.
func (g *Guard) Authenticate(ctx context.Context) (*entity.User, error) {
	token := xcontext.SessionToken(ctx)
	if token == "" {
		return nil, errorx.New(errorx.Unauthenticated, "You need to authenticate before")
	}

	session, err := g.sessionRepo.FindOne(ctx, repository.Filter{"token": token})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, errorx.New(errorx.Unauthenticated, "Invalid session")
		}

		return nil, StoreError(ctx, err, "get session")
	}

	user, err := g.userRepo.GetByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, errorx.New(errorx.Unauthenticated, "Invalid session")
		}

		return nil, StoreError(ctx, err, "get user")
	}

	return user, nil
}

// Authorize decides whether the actor of ctx can perform target.
func (g *Guard) Authorize(ctx context.Context, target Target) Decision {
	user, err := g.Authenticate(ctx)
	if err != nil {
		if errorx.CodeOf(err) == errorx.Unauthenticated {
			return Decision{Outcome: ActorNotFound}
		}

		return Decision{Outcome: Failed, err: err}
	}

	d := Decision{User: user}

	d.Guild, err = g.guildRepo.GetByID(ctx, target.GuildID)
	if err != nil {
		return d.fail(ctx, err, "guild")
	}

	if target.ChannelID != 0 {
		d.Channel, err = g.channelRepo.GetByID(ctx, target.ChannelID)
		if err != nil {
			return d.fail(ctx, err, "channel")
		}

		if d.Channel.GuildID != d.Guild.ID {
			return d.deny(ctx, TargetNotFound, "channel")
		}
	}

	d.Member, err = g.memberRepo.Get(ctx, d.Guild.ID, user.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return d.deny(ctx, Denied, ReasonNotInGuild)
		}

		return d.fail(ctx, err, "member")
	}

	if target.OwnerOnly && !IsOwner(d.Guild, user.ID) {
		return d.deny(ctx, Denied, ReasonNotOwner)
	}

	d.Roles, err = g.roleRepo.GetByIDs(ctx, d.Guild.ID, d.Member.RoleIDs)
	if err != nil {
		return d.fail(ctx, err, "roles")
	}

	d.Permission = EffectivePermission(d.Guild, d.Member, d.Roles, d.Channel)
	if !IsOwner(d.Guild, user.ID) && !entity.HasFlag(d.Permission, target.Flag) {
		return d.deny(ctx, Denied, ReasonMissingPermission)
	}

	d.Outcome = Allowed
	return d
}

// Require is Authorize returning the decision error directly.
func (g *Guard) Require(ctx context.Context, target Target) (Decision, error) {
	d := g.Authorize(ctx, target)
	return d, d.Err()
}

func (d Decision) deny(ctx context.Context, outcome Outcome, reason string) Decision {
	xcontext.Logger(ctx).Debugf("Permission denied: outcome=%d reason=%s", outcome, reason)
	d.Outcome = outcome
	d.Reason = reason
	return d
}

func (d Decision) fail(ctx context.Context, err error, what string) Decision {
	if errors.Is(err, repository.ErrNotFound) {
		return d.deny(ctx, TargetNotFound, what)
	}

	d.Outcome = Failed
	d.err = StoreError(ctx, err, "get "+what)
	return d
}

// StoreError converts a store failure into a client facing error. Timeouts are
// retryable, everything else is logged and hidden.
func StoreError(ctx context.Context, err error, action string) error {
	if errors.Is(err, repository.ErrTimeout) {
		xcontext.Logger(ctx).Warnf("Store timeout when %s: %v", action, err)
		return errorx.New(errorx.Unavailable, "Service is temporarily unavailable, please retry")
	}

	xcontext.Logger(ctx).Errorf("Cannot %s: %v", action, err)
	return errorx.Unknown
}
