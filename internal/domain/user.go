package domain

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/fatih/structs"
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
	"golang.org/x/exp/slices"
)

const verificationCodeLength = 6

type UserDomain interface {
	Register(context.Context, *model.RegisterRequest) (*model.RegisterResponse, error)
	Login(context.Context, *model.LoginRequest) (*model.LoginResponse, error)
	Logout(context.Context, *model.LogoutRequest) (*model.LogoutResponse, error)
	GetMe(context.Context, *model.GetMeRequest) (*model.GetMeResponse, error)
	EditMe(context.Context, *model.EditMeRequest) (*model.EditMeResponse, error)
	VerifyEmail(context.Context, *model.VerifyEmailRequest) (*model.VerifyEmailResponse, error)
	BlockUser(context.Context, *model.BlockUserRequest) (*model.BlockUserResponse, error)
	UnblockUser(context.Context, *model.UnblockUserRequest) (*model.UnblockUserResponse, error)
	CreateBot(context.Context, *model.CreateBotRequest) (*model.CreateBotResponse, error)
	DeleteBot(context.Context, *model.DeleteBotRequest) (*model.DeleteBotResponse, error)
}

type userDomain struct {
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
	memberRepo  repository.MemberRepository
	guard       *common.Guard
	dispatcher  dispatcher.Dispatcher
	locker      *keylock.Locker
}

func NewUserDomain(
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	memberRepo repository.MemberRepository,
	guard *common.Guard,
	dispatcher dispatcher.Dispatcher,
	locker *keylock.Locker,
) UserDomain {
	return &userDomain{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		memberRepo:  memberRepo,
		guard:       guard,
		dispatcher:  dispatcher,
		locker:      locker,
	}
}

func (d *userDomain) Register(
	ctx context.Context, req *model.RegisterRequest,
) (*model.RegisterResponse, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	if err := checkUsername(req.Username); err != nil {
		return nil, err
	}

	if err := checkDiscriminator(req.Discriminator); err != nil {
		return nil, err
	}

	if err := checkEmail(req.Email); err != nil {
		return nil, err
	}

	if err := checkPassword(req.Password); err != nil {
		return nil, err
	}

	unlock := d.locker.LockMany(emailLockKey(req.Email), tagLockKey(req.Username, req.Discriminator))
	defer unlock()

	if err := d.checkEmailAvailable(ctx, 0, req.Email); err != nil {
		return nil, err
	}

	if err := d.checkTagAvailable(ctx, 0, req.Username, req.Discriminator); err != nil {
		return nil, err
	}

	hashed, err := crypto.HashPassword(req.Password, xcontext.Configs(ctx).Auth.BcryptCost)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot hash password: %v", err)
		return nil, errorx.Unknown
	}

	user := &entity.User{
		SnowFlakeBase:    entity.SnowFlakeBase{ID: newID(ctx)},
		Username:         req.Username,
		Discriminator:    req.Discriminator,
		Email:            sql.NullString{Valid: true, String: req.Email},
		Password:         hashed,
		VerificationCode: crypto.GenerateRandomDigits(verificationCodeLength),
		EarlyAdopter:     true,
		BlockedUserIDs:   entity.Array[int64]{},
	}

	ctx = xcontext.WithDBTransaction(ctx)
	defer xcontext.WithRollbackDBTransaction(ctx)

	if err := d.userRepo.InsertOne(ctx, user); err != nil {
		return nil, common.StoreError(ctx, err, "create user")
	}

	token, err := d.newSession(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	if err := xcontext.WithCommitDBTransaction(ctx); err != nil {
		return nil, common.StoreError(ctx, err, "commit user")
	}

	return &model.RegisterResponse{User: model.ConvertUser(user, true), Token: token}, nil
}

func (d *userDomain) Login(ctx context.Context, req *model.LoginRequest) (*model.LoginResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	user, err := d.userRepo.FindOne(ctx, repository.Filter{"email": email})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, errorx.New(errorx.Unauthenticated, "Invalid email or password")
		}

		return nil, common.StoreError(ctx, err, "get user by email")
	}

	if user.Bot || !crypto.ComparePassword(user.Password, req.Password) {
		return nil, errorx.New(errorx.Unauthenticated, "Invalid email or password")
	}

	unlock := d.locker.Lock(userLockKey(user.ID))
	defer unlock()

	token, err := d.newSession(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	return &model.LoginResponse{User: model.ConvertUser(user, true), Token: token}, nil
}

func (d *userDomain) Logout(ctx context.Context, req *model.LogoutRequest) (*model.LogoutResponse, error) {
	token := xcontext.SessionToken(ctx)
	if token == "" {
		return nil, errorx.New(errorx.Unauthenticated, "You need to authenticate before")
	}

	if err := d.sessionRepo.DeleteOne(ctx, repository.Filter{"token": token}); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, errorx.New(errorx.Unauthenticated, "Invalid session")
		}

		return nil, common.StoreError(ctx, err, "delete session")
	}

	return &model.LogoutResponse{}, nil
}

func (d *userDomain) GetMe(ctx context.Context, req *model.GetMeRequest) (*model.GetMeResponse, error) {
	user, err := d.guard.Authenticate(ctx)
	if err != nil {
		return nil, err
	}

	return &model.GetMeResponse{User: model.ConvertUser(user, true)}, nil
}

type userPatch struct {
	Username      string `structs:"username,omitempty"`
	Discriminator string `structs:"discriminator,omitempty"`
	Email         string `structs:"email,omitempty"`
	Password      string `structs:"password,omitempty"`
	Bio           string `structs:"bio,omitempty"`
}

func (d *userDomain) EditMe(ctx context.Context, req *model.EditMeRequest) (*model.EditMeResponse, error) {
	user, err := d.guard.Authenticate(ctx)
	if err != nil {
		return nil, err
	}

	patch := userPatch{
		Username:      strings.TrimSpace(req.Username),
		Discriminator: req.Discriminator,
		Email:         strings.ToLower(strings.TrimSpace(req.Email)),
		Bio:           req.Bio,
	}

	if patch.Username != "" {
		if err := checkUsername(patch.Username); err != nil {
			return nil, err
		}
	}

	if patch.Discriminator != "" {
		if err := checkDiscriminator(patch.Discriminator); err != nil {
			return nil, err
		}
	}

	if patch.Email != "" {
		if err := checkEmail(patch.Email); err != nil {
			return nil, err
		}
	}

	if err := checkDescription(patch.Bio); err != nil {
		return nil, err
	}

	if user.Bot && (patch.Email != "" || req.Password != "") {
		return nil, errorx.New(errorx.PermissionDenied, "Bots have neither email nor password").
			WithReason(common.ReasonBotForbidden)
	}

	if req.Password != "" {
		if err := checkPassword(req.Password); err != nil {
			return nil, err
		}

		patch.Password, err = crypto.HashPassword(req.Password, xcontext.Configs(ctx).Auth.BcryptCost)
		if err != nil {
			xcontext.Logger(ctx).Errorf("Cannot hash password: %v", err)
			return nil, errorx.Unknown
		}
	}

	changes := structs.Map(patch)
	if len(changes) == 0 {
		return nil, errorx.New(errorx.BadRequest, "Nothing to update")
	}

	username := user.Username
	if patch.Username != "" {
		username = patch.Username
	}

	discriminator := user.Discriminator
	if patch.Discriminator != "" {
		discriminator = patch.Discriminator
	}

	keys := []string{userLockKey(user.ID), tagLockKey(username, discriminator)}
	if patch.Email != "" {
		keys = append(keys, emailLockKey(patch.Email))
	}

	unlock := d.locker.LockMany(keys...)
	defer unlock()

	if patch.Username != "" || patch.Discriminator != "" {
		if err := d.checkTagAvailable(ctx, user.ID, username, discriminator); err != nil {
			return nil, err
		}
	}

	if patch.Email != "" && patch.Email != user.Email.String {
		if err := d.checkEmailAvailable(ctx, user.ID, patch.Email); err != nil {
			return nil, err
		}

		changes["verified"] = false
		changes["verification_code"] = crypto.GenerateRandomDigits(verificationCodeLength)
	}

	err = d.userRepo.UpdateOne(ctx, repository.Filter{"id": user.ID}, changes)
	if err != nil {
		return nil, common.StoreError(ctx, err, "update user")
	}

	user, err = d.userRepo.GetByID(ctx, user.ID)
	if err != nil {
		return nil, common.StoreError(ctx, err, "get user")
	}

	ev := event.UserUpdateEvent(model.ConvertUser(user, true))
	dispatchToUser(ctx, d.dispatcher, user.ID, &ev)

	return &model.EditMeResponse{User: model.ConvertUser(user, true)}, nil
}

func (d *userDomain) VerifyEmail(
	ctx context.Context, req *model.VerifyEmailRequest,
) (*model.VerifyEmailResponse, error) {
	user, err := d.guard.Authenticate(ctx)
	if err != nil {
		return nil, err
	}

	if user.Verified {
		return &model.VerifyEmailResponse{}, nil
	}

	if req.Code == "" || req.Code != user.VerificationCode {
		return nil, errorx.New(errorx.PermissionDenied, "Invalid verification code")
	}

	err = d.userRepo.UpdateOne(ctx, repository.Filter{"id": user.ID}, repository.Patch{
		"verified":          true,
		"verification_code": "",
	})
	if err != nil {
		return nil, common.StoreError(ctx, err, "verify user")
	}

	return &model.VerifyEmailResponse{}, nil
}

func (d *userDomain) BlockUser(ctx context.Context, req *model.BlockUserRequest) (*model.BlockUserResponse, error) {
	user, err := d.guard.Authenticate(ctx)
	if err != nil {
		return nil, err
	}

	if req.UserID == user.ID {
		return nil, errorx.New(errorx.BadRequest, "Cannot block yourself")
	}

	if _, err := d.userRepo.GetByID(ctx, req.UserID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, errorx.New(errorx.NotFound, "Not found user")
		}

		return nil, common.StoreError(ctx, err, "get blocked user")
	}

	unlock := d.locker.Lock(userLockKey(user.ID))
	defer unlock()

	// Reload under the lock, the authenticated copy may be stale.
	user, err = d.userRepo.GetByID(ctx, user.ID)
	if err != nil {
		return nil, common.StoreError(ctx, err, "get user")
	}

	if slices.Contains(user.BlockedUserIDs, req.UserID) {
		return &model.BlockUserResponse{}, nil
	}

	blocked := append(entity.Array[int64]{}, user.BlockedUserIDs...)
	blocked = append(blocked, req.UserID)
	err = d.userRepo.UpdateOne(ctx, repository.Filter{"id": user.ID}, repository.Patch{"blocked_user_ids": blocked})
	if err != nil {
		return nil, common.StoreError(ctx, err, "block user")
	}

	return &model.BlockUserResponse{}, nil
}

func (d *userDomain) UnblockUser(
	ctx context.Context, req *model.UnblockUserRequest,
) (*model.UnblockUserResponse, error) {
	user, err := d.guard.Authenticate(ctx)
	if err != nil {
		return nil, err
	}

	if _, err := d.userRepo.GetByID(ctx, req.UserID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, errorx.New(errorx.NotFound, "Not found user")
		}

		return nil, common.StoreError(ctx, err, "get blocked user")
	}

	unlock := d.locker.Lock(userLockKey(user.ID))
	defer unlock()

	user, err = d.userRepo.GetByID(ctx, user.ID)
	if err != nil {
		return nil, common.StoreError(ctx, err, "get user")
	}

	index := slices.Index(user.BlockedUserIDs, req.UserID)
	if index < 0 {
		return nil, errorx.New(errorx.PermissionDenied, "User is not blocked")
	}

	blocked := append(entity.Array[int64]{}, user.BlockedUserIDs...)
	blocked = slices.Delete(blocked, index, index+1)
	err = d.userRepo.UpdateOne(ctx, repository.Filter{"id": user.ID}, repository.Patch{"blocked_user_ids": blocked})
	if err != nil {
		return nil, common.StoreError(ctx, err, "unblock user")
	}

	return &model.UnblockUserResponse{}, nil
}

func (d *userDomain) CreateBot(ctx context.Context, req *model.CreateBotRequest) (*model.CreateBotResponse, error) {
	owner, err := d.guard.Authenticate(ctx)
	if err != nil {
		return nil, err
	}

	if owner.Bot {
		return nil, errorx.New(errorx.PermissionDenied, "Bots cannot create bots").
			WithReason(common.ReasonBotForbidden)
	}

	req.Username = strings.TrimSpace(req.Username)
	if err := checkUsername(req.Username); err != nil {
		return nil, err
	}

	if err := checkDiscriminator(req.Discriminator); err != nil {
		return nil, err
	}

	if err := checkDescription(req.Bio); err != nil {
		return nil, err
	}

	unlock := d.locker.Lock(tagLockKey(req.Username, req.Discriminator))
	defer unlock()

	if err := d.checkTagAvailable(ctx, 0, req.Username, req.Discriminator); err != nil {
		return nil, err
	}

	bot := &entity.User{
		SnowFlakeBase:  entity.SnowFlakeBase{ID: newID(ctx)},
		Username:       req.Username,
		Discriminator:  req.Discriminator,
		Bio:            req.Bio,
		Verified:       true,
		Bot:            true,
		BotOwnerID:     sql.NullInt64{Valid: true, Int64: owner.ID},
		BlockedUserIDs: entity.Array[int64]{},
	}

	ctx = xcontext.WithDBTransaction(ctx)
	defer xcontext.WithRollbackDBTransaction(ctx)

	if err := d.userRepo.InsertOne(ctx, bot); err != nil {
		return nil, common.StoreError(ctx, err, "create bot")
	}

	token, err := d.newSession(ctx, bot.ID)
	if err != nil {
		return nil, err
	}

	if err := xcontext.WithCommitDBTransaction(ctx); err != nil {
		return nil, common.StoreError(ctx, err, "commit bot")
	}

	return &model.CreateBotResponse{User: model.ConvertUser(bot, false), Token: token}, nil
}

// DeleteBot removes the bot with its sessions and memberships. Only the bot
// itself or its owner can delete it.
func (d *userDomain) DeleteBot(ctx context.Context, req *model.DeleteBotRequest) (*model.DeleteBotResponse, error) {
	user, err := d.guard.Authenticate(ctx)
	if err != nil {
		return nil, err
	}

	botID := req.BotID
	if botID == 0 {
		botID = user.ID
	}

	bot, err := d.userRepo.GetByID(ctx, botID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, errorx.New(errorx.NotFound, "Not found bot")
		}

		return nil, common.StoreError(ctx, err, "get bot")
	}

	if !bot.Bot {
		return nil, errorx.New(errorx.BadRequest, "User is not a bot")
	}

	isOwner := bot.BotOwnerID.Valid && bot.BotOwnerID.Int64 == user.ID
	if bot.ID != user.ID && !isOwner {
		return nil, errorx.New(errorx.PermissionDenied, "Permission denied").
			WithReason(common.ReasonNotOwner)
	}

	unlock := d.locker.Lock(userLockKey(bot.ID))
	defer unlock()

	members, err := d.memberRepo.Find(ctx, repository.Filter{"user_id": bot.ID}).All()
	if err != nil {
		return nil, common.StoreError(ctx, err, "get bot memberships")
	}

	ctx = xcontext.WithDBTransaction(ctx)
	defer xcontext.WithRollbackDBTransaction(ctx)

	if _, err := d.sessionRepo.DeleteMany(ctx, repository.Filter{"user_id": bot.ID}); err != nil {
		return nil, common.StoreError(ctx, err, "delete bot sessions")
	}

	if _, err := d.memberRepo.DeleteMany(ctx, repository.Filter{"user_id": bot.ID}); err != nil {
		return nil, common.StoreError(ctx, err, "delete bot memberships")
	}

	if err := d.userRepo.DeleteOne(ctx, repository.Filter{"id": bot.ID}); err != nil {
		return nil, common.StoreError(ctx, err, "delete bot")
	}

	if err := xcontext.WithCommitDBTransaction(ctx); err != nil {
		return nil, common.StoreError(ctx, err, "commit bot deletion")
	}

	for _, m := range members {
		dispatchToGuild(ctx, d.dispatcher, m.GuildID, &event.MemberLeaveEvent{
			GuildID: model.FormatID(m.GuildID),
			UserID:  model.FormatID(bot.ID),
		})
		leaveGuild(ctx, d.dispatcher, m.GuildID, bot.ID)
	}

	return &model.DeleteBotResponse{}, nil
}

// newSession issues a token for the user. The oldest sessions are removed when
// the user holds more than the configured maximum.
func (d *userDomain) newSession(ctx context.Context, userID int64) (string, error) {
	token, err := crypto.GenerateRandomString()
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot generate session token: %v", err)
		return "", errorx.Unknown
	}

	err = d.sessionRepo.InsertOne(ctx, &entity.Session{Token: token, UserID: userID})
	if err != nil {
		return "", common.StoreError(ctx, err, "create session")
	}

	maxSessions := xcontext.Configs(ctx).Auth.MaxSessions
	if maxSessions <= 0 {
		return token, nil
	}

	count, err := d.sessionRepo.Count(ctx, repository.Filter{"user_id": userID})
	if err != nil {
		return "", common.StoreError(ctx, err, "count sessions")
	}

	if count <= int64(maxSessions) {
		return token, nil
	}

	sessions, err := d.sessionRepo.Find(ctx,
		repository.Filter{"user_id": userID},
		repository.OrderBy("created_at", false),
	).All()
	if err != nil {
		return "", common.StoreError(ctx, err, "get sessions")
	}

	excess := len(sessions) - maxSessions
	for _, s := range sessions {
		if excess <= 0 {
			break
		}

		if s.Token == token {
			continue
		}

		if err := d.sessionRepo.DeleteOne(ctx, repository.Filter{"token": s.Token}); err != nil {
			return "", common.StoreError(ctx, err, "delete old session")
		}

		excess--
	}

	return token, nil
}

func (d *userDomain) checkEmailAvailable(ctx context.Context, selfID int64, email string) error {
	user, err := d.userRepo.FindOne(ctx, repository.Filter{"email": email})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}

		return common.StoreError(ctx, err, "get user by email")
	}

	if user.ID == selfID {
		return nil
	}

	return errorx.New(errorx.AlreadyExists, "Email is already used").WithReason(common.ReasonEmailTaken)
}

func (d *userDomain) checkTagAvailable(ctx context.Context, selfID int64, username, discriminator string) error {
	user, err := d.userRepo.FindOne(ctx, repository.Filter{
		"username":      username,
		"discriminator": discriminator,
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}

		return common.StoreError(ctx, err, "get user by tag")
	}

	if user.ID == selfID {
		return nil
	}

	return errorx.New(errorx.AlreadyExists, "Username and discriminator are already used").
		WithReason(common.ReasonTagTaken)
}
