package domain

import (
	"context"
	"sync"
	"testing"

	"github.com/hatsu-chat/backend/internal/common"
	"github.com/hatsu-chat/backend/internal/domain/notification/dispatcher"
	"github.com/hatsu-chat/backend/internal/domain/notification/event"
	"github.com/hatsu-chat/backend/internal/model"
	"github.com/hatsu-chat/backend/internal/repository"
	"github.com/hatsu-chat/backend/pkg/keylock"
	"github.com/hatsu-chat/backend/pkg/testutil"
	"github.com/hatsu-chat/backend/pkg/xcontext"
)

type dispatchedEvent struct {
	GuildID int64
	UserID  int64
	Event   event.Event
}

type subscription struct {
	GuildID int64
	UserID  int64
}

// recordingDispatcher records every call instead of delivering anything.
type recordingDispatcher struct {
	mutex  sync.Mutex
	events []dispatchedEvent
	joins  []subscription
	leaves []subscription
	drops  []int64
}

func (r *recordingDispatcher) DispatchToGuild(ctx context.Context, guildID int64, ev event.Event) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.events = append(r.events, dispatchedEvent{GuildID: guildID, Event: ev})
	return nil
}

func (r *recordingDispatcher) DispatchToUser(ctx context.Context, userID int64, ev event.Event) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.events = append(r.events, dispatchedEvent{UserID: userID, Event: ev})
	return nil
}

func (r *recordingDispatcher) Connect(ctx context.Context, userID int64) (*dispatcher.Session, error) {
	return nil, nil
}

func (r *recordingDispatcher) Disconnect(*dispatcher.Session) {}

func (r *recordingDispatcher) Join(ctx context.Context, guildID, userID int64) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.joins = append(r.joins, subscription{GuildID: guildID, UserID: userID})
	return nil
}

func (r *recordingDispatcher) Leave(ctx context.Context, guildID, userID int64) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.leaves = append(r.leaves, subscription{GuildID: guildID, UserID: userID})
	return nil
}

func (r *recordingDispatcher) Drop(ctx context.Context, guildID int64) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.drops = append(r.drops, guildID)
	return nil
}

// ops returns the op of every recorded event in dispatch order.
func (r *recordingDispatcher) ops() []string {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	ops := []string{}
	for _, e := range r.events {
		ops = append(ops, e.Event.Op())
	}

	return ops
}

func (r *recordingDispatcher) eventsOf(op string) []dispatchedEvent {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	result := []dispatchedEvent{}
	for _, e := range r.events {
		if e.Event.Op() == op {
			result = append(result, e)
		}
	}

	return result
}

type suite struct {
	ctx        context.Context
	dispatcher *recordingDispatcher
	locker     *keylock.Locker
	guard      *common.Guard

	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
	guildRepo   repository.GuildRepository
	memberRepo  repository.MemberRepository
	roleRepo    repository.RoleRepository
	channelRepo repository.ChannelRepository
	inviteRepo  repository.InviteRepository
	messageRepo repository.MessageRepository
}

// newSuite returns a suite backed by a fresh database holding the fixture
// guild.
func newSuite(t *testing.T) *suite {
	ctx := testutil.MockContext()
	testutil.CreateFixtureDb(ctx)

	s := &suite{
		ctx:         ctx,
		dispatcher:  &recordingDispatcher{},
		locker:      keylock.New(keylock.DefaultStripes),
		userRepo:    repository.NewUserRepository(),
		sessionRepo: repository.NewSessionRepository(),
		guildRepo:   repository.NewGuildRepository(),
		memberRepo:  repository.NewMemberRepository(),
		roleRepo:    repository.NewRoleRepository(),
		channelRepo: repository.NewChannelRepository(),
		inviteRepo:  repository.NewInviteRepository(),
		messageRepo: repository.NewMessageRepository(),
	}

	s.guard = common.NewGuard(s.sessionRepo, s.userRepo, s.guildRepo, s.memberRepo, s.roleRepo, s.channelRepo)
	return s
}

// as returns the suite context authenticated with token.
func (s *suite) as(token string) context.Context {
	return xcontext.WithSessionToken(s.ctx, token)
}

func (s *suite) userDomain() UserDomain {
	return NewUserDomain(s.userRepo, s.sessionRepo, s.memberRepo, s.guard, s.dispatcher, s.locker)
}

func (s *suite) guildDomain() GuildDomain {
	return NewGuildDomain(s.guildRepo, s.channelRepo, s.memberRepo, s.roleRepo, s.inviteRepo,
		s.messageRepo, s.guard, s.dispatcher, s.locker)
}

func (s *suite) channelDomain() ChannelDomain {
	return NewChannelDomain(s.channelRepo, s.roleRepo, s.messageRepo, s.guard, s.dispatcher, s.locker)
}

func (s *suite) inviteDomain(codes ...string) InviteDomain {
	var generator CodeGenerator
	if len(codes) > 0 {
		i := 0
		generator = func() string {
			code := codes[i%len(codes)]
			i++
			return code
		}
	}

	return NewInviteDomain(s.inviteRepo, s.guildRepo, s.memberRepo, s.guard, s.dispatcher, s.locker, generator)
}

func (s *suite) messageDomain() MessageDomain {
	return NewMessageDomain(s.messageRepo, s.memberRepo, s.guard, s.dispatcher, s.locker)
}

func (s *suite) roleDomain() RoleDomain {
	return NewRoleDomain(s.roleRepo, s.memberRepo, s.channelRepo, s.guard, s.dispatcher, s.locker)
}

func parseID(t *testing.T, s string) int64 {
	id, err := model.ParseID(s)
	if err != nil {
		t.Fatalf("invalid id %q: %v", s, err)
	}

	return id
}
