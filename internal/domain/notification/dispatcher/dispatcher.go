package dispatcher

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"time"

	"github.com/hatsu-chat/backend/internal/domain/notification/event"
	"github.com/hatsu-chat/backend/internal/repository"
	"github.com/hatsu-chat/backend/pkg/errorx"
	"github.com/hatsu-chat/backend/pkg/pubsub"
	"github.com/hatsu-chat/backend/pkg/xcontext"
	"github.com/puzpuzpuz/xsync"
)

const (
	defaultTimeout           = time.Second
	defaultQueueSize         = 1024
	defaultSessionBufferSize = 256
)

// Dispatcher delivers events to the connected sessions of users. Delivery is
// best-effort: a session which cannot keep up is evicted instead of slowing
// down the other recipients.
type Dispatcher interface {
	// DispatchToGuild delivers ev to every connected member of the guild. Events
	// of the same guild are observed in the same order by every recipient.
	DispatchToGuild(ctx context.Context, guildID int64, ev event.Event) error

	// DispatchToUser delivers ev to every session of the user.
	DispatchToUser(ctx context.Context, userID int64, ev event.Event) error

	// Connect opens a new session for the user and subscribes it to every guild
	// the user is a member of.
	Connect(ctx context.Context, userID int64) (*Session, error)
	Disconnect(session *Session)

	// Join, Leave and Drop are ordered with the events of the guild. An event
	// dispatched after Join is received by the user, an event dispatched before
	// Leave too.
	Join(ctx context.Context, guildID, userID int64) error
	Leave(ctx context.Context, guildID, userID int64) error
	Drop(ctx context.Context, guildID int64) error
}

type dispatcher struct {
	rootCtx    context.Context
	memberRepo repository.MemberRepository
	publisher  pubsub.Publisher

	topic             string
	timeout           time.Duration
	queueSize         int
	sessionBufferSize int

	guildHubs *xsync.MapOf[string, *GuildHub]
	userHubs  *xsync.MapOf[string, *UserHub]

	// lastSeqs keeps the sequence of guilds whose hub was closed while idle, so
	// the next hub of the guild continues it.
	lastSeqs *xsync.MapOf[string, int64]

	// guildMutex and userMutex serialize the creation and removal of hubs.
	guildMutex sync.Mutex
	userMutex  sync.Mutex
}

// New creates a dispatcher. The publisher may be nil, in that case events are
// not mirrored.
func New(
	ctx context.Context,
	memberRepo repository.MemberRepository,
	publisher pubsub.Publisher,
) *dispatcher {
	cfg := xcontext.Configs(ctx).Dispatcher

	d := &dispatcher{
		rootCtx:           ctx,
		memberRepo:        memberRepo,
		publisher:         publisher,
		topic:             cfg.Topic,
		timeout:           cfg.Timeout,
		queueSize:         cfg.QueueSize,
		sessionBufferSize: cfg.SessionBufferSize,
		guildHubs:         xsync.NewMapOf[*GuildHub](),
		userHubs:          xsync.NewMapOf[*UserHub](),
		lastSeqs:          xsync.NewMapOf[int64](),
	}

	if d.timeout <= 0 {
		d.timeout = defaultTimeout
	}

	if d.queueSize <= 0 {
		d.queueSize = defaultQueueSize
	}

	if d.sessionBufferSize <= 0 {
		d.sessionBufferSize = defaultSessionBufferSize
	}

	return d
}

func (d *dispatcher) DispatchToGuild(ctx context.Context, guildID int64, ev event.Event) error {
	req := event.New(ev, event.Metadata{GuildID: guildID})
	return d.enqueue(ctx, guildID, hubCommand{event: req})
}

func (d *dispatcher) DispatchToUser(ctx context.Context, userID int64, ev event.Event) error {
	req := event.New(ev, event.Metadata{To: userID})

	if hub, ok := d.userHubs.Load(userKey(userID)); ok {
		d.evict(hub.SendDirect(req))
	}

	if d.publisher != nil && d.topic != "" {
		d.publish(ctx, "user:"+strconv.FormatInt(userID, 10), event.Format(req, "", 0))
	}

	return nil
}

func (d *dispatcher) Connect(ctx context.Context, userID int64) (*Session, error) {
	members, err := d.memberRepo.Find(ctx, repository.Filter{"user_id": userID}).All()
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get memberships of user: %v", err)
		return nil, errorx.Unknown
	}

	session := newSession(userID, d.sessionBufferSize)

	d.userMutex.Lock()
	hub, ok := d.userHubs.Load(userKey(userID))
	if !ok {
		hub = NewUserHub(userID)
		d.userHubs.Store(userKey(userID), hub)
	}
	hub.register(session)
	d.userMutex.Unlock()

	for _, m := range members {
		if err := d.Join(ctx, m.GuildID, userID); err != nil {
			d.Disconnect(session)
			return nil, err
		}
	}

	xcontext.Logger(ctx).Debugf("User %d connected with session %s", userID, session.id)
	return session, nil
}

// Disconnect closes the session. Guild hubs forget a user at the first event
// delivered after the last session of the user is closed.
func (d *dispatcher) Disconnect(session *Session) {
	session.close()

	d.userMutex.Lock()
	defer d.userMutex.Unlock()

	hub, ok := d.userHubs.Load(userKey(session.userID))
	if !ok {
		return
	}

	if hub.unregister(session) && hub.IsEmpty() {
		d.userHubs.Delete(userKey(session.userID))
	}
}

func (d *dispatcher) Join(ctx context.Context, guildID, userID int64) error {
	return d.enqueue(ctx, guildID, hubCommand{join: userID})
}

func (d *dispatcher) Leave(ctx context.Context, guildID, userID int64) error {
	return d.enqueue(ctx, guildID, hubCommand{leave: userID})
}

// Drop forgets every member of the guild. The hub is released once the events
// enqueued before are delivered.
func (d *dispatcher) Drop(ctx context.Context, guildID int64) error {
	if _, ok := d.guildHubs.Load(guildKey(guildID)); !ok {
		d.guildMutex.Lock()
		d.lastSeqs.Delete(guildKey(guildID))
		d.guildMutex.Unlock()
		return nil
	}

	return d.enqueue(ctx, guildID, hubCommand{drop: true})
}

func (d *dispatcher) enqueue(ctx context.Context, guildID int64, cmd hubCommand) error {
	hub := d.acquireGuildHub(guildID)
	defer hub.release()

	return hub.enqueue(ctx, cmd, d.timeout)
}

// acquireGuildHub returns the running hub of the guild, held once by the
// caller. A hub is created and started if there is none.
func (d *dispatcher) acquireGuildHub(guildID int64) *GuildHub {
	key := guildKey(guildID)
	for {
		if hub, ok := d.guildHubs.Load(key); ok {
			if hub.acquire() {
				return hub
			}

			// A closing hub is removed from the map before acquire returns.
			continue
		}

		if hub := d.createGuildHub(guildID); hub != nil {
			return hub
		}
	}
}

// createGuildHub returns nil if another hub of the guild was stored first.
func (d *dispatcher) createGuildHub(guildID int64) *GuildHub {
	key := guildKey(guildID)

	d.guildMutex.Lock()
	defer d.guildMutex.Unlock()

	if _, ok := d.guildHubs.Load(key); ok {
		return nil
	}

	seq, _ := d.lastSeqs.LoadAndDelete(key)
	hub := NewGuildHub(guildID, seq, d.queueSize, d.deliver, d.mirror(), d.removeGuildHub)
	d.guildHubs.Store(key, hub)

	go hub.run()
	return hub
}

// removeGuildHub is called by the hub itself when it closes.
func (d *dispatcher) removeGuildHub(hub *GuildHub) {
	key := guildKey(hub.guildID)

	d.guildMutex.Lock()
	defer d.guildMutex.Unlock()

	if !hub.dropped {
		d.lastSeqs.Store(key, hub.seq)
	}

	d.guildHubs.Delete(key)
}

func (d *dispatcher) mirror() func(*event.EventResponse) {
	if d.publisher == nil || d.topic == "" {
		return nil
	}

	return func(resp *event.EventResponse) {
		d.publish(d.rootCtx, "guild:"+resp.GuildID, resp)
	}
}

func (d *dispatcher) deliver(userID int64, resp *event.EventResponse) bool {
	hub, ok := d.userHubs.Load(userKey(userID))
	if !ok {
		return false
	}

	d.evict(hub.Send(resp))
	return true
}

func (d *dispatcher) evict(sessions []*Session) {
	for _, s := range sessions {
		xcontext.Logger(d.rootCtx).Warnf("Evict session %s of user %d: buffer is full", s.id, s.userID)
		d.Disconnect(s)
	}
}

func (d *dispatcher) publish(ctx context.Context, key string, resp *event.EventResponse) {
	b, err := json.Marshal(resp)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot marshal event: %v", err)
		return
	}

	err = d.publisher.Publish(ctx, d.topic, &pubsub.Pack{Key: []byte(key), Msg: b})
	if err != nil {
		xcontext.Logger(ctx).Warnf("Cannot mirror event %s: %v", resp.Op, err)
	}
}

func guildKey(id int64) string {
	return strconv.FormatInt(id, 10)
}

func userKey(id int64) string {
	return strconv.FormatInt(id, 10)
}
