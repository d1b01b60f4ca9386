package dispatcher

import (
	"context"
	"sync"
	"time"

	"github.com/hatsu-chat/backend/internal/domain/notification/event"
	"github.com/hatsu-chat/backend/internal/model"
	"github.com/hatsu-chat/backend/pkg/errorx"
)

type hubCommand struct {
	event *event.EventRequest
	join  int64
	leave int64
	drop  bool
}

// GuildHub serializes everything happening to one guild. Only the run
// goroutine touches members and seq, so every recipient observes the events of
// the guild in the order they were enqueued.
//
// A hub closes itself when it has no member left, nobody holds it and its
// queue is empty.
type GuildHub struct {
	guildID int64
	members map[int64]struct{}
	seq     int64
	dropped bool
	c       chan hubCommand
	wake    chan struct{}

	// deliver returns false if the user has no session anymore.
	deliver func(userID int64, resp *event.EventResponse) bool
	mirror  func(resp *event.EventResponse)
	onClose func(hub *GuildHub)

	refs   int
	closed bool
	mutex  sync.Mutex
}

// NewGuildHub returns a hub held once by the caller, its run goroutine is not
// started yet.
func NewGuildHub(
	guildID, seq int64,
	queueSize int,
	deliver func(int64, *event.EventResponse) bool,
	mirror func(*event.EventResponse),
	onClose func(*GuildHub),
) *GuildHub {
	return &GuildHub{
		guildID: guildID,
		members: make(map[int64]struct{}),
		seq:     seq,
		c:       make(chan hubCommand, queueSize),
		wake:    make(chan struct{}, 1),
		deliver: deliver,
		mirror:  mirror,
		onClose: onClose,
		refs:    1,
	}
}

// acquire returns false if the hub is already closed.
func (h *GuildHub) acquire() bool {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if h.closed {
		return false
	}

	h.refs++
	return true
}

func (h *GuildHub) release() {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	h.refs--
	if h.refs == 0 {
		select {
		case h.wake <- struct{}{}:
		default:
		}
	}
}

func (h *GuildHub) run() {
	for {
		select {
		case cmd := <-h.c:
			h.handle(cmd)
		case <-h.wake:
		}

		if len(h.members) == 0 && h.tryClose() {
			return
		}
	}
}

func (h *GuildHub) handle(cmd hubCommand) {
	switch {
	case cmd.drop:
		h.dropped = true
		h.members = make(map[int64]struct{})

	case cmd.join != 0:
		h.members[cmd.join] = struct{}{}

	case cmd.leave != 0:
		delete(h.members, cmd.leave)

	case cmd.event != nil:
		h.seq++
		resp := event.Format(cmd.event, model.FormatID(h.guildID), h.seq)
		for userID := range h.members {
			if !h.deliver(userID, resp) {
				delete(h.members, userID)
			}
		}

		if h.mirror != nil {
			h.mirror(resp)
		}
	}
}

func (h *GuildHub) tryClose() bool {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if h.refs > 0 || len(h.c) > 0 {
		return false
	}

	h.closed = true
	h.onClose(h)
	return true
}

// enqueue waits at most timeout for a free slot in the queue. The caller must
// hold the hub.
func (h *GuildHub) enqueue(ctx context.Context, cmd hubCommand, timeout time.Duration) error {
	select {
	case h.c <- cmd:
		return nil
	default:
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case h.c <- cmd:
		return nil
	case <-timer.C:
		return errorx.New(errorx.Unavailable, "Event queue of guild is full, please retry")
	case <-ctx.Done():
		return errorx.New(errorx.Unavailable, "Request is cancelled before dispatching")
	}
}
