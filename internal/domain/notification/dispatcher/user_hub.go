package dispatcher

import (
	"sync"

	"github.com/hatsu-chat/backend/internal/domain/notification/event"
)

type UserHub struct {
	userID   int64
	sessions map[string]*Session
	seq      int64

	mutex sync.RWMutex
}

func NewUserHub(userID int64) *UserHub {
	return &UserHub{
		userID:   userID,
		sessions: make(map[string]*Session),
		mutex:    sync.RWMutex{},
	}
}

// Send delivers ev to every session of the user and returns the sessions whose
// buffer was full.
func (h *UserHub) Send(ev *event.EventResponse) []*Session {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	var full []*Session
	for _, s := range h.sessions {
		if !s.send(ev) {
			full = append(full, s)
		}
	}

	return full
}

// SendDirect delivers a user targeted event. The user sequence is increased
// under the write lock, so every session observes the same order.
func (h *UserHub) SendDirect(req *event.EventRequest) []*Session {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	h.seq++
	resp := event.Format(req, "", h.seq)

	var full []*Session
	for _, s := range h.sessions {
		if !s.send(resp) {
			full = append(full, s)
		}
	}

	return full
}

func (h *UserHub) register(session *Session) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	h.sessions[session.id] = session
}

func (h *UserHub) unregister(session *Session) bool {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if _, ok := h.sessions[session.id]; !ok {
		return false
	}

	delete(h.sessions, session.id)
	return true
}

func (h *UserHub) IsEmpty() bool {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	return len(h.sessions) == 0
}
