package dispatcher

import (
	"sync"

	"github.com/google/uuid"
	"github.com/hatsu-chat/backend/internal/domain/notification/event"
)

// Session is one connection of a user. Events are delivered to C until the
// session is disconnected or evicted, then Done is closed. C is never closed.
type Session struct {
	C chan *event.EventResponse

	id     string
	userID int64
	done   chan struct{}
	once   sync.Once
}

func newSession(userID int64, bufferSize int) *Session {
	return &Session{
		C:      make(chan *event.EventResponse, bufferSize),
		id:     uuid.NewString(),
		userID: userID,
		done:   make(chan struct{}),
	}
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) UserID() int64 {
	return s.userID
}

func (s *Session) Done() <-chan struct{} {
	return s.done
}

// send never blocks. It returns false if the buffer of the session is full.
func (s *Session) send(ev *event.EventResponse) bool {
	select {
	case <-s.done:
		return true
	default:
	}

	select {
	case s.C <- ev:
		return true
	default:
		return false
	}
}

func (s *Session) close() {
	s.once.Do(func() { close(s.done) })
}
