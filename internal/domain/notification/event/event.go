package event

type Event interface {
	Op() string
}

// Metadata tells the dispatcher where an event goes. GuildID is set for guild
// broadcasts, To for user targeted events.
type Metadata struct {
	GuildID int64 `json:"guild_id,omitempty"`
	To      int64 `json:"to,omitempty"`
}

type EventRequest struct {
	Op       string   `json:"o"`
	Data     any      `json:"d"`
	Metadata Metadata `json:"m"`
}

// EventResponse is what a session receives. Seq increases by one for every
// event of the same guild. User targeted events have their own sequence per
// user.
type EventResponse struct {
	Op      string `json:"op"`
	GuildID string `json:"guild_id,omitempty"`
	Seq     int64  `json:"s"`
	Data    any    `json:"d"`
}

func New(ev Event, metadata Metadata) *EventRequest {
	return &EventRequest{
		Op:       ev.Op(),
		Data:     ev,
		Metadata: metadata,
	}
}

func Format(ev *EventRequest, guildID string, seq int64) *EventResponse {
	return &EventResponse{
		Op:      ev.Op,
		GuildID: guildID,
		Seq:     seq,
		Data:    ev.Data,
	}
}
