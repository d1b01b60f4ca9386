package pubsub

import "context"

// Pack is a single message. Messages with the same Key keep their relative
// order.
type Pack struct {
	Key []byte
	Msg []byte
}

type Publisher interface {
	Publish(context.Context, string, *Pack) error
}
