package sink

import (
	"context"
	"fmt"

	"task-hub/domain/event"
)

var ErrSlowConsumer = fmt.Errorf("sink buffer full, event dropped")

// ChannelSink decouples broadcast from transport writes: Consume is
// called by the broadcaster, the connection's write pump drains Events.
// When the buffer is full the event is dropped rather than blocking the
// broadcaster behind one slow client.
type ChannelSink struct {
	Events chan event.Envelope
}

func NewChannelSink(bufferSize int) *ChannelSink {
	return &ChannelSink{Events: make(chan event.Envelope, bufferSize)}
}

func (s *ChannelSink) Consume(ctx context.Context, e event.Envelope) error {
	select {
	case s.Events <- e:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrSlowConsumer
	}
}
