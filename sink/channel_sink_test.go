package sink

import (
	"context"
	"testing"

	"task-hub/domain/event"

	"github.com/stretchr/testify/require"
)

func TestChannelSink_Buffers_Until_Full_Then_Drops(t *testing.T) {
	req := require.New(t)
	s := NewChannelSink(2)
	ctx := context.Background()

	req.NoError(s.Consume(ctx, event.Envelope{Event: event.ChatMessage}))
	req.NoError(s.Consume(ctx, event.Envelope{Event: event.ChatMessage}))

	// Third event exceeds the buffer: dropped, caller not blocked
	req.ErrorIs(s.Consume(ctx, event.Envelope{Event: event.ChatMessage}), ErrSlowConsumer)
	req.Len(s.Events, 2)
}

func TestChannelSink_Honors_Context_Cancellation(t *testing.T) {
	req := require.New(t)
	s := NewChannelSink(0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Consume(ctx, event.Envelope{Event: event.ChatMessage})
	req.ErrorIs(err, context.Canceled)
}
