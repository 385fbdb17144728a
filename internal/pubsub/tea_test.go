package pubsub

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestListenCmd(t *testing.T) {
	tests := []struct {
		name    string
		prepare func(b *Broker[string], cancel context.CancelFunc)
		want    any
	}{
		{
			name:    "event",
			prepare: func(b *Broker[string], _ context.CancelFunc) { b.Publish(RetiredEvent, "timeout") },
			want:    "timeout",
		},
		{
			name:    "context done",
			prepare: func(_ *Broker[string], cancel context.CancelFunc) { cancel() },
		},
		{
			name:    "broker closed",
			prepare: func(b *Broker[string], _ context.CancelFunc) { b.Close() },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			broker := NewBroker[string]()
			defer broker.Close()
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			ch := broker.Subscribe(ctx)
			tt.prepare(broker, cancel)
			msg := ListenCmd(ctx, ch)()

			if tt.want == nil {
				require.Nil(t, msg)
				return
			}
			event, ok := msg.(Event[string])
			require.True(t, ok, "got %T", msg)
			require.Equal(t, RetiredEvent, event.Type)
			require.Equal(t, tt.want, event.Payload)
		})
	}
}

func TestContinuousListener_KeepsOrder(t *testing.T) {
	broker := NewBroker[int]()
	defer broker.Close()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Published before the first Listen call.
	listener := NewContinuousListener[int](ctx, broker)
	broker.Publish(ActivatedEvent, 1)
	broker.Publish(RetiredEvent, 2)

	for i, want := range []EventType{ActivatedEvent, RetiredEvent} {
		event, ok := listener.Listen()().(Event[int])
		require.True(t, ok)
		require.Equal(t, want, event.Type)
		require.Equal(t, i+1, event.Payload)
	}
}
