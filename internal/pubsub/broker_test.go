package pubsub

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func receive[T any](t *testing.T, ch <-chan Event[T]) Event[T] {
	t.Helper()
	select {
	case event, ok := <-ch:
		require.True(t, ok, "subscription closed")
		return event
	case <-time.After(time.Second):
		require.FailNow(t, "no event delivered")
		return Event[T]{}
	}
}

func requireClosed[T any](t *testing.T, ch <-chan Event[T]) {
	t.Helper()
	select {
	case _, ok := <-ch:
		require.False(t, ok, "expected a closed subscription")
	case <-time.After(time.Second):
		require.FailNow(t, "subscription was not closed")
	}
}

func TestBroker_FanOut(t *testing.T) {
	broker := NewBroker[string]()
	defer broker.Close()

	subs := []<-chan Event[string]{
		broker.Subscribe(context.Background()),
		broker.Subscribe(context.Background()),
	}
	require.Equal(t, 2, broker.SubscriberCount())
	require.Equal(t, 2, broker.Publish(ChangedEvent, "<div class=\"p-4 flex\">"))

	for _, ch := range subs {
		event := receive(t, ch)
		require.Equal(t, ChangedEvent, event.Type)
		require.Equal(t, "<div class=\"p-4 flex\">", event.Payload)
		require.False(t, event.Timestamp.IsZero())
	}
}

func TestBroker_SubscriptionEnds(t *testing.T) {
	tests := []struct {
		name string
		end  func(b *Broker[int], cancel context.CancelFunc)
	}{
		{"context cancelled", func(_ *Broker[int], cancel context.CancelFunc) { cancel() }},
		{"broker closed", func(b *Broker[int], _ context.CancelFunc) { b.Close() }},
		{"closed then cancelled", func(b *Broker[int], cancel context.CancelFunc) {
			b.Close()
			cancel()
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			broker := NewBroker[int]()
			defer broker.Close()
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			ch := broker.Subscribe(ctx)
			tt.end(broker, cancel)

			requireClosed(t, ch)
			require.Eventually(t, func() bool { return broker.SubscriberCount() == 0 }, time.Second, 5*time.Millisecond)
		})
	}
}

func TestBroker_ClosedBroker(t *testing.T) {
	broker := NewBroker[string]()
	broker.Close()
	broker.Close()

	requireClosed(t, broker.Subscribe(context.Background()))
	require.Zero(t, broker.Publish(RetiredEvent, "late"))
}

func TestBroker_FullBufferDrops(t *testing.T) {
	broker := NewBrokerWithBuffer[int](0)
	defer broker.Close()
	ch := broker.Subscribe(context.Background())

	require.Equal(t, 1, broker.Publish(ConfigEvent, 1))
	require.Zero(t, broker.Publish(ConfigEvent, 2), "a full subscription is skipped, not waited on")
	require.Equal(t, 1, receive(t, ch).Payload)
}

func TestBroker_SubscribeLatestKeepsNewest(t *testing.T) {
	broker := NewBroker[int]()
	defer broker.Close()
	latest := broker.SubscribeLatest(context.Background())
	queued := broker.Subscribe(context.Background())

	total := DefaultBuffer + 10
	for v := 1; v <= total; v++ {
		want := 2
		if v > DefaultBuffer {
			want = 1
		}
		require.Equal(t, want, broker.Publish(ChangedEvent, v), "value %d", v)
	}

	require.Equal(t, total, receive(t, latest).Payload)
	select {
	case ev := <-latest:
		require.FailNow(t, "latest subscription held a second event", "%v", ev.Payload)
	default:
	}
	require.Equal(t, 1, receive(t, queued).Payload, "a queued subscription keeps the oldest events")
}

// Every subscription with room receives events in publish order.
func TestBroker_OrderProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		values := rapid.SliceOfN(rapid.Int(), 0, DefaultBuffer).Draw(rt, "values")
		subscribers := rapid.IntRange(1, 4).Draw(rt, "subscribers")

		broker := NewBroker[int]()
		defer broker.Close()
		chans := make([]<-chan Event[int], subscribers)
		for i := range chans {
			chans[i] = broker.Subscribe(context.Background())
		}

		for _, v := range values {
			if got := broker.Publish(ChangedEvent, v); got != subscribers {
				rt.Fatalf("delivered to %d of %d", got, subscribers)
			}
		}
		for i, ch := range chans {
			for j, want := range values {
				if got := (<-ch).Payload; got != want {
					rt.Fatalf("subscriber %d event %d: got %d want %d", i, j, got, want)
				}
			}
		}
	})
}
