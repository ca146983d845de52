package eventstore_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/codesdk/execd/pkg/event"
	"github.com/codesdk/execd/pkg/eventstore"
)

func backends(t *testing.T) map[string]eventstore.Store {
	t.Helper()
	sqliteStore, err := eventstore.NewSQLiteStore(filepath.Join(t.TempDir(), "events.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqliteStore.Close() })

	return map[string]eventstore.Store{
		"memory": eventstore.NewMemoryStore(),
		"sqlite": sqliteStore,
	}
}

func TestAppend_MonotonicDenseSeq(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for i := 1; i <= 5; i++ {
				evt, err := store.Append(ctx, "sess-1", event.NewEventFields{
					Type:  event.TypeTaskStarted,
					Trace: event.Trace{SessionID: "sess-1"},
				})
				require.NoError(t, err)
				require.EqualValues(t, i, evt.Seq)
			}

			events, err := store.List(ctx, "sess-1", 0, 0)
			require.NoError(t, err)
			require.Len(t, events, 5)
			for i, evt := range events {
				require.EqualValues(t, i+1, evt.Seq)
			}
		})
	}
}

func TestAppend_RejectsSessionMismatch(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.Append(context.Background(), "sess-1", event.NewEventFields{
				Type:  event.TypeTaskStarted,
				Trace: event.Trace{SessionID: "sess-2"},
			})
			require.ErrorIs(t, err, eventstore.ErrSessionMismatch)
		})
	}
}

func TestList_AfterSeqReturnsStrictlyGreater(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for i := 0; i < 4; i++ {
				_, err := store.Append(ctx, "sess-1", event.NewEventFields{
					Type:  event.TypeTaskStarted,
					Trace: event.Trace{SessionID: "sess-1"},
				})
				require.NoError(t, err)
			}
			events, err := store.List(ctx, "sess-1", 2, 0)
			require.NoError(t, err)
			require.Len(t, events, 2)
			require.EqualValues(t, 3, events[0].Seq)
			require.EqualValues(t, 4, events[1].Seq)
		})
	}
}

func TestSubscribe_DeliversHistoricalThenLive(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()

			_, err := store.Append(ctx, "sess-1", event.NewEventFields{
				Type: event.TypeTaskStarted, Trace: event.Trace{SessionID: "sess-1"},
			})
			require.NoError(t, err)

			sub, err := store.Subscribe(ctx, "sess-1", 0)
			require.NoError(t, err)

			first := <-sub
			require.EqualValues(t, 1, first.Seq)

			_, err = store.Append(ctx, "sess-1", event.NewEventFields{
				Type: event.TypeTaskCompleted, Trace: event.Trace{SessionID: "sess-1"},
			})
			require.NoError(t, err)

			second := <-sub
			require.EqualValues(t, 2, second.Seq)
			require.Equal(t, event.TypeTaskCompleted, second.Type)
		})
	}
}
