package eventlog

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang/snappy"
	"github.com/stretchr/testify/require"

	"github.com/anjeleno/rdx-rivendell/pkg/logging"
)

func TestPublishAssignsMonotonicSequence(t *testing.T) {
	l := New(logging.NewNopLogger())

	s1 := l.Publish(Event{Kind: ProfileChanged, Profile: "default"})
	s2 := l.Publish(Event{Kind: ConnectionChanged, Source: "a:out", Sink: "b:in", Connected: true})
	require.Equal(t, uint64(1), s1)
	require.Equal(t, uint64(2), s2)
	require.Equal(t, uint64(2), l.LastSeq())
}

func TestSinceReturnsTail(t *testing.T) {
	l := New(logging.NewNopLogger())
	for i := 0; i < 5; i++ {
		l.Publish(Event{Kind: ClientAppeared, Client: "c"})
	}

	tail := l.Since(3)
	require.Len(t, tail, 2)
	require.Equal(t, uint64(4), tail[0].Seq)
	require.Equal(t, uint64(5), tail[1].Seq)
	require.Empty(t, l.Since(5))
}

func TestSubscribeReceivesEvents(t *testing.T) {
	l := New(logging.NewNopLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub := l.Subscribe(ctx)
	defer sub.Unsubscribe()

	l.Publish(Event{Kind: ProfileChanged, Profile: "live-broadcast"})

	select {
	case ev := <-sub.Channel():
		require.Equal(t, ProfileChanged, ev.Kind)
		require.Equal(t, "live-broadcast", ev.Profile)
		require.NotZero(t, ev.Seq)
		require.False(t, ev.Time.IsZero())
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	l := New(logging.NewNopLogger())
	sub := l.Subscribe(context.Background())
	sub.Unsubscribe()

	// Publishing after unsubscribe must not panic or block.
	l.Publish(Event{Kind: ClientAppeared, Client: "x"})

	_, open := <-sub.Channel()
	require.False(t, open, "channel must be closed after unsubscribe")
}

func TestSpoolRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.spool")
	spool, err := OpenSpool(path)
	require.NoError(t, err)

	l := New(logging.NewNopLogger())
	l.AddSink(spool)
	l.Publish(Event{Kind: ConnectionChanged, Source: "a:out", Sink: "b:in", Connected: true})
	l.Publish(Event{Kind: ClientDisappeared, Client: "vlc_media_player"})
	require.NoError(t, spool.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	data, err := io.ReadAll(snappy.NewReader(f))
	require.NoError(t, err)

	var events []Event
	for _, line := range splitLines(data) {
		var ev Event
		require.NoError(t, json.Unmarshal(line, &ev))
		events = append(events, ev)
	}
	require.Len(t, events, 2)
	require.Equal(t, ConnectionChanged, events[0].Kind)
	require.Equal(t, "vlc_media_player", events[1].Client)
}

func splitLines(data []byte) [][]byte {
	var out [][]byte
	start := 0
	for i, b := range data {
		if b == '\n' {
			if i > start {
				out = append(out, data[start:i])
			}
			start = i + 1
		}
	}
	return out
}
