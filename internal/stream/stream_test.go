package stream

import (
	"context"
	"io"
	"log"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minhng/spotify-proxy-go/internal/spotify"
)

func newTestHub(t *testing.T) (*Hub, string) {
	t.Helper()

	hub := NewHub(log.New(io.Discard, "", 0))
	t.Cleanup(hub.Close)

	router := chi.NewRouter()
	RegisterRoutes(router, hub)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/v1/stream/now-playing"
	return hub, wsURL
}

func dial(t *testing.T, wsURL string) *websocket.Conn {
	t.Helper()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func waitForClients(t *testing.T, hub *Hub, want int) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() != want {
		if time.Now().After(deadline) {
			t.Fatalf("hub never reached %d clients (have %d)", want, hub.ClientCount())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestBroadcastReachesAllClients(t *testing.T) {
	hub, wsURL := newTestHub(t)

	first := dial(t, wsURL)
	second := dial(t, wsURL)
	waitForClients(t, hub, 2)

	hub.Broadcast(&Message{Type: "now_playing", Track: &spotify.Track{Name: "Song A", Artist: "Artist One"}})

	for _, conn := range []*websocket.Conn{first, second} {
		msg := readMessage(t, conn)
		assert.Equal(t, "now_playing", msg.Type)
		require.NotNil(t, msg.Track)
		assert.Equal(t, "Song A", msg.Track.Name)
	}
}

func TestLateClientReceivesLastState(t *testing.T) {
	hub, wsURL := newTestHub(t)

	hub.Broadcast(&Message{Type: "now_playing", Track: &spotify.Track{Name: "Song B"}})

	conn := dial(t, wsURL)
	msg := readMessage(t, conn)
	assert.Equal(t, "now_playing", msg.Type)
	require.NotNil(t, msg.Track)
	assert.Equal(t, "Song B", msg.Track.Name)
}

func TestConnectDuringBroadcast(t *testing.T) {
	hub, wsURL := newTestHub(t)

	hub.Broadcast(&Message{Type: "now_playing", Track: &spotify.Track{Name: "Song A"}})

	// Keep broadcasts flowing while clients connect, so the replay write in
	// Add overlaps in-flight broadcast writes. Run with the race detector.
	stop := make(chan struct{})
	var broadcasting sync.WaitGroup
	broadcasting.Add(1)
	go func() {
		defer broadcasting.Done()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			hub.Broadcast(&Message{Type: "now_playing", Track: &spotify.Track{Name: "Song A", Progress: i}})
		}
	}()

	var conns []*websocket.Conn
	for i := 0; i < 25; i++ {
		conns = append(conns, dial(t, wsURL))
	}
	waitForClients(t, hub, len(conns))

	close(stop)
	broadcasting.Wait()

	// Every client got the replay or a broadcast as a well-formed frame.
	for _, conn := range conns {
		msg := readMessage(t, conn)
		assert.Equal(t, "now_playing", msg.Type)
		require.NotNil(t, msg.Track)
		assert.Equal(t, "Song A", msg.Track.Name)
	}
}

func TestPollerSkipsProbeWithoutClients(t *testing.T) {
	hub, _ := newTestHub(t)

	var probes atomic.Int64
	probe := func(ctx context.Context) (*spotify.Track, error) {
		probes.Add(1)
		return nil, nil
	}

	poller := NewPoller(hub, probe, 20*time.Millisecond, log.New(io.Discard, "", 0))
	poller.Start()
	time.Sleep(150 * time.Millisecond)
	poller.Stop()

	assert.Zero(t, probes.Load())
}

func TestPollerBroadcastsOnChange(t *testing.T) {
	hub, wsURL := newTestHub(t)

	tracks := make(chan *spotify.Track, 3)
	tracks <- &spotify.Track{Name: "Song A", Artist: "Artist One"}
	tracks <- &spotify.Track{Name: "Song A", Artist: "Artist One"}
	tracks <- &spotify.Track{Name: "Song B", Artist: "Artist Two"}

	probe := func(ctx context.Context) (*spotify.Track, error) {
		select {
		case track := <-tracks:
			return track, nil
		default:
			return &spotify.Track{Name: "Song B", Artist: "Artist Two"}, nil
		}
	}

	conn := dial(t, wsURL)
	waitForClients(t, hub, 1)

	poller := NewPoller(hub, probe, 20*time.Millisecond, log.New(io.Discard, "", 0))
	poller.Start()
	defer poller.Stop()

	first := readMessage(t, conn)
	require.NotNil(t, first.Track)
	assert.Equal(t, "Song A", first.Track.Name)

	// The repeated Song A probe must not produce a frame; the next one
	// arriving is the change to Song B.
	second := readMessage(t, conn)
	require.NotNil(t, second.Track)
	assert.Equal(t, "Song B", second.Track.Name)
}

func TestPollerStops(t *testing.T) {
	hub, _ := newTestHub(t)

	poller := NewPoller(hub, func(ctx context.Context) (*spotify.Track, error) {
		return nil, nil
	}, 20*time.Millisecond, log.New(io.Discard, "", 0))
	poller.Start()

	done := make(chan struct{})
	go func() {
		poller.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("poller did not stop")
	}
}
