package stream

import (
	"context"
	"log"
	"time"

	"github.com/minhng/spotify-proxy-go/internal/spotify"
)

// ProbeFunc fetches the currently playing track. A nil track means
// nothing is playing.
type ProbeFunc func(ctx context.Context) (*spotify.Track, error)

// Poller periodically probes playback state and broadcasts changes
// through the hub. It skips the probe entirely while no clients are
// connected.
type Poller struct {
	hub      *Hub
	probe    ProbeFunc
	interval time.Duration
	logger   *log.Logger

	stop chan struct{}
	done chan struct{}
}

// NewPoller creates a Poller.
func NewPoller(hub *Hub, probe ProbeFunc, interval time.Duration, logger *log.Logger) *Poller {
	return &Poller{
		hub:      hub,
		probe:    probe,
		interval: interval,
		logger:   logger,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start runs the poll loop until Stop is called.
func (p *Poller) Start() {
	go p.run()
	p.logger.Printf("Now-playing poller started (interval %s)", p.interval)
}

func (p *Poller) run() {
	defer close(p.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	var lastKey string
	first := true

	for {
		select {
		case <-p.stop:
			return
		case <-ticker.C:
			if p.hub.ClientCount() == 0 {
				continue
			}

			ctx, cancel := context.WithTimeout(context.Background(), p.interval)
			track, err := p.probe(ctx)
			cancel()
			if err != nil {
				p.logger.Printf("Now-playing probe failed: %v", err)
				continue
			}

			key := trackKey(track)
			if !first && key == lastKey {
				continue
			}
			first = false
			lastKey = key

			p.hub.Broadcast(&Message{Type: "now_playing", Track: track})
		}
	}
}

// Stop halts the poll loop and waits for it to exit.
func (p *Poller) Stop() {
	close(p.stop)
	<-p.done
}

func trackKey(track *spotify.Track) string {
	if track == nil {
		return ""
	}
	return track.Name + "\x00" + track.Artist
}
