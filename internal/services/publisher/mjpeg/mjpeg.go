package mjpeg

import (
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"vigil-worker-go/internal/metrics"
)

const boundary = "frame"

// Options configure a Broadcaster
type Options struct {
	// Buffer is the per-subscriber queue length
	Buffer int
	// MaxDrops is how many consecutive full-buffer drops evict a subscriber
	MaxDrops int
	// Keepalive re-sends the latest frame when the source is quiet
	Keepalive time.Duration
	// Placeholder renders the first part when no frame has been published yet
	Placeholder func() []byte
}

type subscriber struct {
	ch    chan []byte
	drops int
}

// Broadcaster fans encoded frames out to live feed subscribers without ever
// blocking the publisher.
type Broadcaster struct {
	opts    Options
	metrics *metrics.Metrics

	mu     sync.Mutex
	subs   map[uint64]*subscriber
	nextID uint64
	latest []byte
}

func NewBroadcaster(opts Options, m *metrics.Metrics) *Broadcaster {
	if opts.Buffer <= 0 {
		opts.Buffer = 2
	}
	if opts.MaxDrops <= 0 {
		opts.MaxDrops = 50
	}
	if opts.Keepalive <= 0 {
		opts.Keepalive = 2 * time.Second
	}
	return &Broadcaster{
		opts:    opts,
		metrics: m,
		subs:    make(map[uint64]*subscriber),
	}
}

// Subscribe registers a consumer. The channel is closed on eviction or Close.
func (b *Broadcaster) Subscribe() (uint64, <-chan []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	sub := &subscriber{ch: make(chan []byte, b.opts.Buffer)}
	b.subs[b.nextID] = sub
	b.metrics.Subscribers.Add(1)
	return b.nextID, sub.ch
}

// Unsubscribe removes a consumer. Unknown ids are ignored.
func (b *Broadcaster) Unsubscribe(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.removeLocked(id)
}

func (b *Broadcaster) removeLocked(id uint64) {
	sub, ok := b.subs[id]
	if !ok {
		return
	}
	close(sub.ch)
	delete(b.subs, id)
	b.metrics.Subscribers.Add(-1)
}

// Publish queues a frame for every subscriber. A full queue drops its oldest
// frame; a subscriber that keeps its queue full is evicted.
func (b *Broadcaster) Publish(jpeg []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.latest = jpeg
	b.metrics.FramesPublished.Add(1)

	for id, sub := range b.subs {
		select {
		case sub.ch <- jpeg:
			sub.drops = 0
			continue
		default:
		}

		// drop oldest
		select {
		case <-sub.ch:
		default:
		}
		select {
		case sub.ch <- jpeg:
		default:
		}
		sub.drops++
		b.metrics.SubscriberDrops.Add(1)

		if sub.drops >= b.opts.MaxDrops {
			log.Warn().Uint64("subscriber", id).Int("drops", sub.drops).Msg("Evicting stalled stream subscriber")
			b.removeLocked(id)
			b.metrics.SubscriberEvicted.Add(1)
		}
	}
}

// Latest returns the most recently published frame
func (b *Broadcaster) Latest() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.latest
}

// SubscriberCount returns the number of live subscribers
func (b *Broadcaster) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Close disconnects every subscriber
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id := range b.subs {
		b.removeLocked(id)
	}
	log.Info().Msg("MJPEG broadcaster shut down")
}

// ServeHTTP streams multipart/x-mixed-replace JPEG parts until the client
// disconnects or the subscription ends.
func (b *Broadcaster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary="+boundary)
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	id, frames := b.Subscribe()
	defer b.Unsubscribe(id)

	writePart := func(jpeg []byte) bool {
		if _, err := io.WriteString(w, "--"+boundary+"\r\n"); err != nil {
			return false
		}
		if _, err := io.WriteString(w, "Content-Type: image/jpeg\r\n"); err != nil {
			return false
		}
		if _, err := io.WriteString(w, fmt.Sprintf("Content-Length: %d\r\n\r\n", len(jpeg))); err != nil {
			return false
		}
		if _, err := w.Write(jpeg); err != nil {
			return false
		}
		if _, err := io.WriteString(w, "\r\n"); err != nil {
			return false
		}
		flusher.Flush()
		return true
	}

	first := b.Latest()
	if len(first) == 0 && b.opts.Placeholder != nil {
		first = b.opts.Placeholder()
	}
	if len(first) > 0 {
		if !writePart(first) {
			return
		}
	}

	keepaliveTicker := time.NewTicker(b.opts.Keepalive)
	defer keepaliveTicker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case jpeg, ok := <-frames:
			if !ok {
				return
			}
			if !writePart(jpeg) {
				return
			}
			keepaliveTicker.Reset(b.opts.Keepalive)
		case <-keepaliveTicker.C:
			if buf := b.Latest(); len(buf) > 0 {
				if !writePart(buf) {
					return
				}
			}
		}
	}
}
