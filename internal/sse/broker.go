// Package sse streams playlist catalog changes to clients as Server-Sent Events.
//
// Every watcher change becomes a playlist.created, playlist.updated or
// playlist.deleted event carrying the catalog row of the playlist. A
// catalog.updated event with the catalog summary follows at most once per
// summary interval; a change inside the interval schedules one trailing
// summary so clients always see the final state of a burst.
package sse

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/starford/stk/internal/catalog"
)

// Event types on the stream.
const (
	TypeCatalogUpdated = "catalog.updated"
	typePlaylistPrefix = "playlist."
)

// Source resolves the catalog state attached to outgoing events.
type Source interface {
	GetPlaylist(path string) (*catalog.PlaylistRow, error)
	Summary() (catalog.Summary, error)
}

// Event is one message on the stream.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// PlaylistChange is the payload of the playlist.* events. Deleted playlists
// carry only kind and path.
type PlaylistChange struct {
	Kind       string     `json:"kind"`
	Path       string     `json:"path"`
	Format     string     `json:"format,omitempty"`
	EntryCount int        `json:"entry_count"`
	Checksum   string     `json:"checksum,omitempty"`
	UpdatedAt  *time.Time `json:"updated_at,omitempty"`
}

// Option configures a Broker.
type Option func(*Broker)

// WithSource attaches the catalog used to fill event payloads.
func WithSource(src Source) Option {
	return func(b *Broker) { b.source = src }
}

// WithSummaryInterval sets the minimum gap between catalog.updated events.
func WithSummaryInterval(d time.Duration) Option {
	return func(b *Broker) {
		if d > 0 {
			b.interval = d
		}
	}
}

// WithLogger sets the logger for catalog lookup failures.
func WithLogger(l *slog.Logger) Option {
	return func(b *Broker) { b.logger = l }
}

// Broker fans catalog events out to subscribed clients.
//
// A single goroutine owns the client set and the summary schedule; the
// exported methods talk to it over channels.
type Broker struct {
	source   Source
	interval time.Duration
	logger   *slog.Logger

	subscribeCh   chan chan []byte
	unsubscribeCh chan chan []byte
	publishCh     chan Event
	changeCh      chan PlaylistChange
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker starts a broker. Without WithSource, playlist events carry only
// kind and path and summaries are zero.
func NewBroker(opts ...Option) *Broker {
	b := &Broker{
		interval:      2 * time.Second,
		logger:        slog.Default(),
		subscribeCh:   make(chan chan []byte),
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan Event, 256),
		changeCh:      make(chan PlaylistChange, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}

	go b.run()
	return b
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]struct{})
	var (
		lastSummary time.Time
		trailing    <-chan time.Time
		timer       *time.Timer
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	broadcast := func(event Event) {
		msg, err := encode(event)
		if err != nil {
			b.logger.Warn("sse: encode event", slog.String("type", event.Type), slog.String("error", err.Error()))
			return
		}
		for ch := range clients {
			select {
			case ch <- msg:
			default:
				// Client buffer full; drop.
			}
		}
	}

	summarize := func() {
		lastSummary = time.Now()
		go func() {
			b.Publish(Event{Type: TypeCatalogUpdated, Data: b.summary()})
		}()
	}

	for {
		select {
		case <-b.stopCh:
			for ch := range clients {
				close(ch)
			}
			return

		case ch := <-b.subscribeCh:
			clients[ch] = struct{}{}

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case event := <-b.publishCh:
			broadcast(event)

		case change := <-b.changeCh:
			broadcast(Event{Type: typePlaylistPrefix + change.Kind, Data: change})
			if trailing != nil {
				continue
			}
			if wait := b.interval - time.Since(lastSummary); wait > 0 {
				timer = time.NewTimer(wait)
				trailing = timer.C
				continue
			}
			summarize()

		case <-trailing:
			trailing, timer = nil, nil
			summarize()

		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

func encode(event Event) ([]byte, error) {
	payload, err := json.Marshal(event.Data)
	if err != nil {
		return nil, err
	}
	return []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", event.Type, payload)), nil
}

// summary returns the current catalog summary, zero when it cannot be read.
func (b *Broker) summary() catalog.Summary {
	if b.source == nil {
		return catalog.Summary{}
	}
	s, err := b.source.Summary()
	if err != nil {
		b.logger.Warn("sse: catalog summary", slog.String("error", err.Error()))
		return catalog.Summary{}
	}
	return s
}

// Close stops the broker and closes all client channels.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe adds a new client and returns its channel.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, 64)
	if b.closed.Load() {
		close(ch)
		return ch
	}

	select {
	case b.subscribeCh <- ch:
	case <-b.stopped:
		close(ch)
	}
	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribeCh <- ch:
	case <-b.stopped:
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}

	resp := make(chan int, 1)
	select {
	case b.countReqCh <- resp:
	case <-b.stopped:
		return 0
	}

	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// Publish sends an event to all connected clients.
func (b *Broker) Publish(event Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- event:
	case <-b.stopped:
	}
}

// PlaylistChanged reports a watcher change; it matches catalog.EventCallback.
// Created and updated playlists are resolved against the catalog before the
// event is queued. Unknown kinds are dropped.
func (b *Broker) PlaylistChanged(kind, path string) {
	switch kind {
	case catalog.EventCreated, catalog.EventUpdated, catalog.EventDeleted:
	default:
		return
	}
	if b.closed.Load() {
		return
	}

	change := PlaylistChange{Kind: kind, Path: path}
	if kind != catalog.EventDeleted && b.source != nil {
		row, err := b.source.GetPlaylist(path)
		if err != nil {
			b.logger.Warn("sse: resolve playlist", slog.String("path", path), slog.String("error", err.Error()))
		} else {
			change.Format = row.Format
			change.EntryCount = row.EntryCount
			change.Checksum = row.Checksum
			updated := row.UpdatedAt
			change.UpdatedAt = &updated
		}
	}

	select {
	case b.changeCh <- change:
	case <-b.stopped:
	}
}

// ServeHTTP is the SSE endpoint handler (GET /api/events). A new client
// first receives the current catalog summary.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	if b.source != nil {
		if msg, err := encode(Event{Type: TypeCatalogUpdated, Data: b.summary()}); err == nil {
			_, _ = w.Write(msg)
		}
	}
	flusher.Flush()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
