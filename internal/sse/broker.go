// Package sse streams engine events to HTTP clients as Server-Sent Events.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/starford/lexicon/internal/models"
)

// Event types.
const (
	EventScanCompleted       = "scan.completed"
	EventReplacementRecorded = "replacement.recorded"
	EventDocumentUpdated     = "document.updated"
)

// Event is one message to broadcast.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type docChange struct {
	reason string
}

// Broker fans events out to connected clients.
//
// One goroutine owns the client set and the document.updated throttle
// timestamp; public methods talk to it over channels.
type Broker struct {
	docMin time.Duration
	clock  clockwork.Clock

	subscribeCh   chan chan []byte
	unsubscribeCh chan chan []byte
	publishCh     chan Event
	scanCh        chan models.ScanSummary
	docCh         chan docChange
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// BrokerOption configures a Broker.
type BrokerOption func(*Broker)

// WithClock sets the clock used for throttling.
func WithClock(c clockwork.Clock) BrokerOption {
	return func(b *Broker) { b.clock = c }
}

// NewBroker starts a broker that emits document.updated at most once per
// docThrottle.
func NewBroker(docThrottle time.Duration, opts ...BrokerOption) *Broker {
	if docThrottle <= 0 {
		docThrottle = 2 * time.Second
	}

	b := &Broker{
		docMin:        docThrottle,
		clock:         clockwork.NewRealClock(),
		subscribeCh:   make(chan chan []byte),
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan Event, 256),
		scanCh:        make(chan models.ScanSummary, 256),
		docCh:         make(chan docChange, 256),
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
	var lastDoc time.Time

	broadcast := func(event Event) {
		payload, err := json.Marshal(event.Data)
		if err != nil {
			return
		}
		msg := fmt.Sprintf("event: %s\ndata: %s\n\n", event.Type, payload)
		raw := []byte(msg)

		for ch := range clients {
			select {
			case ch <- raw:
			default:
				// slow client, drop
			}
		}
	}

	documentUpdated := func(reason string) {
		now := b.clock.Now()
		if now.Sub(lastDoc) < b.docMin {
			return
		}
		lastDoc = now
		broadcast(Event{Type: EventDocumentUpdated, Data: map[string]string{"reason": reason}})
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

		case sum := <-b.scanCh:
			broadcast(Event{Type: EventScanCompleted, Data: sum})
			for _, r := range sum.NewRecords {
				broadcast(Event{Type: EventReplacementRecorded, Data: r})
			}
			if sum.Modified > 0 {
				documentUpdated("scan")
			}

		case c := <-b.docCh:
			documentUpdated(c.reason)

		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

// Close gracefully stops broker loop and closes all client channels.
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

// PublishScan publishes scan.completed, one replacement.recorded per new
// record and, when text changed, a throttled document.updated.
func (b *Broker) PublishScan(sum models.ScanSummary) {
	if b.closed.Load() {
		return
	}
	select {
	case b.scanCh <- sum:
	case <-b.stopped:
	}
}

// PublishDocumentChange publishes a throttled document.updated.
func (b *Broker) PublishDocumentChange(reason string) {
	if b.closed.Load() {
		return
	}
	select {
	case b.docCh <- docChange{reason: reason}:
	case <-b.stopped:
	}
}

// ServeHTTP streams events to one client until it disconnects.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

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
