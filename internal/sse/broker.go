// Package sse streams calendar changes to browsers as Server-Sent Events.
//
// Every frame carries an id. A client reconnecting with Last-Event-ID gets
// the frames it missed, as long as they are still in the replay buffer.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/starford/glamcal/internal/scheduling"
)

// EventCalendarUpdated tells views to refetch the month grid. It follows
// bursts of changes at most once per throttle interval, and always after the
// last change of a burst.
const EventCalendarUpdated = "calendar.updated"

// DefaultKeepAlive is the interval between comment frames on idle streams.
const DefaultKeepAlive = 25 * time.Second

// ReplaySize is the number of recent frames kept for reconnecting clients.
const ReplaySize = 128

const (
	retryMillis  = 3000 // reconnect delay suggested to EventSource clients
	clientBuffer = 64
)

type frame struct {
	id  uint64
	raw []byte
}

type subscription struct {
	ch     chan []byte
	lastID uint64
}

// Broker fans scheduling events out to SSE clients.
//
// A single goroutine owns the client set, the replay buffer and the
// throttle state; the exported methods talk to it over channels.
type Broker struct {
	calendarMin time.Duration
	keepAlive   time.Duration

	subscribeCh   chan subscription
	unsubscribeCh chan chan []byte
	changeCh      chan scheduling.Event
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker starts a broker that sends calendar.updated at most once per
// calendarThrottle.
func NewBroker(calendarThrottle time.Duration) *Broker {
	if calendarThrottle <= 0 {
		calendarThrottle = 2 * time.Second
	}

	b := &Broker{
		calendarMin:   calendarThrottle,
		keepAlive:     DefaultKeepAlive,
		subscribeCh:   make(chan subscription),
		unsubscribeCh: make(chan chan []byte),
		changeCh:      make(chan scheduling.Event, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}

	go b.run()
	return b
}

// SetKeepAlive overrides DefaultKeepAlive for streams opened afterwards.
func (b *Broker) SetKeepAlive(d time.Duration) { b.keepAlive = d }

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]struct{})
	var (
		seq          uint64
		replay       []frame
		lastCalendar time.Time
		trailing     *time.Timer
		trailingC    <-chan time.Time
	)

	send := func(ch chan []byte, raw []byte) {
		select {
		case ch <- raw:
		default:
			// Slow client; it can catch up through Last-Event-ID.
		}
	}

	broadcast := func(kind string, data any) {
		payload, err := json.Marshal(data)
		if err != nil {
			return
		}
		seq++
		raw := []byte(fmt.Sprintf("id: %d\nevent: %s\ndata: %s\n\n", seq, kind, payload))
		replay = append(replay, frame{id: seq, raw: raw})
		if len(replay) > ReplaySize {
			replay = replay[len(replay)-ReplaySize:]
		}
		for ch := range clients {
			send(ch, raw)
		}
	}

	calendar := func(now time.Time) {
		lastCalendar = now
		broadcast(EventCalendarUpdated, struct{}{})
	}

	for {
		select {
		case <-b.stopCh:
			if trailing != nil {
				trailing.Stop()
			}
			for ch := range clients {
				close(ch)
			}
			return

		case sub := <-b.subscribeCh:
			clients[sub.ch] = struct{}{}
			if sub.lastID == 0 {
				continue
			}
			for _, f := range replay {
				if f.id > sub.lastID {
					send(sub.ch, f.raw)
				}
			}

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case change := <-b.changeCh:
			broadcast(change.Kind, change)
			if change.Kind == scheduling.EventSelectionChanged {
				continue
			}
			now := time.Now()
			if wait := b.calendarMin - now.Sub(lastCalendar); wait <= 0 {
				calendar(now)
			} else if trailingC == nil {
				trailing = time.NewTimer(wait)
				trailingC = trailing.C
			}

		case now := <-trailingC:
			trailing, trailingC = nil, nil
			calendar(now)

		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

// Close stops the broker and closes every client channel.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe registers a client. Frames newer than lastID still in the replay
// buffer are queued first; lastID 0 means live frames only.
func (b *Broker) Subscribe(lastID uint64) chan []byte {
	ch := make(chan []byte, clientBuffer)
	if b.closed.Load() {
		close(ch)
		return ch
	}

	select {
	case b.subscribeCh <- subscription{ch: ch, lastID: lastID}:
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

// PublishChange broadcasts a scheduling change. Every change except a
// selection change also schedules a calendar.updated event.
func (b *Broker) PublishChange(change scheduling.Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.changeCh <- change:
	case <-b.stopped:
	}
}

// Listener adapts the broker to scheduling.WithListener.
func (b *Broker) Listener() scheduling.Listener {
	return b.PublishChange
}

// ServeHTTP is the SSE endpoint handler (GET /api/events).
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	lastID, _ := strconv.ParseUint(r.Header.Get("Last-Event-ID"), 10, 64)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "retry: %d\n\n", retryMillis)
	flusher.Flush()

	ch := b.Subscribe(lastID)
	defer b.Unsubscribe(ch)

	ping := time.NewTicker(b.keepAlive)
	defer ping.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ping.C:
			_, _ = w.Write([]byte(": keepalive\n\n"))
			flusher.Flush()
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
