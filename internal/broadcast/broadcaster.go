package broadcast

import (
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/teamkit/teamkit/internal/logging"
)

const (
	subscriberQueueSize = 64
	keepaliveInterval   = 30 * time.Second
)

// Metrics are the Broadcaster's prometheus instruments.
type Metrics struct {
	EventsBroadcast *prometheus.CounterVec
	QueueDrops      *prometheus.CounterVec
	ActiveSessions  prometheus.Gauge
}

// MustNewMetrics registers the Broadcaster's instruments on reg and
// panics on a duplicate-registration error.
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		EventsBroadcast: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "teamkit_broadcast_events_total",
			Help: "Events broadcast to session subscribers, by event type.",
		}, []string{"event_type"}),
		QueueDrops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "teamkit_broadcast_queue_drops_total",
			Help: "Events dropped because a subscriber's queue was full.",
		}, []string{"event_type"}),
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "teamkit_broadcast_active_sessions",
			Help: "Sessions with at least one active subscriber.",
		}),
	}
	reg.MustRegister(m.EventsBroadcast, m.QueueDrops, m.ActiveSessions)
	return m
}

type subscriber struct {
	ch chan Event
}

// Broadcaster fans session events out to any number of subscriber
// streams (typically one per open SSE connection).
type Broadcaster struct {
	log     *logging.ComponentLogger
	metrics *Metrics

	mu   sync.Mutex
	subs map[string]map[*subscriber]struct{}
}

// NewBroadcaster builds a Broadcaster. metrics may be nil to skip
// instrumentation (e.g. in unit tests that do not stand up a registry).
func NewBroadcaster(metrics *Metrics) *Broadcaster {
	return &Broadcaster{
		log:     logging.NewComponentLogger("Broadcaster"),
		metrics: metrics,
		subs:    make(map[string]map[*subscriber]struct{}),
	}
}

// Subscribe registers a new subscriber for session and returns the
// channel events will be delivered on, plus a func that unsubscribes;
// call it when done.
func (b *Broadcaster) Subscribe(session string) (<-chan Event, func()) {
	b.mu.Lock()
	set, ok := b.subs[session]
	if !ok {
		set = make(map[*subscriber]struct{})
		b.subs[session] = set
	}
	sub := &subscriber{ch: make(chan Event, subscriberQueueSize)}
	set[sub] = struct{}{}
	if b.metrics != nil {
		b.metrics.ActiveSessions.Set(float64(len(b.subs)))
	}
	b.mu.Unlock()

	unsubscribe := func() { b.unsubscribe(session, sub) }
	return sub.ch, unsubscribe
}

func (b *Broadcaster) unsubscribe(session string, sub *subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	set, ok := b.subs[session]
	if !ok {
		return
	}
	if _, present := set[sub]; present {
		delete(set, sub)
		close(sub.ch)
	}
	if len(set) == 0 {
		delete(b.subs, session)
	}
	if b.metrics != nil {
		b.metrics.ActiveSessions.Set(float64(len(b.subs)))
	}
}

// Broadcast offers event to every subscriber of session without
// blocking; a subscriber whose queue is full has the event dropped and
// a warning logged.
func (b *Broadcaster) Broadcast(session string, event Event) {
	b.mu.Lock()
	set := b.subs[session]
	snapshot := make([]*subscriber, 0, len(set))
	for sub := range set {
		snapshot = append(snapshot, sub)
	}
	b.mu.Unlock()

	if b.metrics != nil {
		b.metrics.EventsBroadcast.WithLabelValues(string(event.Type)).Inc()
	}

	for _, sub := range snapshot {
		select {
		case sub.ch <- event:
		default:
			b.log.Warn("dropping event: subscriber queue full", "session", session, "type", event.Type)
			if b.metrics != nil {
				b.metrics.QueueDrops.WithLabelValues(string(event.Type)).Inc()
			}
		}
	}
}

// Cleanup drops every subscriber of session, closing their channels.
func (b *Broadcaster) Cleanup(session string) {
	b.mu.Lock()
	set, ok := b.subs[session]
	if ok {
		for sub := range set {
			close(sub.ch)
		}
		delete(b.subs, session)
	}
	if b.metrics != nil {
		b.metrics.ActiveSessions.Set(float64(len(b.subs)))
	}
	b.mu.Unlock()
}

// Stream renders events from ch as Server-Sent-Events lines, emitting a
// keepalive comment if none arrives within keepaliveInterval, and
// stopping immediately after delivering a session_end event. write is
// called once per line (including the trailing blank line).
func Stream(ch <-chan Event, write func(line string) error) error {
	for {
		select {
		case event, ok := <-ch:
			if !ok {
				return nil
			}
			line, err := formatEvent(event)
			if err != nil {
				return err
			}
			if err := write(line); err != nil {
				return err
			}
			if event.Type == TypeSessionEnd {
				return nil
			}
		case <-time.After(keepaliveInterval):
			if err := write(fmt.Sprintf(": keepalive %d\n\n", time.Now().UTC().Unix())); err != nil {
				return err
			}
		}
	}
}
