package eventlog

import (
	"sync"

	"github.com/DE-labtory/cipherbatch"
	"github.com/DE-labtory/cipherbatch/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const SubscriberQueueSize = 64

// Archive persists events outside of process memory.
type Archive interface {
	Put(evt cipherbatch.Event) error
	// Range calls fn for every event with Seq >= from, in order, until fn
	// returns false.
	Range(from uint64, fn func(cipherbatch.Event) bool) error
	LastSeq() (uint64, error)
}

type SubscriberId int

type subscriber struct {
	ch chan cipherbatch.Event
}

type logMetrics struct {
	appended      *prometheus.CounterVec
	dropped       prometheus.Counter
	archiveErrors prometheus.Counter
	subscribers   prometheus.Gauge
}

func newLogMetrics(promRegistry prometheus.Registerer) *logMetrics {
	promautoFactory := promauto.With(promRegistry)
	return &logMetrics{
		appended: promautoFactory.NewCounterVec(prometheus.CounterOpts{
			Name: "cipherbatch_eventlog_appended_total",
			Help: "appended events by type",
		}, []string{"type"}),
		dropped: promautoFactory.NewCounter(prometheus.CounterOpts{
			Name: "cipherbatch_eventlog_dropped_deliveries_total",
			Help: "events not delivered to a subscriber because its queue was full",
		}),
		archiveErrors: promautoFactory.NewCounter(prometheus.CounterOpts{
			Name: "cipherbatch_eventlog_archive_errors_total",
			Help: "events which could not be written to the archive",
		}),
		subscribers: promautoFactory.NewGauge(prometheus.GaugeOpts{
			Name: "cipherbatch_eventlog_subscribers",
			Help: "current number of subscribers",
		}),
	}
}

// Log is an append-only, ordered event log. Without an archive events are
// kept in memory; with one, the archive is the source for Since. Events the
// archive refused stay in events until a later flush succeeds, so the
// archive always holds a gapless prefix and events the rest.
type Log struct {
	mu          sync.RWMutex
	events      []cipherbatch.Event
	nextSeq     uint64
	archive     Archive
	subscribers map[SubscriberId]*subscriber
	lastSubId   SubscriberId
	metrics     *logMetrics
}

// New continues the sequence of archive when it is not nil.
func New(archive Archive, promRegistry prometheus.Registerer) (*Log, error) {
	l := &Log{
		events:      make([]cipherbatch.Event, 0),
		nextSeq:     1,
		archive:     archive,
		subscribers: make(map[SubscriberId]*subscriber),
		metrics:     newLogMetrics(promRegistry),
	}
	if archive != nil {
		last, err := archive.LastSeq()
		if err != nil {
			return nil, err
		}
		l.nextSeq = last + 1
	}
	return l, nil
}

func (l *Log) Append(eventType cipherbatch.EventType, data interface{}) cipherbatch.Event {
	l.mu.Lock()
	defer l.mu.Unlock()

	evt := cipherbatch.NewEvent(eventType, data)
	evt.Seq = l.nextSeq
	l.nextSeq++

	l.events = append(l.events, evt)
	if l.archive != nil {
		l.flush()
	}
	l.metrics.appended.WithLabelValues(string(eventType)).Inc()

	// delivery never blocks the ledger; a lagging subscriber catches up
	// with Since
	for _, sub := range l.subscribers {
		select {
		case sub.ch <- evt:
		default:
			l.metrics.dropped.Inc()
		}
	}
	return evt
}

// flush moves events to the archive in order and stops at the first
// failure.
func (l *Log) flush() {
	for len(l.events) > 0 {
		evt := l.events[0]
		if err := l.archive.Put(evt); err != nil {
			l.metrics.archiveErrors.Inc()
			log.Error("msg", "failed to archive event", "seq", evt.Seq, "type", evt.Type, "pending", len(l.events), "err", err)
			return
		}
		l.events[0] = cipherbatch.Event{}
		l.events = l.events[1:]
	}
}

// Unarchived returns the number of events waiting for the archive.
func (l *Log) Unarchived() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.archive == nil {
		return 0
	}
	return len(l.events)
}

// Since returns every event with Seq > seq.
func (l *Log) Since(seq uint64) ([]cipherbatch.Event, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make([]cipherbatch.Event, 0)
	if l.archive != nil {
		err := l.archive.Range(seq+1, func(evt cipherbatch.Event) bool {
			result = append(result, evt)
			return true
		})
		if err != nil {
			return nil, err
		}
	}

	for _, evt := range l.events {
		if evt.Seq > seq {
			result = append(result, evt)
		}
	}
	return result, nil
}

func (l *Log) LastSeq() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.nextSeq - 1
}

// Subscribe returns a channel receiving every event appended from now on.
func (l *Log) Subscribe() (SubscriberId, <-chan cipherbatch.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.lastSubId++
	sub := &subscriber{ch: make(chan cipherbatch.Event, SubscriberQueueSize)}
	l.subscribers[l.lastSubId] = sub
	l.metrics.subscribers.Inc()
	return l.lastSubId, sub.ch
}

func (l *Log) Unsubscribe(id SubscriberId) {
	l.mu.Lock()
	defer l.mu.Unlock()

	sub, ok := l.subscribers[id]
	if !ok {
		return
	}
	delete(l.subscribers, id)
	close(sub.ch)
	l.metrics.subscribers.Dec()
}

// Close unsubscribes everyone and makes a last attempt to archive pending
// events.
func (l *Log) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()

	for id, sub := range l.subscribers {
		delete(l.subscribers, id)
		close(sub.ch)
		l.metrics.subscribers.Dec()
	}
	if l.archive != nil {
		l.flush()
		if len(l.events) > 0 {
			log.Error("msg", "events lost on close", "from", l.events[0].Seq, "count", len(l.events))
		}
	}
}
