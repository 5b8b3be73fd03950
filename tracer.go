package cipherbatch

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/DE-labtory/iLogger"
)

// Tracer collects protocol-integrity failures so they can be alerted on
// separately from routine user errors.
type Tracer interface {
	Log(keyvals ...string)
	Trace()
}

type Alert struct {
	At    time.Time
	Trace string
}

// MemCacheTracer keeps the most recent alerts in memory. Older alerts are
// dropped once limit is reached.
type MemCacheTracer struct {
	lock   sync.RWMutex
	limit  int
	alerts []Alert
}

func NewMemCacheTracer(limit int) *MemCacheTracer {
	return &MemCacheTracer{
		lock:   sync.RWMutex{},
		limit:  limit,
		alerts: make([]Alert, 0),
	}
}

func (t *MemCacheTracer) Log(keyvals ...string) {
	t.lock.Lock()
	defer t.lock.Unlock()
	if len(keyvals) == 0 {
		return
	}
	if len(keyvals)%2 == 1 {
		keyvals = append(keyvals, "")
	}

	kvs := make([]string, 0, len(keyvals)/2)
	for i := 0; i < len(keyvals); i += 2 {
		k, v := keyvals[i], keyvals[i+1]
		kvs = append(kvs, fmt.Sprintf("%s=%s", k, v))
	}
	t.alerts = append(t.alerts, Alert{
		At:    time.Now(),
		Trace: strings.Join(kvs, " "),
	})
	if t.limit > 0 && len(t.alerts) > t.limit {
		t.alerts = t.alerts[len(t.alerts)-t.limit:]
	}
}

// Trace dumps every cached alert through iLogger and clears the cache.
func (t *MemCacheTracer) Trace() {
	t.lock.Lock()
	defer t.lock.Unlock()

	for _, alert := range t.alerts {
		iLogger.Errorf(nil, "[integrity] %s at=%s", alert.Trace, alert.At.Format(time.RFC3339))
	}
	t.alerts = make([]Alert, 0)
}

func (t *MemCacheTracer) Alerts() []Alert {
	t.lock.RLock()
	defer t.lock.RUnlock()

	alerts := make([]Alert, len(t.alerts))
	copy(alerts, t.alerts)
	return alerts
}
