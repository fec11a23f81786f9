package observability

import (
	"sort"
	"strconv"
	"sync"
	"time"
)

// Metrics provides basic in-memory counters.
type Metrics struct {
	mu            sync.Mutex
	requestCount  map[string]int64
	requestMillis map[string]int64
	errorCount    map[string]int64
	notifications map[string]*NotificationCounter
	events        map[string]int64
}

// NotificationCounter tallies delivery outcomes for one scenario.
type NotificationCounter struct {
	Sent   int64 `json:"sent"`
	Failed int64 `json:"failed"`
}

// RouteStat is one method/path/status bucket.
type RouteStat struct {
	Key       string  `json:"key"`
	Count     int64   `json:"count"`
	AvgMillis float64 `json:"avg_ms"`
}

// MetricsSnapshot is a point-in-time copy of every counter.
type MetricsSnapshot struct {
	Requests      []RouteStat                    `json:"requests"`
	Errors        map[string]int64               `json:"errors"`
	Notifications map[string]NotificationCounter `json:"notifications"`
	Events        map[string]int64               `json:"events"`
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requestCount:  make(map[string]int64),
		requestMillis: make(map[string]int64),
		errorCount:    make(map[string]int64),
		notifications: make(map[string]*NotificationCounter),
		events:        make(map[string]int64),
	}
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := pathKey(path, method, status)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[key]++
	m.requestMillis[key] += duration.Milliseconds()
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + code
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount[key]++
}

// RecordNotification counts one delivery attempt for scenario.
func (m *Metrics) RecordNotification(scenario string, ok bool) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	counter, exists := m.notifications[scenario]
	if !exists {
		counter = &NotificationCounter{}
		m.notifications[scenario] = counter
	}
	if ok {
		counter.Sent++
	} else {
		counter.Failed++
	}
}

// RecordEvent counts one published domain event.
func (m *Metrics) RecordEvent(eventType string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[eventType]++
}

// Snapshot copies the current counters.
func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{
		Requests:      []RouteStat{},
		Errors:        map[string]int64{},
		Notifications: map[string]NotificationCounter{},
		Events:        map[string]int64{},
	}
	if m == nil {
		return snap
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for key, count := range m.requestCount {
		stat := RouteStat{Key: key, Count: count}
		if count > 0 {
			stat.AvgMillis = float64(m.requestMillis[key]) / float64(count)
		}
		snap.Requests = append(snap.Requests, stat)
	}
	sort.Slice(snap.Requests, func(i, j int) bool {
		return snap.Requests[i].Key < snap.Requests[j].Key
	})
	for key, count := range m.errorCount {
		snap.Errors[key] = count
	}
	for scenario, counter := range m.notifications {
		snap.Notifications[scenario] = *counter
	}
	for eventType, count := range m.events {
		snap.Events[eventType] = count
	}
	return snap
}

func pathKey(path, method string, status int) string {
	return path + "|" + method + "|" + strconv.Itoa(status)
}
