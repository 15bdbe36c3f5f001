package observability

import (
	"strconv"
	"sync"
)

// Metrics provides basic in-memory counters for the verification flow.
type Metrics struct {
	mu           sync.Mutex
	opened       map[string]int64 // by category
	decided      map[string]int64 // by category|outcome
	closed       int64
	flowErrors   map[string]int64 // by error code
	requestCount map[string]int64 // by path|method|status
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		opened:       make(map[string]int64),
		decided:      make(map[string]int64),
		flowErrors:   make(map[string]int64),
		requestCount: make(map[string]int64),
	}
}

// RecordOpened counts a ticket creation.
func (m *Metrics) RecordOpened(category string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.opened[category]++
}

// RecordDecided counts a terminal decision.
func (m *Metrics) RecordDecided(category, outcome string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.decided[category+"|"+outcome]++
}

// RecordClosed counts a teardown.
func (m *Metrics) RecordClosed() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed++
}

// RecordFlowError counts a rejected operation by error code.
func (m *Metrics) RecordFlowError(code string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.flowErrors[code]++
}

// RecordRequest increments counters for HTTP requests.
func (m *Metrics) RecordRequest(path, method string, status int) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + strconv.Itoa(status)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[key]++
}

// Snapshot returns a copy of all counters for the status endpoint.
func (m *Metrics) Snapshot() map[string]any {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return map[string]any{
		"tickets_opened":  copyCounters(m.opened),
		"tickets_decided": copyCounters(m.decided),
		"tickets_closed":  m.closed,
		"flow_errors":     copyCounters(m.flowErrors),
		"http_requests":   copyCounters(m.requestCount),
	}
}

func copyCounters(src map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
