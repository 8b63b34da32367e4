package monitoring

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Metrics holds application metrics
type Metrics struct {
	RequestCount        int64
	ErrorCount          int64
	FetchPageCount      int64
	FetchRowCount       int64
	StudyRunCount       int64
	AverageResponseTime int64 // in nanoseconds
	StartTime           time.Time

	// Detailed response times for percentiles
	ResponseTimes      []time.Duration
	ResponseTimesMutex sync.RWMutex

	// Status code tracking
	RequestCountByStatus map[int]int64
	StatusMutex          sync.RWMutex
}

// NewMetrics creates a new metrics instance
func NewMetrics() *Metrics {
	return &Metrics{
		StartTime:            time.Now(),
		ResponseTimes:        make([]time.Duration, 0, 1000),
		RequestCountByStatus: make(map[int]int64),
	}
}

// IncrementRequest increments the request count
func (m *Metrics) IncrementRequest() {
	atomic.AddInt64(&m.RequestCount, 1)
}

// IncrementError increments the error count
func (m *Metrics) IncrementError() {
	atomic.AddInt64(&m.ErrorCount, 1)
}

// RecordFetchPage records one fetched page and its row count
func (m *Metrics) RecordFetchPage(rows int) {
	atomic.AddInt64(&m.FetchPageCount, 1)
	atomic.AddInt64(&m.FetchRowCount, int64(rows))
}

// IncrementStudyRun increments the completed study run count
func (m *Metrics) IncrementStudyRun() {
	atomic.AddInt64(&m.StudyRunCount, 1)
}

// RecordResponseTime records response time for averaging and percentiles
func (m *Metrics) RecordResponseTime(duration time.Duration) {
	current := atomic.LoadInt64(&m.AverageResponseTime)
	newAverage := (current + duration.Nanoseconds()) / 2
	atomic.StoreInt64(&m.AverageResponseTime, newAverage)

	// Keep last 1000 samples for percentiles
	m.ResponseTimesMutex.Lock()
	m.ResponseTimes = append(m.ResponseTimes, duration)
	if len(m.ResponseTimes) > 1000 {
		m.ResponseTimes = m.ResponseTimes[1:]
	}
	m.ResponseTimesMutex.Unlock()
}

// RecordRequestByStatus records request count by HTTP status code
func (m *Metrics) RecordRequestByStatus(statusCode int) {
	m.StatusMutex.Lock()
	defer m.StatusMutex.Unlock()
	m.RequestCountByStatus[statusCode]++
}

// Percentile returns the given response-time percentile in milliseconds
func (m *Metrics) Percentile(p float64) float64 {
	m.ResponseTimesMutex.RLock()
	defer m.ResponseTimesMutex.RUnlock()

	if len(m.ResponseTimes) == 0 {
		return 0
	}

	sorted := make([]time.Duration, len(m.ResponseTimes))
	copy(sorted, m.ResponseTimes)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	idx := int(p / 100 * float64(len(sorted)-1))
	return float64(sorted[idx].Milliseconds())
}

// GetSummary returns a snapshot of current metrics
func (m *Metrics) GetSummary() map[string]interface{} {
	m.StatusMutex.RLock()
	byStatus := make(map[int]int64, len(m.RequestCountByStatus))
	for code, count := range m.RequestCountByStatus {
		byStatus[code] = count
	}
	m.StatusMutex.RUnlock()

	return map[string]interface{}{
		"request_count":            atomic.LoadInt64(&m.RequestCount),
		"error_count":              atomic.LoadInt64(&m.ErrorCount),
		"fetch_page_count":         atomic.LoadInt64(&m.FetchPageCount),
		"fetch_row_count":          atomic.LoadInt64(&m.FetchRowCount),
		"study_run_count":          atomic.LoadInt64(&m.StudyRunCount),
		"average_response_time_ms": float64(atomic.LoadInt64(&m.AverageResponseTime)) / 1e6,
		"p95_response_time_ms":     m.Percentile(95),
		"requests_by_status":       byStatus,
		"uptime_seconds":           time.Since(m.StartTime).Seconds(),
	}
}
