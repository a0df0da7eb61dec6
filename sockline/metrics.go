package sockline

import (
	"sync"
	"time"
)

const (
	errorHistoryLimit = 32
	rttSampleLimit    = 32
)

// ErrorRecord is one entry of the bounded rolling error history.
type ErrorRecord struct {
	Time time.Time
	Err  error
}

// MetricsSnapshot is a point-in-time copy of the client's counters.
type MetricsSnapshot struct {
	MessagesSent      uint64
	MessagesReceived  uint64
	BytesSent         uint64
	BytesReceived     uint64
	MessagesDropped   uint64
	QueueDepth        int
	ReconnectAttempts int
	Errors            []ErrorRecord
	HeartbeatRTTs     []time.Duration
}

// metrics holds reportable state. The event loop is the sole writer;
// the lock exists so Metrics() can read without crossing the loop.
type metrics struct {
	lock              sync.Mutex
	messagesSent      uint64
	messagesReceived  uint64
	bytesSent         uint64
	bytesReceived     uint64
	messagesDropped   uint64
	queueDepth        int
	reconnectAttempts int
	errorHistory      []ErrorRecord
	rttSamples        []time.Duration
}

func newMetrics() *metrics {
	return &metrics{}
}

func (m *metrics) recordSent(bytes int) {
	m.lock.Lock()
	m.messagesSent++
	m.bytesSent += uint64(bytes)
	m.lock.Unlock()
}

func (m *metrics) recordReceived(bytes int) {
	m.lock.Lock()
	m.messagesReceived++
	m.bytesReceived += uint64(bytes)
	m.lock.Unlock()
}

func (m *metrics) recordDropped(total uint64) {
	m.lock.Lock()
	m.messagesDropped = total
	m.lock.Unlock()
}

func (m *metrics) recordQueueDepth(depth int) {
	m.lock.Lock()
	m.queueDepth = depth
	m.lock.Unlock()
}

func (m *metrics) recordAttempts(attempts int) {
	m.lock.Lock()
	m.reconnectAttempts = attempts
	m.lock.Unlock()
}

func (m *metrics) recordError(at time.Time, err error) {
	if err == nil {
		return
	}
	m.lock.Lock()
	m.errorHistory = append(m.errorHistory, ErrorRecord{Time: at, Err: err})
	if len(m.errorHistory) > errorHistoryLimit {
		m.errorHistory = m.errorHistory[len(m.errorHistory)-errorHistoryLimit:]
	}
	m.lock.Unlock()
}

func (m *metrics) recordRTT(sample time.Duration) {
	m.lock.Lock()
	m.rttSamples = append(m.rttSamples, sample)
	if len(m.rttSamples) > rttSampleLimit {
		m.rttSamples = m.rttSamples[len(m.rttSamples)-rttSampleLimit:]
	}
	m.lock.Unlock()
}

func (m *metrics) snapshot() MetricsSnapshot {
	m.lock.Lock()
	defer m.lock.Unlock()
	return MetricsSnapshot{
		MessagesSent:      m.messagesSent,
		MessagesReceived:  m.messagesReceived,
		BytesSent:         m.bytesSent,
		BytesReceived:     m.bytesReceived,
		MessagesDropped:   m.messagesDropped,
		QueueDepth:        m.queueDepth,
		ReconnectAttempts: m.reconnectAttempts,
		Errors:            append([]ErrorRecord(nil), m.errorHistory...),
		HeartbeatRTTs:     append([]time.Duration(nil), m.rttSamples...),
	}
}
