package sockline

import (
	"log/slog"
	"net/url"
	"sync"
	"sync/atomic"
)

const mailboxCapacity = 1024

// Client manages one logical full-duplex connection: lifecycle,
// heartbeats, reconnection, outbound backpressure, and send-rate
// limiting. Construct with NewClient; release with Stop.
type Client struct {
	options  Options
	logger   *slog.Logger
	clock    Clock
	strategy ReconnectDelayStrategy

	events  chan event
	done    chan struct{}
	stopped atomic.Bool
	stopOne sync.Once

	statusValue atomic.Int32

	lock             sync.Mutex
	lastErrValue     error
	stateListeners   map[int]func(StateChange)
	messageListeners map[int]func([]byte)
	nextListenerID   int

	metrics    *metrics
	supervisor *supervisor
	heartbeat  *heartbeatMonitor
	queue      *outboundQueue
	limiter    *rateLimiter

	// Event-loop-owned context. Mutated only in machine.go handlers.
	url               string
	status            Status
	socket            Socket
	gen               uint64
	lastErr           error
	reconnectAttempts int
	backoffDelay      int64 // nanoseconds of the pending retry delay

	connectTimer    Timer
	disconnectTimer Timer
	retryTimer      Timer
	stabilityTimer  Timer
	flushTimer      Timer
}

// NewClient returns a running client in the Disconnected state.
func NewClient(options ...Options) *Client {
	opts := DefaultOptions()
	if len(options) > 0 {
		opts = options[0]
	}
	opts = normalizeOptions(opts)

	client := &Client{
		options:          opts,
		logger:           opts.Logger.With("component", "sockline"),
		clock:            opts.Clock,
		strategy:         opts.Strategy,
		events:           make(chan event, mailboxCapacity),
		done:             make(chan struct{}),
		stateListeners:   make(map[int]func(StateChange)),
		messageListeners: make(map[int]func([]byte)),
		metrics:          newMetrics(),
		queue:            newOutboundQueue(opts.MaxQueueSize, opts.DropPolicy),
	}
	client.limiter = newRateLimiter(opts.RateLimit, opts.Clock)
	client.supervisor = newSupervisor(opts.Factory, client.logger, client.postEvent)
	client.heartbeat = newHeartbeatMonitor(opts.PingInterval, opts.PongTimeout, opts.Clock, client.postEvent)

	go client.loop()
	return client
}

// Connect asks the client to open a connection to target. It returns
// immediately; the outcome arrives through state listeners. Calling
// Connect while Connecting or Connected is a no-op.
func (client *Client) Connect(target string) error {
	if client == nil {
		return NewError(DisconnectedError, "nil client")
	}
	if target == "" {
		return NewError(InvalidURIError, "empty target address")
	}
	if _, err := url.Parse(target); err != nil {
		return NewError(InvalidURIError, err)
	}
	if !client.post(connectEvent{url: target}) {
		return NewError(DisconnectedError, "client is stopped")
	}
	return nil
}

// Disconnect requests a clean close. While BackingOff it cancels the
// pending retry instead. It returns immediately.
func (client *Client) Disconnect(reason ...string) {
	if client == nil {
		return
	}
	text := "client disconnect"
	if len(reason) > 0 && reason[0] != "" {
		text = reason[0]
	}
	client.post(disconnectEvent{reason: text})
}

// Send accepts one payload for transmission. Accepted payloads are
// transmitted immediately when Connected and admitted by the rate
// limiter, and queued otherwise; queue overflow applies the configured
// drop policy and is reported through metrics, not as an error.
func (client *Client) Send(payload []byte) error {
	if client == nil {
		return NewError(DisconnectedError, "nil client")
	}
	if !client.post(sendEvent{payload: payload}) {
		return NewError(DisconnectedError, "client is stopped")
	}
	return nil
}

// State returns the current connection status.
func (client *Client) State() Status {
	if client == nil {
		return StatusDisconnected
	}
	return Status(client.statusValue.Load())
}

// LastError returns the most recent classified error, or nil. It is
// non-nil exactly while the client is BackingOff or settled in
// Disconnected after a failure.
func (client *Client) LastError() error {
	if client == nil {
		return nil
	}
	client.lock.Lock()
	defer client.lock.Unlock()
	return client.lastErrValue
}

// Metrics returns a snapshot of the client's counters.
func (client *Client) Metrics() MetricsSnapshot {
	if client == nil {
		return MetricsSnapshot{}
	}
	return client.metrics.snapshot()
}

// AddStateListener registers a callback for state transitions and
// returns a function that removes it. Callbacks run on the event loop
// and must not block.
func (client *Client) AddStateListener(listener func(StateChange)) func() {
	if client == nil || listener == nil {
		return func() {}
	}
	client.lock.Lock()
	id := client.nextListenerID
	client.nextListenerID++
	client.stateListeners[id] = listener
	client.lock.Unlock()
	return func() {
		client.lock.Lock()
		delete(client.stateListeners, id)
		client.lock.Unlock()
	}
}

// AddMessageListener registers a callback for received payloads and
// returns a function that removes it. Callbacks run on the event loop
// and must not block.
func (client *Client) AddMessageListener(listener func(payload []byte)) func() {
	if client == nil || listener == nil {
		return func() {}
	}
	client.lock.Lock()
	id := client.nextListenerID
	client.nextListenerID++
	client.messageListeners[id] = listener
	client.lock.Unlock()
	return func() {
		client.lock.Lock()
		delete(client.messageListeners, id)
		client.lock.Unlock()
	}
}

// Stop tears the client down: a final force-close of any live socket,
// cancellation of all timers, and exit of the event loop. It blocks
// until teardown completes and is safe to call more than once.
func (client *Client) Stop() {
	if client == nil {
		return
	}
	client.stopOne.Do(func() {
		client.stopped.Store(true)
		done := make(chan struct{})
		select {
		case client.events <- stopEvent{done: done}:
			<-done
		case <-client.done:
		}
	})
}

// post enqueues an event from a public API call. It reports false once
// the client is stopped.
func (client *Client) post(ev event) bool {
	if client.stopped.Load() {
		return false
	}
	select {
	case client.events <- ev:
		return true
	case <-client.done:
		return false
	}
}

// postEvent is the fire-and-forget post used by timers and socket
// callbacks.
func (client *Client) postEvent(ev event) {
	select {
	case client.events <- ev:
	case <-client.done:
	}
}

func (client *Client) loop() {
	for ev := range client.events {
		switch ev := ev.(type) {
		case connectEvent:
			client.handleConnect(ev)
		case disconnectEvent:
			client.handleDisconnect(ev)
		case sendEvent:
			client.handleSend(ev)
		case socketOpenedEvent:
			client.handleSocketOpened(ev)
		case socketMessageEvent:
			client.handleSocketMessage(ev)
		case socketPongEvent:
			client.handleSocketPong(ev)
		case socketErrorEvent:
			client.handleSocketError(ev)
		case socketClosedEvent:
			client.handleSocketClosed(ev)
		case connectTimeoutEvent:
			client.handleConnectTimeout(ev)
		case disconnectTimeoutEvent:
			client.handleDisconnectTimeout(ev)
		case retryEvent:
			client.handleRetry(ev)
		case heartbeatPingEvent:
			client.handleHeartbeatPing(ev)
		case heartbeatTimeoutEvent:
			client.handleHeartbeatTimeout(ev)
		case flushResumeEvent:
			client.handleFlushResume(ev)
		case stabilityEvent:
			client.handleStability(ev)
		case inspectEvent:
			ev.fn()
		case stopEvent:
			client.handleStop(ev)
			return
		}
	}
}

// inspect runs fn on the event loop and waits for it, giving tests a
// race-free view of loop-owned state. It returns false once stopped.
func (client *Client) inspect(fn func()) bool {
	done := make(chan struct{})
	posted := client.post(inspectEvent{fn: func() {
		fn()
		close(done)
	}})
	if !posted {
		return false
	}
	select {
	case <-done:
		return true
	case <-client.done:
		return false
	}
}

// notifyState updates the public mirrors and invokes state listeners.
func (client *Client) notifyState(change StateChange) {
	client.statusValue.Store(int32(change.Current))
	client.lock.Lock()
	client.lastErrValue = client.lastErr
	listeners := make([]func(StateChange), 0, len(client.stateListeners))
	for _, listener := range client.stateListeners {
		listeners = append(listeners, listener)
	}
	client.lock.Unlock()

	for _, listener := range listeners {
		listener(change)
	}
}

func (client *Client) notifyMessage(payload []byte) {
	client.lock.Lock()
	listeners := make([]func([]byte), 0, len(client.messageListeners))
	for _, listener := range client.messageListeners {
		listeners = append(listeners, listener)
	}
	client.lock.Unlock()

	for _, listener := range listeners {
		listener(payload)
	}
}
