package sockline

// event is the sealed set of inputs to the state machine. Everything
// that can change client state, whether a public API call, a socket
// callback, or a timer, arrives as one of these on the mailbox.
type event interface {
	isEvent()
}

// connectEvent asks the machine to open a connection. retry marks a
// backoff-driven attempt, which must not reset the attempt counter.
type connectEvent struct {
	url   string
	retry bool
}

// disconnectEvent asks for a clean close, or cancels a pending retry.
type disconnectEvent struct {
	reason string
}

// sendEvent carries one outbound payload into the send path.
type sendEvent struct {
	payload []byte
}

// socketOpenedEvent reports a successful factory open.
type socketOpenedEvent struct {
	gen    uint64
	socket Socket
}

// socketMessageEvent reports one received payload.
type socketMessageEvent struct {
	gen     uint64
	payload []byte
}

// socketPongEvent reports a heartbeat reply.
type socketPongEvent struct {
	gen uint64
}

// socketErrorEvent reports a socket-level failure.
type socketErrorEvent struct {
	gen uint64
	err error
}

// socketClosedEvent reports the connection is gone, with the peer's
// close code when one was received.
type socketClosedEvent struct {
	gen    uint64
	code   int
	reason string
}

// connectTimeoutEvent fires when an open outlives ConnectTimeout.
type connectTimeoutEvent struct {
	gen uint64
}

// disconnectTimeoutEvent fires when a close handshake outlives
// DisconnectTimeout.
type disconnectTimeoutEvent struct {
	gen uint64
}

// retryEvent fires when the backoff delay elapses.
type retryEvent struct {
	gen uint64
}

// heartbeatPingEvent asks the machine to write a liveness probe.
type heartbeatPingEvent struct {
	gen uint64
}

// heartbeatTimeoutEvent fires when a probe goes unanswered.
type heartbeatTimeoutEvent struct {
	gen uint64
}

// flushResumeEvent resumes a rate-limit-deferred queue drain.
type flushResumeEvent struct {
	gen uint64
}

// stabilityEvent fires once a connection has stayed up for the
// stability window, resetting the attempt budget.
type stabilityEvent struct {
	gen uint64
}

// inspectEvent runs fn on the event loop; used to read loop-owned
// state without races.
type inspectEvent struct {
	fn func()
}

// stopEvent tears the client down and exits the loop.
type stopEvent struct {
	done chan struct{}
}

func (connectEvent) isEvent()           {}
func (disconnectEvent) isEvent()        {}
func (sendEvent) isEvent()              {}
func (socketOpenedEvent) isEvent()      {}
func (socketMessageEvent) isEvent()     {}
func (socketPongEvent) isEvent()        {}
func (socketErrorEvent) isEvent()       {}
func (socketClosedEvent) isEvent()      {}
func (connectTimeoutEvent) isEvent()    {}
func (disconnectTimeoutEvent) isEvent() {}
func (retryEvent) isEvent()             {}
func (heartbeatPingEvent) isEvent()     {}
func (heartbeatTimeoutEvent) isEvent()  {}
func (flushResumeEvent) isEvent()       {}
func (stabilityEvent) isEvent()         {}
func (inspectEvent) isEvent()           {}
func (stopEvent) isEvent()              {}
