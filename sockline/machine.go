package sockline

// machine.go holds the state transitions. Every handler runs on the
// event loop; loop-owned fields are mutated nowhere else. Events from
// sockets and timers carry the generation they were armed under, and a
// handler ignores any event whose generation is stale.

func (client *Client) handleConnect(ev connectEvent) {
	switch client.status {
	case StatusConnecting, StatusConnected:
		return
	case StatusDisconnecting:
		client.logger.Debug("connect ignored during disconnect")
		return
	case StatusBackingOff:
		client.cancelTimer(&client.retryTimer)
	}

	if ev.url != "" {
		client.url = ev.url
	}
	if !ev.retry {
		client.resetAttempts()
	}

	client.gen++
	gen := client.gen
	client.lastErr = nil
	client.supervisor.open(client.url, gen)
	client.connectTimer = client.clock.AfterFunc(client.options.ConnectTimeout, func() {
		client.postEvent(connectTimeoutEvent{gen: gen})
	})
	client.setStatus(StatusConnecting, nil)
	client.logger.Info("connecting", "url", client.url, "attempt", client.reconnectAttempts)
}

func (client *Client) handleSocketOpened(ev socketOpenedEvent) {
	if ev.gen != client.gen || client.status != StatusConnecting {
		// Stale open from an abandoned attempt. There is never more
		// than one live socket.
		ev.socket.Terminate()
		return
	}

	client.cancelTimer(&client.connectTimer)
	client.socket = ev.socket
	client.lastErr = nil

	if client.options.StabilityWindow > 0 {
		gen := ev.gen
		client.stabilityTimer = client.clock.AfterFunc(client.options.StabilityWindow, func() {
			client.postEvent(stabilityEvent{gen: gen})
		})
	} else {
		client.resetAttempts()
	}
	client.heartbeat.Start(ev.gen)

	client.setStatus(StatusConnected, nil)
	client.logger.Info("connected", "url", client.url)
	client.startFlush()
}

func (client *Client) handleDisconnect(ev disconnectEvent) {
	switch client.status {
	case StatusConnected:
		gen := client.gen
		client.heartbeat.Stop()
		client.cancelTimer(&client.stabilityTimer)
		client.stopFlush()
		client.lastErr = nil
		client.supervisor.close(client.socket, ev.reason)
		client.disconnectTimer = client.clock.AfterFunc(client.options.DisconnectTimeout, func() {
			client.postEvent(disconnectTimeoutEvent{gen: gen})
		})
		client.setStatus(StatusDisconnecting, nil)
		client.logger.Info("disconnecting", "reason", ev.reason)

	case StatusConnecting:
		// Abandon the in-flight open. The dial outcome arrives with a
		// stale generation and is discarded.
		client.cancelTimer(&client.connectTimer)
		client.gen++
		client.lastErr = nil
		client.setStatus(StatusDisconnected, nil)
		client.logger.Info("connect abandoned", "reason", ev.reason)

	case StatusBackingOff:
		client.cancelTimer(&client.retryTimer)
		client.lastErr = nil
		client.setStatus(StatusDisconnected, nil)
		client.logger.Info("retry cancelled", "reason", ev.reason)
	}
}

func (client *Client) handleSocketClosed(ev socketClosedEvent) {
	if ev.gen != client.gen {
		return
	}

	switch client.status {
	case StatusDisconnecting:
		client.cancelTimer(&client.disconnectTimer)
		client.gen++
		client.socket = nil
		client.lastErr = nil
		client.setStatus(StatusDisconnected, nil)
		client.logger.Info("disconnected")

	case StatusConnected:
		client.teardownSocket()
		client.failTo(closeCodeError(ev.code, ev.reason), classifyCloseCode(ev.code))

	case StatusConnecting:
		client.cancelTimer(&client.connectTimer)
		client.gen++
		client.failTo(closeCodeError(ev.code, ev.reason), classifyCloseCode(ev.code))
	}
}

func (client *Client) handleSocketError(ev socketErrorEvent) {
	if ev.gen != client.gen {
		return
	}

	switch client.status {
	case StatusConnecting:
		client.cancelTimer(&client.connectTimer)
		client.gen++
		client.failTo(ev.err, classifyError(ev.err))

	case StatusConnected:
		client.teardownSocket()
		client.failTo(ev.err, classifyError(ev.err))

	case StatusDisconnecting:
		// The close handshake died under us. The connection is gone
		// either way; settle cleanly.
		client.cancelTimer(&client.disconnectTimer)
		client.gen++
		if client.socket != nil {
			client.supervisor.terminate(client.socket)
			client.socket = nil
		}
		client.lastErr = nil
		client.setStatus(StatusDisconnected, nil)
		client.logger.Info("disconnected", "closeError", ev.err)
	}
}

func (client *Client) handleSocketMessage(ev socketMessageEvent) {
	if ev.gen != client.gen {
		return
	}
	client.metrics.recordReceived(len(ev.payload))
	client.notifyMessage(ev.payload)
}

func (client *Client) handleSocketPong(ev socketPongEvent) {
	if ev.gen != client.gen {
		return
	}
	if rtt, ok := client.heartbeat.PongReceived(client.clock.Now()); ok {
		client.metrics.recordRTT(rtt)
	}
}

func (client *Client) handleConnectTimeout(ev connectTimeoutEvent) {
	if ev.gen != client.gen || client.status != StatusConnecting {
		return
	}
	// A socket the dial still produces arrives stale and is terminated.
	client.gen++
	client.failTo(NewError(TimedOutError, "connect: no connection within timeout"), severityTransient)
}

func (client *Client) handleDisconnectTimeout(ev disconnectTimeoutEvent) {
	if ev.gen != client.gen || client.status != StatusDisconnecting {
		return
	}
	err := NewError(TimedOutError, "disconnect: close handshake timed out")
	client.metrics.recordError(client.clock.Now(), err)
	client.gen++
	if client.socket != nil {
		client.supervisor.terminate(client.socket)
		client.socket = nil
	}
	client.lastErr = err
	client.setStatus(StatusDisconnected, err)
	client.logger.Warn("disconnect timed out, socket terminated")
}

func (client *Client) handleRetry(ev retryEvent) {
	if ev.gen != client.gen || client.status != StatusBackingOff {
		return
	}
	client.retryTimer = nil
	client.handleConnect(connectEvent{retry: true})
}

func (client *Client) handleHeartbeatPing(ev heartbeatPingEvent) {
	if ev.gen != client.gen || client.status != StatusConnected {
		return
	}
	if err := client.socket.Ping(); err != nil {
		// The read pump surfaces the failure; the pong deadline below
		// covers the case where it does not.
		client.logger.Debug("ping write failed", "error", err)
	}
	client.heartbeat.PingSent(ev.gen, client.clock.Now())
}

func (client *Client) handleHeartbeatTimeout(ev heartbeatTimeoutEvent) {
	if ev.gen != client.gen || client.status != StatusConnected {
		return
	}
	client.logger.Warn("heartbeat timeout, terminating connection")
	client.teardownSocket()
	client.failTo(NewError(TimedOutError, "heartbeat: no pong within timeout"), severityRecoverable)
}

func (client *Client) handleStability(ev stabilityEvent) {
	if ev.gen != client.gen || client.status != StatusConnected {
		return
	}
	client.stabilityTimer = nil
	client.resetAttempts()
}

func (client *Client) handleSend(ev sendEvent) {
	if client.status == StatusConnected && !client.queue.flushing &&
		client.queue.Len() == 0 && client.limiter.Allow() {
		client.transmit(ev.payload)
		return
	}

	before := client.queue.Dropped()
	client.queue.Enqueue(ev.payload)
	if dropped := client.queue.Dropped(); dropped != before {
		client.metrics.recordDropped(dropped)
		client.metrics.recordError(client.clock.Now(),
			NewError(QueueOverflowError, "queue full, dropped "+client.options.DropPolicy.String()))
		client.logger.Debug("queue overflow", "policy", client.options.DropPolicy, "dropped", dropped)
	}
	client.metrics.recordQueueDepth(client.queue.Len())

	if client.status == StatusConnected {
		client.startFlush()
	}
}

func (client *Client) handleFlushResume(ev flushResumeEvent) {
	if ev.gen != client.gen || client.status != StatusConnected {
		return
	}
	client.flushTimer = nil
	client.drainQueue()
}

func (client *Client) handleStop(ev stopEvent) {
	client.cancelTimer(&client.connectTimer)
	client.cancelTimer(&client.disconnectTimer)
	client.cancelTimer(&client.retryTimer)
	client.cancelTimer(&client.stabilityTimer)
	client.cancelTimer(&client.flushTimer)
	client.heartbeat.Stop()
	client.gen++
	if client.socket != nil {
		client.supervisor.terminate(client.socket)
		client.socket = nil
	}
	if client.status != StatusDisconnected {
		client.lastErr = nil
		client.setStatus(StatusDisconnected, nil)
	}
	client.logger.Info("stopped")
	close(client.done)
	close(ev.done)
}

// failTo records a classified failure and moves to BackingOff or, when
// retry is exhausted or disallowed, to Disconnected. The caller has
// already torn down any socket.
func (client *Client) failTo(err error, sev severity) {
	client.metrics.recordError(client.clock.Now(), err)

	terminal := !client.options.Reconnect || sev == severityFatal ||
		(sev == severityTransient && client.reconnectAttempts >= client.options.MaxReconnectAttempts)
	if terminal {
		client.lastErr = err
		client.setStatus(StatusDisconnected, err)
		client.logger.Warn("connection failed, not retrying",
			"error", err, "attempts", client.reconnectAttempts)
		return
	}

	// The delay grows with the attempt counter as it stood before this
	// failure; recoverable failures never consume the attempt budget.
	delay := client.strategy.ConnectWaitDuration(client.reconnectAttempts)
	if sev == severityTransient {
		client.reconnectAttempts++
		client.metrics.recordAttempts(client.reconnectAttempts)
	}
	client.backoffDelay = int64(delay)

	gen := client.gen
	client.lastErr = err
	client.retryTimer = client.clock.AfterFunc(delay, func() {
		client.postEvent(retryEvent{gen: gen})
	})
	client.setStatus(StatusBackingOff, err)
	client.logger.Warn("connection failed, retrying",
		"error", err, "delay", delay, "attempts", client.reconnectAttempts)
}

// teardownSocket force-closes the live socket and invalidates its
// generation so nothing it still emits is acted on.
func (client *Client) teardownSocket() {
	client.heartbeat.Stop()
	client.cancelTimer(&client.stabilityTimer)
	client.stopFlush()
	client.gen++
	if client.socket != nil {
		client.supervisor.terminate(client.socket)
		client.socket = nil
	}
}

// transmit writes one payload to the live socket. The caller has
// already taken a rate-limit slot for it. A failed write puts the
// payload back at the head of the queue and returns the slot; the
// socket's terminal callback drives the state change.
func (client *Client) transmit(payload []byte) bool {
	if err := client.socket.Send(payload); err != nil {
		client.queue.Requeue(payload)
		client.limiter.Release()
		client.metrics.recordQueueDepth(client.queue.Len())
		client.metrics.recordError(client.clock.Now(), err)
		client.logger.Debug("send failed, payload requeued", "error", err)
		return false
	}
	client.metrics.recordSent(len(payload))
	return true
}

// startFlush begins draining the queue unless a drain is already in
// progress or parked on the rate limiter.
func (client *Client) startFlush() {
	if client.queue.flushing || client.queue.Len() == 0 || client.status != StatusConnected {
		return
	}
	client.queue.flushing = true
	client.drainQueue()
}

// drainQueue sends queued payloads oldest-first until the queue is
// empty, the rate limiter defers, or a send fails.
func (client *Client) drainQueue() {
	for client.status == StatusConnected {
		if client.queue.Len() == 0 {
			client.queue.flushing = false
			return
		}
		if !client.limiter.Allow() {
			wait, ok := client.limiter.NextWindow()
			if !ok {
				wait = client.options.RateLimit.Window
			}
			gen := client.gen
			client.flushTimer = client.clock.AfterFunc(wait, func() {
				client.postEvent(flushResumeEvent{gen: gen})
			})
			client.logger.Debug("flush deferred by rate limit", "wait", wait)
			return
		}
		payload, _ := client.queue.Dequeue()
		if !client.transmit(payload) {
			client.queue.flushing = false
			return
		}
		client.metrics.recordQueueDepth(client.queue.Len())
	}
	client.queue.flushing = false
}

// stopFlush parks the drain when the connection is going away. Queued
// payloads stay queued for the next connection.
func (client *Client) stopFlush() {
	client.cancelTimer(&client.flushTimer)
	client.queue.flushing = false
}

func (client *Client) resetAttempts() {
	client.reconnectAttempts = 0
	client.backoffDelay = 0
	client.strategy.Reset()
	client.metrics.recordAttempts(0)
}

func (client *Client) setStatus(next Status, err error) {
	previous := client.status
	if previous == next {
		return
	}
	client.status = next
	client.notifyState(StateChange{Previous: previous, Current: next, Err: err})
}

func (client *Client) cancelTimer(timer *Timer) {
	if *timer != nil {
		(*timer).Stop()
		*timer = nil
	}
}

// classifyError maps a typed error to its reconnection severity.
func classifyError(err error) severity {
	switch ErrorCode(err) {
	case ProtocolError, InvalidURIError:
		return severityFatal
	case TransientError, TimedOutError, ConnectionError:
		return severityTransient
	default:
		return severityTransient
	}
}
