package sockline

import "time"

// heartbeatMonitor owns the ping and pong-deadline timers. All methods
// run on the client's event loop; the timers it arms only post events.
// Stop cancels everything so no stale timer fires into a later state.
type heartbeatMonitor struct {
	interval time.Duration
	timeout  time.Duration
	clock    Clock
	post     func(ev event)

	pingTimer  Timer
	pongTimer  Timer
	pingSentAt time.Time
	waiting    bool
}

func newHeartbeatMonitor(interval, timeout time.Duration, clock Clock, post func(ev event)) *heartbeatMonitor {
	return &heartbeatMonitor{
		interval: interval,
		timeout:  timeout,
		clock:    clock,
		post:     post,
	}
}

// Start schedules the first ping. A non-positive interval disables the
// monitor entirely.
func (monitor *heartbeatMonitor) Start(gen uint64) {
	if monitor.interval <= 0 {
		return
	}
	monitor.schedulePing(gen)
}

// PingSent arms the pong deadline for a probe just written and
// schedules the next probe. A deadline still pending from an earlier
// probe is replaced, so a reply can never leave an orphaned deadline
// that fires into a healthy connection.
func (monitor *heartbeatMonitor) PingSent(gen uint64, now time.Time) {
	if monitor.pongTimer != nil {
		monitor.pongTimer.Stop()
		monitor.pongTimer = nil
	}
	monitor.pingSentAt = now
	monitor.waiting = true
	monitor.pongTimer = monitor.clock.AfterFunc(monitor.timeout, func() {
		monitor.post(heartbeatTimeoutEvent{gen: gen})
	})
	monitor.schedulePing(gen)
}

// PongReceived cancels the pong deadline and returns the round-trip
// time of the outstanding probe, if one was outstanding.
func (monitor *heartbeatMonitor) PongReceived(now time.Time) (time.Duration, bool) {
	if !monitor.waiting {
		return 0, false
	}
	monitor.waiting = false
	if monitor.pongTimer != nil {
		monitor.pongTimer.Stop()
		monitor.pongTimer = nil
	}
	return now.Sub(monitor.pingSentAt), true
}

// Stop cancels all heartbeat timers unconditionally.
func (monitor *heartbeatMonitor) Stop() {
	if monitor.pingTimer != nil {
		monitor.pingTimer.Stop()
		monitor.pingTimer = nil
	}
	if monitor.pongTimer != nil {
		monitor.pongTimer.Stop()
		monitor.pongTimer = nil
	}
	monitor.waiting = false
}

func (monitor *heartbeatMonitor) schedulePing(gen uint64) {
	monitor.pingTimer = monitor.clock.AfterFunc(monitor.interval, func() {
		monitor.post(heartbeatPingEvent{gen: gen})
	})
}
