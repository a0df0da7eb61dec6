package sockline

import (
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func TestConnectReachesConnected(t *testing.T) {
	factory := &fakeFactory{}
	clock := NewManualClock(time.Unix(0, 0))
	client := newTestClient(t, factory, clock, nil)

	var changes []StateChange
	var changesLock sync.Mutex
	remove := client.AddStateListener(func(change StateChange) {
		changesLock.Lock()
		changes = append(changes, change)
		changesLock.Unlock()
	})
	defer remove()

	require.NoError(t, client.Connect("ws://feed.example:9000/stream"))
	waitForStatus(t, client, StatusConnected)
	settle(t, client)

	require.Nil(t, client.LastError())
	require.Equal(t, 1, factory.openCount())

	changesLock.Lock()
	defer changesLock.Unlock()
	require.Len(t, changes, 2)
	require.Equal(t, StatusDisconnected, changes[0].Previous)
	require.Equal(t, StatusConnecting, changes[0].Current)
	require.Equal(t, StatusConnecting, changes[1].Previous)
	require.Equal(t, StatusConnected, changes[1].Current)
}

func TestConnectIsIdempotentWhileConnecting(t *testing.T) {
	hold := make(chan struct{})
	factory := &fakeFactory{hold: hold}
	clock := NewManualClock(time.Unix(0, 0))
	client := newTestClient(t, factory, clock, nil)

	require.NoError(t, client.Connect("ws://feed.example:9000"))
	waitForStatus(t, client, StatusConnecting)
	require.NoError(t, client.Connect("ws://feed.example:9000"))
	require.NoError(t, client.Connect("ws://feed.example:9000"))
	settle(t, client)

	require.Equal(t, 1, factory.openCount())
	close(hold)
	waitForStatus(t, client, StatusConnected)
}

func TestConnectRejectsBadTarget(t *testing.T) {
	factory := &fakeFactory{}
	clock := NewManualClock(time.Unix(0, 0))
	client := newTestClient(t, factory, clock, nil)

	err := client.Connect("")
	require.Error(t, err)
	require.Equal(t, InvalidURIError, ErrorCode(err))
	require.Equal(t, 0, factory.openCount())
}

func TestDialFailureBacksOffThenReconnects(t *testing.T) {
	factory := &fakeFactory{failures: 1}
	clock := NewManualClock(time.Unix(0, 0))
	client := newTestClient(t, factory, clock, nil)

	require.NoError(t, client.Connect("ws://feed.example:9000"))
	waitForStatus(t, client, StatusBackingOff)

	require.Error(t, client.LastError())
	require.Equal(t, 1, client.Metrics().ReconnectAttempts)

	clock.Advance(time.Second)
	waitForStatus(t, client, StatusConnected)
	require.Nil(t, client.LastError())
	require.Equal(t, 2, factory.openCount())
}

func TestReconnectStopsAfterMaxAttempts(t *testing.T) {
	factory := &fakeFactory{failures: 10}
	clock := NewManualClock(time.Unix(0, 0))
	client := newTestClient(t, factory, clock, func(opts *Options) {
		opts.MaxReconnectAttempts = 1
	})

	require.NoError(t, client.Connect("ws://feed.example:9000"))
	waitForStatus(t, client, StatusBackingOff)
	require.Equal(t, 1, client.Metrics().ReconnectAttempts)

	clock.Advance(time.Second)
	waitForStatus(t, client, StatusDisconnected)

	require.Error(t, client.LastError())
	require.Equal(t, ConnectionError, ErrorCode(client.LastError()))
	require.Equal(t, 2, factory.openCount())

	// The budget is spent; nothing further fires.
	clock.Advance(time.Minute)
	settle(t, client)
	require.Equal(t, 2, factory.openCount())
	require.Equal(t, StatusDisconnected, client.State())
}

func TestReconnectDisabledFailsTerminally(t *testing.T) {
	factory := &fakeFactory{failures: 1}
	clock := NewManualClock(time.Unix(0, 0))
	client := newTestClient(t, factory, clock, func(opts *Options) {
		opts.Reconnect = false
	})

	require.NoError(t, client.Connect("ws://feed.example:9000"))
	waitForCondition(t, "terminal failure", func() bool {
		return client.State() == StatusDisconnected && client.LastError() != nil
	})
	require.Error(t, client.LastError())
	require.Equal(t, 1, factory.openCount())
}

func TestFatalCloseCodeDoesNotRetry(t *testing.T) {
	factory := &fakeFactory{}
	clock := NewManualClock(time.Unix(0, 0))
	client := newTestClient(t, factory, clock, nil)

	require.NoError(t, client.Connect("ws://feed.example:9000"))
	waitForStatus(t, client, StatusConnected)

	factory.lastSocket().peerClose(websocket.ClosePolicyViolation, "banned")
	waitForStatus(t, client, StatusDisconnected)

	require.Error(t, client.LastError())
	require.Equal(t, ProtocolError, ErrorCode(client.LastError()))
	require.Equal(t, 1, factory.openCount())
}

func TestRecoverableCloseDoesNotConsumeAttemptBudget(t *testing.T) {
	factory := &fakeFactory{}
	clock := NewManualClock(time.Unix(0, 0))
	client := newTestClient(t, factory, clock, func(opts *Options) {
		opts.MaxReconnectAttempts = 1
	})

	require.NoError(t, client.Connect("ws://feed.example:9000"))
	waitForStatus(t, client, StatusConnected)

	// Repeated abnormal closures keep retrying past the transient cap.
	for round := 0; round < 3; round++ {
		factory.lastSocket().peerClose(websocket.CloseAbnormalClosure, "")
		waitForStatus(t, client, StatusBackingOff)
		require.Equal(t, 0, client.Metrics().ReconnectAttempts)
		clock.Advance(time.Second)
		waitForStatus(t, client, StatusConnected)
	}
	require.Equal(t, 4, factory.openCount())
}

func TestConnectTimeoutBacksOffAndDiscardsLateSocket(t *testing.T) {
	hold := make(chan struct{})
	factory := &fakeFactory{hold: hold}
	clock := NewManualClock(time.Unix(0, 0))
	client := newTestClient(t, factory, clock, nil)

	require.NoError(t, client.Connect("ws://feed.example:9000"))
	waitForStatus(t, client, StatusConnecting)

	clock.Advance(DefaultOptions().ConnectTimeout)
	waitForStatus(t, client, StatusBackingOff)
	require.Equal(t, TimedOutError, ErrorCode(client.LastError()))

	// The dial finally completes, but its generation is stale; the
	// socket must be discarded, not installed.
	factory.lock.Lock()
	factory.hold = nil
	factory.lock.Unlock()
	close(hold)
	waitForCondition(t, "late socket terminated", func() bool {
		socket := factory.socketAt(0)
		return socket != nil && socket.wasTerminated()
	})
	require.Equal(t, StatusBackingOff, client.State())

	clock.Advance(time.Second)
	waitForStatus(t, client, StatusConnected)
	require.False(t, factory.lastSocket().wasTerminated())
}

func TestCleanDisconnect(t *testing.T) {
	factory := &fakeFactory{}
	clock := NewManualClock(time.Unix(0, 0))
	client := newTestClient(t, factory, clock, nil)

	require.NoError(t, client.Connect("ws://feed.example:9000"))
	waitForStatus(t, client, StatusConnected)

	client.Disconnect("shutting down")
	waitForStatus(t, client, StatusDisconnected)
	require.Nil(t, client.LastError())
	require.True(t, factory.lastSocket().wasClosed())

	// A clean disconnect never triggers reconnection.
	clock.Advance(time.Minute)
	settle(t, client)
	require.Equal(t, 1, factory.openCount())
}

func TestDisconnectTimeoutForcesTermination(t *testing.T) {
	factory := &fakeFactory{}
	clock := NewManualClock(time.Unix(0, 0))
	client := newTestClient(t, factory, clock, nil)

	require.NoError(t, client.Connect("ws://feed.example:9000"))
	waitForStatus(t, client, StatusConnected)

	socket := factory.lastSocket()
	socket.lock.Lock()
	socket.stallClose = true
	socket.lock.Unlock()

	client.Disconnect()
	waitForStatus(t, client, StatusDisconnecting)

	clock.Advance(DefaultOptions().DisconnectTimeout)
	waitForStatus(t, client, StatusDisconnected)
	require.Equal(t, TimedOutError, ErrorCode(client.LastError()))
	require.True(t, socket.wasTerminated())
}

func TestDisconnectDuringBackoffCancelsRetry(t *testing.T) {
	factory := &fakeFactory{failures: 1}
	clock := NewManualClock(time.Unix(0, 0))
	client := newTestClient(t, factory, clock, nil)

	require.NoError(t, client.Connect("ws://feed.example:9000"))
	waitForStatus(t, client, StatusBackingOff)

	client.Disconnect()
	waitForStatus(t, client, StatusDisconnected)
	require.Nil(t, client.LastError())

	clock.Advance(time.Minute)
	settle(t, client)
	require.Equal(t, 1, factory.openCount())
	require.Equal(t, StatusDisconnected, client.State())
}

func TestDisconnectDuringConnectingAbandonsDial(t *testing.T) {
	hold := make(chan struct{})
	factory := &fakeFactory{hold: hold}
	clock := NewManualClock(time.Unix(0, 0))
	client := newTestClient(t, factory, clock, nil)

	require.NoError(t, client.Connect("ws://feed.example:9000"))
	waitForStatus(t, client, StatusConnecting)

	client.Disconnect()
	waitForStatus(t, client, StatusDisconnected)

	close(hold)
	waitForCondition(t, "abandoned socket terminated", func() bool {
		socket := factory.socketAt(0)
		return socket != nil && socket.wasTerminated()
	})
	require.Equal(t, StatusDisconnected, client.State())
}

func TestHeartbeatPingAndPong(t *testing.T) {
	factory := &fakeFactory{}
	clock := NewManualClock(time.Unix(0, 0))
	client := newTestClient(t, factory, clock, func(opts *Options) {
		opts.PingInterval = 30 * time.Second
		opts.PongTimeout = 10 * time.Second
	})

	require.NoError(t, client.Connect("ws://feed.example:9000"))
	waitForStatus(t, client, StatusConnected)
	socket := factory.lastSocket()

	clock.Advance(30 * time.Second)
	settle(t, client)
	require.Equal(t, 1, socket.pingCount())

	socket.peerPong()
	waitForCondition(t, "pong recorded", func() bool {
		return len(client.Metrics().HeartbeatRTTs) == 1
	})
	require.Equal(t, StatusConnected, client.State())

	// The next interval produces the next probe.
	clock.Advance(30 * time.Second)
	settle(t, client)
	require.Equal(t, 2, socket.pingCount())
}

func TestHeartbeatTimeoutTearsDownAndRetries(t *testing.T) {
	factory := &fakeFactory{}
	clock := NewManualClock(time.Unix(0, 0))
	client := newTestClient(t, factory, clock, func(opts *Options) {
		opts.PingInterval = 30 * time.Second
		opts.PongTimeout = 10 * time.Second
	})

	require.NoError(t, client.Connect("ws://feed.example:9000"))
	waitForStatus(t, client, StatusConnected)
	socket := factory.lastSocket()

	clock.Advance(30 * time.Second)
	settle(t, client)
	require.Equal(t, 1, socket.pingCount())

	// No pong arrives within the deadline.
	clock.Advance(10 * time.Second)
	waitForStatus(t, client, StatusBackingOff)
	require.Equal(t, TimedOutError, ErrorCode(client.LastError()))
	require.True(t, socket.wasTerminated())

	// Liveness loss never consumes the attempt budget.
	require.Equal(t, 0, client.Metrics().ReconnectAttempts)

	clock.Advance(time.Second)
	waitForStatus(t, client, StatusConnected)
	require.Equal(t, 2, factory.openCount())
}

func TestPongAfterNextPingKeepsConnectionAlive(t *testing.T) {
	factory := &fakeFactory{}
	clock := NewManualClock(time.Unix(0, 0))
	client := newTestClient(t, factory, clock, func(opts *Options) {
		opts.PingInterval = time.Second
		opts.PongTimeout = 3 * time.Second
	})

	require.NoError(t, client.Connect("ws://feed.example:9000"))
	waitForStatus(t, client, StatusConnected)
	socket := factory.lastSocket()

	// Two probes go out before the first is answered; the deadline of
	// the first must not outlive the reply.
	clock.Advance(time.Second)
	settle(t, client)
	clock.Advance(time.Second)
	settle(t, client)
	require.Equal(t, 2, socket.pingCount())
	socket.peerPong()
	settle(t, client)

	// Every later probe is answered promptly. Nothing may fire when the
	// first probe's deadline would have expired.
	for round := 0; round < 3; round++ {
		clock.Advance(time.Second)
		settle(t, client)
		socket.peerPong()
		settle(t, client)
	}

	require.Equal(t, StatusConnected, client.State())
	require.Equal(t, 1, factory.openCount())
	require.False(t, socket.wasTerminated())
}

func TestStabilityWindowResetsAttemptBudget(t *testing.T) {
	factory := &fakeFactory{failures: 1}
	clock := NewManualClock(time.Unix(0, 0))
	client := newTestClient(t, factory, clock, func(opts *Options) {
		opts.StabilityWindow = 5 * time.Second
	})

	require.NoError(t, client.Connect("ws://feed.example:9000"))
	waitForStatus(t, client, StatusBackingOff)
	require.Equal(t, 1, client.Metrics().ReconnectAttempts)

	clock.Advance(time.Second)
	waitForStatus(t, client, StatusConnected)
	settle(t, client)

	// The counter survives until the connection proves stable.
	require.Equal(t, 1, client.Metrics().ReconnectAttempts)
	clock.Advance(5 * time.Second)
	settle(t, client)
	require.Equal(t, 0, client.Metrics().ReconnectAttempts)
}

func TestReceivedMessagesReachListeners(t *testing.T) {
	factory := &fakeFactory{}
	clock := NewManualClock(time.Unix(0, 0))
	client := newTestClient(t, factory, clock, nil)

	var received [][]byte
	var receivedLock sync.Mutex
	remove := client.AddMessageListener(func(payload []byte) {
		receivedLock.Lock()
		received = append(received, payload)
		receivedLock.Unlock()
	})
	defer remove()

	require.NoError(t, client.Connect("ws://feed.example:9000"))
	waitForStatus(t, client, StatusConnected)

	factory.lastSocket().peerMessage([]byte("tick-1"))
	factory.lastSocket().peerMessage([]byte("tick-2"))
	waitForCondition(t, "messages delivered", func() bool {
		receivedLock.Lock()
		defer receivedLock.Unlock()
		return len(received) == 2
	})

	snapshot := client.Metrics()
	require.Equal(t, uint64(2), snapshot.MessagesReceived)
	require.Equal(t, uint64(len("tick-1")+len("tick-2")), snapshot.BytesReceived)
}

func TestSendWhileDisconnectedQueuesUntilConnected(t *testing.T) {
	factory := &fakeFactory{}
	clock := NewManualClock(time.Unix(0, 0))
	client := newTestClient(t, factory, clock, nil)

	require.NoError(t, client.Send([]byte("a")))
	require.NoError(t, client.Send([]byte("b")))
	settle(t, client)
	require.Equal(t, 2, client.Metrics().QueueDepth)

	require.NoError(t, client.Connect("ws://feed.example:9000"))
	waitForStatus(t, client, StatusConnected)

	waitForCondition(t, "queued payloads flushed", func() bool {
		return factory.lastSocket().sentCount() == 2
	})
	require.Equal(t, [][]byte{[]byte("a"), []byte("b")}, factory.lastSocket().sentPayloads())
	require.Equal(t, 0, client.Metrics().QueueDepth)
}

func TestQueueOverflowDropOldest(t *testing.T) {
	factory := &fakeFactory{}
	clock := NewManualClock(time.Unix(0, 0))
	client := newTestClient(t, factory, clock, func(opts *Options) {
		opts.MaxQueueSize = 2
		opts.DropPolicy = DropOldest
	})

	require.NoError(t, client.Send([]byte("a")))
	require.NoError(t, client.Send([]byte("b")))
	require.NoError(t, client.Send([]byte("c")))
	settle(t, client)

	snapshot := client.Metrics()
	require.Equal(t, 2, snapshot.QueueDepth)
	require.Equal(t, uint64(1), snapshot.MessagesDropped)

	require.NoError(t, client.Connect("ws://feed.example:9000"))
	waitForStatus(t, client, StatusConnected)
	waitForCondition(t, "survivors flushed", func() bool {
		return factory.lastSocket().sentCount() == 2
	})
	require.Equal(t, [][]byte{[]byte("b"), []byte("c")}, factory.lastSocket().sentPayloads())
}

func TestQueueOverflowDropNewest(t *testing.T) {
	factory := &fakeFactory{}
	clock := NewManualClock(time.Unix(0, 0))
	client := newTestClient(t, factory, clock, func(opts *Options) {
		opts.MaxQueueSize = 2
		opts.DropPolicy = DropNewest
	})

	require.NoError(t, client.Send([]byte("a")))
	require.NoError(t, client.Send([]byte("b")))
	require.NoError(t, client.Send([]byte("c")))
	settle(t, client)

	require.NoError(t, client.Connect("ws://feed.example:9000"))
	waitForStatus(t, client, StatusConnected)
	waitForCondition(t, "survivors flushed", func() bool {
		return factory.lastSocket().sentCount() == 2
	})
	require.Equal(t, [][]byte{[]byte("a"), []byte("b")}, factory.lastSocket().sentPayloads())
	require.Equal(t, uint64(1), client.Metrics().MessagesDropped)
}

func TestRateLimitDefersExcessSends(t *testing.T) {
	factory := &fakeFactory{}
	clock := NewManualClock(time.Unix(0, 0))
	client := newTestClient(t, factory, clock, func(opts *Options) {
		opts.RateLimit = RateLimit{Count: 2, Window: time.Second}
	})

	require.NoError(t, client.Connect("ws://feed.example:9000"))
	waitForStatus(t, client, StatusConnected)
	socket := factory.lastSocket()

	require.NoError(t, client.Send([]byte("m1")))
	require.NoError(t, client.Send([]byte("m2")))
	require.NoError(t, client.Send([]byte("m3")))
	settle(t, client)

	// Exactly the window's worth goes out; the excess waits, undropped.
	require.Equal(t, 2, socket.sentCount())
	require.Equal(t, 1, client.Metrics().QueueDepth)
	require.Equal(t, uint64(0), client.Metrics().MessagesDropped)

	clock.Advance(time.Second)
	settle(t, client)
	waitForCondition(t, "deferred payload flushed", func() bool {
		return socket.sentCount() == 3
	})
	require.Equal(t, 0, client.Metrics().QueueDepth)
}

func TestFailedSendIsRequeuedNotLost(t *testing.T) {
	factory := &fakeFactory{}
	clock := NewManualClock(time.Unix(0, 0))
	client := newTestClient(t, factory, clock, nil)

	require.NoError(t, client.Connect("ws://feed.example:9000"))
	waitForStatus(t, client, StatusConnected)

	first := factory.lastSocket()
	first.setSendErr(NewError(ConnectionError, "broken pipe"))

	require.NoError(t, client.Send([]byte("precious")))
	settle(t, client)
	require.Equal(t, 1, client.Metrics().QueueDepth)

	// The dying socket reports its failure; the client reconnects and
	// the payload goes out on the replacement connection.
	first.peerError(NewError(ConnectionError, "broken pipe"))
	waitForStatus(t, client, StatusBackingOff)
	clock.Advance(time.Second)
	waitForStatus(t, client, StatusConnected)

	waitForCondition(t, "payload resent", func() bool {
		return factory.lastSocket().sentCount() == 1
	})
	require.Equal(t, [][]byte{[]byte("precious")}, factory.lastSocket().sentPayloads())
}

func TestFailedTransmitReleasesRateLimitSlot(t *testing.T) {
	factory := &fakeFactory{}
	clock := NewManualClock(time.Unix(0, 0))
	client := newTestClient(t, factory, clock, func(opts *Options) {
		opts.RateLimit = RateLimit{Count: 1, Window: time.Second}
	})

	require.NoError(t, client.Connect("ws://feed.example:9000"))
	waitForStatus(t, client, StatusConnected)
	socket := factory.lastSocket()

	socket.setSendErr(NewError(ConnectionError, "broken pipe"))
	require.NoError(t, client.Send([]byte("x")))
	settle(t, client)
	require.Equal(t, 0, socket.sentCount())
	require.Equal(t, 1, client.Metrics().QueueDepth)

	// The failed write gave its window slot back, so the retry goes out
	// inside the same window without waiting for it to slide.
	socket.setSendErr(nil)
	require.NoError(t, client.Send([]byte("y")))
	settle(t, client)
	require.Equal(t, [][]byte{[]byte("x")}, socket.sentPayloads())
	require.Equal(t, 1, client.Metrics().QueueDepth)

	clock.Advance(time.Second)
	settle(t, client)
	waitForCondition(t, "second payload flushed", func() bool {
		return socket.sentCount() == 2
	})
	require.Equal(t, [][]byte{[]byte("x"), []byte("y")}, socket.sentPayloads())
}

func TestInvariantsHoldAtEveryTransition(t *testing.T) {
	factory := &fakeFactory{failures: 1}
	clock := NewManualClock(time.Unix(0, 0))
	client := newTestClient(t, factory, clock, func(opts *Options) {
		opts.MaxReconnectAttempts = 3
	})

	// The listener runs on the event loop, so reading loop-owned fields
	// here is race-free.
	var violations []string
	var violationsLock sync.Mutex
	remove := client.AddStateListener(func(change StateChange) {
		var found []string
		socketPresent := client.socket != nil
		switch change.Current {
		case StatusDisconnected, StatusBackingOff:
			if socketPresent {
				found = append(found, "socket present outside a connection state")
			}
		case StatusConnected, StatusDisconnecting:
			if !socketPresent {
				found = append(found, "socket absent in "+change.Current.String())
			}
		}
		switch change.Current {
		case StatusConnecting, StatusConnected, StatusDisconnecting:
			if client.lastErr != nil {
				found = append(found, "lastErr set in "+change.Current.String())
			}
		case StatusBackingOff:
			if client.lastErr == nil {
				found = append(found, "lastErr missing in BackingOff")
			}
			if client.reconnectAttempts > client.options.MaxReconnectAttempts {
				found = append(found, "attempt counter above cap in BackingOff")
			}
		}
		violationsLock.Lock()
		violations = append(violations, found...)
		violationsLock.Unlock()
	})
	defer remove()

	// Connect (first dial fails), back off, retry, drop abnormally,
	// back off again, retry, then disconnect cleanly.
	require.NoError(t, client.Connect("ws://feed.example:9000"))
	waitForStatus(t, client, StatusBackingOff)
	clock.Advance(time.Second)
	waitForStatus(t, client, StatusConnected)

	factory.lastSocket().peerClose(websocket.CloseAbnormalClosure, "")
	waitForStatus(t, client, StatusBackingOff)
	clock.Advance(time.Second)
	waitForStatus(t, client, StatusConnected)

	client.Disconnect()
	waitForStatus(t, client, StatusDisconnected)
	settle(t, client)

	violationsLock.Lock()
	defer violationsLock.Unlock()
	require.Empty(t, violations)
}

func TestStopTerminatesEverything(t *testing.T) {
	factory := &fakeFactory{}
	clock := NewManualClock(time.Unix(0, 0))
	client := newTestClient(t, factory, clock, nil)

	require.NoError(t, client.Connect("ws://feed.example:9000"))
	waitForStatus(t, client, StatusConnected)
	socket := factory.lastSocket()

	client.Stop()
	require.Equal(t, StatusDisconnected, client.State())
	require.True(t, socket.wasTerminated())

	// The stopped client rejects further work.
	err := client.Connect("ws://feed.example:9000")
	require.Equal(t, DisconnectedError, ErrorCode(err))
	require.Equal(t, DisconnectedError, ErrorCode(client.Send([]byte("x"))))
	client.Stop()
}

func TestListenerRemoval(t *testing.T) {
	factory := &fakeFactory{}
	clock := NewManualClock(time.Unix(0, 0))
	client := newTestClient(t, factory, clock, nil)

	var count int
	var countLock sync.Mutex
	remove := client.AddStateListener(func(StateChange) {
		countLock.Lock()
		count++
		countLock.Unlock()
	})

	require.NoError(t, client.Connect("ws://feed.example:9000"))
	waitForStatus(t, client, StatusConnected)
	settle(t, client)
	remove()

	client.Disconnect()
	waitForStatus(t, client, StatusDisconnected)
	settle(t, client)

	countLock.Lock()
	defer countLock.Unlock()
	require.Equal(t, 2, count)
}

func TestErrorHistoryIsBounded(t *testing.T) {
	factory := &fakeFactory{failures: 1}
	clock := NewManualClock(time.Unix(0, 0))
	client := newTestClient(t, factory, clock, nil)

	require.NoError(t, client.Connect("ws://feed.example:9000"))
	waitForStatus(t, client, StatusBackingOff)

	snapshot := client.Metrics()
	require.Len(t, snapshot.Errors, 1)
	require.Equal(t, ConnectionError, ErrorCode(snapshot.Errors[0].Err))
	require.LessOrEqual(t, len(snapshot.Errors), errorHistoryLimit)
}
