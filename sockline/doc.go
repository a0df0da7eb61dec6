// Package sockline provides a persistent-connection client state machine
// for message-oriented, full-duplex transports.
//
// The primary lifecycle is:
//   - construct a Client with NewClient
//   - Connect to a transport URL
//   - Send payloads and receive messages through listeners
//   - Disconnect for a clean close, Stop to tear the client down
//
// A Client manages exactly one logical connection. It owns liveness
// monitoring (ping/pong heartbeats), reconnection with exponential
// backoff against an attempt budget, a bounded outbound queue with a
// configurable drop policy, and sliding-window send-rate limiting. The
// transport itself is an injected SocketFactory; a production factory
// over gorilla/websocket ships as the default.
//
// Connect, Disconnect, and Send never block on network I/O. Outcomes are
// delivered asynchronously through state-change listeners. All internal
// state is mutated by a single event-processing goroutine; socket
// callbacks and timers only enqueue events. Listener callbacks execute
// on that goroutine and must not block.
//
// Errors are reported as typed errors created with NewError and carry a
// code from the package's taxonomy. Fatal failures and attempt-budget
// exhaustion settle the client in Disconnected with a recorded last
// error; transient and recoverable failures are retried automatically.
package sockline
