package sockline

import (
	"log/slog"

	"github.com/gorilla/websocket"
)

// Socket is the handle to one live transport connection.
type Socket interface {
	// Send transmits one message payload.
	Send(payload []byte) error
	// Ping sends a liveness probe. The reply surfaces as OnPong.
	Ping() error
	// Close starts a clean close handshake with the given code and
	// reason. Completion surfaces as OnClose.
	Close(code int, reason string) error
	// Terminate tears the connection down immediately, without a
	// handshake.
	Terminate()
}

// SocketCallbacks receive transport notifications. Implementations
// installed by the client only enqueue events; they never mutate
// client state directly.
type SocketCallbacks struct {
	OnMessage func(payload []byte)
	OnPong    func()
	OnError   func(err error)
	OnClose   func(code int, reason string)
}

// SocketFactory opens transport connections. Open blocks until the
// connection is established or fails; the client calls it from a
// dedicated goroutine bounded by ConnectTimeout.
type SocketFactory interface {
	Open(url string, callbacks SocketCallbacks) (Socket, error)
}

// supervisor owns socket side effects for the state machine: it opens
// sockets off the event loop, requests closes, and force-terminates.
// Every socket belongs to a generation; events from older generations
// are stale and the machine discards them.
type supervisor struct {
	factory SocketFactory
	logger  *slog.Logger
	post    func(ev event)
}

func newSupervisor(factory SocketFactory, logger *slog.Logger, post func(ev event)) *supervisor {
	return &supervisor{factory: factory, logger: logger, post: post}
}

// open dials url on its own goroutine and posts the outcome tagged
// with gen. Transport callbacks it installs carry the same generation.
func (sup *supervisor) open(url string, gen uint64) {
	callbacks := SocketCallbacks{
		OnMessage: func(payload []byte) {
			sup.post(socketMessageEvent{gen: gen, payload: payload})
		},
		OnPong: func() {
			sup.post(socketPongEvent{gen: gen})
		},
		OnError: func(err error) {
			sup.post(socketErrorEvent{gen: gen, err: err})
		},
		OnClose: func(code int, reason string) {
			sup.post(socketClosedEvent{gen: gen, code: code, reason: reason})
		},
	}

	go func() {
		socket, err := sup.factory.Open(url, callbacks)
		if err != nil {
			sup.post(socketErrorEvent{gen: gen, err: err})
			return
		}
		sup.post(socketOpenedEvent{gen: gen, socket: socket})
	}()
}

// close requests a clean close handshake off the event loop.
func (sup *supervisor) close(socket Socket, reason string) {
	go func() {
		if err := socket.Close(websocket.CloseNormalClosure, reason); err != nil {
			sup.logger.Debug("close handshake failed", "error", err)
			socket.Terminate()
		}
	}()
}

// terminate tears a socket down immediately.
func (sup *supervisor) terminate(socket Socket) {
	socket.Terminate()
}
