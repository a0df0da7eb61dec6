package sockline

import (
	"errors"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const (
	defaultHandshakeTimeout = 10 * time.Second
	defaultWriteTimeout     = 5 * time.Second
)

// WebSocketFactory is the default SocketFactory, dialing with
// gorilla/websocket. The zero value is not usable; construct with
// NewWebSocketFactory.
type WebSocketFactory struct {
	// Dialer performs the handshake. Callers may replace it to set TLS
	// configuration, proxies, or headers.
	Dialer *websocket.Dialer
	// WriteTimeout bounds each frame write.
	WriteTimeout time.Duration
}

// NewWebSocketFactory returns a factory with conservative defaults.
func NewWebSocketFactory() *WebSocketFactory {
	return &WebSocketFactory{
		Dialer: &websocket.Dialer{
			HandshakeTimeout: defaultHandshakeTimeout,
		},
		WriteTimeout: defaultWriteTimeout,
	}
}

// Open dials rawURL and starts the read pump. The returned Socket
// delivers exactly one terminal callback (OnClose or OnError) over its
// lifetime.
func (factory *WebSocketFactory) Open(rawURL string, callbacks SocketCallbacks) (Socket, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, NewError(InvalidURIError, err)
	}
	if parsed.Scheme != "ws" && parsed.Scheme != "wss" {
		return nil, NewError(InvalidURIError, "scheme must be ws or wss")
	}

	conn, _, err := factory.Dialer.Dial(rawURL, nil)
	if err != nil {
		return nil, NewError(ConnectionError, err)
	}

	socket := &webSocket{
		conn:         conn,
		writeTimeout: factory.WriteTimeout,
		callbacks:    callbacks,
	}
	conn.SetPongHandler(func(string) error {
		if callbacks.OnPong != nil {
			callbacks.OnPong()
		}
		return nil
	})
	go socket.readPump()
	return socket, nil
}

type webSocket struct {
	conn         *websocket.Conn
	writeTimeout time.Duration
	callbacks    SocketCallbacks
	writeLock    sync.Mutex
	terminated   atomic.Bool
	finished     atomic.Bool
}

func (socket *webSocket) Send(payload []byte) error {
	socket.writeLock.Lock()
	defer socket.writeLock.Unlock()
	_ = socket.conn.SetWriteDeadline(time.Now().Add(socket.writeTimeout))
	if err := socket.conn.WriteMessage(websocket.BinaryMessage, payload); err != nil {
		return NewError(ConnectionError, err)
	}
	return nil
}

func (socket *webSocket) Ping() error {
	socket.writeLock.Lock()
	defer socket.writeLock.Unlock()
	deadline := time.Now().Add(socket.writeTimeout)
	if err := socket.conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
		return NewError(ConnectionError, err)
	}
	return nil
}

func (socket *webSocket) Close(code int, reason string) error {
	socket.writeLock.Lock()
	defer socket.writeLock.Unlock()
	deadline := time.Now().Add(socket.writeTimeout)
	message := websocket.FormatCloseMessage(code, reason)
	if err := socket.conn.WriteControl(websocket.CloseMessage, message, deadline); err != nil {
		return NewError(ConnectionError, err)
	}
	return nil
}

func (socket *webSocket) Terminate() {
	if !socket.terminated.CompareAndSwap(false, true) {
		return
	}
	_ = socket.conn.Close()
}

func (socket *webSocket) readPump() {
	for {
		_, payload, err := socket.conn.ReadMessage()
		if err != nil {
			socket.finish(err)
			return
		}
		if socket.callbacks.OnMessage != nil {
			socket.callbacks.OnMessage(payload)
		}
	}
}

// finish delivers the single terminal callback and releases the
// underlying connection.
func (socket *webSocket) finish(err error) {
	if !socket.finished.CompareAndSwap(false, true) {
		return
	}
	defer socket.Terminate()

	if socket.terminated.Load() {
		// Locally terminated; report as an abnormal closure so a
		// waiting close handshake still completes.
		if socket.callbacks.OnClose != nil {
			socket.callbacks.OnClose(websocket.CloseAbnormalClosure, "terminated")
		}
		return
	}

	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		if socket.callbacks.OnClose != nil {
			socket.callbacks.OnClose(closeErr.Code, closeErr.Text)
		}
		return
	}
	if socket.callbacks.OnError != nil {
		socket.callbacks.OnError(NewError(ConnectionError, err))
	}
}
