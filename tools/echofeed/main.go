// Package main implements echofeed, a scriptable websocket peer for
// exercising sockline clients against a real transport. It echoes every
// binary frame back to the sender and can be told to misbehave: drop
// the connection after N messages, answer with a specific close code,
// ignore pings, or delay echoes. That is enough to exercise the full
// client lifecycle including heartbeat loss and reconnection.
package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/pflag"
)

var (
	flagAddr       = pflag.String("addr", "127.0.0.1:19300", "listen address")
	flagPath       = pflag.String("path", "/stream", "websocket endpoint path")
	flagDropAfter  = pflag.Int("drop-after", 0, "close the connection after N echoed messages (0=never)")
	flagCloseCode  = pflag.Int("close-code", websocket.CloseNormalClosure, "close code sent when dropping")
	flagCloseText  = pflag.String("close-text", "scripted close", "close reason sent when dropping")
	flagMutePings  = pflag.Bool("mute-pings", false, "swallow pings instead of answering with pongs")
	flagLatency    = pflag.Duration("latency", 0, "artificial delay before each echo")
	flagLogTraffic = pflag.Bool("log-traffic", false, "log every echoed frame")
)

func main() {
	pflag.Parse()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	upgrader := websocket.Upgrader{
		CheckOrigin: func(*http.Request) bool { return true },
	}
	var connSeq atomic.Uint64

	http.HandleFunc(*flagPath, func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Warn("upgrade failed", "remote", r.RemoteAddr, "error", err)
			return
		}
		id := connSeq.Add(1)
		logger.Info("peer connected", "conn", id, "remote", r.RemoteAddr)
		go serve(conn, id, logger)
	})

	logger.Info("echofeed listening",
		"addr", *flagAddr, "path", *flagPath,
		"dropAfter", *flagDropAfter, "mutePings", *flagMutePings)
	if err := http.ListenAndServe(*flagAddr, nil); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serve(conn *websocket.Conn, id uint64, logger *slog.Logger) {
	defer conn.Close()

	if *flagMutePings {
		// A silent ping handler starves the client's pong deadline,
		// which is exactly what heartbeat tests want to see.
		conn.SetPingHandler(func(string) error { return nil })
	}

	echoed := 0
	for {
		messageType, payload, err := conn.ReadMessage()
		if err != nil {
			logger.Info("peer gone", "conn", id, "echoed", echoed, "error", err)
			return
		}
		if *flagLatency > 0 {
			time.Sleep(*flagLatency)
		}
		if err := conn.WriteMessage(messageType, payload); err != nil {
			logger.Warn("echo failed", "conn", id, "error", err)
			return
		}
		echoed++
		if *flagLogTraffic {
			logger.Info("echoed", "conn", id, "bytes", len(payload), "count", echoed)
		}

		if *flagDropAfter > 0 && echoed >= *flagDropAfter {
			deadline := time.Now().Add(2 * time.Second)
			message := websocket.FormatCloseMessage(*flagCloseCode, *flagCloseText)
			_ = conn.WriteControl(websocket.CloseMessage, message, deadline)
			logger.Info("dropping peer", "conn", id, "code", *flagCloseCode)
			return
		}
	}
}
