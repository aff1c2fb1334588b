// Package transport owns the persistent websocket to the transcription
// service.
package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"brainwave/internal/domain"
	"brainwave/internal/ports"
)

const writeWait = 5 * time.Second

// WebSocket implements ports.Transport. It makes a single connection attempt
// per Connect call and never reconnects or queues outbound messages.
type WebSocket struct {
	dialer *websocket.Dialer
	logger *slog.Logger

	mu       sync.Mutex
	observer ports.TransportObserver
	conn     *websocket.Conn
	state    domain.ConnectionState
	gen      uint64

	writeMu sync.Mutex
}

func NewWebSocket(logger *slog.Logger) *WebSocket {
	return &WebSocket{
		dialer: websocket.DefaultDialer,
		logger: logger.With("component", "transport"),
		state:  domain.ConnectionClosed,
	}
}

// SetObserver registers the receiver of state changes and inbound messages.
func (w *WebSocket) SetObserver(observer ports.TransportObserver) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.observer = observer
}

func (w *WebSocket) State() domain.ConnectionState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Connect tears down any existing connection, moves to CONNECTING and dials
// in the background. The outcome is reported as OPEN or ERRORED.
func (w *WebSocket) Connect(ctx context.Context, address string) {
	_ = w.Close()

	w.mu.Lock()
	w.gen++
	gen := w.gen
	w.state = domain.ConnectionConnecting
	w.mu.Unlock()
	w.notify(domain.ConnectionConnecting, nil)

	go w.dial(ctx, gen, address)
}

func (w *WebSocket) dial(ctx context.Context, gen uint64, address string) {
	conn, _, err := w.dialer.DialContext(ctx, address, nil)

	w.mu.Lock()
	if gen != w.gen {
		w.mu.Unlock()
		if conn != nil {
			_ = conn.Close()
		}
		return
	}
	if err != nil {
		w.state = domain.ConnectionErrored
		w.mu.Unlock()
		w.logger.Warn("websocket connect failed", "address", address, "error", err)
		w.notify(domain.ConnectionErrored, fmt.Errorf("%w: %v", domain.ErrTransportConnect, err))
		return
	}
	w.conn = conn
	w.state = domain.ConnectionOpen
	w.mu.Unlock()

	w.logger.Info("websocket connected", "address", address)
	w.notify(domain.ConnectionOpen, nil)
	go w.readLoop(gen, conn)
}

func (w *WebSocket) readLoop(gen uint64, conn *websocket.Conn) {
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			w.finish(gen, err)
			return
		}

		w.mu.Lock()
		current := gen == w.gen
		observer := w.observer
		w.mu.Unlock()
		if !current {
			return
		}
		if observer != nil {
			observer.TransportMessage(payload)
		}
	}
}

// finish records the end of a connection that was not closed locally.
func (w *WebSocket) finish(gen uint64, err error) {
	w.mu.Lock()
	if gen != w.gen {
		w.mu.Unlock()
		return
	}
	conn := w.conn
	w.conn = nil
	state := domain.ConnectionErrored
	reported := fmt.Errorf("%w: %v", domain.ErrTransportClosed, err)
	if isOrdinaryClose(err) {
		state = domain.ConnectionClosed
		reported = domain.ErrTransportClosed
	}
	w.state = state
	w.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
	w.logger.Info("websocket closed", "state", state, "error", err)
	w.notify(state, reported)
}

// SendBinary writes one binary message. It fails with domain.ErrNotOpen
// unless the connection is OPEN.
func (w *WebSocket) SendBinary(payload []byte) error {
	return w.write(func(conn *websocket.Conn) error {
		return conn.WriteMessage(websocket.BinaryMessage, payload)
	})
}

// SendJSON writes one text message holding v encoded as JSON.
func (w *WebSocket) SendJSON(v any) error {
	return w.write(func(conn *websocket.Conn) error {
		return conn.WriteJSON(v)
	})
}

func (w *WebSocket) write(fn func(conn *websocket.Conn) error) error {
	w.mu.Lock()
	conn, state := w.conn, w.state
	w.mu.Unlock()
	if state != domain.ConnectionOpen || conn == nil {
		return domain.ErrNotOpen
	}

	w.writeMu.Lock()
	defer w.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := fn(conn); err != nil {
		return fmt.Errorf("websocket write: %w", err)
	}
	return nil
}

// Close moves to CLOSED and releases the connection. It is idempotent.
func (w *WebSocket) Close() error {
	w.mu.Lock()
	w.gen++
	conn := w.conn
	w.conn = nil
	previous := w.state
	w.state = domain.ConnectionClosed
	w.mu.Unlock()

	var err error
	if conn != nil {
		w.writeMu.Lock()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		w.writeMu.Unlock()
		err = conn.Close()
	}
	if previous != domain.ConnectionClosed {
		w.notify(domain.ConnectionClosed, nil)
	}
	return err
}

func (w *WebSocket) notify(state domain.ConnectionState, err error) {
	w.mu.Lock()
	observer := w.observer
	w.mu.Unlock()
	if observer != nil {
		observer.TransportStateChanged(state, err)
	}
}

func isOrdinaryClose(err error) bool {
	return websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived,
	) || errors.Is(err, websocket.ErrCloseSent)
}
