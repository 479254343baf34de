package conn

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// Socket is the part of *websocket.Conn the manager uses.
type Socket interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Dialer opens upstream sockets.
type Dialer interface {
	Dial(ctx context.Context, url string) (Socket, error)
}

// WebsocketDialer dials with gorilla/websocket.
type WebsocketDialer struct {
	HandshakeTimeout time.Duration
	Header           http.Header
}

// Dial opens a WebSocket to url.
func (d WebsocketDialer) Dial(ctx context.Context, url string) (Socket, error) {
	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: d.HandshakeTimeout,
		ReadBufferSize:   64 * 1024,
		WriteBufferSize:  16 * 1024,
	}
	if dialer.HandshakeTimeout <= 0 {
		dialer.HandshakeTimeout = 5 * time.Second
	}
	c, _, err := dialer.DialContext(ctx, url, d.Header)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// readDeadliner is implemented by *websocket.Conn. Sockets that have it get
// a read deadline which every frame and ping pushes forward.
type readDeadliner interface {
	SetReadDeadline(t time.Time) error
	SetPingHandler(h func(appData string) error)
	WriteControl(messageType int, data []byte, deadline time.Time) error
}

func armReadDeadline(sock Socket, timeout time.Duration) func() {
	rd, ok := sock.(readDeadliner)
	if !ok || timeout <= 0 {
		return func() {}
	}
	extend := func() { _ = rd.SetReadDeadline(time.Now().Add(timeout)) }
	rd.SetPingHandler(func(appData string) error {
		extend()
		err := rd.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(time.Second))
		if err == websocket.ErrCloseSent {
			return nil
		}
		return err
	})
	extend()
	return extend
}
