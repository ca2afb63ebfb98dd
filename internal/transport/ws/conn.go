// Package ws is the concrete WebSocket PlayerLink (spec.md's C2): it
// owns the raw socket and exposes the game.Link interface the
// RoomController drives, grounded in the teacher's WebsocketConnection
// and Player read/write pump split.
package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"amadeus/internal/game"
	"amadeus/internal/wire"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = (pongWait * 9) / 10
	maxMessageSize = 1 << 20 // client frames (GUESS, etc.) are tiny; this just bounds abuse
)

// frame is one raw WebSocket message queued for the write pump. A
// []frame enqueued together is written back-to-back with no other
// send interleaved, which is how SendAudio keeps its SONG_DATA
// announcement glued to the binary payload that follows it.
type frame struct {
	kind int
	data []byte
}

// Conn adapts a *websocket.Conn to game.Link. One Conn is created per
// upgraded socket, before admission; ReadPump and WritePump are its only two
// long-running goroutines, matching the teacher's split.
type Conn struct {
	socket *websocket.Conn
	log    zerolog.Logger

	limiter *rate.Limiter

	outbox chan []frame
	closed chan struct{}
	once   sync.Once
}

// NewConn wraps an upgraded socket. The caller is responsible for
// starting ReadPump and WritePump once the connection has been
// admitted by a Controller.
func NewConn(socket *websocket.Conn, log zerolog.Logger) *Conn {
	socket.SetReadLimit(maxMessageSize)
	_ = socket.SetReadDeadline(time.Now().Add(pongWait))
	socket.SetPongHandler(func(string) error {
		return socket.SetReadDeadline(time.Now().Add(pongWait))
	})

	return &Conn{
		socket:  socket,
		log:     log,
		limiter: rate.NewLimiter(20, 40),
		outbox:  make(chan []frame, 64),
		closed:  make(chan struct{}),
	}
}

// Send enqueues a single server command as a text frame.
func (c *Conn) Send(cmd wire.ServerCommand) error {
	data, err := wire.EncodeServerCommand(cmd)
	if err != nil {
		return err
	}
	return c.enqueue([]frame{{kind: websocket.TextMessage, data: data}})
}

// SendAudio enqueues the SONG_DATA announcement and its binary payload
// as one atomic unit: the write pump drains both frames off the
// channel before it looks at anything else, so no broadcast can land
// between them (spec.md §4.4.4, §5).
func (c *Conn) SendAudio(round int, data []byte) error {
	announce, err := wire.EncodeServerCommand(wire.SongDataCommand{Round: round, SizeBytes: len(data)})
	if err != nil {
		return err
	}
	return c.enqueue([]frame{
		{kind: websocket.TextMessage, data: announce},
		{kind: websocket.BinaryMessage, data: data},
	})
}

func (c *Conn) enqueue(fs []frame) error {
	select {
	case c.outbox <- fs:
		return nil
	case <-c.closed:
		return websocket.ErrCloseSent
	default:
		return game.ErrSendBufferFull
	}
}

// Close closes the socket with the given reason, sending a WebSocket
// close frame on a best-effort basis first (spec.md §6's close-reason
// taxonomy, grounded in WebsocketConnection.Close).
func (c *Conn) Close(reason game.CloseReason) {
	code := websocket.CloseNormalClosure
	switch reason {
	case game.CloseViolatedPolicy:
		code = websocket.ClosePolicyViolation
	case game.CloseCannotAccept:
		code = websocket.CloseUnsupportedData
	case game.CloseGoingAway:
		code = websocket.CloseGoingAway
	case game.CloseProtocolError:
		code = websocket.CloseProtocolError
	}
	c.once.Do(func() {
		close(c.closed)
		_ = c.socket.SetWriteDeadline(time.Now().Add(writeWait))
		_ = c.socket.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason.String()))
		_ = c.socket.Close()
	})
}

// ReadPump decodes inbound client frames and hands them to dispatch.
// It returns once the socket errors or is closed; the caller should
// then notify the controller via Controller.Closed.
func (c *Conn) ReadPump(dispatch func(wire.ClientCommand)) {
	for {
		msgType, data, err := c.socket.ReadMessage()
		if err != nil {
			return
		}
		if !c.limiter.Allow() {
			continue
		}
		if msgType == websocket.BinaryMessage {
			// Clients never send binary frames; log and discard rather
			// than tear down the socket (spec.md §4.2).
			c.log.Debug().Msg("discarding unexpected binary frame from client")
			continue
		}

		cmd, err := wire.DecodeClientCommand(data)
		if err != nil {
			if err == wire.ErrUnknownCommand {
				continue
			}
			c.log.Debug().Err(err).Msg("malformed client frame")
			continue
		}
		dispatch(cmd)
	}
}

// WritePump is the sole goroutine that ever calls socket.WriteMessage,
// draining queued frames and periodic pings in arrival order.
func (c *Conn) WritePump() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case fs, ok := <-c.outbox:
			if !ok {
				return
			}
			if err := c.writeFrames(fs); err != nil {
				c.Close(game.CloseGoingAway)
				return
			}
		case <-ticker.C:
			_ = c.socket.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.socket.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close(game.CloseGoingAway)
				return
			}
		case <-c.closed:
			return
		}
	}
}

func (c *Conn) writeFrames(fs []frame) error {
	_ = c.socket.SetWriteDeadline(time.Now().Add(writeWait))
	for _, f := range fs {
		if err := c.socket.WriteMessage(f.kind, f.data); err != nil {
			return err
		}
	}
	return nil
}
