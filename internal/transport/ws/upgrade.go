package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"amadeus/internal/game"
	"amadeus/internal/wire"
)

// Upgrader is shared process-wide; CheckOrigin is supplied by the
// httpapi package so the origin allowlist lives in one place.
type Upgrader struct {
	upgrade websocket.Upgrader
	log     zerolog.Logger
}

func NewUpgrader(checkOrigin func(r *http.Request) bool, log zerolog.Logger) *Upgrader {
	return &Upgrader{
		upgrade: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     checkOrigin,
		},
		log: log,
	}
}

// Serve upgrades an HTTP request to a WebSocket, admits it into room
// via Controller.Join, and — if admitted — runs its read/write pumps
// until the socket or the room gives up on it. It blocks until the
// connection closes, matching gin's handler-per-request model.
func (u *Upgrader) Serve(w http.ResponseWriter, r *http.Request, room *game.Controller, session string) {
	socket, err := u.upgrade.Upgrade(w, r, nil)
	if err != nil {
		u.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	conn := NewConn(socket, u.log)

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	reason := room.Join(ctx, session, conn)
	cancel()
	if reason != nil {
		conn.Close(*reason)
		return
	}

	done := make(chan struct{})
	go func() {
		conn.WritePump()
		close(done)
	}()

	conn.ReadPump(func(cmd wire.ClientCommand) {
		room.Dispatch(session, cmd)
	})

	room.Closed(session, conn)
	<-done
}
