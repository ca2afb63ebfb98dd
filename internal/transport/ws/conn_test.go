package ws

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"amadeus/internal/game"
	"amadeus/internal/wire"
)

func startEchoServer(t *testing.T, handle func(*Conn)) string {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
		socket, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conn := NewConn(socket, zerolog.Nop())
		go conn.WritePump()
		handle(conn)
	}))
	t.Cleanup(server.Close)
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestConn_SendDeliversTextFrame(t *testing.T) {
	url := startEchoServer(t, func(conn *Conn) {
		_ = conn.Send(wire.RoomConfigCommand{Config: wire.RoomConfigurationWire{PlayTime: 20, MaxPlayers: 8}})
	})

	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer client.Close()

	_, data, err := client.ReadMessage()
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "ROOM_CONFIG", decoded["type"])
}

func TestConn_SendAudioIsAtomicTextThenBinary(t *testing.T) {
	payload := []byte("some-opaque-audio-bytes")
	url := startEchoServer(t, func(conn *Conn) {
		_ = conn.SendAudio(3, payload)
	})

	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer client.Close()

	msgType, data, err := client.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, websocket.TextMessage, msgType)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "SONG_DATA", decoded["type"])
	assert.EqualValues(t, 3, decoded["round"])

	msgType, data, err = client.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, websocket.BinaryMessage, msgType)
	assert.Equal(t, payload, data)
}

func TestConn_ReadPumpDecodesClientCommands(t *testing.T) {
	received := make(chan wire.ClientCommand, 1)
	url := startEchoServer(t, func(conn *Conn) {
		conn.ReadPump(func(cmd wire.ClientCommand) {
			received <- cmd
		})
	})

	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, client.WriteMessage(websocket.TextMessage, []byte(`{"type":"GUESS","round":2,"guess":"Foo"}`)))

	select {
	case cmd := <-received:
		assert.Equal(t, wire.GuessCommand{Round: 2, Guess: "Foo"}, cmd)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for decoded command")
	}
}

func TestConn_ReadPumpDiscardsUnexpectedBinaryFrames(t *testing.T) {
	received := make(chan wire.ClientCommand, 1)
	url := startEchoServer(t, func(conn *Conn) {
		conn.ReadPump(func(cmd wire.ClientCommand) {
			received <- cmd
		})
	})

	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, client.WriteMessage(websocket.BinaryMessage, []byte("not allowed")))
	require.NoError(t, client.WriteMessage(websocket.TextMessage, []byte(`{"type":"NEXT"}`)))

	select {
	case cmd := <-received:
		assert.Equal(t, wire.NextCommand{}, cmd)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the NEXT command following the discarded binary frame")
	}
}

func TestConn_CloseSendsCloseFrameWithReason(t *testing.T) {
	url := startEchoServer(t, func(conn *Conn) {
		conn.Close(game.CloseCannotAccept)
	})

	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer client.Close()

	_ = client.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = client.ReadMessage()
	closeErr, ok := err.(*websocket.CloseError)
	require.True(t, ok, "expected a close error, got %v", err)
	assert.Equal(t, "CANNOT_ACCEPT", closeErr.Text)
}
