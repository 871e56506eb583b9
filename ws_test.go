package main

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClient registers a client with a buffered send channel and no socket,
// so handleMessage can be driven directly.
func fakeClient(gs *GameServer, connID string) *Client {
	c := &Client{
		send:   make(chan any, 64),
		connID: connID,
	}
	gs.register(c)
	return c
}

func drain(c *Client) []any {
	var out []any
	for {
		select {
		case msg := <-c.send:
			out = append(out, msg)
		default:
			return out
		}
	}
}

func lastAck(t *testing.T, msgs []any) AckMessage {
	t.Helper()
	for i := len(msgs) - 1; i >= 0; i-- {
		if ack, ok := msgs[i].(AckMessage); ok {
			return ack
		}
	}
	t.Fatal("no ack received")
	return AckMessage{}
}

func lastState(msgs []any) *PlayerView {
	for i := len(msgs) - 1; i >= 0; i-- {
		if st, ok := msgs[i].(RoomStateMessage); ok {
			return st.View
		}
	}
	return nil
}

func newTestServer() *GameServer {
	cfg := &Config{reconnectGrace: time.Minute}
	return newGameServer(cfg, newTestGame())
}

func TestHandleMessageFlow(t *testing.T) {
	gs := newTestServer()

	judge := fakeClient(gs, "conn-j")
	cand1 := fakeClient(gs, "conn-c1")
	cand2 := fakeClient(gs, "conn-c2")

	gs.handleMessage(judge, ClientMessage{Type: "create_room", Name: "Judge1"})
	ack := lastAck(t, drain(judge))
	require.True(t, ack.OK)
	require.Len(t, ack.Code, roomCodeLength)
	code := ack.Code

	// Room codes are case-insensitive on the wire.
	gs.handleMessage(cand1, ClientMessage{Type: "join_room", Name: "Cand1", Code: code})
	gs.handleMessage(cand2, ClientMessage{Type: "join_room", Name: "Cand2", Code: strings.ToLower(code)})

	msgs := drain(cand2)
	require.True(t, lastAck(t, msgs).OK)
	view := lastState(msgs)
	require.NotNil(t, view)
	assert.Equal(t, PhaseLobby, view.Phase)
	assert.Len(t, view.Players, 3)

	gs.handleMessage(judge, ClientMessage{Type: "start_game", Code: code})

	judgeMsgs := drain(judge)
	require.True(t, lastAck(t, judgeMsgs).OK)
	judgeView := lastState(judgeMsgs)
	require.NotNil(t, judgeView)
	assert.Equal(t, PhaseSelfPositioning, judgeView.Phase)
	for _, p := range judgeView.Players {
		assert.Nil(t, p.Hand, "judge's broadcast leaked %s's hand", p.Name)
	}

	candView := lastState(drain(cand1))
	require.NotNil(t, candView)
	var own *ViewPlayer
	for i := range candView.Players {
		if candView.Players[i].Name == "Cand1" {
			own = &candView.Players[i]
		}
	}
	require.NotNil(t, own)
	assert.Len(t, own.Hand, handSize)
}

func TestHandleMessageRejections(t *testing.T) {
	gs := newTestServer()
	judge := fakeClient(gs, "conn-j")

	gs.handleMessage(judge, ClientMessage{Type: "create_room", Name: "Judge1"})
	code := lastAck(t, drain(judge)).Code

	t.Run("finish_pitch requires an expected index", func(t *testing.T) {
		gs.handleMessage(judge, ClientMessage{Type: "finish_pitch", Code: code})
		ack := lastAck(t, drain(judge))
		assert.False(t, ack.OK)
		assert.NotEmpty(t, ack.Error)
	})

	t.Run("failed action acks without broadcasting", func(t *testing.T) {
		gs.handleMessage(judge, ClientMessage{Type: "start_game", Code: code})
		msgs := drain(judge)
		ack := lastAck(t, msgs)
		assert.False(t, ack.OK)
		assert.Nil(t, lastState(msgs))
	})

	t.Run("unknown message types are ignored", func(t *testing.T) {
		gs.handleMessage(judge, ClientMessage{Type: "self_destruct"})
		assert.Empty(t, drain(judge))
	})
}

func TestHandleMessageDissolve(t *testing.T) {
	gs := newTestServer()
	judge := fakeClient(gs, "conn-j")
	cand := fakeClient(gs, "conn-c1")

	gs.handleMessage(judge, ClientMessage{Type: "create_room", Name: "Judge1"})
	code := lastAck(t, drain(judge)).Code
	gs.handleMessage(cand, ClientMessage{Type: "join_room", Name: "Cand1", Code: code})
	drain(cand)

	// leave_room with no name resolves the sender's own identity.
	gs.handleMessage(judge, ClientMessage{Type: "leave_room", Code: code})

	candMsgs := drain(cand)
	var sawDissolve bool
	for _, msg := range candMsgs {
		if d, ok := msg.(RoomDissolvedMessage); ok {
			sawDissolve = true
			assert.Equal(t, code, d.Code)
		}
	}
	assert.True(t, sawDissolve, "candidate never told the room dissolved")
	assert.Nil(t, gs.game.Store().Get(code))
}

func TestPushAfterUnregister(t *testing.T) {
	gs := newTestServer()
	judge := fakeClient(gs, "conn-j")
	dropped := fakeClient(gs, "conn-d")

	gs.handleMessage(judge, ClientMessage{Type: "create_room", Name: "Judge1"})
	code := lastAck(t, drain(judge)).Code
	gs.handleMessage(dropped, ClientMessage{Type: "join_room", Name: "Cand1", Code: code})
	drain(dropped)

	// The client's socket dies and its read loop tears it down; a fanout
	// that already held the client reference must drop the message, not
	// send on the closed channel.
	gs.unregister(dropped)

	assert.NotPanics(t, func() {
		gs.push(dropped, AckMessage{Type: "ack"})
	})
	assert.NotPanics(t, func() {
		room := gs.game.Store().Get(code)
		require.NotNil(t, room)
		gs.broadcast(room)
	})

	// The fanout still reaches the remaining members.
	assert.NotNil(t, lastState(drain(judge)))
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{ErrRoomNotFound, "Room not found."},
		{ErrGameInProgress, "That game has already started."},
		{ErrNameTaken, "That name is already taken in this room."},
		{ErrUnknownPlayer, "You are not a player in this room."},
		{ErrNotAllowed, "You can't do that right now."},
		{ErrBadPayload, "The server rejected that submission."},
		{assert.AnError, "Something went wrong."},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, userMessage(tt.err))
	}
}
