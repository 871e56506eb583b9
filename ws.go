package main

import (
	"errors"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
)

// Messages coming from clients
type ClientMessage struct {
	Type          string         `json:"type"`                    // action name
	Name          string         `json:"name,omitempty"`          // create_room / join_room / rejoin_room
	Code          string         `json:"code,omitempty"`          // everything after create_room
	Category      string         `json:"category,omitempty"`      // create_room
	Positions     map[string]int `json:"positions,omitempty"`     // submit_self_positioning: cardId -> position
	Deltas        map[string]int `json:"deltas,omitempty"`        // submit_sabotage: cardId -> delta
	ExpectedIndex *int           `json:"expectedIndex,omitempty"` // finish_pitch
	VotedFor      string         `json:"votedFor,omitempty"`      // submit_vote
}

// AckMessage answers exactly one client action.
type AckMessage struct {
	Type   string `json:"type"` // "ack"
	Action string `json:"action"`
	OK     bool   `json:"ok"`
	Code   string `json:"code,omitempty"`
	Error  string `json:"error,omitempty"`
}

// RoomStateMessage carries one viewer's fresh projection; pushed to every
// member after any successful mutation. This is the only state-sync path;
// clients replace, never merge.
type RoomStateMessage struct {
	Type string      `json:"type"` // "room_state"
	View *PlayerView `json:"view"`
}

// GameEndedMessage tells a rejoining client the game finished while they
// were away.
type GameEndedMessage struct {
	Type string `json:"type"` // "game_ended"
	Code string `json:"code"`
}

// RoomDissolvedMessage is terminal: the client should discard all local
// session state for this room.
type RoomDissolvedMessage struct {
	Type string `json:"type"` // "room_dissolved"
	Code string `json:"code"`
}

type Client struct {
	conn   *websocket.Conn
	send   chan any
	connID string
}

// GameServer adapts the websocket transport onto the room state machine:
// it owns the connection registry and the per-viewer fanout, and nothing
// else; all validation lives in Game.
type GameServer struct {
	cfg  *Config
	game *Game

	mu      sync.RWMutex
	clients map[string]*Client // connID -> client
}

func newGameServer(cfg *Config, game *Game) *GameServer {
	gs := &GameServer{
		cfg:     cfg,
		game:    game,
		clients: make(map[string]*Client),
	}
	if cfg.sessionTimeout > 0 {
		go gs.reaperLoop()
	}
	return gs
}

func (gs *GameServer) register(c *Client) {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	gs.clients[c.connID] = c
}

func (gs *GameServer) unregister(c *Client) {
	gs.mu.Lock()
	defer gs.mu.Unlock()

	if _, ok := gs.clients[c.connID]; ok {
		delete(gs.clients, c.connID)
		close(c.send)
	}
}

func (gs *GameServer) clientByConn(connID string) *Client {
	gs.mu.RLock()
	defer gs.mu.RUnlock()
	return gs.clients[connID]
}

// push sends without blocking. The send happens under the registry read
// lock, after confirming the client is still registered: unregister closes
// the channel only under the write lock, so a registered client cannot have
// a closed channel. A stuffed send buffer drops the client, same as a dead
// socket.
func (gs *GameServer) push(c *Client, msg any) {
	gs.mu.RLock()
	if gs.clients[c.connID] != c {
		gs.mu.RUnlock()
		return
	}

	select {
	case c.send <- msg:
		gs.mu.RUnlock()
		return
	default:
	}
	gs.mu.RUnlock()

	gs.unregister(c)
	_ = c.conn.Close()
}

// broadcast fans a fresh per-viewer projection out to every connected
// member of the room.
func (gs *GameServer) broadcast(room *Room) {
	room.mu.RLock()
	connIDs := make([]string, 0, len(room.Players))
	for _, p := range room.Players {
		if p.IsConnected && p.ConnID != "" {
			connIDs = append(connIDs, p.ConnID)
		}
	}
	code := room.Code
	room.mu.RUnlock()

	for _, connID := range connIDs {
		client := gs.clientByConn(connID)
		if client == nil {
			continue
		}
		if view := gs.game.GetPlayerView(code, connID); view != nil {
			gs.push(client, RoomStateMessage{Type: "room_state", View: view})
		}
	}
}

// notifyDissolved reaches members directly, since the room is already gone
// from the registry and no projection can be built for it.
func (gs *GameServer) notifyDissolved(room *Room) {
	room.mu.RLock()
	connIDs := make([]string, 0, len(room.Players))
	for _, p := range room.Players {
		if p.ConnID != "" {
			connIDs = append(connIDs, p.ConnID)
		}
	}
	code := room.Code
	room.mu.RUnlock()

	for _, connID := range connIDs {
		if client := gs.clientByConn(connID); client != nil {
			gs.push(client, RoomDissolvedMessage{Type: "room_dissolved", Code: code})
		}
	}
}

// userMessage maps state-machine rejections onto client-facing copy.
func userMessage(err error) string {
	switch {
	case errors.Is(err, ErrRoomNotFound):
		return "Room not found."
	case errors.Is(err, ErrGameInProgress):
		return "That game has already started."
	case errors.Is(err, ErrNameTaken):
		return "That name is already taken in this room."
	case errors.Is(err, ErrUnknownPlayer):
		return "You are not a player in this room."
	case errors.Is(err, ErrNotAllowed):
		return "You can't do that right now."
	case errors.Is(err, ErrBadPayload):
		return "The server rejected that submission."
	default:
		return "Something went wrong."
	}
}

func (gs *GameServer) handleMessage(c *Client, msg ClientMessage) {
	ack := AckMessage{Type: "ack", Action: msg.Type}
	code := strings.ToUpper(strings.TrimSpace(msg.Code))

	var (
		room      *Room
		dissolved bool
		err       error
	)

	switch msg.Type {
	case "create_room":
		category := msg.Category
		if category == "" {
			category = "startup"
		}
		room, err = gs.game.CreateRoom(c.connID, msg.Name, category)
		if err == nil {
			ack.Code = room.Code
			logf(gs.cfg, "ROOMS: %q created room %s", msg.Name, room.Code)
		}

	case "join_room":
		room, err = gs.game.JoinRoom(code, c.connID, msg.Name)
		if err == nil {
			ack.Code = code
			logf(gs.cfg, "ROOMS: %q joined room %s", msg.Name, code)
		}

	case "rejoin_room":
		room, err = gs.game.RejoinRoom(code, c.connID, msg.Name)
		if err == nil {
			ack.Code = code
			logf(gs.cfg, "ROOMS: %q rejoined room %s", msg.Name, code)
		}

	case "leave_room":
		name := msg.Name
		if name == "" {
			if view := gs.game.GetPlayerView(code, c.connID); view != nil {
				name = view.You
			}
		}
		room, dissolved, err = gs.game.LeaveRoom(code, name)
		if err == nil && dissolved {
			logf(gs.cfg, "ROOMS: Room %s dissolved", code)
		}

	case "start_game":
		room, err = gs.game.StartGame(code, c.connID)

	case "submit_self_positioning":
		room, err = gs.game.SubmitSelfPositioning(code, c.connID, msg.Positions)

	case "submit_sabotage":
		room, err = gs.game.SubmitSabotage(code, c.connID, msg.Deltas)

	case "finish_pitch":
		if msg.ExpectedIndex == nil {
			err = ErrBadPayload
		} else {
			room, err = gs.game.FinishPitch(code, c.connID, *msg.ExpectedIndex)
		}

	case "submit_vote":
		room, err = gs.game.SubmitVote(code, c.connID, msg.VotedFor)

	default:
		// ignore unknown types
		return
	}

	if err != nil {
		ack.Error = userMessage(err)
		gs.push(c, ack)
		return
	}

	ack.OK = true
	gs.push(c, ack)

	if room == nil {
		return
	}

	if dissolved {
		gs.notifyDissolved(room)
		return
	}

	if msg.Type == "rejoin_room" && room.Phase == PhaseGameOver {
		gs.push(c, GameEndedMessage{Type: "game_ended", Code: room.Code})
	}

	gs.broadcast(room)
}

func (gs *GameServer) handleDisconnect(c *Client) {
	room := gs.game.PlayerDisconnect(c.connID)
	if room == nil {
		return
	}

	gs.broadcast(room)

	// Delayed cleanup tolerates transient drops; CleanupRoom no-ops if
	// anyone reconnected in the meantime.
	code := room.Code
	time.AfterFunc(gs.cfg.reconnectGrace, func() {
		if gs.game.CleanupRoom(code) {
			logf(gs.cfg, "ROOMS: Reaped abandoned room %s", code)
		}
	})
}

// reaperLoop dissolves rooms idle past the session timeout regardless of
// connection state.
func (gs *GameServer) reaperLoop() {
	ticker := time.NewTicker(gs.cfg.sessionTimeout / 2)
	for range ticker.C {
		cutoff := time.Now().Add(-gs.cfg.sessionTimeout)

		for _, room := range gs.game.Store().All() {
			room.mu.RLock()
			last := room.lastActive
			room.mu.RUnlock()

			if last.Before(cutoff) {
				gs.game.Store().Delete(room.Code)
				logf(gs.cfg, "ROOMS: Reaped idle room %s", room.Code)
				gs.notifyDissolved(room)
			}
		}
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func (gs *GameServer) serveWS() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Println("upgrade error:", err)
			return
		}

		client := &Client{
			conn:   conn,
			send:   make(chan any, 8),
			connID: uuid.NewString(),
		}

		gs.register(client)

		go client.writePump()
		client.readPump(gs)
	}
}

func (c *Client) readPump(gs *GameServer) {
	defer func() {
		gs.unregister(c)
		_ = c.conn.Close()
		gs.handleDisconnect(c)
	}()

	for {
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}

		gs.handleMessage(c, msg)
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

// QR handler: generates a PNG QR code pointing at the join URL for a room.
func qrHandler(cfg *Config) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		code := ps.ByName("code")
		if code == "" {
			http.Error(w, "missing room code", http.StatusBadRequest)
			return
		}

		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
			scheme = proto
		}

		url := scheme + "://" + r.Host + cfg.prefix + "/?room=" + strings.ToUpper(code)

		const qrSize = 320 // mobile-friendly size
		png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
		if err != nil {
			http.Error(w, "qr generation failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(png)
	}
}
