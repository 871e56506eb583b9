package main

// Session migration: reconciling reconnecting clients with existing room
// membership. Because all game-logic relations are keyed by player name,
// rebinding a connection touches exactly one field on the player (plus the
// room's host reference when the Judge reconnects); targets, pitch order
// and the recorded vote never need rewriting.

// RejoinRoom locates a player by case-insensitive name and rebinds them to a
// new connection identity. Phase, turn order, and every other player are
// left untouched. A GAME_OVER room still rejoins; the caller decides to
// present that as "the game ended while you were away".
func (g *Game) RejoinRoom(code, newConnID, name string) (*Room, error) {
	room := g.store.Get(code)
	if room == nil {
		return nil, ErrRoomNotFound
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	// The room may have been reaped between the lookup and the lock.
	if g.store.Get(code) != room {
		return nil, ErrRoomNotFound
	}

	player := room.playerByNameLocked(name)
	if player == nil {
		return nil, ErrUnknownPlayer
	}

	oldConnID := player.ConnID
	player.ConnID = newConnID
	player.IsConnected = true

	if room.HostConnID == oldConnID {
		room.HostConnID = newConnID
	}

	room.touchLocked()
	return room, nil
}

// LeaveRoom removes the named player. The Judge leaving, or the roster
// emptying, dissolves the room. A candidate leaving mid-game is reconciled
// in place: their slot in the pitch order is dropped, the sabotage cycle is
// re-linked around them, and any now-complete submission set advances the
// phase.
func (g *Game) LeaveRoom(code, name string) (room *Room, dissolved bool, err error) {
	room = g.store.Get(code)
	if room == nil {
		return nil, false, ErrRoomNotFound
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	leaving := room.playerByNameLocked(name)
	if leaving == nil {
		return nil, false, ErrUnknownPlayer
	}

	if leaving.IsJudge {
		g.store.Delete(room.Code)
		return room, true, nil
	}

	dst := room.Players[:0]
	for _, p := range room.Players {
		if p != leaving {
			dst = append(dst, p)
		}
	}
	room.Players = dst

	if len(room.Players) == 0 {
		g.store.Delete(room.Code)
		return room, true, nil
	}

	removeDepartedLocked(room, leaving.Name, leaving.SabotageTarget)
	g.maybeAdvanceLocked(room)
	room.touchLocked()

	return room, false, nil
}

// removeDepartedLocked scrubs name-keyed references to a departed candidate
// so the remainder of the round stays playable without reshuffling anything
// other players have already seen.
func removeDepartedLocked(room *Room, name, departedTarget string) {
	// Re-link the sabotage cycle: the departed player's saboteur inherits
	// their target, unless that would point the saboteur at themselves.
	for _, p := range room.Players {
		if p.SabotageTarget != name {
			continue
		}
		if departedTarget == "" || departedTarget == p.Name {
			p.SabotageTarget = ""
		} else {
			p.SabotageTarget = departedTarget
		}
	}

	// Drop the departed name from the pitch order, shifting the cursor when
	// it sat before an already-finished slot.
	for i, pitcher := range room.PitchOrder {
		if pitcher != name {
			continue
		}
		room.PitchOrder = append(room.PitchOrder[:i], room.PitchOrder[i+1:]...)
		if i < room.CurrentPitcherIndex {
			room.CurrentPitcherIndex--
		}
		break
	}
}

// PlayerDisconnect marks whichever player holds the given connection as
// offline, without removing them; RejoinRoom can bring them back later. The
// caller schedules CleanupRoom after a grace period rather than calling it
// immediately.
func (g *Game) PlayerDisconnect(connID string) *Room {
	for _, room := range g.store.All() {
		room.mu.Lock()

		player := room.playerByConnLocked(connID)
		if player == nil {
			room.mu.Unlock()
			continue
		}

		player.IsConnected = false
		room.touchLocked()
		room.mu.Unlock()

		return room
	}

	return nil
}

// CleanupRoom deletes the room only when every player is still disconnected;
// anyone having reconnected in the interim makes it a no-op. The check and
// the delete happen under one hold of the room lock, so a rejoin either
// lands first (and keeps the room) or finds it gone. Reports whether the
// room was removed.
func (g *Game) CleanupRoom(code string) bool {
	room := g.store.Get(code)
	if room == nil {
		return false
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	for _, p := range room.Players {
		if p.IsConnected {
			return false
		}
	}

	g.store.Delete(code)
	return true
}
