package main

import (
	"fmt"
	"strings"
)

// Game is the room state machine. Every public operation takes a room code
// plus the acting connection identity, validates against the current phase,
// mutates the room under its write lock, and derives the next phase when the
// last required submission lands. Rejections leave the room untouched.
type Game struct {
	store RoomStore
	cards CardSource
}

func NewGame(store RoomStore, cards CardSource) *Game {
	return &Game{
		store: store,
		cards: cards,
	}
}

func (g *Game) Store() RoomStore {
	return g.store
}

// CreateRoom opens a new room in LOBBY with the creator as its sole Judge.
func (g *Game) CreateRoom(connID, name, category string) (*Room, error) {
	name = strings.TrimSpace(name)
	if name == "" || connID == "" {
		return nil, fmt.Errorf("%w: missing player name", ErrBadPayload)
	}
	if _, ok := g.cards.CategoryInfo(category); !ok {
		return nil, fmt.Errorf("%w: unknown category %q", ErrBadPayload, category)
	}

	room := newRoom(newRoomCode(g.store), category)
	room.HostConnID = connID
	room.Players = append(room.Players, &Player{
		Name:        name,
		ConnID:      connID,
		IsJudge:     true,
		IsConnected: true,
	})

	g.store.Put(room)
	return room, nil
}

// JoinRoom appends a non-Judge player, LOBBY only, unique name required
// (case-insensitive).
func (g *Game) JoinRoom(code, connID, name string) (*Room, error) {
	name = strings.TrimSpace(name)
	if name == "" || connID == "" {
		return nil, fmt.Errorf("%w: missing player name", ErrBadPayload)
	}

	room := g.store.Get(code)
	if room == nil {
		return nil, ErrRoomNotFound
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	if room.Phase != PhaseLobby {
		return nil, ErrGameInProgress
	}
	if room.playerByNameLocked(name) != nil {
		return nil, ErrNameTaken
	}

	room.Players = append(room.Players, &Player{
		Name:        name,
		ConnID:      connID,
		IsConnected: true,
	})
	room.touchLocked()

	return room, nil
}

// StartGame deals every candidate a fresh hand and moves the room into
// SELF_POSITIONING. Judge only, LOBBY only, at least two candidates.
func (g *Game) StartGame(code, connID string) (*Room, error) {
	room := g.store.Get(code)
	if room == nil {
		return nil, ErrRoomNotFound
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	if room.Phase != PhaseLobby {
		return nil, fmt.Errorf("%w: game not in lobby", ErrNotAllowed)
	}
	if connID != room.HostConnID {
		return nil, fmt.Errorf("%w: only the judge can start the game", ErrNotAllowed)
	}
	if len(room.Players) < minPlayers {
		return nil, fmt.Errorf("%w: need at least %d players", ErrNotAllowed, minPlayers)
	}

	// Deal all hands before committing any of them, so a card-source
	// failure leaves the room still in LOBBY with no half-dealt state.
	candidates := room.candidatesLocked()
	hands := make([][]*Card, len(candidates))
	for i := range candidates {
		contents, err := g.cards.DealHand(room.Category)
		if err != nil {
			return nil, err
		}
		hand := make([]*Card, 0, handSize)
		for _, c := range contents {
			hand = append(hand, &Card{
				CardID:       c.CardID,
				Label:        c.Label,
				SelfPosition: dialStart,
			})
		}
		hands[i] = hand
	}
	for i, p := range candidates {
		p.Hand = hands[i]
		p.SelfPositioningSubmitted = false
		p.SabotageSubmitted = false
		p.PitchDone = false
	}

	room.Phase = PhaseSelfPositioning
	room.touchLocked()

	return room, nil
}

// SubmitSelfPositioning records a candidate's dial placements. The payload
// must reference exactly the cards in the submitter's hand, each position in
// [dialMin, dialMax]; any violation rejects the whole submission.
func (g *Game) SubmitSelfPositioning(code, connID string, positions map[string]int) (*Room, error) {
	room := g.store.Get(code)
	if room == nil {
		return nil, ErrRoomNotFound
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	if room.Phase != PhaseSelfPositioning {
		return nil, fmt.Errorf("%w: not in self-positioning", ErrNotAllowed)
	}

	player := room.playerByConnLocked(connID)
	if player == nil {
		return nil, ErrUnknownPlayer
	}
	if player.IsJudge {
		return nil, fmt.Errorf("%w: the judge has no dials", ErrNotAllowed)
	}
	if player.SelfPositioningSubmitted {
		return nil, fmt.Errorf("%w: already submitted", ErrNotAllowed)
	}

	// Atomic validation: every card covered, nothing extra, all in range.
	if len(positions) != len(player.Hand) {
		return nil, fmt.Errorf("%w: expected %d positions", ErrBadPayload, len(player.Hand))
	}
	for cardID, pos := range positions {
		if player.cardByID(cardID) == nil {
			return nil, fmt.Errorf("%w: card %q not in hand", ErrBadPayload, cardID)
		}
		if pos < dialMin || pos > dialMax {
			return nil, fmt.Errorf("%w: position %d out of range", ErrBadPayload, pos)
		}
	}

	for cardID, pos := range positions {
		player.cardByID(cardID).SelfPosition = pos
	}
	player.SelfPositioningSubmitted = true
	room.touchLocked()

	g.maybeAdvanceLocked(room)

	return room, nil
}

// SubmitSabotage applies a saboteur's deltas to their target's hand. Deltas
// reference the target's cards, the summed absolute deltas may not exceed
// sabotageBudget, and the whole submission is rejected on any violation.
// Final positions clamp to the dial range; SabotageApplied records what the
// clamp let through.
func (g *Game) SubmitSabotage(code, connID string, deltas map[string]int) (*Room, error) {
	room := g.store.Get(code)
	if room == nil {
		return nil, ErrRoomNotFound
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	if room.Phase != PhaseSabotage {
		return nil, fmt.Errorf("%w: not in sabotage", ErrNotAllowed)
	}

	player := room.playerByConnLocked(connID)
	if player == nil {
		return nil, ErrUnknownPlayer
	}
	if player.IsJudge {
		return nil, fmt.Errorf("%w: the judge does not sabotage", ErrNotAllowed)
	}
	if player.SabotageSubmitted {
		return nil, fmt.Errorf("%w: already submitted", ErrNotAllowed)
	}

	target := room.playerByNameLocked(player.SabotageTarget)
	if target == nil || target.Hand == nil {
		return nil, fmt.Errorf("%w: no sabotage target assigned", ErrNotAllowed)
	}

	budget := 0
	for cardID, delta := range deltas {
		if target.cardByID(cardID) == nil {
			return nil, fmt.Errorf("%w: card %q not in target's hand", ErrBadPayload, cardID)
		}
		if delta < 0 {
			budget -= delta
		} else {
			budget += delta
		}
	}
	if budget > sabotageBudget {
		return nil, fmt.Errorf("%w: sabotage total %d exceeds budget %d", ErrBadPayload, budget, sabotageBudget)
	}

	for cardID, delta := range deltas {
		card := target.cardByID(cardID)
		final := clamp(card.SelfPosition+delta, dialMin, dialMax)
		card.FinalPosition = &final
		card.SabotageApplied = final - card.SelfPosition
	}
	player.SabotageSubmitted = true
	room.touchLocked()

	g.maybeAdvanceLocked(room)

	return room, nil
}

// FinishPitch advances the pitch turn. A stale expectedIndex means another
// request already advanced this turn; that is resolved as an idempotent
// no-op, not an error, so a pitcher and the Judge clicking at the same time
// both succeed.
func (g *Game) FinishPitch(code, connID string, expectedIndex int) (*Room, error) {
	room := g.store.Get(code)
	if room == nil {
		return nil, ErrRoomNotFound
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	if room.Phase != PhasePitching {
		return nil, fmt.Errorf("%w: not in pitching", ErrNotAllowed)
	}

	if expectedIndex != room.CurrentPitcherIndex {
		return room, nil
	}

	player := room.playerByConnLocked(connID)
	if player == nil {
		return nil, ErrUnknownPlayer
	}

	current := room.PitchOrder[room.CurrentPitcherIndex]
	// The Judge may skip any pitcher.
	if !player.IsJudge && !strings.EqualFold(player.Name, current) {
		return nil, fmt.Errorf("%w: not your pitch", ErrNotAllowed)
	}

	if pitcher := room.playerByNameLocked(current); pitcher != nil {
		pitcher.PitchDone = true
	}
	room.CurrentPitcherIndex++
	room.touchLocked()

	if room.CurrentPitcherIndex >= len(room.PitchOrder) {
		room.Phase = PhaseVoting
	}

	return room, nil
}

// SubmitVote is the Judge's single deciding vote: it crowns the winner,
// builds the reveal-only sabotage map, and ends the game.
func (g *Game) SubmitVote(code, connID, votedFor string) (*Room, error) {
	room := g.store.Get(code)
	if room == nil {
		return nil, ErrRoomNotFound
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	if room.Phase != PhaseVoting {
		return nil, fmt.Errorf("%w: not in voting", ErrNotAllowed)
	}

	player := room.playerByConnLocked(connID)
	if player == nil {
		return nil, ErrUnknownPlayer
	}
	if !player.IsJudge {
		return nil, fmt.Errorf("%w: only the judge votes", ErrNotAllowed)
	}

	winner := room.playerByNameLocked(votedFor)
	if winner == nil || winner.IsJudge {
		return nil, fmt.Errorf("%w: %q is not a candidate", ErrBadPayload, votedFor)
	}

	room.JudgeVote = winner.Name
	winner.IsWinner = true
	room.SabotageMap = buildSabotageMapLocked(room)
	room.Phase = PhaseGameOver
	room.touchLocked()

	return room, nil
}

// maybeAdvanceLocked derives the next phase once every candidate has
// submitted for the current one. Also invoked after a mid-game departure,
// which can make the remaining submissions complete.
func (g *Game) maybeAdvanceLocked(room *Room) {
	candidates := room.candidatesLocked()
	if len(candidates) == 0 {
		return
	}

	switch room.Phase {
	case PhaseSelfPositioning:
		for _, p := range candidates {
			if !p.SelfPositioningSubmitted {
				return
			}
		}
		assignSabotageTargetsLocked(room)
		room.Phase = PhaseSabotage

	case PhaseSabotage:
		for _, p := range candidates {
			if !p.SabotageSubmitted {
				return
			}
		}
		names := make([]string, 0, len(candidates))
		for _, p := range candidates {
			names = append(names, p.Name)
		}
		room.PitchOrder = shuffleNames(names)
		room.CurrentPitcherIndex = 0
		room.Phase = PhasePitching

	case PhasePitching:
		if room.CurrentPitcherIndex >= len(room.PitchOrder) {
			room.Phase = PhaseVoting
		}
	}
}

// assignSabotageTargetsLocked builds a fresh derangement over the candidate
// set: shuffle once, then everyone targets the next name in the circle. A
// single cycle guarantees no self-target for two or more candidates.
func assignSabotageTargetsLocked(room *Room) {
	candidates := room.candidatesLocked()
	names := make([]string, 0, len(candidates))
	for _, p := range candidates {
		names = append(names, p.Name)
	}

	shuffled := shuffleNames(names)
	for i, name := range shuffled {
		target := shuffled[(i+1)%len(shuffled)]
		if target == name {
			// Single remaining candidate; leave the target unset.
			continue
		}
		room.playerByNameLocked(name).SabotageTarget = target
	}
}

// buildSabotageMapLocked produces the end-of-game reveal: every candidate's
// full hand with defaulted finals, plus the inverse lookup of who targeted
// them.
func buildSabotageMapLocked(room *Room) []SabotageReveal {
	candidates := room.candidatesLocked()

	saboteurOf := make(map[string]string, len(candidates))
	for _, p := range candidates {
		if p.SabotageTarget != "" {
			saboteurOf[p.SabotageTarget] = p.Name
		}
	}

	reveals := make([]SabotageReveal, 0, len(candidates))
	for _, p := range candidates {
		cards := make([]RevealCard, 0, len(p.Hand))
		for _, c := range p.Hand {
			cards = append(cards, RevealCard{
				CardID:          c.CardID,
				Label:           c.Label,
				SelfPosition:    c.SelfPosition,
				FinalPosition:   c.finalOrSelf(),
				SabotageApplied: c.SabotageApplied,
			})
		}
		reveals = append(reveals, SabotageReveal{
			Target:   p.Name,
			Saboteur: saboteurOf[p.Name],
			Cards:    cards,
		})
	}

	return reveals
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
