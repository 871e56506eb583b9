package main

import (
	"strings"
	"sync"
	"time"
)

// Phase is the single live lifecycle state of a room. Transitions are
// strictly forward: LOBBY → SELF_POSITIONING → SABOTAGE → PITCHING →
// VOTING → GAME_OVER, with no branch or rollback.
type Phase string

const (
	PhaseLobby           Phase = "LOBBY"
	PhaseSelfPositioning Phase = "SELF_POSITIONING"
	PhaseSabotage        Phase = "SABOTAGE"
	PhasePitching        Phase = "PITCHING"
	PhaseVoting          Phase = "VOTING"
	PhaseGameOver        Phase = "GAME_OVER"
)

const (
	handSize       = 3
	dialMin        = 0
	dialMax        = 10
	dialStart      = 5
	sabotageBudget = 8
	minPlayers     = 3 // one Judge plus at least two candidates
)

// Card is one dial in a candidate's hand: a spectrum between two anchors
// with an integer position.
type Card struct {
	CardID string `json:"cardId"`
	Label  string `json:"label"`

	// SelfPosition is set by the owning player during SELF_POSITIONING.
	SelfPosition int `json:"selfPosition"`

	// FinalPosition stays nil until a saboteur touches the card; cards the
	// saboteur skips default to SelfPosition at read time.
	FinalPosition *int `json:"finalPosition"`

	// SabotageApplied is the realized delta after clamping, not the
	// requested one.
	SabotageApplied int `json:"sabotageApplied"`
}

// Player is a room member. Name is the stable logical identity; ConnID is
// whatever connection currently speaks for that name and changes across
// reconnects. Every game-logic relation (targets, pitch order, votes) is
// keyed by Name so reconnection never rewrites derived state.
type Player struct {
	Name    string `json:"name"`
	ConnID  string `json:"-"`
	IsJudge bool   `json:"isJudge"`

	Hand           []*Card `json:"-"` // nil until dealt
	SabotageTarget string  `json:"-"` // candidate name, assigned once per game

	SelfPositioningSubmitted bool `json:"selfPositioningSubmitted"`
	SabotageSubmitted        bool `json:"sabotageSubmitted"`
	PitchDone                bool `json:"pitchDone"`
	IsWinner                 bool `json:"isWinner"`
	IsConnected              bool `json:"isConnected"`
}

// RevealCard is a card as exposed in the end-of-game sabotage map, with
// skipped cards already defaulted.
type RevealCard struct {
	CardID          string `json:"cardId"`
	Label           string `json:"label"`
	SelfPosition    int    `json:"selfPosition"`
	FinalPosition   int    `json:"finalPosition"`
	SabotageApplied int    `json:"sabotageApplied"`
}

// SabotageReveal pairs one candidate with whoever sabotaged them.
type SabotageReveal struct {
	Target   string       `json:"target"`
	Saboteur string       `json:"saboteur,omitempty"`
	Cards    []RevealCard `json:"cards"`
}

// Room is the authoritative per-room game state. All reads and mutations
// go through mu; the state machine holds the write lock for the full
// validate → mutate → derive span of each action.
type Room struct {
	mu sync.RWMutex

	Code       string
	Phase      Phase
	HostConnID string
	Category   string

	Players []*Player // insertion order preserved

	PitchOrder          []string // candidate names, shuffled once
	CurrentPitcherIndex int

	JudgeVote   string
	SabotageMap []SabotageReveal // built once at game end, never mutated

	createdAt  time.Time
	lastActive time.Time
}

func newRoom(code, category string) *Room {
	now := time.Now()
	return &Room{
		Code:       code,
		Phase:      PhaseLobby,
		Category:   category,
		createdAt:  now,
		lastActive: now,
	}
}

func (r *Room) touchLocked() {
	r.lastActive = time.Now()
}

// playerByNameLocked matches case-insensitively; names are the stable
// identity and uniqueness is enforced case-insensitively at join time.
func (r *Room) playerByNameLocked(name string) *Player {
	for _, p := range r.Players {
		if strings.EqualFold(p.Name, strings.TrimSpace(name)) {
			return p
		}
	}
	return nil
}

func (r *Room) playerByConnLocked(connID string) *Player {
	for _, p := range r.Players {
		if p.ConnID == connID {
			return p
		}
	}
	return nil
}

func (r *Room) judgeLocked() *Player {
	for _, p := range r.Players {
		if p.IsJudge {
			return p
		}
	}
	return nil
}

func (r *Room) candidatesLocked() []*Player {
	out := make([]*Player, 0, len(r.Players))
	for _, p := range r.Players {
		if !p.IsJudge {
			out = append(out, p)
		}
	}
	return out
}

func (p *Player) cardByID(cardID string) *Card {
	for _, c := range p.Hand {
		if c.CardID == cardID {
			return c
		}
	}
	return nil
}

// finalOrSelf defaults an untouched card to its self position.
func (c *Card) finalOrSelf() int {
	if c.FinalPosition != nil {
		return *c.FinalPosition
	}
	return c.SelfPosition
}

// RoomStore is the injected room registry. Keeping it an interface (rather
// than a package-level map) lets tests run isolated registries side by side.
type RoomStore interface {
	Get(code string) *Room
	Put(room *Room)
	Delete(code string)
	Has(code string) bool
	All() []*Room
}

type memoryStore struct {
	mu    sync.RWMutex
	rooms map[string]*Room
}

// NewMemoryStore returns an empty in-memory RoomStore.
func NewMemoryStore() RoomStore {
	return &memoryStore{
		rooms: make(map[string]*Room),
	}
}

func (s *memoryStore) Get(code string) *Room {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rooms[code]
}

func (s *memoryStore) Put(room *Room) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms[room.Code] = room
}

func (s *memoryStore) Delete(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rooms, code)
}

func (s *memoryStore) Has(code string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.rooms[code]
	return ok
}

func (s *memoryStore) All() []*Room {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Room, 0, len(s.rooms))
	for _, room := range s.rooms {
		out = append(out, room)
	}
	return out
}
