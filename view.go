package main

// View projection: per-(room, viewer) redacted snapshots. Hand visibility is
// an explicit lookup over (phase, viewer, subject) rather than inline phase
// conditionals, so the redaction rules stay auditable on their own. Every
// call rebuilds the projection from live room state; nothing here is cached,
// because the rules change wholesale at each phase boundary.

type handTier int

const (
	tierNone   handTier = iota // hand hidden entirely
	tierOwn                    // own dials: labels plus self positions
	tierTarget                 // saboteur's view of the target: labels plus self positions
	tierFull                   // presented hand: labels plus final positions
)

// handVisibility decides what the viewer may see of the subject's hand in
// the room's current phase. The Judge and any post-game viewer never see
// live hands outside the tiers below.
func handVisibility(room *Room, viewer, subject *Player) handTier {
	if subject.IsJudge || subject.Hand == nil {
		return tierNone
	}

	switch room.Phase {
	case PhaseSelfPositioning:
		if viewer == subject {
			return tierOwn
		}

	case PhaseSabotage:
		if !viewer.IsJudge && viewer.SabotageTarget == subject.Name {
			return tierTarget
		}

	case PhasePitching:
		if room.CurrentPitcherIndex < len(room.PitchOrder) &&
			room.PitchOrder[room.CurrentPitcherIndex] == subject.Name {
			return tierFull
		}
		if viewer == subject {
			return tierOwn
		}

	case PhaseVoting:
		if viewer.IsJudge {
			return tierFull
		}
		if viewer == subject {
			return tierOwn
		}
	}

	return tierNone
}

// ViewCard is a hand card after redaction. Position fields are pointers so
// hidden values serialize as absent rather than as a misleading zero.
type ViewCard struct {
	CardID        string `json:"cardId"`
	Label         string `json:"label"`
	SelfPosition  *int   `json:"selfPosition,omitempty"`
	FinalPosition *int   `json:"finalPosition,omitempty"`
}

// ViewPlayer is the public roster entry everyone sees, plus a hand when the
// visibility tier allows one.
type ViewPlayer struct {
	Name                     string     `json:"name"`
	IsJudge                  bool       `json:"isJudge"`
	IsWinner                 bool       `json:"isWinner"`
	IsConnected              bool       `json:"isConnected"`
	SelfPositioningSubmitted bool       `json:"selfPositioningSubmitted"`
	SabotageSubmitted        bool       `json:"sabotageSubmitted"`
	PitchDone                bool       `json:"pitchDone"`
	Hand                     []ViewCard `json:"hand"`
}

// PlayerView is one viewer's redacted snapshot of a room.
type PlayerView struct {
	Code     string       `json:"code"`
	Phase    Phase        `json:"phase"`
	Category CategoryInfo `json:"category"`

	You     string `json:"you"`
	IsJudge bool   `json:"isJudge"`

	Players []ViewPlayer `json:"players"`

	// SABOTAGE only: the viewer's assigned target.
	SabotageTarget string `json:"sabotageTarget,omitempty"`

	// PITCHING onward.
	PitchOrder          []string `json:"pitchOrder,omitempty"`
	CurrentPitcherIndex int      `json:"currentPitcherIndex"`

	// GAME_OVER only.
	JudgeVote   string           `json:"judgeVote,omitempty"`
	SabotageMap []SabotageReveal `json:"sabotageMap,omitempty"`
}

func projectCard(c *Card, tier handTier) ViewCard {
	out := ViewCard{
		CardID: c.CardID,
		Label:  c.Label,
	}

	switch tier {
	case tierOwn, tierTarget:
		self := c.SelfPosition
		out.SelfPosition = &self
	case tierFull:
		final := c.finalOrSelf()
		out.FinalPosition = &final
	}

	return out
}

// GetPlayerView builds a fresh redacted snapshot for the given connection,
// or nil if the room or player is unknown.
func (g *Game) GetPlayerView(code, connID string) *PlayerView {
	room := g.store.Get(code)
	if room == nil {
		return nil
	}

	room.mu.RLock()
	defer room.mu.RUnlock()

	viewer := room.playerByConnLocked(connID)
	if viewer == nil {
		return nil
	}

	info, _ := g.cards.CategoryInfo(room.Category)

	view := &PlayerView{
		Code:                room.Code,
		Phase:               room.Phase,
		Category:            info,
		You:                 viewer.Name,
		IsJudge:             viewer.IsJudge,
		CurrentPitcherIndex: room.CurrentPitcherIndex,
	}

	for _, subject := range room.Players {
		vp := ViewPlayer{
			Name:                     subject.Name,
			IsJudge:                  subject.IsJudge,
			IsWinner:                 subject.IsWinner,
			IsConnected:              subject.IsConnected,
			SelfPositioningSubmitted: subject.SelfPositioningSubmitted,
			SabotageSubmitted:        subject.SabotageSubmitted,
			PitchDone:                subject.PitchDone,
		}

		if tier := handVisibility(room, viewer, subject); tier != tierNone {
			vp.Hand = make([]ViewCard, 0, len(subject.Hand))
			for _, c := range subject.Hand {
				vp.Hand = append(vp.Hand, projectCard(c, tier))
			}
		}

		view.Players = append(view.Players, vp)
	}

	if room.Phase == PhaseSabotage && !viewer.IsJudge {
		view.SabotageTarget = viewer.SabotageTarget
	}

	if room.Phase == PhasePitching || room.Phase == PhaseVoting {
		view.PitchOrder = append([]string(nil), room.PitchOrder...)
	}

	if room.Phase == PhaseGameOver {
		view.JudgeVote = room.JudgeVote
		view.SabotageMap = room.SabotageMap
	}

	return view
}
