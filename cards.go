package main

import (
	"fmt"
)

// CardContent is what the card source hands the state machine: an ID plus
// the two spectrum anchors, joined as "Anchor A ↔ Anchor B".
type CardContent struct {
	CardID string `json:"cardId"`
	Label  string `json:"label"`
}

// CategoryInfo is display copy only; the state machine treats it as opaque.
type CategoryInfo struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	LoserMessage string `json:"loserMessage"`
}

// CardSource deals dial-card hands. DealHand returns exactly handSize cards
// with unique IDs within the hand; no uniqueness is promised across hands.
type CardSource interface {
	DealHand(category string) ([]CardContent, error)
	CategoryInfo(category string) (CategoryInfo, bool)
	Categories() []CategoryInfo
}

type builtinCategory struct {
	info    CategoryInfo
	anchors [][2]string
}

var builtinCategories = []builtinCategory{
	{
		info: CategoryInfo{
			ID:           "dating",
			Name:         "Dating Pool",
			LoserMessage: "They said it's not you, it's them. It was you.",
		},
		anchors: [][2]string{
			{"Homebody", "Never home"},
			{"Texts back instantly", "Read at 3am"},
			{"Plans everything", "Wings it"},
			{"Dog person", "Cat person"},
			{"Early bird", "Night owl"},
			{"Saver", "Spender"},
			{"Gym rat", "Couch potato"},
			{"Open book", "Mysterious"},
			{"Romantic", "Practical"},
			{"Tidy", "Creative chaos"},
			{"Small circle", "Knows everyone"},
			{"Street food", "Tasting menu"},
		},
	},
	{
		info: CategoryInfo{
			ID:           "startup",
			Name:         "Startup Team",
			LoserMessage: "The startup pivoted without you.",
		},
		anchors: [][2]string{
			{"Ships fast", "Ships right"},
			{"Visionary", "Operator"},
			{"Remote forever", "Office evangelist"},
			{"Bootstrapper", "Fundraiser"},
			{"Deck person", "Demo person"},
			{"Moves in silence", "Builds in public"},
			{"Data-driven", "Gut-driven"},
			{"Inbox zero", "Inbox 40k"},
			{"Process lover", "Process allergic"},
			{"Coffee", "Kombucha"},
			{"10x engineer", "Team multiplier"},
			{"Meetings all day", "Do-not-disturb"},
		},
	},
	{
		info: CategoryInfo{
			ID:           "rap-group",
			Name:         "Rap Group",
			LoserMessage: "They left you on read.",
		},
		anchors: [][2]string{
			{"Freestyles", "Writes for weeks"},
			{"Hype man", "Stoic"},
			{"Old school", "Hyperpop curious"},
			{"Studio rat", "Tour animal"},
			{"Designer drip", "Thrifted fits"},
			{"Humble", "Main character"},
			{"Mixtape purist", "Streaming numbers"},
			{"Crew loyal", "Solo ambitions"},
			{"Beats first", "Bars first"},
			{"Early to soundcheck", "Arrives with the crowd"},
			{"Vinyl collector", "Phone speaker"},
			{"Hooks", "Verses"},
		},
	},
}

type builtinCardSource struct {
	categories map[string]builtinCategory
	order      []string
}

// NewBuiltinCardSource returns the hardcoded card content shipped with the
// server.
func NewBuiltinCardSource() CardSource {
	src := &builtinCardSource{
		categories: make(map[string]builtinCategory, len(builtinCategories)),
	}
	for _, cat := range builtinCategories {
		src.categories[cat.info.ID] = cat
		src.order = append(src.order, cat.info.ID)
	}
	return src
}

func (s *builtinCardSource) DealHand(category string) ([]CardContent, error) {
	cat, ok := s.categories[category]
	if !ok {
		return nil, fmt.Errorf("%w: unknown category %q", ErrBadPayload, category)
	}

	// Sample handSize distinct spectrums by shuffling the index space.
	idxs := make([]int, len(cat.anchors))
	for i := range idxs {
		idxs[i] = i
	}
	for i := len(idxs) - 1; i > 0; i-- {
		j := randIndex(i + 1)
		idxs[i], idxs[j] = idxs[j], idxs[i]
	}

	hand := make([]CardContent, 0, handSize)
	for _, i := range idxs[:handSize] {
		hand = append(hand, CardContent{
			CardID: fmt.Sprintf("%s_%d", category, i),
			Label:  cat.anchors[i][0] + " ↔ " + cat.anchors[i][1],
		})
	}

	return hand, nil
}

func (s *builtinCardSource) CategoryInfo(category string) (CategoryInfo, bool) {
	cat, ok := s.categories[category]
	return cat.info, ok
}

func (s *builtinCardSource) Categories() []CategoryInfo {
	out := make([]CategoryInfo, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.categories[id].info)
	}
	return out
}
