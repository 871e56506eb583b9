package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetPlayerViewUnknown(t *testing.T) {
	g := newTestGame()
	room := seatRoom(t, g, "Judge1", "Cand1")

	assert.Nil(t, g.GetPlayerView("ZZZZ", "conn-Judge1"))
	assert.Nil(t, g.GetPlayerView(room.Code, "conn-stranger"))
}

func viewOf(v *PlayerView, name string) ViewPlayer {
	for _, p := range v.Players {
		if p.Name == name {
			return p
		}
	}
	return ViewPlayer{}
}

func TestViewSelfPositioning(t *testing.T) {
	g := newTestGame()
	room := startedRoom(t, g, "Judge1", "Cand1", "Cand2")

	cand1 := g.GetPlayerView(room.Code, "conn-Cand1")
	require.NotNil(t, cand1)
	assert.Equal(t, PhaseSelfPositioning, cand1.Phase)
	assert.Equal(t, "Cand1", cand1.You)
	assert.False(t, cand1.IsJudge)
	assert.Empty(t, cand1.SabotageTarget)
	assert.Empty(t, cand1.PitchOrder)

	own := viewOf(cand1, "Cand1")
	require.Len(t, own.Hand, handSize)
	for _, c := range own.Hand {
		require.NotNil(t, c.SelfPosition)
		assert.Equal(t, dialStart, *c.SelfPosition)
		assert.Nil(t, c.FinalPosition)
	}

	assert.Nil(t, viewOf(cand1, "Cand2").Hand, "another candidate's dials leaked")
	assert.Nil(t, viewOf(cand1, "Judge1").Hand)

	judge := g.GetPlayerView(room.Code, "conn-Judge1")
	require.NotNil(t, judge)
	assert.True(t, judge.IsJudge)
	for _, p := range judge.Players {
		assert.Nil(t, p.Hand, "judge saw %s's dials during self-positioning", p.Name)
	}
}

func TestViewSabotage(t *testing.T) {
	g := newTestGame()
	room := startedRoom(t, g, "Judge1", "Cand1", "Cand2")
	submitAllPositions(t, g, room)

	cand1 := g.GetPlayerView(room.Code, "conn-Cand1")
	require.NotNil(t, cand1)
	assert.Equal(t, PhaseSabotage, cand1.Phase)
	assert.Equal(t, "Cand2", cand1.SabotageTarget)

	// The target's dials are visible at their self positions; nothing else is.
	target := viewOf(cand1, "Cand2")
	require.Len(t, target.Hand, handSize)
	for _, c := range target.Hand {
		require.NotNil(t, c.SelfPosition)
		assert.Nil(t, c.FinalPosition)
	}
	assert.Nil(t, viewOf(cand1, "Cand1").Hand, "own dials are hidden while sabotaging")

	judge := g.GetPlayerView(room.Code, "conn-Judge1")
	require.NotNil(t, judge)
	assert.Empty(t, judge.SabotageTarget)
	for _, p := range judge.Players {
		assert.Nil(t, p.Hand)
	}
}

func TestViewPitching(t *testing.T) {
	g := newTestGame()
	room := startedRoom(t, g, "Judge1", "Cand1", "Cand2")
	submitAllPositions(t, g, room)
	submitZeroSabotage(t, g, room)

	current := room.PitchOrder[0]
	other := room.PitchOrder[1]

	for _, conn := range []string{"conn-Judge1", "conn-Cand1", "conn-Cand2"} {
		v := g.GetPlayerView(room.Code, conn)
		require.NotNil(t, v)
		assert.Equal(t, PhasePitching, v.Phase)
		assert.Equal(t, room.PitchOrder, v.PitchOrder)
		assert.Equal(t, 0, v.CurrentPitcherIndex)

		pitcher := viewOf(v, current)
		require.Len(t, pitcher.Hand, handSize, "%s cannot see the pitch", conn)
		for _, c := range pitcher.Hand {
			require.NotNil(t, c.FinalPosition)
			assert.Nil(t, c.SelfPosition, "pre-sabotage position leaked to %s", conn)
		}
	}

	// The waiting candidate still sees their own dials, but nobody else's.
	waiting := g.GetPlayerView(room.Code, "conn-"+other)
	own := viewOf(waiting, other)
	require.Len(t, own.Hand, handSize)
	for _, c := range own.Hand {
		assert.NotNil(t, c.SelfPosition)
	}

	judge := g.GetPlayerView(room.Code, "conn-Judge1")
	assert.Nil(t, viewOf(judge, other).Hand)
}

func TestViewVoting(t *testing.T) {
	g := newTestGame()
	room := startedRoom(t, g, "Judge1", "Cand1", "Cand2")
	submitAllPositions(t, g, room)
	submitZeroSabotage(t, g, room)
	for i := range room.PitchOrder {
		_, err := g.FinishPitch(room.Code, "conn-Judge1", i)
		require.NoError(t, err)
	}
	require.Equal(t, PhaseVoting, room.Phase)

	judge := g.GetPlayerView(room.Code, "conn-Judge1")
	require.NotNil(t, judge)
	for _, name := range []string{"Cand1", "Cand2"} {
		hand := viewOf(judge, name).Hand
		require.Len(t, hand, handSize)
		for _, c := range hand {
			assert.NotNil(t, c.FinalPosition)
			assert.Nil(t, c.SelfPosition)
		}
	}

	cand1 := g.GetPlayerView(room.Code, "conn-Cand1")
	require.Len(t, viewOf(cand1, "Cand1").Hand, handSize)
	assert.Nil(t, viewOf(cand1, "Cand2").Hand, "rival's dials leaked during voting")
}

func TestViewGameOver(t *testing.T) {
	g := newTestGame()
	room := startedRoom(t, g, "Judge1", "Cand1", "Cand2")
	submitAllPositions(t, g, room)
	submitZeroSabotage(t, g, room)
	for i := range room.PitchOrder {
		_, err := g.FinishPitch(room.Code, "conn-Judge1", i)
		require.NoError(t, err)
	}
	_, err := g.SubmitVote(room.Code, "conn-Judge1", "Cand2")
	require.NoError(t, err)

	for _, conn := range []string{"conn-Judge1", "conn-Cand1", "conn-Cand2"} {
		v := g.GetPlayerView(room.Code, conn)
		require.NotNil(t, v)
		assert.Equal(t, PhaseGameOver, v.Phase)
		assert.Equal(t, "Cand2", v.JudgeVote)
		assert.True(t, viewOf(v, "Cand2").IsWinner)
		require.Len(t, v.SabotageMap, 2)

		// Live hands are gone; the reveal is the only remaining exposure.
		for _, p := range v.Players {
			assert.Nil(t, p.Hand)
		}
	}
}

func TestViewTracksLiveState(t *testing.T) {
	g := newTestGame()
	room := startedRoom(t, g, "Judge1", "Cand1", "Cand2")

	before := g.GetPlayerView(room.Code, "conn-Cand1")
	require.Equal(t, PhaseSelfPositioning, before.Phase)

	submitAllPositions(t, g, room)

	after := g.GetPlayerView(room.Code, "conn-Cand1")
	assert.Equal(t, PhaseSabotage, after.Phase)
	assert.NotEmpty(t, after.SabotageTarget)
	assert.Equal(t, PhaseSelfPositioning, before.Phase, "earlier snapshot mutated")
}
