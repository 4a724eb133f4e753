package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchBye(t *testing.T) {
	tests := []struct {
		name  string
		team1 []int64
		team2 []int64
		want  bool
	}{
		{"only team1 populated", []int64{1}, nil, true},
		{"only team2 populated", nil, []int64{2}, true},
		{"both populated", []int64{1}, []int64{2}, false},
		{"neither populated", nil, nil, false},
		{"doubles side alone", []int64{1, 2}, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &Match{Team1: tt.team1, Team2: tt.team2}
			assert.Equal(t, tt.want, m.Bye())
		})
	}
}

func TestMatchByeIgnoresStoredFlag(t *testing.T) {
	m := &Match{Team1: []int64{1}, Team2: []int64{2}, IsBye: true}
	assert.False(t, m.Bye(), "a match with both slots filled is never a bye")
	assert.True(t, m.BothSidesSet())
}

func TestMatchSideOf(t *testing.T) {
	m := &Match{Team1: []int64{1, 2}, Team2: []int64{3, 4}}

	assert.Equal(t, 1, m.SideOf([]int64{1, 2}))
	assert.Equal(t, 1, m.SideOf([]int64{2, 1}), "order within a side must not matter")
	assert.Equal(t, 2, m.SideOf([]int64{3, 4}))
	assert.Equal(t, 0, m.SideOf([]int64{1, 3}), "a mix of both sides matches neither")
	assert.Equal(t, 0, m.SideOf([]int64{1}))
	assert.Equal(t, 0, m.SideOf(nil))
}

func TestRoundComplete(t *testing.T) {
	played := Match{Team1: []int64{1}, Team2: []int64{2}, Completed: true, Winners: []int64{1}}
	pending := Match{Team1: []int64{3}, Team2: []int64{4}}
	bye := Match{Team1: []int64{5}, IsBye: true, Completed: true, Winners: []int64{5}}
	halfOpen := Match{Team1: []int64{6}, Completed: false}

	tests := []struct {
		name    string
		matches []Match
		want    bool
	}{
		{"no matches", nil, false},
		{"all played", []Match{played, bye}, true},
		{"one pending", []Match{played, pending}, false},
		{"unresolved half-populated match", []Match{played, halfOpen}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &Round{Matches: tt.matches}
			assert.Equal(t, tt.want, r.Complete())
		})
	}
}

func TestTournamentAdvanced(t *testing.T) {
	assert.False(t, (&Tournament{Status: TournamentCreated}).Advanced())
	assert.False(t, (&Tournament{Status: TournamentCancelled}).Advanced())
	assert.True(t, (&Tournament{Status: TournamentReadyToStart}).Advanced())
	assert.True(t, (&Tournament{Status: TournamentInProgress}).Advanced())
	assert.True(t, (&Tournament{Status: TournamentRoundComplete}).Advanced())
	assert.True(t, (&Tournament{Status: TournamentCompleted}).Advanced())
}
