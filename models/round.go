package models

import "time"

// BracketSegment tags which sub-bracket a round belongs to. Single elimination
// populates only SegmentWinner and SegmentFinal; the remaining values exist for
// the double-elimination extension.
type BracketSegment string

const (
	SegmentWinner          BracketSegment = "winner"
	SegmentLoser           BracketSegment = "loser"
	SegmentFinal           BracketSegment = "final"
	SegmentGrandFinal      BracketSegment = "grand_final"
	SegmentGrandFinalReset BracketSegment = "grand_final_reset"
)

type RoundStatus string

const (
	RoundPending   RoundStatus = "pending"
	RoundReady     RoundStatus = "ready"
	RoundActive    RoundStatus = "active"
	RoundCompleted RoundStatus = "completed"
)

// Round belongs to exactly one tournament. RoundNumber is monotonic but not
// necessarily contiguous across bracket segments in multi-bracket formats.
type Round struct {
	ID           int            `json:"id" db:"id"`
	TournamentID int            `json:"tournament_id" db:"tournament_id"`
	RoundNumber  int            `json:"round_number" db:"round_number"`
	Segment      BracketSegment `json:"segment" db:"segment"`
	Name         string         `json:"name" db:"name"`
	Status       RoundStatus    `json:"status" db:"status"`
	StartedAt    *time.Time     `json:"started_at,omitempty" db:"started_at"`
	CompletedAt  *time.Time     `json:"completed_at,omitempty" db:"completed_at"`
	CreatedAt    time.Time      `json:"created_at" db:"created_at"`

	Matches []Match `json:"matches,omitempty" db:"-"`
}

// Complete reports whether every match in the round has been resolved: a true
// bye (exactly one side populated) marked completed, or a regular match with
// both sides populated and marked completed. Computed from match state, never
// from the cached round status.
func (r *Round) Complete() bool {
	if len(r.Matches) == 0 {
		return false
	}
	for i := range r.Matches {
		m := &r.Matches[i]
		if !m.Completed {
			return false
		}
		if !m.Bye() && !m.BothSidesSet() {
			return false
		}
	}
	return true
}
