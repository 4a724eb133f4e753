package brackets

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/bracketforge/tournament-engine/models"
)

// SingleEliminationEngine implements the classic knockout format. Byes for a
// non-power-of-two field go to the top seeds in seed order, so strength is not
// penalized by bracket irregularity.
type SingleEliminationEngine struct {
	logger *slog.Logger
}

func NewSingleEliminationEngine(logger *slog.Logger) *SingleEliminationEngine {
	return &SingleEliminationEngine{logger: logger}
}

func (e *SingleEliminationEngine) Format() models.TournamentFormat {
	return models.FormatSingleElimination
}

func (e *SingleEliminationEngine) CalculateTotalRounds(participantCount int) (int, error) {
	if participantCount < models.MinParticipants {
		return 0, fmt.Errorf("%w: got %d, need at least %d", ErrNotEnoughParticipants, participantCount, models.MinParticipants)
	}
	rounds := 0
	for (1 << rounds) < participantCount {
		rounds++
	}
	return rounds, nil
}

func (e *SingleEliminationEngine) ValidateConfiguration(t *models.Tournament, participantCount int) error {
	if t.Format != models.FormatSingleElimination {
		return fmt.Errorf("%w: tournament declares %q", ErrFormatMismatch, t.Format)
	}
	if participantCount < models.MinParticipants || participantCount > models.MaxParticipants {
		return fmt.Errorf("%w: got %d, supported %d..%d",
			ErrParticipantCountRange, participantCount, models.MinParticipants, models.MaxParticipants)
	}
	return nil
}

func (e *SingleEliminationEngine) GenerateInitialBracket(ctx context.Context, t *models.Tournament, seeded []*models.Participant) ([]*models.Round, error) {
	n := len(seeded)
	totalRounds, err := e.CalculateTotalRounds(n)
	if err != nil {
		return nil, err
	}

	bySeed := make([]*models.Participant, n)
	copy(bySeed, seeded)
	sort.SliceStable(bySeed, func(i, j int) bool {
		return bySeed[i].Seed < bySeed[j].Seed
	})

	bracketSize := 1 << totalRounds
	byes := bracketSize - n

	e.logger.Info("generating initial bracket",
		slog.Int("tournament_id", t.ID),
		slog.Int("participants", n),
		slog.Int("total_rounds", totalRounds),
		slog.Int("bracket_size", bracketSize),
		slog.Int("byes", byes))

	segment := models.SegmentWinner
	if totalRounds == 1 {
		segment = models.SegmentFinal
	}
	round := &models.Round{
		TournamentID: t.ID,
		RoundNumber:  1,
		Segment:      segment,
		Name:         RoundName(totalRounds, 1),
		Status:       models.RoundReady,
	}

	position := 0

	// Top seeds skip round one. Bye matches are stored already completed so
	// round-completion scans treat them uniformly with played matches.
	for i := 0; i < byes; i++ {
		p := bySeed[i]
		position++
		round.Matches = append(round.Matches, models.Match{
			TournamentID: t.ID,
			DisplayID:    matchDisplayID(1, position),
			Position:     position,
			Team1:        []int64{int64(p.ID)},
			Team1Seed:    intPtr(p.Seed),
			IsBye:        true,
			Completed:    true,
			Winners:      []int64{int64(p.ID)},
		})
	}

	// The remainder pairs first against last, which collapses to the seed k
	// vs 2n+1-k rule when the field is a full power of two.
	rest := bySeed[byes:]
	for i := 0; i < len(rest)/2; i++ {
		top, bottom := rest[i], rest[len(rest)-1-i]
		position++
		round.Matches = append(round.Matches, models.Match{
			TournamentID: t.ID,
			DisplayID:    matchDisplayID(1, position),
			Position:     position,
			Team1:        []int64{int64(top.ID)},
			Team2:        []int64{int64(bottom.ID)},
			Team1Seed:    intPtr(top.Seed),
			Team2Seed:    intPtr(bottom.Seed),
		})
	}

	return []*models.Round{round}, nil
}

func (e *SingleEliminationEngine) GenerateNextRound(ctx context.Context, t *models.Tournament, completedRound *models.Round, currentParticipants []*models.Participant) ([]*models.Round, error) {
	byID := make(map[int64]*models.Participant, len(currentParticipants))
	for _, p := range currentParticipants {
		byID[int64(p.ID)] = p
	}

	var winners []*models.Participant
	for i := range completedRound.Matches {
		m := &completedRound.Matches[i]
		if !m.Completed || len(m.Winners) == 0 {
			continue
		}
		for _, id := range m.Winners {
			p, ok := byID[id]
			if !ok {
				return nil, fmt.Errorf("winner participant %d of match %s not among current participants", id, m.DisplayID)
			}
			winners = append(winners, p)
		}
	}

	if len(winners) < 2 {
		// Single winner: the tournament is decided. The caller checks
		// IsTournamentComplete; status is not flipped here.
		return nil, nil
	}

	nextNumber := completedRound.RoundNumber + 1
	segment := models.SegmentWinner
	if len(winners) == 2 {
		segment = models.SegmentFinal
	}
	round := &models.Round{
		TournamentID: t.ID,
		RoundNumber:  nextNumber,
		Segment:      segment,
		Name:         RoundName(t.TotalRounds, nextNumber),
		Status:       models.RoundReady,
	}

	// With re-seeding on, fresh seeds restore the first-vs-last balance;
	// otherwise winners pair sequentially in bracket order.
	if t.ReseedEachRound {
		sort.SliceStable(winners, func(i, j int) bool {
			return winners[i].Seed < winners[j].Seed
		})
		winners = interleaveTopBottom(winners)
	}

	position := 0
	for i := 0; i+1 < len(winners); i += 2 {
		a, b := winners[i], winners[i+1]
		position++
		round.Matches = append(round.Matches, models.Match{
			TournamentID: t.ID,
			DisplayID:    matchDisplayID(nextNumber, position),
			Position:     position,
			Team1:        []int64{int64(a.ID)},
			Team2:        []int64{int64(b.ID)},
			Team1Seed:    intPtr(a.Seed),
			Team2Seed:    intPtr(b.Seed),
		})
	}

	// An odd winner count should not occur once byes are accounted for. If it
	// does, the trailing winner advances on a bye.
	if len(winners)%2 != 0 {
		last := winners[len(winners)-1]
		position++
		round.Matches = append(round.Matches, models.Match{
			TournamentID: t.ID,
			DisplayID:    matchDisplayID(nextNumber, position),
			Position:     position,
			Team1:        []int64{int64(last.ID)},
			Team1Seed:    intPtr(last.Seed),
			IsBye:        true,
			Completed:    true,
			Winners:      []int64{int64(last.ID)},
		})
		e.logger.Warn("odd winner count after round, granting trailing bye",
			slog.Int("tournament_id", t.ID),
			slog.Int("round", completedRound.RoundNumber),
			slog.Int("winners", len(winners)))
	}

	return []*models.Round{round}, nil
}

func (e *SingleEliminationEngine) IsTournamentComplete(t *models.Tournament, rounds []*models.Round) bool {
	final := highestRound(rounds)
	if final == nil || final.Segment != models.SegmentFinal {
		return false
	}
	for i := range final.Matches {
		m := &final.Matches[i]
		if m.Completed && len(m.Winners) > 0 {
			return true
		}
	}
	return false
}

func (e *SingleEliminationEngine) TournamentWinners(rounds []*models.Round) []int64 {
	if m := decidedFinalMatch(rounds); m != nil {
		return m.Winners
	}
	return nil
}

func (e *SingleEliminationEngine) TournamentRunnersUp(rounds []*models.Round) []int64 {
	if m := decidedFinalMatch(rounds); m != nil {
		return m.Losers
	}
	return nil
}

// HandleParticipantDropout is a deliberate no-op for single elimination: the
// participant is flagged eliminated by the orchestrator and future pairings
// resolve naturally through walkover results. See DESIGN.md for the policy.
func (e *SingleEliminationEngine) HandleParticipantDropout(ctx context.Context, t *models.Tournament, rounds []*models.Round, participantID int64) error {
	e.logger.Info("participant dropout, bracket left untouched",
		slog.Int("tournament_id", t.ID),
		slog.Int64("participant_id", participantID))
	return nil
}

func decidedFinalMatch(rounds []*models.Round) *models.Match {
	final := highestRound(rounds)
	if final == nil || final.Segment != models.SegmentFinal {
		return nil
	}
	for i := range final.Matches {
		m := &final.Matches[i]
		if m.Completed && len(m.Winners) > 0 {
			return m
		}
	}
	return nil
}

func highestRound(rounds []*models.Round) *models.Round {
	var top *models.Round
	for _, r := range rounds {
		if top == nil || r.RoundNumber > top.RoundNumber {
			top = r
		}
	}
	return top
}

// interleaveTopBottom reorders a seed-sorted slice into pairing order:
// first vs last, second vs second-to-last, and so on. An odd middle element
// lands at the end, where it receives the trailing bye.
func interleaveTopBottom(ps []*models.Participant) []*models.Participant {
	ordered := make([]*models.Participant, 0, len(ps))
	for i, j := 0, len(ps)-1; i <= j; i, j = i+1, j-1 {
		ordered = append(ordered, ps[i])
		if i != j {
			ordered = append(ordered, ps[j])
		}
	}
	return ordered
}

func matchDisplayID(round, position int) string {
	return fmt.Sprintf("R%d-M%d", round, position)
}

func intPtr(v int) *int { return &v }
