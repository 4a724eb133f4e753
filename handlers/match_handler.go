package handlers

import (
	"errors"
	"net/http"

	"github.com/bracketforge/tournament-engine/services"
)

type MatchHandler struct {
	orchestrator services.TournamentOrchestrator
}

func NewMatchHandler(orchestrator services.TournamentOrchestrator) *MatchHandler {
	return &MatchHandler{orchestrator: orchestrator}
}

// SubmitResult records an externally played result. The orchestrator completes
// the match and advances the round when it was the last one outstanding.
func (h *MatchHandler) SubmitResult(w http.ResponseWriter, r *http.Request) {
	matchID, err := urlParamInt(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input services.MatchResultInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	input.MatchID = matchID

	if len(input.WinnerParticipantIDs) == 0 {
		badRequestResponse(w, r, errors.New("winner_participant_ids is required"))
		return
	}

	m, err := h.orchestrator.ProcessMatchResult(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": m}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
