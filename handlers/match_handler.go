package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/shuttlehq/federation-system/middleware"
	"github.com/shuttlehq/federation-system/models"
	"github.com/shuttlehq/federation-system/services"
)

type MatchHandler struct {
	matchService services.MatchService
}

func NewMatchHandler(ms services.MatchService) *MatchHandler {
	return &MatchHandler{matchService: ms}
}

// GetHandler handles GET /matches/{matchID}
func (h *MatchHandler) GetHandler(w http.ResponseWriter, r *http.Request) {
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.matchService.GetMatch(r.Context(), matchID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// SubmitScoreHandler handles POST /matches/{matchID}/score
func (h *MatchHandler) SubmitScoreHandler(w http.ResponseWriter, r *http.Request) {
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	submittedBy, err := middleware.GetSubmitterFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required to submit a score")
		return
	}

	var input struct {
		Sets       []models.SetScore `json:"sets"`
		Correction bool              `json:"correction"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	result, err := h.matchService.SubmitScore(r.Context(), matchID, models.Score{Sets: input.Sets}, submittedBy, input.Correction)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, result, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// StartHandler handles POST /matches/{matchID}/start
func (h *MatchHandler) StartHandler(w http.ResponseWriter, r *http.Request) {
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	result, err := h.matchService.StartMatch(r.Context(), matchID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, result, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ForfeitHandler handles POST /matches/{matchID}/forfeit
func (h *MatchHandler) ForfeitHandler(w http.ResponseWriter, r *http.Request) {
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	submittedBy, err := middleware.GetSubmitterFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required to record a forfeit")
		return
	}

	var input struct {
		Side   string `json:"side"`
		Reason string `json:"reason"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	side, err := parseForfeitSide(input.Side)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	result, err := h.matchService.Forfeit(r.Context(), matchID, side, input.Reason, submittedBy)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, result, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// PostponeHandler handles POST /matches/{matchID}/postpone
func (h *MatchHandler) PostponeHandler(w http.ResponseWriter, r *http.Request) {
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	result, err := h.matchService.Postpone(r.Context(), matchID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, result, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// RescheduleHandler handles POST /matches/{matchID}/reschedule
func (h *MatchHandler) RescheduleHandler(w http.ResponseWriter, r *http.Request) {
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input struct {
		ScheduledAt time.Time `json:"scheduled_at"`
		CourtID     *string   `json:"court_id"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	result, err := h.matchService.Reschedule(r.Context(), matchID, input.ScheduledAt, input.CourtID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, result, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// CancelHandler handles POST /matches/{matchID}/cancel
func (h *MatchHandler) CancelHandler(w http.ResponseWriter, r *http.Request) {
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	submittedBy, err := middleware.GetSubmitterFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required to cancel a match")
		return
	}

	result, err := h.matchService.Cancel(r.Context(), matchID, submittedBy)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, result, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ResolveSlotHandler handles POST /matches/{matchID}/slots/{slot}
func (h *MatchHandler) ResolveSlotHandler(w http.ResponseWriter, r *http.Request) {
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	slot, err := getIDFromURL(r, "slot")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input struct {
		Participant models.ParticipantRef `json:"participant"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	result, err := h.matchService.ResolveSlot(r.Context(), matchID, slot, input.Participant)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, result, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func parseForfeitSide(side string) (services.ForfeitSide, error) {
	switch side {
	case "a", "A":
		return services.ForfeitSideA, nil
	case "b", "B":
		return services.ForfeitSideB, nil
	case "both":
		return services.ForfeitSideBoth, nil
	default:
		return 0, errors.New("side must be one of: a, b, both")
	}
}
