package handlers

import (
	"net/http"

	"github.com/shuttlehq/federation-system/models"
	"github.com/shuttlehq/federation-system/services"
)

type BracketHandler struct {
	bracketService services.BracketService
}

func NewBracketHandler(bs services.BracketService) *BracketHandler {
	return &BracketHandler{bracketService: bs}
}

// BuildHandler handles POST /categories/{categoryID}/bracket
func (h *BracketHandler) BuildHandler(w http.ResponseWriter, r *http.Request) {
	categoryID, err := getIDFromURL(r, "categoryID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input struct {
		Seeds []models.ParticipantRef `json:"seeds"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	bracket, err := h.bracketService.BuildBracket(r.Context(), categoryID, input.Seeds)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"bracket": bracket}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ViewHandler handles GET /brackets/{bracketID}
func (h *BracketHandler) ViewHandler(w http.ResponseWriter, r *http.Request) {
	bracketID, err := getIDFromURL(r, "bracketID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	view, err := h.bracketService.GetBracketView(r.Context(), bracketID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, view, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// EventsHandler handles GET /brackets/{bracketID}/events
func (h *BracketHandler) EventsHandler(w http.ResponseWriter, r *http.Request) {
	bracketID, err := getIDFromURL(r, "bracketID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	eventsList, err := h.bracketService.ListEvents(r.Context(), bracketID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"events": eventsList}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
