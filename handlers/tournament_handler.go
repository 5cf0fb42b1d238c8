package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Dosada05/tournament-engine/models"
	"github.com/Dosada05/tournament-engine/services"
)

type TournamentHandler struct {
	tournamentService services.TournamentService
	scheduleService   services.ScheduleService
	adminService      services.AdminService
}

func NewTournamentHandler(
	ts services.TournamentService,
	ss services.ScheduleService,
	as services.AdminService,
) *TournamentHandler {
	return &TournamentHandler{
		tournamentService: ts,
		scheduleService:   ss,
		adminService:      as,
	}
}

// CreateTournamentInput — декларативный документ турнира плюс посев.
type CreateTournamentInput struct {
	Document string   `json:"document"`
	Seeding  []string `json:"seeding"`
}

// CreateHandler обрабатывает POST /tournaments
func (h *TournamentHandler) CreateHandler(w http.ResponseWriter, r *http.Request) {
	var input CreateTournamentInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	structure, err := h.tournamentService.Create(r.Context(), input.Document, input.Seeding)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"tournament": structure}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListHandler обрабатывает GET /tournaments
func (h *TournamentHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	names, err := h.tournamentService.ListNames(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournaments": names}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetHandler обрабатывает GET /tournaments/{name}
func (h *TournamentHandler) GetHandler(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	structure, err := h.tournamentService.GetStructure(r.Context(), name)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournament": structure}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// DeleteHandler обрабатывает DELETE /tournaments/{name}
func (h *TournamentHandler) DeleteHandler(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := h.adminService.DeleteTournament(r.Context(), name); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MatchesHandler обрабатывает GET /tournaments/{name}/matches
func (h *TournamentHandler) MatchesHandler(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	resp, err := h.scheduleService.NextMatches(r.Context(), name)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, resp, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// StandingsHandler обрабатывает GET /tournaments/{name}/standings
func (h *TournamentHandler) StandingsHandler(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	ranking, err := h.scheduleService.CurrentStandings(r.Context(), name)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"standings": ranking}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// StandingsHistoryHandler обрабатывает GET /tournaments/{name}/standings/history
func (h *TournamentHandler) StandingsHistoryHandler(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	history, err := h.scheduleService.StandingsHistory(r.Context(), name)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"history": history}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// SubmitResultInput — результат матча; идентификатор приходит токеном,
// как его выдал MatchSetup.
type SubmitResultInput struct {
	Token   string    `json:"token"`
	Outcome string    `json:"outcome"`
	Goals   []float64 `json:"goals,omitempty"`
}

// SubmitResultHandler обрабатывает POST /tournaments/{name}/results
func (h *TournamentHandler) SubmitResultHandler(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var input SubmitResultInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	id, err := models.DecodeMatchIdentifier(input.Token)
	if err != nil {
		badRequestResponse(w, r, errors.New("unrecognized match token"))
		return
	}
	result := models.MatchResult{
		ID:      id,
		Outcome: models.MatchOutcome(input.Outcome),
		Goals:   input.Goals,
	}

	if err := h.scheduleService.SubmitResult(r.Context(), name, result); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusAccepted, jsonResponse{"status": "accepted"}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// AppendActionHandler обрабатывает POST /tournaments/{name}/actions
func (h *TournamentHandler) AppendActionHandler(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var input struct {
		Action string `json:"action"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	action, err := models.DecodeAdminAction(input.Action)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	position, err := h.adminService.AppendAction(r.Context(), name, action)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusCreated, jsonResponse{"position": position}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListActionsHandler обрабатывает GET /tournaments/{name}/actions
func (h *TournamentHandler) ListActionsHandler(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	actions, err := h.adminService.ListActions(r.Context(), name)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	tokens := make([]string, len(actions))
	for i, a := range actions {
		tokens[i] = a.Encode()
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"actions": tokens}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
