package handler

import (
	"net/http"

	"opd-room-tracker/internal/converter"
	"opd-room-tracker/internal/delivery/dto"
	"opd-room-tracker/internal/usecase"
	"opd-room-tracker/pkg/clock"
	"opd-room-tracker/pkg/response"
)

type VisitHandler struct {
	visitUsecase usecase.VisitUsecase
	clock        clock.Clock
}

func NewVisitHandler(visitUsecase usecase.VisitUsecase, clk clock.Clock) *VisitHandler {
	return &VisitHandler{
		visitUsecase: visitUsecase,
		clock:        clk,
	}
}

func (h *VisitHandler) ListToday(w http.ResponseWriter, r *http.Request) {
	visits, err := h.visitUsecase.ListToday(r.Context())
	if err != nil {
		writeError(w, err, "Failed to get visits")
		return
	}

	response.Success(w, http.StatusOK, "Visits retrieved successfully", dto.VisitListResponse{
		Date:   clock.Format(h.clock.Today()),
		Visits: converter.VisitsToResponses(visits),
		Total:  len(visits),
	})
}

func (h *VisitHandler) AutoComplete(w http.ResponseWriter, r *http.Request) {
	n, err := h.visitUsecase.AutoCompleteStale(r.Context())
	if err != nil {
		writeError(w, err, "Failed to auto-complete visits")
		return
	}

	response.Success(w, http.StatusOK, "Stale visits completed", dto.AutoCompleteResponse{Completed: n})
}
