package handler

import (
	"encoding/json"
	"net/http"

	"opd-room-tracker/internal/converter"
	"opd-room-tracker/internal/delivery/dto"
	"opd-room-tracker/internal/delivery/http/middleware"
	"opd-room-tracker/internal/usecase"
	"opd-room-tracker/pkg/response"
	"opd-room-tracker/pkg/validator"

	"github.com/gorilla/mux"
)

type DoctorRoomHandler struct {
	doctorRoomUsecase usecase.DoctorRoomUsecase
	validator         *validator.CustomValidator
}

func NewDoctorRoomHandler(doctorRoomUsecase usecase.DoctorRoomUsecase, validator *validator.CustomValidator) *DoctorRoomHandler {
	return &DoctorRoomHandler{
		doctorRoomUsecase: doctorRoomUsecase,
		validator:         validator,
	}
}

// SelectRoom sets today's room for the authenticated doctor.
func (h *DoctorRoomHandler) SelectRoom(w http.ResponseWriter, r *http.Request) {
	doctorID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "User not found in context")
		return
	}

	var req dto.SelectRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	doctor, err := h.doctorRoomUsecase.SetRoomForToday(r.Context(), doctorID, req.Room)
	if err != nil {
		writeError(w, err, "Failed to select room")
		return
	}

	response.Success(w, http.StatusOK, "Room selected for today", converter.DoctorToResponse(doctor))
}

func (h *DoctorRoomHandler) GetRoomToday(w http.ResponseWriter, r *http.Request) {
	doctorID, ok := pathID(r, "id")
	if !ok {
		response.Error(w, http.StatusBadRequest, "Invalid doctor ID", nil)
		return
	}

	status, err := h.doctorRoomUsecase.HasRoomToday(r.Context(), doctorID)
	if err != nil {
		writeError(w, err, "Failed to get room status")
		return
	}

	response.Success(w, http.StatusOK, "Room status retrieved successfully", converter.RoomStatusToResponse(doctorID, status))
}

// GetRoomOccupant returns the doctor sitting in the room today; data is null when nobody is.
func (h *DoctorRoomHandler) GetRoomOccupant(w http.ResponseWriter, r *http.Request) {
	doctor, err := h.doctorRoomUsecase.FindDoctorInRoomToday(r.Context(), mux.Vars(r)["identifier"])
	if err != nil {
		writeError(w, err, "Failed to get room occupant")
		return
	}

	response.Success(w, http.StatusOK, "Room occupant retrieved successfully", converter.DoctorToResponse(doctor))
}

func (h *DoctorRoomHandler) ListOccupancyToday(w http.ResponseWriter, r *http.Request) {
	occupancy, err := h.doctorRoomUsecase.ListOccupancyToday(r.Context())
	if err != nil {
		writeError(w, err, "Failed to get occupancy")
		return
	}

	response.Success(w, http.StatusOK, "Occupancy retrieved successfully", converter.OccupancyToResponses(occupancy))
}
