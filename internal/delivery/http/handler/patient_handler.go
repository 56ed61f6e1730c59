package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"opd-room-tracker/internal/converter"
	"opd-room-tracker/internal/delivery/dto"
	"opd-room-tracker/internal/delivery/http/middleware"
	"opd-room-tracker/internal/usecase"
	"opd-room-tracker/pkg/response"
	"opd-room-tracker/pkg/validator"
)

// PatientHandler exposes the per-patient room and visit workflow.
type PatientHandler struct {
	assignmentUsecase usecase.AssignmentUsecase
	visitUsecase      usecase.VisitUsecase
	validator         *validator.CustomValidator
}

func NewPatientHandler(
	assignmentUsecase usecase.AssignmentUsecase,
	visitUsecase usecase.VisitUsecase,
	validator *validator.CustomValidator,
) *PatientHandler {
	return &PatientHandler{
		assignmentUsecase: assignmentUsecase,
		visitUsecase:      visitUsecase,
		validator:         validator,
	}
}

func (h *PatientHandler) AssignPatient(w http.ResponseWriter, r *http.Request) {
	patientID, ok := pathID(r, "id")
	if !ok {
		response.Error(w, http.StatusBadRequest, "Invalid patient ID", nil)
		return
	}

	var req dto.AssignPatientRequest
	if !h.decode(w, r, &req, false) {
		return
	}

	visit, err := h.assignmentUsecase.AssignPatientToDoctorRoom(r.Context(), patientID, req.DoctorID, req.Room)
	if err != nil {
		writeError(w, err, "Failed to assign patient")
		return
	}

	response.Success(w, http.StatusOK, "Patient assigned successfully", converter.VisitToResponse(visit))
}

// CreateVisit opens today's visit on behalf of the authenticated doctor.
func (h *PatientHandler) CreateVisit(w http.ResponseWriter, r *http.Request) {
	patientID, ok := pathID(r, "id")
	if !ok {
		response.Error(w, http.StatusBadRequest, "Invalid patient ID", nil)
		return
	}

	doctorID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "User not found in context")
		return
	}

	var req dto.CreatePatientVisitRequest
	if !h.decode(w, r, &req, true) {
		return
	}

	visit, visitType, err := h.assignmentUsecase.CreateVisitForExistingPatient(r.Context(), patientID, doctorID, req.Room)
	if err != nil {
		writeError(w, err, "Failed to create visit")
		return
	}

	response.Success(w, http.StatusOK, "Visit created successfully", dto.PatientVisitResponse{
		VisitType: string(visitType),
		Visit:     converter.VisitToResponse(visit),
	})
}

func (h *PatientHandler) ChangeRoom(w http.ResponseWriter, r *http.Request) {
	patientID, ok := pathID(r, "id")
	if !ok {
		response.Error(w, http.StatusBadRequest, "Invalid patient ID", nil)
		return
	}

	var req dto.ChangePatientRoomRequest
	if !h.decode(w, r, &req, false) {
		return
	}

	actor, _ := middleware.GetUserNameFromContext(r.Context())
	result, err := h.assignmentUsecase.ChangePatientRoom(r.Context(), patientID, req.Room, actor)
	if err != nil {
		writeError(w, err, "Failed to change room")
		return
	}

	message := "Patient room changed successfully"
	if !result.Changed {
		message = "Patient is already in this room"
	}
	response.Success(w, http.StatusOK, message, converter.RoomChangeToResponse(result))
}

func (h *PatientHandler) StartVisit(w http.ResponseWriter, r *http.Request) {
	patientID, ok := pathID(r, "id")
	if !ok {
		response.Error(w, http.StatusBadRequest, "Invalid patient ID", nil)
		return
	}

	visit, err := h.visitUsecase.StartVisit(r.Context(), patientID)
	if err != nil {
		writeError(w, err, "Failed to start visit")
		return
	}

	response.Success(w, http.StatusOK, "Visit started", converter.VisitToResponse(visit))
}

// CompleteVisit completes today's visit. The completing doctor defaults to the caller.
func (h *PatientHandler) CompleteVisit(w http.ResponseWriter, r *http.Request) {
	patientID, ok := pathID(r, "id")
	if !ok {
		response.Error(w, http.StatusBadRequest, "Invalid patient ID", nil)
		return
	}

	var req dto.CompleteVisitRequest
	if !h.decode(w, r, &req, true) {
		return
	}

	doctorID := req.DoctorID
	if doctorID == 0 {
		if doctorID, ok = middleware.GetUserIDFromContext(r.Context()); !ok {
			response.Unauthorized(w, "User not found in context")
			return
		}
	}

	visit, err := h.assignmentUsecase.MarkVisitComplete(r.Context(), patientID, doctorID)
	if err != nil {
		writeError(w, err, "Failed to complete visit")
		return
	}

	response.Success(w, http.StatusOK, "Visit completed", converter.VisitToResponse(visit))
}

// decode reads and validates the body. With optional set, an empty body is accepted.
func (h *PatientHandler) decode(w http.ResponseWriter, r *http.Request, req interface{}, optional bool) bool {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil && !(optional && err == io.EOF) {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return false
	}

	if err := h.validator.Validate(req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return false
	}
	return true
}
