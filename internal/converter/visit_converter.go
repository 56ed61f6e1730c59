package converter

import (
	"time"

	"opd-room-tracker/internal/delivery/dto"
	"opd-room-tracker/internal/domain/entity"
	"opd-room-tracker/internal/usecase"
)

// VisitToResponse converts a Visit entity to VisitResponse DTO
func VisitToResponse(visit *entity.Visit) *dto.VisitResponse {
	if visit == nil {
		return nil
	}

	resp := &dto.VisitResponse{
		ID:               visit.ID,
		PatientID:        visit.PatientID,
		VisitDate:        time.Time(visit.VisitDate).Format(time.DateOnly),
		RoomNo:           visit.RoomNo,
		AssignedDoctorID: visit.AssignedDoctorID,
		VisitType:        string(visit.VisitType),
		VisitStatus:      string(visit.VisitStatus),
		Notes:            visit.Notes,
		CreatedAt:        visit.CreatedAt,
		UpdatedAt:        visit.UpdatedAt,
	}
	if visit.Patient != nil {
		resp.PatientName = visit.Patient.FullName
	}
	return resp
}

// VisitsToResponses converts a slice of Visit entities to slice of VisitResponse DTOs
func VisitsToResponses(visits []entity.Visit) []dto.VisitResponse {
	responses := make([]dto.VisitResponse, len(visits))
	for i := range visits {
		responses[i] = *VisitToResponse(&visits[i])
	}
	return responses
}

func RoomChangeToResponse(result *usecase.RoomChangeResult) *dto.RoomChangeResponse {
	if result == nil {
		return nil
	}

	return &dto.RoomChangeResponse{
		Changed:       result.Changed,
		OldRoom:       result.OldRoom,
		NewRoom:       result.NewRoom,
		OldDoctorID:   result.OldDoctorID,
		OldDoctorName: result.OldDoctorName,
		NewDoctorID:   result.NewDoctorID,
		NewDoctorName: result.NewDoctorName,
		Visit:         VisitToResponse(result.Visit),
	}
}
