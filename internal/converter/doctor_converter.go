package converter

import (
	"opd-room-tracker/internal/delivery/dto"
	"opd-room-tracker/internal/domain/entity"
	"opd-room-tracker/internal/usecase"
)

// DoctorToResponse converts a Doctor entity to DoctorResponse DTO
func DoctorToResponse(doctor *entity.Doctor) *dto.DoctorResponse {
	if doctor == nil {
		return nil
	}

	return &dto.DoctorResponse{
		ID:             doctor.ID,
		FullName:       doctor.FullName,
		Specialization: doctor.Specialization,
		CurrentRoom:    doctor.CurrentRoom,
		RoomAssignedAt: doctor.RoomAssignedAt,
	}
}

func RoomStatusToResponse(doctorID int64, status *usecase.RoomStatus) *dto.RoomStatusResponse {
	if status == nil {
		return &dto.RoomStatusResponse{DoctorID: doctorID}
	}

	return &dto.RoomStatusResponse{
		DoctorID: doctorID,
		HasRoom:  status.HasRoom,
		Room:     status.Room,
	}
}
