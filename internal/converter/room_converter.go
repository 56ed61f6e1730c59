package converter

import (
	"opd-room-tracker/internal/delivery/dto"
	"opd-room-tracker/internal/domain/entity"
	"opd-room-tracker/internal/usecase"
)

// RoomToResponse converts a Room entity to RoomResponse DTO
func RoomToResponse(room *entity.Room) *dto.RoomResponse {
	if room == nil {
		return nil
	}

	return &dto.RoomResponse{
		ID:          room.ID,
		Identifier:  room.Identifier,
		Description: room.Description,
		IsActive:    room.IsActive,
		CreatedAt:   room.CreatedAt,
		UpdatedAt:   room.UpdatedAt,
	}
}

// RoomsToResponses converts a slice of Room entities to slice of RoomResponse DTOs
func RoomsToResponses(rooms []entity.Room) []dto.RoomResponse {
	responses := make([]dto.RoomResponse, len(rooms))
	for i := range rooms {
		responses[i] = *RoomToResponse(&rooms[i])
	}
	return responses
}

func RoomInUseToResponse(err *usecase.RoomInUseError) *dto.RoomInUseResponse {
	if err == nil {
		return nil
	}

	refs := err.References
	return &dto.RoomInUseResponse{
		Identifier:         err.Identifier,
		Forceable:          err.Forceable,
		PatientsToday:      refs.PatientsToday,
		OccupyingDoctor:    refs.OccupyingDoctor,
		AssignedPatients:   refs.AssignedPatients,
		Visits:             refs.Visits,
		DoctorsWithRoomSet: refs.DoctorsWithRoomSet,
	}
}

func OccupancyToResponses(occupancy []entity.RoomOccupancy) []dto.RoomOccupancyResponse {
	responses := make([]dto.RoomOccupancyResponse, len(occupancy))
	for i := range occupancy {
		responses[i] = dto.RoomOccupancyResponse{
			Room:   *RoomToResponse(&occupancy[i].Room),
			Doctor: DoctorToResponse(occupancy[i].Doctor),
		}
	}
	return responses
}
