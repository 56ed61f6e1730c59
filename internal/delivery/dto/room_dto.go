package dto

import "time"

// Request DTOs

type CreateRoomRequest struct {
	Identifier  string `json:"identifier" validate:"required,room_identifier"`
	Description string `json:"description" validate:"omitempty,max=500"`
}

type SetRoomActiveRequest struct {
	IsActive *bool `json:"is_active" validate:"required"`
}

// Response DTOs

type RoomResponse struct {
	ID          int64     `json:"id"`
	Identifier  string    `json:"identifier"`
	Description string    `json:"description,omitempty"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type RoomListResponse struct {
	Rooms []RoomResponse `json:"rooms"`
	Total int            `json:"total"`
}

// RoomInUseResponse explains why a room could not be deleted.
type RoomInUseResponse struct {
	Identifier         string   `json:"identifier"`
	Forceable          bool     `json:"forceable"`
	PatientsToday      []string `json:"patients_today,omitempty"`
	OccupyingDoctor    string   `json:"occupying_doctor,omitempty"`
	AssignedPatients   int64    `json:"assigned_patients"`
	Visits             int64    `json:"visits"`
	DoctorsWithRoomSet int64    `json:"doctors_with_room_set"`
}

type RoomOccupancyResponse struct {
	Room   RoomResponse    `json:"room"`
	Doctor *DoctorResponse `json:"doctor,omitempty"`
}
