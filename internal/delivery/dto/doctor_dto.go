package dto

import "time"

// Request DTOs

type SelectRoomRequest struct {
	Room string `json:"room" validate:"required,room_identifier"`
}

// Response DTOs

type DoctorResponse struct {
	ID             int64      `json:"id"`
	FullName       string     `json:"full_name"`
	Specialization string     `json:"specialization,omitempty"`
	CurrentRoom    *string    `json:"current_room,omitempty"`
	RoomAssignedAt *time.Time `json:"room_assigned_at,omitempty"`
}

type RoomStatusResponse struct {
	DoctorID int64   `json:"doctor_id"`
	HasRoom  bool    `json:"has_room"`
	Room     *string `json:"room,omitempty"`
}
