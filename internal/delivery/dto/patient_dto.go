package dto

// Request DTOs

type AssignPatientRequest struct {
	DoctorID int64  `json:"doctor_id" validate:"required,gt=0"`
	Room     string `json:"room" validate:"omitempty,room_identifier"`
}

// CreatePatientVisitRequest opens today's visit for the requesting doctor. Room is accepted
// for compatibility but the doctor's selected room always wins.
type CreatePatientVisitRequest struct {
	Room string `json:"room" validate:"omitempty,room_identifier"`
}

type ChangePatientRoomRequest struct {
	Room string `json:"room" validate:"required,room_identifier"`
}

type CompleteVisitRequest struct {
	DoctorID int64 `json:"doctor_id" validate:"omitempty,gt=0"`
}

// Response DTOs

type PatientVisitResponse struct {
	VisitType string         `json:"visit_type"`
	Visit     *VisitResponse `json:"visit"`
}

type RoomChangeResponse struct {
	Changed       bool           `json:"changed"`
	OldRoom       *string        `json:"old_room,omitempty"`
	NewRoom       string         `json:"new_room"`
	OldDoctorID   *int64         `json:"old_doctor_id,omitempty"`
	OldDoctorName *string        `json:"old_doctor_name,omitempty"`
	NewDoctorID   *int64         `json:"new_doctor_id,omitempty"`
	NewDoctorName *string        `json:"new_doctor_name,omitempty"`
	Visit         *VisitResponse `json:"visit,omitempty"`
}
