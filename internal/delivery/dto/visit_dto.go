package dto

import "time"

type VisitResponse struct {
	ID               int64     `json:"id"`
	PatientID        int64     `json:"patient_id"`
	PatientName      string    `json:"patient_name,omitempty"`
	VisitDate        string    `json:"visit_date"` // YYYY-MM-DD
	RoomNo           *string   `json:"room_no,omitempty"`
	AssignedDoctorID *int64    `json:"assigned_doctor_id,omitempty"`
	VisitType        string    `json:"visit_type"`
	VisitStatus      string    `json:"visit_status"`
	Notes            string    `json:"notes,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

type VisitListResponse struct {
	Date   string          `json:"date"`
	Visits []VisitResponse `json:"visits"`
	Total  int             `json:"total"`
}

type AutoCompleteResponse struct {
	Completed int64 `json:"completed"`
}
