package entity

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
)

// VisitType is fixed when the visit is created and never re-evaluated.
type VisitType string

const (
	VisitTypeFirst    VisitType = "first_visit"
	VisitTypeFollowUp VisitType = "follow_up"
)

// VisitStatus follows scheduled -> in_progress -> completed; completed is terminal.
type VisitStatus string

const (
	VisitStatusScheduled  VisitStatus = "scheduled"
	VisitStatusInProgress VisitStatus = "in_progress"
	VisitStatusCompleted  VisitStatus = "completed"
)

// VisitTypeFor classifies a new visit from the number of visits the patient already has.
func VisitTypeFor(priorVisits int64) VisitType {
	if priorVisits == 0 {
		return VisitTypeFirst
	}
	return VisitTypeFollowUp
}

// Visit is one patient's encounter for one civil day.
type Visit struct {
	ID               int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	PatientID        int64          `gorm:"not null;uniqueIndex:uniq_visits_patient_date,priority:1" json:"patient_id"`
	VisitDate        datatypes.Date `gorm:"type:date;not null;uniqueIndex:uniq_visits_patient_date,priority:2" json:"visit_date"`
	RoomNo           *string        `gorm:"type:varchar(20);index" json:"room_no,omitempty"`
	AssignedDoctorID *int64         `gorm:"index" json:"assigned_doctor_id,omitempty"`
	VisitType        VisitType      `gorm:"type:varchar(20);not null" json:"visit_type"`
	VisitStatus      VisitStatus    `gorm:"type:varchar(20);not null;default:'scheduled';index" json:"visit_status"`
	Notes            string         `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt        time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time      `gorm:"autoUpdateTime" json:"updated_at"`

	// Relationships
	Patient *Patient `gorm:"foreignKey:PatientID" json:"patient,omitempty"`
}

func (Visit) TableName() string {
	return "visits"
}

// IsCompleted checks if the visit reached its terminal state
func (v *Visit) IsCompleted() bool {
	return v.VisitStatus == VisitStatusCompleted
}

// IsInProgress checks if the patient is currently being seen
func (v *Visit) IsInProgress() bool {
	return v.VisitStatus == VisitStatusInProgress
}

// Start moves a scheduled visit to in_progress.
func (v *Visit) Start() {
	if v.VisitStatus == VisitStatusScheduled {
		v.VisitStatus = VisitStatusInProgress
	}
}

// Complete moves the visit to its terminal state.
func (v *Visit) Complete() {
	v.VisitStatus = VisitStatusCompleted
}

// AssignTo points the visit at room and doctor; a nil doctor leaves the visit unassigned.
func (v *Visit) AssignTo(room string, doctorID *int64) {
	r := room
	v.RoomNo = &r
	if doctorID == nil {
		v.AssignedDoctorID = nil
		return
	}
	id := *doctorID
	v.AssignedDoctorID = &id
}

// AppendNote adds a timestamped free-text line to the visit notes.
func (v *Visit) AppendNote(at time.Time, note string) {
	line := fmt.Sprintf("[%s] %s", at.Format("2006-01-02 15:04 MST"), strings.TrimSpace(note))
	if v.Notes == "" {
		v.Notes = line
		return
	}
	v.Notes = v.Notes + "\n" + line
}
