package entity

import "time"

// Patient holds the demographic record plus a denormalized room/doctor binding.
//
// AssignedRoom, AssignedDoctorID and AssignedDoctorName are written once at bind
// time and are not recomputed when the doctor later moves rooms.
type Patient struct {
	ID                 int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	RecordNumber       string    `gorm:"type:varchar(50);uniqueIndex;not null" json:"record_number"`
	FullName           string    `gorm:"type:varchar(255);not null" json:"full_name"`
	Sex                string    `gorm:"type:char(1)" json:"sex,omitempty"`
	Age                int       `json:"age,omitempty"`
	AssignedRoom       *string   `gorm:"type:varchar(20);index" json:"assigned_room,omitempty"`
	AssignedDoctorID   *int64    `gorm:"index" json:"assigned_doctor_id,omitempty"`
	AssignedDoctorName *string   `gorm:"type:varchar(255)" json:"assigned_doctor_name,omitempty"`
	CreatedAt          time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	Visits []Visit `gorm:"foreignKey:PatientID;constraint:OnDelete:CASCADE" json:"visits,omitempty"`
}

func (Patient) TableName() string {
	return "patients"
}

// BindTo points the patient's cached binding at room and doctor. A nil doctor
// clears the doctor fields (the room may be unstaffed).
func (p *Patient) BindTo(room string, doctor *Doctor) {
	r := room
	p.AssignedRoom = &r
	if doctor == nil {
		p.AssignedDoctorID = nil
		p.AssignedDoctorName = nil
		return
	}
	id, name := doctor.ID, doctor.FullName
	p.AssignedDoctorID = &id
	p.AssignedDoctorName = &name
}

// RoomIs reports whether the cached binding already points at room.
func (p *Patient) RoomIs(room string) bool {
	return p.AssignedRoom != nil && *p.AssignedRoom == room
}
