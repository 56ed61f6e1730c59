package entity

import (
	"time"

	"gorm.io/datatypes"
)

// Doctor carries the doctor's day-scoped room selection. The rest of the doctor
// aggregate (credentials, specialization catalogue) is owned elsewhere.
//
// CurrentRoom is never cleared when the day rolls over: a selection made on a
// previous civil day simply stops counting, see RoomOn.
type Doctor struct {
	ID             int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	FullName       string     `gorm:"type:varchar(255);not null" json:"full_name"`
	Specialization string     `gorm:"type:varchar(100)" json:"specialization,omitempty"`
	CurrentRoom    *string    `gorm:"type:varchar(20);index" json:"current_room,omitempty"`
	RoomAssignedAt *time.Time `gorm:"index" json:"room_assigned_at,omitempty"`
	IsActive       bool       `gorm:"not null;default:true" json:"is_active"`
	CreatedAt      time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Doctor) TableName() string {
	return "doctors"
}

// RoomOn returns the room the doctor selected on civil day `day`, as observed in loc.
func (d *Doctor) RoomOn(day datatypes.Date, loc *time.Location) (string, bool) {
	if d == nil || d.CurrentRoom == nil || *d.CurrentRoom == "" || d.RoomAssignedAt == nil {
		return "", false
	}
	y, m, dd := d.RoomAssignedAt.In(loc).Date()
	dy, dm, ddd := time.Time(day).Date()
	if y != dy || m != dm || dd != ddd {
		return "", false
	}
	return *d.CurrentRoom, true
}

// RoomOccupancy pairs a room with the doctor resolved as sitting in it today.
type RoomOccupancy struct {
	Room   Room
	Doctor *Doctor
}
