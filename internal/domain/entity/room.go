package entity

import "time"

// Room is a consultation room, addressed by a human-assigned identifier such as "206".
// Doctors, patients and visits reference a room by Identifier, not by ID.
type Room struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Identifier  string    `gorm:"type:varchar(20);not null;index" json:"identifier"`
	Description string    `gorm:"type:text" json:"description,omitempty"`
	IsActive    bool      `gorm:"not null;default:true;index" json:"is_active"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Room) TableName() string {
	return "rooms"
}

// RoomFilter is a domain-level filter for listing rooms.
type RoomFilter struct {
	Active *bool  // nil = any
	Search string // matches identifier or description (ILIKE)
}

// RoomReferences counts everything that still points at a room identifier.
type RoomReferences struct {
	PatientsToday      []string // names of patients with a visit in the room today
	OccupyingDoctor    string   // doctor sitting in the room today, empty if none
	AssignedPatients   int64    // patients whose cached assigned_room is the room (any day)
	Visits             int64    // visit rows with this room_no (any day)
	DoctorsWithRoomSet int64    // doctors whose current_room field holds the room, stale or not
}

// Live reports whether the room is referenced by today's activity.
func (r RoomReferences) Live() bool {
	return len(r.PatientsToday) > 0 || r.OccupyingDoctor != ""
}

// Any reports whether anything references the room.
func (r RoomReferences) Any() bool {
	return r.Live() || r.AssignedPatients > 0 || r.Visits > 0 || r.DoctorsWithRoomSet > 0
}
