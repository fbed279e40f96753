package models

import "time"

type Faculty struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	Username     string    `json:"username" gorm:"uniqueIndex;size:64;not null"`
	PasswordHash string    `json:"-" gorm:"not null"`
	CreatedAt    time.Time `json:"created_at"`
}

// Class owns an inclusive roll number range: the roster.
type Class struct {
	ID               uint      `json:"id" gorm:"primaryKey"`
	FacultyID        uint      `json:"faculty_id" gorm:"index;not null"`
	SubjectName      string    `json:"subject_name" gorm:"not null"`
	Division         string    `json:"division"`
	Batch            string    `json:"batch"`
	ClassType        string    `json:"class_type"`
	StartRollNo      int       `json:"start_roll_no"`
	EndRollNo        int       `json:"end_roll_no"`
	DefaultStartTime string    `json:"default_start_time"`
	DefaultEndTime   string    `json:"default_end_time"`
	CreatedAt        time.Time `json:"created_at"`
}

// InRoster reports whether rollNo lies within the class range, bounds included.
func (c Class) InRoster(rollNo int) bool {
	return rollNo >= c.StartRollNo && rollNo <= c.EndRollNo
}

func (c Class) RosterSize() int {
	if c.EndRollNo < c.StartRollNo {
		return 0
	}
	return c.EndRollNo - c.StartRollNo + 1
}

// AttendanceRecord is unique per (session, roll) and per (session, device).
// The index names are what the postgres classifier matches on.
type AttendanceRecord struct {
	ID                uint      `json:"id" gorm:"primaryKey"`
	SessionID         uint      `json:"session_id" gorm:"not null;uniqueIndex:idx_attendance_session_roll;uniqueIndex:idx_attendance_session_device"`
	RollNo            int       `json:"roll_no" gorm:"not null;uniqueIndex:idx_attendance_session_roll"`
	DeviceFingerprint string    `json:"device_fingerprint" gorm:"not null;size:128;uniqueIndex:idx_attendance_session_device"`
	MarkedAt          time.Time `json:"marked_at" gorm:"autoCreateTime"`
}

const (
	RollUniqueIndex   = "idx_attendance_session_roll"
	DeviceUniqueIndex = "idx_attendance_session_device"
)

// ConflictKind is how the store reports a failed attendance insert.
type ConflictKind int

const (
	ConflictNone ConflictKind = iota
	ConflictRollAlready
	ConflictDeviceAlready
	ConflictOther
)

func (k ConflictKind) String() string {
	switch k {
	case ConflictNone:
		return "none"
	case ConflictRollAlready:
		return "roll_already"
	case ConflictDeviceAlready:
		return "device_already"
	default:
		return "other"
	}
}
