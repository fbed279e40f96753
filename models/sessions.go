package models

import "time"

const StatusActive = "Active"

// DateLayout is the calendar date format sessions are keyed by.
const DateLayout = "2006-01-02"

type Session struct {
	ID                uint      `json:"id" gorm:"primaryKey"`
	ClassID           uint      `json:"class_id" gorm:"index;not null"`
	Class             Class     `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	SessionDate       string    `json:"session_date" gorm:"index;size:10;not null"`
	StartTime         string    `json:"start_time"`
	EndTime           string    `json:"end_time"`
	Status            string    `json:"status" gorm:"index;not null"`
	CurrentManualCode *string   `json:"current_manual_code,omitempty" gorm:"size:6"`
	CreatedAt         time.Time `json:"created_at"`
}

func (s Session) IsActive() bool {
	return s.Status == StatusActive
}

// ActiveSession is the slice of a live session the manual-code path needs.
type ActiveSession struct {
	ID                uint
	CurrentManualCode *string
	StartRollNo       int
	EndRollNo         int
}

func (a ActiveSession) InRoster(rollNo int) bool {
	return rollNo >= a.StartRollNo && rollNo <= a.EndRollNo
}

// SessionReport summarises one session for the history view.
type SessionReport struct {
	SessionID    uint   `json:"session_id"`
	SessionDate  string `json:"session_date"`
	Status       string `json:"status"`
	StartTime    string `json:"start_time"`
	EndTime      string `json:"end_time"`
	PresentCount int    `json:"present_count,omitempty"`
	TotalCount   int    `json:"total_count,omitempty"`
	Absentees    []int  `json:"absentees,omitempty"`
}
