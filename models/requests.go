package models

// DeviceAttributes are the client environment values a fingerprint is folded from.
type DeviceAttributes struct {
	UserAgent           string `json:"user_agent"`
	Language            string `json:"language"`
	ScreenWidth         int    `json:"screen_width"`
	ScreenHeight        int    `json:"screen_height"`
	TimezoneOffset      int    `json:"timezone_offset"`
	HardwareConcurrency int    `json:"hardware_concurrency"`
}

type QRSubmission struct {
	Payload           string            `json:"payload" binding:"required"`
	RollNo            int               `json:"roll_no" binding:"required"`
	DeviceFingerprint string            `json:"device_fingerprint"`
	Device            *DeviceAttributes `json:"device"`
}

type ManualCodeSubmission struct {
	Code              string            `json:"code"`
	RollNo            int               `json:"roll_no" binding:"required"`
	DeviceFingerprint string            `json:"device_fingerprint"`
	Device            *DeviceAttributes `json:"device"`
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type CreateClassRequest struct {
	SubjectName      string `json:"subject_name" binding:"required"`
	Division         string `json:"division"`
	Batch            string `json:"batch"`
	ClassType        string `json:"class_type"`
	StartRollNo      int    `json:"start_roll_no" binding:"required"`
	EndRollNo        int    `json:"end_roll_no" binding:"required,gtefield=StartRollNo"`
	DefaultStartTime string `json:"default_start_time"`
	DefaultEndTime   string `json:"default_end_time"`
}

type StartSessionRequest struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	QRSpeed   string `json:"qr_speed"`
}

type MarkOffRequest struct {
	Date   string `json:"date" binding:"required"`
	Reason string `json:"reason" binding:"required"`
}

type OverrideRequest struct {
	RollNos []int `json:"roll_nos" binding:"required,min=1"`
}

// LiveFrame is one message on the faculty live session socket.
type LiveFrame struct {
	Type       string `json:"type"`
	SessionID  uint   `json:"session_id,omitempty"`
	QRPayload  string `json:"qr_payload,omitempty"`
	QRImage    string `json:"qr_image,omitempty"`
	ManualCode string `json:"manual_code,omitempty"`
	Remaining  int    `json:"remaining,omitempty"`
	RollNo     int    `json:"roll_no,omitempty"`
	RollNos    []int  `json:"roll_nos,omitempty"`
	Message    string `json:"message,omitempty"`
}
