package sessions

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/anuragrao04/classroom-attendance/models"
)

// QRFreshnessWindow is the largest accepted age of a QR credential. It is
// independent of the manual code refresh interval.
const QRFreshnessWindow = 20 * time.Second

const manualCodeLength = 6

var ErrInvalidQRFormat = errors.New("invalid QR code format")

const (
	msgInvalidQR       = "Invalid QR code format."
	msgExpiredQR       = "Expired QR code. Please scan the new one."
	msgInvalidManual   = "Please enter a valid 6-digit code."
	msgNoActiveSession = "No active attendance session found."
	msgIneligible      = "Invalid code or no active session for your roll number."
	msgDeviceConflict  = "This device has already been used for this session. Attempt flagged."
	msgWriteFailed     = "An error occurred. The session may be inactive or your roll number is invalid for this class."
)

// AttendanceStore is the backing store as the validator sees it.
type AttendanceStore interface {
	FindActiveSessionsOn(ctx context.Context, date string) ([]models.ActiveSession, error)
	InsertAttendanceRecord(ctx context.Context, rec *models.AttendanceRecord) (models.ConflictKind, error)
}

type Method string

const (
	MethodQR     Method = "QR Scan"
	MethodManual Method = "Manual Entry"
)

type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeAlreadyMarked
	OutcomeDeviceConflict
	OutcomeRejected
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeAlreadyMarked:
		return "already_marked"
	case OutcomeDeviceConflict:
		return "flagged"
	default:
		return "error"
	}
}

// Reason says why a submission was rejected.
type Reason int

const (
	ReasonNone Reason = iota
	ReasonFormat
	ReasonExpired
	ReasonNoActiveSession
	ReasonIneligible
	ReasonBackend
)

type Student struct {
	RollNo            int
	DeviceFingerprint string
}

type Result struct {
	Outcome   Outcome
	Reason    Reason
	Method    Method
	SessionID uint
	Message   string
}

// OK reports whether the student should be shown a success-toned result.
func (r Result) OK() bool {
	return r.Outcome == OutcomeSuccess || r.Outcome == OutcomeAlreadyMarked
}

func rejected(m Method, reason Reason, msg string) Result {
	return Result{Outcome: OutcomeRejected, Reason: reason, Method: m, Message: msg}
}

type Validator struct {
	store AttendanceStore
	clock clock.Clock
	log   *logrus.Entry
}

func NewValidator(store AttendanceStore, clk clock.Clock, log *logrus.Entry) *Validator {
	if clk == nil {
		clk = clock.New()
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Validator{store: store, clock: clk, log: log}
}

// ParseQRPayload splits "<sessionID>|<unixMillis>". Both parts must be
// present and numeric.
func ParseQRPayload(raw string) (uint, int64, error) {
	parts := strings.Split(raw, qrDelimiter)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return 0, 0, ErrInvalidQRFormat
	}
	id, err := strconv.ParseUint(parts[0], 10, 64)
	if err != nil {
		return 0, 0, errors.Wrap(ErrInvalidQRFormat, "session id")
	}
	issuedAt, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 0, 0, errors.Wrap(ErrInvalidQRFormat, "timestamp")
	}
	return uint(id), issuedAt, nil
}

// ValidateQR checks the shape and age of a scanned payload and, if both
// pass, attempts the attendance write.
func (v *Validator) ValidateQR(ctx context.Context, raw string, st Student) Result {
	sessionID, issuedAt, err := ParseQRPayload(raw)
	if err != nil {
		return rejected(MethodQR, ReasonFormat, msgInvalidQR)
	}
	age := v.clock.Now().UnixMilli() - issuedAt
	// Only staleness is checked: a timestamp ahead of the server clock gives a
	// negative age and passes. The session id and roster checks in the store
	// still apply to such a payload.
	if age > QRFreshnessWindow.Milliseconds() {
		v.log.WithFields(logrus.Fields{"session_id": sessionID, "roll_no": st.RollNo, "age_ms": age}).Info("expired QR code")
		return rejected(MethodQR, ReasonExpired, msgExpiredQR)
	}
	return v.MarkAttendance(ctx, sessionID, st, MethodQR)
}

// IsManualCode reports whether code is exactly six ASCII digits.
func IsManualCode(code string) bool {
	if len(code) != manualCodeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}

// ValidateManualCode finds today's active session whose roster holds the
// student and whose live code equals code. The first such session, in the
// order the store returns them, is used.
func (v *Validator) ValidateManualCode(ctx context.Context, code string, st Student) Result {
	code = strings.TrimSpace(code)
	if !IsManualCode(code) {
		return rejected(MethodManual, ReasonFormat, msgInvalidManual)
	}
	today := v.clock.Now().UTC().Format(models.DateLayout)
	active, err := v.store.FindActiveSessionsOn(ctx, today)
	if err != nil {
		v.log.WithError(err).Error("failed to look up active sessions")
		return rejected(MethodManual, ReasonNoActiveSession, msgNoActiveSession)
	}
	if len(active) == 0 {
		return rejected(MethodManual, ReasonNoActiveSession, msgNoActiveSession)
	}
	for _, s := range active {
		if s.InRoster(st.RollNo) && s.CurrentManualCode != nil && *s.CurrentManualCode == code {
			return v.MarkAttendance(ctx, s.ID, st, MethodManual)
		}
	}
	return rejected(MethodManual, ReasonIneligible, msgIneligible)
}

// MarkAttendance makes exactly one insert and maps the store's answer onto a
// result. Uniqueness is left to the store.
func (v *Validator) MarkAttendance(ctx context.Context, sessionID uint, st Student, m Method) Result {
	log := v.log.WithFields(logrus.Fields{"session_id": sessionID, "roll_no": st.RollNo, "method": m})
	rec := &models.AttendanceRecord{
		SessionID:         sessionID,
		RollNo:            st.RollNo,
		DeviceFingerprint: st.DeviceFingerprint,
	}
	kind, err := v.store.InsertAttendanceRecord(ctx, rec)
	res := Result{Method: m, SessionID: sessionID}
	if err == nil {
		log.Info("attendance marked")
		res.Outcome = OutcomeSuccess
		res.Message = fmt.Sprintf("Success, Roll No: %d! You are marked present.", st.RollNo)
		return res
	}
	switch kind {
	case models.ConflictRollAlready:
		log.Info("attendance already marked")
		res.Outcome = OutcomeAlreadyMarked
		res.Message = fmt.Sprintf("You are already marked present, Roll No: %d.", st.RollNo)
	case models.ConflictDeviceAlready:
		log.WithField("device_fingerprint", st.DeviceFingerprint).Warn("device reused within session, attempt flagged")
		res.Outcome = OutcomeDeviceConflict
		res.Message = msgDeviceConflict
	default:
		log.WithError(err).Warn("attendance insert failed")
		res.Outcome = OutcomeRejected
		res.Reason = ReasonBackend
		res.Message = msgWriteFailed
	}
	return res
}
