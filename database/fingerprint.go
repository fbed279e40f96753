package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/anuragrao04/classroom-attendance/models"
)

const pgUniqueViolation = "23505"

// InsertAttendanceRecord writes one record. The session must be Active and
// the roll number inside its class roster; uniqueness per roll and per
// device is left to the unique indexes, and a violation is reported as the
// matching ConflictKind.
func (s *Store) InsertAttendanceRecord(ctx context.Context, rec *models.AttendanceRecord) (models.ConflictKind, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var sess models.Session
		if err := tx.Preload("Class").First(&sess, rec.SessionID).Error; err != nil {
			return notFound(err, "session")
		}
		if !sess.IsActive() {
			return errors.Wrapf(ErrSessionNotActive, "session %d", sess.ID)
		}
		if !sess.Class.InRoster(rec.RollNo) {
			return errors.Wrapf(ErrRollOutOfRange, "roll %d", rec.RollNo)
		}
		return tx.Create(rec).Error
	})
	if err != nil {
		kind := classifyInsertError(err)
		if kind == models.ConflictDeviceAlready && s.deviceHoldsRoll(ctx, rec) {
			kind = models.ConflictRollAlready
		}
		return kind, errors.Wrap(err, "failed to insert attendance record")
	}
	s.hub.Publish(*rec)
	return models.ConflictNone, nil
}

// deviceHoldsRoll reports whether the device that blocked rec already
// recorded rec's own roll. A resubmission from the same device breaks both
// unique indexes and the database names whichever it checked first.
func (s *Store) deviceHoldsRoll(ctx context.Context, rec *models.AttendanceRecord) bool {
	var existing models.AttendanceRecord
	err := s.db.WithContext(ctx).
		Where("session_id = ? AND device_fingerprint = ?", rec.SessionID, rec.DeviceFingerprint).
		First(&existing).Error
	if err != nil {
		s.log.WithError(err).WithField("session_id", rec.SessionID).Warn("failed to read conflicting attendance record")
		return false
	}
	return existing.RollNo == rec.RollNo
}

// OverrideFingerprint is the device value used for records a teacher adds by hand.
func OverrideFingerprint(markedAtMillis int64, rollNo int) string {
	return fmt.Sprintf("manual_override_by_teacher_%d_%d", markedAtMillis, rollNo)
}

// OverrideAttendance marks rollNos present on behalf of the teacher. All
// rows are inserted in one transaction; a roll that is already present
// fails the whole batch.
func (s *Store) OverrideAttendance(ctx context.Context, sessionID, facultyID uint, rollNos []int) ([]models.AttendanceRecord, error) {
	sess, err := s.GetSession(ctx, sessionID, facultyID)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now().UnixMilli()
	records := make([]models.AttendanceRecord, 0, len(rollNos))
	for _, roll := range rollNos {
		if !sess.Class.InRoster(roll) {
			return nil, errors.Wrapf(ErrRollOutOfRange, "roll %d", roll)
		}
		records = append(records, models.AttendanceRecord{
			SessionID:         sess.ID,
			RollNo:            roll,
			DeviceFingerprint: OverrideFingerprint(now, roll),
		})
	}
	if err := s.db.WithContext(ctx).Create(&records).Error; err != nil {
		if classifyInsertError(err) == models.ConflictRollAlready {
			return nil, errors.Wrap(ErrAlreadyMarked, err.Error())
		}
		return nil, errors.Wrap(err, "failed to override attendance")
	}
	for _, rec := range records {
		s.hub.Publish(rec)
	}
	return records, nil
}

func classifyInsertError(err error) models.ConflictKind {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code != pgUniqueViolation {
			return models.ConflictOther
		}
		switch pgErr.ConstraintName {
		case models.RollUniqueIndex:
			return models.ConflictRollAlready
		case models.DeviceUniqueIndex:
			return models.ConflictDeviceAlready
		}
		return models.ConflictOther
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		if liteErr.ExtendedCode != sqlite3.ErrConstraintUnique {
			return models.ConflictOther
		}
		return classifyUniqueColumns(liteErr.Error())
	}
	return models.ConflictOther
}

// classifyUniqueColumns reads the column list sqlite reports, e.g.
// "UNIQUE constraint failed: attendance_records.session_id, attendance_records.roll_no".
func classifyUniqueColumns(msg string) models.ConflictKind {
	_, cols, ok := strings.Cut(msg, ":")
	if !ok {
		return models.ConflictOther
	}
	for _, col := range strings.Split(cols, ",") {
		col = strings.TrimSpace(col)
		if i := strings.LastIndex(col, "."); i >= 0 {
			col = col[i+1:]
		}
		switch col {
		case "roll_no":
			return models.ConflictRollAlready
		case "device_fingerprint":
			return models.ConflictDeviceAlready
		}
	}
	return models.ConflictOther
}
