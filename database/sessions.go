package database

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/anuragrao04/classroom-attendance/models"
)

// StartSession opens an Active session for the class, dated today.
func (s *Store) StartSession(ctx context.Context, classID, facultyID uint, startTime, endTime string) (*models.Session, error) {
	class, err := s.GetClass(ctx, classID, facultyID)
	if err != nil {
		return nil, err
	}
	if startTime == "" {
		startTime = class.DefaultStartTime
	}
	if endTime == "" {
		endTime = class.DefaultEndTime
	}
	sess := &models.Session{
		ClassID:     class.ID,
		SessionDate: s.today(),
		StartTime:   startTime,
		EndTime:     endTime,
		Status:      models.StatusActive,
	}
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(sess).Error; err != nil {
		return nil, errors.Wrap(err, "failed to start session")
	}
	sess.Class = *class
	return sess, nil
}

// MarkSessionOff records that the class does not meet on date, with reason
// as the session status.
func (s *Store) MarkSessionOff(ctx context.Context, classID, facultyID uint, date, reason string) (*models.Session, error) {
	class, err := s.GetClass(ctx, classID, facultyID)
	if err != nil {
		return nil, err
	}
	var sess *models.Session
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&models.Session{}).Where("class_id = ? AND session_date = ?", classID, date).Count(&existing).Error; err != nil {
			return errors.WithStack(err)
		}
		if existing > 0 {
			return ErrSessionExists
		}
		sess = &models.Session{
			ClassID:     class.ID,
			SessionDate: date,
			StartTime:   class.DefaultStartTime,
			EndTime:     class.DefaultEndTime,
			Status:      reason,
		}
		return errors.Wrap(tx.Omit(clause.Associations).Create(sess).Error, "failed to mark session off")
	})
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// GetSession loads a session with its class, restricted to facultyID's classes.
func (s *Store) GetSession(ctx context.Context, id, facultyID uint) (*models.Session, error) {
	var sess models.Session
	if err := s.db.WithContext(ctx).First(&sess, id).Error; err != nil {
		return nil, notFound(err, "session")
	}
	class, err := s.GetClass(ctx, sess.ClassID, facultyID)
	if err != nil {
		return nil, err
	}
	sess.Class = *class
	return &sess, nil
}

func (s *Store) UpdateSessionManualCode(ctx context.Context, sessionID uint, code string) error {
	res := s.db.WithContext(ctx).Model(&models.Session{}).
		Where("id = ?", sessionID).
		Update("current_manual_code", code)
	if res.Error != nil {
		return errors.Wrap(res.Error, "failed to update manual code")
	}
	if res.RowsAffected == 0 {
		return errors.Wrapf(ErrNotFound, "session %d", sessionID)
	}
	return nil
}

func (s *Store) ClearSessionManualCode(ctx context.Context, sessionID uint) error {
	return errors.Wrap(s.db.WithContext(ctx).Model(&models.Session{}).
		Where("id = ?", sessionID).
		Update("current_manual_code", nil).Error, "failed to clear manual code")
}

// FindActiveSessionsOn lists Active sessions dated date with their roster
// ranges, in ascending id order.
func (s *Store) FindActiveSessionsOn(ctx context.Context, date string) ([]models.ActiveSession, error) {
	var rows []models.ActiveSession
	err := s.db.WithContext(ctx).
		Table("sessions").
		Select("sessions.id AS id, sessions.current_manual_code AS current_manual_code, classes.start_roll_no AS start_roll_no, classes.end_roll_no AS end_roll_no").
		Joins("JOIN classes ON classes.id = sessions.class_id").
		Where("sessions.status = ? AND sessions.session_date = ?", models.StatusActive, date).
		Order("sessions.id ASC").
		Scan(&rows).Error
	return rows, errors.Wrap(err, "failed to find active sessions")
}

// ListPresentRolls returns recorded roll numbers in the order they were marked.
func (s *Store) ListPresentRolls(ctx context.Context, sessionID uint) ([]int, error) {
	var rolls []int
	err := s.db.WithContext(ctx).Model(&models.AttendanceRecord{}).
		Where("session_id = ?", sessionID).
		Order("marked_at ASC").Order("id ASC").
		Pluck("roll_no", &rolls).Error
	return rolls, errors.Wrap(err, "failed to list attendance")
}

// ClassHistory reports on the class's sessions between from and to (either
// may be empty), newest first.
func (s *Store) ClassHistory(ctx context.Context, classID, facultyID uint, from, to string) ([]models.SessionReport, error) {
	class, err := s.GetClass(ctx, classID, facultyID)
	if err != nil {
		return nil, err
	}
	q := s.db.WithContext(ctx).Where("class_id = ?", classID)
	if from != "" {
		q = q.Where("session_date >= ?", from)
	}
	if to != "" {
		q = q.Where("session_date <= ?", to)
	}
	var sessions []models.Session
	if err := q.Order("session_date DESC").Order("id DESC").Find(&sessions).Error; err != nil {
		return nil, errors.Wrap(err, "failed to load history")
	}

	reports := make([]models.SessionReport, 0, len(sessions))
	for _, sess := range sessions {
		r := models.SessionReport{
			SessionID:   sess.ID,
			SessionDate: sess.SessionDate,
			Status:      sess.Status,
			StartTime:   sess.StartTime,
			EndTime:     sess.EndTime,
		}
		if sess.IsActive() {
			present, err := s.ListPresentRolls(ctx, sess.ID)
			if err != nil {
				return nil, err
			}
			r.PresentCount = len(present)
			r.TotalCount = class.RosterSize()
			r.Absentees = absentees(*class, present)
		}
		reports = append(reports, r)
	}
	return reports, nil
}

func absentees(c models.Class, present []int) []int {
	seen := make(map[int]struct{}, len(present))
	for _, r := range present {
		seen[r] = struct{}{}
	}
	out := []int{}
	for r := c.StartRollNo; r <= c.EndRollNo; r++ {
		if _, ok := seen[r]; !ok {
			out = append(out, r)
		}
	}
	return out
}
