package database

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/anuragrao04/classroom-attendance/models"
)

// Classes carry the roster ranges students are checked against.

func (s *Store) CreateClass(ctx context.Context, c *models.Class) error {
	if c.EndRollNo < c.StartRollNo {
		return errors.Errorf("roster range %d..%d is empty", c.StartRollNo, c.EndRollNo)
	}
	return errors.Wrap(s.db.WithContext(ctx).Create(c).Error, "failed to create class")
}

// ListClasses returns the faculty's classes, newest first.
func (s *Store) ListClasses(ctx context.Context, facultyID uint) ([]models.Class, error) {
	var classes []models.Class
	err := s.db.WithContext(ctx).
		Where("faculty_id = ?", facultyID).
		Order("created_at DESC").Order("id DESC").
		Find(&classes).Error
	return classes, errors.WithStack(err)
}

// GetClass only finds classes owned by facultyID.
func (s *Store) GetClass(ctx context.Context, id, facultyID uint) (*models.Class, error) {
	var c models.Class
	if err := s.db.WithContext(ctx).Where("id = ? AND faculty_id = ?", id, facultyID).First(&c).Error; err != nil {
		return nil, notFound(err, "class")
	}
	return &c, nil
}

// DeleteClass removes the class with its sessions and their records.
func (s *Store) DeleteClass(ctx context.Context, id, facultyID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var c models.Class
		if err := tx.Where("id = ? AND faculty_id = ?", id, facultyID).First(&c).Error; err != nil {
			return notFound(err, "class")
		}
		sessionIDs := tx.Model(&models.Session{}).Select("id").Where("class_id = ?", id)
		if err := tx.Where("session_id IN (?)", sessionIDs).Delete(&models.AttendanceRecord{}).Error; err != nil {
			return errors.Wrap(err, "failed to delete attendance records")
		}
		if err := tx.Where("class_id = ?", id).Delete(&models.Session{}).Error; err != nil {
			return errors.Wrap(err, "failed to delete sessions")
		}
		return errors.Wrap(tx.Delete(&c).Error, "failed to delete class")
	})
}
