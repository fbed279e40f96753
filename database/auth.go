package database

import (
	"context"

	"github.com/pkg/errors"

	"github.com/anuragrao04/classroom-attendance/models"
)

func (s *Store) CreateFaculty(ctx context.Context, username, passwordHash string) (*models.Faculty, error) {
	f := &models.Faculty{Username: username, PasswordHash: passwordHash}
	if err := s.db.WithContext(ctx).Create(f).Error; err != nil {
		return nil, errors.Wrap(err, "failed to create faculty")
	}
	return f, nil
}

func (s *Store) GetFacultyByUsername(ctx context.Context, username string) (*models.Faculty, error) {
	var f models.Faculty
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&f).Error; err != nil {
		return nil, notFound(err, "faculty")
	}
	return &f, nil
}
