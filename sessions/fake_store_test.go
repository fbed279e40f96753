package sessions

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/anuragrao04/classroom-attendance/models"
)

// fakeStore enforces the same two uniqueness rules as the real store.
type fakeStore struct {
	mu sync.Mutex

	codes      map[uint]*string
	updateErr  error
	clearErr   error
	updates    int
	clears     int
	active     []models.ActiveSession
	activeErr  error
	lookups    int
	lookupDate string
	records    []models.AttendanceRecord
	inserts    int
	insertErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{codes: map[uint]*string{}}
}

func (f *fakeStore) UpdateSessionManualCode(_ context.Context, id uint, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates++
	if f.updateErr != nil {
		return f.updateErr
	}
	f.codes[id] = &code
	return nil
}

func (f *fakeStore) ClearSessionManualCode(_ context.Context, id uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clears++
	if f.clearErr != nil {
		return f.clearErr
	}
	f.codes[id] = nil
	return nil
}

func (f *fakeStore) FindActiveSessionsOn(_ context.Context, date string) ([]models.ActiveSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups++
	f.lookupDate = date
	return f.active, f.activeErr
}

func (f *fakeStore) InsertAttendanceRecord(_ context.Context, rec *models.AttendanceRecord) (models.ConflictKind, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inserts++
	if f.insertErr != nil {
		return models.ConflictOther, f.insertErr
	}
	for _, r := range f.records {
		if r.SessionID != rec.SessionID {
			continue
		}
		if r.RollNo == rec.RollNo {
			return models.ConflictRollAlready, errors.New("duplicate roll")
		}
		if r.DeviceFingerprint == rec.DeviceFingerprint {
			return models.ConflictDeviceAlready, errors.New("duplicate device")
		}
	}
	f.records = append(f.records, *rec)
	return models.ConflictNone, nil
}

func (f *fakeStore) code(id uint) *string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.codes[id]
}

func strPtr(s string) *string { return &s }
