package realtime

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anuragrao04/classroom-attendance/models"
)

func newTestHub() *Hub {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return NewHub(logrus.NewEntry(l))
}

func TestPublishReachesOnlyThatSession(t *testing.T) {
	h := newTestHub()
	a := h.Subscribe(1)
	defer a.Close()
	b := h.Subscribe(2)
	defer b.Close()

	h.Publish(models.AttendanceRecord{SessionID: 1, RollNo: 101})

	require.Len(t, a.C, 1)
	rec := <-a.C
	assert.Equal(t, 101, rec.RollNo)
	assert.Len(t, b.C, 0)
}

func TestCloseUnsubscribes(t *testing.T) {
	h := newTestHub()
	s := h.Subscribe(7)
	assert.Equal(t, 1, h.Subscribers(7))

	s.Close()
	s.Close()
	assert.Equal(t, 0, h.Subscribers(7))
	_, open := <-s.C
	assert.False(t, open)

	// publishing after close must not panic
	h.Publish(models.AttendanceRecord{SessionID: 7, RollNo: 1})
}

func TestPublishDropsWhenBufferFull(t *testing.T) {
	h := newTestHub()
	s := h.Subscribe(3)
	defer s.Close()

	for i := 0; i < defaultBuffer+5; i++ {
		h.Publish(models.AttendanceRecord{SessionID: 3, RollNo: i})
	}
	assert.Len(t, s.C, defaultBuffer)
}
