// Package realtime fans newly inserted attendance records out to whoever is
// watching that session, so the faculty view updates without polling.
package realtime

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/anuragrao04/classroom-attendance/models"
)

const defaultBuffer = 32

type Hub struct {
	mu   sync.RWMutex
	subs map[uint]map[*Subscription]struct{}
	log  *logrus.Entry
}

func NewHub(log *logrus.Entry) *Hub {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Hub{subs: make(map[uint]map[*Subscription]struct{}), log: log}
}

type Subscription struct {
	C         <-chan models.AttendanceRecord
	c         chan models.AttendanceRecord
	sessionID uint
	hub       *Hub
	once      sync.Once
}

// Subscribe starts receiving records inserted for sessionID. The caller must
// Close the subscription.
func (h *Hub) Subscribe(sessionID uint) *Subscription {
	c := make(chan models.AttendanceRecord, defaultBuffer)
	sub := &Subscription{C: c, c: c, sessionID: sessionID, hub: h}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[sessionID] == nil {
		h.subs[sessionID] = make(map[*Subscription]struct{})
	}
	h.subs[sessionID][sub] = struct{}{}
	return sub
}

func (s *Subscription) Close() {
	s.once.Do(func() {
		h := s.hub
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.subs[s.sessionID], s)
		if len(h.subs[s.sessionID]) == 0 {
			delete(h.subs, s.sessionID)
		}
		close(s.c)
	})
}

// Publish never blocks: a subscriber whose buffer is full misses the record.
func (h *Hub) Publish(rec models.AttendanceRecord) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subs[rec.SessionID] {
		select {
		case sub.c <- rec:
		default:
			h.log.WithFields(logrus.Fields{"session_id": rec.SessionID, "roll_no": rec.RollNo}).Warn("subscriber lagging, dropped record")
		}
	}
}

func (h *Hub) Subscribers(sessionID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[sessionID])
}
