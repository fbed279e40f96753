package handlers

import (
	"context"
	"encoding/base64"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/skip2/go-qrcode"

	"github.com/anuragrao04/classroom-attendance/auth"
	"github.com/anuragrao04/classroom-attendance/models"
	"github.com/anuragrao04/classroom-attendance/sessions"
)

const (
	FrameCredentials = "credentials"
	FrameCountdown   = "countdown"
	FrameRoster      = "roster"
	FrameAttendance  = "attendance"
	FrameError       = "error"
	FrameEnded       = "ended"

	writeWait = 5 * time.Second
)

// liveSessions tracks which sessions have a running issuer and what they
// currently display. At most one live view runs per session.
type liveSessions struct {
	mu  sync.Mutex
	cur map[uint]sessions.Credentials
}

func newLiveSessions() *liveSessions {
	return &liveSessions{cur: make(map[uint]sessions.Credentials)}
}

func (l *liveSessions) claim(id uint) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.cur[id]; ok {
		return false
	}
	l.cur[id] = sessions.Credentials{}
	return true
}

func (l *liveSessions) set(id uint, c sessions.Credentials) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.cur[id]; ok {
		l.cur[id] = c
	}
}

func (l *liveSessions) current(id uint) (sessions.Credentials, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	c, ok := l.cur[id]
	return c, ok
}

func (l *liveSessions) release(id uint) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.cur, id)
}

// liveConn serialises writes; gorilla allows one concurrent writer.
type liveConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (w *liveConn) send(f models.LiveFrame) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return w.conn.WriteJSON(f)
}

// seenRolls holds the roll numbers a live client has been sent. A record
// inserted between Subscribe and the roster read arrives on both.
type seenRolls map[int]struct{}

func newSeenRolls(rolls []int) seenRolls {
	s := make(seenRolls, len(rolls))
	for _, r := range rolls {
		s[r] = struct{}{}
	}
	return s
}

// add reports whether roll is new to the client.
func (s seenRolls) add(roll int) bool {
	if _, ok := s[roll]; ok {
		return false
	}
	s[roll] = struct{}{}
	return true
}

type clientMessage struct {
	Action string `json:"action"`
}

// LiveSession runs the code issuer for one session over a websocket. The
// faculty client receives fresh credentials every cycle, a countdown every
// second and each attendance record as it lands. Sending {"action":"end"}
// or disconnecting ends the session.
func (h *Handler) LiveSession(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	sess, err := h.store.GetSession(c.Request.Context(), id, auth.FacultyID(c))
	if err != nil {
		h.storeError(c, err)
		return
	}
	if !sess.IsActive() {
		errorJSON(c, http.StatusConflict, "session is not active")
		return
	}
	if !h.track() {
		errorJSON(c, http.StatusServiceUnavailable, "server is shutting down")
		return
	}
	defer h.running.Done()
	if !h.live.claim(id) {
		errorJSON(c, http.StatusConflict, "session is already live in another window")
		return
	}
	defer h.live.release(id)

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already replied
		h.log.WithError(err).Warn("failed to upgrade to websocket")
		return
	}
	defer conn.Close()

	log := h.log.WithField("session_id", id)
	out := &liveConn{conn: conn}
	ctx, cancel := context.WithCancel(h.base)
	defer cancel()

	// subscribe before reading the roster so no record falls in between
	sub := h.store.Subscribe(id)
	defer sub.Close()

	present, err := h.store.ListPresentRolls(ctx, id)
	if err != nil {
		log.WithError(err).Error("failed to load roster")
		present = []int{}
	}
	if err := out.send(models.LiveFrame{Type: FrameRoster, SessionID: id, RollNos: present}); err != nil {
		log.WithError(err).Info("client gone before start")
		return
	}

	go func() {
		defer cancel()
		for {
			var msg clientMessage
			if err := conn.ReadJSON(&msg); err != nil {
				log.WithError(err).Debug("live client disconnected")
				return
			}
			if msg.Action == "end" {
				log.Info("faculty ended session")
				return
			}
		}
	}()

	shown := newSeenRolls(present)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case rec, ok := <-sub.C:
				if !ok {
					return
				}
				if !shown.add(rec.RollNo) {
					continue
				}
				if err := out.send(models.LiveFrame{Type: FrameAttendance, SessionID: id, RollNo: rec.RollNo}); err != nil {
					cancel()
					return
				}
			}
		}
	}()

	refresh := sessions.ParseRefreshInterval(c.Query("refresh"), h.refreshSeconds)
	final := h.issuer.Run(ctx, sessions.NewIssuerSession(id, refresh), func(u sessions.Update) {
		if err := out.send(h.frameFor(u, log)); err != nil {
			cancel()
		}
	})
	wg.Wait()
	_ = out.send(models.LiveFrame{Type: FrameEnded, SessionID: id})
	log.WithField("cycles", final.Issued).Info("live session closed")
}

func (h *Handler) frameFor(u sessions.Update, log *logrus.Entry) models.LiveFrame {
	s := u.Session
	switch {
	case u.Err != nil:
		return models.LiveFrame{Type: FrameError, SessionID: s.SessionID, Message: "Could not refresh the code. Retrying."}
	case u.Issued:
		h.live.set(s.SessionID, s.Current)
		f := models.LiveFrame{
			Type:       FrameCredentials,
			SessionID:  s.SessionID,
			QRPayload:  s.Current.QRPayload,
			ManualCode: s.Current.ManualCode,
			Remaining:  s.Remaining,
		}
		png, err := qrcode.Encode(s.Current.QRPayload, qrcode.High, qrImageSize)
		if err != nil {
			log.WithError(err).Warn("failed to render QR code")
		} else {
			f.QRImage = base64.StdEncoding.EncodeToString(png)
		}
		return f
	default:
		return models.LiveFrame{Type: FrameCountdown, SessionID: s.SessionID, Remaining: s.Remaining}
	}
}
