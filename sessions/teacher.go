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
)

const DefaultRefreshSeconds = 15

const qrDelimiter = "|"

var ErrSessionEnded = errors.New("session has ended")

// CodeStore is where the issuer publishes the live manual code.
type CodeStore interface {
	UpdateSessionManualCode(ctx context.Context, sessionID uint, code string) error
	ClearSessionManualCode(ctx context.Context, sessionID uint) error
}

// Credentials is the pair shown on the faculty display for one cycle.
type Credentials struct {
	QRPayload  string
	ManualCode string
	IssuedAt   time.Time
}

// IssuerSession is the issuance state of one live session. It is passed into
// and returned from every issuer operation; the issuer itself keeps none.
type IssuerSession struct {
	SessionID       uint
	RefreshInterval int // seconds between cycles
	Remaining       int // seconds until the next cycle
	Current         Credentials
	Issued          int
	Ended           bool
}

func NewIssuerSession(sessionID uint, refreshSeconds int) IssuerSession {
	if refreshSeconds <= 0 {
		refreshSeconds = DefaultRefreshSeconds
	}
	return IssuerSession{
		SessionID:       sessionID,
		RefreshInterval: refreshSeconds,
		Remaining:       refreshSeconds,
	}
}

// ParseRefreshInterval reads the refresh speed chosen when the session was
// started, falling back when it is missing, non-numeric or not positive.
func ParseRefreshInterval(raw string, fallback int) int {
	if fallback <= 0 {
		fallback = DefaultRefreshSeconds
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

// ManualCodeAt returns the last six decimal digits of t in milliseconds,
// zero padded.
func ManualCodeAt(t time.Time) string {
	ms := t.UnixMilli()
	if ms < 0 {
		ms = -ms
	}
	return fmt.Sprintf("%06d", ms%1_000_000)
}

// QRPayload encodes "<sessionID>|<unixMillis>".
func QRPayload(sessionID uint, t time.Time) string {
	return strconv.FormatUint(uint64(sessionID), 10) + qrDelimiter + strconv.FormatInt(t.UnixMilli(), 10)
}

type Issuer struct {
	store CodeStore
	clock clock.Clock
	log   *logrus.Entry
}

func NewIssuer(store CodeStore, clk clock.Clock, log *logrus.Entry) *Issuer {
	if clk == nil {
		clk = clock.New()
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Issuer{store: store, clock: clk, log: log}
}

// IssueCycle mints a new credential pair. The manual code is published
// before anything changes locally; when that fails the previous credentials
// are kept and the error is returned.
func (i *Issuer) IssueCycle(ctx context.Context, s IssuerSession) (IssuerSession, error) {
	if s.Ended {
		return s, ErrSessionEnded
	}
	now := i.clock.Now()
	code := ManualCodeAt(now)
	if err := i.store.UpdateSessionManualCode(ctx, s.SessionID, code); err != nil {
		i.log.WithError(err).WithField("session_id", s.SessionID).Error("failed to publish manual code")
		return s, errors.Wrap(err, "failed to publish manual code")
	}
	s.Current = Credentials{
		QRPayload:  QRPayload(s.SessionID, now),
		ManualCode: code,
		IssuedAt:   now,
	}
	s.Issued++
	i.log.WithFields(logrus.Fields{"session_id": s.SessionID, "cycle": s.Issued}).Debug("issued credentials")
	return s, nil
}

// Tick advances the countdown by one second and runs a cycle when it hits zero.
func (i *Issuer) Tick(ctx context.Context, s IssuerSession) (IssuerSession, bool, error) {
	if s.Ended {
		return s, false, ErrSessionEnded
	}
	s.Remaining--
	if s.Remaining > 0 {
		return s, false, nil
	}
	s.Remaining = s.RefreshInterval
	s, err := i.IssueCycle(ctx, s)
	return s, true, err
}

// End clears the published code and marks the session terminal. Clearing is
// best effort: a failure is logged and otherwise ignored.
func (i *Issuer) End(ctx context.Context, s IssuerSession) IssuerSession {
	if s.Ended {
		return s
	}
	s.Ended = true
	s.Current = Credentials{}
	s.Remaining = 0
	if err := i.store.ClearSessionManualCode(ctx, s.SessionID); err != nil {
		i.log.WithError(err).WithField("session_id", s.SessionID).Warn("failed to clear manual code")
	}
	i.log.WithField("session_id", s.SessionID).Info("session ended")
	return s
}

// Update is reported by Run after the first cycle and after every tick.
type Update struct {
	Session IssuerSession
	Issued  bool
	Err     error
}

// Run issues immediately, then ticks once per second until ctx is done, at
// which point the session is ended and its final state returned.
func (i *Issuer) Run(ctx context.Context, s IssuerSession, emit func(Update)) IssuerSession {
	ticker := i.clock.Ticker(time.Second)
	defer ticker.Stop()

	s, err := i.IssueCycle(ctx, s)
	emit(Update{Session: s, Issued: err == nil, Err: err})

	for {
		select {
		case <-ctx.Done():
			return i.End(context.WithoutCancel(ctx), s)
		case <-ticker.C:
			var issued bool
			s, issued, err = i.Tick(ctx, s)
			emit(Update{Session: s, Issued: issued && err == nil, Err: err})
		}
	}
}
