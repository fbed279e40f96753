package sessions

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 2024-06-03T10:15:42.123Z
var issueStart = time.UnixMilli(1717409742123)

func quietLog() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func newMockClock(t time.Time) *clock.Mock {
	m := clock.NewMock()
	m.Set(t)
	return m
}

func TestManualCodeAt(t *testing.T) {
	assert.Equal(t, "742123", ManualCodeAt(issueStart))
	assert.Equal(t, "000042", ManualCodeAt(time.UnixMilli(1717409000042)))
	assert.Equal(t, "000007", ManualCodeAt(time.UnixMilli(7)))
}

func TestQRPayload(t *testing.T) {
	assert.Equal(t, "42|1717409742123", QRPayload(42, issueStart))
}

func TestParseRefreshInterval(t *testing.T) {
	assert.Equal(t, 30, ParseRefreshInterval("30", 15))
	assert.Equal(t, 10, ParseRefreshInterval(" 10 ", 15))
	assert.Equal(t, 15, ParseRefreshInterval("", 15))
	assert.Equal(t, 15, ParseRefreshInterval("fast", 15))
	assert.Equal(t, 15, ParseRefreshInterval("0", 15))
	assert.Equal(t, 15, ParseRefreshInterval("-5", 15))
	assert.Equal(t, DefaultRefreshSeconds, ParseRefreshInterval("", 0))
}

func TestNewIssuerSessionDefaultsInterval(t *testing.T) {
	s := NewIssuerSession(1, 0)
	assert.Equal(t, DefaultRefreshSeconds, s.RefreshInterval)
	assert.Equal(t, DefaultRefreshSeconds, s.Remaining)
}

func TestIssueCyclePublishesThenDisplays(t *testing.T) {
	store := newFakeStore()
	iss := NewIssuer(store, newMockClock(issueStart), quietLog())

	s, err := iss.IssueCycle(context.Background(), NewIssuerSession(42, 15))
	require.NoError(t, err)
	assert.Equal(t, "742123", s.Current.ManualCode)
	assert.Equal(t, "42|1717409742123", s.Current.QRPayload)
	assert.Equal(t, issueStart, s.Current.IssuedAt)
	assert.Equal(t, 1, s.Issued)
	require.NotNil(t, store.code(42))
	assert.Equal(t, "742123", *store.code(42))
}

func TestIssueCycleFailureKeepsPreviousCredentials(t *testing.T) {
	store := newFakeStore()
	mock := newMockClock(issueStart)
	iss := NewIssuer(store, mock, quietLog())

	s, err := iss.IssueCycle(context.Background(), NewIssuerSession(42, 15))
	require.NoError(t, err)
	prev := s.Current

	store.updateErr = errors.New("connection reset")
	mock.Add(15 * time.Second)
	s, err = iss.IssueCycle(context.Background(), s)
	require.Error(t, err)
	assert.Equal(t, prev, s.Current)
	assert.Equal(t, 1, s.Issued)
}

func TestTickRotatesOncePerInterval(t *testing.T) {
	const interval = 5
	store := newFakeStore()
	mock := newMockClock(issueStart)
	iss := NewIssuer(store, mock, quietLog())
	ctx := context.Background()

	s, err := iss.IssueCycle(ctx, NewIssuerSession(9, interval))
	require.NoError(t, err)

	var issuedAt []int
	last := s.Current.ManualCode
	for sec := 1; sec <= 3*interval; sec++ {
		mock.Add(time.Second)
		var issued bool
		s, issued, err = iss.Tick(ctx, s)
		require.NoError(t, err)
		if issued {
			issuedAt = append(issuedAt, sec)
			assert.NotEqual(t, last, s.Current.ManualCode)
			last = s.Current.ManualCode
			assert.Equal(t, interval, s.Remaining)
		} else {
			assert.Equal(t, interval-sec%interval, s.Remaining)
		}
		// what is displayed is what is stored
		require.NotNil(t, store.code(9))
		assert.Equal(t, s.Current.ManualCode, *store.code(9))
	}
	assert.Equal(t, []int{5, 10, 15}, issuedAt)
	assert.Equal(t, 4, s.Issued)
	assert.Equal(t, 4, store.updates)
}

func TestEndIsTerminal(t *testing.T) {
	store := newFakeStore()
	iss := NewIssuer(store, newMockClock(issueStart), quietLog())
	ctx := context.Background()

	s, err := iss.IssueCycle(ctx, NewIssuerSession(3, 15))
	require.NoError(t, err)

	s = iss.End(ctx, s)
	assert.True(t, s.Ended)
	assert.Nil(t, store.code(3))
	assert.Empty(t, s.Current.ManualCode)

	_, err = iss.IssueCycle(ctx, s)
	assert.ErrorIs(t, err, ErrSessionEnded)
	_, issued, err := iss.Tick(ctx, s)
	assert.False(t, issued)
	assert.ErrorIs(t, err, ErrSessionEnded)

	s = iss.End(ctx, s)
	assert.Equal(t, 1, store.clears)
	assert.Equal(t, 1, store.updates)
}

func TestEndIgnoresClearFailure(t *testing.T) {
	store := newFakeStore()
	store.clearErr = errors.New("offline")
	iss := NewIssuer(store, newMockClock(issueStart), quietLog())

	s := iss.End(context.Background(), NewIssuerSession(3, 15))
	assert.True(t, s.Ended)
	assert.Equal(t, 1, store.clears)
}

func TestRunFollowsTickerAndEndsOnCancel(t *testing.T) {
	store := newFakeStore()
	mock := newMockClock(issueStart)
	iss := NewIssuer(store, mock, quietLog())

	updates := make(chan Update)
	done := make(chan IssuerSession, 1)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		done <- iss.Run(ctx, NewIssuerSession(11, 3), func(u Update) { updates <- u })
	}()

	first := <-updates
	require.NoError(t, first.Err)
	assert.True(t, first.Issued)
	assert.Equal(t, "11|1717409742123", first.Session.Current.QRPayload)

	var issued []int
	for sec := 1; sec <= 6; sec++ {
		mock.Add(time.Second)
		u := <-updates
		require.NoError(t, u.Err)
		if u.Issued {
			issued = append(issued, sec)
		}
	}
	assert.Equal(t, []int{3, 6}, issued)

	cancel()
	final := <-done
	assert.True(t, final.Ended)
	assert.Equal(t, 3, final.Issued)
	assert.Nil(t, store.code(11))
}
