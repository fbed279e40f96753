package auth

import (
	"context"
	"strconv"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"

	"github.com/anuragrao04/classroom-attendance/models"
)

const (
	issuer     = "classroom-attendance"
	CookieName = "attendance_token"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

// FacultyStore is the part of the store that auth reads and writes.
type FacultyStore interface {
	CreateFaculty(ctx context.Context, username, passwordHash string) (*models.Faculty, error)
	GetFacultyByUsername(ctx context.Context, username string) (*models.Faculty, error)
}

type Claims struct {
	FacultyID uint   `json:"faculty_id"`
	Username  string `json:"username"`
	jwt.RegisteredClaims
}

// Manager signs and checks faculty tokens.
type Manager struct {
	secret []byte
	ttl    time.Duration
	clock  clock.Clock
}

func NewManager(secret string, ttl time.Duration, clk clock.Clock) *Manager {
	if clk == nil {
		clk = clock.New()
	}
	return &Manager{secret: []byte(secret), ttl: ttl, clock: clk}
}

func (m *Manager) TTL() time.Duration { return m.ttl }

func (m *Manager) Issue(f *models.Faculty) (string, error) {
	now := m.clock.Now()
	claims := Claims{
		FacultyID: f.ID,
		Username:  f.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   strconv.FormatUint(uint64(f.ID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", errors.Wrap(err, "failed to sign token")
	}
	return token, nil
}

func (m *Manager) Parse(raw string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(m.clock.Now),
	)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidToken, err.Error())
	}
	if claims.FacultyID == 0 {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
