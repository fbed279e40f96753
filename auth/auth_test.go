package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anuragrao04/classroom-attendance/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type memFaculty struct {
	byName map[string]*models.Faculty
	nextID uint
}

func newMemFaculty() *memFaculty {
	return &memFaculty{byName: map[string]*models.Faculty{}}
}

func (m *memFaculty) CreateFaculty(_ context.Context, username, hash string) (*models.Faculty, error) {
	if _, ok := m.byName[username]; ok {
		return nil, errors.New("duplicate username")
	}
	m.nextID++
	f := &models.Faculty{ID: m.nextID, Username: username, PasswordHash: hash}
	m.byName[username] = f
	return f, nil
}

func (m *memFaculty) GetFacultyByUsername(_ context.Context, username string) (*models.Faculty, error) {
	f, ok := m.byName[username]
	if !ok {
		return nil, errors.New("record not found")
	}
	return f, nil
}

func newMockClock() *clock.Mock {
	mock := clock.NewMock()
	mock.Set(time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC))
	return mock
}

func TestRegisterAndAuthenticate(t *testing.T) {
	ctx := context.Background()
	store := newMemFaculty()

	_, err := RegisterFaculty(ctx, store, "prof", "short")
	assert.Error(t, err)

	f, err := RegisterFaculty(ctx, store, " prof ", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, "prof", f.Username)
	assert.NotEqual(t, "correct horse", f.PasswordHash)

	got, err := Authenticate(ctx, store, "prof", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, f.ID, got.ID)

	_, err = Authenticate(ctx, store, "prof", "wrong password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = Authenticate(ctx, store, "nobody", "correct horse")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestManagerIssueAndParse(t *testing.T) {
	mock := newMockClock()
	m := NewManager("s3cret", time.Hour, mock)

	token, err := m.Issue(&models.Faculty{ID: 7, Username: "prof"})
	require.NoError(t, err)

	claims, err := m.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.FacultyID)
	assert.Equal(t, "prof", claims.Username)

	_, err = NewManager("other", time.Hour, mock).Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	mock.Add(2 * time.Hour)
	_, err = m.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestBearer(t *testing.T) {
	assert.Equal(t, "abc", bearer("Bearer abc"))
	assert.Equal(t, "abc", bearer("bearer abc"))
	assert.Empty(t, bearer("Basic abc"))
	assert.Empty(t, bearer("Bearer "))
}

func newAuthRouter(store FacultyStore, m *Manager) *gin.Engine {
	r := gin.New()
	r.POST("/auth/login", Login(store, m))
	r.GET("/me", Require(m), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"faculty_id": FacultyID(c)})
	})
	return r
}

func TestLoginThenRequire(t *testing.T) {
	store := newMemFaculty()
	_, err := RegisterFaculty(context.Background(), store, "prof", "correct horse")
	require.NoError(t, err)
	r := newAuthRouter(store, NewManager("s3cret", time.Hour, newMockClock()))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"username":"prof","password":"correct horse"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.NotEmpty(t, body.Token)
	assert.NotContains(t, w.Body.String(), "password")
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, CookieName, cookies[0].Name)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+body.Token)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"faculty_id":1}`, w.Body.String())

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(cookies[0])
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLoginRejectsBadPassword(t *testing.T) {
	store := newMemFaculty()
	_, err := RegisterFaculty(context.Background(), store, "prof", "correct horse")
	require.NoError(t, err)
	r := newAuthRouter(store, NewManager("s3cret", time.Hour, newMockClock()))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"username":"prof","password":"nope nope"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireWithoutToken(t *testing.T) {
	r := newAuthRouter(newMemFaculty(), NewManager("s3cret", time.Hour, newMockClock()))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
