package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/anuragrao04/classroom-attendance/models"
)

const FacultyIDKey = "faculty_id"

// Authenticate checks a username and password against the stored bcrypt hash.
// Unknown users and wrong passwords give the same error.
func Authenticate(ctx context.Context, store FacultyStore, username, password string) (*models.Faculty, error) {
	f, err := store.GetFacultyByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, errors.Wrap(ErrInvalidCredentials, err.Error())
	}
	if err := bcrypt.CompareHashAndPassword([]byte(f.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return f, nil
}

// Login handles POST /auth/login.
func Login(store FacultyStore, m *Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "username and password are required"})
			return
		}
		f, err := Authenticate(c.Request.Context(), store, req.Username, req.Password)
		if err != nil {
			logrus.WithField("username", req.Username).Info("failed login")
			c.JSON(http.StatusUnauthorized, gin.H{"status": "error", "message": ErrInvalidCredentials.Error()})
			return
		}
		token, err := m.Issue(f)
		if err != nil {
			logrus.WithError(err).Error("failed to issue token")
			c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "failed to log in"})
			return
		}
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(CookieName, token, int(m.TTL().Seconds()), "/", "", c.Request.TLS != nil, true)
		c.JSON(http.StatusOK, gin.H{"status": "success", "token": token, "faculty": f})
	}
}

// Require rejects requests without a valid faculty token. The token is read
// from the Authorization header, then the cookie set at login, then the
// token query parameter that browser websockets have to use.
func Require(m *Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearer(c.GetHeader("Authorization"))
		if raw == "" {
			raw, _ = c.Cookie(CookieName)
		}
		if raw == "" {
			raw = c.Query("token")
		}
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"status": "error", "message": "login required"})
			return
		}
		claims, err := m.Parse(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"status": "error", "message": ErrInvalidToken.Error()})
			return
		}
		c.Set(FacultyIDKey, claims.FacultyID)
		c.Next()
	}
}

func bearer(header string) string {
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}

// FacultyID returns the id stored by Require.
func FacultyID(c *gin.Context) uint {
	return c.GetUint(FacultyIDKey)
}
