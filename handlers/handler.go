package handlers

import (
	"context"
	"net/http"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/anuragrao04/classroom-attendance/auth"
	"github.com/anuragrao04/classroom-attendance/database"
	"github.com/anuragrao04/classroom-attendance/middlewares"
	"github.com/anuragrao04/classroom-attendance/sessions"
)

type Options struct {
	Store          *database.Store
	Issuer         *sessions.Issuer
	Validator      *sessions.Validator
	Auth           *auth.Manager
	Limiter        *middlewares.IPLimiter
	AllowedOrigins []string
	RefreshSeconds int
	Log            *logrus.Entry
}

type Handler struct {
	store          *database.Store
	issuer         *sessions.Issuer
	validator      *sessions.Validator
	auth           *auth.Manager
	limiter        *middlewares.IPLimiter
	refreshSeconds int
	upgrader       websocket.Upgrader
	live           *liveSessions
	log            *logrus.Entry

	// live handlers hang off base so Close can end them; hijacked
	// connections are out of reach of http.Server.Shutdown
	base    context.Context
	stop    context.CancelFunc
	closeMu sync.Mutex
	running sync.WaitGroup
}

func New(opts Options) *Handler {
	if opts.Log == nil {
		opts.Log = logrus.NewEntry(logrus.StandardLogger())
	}
	if opts.Limiter == nil {
		opts.Limiter = middlewares.NewIPLimiter(1, 5)
	}
	if opts.RefreshSeconds <= 0 {
		opts.RefreshSeconds = sessions.DefaultRefreshSeconds
	}
	base, stop := context.WithCancel(context.Background())
	allowed := make(map[string]struct{}, len(opts.AllowedOrigins))
	for _, o := range opts.AllowedOrigins {
		allowed[o] = struct{}{}
	}
	return &Handler{
		store:          opts.Store,
		issuer:         opts.Issuer,
		validator:      opts.Validator,
		auth:           opts.Auth,
		limiter:        opts.Limiter,
		refreshSeconds: opts.RefreshSeconds,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				_, ok := allowed[origin]
				return ok
			},
		},
		live: newLiveSessions(),
		log:  opts.Log,
		base: base,
		stop: stop,
	}
}

// Close ends every live session, clearing their manual codes, and waits for
// the live handlers to return or ctx to expire. Live sessions opened after
// Close are refused.
func (h *Handler) Close(ctx context.Context) error {
	h.closeMu.Lock()
	h.stop()
	h.closeMu.Unlock()

	done := make(chan struct{})
	go func() {
		h.running.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// track registers a live handler unless Close has been called.
func (h *Handler) track() bool {
	h.closeMu.Lock()
	defer h.closeMu.Unlock()
	if h.base.Err() != nil {
		return false
	}
	h.running.Add(1)
	return true
}

// Register mounts every route on r.
func (h *Handler) Register(r gin.IRouter) {
	r.POST("/auth/login", auth.Login(h.store, h.auth))

	submit := r.Group("/attendance", h.limiter.Middleware())
	submit.POST("/qr", h.SubmitQR)
	submit.POST("/manual", h.SubmitManualCode)

	faculty := r.Group("", auth.Require(h.auth))
	faculty.GET("/classes", h.ListClasses)
	faculty.POST("/classes", h.CreateClass)
	faculty.DELETE("/classes/:id", h.DeleteClass)
	faculty.POST("/classes/:id/sessions", h.StartSession)
	faculty.POST("/classes/:id/off", h.MarkOff)
	faculty.GET("/classes/:id/history", h.History)
	faculty.POST("/sessions/:id/override", h.Override)
	faculty.GET("/sessions/:id/qr.png", h.QRImage)
	faculty.GET("/sessions/:id/live", h.LiveSession)
}

func errorJSON(c *gin.Context, code int, msg string) {
	c.JSON(code, gin.H{"status": "error", "message": msg})
}

func paramID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		errorJSON(c, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return uint(id), true
}
