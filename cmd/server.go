package cmd

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/anuragrao04/classroom-attendance/auth"
	"github.com/anuragrao04/classroom-attendance/config"
	"github.com/anuragrao04/classroom-attendance/handlers"
	"github.com/anuragrao04/classroom-attendance/middlewares"
	"github.com/anuragrao04/classroom-attendance/sessions"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the attendance server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, store, err := initStore()
		if err != nil {
			return err
		}
		defer store.Close()

		clk := clock.New()
		h := handlers.New(handlers.Options{
			Store:          store,
			Issuer:         sessions.NewIssuer(store, clk, logrus.WithField("component", "issuer")),
			Validator:      sessions.NewValidator(store, clk, logrus.WithField("component", "validator")),
			Auth:           auth.NewManager(cfg.JWTSecret, cfg.TokenTTL, clk),
			Limiter:        middlewares.NewIPLimiter(cfg.SubmitRate, cfg.SubmitBurst),
			AllowedOrigins: cfg.AllowedOrigins,
			RefreshSeconds: cfg.DefaultRefreshSeconds,
			Log:            logrus.WithField("component", "http"),
		})
		return serve(cfg, newRouter(cfg, h), h)
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}

func newRouter(cfg config.Config, h *handlers.Handler) *gin.Engine {
	if !debug {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middlewares.RequestLogger(logrus.WithField("component", "access")))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middlewares.RequestIDHeader},
		ExposeHeaders:    []string{middlewares.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	h.Register(r)
	return r
}

// serve runs until SIGINT or SIGTERM, then drains for up to ten seconds.
// Live sessions are ended before returning so no manual code outlives the
// process.
func serve(cfg config.Config, r http.Handler, h *handlers.Handler) error {
	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}
	errCh := make(chan error, 1)
	go func() {
		logrus.Infof("listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		closeLive(h)
		return errors.Wrap(err, "server stopped")
	case <-quit:
	}
	logrus.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := srv.Shutdown(ctx)
	closeLive(h)
	return errors.Wrap(err, "failed to shut down cleanly")
}

func closeLive(h *handlers.Handler) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := h.Close(ctx); err != nil {
		logrus.WithError(err).Warn("live sessions did not end in time")
	}
}
