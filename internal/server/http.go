// Package server assembles the gin router and runs the HTTP listener.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"harmony/internal/app"
	"harmony/internal/handlers"
	"harmony/internal/metrics"
	"harmony/internal/middleware"
	"harmony/internal/repository"
	"harmony/internal/service/chat"
	"harmony/internal/service/match"
	"harmony/internal/service/user"
)

// NewRouter wires middleware, handlers and routes into a gin engine.
func NewRouter(appCtx *app.AppContext) *gin.Engine {
	if appCtx.Config.App.ENV == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(appCtx.Logger))
	router.Use(middleware.Metrics())

	userSvc := user.NewService(appCtx)
	matchSvc := match.NewService(appCtx)
	chatSvc := chat.NewService(appCtx)
	prefs := repository.NewPreferenceRepository(appCtx.DB)

	authHandler := handlers.NewAuthHandler(userSvc)
	profileHandler := handlers.NewProfileHandler(userSvc, prefs)
	matchHandler := handlers.NewMatchHandler(matchSvc)
	chatHandler := handlers.NewChatHandler(appCtx, chatSvc)

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := router.Group("/api")
	{
		api.POST("/auth/register", authHandler.Register)
		api.POST("/auth/login", authHandler.Login)

		authed := api.Group("", middleware.RequireAuth(appCtx.Config.JWT.Secret))
		{
			authed.GET("/users/me", profileHandler.Me)
			authed.PATCH("/users/me", profileHandler.UpdateMe)

			authed.GET("/preferences/:category", profileHandler.ListPreferences)
			authed.PUT("/preferences/:category/:itemID", profileHandler.PutPreference)
			authed.DELETE("/preferences/:category/:itemID", profileHandler.DeletePreference)

			authed.GET("/candidates", matchHandler.Candidates)
			authed.POST("/matches/accept", matchHandler.Accept)
			authed.POST("/matches/reject", matchHandler.Reject)
			authed.GET("/matches", matchHandler.List)
			authed.GET("/matches/count", matchHandler.Count)

			authed.GET("/settings/match-weights", matchHandler.GetWeights)
			authed.PUT("/settings/match-weights", matchHandler.PutWeights)

			authed.GET("/matches/:matchID/messages", chatHandler.ListMessages)
			authed.POST("/matches/:matchID/messages", chatHandler.SendMessage)
		}
	}

	router.GET("/ws/chat/:matchID", middleware.RequireAuth(appCtx.Config.JWT.Secret), chatHandler.Socket)

	return router
}

// Start runs the HTTP server until SIGINT/SIGTERM, then drains for up to 10s.
func Start(appCtx *app.AppContext) error {
	addr := fmt.Sprintf("%s:%s", appCtx.Config.HTTP.Host, appCtx.Config.HTTP.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: NewRouter(appCtx),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		appCtx.Logger.Info("http server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	appCtx.Logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
