package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/barswebadmin/BigAppleRecSports-sub003/internal/audit"
	"github.com/barswebadmin/BigAppleRecSports-sub003/internal/config"
	"github.com/barswebadmin/BigAppleRecSports-sub003/internal/http/handlers"
	"github.com/barswebadmin/BigAppleRecSports-sub003/internal/http/middleware"
	"github.com/barswebadmin/BigAppleRecSports-sub003/internal/notifier"
	"github.com/barswebadmin/BigAppleRecSports-sub003/internal/storage"
	"github.com/barswebadmin/BigAppleRecSports-sub003/internal/workflow"
)

type RouterDeps struct {
	Logger  *slog.Logger
	Config  config.Config
	Engine  *workflow.Engine
	Audit   *audit.Store
	Archive storage.Storage
	Notify  *notifier.Notifier
}

func NewRouter(d RouterDeps) *gin.Engine {
	if d.Config.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(
		middleware.RequestID(),
		middleware.Logger(d.Logger),
		middleware.Recovery(d.Logger),
		middleware.ErrorHandler(d.Logger),
	)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	h := handlers.NewRefundsHandler(d.Logger, d.Engine, d.Audit, d.Archive, d.Notify, d.Config.Slack.SigningSecret)

	refunds := r.Group("/refunds")
	{
		refunds.POST("/send-to-slack", middleware.RequireIntakeToken(d.Config.IntakeTokenHash), h.Intake)
		refunds.POST("/interactions", h.Interactions)
	}

	return r
}
