package routes

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/facilitydesk/facilitydesk/services/assistant/handlers"
	"github.com/facilitydesk/facilitydesk/services/assistant/middleware"
	"github.com/facilitydesk/facilitydesk/services/content"
	"github.com/facilitydesk/facilitydesk/services/llm"
	"github.com/facilitydesk/facilitydesk/services/maintenance"
)

// Config carries the dependencies wired by main into the route table.
type Config struct {
	Store      content.Store
	LLMClient  llm.Client
	LLMBackend string
	Runner     *maintenance.Runner
	CronSecret string
	// LLMTimeout bounds a single model call; RunTimeout bounds a whole
	// rollover run.
	LLMTimeout time.Duration
	RunTimeout time.Duration
}

func SetupRoutes(router *gin.Engine, cfg Config) {
	router.GET("/healthz", handlers.HandleHealthz())
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.POST("/chat", handlers.HandleAssetChat(cfg.Store, cfg.LLMClient, cfg.LLMBackend, cfg.LLMTimeout))
	router.GET("/assets/:id/health", handlers.HandleAssetHealth(cfg.Store))

	cron := router.Group("/cron", middleware.CronAuth(cfg.CronSecret))
	{
		rollover := handlers.HandleMaintenanceRollover(cfg.Runner, cfg.RunTimeout)
		// GET is the primary form; external cron providers often cannot
		// issue anything else.
		cron.GET("/maintenance", rollover)
		cron.POST("/maintenance", rollover)
		// Older deployments called the job by its internal name.
		cron.GET("/maintenance/rollover", rollover)
		cron.POST("/maintenance/rollover", rollover)
	}
}
