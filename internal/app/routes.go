package app

import (
	"Tripboard/internal/auth"
	"Tripboard/internal/config"
	"Tripboard/internal/handlers"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Setup registers all routes on the given engine.
func Setup(r *gin.Engine, cfg config.Config, a *App) {
	r.GET("/", rootHandler(cfg, a.session.TripID))
	r.GET("/health", healthHandler(cfg))
	r.GET("/version", versionHandler(cfg))
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{})))

	api := r.Group("/api/v1", auth.RequireTrip(a.session.TripID))

	registerTaskRoutes(api, handlers.NewTaskHandler(a.svc))
	registerTripRoutes(api, handlers.NewTripHandler(a.svc, cfg.HTTP.PublicURL))
	api.GET("/events", a.hub.Serve)
}

func rootHandler(cfg config.Config, tripID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(200, gin.H{
			"service": "Tripboard",
			"version": cfg.App.Version,
			"env":     cfg.App.Env,
			"trip":    tripID,
			"health":  "/health",
			"metrics": "/metrics",
			"api":     "/api/v1",
			"events":  "/api/v1/events",
		})
	}
}

func healthHandler(cfg config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(200, gin.H{"ok": true, "env": cfg.App.Env})
	}
}

func versionHandler(cfg config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(200, gin.H{"version": cfg.App.Version})
	}
}

func registerTaskRoutes(api *gin.RouterGroup, h *handlers.TaskHandler) {
	api.POST("/tasks", h.Create)
	api.GET("/tasks", h.List)
	api.GET("/tasks/overdue", h.Overdue)
	api.GET("/tasks/due-soon", h.DueSoon)
	api.GET("/tasks/:id", h.GetByID)
	api.PATCH("/tasks/:id", h.Update)
	api.DELETE("/tasks/:id", h.Delete)
	api.POST("/tasks/:id/complete", h.Complete)
}

func registerTripRoutes(api *gin.RouterGroup, h *handlers.TripHandler) {
	api.GET("/status", h.Status)
	api.GET("/settings", h.GetSettings)
	api.PUT("/settings", h.PutSettings)
	api.GET("/assignees", h.Assignees)
	api.POST("/assignees", h.AddAssignee)
	api.GET("/share", h.Share)
	api.POST("/share/import", h.Import)
}
