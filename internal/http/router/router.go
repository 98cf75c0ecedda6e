// Package router assembles the gin engine from the registered modules.
package router

import (
	"net/http"

	apphttp "textback_backend/internal/http"
	"textback_backend/internal/http/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// New builds the HTTP engine: health endpoint, CORS, webhook signature
// validation, job auth, and every module's routes.
func New(app *apphttp.App) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestTimer(app.Logger))

	if app.Config.GetCORSAllowAll() {
		engine.Use(cors.Default())
	} else if origins := app.Config.GetCORSOrigins(); len(origins) > 0 {
		corsCfg := cors.DefaultConfig()
		corsCfg.AllowOrigins = origins
		engine.Use(cors.New(corsCfg))
	}

	engine.GET("/api/health", func(c *gin.Context) {
		if app.Health != nil {
			if err := app.Health.Ping(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := engine.Group("/api/v1")

	webhooks := v1.Group("/webhooks")
	webhooks.Use(middleware.TelephonySignature(
		app.Config.GetTelephonyAuthToken(),
		app.Config.GetPublicBaseURL(),
	))

	jobs := v1.Group("/jobs")
	jobs.Use(middleware.BearerToken(app.Config.GetPollJobToken()))

	ctx := &apphttp.RouterContext{
		Engine:   engine,
		V1:       v1,
		Webhooks: webhooks,
		Jobs:     jobs,
	}

	for _, m := range app.Modules {
		m.RegisterRoutes(ctx)
		app.Logger.Info("module routes registered", "module", m.Name())
	}

	return engine
}
