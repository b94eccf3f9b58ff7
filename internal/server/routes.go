package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/openmined/dropsearch/internal/server/handlers/api"
	"github.com/openmined/dropsearch/internal/server/handlers/search"
	"github.com/openmined/dropsearch/internal/server/handlers/syncer"
	"github.com/openmined/dropsearch/internal/server/middlewares"
	"github.com/openmined/dropsearch/internal/version"
)

func SetupRoutes(config *Config, svc *Services) http.Handler {
	r := gin.New()

	searchH := search.New(svc.Search)
	syncH := syncer.New(svc.Search)

	r.Use(middlewares.Logger())
	r.Use(gin.Recovery())
	r.Use(middlewares.SecurityHeaders())
	if config.HTTP.TLSEnabled() {
		r.Use(middlewares.HSTS())
	}
	r.Use(middlewares.GZIP())
	r.Use(middlewares.CORS())

	r.GET("/", IndexHandler)
	r.GET("/healthz", HealthHandler)

	searchRate := config.HTTP.SearchRate
	if searchRate == "" {
		searchRate = DefaultSearchRate
	}
	r.GET("/search", middlewares.RateLimiter(searchRate), searchH.Search)

	v1 := r.Group("/api/v1")
	{
		v1.POST("/sync", syncH.Sync)
		v1.GET("/sync/status", syncH.Status)
	}

	r.HandleMethodNotAllowed = true
	r.NoRoute(func(c *gin.Context) {
		c.PureJSON(http.StatusNotFound, &api.APIError{
			Code:    api.CodeNotFound,
			Message: "not found",
		})
	})

	r.NoMethod(func(c *gin.Context) {
		c.PureJSON(http.StatusMethodNotAllowed, &api.APIError{
			Code:    api.CodeMethodNotAllowed,
			Message: "method not allowed",
		})
	})

	return r.Handler()
}

func IndexHandler(ctx *gin.Context) {
	ctx.String(http.StatusOK, version.DetailedWithApp())
}

func HealthHandler(ctx *gin.Context) {
	ctx.PureJSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

func init() {
	gin.SetMode(gin.ReleaseMode)
}
