package httptransport

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/static"
	"github.com/gin-gonic/gin"

	"shellbridge/internal/platform/config"
	"shellbridge/internal/platform/logging"
	"shellbridge/internal/transport/ws"
)

// Options configures the HTTP router builder.
type Options struct {
	Config   *config.Config
	Logger   *logging.Logger
	WSRouter *ws.Router
	Hub      *ws.Hub
}

// Router bundles the gin engine and its API group.
type Router struct {
	Engine *gin.Engine
	API    *gin.RouterGroup
}

// Build constructs the gin engine hosting the bridge: the websocket
// upgrade path, a health probe, the app-config endpoint, and optional
// local static web content for development.
func Build(opts Options) (*Router, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("http router requires config")
	}
	cfg := opts.Config
	logger := opts.Logger

	if strings.EqualFold(cfg.Log.Level, "debug") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(loggingMiddleware(logger))

	engine.SetTrustedProxies([]string{"0.0.0.0"})

	engine.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders: []string{
			"Origin",
			"Content-Type",
			"Authorization",
			"Client-Id",
		},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	if cfg.Web.StaticDir != "" {
		engine.Use(static.Serve("/", static.LocalFile(cfg.Web.StaticDir, true)))
	}

	engine.GET("/healthz", func(c *gin.Context) {
		sessions := 0
		if opts.Hub != nil {
			sessions = opts.Hub.Count()
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "ok",
			"sessions": sessions,
		})
	})

	engine.GET("/app-config", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"title":    cfg.Web.AppTitle,
			"slug":     cfg.Web.AppSlug,
			"webUrl":   cfg.Web.URL,
			"features": cfg.Features,
		})
	})

	if opts.WSRouter != nil {
		engine.GET(cfg.Server.WebsocketPath, gin.WrapF(opts.WSRouter.Handle))
	}

	return &Router{
		Engine: engine,
		API:    engine.Group("/api"),
	}, nil
}

func loggingMiddleware(logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		duration := time.Since(start)

		if logger != nil {
			logger.Info(
				"[HTTP] %s %s -> %d (%s)",
				c.Request.Method,
				c.Request.URL.Path,
				c.Writer.Status(),
				duration,
			)
		}
	}
}
