package router

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/linomassaro/SyncStream/internal/handler"
	"github.com/linomassaro/SyncStream/pkg/constants"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// New builds the HTTP router.
func New(
	sessionHandler *handler.SessionHandler,
	syncWS *handler.SyncWSHandler,
	health *handler.HealthHandler,
	proxy *handler.MediaProxyHandler, // nil disables the media proxy
	corsOrigins []string,
) http.Handler {
	r := gin.New()
	r.Use(gin.Recovery())

	corsCfg := cors.DefaultConfig()
	if len(corsOrigins) == 1 && corsOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = corsOrigins
	}
	corsCfg.AllowMethods = []string{"GET", "POST", "PATCH", "OPTIONS"}
	corsCfg.AllowHeaders = []string{"Origin", "Content-Type", "Range"}
	r.Use(cors.New(corsCfg))

	r.GET(constants.PathHealth, health.Health)
	r.GET(constants.PathReady, health.Ready)
	r.GET(constants.PathMetrics, gin.WrapH(promhttp.Handler()))

	// REST session façade
	sessions := r.Group("/sessions")
	{
		sessions.POST("", sessionHandler.CreateSession)
		sessions.GET("/:id", sessionHandler.GetSession)
		sessions.PATCH("/:id", sessionHandler.UpdateSession)
		sessions.GET("/:id/viewers", sessionHandler.GetSessionViewers)
	}

	// WebSocket: /ws?sessionId=..&viewerId=..
	r.GET("/ws", syncWS.ServeWS)

	if proxy != nil {
		r.GET("/proxy", proxy.Proxy)
	}

	return r
}
