package metrics

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// NewRouter returns the HTTP surface shared by the relay and the monitor: recovery,
// access logging and GET /metrics. Callers add their own routes.
func NewRouter(logger zerolog.Logger) *gin.Engine {
	RegisterMetrics()
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(accessLog(logger))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return r
}

// accessLog logs at debug level, so scrapes and relay peers stay quiet in normal operation.
// A websocket peer is logged once its connection ends.
func accessLog(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		event := logger.Debug()
		switch {
		case status >= 500:
			event = logger.Error()
		case status >= 400:
			event = logger.Warn()
		}

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		event.
			Str("route", route).
			Int("status", status).
			Dur("duration", time.Since(start)).
			Str("remote", c.ClientIP()).
			Bool("websocket", c.IsWebsocket()).
			Msg("http request")
	}
}
