package http

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type RouterOptions struct {
	AllowOrigins []string
	// LoopbackOnly rejects requests that do not come from the local host.
	LoopbackOnly bool
	Metrics      http.Handler
}

func NewRouter(h *Handler, opts RouterOptions) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), withRequestID(), withAccessLog())

	if len(opts.AllowOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:  opts.AllowOrigins,
			AllowMethods:  []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:  []string{"Origin", "Content-Type", requestIDHeader},
			ExposeHeaders: []string{requestIDHeader},
		}))
	}
	if opts.LoopbackOnly {
		r.Use(loopbackOnly())
	}

	api := r.Group("/api")
	{
		api.GET("/health", h.Health)
		api.GET("/chain", h.Chain)
		api.GET("/snapshot", h.Snapshot)
		api.GET("/transactions", h.Transactions)
		api.GET("/status", h.Status)
		api.GET("/status/stream", h.StatusStream)

		api.POST("/connect", h.Connect)
		api.POST("/gm", h.SendGM)
		api.POST("/refresh", h.Refresh)
	}

	if opts.Metrics != nil {
		r.GET("/metrics", gin.WrapH(opts.Metrics))
	}
	return r
}
