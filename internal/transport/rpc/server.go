package rpc

import (
	"fmt"
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/pollchat/pollchat/internal/chat"
	"github.com/pollchat/pollchat/internal/config"
)

// NewServer builds the HTTP server exposing the JSON-RPC surface.
func NewServer(chatLog *chat.Log, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(RequestIDMiddleware())
	router.Use(LoggerMiddleware(logger))
	router.Use(gin.Recovery())

	handlers := NewHandlers(chatLog, logger)
	router.POST("/rpc", handlers.Call)
	router.GET("/health", healthHandler)

	var handler stdhttp.Handler = router
	if cfg.MaxRequestBytes > 0 {
		handler = maxBytesHandler(router, cfg.MaxRequestBytes)
	}

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func healthHandler(c *gin.Context) {
	fmt.Fprint(c.Writer, "ok")
}

// maxBytesHandler bounds request body size at the transport boundary; the
// message log itself enforces no length cap.
func maxBytesHandler(next stdhttp.Handler, limit int64) stdhttp.Handler {
	return stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		r.Body = stdhttp.MaxBytesReader(w, r.Body, limit)
		next.ServeHTTP(w, r)
	})
}
