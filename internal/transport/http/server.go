package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/pairpad/pairpad-server/internal/config"
	"github.com/pairpad/pairpad-server/internal/core"
	"github.com/pairpad/pairpad-server/internal/store"
)

// NewServer builds the HTTP server: REST API on gin, websocket relay on /ws.
// st may be nil when persistence is disabled.
func NewServer(hub *core.Hub, st store.Store, languages []string, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery(), LoggerMiddleware(logger), CORSMiddleware(cfg.AllowedOrigins))

	api := NewAPIHandlers(hub, st, languages, logger)
	router.GET("/health", api.Health)
	router.GET("/api/rooms/:room/participants", api.RoomParticipants)
	router.GET("/api/rooms/:room/chat", api.RoomChat)
	router.GET("/api/languages", api.Languages)

	router.GET("/ws", gin.WrapH(NewWSHandler(hub, cfg, logger)))

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}
