package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"firewatch-worker-go/internal/alerts"
	"firewatch-worker-go/internal/api/handlers"
	"firewatch-worker-go/internal/config"
	"firewatch-worker-go/internal/models"
)

// Server is the review dashboard API. It doubles as a notification channel:
// delivery is a no-op because the dashboard reads alerts straight from the
// store on request.
type Server struct {
	config *config.Config
	router *gin.Engine
	server *http.Server

	healthHandler *handlers.HealthHandler
	alertHandler  *handlers.AlertHandler
}

func NewServer(cfg *config.Config, store *alerts.Store) *Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	return &Server{
		config:        cfg,
		router:        router,
		healthHandler: handlers.NewHealthHandler(cfg.WorkerID, cfg.Version, store),
		alertHandler:  handlers.NewAlertHandler(store, cfg.PendingLimit),
	}
}

func (s *Server) Setup() error {
	s.setupMiddleware()

	s.setupRoutes()

	s.setupSwagger()

	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.config.Port),
		Handler: s.router,
	}

	return nil
}

func (s *Server) Start() error {
	log.Info().Int("port", s.config.Port).Msg("🚀 Starting dashboard API")
	return s.server.ListenAndServe()
}

func (s *Server) Stop() error {
	log.Info().Msg("🛑 Stopping dashboard API")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

// Router exposes the handler for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) Name() string {
	return "dashboard"
}

// Send is a no-op; the alert is already visible via the store.
func (s *Server) Send(_ context.Context, alert *models.Alert) bool {
	log.Debug().Int64("alert_id", alert.ID).Msg("Alert available on dashboard")
	return true
}
