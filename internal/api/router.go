package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/pawsuite/resort-api/internal/alternatives"
	"github.com/pawsuite/resort-api/internal/api/handlers"
	"github.com/pawsuite/resort-api/internal/api/middleware"
	"github.com/pawsuite/resort-api/internal/availability"
	"github.com/pawsuite/resort-api/internal/config"
	"github.com/pawsuite/resort-api/internal/db"
	"github.com/pawsuite/resort-api/internal/metrics"
	"github.com/pawsuite/resort-api/internal/queue"
	"github.com/pawsuite/resort-api/internal/storage/redis"
	"github.com/pawsuite/resort-api/internal/waitlist"
)

type Server struct {
	Config *config.Config
	Router *gin.Engine
	Repo   *db.Repository
	Logger *zap.Logger
}

func NewServer(cfg *config.Config, repo *db.Repository, cache *redis.Client, jobQueue *queue.RedisQueue, collector *metrics.Collector, logger *zap.Logger) *Server {
	gin.SetMode(cfg.Server.Mode)
	router := gin.New()

	// Middleware
	router.Use(middleware.Logger(logger))
	router.Use(gin.Recovery())
	router.Use(middleware.CORS())
	router.Use(middleware.RateLimit(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst))

	server := &Server{
		Config: cfg,
		Router: router,
		Repo:   repo,
		Logger: logger,
	}

	server.setupRoutes(cache, jobQueue, collector)
	return server
}

func (s *Server) setupRoutes(cache *redis.Client, jobQueue *queue.RedisQueue, collector *metrics.Collector) {
	checker := availability.NewChecker(s.Repo, activeStatuses(s.Config), s.Logger, collector)
	pool := alternatives.NewCachedPool(s.Repo, cache, s.Config.Availability.PoolCacheTTL, s.Logger)
	advisor := alternatives.NewAdvisor(checker, pool, s.Repo, s.Config.Availability.ScanWindowDays, s.Logger, collector)
	waitlistSvc := waitlist.NewService(s.Repo, jobQueue, s.Config.Waitlist.ConfirmWindow, s.Logger, collector)

	h := handlers.NewHandler(checker, advisor, waitlistSvc, s.Repo, s.Repo, s.Repo, collector, s.Logger)

	// Health and metrics
	s.Router.GET("/health", h.Health)
	s.Router.GET("/ready", h.Ready)
	s.Router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API routes (protected)
	api := s.Router.Group("/api/v1")
	api.Use(middleware.AuthRequired(s.Config.JWT.Secret))
	api.Use(middleware.Tenant())

	// Resources and availability
	{
		api.GET("/resources", h.ListResources)
		api.GET("/resources/availability", h.GetAvailability)
		api.POST("/resources/availability/batch", h.BatchAvailability)
		api.POST("/availability/alternatives", h.SuggestAlternatives)
	}

	// Reservations
	{
		api.POST("/reservations", h.CreateReservation)
		api.GET("/reservations", h.ListReservations)
		api.GET("/reservations/:id", h.GetReservation)
		api.POST("/reservations/:id/cancel", h.CancelReservation)
		api.POST("/reservations/:id/check-in", h.CheckInReservation)
		api.POST("/reservations/:id/check-out", h.CheckOutReservation)
	}

	// Waitlist
	{
		api.POST("/waitlist", h.JoinWaitlist)
		api.GET("/waitlist", h.ListWaitlist)
		api.POST("/waitlist/:id/convert", h.ConvertWaitlistEntry)
	}
}

func activeStatuses(cfg *config.Config) []db.ReservationStatus {
	if len(cfg.Availability.ActiveStatuses) == 0 {
		return db.ActiveStatuses
	}
	statuses := make([]db.ReservationStatus, 0, len(cfg.Availability.ActiveStatuses))
	for _, s := range cfg.Availability.ActiveStatuses {
		statuses = append(statuses, db.ReservationStatus(s))
	}
	return statuses
}
