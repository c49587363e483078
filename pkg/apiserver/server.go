package apiserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/fasehq/fase-server/pkg/activitylog"
	"github.com/fasehq/fase-server/pkg/apiserver/handlers"
	"github.com/fasehq/fase-server/pkg/apiserver/middleware"
	"github.com/fasehq/fase-server/pkg/auth"
	"github.com/fasehq/fase-server/pkg/calendar"
	"github.com/fasehq/fase-server/pkg/config"
	"github.com/fasehq/fase-server/pkg/eventbus"
	"github.com/fasehq/fase-server/pkg/gamification"
	"github.com/fasehq/fase-server/pkg/hierarchy"
	"github.com/fasehq/fase-server/pkg/store/postgres"
	redisclient "github.com/fasehq/fase-server/pkg/store/redis"
	"github.com/fasehq/fase-server/pkg/visibility"
)

type Server struct {
	router *gin.Engine
	db     *postgres.Store
	redis  *redisclient.Client
	cfg    *config.Config
	logger *zap.Logger
}

func NewServer(db *postgres.Store, redis *redisclient.Client, cfg *config.Config, logger *zap.Logger) *Server {
	s := &Server{
		db:     db,
		redis:  redis,
		cfg:    cfg,
		logger: logger,
	}
	s.setupRouter()
	return s
}

func (s *Server) setupRouter() {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middleware.Logger(s.logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.CORS(s.cfg.Server.CORSOrigin))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	tokens := auth.NewTokenManager([]byte(s.cfg.Auth.JWTSecret), s.cfg.Auth.TokenTTL)

	var bus *eventbus.Bus
	var leaderboard *gamification.Leaderboard
	var logPublisher activitylog.Publisher
	var gamPublisher gamification.Publisher
	if s.redis != nil {
		bus = eventbus.NewBus(s.redis.Client())
		leaderboard = gamification.NewLeaderboard(s.redis.Client())
		logPublisher = bus
		gamPublisher = bus
	}

	var db *gorm.DB
	if s.db != nil {
		db = s.db.DB()
	}
	users := postgres.NewUserRepository(db)
	memberships := postgres.NewMembershipRepository(db)
	logs := postgres.NewActivityLogRepository(db)
	gamRepo := postgres.NewGamificationRepository(db)
	calRepo := postgres.NewCalendarRepository(db)

	filter := visibility.NewFilter(users)
	resolver := hierarchy.NewResolver(memberships)
	recorder := activitylog.NewRecorder(logPublisher, s.logger)
	logService := activitylog.NewService(logs, filter)
	engine := gamification.NewEngine(gamRepo, leaderboard, gamPublisher, s.logger)
	aggregator := calendar.NewAggregator(calRepo)

	authHandler := handlers.NewAuthHandler(users, memberships, tokens, s.logger)
	r.POST("/api/v1/auth/login", authHandler.Login)

	api := r.Group("/api/v1")
	{
		api.Use(middleware.Auth(tokens))

		logHandler := handlers.NewActivityLogHandler(logService, filter, bus, s.logger)
		api.GET("/activity-logs", logHandler.List)
		api.GET("/activity-logs/viewable-users", logHandler.ViewableUsers)
		api.GET("/activity-logs/stream", logHandler.Stream)

		rockHandler := handlers.NewRockHandler(s.db, filter, recorder, engine, s.logger)
		api.POST("/big-rocks", rockHandler.Create)
		api.GET("/big-rocks", rockHandler.List)
		api.GET("/big-rocks/:id", rockHandler.Get)
		api.PUT("/big-rocks/:id", rockHandler.Update)
		api.DELETE("/big-rocks/:id", rockHandler.Delete)

		taskHandler := handlers.NewTaskHandler(s.db, rockHandler, recorder, s.logger)
		api.POST("/big-rocks/:id/tars", taskHandler.CreateTAR)
		api.PUT("/tars/:id", taskHandler.UpdateTAR)
		api.DELETE("/tars/:id", taskHandler.DeleteTAR)
		api.POST("/tars/:id/complete", taskHandler.CompleteTAR)
		api.POST("/tars/:id/activities", taskHandler.CreateActivity)
		api.PUT("/activities/:id", taskHandler.UpdateActivity)
		api.POST("/activities/:id/complete", taskHandler.CompleteActivity)
		api.DELETE("/activities/:id", taskHandler.DeleteActivity)

		meetingHandler := handlers.NewMeetingHandler(s.db, rockHandler, recorder, s.logger)
		api.POST("/big-rocks/:id/key-meetings", meetingHandler.CreateMeeting)
		api.PUT("/key-meetings/:id", meetingHandler.UpdateMeeting)
		api.DELETE("/key-meetings/:id", meetingHandler.DeleteMeeting)
		api.POST("/big-rocks/:id/key-people", meetingHandler.CreatePerson)
		api.PUT("/key-people/:id", meetingHandler.UpdatePerson)
		api.DELETE("/key-people/:id", meetingHandler.DeletePerson)

		userHandler := handlers.NewUserHandler(s.db, users, recorder, s.logger)
		api.GET("/users", userHandler.List)
		api.PUT("/users/:id/role", userHandler.UpdateRole)
		api.PUT("/users/:id/status", userHandler.UpdateStatus)

		companyHandler := handlers.NewCompanyHandler(s.db, memberships, resolver, recorder, s.logger)
		api.POST("/companies", companyHandler.Create)
		api.GET("/companies/:id/members", companyHandler.ListMembers)
		api.POST("/companies/:id/members", companyHandler.AddMember)
		api.PUT("/companies/:id/members/:userId/supervisor", companyHandler.AssignSupervisor)
		api.DELETE("/companies/:id/members/:userId/supervisor", companyHandler.ClearSupervisor)

		calendarHandler := handlers.NewCalendarHandler(aggregator, s.logger)
		api.GET("/calendar", calendarHandler.Get)

		gamHandler := handlers.NewGamificationHandler(engine, s.logger)
		api.GET("/gamification/me", gamHandler.Me)
		api.GET("/gamification/leaderboard", gamHandler.Leaderboard)
		api.POST("/gamification/weekly-review", gamHandler.WeeklyReview)
	}

	s.router = r
}

func (s *Server) Router() *gin.Engine {
	return s.router
}
