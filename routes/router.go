package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/cajaoblatos/oblatos34/config"
	"github.com/cajaoblatos/oblatos34/controllers"
	"github.com/cajaoblatos/oblatos34/middleware"
	"github.com/cajaoblatos/oblatos34/services"
	"github.com/cajaoblatos/oblatos34/utils"
)

// Services groups the domain services shared by the router and the scheduler.
type Services struct {
	Points   *services.PointsService
	Games    *services.GameService
	Users    *services.UserService
	Events   *services.EventService
	Calendar *services.CalendarSyncService
	Push     *services.PushService
	Devices  *services.DeviceService
	Resets   *services.PasswordResetService
}

// NewServices builds every service from the database and config. source may be nil, which
// disables the calendar sync.
func NewServices(db *gorm.DB, cfg config.AppConfig, source services.CalendarSource) *Services {
	svc := &Services{
		Points:  services.NewPointsService(db),
		Games:   services.NewGameService(db, cfg.StreakRankingCacheTTL),
		Users:   services.NewUserService(db),
		Events:  services.NewEventService(db),
		Push:    services.NewPushService(cfg),
		Devices: services.NewDeviceService(db),
		Resets:  services.NewPasswordResetService(db, cfg),
	}
	if source != nil {
		svc.Calendar = services.NewCalendarSyncService(db, source)
	}
	return svc
}

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(db *gorm.DB, svc *Services) *gin.Engine {
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	utils.RegisterValidators()

	r := gin.New()
	r.Use(middleware.RequestID())
	// Replace default console logger with file-based zap logger
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg)
	if err == nil {
		r.Use(utils.Ginzap(gl, time.RFC3339, true))
		r.Use(utils.RecoveryWithZap(gl, false))
	} else {
		r.Use(gin.Recovery())
	}
	r.Use(middleware.Metrics())

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 0 || (len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*") {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	r.SetHTMLTemplate(controllers.ResetPageTemplate)

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	pointsController := controllers.NewPointsController(db, svc.Points)
	gameController := controllers.NewGameController(db, svc.Games)
	authController := controllers.NewAuthController(db, svc.Users, svc.Resets)
	userController := controllers.NewUserController(svc.Users)
	eventController := controllers.NewEventController(svc.Events, svc.Calendar)
	notificationController := controllers.NewNotificationController(svc.Push, svc.Devices)
	resetController := controllers.NewPasswordResetController(svc.Resets)

	resetGroup := r.Group("/password")
	resetGroup.Use(middleware.RateLimitMiddleware("reset"))
	resetGroup.GET("/reset", resetController.ShowForm)
	resetGroup.POST("/reset", resetController.Submit)

	api := r.Group("/api/v1")

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimitMiddleware("auth"))
	authGroup.POST("/login", authController.Login)
	authGroup.POST("/password/recover", authController.RecoverPassword)
	authGroup.GET("/me", middleware.AuthRequired(), authController.Me)

	// Public reads
	api.GET("/events", eventController.ListEvents)
	api.GET("/games/ranking", gameController.Ranking)
	api.GET("/rankings/streak", gameController.StreakRanking)
	api.GET("/users/app-points", middleware.OptionalAuth(), pointsController.AppPoints)
	api.GET("/users/game-points", middleware.OptionalAuth(), gameController.GamePoints)
	api.POST("/devices/token", middleware.OptionalAuth(), middleware.RateLimitMiddleware("devices"), notificationController.SaveDeviceToken)

	protected := api.Group("")
	protected.Use(middleware.AuthRequired(), middleware.RateLimitMiddleware("api"))
	protected.POST("/points/update", pointsController.UpdatePoints)
	protected.GET("/points/streak", pointsController.StreakStatus)
	protected.POST("/snippets/points", pointsController.AwardSnippet)
	protected.POST("/games/scores", gameController.SaveScore)
	protected.PUT("/users/me/profile", userController.UpdateProfile)

	admin := protected.Group("")
	admin.Use(middleware.AdminRequired())
	admin.GET("/users", userController.ListUsers)
	admin.GET("/snippets/stats", pointsController.SnippetStats)
	admin.POST("/events", eventController.SaveEvent)
	admin.DELETE("/events/:id", eventController.DeleteEvent)
	admin.GET("/events/upcoming", eventController.UpcomingEvents)
	admin.POST("/events/sync", eventController.SyncCalendar)
	admin.POST("/notifications/send", notificationController.Send)

	r.NoRoute(func(ctx *gin.Context) {
		if strings.HasPrefix(ctx.Request.URL.Path, "/api/") {
			utils.Error(ctx, http.StatusNotFound, 40400, "api route not found")
			return
		}
		utils.Error(ctx, http.StatusNotFound, 40400, "not found")
	})

	return r
}
