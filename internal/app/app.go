package app

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lms_support_backend/internal/config"
	"lms_support_backend/internal/controller"
	"lms_support_backend/internal/repository"
	"lms_support_backend/internal/service"
	"lms_support_backend/internal/taxonomy"
	"lms_support_backend/pkg/database"
	"lms_support_backend/pkg/logger"
	"lms_support_backend/pkg/monitoring"
	"lms_support_backend/pkg/security"
	"lms_support_backend/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config  *config.Config
	Router  *gin.Engine
	DB      *gorm.DB
	Redis   *redis.Client
	Catalog *taxonomy.Catalog
}

type repositories struct {
	user         *repository.UserRepository
	ticket       *repository.TicketRepository
	conversation *repository.ConversationRepository
	document     *repository.DocumentRepository
}

type services struct {
	auth       *service.AuthService
	storage    *service.StorageService
	analytics  *service.AnalyticsService
	ticket     *service.TicketService
	document   *service.DocumentService
	resolver   *service.ResolverService
	resolution *service.ResolutionService
}

type controllers struct {
	auth   *controller.AuthController
	ticket *controller.TicketController
	admin  *controller.AdminController
	health *controller.HealthController
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		user:         repository.NewUserRepository(db),
		ticket:       repository.NewTicketRepository(db),
		conversation: repository.NewConversationRepository(db),
		document:     repository.NewDocumentRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, db *gorm.DB, rdb *redis.Client) *services {
	s := &services{}

	s.storage = service.NewStorageService(cfg)
	s.auth = service.NewAuthService(repos.user, cfg)
	s.analytics = service.NewAnalyticsService(rdb)
	s.ticket = service.NewTicketService(db, repos.ticket, repos.conversation, s.analytics)
	s.document = service.NewDocumentService(repos.document, s.storage, a.Catalog)
	s.resolver = service.NewResolverService(cfg.Resolver)
	s.resolution = service.NewResolutionService(s.resolver, s.ticket, repos.user, s.analytics)

	return s
}

func (a *App) initControllers(s *services, db *gorm.DB, rdb *redis.Client) *controllers {
	return &controllers{
		auth:   controller.NewAuthController(s.auth),
		ticket: controller.NewTicketController(s.ticket, s.resolution),
		admin:  controller.NewAdminController(s.ticket, s.document, s.analytics, a.Catalog),
		health: controller.NewHealthController(db, rdb),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())

	maxRequests := cfg.RateLimit.MaxRequests
	if maxRequests <= 0 {
		maxRequests = 1000
	}
	window := time.Duration(cfg.RateLimit.WindowMinutes) * time.Minute
	if window <= 0 {
		window = time.Minute
	}
	router.Use(security.RateLimiter(maxRequests, window))

	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg.Server.Mode)

	catalog, err := taxonomy.NewCatalog(cfg.Catalog)
	if err != nil {
		logger.Log.Fatal("Invalid course catalog", zap.Error(err))
	}

	db, err := database.InitDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}

	// release 模式默认不自动迁移，除非显式要求
	if cfg.Server.Mode != "release" || cfg.ForceMigrate {
		if err := database.Migrate(db); err != nil {
			logger.Log.Fatal("Failed to run migrations", zap.Error(err))
		}
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
	}

	app := &App{
		Config:  cfg,
		DB:      db,
		Redis:   rdb,
		Catalog: catalog,
	}

	repos := app.initRepositories(db)
	services := app.initServices(repos, cfg, db, rdb)
	controllers := app.initControllers(services, db, rdb)

	monitoring.Init()

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	app.Router = router

	app.setupMiddlewares(router, cfg)

	if cfg.Tracing.Enabled {
		if _, err := tracing.InitTracer("support-backend", cfg.Tracing.CollectorEndpoint); err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
	}

	app.registerRoutes(router, controllers, cfg)

	if cfg.Storage.Type == "local" {
		router.Static("/uploads", cfg.Storage.LocalPath)
	}

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	go func() {
		log.Printf("Server running on port %s", a.Config.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// 等待中断信号优雅地关闭服务器
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	logger.Log.Sync()
	log.Println("Server exiting")
}
