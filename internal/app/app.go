package app

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"
	"worksheet_backend/internal/config"
	"worksheet_backend/internal/controller"
	"worksheet_backend/internal/repository"
	"worksheet_backend/internal/service"
	"worksheet_backend/internal/sourcing"
	"worksheet_backend/internal/util"
	"worksheet_backend/pkg/configwatcher"
	"worksheet_backend/pkg/database"
	"worksheet_backend/pkg/logger"
	"worksheet_backend/pkg/monitoring"
	"worksheet_backend/pkg/security"
	"worksheet_backend/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config          *config.Config
	ConfigDir       string
	Router          *gin.Engine
	DB              *gorm.DB
	Redis           *redis.Client
	services        *services
	tracerProvider  *sdktrace.TracerProvider
	limiters        []*security.Limiter
	configCallbacks []func(*config.Config)
}

type repositories struct {
	task      *repository.TaskRepository
	worksheet *repository.WorksheetRepository
}

type services struct {
	storage   *service.StorageService
	ai        *service.AIService
	worksheet *service.WorksheetService
}

type controllers struct {
	worksheet *controller.WorksheetController
	task      *controller.TaskController
	health    *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

func (a *App) initRepositories(db *gorm.DB, rdb *redis.Client, cfg *config.Config) *repositories {
	return &repositories{
		task:      repository.NewTaskRepository(db, rdb, cfg.Sourcing.CandidateCacheTTL()),
		worksheet: repository.NewWorksheetRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config) *services {
	s := &services{}

	s.storage = service.NewStorageService(cfg)
	s.ai = service.NewAIService(cfg.AI)

	// 未配置生成服务时全部由题库补足
	var generator sourcing.GenerationClient
	if s.ai.Configured() {
		generator = s.ai
	} else {
		logger.Log.Warn("AI api key not configured, worksheets will be sourced from the task store only")
	}

	orchestrator := sourcing.NewOrchestrator(
		generator,
		repos.task,
		sourcing.WithOptions(service.OrchestratorOptions(cfg.Sourcing)),
	)
	s.worksheet = service.NewWorksheetService(orchestrator, repos.worksheet, repos.task, s.storage, cfg.Sourcing)
	a.RegisterConfigCallback(s.worksheet.ApplyConfig)

	return s
}

func (a *App) initControllers(s *services, db *gorm.DB, rdb *redis.Client) *controllers {
	return &controllers{
		worksheet: controller.NewWorksheetController(s.worksheet),
		task:      controller.NewTaskController(s.worksheet),
		health:    controller.NewHealthController(db, rdb),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())
	if cfg.RateLimit.MaxRequests > 0 {
		window := time.Duration(cfg.RateLimit.WindowMinutes) * time.Minute
		if window <= 0 {
			window = time.Minute
		}
		limiter := security.NewLimiter(cfg.RateLimit.MaxRequests, window)
		a.limiters = append(a.limiters, limiter)
		router.Use(limiter.Middleware(security.ByClientIP))
	}

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

func NewApp(cfg *config.Config, configDir string) *App {
	logger.InitLogger(cfg)

	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
		log.Fatalf("Failed to initialize database: %v", err)
	}

	app := &App{
		Config:    cfg,
		ConfigDir: configDir,
		DB:        db,
	}
	if cfg.MigrateOnly {
		return app
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
		log.Fatalf("Failed to initialize redis: %v", err)
	}
	app.Redis = rdb

	repos := app.initRepositories(db, rdb, cfg)
	services := app.initServices(repos, cfg)
	app.services = services
	controllers := app.initControllers(services, db, rdb)

	// 监控初始化
	monitoring.Init()

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	app.Router = router

	app.setupMiddlewares(router, cfg)

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer(tracing.ServiceName, cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		app.tracerProvider = tp
	}

	app.registerRoutes(router, controllers, cfg)

	if cfg.Storage.Type == util.StorageLocal {
		router.Static("/uploads", cfg.Storage.LocalPath)
	}

	return app
}

// watchConfig 配置文件变化时依次通知已注册的回调
func (a *App) watchConfig(ctx context.Context) {
	file := filepath.Join(a.ConfigDir, "config.yaml")
	err := configwatcher.WatchConfig(ctx, file, func(cfg *config.Config) {
		for _, callback := range a.configCallbacks {
			callback(cfg)
		}
	})
	if err != nil {
		logger.Log.Warn("Config hot reload disabled", zap.String("file", file), zap.Error(err))
	}
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	watchCtx, stopWatch := context.WithCancel(context.Background())
	defer stopWatch()
	go a.watchConfig(watchCtx)

	// 启动服务器
	go func() {
		log.Printf("Server running on port %s", a.Config.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// 等待中断信号优雅地关闭服务器。组卷可能等待生成服务，超时取生成超时加余量
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")
	stopWatch()

	timeout := a.Config.Sourcing.GenerationTimeout() + 5*time.Second
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	if a.tracerProvider != nil {
		if err := a.tracerProvider.Shutdown(ctx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	if a.Redis != nil {
		a.Redis.Close()
	}
	for _, limiter := range a.limiters {
		limiter.Close()
	}

	log.Println("Server exiting")
}
