package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/therapy-center-api/api/swagger"
	"github.com/noah-isme/therapy-center-api/internal/handler"
	internalmiddleware "github.com/noah-isme/therapy-center-api/internal/middleware"
	"github.com/noah-isme/therapy-center-api/internal/repository"
	"github.com/noah-isme/therapy-center-api/internal/service"
	"github.com/noah-isme/therapy-center-api/pkg/cache"
	"github.com/noah-isme/therapy-center-api/pkg/clock"
	"github.com/noah-isme/therapy-center-api/pkg/config"
	"github.com/noah-isme/therapy-center-api/pkg/database"
	"github.com/noah-isme/therapy-center-api/pkg/lock"
	"github.com/noah-isme/therapy-center-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/therapy-center-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/therapy-center-api/pkg/middleware/requestid"
)

// @title Therapy Center Scheduling API
// @version 1.0.0
// @description Teacher schedules and therapy session booking with conflict detection.
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logr); err != nil {
		logr.Fatal("server failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logr *zap.Logger) error {
	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer db.Close()

	if cfg.Database.RunMigrations {
		if err := database.Migrate(ctx, db.DB, logr); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer redisClient.Close()
	}

	metrics := service.NewMetricsService()
	validate := service.NewValidator()

	var locker lock.Locker = lock.NewKeyedMutex(cfg.Lock.Wait)
	if cfg.Lock.Backend == config.LockBackendRedis {
		if redisClient == nil {
			return errors.New("LOCK_BACKEND=redis requires REDIS_ENABLED=true")
		}
		locker = lock.NewRedisLocker(redisClient, cfg.Lock.TTL, cfg.Lock.Wait, logr)
	}

	var cacheRepo service.CacheRepository
	if redisClient != nil {
		cacheRepo = repository.NewCacheRepository(redisClient)
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Scheduling.CacheTTL, logr, cfg.Scheduling.CacheEnabled && redisClient != nil)

	teacherRepo := repository.NewTeacherRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	sessionRepo := repository.NewTherapySessionRepository(db)

	scheduleSvc := service.NewScheduleService(scheduleRepo, teacherRepo, cacheSvc, validate, logr)
	therapySvc := service.NewTherapyService(
		sessionRepo, teacherRepo, studentRepo, scheduleSvc, locker, clock.System(),
		service.TherapyConfig{
			Location:      cfg.Scheduling.Location,
			UpcomingLimit: cfg.Scheduling.UpcomingLimit,
			LockBackend:   cfg.Lock.Backend,
		},
		metrics, validate, logr,
	)
	tokenSvc := service.NewTokenService(cfg.JWT.Secret, cfg.JWT.Issuer)

	checks := map[string]handler.Pinger{"postgres": db}
	if redisClient != nil {
		checks["redis"] = handler.PingFunc(func(ctx context.Context) error { return redisClient.Ping(ctx).Err() })
	}
	metricsHandler := handler.NewMetricsHandler(metrics, checks)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metrics))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	handler.Routes{
		Schedules: handler.NewScheduleHandler(scheduleSvc),
		Therapy:   handler.NewTherapyHandler(therapySvc),
		Metrics:   metricsHandler,
	}.Register(r.Group(cfg.APIPrefix), internalmiddleware.JWT(tokenSvc))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Info("server starting",
			zap.String("addr", srv.Addr),
			zap.String("env", cfg.Env),
			zap.String("lock_backend", cfg.Lock.Backend),
			zap.Bool("schedule_cache", cacheSvc.Enabled()),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
