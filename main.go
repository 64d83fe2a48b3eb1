package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/geekyair/restaurant-backoffice/config"
	"github.com/geekyair/restaurant-backoffice/controllers"
	"github.com/geekyair/restaurant-backoffice/database"
	"github.com/geekyair/restaurant-backoffice/jobs"
	"github.com/geekyair/restaurant-backoffice/kafka"
	"github.com/geekyair/restaurant-backoffice/logger"
	"github.com/geekyair/restaurant-backoffice/middleware"
	"github.com/geekyair/restaurant-backoffice/repository"
	"github.com/geekyair/restaurant-backoffice/routes"
	"github.com/geekyair/restaurant-backoffice/sender"
	"github.com/geekyair/restaurant-backoffice/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger.Initialize(cfg.Env)
	defer logger.Log.Sync()
	log := logger.Log

	db, err := database.Connect(cfg.Postgres)
	if err != nil {
		log.Fatal("Database connection failed", zap.Error(err))
	}
	store := repository.NewStore(db)

	// --- Optional infrastructure, nil when unconfigured ---
	var producer kafka.ProducerAPI
	if cfg.Kafka.Brokers != "" {
		p := kafka.NewProducer(cfg.Kafka.Brokers)
		defer p.Close()
		producer = p
		log.Info("Kafka producer enabled", zap.String("brokers", cfg.Kafka.Brokers))
	}

	var emailSender sender.EmailSender
	if smtpSender, err := sender.NewSMTPSender(cfg.SMTP); err != nil {
		log.Warn("Email sending disabled", zap.Error(err))
	} else {
		emailSender = smtpSender
	}

	var cache *redis.Client
	if cfg.Redis.Addr != "" {
		cache = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
		})
		defer cache.Close()
		log.Info("Redis report cache enabled", zap.String("addr", cfg.Redis.Addr))
	}

	// --- Service wiring ---
	authService := services.NewAuthService(store, log, cfg.JWT.Secret, cfg.JWT.TTL)
	userService := services.NewUserService(store, emailSender, log, cfg.BaseURL)
	itemService := services.NewItemService(store, producer, emailSender, log,
		cfg.Kafka.EventsTopic, cfg.Jobs.PremiumFoodPriceFloor)
	orderService := services.NewOrderService(store, producer, emailSender, log,
		cfg.Kafka.EventsTopic, cfg.Jobs.MilestoneOrderCount,
		time.Duration(cfg.Jobs.MilestoneWindowDays)*24*time.Hour, cfg.Jobs.OrderExpiryCutoff)
	reportService := services.NewReportService(store, cache, log)

	userController := controllers.NewUserController(userService, authService)
	itemController := controllers.NewItemController(itemService)
	orderController := controllers.NewOrderController(orderService)
	reportController := controllers.NewReportController(reportService)

	// --- Scheduled jobs ---
	scheduler := jobs.NewScheduler(log)
	if err := jobs.RegisterAll(scheduler, cfg.Jobs,
		orderService, itemService, reportService, store, emailSender, log); err != nil {
		log.Fatal("Job registration failed", zap.Error(err))
	}
	scheduler.Start()

	// --- HTTP router ---
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(logger.RequestLogger())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.RateLimitMiddleware())

	routes.RegisterRoutes(router, authService,
		userController, itemController, orderController, reportController)

	srv := &http.Server{Addr: ":" + cfg.HTTPPort, Handler: router}

	go func() {
		log.Info("Restaurant back-office API starting", zap.String("port", cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down...")
	scheduler.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server stopped gracefully")
}
