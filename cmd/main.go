package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"album-service/internal/auth"
	"album-service/internal/config"
	"album-service/internal/derive"
	"album-service/internal/handlers"
	"album-service/internal/lock"
	"album-service/internal/repository"
	service "album-service/internal/services"
	"album-service/internal/storage"
	"album-service/internal/utils"
)

const sweepLeaseKey = "album-service:sweep-lease"

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load("config/config.yaml")
	if err != nil {
		panic(err)
	}
	dev := cfg.App.Env == "development"

	logger, err := utils.NewLogger(dev)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	// Mongo
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	mc, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Mongo.URI))
	if err != nil {
		logger.Fatalf("mongo connect: %v", err)
	}
	db := mc.Database(cfg.Mongo.Database)
	albumRepo := repository.NewAlbumRepo(db)
	mediaRepo := repository.NewMediaRepo(db)
	cascadeRepo := repository.NewCascadeRepo(mc, db)

	// Redis (sweep lease)
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Fatalf("redis ping: %v", err)
	}
	sweepLease := lock.NewLease(rdb, sweepLeaseKey, cfg.SweepLockTTL)

	// S3 store
	store, err := storage.NewS3Store(context.Background(), cfg.AWS.Region, cfg.AWS.Bucket, cfg.AWS.Endpoint)
	if err != nil {
		logger.Fatalf("s3 init: %v", err)
	}

	// services
	imageDeriver := derive.NewImage()
	videoDeriver := derive.NewVideo(logger)
	albumSvc := service.NewAlbumService(albumRepo, logger)
	ingestSvc := service.NewIngestService(albumRepo, mediaRepo, store, imageDeriver, videoDeriver, logger)
	mediaSvc := service.NewMediaService(mediaRepo, store, cfg.PresignTTL, logger)
	sweepSvc := service.NewSweepService(albumRepo, mediaRepo, cascadeRepo, store, sweepLease, logger)

	// JWT verifier
	verifier, err := auth.NewJWTVerifier(cfg.JWT.PublicKeyPath)
	if err != nil {
		logger.Fatalf("jwt init: %v", err)
	}

	// fiber app & routes
	app := fiber.New(fiber.Config{
		ReadTimeout:  5 * time.Minute, // uploads can be large
		WriteTimeout: 30 * time.Second,
		BodyLimit:    (service.MaxFileBytes + 1<<20) * service.MaxBatchFiles,
	})
	h := handlers.NewHandler(verifier, albumSvc, ingestSvc, mediaSvc)
	app.Post("/albums", h.CreateAlbum)
	app.Get("/albums/:id", h.GetAlbum)
	app.Post("/albums/:id/join", h.JoinAlbum)
	app.Post("/albums/:id/expire", h.ExpireAlbum)
	app.Post("/albums/:id/media", h.Upload)
	app.Get("/media/:id/url", h.GetDownloadURL)
	app.Get("/healthz", func(c *fiber.Ctx) error { return c.SendString("ok") })

	// scheduled sweep
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	go sweepSvc.Run(sweepCtx, cfg.SweepInterval)

	// start server
	go func() {
		addr := fmt.Sprintf(":%d", cfg.App.Port)
		logger.Infof("starting album service on %s", addr)
		if err := app.Listen(addr); err != nil {
			logger.Fatalf("listen failed: %v", err)
		}
	}()

	// graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	logger.Info("shutdown requested")
	stopSweep()

	timeoutCtx, cancel2 := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel2()

	_ = app.Shutdown()
	_ = rdb.Close()
	_ = mc.Disconnect(timeoutCtx)
	logger.Info("shutdown completed")
}
