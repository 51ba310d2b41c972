package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"moviecat/internal/auth"
	"moviecat/internal/cache"
	"moviecat/internal/config"
	"moviecat/internal/events"
	apphttp "moviecat/internal/http"
	"moviecat/internal/mail"
	"moviecat/internal/notify"
	"moviecat/internal/repository"
	"moviecat/internal/repository/sqlite"
	"moviecat/internal/service"
	"moviecat/internal/storage"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("invalid config: %v", err)
	}
	if level, err := logrus.ParseLevel(cfg.Log.Level); err == nil {
		logger.SetLevel(level)
	} else {
		logger.Warnf("unknown log level %q, using info", cfg.Log.Level)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		logger.Fatalf("open database: %v", err)
	}
	defer db.Close()

	userRepo := sqlite.NewUserRepository(db)
	categoryStore := sqlite.NewCategoryRepository(db)
	movieRepo := sqlite.NewMovieRepository(db)

	if err := userRepo.Init(ctx); err != nil {
		logger.Fatalf("init user repository: %v", err)
	}
	if err := categoryStore.Init(ctx); err != nil {
		logger.Fatalf("init category repository: %v", err)
	}
	if err := movieRepo.Init(ctx); err != nil {
		logger.Fatalf("init movie repository: %v", err)
	}
	if err := categoryStore.Seed(ctx, defaultCategories); err != nil {
		logger.Fatalf("seed categories: %v", err)
	}

	var categoryRepo repository.CategoryRepository = categoryStore
	if rdb := cache.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB); rdb != nil {
		defer rdb.Close()
		ttl := time.Duration(cfg.Redis.CategoryTTLSecs) * time.Second
		categoryRepo = cache.NewCategoryCache(categoryStore, rdb, ttl, logger)
		logger.Infof("category cache enabled (redis %s)", cfg.Redis.Addr)
	} else if cfg.Redis.Addr != "" {
		logger.Warnf("redis %s unreachable, category cache disabled", cfg.Redis.Addr)
	}

	storageSvc, err := buildStorage(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("setup storage: %v", err)
	}

	sender, err := buildMailSender(cfg, logger)
	if err != nil {
		logger.Fatalf("setup mail: %v", err)
	}
	notifier := notify.NewNotifier(sender, logger)

	publisher, stopEvents := buildEvents(ctx, cfg, notifier.HandleMovieScheduled, logger)

	signer := auth.NewSigner(cfg.Auth.JWTSecret, time.Duration(cfg.Auth.TokenTTLMinutes)*time.Minute)
	userService := service.NewUserService(userRepo, signer, cfg.Auth.BcryptCost)
	authService := service.NewAuthService(userRepo, signer)
	categoryService := service.NewCategoryService(categoryRepo)
	movieService := service.NewMovieService(movieRepo, categoryRepo, userRepo, storageSvc, publisher, logger)

	if err := userService.EnsureAdmin(ctx, cfg.Auth.AdminEmail, cfg.Auth.AdminPassword); err != nil {
		logger.Fatalf("bootstrap admin: %v", err)
	}

	location, err := time.LoadLocation(cfg.Jobs.Timezone)
	if err != nil {
		logger.Fatalf("load timezone %q: %v", cfg.Jobs.Timezone, err)
	}
	releaseJob, err := notify.NewReleaseJob(movieRepo, sender, logger, cfg.Jobs.ReleaseCron, location)
	if err != nil {
		logger.Fatalf("setup release job: %v", err)
	}
	if err := releaseJob.Start(ctx); err != nil {
		logger.Fatalf("start release job: %v", err)
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	handler := apphttp.NewHandler(
		authService,
		userService,
		movieService,
		categoryService,
		logger,
		apphttp.Options{
			CORSOrigins:    cfg.Server.CORSOrigins,
			MaxUploadBytes: int64(cfg.Storage.MaxUploadMB) << 20,
		},
	)
	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: router,
	}

	go func() {
		logger.Infof("listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("http server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("http shutdown: %v", err)
	}
	releaseJob.Stop()
	stopEvents()

	logger.Info("bye")
}

func buildStorage(ctx context.Context, cfg config.Config, logger *logrus.Logger) (storage.Service, error) {
	if cfg.Storage.Bucket == "" {
		return nil, fmt.Errorf("storage bucket is required")
	}

	loadOpts := []func(*awscfg.LoadOptions) error{
		awscfg.WithRegion(cfg.Storage.Region),
	}
	if cfg.AWS.Profile != "" {
		loadOpts = append(loadOpts, awscfg.WithSharedConfigProfile(cfg.AWS.Profile))
	}

	awsCfg, err := awscfg.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Storage.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Storage.Endpoint)
			o.UsePathStyle = true
		}
	})
	logger.Infof("using s3 bucket %s (region %s)", cfg.Storage.Bucket, cfg.Storage.Region)
	return storage.NewS3Service(client, storage.S3Options{
		Bucket:        cfg.Storage.Bucket,
		Region:        cfg.Storage.Region,
		KeyPrefix:     cfg.Storage.KeyPrefix,
		PublicBaseURL: cfg.Storage.PublicBaseURL,
	}), nil
}

func buildMailSender(cfg config.Config, logger *logrus.Logger) (mail.Sender, error) {
	if cfg.Mail.Host == "" {
		logger.Warn("mail host not set, emails will only be logged")
		return mail.LogSender{Logger: logger}, nil
	}
	sender, err := mail.NewSMTPSender(mail.SMTPConfig{
		Host:     cfg.Mail.Host,
		Port:     cfg.Mail.Port,
		Username: cfg.Mail.Username,
		Password: cfg.Mail.Password,
		From:     cfg.Mail.From,
	})
	if err != nil {
		return nil, err
	}
	logger.Infof("sending mail via %s:%d", cfg.Mail.Host, cfg.Mail.Port)
	return sender, nil
}

// buildEvents returns the publisher used by the movie service and a function
// that drains and stops delivery. With a broker URL the handler runs behind
// an AMQP queue; otherwise events stay in process.
func buildEvents(ctx context.Context, cfg config.Config, handler events.Handler, logger *logrus.Logger) (events.Publisher, func()) {
	if cfg.AMQP.URL == "" {
		bus := events.NewMemoryBus(events.MemoryBusConfig{
			Workers: cfg.Jobs.Workers,
			Logger:  logger,
		}, handler)
		bus.Start(ctx)
		return bus, bus.Close
	}

	publisher := events.NewAMQPPublisher(cfg.AMQP.URL, cfg.AMQP.Queue, logger)
	consumer := events.NewAMQPConsumer(cfg.AMQP.URL, cfg.AMQP.Queue, handler, logger)

	consumerCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		consumer.Run(consumerCtx)
	}()
	logger.Infof("publishing events to amqp queue %s", cfg.AMQP.Queue)

	return publisher, func() {
		cancel()
		<-done
		publisher.Close()
	}
}
