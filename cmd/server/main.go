package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tcpos/internal/config"
	"tcpos/internal/domain"
	"tcpos/internal/events"
	"tcpos/internal/httpapi"
	"tcpos/internal/media"
	"tcpos/internal/service"
	"tcpos/internal/store"
	"tcpos/internal/store/memory"
	pgstore "tcpos/internal/store/postgres"
	redisstore "tcpos/internal/store/redis"
)

func main() {
	cfg := config.Load()
	if err := validateSecurityConfig(cfg); err != nil {
		log.Fatalf("invalid security configuration: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	closers := make([]func() error, 0, 3)

	blobs, err := openBlobStore(ctx, cfg)
	if err != nil {
		log.Fatalf("%s store unavailable: %v; refusing to start with in-memory fallback", cfg.StoreBackend, err)
	}
	closers = append(closers, blobs.Close)
	log.Printf("repository: %s", cfg.StoreBackend)

	uploader := media.NewUploader(openImageStorage(ctx, cfg), cfg.MaxImageBytes)

	publisher := events.Publisher(events.Noop{})
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPublisher := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		publisher = kafkaPublisher
		closers = append(closers, kafkaPublisher.Close)
		log.Printf("events: kafka topic %s", cfg.KafkaTopic)
	} else {
		log.Println("events: noop")
	}

	loc, err := time.LoadLocation(cfg.StoreTimezone)
	if err != nil {
		log.Printf("[config] WARN: unknown STORE_TIMEZONE %q (%v), using UTC", cfg.StoreTimezone, err)
		loc = time.UTC
	}

	svc, err := service.New(ctx, store.NewCollections(blobs), service.Options{
		ExchangeRate: cfg.ExchangeRate,
		Store: domain.StoreInfo{
			Name:    cfg.StoreName,
			Tagline: cfg.StoreTagline,
			Phone:   cfg.StorePhone,
			Address: cfg.StoreAddress,
		},
		Location: loc,
		Events:   publisher,
		Media:    uploader,
	})
	if err != nil {
		log.Fatalf("load store state: %v", err)
	}

	auth, err := httpapi.NewAuthManager(cfg.AuthSecret, time.Duration(cfg.AccessTokenTTLMinutes)*time.Minute, httpapi.Operator{
		Username:    cfg.AdminUsername,
		Password:    cfg.AdminPassword,
		DisplayName: cfg.AdminDisplayName,
	})
	if err != nil {
		log.Fatalf("invalid operator account: %v", err)
	}
	api := httpapi.New(svc, auth, cfg.AllowedOrigin)

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("POS backend listening on %s", cfg.Address())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}

	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			log.Printf("close error: %v", err)
		}
	}

	log.Println("server stopped")
}

func openBlobStore(ctx context.Context, cfg config.Config) (store.BlobStore, error) {
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
		if err := pgstore.Migrate(cfg.DatabaseURL); err != nil {
			return nil, err
		}
		pg, err := pgstore.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return pg, nil
	case config.BackendRedis:
		if cfg.RedisAddr == "" {
			return nil, fmt.Errorf("REDIS_ADDR is required")
		}
		rs := redisstore.New(redisstore.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := rs.Ping(ctx); err != nil {
			_ = rs.Close()
			return nil, err
		}
		return rs, nil
	case config.BackendMemory:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
	}
}

// openImageStorage prefers object storage and falls back to inline data URLs
// when it is not configured or not reachable.
func openImageStorage(ctx context.Context, cfg config.Config) media.Storage {
	if cfg.MinioEndpoint == "" {
		log.Println("images: inline")
		return media.InlineStorage{}
	}
	objects, err := media.NewObjectStorage(media.ObjectStorageConfig{
		Endpoint:  cfg.MinioEndpoint,
		AccessKey: cfg.MinioAccessKey,
		SecretKey: cfg.MinioSecretKey,
		Bucket:    cfg.MinioBucket,
		UseSSL:    cfg.MinioUseSSL,
		PublicURL: cfg.MinioPublicURL,
	})
	if err == nil {
		err = objects.EnsureBucket(ctx)
	}
	if err != nil {
		log.Printf("object storage unavailable (%v), storing images inline", err)
		return media.InlineStorage{}
	}
	log.Printf("images: bucket %s", cfg.MinioBucket)
	return objects
}

func validateSecurityConfig(cfg config.Config) error {
	if len(cfg.AuthSecret) < 32 {
		return fmt.Errorf("AUTH_SECRET must be set and at least 32 characters")
	}
	if len(cfg.AdminPassword) < 6 {
		return fmt.Errorf("ADMIN_PASSWORD must be at least 6 characters")
	}
	return nil
}
