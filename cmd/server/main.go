package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/ButyrinIA/menfess/internal/config"
	"github.com/ButyrinIA/menfess/internal/menfess"
	"github.com/ButyrinIA/menfess/internal/notify"
	"github.com/ButyrinIA/menfess/internal/push"
	"github.com/ButyrinIA/menfess/internal/realtime"
	"github.com/ButyrinIA/menfess/internal/server"
	"github.com/ButyrinIA/menfess/internal/storage/backend"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the config file")
	storageKind := flag.String("storage", "", "storage backend: memory, mongo or postgres (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("[server] failed to load config: %v", err)
	}
	if *storageKind != "" {
		kind, err := config.ParseBackendKind(*storageKind)
		if err != nil {
			log.Fatalf("[server] %v", err)
		}
		cfg.Storage.Backend = kind
		if err := cfg.Validate(); err != nil {
			log.Fatalf("[server] invalid config: %v", err)
		}
	}

	level, err := log.ParseLevel(cfg.Log.Level)
	if err != nil {
		log.Warnf("[server] unknown log level %q, using info", cfg.Log.Level)
		level = log.InfoLevel
	}
	log.SetLevel(level)

	ctx := context.Background()
	store, err := backend.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("[server] failed to open storage: %v", err)
	}

	var dispatcher push.Dispatcher = push.LogDispatcher{}
	var kafkaDispatcher *push.KafkaDispatcher
	if cfg.Kafka.Addr != "" {
		kafkaDispatcher = push.NewKafkaDispatcher(cfg.Kafka.Addr, cfg.Kafka.Topic)
		dispatcher = kafkaDispatcher
	}

	opts := []notify.Option{notify.WithAdmin(cfg.Admin.UID)}
	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warnf("[server] redis at %s unreachable, live notifications disabled: %v", cfg.Redis.Addr, err)
			rdb.Close()
			rdb = nil
		} else {
			opts = append(opts, notify.WithPublisher(notify.NewRedisPublisher(rdb)))
		}
	}

	hub := realtime.NewHub(realtime.DefaultBuffer)
	svc := menfess.NewService(store, notify.New(store, dispatcher, opts...), hub)
	api := server.New(cfg, svc, hub)

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: api.Handler(),
	}

	go func() {
		log.Infof("[server] starting on port %v", cfg.Server.Port)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("[server] failed to start: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	shutdownCtx, shutdownRelease := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownRelease()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("[server] HTTP server shutdown error: %v", err)
	} else {
		log.Info("[server] HTTP server shut down gracefully")
	}

	if kafkaDispatcher != nil {
		if err := kafkaDispatcher.Close(); err != nil {
			log.Errorf("[server] failed to close kafka writer: %v", err)
		}
	}
	if rdb != nil {
		rdb.Close()
	}
	if err := store.Close(); err != nil {
		log.Errorf("[server] failed to close storage: %v", err)
	}
	log.Info("[server] storage closed")
}
