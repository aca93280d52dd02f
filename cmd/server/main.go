package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"

	"github.com/rl1809/stock-sync/internal/adapter/handler"
	"github.com/rl1809/stock-sync/internal/adapter/hub"
	"github.com/rl1809/stock-sync/internal/adapter/storage"
	"github.com/rl1809/stock-sync/internal/adapter/stream"
	"github.com/rl1809/stock-sync/internal/config"
	"github.com/rl1809/stock-sync/internal/core/service"
	"github.com/rl1809/stock-sync/internal/port"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// MySQL holds the ledger, the stock records and the catalog
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatalf("failed to connect mysql: %v", err)
	}
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("failed to ping mysql: %v", err)
	}
	if err := storage.Migrate(db); err != nil {
		log.Fatalf("failed to migrate: %v", err)
	}
	logger.Info("connected to mysql")

	mysqlAdapter := storage.NewMySQLAdapter(db)

	// Redis is the soft cache layer; absent config runs without it
	var cache port.Cache
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			PoolSize: 100,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatalf("failed to connect redis: %v", err)
		}
		cache = storage.NewRedisAdapter(rdb)
		logger.Info("connected to redis", "addr", cfg.RedisAddr)
	} else {
		logger.Info("redis disabled, running without cache")
	}

	broadcast := hub.New(logger, cfg.SessionQueueSize)

	pubs := []port.Publisher{broadcast}
	var feed *stream.Feed
	if len(cfg.KafkaBrokers) > 0 {
		feed = stream.New(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.FeedWorkers, cfg.FeedQueueSize, logger)
		pubs = append(pubs, feed)
		logger.Info("kafka feed enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	} else {
		logger.Info("kafka feed disabled")
	}

	syncService := service.NewSyncService(mysqlAdapter, mysqlAdapter, mysqlAdapter, cache, logger, pubs...)

	httpHandler := handler.NewHTTPHandler(syncService, broadcast, logger)
	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: httpHandler.Routes([]byte(cfg.JWTSecret)),
	}

	go func() {
		logger.Info("http server listening", "addr", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("http server error", "error", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown error", "error", err)
	}

	broadcast.Close()

	if feed != nil {
		if err := feed.Close(); err != nil {
			logger.Error("feed close error", "error", err)
		}
	}

	if rdb != nil {
		rdb.Close()
	}
	db.Close()
	logger.Info("stopped")
}
