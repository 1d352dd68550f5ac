package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/dealersense/chat-api/internal/api"
	"github.com/dealersense/chat-api/internal/config"
	"github.com/dealersense/chat-api/internal/db"
	"github.com/dealersense/chat-api/internal/events"
	"github.com/dealersense/chat-api/internal/logger"
	"github.com/dealersense/chat-api/internal/realtime"
	"github.com/dealersense/chat-api/internal/repository"
	"github.com/dealersense/chat-api/internal/repository/dao"
)

const shutdownTimeout = 10 * time.Second

const configPath = "./cmd/app/config.yml"

func Start() error {
	conf, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to initialize config -> %w", err)
	}

	if err = logger.Init(conf.API.Environment, conf.Log.Level); err != nil {
		return fmt.Errorf("failed to initialize logger -> %w", err)
	}
	defer func() { _ = zap.L().Sync() }()

	// Everything else keeps the settings it started with.
	err = config.Watch(configPath, func(c *config.AppConfig) {
		if err := logger.SetLevel(c.Log.Level); err != nil {
			zap.L().Warn("ignoring log level change", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("failed to watch config -> %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbURL := os.Getenv("DATABASE_URL")
	var postgresDB *gorm.DB
	if dbURL != "" {
		postgresDB, err = db.OpenPostgresWithURL(dbURL)
	} else {
		postgresDB, err = db.OpenPostgres(conf.Postgres)
	}
	if err != nil {
		return fmt.Errorf("failed to initialize database -> %w", err)
	}

	messages, closeMessages, err := openMessageStore(ctx, conf, postgresDB)
	if err != nil {
		return fmt.Errorf("failed to initialize message store -> %w", err)
	}
	defer closeMessages()

	deps := api.Dependencies{
		DB:       postgresDB,
		Messages: messages,
	}

	if conf.Redis.Enabled() {
		rdb := redis.NewClient(&redis.Options{
			Addr:     conf.Redis.Addr,
			Password: conf.Redis.Password,
			DB:       conf.Redis.DB,
		})
		defer rdb.Close()

		if err = rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to connect to redis -> %w", err)
		}
		deps.Relay = realtime.NewRedisRelay(rdb, conf.Redis.Channel)
		zap.L().Info("cross-instance relay enabled", zap.String("channel", conf.Redis.Channel))
	}

	if conf.Kafka.Enabled() {
		publisher := events.NewKafkaPublisher(conf.Kafka.Brokers, conf.Kafka.Topic)
		defer publisher.Close()
		deps.Events = publisher
		zap.L().Info("chat events enabled", zap.String("topic", conf.Kafka.Topic))
	}

	s := api.NewServer(conf, deps)

	hubErr := make(chan error, 1)
	go func() {
		hubErr <- s.Hub.Run(ctx)
	}()

	srv := &http.Server{
		Addr:              ":" + s.Config.API.Port,
		Handler:           s.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		zap.L().Info(fmt.Sprintf("starting server at %v", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err = <-serveErr:
		if err != nil {
			return fmt.Errorf("failed to start the server -> %w", err)
		}
	case err = <-hubErr:
		if err != nil {
			return fmt.Errorf("realtime hub stopped -> %w", err)
		}
	case <-ctx.Done():
	}

	zap.L().Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err = srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down the server -> %w", err)
	}

	return nil
}

func openMessageStore(ctx context.Context, conf *config.AppConfig, postgresDB *gorm.DB) (repository.MessageDAO, func(), error) {
	if conf.Store.Driver != config.StoreDriverMongo {
		return dao.NewMessageDAO(postgresDB), func() {}, nil
	}

	client, err := db.OpenMongo(ctx, conf.Mongo)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if err := client.Disconnect(context.Background()); err != nil {
			zap.L().Warn("failed to disconnect mongo", zap.Error(err))
		}
	}

	messages := dao.NewMongoMessageDAO(client.Database(conf.Mongo.Database).Collection(conf.Mongo.Collection))
	if err = messages.EnsureIndexes(ctx); err != nil {
		closeFn()
		return nil, nil, fmt.Errorf("messages.EnsureIndexes -> %w", err)
	}

	return messages, closeFn, nil
}
