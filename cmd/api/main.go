package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"gorm.io/gorm"

	httpadp "timeaway-backend/internal/adapter/http"
	idemp "timeaway-backend/internal/adapter/middleware"
	"timeaway-backend/internal/adapter/repository/mongostore"
	"timeaway-backend/internal/adapter/repository/sqlstore"
	"timeaway-backend/internal/config"
	domain "timeaway-backend/internal/domain/request"
	"timeaway-backend/internal/infrastructure/cache"
	"timeaway-backend/internal/infrastructure/db"
	"timeaway-backend/internal/infrastructure/logging"
	"timeaway-backend/internal/usecase/reconcile"
	"timeaway-backend/internal/usecase/request"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("load config")
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err := cfg.Validate(); err != nil {
		log.WithError(err).Fatal("invalid config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, closeStore, err := openRepository(ctx, cfg, log)
	if err != nil {
		log.WithError(err).WithField("driver", cfg.StoreDriver).Fatal("open store")
	}
	defer closeStore()
	if cfg.SerializeStore() {
		repo = domain.Serialize(repo)
	}

	var wg sync.WaitGroup
	var reports httpadp.ReportSource
	if cfg.ReconcileEnabled {
		loc, _ := cfg.Location() // checked by Validate
		rc := reconcile.New(repo, logging.Component(log, "reconciler"),
			reconcile.WithLocation(loc),
			reconcile.WithBatchLimit(cfg.ReconcileBatchLimit),
		)
		reports = rc
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := rc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.WithError(err).Error("reconciler stopped")
			}
		}()
	}

	var createMW []echo.MiddlewareFunc
	if cfg.RedisAddr != "" {
		rdb, err := cache.OpenRedis(ctx, cache.RedisOptions{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		if err != nil {
			log.WithError(err).Fatal("open redis")
		}
		defer rdb.Close()
		createMW = append(createMW, idemp.IdempotencyMiddleware(rdb, cfg.IdempotencyTTL(), logging.Component(log, "idempotency")))
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = httpadp.NewValidator()
	e.Use(middleware.Logger(), middleware.Recover())

	rh := httpadp.NewRequestHandler(request.NewUsecase(repo), logging.Component(log, "http"))
	httpadp.RegisterRoutes(e, httpadp.NewHandler(reports), rh, createMW...)

	addr := ":" + cfg.AppPort
	go func() {
		log.WithField("addr", addr).Info("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("http server")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("http shutdown")
	}
	wg.Wait()
}

// openRepository connects the configured store and returns the port plus a
// close function.
func openRepository(ctx context.Context, cfg *config.Config, log *logrus.Logger) (domain.Repository, func(), error) {
	if cfg.StoreDriver == config.DriverMongo {
		client, err := db.OpenMongo(ctx, cfg.MongoURI)
		if err != nil {
			return nil, nil, err
		}
		repo := mongostore.NewRequestRepository(client.Database(cfg.MongoDB).Collection(cfg.MongoCollection))
		if err := repo.EnsureIndexes(ctx); err != nil {
			log.WithError(err).Warn("mongo: index creation failed")
		}
		log.WithField("db", cfg.MongoDB).Info("mongo: connected")
		return repo, func() { disconnectMongo(client, log) }, nil
	}

	gdb, err := db.OpenGorm(cfg.StoreDriver, cfg.DSN(), log)
	if err != nil {
		return nil, nil, err
	}
	if err := sqlstore.AutoMigrate(gdb); err != nil {
		return nil, nil, err
	}
	return sqlstore.NewRequestRepository(gdb), func() { closeGorm(gdb, log) }, nil
}

func disconnectMongo(client *mongo.Client, log *logrus.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Disconnect(ctx); err != nil {
		log.WithError(err).Warn("mongo disconnect")
	}
}

func closeGorm(gdb *gorm.DB, log *logrus.Logger) {
	sqlDB, err := gdb.DB()
	if err == nil {
		err = sqlDB.Close()
	}
	if err != nil {
		log.WithError(err).Warn("gorm close")
	}
}
