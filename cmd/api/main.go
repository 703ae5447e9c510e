package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/vosmiarka/warehouse-backend/api/routes"
	"github.com/vosmiarka/warehouse-backend/internal/catalog"
	"github.com/vosmiarka/warehouse-backend/internal/procurement"
	"github.com/vosmiarka/warehouse-backend/internal/sales"
	"github.com/vosmiarka/warehouse-backend/internal/units"
	"github.com/vosmiarka/warehouse-backend/pkg/config"
	"github.com/vosmiarka/warehouse-backend/pkg/db"
	"github.com/vosmiarka/warehouse-backend/pkg/logger"
	"github.com/vosmiarka/warehouse-backend/pkg/metrics"
	"github.com/vosmiarka/warehouse-backend/pkg/migrate"
	"github.com/vosmiarka/warehouse-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	unitsService, err := units.NewService(units.NewRepository(dbClient.DB()), dbClient, units.NewSerialGenerator())
	if err != nil {
		logg.Error(context.Background(), "failed to create units service", err)
		os.Exit(1)
	}

	catalogRepo := catalog.NewRepository(dbClient.DB())
	catalogService, err := catalog.NewService(catalogRepo, dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog service", err)
		os.Exit(1)
	}

	procurementService, err := procurement.NewService(procurement.NewRepository(dbClient.DB()), dbClient, unitsService, catalogRepo, catalogRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create procurement service", err)
		os.Exit(1)
	}

	salesService, err := sales.NewService(sales.NewRepository(dbClient.DB()), dbClient, unitsService, catalogRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create sales service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:      cfg,
			Logger:      logg,
			DB:          dbClient,
			Redis:       redisClient,
			Idempotency: redisClient,
			HTTPMetrics: metrics.NewHTTPMetrics(),
			Catalog:     catalogService,
			Units:       unitsService,
			Procurement: procurementService,
			Sales:       salesService,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
