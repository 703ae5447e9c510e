package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/vosmiarka/warehouse-backend/pkg/config"
	"github.com/vosmiarka/warehouse-backend/pkg/db"
	"github.com/vosmiarka/warehouse-backend/pkg/logger"
	"github.com/vosmiarka/warehouse-backend/pkg/migrate"
)

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "migrate"})

	_ = godotenv.Load()

	cmd := flag.String("cmd", "up", "migration command: up|down|status|version|create|validate")
	dir := flag.String("dir", migrate.DefaultDir, "goose migrations directory")
	name := flag.String("name", "", "migration name (for create)")
	version := flag.String("version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	flag.Parse()

	cfg, err := config.Load()
	fatalIf(ctx, logg, "load config", err)

	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx = logg.WithFields(context.Background(), map[string]any{
		"env": cfg.App.Env,
		"cmd": *cmd,
		"dir": *dir,
	})

	// create and validate never touch the database
	switch *cmd {
	case "create":
		if *name == "" {
			fmt.Fprintln(os.Stderr, "missing -name for create")
			os.Exit(1)
		}
		path, err := migrate.CreateSQLMigration(*dir, *name)
		fatalIf(ctx, logg, "create migration", err)
		fmt.Println("created migration:", path)
		return

	case "validate":
		if err := migrate.ValidateDir(*dir); err != nil {
			fmt.Fprintf(os.Stderr, "migration validation failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("migration validation passed")
		return
	}

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	fatalIf(ctx, logg, "bootstrap database", err)
	defer dbClient.Close()

	sqlDB, err := dbClient.DB().DB()
	fatalIf(ctx, logg, "unwrap sql database", err)

	switch *cmd {
	case "up", "down", "status":
		fatalIf(ctx, logg, "goose "+*cmd, migrate.Run(ctx, sqlDB, *dir, *cmd))

	case "version":
		if *version == "" {
			fmt.Fprintln(os.Stderr, "missing -version for version command")
			os.Exit(1)
		}
		fatalIf(ctx, logg, "goose migrate to version", migrate.MigrateToVersion(ctx, sqlDB, *dir, *version))

	default:
		fmt.Fprintln(os.Stderr, "unknown -cmd value:", *cmd)
		os.Exit(1)
	}
}

func fatalIf(ctx context.Context, logg *logger.Logger, action string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, action+" failed", err)
	os.Exit(1)
}
