package main

import (
	"context"
	"flag"
	"log"
	"time"

	"go.uber.org/zap"

	"bahafit/internal/cache"
	"bahafit/internal/cms"
	"bahafit/internal/config"
	"bahafit/internal/db"
	"bahafit/internal/logger"
	"bahafit/internal/repository"
	"bahafit/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	source := flag.String("source", cfg.CMSExport, "CMS export file or URL (NDJSON or JSON array)")
	flag.Parse()

	zl, err := logger.New(cfg.AppEnv)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	gormDB, err := db.Open(cfg.DBDriver, cfg.MySQLDSN, cfg.SQLitePath)
	if err != nil {
		zl.Fatal("connect database", zap.Error(err))
	}
	if err := db.Migrate(gormDB); err != nil {
		zl.Fatal("migrate", zap.Error(err))
	}
	zl.Info("database ready", zap.String("driver", cfg.DBDriver))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	importer := service.NewImportService(
		repository.NewEventRepository(gormDB),
		repository.NewListingRepository(gormDB),
		repository.NewUserRepository(gormDB),
		cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB),
		zl,
	)

	if cfg.AdminEmail != "" && cfg.AdminPassword != "" {
		user, created, err := importer.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword, "Administrator")
		if err != nil {
			zl.Fatal("bootstrap admin", zap.Error(err))
		}
		zl.Info("admin ready", zap.String("email", user.Email), zap.Bool("created", created))
	}

	if *source == "" {
		zl.Info("no CMS export given, nothing to import")
		return
	}

	zl.Info("reading CMS export", zap.String("source", *source))
	rc, err := cms.Open(ctx, *source)
	if err != nil {
		zl.Fatal("open export", zap.Error(err))
	}
	defer rc.Close()

	export, err := cms.Decode(rc)
	if err != nil {
		zl.Fatal("decode export", zap.Error(err))
	}
	summary, err := importer.Import(ctx, export)
	if err != nil {
		zl.Fatal("import", zap.Error(err))
	}
	zl.Info("seed completed",
		zap.Int("events_created", summary.EventsCreated),
		zap.Int("events_updated", summary.EventsUpdated),
		zap.Int("listings_created", summary.ListingsCreated),
		zap.Int("listings_updated", summary.ListingsUpdated),
	)
}
