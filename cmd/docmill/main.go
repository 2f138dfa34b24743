package main

import (
	"fmt"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/docmill/docmill/app/controllers"
	"github.com/docmill/docmill/app/repository"
	"github.com/docmill/docmill/internal/pkg/analytics"
	"github.com/docmill/docmill/internal/pkg/assets"
	"github.com/docmill/docmill/internal/pkg/billing"
	"github.com/docmill/docmill/internal/pkg/cache"
	"github.com/docmill/docmill/internal/pkg/database"
	"github.com/docmill/docmill/internal/pkg/engine"
	"github.com/docmill/docmill/internal/pkg/env"
	"github.com/docmill/docmill/internal/pkg/identity"
	"github.com/docmill/docmill/internal/pkg/journal"
	"github.com/docmill/docmill/internal/pkg/objectstore"
	"github.com/docmill/docmill/internal/pkg/processing"
	"github.com/docmill/docmill/internal/pkg/quota"
	"github.com/docmill/docmill/internal/pkg/router"
	"github.com/docmill/docmill/internal/pkg/scheduler"
	"github.com/docmill/docmill/internal/pkg/settings"
)

func main() {
	app, manager := NewApplication()
	defer manager.Stop()

	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	log.Fatal(err)
}

func NewApplication() (*fiber.App, *scheduler.Manager) {
	env.SetupEnvFile()

	var repos *repository.Repositories
	var lease analytics.Lease
	if env.GetEnv("DB_DRIVER", "mysql") == "memory" {
		// In-memory backend for local development and tests.
		repos = repository.NewMemoryRepositories()
		lease = analytics.NewMemoryLease()
	} else {
		database.SetupDatabase()
		repository.InitializeFactory(database.GetDB())
		repos = repository.GetGlobalRepositories()
		cache.SetupCache()
		lease = analytics.NewRedisLease()
	}

	registry := settings.NewRegistry(repos.Setting)
	if err := registry.Load(); err != nil {
		// Serving requests without the default configuration is not an option.
		log.Fatalf("Failed to load settings: %v", err)
	}

	objects := setupObjectStore()

	ident := identity.NewRegistry(repos.User)
	ledger := quota.NewLedger(repos.User, registry)
	opLog := journal.NewJournal(repos.Op)
	assetStore := assets.NewStore(repos.Asset, objects, registry)
	aggregator := analytics.NewAggregator(repos.User, repos.Stat, repos.Billing, opLog, lease)
	billingSvc := billing.NewService(ident, repos.Billing, registry)
	processor := processing.NewProcessor(registry, ident, ledger, opLog, assetStore, engine.NewHTTPClientFromEnv())

	manager := scheduler.NewManager(assetStore, aggregator)
	manager.Start()

	app := fiber.New(fiber.Config{
		AppName:   "docmill",
		BodyLimit: 64 * 1024 * 1024,
	})
	app.Use(recover.New(), logger.New())

	app.Get("/metrics", basicauth.New(basicauth.Config{
		Users: map[string]string{
			env.GetEnv("ADMIN_USER", "admin"): env.GetEnv("ADMIN_PASSWORD", "admin"),
		},
	}), monitor.New())

	router.InstallRouter(app, router.Deps{
		Admin: &controllers.AdminController{
			Settings:   registry,
			Identity:   ident,
			Users:      repos.User,
			Journal:    opLog,
			Aggregator: aggregator,
			Scheduler:  manager,
		},
		Assets:     &controllers.AssetController{Assets: assetStore},
		Operations: &controllers.OperationController{Processor: processor},
		Webhooks: &controllers.WebhookController{
			Billing: billingSvc,
			Secret:  env.GetEnv("BILLING_WEBHOOK_SECRET", ""),
		},
	})

	return app, manager
}

func setupObjectStore() objectstore.Store {
	s3cfg, err := objectstore.LoadS3Config()
	if err != nil {
		log.Fatalf("Invalid S3 configuration: %v", err)
	}
	if s3cfg.Enabled {
		store, err := objectstore.NewS3Store(s3cfg)
		if err != nil {
			log.Fatalf("Failed to initialize S3 storage: %v", err)
		}
		return store
	}

	local, err := objectstore.NewLocalStore(env.GetEnv("STORAGE_PATH", "/tmp/docmill"))
	if err != nil {
		log.Fatalf("Failed to initialize local storage: %v", err)
	}
	return local
}
