package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/favicon"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/ManuelReschke/ColorCalm/app/controllers"
	apiv1 "github.com/ManuelReschke/ColorCalm/internal/api/v1"
	"github.com/ManuelReschke/ColorCalm/internal/pkg/billing"
	"github.com/ManuelReschke/ColorCalm/internal/pkg/cache"
	"github.com/ManuelReschke/ColorCalm/internal/pkg/coloring"
	"github.com/ManuelReschke/ColorCalm/internal/pkg/credits"
	"github.com/ManuelReschke/ColorCalm/internal/pkg/database"
	"github.com/ManuelReschke/ColorCalm/internal/pkg/env"
	"github.com/ManuelReschke/ColorCalm/internal/pkg/hcaptcha"
	"github.com/ManuelReschke/ColorCalm/internal/pkg/i18n"
	"github.com/ManuelReschke/ColorCalm/internal/pkg/jobqueue"
	"github.com/ManuelReschke/ColorCalm/internal/pkg/mail"
	"github.com/ManuelReschke/ColorCalm/internal/pkg/metrics/counter"
	"github.com/ManuelReschke/ColorCalm/internal/pkg/oauth"
	"github.com/ManuelReschke/ColorCalm/internal/pkg/objectstore"
	"github.com/ManuelReschke/ColorCalm/internal/pkg/router"
	"github.com/ManuelReschke/ColorCalm/internal/pkg/session"
	"github.com/ManuelReschke/ColorCalm/internal/pkg/statistics"
	"github.com/ManuelReschke/ColorCalm/internal/pkg/themes"
)

func main() {
	app, manager := NewApplication()
	manager.Start()

	go func() {
		addr := fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000"))
		if err := app.Listen(addr); err != nil {
			log.Fatal(err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down...")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Printf("HTTP shutdown: %v", err)
	}
	manager.Stop()
}

// findBasePath locates the project root from the binary's working directory.
func findBasePath() string {
	basePaths := []string{
		"./",        // Current directory
		"../../",    // From cmd/colorcalm to project root
		"../../../", // Fallback
	}
	for _, path := range basePaths {
		if _, err := os.Stat(path + "public"); !os.IsNotExist(err) {
			return path
		}
	}
	panic("Could not find project root directory")
}

func NewApplication() (*fiber.App, *jobqueue.Manager) {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()

	basePath := findBasePath()
	db := database.GetDB()
	rdb := cache.GetClient()
	isDev := env.IsDev()
	baseURL := oauth.BaseURL()

	// domain services
	catalog := themes.Default()
	bundle := i18n.Default()
	creditSvc := credits.NewServiceFromDB(db)
	billingSvc := billing.NewService(billing.NewRepository(db), creditSvc)
	stripe := billing.NewStripeClientFromEnv()
	captcha := hcaptcha.NewVerifierFromEnv()
	downloads := counter.New(rdb, db)
	stats := statistics.New(rdb, db)

	var notifier billing.Notifier
	if mailer := mail.NewSMTPMailerFromEnv(); mailer.Configured() {
		engine, err := mail.NewTemplateEngine()
		if err != nil {
			panic(err)
		}
		notifier = mail.NewSubscriptionNotifier(db, mailer, engine, baseURL)
	} else {
		log.Println("SMTP not configured, subscription mails disabled")
	}

	// background work
	manager := jobqueue.GetManager()
	queue := manager.GetQueue()
	status := coloring.NewStatusStore(rdb)
	uploadRoot := basePath

	s3cfg, err := objectstore.LoadConfig()
	if err != nil {
		panic(err)
	}
	mirrorEnabled := false
	if s3cfg.IsEnabled() {
		client, err := objectstore.NewClient(context.Background(), s3cfg)
		if err != nil {
			log.Printf("S3 mirror disabled: %v", err)
		} else {
			coloring.NewMirror(db, client, s3cfg, uploadRoot).Register(queue)
			mirrorEnabled = true
		}
	}

	coloring.NewProcessor(db, status, creditSvc, queue, uploadRoot).Register(queue)
	coloringSvc := coloring.NewService(db, creditSvc, queue, status, catalog, coloring.Options{
		Root:   uploadRoot,
		Mirror: mirrorEnabled,
	})

	manager.AddTask(jobqueue.PeriodicTask{Name: "download-counter-flush", Interval: time.Minute, Run: downloads.Flush})
	manager.AddTask(jobqueue.PeriodicTask{Name: "statistics-refresh", Interval: 10 * time.Minute, Run: stats.Refresh})
	manager.AddTask(jobqueue.PeriodicTask{Name: "subscription-expiry", Interval: time.Hour, Run: func(ctx context.Context) error {
		n, err := billingSvc.ExpireDue(ctx, time.Now())
		if n > 0 {
			log.Printf("[Billing] Expired %d subscriptions", n)
		}
		return err
	}})

	// web
	sessions := session.NewSessionStore()
	providers := oauth.Setup()

	ac := controllers.NewAppController(controllers.Config{
		DB:             db,
		Sessions:       sessions,
		Credits:        creditSvc,
		Billing:        billingSvc,
		Webhooks:       billing.NewWebhookProcessor(billingSvc, notifier),
		Checkout:       stripe,
		Notifier:       notifier,
		Coloring:       coloringSvc,
		Counter:        downloads,
		Statistics:     stats,
		Catalog:        catalog,
		Bundle:         bundle,
		Captcha:        captcha,
		CaptchaSiteKey: captcha.SiteKey,
		OAuthProviders: providers,
		WebhookSecret:  env.GetEnv("STRIPE_WEBHOOK_SECRET", ""),
		BaseURL:        baseURL,
		IsDev:          isDev,
	})

	// init fiber app
	app := fiber.New(fiber.Config{
		BodyLimit: 12 * 1024 * 1024, // photo upload plus form fields
	})

	// ignore and cache favicon
	app.Use(favicon.New(favicon.Config{
		File:         basePath + "public/assets/icons/favicon.ico",
		URL:          "/favicon.ico",
		CacheControl: "public, max-age=604800",
	}))

	// recovery and logging
	app.Use(recover.New(), logger.New())

	// fiber metrics
	app.Get("/metrics", basicauth.New(basicauth.Config{
		Users: map[string]string{
			env.GetEnv("METRICS_USER", "admin"): env.GetEnv("METRICS_PASSWORD", "change-me"),
		},
	}), monitor.New())

	// static files
	app.Static("/", basePath+"public/assets", fiber.Static{
		CacheDuration: 15 * time.Second,
		Compress:      true,
	})

	// generated previews and thumbnails; originals and print files are not public
	for _, dir := range []string{coloring.PreviewDir, coloring.ThumbnailsDir} {
		app.Static("/"+dir, basePath+dir, fiber.Static{
			CacheDuration: 10 * time.Second,
			Compress:      false,
			MaxAge:        604800, // 7 days
		})
	}

	// SWAGGER / OPENAPI
	if _, err := apiv1.LoadSpec(basePath + "public/docs/v1/openapi.yml"); err != nil {
		panic(err)
	}
	openAPICfg := swagger.Config{
		BasePath: "/docs/api/",
		FilePath: basePath + "public/docs/v1/openapi.yml",
		Path:     "v1",
	}
	app.Use(swagger.New(openAPICfg))

	// ROUTER
	router.InstallRouter(app, router.Deps{
		Controller: ac,
		API:        apiv1.NewAPIServer(billingSvc, creditSvc, coloringSvc, catalog),
		Sessions:   sessions,
		Plans:      billingSvc,
		Bundle:     bundle,
		IsDev:      isDev,
	})

	return app, manager
}
