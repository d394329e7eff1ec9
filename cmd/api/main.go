package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-cyclecount-ws/internal/config"
	"go-cyclecount-ws/internal/handler"
	"go-cyclecount-ws/internal/model"
	"go-cyclecount-ws/internal/productsvc"
	"go-cyclecount-ws/internal/repository"
	"go-cyclecount-ws/internal/service"
	"go-cyclecount-ws/internal/view"
	"go-cyclecount-ws/internal/ws"
	"go-cyclecount-ws/pkg/database"
	"go-cyclecount-ws/pkg/jwt"
	"go-cyclecount-ws/pkg/logger"
	"go-cyclecount-ws/pkg/metrics"
	"go-cyclecount-ws/pkg/redis"
	"go-cyclecount-ws/web"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"
)

func main() {
	// 1. Load Env
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logger.New(logger.Options{ServiceName: "cyclecount"}).Error(context.Background(), "load config", err)
		os.Exit(1)
	}

	log := logger.New(logger.Options{
		ServiceName: cfg.App.Name,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if envErr != nil {
		log.Debug(ctx, ".env file not found, using process environment")
	}

	// 2. Setup Database
	db, err := database.Connect(database.Options{
		Driver:          cfg.DB.Driver,
		DSN:             cfg.DB.DSN,
		MaxOpenConns:    cfg.DB.MaxOpenConns,
		MaxIdleConns:    cfg.DB.MaxIdleConns,
		ConnMaxLifetime: cfg.DB.ConnMaxLifetime,
		LogSQL:          cfg.DB.LogSQL,
	})
	if err != nil {
		log.Error(ctx, "connect database", err)
		os.Exit(1)
	}
	// Production schemas come from cmd/migrate; AutoMigrate is for local sqlite runs.
	if cfg.DB.AutoMigrate {
		if err := db.AutoMigrate(model.All()...); err != nil {
			log.Error(ctx, "auto migrate", err)
			os.Exit(1)
		}
	}

	repos := repository.NewRepositories(db)

	// 3. Seed default privileges, roles, and supervisor
	if err := service.SeedDefaults(ctx, repos, service.SeedOptions{
		AdminUsername: cfg.Seed.AdminUsername,
		AdminPassword: cfg.Seed.AdminPassword,
	}, log); err != nil {
		log.Warn(ctx, "seed defaults: "+err.Error())
	}

	// 4. Optional product cache
	var cache *redis.Client
	if cfg.Redis.Enabled() {
		cache, err = redis.New(ctx, redis.Options{
			URL:          cfg.Redis.URL,
			Address:      cfg.Redis.Address,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
		if err != nil {
			log.Warn(ctx, "redis unavailable, product cache disabled: "+err.Error())
			cache = nil
		}
	}

	// 5. Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics := metrics.NewCycleCountMetrics(registry)

	// 6. Setup WebSocket Hub
	wsHub := ws.NewHub(log)
	go wsHub.Run(ctx)

	// 7. Dependency Injection (Wiring Layers)
	tokens, err := jwt.NewManager(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.Expiration)
	if err != nil {
		log.Error(ctx, "jwt manager", err)
		os.Exit(1)
	}

	productOpts := []productsvc.Option{
		productsvc.WithTimeout(cfg.ProductService.Timeout),
		productsvc.WithMetrics(appMetrics),
		productsvc.WithLogger(log),
	}
	if cache != nil {
		productOpts = append(productOpts, productsvc.WithCache(cache, cfg.ProductService.CacheTTL))
	}
	products := productsvc.NewClient(cfg.ProductService.BaseURL, productOpts...)

	services := handler.Services{
		Auth:       service.NewAuthService(repos.Users, tokens, log),
		CycleCount: service.NewCycleCountService(db, repos, wsHub, appMetrics, log),
		Inventory:  service.NewInventoryService(repos.Inventory, cfg.ProductService.Concurrency),
		Dashboard:  service.NewDashboardService(repos),
		Products:   products,
		Roles:      repos.Roles,
		Privileges: repos.Privileges,
	}

	// 8. Setup Fiber
	app := handler.NewApp(cfg.App.Name, view.New(web.TemplatesFS(), cfg.App.Name), log)
	app.Use(cors.New(cors.Config{AllowOrigins: cfg.App.CORSOrigins}))

	app.Get("/healthz", func(c *fiber.Ctx) error {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.UserContext())
		}
		if err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable", "error": err.Error()})
		}
		return c.JSON(fiber.Map{"status": "ok", "ws_clients": wsHub.ClientCount()})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	handler.RegisterRoutes(app, services, handler.RouteOptions{
		CookieSecure: cfg.App.CookieSecure,
		Log:          log,
	})

	// WebSocket Route
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return c.SendStatus(fiber.StatusUpgradeRequired)
	})
	app.Get("/ws", websocket.New(wsHub.Serve))

	// 9. Graceful Shutdown
	go func() {
		log.Info(log.WithField(ctx, "port", cfg.App.Port), "listening")
		if err := app.Listen(":" + cfg.App.Port); err != nil {
			log.Error(ctx, "server stopped", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info(context.Background(), "shutting down server")

	shutdownErr := app.ShutdownWithTimeout(10 * time.Second)
	shutdownErr = multierr.Append(shutdownErr, cache.Close())
	shutdownErr = multierr.Append(shutdownErr, database.Close(db))
	if shutdownErr != nil {
		log.Error(context.Background(), "shutdown", shutdownErr)
		os.Exit(1)
	}
	log.Info(context.Background(), "server exited")
}
