package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"backend-antrian-klinik/internal/config"
	"backend-antrian-klinik/internal/http/handler"
	"backend-antrian-klinik/internal/http/middleware"
	"backend-antrian-klinik/internal/logger"
	"backend-antrian-klinik/internal/metrics"
	"backend-antrian-klinik/internal/queue"
	"backend-antrian-klinik/internal/realtime"
	"backend-antrian-klinik/internal/sequence"
	mysqlstore "backend-antrian-klinik/internal/store/mysql"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	if err := config.LoadEnv(); err != nil {
		log.Println(".env tidak ditemukan, pakai env system")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("konfigurasi tidak valid: %v", err)
	}

	zl, err := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	if err := run(cfg, zl); err != nil {
		zl.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg config.Config, zl *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := config.InitDB(ctx, cfg.DB)
	if err != nil {
		return err
	}
	defer db.Close()

	st := mysqlstore.NewStore(db)
	if err := st.Migrate(ctx); err != nil {
		return err
	}

	rdb, err := config.InitRedis(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer rdb.Close()
	zl.Info("redis connected", zap.String("addr", cfg.Redis.Addr), zap.Int("db", cfg.Redis.DB))

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewCollector(reg, "antrian")

	var alloc sequence.Allocator = sequence.SQL{}
	if cfg.Queue.SequenceBackend == "redis" {
		alloc = sequence.NewRedis(rdb)
	}

	hub := realtime.NewHub(zl, m)
	bridge := realtime.NewBridge(rdb, hub, zl)

	svc := queue.NewService(st, alloc, bridge, m, zl, queue.Options{
		Lanes:           queue.LanePolicy(cfg.Queue.Lanes),
		PublicRefSecret: []byte(cfg.Security.PublicRefSecret),
	})

	go func() {
		if err := bridge.Run(ctx, nil); err != nil {
			zl.Error("redis bridge stopped", zap.Error(err))
		}
	}()
	go svc.RunSweeper(ctx, cfg.Queue.SweepInterval)

	app := fiber.New(fiber.Config{
		CaseSensitive: true,
		StrictRouting: true,
		ReadTimeout:   15 * time.Second,
		WriteTimeout:  15 * time.Second,
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, DELETE",
	}))
	app.Use(middleware.RequestLogger(zl, m))

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "Antrian klinik API jalan",
		})
	})
	app.Get("/metrics",
		middleware.BasicAuth(config.GetEnv("BASIC_AUTH_USER", ""), config.GetEnv("BASIC_AUTH_PASS", "")),
		adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})),
	)

	h := handler.New(svc, hub, config.NewRecaptcha(cfg.Security.RecaptchaSecretKey), zl)
	h.Register(app, handler.RouteConfig{
		JWTSecret:       cfg.Security.JWTSecret,
		PublicRateLimit: cfg.App.PublicRateLimit,
	})

	errCh := make(chan error, 1)
	go func() {
		zl.Info("server jalan", zap.String("addr", cfg.Addr()))
		errCh <- app.Listen(cfg.Addr())
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	case <-ctx.Done():
		zl.Info("shutting down")
		return app.ShutdownWithTimeout(10 * time.Second)
	}
}
