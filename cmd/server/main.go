package main

import (
	"context"
	"log"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/videorobot/api/internal/audio"
	"github.com/videorobot/api/internal/config"
	"github.com/videorobot/api/internal/engine"
	"github.com/videorobot/api/internal/handler"
	"github.com/videorobot/api/internal/manifest"
	"github.com/videorobot/api/internal/render"
	"github.com/videorobot/api/internal/report"
	"github.com/videorobot/api/internal/scheduler"
	"github.com/videorobot/api/internal/service"
	ws "github.com/videorobot/api/internal/websocket"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := os.MkdirAll(cfg.Storage.OutputRoot, 0o755); err != nil {
		log.Fatalf("Failed to create output root: %v", err)
	}
	if err := os.MkdirAll(cfg.Storage.AssetsRoot, 0o755); err != nil {
		log.Fatalf("Failed to create assets root: %v", err)
	}

	// Initialize WebSocket hub
	hub := ws.NewHub()
	go hub.Run()

	// Initialize the render pipeline and scheduler
	resolver := &manifest.Resolver{AssetsRoot: cfg.Storage.AssetsRoot}
	writer := report.NewWriter(cfg.Storage.OutputRoot)
	pipeline := &render.Pipeline{
		Engine:   engine.NewFFmpeg(cfg.Engine.FFmpegBin, cfg.Engine.FFprobeBin),
		Resolver: resolver,
		Audio: audio.Config{
			SampleRate: cfg.Audio.SampleRate,
			TargetLUFS: cfg.Audio.TargetLUFS,
			UseVAD:     cfg.Audio.UseVAD,
			VAD: audio.VADConfig{
				FrameMS:        cfg.Audio.VADFrameMS,
				ThresholdDB:    cfg.Audio.VADThreshold,
				HangoverFrames: cfg.Audio.VADHangover,
			},
			Duck: audio.DuckConfig{
				DepthDB:   cfg.Audio.DuckDepthDB,
				AttackMS:  cfg.Audio.DuckAttackMS,
				ReleaseMS: cfg.Audio.DuckReleaseMS,
			},
		},
	}
	sched := scheduler.New(scheduler.Config{
		Workers:    cfg.Scheduler.Workers,
		Depth:      cfg.Scheduler.QueueDepth,
		JobTimeout: cfg.Scheduler.JobTimeout,
	}, pipeline, writer, hub)

	schedCtx, stopSched := context.WithCancel(context.Background())
	defer stopSched()
	sched.Start(schedCtx)

	// Initialize services
	renderService := service.NewRenderService(manifest.NewValidator(), resolver, writer, sched)
	assetService := service.NewAssetService(cfg.Storage.AssetsRoot)

	// Initialize handlers
	renderHandler := handler.NewRenderHandler(renderService)
	downloadHandler := handler.NewDownloadHandler(renderService)
	assetHandler := handler.NewAssetHandler(assetService)

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
		BodyLimit:    200 * 1024 * 1024, // 200MB
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept",
	}))

	// Base routes
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"service": "videorobot", "timestamp": time.Now().Unix()})
	})

	_, ffmpegErr := exec.LookPath(cfg.Engine.FFmpegBin)
	app.Get("/health", func(c *fiber.Ctx) error {
		jobs := sched.Snapshot()
		counts := map[string]int{}
		for _, j := range jobs {
			counts[string(j.State)]++
		}
		return c.JSON(fiber.Map{"ok": true, "data": fiber.Map{
			"status": "ok",
			"jobs":   counts,
			"engine": ffmpegErr == nil,
		}})
	})

	// API routes
	app.Post("/render", renderHandler.Render)
	app.Get("/progress/:jobId", renderHandler.Progress)
	app.Get("/download", downloadHandler.Download)
	app.Post("/assets", assetHandler.Upload)
	app.Get("/assets", assetHandler.List)

	// WebSocket routes
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/jobs/:jobId", websocket.New(func(c *websocket.Conn) {
		hub.HandleConnection(c, c.Params("jobId"))
	}))

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("Shutting down server...")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
		stopSched()
	}()

	// Start server
	addr := ":" + cfg.Server.Port
	log.Printf("Server starting on %s", addr)
	if err := app.Listen(addr); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"ok": false,
		"error": fiber.Map{
			"kind":    "composition",
			"message": message,
		},
	})
}
