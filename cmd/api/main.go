package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Djamsy/veille-uptade-sub000/pkg/analysis"
	"github.com/Djamsy/veille-uptade-sub000/pkg/capture"
	"github.com/Djamsy/veille-uptade-sub000/pkg/config"
	"github.com/Djamsy/veille-uptade-sub000/pkg/events"
	"github.com/Djamsy/veille-uptade-sub000/pkg/notify"
	"github.com/Djamsy/veille-uptade-sub000/pkg/pipeline"
	"github.com/Djamsy/veille-uptade-sub000/pkg/registry"
	"github.com/Djamsy/veille-uptade-sub000/pkg/resolver"
	"github.com/Djamsy/veille-uptade-sub000/pkg/status"
	"github.com/Djamsy/veille-uptade-sub000/pkg/storage"
	"github.com/Djamsy/veille-uptade-sub000/pkg/transcriber"
)

// App holds the wired components.
type App struct {
	cfg         *config.Config
	coordinator *pipeline.Coordinator
	store       storage.RecordStore
	janitor     *status.Janitor
	publisher   events.Publisher
}

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the YAML config")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	app, err := buildApp(cfg)
	if err != nil {
		log.Fatalf("wire application: %v", err)
	}

	app.janitor.Start()

	router := app.setupRouter()
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Printf("veille: serving %d stream(s) on %s", len(cfg.Streams), addr)

	go func() {
		if err := router.Run(addr); err != nil {
			log.Fatalf("http server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("veille: shutting down")
	app.janitor.Stop()
	if err := app.publisher.Close(); err != nil {
		log.Printf("close publisher: %v", err)
	}
	if err := app.store.Close(); err != nil {
		log.Printf("close store: %v", err)
	}
	log.Println("veille: stopped")
}

func buildApp(cfg *config.Config) (*App, error) {
	reg, err := registry.New(cfg.Streams)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(cfg)
	if err != nil {
		return nil, err
	}

	publisher, err := buildPublisher(cfg)
	if err != nil {
		store.Close()
		return nil, err
	}

	var notifier notify.Notifier = notify.NopNotifier{}
	if cfg.Telegram.BotToken != "" && cfg.Telegram.ChatID != "" {
		notifier = notify.NewTelegram(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
	}

	tracker := status.NewTracker(reg.IDs())
	janitor := status.NewJanitor(tracker,
		time.Duration(cfg.Status.JanitorIntervalMinutes)*time.Minute,
		time.Duration(cfg.Status.StaleCeilingHours)*time.Hour,
	)

	orch := pipeline.NewOrchestrator(
		resolver.New(),
		capture.New(cfg.Capture),
		capture.NewAssembler(),
		transcriber.NewClient(cfg.OpenAI.APIKey, 3),
		analysis.NewSummarizer(cfg.OpenAI.APIKey, cfg.Analysis),
		store,
		notifier,
		publisher,
		tracker,
		pipeline.Options{
			SegmentThreshold:   cfg.Capture.SegmentThreshold,
			ConcatMaxSegments:  cfg.Capture.ConcatMaxSegments,
			SegmentConcurrency: cfg.Capture.SegmentConcurrency,
			FallbackChars:      cfg.Analysis.FallbackChars,
			TempDir:            cfg.Capture.TempDir,
		},
	)

	return &App{
		cfg:         cfg,
		coordinator: pipeline.NewCoordinator(orch, reg, tracker),
		store:       store,
		janitor:     janitor,
		publisher:   publisher,
	}, nil
}

func buildStore(cfg *config.Config) (storage.RecordStore, error) {
	pg, err := storage.NewPostgresStore(cfg.Storage.PostgresDSN)
	if err != nil {
		return nil, err
	}
	if cfg.Storage.Type != "hybrid" {
		return pg, nil
	}

	cache, err := storage.NewRedisCache(
		cfg.Storage.Redis.Addr,
		cfg.Storage.Redis.Password,
		cfg.Storage.Redis.DB,
		time.Duration(cfg.Storage.Redis.TTLHours)*time.Hour,
	)
	if err != nil {
		pg.Close()
		return nil, err
	}
	return storage.NewHybridStore(pg, cache), nil
}

func buildPublisher(cfg *config.Config) (events.Publisher, error) {
	switch cfg.Events.Type {
	case "rabbitmq":
		return events.NewRabbitPublisher(cfg.Events.RabbitMQ.URL, cfg.Events.RabbitMQ.QueueName)
	case "memory":
		return events.NewMemoryPublisher(cfg.Events.BufferSize), nil
	default:
		return events.NopPublisher{}, nil
	}
}

func (app *App) setupRouter() *gin.Engine {
	r := gin.Default()

	r.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "streams": len(app.cfg.Streams)})
	})

	api := r.Group("/api/transcription")
	{
		api.POST("/run/:id", app.handleRunOne)
		api.POST("/run-all", app.handleRunAll)
		api.GET("/status", app.handleStatus)
		api.POST("/status/reset", app.handleResetAll)
		api.POST("/status/reset/:id", app.handleResetOne)
	}

	r.GET("/api/records/recent", app.handleRecentRecords)
	r.GET("/api/records/:date", app.handleRecordsByDate)

	return r
}

func (app *App) handleRunOne(c *gin.Context) {
	result, err := app.coordinator.TriggerOne(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if !result.OK() {
		c.JSON(http.StatusBadGateway, result)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (app *App) handleRunAll(c *gin.Context) {
	// Runs can span the better part of an hour; the scheduler only needs
	// to know the trigger was accepted. The runs must outlive this
	// request, so they get a fresh context.
	go func() {
		agg := app.coordinator.TriggerAll(context.Background())
		log.Printf("api: run-all finished: %d ok, %d failed", agg.Succeeded, agg.Failed)
	}()
	c.JSON(http.StatusAccepted, gin.H{"accepted": true, "streams": len(app.cfg.Streams)})
}

func (app *App) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, app.coordinator.Status())
}

func (app *App) handleResetAll(c *gin.Context) {
	app.coordinator.ResetAll()
	c.JSON(http.StatusOK, gin.H{"reset": "all"})
}

func (app *App) handleResetOne(c *gin.Context) {
	id := c.Param("id")
	if err := app.coordinator.Reset(id); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"reset": id})
}

func (app *App) handleRecordsByDate(c *gin.Context) {
	records, err := app.store.ListByDate(c.Request.Context(), c.Param("date"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"date": c.Param("date"), "count": len(records), "records": records})
}

func (app *App) handleRecentRecords(c *gin.Context) {
	records, err := app.store.ListRecent(c.Request.Context(), 50)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(records), "records": records})
}
