package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"

	"milkroad_server/config"
	"milkroad_server/controllers"
	"milkroad_server/middleware"
	"milkroad_server/routes"
	"milkroad_server/services"
	"milkroad_server/socket"
	"milkroad_server/tracing"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, cfg.Tracing.OTLPEndpoint, cfg.Tracing.ServiceName)
	if err != nil {
		log.Fatalf("failed to set up the OTLP tracer: %v", err)
	}
	defer shutdownTracing(context.Background())

	// Record store
	var backing services.RecordStore
	switch cfg.Server.StoreBackend {
	case config.StoreBackendMemory:
		log.Println("⚠️ Using the in-memory store; data is lost on restart")
		backing = services.NewMemoryRecordStore()
	default:
		log.Println("Initializing DynamoDB client...")
		dynamoClient, err := services.InitializeDynamoDBClient(ctx, cfg.AWS.Region, cfg.AWS.DynamoDBEndpoint)
		if err != nil {
			log.Fatalf("❌ %v", err)
		}
		backing = services.NewDynamoRecordStore(&services.DynamoService{Client: dynamoClient}, services.Tables{
			Feeds:       cfg.Tables.Feeds,
			Sleep:       cfg.Tables.Sleep,
			OpenSleep:   cfg.Tables.OpenSleep,
			Shares:      cfg.Tables.Shares,
			Connections: cfg.Tables.Connections,
		})
		log.Println("✅ DynamoDB client initialized.")
	}
	store := services.NewCachedRecordStore(backing, cfg.Cache.TTL)

	// Services
	trackingService := services.NewTrackingService(store)
	timelineService := services.NewTimelineService(trackingService, store)

	hub := socket.NewHub(trackingService, timelineService, cfg.Server.DefaultTimezone)
	defer hub.Close()

	var notifier services.Notifier = hub
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()

		redisNotifier := services.NewRedisNotifier(rdb, cfg.Redis.Channel)
		notifier = redisNotifier
		// signals from every instance land here, including our own
		hub.OnSignal = func(sig services.Signal) {
			if sig.Kind == services.SignalRefresh {
				store.Invalidate(sig.ID)
			}
		}
		go func() {
			if err := redisNotifier.Subscribe(ctx, hub.Deliver); err != nil {
				log.Printf("❌ Refresh fan-out stopped: %v", err)
			}
		}()
		log.Printf("✅ Refresh signals fan out through Redis at %s", cfg.Redis.Addr)
	}

	feedService := services.NewFeedService(trackingService, store, notifier)
	sleepService := services.NewSleepService(trackingService, store, notifier)
	statsService := services.NewStatsService(trackingService, store)
	statusService := services.NewStatusService(trackingService, store)
	shareService := services.NewShareService(trackingService, store, notifier, cfg.Sharing.CodeTTL)
	trackerService := services.NewTrackerService(trackingService, store, notifier)

	var exportS3 *services.S3Service
	if cfg.AWS.ExportBucket != "" {
		exportS3, err = services.NewS3Service(ctx, cfg.AWS.Region, cfg.AWS.ExportBucket)
		if err != nil {
			log.Fatalf("❌ %v", err)
		}
	} else {
		log.Println("ℹ️ S3_BUCKET_NAME not set, export disabled")
	}
	exportService := services.NewExportService(trackingService, store, exportS3, cfg.AWS.ExportURLExpiry)

	// Socket server
	socketServer := socket.NewSocketServer(hub)
	go func() {
		if err := socketServer.Serve(); err != nil {
			log.Printf("❌ Socket server stopped: %v", err)
		}
	}()
	defer socketServer.Close()

	// Routes
	auth := middleware.NewAuthenticator(cfg.Auth.ClerkSecretKey)

	r := mux.NewRouter()
	routes.RegisterRoutes(r)
	routes.RegisterSocketRoute(r, auth, socketServer)

	api := routes.NewAPIRouter(r, auth, cfg.Server.HandlerTimeout)
	routes.RegisterShareRoutes(api, shareService, trackingService)
	routes.RegisterFeedRoutes(api, feedService, cfg.Server.DefaultTimezone)
	routes.RegisterSleepRoutes(api, sleepService)
	routes.RegisterStatsRoutes(api, statsService, timelineService, statusService, cfg.Server.DefaultTimezone)
	routes.RegisterTrackerRoutes(api, trackerService, exportService)

	// Add CORS middleware
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", middleware.DebugUserHeader, controllers.TimezoneHeader},
		AllowCredentials: true,
	}).Handler(r)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           corsHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("❌ Shutdown: %v", err)
		}
	}()

	log.Printf("Starting server on port %d...", cfg.Server.Port)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
	log.Println("Server stopped")
}
