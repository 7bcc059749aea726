package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/dmodel/portal/internal/config"
	"github.com/dmodel/portal/internal/handlers"
	"github.com/dmodel/portal/internal/intake"
	"github.com/dmodel/portal/internal/listing"
	"github.com/dmodel/portal/internal/models"
	"github.com/dmodel/portal/internal/storage"
	"github.com/dmodel/portal/internal/tracing"
)

func main() {
	log.Println("Starting submission portal service...")

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	log.Printf("Service: %s, Port: %s", cfg.ServiceName, cfg.ServicePort)

	// Initialize OpenTelemetry tracing
	shutdownTracer, err := tracing.InitTracer(cfg.ServiceName, cfg.OTLPEndpoint)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracer(ctx); err != nil {
			log.Printf("Error shutting down tracer: %v", err)
		}
	}()

	// Initialize the blob store
	log.Println("Connecting to MinIO...")
	blobs, err := storage.NewBlobStore(
		cfg.MinIOEndpoint,
		cfg.MinIOAccessKey,
		cfg.MinIOSecretKey,
		cfg.MinIOBucketName,
		cfg.MinIOUseSSL,
	)
	if err != nil {
		log.Fatalf("Failed to initialize blob store: %v", err)
	}
	log.Println("Blob store initialized")

	// Initialize the metadata store
	log.Println("Connecting to MySQL...")
	meta, err := storage.NewMySQLStore(cfg.GetDSN())
	if err != nil {
		log.Fatalf("Failed to initialize metadata store: %v", err)
	}
	defer meta.Close()
	log.Println("Metadata store initialized")

	// Initialize the change feed
	log.Println("Connecting to Redis...")
	feed, err := storage.NewChangeFeed(cfg.GetRedisAddr(), cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		log.Fatalf("Failed to initialize change feed: %v", err)
	}
	defer feed.Close()
	log.Println("Change feed initialized")

	// Initialize services
	intakeService := intake.NewService(blobs, meta, feed, nil)
	listingService := listing.NewService(meta, feed)

	// Initialize handlers
	productUpload := handlers.NewProductUploadHandler(intakeService)
	modelUpload := handlers.NewModelUploadHandler(intakeService)
	productList := handlers.NewListHandler(listingService, models.CollectionProducts)
	modelList := handlers.NewListHandler(listingService, models.CollectionModels)
	productWatch := handlers.NewWatchHandler(listingService, models.CollectionProducts)
	modelWatch := handlers.NewWatchHandler(listingService, models.CollectionModels)
	productStatus := handlers.NewStatusHandler(meta, feed, models.CollectionProducts)
	modelStatus := handlers.NewStatusHandler(meta, feed, models.CollectionModels)

	// Setup HTTP router
	router := mux.NewRouter()

	// Health check endpoint (no tracing needed)
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	// Submission intake with tracing
	router.Handle("/upload", otelhttp.NewHandler(productUpload, "POST /upload")).Methods("POST")
	router.Handle("/upload-model", otelhttp.NewHandler(modelUpload, "POST /upload-model")).Methods("POST")

	// Listing and live watch
	router.Handle("/products", otelhttp.NewHandler(productList, "GET /products")).Methods("GET")
	router.Handle("/models", otelhttp.NewHandler(modelList, "GET /models")).Methods("GET")
	router.Handle("/watch/products", productWatch).Methods("GET")
	router.Handle("/watch/models", modelWatch).Methods("GET")

	// Review status updates
	router.Handle("/products/{id}/status", otelhttp.NewHandler(productStatus, "PATCH /products/{id}/status")).Methods("PATCH")
	router.Handle("/models/{id}/status", otelhttp.NewHandler(modelStatus, "PATCH /models/{id}/status")).Methods("PATCH")

	// Create HTTP server. Watch streams are long-lived, so no write timeout.
	srv := &http.Server{
		Addr:        ":" + cfg.ServicePort,
		Handler:     router,
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Server listening on port %s", cfg.ServicePort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
