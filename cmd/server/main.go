package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"echodocs-server/internal/api"
	"echodocs-server/internal/auth"
	"echodocs-server/internal/cache"
	"echodocs-server/internal/config"
	"echodocs-server/internal/contrib"
	"echodocs-server/internal/engine"
	"echodocs-server/internal/history"
	"echodocs-server/internal/middleware"
	"echodocs-server/internal/presence"
	"echodocs-server/internal/session"
	"echodocs-server/internal/storage"
	"echodocs-server/internal/worker"
	"echodocs-server/internal/ws"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	config.LoadConfig()

	// Connect to the document store; without it the server keeps every
	// session in memory only
	var persister storage.DocumentStore
	var loader session.Loader
	if db, err := storage.Connect(); err != nil {
		log.Printf("Document store not available, running in memory only: %v", err)
	} else {
		defer storage.Close(db)
		gormStore := storage.NewGormStore(db)
		persister = gormStore
		loader = func(ctx context.Context, id string) (string, int64, bool) {
			record, err := gormStore.Load(ctx, id)
			if err != nil {
				log.Printf("Load failed for %s, starting empty: %v", id, err)
				return "", 0, false
			}
			if record == nil {
				return "", 0, false
			}
			return record.Content, record.Version, true
		}
	}

	// Initialize Redis cache
	responseCache := cache.Connect(config.AppConfig.RedisAddress)

	// Background persistence workers
	pool := worker.NewPool(4, 1000)
	defer pool.Shutdown()

	// Initialize core components
	store := session.NewStore(loader)
	archive := history.NewArchive()
	accounts := contrib.NewAccountant()
	directory := presence.NewDirectory()
	eng := engine.New(store, archive, accounts, persister, pool)
	gateway := ws.NewGateway(eng, directory)
	tokens := auth.NewForkTokens(config.AppConfig.ForkTokenSecret)
	handler := api.NewHandler(eng, tokens, responseCache)

	// Initialize Gin router
	router := gin.Default()
	router.Use(middleware.ErrorHandler())

	// cors setting
	corsConfig := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
	}

	if config.AppConfig.Environment == "development" {
		// Allow all origins in development
		corsConfig.AllowAllOrigins = true
	} else {
		// Restrict origins in production
		corsConfig.AllowOrigins = []string{config.AppConfig.FrontendAddress}
	}
	router.Use(cors.New(corsConfig))

	// Real-time channel
	router.GET("/ws", func(c *gin.Context) {
		gateway.HandleWS(c.Writer, c.Request)
	})

	// REST surface
	handler.Register(router)

	router.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "Echodocs backend is running")
	})
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Server configuration
	serverPort := config.AppConfig.ServerPort
	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", serverPort),
		Handler: router.Handler(),
	}

	// Start server
	go func() {
		log.Printf("Server listening on port %s", serverPort)
		err := server.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Println("Server shutdown error:", err)
	}

	<-ctx.Done()
	log.Println("Server shutdown complete")
}
