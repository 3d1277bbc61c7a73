package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"history-mind-companion/internal/chat"
	"history-mind-companion/internal/common/httpclient"
	"history-mind-companion/internal/config"
	"history-mind-companion/internal/i18n"
	"history-mind-companion/internal/logger"
	"history-mind-companion/internal/web"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

var (
	configFile = flag.String("config", "config.yaml", "Configuration file path")
	port       = flag.Int("port", 0, "Override server port")
	version    = flag.Bool("version", false, "Show version information")

	// This will be set by build process
	Version = "dev"
)

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("History Mind Companion %s\n", Version)
		os.Exit(0)
	}

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if *port > 0 {
		cfg.Server.Port = *port
	}

	appLogger, err := logger.NewLogger(logger.LogConfig{
		Level:           cfg.Logging.Level,
		LogTurnTypes:    cfg.Logging.LogTurnTypes,
		LogResponseBody: cfg.Logging.LogResponseBody,
		LogDirectory:    cfg.Logging.LogDirectory,
	})
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	translator, err := i18n.NewManager(i18n.ParseLanguage(cfg.Presentation.Locale))
	if err != nil {
		log.Fatalf("Failed to load translations: %v", err)
	}

	client, err := httpclient.NewFactory().CreateChatClient(cfg.Backend, cfg.Timeouts)
	if err != nil {
		log.Fatalf("Failed to initialize HTTP client: %v", err)
	}

	controller, err := chat.NewController(chat.Options{
		ChatURL:        cfg.Backend.ChatURL,
		Client:         client,
		Logger:         appLogger,
		Translator:     translator,
		ReadBufferSize: cfg.Backend.SSE.ReadBufferSize,
	})
	if err != nil {
		log.Fatalf("Failed to create conversation controller: %v", err)
	}

	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	web.NewServer(cfg, controller, appLogger, translator, Version).RegisterRoutes(router)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: router,
	}

	go func() {
		appLogger.Info("Starting server", logrus.Fields{
			"address":  httpServer.Addr,
			"chat_url": cfg.Backend.ChatURL,
		})
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	fmt.Printf("\n=== History Mind Companion %s ===\n", Version)
	fmt.Printf("API: http://%s:%d/api/\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Printf("Chat backend: %s\n", cfg.Backend.ChatURL)
	fmt.Printf("Configuration File: %s\n", *configFile)
	fmt.Printf("\nPress Ctrl+C to stop the server...\n\n")

	<-quit
	fmt.Println("\nShutting down server...")

	controller.ClearMessages()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Printf("Error shutting down server: %v", err)
	}

	if err := appLogger.Close(); err != nil {
		log.Printf("Error closing logger: %v", err)
	} else {
		log.Println("Logger closed successfully")
	}
}
