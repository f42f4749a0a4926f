package main

import (
	"log"
	"os"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.temporal.io/sdk/client"
	"go.uber.org/zap"

	"github.com/yourorg/cc-corpus/internal/api"
	"github.com/yourorg/cc-corpus/internal/config"
	"github.com/yourorg/cc-corpus/internal/logging"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	zl := logging.New(cfg.Log.Level)
	defer zl.Sync()

	temporalClient, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
	})
	if err != nil {
		log.Fatalf("Failed to connect to Temporal: %v", err)
	}
	defer temporalClient.Close()

	r := gin.Default()
	r.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders: []string{"Content-Length"},
	}))
	r.GET("/healthz", func(c *gin.Context) { c.String(200, "ok") })

	apiV1 := r.Group("/api/v1")
	api.NewBatchHandler(temporalClient, cfg.Temporal.TaskQueue, zl).Register(apiV1)

	port := getEnv("PORT", "8080")
	zl.Info("api starting", zap.String("port", port), zap.String("taskQueue", cfg.Temporal.TaskQueue))
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
