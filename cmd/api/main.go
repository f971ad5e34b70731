package main

import (
	"context"
	"log"
	"time"

	"hospitality-procurement-api-server/config"
	"hospitality-procurement-api-server/internal/api/routes"
	"hospitality-procurement-api-server/internal/auth"
	"hospitality-procurement-api-server/internal/database"
	"hospitality-procurement-api-server/internal/ledger"
	"hospitality-procurement-api-server/internal/logger"
	"hospitality-procurement-api-server/internal/s3"
	"hospitality-procurement-api-server/internal/socket"
	"hospitality-procurement-api-server/internal/store/mongostore"
	"hospitality-procurement-api-server/internal/workflow"

	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

func main() {
	// .env is optional, real deployments set environment variables directly.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig("./config")
	if err != nil {
		log.Fatalf("Could not load config: %v", err)
	}

	zapLog, err := logger.NewZapLog(cfg.Server.LogLevel)
	if err != nil {
		log.Fatalf("Could not create logger: %v", err)
	}
	defer zapLog.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Mongo.URI))
	if err != nil {
		zapLog.Fatal("failed to connect to MongoDB", zap.Error(err))
	}
	if err := client.Ping(ctx, nil); err != nil {
		zapLog.Fatal("failed to ping MongoDB", zap.Error(err))
	}
	defer client.Disconnect(context.Background())

	st := mongostore.New(client, cfg.Mongo.DBName)
	if err := st.EnsureIndexes(ctx); err != nil {
		zapLog.Fatal("failed to ensure indexes", zap.Error(err))
	}

	if err := database.SeedSuperAdmin(ctx, st, cfg, zapLog); err != nil {
		zapLog.Fatal("failed to seed super admin", zap.Error(err))
	}
	if cfg.Seed.DemoData {
		if err := database.SeedDemoData(ctx, st, zapLog); err != nil {
			zapLog.Fatal("failed to seed demo data", zap.Error(err))
		}
	}

	jwtExpiration, err := time.ParseDuration(cfg.JWT.Expiration)
	if err != nil {
		zapLog.Fatal("invalid jwt expiration", zap.Error(err))
	}
	authService := auth.NewService(cfg.JWT.Secret, jwtExpiration)

	wsHub := socket.NewHub(zapLog)

	ldg := ledger.New(st, zapLog)
	wf := workflow.NewService(st, ldg, socket.NewEventPublisher(wsHub), zapLog)

	// Document storage is optional: without a bucket the upload endpoint
	// reports itself unconfigured.
	var s3Uploader *s3.Uploader
	if cfg.S3.Bucket != "" {
		s3Uploader, err = s3.NewUploader(cfg.S3)
		if err != nil {
			zapLog.Fatal("failed to create S3 uploader", zap.Error(err))
		}
	}

	verifyInterval, err := time.ParseDuration(cfg.Ledger.VerifyInterval)
	if err != nil {
		zapLog.Fatal("invalid ledger verify interval", zap.Error(err))
	}
	go ldg.RunPeriodicVerify(context.Background(), verifyInterval)

	router := routes.SetupRouter(wf, ldg, st, authService, s3Uploader, wsHub)

	zapLog.Info("starting API server", zap.String("port", cfg.Server.Port))
	if err := router.Run(":" + cfg.Server.Port); err != nil {
		zapLog.Fatal("failed to run server", zap.Error(err))
	}
}
