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

	"github.com/joho/godotenv"
	"github.com/payfone/prefill-verify/internal/config"
	"github.com/payfone/prefill-verify/internal/infrastructure/dynamo"
	jwtinfra "github.com/payfone/prefill-verify/internal/infrastructure/jwt"
	"github.com/payfone/prefill-verify/internal/infrastructure/prove"
	s3infra "github.com/payfone/prefill-verify/internal/infrastructure/s3"
	"github.com/payfone/prefill-verify/internal/infrastructure/sns"
	transporthttp "github.com/payfone/prefill-verify/internal/transport/http"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()

	// Bootstrap DynamoDB tables (creates them if they don't exist).
	dynamoClient := dynamo.NewClient(cfg)
	dynamo.Bootstrap(context.Background(), dynamoClient, cfg.DynamoTables)

	// JWT provider. Every flow endpoint is token-scoped, so missing keys are fatal.
	jwtProvider, err := jwtinfra.NewProvider(cfg)
	if err != nil {
		log.Fatalf("JWT provider unavailable: %v", err)
	}

	// SNS SMS sender (optional — graceful fallback, link delivery disabled).
	var smsSender sns.SMSSender
	if sender, err := sns.NewSender(cfg); err == nil {
		smsSender = sender
	} else {
		log.Printf("WARN: SNS sender not available: %v", err)
	}

	// S3 audit archive (optional).
	var auditStore *s3infra.AuditStore
	if cfg.S3AuditBucket != "" {
		auditStore = s3infra.NewAuditStore(s3infra.NewClient(cfg), cfg.S3AuditBucket)
	} else {
		log.Println("WARN: no audit bucket configured, provider payload archiving disabled")
	}

	deps := &transporthttp.Deps{
		RecordRepo:   dynamo.NewRecordRepo(dynamoClient, cfg.DynamoTables.Records),
		SnapshotRepo: dynamo.NewSnapshotRepo(dynamoClient, cfg.DynamoTables.RequestSnapshots, cfg.DynamoTables.ResponseSnapshots),
		ProveClient:  prove.NewClient(cfg),
		SMSSender:    smsSender,
		JWTProvider:  jwtProvider,
	}
	if auditStore != nil {
		deps.AuditStore = auditStore
	}

	router := transporthttp.NewRouter(cfg, deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on :%s (env=%s)", cfg.AppPort, cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}
	log.Println("Server stopped")
}
