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
	"github.com/wellness-api/internal/application/otp"
	"github.com/wellness-api/internal/config"
	"github.com/wellness-api/internal/infrastructure/dynamo"
	jwtinfra "github.com/wellness-api/internal/infrastructure/jwt"
	"github.com/wellness-api/internal/infrastructure/memory"
	"github.com/wellness-api/internal/infrastructure/smtp"
	"github.com/wellness-api/internal/infrastructure/sns"
	transporthttp "github.com/wellness-api/internal/transport/http"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	jwtProvider, err := jwtinfra.NewProvider(cfg)
	if err != nil {
		log.Fatalf("jwt provider: %v", err)
	}

	// SMTP mailer.
	mailer := smtp.NewMailer(cfg)

	// SNS SMS sender (optional, SMS codes fail to deliver without it).
	var smsSender sns.SMSSender
	if sender, err := sns.NewSender(ctx, cfg); err == nil {
		smsSender = sender
	} else {
		log.Printf("WARN: SNS sender not available: %v", err)
	}

	deps := &transporthttp.Deps{
		Dispatcher:  otp.NewRouter(mailer, smsSender, int(cfg.Engine.OTPWindow/time.Minute)),
		JWTProvider: jwtProvider,
	}

	switch cfg.StoreDriver {
	case "memory":
		store := memory.NewStore()
		go store.RunJanitor(ctx, time.Minute, 24*time.Hour)
		deps.OTPs, deps.Accounts, deps.Moods, deps.Wallets = store, store, store, store
		log.Println("Using in-memory store; data is lost on restart")
	case "dynamo":
		// Bootstrap DynamoDB tables (creates them if they don't exist).
		dynamoClient := dynamo.NewClient(cfg)
		dynamo.Bootstrap(ctx, dynamoClient, cfg.DynamoTables)

		t := cfg.DynamoTables
		deps.OTPs = dynamo.NewOTPRepo(dynamoClient, t.OTPs, t.Tokens)
		deps.Accounts = dynamo.NewAccountRepo(dynamoClient, t.Accounts, t.Guards, t.Tokens)
		deps.Moods = dynamo.NewMoodRepo(dynamoClient, t.Accounts, t.MoodEntries)
		deps.Wallets = dynamo.NewWalletRepo(dynamoClient, t.Accounts, t.Transactions)
	default:
		log.Fatalf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}

	router := transporthttp.NewRouter(ctx, cfg, deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on :%s (env=%s, store=%s)", cfg.AppPort, cfg.AppEnv, cfg.StoreDriver)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}
	stop()
	log.Println("Server stopped")
}
