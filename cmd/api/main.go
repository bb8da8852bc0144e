package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"betinho-miniapp/internal/config"
	"betinho-miniapp/internal/handlers"
	"betinho-miniapp/internal/logging"
	"betinho-miniapp/internal/services"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logs, err := logging.New(os.Stderr, cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	httpLog := logs.Logger(logging.SubsystemHTTP)

	if cfg.JWTSecret == "" {
		cfg.JWTSecret = randomSecret()
		httpLog.Warnf("No jwt_secret configured, tokens will not survive a restart")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisService, err := services.NewRedisService(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisService.Close()

	session := services.NewSessionManager(
		services.IdentityFromConfig(cfg, logs.Logger(logging.SubsystemIdentity)),
		services.MessagingFromRedis(redisService.Client(), cfg.MessagingEnv, logs.Logger(logging.SubsystemMessaging)),
		cfg.LoginAdapter,
		cfg.LoginProvider,
		logs.Logger(logging.SubsystemSession),
	)
	go session.Initialize(ctx)

	directory := services.NewGameDirectory(services.LedgerConfig{
		FactoryAddress:   cfg.GameFactoryAddress,
		OrderBookAddress: cfg.OrderBookAddress,
		ReadRPCURL:       cfg.ReadRPCURL,
		FromBlock:        cfg.DiscoveryFromBlock,
		ConfirmPoll:      cfg.ConfirmPoll,
	}, session, services.NewCatalog(), logs.Logger(logging.SubsystemLedger))

	hub := handlers.NewWebSocketHub(httpLog)
	go hub.Run(ctx)
	directory.SetBroadcaster(hub)

	faucet := services.NewFaucetClient(cfg.FaucetBaseURL, nil, logs.Logger(logging.SubsystemFaucet))

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := handlers.NewRouter(handlers.Deps{
		Session:  session,
		Games:    directory,
		Faucet:   faucet,
		Redis:    redisService,
		JWT:      services.NewJWTService(cfg),
		Hub:      hub,
		ChatPeer: cfg.ChatPeer,
		Log:      httpLog,
	})

	srv := &http.Server{
		Addr:    cfg.ListenAddr(),
		Handler: router,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			httpLog.Errorf("Shutdown: %v", err)
		}
	}()

	httpLog.Infof("Server starting on %s", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func randomSecret() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		log.Fatalf("Failed to generate jwt secret: %v", err)
	}
	return hex.EncodeToString(b)
}
