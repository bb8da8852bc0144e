package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"

	"betinho-miniapp/internal/config"
	"betinho-miniapp/internal/logging"
	"betinho-miniapp/internal/services"
)

type app struct {
	cfg     *config.Config
	session *services.SessionManager
	games   *services.GameDirectory
	faucet  *services.FaucetClient
}

func loadDotEnv(w io.Writer) {
	if err := godotenv.Load(); err != nil {
		fmt.Fprintln(w, "No .env file found, using environment variables")
	}
}

// wireApp builds the services and brings the session up, logging in when
// no earlier session was restored.
func wireApp(ctx context.Context) (*app, error) {
	loadDotEnv(os.Stderr)

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logs, err := logging.New(os.Stderr, cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	session := services.NewSessionManager(
		services.IdentityFromConfig(cfg, logs.Logger(logging.SubsystemIdentity)),
		nil,
		cfg.LoginAdapter,
		cfg.LoginProvider,
		logs.Logger(logging.SubsystemSession),
	)

	games := services.NewGameDirectory(services.LedgerConfig{
		FactoryAddress:   cfg.GameFactoryAddress,
		OrderBookAddress: cfg.OrderBookAddress,
		ReadRPCURL:       cfg.ReadRPCURL,
		FromBlock:        cfg.DiscoveryFromBlock,
		ConfirmPoll:      cfg.ConfirmPoll,
	}, session, services.NewCatalog(), logs.Logger(logging.SubsystemLedger))

	return &app{
		cfg:     cfg,
		session: session,
		games:   games,
		faucet:  services.NewFaucetClient(cfg.FaucetBaseURL, nil, logs.Logger(logging.SubsystemFaucet)),
	}, nil
}

func (a *app) connect(ctx context.Context) error {
	a.session.Initialize(ctx)

	if st := a.session.Status(); st.Phase == services.InitFailed {
		return fmt.Errorf("session failed to initialize: %s", st.Reason)
	}

	if !a.session.Connected() {
		if err := a.session.Login(ctx); err != nil {
			return err
		}
	}

	return a.games.Init(ctx)
}
