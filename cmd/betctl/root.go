package main

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"betinho-miniapp/internal/models"
	"betinho-miniapp/internal/services"
)

func newRootCmd() *cobra.Command {
	var a *app

	rootCmd := &cobra.Command{
		Use:           "betctl",
		Short:         "betinho command line: browse games, place bets and fund a testnet wallet",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			a, err = wireApp(cmd.Context())
			if err != nil {
				return err
			}
			return a.connect(cmd.Context())
		},
	}

	rootCmd.AddCommand(
		newLatestCmd(&a),
		newInfoCmd(&a),
		newBetsCmd(&a),
		newPickCmd(&a),
		newFaucetCmd(&a),
		newSubscribeCmd(&a),
		newBalanceCmd(&a),
	)

	return rootCmd
}

func newLatestCmd(a **app) *cobra.Command {
	var count int

	cmd := &cobra.Command{
		Use:   "latest",
		Short: "List the most recently created games",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			events, err := (*a).games.GetLatestGames(cmd.Context(), count)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), latestTable(events, (*a).games.Catalog()))
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 5, "number of games to show")
	return cmd
}

func newInfoCmd(a **app) *cobra.Command {
	return &cobra.Command{
		Use:   "info <game-address>",
		Short: "Show the status, options and pool of a game",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := (*a).games.LoadGame(cmd.Context(), args[0]); err != nil {
				return err
			}
			info, err := (*a).games.GetGameInfo(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), infoTable(info, (*a).cfg.Chain.Ticker))
		},
	}
}

func newBetsCmd(a **app) *cobra.Command {
	return &cobra.Command{
		Use:   "bets <game-address> [player]",
		Short: "Show a player's bet on a game, the connected wallet by default",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			player := ""
			if len(args) == 2 {
				player = args[1]
			}
			bet, err := (*a).games.GetPlayerBets(cmd.Context(), args[0], player)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), betTable(bet, (*a).cfg.Chain.Ticker))
		},
	}
}

func newPickCmd(a **app) *cobra.Command {
	return &cobra.Command{
		Use:   "pick <game-address> <option> <amount>",
		Short: "Bet amount (in native units) on an option",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := (*a).games.PickOption(cmd.Context(), args[0], args[1], args[2])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), txLine("Bet placed", hash, (*a).cfg.Chain.BlockExplorerURL))
			return err
		},
	}
}

func newFaucetCmd(a **app) *cobra.Command {
	return &cobra.Command{
		Use:   "faucet",
		Short: "Request testnet funds for the connected wallet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			resp := (*a).faucet.Fund(cmd.Context(), (*a).session.Address())
			_, err := fmt.Fprintln(cmd.OutOrStdout(), faucetLine(resp, (*a).cfg.Chain.BlockExplorerURL))
			return err
		},
	}
}

func newSubscribeCmd(a **app) *cobra.Command {
	return &cobra.Command{
		Use:   "subscribe <game-address>",
		Short: "Subscribe the connected wallet to a game's news channel",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !common.IsHexAddress(args[0]) {
				return services.ErrInvalidAddress
			}
			p := (*a).session.Provider()
			if p == nil {
				return services.ErrNotConnected
			}
			resp, err := (*a).faucet.SubscribeNews(cmd.Context(), p.Signer(), common.HexToAddress(args[0]).Hex(), time.Now())
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), subscribeLine(resp))
			return err
		},
	}
}

func newBalanceCmd(a **app) *cobra.Command {
	return &cobra.Command{
		Use:   "balance",
		Short: "Show the connected wallet and its balance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			bal, err := (*a).session.Balance(cmd.Context())
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s  %s %s\n",
				models.FormatWalletAddress(bal.Address, 4), bal.Formatted, bal.Ticker)
			return err
		},
	}
}
