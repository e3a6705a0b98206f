package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/fasthttp/router"
	"github.com/spf13/cobra"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	delivery "wallet-orchestrator/internal/adapter/delivery/http"
	handler "wallet-orchestrator/internal/adapter/handler/http"
	"wallet-orchestrator/internal/config"
	"wallet-orchestrator/internal/domain/entity"
	"wallet-orchestrator/internal/logger"
)

var cfgPath = "configs"

// setupApp builds the application for a subcommand; tests replace it.
var setupApp = setup

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "wallet-orchestrator",
		Short:        "sponsored transactions, balances and swaps across EVM testnets",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "configs", "directory containing config.yaml")

	root.AddCommand(serveCmd())
	root.AddCommand(balancesCmd())
	root.AddCommand(quoteCmd())
	root.AddCommand(poolCmd())
	return root
}

// setup loads configuration and wires the application. CLI subcommands pass
// toStderr so that stdout carries only their JSON output.
func setup(toStderr bool) (*app, func(), error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration from %s: %w", cfgPath, err)
	}
	if toStderr {
		cfg.Logger.Output = "stderr"
	}

	zl, err := logger.NewLogger(cfg.Logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to setup logger: %w", err)
	}

	a, err := buildApp(cfg, zl)
	if err != nil {
		_ = zl.Sync()
		return nil, nil, err
	}
	return a, func() {
		a.Close()
		_ = zl.Sync() // Ensure logs are flushed before exiting
	}, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, cleanup, err := setupApp(false)
			if err != nil {
				log.Printf("startup failed: %v", err)
				return err
			}
			defer cleanup()

			if a.cfg.Checker.RunOnStartup {
				a.logger.Info("Checking RPC endpoints on startup...")
				a.checkEndpoints(cmd.Context())
			}

			// --- HTTP Router & Server ---
			a.logger.Info("Setting up HTTP router...")
			r := router.New()
			delivery.RegisterRoutes(r, delivery.Handlers{
				Chain:   handler.NewChainHandler(a.chains, a.logger),
				Balance: handler.NewBalanceHandler(a.balances, a.logger),
				Wallet:  handler.NewWalletHandler(a.txs, a.swaps, a.wallet, a.cfg.Swap.DefaultSlippage, a.logger),
				Pool:    handler.NewPoolHandler(a.pools, a.logger),
			}, a.logger)

			server := &fasthttp.Server{
				Handler: delivery.LoggingMiddleware(a.logger, r.Handler),
				Name:    a.cfg.App.Name,
			}

			serverAddr := ":" + a.cfg.Server.Port
			errCh := make(chan error, 1)
			go func() {
				a.logger.Info("Starting HTTP server", zap.String("address", serverAddr))
				errCh <- server.ListenAndServe(serverAddr)
			}()

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

			select {
			case err := <-errCh:
				a.logger.Error("HTTP server stopped", zap.Error(err))
				return err
			case sig := <-sigChan:
				a.logger.Info("Shutdown signal received", zap.String("signal", sig.String()))
			}

			if err := server.Shutdown(); err != nil {
				a.logger.Error("Graceful shutdown failed", zap.Error(err))
				return err
			}
			a.logger.Info("Server stopped")
			return nil
		},
	}
}

func balancesCmd() *cobra.Command {
	var chainID int64
	cmd := &cobra.Command{
		Use:   "balances <address>",
		Short: "print balances of an address, on one chain or all of them",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, cleanup, err := setupApp(true)
			if err != nil {
				return err
			}
			defer cleanup()

			if chainID == 0 {
				return printJSON(cmd.OutOrStdout(), a.balances.FetchAllChainsBalances(cmd.Context(), args[0]))
			}
			return printJSON(cmd.OutOrStdout(), a.balances.FetchAllBalances(cmd.Context(), args[0], chainID))
		},
	}
	cmd.Flags().Int64Var(&chainID, "chain", 0, "chain id (default: every chain)")
	return cmd
}

func quoteCmd() *cobra.Command {
	var params entity.SwapParams
	cmd := &cobra.Command{
		Use:   "quote",
		Short: "quote an exact-input swap",
		Long:  "Example: wallet-orchestrator quote --in 0x1c7D... --out 0x9B06... --amount 1",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, cleanup, err := setupApp(true)
			if err != nil {
				return err
			}
			defer cleanup()

			if !cmd.Flags().Changed("slippage") {
				params.SlippagePercent = a.cfg.Swap.DefaultSlippage
			}

			quote, err := a.swaps.GetSwapQuote(cmd.Context(), params)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), handler.QuoteView(quote))
		},
	}
	cmd.Flags().StringVar(&params.TokenIn, "in", "", "input token address (0x0 for native)")
	cmd.Flags().StringVar(&params.TokenOut, "out", "", "output token address")
	cmd.Flags().StringVar(&params.AmountIn, "amount", "", "input amount in token units")
	cmd.Flags().Float64Var(&params.SlippagePercent, "slippage", 0, "slippage tolerance in percent")
	cmd.Flags().Int64Var(&params.ChainID, "chain", 11155111, "chain id")
	_ = cmd.MarkFlagRequired("in")
	_ = cmd.MarkFlagRequired("out")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func poolCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pool [pool-address]",
		Short: "print analytics for a liquidity pool (default: the configured pool)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, cleanup, err := setupApp(true)
			if err != nil {
				return err
			}
			defer cleanup()

			var poolID string
			if len(args) == 1 {
				poolID = args[0]
			}
			analytics, err := a.pools.GetPoolAnalytics(cmd.Context(), poolID)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), analytics)
		},
	}
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
