package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"swap-aggregator/config"
	"swap-aggregator/pkg/logger"
	"swap-aggregator/pkg/metrics"
	"swap-aggregator/pkg/provider"
	"swap-aggregator/pkg/provider/mock"
	"swap-aggregator/pkg/provider/nearintents"
	"swap-aggregator/pkg/signer"
	"swap-aggregator/pkg/swap"
	"swap-aggregator/pkg/types"
	"swap-aggregator/pkg/wallet"
)

// app wires the configured providers, wallet and device for one command run
type app struct {
	cfg        *config.Config
	log        zerolog.Logger
	metrics    *metrics.Metrics
	registry   *provider.Registry
	aggregator *swap.Aggregator
	store      *wallet.Store
	device     *signer.Device
	intents    *nearintents.Client

	metricsServer *http.Server
}

func newApp(cmd *cobra.Command) (*app, error) {
	configFile, _ := cmd.Flags().GetString("config")
	verbose, _ := cmd.Flags().GetBool("verbose")
	yes, _ := cmd.Flags().GetBool("yes")

	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}

	level := cfg.LogLevel
	if verbose {
		level = "debug"
	}
	log := logger.New(logger.Config{Level: level, Pretty: cfg.LogPretty})
	logger.SetGlobalLogger(log)

	a := &app{
		cfg:      cfg,
		log:      log,
		metrics:  metrics.NewMetrics(nil),
		registry: provider.NewRegistry(),
	}

	if cfg.Mock {
		for _, p := range mockProviders() {
			a.registry.Register(provider.Instrument(p, a.metrics))
		}
		log.Debug().Strs("providers", a.registry.Names()).Msg("Mock mode")
	} else {
		a.intents = nearintents.New(nearintents.Config{
			JWTToken: cfg.JWTToken,
			BaseURL:  cfg.BaseURL,
			Timeout:  cfg.RequestTimeout,
		}, log)
		a.registry.Register(provider.Instrument(a.intents, a.metrics))
	}

	a.aggregator = swap.NewAggregator(a.registry, cfg, log,
		swap.WithAggregatorConcurrency(cfg.MaxConcurrency),
		swap.WithAggregatorMetrics(a.metrics),
	)

	a.store, err = wallet.NewStore(cfg.WalletPath)
	if err != nil {
		return nil, err
	}

	a.device, err = signer.New(signer.Config{
		EthPrivateKey: cfg.DeviceEthKey,
		SolPrivateKey: cfg.DeviceSolKey,
		Approve: func(req swap.SignRequest) bool {
			if yes {
				return true
			}
			return confirm(fmt.Sprintf("Sign transaction sending %s %s to %s on the device?",
				req.Currency.FromBaseUnits(req.Transaction.Amount), req.Currency.Ticker, req.Transaction.Recipient))
		},
	}, log)
	if err != nil {
		return nil, err
	}

	seeded, err := a.store.Seed(wallet.Addresses{
		Ethereum: a.device.EthereumAddress(),
		Solana:   a.device.SolanaAddress(),
	})
	if err != nil {
		return nil, err
	}
	if seeded {
		log.Info().Str("path", a.store.FilePath()).Msg("Created demo wallet")
	}

	if cfg.MetricsAddr != "" {
		a.serveMetrics(cfg.MetricsAddr)
	}

	return a, nil
}

// mockProviders mirrors two exchange-style providers quoting bitcoin, ethereum and solana
func mockProviders() []provider.Provider {
	pairs := append([]types.CurrencyPair{
		{From: "solana", To: "ethereum", TradeMethod: types.TradeMethodFloat},
		{From: "ethereum", To: "solana", TradeMethod: types.TradeMethodFloat},
		{From: "ethereum/erc20/usdc", To: "bitcoin", TradeMethod: types.TradeMethodFloat},
	}, mock.DefaultPairs...)

	return []provider.Provider{
		mock.New("changelly",
			mock.WithPairs(pairs),
			mock.WithRate("bitcoin", "ethereum", decimal.RequireFromString("15.2")),
			mock.WithRate("ethereum", "bitcoin", decimal.RequireFromString("0.0655")),
			mock.WithRate("solana", "ethereum", decimal.RequireFromString("0.045")),
			mock.WithRate("ethereum", "solana", decimal.RequireFromString("21.9")),
			mock.WithRate("ethereum/erc20/usdc", "bitcoin", decimal.RequireFromString("0.0000152")),
			mock.WithPayoutFee(decimal.RequireFromString("0.002")),
			mock.WithQuoteTTL(2*time.Minute),
			mock.WithUnknownStatus(mock.StatusFinished),
		),
		mock.New("wyre",
			mock.WithRate("bitcoin", "ethereum", decimal.RequireFromString("15.05")),
			mock.WithRate("ethereum", "bitcoin", decimal.RequireFromString("0.0661")),
			mock.WithPayoutFee(decimal.RequireFromString("0.001")),
			mock.WithUnknownStatus(mock.StatusExchanging),
		),
	}
}

func (a *app) serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", a.metrics.Handler())
	a.metricsServer = &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := a.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error().Err(err).Str("addr", addr).Msg("Metrics server failed")
		}
	}()
	a.log.Info().Str("addr", addr).Msg("Serving metrics")
}

func (a *app) close() {
	if a.metricsServer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = a.metricsServer.Shutdown(ctx)
}

func (a *app) rateFetcher() *swap.RateFetcher {
	return swap.NewRateFetcher(a.registry, a.aggregator, a.log,
		swap.WithRateTTL(a.cfg.RateTTL),
		swap.WithRateConcurrency(a.cfg.MaxConcurrency),
		swap.WithRateMetrics(a.metrics),
	)
}

func (a *app) statusTracker() (*swap.StatusTracker, error) {
	overrides, err := swap.ParseStatusOverrides(a.cfg.StatusOverrides)
	if err != nil {
		return nil, err
	}
	return swap.NewStatusTracker(a.registry, a.log,
		swap.WithStatusTables(swap.MergeStatusTables(swap.DefaultStatusTables(), overrides)),
		swap.WithTrackerConcurrency(a.cfg.MaxConcurrency),
		swap.WithTrackerMetrics(a.metrics),
	), nil
}

// mustApp builds the app or exits like the other command failures do
func mustApp(cmd *cobra.Command) *app {
	a, err := newApp(cmd)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	return a
}
