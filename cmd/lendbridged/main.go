package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"lendbridge/config"
	"lendbridge/core/events"
	"lendbridge/crypto"
	"lendbridge/gateway/middleware"
	"lendbridge/gateway/routes"
	"lendbridge/native/bridge"
	nativecommon "lendbridge/native/common"
	"lendbridge/native/oracle"
	"lendbridge/native/pool"
	"lendbridge/native/token"
	"lendbridge/observability/logging"
	"lendbridge/services/monitord"
	"lendbridge/state/lendstate"
	"lendbridge/storage"
)

const custodianEnv = "LENDBRIDGE_CUSTODIAN"

// eventLogLimit bounds the in-memory event ring served at /v1/events.
const eventLogLimit = 1024

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("LENDBRIDGE_ENV"))
	logger := logging.Setup("lendbridged", env)

	cfg, err := config.Load(*configFile)
	if err != nil {
		logger.Error("Failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		logger.Error("Failed to open database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	store, err := lendstate.NewStore(db)
	if err != nil {
		logger.Error("Failed to build state store", slog.Any("error", err))
		os.Exit(1)
	}

	owner, bridgePrincipal, oraclePrincipal, err := cfg.PrincipalAddresses()
	if err != nil {
		logger.Error("Failed to decode principals", slog.Any("error", err))
		os.Exit(1)
	}
	custodian := owner
	if value := strings.TrimSpace(os.Getenv(custodianEnv)); value != "" {
		custodian, err = decodeCustodian(value)
		if err != nil {
			logger.Error("Failed to decode custodian", slog.Any("error", err))
			os.Exit(1)
		}
	}

	pauses := nativecommon.StaticPauses(cfg.PauseMap())

	ledger := token.NewLedger(custodian)
	ledger.SetState(store)
	wrapped := token.NewWrappedLedger()
	wrapped.SetState(store)

	oracleEngine := oracle.NewEngine(owner)
	oracleEngine.SetState(store)
	oracleEngine.SetPauses(pauses)
	if cfg.Oracle.UpdateIntervalSeconds > 0 {
		oracleEngine.SetUpdateInterval(time.Duration(cfg.Oracle.UpdateIntervalSeconds) * time.Second)
	}

	poolEngine := pool.NewEngine(owner)
	poolEngine.SetState(store)
	poolEngine.SetToken(ledger)
	poolEngine.SetPauses(pauses)
	poolEngine.ConfigureBridge(bridgePrincipal)

	bridgeEngine := bridge.NewEngine(oraclePrincipal)
	bridgeEngine.SetState(store)
	bridgeEngine.SetWrappedToken(wrapped)
	bridgeEngine.SetPauses(pauses)
	if strings.EqualFold(strings.TrimSpace(cfg.Bridge.ThresholdSource), "global") {
		bridgeEngine.SetLiquidationThreshold(bridge.ThresholdGlobal, cfg.Bridge.GlobalThreshold)
	}

	monitor := monitord.New(oracleEngine, bridgeEngine, oraclePrincipal, time.Duration(cfg.Monitor.SweepSeconds)*time.Second, logger)
	monitor.SetAssetPair(cfg.Monitor.CollateralAsset, cfg.Monitor.BorrowedAsset)

	eventLog := events.NewLog(logger, eventLogLimit)
	oracleEngine.SetEmitter(eventLog)
	poolEngine.SetEmitter(eventLog)
	// The monitor tracks borrower exposures straight off the bridge events.
	bridgeEngine.SetEmitter(events.Fanout{eventLog, monitor})

	limits := map[string]middleware.RateLimit{
		"oracle": {RatePerSecond: cfg.Gateway.RequestsPerSecond, Burst: cfg.Gateway.Burst},
		"pool":   {RatePerSecond: cfg.Gateway.RequestsPerSecond, Burst: cfg.Gateway.Burst},
		"bridge": {RatePerSecond: cfg.Gateway.RequestsPerSecond, Burst: cfg.Gateway.Burst},
		"token":  {RatePerSecond: cfg.Gateway.RequestsPerSecond, Burst: cfg.Gateway.Burst},
	}
	obs := middleware.NewObservability(middleware.ObservabilityConfig{
		ServiceName: "lendbridged",
		LogRequests: true,
		Enabled:     true,
	}, logger)

	handler := routes.New(routes.Config{
		Oracle:        oracleEngine,
		Pool:          poolEngine,
		Bridge:        bridgeEngine,
		Ledger:        ledger,
		Events:        eventLog,
		RateLimiter:   middleware.NewRateLimiter(limits),
		Observability: obs,
	})

	server := &http.Server{
		Addr:         cfg.ListenAddress,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	stopCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() { _ = monitor.Run(stopCtx) }()

	errs := make(chan error, 1)
	go func() {
		logger.Info("lendbridged listening", slog.String("address", cfg.ListenAddress))
		errs <- server.ListenAndServe()
	}()

	select {
	case <-stopCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			_ = server.Close()
			logger.Error("Shutdown failed", slog.Any("error", err))
			os.Exit(1)
		}
	case err := <-errs:
		if err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed", slog.Any("error", err))
			os.Exit(1)
		}
	}
}

func decodeCustodian(value string) (addr crypto.Address, err error) {
	addr, err = crypto.DecodeAddress(value)
	if err != nil {
		err = fmt.Errorf("invalid custodian address: %w", err)
	}
	return
}
