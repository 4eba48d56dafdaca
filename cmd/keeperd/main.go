package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/pinefi/orderkeeper/params"
	"github.com/pinefi/orderkeeper/pkg/api"
	"github.com/pinefi/orderkeeper/pkg/engine"
	"github.com/pinefi/orderkeeper/pkg/gas"
	"github.com/pinefi/orderkeeper/pkg/indexer"
	"github.com/pinefi/orderkeeper/pkg/order"
	"github.com/pinefi/orderkeeper/pkg/pending"
	"github.com/pinefi/orderkeeper/pkg/store"
	"github.com/pinefi/orderkeeper/pkg/submit"
	"github.com/pinefi/orderkeeper/pkg/util"
	"github.com/pinefi/orderkeeper/pkg/wallet"
)

func main() {
	// Load config from .env file and environment variables
	cfg := params.LoadFromEnv("") // "" means load from .env in current directory

	logger, err := util.NewLoggerWithFile(cfg.LogFile)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()
	sugar.Infow("logger_initialized", "log_file", cfg.LogFile)

	if cfg.Owner == "" {
		sugar.Fatal("OWNER address is required")
	}
	owner := common.HexToAddress(cfg.Owner)
	chainID := cfg.Network.ChainID

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---- Local order store ----
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		sugar.Fatalw("store_open_failed", "path", cfg.DBPath, "err", err)
	}
	defer st.Close()

	// ---- Wallet (optional: without RPC the daemon is read-only) ----
	var sender wallet.TxSender
	var receipts pending.ReceiptSource
	if cfg.RPCURL != "" {
		rpc, err := wallet.Dial(ctx, cfg.RPCURL, cfg.PrivateKey)
		if err != nil {
			sugar.Fatalw("rpc_dial_failed", "url", cfg.RPCURL, "err", err)
		}
		receipts = rpc
		if cfg.PrivateKey != "" {
			sender = rpc
		}
		sugar.Infow("wallet_connected", "url", cfg.RPCURL, "signing", sender != nil)
	} else {
		sugar.Info("no RPC_URL configured - submission and receipt tracking disabled")
	}

	// ---- Pending transaction tracker ----
	tracker := pending.NewTracker(receipts, util.RealClock{}, sugar)
	go tracker.Watch(ctx, cfg.Polling.ReceiptInterval)

	// ---- Gas oracle ----
	oracle := gas.NewOracle(cfg.Network.GasStation, cfg.Network.GasBuffer, sugar)
	if err := oracle.Refresh(ctx); err != nil {
		sugar.Warnw("initial_gas_refresh_failed", "err", err)
	}
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := oracle.Refresh(ctx); err != nil {
					sugar.Warnw("gas_refresh_failed", "err", err)
				}
			}
		}
	}()

	// ---- Reconciliation engines, one per order family ----
	limitIdx := indexer.New(cfg.Network.LimitOrderGraph, order.FamilyLimit, chainID, sugar)
	dcaIdx := indexer.New(cfg.Network.DCAOrderGraph, order.FamilyDCA, chainID, sugar)

	engines := map[order.Family]*engine.Engine{
		order.FamilyLimit: engine.New(limitIdx, st, tracker, util.RealClock{}, cfg.Polling.LimitInterval, owner, chainID, sugar),
		order.FamilyDCA:   engine.New(dcaIdx, st, tracker, util.RealClock{}, cfg.Polling.DCAInterval, owner, chainID, sugar),
	}
	for fam, eng := range engines {
		go eng.Run(ctx)
		sugar.Infow("engine_started", "family", fam.String())
	}

	// ---- Submission service ----
	contracts := submit.Contracts{
		DCAModule:      common.HexToAddress(cfg.Contracts.DCAModule),
		LimitOrderCore: common.HexToAddress(cfg.Contracts.LimitOrderCore),
		LimitModule:    common.HexToAddress(cfg.Contracts.LimitModule),
		PlatformWallet: common.HexToAddress(cfg.Contracts.PlatformWallet),
		PlatformFeeBps: cfg.Contracts.PlatformFeeBps,
		MinSlippageBps: cfg.Contracts.MinSlippageBps,
		MaxSlippageBps: cfg.Contracts.MaxSlippageBps,
	}
	submitSvc := submit.NewService(sender, st, tracker, oracle, util.RealClock{}, contracts, sugar)

	// ---- API server ----
	apiServer := api.NewServer(engines, submitSvc, tracker, oracle, owner, chainID, cfg.Network.DCAOrderFloor)
	go func() {
		sugar.Infow("api_server_starting", "addr", cfg.APIAddr)
		if err := apiServer.Start(cfg.APIAddr); err != nil {
			sugar.Fatalw("api_server_failed", "err", err)
		}
	}()

	sugar.Infow("keeperd_started",
		"owner", owner.Hex(),
		"chain_id", chainID,
		"limit_poll", cfg.Polling.LimitInterval.String(),
		"dca_poll", cfg.Polling.DCAInterval.String())

	<-ctx.Done()
	sugar.Info("shutting down")
}
