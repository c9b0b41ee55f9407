package main

import (
	"crypto/rand"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/uhyunpark/launchpad/params"
	"github.com/uhyunpark/launchpad/pkg/api"
	"github.com/uhyunpark/launchpad/pkg/engine"
	"github.com/uhyunpark/launchpad/pkg/store"
	"github.com/uhyunpark/launchpad/pkg/util"
)

func main() {
	// Load config from .env file and environment variables
	cfg := params.LoadFromEnv("") // "" means load from .env in current directory

	logger, err := util.NewLoggerWithFile(cfg.Node.LogFile)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()
	sugar.Infow("logger_initialized", "log_file", cfg.Node.LogFile)

	nativeMint, err := solana.PublicKeyFromBase58(cfg.Mints.Native)
	if err != nil {
		sugar.Fatalw("invalid_native_mint", "err", err)
	}
	usdcMint, err := solana.PublicKeyFromBase58(cfg.Mints.Usdc)
	if err != nil {
		sugar.Fatalw("invalid_usdc_mint", "err", err)
	}

	// ---- Account store ----
	st, err := store.Open(cfg.Node.DBPath)
	if err != nil {
		sugar.Fatalw("store_open_failed", "path", cfg.Node.DBPath, "err", err)
	}
	defer st.Close()

	// ---- Instruction engine ----
	eng := engine.New(st, sugar, util.RealClock{}, engine.Config{
		TestMode:   cfg.Node.TestMode,
		NativeMint: nativeMint,
		UsdcMint:   usdcMint,
	})
	if cfg.Node.TestMode {
		sugar.Warnw("test_mode_enabled")
	}

	// ---- Slot ticker: refreshes the randomness buffer every slot ----
	stopTicker := make(chan struct{})
	go func() {
		slot := uint64(time.Now().UnixMilli()) / uint64(cfg.Node.SlotInterval.Milliseconds())
		ticker := time.NewTicker(cfg.Node.SlotInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				slot++
				var hash [32]byte
				if _, err := rand.Read(hash[:]); err != nil {
					sugar.Errorw("slot_hash_entropy_failed", "err", err)
					continue
				}
				if err := eng.RecordSlotHash(slot, hash); err != nil {
					sugar.Errorw("slot_hash_record_failed", "err", err)
				}
			case <-stopTicker:
				return
			}
		}
	}()

	// ---- API server ----
	server := api.NewServer(eng, sugar, cfg.Node.CORSOrigins)
	go func() {
		if err := server.Start(cfg.Node.APIListen); err != nil {
			sugar.Fatalw("api_server_failed", "err", err)
		}
	}()

	sugar.Infow("node_started", "api", cfg.Node.APIListen, "db", cfg.Node.DBPath)

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	close(stopTicker)
	sugar.Infow("node_stopped")
}
