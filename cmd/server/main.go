package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/kjannette/trahn-agents/internal/agent"
	"github.com/kjannette/trahn-agents/internal/api"
	"github.com/kjannette/trahn-agents/internal/config"
	"github.com/kjannette/trahn-agents/internal/db"
	"github.com/kjannette/trahn-agents/internal/fees"
	"github.com/kjannette/trahn-agents/internal/marketdata"
	"github.com/kjannette/trahn-agents/internal/notifications"
	"github.com/kjannette/trahn-agents/internal/registry"
	"github.com/kjannette/trahn-agents/internal/repository"
	"github.com/kjannette/trahn-agents/internal/risk"
	"github.com/kjannette/trahn-agents/internal/scanner"
	"github.com/kjannette/trahn-agents/internal/scheduler"
	"github.com/kjannette/trahn-agents/internal/settlement"
	"github.com/kjannette/trahn-agents/internal/treasury"
)

const banner = `
╔══════════════════════════════════════╗
║     TRAHN Agent Trading Desk v0.1    ║
║                                      ║
╚══════════════════════════════════════╝
`

const apiPort = 3001

func main() {
	fmt.Print(banner)

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load error: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	cfg.Print()

	// Database
	fmt.Printf("\n[DB] Connecting to %s:%d/%s ...\n", cfg.DBHost, cfg.DBPort, cfg.DBName)
	pool, err := db.Connect(context.Background(), cfg.DSN())
	if err != nil {
		fmt.Fprintf(os.Stderr, "[DB] Connection failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		pool.Close()
		fmt.Println("[DB] Connection pool closed")
	}()

	// Repos
	agentRepo := repository.NewAgentRepo(pool)
	tradeRepo := repository.NewTradeRepo(pool)
	feeRepo := repository.NewFeeRepo(pool)
	oppRepo := repository.NewOpportunityRepo(pool)

	// Notifications
	notify := notifications.NewSender(cfg.WebhookURL, cfg.ServiceName)

	// Treasury ledger client (only when settlement is configured)
	var ledger settlement.Ledger
	if cfg.FeeCollectionPrivKey != "" && cfg.TreasuryWallet != "" {
		client, err := treasury.NewClient(cfg.Network, cfg.RPCURL, cfg.FeeCollectionPrivKey, cfg.TreasuryWallet, cfg.GasLimit)
		if err != nil {
			fmt.Fprintf(os.Stderr, "[TREASURY] Client init failed: %v\n", err)
			os.Exit(1)
		}
		ledger = client
	} else {
		fmt.Println("[TREASURY] No fee collection key configured - transfers disabled")
		ledger = disabledLedger{}
	}

	// Settlement pipeline
	settle := settlement.NewService(ledger, feeRepo, tradeRepo, settlement.Options{
		Policy: fees.Policy{
			Percentage: cfg.FeePercentage,
			MinimumFee: cfg.MinimumFee,
			MaximumFee: cfg.MaximumFee,
		},
		AutoTransfer:    cfg.AutoTransferFees,
		TransferTimeout: cfg.TransferTimeout(),
		TransferDelay:   cfg.TransferDelay(),
	})

	// Market data: live prices over CoinGecko, simulated indicators
	provider := marketdata.NewCoinGecko()

	// Risk guardian shared by every agent runtime
	guardian := risk.NewGuardian(risk.Limits{
		MaxDailyTrades:     cfg.MaxDailyTrades,
		MaxPositionSizeUSD: cfg.MaxPositionSizeUSD,
	}, tradeRepo)

	// Agent runtime registry
	reg := registry.New(&agent.Factory{
		Agents:   agentRepo,
		Provider: provider,
		Guardian: guardian,
		Trades:   tradeRepo,
		Settler:  settle,
		Notify:   notify,
		Defaults: agent.Defaults{
			Symbols:      cfg.ScanSymbols,
			TickInterval: time.Duration(cfg.AgentTickSeconds) * time.Second,
			TradeSizeUSD: 100,
		},
	}, agentRepo)

	// Graceful shutdown context
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. Market scan scheduler
	marketScan := scanner.New(
		scanner.NewTechnicalDetector(provider, cfg.ScanSymbols, uuid.Nil),
		scanner.NewSentimentDetector(provider, cfg.ScanSymbols, uuid.Nil),
	)
	scanSched := scheduler.NewScanScheduler(marketScan, oppRepo, scheduler.ScanSchedulerConfig{
		CronInterval: time.Duration(cfg.ScanIntervalMinutes) * time.Minute,
		RetainFor:    time.Duration(cfg.OpportunityTTLHours) * time.Hour,
	})
	scanSched.Start()

	// 2. Fee settlement scheduler
	var settleSched *scheduler.SettlementScheduler
	if cfg.SettlementIntervalMin > 0 {
		settleSched = scheduler.NewSettlementScheduler(settle, notify, scheduler.SettlementSchedulerConfig{
			CronInterval: time.Duration(cfg.SettlementIntervalMin) * time.Minute,
			BatchLimit:   cfg.BatchSize,
		})
		settleSched.Start()
	} else {
		fmt.Println("[FEE-SCHEDULER] Skipped - settlement interval set to 0")
	}

	// 3. API server
	srv := api.NewServer(pool, api.Deps{
		Registry: reg,
		Settle:   settle,
		Scan:     scanSched,
	}, apiPort, cfg.APIKey, cfg.CORSAllowOrigin)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fmt.Fprintf(os.Stderr, "[API] Server error: %v\n", err)
			os.Exit(1)
		}
	}()

	fmt.Println("\nAll services started successfully")

	// Wait for shutdown signal
	<-ctx.Done()
	fmt.Println("\nShutting down gracefully...")

	scanSched.Stop()
	if settleSched != nil {
		settleSched.Stop()
	}

	// Stop every live agent runtime before closing the API
	clearCtx, cancelClear := context.WithTimeout(context.Background(), 15*time.Second)
	reg.Clear(clearCtx)
	cancelClear()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		fmt.Fprintf(os.Stderr, "[API] Shutdown error: %v\n", err)
	}
	fmt.Println("[API] Server closed")
	fmt.Println("Shutdown complete")
}

// disabledLedger stands in when no treasury key is configured. Every
// transfer fails loudly and is recorded as failed, instead of the
// service silently pretending it settled.
type disabledLedger struct{}

func (disabledLedger) TransferToTreasury(context.Context, float64) (string, error) {
	return "", fmt.Errorf("treasury transfers are not configured")
}
