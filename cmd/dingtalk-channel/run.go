package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Charles311/openclaw-channel-dingtalk/internal/channel"
	"github.com/Charles311/openclaw-channel-dingtalk/internal/dingtalk"
	"github.com/Charles311/openclaw-channel-dingtalk/internal/dispatch"
	"github.com/Charles311/openclaw-channel-dingtalk/internal/domain"
	"github.com/Charles311/openclaw-channel-dingtalk/internal/history"
	"github.com/Charles311/openclaw-channel-dingtalk/internal/metrics"
)

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start every enabled account and serve until interrupted",
		RunE:  runGateway,
	}
}

func runGateway(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	setLogLevel(cfg.General.LogLevel)

	var store *history.Store
	if cfg.History.Enabled {
		store, err = history.NewStore(cfg.History.DBPath, logger)
		if err != nil {
			return fmt.Errorf("open history store: %w", err)
		}
		defer store.Close()

		retention := time.Duration(cfg.History.RetentionDays) * 24 * time.Hour
		if _, err := store.Cleanup(cmd.Context(), retention); err != nil {
			logger.Warn("history cleanup failed", "err", err)
		}
	}

	var dispatcher domain.Dispatcher
	switch cfg.Dispatcher.Mode {
	case "http":
		timeout := time.Duration(cfg.Dispatcher.TimeoutSeconds) * time.Second
		dispatcher = dispatch.NewHTTPDispatcher(cfg.Dispatcher.URL, timeout, logger)
	default:
		logger.Warn("echo dispatcher active; replies mirror inbound text")
		dispatcher = dispatch.EchoDispatcher{}
	}

	tokens := dingtalk.NewTokenCache(cfg.API.Base, nil, logger)
	sender := dingtalk.NewSender(cfg.API.Base, nil, tokens, logger)
	replier := dingtalk.NewWebhookReplier(nil, logger)

	mgr, err := channel.NewManager(channel.ManagerConfig{
		Accounts:   cfg.Credentials(),
		Dispatcher: dispatcher,
		Sender:     sender,
		Replier:    replier,
		History:    store,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	ctx := context.Background()
	started := 0
	for _, accountID := range cfg.EnabledAccounts() {
		if err := mgr.StartAccount(ctx, accountID); err != nil {
			logger.Error("account start failed", "account", accountID, "err", err)
			continue
		}
		started++
	}
	if started == 0 {
		return fmt.Errorf("no account started; check accounts in %s", resolveConfigPath())
	}

	var metricsSrv *http.Server
	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.HandleFunc("/metrics", metrics.Collector.Handler())
		metricsSrv = &http.Server{Addr: cfg.Metrics.Addr, Handler: mux}
		go func() {
			logger.Info("metrics listening", "addr", cfg.Metrics.Addr)
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server failed", "err", err)
			}
		}()
	}

	logger.Info("channel running", "accounts", started)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logger.Info("shutting down")
	if metricsSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		metricsSrv.Shutdown(shutdownCtx)
		cancel()
	}
	mgr.StopAll()
	return nil
}
