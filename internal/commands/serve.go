package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"madipath/internal/config"
	httpserver "madipath/internal/http"
	"madipath/internal/telegram"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web UI and JSON API (and the Telegram bot when enabled)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := loadDeps()
		if err != nil {
			return err
		}
		defer d.log.Sync()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runServe(ctx, d)
	},
}

func runServe(ctx context.Context, d *deps) error {
	handler, err := httpserver.NewServer(d.triage, d.gate, d.links, d.log)
	if err != nil {
		return fmt.Errorf("failed to construct server: %w", err)
	}
	srv := &http.Server{Addr: d.cfg.Server.Addr, Handler: handler}

	var wg sync.WaitGroup
	if d.cfg.Telegram.Enabled {
		bot, err := newBot(d)
		if err != nil {
			return err
		}
		router := telegram.NewRouter(bot, d.triage, d.gate, d.links, d.log)
		router.DrainTimeout = config.GetDuration(d.cfg.Server.ShutdownTimeout)
		wg.Add(1)
		go func() {
			defer wg.Done()
			router.Poll(ctx, bot, d.cfg.Telegram.PollTimeout)
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		d.log.Info("listening", zap.String("addr", srv.Addr), zap.String("provider", d.cfg.Triage.Provider))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), config.GetDuration(d.cfg.Server.ShutdownTimeout))
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		d.log.Warn("shutdown incomplete", zap.Error(err))
	}
	wg.Wait()
	d.log.Info("stopped")
	return nil
}

func newBot(d *deps) (*tgbotapi.BotAPI, error) {
	bot, err := tgbotapi.NewBotAPI(d.cfg.Telegram.Token)
	if err != nil {
		return nil, fmt.Errorf("telegram: %w", err)
	}
	bot.Debug = d.cfg.Telegram.Debug
	d.log.Info("telegram bot authorized", zap.String("username", bot.Self.UserName))
	return bot, nil
}
