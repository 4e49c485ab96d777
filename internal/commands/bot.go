package commands

import (
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"madipath/internal/config"
	"madipath/internal/telegram"
)

var botCmd = &cobra.Command{
	Use:   "bot",
	Short: "Run only the Telegram bot",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := loadDeps()
		if err != nil {
			return err
		}
		defer d.log.Sync()
		if d.cfg.Telegram.Token == "" {
			return errors.New("telegram.token is not set (TELEGRAM_TOKEN)")
		}

		bot, err := newBot(d)
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		router := telegram.NewRouter(bot, d.triage, d.gate, d.links, d.log)
		router.DrainTimeout = config.GetDuration(d.cfg.Server.ShutdownTimeout)
		router.Poll(ctx, bot, d.cfg.Telegram.PollTimeout)
		return nil
	},
}
