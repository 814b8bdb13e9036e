package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"rallyrent/cron"
	"rallyrent/services/notification"

	"github.com/spf13/cobra"
)

func newWorkerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Deliver queued notifications and reminders",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			a, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.connectQueue(ctx, true); err != nil {
				return err
			}

			processor := notification.NewProcessor(notification.NewLogSender(a.logger), a.repos.Scheduler, a.logger)
			worker := cron.NewWorker(a.redisOpt(), processor.Mux(), a.cfg.WorkerConcurrency, a.queueRedis, a.logger)
			return worker.Run(ctx)
		},
	}
}
