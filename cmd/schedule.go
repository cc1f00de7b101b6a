package cmd

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/confatlas/confcrawler/internal/service"
)

// newScheduleCmd creates the 'schedule' subcommand: the periodic stale
// re-crawl batch.
func newScheduleCmd() *cobra.Command {
	var once bool

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run the stale re-crawl scheduler",
		Long: `Periodically selects conferences that have never been crawled or were
last crawled outside the staleness window, and re-crawls them one at a
time with a fixed inter-crawl delay. Use --once to run a single batch
immediately and exit.`,

		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}

			opts := service.Options{SaveHTMLToStorage: a.cfg.Schedule.SaveHTMLToStorage}

			runBatch := func() {
				outcomes, err := a.svc.RunStale(cmd.Context(), opts)
				if err != nil {
					a.logger.Error("stale re-crawl batch failed", zap.Error(err))
					return
				}
				succeeded := 0
				for _, out := range outcomes {
					if out.Success {
						succeeded++
					}
				}
				a.logger.Info("stale re-crawl batch finished",
					zap.Int("crawled", len(outcomes)), zap.Int("succeeded", succeeded))
			}

			if once {
				runBatch()
				return nil
			}

			scheduler := cron.New()
			if _, err := scheduler.AddFunc(a.cfg.Schedule.Cron, runBatch); err != nil {
				return fmt.Errorf("register cron schedule %q: %w", a.cfg.Schedule.Cron, err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a.logger.Info("scheduler started", zap.String("cron", a.cfg.Schedule.Cron))
			scheduler.Start()
			<-ctx.Done()

			a.logger.Info("scheduler stopping")
			<-scheduler.Stop().Done()
			return nil
		},
	}

	cmd.Flags().BoolVar(&once, "once", false, "run one batch immediately and exit")

	return cmd
}
