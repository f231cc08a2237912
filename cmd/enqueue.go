package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/dulmini1119/tms-sub001/internal/jobs"
)

var enqueueCmd = &cobra.Command{
	Use:   "enqueue",
	Short: "Queue a billing task for the job worker",
}

var (
	enqueueMonth  string
	enqueueVendor string
)

var enqueueMonthlyCmd = &cobra.Command{
	Use:   "monthly-invoices",
	Short: "Queue the monthly invoice run",
	Long:  `Queue invoice generation for one month (default: previous month), optionally for a single vendor.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := bootstrap()
		if err != nil {
			return err
		}
		client := jobs.NewClient(jobs.RedisOpt(cfg.Jobs))
		defer client.Close()

		info, err := client.EnqueueGenerateMonthly(context.Background(), jobs.GenerateMonthlyPayload{
			Month:    enqueueMonth,
			VendorID: enqueueVendor,
		})
		if err != nil {
			return err
		}
		log.Info("task enqueued", "task_id", info.ID, "type", info.Type, "queue", info.Queue)
		return nil
	},
}

var enqueueOverdueCmd = &cobra.Command{
	Use:   "overdue-invoices",
	Short: "Queue the overdue invoice sweep",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := bootstrap()
		if err != nil {
			return err
		}
		client := jobs.NewClient(jobs.RedisOpt(cfg.Jobs))
		defer client.Close()

		info, err := client.EnqueueMarkOverdue(context.Background())
		if err != nil {
			return err
		}
		log.Info("task enqueued", "task_id", info.ID, "type", info.Type, "queue", info.Queue)
		return nil
	},
}

func init() {
	enqueueMonthlyCmd.Flags().StringVar(&enqueueMonth, "month", "", "billing month as YYYY-MM")
	enqueueMonthlyCmd.Flags().StringVar(&enqueueVendor, "vendor", "", "limit the run to one vendor id")

	enqueueCmd.AddCommand(enqueueMonthlyCmd)
	enqueueCmd.AddCommand(enqueueOverdueCmd)

	rootCmd.AddCommand(enqueueCmd)
}
