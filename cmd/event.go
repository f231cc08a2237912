package cmd

import (
	"context"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/dulmini1119/tms-sub001/internal/core/events"
	"github.com/dulmini1119/tms-sub001/pkg/logger"
)

var eventCmd = &cobra.Command{
	Use:   "event",
	Short: "Event bus commands",
	Long:  `Inspect domain event types and publish test events through the audit logger.`,
}

var publishEventCmd = &cobra.Command{
	Use:   "publish [event-type]",
	Short: "Publish a test event",
	Long:  `Publish a test event to the event bus for testing and debugging`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return publishTestEvent(cmd.Context(), args[0])
	},
}

var listEventsCmd = &cobra.Command{
	Use:   "types",
	Short: "List domain event types",
	Run: func(cmd *cobra.Command, args []string) {
		for _, t := range events.AllTypes {
			fmt.Fprintln(cmd.OutOrStdout(), t)
		}
	},
}

var eventData string

func publishTestEvent(ctx context.Context, eventType string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	log := logger.LoggerWrapper()

	bus := events.NewEventBus(log)
	audit := events.NewAuditLogger(log)
	audit.Register(bus)
	if !slices.Contains(events.AllTypes, eventType) {
		bus.Subscribe(eventType, audit.Handle)
	}

	ev := events.NewDebugEvent(eventType, map[string]interface{}{
		"message": eventData,
		"source":  "cli-command",
	})

	log.Info("publishing test event", "event_type", eventType, "event_id", ev.EventID())
	if err := bus.PublishSync(ctx, ev); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	log.Info("test event published successfully")
	return nil
}

func init() {
	publishEventCmd.Flags().StringVar(&eventData, "data", "test message", "Event data message")

	eventCmd.AddCommand(publishEventCmd)
	eventCmd.AddCommand(listEventsCmd)

	rootCmd.AddCommand(eventCmd)
}
