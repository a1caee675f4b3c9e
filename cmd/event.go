package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/frahmantamala/rbac-api/internal/core/events"
	"github.com/frahmantamala/rbac-api/internal/notification"
	notificationPostgres "github.com/frahmantamala/rbac-api/internal/notification/postgres"
	"github.com/frahmantamala/rbac-api/pkg/logger"
)

var eventCmd = &cobra.Command{
	Use:   "event",
	Short: "Event management commands",
	Long:  `Publish domain events through the in-process bus and its registered handlers`,
}

var publishEventCmd = &cobra.Command{
	Use:   "publish [event-type]",
	Short: "Publish an event",
	Long:  `Publish an event (for example user.created) to the bus with the notification handlers attached`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return publishEvent(cmd.Context(), args[0])
	},
}

var eventFields map[string]string

func publishEvent(ctx context.Context, eventType string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	lg := logger.LoggerWrapper()

	db, err := initDB(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to init db: %w", err)
	}
	defer db.Close()

	gdb, err := initGorm(db, cfg.App.Debug)
	if err != nil {
		return fmt.Errorf("failed to init orm: %w", err)
	}

	bus := events.NewEventBus(lg)
	notifications := notification.NewService(notificationPostgres.NewNotificationRepository(gdb), notification.NewLogPusher(lg), lg)
	notifications.RegisterEventHandlers(bus)

	data := make(map[string]interface{}, len(eventFields))
	for k, v := range eventFields {
		data[k] = v
	}
	event := events.BaseEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
	}

	lg.Info("publishing event", "event_type", eventType, "event_id", event.ID, "fields", len(data))
	if err := bus.PublishSync(ctx, event); err != nil {
		return fmt.Errorf("publish %s: %w", eventType, err)
	}
	lg.Info("event handled", "event_id", event.ID)
	return nil
}

func init() {
	publishEventCmd.Flags().StringToStringVar(&eventFields, "field", nil, "payload field as key=value (repeatable)")

	eventCmd.AddCommand(publishEventCmd)

	rootCmd.AddCommand(eventCmd)
}
