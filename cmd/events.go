package main

import (
	"context"
	"encoding/json"

	"github.com/spf13/cobra"

	"stockcrew/internal/adapters/config"
	"stockcrew/internal/adapters/kafka"
	"stockcrew/internal/bootstrap"
	"stockcrew/internal/events"
	"stockcrew/pkg/errors"
)

func eventsCMD() *cobra.Command {
	var (
		group     string
		fromStart bool
	)
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Print pipeline events published to Kafka",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if !cfg.Kafka.Enabled {
				return errors.Wrap(errors.ErrInvalidInput, "KAFKA_ENABLED is false")
			}

			c := bootstrap.NewContainer()
			if err := c.UseConfig(cfg); err != nil {
				return err
			}

			consumer := kafka.NewConsumer(kafka.ConsumerConfig{
				Brokers:   cfg.Kafka.Brokers,
				GroupID:   group,
				Topic:     cfg.Kafka.Topic,
				FromStart: fromStart,
			})
			defer consumer.Close()

			enc := json.NewEncoder(cmd.OutOrStdout())
			return events.Tail(cmd.Context(), consumer, cfg.Kafka.Topic, func(_ context.Context, ev events.Event) error {
				if err := enc.Encode(ev); err != nil {
					return errors.Wrap(err, "print event")
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&group, "group", "stockcrew-events", "consumer group id")
	cmd.Flags().BoolVar(&fromStart, "from-start", false, "read the topic from the first offset")
	return cmd
}
