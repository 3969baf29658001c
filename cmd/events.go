package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newEventsCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Inspect messages stored while no consumer was running",
	}

	cmd.AddCommand(newEventsPendingCmd(app), newEventsClearCmd(app))

	return cmd
}

func newEventsPendingCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "pending",
		Short: "List stored messages without consuming them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			queue, store, err := app.openQueue(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			count := queue.Restore(cmd.Context())
			if _, err := fmt.Fprintf(cmd.OutOrStdout(), "pending: %d\n", count); err != nil {
				return err
			}
			for _, event := range queue.Snapshot() {
				if _, err := fmt.Fprintln(cmd.OutOrStdout(), app.formatEvent(event, time.Time{})); err != nil {
					return err
				}
			}

			return nil
		},
	}
}

func newEventsClearCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete every stored message",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			queue, store, err := app.openQueue(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			queue.Clear(cmd.Context())
			_, err = fmt.Fprintln(cmd.OutOrStdout(), "stored events cleared")
			return err
		},
	}
}
