package cmd

import (
	"fmt"

	"github.com/bnema/chatlink/internal/domain"
	"github.com/spf13/cobra"
)

func newPresenceCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:       "presence <offline|busy|away|available>",
		Short:     "Set the global presence; offline disconnects every account",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(domain.PresenceOffline), string(domain.PresenceBusy), string(domain.PresenceAway), string(domain.PresenceAvailable)},
		RunE: func(cmd *cobra.Command, args []string) error {
			presence, err := domain.ParsePresence(args[0])
			if err != nil {
				return err
			}
			if err := app.service.SetPresence(cmd.Context(), presence); err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "presence: %s\n", presence)
			return err
		},
	}
}
