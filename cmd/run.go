package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func newRunCmd(app *app) *cobra.Command {
	var readStdin bool
	var quiet bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Connect enabled accounts and print events until interrupted",
		Long: "run keeps every enabled account connected, reconciles whenever the accounts file changes " +
			"and prints connection, message and error events. Stop it with SIGINT or SIGTERM.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			d, err := app.wireDaemon(ctx)
			if err != nil {
				return err
			}

			opts := daemonOptions{}
			if !quiet {
				opts.startup = spinnerStartup(cmd.ErrOrStderr())
			}
			if readStdin {
				opts.input = cmd.InOrStdin()
			}

			return d.run(ctx, cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().BoolVar(&readStdin, "stdin", false, "Send \"<account> <payload>\" lines read from stdin; \"/status\" prints live sessions")
	cmd.Flags().BoolVar(&quiet, "quiet", false, "Do not show the startup spinner")

	return cmd
}
