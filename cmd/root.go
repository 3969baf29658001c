package cmd

import "github.com/spf13/cobra"

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "chatlink",
		Short:         "chatlink: keep chat accounts connected in the background",
		Long:          "chatlink manages chat account settings and credentials, and runs a daemon that keeps enabled accounts connected, retries transient failures and stores inbound messages until they are consumed.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	app, err := wireApp()
	if err != nil {
		rootCmd.RunE = func(_ *cobra.Command, _ []string) error {
			return err
		}
		return rootCmd
	}

	rootCmd.AddCommand(
		newVersionCmd(),
		newAccountCmd(app),
		newAuthCmd(app),
		newPresenceCmd(app),
		newStatusCmd(app),
		newEventsCmd(app),
		newRunCmd(app),
	)

	return rootCmd
}
