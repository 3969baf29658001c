package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/bnema/chatlink/internal/application"
	"github.com/bnema/chatlink/internal/domain"
	"github.com/spf13/cobra"
)

func newAccountCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Manage accounts",
	}

	cmd.AddCommand(
		newAccountListCmd(app),
		newAccountAddCmd(app),
		newAccountRemoveCmd(app),
		newAccountStateCmd(app, "enable", true),
		newAccountStateCmd(app, "disable", false),
	)

	return cmd
}

func newAccountListCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			overview, err := app.service.Overview(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, status := range overview.Accounts {
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", status.Account.ID, status.Account.Title, status.Account.JID, status.Account.State)
			}

			return w.Flush()
		},
	}
}

func newAccountAddCmd(app *app) *cobra.Command {
	var (
		title      string
		color      string
		jid        string
		host       string
		port       int
		tlsMode    string
		mechanisms []string
		hardware   bool
	)

	cmd := &cobra.Command{
		Use:   "add <id>",
		Short: "Add an account or replace its connection settings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tls, err := domain.ParseTLSMode(tlsMode)
			if err != nil {
				return err
			}
			mechanismSet, err := domain.ParseMechanisms(mechanisms)
			if err != nil {
				return err
			}

			account, err := app.service.SaveAccount(cmd.Context(), application.SaveAccountCommand{
				ID:                     domain.AccountID(args[0]),
				Title:                  title,
				Color:                  color,
				JID:                    jid,
				Host:                   host,
				Port:                   port,
				TLS:                    tls,
				Mechanisms:             mechanismSet,
				RequestHardwareStandby: hardware,
			})
			if err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "saved account %s (%s)\n", account.ID, account.State)
			return err
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Display title (default: the account id)")
	cmd.Flags().StringVar(&color, "color", "", "Display color, e.g. #5f87ff or 39")
	cmd.Flags().StringVar(&jid, "jid", "", "Account identifier (user@domain)")
	cmd.Flags().StringVar(&host, "host", "", "Server host")
	cmd.Flags().IntVar(&port, "port", domain.DefaultPort, "Server port")
	cmd.Flags().StringVar(&tlsMode, "tls", string(domain.TLSModeNone), "TLS mode (none|implicit|starttls)")
	cmd.Flags().StringSliceVar(&mechanisms, "auth", domain.DefaultMechanisms.Names(), "Allowed auth mechanisms (plain,digest-md5,scram,oauth2)")
	cmd.Flags().BoolVar(&hardware, "hardware-standby", false, "Request a hardware-backed standby slot")
	_ = cmd.MarkFlagRequired("jid")
	_ = cmd.MarkFlagRequired("host")

	return cmd
}

func newAccountRemoveCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove an account and its stored credential",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.service.RemoveAccount(cmd.Context(), domain.AccountID(args[0]))
		},
	}
}

func newAccountStateCmd(app *app, use string, enabled bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: fmt.Sprintf("Set the desired state of an account to %sd", use),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.service.SetEnabled(cmd.Context(), domain.AccountID(args[0]), enabled)
		},
	}
}
