package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/bnema/chatlink/internal/application"
	"github.com/bnema/chatlink/internal/domain"
	"github.com/spf13/cobra"
)

func newAuthCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage account credentials",
	}

	cmd.AddCommand(newAuthSetCmd(app), newAuthRemoveCmd(app))

	return cmd
}

func newAuthSetCmd(app *app) *cobra.Command {
	var accountID string
	var secretKey string
	var secretValue string
	var fromStdin bool

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Store the account password",
		RunE: func(cmd *cobra.Command, _ []string) error {
			id := domain.AccountID(strings.TrimSpace(accountID))
			if id == "" {
				return application.ErrInvalidAccountID
			}

			value := secretValue
			if fromStdin {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("read password from stdin: %w", err)
				}
				value = strings.TrimRight(line, "\r\n")
			}
			if value == "" {
				return errors.New("password is empty: use --secret-value or --stdin")
			}

			return app.service.SetAuth(cmd.Context(), id, secretKey, value)
		},
	}

	cmd.Flags().StringVar(&accountID, "account", "", "Account ID")
	cmd.Flags().StringVar(&secretKey, "secret-key", "", "Secret-store key (default chatlink://<account>/password)")
	cmd.Flags().StringVar(&secretValue, "secret-value", "", "Password")
	cmd.Flags().BoolVar(&fromStdin, "stdin", false, "Read the password from the first stdin line")
	cmd.MarkFlagsMutuallyExclusive("secret-value", "stdin")
	_ = cmd.MarkFlagRequired("account")

	return cmd
}

func newAuthRemoveCmd(app *app) *cobra.Command {
	var accountID string

	cmd := &cobra.Command{
		Use:   "remove",
		Short: "Remove the account password",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.service.RemoveAuth(cmd.Context(), domain.AccountID(accountID))
		},
	}

	cmd.Flags().StringVar(&accountID, "account", "", "Account ID")
	_ = cmd.MarkFlagRequired("account")

	return cmd
}
