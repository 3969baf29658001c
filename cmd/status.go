package cmd

import (
	"encoding/json"
	"fmt"

	statusadapter "github.com/bnema/chatlink/internal/adapters/render/status"
	"github.com/bnema/chatlink/internal/application"
	"github.com/bnema/chatlink/internal/domain"
	"github.com/spf13/cobra"
)

func newStatusCmd(app *app) *cobra.Command {
	var accountID string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show presence and account settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			overview, err := loadOverview(cmd, app.service, accountID)
			if err != nil {
				return err
			}
			return writeOverviewOutput(cmd, app, overview, asJSON)
		},
	}

	cmd.Flags().StringVar(&accountID, "account", "", "Account ID (default: all accounts)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Render JSON output")

	return cmd
}

func writeOverviewOutput(cmd *cobra.Command, app *app, overview application.Overview, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(overview)
	}

	rendered, err := app.statusRenderer(overview, statusadapter.RenderOptions{})
	if err != nil {
		return fmt.Errorf("render status: %w", err)
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
	return err
}

func loadOverview(cmd *cobra.Command, svc *application.Service, accountID string) (application.Overview, error) {
	overview, err := svc.Overview(cmd.Context())
	if err != nil {
		return application.Overview{}, err
	}
	if accountID == "" {
		return overview, nil
	}

	status, err := svc.GetStatus(cmd.Context(), domain.AccountID(accountID))
	if err != nil {
		return application.Overview{}, err
	}
	overview.Accounts = []application.Status{status}
	return overview, nil
}
