package cmd

import (
	"fmt"
	"log/slog"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"claimflow/internal/bootstrap"
	"claimflow/internal/bootstrap/logging"
	domainclaim "claimflow/internal/domain/claim"
	"claimflow/internal/errs"
	"claimflow/internal/usecase/claims"
	"claimflow/internal/usecase/reviewconsole"
)

var consoleReviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Start the approver review console",
	RunE: withApp(func(cmd *cobra.Command, app *bootstrap.App, svc *claims.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		approverID, _ := cmd.Flags().GetString("approver")
		approverName, _ := cmd.Flags().GetString("name")
		status, _ := cmd.Flags().GetString("status")
		refreshInterval, _ := cmd.Flags().GetDuration("refresh-interval")
		if refreshInterval <= 0 {
			refreshInterval = app.Config.Claims.PollInterval
		}
		if status != "" && !strings.EqualFold(status, "all") {
			if _, err := domainclaim.ParseStatus(status); err != nil {
				return err
			}
		}

		approver, err := domainclaim.NewPrincipal(approverID, approverName, string(domainclaim.RoleApprover))
		if err != nil {
			return fmt.Errorf("invalid --approver: %w", err)
		}

		model := reviewconsole.NewReviewModel(ctx, svc, reviewconsole.ReviewOptions{
			Approver:        approver,
			StatusFilter:    status,
			RefreshInterval: refreshInterval,
		})

		program := tea.NewProgram(model, tea.WithAltScreen())
		if _, err := program.Run(); err != nil {
			return errs.Wrap(err, "run review console")
		}
		return nil
	}),
}

func init() {
	consoleCmd.AddCommand(consoleReviewCmd)
	consoleReviewCmd.Flags().String("approver", "", "Approver id acting in the console")
	consoleReviewCmd.Flags().String("name", "", "Approver display name (default: approver id)")
	consoleReviewCmd.Flags().String("status", "pending", "Status filter (pending|approved|rejected|all)")
	consoleReviewCmd.Flags().Duration("refresh-interval", 0, "Poll interval (default: claims.poll_interval from config)")
	_ = consoleReviewCmd.MarkFlagRequired("approver")
}
