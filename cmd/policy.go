package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"claimflow/internal/bootstrap"
	"claimflow/internal/bootstrap/logging"
	"claimflow/internal/errs"
	"claimflow/internal/usecase/claims"
)

var policyCmd = &cobra.Command{
	Use:   "policy",
	Short: "Generate and check policy numbers",
}

var policyGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a policy number not used by any stored claim",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *claims.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		customerID, _ := cmd.Flags().GetString("customer")
		policyNumber, err := svc.GeneratePolicyNumber(ctx, customerID)
		if err != nil {
			logging.Error(ctx, "generate policy number failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "generate policy number")
		}

		if _, err := fmt.Fprintln(cmd.OutOrStdout(), policyNumber); err != nil {
			return errs.Wrap(err, "write generate output")
		}
		return nil
	}),
}

var policyCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Report whether a policy number is already used",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *claims.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		policyNumber, _ := cmd.Flags().GetString("policy")
		exists, err := svc.CheckPolicyNumber(ctx, policyNumber)
		if err != nil {
			logging.Error(ctx, "check policy number failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "check policy number")
		}

		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "policy=%s exists=%t\n", policyNumber, exists); err != nil {
			return errs.Wrap(err, "write check output")
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(policyCmd)
	policyCmd.AddCommand(policyGenerateCmd, policyCheckCmd)

	policyGenerateCmd.Flags().String("customer", "", "Customer id")
	_ = policyGenerateCmd.MarkFlagRequired("customer")

	policyCheckCmd.Flags().String("policy", "", "Policy number")
	_ = policyCheckCmd.MarkFlagRequired("policy")
}
