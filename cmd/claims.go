package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"claimflow/internal/bootstrap"
	"claimflow/internal/bootstrap/logging"
	domainclaim "claimflow/internal/domain/claim"
	"claimflow/internal/errs"
	"claimflow/internal/usecase/claims"
)

var claimsCmd = &cobra.Command{
	Use:   "claims",
	Short: "Submit, inspect and decide insurance claims",
}

var claimsSubmitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit a new claim as a customer",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *claims.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		actor, err := actorFromFlags(cmd)
		if err != nil {
			return err
		}

		customerID, _ := cmd.Flags().GetString("customer")
		policyNumber, _ := cmd.Flags().GetString("policy")
		claimType, _ := cmd.Flags().GetString("type")
		description, _ := cmd.Flags().GetString("description")
		amountRaw, _ := cmd.Flags().GetString("amount")
		documents, _ := cmd.Flags().GetStringSlice("document")

		amount, err := decimal.NewFromString(strings.TrimSpace(amountRaw))
		if err != nil {
			return fmt.Errorf("invalid --amount %q: %w", amountRaw, err)
		}

		claim, err := svc.SubmitClaim(ctx, actor, claims.SubmitClaimInput{
			CustomerID:   customerID,
			PolicyNumber: policyNumber,
			ClaimType:    claimType,
			Description:  description,
			ClaimAmount:  amount,
			DocumentURLs: documents,
		})
		if err != nil {
			logging.Error(ctx, "submit claim failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "submit claim")
		}

		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "submitted claim: %s policy=%s status=%s\n", claim.ID, claim.PolicyNumber, claim.Status); err != nil {
			return errs.Wrap(err, "write submit output")
		}
		return nil
	}),
}

var claimsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show a claim with its comment thread",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *claims.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		actor, err := actorFromFlags(cmd)
		if err != nil {
			return err
		}
		claimID, _ := cmd.Flags().GetString("claim")

		claim, err := svc.GetClaim(ctx, actor, claimID)
		if err != nil {
			logging.Error(ctx, "show claim failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "get claim")
		}
		if err := writeClaimDetail(cmd.OutOrStdout(), claim); err != nil {
			return errs.Wrap(err, "write show output")
		}
		return nil
	}),
}

var claimsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List claims of a customer, or every claim for approvers",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *claims.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		actor, err := actorFromFlags(cmd)
		if err != nil {
			return err
		}
		customerID, _ := cmd.Flags().GetString("customer")
		statusRaw, _ := cmd.Flags().GetString("status")

		items, err := listClaimsFor(ctx, svc, actor, customerID)
		if err != nil {
			logging.Error(ctx, "list claims failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "list claims")
		}
		items, err = filterClaimsByStatus(items, statusRaw)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(items) == 0 {
			_, err := fmt.Fprintln(out, "no claims")
			return err
		}
		for _, item := range items {
			if _, err := fmt.Fprintf(
				out,
				"%s\t%s\t%s\t%s\t%s\t%s\n",
				item.ID,
				item.Status,
				item.CustomerID,
				item.PolicyNumber,
				item.ClaimAmount.StringFixed(2),
				item.CreatedAt.Format(time.RFC3339),
			); err != nil {
				return errs.Wrap(err, "write list output")
			}
		}
		return nil
	}),
}

var claimsCommentCmd = &cobra.Command{
	Use:   "comment",
	Short: "Append a comment to a claim",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *claims.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		actor, err := actorFromFlags(cmd)
		if err != nil {
			return err
		}
		claimID, _ := cmd.Flags().GetString("claim")
		text, _ := cmd.Flags().GetString("text")

		claim, err := svc.AddComment(ctx, actor, claims.AddCommentInput{ClaimID: claimID, Text: text})
		if err != nil {
			logging.Error(ctx, "comment claim failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "add comment")
		}

		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "appended comment to claim: %s comments=%d\n", claim.ID, len(claim.Comments)); err != nil {
			return errs.Wrap(err, "write comment output")
		}
		return nil
	}),
}

var claimsDecideCmd = &cobra.Command{
	Use:   "decide",
	Short: "Approve or reject a pending claim",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *claims.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		actor, err := actorFromFlags(cmd)
		if err != nil {
			return err
		}
		claimID, _ := cmd.Flags().GetString("claim")
		decision, _ := cmd.Flags().GetString("decision")
		comments, _ := cmd.Flags().GetString("comments")

		claim, err := svc.Decide(ctx, actor, claims.DecideInput{
			ClaimID:  claimID,
			Decision: decision,
			Comments: comments,
		})
		if err != nil {
			logging.Error(ctx, "decide claim failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "decide claim")
		}

		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "decided claim: %s status=%s supervisor=%s\n", claim.ID, claim.Status, valueOrDash(claim.SupervisorID)); err != nil {
			return errs.Wrap(err, "write decide output")
		}
		return nil
	}),
}

var claimsAssignCmd = &cobra.Command{
	Use:   "assign",
	Short: "Assign a pending claim to an approver",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *claims.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		actor, err := actorFromFlags(cmd)
		if err != nil {
			return err
		}
		claimID, _ := cmd.Flags().GetString("claim")
		supervisorID, _ := cmd.Flags().GetString("supervisor")

		claim, err := svc.Assign(ctx, actor, claims.AssignInput{ClaimID: claimID, ApproverID: supervisorID})
		if err != nil {
			logging.Error(ctx, "assign claim failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "assign claim")
		}

		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "assigned claim: %s supervisor=%s\n", claim.ID, valueOrDash(claim.SupervisorID)); err != nil {
			return errs.Wrap(err, "write assign output")
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(claimsCmd)
	claimsCmd.AddCommand(claimsSubmitCmd, claimsShowCmd, claimsListCmd, claimsCommentCmd, claimsDecideCmd, claimsAssignCmd)

	claimsCmd.PersistentFlags().String("actor-id", "", "Asserted caller id")
	claimsCmd.PersistentFlags().String("actor-name", "", "Asserted caller display name (default: actor id)")
	claimsCmd.PersistentFlags().String("actor-role", "customer", "Asserted caller role: customer|approver")
	_ = claimsCmd.MarkPersistentFlagRequired("actor-id")

	claimsSubmitCmd.Flags().String("customer", "", "Customer id (default: actor id)")
	claimsSubmitCmd.Flags().String("policy", "", "Policy number (generated when empty)")
	claimsSubmitCmd.Flags().String("type", "", "Claim type, for example auto or health")
	claimsSubmitCmd.Flags().String("description", "", "Claim description")
	claimsSubmitCmd.Flags().String("amount", "0", "Claimed amount")
	claimsSubmitCmd.Flags().StringSlice("document", nil, "Supporting document URL (repeatable)")
	_ = claimsSubmitCmd.MarkFlagRequired("type")
	_ = claimsSubmitCmd.MarkFlagRequired("description")

	claimsShowCmd.Flags().String("claim", "", "Claim id")
	_ = claimsShowCmd.MarkFlagRequired("claim")

	claimsListCmd.Flags().String("customer", "", "Customer id (approvers may omit to list all)")
	claimsListCmd.Flags().String("status", "", "Optional status filter (PENDING|APPROVED|REJECTED)")

	claimsCommentCmd.Flags().String("claim", "", "Claim id")
	claimsCommentCmd.Flags().String("text", "", "Comment text")
	_ = claimsCommentCmd.MarkFlagRequired("claim")
	_ = claimsCommentCmd.MarkFlagRequired("text")

	claimsDecideCmd.Flags().String("claim", "", "Claim id")
	claimsDecideCmd.Flags().String("decision", "", "APPROVED or REJECTED")
	claimsDecideCmd.Flags().String("comments", "", "Optional decision comment")
	_ = claimsDecideCmd.MarkFlagRequired("claim")
	_ = claimsDecideCmd.MarkFlagRequired("decision")

	claimsAssignCmd.Flags().String("claim", "", "Claim id")
	claimsAssignCmd.Flags().String("supervisor", "", "Approver id (default: actor id)")
	_ = claimsAssignCmd.MarkFlagRequired("claim")
}

func actorFromFlags(cmd *cobra.Command) (domainclaim.Principal, error) {
	id, _ := cmd.Flags().GetString("actor-id")
	name, _ := cmd.Flags().GetString("actor-name")
	role, _ := cmd.Flags().GetString("actor-role")

	actor, err := domainclaim.NewPrincipal(id, name, role)
	if err != nil {
		return domainclaim.Principal{}, fmt.Errorf("invalid actor flags: %w", err)
	}
	return actor, nil
}

type claimLister interface {
	ListClaimsByCustomer(ctx context.Context, actor domainclaim.Principal, customerID string) ([]domainclaim.Claim, error)
	ListAllClaims(ctx context.Context, actor domainclaim.Principal) ([]domainclaim.Claim, error)
}

// listClaimsFor scopes a customer to their own claims when no customer is given.
func listClaimsFor(ctx context.Context, svc claimLister, actor domainclaim.Principal, customerID string) ([]domainclaim.Claim, error) {
	customerID = strings.TrimSpace(customerID)
	if customerID == "" && !actor.IsApprover() {
		customerID = actor.ID
	}
	if customerID == "" {
		return svc.ListAllClaims(ctx, actor)
	}
	return svc.ListClaimsByCustomer(ctx, actor, customerID)
}

func filterClaimsByStatus(items []domainclaim.Claim, raw string) ([]domainclaim.Claim, error) {
	if strings.TrimSpace(raw) == "" {
		return items, nil
	}
	status, err := domainclaim.ParseStatus(raw)
	if err != nil {
		return nil, err
	}
	filtered := make([]domainclaim.Claim, 0, len(items))
	for _, item := range items {
		if item.Status == status {
			filtered = append(filtered, item)
		}
	}
	return filtered, nil
}

func writeClaimDetail(w io.Writer, claim domainclaim.Claim) error {
	decidedAt := "-"
	if claim.DecidedAt != nil {
		decidedAt = claim.DecidedAt.Format(time.RFC3339)
	}

	var builder strings.Builder
	fmt.Fprintf(&builder, "Claim: %s\n", claim.ID)
	fmt.Fprintf(&builder, "Customer: %s\n", claim.CustomerID)
	fmt.Fprintf(&builder, "Policy: %s\n", claim.PolicyNumber)
	fmt.Fprintf(&builder, "Type: %s\n", claim.ClaimType)
	fmt.Fprintf(&builder, "Amount: %s\n", claim.ClaimAmount.StringFixed(2))
	fmt.Fprintf(&builder, "Status: %s\n", claim.Status)
	fmt.Fprintf(&builder, "Supervisor: %s\n", valueOrDash(claim.SupervisorID))
	fmt.Fprintf(&builder, "Created: %s\n", claim.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(&builder, "Decided: %s\n", decidedAt)
	fmt.Fprintf(&builder, "Description: %s\n", claim.Description)
	if len(claim.DocumentURLs) > 0 {
		builder.WriteString("Documents:\n")
		for _, url := range claim.DocumentURLs {
			fmt.Fprintf(&builder, "- %s\n", url)
		}
	}
	builder.WriteString("Comments:\n")
	if len(claim.Comments) == 0 {
		builder.WriteString("- none\n")
	}
	for _, comment := range claim.Comments {
		fmt.Fprintf(&builder, "- c%d %s %s: %s\n", comment.ID, comment.CreatedAt.Format(time.RFC3339), comment.AuthorName, comment.Text)
	}

	_, err := io.WriteString(w, builder.String())
	return err
}

func valueOrDash(value *string) string {
	if value == nil || strings.TrimSpace(*value) == "" {
		return "-"
	}
	return *value
}
