package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"claimflow/internal/bootstrap"
	"claimflow/internal/bootstrap/logging"
	domainclaim "claimflow/internal/domain/claim"
	"claimflow/internal/errs"
	"claimflow/internal/usecase/claims"
)

var claimsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export claim snapshots with their comments",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *claims.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		actor, err := actorFromFlags(cmd)
		if err != nil {
			return err
		}
		customerID, _ := cmd.Flags().GetString("customer")
		statusRaw, _ := cmd.Flags().GetString("status")
		format, _ := cmd.Flags().GetString("format")
		outPath, _ := cmd.Flags().GetString("out")

		format = strings.ToLower(strings.TrimSpace(format))
		if format == "" {
			format = "json"
		}
		if format != "json" && format != "yaml" && format != "toml" {
			return fmt.Errorf("unsupported format %q (expected: json, yaml or toml)", format)
		}

		items, err := listClaimsFor(ctx, svc, actor, customerID)
		if err != nil {
			logging.Error(ctx, "list claims for export failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "list claims")
		}
		items, err = filterClaimsByStatus(items, statusRaw)
		if err != nil {
			return err
		}

		payload, err := marshalClaimExport(items, format, time.Now().UTC())
		if err != nil {
			return err
		}

		writer, closeFn, err := resolveExportWriter(cmd, outPath)
		if err != nil {
			return err
		}
		if _, err := writer.Write(payload); err != nil {
			_ = closeFn()
			return errs.Wrap(err, "write claim export output")
		}
		if err := closeFn(); err != nil {
			return errs.Wrap(err, "close claim export output")
		}

		logging.Info(ctx, "claims exported", slog.Int("count", len(items)), slog.String("format", format))
		return nil
	}),
}

type claimExportDocument struct {
	ExportedAt string            `json:"exported_at" yaml:"exported_at" toml:"exported_at"`
	Count      int               `json:"count" yaml:"count" toml:"count"`
	Claims     []claimExportItem `json:"claims" yaml:"claims" toml:"claims"`
}

type claimExportItem struct {
	ID           string               `json:"id" yaml:"id" toml:"id"`
	CustomerID   string               `json:"customer_id" yaml:"customer_id" toml:"customer_id"`
	PolicyNumber string               `json:"policy_number" yaml:"policy_number" toml:"policy_number"`
	ClaimType    string               `json:"claim_type" yaml:"claim_type" toml:"claim_type"`
	Description  string               `json:"description" yaml:"description" toml:"description"`
	ClaimAmount  string               `json:"claim_amount" yaml:"claim_amount" toml:"claim_amount"`
	DocumentURLs []string             `json:"document_urls" yaml:"document_urls" toml:"document_urls"`
	Status       string               `json:"status" yaml:"status" toml:"status"`
	SupervisorID string               `json:"supervisor_id,omitempty" yaml:"supervisor_id,omitempty" toml:"supervisor_id,omitempty"`
	CreatedAt    string               `json:"created_at" yaml:"created_at" toml:"created_at"`
	UpdatedAt    string               `json:"updated_at" yaml:"updated_at" toml:"updated_at"`
	DecidedAt    string               `json:"decided_at,omitempty" yaml:"decided_at,omitempty" toml:"decided_at,omitempty"`
	Comments     []commentExportEntry `json:"comments" yaml:"comments" toml:"comments"`
}

type commentExportEntry struct {
	ID         uint64 `json:"id" yaml:"id" toml:"id"`
	AuthorID   string `json:"author_id" yaml:"author_id" toml:"author_id"`
	AuthorName string `json:"author_name" yaml:"author_name" toml:"author_name"`
	Text       string `json:"text" yaml:"text" toml:"text"`
	CreatedAt  string `json:"created_at" yaml:"created_at" toml:"created_at"`
}

func init() {
	claimsCmd.AddCommand(claimsExportCmd)

	claimsExportCmd.Flags().String("customer", "", "Customer id (approvers may omit to export all)")
	claimsExportCmd.Flags().String("status", "", "Optional status filter (PENDING|APPROVED|REJECTED)")
	claimsExportCmd.Flags().String("format", "json", "Output format: json|yaml|toml")
	claimsExportCmd.Flags().String("out", "", "Output file path (default: stdout)")
}

func buildClaimExport(items []domainclaim.Claim, exportedAt time.Time) claimExportDocument {
	out := claimExportDocument{
		ExportedAt: exportedAt.Format(time.RFC3339),
		Count:      len(items),
		Claims:     make([]claimExportItem, 0, len(items)),
	}
	for _, item := range items {
		entry := claimExportItem{
			ID:           item.ID,
			CustomerID:   item.CustomerID,
			PolicyNumber: item.PolicyNumber,
			ClaimType:    item.ClaimType,
			Description:  item.Description,
			ClaimAmount:  item.ClaimAmount.String(),
			DocumentURLs: item.DocumentURLs,
			Status:       string(item.Status),
			CreatedAt:    item.CreatedAt.UTC().Format(time.RFC3339Nano),
			UpdatedAt:    item.UpdatedAt.UTC().Format(time.RFC3339Nano),
			Comments:     make([]commentExportEntry, 0, len(item.Comments)),
		}
		if entry.DocumentURLs == nil {
			entry.DocumentURLs = []string{}
		}
		if item.SupervisorID != nil {
			entry.SupervisorID = *item.SupervisorID
		}
		if item.DecidedAt != nil {
			entry.DecidedAt = item.DecidedAt.UTC().Format(time.RFC3339Nano)
		}
		for _, comment := range item.Comments {
			entry.Comments = append(entry.Comments, commentExportEntry{
				ID:         comment.ID,
				AuthorID:   comment.AuthorID,
				AuthorName: comment.AuthorName,
				Text:       comment.Text,
				CreatedAt:  comment.CreatedAt.UTC().Format(time.RFC3339Nano),
			})
		}
		out.Claims = append(out.Claims, entry)
	}
	return out
}

func marshalClaimExport(items []domainclaim.Claim, format string, exportedAt time.Time) ([]byte, error) {
	doc := buildClaimExport(items, exportedAt)

	switch format {
	case "json":
		var buf bytes.Buffer
		encoder := json.NewEncoder(&buf)
		encoder.SetEscapeHTML(false)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(doc); err != nil {
			return nil, errs.Wrap(err, "encode claims as json")
		}
		return buf.Bytes(), nil
	case "yaml":
		var buf bytes.Buffer
		encoder := yaml.NewEncoder(&buf)
		encoder.SetIndent(2)
		if err := encoder.Encode(doc); err != nil {
			return nil, errs.Wrap(err, "encode claims as yaml")
		}
		if err := encoder.Close(); err != nil {
			return nil, errs.Wrap(err, "flush yaml encoder")
		}
		return buf.Bytes(), nil
	case "toml":
		payload, err := toml.Marshal(doc)
		if err != nil {
			return nil, errs.Wrap(err, "encode claims as toml")
		}
		return payload, nil
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
}

func resolveExportWriter(cmd *cobra.Command, outPath string) (io.Writer, func() error, error) {
	trimmed := strings.TrimSpace(outPath)
	if trimmed == "" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}

	f, err := os.Create(trimmed)
	if err != nil {
		return nil, nil, errs.Wrapf(err, "open output file %q", trimmed)
	}
	return f, f.Close, nil
}
