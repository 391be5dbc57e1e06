package claim

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Claim is a full snapshot, comments included, as returned by every read.
type Claim struct {
	ID           string
	CustomerID   string
	PolicyNumber string
	ClaimType    string
	Description  string
	ClaimAmount  decimal.Decimal
	DocumentURLs []string
	Status       Status
	SupervisorID *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	DecidedAt    *time.Time
	Comments     []Comment
}

type Comment struct {
	ID         uint64
	ClaimID    string
	AuthorID   string
	AuthorName string
	Text       string
	CreatedAt  time.Time
}

// Draft is what a customer supplies on submission. PolicyNumber may be empty.
type Draft struct {
	CustomerID   string
	PolicyNumber string
	ClaimType    string
	Description  string
	ClaimAmount  decimal.Decimal
	DocumentURLs []string
}

// Normalize trims text fields and drops blank document urls, keeping order.
func (d Draft) Normalize() Draft {
	out := Draft{
		CustomerID:   strings.TrimSpace(d.CustomerID),
		PolicyNumber: strings.TrimSpace(d.PolicyNumber),
		ClaimType:    strings.TrimSpace(d.ClaimType),
		Description:  strings.TrimSpace(d.Description),
		ClaimAmount:  d.ClaimAmount,
	}
	for _, raw := range d.DocumentURLs {
		if url := strings.TrimSpace(raw); url != "" {
			out.DocumentURLs = append(out.DocumentURLs, url)
		}
	}
	return out
}

// Validate checks a normalized draft. The policy number is checked separately
// because the engine may generate it.
func (d Draft) Validate() error {
	if d.CustomerID == "" {
		return fmt.Errorf("%w: customerId is required", ErrValidation)
	}
	if d.ClaimType == "" {
		return fmt.Errorf("%w: claimType is required", ErrValidation)
	}
	if d.Description == "" {
		return fmt.Errorf("%w: description is required", ErrValidation)
	}
	if d.ClaimAmount.IsNegative() {
		return fmt.Errorf("%w: claimAmount must not be negative, got %s", ErrValidation, d.ClaimAmount.String())
	}
	return nil
}

// NewPending builds the initial snapshot for a validated draft.
func NewPending(id string, d Draft, policyNumber string, now time.Time) (Claim, error) {
	if strings.TrimSpace(id) == "" {
		return Claim{}, fmt.Errorf("%w: claim id is required", ErrValidation)
	}
	if err := d.Validate(); err != nil {
		return Claim{}, err
	}
	if strings.TrimSpace(policyNumber) == "" {
		return Claim{}, fmt.Errorf("%w: policyNumber is required", ErrValidation)
	}

	docs := make([]string, len(d.DocumentURLs))
	copy(docs, d.DocumentURLs)

	return Claim{
		ID:           id,
		CustomerID:   d.CustomerID,
		PolicyNumber: policyNumber,
		ClaimType:    d.ClaimType,
		Description:  d.Description,
		ClaimAmount:  d.ClaimAmount,
		DocumentURLs: docs,
		Status:       StatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
		Comments:     []Comment{},
	}, nil
}

// NormalizeCommentText rejects blank comments.
func NormalizeCommentText(text string) (string, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", fmt.Errorf("%w: comment text is required", ErrValidation)
	}
	return trimmed, nil
}
