package ports

import (
	"context"
	"time"

	domainclaim "claimflow/internal/domain/claim"
)

type ClaimFilter struct {
	CustomerID string
	Status     domainclaim.Status
}

type CommentCreate struct {
	ClaimID    string
	AuthorID   string
	AuthorName string
	Text       string
	CreatedAt  time.Time
}

// StatusChange is a compare-and-set on the stored status. The update applies
// only while the row still holds Expected.
type StatusChange struct {
	ClaimID      string
	Expected     domainclaim.Status
	Next         domainclaim.Status
	SupervisorID string
	At           time.Time
}

type ClaimReadRepository interface {
	GetClaim(ctx context.Context, claimID string) (domainclaim.Claim, error)
	ListClaims(ctx context.Context, filter ClaimFilter) ([]domainclaim.Claim, error)
	ListComments(ctx context.Context, claimID string) ([]domainclaim.Comment, error)
	PolicyNumberExists(ctx context.Context, policyNumber string) (bool, error)
}

// ClaimRepository returns errors matching the domain claim sentinels:
// ErrNotFound, ErrDuplicatePolicyNumber and ErrInvalidTransition.
type ClaimRepository interface {
	ClaimReadRepository
	CreateClaim(ctx context.Context, claim domainclaim.Claim) (domainclaim.Claim, error)
	AppendComment(ctx context.Context, input CommentCreate) (domainclaim.Comment, error)
	CompareAndSetStatus(ctx context.Context, change StatusChange) error
	AssignSupervisor(ctx context.Context, claimID string, supervisorID string, at time.Time) error
}
