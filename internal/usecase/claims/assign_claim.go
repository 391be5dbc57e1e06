package claims

import (
	"context"
	"fmt"
	"strings"
	"time"

	domainclaim "claimflow/internal/domain/claim"
	"claimflow/internal/ports"
)

// Assign sets the reviewing approver of a PENDING claim. An empty ApproverID
// assigns the caller.
func (s *Service) Assign(ctx context.Context, actor domainclaim.Principal, input AssignInput) (assigned domainclaim.Claim, err error) {
	start := time.Now()
	defer func() { s.observe(ctx, "assign", start, err) }()

	if err := s.checkReady(ctx, true); err != nil {
		return domainclaim.Claim{}, err
	}
	if err := domainclaim.EnsureApprover(actor, "assign claims"); err != nil {
		return domainclaim.Claim{}, err
	}

	claimID, err := requireClaimID(input.ClaimID)
	if err != nil {
		return domainclaim.Claim{}, err
	}
	approverID := strings.TrimSpace(input.ApproverID)
	if approverID == "" {
		approverID = actor.ID
	}
	if approverID == "" {
		return domainclaim.Claim{}, fmt.Errorf("%w: supervisorId is required", domainclaim.ErrValidation)
	}

	now := s.now()
	if err := s.uow.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.AssignSupervisor(txCtx, claimID, approverID, now); err != nil {
			return err
		}
		assigned, err = s.repo.GetClaim(txCtx, claimID)
		return err
	}); err != nil {
		return domainclaim.Claim{}, storeError(err)
	}

	s.invalidateBestEffort(ctx, assigned)
	s.publishBestEffort(ctx, newClaimEvent(ports.ClaimAssigned, assigned, actor.ID, now))
	return assigned, nil
}
