package claims

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"claimflow/internal/bootstrap/logging"
	domainclaim "claimflow/internal/domain/claim"
	"claimflow/internal/ports"
)

// SubmitClaim files a PENDING claim for the calling customer. Without a policy
// number one is generated; a supplied number that is taken fails with
// ErrDuplicatePolicyNumber, while a generated one that loses a race is redrawn.
func (s *Service) SubmitClaim(ctx context.Context, actor domainclaim.Principal, input SubmitClaimInput) (created domainclaim.Claim, err error) {
	start := time.Now()
	defer func() { s.observe(ctx, "submit_claim", start, err) }()

	if err := s.checkReady(ctx, true); err != nil {
		return domainclaim.Claim{}, err
	}

	draft := domainclaim.Draft{
		CustomerID:   input.CustomerID,
		PolicyNumber: input.PolicyNumber,
		ClaimType:    input.ClaimType,
		Description:  input.Description,
		ClaimAmount:  input.ClaimAmount,
		DocumentURLs: input.DocumentURLs,
	}.Normalize()
	if draft.CustomerID == "" && actor.Role == domainclaim.RoleCustomer {
		draft.CustomerID = actor.ID
	}

	if err := domainclaim.EnsureSubmitter(actor, draft.CustomerID); err != nil {
		return domainclaim.Claim{}, err
	}
	if err := draft.Validate(); err != nil {
		return domainclaim.Claim{}, err
	}

	create := func(ctx context.Context, policyNumber string) error {
		claim, err := domainclaim.NewPending(s.newID(), draft, policyNumber, s.now())
		if err != nil {
			return err
		}
		return s.uow.WithTx(ctx, func(txCtx context.Context) error {
			item, err := s.repo.CreateClaim(txCtx, claim)
			if err != nil {
				return err
			}
			created = item
			return nil
		})
	}

	if draft.PolicyNumber != "" {
		if err := domainclaim.ValidatePolicyNumber(draft.PolicyNumber); err != nil {
			return domainclaim.Claim{}, err
		}
		if err := create(ctx, draft.PolicyNumber); err != nil {
			return domainclaim.Claim{}, storeError(err)
		}
	} else {
		if _, err := s.issuePolicyNumber(ctx, draft.CustomerID, create); err != nil {
			if errors.Is(err, domainclaim.ErrGenerationExhausted) {
				logging.Warn(
					logging.WithComponent(ctx, "usecase.claims"),
					"policy number generation exhausted",
					slog.String("customer_id", draft.CustomerID),
				)
			}
			return domainclaim.Claim{}, storeError(err)
		}
	}

	s.invalidateBestEffort(ctx, created)
	s.publishBestEffort(ctx, newClaimEvent(ports.ClaimSubmitted, created, actor.ID, created.CreatedAt))
	return created, nil
}
