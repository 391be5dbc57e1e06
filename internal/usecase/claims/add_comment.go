package claims

import (
	"context"
	"time"

	domainclaim "claimflow/internal/domain/claim"
	"claimflow/internal/ports"
)

// AddComment appends to the audit thread. Comments are accepted in every status.
func (s *Service) AddComment(ctx context.Context, actor domainclaim.Principal, input AddCommentInput) (updated domainclaim.Claim, err error) {
	start := time.Now()
	defer func() { s.observe(ctx, "add_comment", start, err) }()

	if err := s.checkReady(ctx, true); err != nil {
		return domainclaim.Claim{}, err
	}

	claimID, err := requireClaimID(input.ClaimID)
	if err != nil {
		return domainclaim.Claim{}, err
	}
	text, err := domainclaim.NormalizeCommentText(input.Text)
	if err != nil {
		return domainclaim.Claim{}, err
	}

	now := s.now()
	if err := s.uow.WithTx(ctx, func(txCtx context.Context) error {
		claim, err := s.repo.GetClaim(txCtx, claimID)
		if err != nil {
			return err
		}
		if err := domainclaim.EnsureAccess(actor, claim.ID, claim.CustomerID); err != nil {
			return err
		}

		if _, err := s.repo.AppendComment(txCtx, ports.CommentCreate{
			ClaimID:    claimID,
			AuthorID:   actor.ID,
			AuthorName: actor.DisplayName(),
			Text:       text,
			CreatedAt:  now,
		}); err != nil {
			return err
		}

		updated, err = s.repo.GetClaim(txCtx, claimID)
		return err
	}); err != nil {
		return domainclaim.Claim{}, storeError(err)
	}

	s.invalidateBestEffort(ctx, updated)
	s.publishBestEffort(ctx, newClaimEvent(ports.ClaimCommented, updated, actor.ID, now))
	return updated, nil
}
