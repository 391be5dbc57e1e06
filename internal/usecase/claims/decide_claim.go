package claims

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"claimflow/internal/bootstrap/logging"
	domainclaim "claimflow/internal/domain/claim"
	"claimflow/internal/ports"
)

// Decide approves or rejects a PENDING claim. The status change and the
// approver's comment commit together; a concurrent decision on the same claim
// fails with ErrInvalidTransition.
func (s *Service) Decide(ctx context.Context, actor domainclaim.Principal, input DecideInput) (decided domainclaim.Claim, err error) {
	start := time.Now()
	defer func() { s.observe(ctx, "decide", start, err) }()

	if err := s.checkReady(ctx, true); err != nil {
		return domainclaim.Claim{}, err
	}
	if err := domainclaim.EnsureApprover(actor, "decide claims"); err != nil {
		return domainclaim.Claim{}, err
	}

	claimID, err := requireClaimID(input.ClaimID)
	if err != nil {
		return domainclaim.Claim{}, err
	}
	decision, err := domainclaim.ParseDecision(input.Decision)
	if err != nil {
		return domainclaim.Claim{}, err
	}
	comments := strings.TrimSpace(input.Comments)

	now := s.now()
	if err := s.uow.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.CompareAndSetStatus(txCtx, ports.StatusChange{
			ClaimID:      claimID,
			Expected:     domainclaim.StatusPending,
			Next:         decision,
			SupervisorID: actor.ID,
			At:           now,
		}); err != nil {
			return err
		}

		if comments != "" {
			if _, err := s.repo.AppendComment(txCtx, ports.CommentCreate{
				ClaimID:    claimID,
				AuthorID:   actor.ID,
				AuthorName: actor.DisplayName(),
				Text:       comments,
				CreatedAt:  now,
			}); err != nil {
				return err
			}
		}

		decided, err = s.repo.GetClaim(txCtx, claimID)
		return err
	}); err != nil {
		return domainclaim.Claim{}, storeError(err)
	}

	logging.Info(
		logging.WithComponent(ctx, "usecase.claims"),
		"claim decided",
		slog.String("claim_id", claimID),
		slog.String("status", string(decision)),
		slog.String("supervisor_id", actor.ID),
	)

	s.invalidateBestEffort(ctx, decided)
	s.publishBestEffort(ctx, newClaimEvent(ports.ClaimDecided, decided, actor.ID, now))
	return decided, nil
}
