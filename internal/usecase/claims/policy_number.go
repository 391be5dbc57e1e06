package claims

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	domainclaim "claimflow/internal/domain/claim"
	"claimflow/internal/errs"
)

// GeneratePolicyNumber issues a number not yet used by any stored claim. It does
// not reserve the number; SubmitClaim re-checks it at write time.
func (s *Service) GeneratePolicyNumber(ctx context.Context, customerID string) (policyNumber string, err error) {
	start := time.Now()
	defer func() { s.observe(ctx, "generate_policy_number", start, err) }()

	if err := s.checkReady(ctx, false); err != nil {
		return "", err
	}

	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return "", fmt.Errorf("%w: customerId is required", domainclaim.ErrValidation)
	}

	return s.issuePolicyNumber(ctx, customerID, nil)
}

// CheckPolicyNumber reports whether a stored claim already carries policyNumber.
func (s *Service) CheckPolicyNumber(ctx context.Context, policyNumber string) (exists bool, err error) {
	start := time.Now()
	defer func() { s.observe(ctx, "check_policy_number", start, err) }()

	if err := s.checkReady(ctx, false); err != nil {
		return false, err
	}
	if err := domainclaim.ValidatePolicyNumber(policyNumber); err != nil {
		return false, err
	}

	exists, err = s.repo.PolicyNumberExists(ctx, strings.TrimSpace(policyNumber))
	if err != nil {
		return false, storeError(err)
	}
	return exists, nil
}

// issuePolicyNumber draws candidates until one is free and, when use is set,
// use accepts it. use returning ErrDuplicatePolicyNumber means another writer
// took the candidate first, which spends one attempt.
func (s *Service) issuePolicyNumber(ctx context.Context, customerID string, use func(ctx context.Context, candidate string) error) (string, error) {
	attempts := 0
	for attempts < s.maxAttempts {
		attempts++
		if err := ctx.Err(); err != nil {
			return "", errs.Wrap(err, "check context")
		}

		candidate, err := domainclaim.NewPolicyNumber(s.random, customerID, s.now())
		if err != nil {
			return "", errs.Wrap(err, "draw policy number")
		}

		exists, err := s.repo.PolicyNumberExists(ctx, candidate)
		if err != nil {
			return "", storeError(err)
		}
		if exists {
			continue
		}

		if use != nil {
			if err := use(ctx, candidate); err != nil {
				if errors.Is(err, domainclaim.ErrDuplicatePolicyNumber) {
					continue
				}
				return "", err
			}
		}

		if s.metrics != nil {
			s.metrics.PolicyNumberAttempts(ctx, attempts, false)
		}
		return candidate, nil
	}

	if s.metrics != nil {
		s.metrics.PolicyNumberAttempts(ctx, attempts, true)
	}
	return "", errs.Transient(fmt.Errorf(
		"%w: no free policy number for customer %q after %d attempts",
		domainclaim.ErrGenerationExhausted, customerID, attempts,
	))
}
