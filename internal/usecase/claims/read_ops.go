package claims

import (
	"context"
	"fmt"
	"strings"
	"time"

	domainclaim "claimflow/internal/domain/claim"
	"claimflow/internal/ports"
)

// GetClaim returns the full snapshot, comments included, to its owner or any approver.
func (s *Service) GetClaim(ctx context.Context, actor domainclaim.Principal, claimID string) (claim domainclaim.Claim, err error) {
	start := time.Now()
	defer func() { s.observe(ctx, "get_claim", start, err) }()

	if err := s.checkReady(ctx, false); err != nil {
		return domainclaim.Claim{}, err
	}

	claimID, err = requireClaimID(claimID)
	if err != nil {
		return domainclaim.Claim{}, err
	}

	claim, err = s.loadClaim(ctx, claimID)
	if err != nil {
		return domainclaim.Claim{}, err
	}
	if err := domainclaim.EnsureAccess(actor, claim.ID, claim.CustomerID); err != nil {
		return domainclaim.Claim{}, err
	}
	return claim, nil
}

// ListClaimsByCustomer lets a customer list their own claims and an approver list anyone's.
func (s *Service) ListClaimsByCustomer(ctx context.Context, actor domainclaim.Principal, customerID string) (items []domainclaim.Claim, err error) {
	start := time.Now()
	defer func() { s.observe(ctx, "list_claims_by_customer", start, err) }()

	if err := s.checkReady(ctx, false); err != nil {
		return nil, err
	}

	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return nil, fmt.Errorf("%w: customerId is required", domainclaim.ErrValidation)
	}
	if err := domainclaim.EnsureCustomerScope(actor, customerID); err != nil {
		return nil, err
	}

	return s.listClaims(ctx, cacheCustomerClaimsKey(customerID), ports.ClaimFilter{CustomerID: customerID})
}

// ListAllClaims is the approver review queue.
func (s *Service) ListAllClaims(ctx context.Context, actor domainclaim.Principal) (items []domainclaim.Claim, err error) {
	start := time.Now()
	defer func() { s.observe(ctx, "list_all_claims", start, err) }()

	if err := s.checkReady(ctx, false); err != nil {
		return nil, err
	}
	if err := domainclaim.EnsureApprover(actor, "list all claims"); err != nil {
		return nil, err
	}

	return s.listClaims(ctx, cacheAllClaimsKey, ports.ClaimFilter{})
}

// ListComments returns the thread in insertion order; an empty thread is an empty slice.
func (s *Service) ListComments(ctx context.Context, actor domainclaim.Principal, claimID string) ([]domainclaim.Comment, error) {
	claim, err := s.GetClaim(ctx, actor, claimID)
	if err != nil {
		return nil, err
	}
	return claim.Comments, nil
}

func (s *Service) loadClaim(ctx context.Context, claimID string) (domainclaim.Claim, error) {
	key := cacheClaimKey(claimID)
	if claim, ok := loadCached[domainclaim.Claim](ctx, s, key); ok {
		return claim, nil
	}

	claim, err := s.repo.GetClaim(ctx, claimID)
	if err != nil {
		return domainclaim.Claim{}, storeError(err)
	}
	storeCached(ctx, s, key, claim)
	return claim, nil
}

func (s *Service) listClaims(ctx context.Context, key string, filter ports.ClaimFilter) ([]domainclaim.Claim, error) {
	if items, ok := loadCached[[]domainclaim.Claim](ctx, s, key); ok {
		return items, nil
	}

	items, err := s.repo.ListClaims(ctx, filter)
	if err != nil {
		return nil, storeError(err)
	}
	storeCached(ctx, s, key, items)
	return items, nil
}

func requireClaimID(claimID string) (string, error) {
	trimmed := strings.TrimSpace(claimID)
	if trimmed == "" {
		return "", fmt.Errorf("%w: claimId is required", domainclaim.ErrValidation)
	}
	return trimmed, nil
}
