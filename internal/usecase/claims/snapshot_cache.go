package claims

import (
	"context"
	"encoding/json"
	"log/slog"

	"claimflow/internal/bootstrap/logging"
	domainclaim "claimflow/internal/domain/claim"
	"claimflow/internal/errs"
)

// Snapshots live for at most readStaleness. Writes also drop the keys they
// touch, so the TTL only bounds what another process or a racing read left behind.

func cacheClaimKey(claimID string) string {
	return "claim:" + claimID
}

func cacheCustomerClaimsKey(customerID string) string {
	return "claims:customer:" + customerID
}

const cacheAllClaimsKey = "claims:all"

func loadCached[T any](ctx context.Context, s *Service, key string) (T, bool) {
	var zero T
	if s.cache == nil {
		return zero, false
	}

	raw, found, err := s.cache.Get(ctx, key)
	if err != nil {
		logCacheError(ctx, "get", key, err)
		return zero, false
	}
	if !found {
		return zero, false
	}

	var value T
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		logCacheError(ctx, "decode", key, err)
		return zero, false
	}
	return value, true
}

func storeCached(ctx context.Context, s *Service, key string, value any) {
	if s.cache == nil {
		return
	}

	raw, err := json.Marshal(value)
	if err != nil {
		logCacheError(ctx, "encode", key, err)
		return
	}
	if err := s.cache.Set(ctx, key, string(raw), s.readStaleness); err != nil {
		logCacheError(ctx, "set", key, err)
	}
}

// invalidateBestEffort drops every snapshot that may contain claim.
func (s *Service) invalidateBestEffort(ctx context.Context, claim domainclaim.Claim) {
	if s.cache == nil {
		return
	}
	for _, key := range []string{
		cacheClaimKey(claim.ID),
		cacheCustomerClaimsKey(claim.CustomerID),
		cacheAllClaimsKey,
	} {
		if err := s.cache.Delete(ctx, key); err != nil {
			logCacheError(ctx, "delete", key, err)
		}
	}
}

func logCacheError(ctx context.Context, op string, key string, err error) {
	logging.Warn(
		logging.WithComponent(ctx, "usecase.claims"),
		"claim snapshot cache "+op+" failed",
		slog.String("key", key),
		slog.Any("err", errs.Loggable(err)),
	)
}
