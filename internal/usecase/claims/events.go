package claims

import (
	"time"

	"github.com/google/uuid"

	domainclaim "claimflow/internal/domain/claim"
	"claimflow/internal/ports"
)

func newClaimEvent(eventType ports.ClaimEventType, claim domainclaim.Claim, actorID string, at time.Time) ports.ClaimEvent {
	return ports.ClaimEvent{
		EventID:    uuid.NewString(),
		Type:       eventType,
		ClaimID:    claim.ID,
		CustomerID: claim.CustomerID,
		Status:     string(claim.Status),
		ActorID:    actorID,
		At:         at.UTC(),
	}
}
