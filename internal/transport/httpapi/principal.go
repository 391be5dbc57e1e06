package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"claimflow/internal/bootstrap/logging"
	domainclaim "claimflow/internal/domain/claim"
)

// Identity is asserted by an upstream gateway; this service does not verify it.
const (
	HeaderActorID   = "X-Actor-Id"
	HeaderActorName = "X-Actor-Name"
	HeaderActorRole = "X-Actor-Role"
)

type principalKey struct{}

func principalFromRequest(r *http.Request) (domainclaim.Principal, error) {
	return domainclaim.NewPrincipal(
		r.Header.Get(HeaderActorID),
		r.Header.Get(HeaderActorName),
		r.Header.Get(HeaderActorRole),
	)
}

// requirePrincipal rejects requests without a usable asserted identity.
func requirePrincipal(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.TrimSpace(r.Header.Get(HeaderActorID)) == "" {
			writeError(w, http.StatusUnauthorized, "missing "+HeaderActorID)
			return
		}
		principal, err := principalFromRequest(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		ctx := context.WithValue(r.Context(), principalKey{}, principal)
		ctx = logging.WithRequest(ctx, middleware.GetReqID(ctx), principal.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func principalFrom(ctx context.Context) domainclaim.Principal {
	principal, _ := ctx.Value(principalKey{}).(domainclaim.Principal)
	return principal
}
