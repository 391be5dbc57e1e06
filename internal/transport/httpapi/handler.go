package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	domainclaim "claimflow/internal/domain/claim"
	"claimflow/internal/usecase/claims"
)

const maxBodyBytes = 1 << 20

// ClaimService is the part of claims.Service the HTTP surface drives.
type ClaimService interface {
	SubmitClaim(context.Context, domainclaim.Principal, claims.SubmitClaimInput) (domainclaim.Claim, error)
	GetClaim(context.Context, domainclaim.Principal, string) (domainclaim.Claim, error)
	ListClaimsByCustomer(context.Context, domainclaim.Principal, string) ([]domainclaim.Claim, error)
	ListAllClaims(context.Context, domainclaim.Principal) ([]domainclaim.Claim, error)
	AddComment(context.Context, domainclaim.Principal, claims.AddCommentInput) (domainclaim.Claim, error)
	ListComments(context.Context, domainclaim.Principal, string) ([]domainclaim.Comment, error)
	Decide(context.Context, domainclaim.Principal, claims.DecideInput) (domainclaim.Claim, error)
	Assign(context.Context, domainclaim.Principal, claims.AssignInput) (domainclaim.Claim, error)
	GeneratePolicyNumber(context.Context, string) (string, error)
	CheckPolicyNumber(context.Context, string) (bool, error)
	ReadStaleness() time.Duration
}

type Options struct {
	RequestTimeout      time.Duration
	PolicyRatePerSecond float64
	PolicyRateBurst     int
}

type handler struct {
	svc          ClaimService
	policyLimit  *keyedLimiter
	cacheControl string
}

func NewHandler(svc ClaimService, opts Options) http.Handler {
	h := &handler{
		svc:         svc,
		policyLimit: newKeyedLimiter(opts.PolicyRatePerSecond, opts.PolicyRateBurst),
	}
	if svc != nil {
		h.cacheControl = fmt.Sprintf("private, max-age=%d", int(svc.ReadStaleness()/time.Second))
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	if opts.RequestTimeout > 0 {
		r.Use(middleware.Timeout(opts.RequestTimeout))
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(h.requireService)
		r.Use(requirePrincipal)
		r.Use(h.readCaching)

		r.Route("/claims", func(r chi.Router) {
			r.Post("/", h.submitClaim)
			r.Get("/", h.listAllClaims)
			r.Get("/customer/{customerId}", h.listClaimsByCustomer)
			r.Get("/{id}", h.getClaim)
			r.Post("/{id}/comments", h.addComment)
			r.Get("/{id}/comments", h.listComments)
		})

		r.Route("/workflow", func(r chi.Router) {
			r.Get("/claims/{id}", h.getClaim)
			r.Post("/approve", h.decide)
			r.Post("/claims/{id}/assign", h.assign)
		})

		r.Route("/policies", func(r chi.Router) {
			r.Get("/generate", h.generatePolicyNumber)
			r.Get("/check", h.checkPolicyNumber)
		})
	})

	return r
}

func (h *handler) requireService(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.svc == nil {
			writeError(w, http.StatusInternalServerError, "claim service is not configured")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// readCaching advertises how stale a GET response may be.
func (h *handler) readCaching(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet && h.cacheControl != "" {
			w.Header().Set("Cache-Control", h.cacheControl)
		}
		next.ServeHTTP(w, r)
	})
}

func (h *handler) submitClaim(w http.ResponseWriter, r *http.Request) {
	var req submitClaimRequest
	if !decodeBody(w, r, &req) {
		return
	}

	claim, err := h.svc.SubmitClaim(r.Context(), principalFrom(r.Context()), claims.SubmitClaimInput{
		CustomerID:   req.CustomerID,
		PolicyNumber: req.PolicyNumber,
		ClaimType:    req.ClaimType,
		Description:  req.Description,
		ClaimAmount:  req.ClaimAmount,
		DocumentURLs: req.DocumentURLs,
	})
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toClaimResponse(claim))
}

func (h *handler) getClaim(w http.ResponseWriter, r *http.Request) {
	claim, err := h.svc.GetClaim(r.Context(), principalFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, toClaimResponse(claim))
}

func (h *handler) listAllClaims(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.ListAllClaims(r.Context(), principalFrom(r.Context()))
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, toClaimResponses(items))
}

func (h *handler) listClaimsByCustomer(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.ListClaimsByCustomer(r.Context(), principalFrom(r.Context()), chi.URLParam(r, "customerId"))
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, toClaimResponses(items))
}

func (h *handler) addComment(w http.ResponseWriter, r *http.Request) {
	var req addCommentRequest
	if !decodeBody(w, r, &req) {
		return
	}

	claim, err := h.svc.AddComment(r.Context(), principalFrom(r.Context()), claims.AddCommentInput{
		ClaimID: chi.URLParam(r, "id"),
		Text:    req.Text,
	})
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toClaimResponse(claim))
}

func (h *handler) listComments(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.ListComments(r.Context(), principalFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCommentResponses(items))
}

func (h *handler) decide(w http.ResponseWriter, r *http.Request) {
	var req decideRequest
	if !decodeBody(w, r, &req) {
		return
	}

	actor := principalFrom(r.Context())
	if supervisorID := strings.TrimSpace(req.SupervisorID); supervisorID != "" && supervisorID != actor.ID {
		writeError(w, http.StatusForbidden, "supervisorId does not match the calling approver")
		return
	}

	claim, err := h.svc.Decide(r.Context(), actor, claims.DecideInput{
		ClaimID:  req.ClaimID,
		Decision: req.Decision,
		Comments: req.Comments,
	})
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, toClaimResponse(claim))
}

func (h *handler) assign(w http.ResponseWriter, r *http.Request) {
	claim, err := h.svc.Assign(r.Context(), principalFrom(r.Context()), claims.AssignInput{
		ClaimID:    chi.URLParam(r, "id"),
		ApproverID: r.URL.Query().Get("supervisorId"),
	})
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, toClaimResponse(claim))
}

// generatePolicyNumber answers with a fresh candidate every call, so the
// response must never be served from an HTTP cache.
func (h *handler) generatePolicyNumber(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")

	customerID := strings.TrimSpace(r.URL.Query().Get("customerId"))
	if customerID == "" {
		writeError(w, http.StatusBadRequest, "customerId is required")
		return
	}

	actor := principalFrom(r.Context())
	if !actor.CanAccess(customerID) {
		writeError(w, http.StatusForbidden, "cannot generate policy numbers for another customer")
		return
	}
	if !h.policyLimit.Allow(customerID) {
		w.Header().Set("Retry-After", strconv.Itoa(1))
		writeError(w, http.StatusTooManyRequests, "policy number rate limit exceeded")
		return
	}

	policyNumber, err := h.svc.GeneratePolicyNumber(r.Context(), customerID)
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, policyNumberResponse{PolicyNumber: policyNumber, CustomerID: customerID})
}

func (h *handler) checkPolicyNumber(w http.ResponseWriter, r *http.Request) {
	policyNumber := strings.TrimSpace(r.URL.Query().Get("policyNumber"))
	if policyNumber == "" {
		writeError(w, http.StatusBadRequest, "policyNumber is required")
		return
	}

	exists, err := h.svc.CheckPolicyNumber(r.Context(), policyNumber)
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, policyCheckResponse{PolicyNumber: policyNumber, Exists: exists})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}
