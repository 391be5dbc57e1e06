package claims

import (
	"context"
	"crypto/rand"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"

	"claimflow/internal/bootstrap/logging"
	domainclaim "claimflow/internal/domain/claim"
	"claimflow/internal/errs"
	"claimflow/internal/ports"
)

const (
	DefaultMaxAttempts   = 10
	DefaultReadStaleness = 2 * time.Second
)

var (
	errRepoRequired = errors.New("claim repository is required")
	errUoWRequired  = errors.New("claim unit of work is required")
)

type Service struct {
	repo          ports.ClaimRepository
	uow           ports.UnitOfWork
	cache         ports.Cache
	publisher     ports.EventPublisher
	metrics       ports.WorkflowMetrics
	maxAttempts   int
	readStaleness time.Duration
	random        io.Reader
	now           func() time.Time
	newID         func() string
}

// Options tunes the engine. Zero values fall back to defaults.
type Options struct {
	MaxAttempts   int
	ReadStaleness time.Duration
	Publisher     ports.EventPublisher
	Metrics       ports.WorkflowMetrics
	Random        io.Reader
	Now           func() time.Time
	NewID         func() string
}

// NewService wires claim usecases with repository, transaction boundary and optional cache.
func NewService(repo ports.ClaimRepository, uow ports.UnitOfWork, cache ports.Cache, opts Options) *Service {
	s := &Service{
		repo:          repo,
		uow:           uow,
		cache:         cache,
		publisher:     opts.Publisher,
		metrics:       opts.Metrics,
		maxAttempts:   opts.MaxAttempts,
		readStaleness: opts.ReadStaleness,
		random:        opts.Random,
		now:           opts.Now,
		newID:         opts.NewID,
	}
	if s.maxAttempts <= 0 {
		s.maxAttempts = DefaultMaxAttempts
	}
	if s.readStaleness <= 0 {
		s.readStaleness = DefaultReadStaleness
	}
	if s.random == nil {
		s.random = rand.Reader
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	if s.newID == nil {
		s.newID = func() string { return ulid.Make().String() }
	}
	return s
}

// ReadStaleness is the longest a read may lag behind a committed write.
func (s *Service) ReadStaleness() time.Duration {
	return s.readStaleness
}

type SubmitClaimInput struct {
	CustomerID   string
	PolicyNumber string
	ClaimType    string
	Description  string
	ClaimAmount  decimal.Decimal
	DocumentURLs []string
}

type AddCommentInput struct {
	ClaimID string
	Text    string
}

type DecideInput struct {
	ClaimID  string
	Decision string
	Comments string
}

type AssignInput struct {
	ClaimID    string
	ApproverID string
}

func (s *Service) checkReady(ctx context.Context, needUoW bool) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, "check context")
	}
	if s.repo == nil {
		return errRepoRequired
	}
	if needUoW && s.uow == nil {
		return errUoWRequired
	}
	return nil
}

func (s *Service) observe(ctx context.Context, op string, start time.Time, err error) {
	if s.metrics == nil || ctx == nil {
		return
	}
	s.metrics.Observe(ctx, op, start, err)
}

// publishBestEffort runs after commit; a failed publish is logged, never returned.
func (s *Service) publishBestEffort(ctx context.Context, event ports.ClaimEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		logging.Warn(
			logging.WithComponent(ctx, "usecase.claims"),
			"publish claim event failed",
			slog.String("type", string(event.Type)),
			slog.String("claim_id", event.ClaimID),
			slog.Any("err", errs.Loggable(err)),
		)
	}
}

// storeError marks infrastructure failures as retryable while leaving domain
// outcomes untouched.
func storeError(err error) error {
	if err == nil {
		return nil
	}
	for _, sentinel := range []error{
		domainclaim.ErrValidation,
		domainclaim.ErrNotFound,
		domainclaim.ErrForbidden,
		domainclaim.ErrInvalidTransition,
		domainclaim.ErrDuplicatePolicyNumber,
		domainclaim.ErrGenerationExhausted,
		context.Canceled,
		context.DeadlineExceeded,
	} {
		if errors.Is(err, sentinel) {
			return err
		}
	}
	return errs.Transient(err)
}
