package claims

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"regexp"
	"sync"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	domainclaim "claimflow/internal/domain/claim"
	"claimflow/internal/errs"
	"claimflow/internal/infrastructure/persistence/sqlite/model"
	sqliterepo "claimflow/internal/infrastructure/persistence/sqlite/repository"
	sqliteuow "claimflow/internal/infrastructure/persistence/sqlite/uow"
	"claimflow/internal/ports"
)

var (
	customerA = domainclaim.Principal{ID: "CUST001", Name: "Customer", Role: domainclaim.RoleCustomer}
	customerB = domainclaim.Principal{ID: "CUST002", Name: "Other", Role: domainclaim.RoleCustomer}
	approver  = domainclaim.Principal{ID: "SUP001", Name: "Sam Supervisor", Role: domainclaim.RoleApprover}
	approver2 = domainclaim.Principal{ID: "SUP002", Role: domainclaim.RoleApprover}

	generatedPolicyPattern = regexp.MustCompile(`^POL-CUST001-\d{8}-[0-9A-Z]{8}$`)
)

type testCache struct {
	mu   sync.Mutex
	data map[string]string
}

func newTestCache() *testCache {
	return &testCache{
		data: make(map[string]string),
	}
}

func (c *testCache) Get(_ context.Context, key string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	return v, ok, nil
}

func (c *testCache) Set(_ context.Context, key string, value string, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

func (c *testCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []ports.ClaimEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, event ports.ClaimEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) types() []ports.ClaimEventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]ports.ClaimEventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	return openTestDBWithConns(t, 1)
}

// openTestDBWithConns lets concurrent transactions meet at the database
// instead of queueing on a single pooled connection.
func openTestDBWithConns(t *testing.T, maxConns int) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "claims.sqlite") + "?_txlock=immediate&_pragma=busy_timeout(5000)"
	db, err := gorm.Open(gormsqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(maxConns)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	if err := db.AutoMigrate(model.All()...); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}
	return db
}

func setupServiceWithOptions(t *testing.T, opts Options) (*Service, *testCache, ports.ClaimRepository) {
	t.Helper()

	db := openTestDB(t)
	cache := newTestCache()
	repo := sqliterepo.NewClaimRepository(db)
	uow := sqliteuow.NewUnitOfWork(db)
	return NewService(repo, uow, cache, opts), cache, repo
}

func setupService(t *testing.T) *Service {
	t.Helper()
	svc, _, _ := setupServiceWithOptions(t, Options{})
	return svc
}

func submitInput(customerID string) SubmitClaimInput {
	return SubmitClaimInput{
		CustomerID:   customerID,
		ClaimType:    "AUTO",
		Description:  "rear bumper damage",
		ClaimAmount:  decimal.RequireFromString("1500.50"),
		DocumentURLs: []string{"https://docs.example/photo-1.jpg"},
	}
}

func mustSubmit(t *testing.T, svc *Service, actor domainclaim.Principal) domainclaim.Claim {
	t.Helper()

	claim, err := svc.SubmitClaim(context.Background(), actor, submitInput(actor.ID))
	if err != nil {
		t.Fatalf("SubmitClaim() error = %v", err)
	}
	return claim
}

func TestSubmitClaimCreatesPendingClaimWithGeneratedPolicyNumber(t *testing.T) {
	svc := setupService(t)

	claim := mustSubmit(t, svc, customerA)

	if claim.Status != domainclaim.StatusPending {
		t.Fatalf("Status = %s, want PENDING", claim.Status)
	}
	if !generatedPolicyPattern.MatchString(claim.PolicyNumber) {
		t.Fatalf("PolicyNumber = %q, unexpected format", claim.PolicyNumber)
	}
	if claim.SupervisorID != nil {
		t.Fatalf("SupervisorID = %q, want nil", *claim.SupervisorID)
	}
	if claim.Comments == nil || len(claim.Comments) != 0 {
		t.Fatalf("Comments = %#v, want empty thread", claim.Comments)
	}
	if claim.ID == "" || claim.CustomerID != "CUST001" {
		t.Fatalf("claim = %+v", claim)
	}
}

func TestSubmitClaimAuthorizationAndValidation(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	if _, err := svc.SubmitClaim(ctx, customerB, submitInput("CUST001")); !errors.Is(err, domainclaim.ErrForbidden) {
		t.Fatalf("SubmitClaim(other customer) error = %v, want ErrForbidden", err)
	}
	if _, err := svc.SubmitClaim(ctx, approver, submitInput("CUST001")); !errors.Is(err, domainclaim.ErrForbidden) {
		t.Fatalf("SubmitClaim(approver) error = %v, want ErrForbidden", err)
	}

	negative := submitInput("CUST001")
	negative.ClaimAmount = decimal.NewFromInt(-5)
	if _, err := svc.SubmitClaim(ctx, customerA, negative); !errors.Is(err, domainclaim.ErrValidation) {
		t.Fatalf("SubmitClaim(negative) error = %v, want ErrValidation", err)
	}

	noDescription := submitInput("CUST001")
	noDescription.Description = " "
	if _, err := svc.SubmitClaim(ctx, customerA, noDescription); !errors.Is(err, domainclaim.ErrValidation) {
		t.Fatalf("SubmitClaim(no description) error = %v, want ErrValidation", err)
	}

	huge := submitInput("CUST001")
	huge.ClaimAmount = decimal.RequireFromString("99999999999.99")
	if _, err := svc.SubmitClaim(ctx, customerA, huge); err != nil {
		t.Fatalf("SubmitClaim(huge amount) error = %v, want no ceiling", err)
	}
}

func TestSubmitClaimRejectsSuppliedDuplicatePolicyNumber(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	first := submitInput("CUST001")
	first.PolicyNumber = "POL-EXISTING-1"
	if _, err := svc.SubmitClaim(ctx, customerA, first); err != nil {
		t.Fatalf("SubmitClaim(first) error = %v", err)
	}

	second := submitInput("CUST002")
	second.PolicyNumber = "POL-EXISTING-1"
	_, err := svc.SubmitClaim(ctx, customerB, second)
	if !errors.Is(err, domainclaim.ErrDuplicatePolicyNumber) {
		t.Fatalf("SubmitClaim(duplicate) error = %v, want ErrDuplicatePolicyNumber", err)
	}
	if errs.IsTransient(err) {
		t.Fatalf("duplicate policy number should not be transient")
	}
}

func TestSubmitClaimGenerationExhausted(t *testing.T) {
	fixedNow := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	svc, _, _ := setupServiceWithOptions(t, Options{
		MaxAttempts: 3,
		Random:      bytes.NewReader(make([]byte, 64)),
		Now:         func() time.Time { return fixedNow },
	})
	ctx := context.Background()

	taken := submitInput("CUST001")
	taken.PolicyNumber = "POL-CUST001-20260301-00000000"
	if _, err := svc.SubmitClaim(ctx, customerA, taken); err != nil {
		t.Fatalf("SubmitClaim(seed) error = %v", err)
	}

	_, err := svc.SubmitClaim(ctx, customerA, submitInput("CUST001"))
	if !errors.Is(err, domainclaim.ErrGenerationExhausted) {
		t.Fatalf("SubmitClaim() error = %v, want ErrGenerationExhausted", err)
	}
	if !errs.IsTransient(err) {
		t.Fatalf("ErrGenerationExhausted should be transient")
	}

	claims, err := svc.ListClaimsByCustomer(ctx, customerA, "CUST001")
	if err != nil {
		t.Fatalf("ListClaimsByCustomer() error = %v", err)
	}
	if len(claims) != 1 {
		t.Fatalf("ListClaimsByCustomer() len = %d, want only the seed claim", len(claims))
	}
}

// racingRepo hides existing policy numbers from the pre-check, the way a
// concurrent writer that commits between check and insert would.
type racingRepo struct {
	ports.ClaimRepository
}

func (racingRepo) PolicyNumberExists(context.Context, string) (bool, error) {
	return false, nil
}

func TestSubmitClaimRedrawsGeneratedNumberAfterLostRace(t *testing.T) {
	fixedNow := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	db := openTestDB(t)
	repo := sqliterepo.NewClaimRepository(db)
	uow := sqliteuow.NewUnitOfWork(db)

	seed := NewService(repo, uow, nil, Options{})
	taken := submitInput("CUST001")
	taken.PolicyNumber = "POL-CUST001-20260301-00000000"
	if _, err := seed.SubmitClaim(context.Background(), customerA, taken); err != nil {
		t.Fatalf("SubmitClaim(seed) error = %v", err)
	}

	entropy := append(make([]byte, 5), 0, 0, 0, 0, 7)
	svc := NewService(racingRepo{ClaimRepository: repo}, uow, nil, Options{
		MaxAttempts: 2,
		Random:      bytes.NewReader(entropy),
		Now:         func() time.Time { return fixedNow },
	})

	claim, err := svc.SubmitClaim(context.Background(), customerA, submitInput("CUST001"))
	if err != nil {
		t.Fatalf("SubmitClaim() error = %v", err)
	}
	if claim.PolicyNumber != "POL-CUST001-20260301-00000007" {
		t.Fatalf("PolicyNumber = %q, want redrawn candidate", claim.PolicyNumber)
	}
}

func TestSubmitClaimConcurrentPolicyNumbersAreUnique(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	const workers = 24
	var wg sync.WaitGroup
	numbers := make(chan string, workers)
	failures := make(chan error, workers)
	for i := 0; i < workers; i++ {
		actor := customerA
		if i%2 == 1 {
			actor = customerB
		}
		wg.Add(1)
		go func(actor domainclaim.Principal) {
			defer wg.Done()
			claim, err := svc.SubmitClaim(ctx, actor, submitInput(actor.ID))
			if err != nil {
				failures <- err
				return
			}
			numbers <- claim.PolicyNumber
		}(actor)
	}
	wg.Wait()
	close(numbers)
	close(failures)

	for err := range failures {
		t.Fatalf("SubmitClaim() concurrent error = %v", err)
	}
	seen := make(map[string]struct{}, workers)
	for n := range numbers {
		if _, dup := seen[n]; dup {
			t.Fatalf("duplicate policy number issued: %s", n)
		}
		seen[n] = struct{}{}
	}
	if len(seen) != workers {
		t.Fatalf("issued %d numbers, want %d", len(seen), workers)
	}
}

func TestNonOwnerCannotReadOrComment(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()
	claim := mustSubmit(t, svc, customerA)

	if _, err := svc.GetClaim(ctx, customerB, claim.ID); !errors.Is(err, domainclaim.ErrForbidden) {
		t.Fatalf("GetClaim(other) error = %v, want ErrForbidden", err)
	}
	if _, err := svc.AddComment(ctx, customerB, AddCommentInput{ClaimID: claim.ID, Text: "hi"}); !errors.Is(err, domainclaim.ErrForbidden) {
		t.Fatalf("AddComment(other) error = %v, want ErrForbidden", err)
	}
	if _, err := svc.ListClaimsByCustomer(ctx, customerB, "CUST001"); !errors.Is(err, domainclaim.ErrForbidden) {
		t.Fatalf("ListClaimsByCustomer(other) error = %v, want ErrForbidden", err)
	}
	if _, err := svc.ListAllClaims(ctx, customerA); !errors.Is(err, domainclaim.ErrForbidden) {
		t.Fatalf("ListAllClaims(customer) error = %v, want ErrForbidden", err)
	}

	if _, err := svc.GetClaim(ctx, approver, claim.ID); err != nil {
		t.Fatalf("GetClaim(approver) error = %v", err)
	}
	if _, err := svc.GetClaim(ctx, customerA, "missing"); !errors.Is(err, domainclaim.ErrNotFound) {
		t.Fatalf("GetClaim(missing) error = %v, want ErrNotFound", err)
	}
}

func TestDecideApprovesOnceAndRecordsComment(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()
	claim := mustSubmit(t, svc, customerA)

	decided, err := svc.Decide(ctx, approver, DecideInput{
		ClaimID:  claim.ID,
		Decision: "APPROVED",
		Comments: "looks good",
	})
	if err != nil {
		t.Fatalf("Decide() error = %v", err)
	}
	if decided.Status != domainclaim.StatusApproved {
		t.Fatalf("Status = %s, want APPROVED", decided.Status)
	}
	if decided.SupervisorID == nil || *decided.SupervisorID != "SUP001" {
		t.Fatalf("SupervisorID = %v, want SUP001", decided.SupervisorID)
	}
	if len(decided.Comments) != 1 || decided.Comments[0].Text != "looks good" || decided.Comments[0].AuthorID != "SUP001" {
		t.Fatalf("Comments = %+v", decided.Comments)
	}
	if decided.DecidedAt == nil {
		t.Fatalf("DecidedAt = nil")
	}

	_, err = svc.Decide(ctx, approver2, DecideInput{ClaimID: claim.ID, Decision: "REJECTED", Comments: "no"})
	if !errors.Is(err, domainclaim.ErrInvalidTransition) {
		t.Fatalf("Decide(again) error = %v, want ErrInvalidTransition", err)
	}

	after, err := svc.GetClaim(ctx, approver, claim.ID)
	if err != nil {
		t.Fatalf("GetClaim() error = %v", err)
	}
	if after.Status != domainclaim.StatusApproved || *after.SupervisorID != "SUP001" || len(after.Comments) != 1 {
		t.Fatalf("claim changed after rejected decision: %+v", after)
	}
}

func TestDecideWithoutCommentAddsNoComment(t *testing.T) {
	svc := setupService(t)
	claim := mustSubmit(t, svc, customerA)

	decided, err := svc.Decide(context.Background(), approver, DecideInput{ClaimID: claim.ID, Decision: "rejected"})
	if err != nil {
		t.Fatalf("Decide() error = %v", err)
	}
	if decided.Status != domainclaim.StatusRejected || len(decided.Comments) != 0 {
		t.Fatalf("Decide() = %+v", decided)
	}

	blankNote := mustSubmit(t, svc, customerA)
	decided, err = svc.Decide(context.Background(), approver, DecideInput{ClaimID: blankNote.ID, Decision: "APPROVED", Comments: " \n\t "})
	if err != nil {
		t.Fatalf("Decide(blank note) error = %v", err)
	}
	if decided.Status != domainclaim.StatusApproved || len(decided.Comments) != 0 {
		t.Fatalf("Decide(blank note) = %+v, want no comment", decided)
	}

	padded := mustSubmit(t, svc, customerA)
	decided, err = svc.Decide(context.Background(), approver, DecideInput{ClaimID: padded.ID, Decision: "APPROVED", Comments: "  receipts ok  "})
	if err != nil {
		t.Fatalf("Decide(padded note) error = %v", err)
	}
	if len(decided.Comments) != 1 || decided.Comments[0].Text != "receipts ok" {
		t.Fatalf("Decide(padded note) comments = %+v", decided.Comments)
	}
}

func TestDecideErrors(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()
	claim := mustSubmit(t, svc, customerA)

	if _, err := svc.Decide(ctx, customerA, DecideInput{ClaimID: claim.ID, Decision: "APPROVED"}); !errors.Is(err, domainclaim.ErrForbidden) {
		t.Fatalf("Decide(customer) error = %v, want ErrForbidden", err)
	}
	if _, err := svc.Decide(ctx, approver, DecideInput{ClaimID: claim.ID, Decision: "MAYBE"}); !errors.Is(err, domainclaim.ErrValidation) {
		t.Fatalf("Decide(MAYBE) error = %v, want ErrValidation", err)
	}
	if _, err := svc.Decide(ctx, approver, DecideInput{ClaimID: claim.ID, Decision: "PENDING"}); !errors.Is(err, domainclaim.ErrValidation) {
		t.Fatalf("Decide(PENDING) error = %v, want ErrValidation", err)
	}
	if _, err := svc.Decide(ctx, approver, DecideInput{ClaimID: "missing", Decision: "APPROVED"}); !errors.Is(err, domainclaim.ErrNotFound) {
		t.Fatalf("Decide(missing) error = %v, want ErrNotFound", err)
	}
}

func TestConcurrentDecisionsSingleWinner(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()
	claim := mustSubmit(t, svc, customerA)

	var wg sync.WaitGroup
	results := make([]error, 2)
	inputs := []DecideInput{
		{ClaimID: claim.ID, Decision: "APPROVED", Comments: "approve"},
		{ClaimID: claim.ID, Decision: "REJECTED", Comments: "reject"},
	}
	actors := []domainclaim.Principal{approver, approver2}
	for i := range inputs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = svc.Decide(ctx, actors[i], inputs[i])
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range results {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, domainclaim.ErrInvalidTransition):
		default:
			t.Fatalf("Decide() unexpected error = %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("winners = %d, want exactly 1", wins)
	}

	final, err := svc.GetClaim(ctx, approver, claim.ID)
	if err != nil {
		t.Fatalf("GetClaim() error = %v", err)
	}
	if len(final.Comments) != 1 {
		t.Fatalf("comments = %+v, want only the winner's comment", final.Comments)
	}
}

func TestDecisionsAndCommentsInterleaveOnConnectionPool(t *testing.T) {
	db := openTestDBWithConns(t, 8)
	repo := sqliterepo.NewClaimRepository(db)
	svc := NewService(repo, sqliteuow.NewUnitOfWork(db), nil, Options{})
	ctx := context.Background()

	const rounds = 20
	const deciders = 3
	const commenters = 3
	deciderActors := []domainclaim.Principal{approver, approver2, {ID: "SUP003", Role: domainclaim.RoleApprover}}

	for round := 0; round < rounds; round++ {
		claim := mustSubmit(t, svc, customerA)

		var wg sync.WaitGroup
		decideErrs := make([]error, deciders)
		commentErrs := make([]error, commenters)
		for i := 0; i < deciders; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				decision := "APPROVED"
				if i%2 == 1 {
					decision = "REJECTED"
				}
				_, decideErrs[i] = svc.Decide(ctx, deciderActors[i], DecideInput{
					ClaimID:  claim.ID,
					Decision: decision,
					Comments: "decision note",
				})
			}(i)
		}
		for i := 0; i < commenters; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, commentErrs[i] = svc.AddComment(ctx, customerA, AddCommentInput{
					ClaimID: claim.ID,
					Text:    "customer follow-up",
				})
			}(i)
		}
		wg.Wait()

		wins := 0
		for _, err := range decideErrs {
			switch {
			case err == nil:
				wins++
			case errors.Is(err, domainclaim.ErrInvalidTransition):
			default:
				t.Fatalf("round %d: Decide() unexpected error = %v", round, err)
			}
		}
		if wins != 1 {
			t.Fatalf("round %d: winners = %d, want exactly 1", round, wins)
		}
		for _, err := range commentErrs {
			if err != nil {
				t.Fatalf("round %d: AddComment() error = %v", round, err)
			}
		}

		final, err := repo.GetClaim(ctx, claim.ID)
		if err != nil {
			t.Fatalf("round %d: GetClaim() error = %v", round, err)
		}
		if !final.Status.IsTerminal() {
			t.Fatalf("round %d: status = %s, want decided", round, final.Status)
		}
		if len(final.Comments) != 1+commenters {
			t.Fatalf("round %d: comments = %d, want %d", round, len(final.Comments), 1+commenters)
		}
	}
}

func TestCommentsAcceptedOnTerminalClaimsAndAppendOnly(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()
	claim := mustSubmit(t, svc, customerA)

	if _, err := svc.Decide(ctx, approver, DecideInput{ClaimID: claim.ID, Decision: "APPROVED", Comments: "looks good"}); err != nil {
		t.Fatalf("Decide() error = %v", err)
	}
	before, err := svc.ListComments(ctx, customerA, claim.ID)
	if err != nil {
		t.Fatalf("ListComments() error = %v", err)
	}

	updated, err := svc.AddComment(ctx, customerA, AddCommentInput{ClaimID: claim.ID, Text: "any update?"})
	if err != nil {
		t.Fatalf("AddComment() error = %v", err)
	}
	if updated.Status != domainclaim.StatusApproved {
		t.Fatalf("Status = %s, want APPROVED unchanged", updated.Status)
	}

	after, err := svc.ListComments(ctx, customerA, claim.ID)
	if err != nil {
		t.Fatalf("ListComments() error = %v", err)
	}
	if len(after) != len(before)+1 {
		t.Fatalf("comments after = %d, before = %d", len(after), len(before))
	}
	for i := range before {
		if after[i].ID != before[i].ID || after[i].Text != before[i].Text {
			t.Fatalf("comment %d changed: %+v -> %+v", i, before[i], after[i])
		}
	}
	last := after[len(after)-1]
	if last.Text != "any update?" || last.AuthorID != "CUST001" || last.AuthorName != "Customer" {
		t.Fatalf("last comment = %+v", last)
	}

	if _, err := svc.AddComment(ctx, customerA, AddCommentInput{ClaimID: claim.ID, Text: "  "}); !errors.Is(err, domainclaim.ErrValidation) {
		t.Fatalf("AddComment(blank) error = %v, want ErrValidation", err)
	}
	if _, err := svc.AddComment(ctx, approver, AddCommentInput{ClaimID: "missing", Text: "x"}); !errors.Is(err, domainclaim.ErrNotFound) {
		t.Fatalf("AddComment(missing) error = %v, want ErrNotFound", err)
	}
}

func TestAssignOnlyWhilePending(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()
	claim := mustSubmit(t, svc, customerA)

	if _, err := svc.Assign(ctx, customerA, AssignInput{ClaimID: claim.ID}); !errors.Is(err, domainclaim.ErrForbidden) {
		t.Fatalf("Assign(customer) error = %v, want ErrForbidden", err)
	}

	assigned, err := svc.Assign(ctx, approver, AssignInput{ClaimID: claim.ID})
	if err != nil {
		t.Fatalf("Assign() error = %v", err)
	}
	if assigned.SupervisorID == nil || *assigned.SupervisorID != "SUP001" || assigned.Status != domainclaim.StatusPending {
		t.Fatalf("Assign() = %+v", assigned)
	}

	reassigned, err := svc.Assign(ctx, approver, AssignInput{ClaimID: claim.ID, ApproverID: "SUP002"})
	if err != nil || *reassigned.SupervisorID != "SUP002" {
		t.Fatalf("Assign(SUP002) = %v, %v", reassigned.SupervisorID, err)
	}

	if _, err := svc.Decide(ctx, approver2, DecideInput{ClaimID: claim.ID, Decision: "REJECTED"}); err != nil {
		t.Fatalf("Decide() error = %v", err)
	}
	if _, err := svc.Assign(ctx, approver, AssignInput{ClaimID: claim.ID}); !errors.Is(err, domainclaim.ErrInvalidTransition) {
		t.Fatalf("Assign(terminal) error = %v, want ErrInvalidTransition", err)
	}
}

func TestWritesInvalidateCachedSnapshots(t *testing.T) {
	svc, cache, _ := setupServiceWithOptions(t, Options{})
	ctx := context.Background()
	claim := mustSubmit(t, svc, customerA)

	if _, err := svc.GetClaim(ctx, customerA, claim.ID); err != nil {
		t.Fatalf("GetClaim() error = %v", err)
	}
	if _, err := svc.ListAllClaims(ctx, approver); err != nil {
		t.Fatalf("ListAllClaims() error = %v", err)
	}
	if _, found, _ := cache.Get(ctx, cacheClaimKey(claim.ID)); !found {
		t.Fatalf("claim snapshot not cached")
	}

	if _, err := svc.Decide(ctx, approver, DecideInput{ClaimID: claim.ID, Decision: "APPROVED"}); err != nil {
		t.Fatalf("Decide() error = %v", err)
	}
	for _, key := range []string{cacheClaimKey(claim.ID), cacheCustomerClaimsKey("CUST001"), cacheAllClaimsKey} {
		if _, found, _ := cache.Get(ctx, key); found {
			t.Fatalf("cache key %q survived a write", key)
		}
	}

	got, err := svc.GetClaim(ctx, customerA, claim.ID)
	if err != nil {
		t.Fatalf("GetClaim() error = %v", err)
	}
	if got.Status != domainclaim.StatusApproved {
		t.Fatalf("GetClaim() status = %s, want APPROVED", got.Status)
	}

	all, err := svc.ListAllClaims(ctx, approver)
	if err != nil {
		t.Fatalf("ListAllClaims() error = %v", err)
	}
	if len(all) != 1 || all[0].Status != domainclaim.StatusApproved {
		t.Fatalf("ListAllClaims() = %+v", all)
	}
}

func TestLifecycleEventsArePublishedBestEffort(t *testing.T) {
	publisher := &recordingPublisher{err: errors.New("broker down")}
	svc, _, _ := setupServiceWithOptions(t, Options{Publisher: publisher})
	ctx := context.Background()

	claim := mustSubmit(t, svc, customerA)
	if _, err := svc.Assign(ctx, approver, AssignInput{ClaimID: claim.ID}); err != nil {
		t.Fatalf("Assign() error = %v", err)
	}
	if _, err := svc.Decide(ctx, approver, DecideInput{ClaimID: claim.ID, Decision: "APPROVED"}); err != nil {
		t.Fatalf("Decide() error = %v, publish failure must not fail the write", err)
	}
	if _, err := svc.AddComment(ctx, customerA, AddCommentInput{ClaimID: claim.ID, Text: "thanks"}); err != nil {
		t.Fatalf("AddComment() error = %v", err)
	}

	got := publisher.types()
	want := []ports.ClaimEventType{ports.ClaimSubmitted, ports.ClaimAssigned, ports.ClaimDecided, ports.ClaimCommented}
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("events[%d] = %s, want %s", i, got[i], want[i])
		}
	}
	if publisher.events[2].Status != "APPROVED" || publisher.events[2].ActorID != "SUP001" {
		t.Fatalf("decided event = %+v", publisher.events[2])
	}
}

func TestGenerateAndCheckPolicyNumber(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	number, err := svc.GeneratePolicyNumber(ctx, "cust001")
	if err != nil {
		t.Fatalf("GeneratePolicyNumber() error = %v", err)
	}
	if !generatedPolicyPattern.MatchString(number) {
		t.Fatalf("GeneratePolicyNumber() = %q", number)
	}

	exists, err := svc.CheckPolicyNumber(ctx, number)
	if err != nil || exists {
		t.Fatalf("CheckPolicyNumber(unused) = %v, %v", exists, err)
	}

	claim := mustSubmit(t, svc, customerA)
	exists, err = svc.CheckPolicyNumber(ctx, claim.PolicyNumber)
	if err != nil || !exists {
		t.Fatalf("CheckPolicyNumber(used) = %v, %v", exists, err)
	}

	if _, err := svc.GeneratePolicyNumber(ctx, " "); !errors.Is(err, domainclaim.ErrValidation) {
		t.Fatalf("GeneratePolicyNumber(blank) error = %v, want ErrValidation", err)
	}
}

func TestCancelledContextIsRejected(t *testing.T) {
	svc := setupService(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := svc.SubmitClaim(ctx, customerA, submitInput("CUST001")); !errors.Is(err, context.Canceled) {
		t.Fatalf("SubmitClaim(cancelled) error = %v, want context.Canceled", err)
	}
}
