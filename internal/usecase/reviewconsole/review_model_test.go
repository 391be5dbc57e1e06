package reviewconsole

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/shopspring/decimal"

	domainclaim "claimflow/internal/domain/claim"
	"claimflow/internal/usecase/claims"
)

type stubReviewService struct {
	items   []domainclaim.Claim
	decided claims.DecideInput
	assign  claims.AssignInput
	comment claims.AddCommentInput
	err     error
}

func (s *stubReviewService) ListAllClaims(context.Context, domainclaim.Principal) ([]domainclaim.Claim, error) {
	return s.items, s.err
}

func (s *stubReviewService) GetClaim(_ context.Context, _ domainclaim.Principal, claimID string) (domainclaim.Claim, error) {
	for _, item := range s.items {
		if item.ID == claimID {
			return item, nil
		}
	}
	return domainclaim.Claim{}, domainclaim.ErrNotFound
}

func (s *stubReviewService) Decide(_ context.Context, _ domainclaim.Principal, input claims.DecideInput) (domainclaim.Claim, error) {
	s.decided = input
	if s.err != nil {
		return domainclaim.Claim{}, s.err
	}
	return domainclaim.Claim{ID: input.ClaimID, Status: domainclaim.Status(input.Decision)}, nil
}

func (s *stubReviewService) Assign(_ context.Context, _ domainclaim.Principal, input claims.AssignInput) (domainclaim.Claim, error) {
	s.assign = input
	supervisor := input.ApproverID
	return domainclaim.Claim{ID: input.ClaimID, SupervisorID: &supervisor}, s.err
}

func (s *stubReviewService) AddComment(_ context.Context, _ domainclaim.Principal, input claims.AddCommentInput) (domainclaim.Claim, error) {
	s.comment = input
	return domainclaim.Claim{ID: input.ClaimID, Comments: []domainclaim.Comment{{ID: 1, Text: input.Text}}}, s.err
}

func testClaim(id string, status domainclaim.Status, created time.Time) domainclaim.Claim {
	return domainclaim.Claim{
		ID:          id,
		CustomerID:  "CUST001",
		Status:      status,
		ClaimAmount: decimal.NewFromInt(100),
		CreatedAt:   created,
	}
}

func newTestModel(svc ReviewService, items []domainclaim.Claim) *reviewModel {
	return &reviewModel{
		ctx:             context.Background(),
		service:         svc,
		approver:        domainclaim.Principal{ID: "SUP1", Name: "Sam", Role: domainclaim.RoleApprover},
		refreshInterval: time.Second,
		claims:          items,
	}
}

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestFilterClaimsPendingFirstOldestFirst(t *testing.T) {
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	items := []domainclaim.Claim{
		testClaim("c3", domainclaim.StatusApproved, base),
		testClaim("c2", domainclaim.StatusPending, base.Add(2*time.Hour)),
		testClaim("c1", domainclaim.StatusPending, base.Add(time.Hour)),
	}

	all := filterClaims(items, "")
	if len(all) != 3 {
		t.Fatalf("len(all) = %d, want 3", len(all))
	}
	if all[0].ID != "c1" || all[1].ID != "c2" || all[2].ID != "c3" {
		t.Fatalf("order = %s,%s,%s, want c1,c2,c3", all[0].ID, all[1].ID, all[2].ID)
	}

	pending := filterClaims(items, domainclaim.StatusPending)
	if len(pending) != 2 {
		t.Fatalf("len(pending) = %d, want 2", len(pending))
	}
}

func TestNormalizeStatusFilter(t *testing.T) {
	testCases := []struct {
		input string
		want  domainclaim.Status
	}{
		{input: "", want: ""},
		{input: "all", want: ""},
		{input: "pending", want: domainclaim.StatusPending},
		{input: " REJECTED ", want: domainclaim.StatusRejected},
	}
	for _, testCase := range testCases {
		if got := normalizeStatusFilter(testCase.input); got != testCase.want {
			t.Fatalf("normalizeStatusFilter(%q) = %q, want %q", testCase.input, got, testCase.want)
		}
	}
}

func TestApproveSendsNoteAsDecisionComment(t *testing.T) {
	svc := &stubReviewService{}
	model := newTestModel(svc, []domainclaim.Claim{testClaim("c1", domainclaim.StatusPending, time.Now())})

	model.Update(keyRunes("n"))
	model.Update(keyRunes("ok"))
	model.Update(tea.KeyMsg{Type: tea.KeySpace})
	model.Update(keyRunes("paid"))
	model.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if model.note != "ok paid" {
		t.Fatalf("note = %q, want %q", model.note, "ok paid")
	}

	_, cmd := model.Update(keyRunes("a"))
	if cmd == nil {
		t.Fatal("approve returned nil cmd")
	}
	msg, ok := cmd().(actionDoneMsg)
	if !ok {
		t.Fatalf("cmd() returned %T, want actionDoneMsg", msg)
	}
	if msg.err != nil || msg.result != "APPROVED" {
		t.Fatalf("action result = %+v", msg)
	}
	if svc.decided.ClaimID != "c1" || svc.decided.Decision != "APPROVED" || svc.decided.Comments != "ok paid" {
		t.Fatalf("decide input = %+v", svc.decided)
	}
	if model.note != "" {
		t.Fatalf("note after decision = %q, want empty", model.note)
	}
}

func TestDecideSkipsTerminalClaim(t *testing.T) {
	svc := &stubReviewService{}
	model := newTestModel(svc, []domainclaim.Claim{testClaim("c1", domainclaim.StatusRejected, time.Now())})

	_, cmd := model.Update(keyRunes("a"))
	if cmd != nil {
		t.Fatal("approve on terminal claim returned a cmd")
	}
	if !strings.Contains(model.status, "already REJECTED") {
		t.Fatalf("status = %q", model.status)
	}
}

func TestCommentNeedsNote(t *testing.T) {
	svc := &stubReviewService{}
	model := newTestModel(svc, []domainclaim.Claim{testClaim("c1", domainclaim.StatusPending, time.Now())})

	if _, cmd := model.Update(keyRunes("c")); cmd != nil {
		t.Fatal("comment without note returned a cmd")
	}

	model.note = "need receipts"
	_, cmd := model.Update(keyRunes("c"))
	if cmd == nil {
		t.Fatal("comment returned nil cmd")
	}
	cmd()
	if svc.comment.ClaimID != "c1" || svc.comment.Text != "need receipts" {
		t.Fatalf("comment input = %+v", svc.comment)
	}
}

func TestAssignUsesApprover(t *testing.T) {
	svc := &stubReviewService{}
	model := newTestModel(svc, []domainclaim.Claim{testClaim("c1", domainclaim.StatusPending, time.Now())})

	_, cmd := model.Update(keyRunes("s"))
	msg := cmd().(actionDoneMsg)
	if msg.result != "SUP1" || svc.assign.ApproverID != "SUP1" {
		t.Fatalf("assign result = %+v, input = %+v", msg, svc.assign)
	}
}

func TestActionFailureIsAudited(t *testing.T) {
	model := newTestModel(&stubReviewService{}, nil)

	model.Update(actionDoneMsg{action: "approve", claimID: "c1", err: errors.New("invalid status transition")})
	if len(model.auditLogs) != 1 || !strings.Contains(model.auditLogs[0], "error: invalid status transition") {
		t.Fatalf("audit logs = %v", model.auditLogs)
	}
	if !strings.HasPrefix(model.status, "approve failed") {
		t.Fatalf("status = %q", model.status)
	}
}

func TestDetailLoadedIgnoresStaleSelection(t *testing.T) {
	now := time.Now()
	model := newTestModel(&stubReviewService{}, []domainclaim.Claim{
		testClaim("c1", domainclaim.StatusPending, now),
		testClaim("c2", domainclaim.StatusPending, now),
	})
	model.selectedIndex = 1

	model.Update(claimDetailLoadedMsg{claimID: "c1", detail: testClaim("c1", domainclaim.StatusPending, now)})
	if model.hasDetail {
		t.Fatal("stale detail should be ignored")
	}

	model.Update(claimDetailLoadedMsg{claimID: "c2", detail: testClaim("c2", domainclaim.StatusPending, now)})
	if !model.hasDetail || model.detail.ID != "c2" {
		t.Fatalf("detail = %+v, want c2", model.detail)
	}
}

func TestClaimsLoadedClampsSelection(t *testing.T) {
	now := time.Now()
	model := newTestModel(&stubReviewService{}, nil)
	model.selectedIndex = 5

	_, cmd := model.Update(claimsLoadedMsg{items: []domainclaim.Claim{testClaim("c1", domainclaim.StatusPending, now)}, at: now})
	if model.selectedIndex != 0 {
		t.Fatalf("selectedIndex = %d, want 0", model.selectedIndex)
	}
	if cmd == nil {
		t.Fatal("expected detail load cmd")
	}
	if !strings.Contains(model.View(), "c1 [PENDING]") {
		t.Fatalf("view missing queue line:\n%s", model.View())
	}
}
