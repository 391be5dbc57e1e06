package reviewconsole

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"claimflow/internal/bootstrap/logging"
	domainclaim "claimflow/internal/domain/claim"
	"claimflow/internal/usecase/claims"
)

const maxShownComments = 5
const maxAuditLines = 8

// ReviewService is the slice of the claim engine the console drives.
type ReviewService interface {
	ListAllClaims(context.Context, domainclaim.Principal) ([]domainclaim.Claim, error)
	GetClaim(context.Context, domainclaim.Principal, string) (domainclaim.Claim, error)
	Decide(context.Context, domainclaim.Principal, claims.DecideInput) (domainclaim.Claim, error)
	Assign(context.Context, domainclaim.Principal, claims.AssignInput) (domainclaim.Claim, error)
	AddComment(context.Context, domainclaim.Principal, claims.AddCommentInput) (domainclaim.Claim, error)
}

type ReviewOptions struct {
	Approver        domainclaim.Principal
	StatusFilter    string
	RefreshInterval time.Duration
}

type reviewModel struct {
	ctx             context.Context
	service         ReviewService
	approver        domainclaim.Principal
	statusFilter    domainclaim.Status
	refreshInterval time.Duration

	claims        []domainclaim.Claim
	selectedIndex int
	detail        domainclaim.Claim
	hasDetail     bool
	note          string
	editingNote   bool
	status        string
	auditLogs     []string
	lastRefresh   time.Time
}

type claimsLoadedMsg struct {
	items []domainclaim.Claim
	at    time.Time
	err   error
}

type claimDetailLoadedMsg struct {
	claimID string
	detail  domainclaim.Claim
	err     error
}

type tickMsg struct{}

type actionDoneMsg struct {
	action  string
	claimID string
	result  string
	err     error
}

func NewReviewModel(ctx context.Context, service ReviewService, options ReviewOptions) tea.Model {
	interval := options.RefreshInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}

	return &reviewModel{
		ctx:             ctx,
		service:         service,
		approver:        options.Approver,
		statusFilter:    normalizeStatusFilter(options.StatusFilter),
		refreshInterval: interval,
		status:          "loading",
	}
}

func (m *reviewModel) Init() tea.Cmd {
	return tea.Batch(m.loadClaimsCmd(), m.tickCmd())
}

func (m *reviewModel) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := message.(type) {
	case tickMsg:
		return m, tea.Batch(m.loadClaimsCmd(), m.tickCmd())
	case claimsLoadedMsg:
		if msg.err != nil {
			m.status = "refresh failed: " + msg.err.Error()
			return m, nil
		}
		m.claims = msg.items
		m.lastRefresh = msg.at
		if len(m.claims) == 0 {
			m.selectedIndex = 0
			m.hasDetail = false
			m.status = "queue is empty"
			return m, nil
		}
		if m.selectedIndex < 0 {
			m.selectedIndex = 0
		}
		if m.selectedIndex >= len(m.claims) {
			m.selectedIndex = len(m.claims) - 1
		}
		m.status = fmt.Sprintf("refreshed, %d claims", len(m.claims))
		return m, m.loadSelectedDetailCmd()
	case claimDetailLoadedMsg:
		if !m.isCurrentSelection(msg.claimID) {
			return m, nil
		}
		if msg.err != nil {
			m.hasDetail = false
			m.status = "detail failed: " + msg.err.Error()
			return m, nil
		}
		m.detail = msg.detail
		m.hasDetail = true
		return m, nil
	case actionDoneMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("%s failed: %v", msg.action, msg.err)
			m.appendAuditLog(msg.action, msg.claimID, "failed", msg.err)
		} else {
			m.status = fmt.Sprintf("%s done: %s", msg.action, msg.result)
			m.appendAuditLog(msg.action, msg.claimID, msg.result, nil)
		}
		return m, m.loadClaimsCmd()
	case tea.KeyMsg:
		if m.editingNote {
			return m.updateNote(msg)
		}
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "g":
			m.status = "refreshing"
			return m, m.loadClaimsCmd()
		case "up", "k":
			if m.selectedIndex > 0 {
				m.selectedIndex--
				return m, m.loadSelectedDetailCmd()
			}
			return m, nil
		case "down", "j":
			if m.selectedIndex < len(m.claims)-1 {
				m.selectedIndex++
				return m, m.loadSelectedDetailCmd()
			}
			return m, nil
		case "n":
			m.editingNote = true
			m.status = "editing note, enter to keep, esc to discard"
			return m, nil
		case "a":
			return m, m.decideCmd(domainclaim.StatusApproved)
		case "r":
			return m, m.decideCmd(domainclaim.StatusRejected)
		case "s":
			return m, m.assignCmd()
		case "c":
			return m, m.commentCmd()
		}
	}
	return m, nil
}

func (m *reviewModel) updateNote(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		m.editingNote = false
		m.status = "note kept"
	case tea.KeyEsc:
		m.editingNote = false
		m.note = ""
		m.status = "note discarded"
	case tea.KeyBackspace:
		if runes := []rune(m.note); len(runes) > 0 {
			m.note = string(runes[:len(runes)-1])
		}
	case tea.KeySpace:
		m.note += " "
	case tea.KeyRunes:
		m.note += string(msg.Runes)
	}
	return m, nil
}

func (m *reviewModel) View() string {
	titleStyle := lipgloss.NewStyle().Bold(true)
	sectionStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	selectedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("229")).Background(lipgloss.Color("62"))

	var builder strings.Builder
	builder.WriteString(titleStyle.Render("Claim Review Console"))
	builder.WriteString("\n")
	builder.WriteString(dimStyle.Render(fmt.Sprintf(
		"approver=%s status=%s refresh=%s last=%s",
		m.approver.DisplayName(),
		firstNonEmpty(string(m.statusFilter), "all"),
		m.refreshInterval,
		formatClock(m.lastRefresh),
	)))
	builder.WriteString("\n\n")

	builder.WriteString(sectionStyle.Render("Queue"))
	builder.WriteString("\n")
	if len(m.claims) == 0 {
		builder.WriteString(dimStyle.Render("- no claims"))
		builder.WriteString("\n\n")
	} else {
		for index, item := range m.claims {
			line := fmt.Sprintf(
				"%s [%s] customer=%s amount=%s supervisor=%s",
				item.ID,
				item.Status,
				item.CustomerID,
				item.ClaimAmount.StringFixed(2),
				valueOrDash(item.SupervisorID),
			)
			if index == m.selectedIndex {
				builder.WriteString(selectedStyle.Render("> " + line))
			} else {
				builder.WriteString("  " + line)
			}
			builder.WriteString("\n")
		}
		builder.WriteString("\n")
	}

	builder.WriteString(sectionStyle.Render("Detail"))
	builder.WriteString("\n")
	if !m.hasDetail {
		builder.WriteString(dimStyle.Render("- no detail"))
		builder.WriteString("\n\n")
	} else {
		builder.WriteString(fmt.Sprintf("Claim: %s\n", m.detail.ID))
		builder.WriteString(fmt.Sprintf("Policy: %s\n", m.detail.PolicyNumber))
		builder.WriteString(fmt.Sprintf("Type: %s\n", m.detail.ClaimType))
		builder.WriteString(fmt.Sprintf("Amount: %s\n", m.detail.ClaimAmount.StringFixed(2)))
		builder.WriteString(fmt.Sprintf("Status: %s\n", m.detail.Status))
		builder.WriteString(fmt.Sprintf("Supervisor: %s\n", valueOrDash(m.detail.SupervisorID)))
		builder.WriteString(fmt.Sprintf("Description: %s\n", firstNonEmptyLine(m.detail.Description)))
		builder.WriteString(fmt.Sprintf("Documents: %d\n", len(m.detail.DocumentURLs)))
		builder.WriteString("\nRecent Comments:\n")
		comments := m.detail.Comments
		if len(comments) == 0 {
			builder.WriteString("- none\n")
		} else {
			start := len(comments) - maxShownComments
			if start < 0 {
				start = 0
			}
			for _, comment := range comments[start:] {
				builder.WriteString(fmt.Sprintf("- c%d %s %s\n", comment.ID, comment.AuthorName, firstNonEmptyLine(comment.Text)))
			}
		}
		builder.WriteString("\n")
	}

	builder.WriteString(sectionStyle.Render("Note"))
	builder.WriteString("\n")
	cursor := ""
	if m.editingNote {
		cursor = "_"
	}
	builder.WriteString("- " + firstNonEmpty(m.note+cursor, dimStyle.Render("empty")))
	builder.WriteString("\n\n")

	builder.WriteString(sectionStyle.Render("Status"))
	builder.WriteString("\n")
	builder.WriteString("- " + firstNonEmpty(m.status, "ready"))
	builder.WriteString("\n\n")

	builder.WriteString(sectionStyle.Render("Audit Log"))
	builder.WriteString("\n")
	if len(m.auditLogs) == 0 {
		builder.WriteString(dimStyle.Render("- no actions"))
		builder.WriteString("\n\n")
	} else {
		for _, line := range m.auditLogs {
			builder.WriteString("- " + line)
			builder.WriteString("\n")
		}
		builder.WriteString("\n")
	}

	builder.WriteString(dimStyle.Render("Keys: ↑/k ↓/j move  g refresh  n note  a approve  r reject  s assign to me  c comment  q quit"))
	return builder.String()
}

func (m *reviewModel) tickCmd() tea.Cmd {
	return tea.Tick(m.refreshInterval, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}

func (m *reviewModel) loadClaimsCmd() tea.Cmd {
	return func() tea.Msg {
		items, err := m.service.ListAllClaims(m.ctx, m.approver)
		if err != nil {
			return claimsLoadedMsg{err: err}
		}
		return claimsLoadedMsg{items: filterClaims(items, m.statusFilter), at: time.Now()}
	}
}

func (m *reviewModel) loadSelectedDetailCmd() tea.Cmd {
	selected, ok := m.selectedClaim()
	if !ok {
		return nil
	}
	claimID := selected.ID
	return func() tea.Msg {
		detail, err := m.service.GetClaim(m.ctx, m.approver, claimID)
		if err != nil {
			return claimDetailLoadedMsg{claimID: claimID, err: err}
		}
		return claimDetailLoadedMsg{claimID: claimID, detail: detail}
	}
}

func (m *reviewModel) decideCmd(decision domainclaim.Status) tea.Cmd {
	selected, ok := m.selectedClaim()
	if !ok {
		m.status = "no claim selected"
		return nil
	}
	if selected.Status.IsTerminal() {
		m.status = fmt.Sprintf("claim %s is already %s", selected.ID, selected.Status)
		return nil
	}

	action := strings.ToLower(string(decision))
	claimID := selected.ID
	note := strings.TrimSpace(m.note)
	m.note = ""
	m.status = action + " in progress"
	return func() tea.Msg {
		claim, err := m.service.Decide(m.ctx, m.approver, claims.DecideInput{
			ClaimID:  claimID,
			Decision: string(decision),
			Comments: note,
		})
		if err != nil {
			return actionDoneMsg{action: action, claimID: claimID, err: err}
		}
		return actionDoneMsg{action: action, claimID: claimID, result: string(claim.Status)}
	}
}

func (m *reviewModel) assignCmd() tea.Cmd {
	selected, ok := m.selectedClaim()
	if !ok {
		m.status = "no claim selected"
		return nil
	}

	claimID := selected.ID
	m.status = "assign in progress"
	return func() tea.Msg {
		claim, err := m.service.Assign(m.ctx, m.approver, claims.AssignInput{
			ClaimID:    claimID,
			ApproverID: m.approver.ID,
		})
		if err != nil {
			return actionDoneMsg{action: "assign", claimID: claimID, err: err}
		}
		return actionDoneMsg{action: "assign", claimID: claimID, result: valueOrDash(claim.SupervisorID)}
	}
}

func (m *reviewModel) commentCmd() tea.Cmd {
	selected, ok := m.selectedClaim()
	if !ok {
		m.status = "no claim selected"
		return nil
	}
	note := strings.TrimSpace(m.note)
	if note == "" {
		m.status = "press n to write a note first"
		return nil
	}

	claimID := selected.ID
	m.note = ""
	m.status = "comment in progress"
	return func() tea.Msg {
		claim, err := m.service.AddComment(m.ctx, m.approver, claims.AddCommentInput{
			ClaimID: claimID,
			Text:    note,
		})
		if err != nil {
			return actionDoneMsg{action: "comment", claimID: claimID, err: err}
		}
		return actionDoneMsg{action: "comment", claimID: claimID, result: fmt.Sprintf("%d comments", len(claim.Comments))}
	}
}

func (m *reviewModel) selectedClaim() (domainclaim.Claim, bool) {
	if len(m.claims) == 0 {
		return domainclaim.Claim{}, false
	}
	if m.selectedIndex < 0 || m.selectedIndex >= len(m.claims) {
		return domainclaim.Claim{}, false
	}
	return m.claims[m.selectedIndex], true
}

func (m *reviewModel) isCurrentSelection(claimID string) bool {
	selected, ok := m.selectedClaim()
	if !ok {
		return false
	}
	return selected.ID == strings.TrimSpace(claimID)
}

func (m *reviewModel) appendAuditLog(action string, claimID string, result string, opErr error) {
	outcome := strings.TrimSpace(result)
	if opErr != nil {
		outcome = "error: " + opErr.Error()
	}
	if outcome == "" {
		outcome = "ok"
	}

	timestamp := time.Now().UTC().Format(time.RFC3339)
	line := fmt.Sprintf("%s claim=%s action=%s result=%s", timestamp, claimID, action, outcome)
	m.auditLogs = append([]string{line}, m.auditLogs...)
	if len(m.auditLogs) > maxAuditLines {
		m.auditLogs = m.auditLogs[:maxAuditLines]
	}

	logging.Info(m.ctx, "review console action",
		slog.String("actor", m.approver.ID),
		slog.String("claim_id", claimID),
		slog.String("action", action),
		slog.String("result", outcome),
	)
}

// filterClaims keeps claims matching status and puts pending work first, oldest first.
func filterClaims(items []domainclaim.Claim, status domainclaim.Status) []domainclaim.Claim {
	filtered := make([]domainclaim.Claim, 0, len(items))
	for _, item := range items {
		if status != "" && item.Status != status {
			continue
		}
		filtered = append(filtered, item)
	}
	sort.SliceStable(filtered, func(i int, j int) bool {
		pi := filtered[i].Status == domainclaim.StatusPending
		pj := filtered[j].Status == domainclaim.StatusPending
		if pi != pj {
			return pi
		}
		if filtered[i].CreatedAt.Equal(filtered[j].CreatedAt) {
			return filtered[i].ID < filtered[j].ID
		}
		return filtered[i].CreatedAt.Before(filtered[j].CreatedAt)
	})
	return filtered
}

func normalizeStatusFilter(input string) domainclaim.Status {
	value := strings.ToUpper(strings.TrimSpace(input))
	if value == "" || value == "ALL" {
		return ""
	}
	return domainclaim.Status(value)
}

func valueOrDash(value *string) string {
	if value == nil || strings.TrimSpace(*value) == "" {
		return "-"
	}
	return *value
}

func formatClock(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.Format("15:04:05")
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		normalized := strings.TrimSpace(value)
		if normalized != "" {
			return normalized
		}
	}
	return ""
}

func firstNonEmptyLine(body string) string {
	for _, raw := range strings.Split(body, "\n") {
		line := strings.TrimSpace(raw)
		if line != "" {
			return line
		}
	}
	return "empty"
}
