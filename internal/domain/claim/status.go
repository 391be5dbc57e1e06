package claim

import (
	"fmt"
	"strings"
)

type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
)

func (s Status) String() string { return string(s) }

// IsTerminal reports whether no further status or supervisor change is allowed.
func (s Status) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// ParseStatus accepts any casing and surrounding whitespace.
func ParseStatus(raw string) (Status, error) {
	status := Status(strings.ToUpper(strings.TrimSpace(raw)))
	if !status.Valid() {
		return "", fmt.Errorf("%w: unknown status %q", ErrValidation, raw)
	}
	return status, nil
}

// ParseDecision parses the outcome an approver may record. PENDING is not a decision.
func ParseDecision(raw string) (Status, error) {
	status := Status(strings.ToUpper(strings.TrimSpace(raw)))
	if !status.IsTerminal() {
		return "", fmt.Errorf("%w: decision must be APPROVED or REJECTED, got %q", ErrValidation, raw)
	}
	return status, nil
}

// CanTransition is the whole lifecycle: PENDING moves to one of the terminal states, once.
func CanTransition(from Status, to Status) bool {
	return from == StatusPending && to.IsTerminal()
}

// EnsureTransition returns ErrInvalidTransition when from cannot move to to.
func EnsureTransition(claimID string, from Status, to Status) error {
	if CanTransition(from, to) {
		return nil
	}
	return fmt.Errorf("%w: claim %s is %s, cannot move to %s", ErrInvalidTransition, claimID, from, to)
}

// EnsureAssignable returns ErrInvalidTransition for claims already decided.
func EnsureAssignable(claimID string, current Status) error {
	if current == StatusPending {
		return nil
	}
	return fmt.Errorf("%w: claim %s is %s, supervisor can no longer change", ErrInvalidTransition, claimID, current)
}
