package claim

import (
	"fmt"
	"strings"
)

type Role string

const (
	RoleCustomer Role = "customer"
	RoleApprover Role = "approver"
)

// ParseRole accepts "supervisor" as an alias of approver.
func ParseRole(raw string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "customer":
		return RoleCustomer, nil
	case "approver", "supervisor":
		return RoleApprover, nil
	default:
		return "", fmt.Errorf("%w: unknown role %q", ErrValidation, raw)
	}
}

// Principal is the already-authenticated caller of an engine operation.
type Principal struct {
	ID   string
	Name string
	Role Role
}

func NewPrincipal(id string, name string, role string) (Principal, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Principal{}, fmt.Errorf("%w: principal id is required", ErrValidation)
	}
	parsed, err := ParseRole(role)
	if err != nil {
		return Principal{}, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = id
	}
	return Principal{ID: id, Name: name, Role: parsed}, nil
}

func (p Principal) IsApprover() bool { return p.Role == RoleApprover }

// DisplayName falls back to the id when no name was asserted.
func (p Principal) DisplayName() string {
	if name := strings.TrimSpace(p.Name); name != "" {
		return name
	}
	return p.ID
}

// CanAccess reports whether p may read or comment on a claim owned by customerID.
func (p Principal) CanAccess(customerID string) bool {
	if p.IsApprover() {
		return true
	}
	return p.Role == RoleCustomer && p.ID != "" && p.ID == customerID
}

func EnsureAccess(p Principal, claimID string, customerID string) error {
	if p.CanAccess(customerID) {
		return nil
	}
	return fmt.Errorf("%w: %s %q cannot access claim %s", ErrForbidden, p.Role, p.ID, claimID)
}

func EnsureApprover(p Principal, action string) error {
	if p.IsApprover() {
		return nil
	}
	return fmt.Errorf("%w: only approvers can %s", ErrForbidden, action)
}

// EnsureSubmitter allows customers to file claims for themselves only.
func EnsureSubmitter(p Principal, customerID string) error {
	if p.Role == RoleCustomer && p.ID == customerID {
		return nil
	}
	return fmt.Errorf("%w: %s %q cannot submit a claim for customer %q", ErrForbidden, p.Role, p.ID, customerID)
}

// EnsureCustomerScope lets approvers list any customer and customers list only themselves.
func EnsureCustomerScope(p Principal, customerID string) error {
	if p.CanAccess(customerID) {
		return nil
	}
	return fmt.Errorf("%w: %s %q cannot list claims of customer %q", ErrForbidden, p.Role, p.ID, customerID)
}
