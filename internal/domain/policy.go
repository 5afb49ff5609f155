package domain

import (
	_ "embed"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Role is a caller role name
type Role string

const (
	RoleServiceCenterManager          Role = "service_center_manager"
	RolePartsCoordinatorServiceCenter Role = "parts_coordinator_service_center"
	RolePartsCoordinatorCompany       Role = "parts_coordinator_company"
	RoleEMVStaff                      Role = "emv_staff"
)

// IsValid reports whether r is one of the known roles
func (r Role) IsValid() bool {
	switch r {
	case RoleServiceCenterManager, RolePartsCoordinatorServiceCenter, RolePartsCoordinatorCompany, RoleEMVStaff:
		return true
	}
	return false
}

// IsCompanyRole reports whether r acts for the OEM rather than a service center
func (r Role) IsCompanyRole() bool {
	return r == RolePartsCoordinatorCompany || r == RoleEMVStaff
}

// Operation is a stock transfer workflow step
type Operation string

const (
	OpCreate  Operation = "create"
	OpApprove Operation = "approve"
	OpReject  Operation = "reject"
	OpShip    Operation = "ship"
	OpReceive Operation = "receive"
	OpCancel  Operation = "cancel"
)

var pastTense = map[Operation]string{
	OpCreate:  "created",
	OpApprove: "approved",
	OpReject:  "rejected",
	OpShip:    "shipped",
	OpReceive: "received",
	OpCancel:  "cancelled",
}

//go:embed policy.yaml
var defaultPolicyYAML []byte

type policyFile struct {
	Rules []struct {
		Operation Operation        `yaml:"operation"`
		Roles     []Role           `yaml:"roles"`
		From      []TransferStatus `yaml:"from"`
	} `yaml:"rules"`
}

// Policy is the declarative (operation, role) -> allowed source states table.
// It only decides who may act; the request enforces its own state machine.
type Policy struct {
	rules map[Operation]map[Role]map[TransferStatus]bool
}

// ParsePolicy parses a YAML policy document
func ParsePolicy(data []byte) (*Policy, error) {
	var file policyFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse policy: %w", err)
	}

	p := &Policy{rules: make(map[Operation]map[Role]map[TransferStatus]bool)}
	for i, rule := range file.Rules {
		if _, ok := pastTense[rule.Operation]; !ok {
			return nil, fmt.Errorf("policy rule %d: unknown operation %q", i, rule.Operation)
		}
		if len(rule.Roles) == 0 {
			return nil, fmt.Errorf("policy rule %d: no roles", i)
		}
		if rule.Operation != OpCreate && len(rule.From) == 0 {
			return nil, fmt.Errorf("policy rule %d: %s needs at least one source state", i, rule.Operation)
		}

		byRole := p.rules[rule.Operation]
		if byRole == nil {
			byRole = make(map[Role]map[TransferStatus]bool)
			p.rules[rule.Operation] = byRole
		}
		for _, role := range rule.Roles {
			states := byRole[role]
			if states == nil {
				states = make(map[TransferStatus]bool)
				byRole[role] = states
			}
			for _, s := range rule.From {
				if !s.IsValid() {
					return nil, fmt.Errorf("policy rule %d: unknown state %q", i, s)
				}
				states[s] = true
			}
		}
	}
	return p, nil
}

// DefaultPolicy returns the built-in policy
func DefaultPolicy() *Policy {
	p, err := ParsePolicy(defaultPolicyYAML)
	if err != nil {
		panic(err)
	}
	return p
}

// LoadPolicy reads a policy file, or returns the built-in one for an empty path
func LoadPolicy(path string) (*Policy, error) {
	if path == "" {
		return DefaultPolicy(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy file: %w", err)
	}
	return ParsePolicy(data)
}

// AllowedFrom returns every state from which some role may perform op, sorted
func (p *Policy) AllowedFrom(op Operation) []TransferStatus {
	seen := make(map[TransferStatus]bool)
	for _, states := range p.rules[op] {
		for s := range states {
			seen[s] = true
		}
	}
	out := make([]TransferStatus, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Authorize decides whether role may perform op on a request in state current.
// Pass an empty current for create. When no role at all may act from current
// the result is an InvalidTransitionError naming the required states;
// otherwise a role that is not listed gets a ForbiddenError.
func (p *Policy) Authorize(op Operation, role Role, requestID string, current TransferStatus) error {
	byRole, ok := p.rules[op]
	if !ok {
		return &ForbiddenError{Message: fmt.Sprintf("operation %s is not permitted", op)}
	}

	if op == OpCreate {
		if _, ok := byRole[role]; !ok {
			return &ForbiddenError{Message: fmt.Sprintf("role %s may not create stock transfer requests", role)}
		}
		return nil
	}

	anyone := false
	for _, states := range byRole {
		if states[current] {
			anyone = true
			break
		}
	}
	if !anyone {
		allowed := p.AllowedFrom(op)
		required := make([]string, len(allowed))
		for i, s := range allowed {
			required[i] = string(s)
		}
		return NewInvalidTransition("request", requestID, string(current), pastTense[op], required...)
	}

	if !byRole[role][current] {
		return &ForbiddenError{Message: fmt.Sprintf("role %s may not %s a request in status %s", role, op, current)}
	}
	return nil
}
