package policy

import (
	"sort"
	"strings"
)

// Decision is the local outcome of a permission check.
type Decision string

const (
	Deny  Decision = "deny"
	Allow Decision = "allow"
	// Conditional means a policy grants the permission under a condition
	// only the remote authorization service can evaluate.
	Conditional Decision = "conditional"
)

const wildcardAction = "*"

// PermissionKey builds the canonical resource:action key.
func PermissionKey(resource, action string) string {
	return strings.ToUpper(strings.TrimSpace(resource)) + ":" + strings.ToUpper(strings.TrimSpace(action))
}

// PermissionSet is the effective set of grants for one user.
type PermissionSet struct {
	granted     map[string]struct{}
	conditional map[string][]string
}

// Effective computes the grants of a user holding roleNames. Only active
// roles and active policies count. Roles are matched by name, case
// insensitive, within the organization the lists were loaded for.
func Effective(roleNames []string, roles []Role, policies []Policy) PermissionSet {
	held := map[string]struct{}{}
	for _, name := range roleNames {
		held[strings.ToUpper(strings.TrimSpace(name))] = struct{}{}
	}

	set := PermissionSet{
		granted:     map[string]struct{}{},
		conditional: map[string][]string{},
	}

	for _, role := range roles {
		if !role.Active {
			continue
		}
		if _, ok := held[strings.ToUpper(role.Name)]; !ok {
			continue
		}
		for _, key := range role.PermissionKeys {
			resource, action, found := strings.Cut(key, ":")
			if !found {
				continue
			}
			set.granted[PermissionKey(resource, action)] = struct{}{}
		}
	}

	for _, p := range policies {
		if !p.Active || !p.Role.Active {
			continue
		}
		if _, ok := held[strings.ToUpper(p.Role.Name)]; !ok {
			continue
		}
		key := p.Key()
		if p.HasCondition() {
			set.conditional[key] = append(set.conditional[key], *p.Condition)
			continue
		}
		set.granted[key] = struct{}{}
	}

	return set
}

// Can reports the local decision for action on resource. An unconditional
// grant wins over a conditional one.
func (s PermissionSet) Can(resource, action string) Decision {
	key := PermissionKey(resource, action)
	wildcard := PermissionKey(resource, wildcardAction)

	if _, ok := s.granted[key]; ok {
		return Allow
	}
	if _, ok := s.granted[wildcard]; ok {
		return Allow
	}
	if len(s.conditional[key]) > 0 || len(s.conditional[wildcard]) > 0 {
		return Conditional
	}
	return Deny
}

// Conditions returns the opaque conditions attached to a conditional grant.
func (s PermissionSet) Conditions(resource, action string) []string {
	out := append([]string{}, s.conditional[PermissionKey(resource, action)]...)
	return append(out, s.conditional[PermissionKey(resource, wildcardAction)]...)
}

// Keys lists unconditional grants in sorted order.
func (s PermissionSet) Keys() []string {
	keys := make([]string, 0, len(s.granted))
	for key := range s.granted {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
