package policy

import "strings"

// AssemblePolicy resolves roleID, resourceID and actionID against the loaded
// catalog and returns a policy ready for submission. It fails with a
// validation error when an id is missing from the catalog, the role is
// inactive, or any entity belongs to an organization other than orgID.
// It never talks to the endpoint.
func AssemblePolicy(orgID, roleID, resourceID, actionID int64, candidates Catalog, draft Draft) (*Policy, error) {
	if orgID <= 0 {
		return nil, ErrNoOrganization.Clone()
	}

	role, ok := candidates.role(roleID)
	if !ok {
		return nil, unresolved("role", roleID)
	}

	resource, ok := candidates.resource(resourceID)
	if !ok {
		return nil, unresolved("resource", resourceID)
	}

	action, ok := candidates.action(actionID)
	if !ok {
		return nil, unresolved("action", actionID)
	}

	if !role.Active {
		return nil, ErrInactiveReference.Clone().WithMetadata(map[string]any{
			"reference": "role",
			"id":        roleID,
		})
	}

	policy := &Policy{
		ID:             draft.ID,
		OrganizationID: orgID,
		Role:           role,
		Resource:       resource,
		Action:         action,
		Condition:      normalizeCondition(draft.Condition),
		Description:    draft.Description,
		Active:         draft.Active,
	}

	if err := policy.Validate(); err != nil {
		return nil, err
	}

	return policy, nil
}

func unresolved(reference string, id int64) error {
	return ErrUnresolvedReference.Clone().WithMetadata(map[string]any{
		"reference": reference,
		"id":        id,
	})
}

func normalizeCondition(condition *string) *string {
	if condition == nil || strings.TrimSpace(*condition) == "" {
		return nil
	}
	value := *condition
	return &value
}
