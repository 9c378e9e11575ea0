package policy

import (
	"errors"
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
)

const (
	MaxNameLength        = 100
	MaxCodeLength        = 100
	MaxDescriptionLength = 500
	MaxConditionLength   = 2000
)

var (
	permissionKeyPattern = regexp.MustCompile(`^[^:\s]+:[^:\s]+$`)
)

// Validate will run validation rules
func (r Role) Validate() error {
	if verr := goerrors.ValidateWithOzzo(func() error {
		return validation.ValidateStruct(&r,
			validation.Field(&r.OrganizationID, validation.Required, validation.Min(int64(1))),
			validation.Field(&r.Name, validation.Required, validation.Length(1, MaxNameLength)),
			validation.Field(&r.Description, validation.Length(0, MaxDescriptionLength)),
			validation.Field(&r.PermissionKeys, validation.By(validPermissionKeys)),
		)
	}, "invalid role"); verr != nil {
		return verr
	}
	return nil
}

// Validate will run validation rules
func (r Resource) Validate() error {
	if verr := goerrors.ValidateWithOzzo(func() error {
		return validation.ValidateStruct(&r,
			validation.Field(&r.OrganizationID, validation.Required, validation.Min(int64(1))),
			validation.Field(&r.Name, validation.Required, validation.Length(1, MaxNameLength)),
			validation.Field(&r.Code, validation.Required, validation.Length(1, MaxCodeLength), validation.By(notBlank)),
		)
	}, "invalid resource"); verr != nil {
		return verr
	}
	return nil
}

// Validate will run validation rules
func (a Action) Validate() error {
	if verr := goerrors.ValidateWithOzzo(func() error {
		return validation.ValidateStruct(&a,
			validation.Field(&a.OrganizationID, validation.Required, validation.Min(int64(1))),
			validation.Field(&a.Name, validation.Required, validation.Length(1, MaxNameLength)),
			validation.Field(&a.Code, validation.Required, validation.Length(1, MaxCodeLength), validation.By(notBlank)),
		)
	}, "invalid action"); verr != nil {
		return verr
	}
	return nil
}

// Validate checks the policy fields and that every reference is resolved
// and shares the policy organization.
func (p Policy) Validate() error {
	if verr := goerrors.ValidateWithOzzo(func() error {
		return validation.ValidateStruct(&p,
			validation.Field(&p.OrganizationID, validation.Required, validation.Min(int64(1))),
			validation.Field(&p.Description, validation.Length(0, MaxDescriptionLength)),
			validation.Field(&p.Condition, validation.By(validCondition)),
		)
	}, "invalid policy"); verr != nil {
		return verr
	}

	if p.Role.ID <= 0 || p.Resource.ID <= 0 || p.Action.ID <= 0 {
		return ErrUnresolvedReference.Clone().WithMetadata(map[string]any{
			"role_id":     p.Role.ID,
			"resource_id": p.Resource.ID,
			"action_id":   p.Action.ID,
		})
	}

	refs := []struct {
		name  string
		orgID int64
	}{
		{"role", p.Role.OrganizationID},
		{"resource", p.Resource.OrganizationID},
		{"action", p.Action.OrganizationID},
	}
	for _, ref := range refs {
		if ref.orgID != p.OrganizationID {
			return ErrOrganizationMismatch.Clone().WithMetadata(map[string]any{
				"reference":       ref.name,
				"organization_id": p.OrganizationID,
				"reference_org":   ref.orgID,
			})
		}
	}

	return nil
}

func validPermissionKeys(value any) error {
	keys, _ := value.([]string)
	for _, key := range keys {
		if !permissionKeyPattern.MatchString(key) {
			return errors.New("must use the resource:action format")
		}
	}
	return nil
}

func validCondition(value any) error {
	condition, _ := value.(*string)
	if condition == nil {
		return nil
	}
	if len(strings.TrimSpace(*condition)) > MaxConditionLength {
		return errors.New("condition is too long")
	}
	return nil
}

func notBlank(value any) error {
	if s, ok := value.(string); ok && s != "" && strings.TrimSpace(s) == "" {
		return errors.New("must not be blank")
	}
	return nil
}
