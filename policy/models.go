// Package policy holds the Role-Resource-Action-Policy authorization model:
// entity validation, policy assembly against the loaded catalog, effective
// permission checks and the administration service that writes through the
// remote policy endpoint.
//
// Entities are reference data owned by an organization. The package never
// evaluates a policy condition, it only stores it.
package policy

import "strings"

// Role groups permission keys inside an organization. Name is unique per
// organization, enforced by the endpoint.
type Role struct {
	ID             int64    `json:"id,omitempty"`
	OrganizationID int64    `json:"organizationId"`
	Name           string   `json:"name"`
	Description    string   `json:"description,omitempty"`
	PermissionKeys []string `json:"permissionKeys,omitempty"`
	Active         bool     `json:"active"`
}

// Resource is a protectable noun such as a screen or entity type.
type Resource struct {
	ID             int64  `json:"id,omitempty"`
	OrganizationID int64  `json:"organizationId"`
	Name           string `json:"name"`
	Code           string `json:"code"`
}

// Action is a protectable verb such as read or delete.
type Action struct {
	ID             int64  `json:"id,omitempty"`
	OrganizationID int64  `json:"organizationId"`
	Name           string `json:"name"`
	Code           string `json:"code"`
}

// Policy grants Action on Resource to Role, optionally under Condition.
// Condition is evaluated by the remote authorization service only.
type Policy struct {
	ID             int64    `json:"id,omitempty"`
	OrganizationID int64    `json:"organizationId"`
	Role           Role     `json:"role"`
	Resource       Resource `json:"resource"`
	Action         Action   `json:"action"`
	Condition      *string  `json:"condition,omitempty"`
	Description    string   `json:"description,omitempty"`
	Active         bool     `json:"active"`
}

// HasCondition reports whether the policy carries a non blank condition.
func (p Policy) HasCondition() bool {
	return p.Condition != nil && strings.TrimSpace(*p.Condition) != ""
}

// Key returns the permission key granted by the policy.
func (p Policy) Key() string {
	return PermissionKey(p.Resource.Code, p.Action.Code)
}

// Draft carries the user editable fields of a policy being assembled.
type Draft struct {
	ID          int64
	Condition   *string
	Description string
	Active      bool
}

// Catalog is the set of roles, resources and actions currently loaded for
// an organization. Policies are assembled only from these lists.
type Catalog struct {
	Roles     []Role
	Resources []Resource
	Actions   []Action
}

func (c Catalog) role(id int64) (Role, bool) {
	for _, r := range c.Roles {
		if r.ID == id {
			return r, true
		}
	}
	return Role{}, false
}

func (c Catalog) resource(id int64) (Resource, bool) {
	for _, r := range c.Resources {
		if r.ID == id {
			return r, true
		}
	}
	return Resource{}, false
}

func (c Catalog) action(id int64) (Action, bool) {
	for _, a := range c.Actions {
		if a.ID == id {
			return a, true
		}
	}
	return Action{}, false
}

// SearchQuery is the body of the role and policy search endpoints.
type SearchQuery struct {
	OrganizationID int64  `json:"organizationId"`
	Keyword        string `json:"keyword,omitempty"`
	Page           int    `json:"page"`
	Size           int    `json:"size"`
	Sort           string `json:"sort,omitempty"`
}

// Page is a page of search results.
type Page[T any] struct {
	Content       []T   `json:"content"`
	TotalElements int64 `json:"totalElements"`
	TotalPages    int   `json:"totalPages"`
}
