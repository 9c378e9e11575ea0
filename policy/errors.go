package policy

import (
	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeUnresolvedRef     = "UNRESOLVED_REFERENCE"
	TextCodeInactiveRef       = "INACTIVE_REFERENCE"
	TextCodeOrganizationScope = "ORGANIZATION_MISMATCH"
	TextCodeDuplicateEntry    = "DUPLICATE_ENTRY"
	TextCodeEntityNotFound    = "ENTITY_NOT_FOUND"
	TextCodeRejected          = "REJECTED_BY_ENDPOINT"
	TextCodeNoOrganization    = "NO_ORGANIZATION_SCOPE"
)

// ErrUnresolvedReference is returned when an id is missing from the loaded catalog.
var ErrUnresolvedReference = goerrors.New("reference could not be resolved", goerrors.CategoryValidation).
	WithTextCode(TextCodeUnresolvedRef).
	WithCode(goerrors.CodeBadRequest)

// ErrInactiveReference is returned when a policy points at an inactive role.
var ErrInactiveReference = goerrors.New("reference is not active", goerrors.CategoryValidation).
	WithTextCode(TextCodeInactiveRef).
	WithCode(goerrors.CodeBadRequest)

// ErrOrganizationMismatch is returned when entities span organizations.
var ErrOrganizationMismatch = goerrors.New("entities belong to different organizations", goerrors.CategoryValidation).
	WithTextCode(TextCodeOrganizationScope).
	WithCode(goerrors.CodeBadRequest)

// ErrDuplicateEntry surfaces an endpoint uniqueness conflict.
var ErrDuplicateEntry = goerrors.New("an entry with the same name or code already exists", goerrors.CategoryValidation).
	WithTextCode(TextCodeDuplicateEntry).
	WithCode(goerrors.CodeConflict)

// ErrEntityNotFound surfaces an entity deleted concurrently.
var ErrEntityNotFound = goerrors.New("entity no longer exists", goerrors.CategoryValidation).
	WithTextCode(TextCodeEntityNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrRejected surfaces endpoint side validation failures.
var ErrRejected = goerrors.New("request rejected by policy endpoint", goerrors.CategoryValidation).
	WithTextCode(TextCodeRejected).
	WithCode(goerrors.CodeBadRequest)

// ErrNoOrganization is returned when there is no authenticated organization scope.
var ErrNoOrganization = goerrors.New("no organization scope available", goerrors.CategoryAuth).
	WithTextCode(TextCodeNoOrganization).
	WithCode(goerrors.CodeUnauthorized)

// IsValidationError reports whether err should be rendered next to the form
// that produced it.
func IsValidationError(err error) bool {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return false
	}
	return richErr.Category == goerrors.CategoryValidation
}

// IsNotFound reports whether err refers to an entity that no longer exists.
func IsNotFound(err error) bool {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return false
	}
	return richErr.TextCode == TextCodeEntityNotFound ||
		richErr.TextCode == TextCodeUnresolvedRef ||
		richErr.Category == goerrors.CategoryNotFound
}

// surfaceEndpointError maps endpoint failures onto validation errors where
// the calling form should display them. Everything else passes through.
func surfaceEndpointError(err error, entity string) error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return err
	}

	var base *goerrors.Error
	switch richErr.Category {
	case goerrors.CategoryConflict:
		base = ErrDuplicateEntry
	case goerrors.CategoryNotFound:
		base = ErrEntityNotFound
	case goerrors.CategoryValidation, goerrors.CategoryBadInput:
		base = ErrRejected
	default:
		return err
	}

	surfaced := base.Clone()
	if richErr.Message != "" {
		surfaced.Message = richErr.Message
	}
	return surfaced.WithMetadata(map[string]any{
		"entity":          entity,
		"cause":           err.Error(),
		"cause_category":  richErr.Category,
		"cause_text_code": richErr.TextCode,
	})
}
