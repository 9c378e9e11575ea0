package devserver

import (
	"sort"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	authclient "github.com/goliatone/go-auth-client"
	"github.com/goliatone/go-auth-client/middleware/jwtware"
	"github.com/goliatone/go-auth-client/policy"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
)

const claimsLocalKey = "devserver.claims"

var errForbiddenScope = goerrors.New("organization outside of token scope", goerrors.CategoryAuthz).
	WithTextCode("FORBIDDEN_SCOPE").
	WithCode(goerrors.CodeForbidden)

func (s *Server) routes(r router.Router[*fiber.App]) {
	requireToken := s.bearer()

	auth := r.Group("/auth")
	auth.Post("/login", s.login)
	auth.Post("/me", s.me, requireToken)
	auth.Post("/logout", s.logout)
	auth.Post("/refresh", s.refresh)

	r.Get("/roles", s.listRoles, requireToken)
	r.Post("/roles", s.createRole, requireToken)
	r.Post("/roles/search", s.searchRoles, requireToken)
	r.Put("/roles/:id", s.updateRole, requireToken)
	r.Delete("/roles/:id", s.deleteRole, requireToken)

	r.Get("/resources", s.listResources, requireToken)
	r.Post("/resources", s.createResource, requireToken)
	r.Put("/resources/:id", s.updateResource, requireToken)
	r.Delete("/resources/:id", s.deleteResource, requireToken)

	r.Get("/actions", s.listActions, requireToken)
	r.Post("/actions", s.createAction, requireToken)
	r.Put("/actions/:id", s.updateAction, requireToken)
	r.Delete("/actions/:id", s.deleteAction, requireToken)

	r.Get("/policy", s.listPolicies, requireToken)
	r.Post("/policy", s.createPolicy, requireToken)
	r.Post("/policy/search", s.searchPolicies, requireToken)
	r.Put("/policy/:id", s.updatePolicy, requireToken)
	r.Delete("/policy/:id", s.deletePolicy, requireToken)
}

func ok(ctx router.Context, status int, message string, data any) error {
	body := map[string]any{"success": true, "message": message}
	if data != nil {
		body["data"] = data
	}
	return ctx.JSON(status, body)
}

func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	message := err.Error()

	var fiberErr *fiber.Error
	var richErr *goerrors.Error
	switch {
	case goerrors.As(err, &fiberErr):
		status = fiberErr.Code
		message = fiberErr.Message
	case goerrors.As(err, &richErr):
		message = richErr.Message
		switch richErr.Category {
		case goerrors.CategoryAuth:
			status = fiber.StatusUnauthorized
		case goerrors.CategoryAuthz:
			status = fiber.StatusForbidden
		case goerrors.CategoryNotFound:
			status = fiber.StatusNotFound
		case goerrors.CategoryConflict:
			status = fiber.StatusConflict
		case goerrors.CategoryValidation, goerrors.CategoryBadInput:
			status = fiber.StatusBadRequest
		}
	}

	if status >= fiber.StatusInternalServerError {
		s.logger.Error("devserver request failed", "path", c.Path(), "error", err)
	} else {
		s.logger.Debug("devserver request rejected", "path", c.Path(), "status", status, "error", err)
	}

	return c.Status(status).JSON(map[string]any{
		"success": false,
		"message": message,
	})
}

func (s *Server) bearer() router.MiddlewareFunc {
	return jwtware.New(jwtware.Config{
		ContextKey: claimsLocalKey,
		TokenValidator: jwtware.TokenValidatorFunc(func(raw string) (jwt.Claims, error) {
			return s.tokens.validate(raw)
		}),
		ErrorHandler: func(_ router.Context, err error) error {
			return err
		},
	})
}

func claimsFrom(ctx router.Context) *AccessClaims {
	claims, _ := jwtware.ClaimsFromContext(ctx, claimsLocalKey)
	access, _ := claims.(*AccessClaims)
	return access
}

func (s *Server) login(c router.Context) error {
	credentials := authclient.Credentials{}
	if err := c.Bind(&credentials); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid login payload")
	}
	if err := credentials.Validate(); err != nil {
		return err
	}

	acct, found := s.dir.accountByEmail(credentials.Email)
	if !found {
		return ErrMismatchedPassword
	}
	if err := ComparePasswordAndHash(credentials.Password, acct.passwordHash); err != nil {
		return err
	}

	access, refresh, err := s.tokens.issue(acct)
	if err != nil {
		return err
	}

	return ok(c, router.StatusOK, "login successful", map[string]any{
		"accessToken":    access,
		"refreshToken":   refresh,
		"userId":         acct.id,
		"email":          acct.email,
		"organizationId": acct.organizationID,
		"roles":          acct.roles,
	})
}

func (s *Server) me(c router.Context) error {
	claims := claimsFrom(c)
	if claims == nil {
		return errTokenMalformed
	}
	userID, err := claims.UserID()
	if err != nil {
		return errTokenMalformed
	}
	acct, found := s.dir.accountByID(userID)
	if !found {
		return errTokenMalformed
	}
	return ok(c, router.StatusOK, "", s.dir.userFor(acct))
}

func (s *Server) logout(c router.Context) error {
	refresh := c.Query("refreshToken", "")
	if refresh == "" {
		return goerrors.New("refreshToken is required", goerrors.CategoryValidation)
	}
	revoked := s.tokens.revoke(refresh)
	return ok(c, router.StatusOK, "logged out", map[string]any{"revoked": revoked})
}

func (s *Server) refresh(c router.Context) error {
	refresh := c.Query("refreshToken", "")
	if refresh == "" {
		return goerrors.New("refreshToken is required", goerrors.CategoryValidation)
	}

	userID, err := s.tokens.consume(refresh)
	if err != nil {
		return err
	}
	acct, found := s.dir.accountByID(userID)
	if !found {
		return errRefreshRejected
	}

	access, next, err := s.tokens.issue(acct)
	if err != nil {
		return err
	}
	return ok(c, router.StatusOK, "token refreshed", authclient.TokenPair{
		AccessToken:  access,
		RefreshToken: next,
	})
}

// scope returns the organization a request may touch.
func scope(c router.Context, requested int64) (int64, error) {
	claims := claimsFrom(c)
	if claims == nil {
		return 0, errTokenMalformed
	}
	if requested != 0 && requested != claims.OrganizationID {
		return 0, errForbiddenScope
	}
	return claims.OrganizationID, nil
}

func pathID(c router.Context) (int64, error) {
	id := c.ParamsInt("id", 0)
	if id <= 0 {
		return 0, goerrors.New("invalid id", goerrors.CategoryBadInput)
	}
	return int64(id), nil
}

func parse[T any](c router.Context, into *T) error {
	if err := c.Bind(into); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid payload")
	}
	return nil
}

func (s *Server) listRoles(c router.Context) error {
	orgID, err := scope(c, int64(c.QueryInt("organizationId", 0)))
	if err != nil {
		return err
	}
	return ok(c, router.StatusOK, "", s.dir.listRoles(orgID))
}

func (s *Server) saveRole(c router.Context, id int64, status int) error {
	role := policy.Role{}
	if err := parse(c, &role); err != nil {
		return err
	}
	orgID, err := scope(c, role.OrganizationID)
	if err != nil {
		return err
	}
	role.ID = id
	role.OrganizationID = orgID
	if err := role.Validate(); err != nil {
		return err
	}
	saved, err := s.dir.saveRole(role)
	if err != nil {
		return err
	}
	return ok(c, status, "role saved", saved)
}

func (s *Server) createRole(c router.Context) error {
	return s.saveRole(c, 0, fiber.StatusCreated)
}

func (s *Server) updateRole(c router.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	return s.saveRole(c, id, router.StatusOK)
}

func (s *Server) deleteRole(c router.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := s.dir.deleteRole(id); err != nil {
		return err
	}
	return ok(c, router.StatusOK, "role deleted", nil)
}

func (s *Server) searchRoles(c router.Context) error {
	query := policy.SearchQuery{}
	if err := parse(c, &query); err != nil {
		return err
	}
	orgID, err := scope(c, query.OrganizationID)
	if err != nil {
		return err
	}

	found := []policy.Role{}
	for _, role := range s.dir.listRoles(orgID) {
		if matches(query.Keyword, role.Name, role.Description) {
			found = append(found, role)
		}
	}
	sortByName(found, query.Sort, func(r policy.Role) string { return r.Name })

	return ok(c, router.StatusOK, "", page(found, query))
}

func (s *Server) listResources(c router.Context) error {
	orgID, err := scope(c, int64(c.QueryInt("organizationId", 0)))
	if err != nil {
		return err
	}
	return ok(c, router.StatusOK, "", s.dir.listResources(orgID))
}

func (s *Server) saveResource(c router.Context, id int64, status int) error {
	resource := policy.Resource{}
	if err := parse(c, &resource); err != nil {
		return err
	}
	orgID, err := scope(c, resource.OrganizationID)
	if err != nil {
		return err
	}
	resource.ID = id
	resource.OrganizationID = orgID
	if err := resource.Validate(); err != nil {
		return err
	}
	saved, err := s.dir.saveResource(resource)
	if err != nil {
		return err
	}
	return ok(c, status, "resource saved", saved)
}

func (s *Server) createResource(c router.Context) error {
	return s.saveResource(c, 0, fiber.StatusCreated)
}

func (s *Server) updateResource(c router.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	return s.saveResource(c, id, router.StatusOK)
}

func (s *Server) deleteResource(c router.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := s.dir.deleteResource(id); err != nil {
		return err
	}
	return ok(c, router.StatusOK, "resource deleted", nil)
}

func (s *Server) listActions(c router.Context) error {
	orgID, err := scope(c, int64(c.QueryInt("organizationId", 0)))
	if err != nil {
		return err
	}
	return ok(c, router.StatusOK, "", s.dir.listActions(orgID))
}

func (s *Server) saveAction(c router.Context, id int64, status int) error {
	action := policy.Action{}
	if err := parse(c, &action); err != nil {
		return err
	}
	orgID, err := scope(c, action.OrganizationID)
	if err != nil {
		return err
	}
	action.ID = id
	action.OrganizationID = orgID
	if err := action.Validate(); err != nil {
		return err
	}
	saved, err := s.dir.saveAction(action)
	if err != nil {
		return err
	}
	return ok(c, status, "action saved", saved)
}

func (s *Server) createAction(c router.Context) error {
	return s.saveAction(c, 0, fiber.StatusCreated)
}

func (s *Server) updateAction(c router.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	return s.saveAction(c, id, router.StatusOK)
}

func (s *Server) deleteAction(c router.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := s.dir.deleteAction(id); err != nil {
		return err
	}
	return ok(c, router.StatusOK, "action deleted", nil)
}

func (s *Server) listPolicies(c router.Context) error {
	orgID, err := scope(c, int64(c.QueryInt("organizationId", 0)))
	if err != nil {
		return err
	}
	return ok(c, router.StatusOK, "", s.dir.listPolicies(orgID))
}

func (s *Server) savePolicy(c router.Context, id int64, status int) error {
	p := policy.Policy{}
	if err := parse(c, &p); err != nil {
		return err
	}
	orgID, err := scope(c, p.OrganizationID)
	if err != nil {
		return err
	}
	p.ID = id
	p.OrganizationID = orgID

	saved, err := s.dir.savePolicy(p)
	if err != nil {
		return err
	}
	return ok(c, status, "policy saved", saved)
}

func (s *Server) createPolicy(c router.Context) error {
	return s.savePolicy(c, 0, fiber.StatusCreated)
}

func (s *Server) updatePolicy(c router.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	return s.savePolicy(c, id, router.StatusOK)
}

func (s *Server) deletePolicy(c router.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := s.dir.deletePolicy(id); err != nil {
		return err
	}
	return ok(c, router.StatusOK, "policy deleted", nil)
}

func (s *Server) searchPolicies(c router.Context) error {
	query := policy.SearchQuery{}
	if err := parse(c, &query); err != nil {
		return err
	}
	orgID, err := scope(c, query.OrganizationID)
	if err != nil {
		return err
	}

	found := []policy.Policy{}
	for _, p := range s.dir.listPolicies(orgID) {
		if matches(query.Keyword, p.Description, p.Role.Name, p.Resource.Code, p.Action.Code) {
			found = append(found, p)
		}
	}
	sortByName(found, query.Sort, func(p policy.Policy) string { return p.Key() })

	return ok(c, router.StatusOK, "", page(found, query))
}

// sortByName honours "name" and "name,desc" style sort parameters. Anything
// else keeps id order.
func sortByName[T any](items []T, sortParam string, key func(T) string) {
	field, direction, _ := strings.Cut(strings.ToLower(strings.TrimSpace(sortParam)), ",")
	if field == "" {
		return
	}
	desc := strings.TrimSpace(direction) == "desc"
	sort.SliceStable(items, func(i, j int) bool {
		if desc {
			return key(items[i]) > key(items[j])
		}
		return key(items[i]) < key(items[j])
	})
}
