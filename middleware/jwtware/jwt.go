// Package jwtware is go-router middleware that extracts a bearer JWT from
// the request, validates it and stores the claims in the request locals.
package jwtware

import (
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
)

var (
	defaultTokenLookup = "header:" + router.HeaderAuthorization

	ErrJWTMissingOrMalformed = goerrors.New("missing or malformed JWT", goerrors.CategoryAuth).
					WithTextCode("TOKEN_MISSING").
					WithCode(goerrors.CodeUnauthorized)
	ErrInsufficientRole = goerrors.New("access denied: required role not found", goerrors.CategoryAuthz).
				WithTextCode("ROLE_REQUIRED").
				WithCode(goerrors.CodeForbidden)
)

// TokenValidator validates a raw token and returns its claims.
type TokenValidator interface {
	Validate(tokenString string) (jwt.Claims, error)
}

// TokenValidatorFunc adapts a function to TokenValidator.
type TokenValidatorFunc func(tokenString string) (jwt.Claims, error)

// Validate implements TokenValidator.
func (f TokenValidatorFunc) Validate(tokenString string) (jwt.Claims, error) {
	return f(tokenString)
}

// RoleHolder is implemented by claims that carry roles. RequiredRole only
// works with claims that implement it.
type RoleHolder interface {
	HasRole(role string) bool
}

// ValidationListener is invoked after a token has been validated but before authorization checks.
type ValidationListener func(ctx router.Context, claims jwt.Claims) error

type Config struct {
	Filter func(router.Context) bool
	// SuccessHandler replaces the next handler once the claims are stored.
	SuccessHandler router.HandlerFunc
	ErrorHandler   router.ErrorHandler
	// SigningKey is used by the default validator when TokenValidator is nil.
	SigningKey  SigningKey
	ContextKey  string
	TokenLookup string
	AuthScheme  string
	// TokenValidator takes precedence over SigningKey.
	TokenValidator TokenValidator

	// RequiredRole specifies an exact role that must be present
	RequiredRole string

	// ValidationListeners are invoked after token validation succeeds.
	ValidationListeners []ValidationListener
}

type SigningKey struct {
	JWTAlg string
	Key    any
}

func New(config ...Config) router.MiddlewareFunc {
	cfg := GetDefaultConfig(config...)
	extractors := cfg.getExtractors()

	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			if cfg.Filter != nil && cfg.Filter(ctx) {
				return next(ctx)
			}

			raw, err := ExtractRawTokenFromContext(ctx, extractors)
			if err != nil {
				return cfg.ErrorHandler(ctx, err)
			}

			claims, err := cfg.TokenValidator.Validate(raw)
			if err != nil {
				return cfg.ErrorHandler(ctx, err)
			}

			if err := cfg.runValidationListeners(ctx, claims); err != nil {
				return cfg.ErrorHandler(ctx, err)
			}

			if err := performAuthorizationChecks(claims, cfg); err != nil {
				return cfg.ErrorHandler(ctx, err)
			}

			ctx.Locals(cfg.ContextKey, claims)

			if cfg.SuccessHandler != nil {
				return cfg.SuccessHandler(ctx)
			}
			return next(ctx)
		}
	}
}

// ClaimsFromContext returns the claims stored by the middleware under key.
func ClaimsFromContext(ctx router.Context, key string) (jwt.Claims, bool) {
	if key == "" {
		key = "user"
	}
	claims, ok := ctx.Locals(key).(jwt.Claims)
	return claims, ok && claims != nil
}

func performAuthorizationChecks(claims jwt.Claims, cfg Config) error {
	if cfg.RequiredRole == "" {
		return nil
	}

	holder, ok := claims.(RoleHolder)
	if !ok || !holder.HasRole(cfg.RequiredRole) {
		return ErrInsufficientRole.Clone().WithMetadata(map[string]any{
			"required_role": cfg.RequiredRole,
		})
	}
	return nil
}

// ExtractRawTokenFromContext runs extractors in order and returns the first
// token found.
func ExtractRawTokenFromContext(ctx router.Context, extractors []JWTExtractor) (string, error) {
	var raw string
	var err error = ErrJWTMissingOrMalformed

	for _, extractor := range extractors {
		raw, err = extractor(ctx)
		if raw != "" && err == nil {
			break
		}
	}

	return raw, err
}

func GetDefaultConfig(config ...Config) (cfg Config) {
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = func(ctx router.Context, err error) error {
			var richErr *goerrors.Error
			if goerrors.As(err, &richErr) {
				switch richErr.TextCode {
				case ErrJWTMissingOrMalformed.TextCode:
					return ctx.Status(router.StatusBadRequest).SendString(ErrJWTMissingOrMalformed.Message)
				case ErrInsufficientRole.TextCode:
					return ctx.Status(router.StatusForbidden).SendString(ErrInsufficientRole.Message)
				}
			}
			return ctx.Status(router.StatusUnauthorized).SendString("Invalid or expired token")
		}
	}

	if cfg.TokenValidator == nil {
		if cfg.SigningKey.Key == nil {
			panic("jwtware: configuration requires a TokenValidator or a SigningKey")
		}
		cfg.TokenValidator = signingKeyValidator(cfg.SigningKey)
	}

	if cfg.ContextKey == "" {
		cfg.ContextKey = "user"
	}

	if cfg.TokenLookup == "" {
		cfg.TokenLookup = defaultTokenLookup
	}

	if cfg.AuthScheme == "" {
		cfg.AuthScheme = "Bearer"
	}

	return cfg
}

func (cfg *Config) getExtractors() []JWTExtractor {
	return GetExtractors(cfg.TokenLookup, cfg.AuthScheme)
}

func (cfg *Config) runValidationListeners(ctx router.Context, claims jwt.Claims) error {
	for _, listener := range cfg.ValidationListeners {
		if listener == nil {
			continue
		}
		if err := listener(ctx, claims); err != nil {
			return err
		}
	}
	return nil
}

func GetExtractors(tokenLookup string, authSchemes ...string) []JWTExtractor {
	extractors := make([]JWTExtractor, 0)

	authScheme := "Bearer"
	if len(authSchemes) > 0 {
		authScheme = strings.TrimSpace(authSchemes[0])
	}

	// header:Authorization,cookie:jwt,query:auth_token,param:token
	for _, rootPart := range strings.Split(tokenLookup, ",") {
		parts := strings.Split(strings.TrimSpace(rootPart), ":")
		if len(parts) != 2 {
			continue
		}
		for i, el := range parts {
			parts[i] = strings.TrimSpace(el)
		}

		switch parts[0] {
		case "header":
			extractors = append(extractors, jwtFromHeader(parts[1], authScheme))
		case "query":
			extractors = append(extractors, jwtFromQuery(parts[1]))
		case "param":
			extractors = append(extractors, jwtFromParam(parts[1]))
		case "cookie":
			extractors = append(extractors, jwtFromCookie(parts[1]))
		}
	}

	return extractors
}

type JWTExtractor func(c router.Context) (string, error)

// jwtFromHeader returns a function that extracts token from the request header.
func jwtFromHeader(header string, authScheme string) JWTExtractor {
	return func(c router.Context) (string, error) {
		a := c.Header(header)
		l := len(authScheme)
		if l == 0 {
			return "", ErrJWTMissingOrMalformed
		}
		if len(a) > l+1 && strings.EqualFold(a[:l], authScheme) && a[l] == ' ' {
			if token := strings.TrimSpace(a[l:]); token != "" {
				return token, nil
			}
		}
		return "", ErrJWTMissingOrMalformed
	}
}

// jwtFromQuery returns a function that extracts token from the query string.
func jwtFromQuery(param string) JWTExtractor {
	return func(c router.Context) (string, error) {
		token := c.Query(param, "")
		if token == "" {
			return "", ErrJWTMissingOrMalformed
		}
		return token, nil
	}
}

// jwtFromParam returns a function that extracts token from the url param string.
func jwtFromParam(param string) JWTExtractor {
	return func(c router.Context) (string, error) {
		token := c.Param(param)
		if token == "" {
			return "", ErrJWTMissingOrMalformed
		}
		return token, nil
	}
}

// jwtFromCookie returns a function that extracts token from the named cookie.
func jwtFromCookie(name string) JWTExtractor {
	return func(c router.Context) (string, error) {
		token := c.Cookies(name)
		if token == "" {
			return "", ErrJWTMissingOrMalformed
		}
		return token, nil
	}
}

func signingKeyValidator(key SigningKey) TokenValidator {
	keyFunc := signingKeyFunc(key)
	return TokenValidatorFunc(func(raw string) (jwt.Claims, error) {
		claims := jwt.MapClaims{}
		token, err := jwt.ParseWithClaims(raw, claims, keyFunc)
		if err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryAuth, "invalid token")
		}
		if !token.Valid {
			return nil, goerrors.New("invalid token", goerrors.CategoryAuth)
		}
		return claims, nil
	})
}

func signingKeyFunc(key SigningKey) jwt.Keyfunc {
	return func(token *jwt.Token) (any, error) {
		if key.JWTAlg != "" {
			alg, ok := token.Header["alg"].(string)
			if !ok {
				return nil, fmt.Errorf("unexpected JWT signing method: expected %q got: missing json type", key.JWTAlg)
			}
			if alg != key.JWTAlg {
				return nil, fmt.Errorf("unexpected jwt signing method: expected: %q: got: %q", key.JWTAlg, alg)
			}
		}
		return key.Key, nil
	}
}
