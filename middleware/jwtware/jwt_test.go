package jwtware_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-auth-client/middleware/jwtware"
)

var signingKey = []byte("test-secret")

// By default we set an expiration time 1 hour from now
func generateToken(t *testing.T, method jwt.SigningMethod, key []byte, claims jwt.MapClaims) string {
	t.Helper()

	if claims["exp"] == nil {
		claims["exp"] = time.Now().Add(time.Hour).Unix()
	}

	signed, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return signed
}

type roleClaims struct {
	jwt.MapClaims
	roles []string
}

func (r roleClaims) HasRole(role string) bool {
	for _, candidate := range r.roles {
		if candidate == role {
			return true
		}
	}
	return false
}

func newServer() router.Server[*fiber.App] {
	return router.NewFiberAdapter(func(a *fiber.App) *fiber.App {
		return fiber.New(fiber.Config{DisableStartupMessage: true})
	})
}

func newApp(cfg jwtware.Config) *fiber.App {
	srv := newServer()
	r := srv.Router()
	r.Get("/protected", func(ctx router.Context) error {
		claims, ok := jwtware.ClaimsFromContext(ctx, cfg.ContextKey)
		if !ok {
			return ctx.Status(router.StatusInternalServerError).SendString("no claims")
		}
		sub, _ := claims.GetSubject()
		return ctx.SendString(sub)
	}, jwtware.New(cfg))
	r.Get("/protected/:token", func(ctx router.Context) error {
		return ctx.SendString("ok")
	}, jwtware.New(cfg))
	return srv.WrappedRouter()
}

func do(t *testing.T, app *fiber.App, req *http.Request) (int, string) {
	t.Helper()
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestJWTWare_BasicHeaderExtraction(t *testing.T) {
	app := newApp(jwtware.Config{
		SigningKey: jwtware.SigningKey{Key: signingKey, JWTAlg: jwt.SigningMethodHS256.Alg()},
	})
	token := generateToken(t, jwt.SigningMethodHS256, signingKey, jwt.MapClaims{"sub": "12345"})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	status, body := do(t, app, req)

	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "12345", body)
}

func TestJWTWare_MissingOrMalformedHeader(t *testing.T) {
	app := newApp(jwtware.Config{SigningKey: jwtware.SigningKey{Key: signingKey}})

	for _, header := range []string{"", "Bearer", "Basic abc", "Bearertoken"} {
		t.Run(header, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			status, _ := do(t, app, req)
			assert.Equal(t, fiber.StatusBadRequest, status)
		})
	}
}

func TestJWTWare_RejectsBadSignatureAndAlgorithm(t *testing.T) {
	app := newApp(jwtware.Config{
		SigningKey: jwtware.SigningKey{Key: signingKey, JWTAlg: jwt.SigningMethodHS256.Alg()},
	})

	tests := map[string]string{
		"wrong key":     generateToken(t, jwt.SigningMethodHS256, []byte("other"), jwt.MapClaims{"sub": "1"}),
		"wrong alg":     generateToken(t, jwt.SigningMethodHS512, signingKey, jwt.MapClaims{"sub": "1"}),
		"expired token": generateToken(t, jwt.SigningMethodHS256, signingKey, jwt.MapClaims{"sub": "1", "exp": time.Now().Add(-time.Minute).Unix()}),
	}

	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			status, _ := do(t, app, req)
			assert.Equal(t, fiber.StatusUnauthorized, status)
		})
	}
}

func TestJWTWare_TokenLookupSources(t *testing.T) {
	token := generateToken(t, jwt.SigningMethodHS256, signingKey, jwt.MapClaims{"sub": "7"})
	app := newApp(jwtware.Config{
		SigningKey:  jwtware.SigningKey{Key: signingKey},
		TokenLookup: "header:Authorization,query:auth_token,cookie:jwt,param:token",
	})

	t.Run("query", func(t *testing.T) {
		status, body := do(t, app, httptest.NewRequest(http.MethodGet, "/protected?auth_token="+token, nil))
		assert.Equal(t, fiber.StatusOK, status)
		assert.Equal(t, "7", body)
	})

	t.Run("cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.AddCookie(&http.Cookie{Name: "jwt", Value: token})
		status, _ := do(t, app, req)
		assert.Equal(t, fiber.StatusOK, status)
	})

	t.Run("param", func(t *testing.T) {
		status, body := do(t, app, httptest.NewRequest(http.MethodGet, "/protected/"+token, nil))
		assert.Equal(t, fiber.StatusOK, status)
		assert.Equal(t, "ok", body)
	})
}

func TestJWTWare_CustomValidatorAndRole(t *testing.T) {
	validator := jwtware.TokenValidatorFunc(func(raw string) (jwt.Claims, error) {
		return roleClaims{MapClaims: jwt.MapClaims{"sub": raw}, roles: []string{"VIEWER"}}, nil
	})

	t.Run("role present", func(t *testing.T) {
		app := newApp(jwtware.Config{TokenValidator: validator, RequiredRole: "VIEWER", ContextKey: "claims"})
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer opaque")
		status, body := do(t, app, req)
		assert.Equal(t, fiber.StatusOK, status)
		assert.Equal(t, "opaque", body)
	})

	t.Run("role missing", func(t *testing.T) {
		app := newApp(jwtware.Config{TokenValidator: validator, RequiredRole: "ADMIN"})
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer opaque")
		status, _ := do(t, app, req)
		assert.Equal(t, fiber.StatusForbidden, status)
	})
}

func TestJWTWare_FilterAndListeners(t *testing.T) {
	var seen []string
	srv := newServer()
	srv.Router().Get("/open", func(ctx router.Context) error {
		return ctx.SendString("open")
	}, jwtware.New(jwtware.Config{
		SigningKey: jwtware.SigningKey{Key: signingKey},
		Filter:     func(router.Context) bool { return true },
	}))
	srv.Router().Get("/listened", func(ctx router.Context) error {
		return ctx.SendString("ok")
	}, jwtware.New(jwtware.Config{
		SigningKey: jwtware.SigningKey{Key: signingKey},
		ValidationListeners: []jwtware.ValidationListener{
			nil,
			func(_ router.Context, claims jwt.Claims) error {
				sub, _ := claims.GetSubject()
				seen = append(seen, sub)
				return nil
			},
		},
	}))
	app := srv.WrappedRouter()

	status, body := do(t, app, httptest.NewRequest(http.MethodGet, "/open", nil))
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "open", body)

	req := httptest.NewRequest(http.MethodGet, "/listened", nil)
	req.Header.Set("Authorization", "Bearer "+generateToken(t, jwt.SigningMethodHS256, signingKey, jwt.MapClaims{"sub": "42"}))
	status, _ = do(t, app, req)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, []string{"42"}, seen)
}

func TestJWTWare_RequiresValidatorOrKey(t *testing.T) {
	assert.Panics(t, func() { jwtware.New() })
}

func TestJWTWare_SuccessHandlerReplacesNext(t *testing.T) {
	srv := newServer()
	srv.Router().Get("/protected", func(ctx router.Context) error {
		return ctx.SendString("next")
	}, jwtware.New(jwtware.Config{
		SigningKey: jwtware.SigningKey{Key: signingKey},
		SuccessHandler: func(ctx router.Context) error {
			return ctx.SendString("success")
		},
	}))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+generateToken(t, jwt.SigningMethodHS256, signingKey, jwt.MapClaims{"sub": "1"}))
	status, body := do(t, srv.WrappedRouter(), req)

	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "success", body)
}
