package http_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apphttp "github.com/jhoicas/retail-ledger/internal/interfaces/http"
	pkgjwt "github.com/jhoicas/retail-ledger/pkg/jwt"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

const (
	testJWTSecret = "test-secret-key-for-unit-tests"
	testUserID    = "op-0001"
	testIssuer    = "retail-ledger-test"
	testExpMin    = 60
)

// tokenForRole genera el header Authorization para un operador con el rol indicado.
func tokenForRole(t *testing.T, role string) string {
	t.Helper()
	tok, err := pkgjwt.Generate(testJWTSecret, testUserID, role, testIssuer, testExpMin)
	require.NoError(t, err)
	return "Bearer " + tok
}

// guardedApp expone GET /guarded detrás de AuthMiddleware + RequireRole(roles...).
func guardedApp(roles ...string) *fiber.App {
	app := fiber.New()
	app.Get("/guarded",
		apphttp.AuthMiddleware(testJWTSecret, testIssuer),
		apphttp.RequireRole(roles...),
		func(c *fiber.Ctx) error {
			return c.JSON(fiber.Map{"operator": apphttp.GetUserID(c), "role": apphttp.GetRole(c)})
		},
	)
	return app
}

func get(t *testing.T, app *fiber.App, path, authHeader string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

// ──────────────────────────────────────────────────────────────────────────────
// RequireRole
// ──────────────────────────────────────────────────────────────────────────────

func TestRequireRole_MatrizDePermisos(t *testing.T) {
	mutate := []string{pkgjwt.RoleAdmin}
	read := []string{pkgjwt.RoleAdmin, pkgjwt.RoleSupervisor}

	cases := []struct {
		name    string
		allowed []string
		role    string
		status  int
		code    string
	}{
		{"admin muta", mutate, pkgjwt.RoleAdmin, http.StatusOK, ""},
		{"supervisor no muta", mutate, pkgjwt.RoleSupervisor, http.StatusForbidden, "FORBIDDEN"},
		{"supervisor consulta", read, pkgjwt.RoleSupervisor, http.StatusOK, ""},
		{"rol desconocido", read, "cajero", http.StatusForbidden, "FORBIDDEN"},
		{"token sin rol", mutate, "", http.StatusUnauthorized, "MISSING_ROLE"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := get(t, guardedApp(tc.allowed...), "/guarded", tokenForRole(t, tc.role))
			defer resp.Body.Close()

			assert.Equal(t, tc.status, resp.StatusCode)
			if tc.code != "" {
				body, _ := io.ReadAll(resp.Body)
				assert.Contains(t, string(body), tc.code)
			}
		})
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// AuthMiddleware
// ──────────────────────────────────────────────────────────────────────────────

func TestAuthMiddleware_RechazaHeadersInvalidos(t *testing.T) {
	cases := map[string]struct {
		header string
		code   string
	}{
		"sin header":       {"", "MISSING_TOKEN"},
		"sin esquema":      {"abc.def.ghi", "INVALID_TOKEN"},
		"otro esquema":     {"Basic dXNlcjpwYXNz", "INVALID_TOKEN"},
		"token malformado": {"Bearer token.invalido.aqui", "INVALID_TOKEN"},
	}
	app := guardedApp(pkgjwt.RoleAdmin)
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			resp := get(t, app, "/guarded", tc.header)
			defer resp.Body.Close()

			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			body, _ := io.ReadAll(resp.Body)
			assert.Contains(t, string(body), tc.code)
		})
	}
}

func TestAuthMiddleware_OperadorSaleDelToken(t *testing.T) {
	resp := get(t, guardedApp(pkgjwt.RoleAdmin), "/guarded", tokenForRole(t, pkgjwt.RoleAdmin))
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, testUserID, body["operator"])
	assert.Equal(t, pkgjwt.RoleAdmin, body["role"])
}

// ──────────────────────────────────────────────────────────────────────────────
// pkg/jwt
// ──────────────────────────────────────────────────────────────────────────────

func TestJWT_GenerateYParse(t *testing.T) {
	tok, err := pkgjwt.Generate(testJWTSecret, testUserID, pkgjwt.RoleSupervisor, testIssuer, testExpMin)
	require.NoError(t, err)

	userID, role, err := pkgjwt.Parse(testJWTSecret, testIssuer, tok)
	require.NoError(t, err)
	assert.Equal(t, testUserID, userID)
	assert.Equal(t, pkgjwt.RoleSupervisor, role)
}

func TestJWT_TokensInvalidos(t *testing.T) {
	expired, err := pkgjwt.Generate(testJWTSecret, testUserID, pkgjwt.RoleAdmin, testIssuer, -1)
	require.NoError(t, err)
	_, _, err = pkgjwt.Parse(testJWTSecret, testIssuer, expired)
	assert.Error(t, err, "token expirado")

	valid, err := pkgjwt.Generate(testJWTSecret, testUserID, pkgjwt.RoleAdmin, testIssuer, testExpMin)
	require.NoError(t, err)
	_, _, err = pkgjwt.Parse("otro-secret-completamente-distinto", testIssuer, valid)
	assert.Error(t, err, "secret incorrecto")

	_, err = pkgjwt.Generate("", testUserID, pkgjwt.RoleAdmin, testIssuer, testExpMin)
	assert.ErrorIs(t, err, pkgjwt.ErrEmptySecret)
}

func TestJWT_IssuerDistintoRechazado(t *testing.T) {
	tok, err := pkgjwt.Generate(testJWTSecret, testUserID, pkgjwt.RoleAdmin, "otro-servicio", testExpMin)
	require.NoError(t, err)

	_, _, err = pkgjwt.Parse(testJWTSecret, testIssuer, tok)
	assert.ErrorIs(t, err, gojwt.ErrTokenInvalidIssuer)

	userID, _, err := pkgjwt.Parse(testJWTSecret, "", tok)
	require.NoError(t, err, "sin issuer configurado no se verifica")
	assert.Equal(t, testUserID, userID)
}

func TestAuthMiddleware_IssuerAjenoRetorna401(t *testing.T) {
	tok, err := pkgjwt.Generate(testJWTSecret, testUserID, pkgjwt.RoleAdmin, "otro-servicio", testExpMin)
	require.NoError(t, err)

	resp := get(t, guardedApp(pkgjwt.RoleAdmin), "/guarded", "Bearer "+tok)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
