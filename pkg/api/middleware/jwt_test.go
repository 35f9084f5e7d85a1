package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mentorlane/insights/pkg/auth"
)

const testSecret = "test-secret-key"

func protectedRequest(t *testing.T, authHeader string) *httptest.ResponseRecorder {
	t.Helper()

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/tables", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	next := func(c echo.Context) error {
		claims, ok := c.Get("claims").(*auth.Claims)
		require.True(t, ok)
		return c.JSON(http.StatusOK, map[string]string{"subject": claims.Subject})
	}
	err := JWTMiddleware(testSecret)(next)(c)
	require.NoError(t, err)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error
}

func TestJWTMiddleware(t *testing.T) {
	t.Run("Error - missing header", func(t *testing.T) {
		rec := protectedRequest(t, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "missing_token", errorCode(t, rec))
	})

	t.Run("Error - malformed header", func(t *testing.T) {
		rec := protectedRequest(t, "Token abc")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "invalid_token_format", errorCode(t, rec))
	})

	t.Run("Error - garbage token", func(t *testing.T) {
		rec := protectedRequest(t, "Bearer not.a.jwt")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "invalid_token", errorCode(t, rec))
	})

	t.Run("Error - wrong secret", func(t *testing.T) {
		token, err := auth.GenerateJWT("ops", "ops@mentorlane.com", "another-secret", 1)
		require.NoError(t, err)

		rec := protectedRequest(t, "Bearer "+token)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "invalid_token", errorCode(t, rec))
	})

	t.Run("Success - valid token reaches handler", func(t *testing.T) {
		token, err := auth.GenerateJWT("ops", "ops@mentorlane.com", testSecret, 1)
		require.NoError(t, err)

		rec := protectedRequest(t, "Bearer "+token)
		assert.Equal(t, http.StatusOK, rec.Code)

		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "ops", body["subject"])
	})
}

func TestGenerateAndValidateJWT(t *testing.T) {
	token, err := auth.GenerateJWT("analyst", "analyst@mentorlane.com", testSecret, 24)
	require.NoError(t, err)

	claims, err := auth.ValidateJWT(token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, "analyst", claims.Subject)
	assert.Equal(t, "analyst@mentorlane.com", claims.Email)
	assert.True(t, claims.ExpiresAt.After(claims.IssuedAt.Time))
}
