package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

var testConfig = Config{Secret: "unit-test-secret", Issuer: "attendance.gateway"}

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestParseValidToken(t *testing.T) {
	token := signToken(t, testConfig.Secret, jwt.MapClaims{
		"sub":    "gateway",
		"iss":    testConfig.Issuer,
		"exp":    time.Now().Add(time.Hour).Unix(),
		"scopes": []string{ScopeAttendanceWrite, ScopeAttendanceRead},
	})

	claims, err := Parse(token, testConfig)
	require.NoError(t, err)
	require.Equal(t, "gateway", claims.Subject)
	require.True(t, claims.HasScope(ScopeAttendanceWrite))
	require.True(t, claims.HasScope(ScopeAttendanceRead))
	require.False(t, claims.HasScope("attendance:admin"))
}

func TestParseScopesAsSpaceSeparatedString(t *testing.T) {
	token := signToken(t, testConfig.Secret, jwt.MapClaims{
		"sub":    "gateway",
		"iss":    testConfig.Issuer,
		"exp":    time.Now().Add(time.Hour).Unix(),
		"scopes": ScopeAttendanceRead + " " + ScopeAttendanceWrite,
	})

	claims, err := Parse(token, testConfig)
	require.NoError(t, err)
	require.True(t, claims.HasScope(ScopeAttendanceRead))
	require.True(t, claims.HasScope(ScopeAttendanceWrite))
}

func TestParseRejectsWrongSecret(t *testing.T) {
	token := signToken(t, "other-secret", jwt.MapClaims{
		"sub": "gateway",
		"iss": testConfig.Issuer,
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	_, err := Parse(token, testConfig)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsWrongIssuer(t *testing.T) {
	token := signToken(t, testConfig.Secret, jwt.MapClaims{
		"sub": "gateway",
		"iss": "someone-else",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	_, err := Parse(token, testConfig)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsExpiredToken(t *testing.T) {
	token := signToken(t, testConfig.Secret, jwt.MapClaims{
		"sub": "gateway",
		"iss": testConfig.Issuer,
		"exp": time.Now().Add(-time.Minute).Unix(),
	})

	_, err := Parse(token, testConfig)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRequiresSubject(t *testing.T) {
	token := signToken(t, testConfig.Secret, jwt.MapClaims{
		"iss": testConfig.Issuer,
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	_, err := Parse(token, testConfig)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRequiresExpiry(t *testing.T) {
	token := signToken(t, testConfig.Secret, jwt.MapClaims{
		"sub": "gateway",
		"iss": testConfig.Issuer,
	})

	_, err := Parse(token, testConfig)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseEmptyToken(t *testing.T) {
	_, err := Parse("  ", testConfig)
	require.ErrorIs(t, err, ErrMissingToken)
}

func TestMiddlewareInjectsClaims(t *testing.T) {
	token := signToken(t, testConfig.Secret, jwt.MapClaims{
		"sub":    "gateway",
		"iss":    testConfig.Issuer,
		"exp":    time.Now().Add(time.Hour).Unix(),
		"scopes": []string{ScopeAttendanceWrite},
	})

	var seen *Claims
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := FromContext(r.Context())
		require.True(t, ok)
		seen = claims
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/v1/attendance/summary", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()

	NewMiddleware(testConfig).Wrap(next).ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.NotNil(t, seen)
	require.Equal(t, "gateway", seen.Subject)
	require.True(t, seen.HasScope(ScopeAttendanceWrite))
}

func TestMiddlewareRejectsMissingHeader(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("next handler should not run")
	})

	req := httptest.NewRequest(http.MethodGet, "/v1/attendance/summary", nil)
	rr := httptest.NewRecorder()

	NewMiddleware(testConfig).Wrap(next).ServeHTTP(rr, req)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestMiddlewareRejectsNonBearerHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/v1/attendance/summary", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	rr := httptest.NewRecorder()

	NewMiddleware(testConfig).Wrap(http.NotFoundHandler()).ServeHTTP(rr, req)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestMiddlewareExemptsHealthAndMetrics(t *testing.T) {
	for _, path := range []string{"/healthz", "/metrics"} {
		called := false
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
			w.WriteHeader(http.StatusOK)
		})

		req := httptest.NewRequest(http.MethodGet, path, nil)
		rr := httptest.NewRecorder()

		NewMiddleware(testConfig).Wrap(next).ServeHTTP(rr, req)
		require.True(t, called, path)
		require.Equal(t, http.StatusOK, rr.Code)
	}
}
