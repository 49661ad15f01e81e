package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func contextWithRequest(headers map[string]string) *gin.Context {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	for k, v := range headers {
		c.Request.Header.Set(k, v)
	}
	return c
}

func signToken(t *testing.T, secret, subject string) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": subject,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestResolveIdentity_FromVerifiedJWT(t *testing.T) {
	cfg := IdentityConfig{JWTSecret: "s3cret"}
	token := signToken(t, "s3cret", "alice")

	c := contextWithRequest(map[string]string{"Authorization": "Bearer " + token})
	assert.Equal(t, "alice", ResolveIdentity(c, cfg))
}

func TestResolveIdentity_RejectsBadSignature(t *testing.T) {
	cfg := IdentityConfig{JWTSecret: "s3cret"}
	token := signToken(t, "wrong-secret", "alice")

	c := contextWithRequest(map[string]string{"Authorization": "Bearer " + token})
	assert.Empty(t, ResolveIdentity(c, cfg))
}

func TestResolveIdentity_UnverifiedWhenNoSecret(t *testing.T) {
	cfg := DefaultIdentityConfig()
	token := signToken(t, "whatever", "bob")

	c := contextWithRequest(map[string]string{"Authorization": "Bearer " + token})
	assert.Equal(t, "bob", ResolveIdentity(c, cfg))
}

func TestResolveIdentity_HeaderFallback(t *testing.T) {
	cfg := DefaultIdentityConfig()

	c := contextWithRequest(map[string]string{IdentityHeaderDefault: "carol"})
	assert.Equal(t, "carol", ResolveIdentity(c, cfg))

	// Bearer token wins over the header.
	token := signToken(t, "x", "dave")
	c = contextWithRequest(map[string]string{
		"Authorization":       "Bearer " + token,
		IdentityHeaderDefault: "carol",
	})
	assert.Equal(t, "dave", ResolveIdentity(c, cfg))
}

func TestResolveIdentity_AnonymousWhenNothingPresent(t *testing.T) {
	c := contextWithRequest(nil)
	assert.Empty(t, ResolveIdentity(c, DefaultIdentityConfig()))
}

func TestResolveIdentity_MalformedAuthorization(t *testing.T) {
	cfg := DefaultIdentityConfig()

	c := contextWithRequest(map[string]string{"Authorization": "Basic dXNlcjpwYXNz"})
	assert.Empty(t, ResolveIdentity(c, cfg))

	c = contextWithRequest(map[string]string{"Authorization": "Bearer not-a-jwt"})
	assert.Empty(t, ResolveIdentity(c, cfg))
}
