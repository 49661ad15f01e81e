package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apiguard/apiguard/httpx"
	"github.com/apiguard/apiguard/ratelimit"
	"github.com/apiguard/apiguard/rules"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newThrottledEngine(t *testing.T, ruleSet []ratelimit.Rule, cfg ThrottleConfig) (*gin.Engine, *ratelimit.Engine) {
	t.Helper()

	repo := rules.NewMemoryRepository()
	for _, rule := range ruleSet {
		require.NoError(t, repo.Create(context.Background(), rule))
	}

	limiter := ratelimit.NewEngine(repo, ratelimit.NewMemoryStore())
	t.Cleanup(func() { limiter.Close() })

	engine := gin.New()
	engine.Use(ThrottleWithConfig(limiter, cfg))
	engine.GET("/api/data", func(c *gin.Context) {
		httpx.OkJson(c, gin.H{"identity": GetIdentity(c), "ip": GetIP(c)})
	})
	engine.GET("/health", func(c *gin.Context) {
		httpx.OkJson(c, nil)
	})
	return engine, limiter
}

func blockEveryone(max int) []ratelimit.Rule {
	return []ratelimit.Rule{{
		UserScope:    ratelimit.ScopeAll,
		IPScope:      ratelimit.ScopeAll,
		MaxRequests:  max,
		Kind:         ratelimit.KindBlock,
		BlockSeconds: 20,
	}}
}

func get(engine *gin.Engine, path string, headers map[string]string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	engine.ServeHTTP(w, req)
	return w
}

func TestThrottle_AllowsWithinQuota(t *testing.T) {
	engine, _ := newThrottledEngine(t, blockEveryone(3), DefaultThrottleConfig())

	for i := 0; i < 3; i++ {
		w := get(engine, "/api/data", nil)
		assert.Equal(t, http.StatusOK, w.Code, "request %d", i+1)
	}
}

func TestThrottle_RejectsOverQuotaWithRetryAfter(t *testing.T) {
	engine, _ := newThrottledEngine(t, blockEveryone(2), DefaultThrottleConfig())

	get(engine, "/api/data", nil)
	get(engine, "/api/data", nil)
	w := get(engine, "/api/data", nil)

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	var resp httpx.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Contains(t, resp.Msg, "rate limit exceeded")
}

func TestThrottle_EmptyRulesFailClosed(t *testing.T) {
	engine, _ := newThrottledEngine(t, nil, DefaultThrottleConfig())

	w := get(engine, "/api/data", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	var resp httpx.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, ratelimit.MsgRulesNotFound, resp.Msg)
}

func TestThrottle_SkipPaths(t *testing.T) {
	cfg := DefaultThrottleConfig()
	cfg.SkipPaths = []string{"/health"}
	engine, _ := newThrottledEngine(t, nil, cfg)

	// No rules exist, yet the skipped path stays reachable.
	for i := 0; i < 5; i++ {
		w := get(engine, "/health", nil)
		assert.Equal(t, http.StatusOK, w.Code)
	}
}

func TestThrottle_IdentityFromHeader(t *testing.T) {
	ruleSet := []ratelimit.Rule{
		{UserScope: "alice", IPScope: ratelimit.ScopeAll, MaxRequests: 50, Kind: ratelimit.KindBlock, BlockSeconds: 20},
		{UserScope: ratelimit.ScopeAll, IPScope: ratelimit.ScopeAll, MaxRequests: 1, Kind: ratelimit.KindBlock, BlockSeconds: 20},
	}
	engine, _ := newThrottledEngine(t, ruleSet, DefaultThrottleConfig())

	headers := map[string]string{IdentityHeaderDefault: "alice"}
	for i := 0; i < 10; i++ {
		w := get(engine, "/api/data", headers)
		require.Equal(t, http.StatusOK, w.Code, "request %d", i+1)
	}

	// Anonymous callers hit the fallback quota of 1.
	get(engine, "/api/data", nil)
	w := get(engine, "/api/data", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestThrottle_StoresCallerInContext(t *testing.T) {
	engine, _ := newThrottledEngine(t, blockEveryone(10), DefaultThrottleConfig())

	w := get(engine, "/api/data", map[string]string{IdentityHeaderDefault: "bob"})
	require.Equal(t, http.StatusOK, w.Code)

	var resp httpx.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "bob", data["identity"])
	assert.NotEmpty(t, data["ip"])
}
