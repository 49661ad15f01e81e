package httpx

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func perform(t *testing.T, engine *gin.Engine, method, path string) (*httptest.ResponseRecorder, Response) {
	t.Helper()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	engine.ServeHTTP(w, req)

	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w, resp
}

func TestOkJson(t *testing.T) {
	engine := gin.New()
	engine.GET("/ok", func(c *gin.Context) {
		OkJson(c, gin.H{"value": 42})
	})

	w, resp := perform(t, engine, http.MethodGet, "/ok")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, resp.Code)
	assert.Equal(t, "success", resp.Msg)
	assert.NotNil(t, resp.Data)
}

func TestTooManyRequestsJsonAborts(t *testing.T) {
	engine := gin.New()
	reached := false
	engine.GET("/limited",
		func(c *gin.Context) {
			TooManyRequestsJson(c, "rate limit exceeded")
		},
		func(c *gin.Context) {
			reached = true
		},
	)

	w, resp := perform(t, engine, http.MethodGet, "/limited")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, http.StatusTooManyRequests, resp.Code)
	assert.Equal(t, "rate limit exceeded", resp.Msg)
	assert.False(t, reached, "abort must stop the chain")
}

func TestErrorResponses(t *testing.T) {
	engine := gin.New()
	engine.GET("/bad", func(c *gin.Context) { BadRequestJson(c, "bad input") })
	engine.GET("/missing", func(c *gin.Context) { NotFoundJson(c, "no such rule") })
	engine.GET("/boom", func(c *gin.Context) { InternalErrorJson(c, "unexpected") })

	w, resp := perform(t, engine, http.MethodGet, "/bad")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "bad input", resp.Msg)

	w, resp = perform(t, engine, http.MethodGet, "/missing")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "no such rule", resp.Msg)

	w, resp = perform(t, engine, http.MethodGet, "/boom")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "unexpected", resp.Msg)
}

func TestNoRouteAndNoMethodHandlers(t *testing.T) {
	engine := gin.New()
	engine.NoRoute(NoRouteHandler())
	engine.NoMethod(NoMethodHandler())
	engine.HandleMethodNotAllowed = true
	engine.GET("/exists", func(c *gin.Context) { OkJson(c, nil) })

	w, resp := perform(t, engine, http.MethodGet, "/nowhere")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, resp.Msg, "route not found")

	w, resp = perform(t, engine, http.MethodPost, "/exists")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Contains(t, resp.Msg, "method not allowed")
}
