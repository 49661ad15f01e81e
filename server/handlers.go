package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/apiguard/apiguard/audit"
	"github.com/apiguard/apiguard/health"
	"github.com/apiguard/apiguard/httpx"
	"github.com/apiguard/apiguard/ratelimit"
	"github.com/apiguard/apiguard/rules"
)

func registerRoutes(engine *gin.Engine, opts Options) {
	engine.GET("/health", healthHandler(opts.Health))
	engine.GET("/api/ping", pingHandler())

	api := engine.Group("/api")
	{
		api.GET("/rules", listRulesHandler(opts.Repository))
		api.POST("/rules", createRuleHandler(opts.Repository))
		api.GET("/metrics", metricsHandler(opts.Engine))
		if opts.Recent != nil {
			api.GET("/audit/recent", recentAuditHandler(opts.Recent))
		}
	}
}

func healthHandler(agg *health.Aggregator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if agg == nil {
			httpx.OkJson(c, gin.H{"status": string(health.StatusHealthy)})
			return
		}

		resp := agg.Check(c.Request.Context())
		if !resp.IsHealthy() {
			c.JSON(http.StatusServiceUnavailable, httpx.Response{
				Code: http.StatusServiceUnavailable,
				Msg:  string(resp.Status),
				Data: resp,
			})
			return
		}
		httpx.OkJson(c, resp)
	}
}

func pingHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		httpx.OkJson(c, gin.H{"message": "pong"})
	}
}

func listRulesHandler(repo rules.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		ruleSet, err := repo.FetchAll(c.Request.Context())
		if err != nil {
			httpx.InternalErrorJson(c, err.Error())
			return
		}
		httpx.OkJson(c, ruleSet)
	}
}

func createRuleHandler(repo rules.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		var rule ratelimit.Rule
		if err := c.ShouldBindJSON(&rule); err != nil {
			httpx.BadRequestJson(c, err.Error())
			return
		}
		if err := rule.Validate(); err != nil {
			httpx.BadRequestJson(c, err.Error())
			return
		}
		if err := repo.Create(c.Request.Context(), rule); err != nil {
			httpx.InternalErrorJson(c, err.Error())
			return
		}
		httpx.OkJson(c, rule)
	}
}

func metricsHandler(engine *ratelimit.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		httpx.OkJson(c, engine.Metrics())
	}
}

func recentAuditHandler(recent *audit.MemorySink) gin.HandlerFunc {
	return func(c *gin.Context) {
		httpx.OkJson(c, recent.Entries())
	}
}
