// Package router 提供 HTTP 路由配置
package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shreyan01/ruberic/internal/config"
	"github.com/shreyan01/ruberic/internal/interfaces/http/handler"
	"github.com/shreyan01/ruberic/internal/interfaces/http/middleware"
)

// Handlers 路由依赖的处理器集合
type Handlers struct {
	Health   *handler.HealthHandler
	Account  *handler.AccountHandler
	APIKey   *handler.APIKeyHandler
	Project  *handler.ProjectHandler
	Document *handler.DocumentHandler
	Search   *handler.SearchHandler
	Chat     *handler.ChatHandler
	Usage    *handler.UsageHandler
}

// Router HTTP 路由器
type Router struct {
	engine   *gin.Engine
	cfg      *config.Config
	verifier middleware.KeyVerifier
	limiter  middleware.RateLimiter
	handlers *Handlers
}

// New 创建新的路由器
func New(cfg *config.Config, verifier middleware.KeyVerifier, limiter middleware.RateLimiter, handlers *Handlers) *Router {
	// 设置 Gin 模式
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	r := &Router{
		engine:   engine,
		cfg:      cfg,
		verifier: verifier,
		limiter:  limiter,
		handlers: handlers,
	}

	r.setupMiddleware()
	r.setupRoutes()

	return r
}

// Engine 返回 Gin Engine
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

// setupMiddleware 配置中间件
func (r *Router) setupMiddleware() {
	// 基础中间件
	r.engine.Use(middleware.Recovery())
	r.engine.Use(middleware.RequestID())

	// CORS 中间件
	r.engine.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins: r.cfg.Security.CORS.AllowedOrigins,
		AllowedMethods: r.cfg.Security.CORS.AllowedMethods,
		AllowedHeaders: r.cfg.Security.CORS.AllowedHeaders,
	}))

	// 追踪中间件
	if r.cfg.Observability.Tracing.Enabled {
		r.engine.Use(middleware.Trace(r.cfg.App.Name))
		r.engine.Use(middleware.TraceContext())
	}

	// 指标中间件
	if r.cfg.Observability.Metrics.Enabled {
		r.engine.Use(middleware.Metrics())
	}
}

// setupRoutes 配置路由
func (r *Router) setupRoutes() {
	h := r.handlers

	// 系统端点
	r.engine.GET("/health", h.Health.Health)
	r.engine.GET("/ready", h.Health.Ready)
	r.engine.GET("/live", h.Health.Live)

	// Prometheus 指标端点
	if r.cfg.Observability.Metrics.Enabled {
		r.engine.GET(r.cfg.Observability.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	v1 := r.engine.Group("/v1")

	// 账户注册是唯一的匿名端点
	v1.POST("/accounts", h.Account.Register)

	// 其余路由全部要求 API 密钥认证，限流按密钥
	authed := v1.Group("")
	authed.Use(middleware.APIKeyAuth(r.verifier))
	authed.Use(middleware.RateLimit(middleware.RateLimitConfig{
		Enabled:           r.cfg.Security.RateLimit.Enabled,
		RequestsPerMinute: r.cfg.Security.RateLimit.RequestsPerMinute,
	}, r.limiter))

	// 密钥管理
	keys := authed.Group("/api-keys")
	{
		keys.POST("", h.APIKey.Create)
		keys.GET("", h.APIKey.List)
		keys.POST("/:kid/revoke", h.APIKey.Revoke)
		keys.DELETE("/:kid", h.APIKey.Delete)
	}

	// 项目管理
	projects := authed.Group("/projects")
	{
		projects.GET("", h.Project.List)
		projects.POST("", h.Project.Create)
		projects.GET("/:pid", h.Project.Get)
		projects.PUT("/:pid", h.Project.Update)
		projects.DELETE("/:pid", h.Project.Delete)
	}

	// 文档摄取
	documents := authed.Group("/documents")
	{
		documents.POST("", h.Document.Upload)
		documents.GET("", h.Document.List)
		documents.GET("/:did", h.Document.Get)
		documents.GET("/:did/chunks", h.Document.Chunks)
		documents.DELETE("/:did", h.Document.Delete)
	}

	// 相似检索
	authed.POST("/search", h.Search.Search)

	// 文档问答
	authed.POST("/chat", h.Chat.Chat)

	// 用量
	usage := authed.Group("/usage")
	{
		usage.GET("", h.Usage.Report)
		usage.GET("/records", h.Usage.Records)
	}
}
