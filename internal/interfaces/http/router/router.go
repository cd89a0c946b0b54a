// Package router 提供 HTTP 路由配置
package router

import (
	"bookagent-api/internal/config"
	"bookagent-api/internal/domain/repository"
	"bookagent-api/internal/infrastructure/persistence/redis"
	"bookagent-api/internal/interfaces/http/handler"
	"bookagent-api/internal/interfaces/http/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handlers 路由器依赖的全部处理器
type Handlers struct {
	Health   *handler.HealthHandler
	Auth     *handler.AuthHandler
	User     *handler.UserHandler
	Book     *handler.BookHandler
	Chapter  *handler.ChapterHandler
	Template *handler.TemplateHandler
	AI       *handler.AIHandler
	Task     *handler.TaskHandler
}

// Router HTTP 路由器
type Router struct {
	engine *gin.Engine
	cfg    *config.Config
}

// New 创建新的路由器
func New(cfg *config.Config, handlers Handlers, txMgr repository.Transactor, userRepo repository.UserRepository, rateLimiter *redis.RateLimiter) *Router {
	// 设置 Gin 模式
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	r := &Router{
		engine: engine,
		cfg:    cfg,
	}

	r.setupMiddleware(userRepo, rateLimiter)
	r.setupRoutes(handlers, txMgr)

	return r
}

// Engine 返回 Gin Engine
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

// setupMiddleware 配置全局中间件
func (r *Router) setupMiddleware(userRepo repository.UserRepository, rateLimiter *redis.RateLimiter) {
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

	// 审计日志
	r.engine.Use(middleware.Audit(middleware.AuditConfig{
		Enabled:   true,
		SkipPaths: middleware.DefaultAuditSkipPaths,
	}))

	// 认证中间件
	r.engine.Use(middleware.Auth(middleware.AuthConfig{
		Secret:    r.cfg.Security.JWT.Secret,
		Issuer:    r.cfg.Security.JWT.Issuer,
		TTL:       r.cfg.Security.JWT.Expiration,
		SkipPaths: middleware.DefaultSkipPaths,
		Enabled:   true,
	}))
	r.engine.Use(middleware.Identity())

	// 用户状态校验：令牌有效但账号已删除或停用的请求一律拒绝
	r.engine.Use(middleware.ActiveUser(userRepo))

	// 限流中间件
	r.engine.Use(middleware.RateLimit(middleware.RateLimitConfig{
		Enabled:           r.cfg.Security.RateLimit.Enabled,
		RequestsPerMinute: r.cfg.Security.RateLimit.RequestsPerMinute,
	}, rateLimiter))
}

// setupRoutes 配置路由
func (r *Router) setupRoutes(handlers Handlers, txMgr repository.Transactor) {
	// 系统端点
	r.engine.GET("/health", handlers.Health.Health)
	r.engine.GET("/ready", handlers.Health.Ready)
	r.engine.GET("/live", handlers.Health.Live)

	// Prometheus 指标端点
	if r.cfg.Observability.Metrics.Enabled {
		r.engine.GET(r.cfg.Observability.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	// API v1 路由组，带请求级事务
	v1 := r.engine.Group("/api/v1")
	v1.Use(middleware.DBTransaction(txMgr))

	RegisterV1Routes(v1, handlers)
}
