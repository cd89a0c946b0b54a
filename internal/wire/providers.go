// Package wire 提供依赖注入配置
package wire

import (
	"github.com/google/wire"

	"bookagent-api/internal/application/ai"
	"bookagent-api/internal/application/task"
	"bookagent-api/internal/config"
	"bookagent-api/internal/domain/repository"
	"bookagent-api/internal/infrastructure/llm"
	"bookagent-api/internal/infrastructure/messaging"
	"bookagent-api/internal/infrastructure/persistence/postgres"
	"bookagent-api/internal/infrastructure/persistence/redis"
	"bookagent-api/internal/interfaces/http/handler"
	"bookagent-api/internal/interfaces/http/middleware"
	"bookagent-api/internal/interfaces/http/router"
)

// DataLayer 数据层依赖容器
type DataLayer struct {
	// PostgreSQL
	PgClient     *postgres.Client
	TxManager    *postgres.TxManager
	UserRepo     *postgres.UserRepository
	BookRepo     *postgres.BookRepository
	ChapterRepo  *postgres.ChapterRepository
	TemplateRepo *postgres.TemplateRepository
	TaskRepo     *postgres.TaskRepository

	// Redis
	RedisClient *redis.Client
	Cache       *redis.Cache
	RateLimiter *redis.RateLimiter

	// Messaging
	Producer *messaging.Producer
}

// PostgresOnlyDataLayer 仅包含 PostgreSQL 的数据层（用于 bootstrap）
type PostgresOnlyDataLayer struct {
	PgClient     *postgres.Client
	TxManager    *postgres.TxManager
	UserRepo     *postgres.UserRepository
	BookRepo     *postgres.BookRepository
	ChapterRepo  *postgres.ChapterRepository
	TemplateRepo *postgres.TemplateRepository
	TaskRepo     *postgres.TaskRepository
}

// PostgresSet PostgreSQL 提供者集合
var PostgresSet = wire.NewSet(
	ProvidePostgresClient,
	postgres.NewTxManager,
	postgres.NewUserRepository,
	postgres.NewBookRepository,
	postgres.NewChapterRepository,
	postgres.NewTemplateRepository,
	postgres.NewTaskRepository,
)

// RedisSet Redis 提供者集合
var RedisSet = wire.NewSet(
	ProvideRedisClient,
	redis.NewCache,
	redis.NewRateLimiter,
)

// MessagingSet 消息队列提供者集合
var MessagingSet = wire.NewSet(
	ProvideMessagingProducer,
	wire.Bind(new(task.Publisher), new(*messaging.Producer)),
)

// AISet AI 服务提供者集合
var AISet = wire.NewSet(
	ProvideLLMClient,
	ai.NewService,
	ProvideChapterGenerator,
	wire.Bind(new(ai.ChatClient), new(*llm.Client)),
)

// RouterSet 路由器提供者集合
var RouterSet = wire.NewSet(
	ProvideAuthConfig,
	task.NewManager,
	handler.NewHealthHandler,
	handler.NewAuthHandler,
	handler.NewUserHandler,
	handler.NewBookHandler,
	handler.NewChapterHandler,
	handler.NewTemplateHandler,
	handler.NewAIHandler,
	handler.NewTaskHandler,
	wire.Struct(new(router.Handlers), "*"),
	router.New,
)

// RepoSet 整合了具体实现与接口绑定的集合
var RepoSet = wire.NewSet(
	PostgresSet,
	// 接口绑定
	wire.Bind(new(repository.Transactor), new(*postgres.TxManager)),
	wire.Bind(new(repository.UserRepository), new(*postgres.UserRepository)),
	wire.Bind(new(repository.BookRepository), new(*postgres.BookRepository)),
	wire.Bind(new(repository.ChapterRepository), new(*postgres.ChapterRepository)),
	wire.Bind(new(repository.TemplateRepository), new(*postgres.TemplateRepository)),
	wire.Bind(new(repository.TaskRepository), new(*postgres.TaskRepository)),
)

// ProvidePostgresClient 提供 PostgreSQL 客户端
func ProvidePostgresClient(cfg *config.Config) (*postgres.Client, func(), error) {
	client, err := postgres.NewClient(&cfg.Database.Postgres)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		client.Close()
	}
	return client, cleanup, nil
}

// ProvideRedisClient 提供 Redis 客户端
func ProvideRedisClient(cfg *config.Config) (*redis.Client, func(), error) {
	client, err := redis.NewClient(&cfg.Cache.Redis)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		client.Close()
	}
	return client, cleanup, nil
}

// ProvideMessagingProducer 提供消息生产者
func ProvideMessagingProducer(redisClient *redis.Client, cfg *config.Config) *messaging.Producer {
	maxLen := cfg.Messaging.RedisStream.MaxLen
	if maxLen <= 0 {
		maxLen = 100000
	}
	return messaging.NewProducer(redisClient.Redis(), int64(maxLen))
}

// ProvideLLMClient 提供 LLM 客户端
func ProvideLLMClient(cfg *config.Config) *llm.Client {
	return llm.NewClient(cfg.LLM)
}

// ProvideChapterGenerator 提供章节生成器
// 开启缓存时包一层 Redis 缓存装饰器
func ProvideChapterGenerator(svc *ai.Service, cache *redis.Cache, cfg *config.Config) ai.ChapterGenerator {
	if !cfg.AI.CacheEnabled {
		return svc
	}
	return ai.NewCachedGenerator(svc, cache, cfg.AI.CacheTTL)
}

// ProvideAuthConfig 提供认证配置
func ProvideAuthConfig(cfg *config.Config) middleware.AuthConfig {
	return middleware.AuthConfig{
		Secret:    cfg.Security.JWT.Secret,
		Issuer:    cfg.Security.JWT.Issuer,
		TTL:       cfg.Security.JWT.Expiration,
		SkipPaths: middleware.DefaultSkipPaths,
		Enabled:   true,
	}
}
