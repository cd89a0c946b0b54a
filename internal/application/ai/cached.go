package ai

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"bookagent-api/pkg/logger"
	"bookagent-api/pkg/metrics"
)

// chapterCachePrefix 章节生成结果的缓存键前缀
const chapterCachePrefix = "ai:chapter:"

// ChapterGenerator 章节内容生成器
type ChapterGenerator interface {
	GenerateChapterContent(ctx context.Context, req ChapterRequest) (string, error)
}

// ContentCache 生成结果缓存
// 加载器由实现去重，相同键的并发未命中只触发一次生成
type ContentCache interface {
	GetOrLoadSafe(ctx context.Context, key string, ttl time.Duration, loader func() (interface{}, error)) ([]byte, error)
}

// CachedGenerator 带缓存的章节生成器
// 缓存读写失败按未命中处理，不影响生成结果
type CachedGenerator struct {
	inner ChapterGenerator
	cache ContentCache
	ttl   time.Duration
}

// NewCachedGenerator 创建带缓存的章节生成器
func NewCachedGenerator(inner ChapterGenerator, cache ContentCache, ttl time.Duration) *CachedGenerator {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &CachedGenerator{
		inner: inner,
		cache: cache,
		ttl:   ttl,
	}
}

// cacheKey 根据请求参数派生确定性的缓存键
func cacheKey(req ChapterRequest) string {
	data, _ := json.Marshal(req)
	sum := sha256.Sum256(data)
	return chapterCachePrefix + hex.EncodeToString(sum[:])
}

// GenerateChapterContent 优先返回缓存的生成结果
// 未命中时经 singleflight 加载，并发的相同请求只调用一次 LLM
func (g *CachedGenerator) GenerateChapterContent(ctx context.Context, req ChapterRequest) (string, error) {
	key := cacheKey(req)

	loaded := false
	data, err := g.cache.GetOrLoadSafe(ctx, key, g.ttl, func() (interface{}, error) {
		loaded = true
		return g.inner.GenerateChapterContent(ctx, req)
	})
	if err != nil {
		if loaded {
			// 生成本身失败，错误原样上抛
			return "", err
		}
		// 缓存基础设施故障按未命中处理，直接生成
		logger.Warn(ctx, "chapter cache unavailable, generating directly",
			"key", key, "error", err.Error())
		metrics.CacheHitTotal.WithLabelValues("ai:chapter", "miss").Inc()
		return g.inner.GenerateChapterContent(ctx, req)
	}

	if loaded {
		metrics.CacheHitTotal.WithLabelValues("ai:chapter", "miss").Inc()
	} else {
		metrics.CacheHitTotal.WithLabelValues("ai:chapter", "hit").Inc()
		logger.Debug(ctx, "chapter content cache hit", "key", key)
	}

	var content string
	if err := json.Unmarshal(data, &content); err != nil {
		// 缓存内容损坏时重新生成
		logger.Warn(ctx, "invalid cached chapter content, regenerating", "key", key)
		return g.inner.GenerateChapterContent(ctx, req)
	}
	return content, nil
}
