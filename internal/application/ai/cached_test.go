package ai

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingGenerator 记录调用次数的生成器
type countingGenerator struct {
	calls   int
	content string
	err     error
}

func (g *countingGenerator) GenerateChapterContent(_ context.Context, _ ChapterRequest) (string, error) {
	g.calls++
	return g.content, g.err
}

// mapCache 基于 map 的缓存实现，与 Redis 缓存同构
// 命中直接返回，未命中调用 loader 并序列化存储
type mapCache struct {
	data     map[string][]byte
	getErr   error
	loadKeys []string
}

func newMapCache() *mapCache {
	return &mapCache{data: make(map[string][]byte)}
}

func (c *mapCache) GetOrLoadSafe(_ context.Context, key string, _ time.Duration, loader func() (interface{}, error)) ([]byte, error) {
	if c.getErr != nil {
		return nil, c.getErr
	}
	if data, ok := c.data[key]; ok {
		return data, nil
	}

	c.loadKeys = append(c.loadKeys, key)
	value, err := loader()
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	c.data[key] = data
	return data, nil
}

func TestCachedGeneratorMissThenHit(t *testing.T) {
	inner := &countingGenerator{content: "生成的内容"}
	cache := newMapCache()
	gen := NewCachedGenerator(inner, cache, time.Hour)

	req := ChapterRequest{Title: "并发模型"}

	content, err := gen.GenerateChapterContent(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "生成的内容", content)
	assert.Equal(t, 1, inner.calls)
	require.Len(t, cache.loadKeys, 1)
	assert.Contains(t, cache.loadKeys[0], chapterCachePrefix)

	// 相同请求命中缓存，不再调用内层生成器
	content, err = gen.GenerateChapterContent(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "生成的内容", content)
	assert.Equal(t, 1, inner.calls)
	assert.Len(t, cache.loadKeys, 1)
}

func TestCachedGeneratorKeyVariesByRequest(t *testing.T) {
	inner := &countingGenerator{content: "内容"}
	cache := newMapCache()
	gen := NewCachedGenerator(inner, cache, time.Hour)

	_, err := gen.GenerateChapterContent(context.Background(), ChapterRequest{Title: "A"})
	require.NoError(t, err)
	_, err = gen.GenerateChapterContent(context.Background(), ChapterRequest{Title: "A", Style: "casual"})
	require.NoError(t, err)

	assert.Equal(t, 2, inner.calls)
	require.Len(t, cache.loadKeys, 2)
	assert.NotEqual(t, cache.loadKeys[0], cache.loadKeys[1])
}

func TestCachedGeneratorCacheFailureIsMiss(t *testing.T) {
	inner := &countingGenerator{content: "内容"}
	cache := newMapCache()
	cache.getErr = errors.New("redis down")
	gen := NewCachedGenerator(inner, cache, time.Hour)

	// 缓存不可用时仍正常生成
	content, err := gen.GenerateChapterContent(context.Background(), ChapterRequest{Title: "A"})
	require.NoError(t, err)
	assert.Equal(t, "内容", content)
	assert.Equal(t, 1, inner.calls)
}

func TestCachedGeneratorErrorNotCached(t *testing.T) {
	inner := &countingGenerator{err: errors.New("llm unavailable")}
	cache := newMapCache()
	gen := NewCachedGenerator(inner, cache, time.Hour)

	_, err := gen.GenerateChapterContent(context.Background(), ChapterRequest{Title: "A"})
	require.Error(t, err)
	assert.Empty(t, cache.data)

	// 失败结果未被缓存，下一次请求重新生成
	_, err = gen.GenerateChapterContent(context.Background(), ChapterRequest{Title: "A"})
	require.Error(t, err)
	assert.Equal(t, 2, inner.calls)
}
