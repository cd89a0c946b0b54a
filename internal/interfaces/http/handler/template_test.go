package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookagent-api/internal/domain/entity"
	"bookagent-api/internal/domain/repository"
	"bookagent-api/internal/interfaces/http/dto"
)

// fakeTemplateRepo 内存模板仓储
type fakeTemplateRepo struct {
	templates map[string]*entity.Template
}

func newFakeTemplateRepo(templates ...*entity.Template) *fakeTemplateRepo {
	r := &fakeTemplateRepo{templates: make(map[string]*entity.Template)}
	for _, tpl := range templates {
		r.templates[tpl.ID] = tpl
	}
	return r
}

func (r *fakeTemplateRepo) Create(_ context.Context, tpl *entity.Template) error {
	r.templates[tpl.ID] = tpl
	return nil
}

func (r *fakeTemplateRepo) GetByID(_ context.Context, id string) (*entity.Template, error) {
	return r.templates[id], nil
}

func (r *fakeTemplateRepo) GetByName(_ context.Context, name string) (*entity.Template, error) {
	for _, tpl := range r.templates {
		if tpl.Name == name {
			return tpl, nil
		}
	}
	return nil, nil
}

func (r *fakeTemplateRepo) Update(_ context.Context, tpl *entity.Template) error {
	r.templates[tpl.ID] = tpl
	return nil
}

func (r *fakeTemplateRepo) Delete(_ context.Context, id string) error {
	delete(r.templates, id)
	return nil
}

func (r *fakeTemplateRepo) List(_ context.Context, filter *repository.TemplateFilter, p repository.Pagination) (*repository.PagedResult[*entity.Template], error) {
	var items []*entity.Template
	for _, tpl := range r.templates {
		if filter != nil && filter.Type != "" && tpl.Type != filter.Type {
			continue
		}
		if filter != nil && filter.IsDefault != nil && tpl.IsDefault != *filter.IsDefault {
			continue
		}
		items = append(items, tpl)
	}
	return repository.NewPagedResult(items, int64(len(items)), p), nil
}

func (r *fakeTemplateRepo) ClearDefaultByType(_ context.Context, templateType entity.TemplateType, excludeID string) error {
	for _, tpl := range r.templates {
		if tpl.Type == templateType && tpl.ID != excludeID {
			tpl.IsDefault = false
		}
	}
	return nil
}

func (r *fakeTemplateRepo) GetDefaultByType(_ context.Context, templateType entity.TemplateType) (*entity.Template, error) {
	for _, tpl := range r.templates {
		if tpl.Type == templateType && tpl.IsDefault {
			return tpl, nil
		}
	}
	return nil, nil
}

// defaultsByType 统计指定类型下默认模板的数量
func (r *fakeTemplateRepo) defaultsByType(templateType entity.TemplateType) int {
	n := 0
	for _, tpl := range r.templates {
		if tpl.Type == templateType && tpl.IsDefault {
			n++
		}
	}
	return n
}

// fakeChapterCounter 引用计数可配置的章节仓储
type fakeChapterCounter struct {
	fakeChapterRefRepo
	count int64
}

func (r *fakeChapterCounter) CountByTemplate(_ context.Context, _ string) (int64, error) {
	return r.count, nil
}

// fakeChapterRefRepo 未使用方法置空的章节仓储基座
type fakeChapterRefRepo struct{}

func (fakeChapterRefRepo) Create(_ context.Context, _ *entity.Chapter) error  { return nil }
func (fakeChapterRefRepo) GetByID(_ context.Context, _ string) (*entity.Chapter, error) {
	return nil, nil
}
func (fakeChapterRefRepo) Update(_ context.Context, _ *entity.Chapter) error { return nil }
func (fakeChapterRefRepo) Delete(_ context.Context, _ string) error          { return nil }
func (fakeChapterRefRepo) ListByBook(_ context.Context, _ string, _ *repository.ChapterFilter) ([]*entity.Chapter, error) {
	return nil, nil
}
func (fakeChapterRefRepo) UpdateContent(_ context.Context, _, _ string) error { return nil }
func (fakeChapterRefRepo) CountByTemplate(_ context.Context, _ string) (int64, error) {
	return 0, nil
}
func (fakeChapterRefRepo) NextSortOrder(_ context.Context, _ string) (int, error) { return 1, nil }

// fakeTx 直接执行的事务管理器
type fakeTx struct{}

func (fakeTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func newTemplateRouter(tplRepo repository.TemplateRepository, chRepo repository.ChapterRepository) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewTemplateHandler(tplRepo, chRepo, fakeTx{})

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("user_id", "user-1")
	})
	r.GET("/templates", h.ListTemplates)
	r.POST("/templates", h.CreateTemplate)
	r.GET("/templates/:id", h.GetTemplate)
	r.PUT("/templates/:id", h.UpdateTemplate)
	r.DELETE("/templates/:id", h.DeleteTemplate)
	return r
}

// 创建默认模板时同类型只保留一个默认，切换在同一事务内完成
func TestCreateTemplateDefaultSwap(t *testing.T) {
	old := entity.NewTemplate("旧章节模板", "content", entity.TemplateTypeChapter)
	old.IsDefault = true
	other := entity.NewTemplate("图书模板", "content", entity.TemplateTypeBook)
	other.IsDefault = true
	repo := newFakeTemplateRepo(old, other)
	r := newTemplateRouter(repo, &fakeChapterCounter{})

	w := doJSON(r, http.MethodPost, "/templates",
		`{"name":"新章节模板","content":"...","type":"chapter","is_default":true}`)
	require.Equal(t, http.StatusCreated, w.Code)

	var resp dto.Response[*dto.TemplateResponse]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Data.IsDefault)

	// 旧默认被清除，每种类型至多一个默认
	assert.False(t, repo.templates[old.ID].IsDefault)
	assert.Equal(t, 1, repo.defaultsByType(entity.TemplateTypeChapter))

	// 其他类型的默认不受影响
	assert.True(t, repo.templates[other.ID].IsDefault)
}

// 升格已有模板为默认时同样完成默认切换
func TestUpdateTemplateDefaultSwap(t *testing.T) {
	old := entity.NewTemplate("默认模板", "content", entity.TemplateTypeChapter)
	old.IsDefault = true
	candidate := entity.NewTemplate("候选模板", "content", entity.TemplateTypeChapter)
	repo := newFakeTemplateRepo(old, candidate)
	r := newTemplateRouter(repo, &fakeChapterCounter{})

	w := doJSON(r, http.MethodPut, "/templates/"+candidate.ID, `{"is_default":true}`)
	require.Equal(t, http.StatusOK, w.Code)

	assert.True(t, repo.templates[candidate.ID].IsDefault)
	assert.False(t, repo.templates[old.ID].IsDefault)
	assert.Equal(t, 1, repo.defaultsByType(entity.TemplateTypeChapter))
}

func TestCreateTemplateDuplicateName(t *testing.T) {
	existing := entity.NewTemplate("重名模板", "content", entity.TemplateTypeChapter)
	repo := newFakeTemplateRepo(existing)
	r := newTemplateRouter(repo, &fakeChapterCounter{})

	w := doJSON(r, http.MethodPost, "/templates",
		`{"name":"重名模板","content":"...","type":"chapter"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
}

// 仍被章节引用的模板拒绝删除
func TestDeleteTemplateReferenced(t *testing.T) {
	tpl := entity.NewTemplate("被引用模板", "content", entity.TemplateTypeChapter)
	repo := newFakeTemplateRepo(tpl)
	r := newTemplateRouter(repo, &fakeChapterCounter{count: 3})

	w := doJSON(r, http.MethodDelete, "/templates/"+tpl.ID, "")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, repo.templates, tpl.ID)
}

func TestDeleteTemplateUnreferenced(t *testing.T) {
	tpl := entity.NewTemplate("无引用模板", "content", entity.TemplateTypeChapter)
	repo := newFakeTemplateRepo(tpl)
	r := newTemplateRouter(repo, &fakeChapterCounter{})

	w := doJSON(r, http.MethodDelete, "/templates/"+tpl.ID, "")
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.NotContains(t, repo.templates, tpl.ID)

	// 不存在的模板返回 404
	w = doJSON(r, http.MethodDelete, "/templates/"+tpl.ID, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
