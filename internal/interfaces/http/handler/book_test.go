package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookagent-api/internal/domain/entity"
	"bookagent-api/internal/domain/repository"
	"bookagent-api/internal/interfaces/http/dto"
)

// fakeBookRepo 内存图书仓储
type fakeBookRepo struct {
	books   map[string]*entity.Book
	deleted []string
}

func newFakeBookRepo(books ...*entity.Book) *fakeBookRepo {
	r := &fakeBookRepo{books: make(map[string]*entity.Book)}
	for _, b := range books {
		r.books[b.ID] = b
	}
	return r
}

func (r *fakeBookRepo) Create(_ context.Context, b *entity.Book) error {
	r.books[b.ID] = b
	return nil
}

func (r *fakeBookRepo) GetByID(_ context.Context, id string) (*entity.Book, error) {
	return r.books[id], nil
}

func (r *fakeBookRepo) Update(_ context.Context, b *entity.Book) error {
	r.books[b.ID] = b
	return nil
}

func (r *fakeBookRepo) Delete(_ context.Context, id string) error {
	delete(r.books, id)
	r.deleted = append(r.deleted, id)
	return nil
}

func (r *fakeBookRepo) List(_ context.Context, filter *repository.BookFilter, p repository.Pagination) (*repository.PagedResult[*entity.Book], error) {
	var items []*entity.Book
	for _, b := range r.books {
		if filter != nil && filter.AuthorID != "" {
			if b.AuthorID != filter.AuthorID && !(filter.IncludePublic && b.IsPublic) {
				continue
			}
		}
		items = append(items, b)
	}
	return repository.NewPagedResult(items, int64(len(items)), p), nil
}

// newBookRouter 以指定身份构造路由
func newBookRouter(repo repository.BookRepository, userID string, admin bool) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewBookHandler(repo)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("user_id", userID)
		c.Set("is_admin", admin)
	})
	r.POST("/books", h.CreateBook)
	r.GET("/books", h.ListBooks)
	r.GET("/books/:bid", h.GetBook)
	r.PUT("/books/:bid", h.UpdateBook)
	r.DELETE("/books/:bid", h.DeleteBook)
	return r
}

func doJSON(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCreateBookSetsAuthor(t *testing.T) {
	repo := newFakeBookRepo()
	r := newBookRouter(repo, "author-1", false)

	w := doJSON(r, http.MethodPost, "/books", `{"title":"Go 并发编程"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	var resp dto.Response[*dto.BookResponse]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "author-1", resp.Data.AuthorID)
	assert.Equal(t, entity.BookStatusDraft, resp.Data.Status)
}

// 私有图书对外不可见，返回与不存在相同的 404
func TestGetBookAccessControl(t *testing.T) {
	private := entity.NewBook("author-1", "私有书")
	public := entity.NewBook("author-1", "公开书")
	public.IsPublic = true
	repo := newFakeBookRepo(private, public)

	// 作者可见
	w := doJSON(newBookRouter(repo, "author-1", false), http.MethodGet, "/books/"+private.ID, "")
	assert.Equal(t, http.StatusOK, w.Code)

	// 其他用户访问私有书返回 404
	w = doJSON(newBookRouter(repo, "stranger", false), http.MethodGet, "/books/"+private.ID, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	// 公开书任何人可读
	w = doJSON(newBookRouter(repo, "stranger", false), http.MethodGet, "/books/"+public.ID, "")
	assert.Equal(t, http.StatusOK, w.Code)

	// 管理员可见全部
	w = doJSON(newBookRouter(repo, "admin-1", true), http.MethodGet, "/books/"+private.ID, "")
	assert.Equal(t, http.StatusOK, w.Code)

	// 不存在的图书
	w = doJSON(newBookRouter(repo, "author-1", false), http.MethodGet, "/books/missing-id", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// 公开图书可读不可写：非作者编辑返回 403
func TestUpdateBookForbiddenForNonAuthor(t *testing.T) {
	public := entity.NewBook("author-1", "公开书")
	public.IsPublic = true
	repo := newFakeBookRepo(public)

	w := doJSON(newBookRouter(repo, "stranger", false), http.MethodPut,
		"/books/"+public.ID, `{"title":"改名"}`)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(newBookRouter(repo, "author-1", false), http.MethodPut,
		"/books/"+public.ID, `{"title":"改名"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "改名", repo.books[public.ID].Title)
}

// 更新请求的指针字段缺省时保留原值
func TestUpdateBookPartial(t *testing.T) {
	book := entity.NewBook("author-1", "原标题")
	book.Description = "原描述"
	repo := newFakeBookRepo(book)

	w := doJSON(newBookRouter(repo, "author-1", false), http.MethodPut,
		"/books/"+book.ID, `{"description":"新描述"}`)
	require.Equal(t, http.StatusOK, w.Code)

	updated := repo.books[book.ID]
	assert.Equal(t, "原标题", updated.Title)
	assert.Equal(t, "新描述", updated.Description)
}

func TestDeleteBook(t *testing.T) {
	book := entity.NewBook("author-1", "待删除")
	repo := newFakeBookRepo(book)

	w := doJSON(newBookRouter(repo, "stranger", false), http.MethodDelete, "/books/"+book.ID, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(newBookRouter(repo, "author-1", false), http.MethodDelete, "/books/"+book.ID, "")
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, []string{book.ID}, repo.deleted)
}
