package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookagent-api/internal/application/task"
	"bookagent-api/internal/domain/entity"
	"bookagent-api/internal/domain/repository"
	"bookagent-api/internal/infrastructure/messaging"
	"bookagent-api/internal/interfaces/http/dto"
)

// fakeTaskStore 内存任务仓储
type fakeTaskStore struct {
	tasks map[string]*entity.Task
}

func newFakeTaskStore() *fakeTaskStore {
	return &fakeTaskStore{tasks: make(map[string]*entity.Task)}
}

func (r *fakeTaskStore) Create(_ context.Context, t *entity.Task) error {
	r.tasks[t.ID] = t
	return nil
}

func (r *fakeTaskStore) GetByID(_ context.Context, id string) (*entity.Task, error) {
	return r.tasks[id], nil
}

func (r *fakeTaskStore) Update(_ context.Context, t *entity.Task) error {
	r.tasks[t.ID] = t
	return nil
}

func (r *fakeTaskStore) ListByUser(_ context.Context, userID string, _ *repository.TaskFilter, p repository.Pagination) (*repository.PagedResult[*entity.Task], error) {
	var items []*entity.Task
	for _, t := range r.tasks {
		if t.UserID == userID {
			items = append(items, t)
		}
	}
	return repository.NewPagedResult(items, int64(len(items)), p), nil
}

func (r *fakeTaskStore) UpdateProgress(_ context.Context, id string, current, total int, statusText string) error {
	if t, ok := r.tasks[id]; ok {
		t.Progress(current, total, statusText)
	}
	return nil
}

func (r *fakeTaskStore) MarkRunning(_ context.Context, id string) (bool, error) {
	t, ok := r.tasks[id]
	if !ok || t.Finished() {
		return false, nil
	}
	t.Start()
	return true, nil
}

func (r *fakeTaskStore) MarkCancelled(_ context.Context, id string) (bool, error) {
	t, ok := r.tasks[id]
	if !ok || t.Finished() {
		return false, nil
	}
	t.Cancel()
	return true, nil
}

// stubPublisher 总是成功的消息发布器
type stubPublisher struct{}

func (stubPublisher) PublishBookGeneration(_ context.Context, _ *messaging.BookGenerationMessage) (string, error) {
	return "stream-1", nil
}

func (stubPublisher) PublishBookExport(_ context.Context, _ *messaging.BookExportMessage) (string, error) {
	return "stream-2", nil
}

// newTaskRouter 按线上路由注册方式构造任务路由
func newTaskRouter(taskRepo repository.TaskRepository, bookRepo repository.BookRepository, userID string, admin bool) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewTaskHandler(task.NewManager(taskRepo, stubPublisher{}), bookRepo)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("user_id", userID)
		c.Set("is_admin", admin)
	})
	tasks := r.Group("/tasks")
	{
		tasks.GET("", h.ListTasks)
		tasks.POST("/generate-book", h.GenerateBook)
		tasks.POST("/export-book", h.ExportBook)
		tasks.GET("/status/:tid", h.GetTaskStatus)
		tasks.DELETE("/cancel/:tid", h.CancelTask)
	}
	return r
}

func TestGenerateBookAccepted(t *testing.T) {
	book := entity.NewBook("author-1", "Go 实战")
	taskRepo := newFakeTaskStore()
	r := newTaskRouter(taskRepo, newFakeBookRepo(book), "author-1", false)

	w := doJSON(r, http.MethodPost, "/tasks/generate-book", `{"book_id":"`+book.ID+`"}`)
	require.Equal(t, http.StatusAccepted, w.Code)

	var resp dto.Response[*dto.TaskResponse]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, string(entity.TaskStatusPending), resp.Data.State)
	assert.Contains(t, taskRepo.tasks, resp.Data.ID)
}

// 非作者提交任务：不可见图书返回 404，公开图书返回 403
func TestGenerateBookRequiresEditableBook(t *testing.T) {
	private := entity.NewBook("author-1", "私有书")
	public := entity.NewBook("author-1", "公开书")
	public.IsPublic = true
	bookRepo := newFakeBookRepo(private, public)

	w := doJSON(newTaskRouter(newFakeTaskStore(), bookRepo, "stranger", false),
		http.MethodPost, "/tasks/generate-book", `{"book_id":"`+private.ID+`"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(newTaskRouter(newFakeTaskStore(), bookRepo, "stranger", false),
		http.MethodPost, "/tasks/generate-book", `{"book_id":"`+public.ID+`"}`)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

// 取消任务走 DELETE 方法，终态任务返回 cancelled=false
func TestCancelTaskViaDelete(t *testing.T) {
	book := entity.NewBook("author-1", "Go 实战")
	taskRepo := newFakeTaskStore()
	r := newTaskRouter(taskRepo, newFakeBookRepo(book), "author-1", false)

	w := doJSON(r, http.MethodPost, "/tasks/export-book", `{"book_id":"`+book.ID+`","format":"epub"}`)
	require.Equal(t, http.StatusAccepted, w.Code)

	var created dto.Response[*dto.TaskResponse]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	taskID := created.Data.ID

	w = doJSON(r, http.MethodDelete, "/tasks/cancel/"+taskID, "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp dto.Response[*dto.CancelTaskResponse]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Data.Cancelled)
	assert.Equal(t, entity.TaskStatusCancelled, taskRepo.tasks[taskID].Status)

	// 已取消的任务重复取消
	w = doJSON(r, http.MethodDelete, "/tasks/cancel/"+taskID, "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Data.Cancelled)

	// 旧方法不再路由
	w = doJSON(r, http.MethodPost, "/tasks/cancel/"+taskID, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// 他人任务的取消与查询均不可区分于任务不存在
func TestCancelTaskHidesOtherUsersTasks(t *testing.T) {
	book := entity.NewBook("author-1", "Go 实战")
	taskRepo := newFakeTaskStore()
	bookRepo := newFakeBookRepo(book)

	w := doJSON(newTaskRouter(taskRepo, bookRepo, "author-1", false),
		http.MethodPost, "/tasks/export-book", `{"book_id":"`+book.ID+`","format":"pdf"}`)
	require.Equal(t, http.StatusAccepted, w.Code)

	var created dto.Response[*dto.TaskResponse]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = doJSON(newTaskRouter(taskRepo, bookRepo, "stranger", false),
		http.MethodDelete, "/tasks/cancel/"+created.Data.ID, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(newTaskRouter(taskRepo, bookRepo, "stranger", false),
		http.MethodGet, "/tasks/status/"+created.Data.ID, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
