package main

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookagent-api/internal/application/ai"
	"bookagent-api/internal/application/export"
	"bookagent-api/internal/domain/entity"
	"bookagent-api/internal/domain/repository"
	"bookagent-api/internal/infrastructure/messaging"
)

// fakeTaskRepo 内存任务仓储
type fakeTaskRepo struct {
	tasks map[string]*entity.Task
	// markRunning 非空时替换默认认领逻辑
	markRunning func(id string) (bool, error)
}

func newFakeTaskRepo() *fakeTaskRepo {
	return &fakeTaskRepo{tasks: make(map[string]*entity.Task)}
}

func (r *fakeTaskRepo) Create(_ context.Context, t *entity.Task) error {
	r.tasks[t.ID] = t
	return nil
}

func (r *fakeTaskRepo) GetByID(_ context.Context, id string) (*entity.Task, error) {
	return r.tasks[id], nil
}

func (r *fakeTaskRepo) Update(_ context.Context, t *entity.Task) error {
	r.tasks[t.ID] = t
	return nil
}

func (r *fakeTaskRepo) ListByUser(_ context.Context, userID string, _ *repository.TaskFilter, p repository.Pagination) (*repository.PagedResult[*entity.Task], error) {
	var items []*entity.Task
	for _, t := range r.tasks {
		if t.UserID == userID {
			items = append(items, t)
		}
	}
	return repository.NewPagedResult(items, int64(len(items)), p), nil
}

func (r *fakeTaskRepo) UpdateProgress(_ context.Context, id string, current, total int, statusText string) error {
	if t, ok := r.tasks[id]; ok {
		t.Progress(current, total, statusText)
	}
	return nil
}

func (r *fakeTaskRepo) MarkRunning(_ context.Context, id string) (bool, error) {
	if r.markRunning != nil {
		return r.markRunning(id)
	}
	t, ok := r.tasks[id]
	if !ok || t.Finished() {
		return false, nil
	}
	if t.StartedAt == nil {
		t.Start()
	} else {
		t.Status = entity.TaskStatusRunning
	}
	return true, nil
}

func (r *fakeTaskRepo) MarkCancelled(_ context.Context, id string) (bool, error) {
	t, ok := r.tasks[id]
	if !ok || t.Finished() {
		return false, nil
	}
	t.Cancel()
	return true, nil
}

// fakeBookRepo 内存图书仓储
type fakeBookRepo struct {
	books map[string]*entity.Book
}

func newFakeBookRepo() *fakeBookRepo {
	return &fakeBookRepo{books: make(map[string]*entity.Book)}
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
	return nil
}

func (r *fakeBookRepo) List(_ context.Context, _ *repository.BookFilter, p repository.Pagination) (*repository.PagedResult[*entity.Book], error) {
	var items []*entity.Book
	for _, b := range r.books {
		items = append(items, b)
	}
	return repository.NewPagedResult(items, int64(len(items)), p), nil
}

// fakeChapterRepo 内存章节仓储
type fakeChapterRepo struct {
	chapters []*entity.Chapter
}

func (r *fakeChapterRepo) Create(_ context.Context, ch *entity.Chapter) error {
	r.chapters = append(r.chapters, ch)
	return nil
}

func (r *fakeChapterRepo) GetByID(_ context.Context, id string) (*entity.Chapter, error) {
	for _, ch := range r.chapters {
		if ch.ID == id {
			return ch, nil
		}
	}
	return nil, nil
}

func (r *fakeChapterRepo) Update(_ context.Context, ch *entity.Chapter) error {
	for i, cur := range r.chapters {
		if cur.ID == ch.ID {
			r.chapters[i] = ch
		}
	}
	return nil
}

func (r *fakeChapterRepo) Delete(_ context.Context, id string) error {
	for i, ch := range r.chapters {
		if ch.ID == id {
			r.chapters = append(r.chapters[:i], r.chapters[i+1:]...)
			return nil
		}
	}
	return nil
}

func (r *fakeChapterRepo) ListByBook(_ context.Context, bookID string, _ *repository.ChapterFilter) ([]*entity.Chapter, error) {
	var items []*entity.Chapter
	for _, ch := range r.chapters {
		if ch.BookID == bookID {
			items = append(items, ch)
		}
	}
	return items, nil
}

func (r *fakeChapterRepo) UpdateContent(_ context.Context, id, content string) error {
	for _, ch := range r.chapters {
		if ch.ID == id {
			ch.SetContent(content)
			return nil
		}
	}
	return fmt.Errorf("chapter not found: %s", id)
}

func (r *fakeChapterRepo) CountByTemplate(_ context.Context, _ string) (int64, error) {
	return 0, nil
}

func (r *fakeChapterRepo) NextSortOrder(_ context.Context, _ string) (int, error) {
	return len(r.chapters) + 1, nil
}

// fakeGenerator 固定返回内容的生成器
type fakeGenerator struct {
	content string
	calls   int
}

func (g *fakeGenerator) GenerateChapterContent(_ context.Context, _ ai.ChapterRequest) (string, error) {
	g.calls++
	return g.content, nil
}

func newTestWorker(t *testing.T, taskRepo *fakeTaskRepo, bookRepo *fakeBookRepo, chapterRepo *fakeChapterRepo, gen *fakeGenerator) *worker {
	t.Helper()
	return &worker{
		taskRepo:    taskRepo,
		bookRepo:    bookRepo,
		chapterRepo: chapterRepo,
		generator:   gen,
		exporter:    export.NewExporter(t.TempDir(), ""),
	}
}

func generationMessage(t *testing.T, task *entity.Task, chapterIDs []string) *messaging.Message {
	t.Helper()
	msg, err := messaging.NewMessage("msg-1", "book_generation", task.UserID, task.BookID, messaging.BookGenerationMessage{
		TaskID:     task.ID,
		UserID:     task.UserID,
		BookID:     task.BookID,
		ChapterIDs: chapterIDs,
	})
	require.NoError(t, err)
	return msg
}

func TestHandleBookGeneration(t *testing.T) {
	taskRepo := newFakeTaskRepo()
	bookRepo := newFakeBookRepo()
	chapterRepo := &fakeChapterRepo{}
	gen := &fakeGenerator{content: "生成的章节内容"}
	w := newTestWorker(t, taskRepo, bookRepo, chapterRepo, gen)

	book := entity.NewBook("user-1", "Go 实战")
	require.NoError(t, bookRepo.Create(context.Background(), book))
	ch1 := entity.NewChapter(book.ID, "第一章", 1)
	ch2 := entity.NewChapter(book.ID, "第二章", 2)
	require.NoError(t, chapterRepo.Create(context.Background(), ch1))
	require.NoError(t, chapterRepo.Create(context.Background(), ch2))

	task := entity.NewTask("user-1", book.ID, entity.TaskTypeBookGeneration, nil)
	require.NoError(t, taskRepo.Create(context.Background(), task))

	err := w.handleBookGeneration(context.Background(), generationMessage(t, task, nil))
	require.NoError(t, err)

	assert.Equal(t, 2, gen.calls)
	assert.Equal(t, "生成的章节内容", ch1.Content)
	assert.Equal(t, "生成的章节内容", ch2.Content)

	got := taskRepo.tasks[task.ID]
	assert.Equal(t, entity.TaskStatusCompleted, got.Status)
	require.NotNil(t, got.StartedAt)

	var result map[string]interface{}
	require.NoError(t, json.Unmarshal(got.OutputResult, &result))
	assert.Equal(t, float64(2), result["generated_chapters"])
}

// 消息可能先于 API 端事务提交到达，此时任务行还不可见，
// 处理函数必须返回错误让消费者重投，而不是确认后丢弃
func TestHandleBookGenerationTaskRowNotVisible(t *testing.T) {
	taskRepo := newFakeTaskRepo()
	gen := &fakeGenerator{content: "x"}
	w := newTestWorker(t, taskRepo, newFakeBookRepo(), &fakeChapterRepo{}, gen)

	task := entity.NewTask("user-1", "book-1", entity.TaskTypeBookGeneration, nil)
	// 任务行未写入仓储，模拟事务尚未提交

	err := w.handleBookGeneration(context.Background(), generationMessage(t, task, nil))
	require.Error(t, err)
	assert.Zero(t, gen.calls)
}

// 终态任务的重复投递直接确认，不重复执行
func TestHandleBookGenerationFinishedTask(t *testing.T) {
	taskRepo := newFakeTaskRepo()
	gen := &fakeGenerator{content: "x"}
	w := newTestWorker(t, taskRepo, newFakeBookRepo(), &fakeChapterRepo{}, gen)

	task := entity.NewTask("user-1", "book-1", entity.TaskTypeBookGeneration, nil)
	task.Start()
	task.Complete(nil)
	require.NoError(t, taskRepo.Create(context.Background(), task))

	err := w.handleBookGeneration(context.Background(), generationMessage(t, task, nil))
	require.NoError(t, err)
	assert.Zero(t, gen.calls)
	assert.Equal(t, entity.TaskStatusCompleted, taskRepo.tasks[task.ID].Status)
}

// 读取与认领之间任务被取消时放弃执行，取消状态不被覆盖
func TestHandleBookGenerationClaimLostToCancel(t *testing.T) {
	taskRepo := newFakeTaskRepo()
	gen := &fakeGenerator{content: "x"}
	w := newTestWorker(t, taskRepo, newFakeBookRepo(), &fakeChapterRepo{}, gen)

	task := entity.NewTask("user-1", "book-1", entity.TaskTypeBookGeneration, nil)
	require.NoError(t, taskRepo.Create(context.Background(), task))
	taskRepo.markRunning = func(id string) (bool, error) {
		// 条件更新落空，模拟并发取消抢先落地
		taskRepo.tasks[id].Cancel()
		return false, nil
	}

	err := w.handleBookGeneration(context.Background(), generationMessage(t, task, nil))
	require.NoError(t, err)
	assert.Zero(t, gen.calls)
	assert.Equal(t, entity.TaskStatusCancelled, taskRepo.tasks[task.ID].Status)
}

func TestHandleBookExport(t *testing.T) {
	taskRepo := newFakeTaskRepo()
	bookRepo := newFakeBookRepo()
	chapterRepo := &fakeChapterRepo{}
	w := newTestWorker(t, taskRepo, bookRepo, chapterRepo, &fakeGenerator{})

	book := entity.NewBook("user-1", "Go 实战")
	require.NoError(t, bookRepo.Create(context.Background(), book))
	ch := entity.NewChapter(book.ID, "第一章", 1)
	ch.SetContent("正文")
	require.NoError(t, chapterRepo.Create(context.Background(), ch))

	task := entity.NewTask("user-1", book.ID, entity.TaskTypeBookExport, nil)
	require.NoError(t, taskRepo.Create(context.Background(), task))

	msg, err := messaging.NewMessage("msg-2", "book_export", task.UserID, book.ID, messaging.BookExportMessage{
		TaskID: task.ID,
		UserID: task.UserID,
		BookID: book.ID,
		Format: "markdown",
	})
	require.NoError(t, err)

	require.NoError(t, w.handleBookExport(context.Background(), msg))

	got := taskRepo.tasks[task.ID]
	assert.Equal(t, entity.TaskStatusCompleted, got.Status)

	var result map[string]interface{}
	require.NoError(t, json.Unmarshal(got.OutputResult, &result))
	assert.Equal(t, "markdown", result["format"])
	assert.NotEmpty(t, result["file_path"])
}
