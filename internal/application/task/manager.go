// Package task 提供异步任务的提交与查询门面
package task

import (
	"context"
	"encoding/json"

	"bookagent-api/internal/domain/entity"
	"bookagent-api/internal/domain/repository"
	"bookagent-api/internal/infrastructure/messaging"
	"bookagent-api/pkg/errors"
	"bookagent-api/pkg/logger"
	"bookagent-api/pkg/metrics"
)

// Publisher 任务消息发布器
type Publisher interface {
	PublishBookGeneration(ctx context.Context, task *messaging.BookGenerationMessage) (string, error)
	PublishBookExport(ctx context.Context, task *messaging.BookExportMessage) (string, error)
}

// ValidExportFormats 支持的导出格式
var ValidExportFormats = map[string]bool{
	"markdown": true,
	"html":     true,
	"epub":     true,
	"pdf":      true,
	"docx":     true,
}

// Manager 异步任务管理器
// 负责创建任务记录并投递到消息队列，执行由 worker 完成
type Manager struct {
	taskRepo  repository.TaskRepository
	publisher Publisher
}

// NewManager 创建任务管理器
func NewManager(taskRepo repository.TaskRepository, publisher Publisher) *Manager {
	return &Manager{
		taskRepo:  taskRepo,
		publisher: publisher,
	}
}

// generationParams 图书生成任务的输入参数
type generationParams struct {
	ChapterIDs []string `json:"chapter_ids,omitempty"`
}

// exportParams 图书导出任务的输入参数
type exportParams struct {
	Format string `json:"format"`
}

// StartBookGeneration 提交图书内容生成任务
// chapterIDs 为空时生成图书全部章节
func (m *Manager) StartBookGeneration(ctx context.Context, userID, bookID string, chapterIDs []string) (*entity.Task, error) {
	params, err := json.Marshal(generationParams{ChapterIDs: chapterIDs})
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternalError, "failed to marshal task params")
	}

	t := entity.NewTask(userID, bookID, entity.TaskTypeBookGeneration, params)
	if err := m.taskRepo.Create(ctx, t); err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "failed to create task")
	}

	_, err = m.publisher.PublishBookGeneration(ctx, &messaging.BookGenerationMessage{
		TaskID:     t.ID,
		UserID:     userID,
		BookID:     bookID,
		ChapterIDs: chapterIDs,
	})
	if err != nil {
		m.failTask(ctx, t, "failed to enqueue task")
		return nil, errors.Wrap(err, errors.CodeQueueError, "failed to publish generation task")
	}

	metrics.TaskSubmittedTotal.WithLabelValues(string(entity.TaskTypeBookGeneration)).Inc()
	logger.Info(ctx, "book generation task submitted", "task_id", t.ID, "book_id", bookID)
	return t, nil
}

// StartBookExport 提交图书导出任务
func (m *Manager) StartBookExport(ctx context.Context, userID, bookID, format string) (*entity.Task, error) {
	if !ValidExportFormats[format] {
		return nil, errors.New(errors.CodeUnprocessable, "unsupported export format").WithDetail(format)
	}

	params, err := json.Marshal(exportParams{Format: format})
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternalError, "failed to marshal task params")
	}

	t := entity.NewTask(userID, bookID, entity.TaskTypeBookExport, params)
	if err := m.taskRepo.Create(ctx, t); err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "failed to create task")
	}

	_, err = m.publisher.PublishBookExport(ctx, &messaging.BookExportMessage{
		TaskID: t.ID,
		UserID: userID,
		BookID: bookID,
		Format: format,
	})
	if err != nil {
		m.failTask(ctx, t, "failed to enqueue task")
		return nil, errors.Wrap(err, errors.CodeQueueError, "failed to publish export task")
	}

	metrics.TaskSubmittedTotal.WithLabelValues(string(entity.TaskTypeBookExport)).Inc()
	logger.Info(ctx, "book export task submitted", "task_id", t.ID, "book_id", bookID, "format", format)
	return t, nil
}

// failTask 投递失败时将任务标记为失败，尽力而为
func (m *Manager) failTask(ctx context.Context, t *entity.Task, reason string) {
	t.Fail(reason)
	if err := m.taskRepo.Update(ctx, t); err != nil {
		logger.Error(ctx, "failed to mark task as failed", err, "task_id", t.ID)
	}
}

// GetStatus 查询任务状态
// 非创建者且非管理员一律返回任务不存在
func (m *Manager) GetStatus(ctx context.Context, userID string, admin bool, taskID string) (*entity.Task, error) {
	t, err := m.taskRepo.GetByID(ctx, taskID)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "failed to get task")
	}
	if t == nil {
		return nil, errors.ErrTaskNotFound
	}
	if t.UserID != userID && !admin {
		return nil, errors.ErrTaskNotFound
	}
	return t, nil
}

// Cancel 请求取消任务
// 仅对未到终态的任务生效，worker 在步骤间检查取消标记
func (m *Manager) Cancel(ctx context.Context, userID string, admin bool, taskID string) (bool, error) {
	t, err := m.taskRepo.GetByID(ctx, taskID)
	if err != nil {
		return false, errors.Wrap(err, errors.CodeDatabaseError, "failed to get task")
	}
	if t == nil {
		return false, errors.ErrTaskNotFound
	}
	if t.UserID != userID && !admin {
		return false, errors.ErrTaskNotFound
	}

	cancelled, err := m.taskRepo.MarkCancelled(ctx, taskID)
	if err != nil {
		return false, errors.Wrap(err, errors.CodeDatabaseError, "failed to cancel task")
	}
	if cancelled {
		logger.Info(ctx, "task cancellation requested", "task_id", taskID)
	}
	return cancelled, nil
}

// List 查询用户提交的任务列表
func (m *Manager) List(ctx context.Context, userID string, filter *repository.TaskFilter, pagination repository.Pagination) (*repository.PagedResult[*entity.Task], error) {
	result, err := m.taskRepo.ListByUser(ctx, userID, filter, pagination)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "failed to list tasks")
	}
	return result, nil
}
