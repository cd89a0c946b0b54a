// Package postgres 提供 PostgreSQL Repository 实现
package postgres

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"bookagent-api/internal/domain/entity"
	"bookagent-api/internal/domain/repository"
)

// TaskRepository 异步任务仓储实现
type TaskRepository struct {
	client *Client
}

// NewTaskRepository 创建任务仓储
func NewTaskRepository(client *Client) *TaskRepository {
	return &TaskRepository{client: client}
}

// Create 创建任务
func (r *TaskRepository) Create(ctx context.Context, task *entity.Task) error {
	ctx, span := tracer.Start(ctx, "postgres.TaskRepository.Create")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Create(task).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create task: %w", err)
	}
	return nil
}

// GetByID 根据 ID 获取任务
func (r *TaskRepository) GetByID(ctx context.Context, id string) (*entity.Task, error) {
	ctx, span := tracer.Start(ctx, "postgres.TaskRepository.GetByID")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var task entity.Task
	if err := db.First(&task, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return &task, nil
}

// Update 更新任务
func (r *TaskRepository) Update(ctx context.Context, task *entity.Task) error {
	ctx, span := tracer.Start(ctx, "postgres.TaskRepository.Update")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Save(task).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to update task: %w", err)
	}
	return nil
}

// ListByUser 获取用户提交的任务列表
func (r *TaskRepository) ListByUser(ctx context.Context, userID string, filter *repository.TaskFilter, pagination repository.Pagination) (*repository.PagedResult[*entity.Task], error) {
	ctx, span := tracer.Start(ctx, "postgres.TaskRepository.ListByUser")
	defer span.End()

	db := getDB(ctx, r.client.db)
	query := db.Model(&entity.Task{}).Where("user_id = ?", userID)

	if filter != nil {
		if filter.Type != "" {
			query = query.Where("task_type = ?", filter.Type)
		}
		if filter.Status != "" {
			query = query.Where("status = ?", filter.Status)
		}
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to count tasks: %w", err)
	}

	var tasks []*entity.Task
	if err := query.Order("created_at DESC").
		Offset(pagination.Offset()).
		Limit(pagination.Limit()).
		Find(&tasks).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	return repository.NewPagedResult(tasks, total, pagination), nil
}

// UpdateProgress 更新任务进度
func (r *TaskRepository) UpdateProgress(ctx context.Context, id string, current, total int, statusText string) error {
	ctx, span := tracer.Start(ctx, "postgres.TaskRepository.UpdateProgress")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Model(&entity.Task{}).Where("id = ?", id).Updates(map[string]interface{}{
		"current":     current,
		"total":       total,
		"status_text": statusText,
	}).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to update task progress: %w", err)
	}
	return nil
}

// MarkRunning 将待执行或执行中的任务置为执行中
// 条件更新，读取任务后落地的取消不会被覆盖；
// 重复投递（worker 崩溃后消息重投）允许 running -> running 以便续跑
func (r *TaskRepository) MarkRunning(ctx context.Context, id string) (bool, error) {
	ctx, span := tracer.Start(ctx, "postgres.TaskRepository.MarkRunning")
	defer span.End()

	db := getDB(ctx, r.client.db)
	result := db.Model(&entity.Task{}).
		Where("id = ? AND status IN ?", id, []entity.TaskStatus{entity.TaskStatusPending, entity.TaskStatusRunning}).
		Updates(map[string]interface{}{
			"status":     entity.TaskStatusRunning,
			"started_at": gorm.Expr("COALESCE(started_at, ?)", time.Now()),
		})
	if result.Error != nil {
		span.RecordError(result.Error)
		return false, fmt.Errorf("failed to mark task running: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// MarkCancelled 将未到终态的任务标记为已取消
// 终态任务不受影响，返回是否有行被更新
func (r *TaskRepository) MarkCancelled(ctx context.Context, id string) (bool, error) {
	ctx, span := tracer.Start(ctx, "postgres.TaskRepository.MarkCancelled")
	defer span.End()

	db := getDB(ctx, r.client.db)
	result := db.Model(&entity.Task{}).
		Where("id = ? AND status IN ?", id, []entity.TaskStatus{entity.TaskStatusPending, entity.TaskStatusRunning}).
		Updates(map[string]interface{}{
			"status":       entity.TaskStatusCancelled,
			"completed_at": time.Now(),
		})
	if result.Error != nil {
		span.RecordError(result.Error)
		return false, fmt.Errorf("failed to cancel task: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}
