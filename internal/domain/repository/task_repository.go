// Package repository 定义数据访问层接口
package repository

import (
	"context"

	"bookagent-api/internal/domain/entity"
)

// TaskFilter 任务过滤条件
type TaskFilter struct {
	Type   entity.TaskType
	Status entity.TaskStatus
}

// TaskRepository 异步任务仓储接口
type TaskRepository interface {
	// Create 创建任务
	Create(ctx context.Context, task *entity.Task) error

	// GetByID 根据 ID 获取任务
	GetByID(ctx context.Context, id string) (*entity.Task, error)

	// Update 更新任务
	Update(ctx context.Context, task *entity.Task) error

	// ListByUser 获取用户提交的任务列表
	ListByUser(ctx context.Context, userID string, filter *TaskFilter, pagination Pagination) (*PagedResult[*entity.Task], error)

	// UpdateProgress 更新任务进度
	UpdateProgress(ctx context.Context, id string, current, total int, statusText string) error

	// MarkRunning 将待执行或执行中的任务置为执行中，返回是否有变更
	// 并发取消时不覆盖取消状态
	MarkRunning(ctx context.Context, id string) (bool, error)

	// MarkCancelled 将未到终态的任务标记为已取消，返回是否有变更
	MarkCancelled(ctx context.Context, id string) (bool, error)
}
