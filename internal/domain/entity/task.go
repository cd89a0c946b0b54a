// Package entity 定义领域实体
package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// TaskType 异步任务类型
type TaskType string

const (
	TaskTypeBookGeneration TaskType = "book_generation"
	TaskTypeBookExport     TaskType = "book_export"
)

// TaskStatus 异步任务状态
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
	TaskStatusCancelled TaskStatus = "cancelled"
)

// Task 异步任务记录
type Task struct {
	ID           string          `json:"id" gorm:"type:uuid;primaryKey"`
	UserID       string          `json:"user_id" gorm:"type:uuid;index;not null"`
	BookID       string          `json:"book_id" gorm:"type:uuid;index;not null"`
	Type         TaskType        `json:"type" gorm:"column:task_type;type:varchar(50);not null"`
	Status       TaskStatus      `json:"status" gorm:"type:varchar(50);default:'pending';index"`
	Current      int             `json:"current" gorm:"default:0"`
	Total        int             `json:"total" gorm:"default:0"`
	StatusText   string          `json:"status_text,omitempty" gorm:"type:varchar(512)"`
	InputParams  json.RawMessage `json:"input_params,omitempty" gorm:"type:jsonb"`
	OutputResult json.RawMessage `json:"output_result,omitempty" gorm:"type:jsonb"`
	ErrorMessage string          `json:"error_message,omitempty" gorm:"type:text"`
	RetryCount   int             `json:"retry_count" gorm:"default:0"`
	CreatedAt    time.Time       `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt    time.Time       `json:"updated_at" gorm:"autoUpdateTime"`
	StartedAt    *time.Time      `json:"started_at,omitempty"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty"`
}

// TableName 指定表名
func (Task) TableName() string {
	return "tasks"
}

// NewTask 创建新任务
func NewTask(userID, bookID string, taskType TaskType, inputParams json.RawMessage) *Task {
	now := time.Now()
	return &Task{
		ID:          uuid.NewString(),
		UserID:      userID,
		BookID:      bookID,
		Type:        taskType,
		Status:      TaskStatusPending,
		InputParams: inputParams,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Start 开始执行任务
func (t *Task) Start() {
	now := time.Now()
	t.Status = TaskStatusRunning
	t.StartedAt = &now
}

// Progress 更新任务进度
func (t *Task) Progress(current, total int, statusText string) {
	t.Current = current
	t.Total = total
	t.StatusText = statusText
	t.UpdatedAt = time.Now()
}

// Complete 完成任务
func (t *Task) Complete(result json.RawMessage) {
	now := time.Now()
	t.Status = TaskStatusCompleted
	t.OutputResult = result
	t.CompletedAt = &now
}

// Fail 任务失败
func (t *Task) Fail(errMsg string) {
	now := time.Now()
	t.Status = TaskStatusFailed
	t.ErrorMessage = errMsg
	t.CompletedAt = &now
}

// Cancel 取消任务
func (t *Task) Cancel() {
	now := time.Now()
	t.Status = TaskStatusCancelled
	t.CompletedAt = &now
}

// Finished 检查任务是否已到达终态
func (t *Task) Finished() bool {
	switch t.Status {
	case TaskStatusCompleted, TaskStatusFailed, TaskStatusCancelled:
		return true
	}
	return false
}

// Duration 任务执行耗时
func (t *Task) Duration() time.Duration {
	if t.StartedAt == nil || t.CompletedAt == nil {
		return 0
	}
	return t.CompletedAt.Sub(*t.StartedAt)
}
