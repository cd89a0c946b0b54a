// Package dto 提供 HTTP 层数据传输对象
package dto

import (
	"encoding/json"
	"time"

	"bookagent-api/internal/domain/entity"
)

// GenerateBookRequest 图书内容生成任务请求
// ChapterIDs 为空时生成全部章节
type GenerateBookRequest struct {
	BookID     string   `json:"book_id" binding:"required,uuid"`
	ChapterIDs []string `json:"chapter_ids" binding:"omitempty,dive,uuid"`
}

// ExportBookRequest 图书导出任务请求
type ExportBookRequest struct {
	BookID string `json:"book_id" binding:"required,uuid"`
	Format string `json:"format" binding:"required"`
}

// TaskResponse 任务状态响应
type TaskResponse struct {
	ID          string          `json:"id"`
	BookID      string          `json:"book_id"`
	Type        entity.TaskType `json:"type"`
	State       string          `json:"state"`
	Current     int             `json:"current"`
	Total       int             `json:"total"`
	Status      string          `json:"status,omitempty"`
	Result      json.RawMessage `json:"result,omitempty"`
	Error       string          `json:"error,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	StartedAt   *time.Time      `json:"started_at,omitempty"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}

// TaskListResponse 任务列表响应
type TaskListResponse struct {
	Items []*TaskResponse `json:"items"`
}

// CancelTaskResponse 取消任务响应
type CancelTaskResponse struct {
	Cancelled bool `json:"cancelled"`
}

// ToTaskResponse 实体转换为响应
func ToTaskResponse(t *entity.Task) *TaskResponse {
	if t == nil {
		return nil
	}
	return &TaskResponse{
		ID:          t.ID,
		BookID:      t.BookID,
		Type:        t.Type,
		State:       string(t.Status),
		Current:     t.Current,
		Total:       t.Total,
		Status:      t.StatusText,
		Result:      t.OutputResult,
		Error:       t.ErrorMessage,
		CreatedAt:   t.CreatedAt,
		StartedAt:   t.StartedAt,
		CompletedAt: t.CompletedAt,
	}
}

// ToTaskListResponse 实体列表转换为响应
func ToTaskListResponse(tasks []*entity.Task) *TaskListResponse {
	items := make([]*TaskResponse, len(tasks))
	for i, t := range tasks {
		items[i] = ToTaskResponse(t)
	}
	return &TaskListResponse{Items: items}
}
