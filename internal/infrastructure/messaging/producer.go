// Package messaging 提供消息队列实现
package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("messaging")

// Producer 消息生产者
type Producer struct {
	client *redis.Client
	maxLen int64
}

// NewProducer 创建消息生产者
func NewProducer(client *redis.Client, maxLen int64) *Producer {
	if maxLen <= 0 {
		maxLen = 100000
	}
	return &Producer{
		client: client,
		maxLen: maxLen,
	}
}

// Publish 发布消息到指定流
func (p *Producer) Publish(ctx context.Context, stream Stream, msg *Message) (string, error) {
	ctx, span := tracer.Start(ctx, "producer.Publish",
		trace.WithAttributes(
			attribute.String("stream", string(stream)),
			attribute.String("message.id", msg.ID),
			attribute.String("message.type", msg.Type),
		))
	defer span.End()

	data, err := json.Marshal(msg)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to marshal message: %w", err)
	}

	result, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: string(stream),
		MaxLen: p.maxLen,
		Approx: true,
		Values: map[string]interface{}{
			"data": string(data),
		},
	}).Result()

	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to publish message: %w", err)
	}

	span.SetAttributes(attribute.String("stream.message_id", result))
	return result, nil
}

// PublishBookGeneration 发布图书内容生成任务
func (p *Producer) PublishBookGeneration(ctx context.Context, task *BookGenerationMessage) (string, error) {
	msg, err := NewMessage(task.TaskID, "book_generation", task.UserID, task.BookID, task)
	if err != nil {
		return "", err
	}

	return p.Publish(ctx, StreamBookTasks, msg)
}

// PublishBookExport 发布图书导出任务
func (p *Producer) PublishBookExport(ctx context.Context, task *BookExportMessage) (string, error) {
	msg, err := NewMessage(task.TaskID, "book_export", task.UserID, task.BookID, task)
	if err != nil {
		return "", err
	}

	msg.SetMetadata("format", task.Format)
	return p.Publish(ctx, StreamBookTasks, msg)
}

// BookGenerationMessage 图书内容生成任务消息
type BookGenerationMessage struct {
	TaskID string `json:"task_id"`
	UserID string `json:"user_id"`
	BookID string `json:"book_id"`
	// ChapterIDs 为空时生成图书全部章节
	ChapterIDs []string `json:"chapter_ids,omitempty"`
}

// BookExportMessage 图书导出任务消息
type BookExportMessage struct {
	TaskID string `json:"task_id"`
	UserID string `json:"user_id"`
	BookID string `json:"book_id"`
	Format string `json:"format"`
}
