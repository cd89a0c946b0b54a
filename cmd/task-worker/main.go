// Package main 异步任务执行器入口（task-worker）
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"bookagent-api/internal/application/ai"
	"bookagent-api/internal/application/export"
	"bookagent-api/internal/config"
	"bookagent-api/internal/domain/entity"
	"bookagent-api/internal/domain/repository"
	"bookagent-api/internal/infrastructure/llm"
	"bookagent-api/internal/infrastructure/messaging"
	"bookagent-api/internal/infrastructure/persistence/postgres"
	"bookagent-api/internal/infrastructure/persistence/redis"
	"bookagent-api/pkg/logger"
	"bookagent-api/pkg/metrics"
	"bookagent-api/pkg/tracer"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)
	ctx := context.Background()

	shutdown, err := tracer.Init(ctx, tracer.Config{
		ServiceName: "task-worker",
		Endpoint:    cfg.Observability.Tracing.Endpoint,
		SampleRate:  cfg.Observability.Tracing.SampleRate,
		Enabled:     cfg.Observability.Tracing.Enabled,
	})
	if err != nil {
		logger.Fatal(ctx, "failed to init tracer", err)
	}
	defer func() { _ = shutdown(ctx) }()

	pgClient, err := postgres.NewClient(&cfg.Database.Postgres)
	if err != nil {
		logger.Fatal(ctx, "failed to init postgres", err)
	}
	defer func() { _ = pgClient.Close() }()

	redisClient, err := redis.NewClient(&cfg.Cache.Redis)
	if err != nil {
		logger.Fatal(ctx, "failed to init redis", err)
	}
	defer func() { _ = redisClient.Close() }()

	taskRepo := postgres.NewTaskRepository(pgClient)
	bookRepo := postgres.NewBookRepository(pgClient)
	chapterRepo := postgres.NewChapterRepository(pgClient)

	svc := ai.NewService(llm.NewClient(cfg.LLM))
	var generator ai.ChapterGenerator = svc
	if cfg.AI.CacheEnabled {
		generator = ai.NewCachedGenerator(svc, redis.NewCache(redisClient), cfg.AI.CacheTTL)
	}
	exporter := export.NewExporter(cfg.Export.OutputDir, cfg.Export.PDFFontPath)

	w := &worker{
		taskRepo:    taskRepo,
		bookRepo:    bookRepo,
		chapterRepo: chapterRepo,
		generator:   generator,
		exporter:    exporter,
	}

	consumer := messaging.NewConsumer(redisClient.Redis(), messaging.ConsumerConfig{
		Stream:        messaging.StreamBookTasks,
		Group:         messaging.ConsumerGroupTaskWorker,
		ConsumerName:  hostnameConsumerName(),
		BlockTimeout:  cfg.Messaging.RedisStream.BlockTimeout,
		ClaimInterval: cfg.Messaging.RedisStream.ClaimInterval,
		RetryLimit:    cfg.Messaging.RedisStream.RetryLimit,
		Backoff: messaging.BackoffConfig{
			Initial:    cfg.Messaging.RedisStream.RetryBackoff.Initial,
			Max:        cfg.Messaging.RedisStream.RetryBackoff.Max,
			Multiplier: cfg.Messaging.RedisStream.RetryBackoff.Multiplier,
		},
	})

	consumer.RegisterHandler("book_generation", w.handleBookGeneration)
	consumer.RegisterHandler("book_export", w.handleBookExport)

	if err := consumer.Start(ctx); err != nil {
		logger.Fatal(ctx, "failed to start consumer", err)
	}
	go consumer.MonitorDLQ(ctx, 100)

	log := logger.FromContext(ctx)
	log.Info("task-worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("task-worker shutting down")
	consumer.Stop()
}

// worker 任务执行器
// 进度更新需要对状态查询立即可见，处理过程不包在请求级事务内
type worker struct {
	taskRepo    repository.TaskRepository
	bookRepo    repository.BookRepository
	chapterRepo repository.ChapterRepository
	generator   ai.ChapterGenerator
	exporter    *export.Exporter
}

// handleBookGeneration 执行图书内容生成任务
func (w *worker) handleBookGeneration(ctx context.Context, msg *messaging.Message) error {
	var payload messaging.BookGenerationMessage
	if err := msg.UnmarshalPayload(&payload); err != nil {
		return err
	}

	t, ok, err := w.claimTask(ctx, payload.TaskID)
	if err != nil || !ok {
		return err
	}

	chapters, err := w.loadChapters(ctx, payload.BookID, payload.ChapterIDs)
	if err != nil {
		return w.failTask(ctx, t, err)
	}

	total := len(chapters)
	generated := 0
	for i, ch := range chapters {
		// 章节之间检查取消请求
		cur, err := w.taskRepo.GetByID(ctx, t.ID)
		if err == nil && cur != nil && cur.Status == entity.TaskStatusCancelled {
			logger.Info(ctx, "task cancelled, stopping generation",
				"task_id", t.ID, "generated", generated)
			return nil
		}

		_ = w.taskRepo.UpdateProgress(ctx, t.ID, i, total, "正在生成章节: "+ch.Title)

		content, err := w.generator.GenerateChapterContent(ctx, ai.ChapterRequest{
			Title:       ch.Title,
			Description: chapterDescription(ch),
		})
		if err != nil {
			return w.failTask(ctx, t, err)
		}

		if err := w.chapterRepo.UpdateContent(ctx, ch.ID, content); err != nil {
			return w.failTask(ctx, t, err)
		}
		generated++
	}

	_ = w.taskRepo.UpdateProgress(ctx, t.ID, total, total, "生成完成")

	result, _ := json.Marshal(map[string]interface{}{
		"generated_chapters": generated,
	})
	t.Progress(total, total, "生成完成")
	t.Complete(result)
	if err := w.taskRepo.Update(ctx, t); err != nil {
		return err
	}

	metrics.TaskCompletedTotal.WithLabelValues(string(t.Type), string(t.Status)).Inc()
	metrics.TaskDuration.WithLabelValues(string(t.Type)).Observe(t.Duration().Seconds())
	return nil
}

// handleBookExport 执行图书导出任务
func (w *worker) handleBookExport(ctx context.Context, msg *messaging.Message) error {
	var payload messaging.BookExportMessage
	if err := msg.UnmarshalPayload(&payload); err != nil {
		return err
	}

	t, ok, err := w.claimTask(ctx, payload.TaskID)
	if err != nil || !ok {
		return err
	}

	book, err := w.bookRepo.GetByID(ctx, payload.BookID)
	if err != nil {
		return w.failTask(ctx, t, err)
	}
	if book == nil {
		return w.failTask(ctx, t, fmt.Errorf("book not found: %s", payload.BookID))
	}

	chapters, err := w.chapterRepo.ListByBook(ctx, payload.BookID, nil)
	if err != nil {
		return w.failTask(ctx, t, err)
	}

	_ = w.taskRepo.UpdateProgress(ctx, t.ID, 1, 2, "正在导出: "+payload.Format)

	path, err := w.exporter.Export(ctx, book, chapters, payload.Format)
	if err != nil {
		return w.failTask(ctx, t, err)
	}

	result, _ := json.Marshal(map[string]interface{}{
		"file_path": path,
		"format":    payload.Format,
	})
	t.Progress(2, 2, "导出完成")
	t.Complete(result)
	if err := w.taskRepo.Update(ctx, t); err != nil {
		return err
	}

	metrics.TaskCompletedTotal.WithLabelValues(string(t.Type), string(t.Status)).Inc()
	metrics.TaskDuration.WithLabelValues(string(t.Type)).Observe(t.Duration().Seconds())
	return nil
}

// claimTask 认领任务并置为执行中
// 任务行在 API 端的请求级事务内创建，消息可能先于事务提交到达，
// 此时返回错误交给消费者的重试退避机制重投，绝不能确认消息；
// 终态任务（含重复投递的已完成任务）直接确认，不重复执行
func (w *worker) claimTask(ctx context.Context, taskID string) (*entity.Task, bool, error) {
	t, err := w.taskRepo.GetByID(ctx, taskID)
	if err != nil {
		return nil, false, err
	}
	if t == nil {
		logger.Warn(ctx, "task row not visible yet, requeueing", "task_id", taskID)
		return nil, false, fmt.Errorf("task not found: %s", taskID)
	}
	if t.Finished() {
		return nil, false, nil
	}

	// 条件更新：读取之后落地的取消不会被 running 覆盖
	ok, err := w.taskRepo.MarkRunning(ctx, t.ID)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		logger.Info(ctx, "task no longer claimable, skipping", "task_id", t.ID)
		return nil, false, nil
	}

	// 同步内存态，完成时整行落库不能抹掉启动时间
	if t.StartedAt == nil {
		t.Start()
	} else {
		t.Status = entity.TaskStatusRunning
	}
	return t, true, nil
}

// loadChapters 加载待生成的章节
// 未指定章节 ID 时生成整本书
func (w *worker) loadChapters(ctx context.Context, bookID string, chapterIDs []string) ([]*entity.Chapter, error) {
	if len(chapterIDs) == 0 {
		return w.chapterRepo.ListByBook(ctx, bookID, nil)
	}

	chapters := make([]*entity.Chapter, 0, len(chapterIDs))
	for _, id := range chapterIDs {
		ch, err := w.chapterRepo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if ch == nil || ch.BookID != bookID {
			return nil, fmt.Errorf("chapter not found in book: %s", id)
		}
		chapters = append(chapters, ch)
	}
	return chapters, nil
}

// failTask 将任务标记为失败并返回原始错误
func (w *worker) failTask(ctx context.Context, t *entity.Task, cause error) error {
	t.Fail(cause.Error())
	if err := w.taskRepo.Update(ctx, t); err != nil {
		logger.Error(ctx, "failed to mark task as failed", err, "task_id", t.ID)
	}
	metrics.TaskCompletedTotal.WithLabelValues(string(t.Type), string(t.Status)).Inc()
	return cause
}

// chapterDescription 从章节元数据里取生成要点
func chapterDescription(ch *entity.Chapter) string {
	if ch.Metadata == nil {
		return ""
	}
	if desc, ok := ch.Metadata["description"].(string); ok {
		return desc
	}
	return ""
}

func hostnameConsumerName() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "worker"
	}
	return fmt.Sprintf("%s-%d", host, os.Getpid())
}
