package export

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookagent-api/internal/domain/entity"
	"bookagent-api/pkg/errors"
)

func testBook() (*entity.Book, []*entity.Chapter) {
	book := entity.NewBook("author-1", "Go 并发编程")
	book.Description = "一本关于 Go 并发的书"

	ch1 := entity.NewChapter(book.ID, "goroutine 基础", 1)
	ch1.SetContent("goroutine 是轻量级线程。\n\n```go\ngo func() {}()\n```")
	ch2 := entity.NewChapter(book.ID, "channel 通信", 2)
	ch2.SetContent("channel 用于 goroutine 间通信。")

	return book, []*entity.Chapter{ch1, ch2}
}

func TestExportMarkdown(t *testing.T) {
	book, chapters := testBook()
	e := NewExporter(t.TempDir(), "")

	path, err := e.Export(context.Background(), book, chapters, "markdown")
	require.NoError(t, err)
	assert.Equal(t, ".md", filepath.Ext(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)

	assert.True(t, strings.HasPrefix(content, "# Go 并发编程\n"))
	assert.Contains(t, content, "一本关于 Go 并发的书")
	assert.Contains(t, content, "## goroutine 基础")
	assert.Contains(t, content, "## channel 通信")

	// 章节按传入顺序写出
	assert.Less(t, strings.Index(content, "goroutine 基础"), strings.Index(content, "channel 通信"))
}

func TestExportHTML(t *testing.T) {
	book, chapters := testBook()
	e := NewExporter(t.TempDir(), "")

	path, err := e.Export(context.Background(), book, chapters, "html")
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)

	assert.Contains(t, content, "<!DOCTYPE html>")
	assert.Contains(t, content, "<title>Go 并发编程</title>")
	assert.Contains(t, content, "<h1>Go 并发编程</h1>")
	assert.Contains(t, content, "<h2>goroutine 基础</h2>")
	// Markdown 代码块渲染为 pre/code
	assert.Contains(t, content, "<code")
}

func TestExportEPUB(t *testing.T) {
	book, chapters := testBook()
	e := NewExporter(t.TempDir(), "")

	path, err := e.Export(context.Background(), book, chapters, "epub")
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestExportPDF(t *testing.T) {
	book, chapters := testBook()
	e := NewExporter(t.TempDir(), "")

	path, err := e.Export(context.Background(), book, chapters, "pdf")
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "%PDF"))
}

// 配置了字体但文件不可用时必须失败，而不是静默退化成问号正文
func TestExportPDFBadFontFails(t *testing.T) {
	book, chapters := testBook()
	e := NewExporter(t.TempDir(), filepath.Join(t.TempDir(), "missing.ttf"))

	_, err := e.Export(context.Background(), book, chapters, "pdf")
	require.Error(t, err)
}

func TestExportDOCX(t *testing.T) {
	book, chapters := testBook()
	e := NewExporter(t.TempDir(), "")

	path, err := e.Export(context.Background(), book, chapters, "docx")
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestExportUnsupportedFormat(t *testing.T) {
	book, chapters := testBook()
	e := NewExporter(t.TempDir(), "")

	_, err := e.Export(context.Background(), book, chapters, "mobi")
	require.Error(t, err)

	appErr := errors.AsAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, errors.CodeUnprocessable, appErr.Code)
}

func TestExportCreatesOutputDir(t *testing.T) {
	book, chapters := testBook()
	dir := filepath.Join(t.TempDir(), "nested", "exports")
	e := NewExporter(dir, "")

	path, err := e.Export(context.Background(), book, chapters, "markdown")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(path, dir))
}
