// Package export 提供图书多格式导出
package export

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fumiama/go-docx"
	"github.com/go-shiori/go-epub"
	"github.com/jung-kurt/gofpdf"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"bookagent-api/internal/domain/entity"
	"bookagent-api/pkg/errors"
	"bookagent-api/pkg/logger"
)

// formatExtensions 导出格式对应的文件扩展名
var formatExtensions = map[string]string{
	"markdown": "md",
	"html":     "html",
	"epub":     "epub",
	"pdf":      "pdf",
	"docx":     "docx",
}

// Exporter 图书导出器
type Exporter struct {
	outputDir   string
	pdfFontPath string
	markdown    goldmark.Markdown
}

// NewExporter 创建图书导出器
// pdfFontPath 指向 UTF-8 TTF 字体文件，中文图书导出 PDF 必须配置，
// 未配置时退化为 cp1252 内置字体，CJK 字符无法渲染
func NewExporter(outputDir, pdfFontPath string) *Exporter {
	if outputDir == "" {
		outputDir = "exports"
	}
	return &Exporter{
		outputDir:   outputDir,
		pdfFontPath: pdfFontPath,
		markdown:    goldmark.New(goldmark.WithExtensions(extension.GFM)),
	}
}

// Export 将图书导出为指定格式的文件，返回输出文件路径
// 章节按传入顺序写出，调用方负责排序
func (e *Exporter) Export(ctx context.Context, book *entity.Book, chapters []*entity.Chapter, format string) (string, error) {
	ext, ok := formatExtensions[format]
	if !ok {
		return "", errors.New(errors.CodeUnprocessable, "unsupported export format").WithDetail(format)
	}

	if err := os.MkdirAll(e.outputDir, 0o755); err != nil {
		return "", errors.Wrap(err, errors.CodeExportFailed, "failed to create output directory")
	}

	filename := fmt.Sprintf("book_%s_%d.%s", book.ID, time.Now().Unix(), ext)
	path := filepath.Join(e.outputDir, filename)

	var err error
	switch format {
	case "markdown":
		err = e.exportMarkdown(book, chapters, path)
	case "html":
		err = e.exportHTML(book, chapters, path)
	case "epub":
		err = e.exportEPUB(book, chapters, path)
	case "pdf":
		err = e.exportPDF(book, chapters, path)
	case "docx":
		err = e.exportDOCX(book, chapters, path)
	}
	if err != nil {
		return "", errors.Wrap(err, errors.CodeExportFailed, fmt.Sprintf("failed to export book as %s", format))
	}

	logger.Info(ctx, "book exported", "book_id", book.ID, "format", format, "path", path)
	return path, nil
}

// buildMarkdown 拼装整本书的 Markdown 文本
func (e *Exporter) buildMarkdown(book *entity.Book, chapters []*entity.Chapter) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# %s\n\n", book.Title)
	if book.Description != "" {
		fmt.Fprintf(&sb, "%s\n\n", book.Description)
	}

	for _, ch := range chapters {
		fmt.Fprintf(&sb, "## %s\n\n", ch.Title)
		if ch.Content != "" {
			sb.WriteString(strings.TrimSpace(ch.Content))
			sb.WriteString("\n\n")
		}
	}

	return sb.String()
}

// renderHTML 将 Markdown 渲染为 HTML 片段
func (e *Exporter) renderHTML(source string) (string, error) {
	var buf bytes.Buffer
	if err := e.markdown.Convert([]byte(source), &buf); err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}
	return buf.String(), nil
}

func (e *Exporter) exportMarkdown(book *entity.Book, chapters []*entity.Chapter, path string) error {
	content := e.buildMarkdown(book, chapters)
	return os.WriteFile(path, []byte(content), 0o644)
}

func (e *Exporter) exportHTML(book *entity.Book, chapters []*entity.Chapter, path string) error {
	body, err := e.renderHTML(e.buildMarkdown(book, chapters))
	if err != nil {
		return err
	}

	var sb strings.Builder
	sb.WriteString("<!DOCTYPE html>\n<html lang=\"zh\">\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&sb, "<title>%s</title>\n", html.EscapeString(book.Title))
	sb.WriteString("</head>\n<body>\n")
	sb.WriteString(body)
	sb.WriteString("</body>\n</html>\n")

	return os.WriteFile(path, []byte(sb.String()), 0o644)
}

func (e *Exporter) exportEPUB(book *entity.Book, chapters []*entity.Chapter, path string) error {
	eb, err := epub.NewEpub(book.Title)
	if err != nil {
		return fmt.Errorf("failed to create epub: %w", err)
	}

	eb.SetLang("zh")
	if book.Description != "" {
		eb.SetDescription(book.Description)
	}

	for _, ch := range chapters {
		section, err := e.renderHTML(ch.Content)
		if err != nil {
			return err
		}
		content := fmt.Sprintf("<h1>%s</h1>\n%s", html.EscapeString(ch.Title), section)
		if _, err := eb.AddSection(content, ch.Title, "", ""); err != nil {
			return fmt.Errorf("failed to add section %q: %w", ch.Title, err)
		}
	}

	return eb.Write(path)
}

func (e *Exporter) exportPDF(book *entity.Book, chapters []*entity.Chapter, path string) error {
	pdf := gofpdf.New("P", "mm", "A4", "")

	// 配置了 UTF-8 字体时用它渲染 CJK 内容，
	// 否则回退到 cp1252 内置字体（中文会被替换为问号）
	family := "Helvetica"
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	if e.pdfFontPath != "" {
		family = "export"
		pdf.AddUTF8Font(family, "", e.pdfFontPath)
		pdf.AddUTF8Font(family, "B", e.pdfFontPath)
		tr = func(s string) string { return s }
	}

	pdf.AddPage()
	pdf.SetFont(family, "B", 20)
	pdf.MultiCell(0, 10, tr(book.Title), "", "C", false)
	if book.Description != "" {
		pdf.Ln(4)
		pdf.SetFont(family, "", 11)
		pdf.MultiCell(0, 6, tr(book.Description), "", "L", false)
	}

	for _, ch := range chapters {
		pdf.AddPage()
		pdf.SetFont(family, "B", 16)
		pdf.MultiCell(0, 8, tr(ch.Title), "", "L", false)
		pdf.Ln(2)
		pdf.SetFont(family, "", 11)
		pdf.MultiCell(0, 6, tr(ch.Content), "", "L", false)
	}

	return pdf.OutputFileAndClose(path)
}

func (e *Exporter) exportDOCX(book *entity.Book, chapters []*entity.Chapter, path string) error {
	doc := docx.New().WithDefaultTheme()

	doc.AddParagraph().AddText(book.Title).Size("36").Bold()
	if book.Description != "" {
		doc.AddParagraph().AddText(book.Description).Size("22")
	}

	for _, ch := range chapters {
		doc.AddParagraph().AddText(ch.Title).Size("28").Bold()
		for _, line := range strings.Split(ch.Content, "\n") {
			doc.AddParagraph().AddText(line).Size("22")
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create docx file: %w", err)
	}
	defer f.Close()

	if _, err := doc.WriteTo(f); err != nil {
		return fmt.Errorf("failed to write docx: %w", err)
	}
	return nil
}
