// Package extract 提供多格式文档文本抽取能力
package extract

import (
	"bytes"
	"context"
	"path"
	"strings"

	"github.com/fumiama/go-docx"
	"github.com/ledongthuc/pdf"

	apperrors "github.com/shreyan01/ruberic/pkg/errors"
)

// Extractor 按文件扩展名分派到对应的解析器
type Extractor struct{}

// NewExtractor 创建文本抽取器
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Supported 检查文件扩展名是否受支持
func (e *Extractor) Supported(fileName string) bool {
	switch strings.ToLower(path.Ext(fileName)) {
	case ".pdf", ".docx", ".txt", ".md", ".markdown":
		return true
	}
	return false
}

// Extract 从文件内容中抽取纯文本
// 返回的文本已去除首尾空白；空文本返回 ErrNoTextContent
func (e *Extractor) Extract(ctx context.Context, fileName string, data []byte) (string, error) {
	var (
		text string
		err  error
	)

	switch strings.ToLower(path.Ext(fileName)) {
	case ".pdf":
		text, err = extractPDF(data)
	case ".docx":
		text, err = extractDOCX(data)
	case ".txt", ".md", ".markdown":
		text = string(data)
	default:
		return "", apperrors.New(apperrors.CodeUnsupportedFileType, "unsupported file type: "+path.Ext(fileName))
	}

	if err != nil {
		return "", apperrors.Wrap(err, apperrors.CodeExtractionFailed, "text extraction failed")
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", apperrors.ErrNoTextContent
	}
	return text, nil
}

func extractPDF(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func extractDOCX(data []byte) (string, error) {
	doc, err := docx.Parse(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, item := range doc.Document.Body.Items {
		switch block := item.(type) {
		case *docx.Paragraph:
			sb.WriteString(block.String())
			sb.WriteByte('\n')
		case *docx.Table:
			sb.WriteString(block.String())
			sb.WriteByte('\n')
		}
	}
	return sb.String(), nil
}
