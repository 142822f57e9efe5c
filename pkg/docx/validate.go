package docx

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	ndocx "github.com/nguyenthenguyen/docx"

	"github.com/allanpk716/docx_run_replacer/internal/domain"
)

// Validate 检查文件是否是可处理的 DOCX 文档
func Validate(filePath string) error {
	info, err := os.Stat(filePath)
	if err != nil {
		return fmt.Errorf("文件不存在: %s: %w", filePath, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s 是目录: %w", filePath, domain.ErrInvalidInput)
	}
	if !strings.EqualFold(filepath.Ext(filePath), ".docx") {
		return fmt.Errorf("文件不是 .docx 格式: %s: %w", filePath, domain.ErrInvalidInput)
	}

	reader, err := ndocx.ReadDocxFile(filePath)
	if err != nil {
		return fmt.Errorf("无法打开文档: %v: %w", err, domain.ErrMalformedDocument)
	}
	defer reader.Close()

	if strings.TrimSpace(reader.Editable().GetContent()) == "" {
		return fmt.Errorf("%s 为空: %w", MainDocumentPart, domain.ErrMalformedDocument)
	}
	return nil
}
