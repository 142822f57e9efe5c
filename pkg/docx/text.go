package docx

import (
	"fmt"

	"github.com/lu4p/cat"
)

// ExtractText 提取文档的纯文本
func ExtractText(filePath string) (string, error) {
	text, err := cat.File(filePath)
	if err != nil {
		return "", fmt.Errorf("提取文本失败: %w", err)
	}
	return text, nil
}
