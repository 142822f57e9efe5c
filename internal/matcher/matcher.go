package matcher

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/allanpk716/docx_run_replacer/internal/domain"
)

// FindAll 返回 search 在 text 中所有出现的起始位置（字节偏移）。
// 每次命中后从命中位置的下一个字符继续查找，因此重叠的候选位置也会被报告。
func FindAll(text, search string) ([]int, error) {
	if search == "" {
		return nil, fmt.Errorf("查找文本不能为空: %w", domain.ErrInvalidInput)
	}

	var positions []int
	from := 0
	for from <= len(text) {
		idx := strings.Index(text[from:], search)
		if idx < 0 {
			break
		}
		pos := from + idx
		positions = append(positions, pos)

		_, size := utf8.DecodeRuneInString(text[pos:])
		from = pos + size
	}

	return positions, nil
}

// ValidateKeywordFormat 验证关键词格式是否正确 (#key# 格式)
func ValidateKeywordFormat(keyword string) bool {
	if len(keyword) < 3 {
		return false
	}
	return strings.HasPrefix(keyword, "#") && strings.HasSuffix(keyword, "#")
}

// FormatKeyword 将关键词名称格式化为 #key# 格式
func FormatKeyword(keywordName string) string {
	if ValidateKeywordFormat(keywordName) {
		return keywordName
	}
	return "#" + keywordName + "#"
}
