// Package runedit 在单个段落的 Run 序列上执行查找替换，只修改 Run 的文本片段，
// 格式信息原样保留。
package runedit

import (
	"strings"

	"github.com/allanpk716/docx_run_replacer/internal/domain"
)

// Range 某个 Run 在段落扁平文本中占据的闭区间 [Start, End]。
// 空文本的 Run 得到 Start > End 的区间。
type Range struct {
	Start int
	End   int
}

// Len 返回区间长度
func (r Range) Len() int {
	return r.End - r.Start + 1
}

// Overlaps 判断区间是否与 [start, end] 相交
func (r Range) Overlaps(start, end int) bool {
	return r.End >= start && r.Start <= end
}

// Flatten 拼接所有 Run 的文本，并为每个 Run 计算其区间
func Flatten(runs []domain.Run) (string, []Range) {
	var sb strings.Builder
	ranges := make([]Range, len(runs))

	cursor := 0
	for i, run := range runs {
		text := run.Text()
		ranges[i] = Range{Start: cursor, End: cursor + len(text) - 1}
		cursor += len(text)
		sb.WriteString(text)
	}

	return sb.String(), ranges
}

// Text 返回段落的扁平文本
func Text(runs []domain.Run) string {
	text, _ := Flatten(runs)
	return text
}
