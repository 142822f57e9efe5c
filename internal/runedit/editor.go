package runedit

import (
	"fmt"
	"strings"

	"github.com/allanpk716/docx_run_replacer/internal/domain"
	"github.com/allanpk716/docx_run_replacer/internal/matcher"
)

// edit 把某个 Run 原始文本中的 [from, to) 替换为 text
type edit struct {
	from int
	to   int
	text string
}

// deletion 一段连续的待删除 Run
type deletion struct {
	start int
	count int
}

// Apply 在 runs 的扁平文本中查找 search 并替换为 replacement。
//
// 返回新的 Run 序列和实际替换的次数。未被触及的 Run 不会调用 SetText，
// 被完全吞并的中间 Run 从结果中移除，不会创建新的 Run。
// 没有匹配时原样返回 runs。
func Apply(runs []domain.Run, search, replacement string) ([]domain.Run, int, error) {
	if search == "" {
		return nil, 0, fmt.Errorf("查找文本不能为空: %w", domain.ErrInvalidInput)
	}
	if len(runs) == 0 {
		return runs, 0, nil
	}

	flat, ranges := Flatten(runs)
	positions, err := matcher.FindAll(flat, search)
	if err != nil {
		return nil, 0, err
	}
	if len(positions) == 0 {
		return runs, 0, nil
	}

	edits := make([][]edit, len(runs))
	var deletions []deletion

	applied := 0
	lastEnd := -1
	for _, start := range positions {
		end := start + len(search) - 1
		// 与已处理的匹配重叠，跳过
		if start <= lastEnd {
			continue
		}

		span, err := resolveSpan(ranges, start, end)
		if err != nil {
			return nil, 0, err
		}
		lastEnd = end
		applied++

		first, last := span[0], span[len(span)-1]
		if first == last {
			r := ranges[first]
			edits[first] = append(edits[first], edit{
				from: start - r.Start,
				to:   end - r.Start + 1,
				text: replacement,
			})
			continue
		}

		// 首个 Run 以未匹配的前缀开头：只保留前缀
		if r := ranges[first]; r.Start < start {
			edits[first] = append(edits[first], edit{from: start - r.Start, to: r.Len(), text: ""})
			first++
		}

		// 承载替换文本的 Run；若它同时是最后一个 Run，尾部未匹配的部分原样保留
		anchor := first
		r := ranges[anchor]
		edits[anchor] = append(edits[anchor], edit{
			from: max(start, r.Start) - r.Start,
			to:   max(min(end, r.End)-r.Start+1, 0),
			text: replacement,
		})
		first = anchor + 1

		// 最后一个 Run 以未匹配的后缀结尾：只保留后缀
		if last > anchor {
			if r := ranges[last]; r.End > end {
				edits[last] = append(edits[last], edit{from: 0, to: end - r.Start + 1, text: ""})
				last--
			}
		}

		if first <= last {
			deletions = append(deletions, deletion{start: first, count: last - first + 1})
		}
	}

	drop := make([]bool, len(runs))
	for _, d := range deletions {
		for i := d.start; i < d.start+d.count; i++ {
			drop[i] = true
		}
	}

	result := make([]domain.Run, 0, len(runs))
	for i, run := range runs {
		if drop[i] {
			continue
		}
		if len(edits[i]) > 0 {
			r := ranges[i]
			original := flat[r.Start : r.Start+max(r.Len(), 0)]
			run.SetText(applyEdits(original, edits[i]))
		}
		result = append(result, run)
	}

	return result, applied, nil
}

// resolveSpan 返回匹配覆盖的 Run 下标，找不到时说明区间索引已损坏
func resolveSpan(ranges []Range, start, end int) ([]int, error) {
	span := Resolve(ranges, start, end)
	if len(span) == 0 {
		return nil, fmt.Errorf("匹配位置 [%d, %d] 没有对应的 Run: %w", start, end, domain.ErrInvariantViolation)
	}
	return span, nil
}

// applyEdits 按顺序应用互不重叠的编辑
func applyEdits(text string, edits []edit) string {
	var sb strings.Builder
	prev := 0
	for _, e := range edits {
		sb.WriteString(text[prev:e.from])
		sb.WriteString(e.text)
		prev = e.to
	}
	sb.WriteString(text[prev:])
	return sb.String()
}

// ReplaceInParagraph 对单个段落执行一次查找替换，有替换时写回段落
func ReplaceInParagraph(p domain.Paragraph, search, replacement string) (int, error) {
	runs := p.Runs()
	if len(runs) == 0 {
		return 0, nil
	}

	updated, count, err := Apply(runs, search, replacement)
	if err != nil {
		return 0, err
	}
	if count == 0 {
		return 0, nil
	}

	if err := p.SetRuns(updated); err != nil {
		return 0, fmt.Errorf("写回段落失败: %w", err)
	}
	return count, nil
}
