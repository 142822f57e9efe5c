package processor

import (
	"fmt"

	"github.com/allanpk716/docx_run_replacer/internal/domain"
	"github.com/allanpk716/docx_run_replacer/internal/runedit"
)

// Process 按顺序对文档中的每个段落应用所有查找/替换对。
//
// 后面的替换对能看到前面替换对的结果。参数在修改文档之前全部校验，
// 校验失败时文档保持不变。
func Process(doc domain.Document, searchTexts, replacementTexts []string) (*domain.ReplaceSummary, error) {
	if len(searchTexts) != len(replacementTexts) {
		return nil, fmt.Errorf("查找文本数量 %d 与替换文本数量 %d 不一致: %w",
			len(searchTexts), len(replacementTexts), domain.ErrInvalidInput)
	}
	for i, search := range searchTexts {
		if search == "" {
			return nil, fmt.Errorf("第 %d 个查找文本为空: %w", i+1, domain.ErrInvalidInput)
		}
	}

	summary := &domain.ReplaceSummary{
		Stats: make([]domain.ReplacementStats, len(searchTexts)),
	}
	paragraphs := doc.Paragraphs()

	before := make([]string, len(paragraphs))
	for i, p := range paragraphs {
		before[i] = runedit.Text(p.Runs())
	}

	for i, search := range searchTexts {
		stats := &summary.Stats[i]
		stats.Keyword = search
		stats.Replacement = replacementTexts[i]

		for j, p := range paragraphs {
			count, err := runedit.ReplaceInParagraph(p, search, replacementTexts[i])
			if err != nil {
				return summary, fmt.Errorf("替换段落 %d 失败: %w", j, err)
			}
			if count > 0 {
				stats.Occurrences += count
				stats.Paragraphs++
			}
		}
	}

	for i, p := range paragraphs {
		after := runedit.Text(p.Runs())
		if after != before[i] {
			summary.Changes = append(summary.Changes, domain.ParagraphChange{
				Index:  i,
				Before: before[i],
				After:  after,
			})
		}
	}

	return summary, nil
}
