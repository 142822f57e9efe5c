package domain

import "context"

// Run 段落中的最小文本单元（对应 w:r），携带一个文本片段和不透明的格式信息
type Run interface {
	// Text 返回文本片段，缺失时返回空字符串
	Text() string
	// SetText 就地替换文本片段，格式信息保持不变
	SetText(text string)
}

// Paragraph 有序的 Run 序列（对应 w:p）
type Paragraph interface {
	Runs() []Run
	// SetRuns 写回编辑后的 Run 序列，只允许删除，不允许新增或重排
	SetRuns(runs []Run) error
}

// Document 标记树提供者，按文档顺序暴露所有段落
type Document interface {
	Paragraphs() []Paragraph
}

// DocumentProcessor 文档处理器接口
type DocumentProcessor interface {
	ProcessDocument(ctx context.Context, inputPath, outputPath string, pairs []Pair) (*ProcessResult, error)
	ValidateDocument(inputPath string) error
}

// Pair 一组查找/替换文本，按配置顺序依次应用
type Pair struct {
	Search      string
	Replacement string
}

// ReplacementStats 单个查找/替换对的统计信息
type ReplacementStats struct {
	Keyword     string
	Replacement string
	Occurrences int
	Paragraphs  int
}

// ParagraphChange 记录一个段落替换前后的文本
type ParagraphChange struct {
	Part   string
	Index  int
	Before string
	After  string
	Diff   string
}

// ReplaceSummary 一次文档树替换的汇总
type ReplaceSummary struct {
	Stats   []ReplacementStats
	Changes []ParagraphChange
}

// Replacements 返回所有查找/替换对的替换总数
func (s *ReplaceSummary) Replacements() int {
	total := 0
	for _, st := range s.Stats {
		total += st.Occurrences
	}
	return total
}

// ProcessResult 处理结果
type ProcessResult struct {
	InputPath    string
	OutputPath   string
	Replacements int
	Stats        []ReplacementStats
	Changes      []ParagraphChange
	OutputDigest string
	Written      bool
}

// BatchResult 批量处理结果
type BatchResult struct {
	ProcessedFiles int
	Replacements   int
	Results        []*ProcessResult
	Errors         []error
}
