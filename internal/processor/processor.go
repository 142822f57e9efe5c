package processor

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/zeebo/blake3"

	"github.com/allanpk716/docx_run_replacer/internal/domain"
	"github.com/allanpk716/docx_run_replacer/pkg/docx"
)

// Options 文档处理选项
type Options struct {
	IncludeHeadersFooters bool // 同时处理页眉页脚
	TrackReplacements     bool // 在自定义属性中记录替换历史
	DryRun                bool // 只计算替换结果，不写文件
	Verbose               bool
}

// documentProcessor 文档处理器实现
type documentProcessor struct {
	opts    Options
	tracker *docx.CustomPropertyManager
}

// NewDocumentProcessor 创建新的文档处理器
func NewDocumentProcessor(opts Options) domain.DocumentProcessor {
	tracker := docx.NewCustomPropertyManager()
	tracker.SetEnabled(opts.TrackReplacements)
	return &documentProcessor{
		opts:    opts,
		tracker: tracker,
	}
}

// ProcessDocument 处理文档，按顺序应用查找/替换对。
// outputPath 为空时覆盖输入文件。
func (dp *documentProcessor) ProcessDocument(ctx context.Context, inputPath, outputPath string, pairs []domain.Pair) (*domain.ProcessResult, error) {
	if err := dp.ValidateDocument(inputPath); err != nil {
		return nil, fmt.Errorf("文档验证失败: %w", err)
	}
	if len(pairs) == 0 {
		return nil, fmt.Errorf("替换列表不能为空: %w", domain.ErrInvalidInput)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	log.Printf("开始处理文档: %s", inputPath)

	pkg, err := docx.OpenPackage(inputPath)
	if err != nil {
		return nil, err
	}
	defer pkg.Close()

	searchTexts := make([]string, len(pairs))
	replacementTexts := make([]string, len(pairs))
	for i, pair := range pairs {
		searchTexts[i] = pair.Search
		replacementTexts[i] = pair.Replacement
	}

	result := &domain.ProcessResult{
		InputPath:  inputPath,
		OutputPath: outputPath,
		Stats:      make([]domain.ReplacementStats, len(pairs)),
	}
	if outputPath == "" {
		result.OutputPath = inputPath
	}
	for i, pair := range pairs {
		result.Stats[i] = domain.ReplacementStats{Keyword: pair.Search, Replacement: pair.Replacement}
	}

	for _, part := range pkg.ContentParts(dp.opts.IncludeHeadersFooters) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := dp.processPart(pkg, part, searchTexts, replacementTexts, result); err != nil {
			return nil, err
		}
	}

	for _, st := range result.Stats {
		result.Replacements += st.Occurrences
		if dp.opts.Verbose {
			log.Printf("  %s -> %s: %d 处，%d 个段落", st.Keyword, st.Replacement, st.Occurrences, st.Paragraphs)
		}
	}

	if dp.opts.DryRun {
		dp.fillDiffs(result.Changes)
		log.Printf("试运行完成，共 %d 处替换，未写入文件", result.Replacements)
		return result, nil
	}

	if err := dp.tracker.RecordReplacements(pkg, result.Stats); err != nil {
		return nil, fmt.Errorf("记录替换历史失败: %w", err)
	}

	// 原地处理且没有任何修改时不重写文件
	if outputPath != "" || pkg.Modified() {
		if err := pkg.Save(outputPath); err != nil {
			return nil, err
		}
		result.Written = true
	}

	digest, err := fileDigest(result.OutputPath)
	if err != nil {
		return nil, err
	}
	result.OutputDigest = digest

	log.Printf("文档处理完成，共 %d 处替换，已保存到: %s", result.Replacements, result.OutputPath)
	return result, nil
}

func (dp *documentProcessor) processPart(pkg *docx.Package, part string, searchTexts, replacementTexts []string, result *domain.ProcessResult) error {
	content, err := pkg.ReadPart(part)
	if err != nil {
		return err
	}

	doc, err := docx.ParseDocument(content)
	if err != nil {
		return fmt.Errorf("解析 %s 失败: %w", part, err)
	}

	summary, err := Process(doc, searchTexts, replacementTexts)
	if err != nil {
		return fmt.Errorf("处理 %s 失败: %w", part, err)
	}

	for i, st := range summary.Stats {
		result.Stats[i].Occurrences += st.Occurrences
		result.Stats[i].Paragraphs += st.Paragraphs
	}
	for _, change := range summary.Changes {
		change.Part = part
		result.Changes = append(result.Changes, change)
	}

	if dp.opts.Verbose {
		log.Printf("处理部件 %s: %d 个段落，%d 处替换", part, len(doc.Paragraphs()), summary.Replacements())
	}

	if summary.Replacements() > 0 {
		pkg.WritePart(part, doc.XML())
	}
	return nil
}

// fillDiffs 为每个改动的段落生成可读的差异
func (dp *documentProcessor) fillDiffs(changes []domain.ParagraphChange) {
	dmp := diffmatchpatch.New()
	for i := range changes {
		diffs := dmp.DiffMain(changes[i].Before, changes[i].After, false)
		diffs = dmp.DiffCleanupSemantic(diffs)
		changes[i].Diff = dmp.DiffPrettyText(diffs)
	}
}

// ValidateDocument 验证文档是否有效
func (dp *documentProcessor) ValidateDocument(inputPath string) error {
	if inputPath == "" {
		return fmt.Errorf("输入路径不能为空: %w", domain.ErrInvalidInput)
	}
	return docx.Validate(inputPath)
}

// fileDigest 计算文件的 BLAKE3 摘要
func fileDigest(filePath string) (string, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("打开输出文件失败: %w", err)
	}
	defer f.Close()

	h := blake3.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("计算摘要失败: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
