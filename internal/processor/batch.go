package processor

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/allanpk716/docx_run_replacer/internal/domain"
)

// BatchOptions 批量处理选项
type BatchOptions struct {
	MaxConcurrentFiles int      // 同时处理的文件数，小于 1 时按 1 处理
	ExcludePatterns    []string // 按文件名匹配的排除模式，如 "draft_*"
}

// ProcessBatch 处理 inputDir 下的所有 DOCX 文件，目录结构镜像到 outputDir。
// 单个文件失败只记录错误，不中断其余文件。
func ProcessBatch(ctx context.Context, proc domain.DocumentProcessor, inputDir, outputDir string, pairs []domain.Pair, opts BatchOptions) (*domain.BatchResult, error) {
	if outputDir == "" {
		return nil, fmt.Errorf("输出目录不能为空: %w", domain.ErrInvalidInput)
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("创建输出目录失败: %w", err)
	}

	docxFiles, err := FindDocxFiles(inputDir, opts.ExcludePatterns)
	if err != nil {
		return nil, fmt.Errorf("查找 DOCX 文件失败: %w", err)
	}
	if len(docxFiles) == 0 {
		return nil, fmt.Errorf("在目录 %s 中没有找到 DOCX 文件: %w", inputDir, domain.ErrInvalidInput)
	}

	log.Printf("找到 %d 个 DOCX 文件", len(docxFiles))

	workers := opts.MaxConcurrentFiles
	if workers < 1 {
		workers = 1
	}

	results := make([]*domain.ProcessResult, len(docxFiles))
	errs := make([]error, len(docxFiles))

	var wg sync.WaitGroup
	sem := make(chan struct{}, workers)

	for i, inputFile := range docxFiles {
		if err := ctx.Err(); err != nil {
			errs[i] = err
			continue
		}
		select {
		case <-ctx.Done():
			errs[i] = ctx.Err()
			continue
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(i int, inputFile string) {
			defer wg.Done()
			defer func() { <-sem }()

			relPath, err := filepath.Rel(inputDir, inputFile)
			if err != nil {
				errs[i] = fmt.Errorf("计算相对路径失败: %w", err)
				return
			}
			outputFile := filepath.Join(outputDir, relPath)

			log.Printf("[%d/%d] 处理文件: %s", i+1, len(docxFiles), inputFile)

			result, err := proc.ProcessDocument(ctx, inputFile, outputFile, pairs)
			if err != nil {
				log.Printf("处理文件失败 %s: %v", inputFile, err)
				errs[i] = fmt.Errorf("%s: %w", inputFile, err)
				return
			}
			results[i] = result
		}(i, inputFile)
	}
	wg.Wait()

	batch := &domain.BatchResult{}
	for i := range docxFiles {
		if errs[i] != nil {
			batch.Errors = append(batch.Errors, errs[i])
			continue
		}
		batch.ProcessedFiles++
		batch.Replacements += results[i].Replacements
		batch.Results = append(batch.Results, results[i])
	}

	log.Printf("批量处理完成，成功 %d 个文件，失败 %d 个，共 %d 处替换",
		batch.ProcessedFiles, len(batch.Errors), batch.Replacements)

	if err := ctx.Err(); err != nil {
		return batch, err
	}
	return batch, nil
}

// FindDocxFiles 递归查找目录中的 DOCX 文件，跳过 Word 的 ~$ 临时文件和排除的文件
func FindDocxFiles(dir string, excludePatterns []string) ([]string, error) {
	var docxFiles []string

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || strings.ToLower(filepath.Ext(path)) != ".docx" {
			return nil
		}

		filename := filepath.Base(path)
		if strings.HasPrefix(filename, "~$") || excluded(filename, excludePatterns) {
			return nil
		}
		docxFiles = append(docxFiles, path)
		return nil
	})

	return docxFiles, err
}

func excluded(filename string, patterns []string) bool {
	for _, pattern := range patterns {
		if ok, _ := filepath.Match(pattern, filename); ok {
			return true
		}
	}
	return false
}
