package cmd

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/allanpk716/docx_run_replacer/internal/config"
	"github.com/allanpk716/docx_run_replacer/internal/domain"
	"github.com/allanpk716/docx_run_replacer/internal/processor"
	"github.com/allanpk716/docx_run_replacer/pkg/docx"
)

// ReplaceCmd 处理单个文件
type ReplaceCmd struct {
	Input string `arg:"" help:"输入 DOCX 文件路径" type:"existingfile"`

	Keywords KeywordSource `embed:""`

	Output         string `short:"o" help:"输出 DOCX 文件路径，默认在输入文件名后加 _processed" type:"path"`
	InPlace        bool   `name:"in-place" help:"直接覆盖输入文件"`
	DryRun         bool   `name:"dry-run" help:"只显示将要进行的替换，不写文件"`
	IncludeHeaders bool   `name:"include-headers" help:"同时处理页眉页脚"`
	Track          bool   `help:"在文档自定义属性中记录替换历史"`
}

func (r *ReplaceCmd) Run(g *Globals) error {
	if r.InPlace && r.Output != "" {
		return fmt.Errorf("--in-place 与 --output 不能同时使用: %w", domain.ErrInvalidInput)
	}

	cfg, pairs, err := r.Keywords.load()
	if err != nil {
		return err
	}
	pc := processing(cfg)

	outputFile := r.Output
	if outputFile == "" && !r.InPlace {
		outputFile = GenerateOutputFileName(r.Input, pc.OutputSuffix)
	}

	docProcessor := processor.NewDocumentProcessor(processor.Options{
		IncludeHeadersFooters: r.IncludeHeaders || pc.IncludeHeadersFooters,
		TrackReplacements:     r.Track || pc.TrackReplacements,
		DryRun:                r.DryRun,
		Verbose:               g.Verbose || pc.EnableDetailedLogging,
	})

	log.Printf("处理文件: %s -> %s", r.Input, outputFile)

	result, err := docProcessor.ProcessDocument(g.Context, r.Input, outputFile, pairs)
	if err != nil {
		return fmt.Errorf("处理文件失败: %w", err)
	}

	printResult(g.Out, result, g.Verbose)
	if r.DryRun {
		printChanges(g.Out, result.Changes, g.Verbose)
	}
	return nil
}

// BatchCmd 批量处理目录
type BatchCmd struct {
	InputDir  string `arg:"" name:"input-dir" help:"输入目录" type:"existingdir"`
	OutputDir string `arg:"" name:"output-dir" optional:"" help:"输出目录，默认在输入目录名后加 _processed" type:"path"`

	Keywords KeywordSource `embed:""`

	Workers        int      `short:"w" help:"同时处理的文件数，默认使用配置文件中的值"`
	Exclude        []string `short:"x" help:"排除的文件名模式，可重复"`
	IncludeHeaders bool     `name:"include-headers" help:"同时处理页眉页脚"`
	Track          bool     `help:"在文档自定义属性中记录替换历史"`
}

func (b *BatchCmd) Run(g *Globals) error {
	cfg, pairs, err := b.Keywords.load()
	if err != nil {
		return err
	}
	pc := processing(cfg)

	outputDir := b.OutputDir
	if outputDir == "" {
		outputDir = b.InputDir + "_processed"
	}

	workers := b.Workers
	if workers <= 0 {
		workers = pc.MaxConcurrentFiles
	}

	docProcessor := processor.NewDocumentProcessor(processor.Options{
		IncludeHeadersFooters: b.IncludeHeaders || pc.IncludeHeadersFooters,
		TrackReplacements:     b.Track || pc.TrackReplacements,
		Verbose:               g.Verbose || pc.EnableDetailedLogging,
	})

	batch, err := processor.ProcessBatch(g.Context, docProcessor, b.InputDir, outputDir, pairs, processor.BatchOptions{
		MaxConcurrentFiles: workers,
		ExcludePatterns:    append(append([]string(nil), pc.ExcludePatterns...), b.Exclude...),
	})
	if batch != nil {
		for _, result := range batch.Results {
			printResult(g.Out, result, g.Verbose)
		}
		fmt.Fprintf(g.Out, "批量处理完成: 成功 %d 个文件，失败 %d 个，共 %d 处替换\n",
			batch.ProcessedFiles, len(batch.Errors), batch.Replacements)
		for _, fileErr := range batch.Errors {
			fmt.Fprintf(g.Out, "  失败: %v\n", fileErr)
		}
	}
	if err != nil {
		return fmt.Errorf("批量处理失败: %w", err)
	}
	if len(batch.Errors) > 0 {
		return fmt.Errorf("%d 个文件处理失败: %w", len(batch.Errors), errors.Join(batch.Errors...))
	}
	return nil
}

// ExtractCmd 提取纯文本
type ExtractCmd struct {
	Input  string `arg:"" help:"输入 DOCX 文件路径" type:"existingfile"`
	Output string `short:"o" help:"输出文本文件路径，默认输出到标准输出" type:"path"`
}

func (e *ExtractCmd) Run(g *Globals) error {
	text, err := docx.ExtractText(e.Input)
	if err != nil {
		return err
	}

	if e.Output == "" {
		fmt.Fprintln(g.Out, text)
		return nil
	}
	if err := os.WriteFile(e.Output, []byte(text), 0644); err != nil {
		return fmt.Errorf("写入文本文件失败: %w", err)
	}
	log.Printf("文本已写入: %s", e.Output)
	return nil
}

// InitCmd 生成配置模板
type InitCmd struct {
	Output   string `arg:"" optional:"" default:"config.json" help:"配置文件路径（.json/.yaml/.yml）" type:"path"`
	Template string `short:"t" default:"basic" enum:"basic,advanced" help:"模板类型 (basic, advanced)"`
	Force    bool   `short:"f" help:"覆盖已存在的配置文件"`
}

func (i *InitCmd) Run(g *Globals) error {
	if _, err := os.Stat(i.Output); err == nil && !i.Force {
		return fmt.Errorf("配置文件已存在: %s，使用 --force 覆盖: %w", i.Output, os.ErrExist)
	}

	manager := config.NewConfigManager()
	template, err := manager.GenerateTemplate(i.Template)
	if err != nil {
		return err
	}
	if err := manager.SaveConfig(template, i.Output); err != nil {
		return fmt.Errorf("保存配置文件失败: %w", err)
	}

	fmt.Fprintf(g.Out, "已生成 %s 配置模板: %s\n", i.Template, i.Output)
	return nil
}

func printResult(w io.Writer, result *domain.ProcessResult, verbose bool) {
	target := result.OutputPath
	if !result.Written {
		target = "未写入"
	}
	fmt.Fprintf(w, "%s -> %s: 共 %d 处替换\n", result.InputPath, target, result.Replacements)

	for _, stat := range result.Stats {
		if stat.Occurrences == 0 && !verbose {
			continue
		}
		fmt.Fprintf(w, "  %s -> %s: %d 处 (%d 个段落)\n",
			stat.Keyword, stat.Replacement, stat.Occurrences, stat.Paragraphs)
	}
	if verbose && result.OutputDigest != "" {
		fmt.Fprintf(w, "  blake3: %s\n", result.OutputDigest)
	}
}

func printChanges(w io.Writer, changes []domain.ParagraphChange, verbose bool) {
	for _, change := range changes {
		fmt.Fprintf(w, "[%s #%d]\n", change.Part, change.Index)
		if verbose {
			fmt.Fprintf(w, "  %s\n", change.Diff)
			continue
		}
		fmt.Fprintf(w, "  - %s\n  + %s\n", change.Before, change.After)
	}
}
