package cmd

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/allanpk716/docx_run_replacer/internal/config"
	"github.com/allanpk716/docx_run_replacer/internal/domain"
)

const (
	AppName    = "docx-replacer"
	AppVersion = "2.0.0"
)

// Globals 所有子命令共享的参数
type Globals struct {
	Verbose bool `short:"v" help:"详细输出"`

	Context context.Context `kong:"-"`
	Out     io.Writer       `kong:"-"`
}

// CLI 命令行定义
type CLI struct {
	Globals

	Replace ReplaceCmd `cmd:"" help:"替换单个 DOCX 文件中的文本"`
	Batch   BatchCmd   `cmd:"" help:"批量处理目录中的 DOCX 文件"`
	Extract ExtractCmd `cmd:"" help:"提取 DOCX 文件的纯文本"`
	Init    InitCmd    `cmd:"" help:"生成配置文件模板"`
	Version VersionCmd `cmd:"" help:"显示版本信息"`
}

// Options 返回解析 CLI 使用的 kong 选项
func Options() []kong.Option {
	return []kong.Option{
		kong.Name(AppName),
		kong.Description("DOCX 关键词替换工具，替换时保留原有的 Run 格式"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{Compact: true}),
	}
}

// Execute 设置日志后执行解析出的子命令
func (c *CLI) Execute(ctx context.Context, kctx *kong.Context) error {
	if c.Out == nil {
		c.Out = os.Stdout
	}
	c.Context = ctx

	// 设置日志级别
	if c.Verbose {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	} else {
		log.SetFlags(log.LstdFlags)
	}

	return kctx.Run(&c.Globals)
}

// VersionCmd 显示版本信息
type VersionCmd struct{}

func (v *VersionCmd) Run(g *Globals) error {
	fmt.Fprintf(g.Out, "%s v%s\n", AppName, AppVersion)
	return nil
}

// GenerateOutputFileName 生成输出文件名，suffix 为空时使用 _processed
func GenerateOutputFileName(inputFile, suffix string) string {
	if suffix == "" {
		suffix = "_processed"
	}
	ext := filepath.Ext(inputFile)
	base := strings.TrimSuffix(inputFile, ext)
	return base + suffix + ext
}

// KeywordSource 关键词来源：配置文件和命令行的 --search/--replace
type KeywordSource struct {
	Config   string   `short:"c" help:"配置文件路径（JSON 或 YAML）" type:"existingfile"`
	Category string   `help:"只使用指定类别的关键词"`
	Search   []string `short:"s" help:"查找文本，可重复" sep:"none"`
	Replace  []string `short:"r" help:"替换文本，与 --search 按顺序一一对应" sep:"none"`
}

// load 加载配置并合并命令行的查找/替换对，配置中的关键词在前
func (ks *KeywordSource) load() (*config.Config, []domain.Pair, error) {
	if len(ks.Search) != len(ks.Replace) {
		return nil, nil, fmt.Errorf("--search 与 --replace 数量不一致 (%d != %d): %w",
			len(ks.Search), len(ks.Replace), domain.ErrInvalidInput)
	}

	var cfg *config.Config
	var pairs []domain.Pair
	if ks.Config != "" {
		manager := config.NewConfigManager()
		loaded, err := manager.LoadConfig(ks.Config)
		if err != nil {
			return nil, nil, fmt.Errorf("加载配置文件失败: %w", err)
		}
		cfg = config.SelectCategory(loaded, ks.Category)
		pairs = manager.GetPairs(cfg)

		log.Printf("成功加载配置文件: %s (项目: %s, 关键词数量: %d)",
			ks.Config, cfg.ProjectName, len(cfg.Keywords))
	}

	for i := range ks.Search {
		pairs = append(pairs, domain.Pair{Search: ks.Search[i], Replacement: ks.Replace[i]})
	}

	if len(pairs) == 0 {
		return nil, nil, fmt.Errorf("没有找到有效的关键词: %w", domain.ErrInvalidInput)
	}
	return cfg, pairs, nil
}

// processing 返回配置中的处理选项，没有配置文件时使用默认值
func processing(cfg *config.Config) *config.ProcessingConfig {
	if cfg == nil || cfg.Processing == nil {
		return config.DefaultProcessingConfig()
	}
	return cfg.Processing
}
