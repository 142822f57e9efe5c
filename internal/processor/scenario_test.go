package processor

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allanpk716/docx_run_replacer/internal/domain"
	"github.com/allanpk716/docx_run_replacer/internal/testutil"
	"github.com/allanpk716/docx_run_replacer/pkg/docx"
)

// 模拟 Word 保存的带缩进文档结构
const continuousXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
	<w:body>
		<w:p>
			<w:r>
				<w:t>#结构及组成#</w:t>
			</w:r>
		</w:p>
		<w:p>
			<w:r>
				<w:t>这是一个测试文档，包含关键词 </w:t>
			</w:r>
			<w:r>
				<w:t>#结构及组成#</w:t>
			</w:r>
			<w:r>
				<w:t xml:space="preserve"> 需要被替换。</w:t>
			</w:r>
		</w:p>
	</w:body>
</w:document>`

func processFile(t *testing.T, input, output string, pairs ...domain.Pair) *domain.ProcessResult {
	t.Helper()
	result, err := NewDocumentProcessor(Options{}).ProcessDocument(context.Background(), input, output, pairs)
	require.NoError(t, err)
	return result
}

// TestContinuousReplacement 上一次的输出作为下一次的输入
func TestContinuousReplacement(t *testing.T) {
	dir := t.TempDir()
	input := testutil.CreateDocx(t, dir, "input.docx", map[string]string{docx.MainDocumentPart: continuousXML})
	first := filepath.Join(dir, "first.docx")
	second := filepath.Join(dir, "second.docx")

	result := processFile(t, input, first, domain.Pair{Search: "#结构及组成#", Replacement: "新的结构内容"})
	assert.Equal(t, 2, result.Replacements)
	assert.Equal(t, [][]string{
		{"新的结构内容"},
		{"这是一个测试文档，包含关键词 ", "新的结构内容", " 需要被替换。"},
	}, readRuns(t, first, docx.MainDocumentPart))

	result = processFile(t, first, second, domain.Pair{Search: "新的结构内容", Replacement: "最终内容"})
	assert.Equal(t, 2, result.Replacements)
	assert.Equal(t, [][]string{
		{"最终内容"},
		{"这是一个测试文档，包含关键词 ", "最终内容", " 需要被替换。"},
	}, readRuns(t, second, docx.MainDocumentPart))

	// 已替换的文档中不再有关键词
	result = processFile(t, second, filepath.Join(dir, "third.docx"), domain.Pair{Search: "#结构及组成#", Replacement: "x"})
	assert.Zero(t, result.Replacements)
}

// TestComplexSplitKeyword 关键词被拆分到多个不同格式的 Run 中
func TestComplexSplitKeyword(t *testing.T) {
	dir := t.TempDir()
	input := testutil.CreateDocx(t, dir, "input.docx", map[string]string{
		docx.MainDocumentPart: testutil.DocumentXML(
			testutil.Paragraph("#", "结构", "及", "组成", "#"),
			testutil.Paragraph("文档中还有其他内容 #结构及组成# 需要替换"),
		),
	})
	output := filepath.Join(dir, "output.docx")

	result := processFile(t, input, output, domain.Pair{Search: "#结构及组成#", Replacement: "复杂替换内容"})
	assert.Equal(t, []domain.ReplacementStats{
		{Keyword: "#结构及组成#", Replacement: "复杂替换内容", Occurrences: 2, Paragraphs: 2},
	}, result.Stats)
	assert.Equal(t, [][]string{
		{"复杂替换内容"},
		{"文档中还有其他内容 复杂替换内容 需要替换"},
	}, readRuns(t, output, docx.MainDocumentPart))

	// 替换文本沿用第一个 Run 的格式
	content, ok := testutil.ReadPart(t, output, docx.MainDocumentPart)
	require.True(t, ok)
	assert.Contains(t, content, `w:val="F0"`)
	assert.NotContains(t, content, `w:val="F1"`)
}

// TestStressScenario 多个关键词、多种拆分方式
func TestStressScenario(t *testing.T) {
	dir := t.TempDir()
	input := testutil.CreateDocx(t, dir, "input.docx", map[string]string{
		docx.MainDocumentPart: testutil.DocumentXML(
			testutil.Paragraph("#", "产品", "名称", "#", " 和 ", "#", "版本", "号", "#"),
			testutil.Paragraph("描述：#产品名称# 的版本是 #版本号#"),
		),
	})
	output := filepath.Join(dir, "output.docx")

	result := processFile(t, input, output,
		domain.Pair{Search: "#产品名称#", Replacement: "示例产品 v2"},
		domain.Pair{Search: "#版本号#", Replacement: "2.0"},
	)
	assert.Equal(t, []domain.ReplacementStats{
		{Keyword: "#产品名称#", Replacement: "示例产品 v2", Occurrences: 2, Paragraphs: 2},
		{Keyword: "#版本号#", Replacement: "2.0", Occurrences: 2, Paragraphs: 2},
	}, result.Stats)
	assert.Equal(t, [][]string{
		{"示例产品 v2", " 和 ", "2.0"},
		{"描述：示例产品 v2 的版本是 2.0"},
	}, readRuns(t, output, docx.MainDocumentPart))
}

// TestMixedContentReplacement 中英文混合和需要转义的字符
func TestMixedContentReplacement(t *testing.T) {
	dir := t.TempDir()
	input := testutil.CreateDocx(t, dir, "input.docx", map[string]string{
		docx.MainDocumentPart: testutil.DocumentXML(
			testutil.Paragraph("#", "Company", "Name", "#", " (公司) & ", "#", "数字", "123", "#"),
		),
	})
	first := filepath.Join(dir, "first.docx")

	processFile(t, input, first,
		domain.Pair{Search: "#CompanyName#", Replacement: "TechCorp技术公司"},
		domain.Pair{Search: "#数字123#", Replacement: "<编号456>"},
	)
	assert.Equal(t, [][]string{{"TechCorp技术公司", " (公司) & ", "<编号456>"}}, readRuns(t, first, docx.MainDocumentPart))

	content, ok := testutil.ReadPart(t, first, docx.MainDocumentPart)
	require.True(t, ok)
	assert.Contains(t, content, "&lt;编号456")

	second := filepath.Join(dir, "second.docx")
	processFile(t, first, second, domain.Pair{Search: "技术公司 (公司) & <", Replacement: "-"})
	// 替换文本写入前缀 Run 之后的第一个 Run
	assert.Equal(t, [][]string{{"TechCorp", "-", "编号456>"}}, readRuns(t, second, docx.MainDocumentPart))
}

// TestManyParagraphs 大量段落时每个段落独立替换
func TestManyParagraphs(t *testing.T) {
	const n = 200

	paragraphs := make([]string, n)
	want := make([][]string, n)
	for i := range paragraphs {
		paragraphs[i] = testutil.Paragraph(fmt.Sprintf("第%d段 ", i), "#编", "号#", "#编号#")
		want[i] = []string{fmt.Sprintf("第%d段 ", i), "A-1", "A-1"}
	}

	dir := t.TempDir()
	input := testutil.CreateDocx(t, dir, "input.docx", map[string]string{
		docx.MainDocumentPart: testutil.DocumentXML(paragraphs...),
	})
	output := filepath.Join(dir, "output.docx")

	result := processFile(t, input, output, domain.Pair{Search: "#编号#", Replacement: "A-1"})
	assert.Equal(t, 2*n, result.Replacements)
	assert.Equal(t, n, result.Stats[0].Paragraphs)
	assert.Equal(t, want, readRuns(t, output, docx.MainDocumentPart))

	text, err := docx.ExtractText(output)
	require.NoError(t, err)
	assert.Equal(t, 2*n, strings.Count(text, "A-1"))
}
