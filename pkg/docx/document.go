package docx

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"

	"github.com/allanpk716/docx_run_replacer/internal/domain"
)

// WordNamespace WordprocessingML 主命名空间
const WordNamespace = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"

// 段落内可包含 Run 的行内容器
var inlineContainers = map[string]bool{
	"hyperlink":  true,
	"ins":        true,
	"smartTag":   true,
	"customXml":  true,
	"fldSimple":  true,
	"sdt":        true,
	"sdtContent": true,
}

// 正文、表格单元格和文本框中的所有段落
var paragraphExpr = xpath.MustCompile("//w:p")

// Document 一个 WordprocessingML 部件（正文、页眉或页脚）的标记树
type Document struct {
	root       *xmlquery.Node
	paragraphs []*Paragraph
}

// ParseDocument 解析部件 XML，按文档顺序收集所有段落
func ParseDocument(content string) (*Document, error) {
	root, err := xmlquery.Parse(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("解析XML失败: %v: %w", err, domain.ErrMalformedDocument)
	}

	doc := &Document{root: root}
	for _, node := range xmlquery.QuerySelectorAll(root, paragraphExpr) {
		p := &Paragraph{node: node}
		p.runs = collectRuns(node, nil)
		doc.paragraphs = append(doc.paragraphs, p)
	}
	return doc, nil
}

// Paragraphs 实现 domain.Document
func (d *Document) Paragraphs() []domain.Paragraph {
	result := make([]domain.Paragraph, len(d.paragraphs))
	for i, p := range d.paragraphs {
		result[i] = p
	}
	return result
}

// XML 序列化整个部件
func (d *Document) XML() string {
	return outputXML(d.root)
}

// outputXML 序列化时保留所有空白，w:t 中的空格不能丢
func outputXML(root *xmlquery.Node) string {
	return root.OutputXMLWithOptions(
		xmlquery.WithOutputSelf(),
		xmlquery.WithPreserveSpace(),
		xmlquery.WithEmptyTagSupport(),
	)
}

// documentElement 返回名为 local 的根元素
func documentElement(root *xmlquery.Node, local string) *xmlquery.Node {
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == xmlquery.ElementNode {
			if c.Data == local {
				return c
			}
			return nil
		}
	}
	return nil
}

// newElement 创建元素节点，attrs 为键值对
func newElement(prefix, local string, attrs ...string) *xmlquery.Node {
	n := &xmlquery.Node{Type: xmlquery.ElementNode, Data: local, Prefix: prefix}
	for i := 0; i+1 < len(attrs); i += 2 {
		xmlquery.AddAttr(n, attrs[i], attrs[i+1])
	}
	return n
}

func declaresPrefix(n *xmlquery.Node, prefix string) bool {
	for _, attr := range n.Attr {
		if attr.Name.Space == "xmlns" && attr.Name.Local == prefix {
			return true
		}
	}
	return false
}

func isWordElement(n *xmlquery.Node, local string) bool {
	return n.Type == xmlquery.ElementNode && n.Data == local &&
		(n.NamespaceURI == WordNamespace || n.Prefix == "w")
}

func collectRuns(node *xmlquery.Node, runs []*Run) []*Run {
	for c := node.FirstChild; c != nil; c = c.NextSibling {
		switch {
		case isWordElement(c, "r"):
			runs = append(runs, &Run{node: c})
		case c.Type == xmlquery.ElementNode && inlineContainers[c.Data]:
			runs = collectRuns(c, runs)
		}
	}
	return runs
}

// Paragraph 实现 domain.Paragraph
type Paragraph struct {
	node *xmlquery.Node
	runs []*Run
}

// Runs 返回段落中的 Run，包括行内容器里的 Run
func (p *Paragraph) Runs() []domain.Run {
	result := make([]domain.Run, len(p.runs))
	for i, r := range p.runs {
		result[i] = r
	}
	return result
}

// SetRuns 把不在 runs 中的 Run 从标记树中删除。
// runs 必须是当前 Run 序列的有序子序列。
func (p *Paragraph) SetRuns(runs []domain.Run) error {
	keep := make(map[*Run]bool, len(runs))
	next := 0
	for _, run := range runs {
		r, ok := run.(*Run)
		if !ok {
			return fmt.Errorf("Run 类型 %T 不属于该段落: %w", run, domain.ErrInvariantViolation)
		}
		for next < len(p.runs) && p.runs[next] != r {
			next++
		}
		if next == len(p.runs) {
			return fmt.Errorf("Run 不属于该段落或顺序被改变: %w", domain.ErrInvariantViolation)
		}
		keep[r] = true
		next++
	}

	kept := make([]*Run, 0, len(runs))
	for _, r := range p.runs {
		if keep[r] {
			kept = append(kept, r)
			continue
		}
		xmlquery.RemoveFromTree(r.node)
	}
	p.runs = kept
	return nil
}

// Text 段落的扁平文本
func (p *Paragraph) Text() string {
	var sb strings.Builder
	for _, r := range p.runs {
		sb.WriteString(r.Text())
	}
	return sb.String()
}

// Run 实现 domain.Run，文本片段是第一个 w:t
type Run struct {
	node *xmlquery.Node
}

func (r *Run) textNode() *xmlquery.Node {
	for c := r.node.FirstChild; c != nil; c = c.NextSibling {
		if isWordElement(c, "t") {
			return c
		}
	}
	return nil
}

// Text 返回文本片段，没有 w:t 时返回空字符串
func (r *Run) Text() string {
	t := r.textNode()
	if t == nil {
		return ""
	}
	return t.InnerText()
}

// SetText 重写文本片段，没有 w:t 时新建一个
func (r *Run) SetText(text string) {
	t := r.textNode()
	if t == nil {
		t = newElement(r.node.Prefix, "t")
		t.NamespaceURI = r.node.NamespaceURI
		xmlquery.AddChild(r.node, t)
	}

	for c := t.FirstChild; c != nil; {
		next := c.NextSibling
		xmlquery.RemoveFromTree(c)
		c = next
	}
	if text != "" {
		xmlquery.AddChild(t, &xmlquery.Node{Type: xmlquery.TextNode, Data: text})
	}

	if needsPreserve(text) {
		setPreserve(t)
	}
}

// 首尾有空白时 Word 需要 xml:space="preserve" 才会保留
func needsPreserve(text string) bool {
	if text == "" {
		return false
	}
	first, _ := utf8.DecodeRuneInString(text)
	last, _ := utf8.DecodeLastRuneInString(text)
	return unicode.IsSpace(first) || unicode.IsSpace(last)
}

func setPreserve(n *xmlquery.Node) {
	for i, attr := range n.Attr {
		if attr.Name.Local == "space" {
			n.Attr[i].Value = "preserve"
			return
		}
	}
	xmlquery.AddAttr(n, "xml:space", "preserve")
}
