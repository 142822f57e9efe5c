// Package testutil 构造测试用的 DOCX 文件
package testutil

import (
	"archive/zip"
	"fmt"
	"html"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
)

const contentTypes = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"><Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/><Default Extension="xml" ContentType="application/xml"/><Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/></Types>`

const rootRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"><Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/></Relationships>`

const documentRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"></Relationships>`

// Run 生成一个带格式标记的 w:r，format 写入 w:rStyle 便于断言格式是否保留
func Run(format, text string) string {
	return fmt.Sprintf(`<w:r><w:rPr><w:rStyle w:val="%s"/></w:rPr><w:t xml:space="preserve">%s</w:t></w:r>`,
		format, html.EscapeString(text))
}

// Paragraph 用给定的 Run 文本生成段落，格式依次为 F0、F1……
func Paragraph(texts ...string) string {
	var sb strings.Builder
	sb.WriteString("<w:p>")
	for i, text := range texts {
		sb.WriteString(Run(fmt.Sprintf("F%d", i), text))
	}
	sb.WriteString("</w:p>")
	return sb.String()
}

// Part 生成 WordprocessingML 部件，root 为 document、hdr 或 ftr
func Part(root string, body ...string) string {
	inner := strings.Join(body, "")
	if root == "document" {
		inner = "<w:body>" + inner + "</w:body>"
	}
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:%s xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">%s</w:%s>`, root, inner, root)
}

// DocumentXML 生成只包含给定段落的 word/document.xml
func DocumentXML(paragraphs ...string) string {
	return Part("document", paragraphs...)
}

// CreateDocx 在 dir 下写入一个最小可用的 DOCX，parts 覆盖或追加默认部件
func CreateDocx(t testing.TB, dir, name string, parts map[string]string) string {
	t.Helper()

	all := map[string]string{
		"[Content_Types].xml":          contentTypes,
		"_rels/.rels":                  rootRels,
		"word/_rels/document.xml.rels": documentRels,
		"word/document.xml":            DocumentXML(Paragraph("")),
	}
	for partName, content := range parts {
		all[partName] = content
	}

	names := make([]string, 0, len(all))
	for partName := range all {
		names = append(names, partName)
	}
	sort.Strings(names)

	filePath := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		t.Fatalf("创建目录失败: %v", err)
	}
	file, err := os.Create(filePath)
	if err != nil {
		t.Fatalf("创建测试文件失败: %v", err)
	}
	defer file.Close()

	zipWriter := zip.NewWriter(file)
	for _, partName := range names {
		writer, err := zipWriter.Create(partName)
		if err != nil {
			t.Fatalf("创建部件 %s 失败: %v", partName, err)
		}
		if _, err := writer.Write([]byte(all[partName])); err != nil {
			t.Fatalf("写入部件 %s 失败: %v", partName, err)
		}
	}
	if err := zipWriter.Close(); err != nil {
		t.Fatalf("关闭ZIP失败: %v", err)
	}
	return filePath
}

// ReadPart 读取 DOCX 中的部件，不存在时返回空字符串和 false
func ReadPart(t testing.TB, filePath, partName string) (string, bool) {
	t.Helper()

	reader, err := zip.OpenReader(filePath)
	if err != nil {
		t.Fatalf("打开DOCX失败: %v", err)
	}
	defer reader.Close()

	for _, f := range reader.File {
		if f.Name != partName {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("打开部件 %s 失败: %v", partName, err)
		}
		defer rc.Close()
		content, err := io.ReadAll(rc)
		if err != nil {
			t.Fatalf("读取部件 %s 失败: %v", partName, err)
		}
		return string(content), true
	}
	return "", false
}
