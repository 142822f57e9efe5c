package docx

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/allanpk716/docx_run_replacer/internal/domain"
)

const (
	// MainDocumentPart 正文部件
	MainDocumentPart = "word/document.xml"
	// ContentTypesPart 内容类型部件
	ContentTypesPart = "[Content_Types].xml"
	// RootRelsPart 包级关系部件
	RootRelsPart = "_rels/.rels"
	// CustomPropertiesPart 自定义属性部件
	CustomPropertiesPart = "docProps/custom.xml"
)

var errPackageClosed = errors.New("文档包已关闭")

// Package DOCX 的 ZIP 容器，整个包读入内存，修改过的部件在保存时写回
type Package struct {
	path     string
	reader   *zip.Reader
	modified map[string][]byte
	added    []string
}

// OpenPackage 打开 DOCX 文件
func OpenPackage(filePath string) (*Package, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("读取DOCX文件失败: %w", err)
	}

	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("打开DOCX文件失败: %v: %w", err, domain.ErrMalformedDocument)
	}

	pkg := &Package{
		path:     filePath,
		reader:   reader,
		modified: make(map[string][]byte),
	}
	if !pkg.HasPart(MainDocumentPart) {
		return nil, fmt.Errorf("缺少 %s: %w", MainDocumentPart, domain.ErrMalformedDocument)
	}
	return pkg, nil
}

// Path 返回源文件路径
func (p *Package) Path() string {
	return p.path
}

func (p *Package) file(name string) *zip.File {
	for _, f := range p.reader.File {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// HasPart 检查部件是否存在
func (p *Package) HasPart(name string) bool {
	if p.reader == nil {
		return false
	}
	if _, ok := p.modified[name]; ok {
		return true
	}
	return p.file(name) != nil
}

// PartNames 按包内顺序返回所有部件名，新增部件排在最后
func (p *Package) PartNames() []string {
	if p.reader == nil {
		return nil
	}
	names := make([]string, 0, len(p.reader.File)+len(p.added))
	for _, f := range p.reader.File {
		names = append(names, f.Name)
	}
	return append(names, p.added...)
}

// ContentParts 返回需要做文本替换的部件：正文，以及可选的页眉页脚
func (p *Package) ContentParts(includeHeadersFooters bool) []string {
	parts := []string{MainDocumentPart}
	if !includeHeadersFooters {
		return parts
	}

	var extra []string
	for _, name := range p.PartNames() {
		if isHeaderFooterPart(name) {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	return append(parts, extra...)
}

func isHeaderFooterPart(name string) bool {
	for _, pattern := range []string{"word/header*.xml", "word/footer*.xml"} {
		if ok, _ := path.Match(pattern, name); ok {
			return true
		}
	}
	return false
}

// ReadPart 读取部件内容，已修改的部件返回修改后的内容
func (p *Package) ReadPart(name string) (string, error) {
	if p.reader == nil {
		return "", errPackageClosed
	}
	if content, ok := p.modified[name]; ok {
		return string(content), nil
	}

	f := p.file(name)
	if f == nil {
		return "", fmt.Errorf("部件 %s 不存在: %w", name, os.ErrNotExist)
	}

	rc, err := f.Open()
	if err != nil {
		return "", fmt.Errorf("打开部件 %s 失败: %w", name, err)
	}
	defer rc.Close()

	content, err := io.ReadAll(rc)
	if err != nil {
		return "", fmt.Errorf("读取部件 %s 失败: %w", name, err)
	}
	return string(content), nil
}

// WritePart 更新部件内容，部件不存在时新增
func (p *Package) WritePart(name, content string) {
	if p.reader == nil {
		return
	}
	if !p.HasPart(name) {
		p.added = append(p.added, name)
	}
	p.modified[name] = []byte(content)
}

// Modified 是否有部件被修改或新增
func (p *Package) Modified() bool {
	return len(p.modified) > 0
}

// Save 将包写入 dest，dest 为空时覆盖源文件。
// 先写入同目录下的临时文件再重命名，失败时目标文件保持原样。
func (p *Package) Save(dest string) error {
	if p.reader == nil {
		return errPackageClosed
	}
	if dest == "" {
		dest = p.path
	}

	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("创建输出目录失败: %w", err)
	}

	tmpPath := filepath.Join(dir, fmt.Sprintf(".%s.%s.tmp", filepath.Base(dest), uuid.NewString()))
	if err := p.writeTo(tmpPath); err != nil {
		os.Remove(tmpPath)
		return err
	}

	if err := os.Rename(tmpPath, dest); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("保存文件失败: %w", err)
	}
	return nil
}

func (p *Package) writeTo(filePath string) error {
	out, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("创建输出文件失败: %w", err)
	}

	zipWriter := zip.NewWriter(out)
	if err := p.writeParts(zipWriter); err != nil {
		zipWriter.Close()
		out.Close()
		return err
	}
	if err := zipWriter.Close(); err != nil {
		out.Close()
		return fmt.Errorf("写入ZIP目录失败: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("关闭输出文件失败: %w", err)
	}
	return nil
}

func (p *Package) writeParts(zipWriter *zip.Writer) error {
	for _, f := range p.reader.File {
		content, ok := p.modified[f.Name]
		if !ok {
			// 未修改的部件直接复制压缩数据
			if err := zipWriter.Copy(f); err != nil {
				return fmt.Errorf("复制部件 %s 失败: %w", f.Name, err)
			}
			continue
		}

		header := f.FileHeader
		header.Modified = time.Now()
		if err := writeEntry(zipWriter, &header, content); err != nil {
			return err
		}
	}

	for _, name := range p.added {
		header := &zip.FileHeader{Name: name, Method: zip.Deflate, Modified: time.Now()}
		if err := writeEntry(zipWriter, header, p.modified[name]); err != nil {
			return err
		}
	}
	return nil
}

func writeEntry(zipWriter *zip.Writer, header *zip.FileHeader, content []byte) error {
	writer, err := zipWriter.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("创建ZIP文件头失败: %w", err)
	}
	if _, err := writer.Write(content); err != nil {
		return fmt.Errorf("写入部件 %s 失败: %w", header.Name, err)
	}
	return nil
}

// Close 释放包占用的内存，之后的读写都会失败
func (p *Package) Close() error {
	p.reader = nil
	p.modified = nil
	p.added = nil
	return nil
}
