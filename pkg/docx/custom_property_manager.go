package docx

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/antchfx/xmlquery"

	"github.com/allanpk716/docx_run_replacer/internal/domain"
)

const (
	// HistoryPropertyName 保存替换历史的自定义属性名
	HistoryPropertyName = "DocxReplacerHistory"

	customPropertiesNamespace = "http://schemas.openxmlformats.org/officeDocument/2006/custom-properties"
	vtNamespace               = "http://schemas.openxmlformats.org/officeDocument/2006/docPropsVTypes"
	customPropertiesRelType   = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/custom-properties"
	customPropertiesType      = "application/vnd.openxmlformats-officedocument.custom-properties+xml"
	userDefinedFmtID          = "{D5CDD505-2E9C-101B-9397-08002B2CF9AE}"
)

const emptyCustomProperties = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Properties xmlns="` + customPropertiesNamespace + `" xmlns:vt="` + vtNamespace + `"></Properties>`

// ReplacementRecord 一条替换记录
type ReplacementRecord struct {
	Keyword     string    `json:"keyword"`
	Replacement string    `json:"replacement"`
	Count       int       `json:"count"`
	Timestamp   time.Time `json:"timestamp"`
	Version     int       `json:"version"`
}

// ReplacementHistory 替换历史记录
type ReplacementHistory struct {
	Records []ReplacementRecord `json:"records"`
}

// CustomProperties docProps/custom.xml 的标记树，未知属性原样保留
type CustomProperties struct {
	root *xmlquery.Node
}

// CustomPropertyManager 通过自定义文档属性记录替换历史
type CustomPropertyManager struct {
	enabled bool
	now     func() time.Time
}

// NewCustomPropertyManager 创建新的自定义属性管理器
func NewCustomPropertyManager() *CustomPropertyManager {
	return &CustomPropertyManager{
		enabled: true,
		now:     time.Now,
	}
}

// IsEnabled 检查是否启用追踪
func (cpm *CustomPropertyManager) IsEnabled() bool {
	return cpm.enabled
}

// SetEnabled 设置启用状态
func (cpm *CustomPropertyManager) SetEnabled(enabled bool) {
	cpm.enabled = enabled
}

// ParseCustomProperties 解析自定义属性XML，内容为空时返回空的属性集
func (cpm *CustomPropertyManager) ParseCustomProperties(xmlContent string) (*CustomProperties, error) {
	if strings.TrimSpace(xmlContent) == "" {
		xmlContent = emptyCustomProperties
	}

	root, err := xmlquery.Parse(strings.NewReader(xmlContent))
	if err != nil {
		return nil, fmt.Errorf("解析自定义属性XML失败: %v: %w", err, domain.ErrMalformedDocument)
	}
	if documentElement(root, "Properties") == nil {
		return nil, fmt.Errorf("自定义属性缺少 Properties 根元素: %w", domain.ErrMalformedDocument)
	}
	return &CustomProperties{root: root}, nil
}

// Names 返回所有属性名
func (cp *CustomProperties) Names() []string {
	var names []string
	for _, prop := range cp.properties() {
		names = append(names, prop.SelectAttr("name"))
	}
	return names
}

// Value 返回属性的字符串值
func (cp *CustomProperties) Value(name string) (string, bool) {
	prop := cp.find(name)
	if prop == nil {
		return "", false
	}
	return strings.TrimSpace(prop.InnerText()), true
}

// XML 序列化属性集
func (cp *CustomProperties) XML() string {
	return outputXML(cp.root)
}

func (cp *CustomProperties) element() *xmlquery.Node {
	return documentElement(cp.root, "Properties")
}

func (cp *CustomProperties) properties() []*xmlquery.Node {
	var props []*xmlquery.Node
	for c := cp.element().FirstChild; c != nil; c = c.NextSibling {
		if c.Type == xmlquery.ElementNode && c.Data == "property" {
			props = append(props, c)
		}
	}
	return props
}

func (cp *CustomProperties) find(name string) *xmlquery.Node {
	for _, prop := range cp.properties() {
		if prop.SelectAttr("name") == name {
			return prop
		}
	}
	return nil
}

// setString 写入字符串属性，不存在时以下一个可用 pid 新增
func (cp *CustomProperties) setString(name, value string) {
	prop := cp.find(name)
	if prop == nil {
		prop = newElement("", "property",
			"fmtid", userDefinedFmtID,
			"pid", strconv.Itoa(cp.nextPID()),
			"name", name)
		xmlquery.AddChild(cp.element(), prop)
	}

	for c := prop.FirstChild; c != nil; {
		next := c.NextSibling
		xmlquery.RemoveFromTree(c)
		c = next
	}

	properties := cp.element()
	if !declaresPrefix(properties, "vt") {
		xmlquery.AddAttr(properties, "xmlns:vt", vtNamespace)
	}
	lpwstr := newElement("vt", "lpwstr")
	lpwstr.NamespaceURI = vtNamespace
	xmlquery.AddChild(lpwstr, &xmlquery.Node{Type: xmlquery.TextNode, Data: value})
	xmlquery.AddChild(prop, lpwstr)
}

// nextPID 用户自定义属性的 pid 从 2 开始
func (cp *CustomProperties) nextPID() int {
	maxPID := 1
	for _, prop := range cp.properties() {
		if pid, err := strconv.Atoi(prop.SelectAttr("pid")); err == nil && pid > maxPID {
			maxPID = pid
		}
	}
	return maxPID + 1
}

// GetReplacementHistory 获取替换历史记录
func (cpm *CustomPropertyManager) GetReplacementHistory(props *CustomProperties) (*ReplacementHistory, error) {
	value, ok := props.Value(HistoryPropertyName)
	if !ok || value == "" {
		return &ReplacementHistory{Records: []ReplacementRecord{}}, nil
	}

	var history ReplacementHistory
	if err := json.Unmarshal([]byte(value), &history); err != nil {
		return nil, fmt.Errorf("解析替换历史失败: %w", err)
	}
	return &history, nil
}

// AddReplacementRecord 添加替换记录，同一关键词再次替换时版本号递增
func (cpm *CustomPropertyManager) AddReplacementRecord(props *CustomProperties, keyword, replacement string, count int) error {
	if !cpm.enabled {
		return nil
	}

	history, err := cpm.GetReplacementHistory(props)
	if err != nil {
		return err
	}

	record := ReplacementRecord{
		Keyword:     keyword,
		Replacement: replacement,
		Count:       count,
		Timestamp:   cpm.now(),
		Version:     1,
	}

	updated := false
	for i, existing := range history.Records {
		if existing.Keyword == keyword {
			record.Version = existing.Version + 1
			history.Records[i] = record
			updated = true
			break
		}
	}
	if !updated {
		history.Records = append(history.Records, record)
	}

	return cpm.updateHistoryProperty(props, history)
}

func (cpm *CustomPropertyManager) updateHistoryProperty(props *CustomProperties, history *ReplacementHistory) error {
	historyJSON, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("序列化替换历史失败: %w", err)
	}
	props.setString(HistoryPropertyName, string(historyJSON))
	return nil
}

// GetReplacementByKeyword 根据关键词获取替换记录，未找到返回 nil
func (cpm *CustomPropertyManager) GetReplacementByKeyword(props *CustomProperties, keyword string) (*ReplacementRecord, error) {
	history, err := cpm.GetReplacementHistory(props)
	if err != nil {
		return nil, err
	}

	for _, record := range history.Records {
		if record.Keyword == keyword {
			return &record, nil
		}
	}
	return nil, nil
}

// GetKeywords 获取所有已替换的关键词
func (cpm *CustomPropertyManager) GetKeywords(props *CustomProperties) []string {
	history, err := cpm.GetReplacementHistory(props)
	if err != nil {
		return []string{}
	}

	keywords := make([]string, 0, len(history.Records))
	for _, record := range history.Records {
		keywords = append(keywords, record.Keyword)
	}
	return keywords
}

// RecordReplacements 把本次有效的替换写入包内的自定义属性，
// 必要时创建 docProps/custom.xml 并注册关系和内容类型
func (cpm *CustomPropertyManager) RecordReplacements(pkg *Package, stats []domain.ReplacementStats) error {
	if !cpm.enabled {
		return nil
	}

	applied := 0
	for _, st := range stats {
		if st.Occurrences > 0 {
			applied++
		}
	}
	if applied == 0 {
		return nil
	}

	content := ""
	if pkg.HasPart(CustomPropertiesPart) {
		var err error
		if content, err = pkg.ReadPart(CustomPropertiesPart); err != nil {
			return err
		}
	}

	props, err := cpm.ParseCustomProperties(content)
	if err != nil {
		return err
	}
	for _, st := range stats {
		if st.Occurrences == 0 {
			continue
		}
		if err := cpm.AddReplacementRecord(props, st.Keyword, st.Replacement, st.Occurrences); err != nil {
			return err
		}
	}

	if err := registerCustomProperties(pkg); err != nil {
		return err
	}
	pkg.WritePart(CustomPropertiesPart, props.XML())
	return nil
}

// registerCustomProperties 确保包关系和内容类型中包含自定义属性部件
func registerCustomProperties(pkg *Package) error {
	rels, err := readTree(pkg, RootRelsPart, "Relationships")
	if err != nil {
		return err
	}
	relationships := documentElement(rels, "Relationships")

	found := false
	ids := make(map[string]bool)
	for c := relationships.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != xmlquery.ElementNode || c.Data != "Relationship" {
			continue
		}
		ids[c.SelectAttr("Id")] = true
		if c.SelectAttr("Type") == customPropertiesRelType {
			found = true
		}
	}
	if !found {
		id := 1
		for ids["rId"+strconv.Itoa(id)] {
			id++
		}
		xmlquery.AddChild(relationships, newElement("", "Relationship",
			"Id", "rId"+strconv.Itoa(id),
			"Type", customPropertiesRelType,
			"Target", CustomPropertiesPart))
		pkg.WritePart(RootRelsPart, outputXML(rels))
	}

	types, err := readTree(pkg, ContentTypesPart, "Types")
	if err != nil {
		return err
	}
	typesElement := documentElement(types, "Types")

	partName := "/" + CustomPropertiesPart
	for c := typesElement.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == xmlquery.ElementNode && c.Data == "Override" && c.SelectAttr("PartName") == partName {
			return nil
		}
	}
	xmlquery.AddChild(typesElement, newElement("", "Override",
		"PartName", partName,
		"ContentType", customPropertiesType))
	pkg.WritePart(ContentTypesPart, outputXML(types))
	return nil
}

func readTree(pkg *Package, part, rootName string) (*xmlquery.Node, error) {
	content, err := pkg.ReadPart(part)
	if err != nil {
		return nil, fmt.Errorf("读取 %s 失败: %v: %w", part, err, domain.ErrMalformedDocument)
	}
	root, err := xmlquery.Parse(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("解析 %s 失败: %v: %w", part, err, domain.ErrMalformedDocument)
	}
	if documentElement(root, rootName) == nil {
		return nil, fmt.Errorf("%s 缺少 %s 根元素: %w", part, rootName, domain.ErrMalformedDocument)
	}
	return root, nil
}
