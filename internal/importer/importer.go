package importer

import (
	"encoding/xml"
	"fmt"
	"log"
	"strings"

	"ddr-analyzer/internal/graph"
)

// xmlElement DDR XML 的通用元素树
type xmlElement struct {
	XMLName  xml.Name
	Attrs    []xml.Attr   `xml:",any,attr"`
	Text     string       `xml:",chardata"`
	Children []xmlElement `xml:",any"`
}

// kindForTag 元素标签到节点类型的映射，未识别的归为 Other
var kindForTag = map[string]graph.NodeKind{
	"BaseTable":      graph.KindTable,
	"Table":          graph.KindTable,
	"Field":          graph.KindField,
	"Script":         graph.KindScript,
	"Step":           graph.KindScriptStep,
	"ScriptStep":     graph.KindScriptStep,
	"Relationship":   graph.KindRelationship,
	"ValueList":      graph.KindValueList,
	"Layout":         graph.KindLayout,
	"CustomFunction": graph.KindCustomFunction,
}

// mutatingSteps 写操作脚本步骤。这些步骤引用的表/字段记为 modifies 而不是 references
var mutatingSteps = map[string]bool{
	"Set Field":                true,
	"Set Field By Name":        true,
	"New Record/Request":       true,
	"Duplicate Record/Request": true,
	"Delete Record/Request":    true,
	"Delete All Records":       true,
	"Replace Field Contents":   true,
	"Import Records":           true,
	"Truncate Table":           true,
}

// Import 解析 DDR XML 并构建结构图。
// 两遍构建：第一遍建节点，第二遍建边，保证前向引用可以解析。
// 格式错误返回 ParseError；悬空引用记为 SchemaError 告警并跳过，导入不中止
func Import(data []byte) (*graph.Graph, []*SchemaError, error) {
	var root xmlElement
	if err := xml.Unmarshal(data, &root); err != nil {
		return nil, nil, &ParseError{Err: err}
	}

	g := graph.NewGraph()
	var warnings []*SchemaError

	warn := func(elementID, format string, args ...interface{}) {
		w := &SchemaError{ElementID: elementID, Message: fmt.Sprintf(format, args...)}
		warnings = append(warnings, w)
		log.Printf("导入告警: %s", w.Error())
	}

	// 第一遍：为所有带 id 的元素建节点（引用元素除外）
	nodeCount := 0
	var addNodes func(el *xmlElement)
	addNodes = func(el *xmlElement) {
		tag := el.XMLName.Local
		id := attrValue(el, "id")
		if id != "" && !isReferenceTag(tag) {
			node := &graph.Node{
				ID:         id,
				Kind:       kindOf(tag),
				Name:       attrValue(el, "name"),
				Attributes: collectAttributes(el),
			}
			if err := g.AddNode(node); err != nil {
				warn(id, "跳过重复节点 <%s>: %v", tag, err)
			} else {
				nodeCount++
			}
		}
		for i := range el.Children {
			addNodes(&el.Children[i])
		}
	}
	addNodes(&root)
	log.Printf("导入: 创建 %d 个节点", nodeCount)

	// 第二遍：建边。owner 是最近的拥有节点的祖先元素
	edgeCount := 0
	addEdge := func(from, to string, relation graph.Relation) {
		edge := &graph.Edge{From: from, To: to, Relation: relation}
		// 重复的同类边只保留第一条，不算数据丢失
		if err := g.AddEdge(edge); err == nil {
			edgeCount++
		}
	}

	var addEdges func(el *xmlElement, ownerID string, ownerKind graph.NodeKind, ownerName string)
	addEdges = func(el *xmlElement, ownerID string, ownerKind graph.NodeKind, ownerName string) {
		tag := el.XMLName.Local
		id := attrValue(el, "id")

		if isReferenceTag(tag) {
			targetID := id
			if targetID == "" {
				targetID = attrValue(el, "ref")
			}
			switch {
			case ownerID == "":
				warn(targetID, "引用 <%s> 没有拥有者，跳过", tag)
			case targetID == "":
				warn(ownerID, "引用 <%s> 缺少目标 id，跳过", tag)
			case !g.HasNode(targetID):
				warn(ownerID, "引用 <%s> 的目标 %s 不存在，跳过", tag, targetID)
			case targetID == ownerID:
				warn(ownerID, "引用 <%s> 指向自身，跳过", tag)
			default:
				addEdge(ownerID, targetID, relationForReference(tag, ownerKind, ownerName))
			}
			// 引用元素下不再有结构内容
			return
		}

		if id != "" && g.HasNode(id) {
			// 包含关系：子元素 belongs_to 父元素（字段属于表，步骤属于脚本）
			if ownerID != "" && ownerID != id {
				addEdge(id, ownerID, graph.RelationBelongsTo)
			}
			node := g.Node(id)
			ownerID, ownerKind, ownerName = id, node.Kind, node.Name
		}

		for i := range el.Children {
			addEdges(&el.Children[i], ownerID, ownerKind, ownerName)
		}
	}
	addEdges(&root, "", graph.KindOther, "")
	log.Printf("导入: 创建 %d 条边, %d 条告警", edgeCount, len(warnings))

	g.Freeze()
	return g, warnings, nil
}

// isReferenceTag 引用元素：标签以 Reference 结尾，id 指向目标节点而不是自身
func isReferenceTag(tag string) bool {
	return strings.HasSuffix(tag, "Reference")
}

// kindOf 标签到 kind
func kindOf(tag string) graph.NodeKind {
	if kind, ok := kindForTag[tag]; ok {
		return kind
	}
	return graph.KindOther
}

// relationForReference 引用标签到边类型。
// 表/字段引用在写操作步骤下是 modifies，其余是 references
func relationForReference(tag string, ownerKind graph.NodeKind, ownerName string) graph.Relation {
	target := strings.TrimSuffix(tag, "Reference")
	switch target {
	case "Script":
		return graph.RelationCalls
	case "ValueList":
		return graph.RelationUsesValueList
	case "CustomFunction":
		return graph.RelationDependsOn
	case "Table", "BaseTable", "TableOccurrence", "Field":
		if ownerKind == graph.KindScriptStep && mutatingSteps[ownerName] {
			return graph.RelationModifies
		}
		return graph.RelationReferences
	default:
		return graph.RelationReferences
	}
}

// attrValue 读取 XML 属性
func attrValue(el *xmlElement, name string) string {
	for _, attr := range el.Attrs {
		if attr.Name.Local == name {
			return attr.Value
		}
	}
	return ""
}

// collectAttributes 原样保留元素属性，外加 tag 和去空白的文本内容。
// id 已经在 Node.ID 上，不重复进属性
func collectAttributes(el *xmlElement) map[string]string {
	attrs := make(map[string]string, len(el.Attrs)+2)
	for _, attr := range el.Attrs {
		if attr.Name.Local == "id" {
			continue
		}
		attrs[attr.Name.Local] = attr.Value
	}
	attrs["tag"] = el.XMLName.Local
	if text := strings.TrimSpace(el.Text); text != "" {
		attrs["text"] = text
	}
	return attrs
}
