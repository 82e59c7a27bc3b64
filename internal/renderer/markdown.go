package renderer

import (
	"fmt"
	"strings"

	"ddr-analyzer/internal/graph"
)

// MarkdownRenderer Markdown 数据字典渲染器
type MarkdownRenderer struct{}

// NewMarkdownRenderer 创建渲染器
func NewMarkdownRenderer() *MarkdownRenderer {
	return &MarkdownRenderer{}
}

// Render 渲染为 Markdown 格式
func (m *MarkdownRenderer) Render(g *graph.Graph) string {
	var sb strings.Builder

	sb.WriteString("# FileMaker 数据库结构文档\n\n")

	sb.WriteString("## 表结构\n\n")
	for _, table := range g.NodesByKind(graph.KindTable) {
		sb.WriteString(fmt.Sprintf("### %s\n\n", table.Name))

		fields := childrenOfKind(g, table.ID, graph.KindField)
		if len(fields) > 0 {
			sb.WriteString("| 字段 | 类型 | 备注 |\n")
			sb.WriteString("|------|------|------|\n")
			for _, field := range fields {
				dataType := field.Attr("dataType")
				if dataType == "" {
					dataType = field.Attr("fieldType")
				}
				sb.WriteString(fmt.Sprintf("| %s | %s | %s |\n",
					field.Name, dataType, field.Attr("comment")))
			}
			sb.WriteString("\n")
		}

		m.renderTableUsage(&sb, g, table)
	}

	sb.WriteString("## 脚本\n\n")
	for _, script := range g.NodesByKind(graph.KindScript) {
		steps := childrenOfKind(g, script.ID, graph.KindScriptStep)
		sb.WriteString(fmt.Sprintf("### %s\n\n", script.Name))
		sb.WriteString(fmt.Sprintf("- 步骤数: %d\n", len(steps)))

		for _, step := range steps {
			for _, edge := range g.Outgoing(step.ID) {
				target := g.Node(edge.To)
				switch edge.Relation {
				case graph.RelationCalls:
					sb.WriteString(fmt.Sprintf("- 调用脚本 `%s`\n", target.Name))
				case graph.RelationModifies:
					sb.WriteString(fmt.Sprintf("- **写入** `%s`\n", target.Name))
				}
			}
		}
		sb.WriteString("\n")
	}

	valueLists := g.NodesByKind(graph.KindValueList)
	if len(valueLists) > 0 {
		sb.WriteString("## 值列表\n\n")
		for _, vl := range valueLists {
			sb.WriteString(fmt.Sprintf("- %s\n", vl.Name))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

// renderTableUsage 表被谁引用/写入
func (m *MarkdownRenderer) renderTableUsage(sb *strings.Builder, g *graph.Graph, table *graph.Node) {
	var lines []string
	for _, edge := range g.Incoming(table.ID) {
		if edge.Relation == graph.RelationBelongsTo {
			continue
		}
		from := g.Node(edge.From)
		relType := "引用"
		if edge.Relation == graph.RelationModifies {
			relType = "写入"
		}
		lines = append(lines, fmt.Sprintf("- **%s** `%s` (%s)\n", relType, from.Name, from.Kind))
	}
	if len(lines) == 0 {
		return
	}

	sb.WriteString("#### 使用方\n\n")
	for _, line := range lines {
		sb.WriteString(line)
	}
	sb.WriteString("\n")
}

// childrenOfKind 通过 belongs_to 入边找某节点的子元素
func childrenOfKind(g *graph.Graph, parentID string, kind graph.NodeKind) []*graph.Node {
	var out []*graph.Node
	for _, edge := range g.Incoming(parentID) {
		if edge.Relation != graph.RelationBelongsTo {
			continue
		}
		node := g.Node(edge.From)
		if node != nil && node.Kind == kind {
			out = append(out, node)
		}
	}
	return out
}
