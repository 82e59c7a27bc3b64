package renderer

import (
	"fmt"
	"strings"

	"ddr-analyzer/internal/graph"
)

// MermaidRenderer Mermaid ER 图渲染器
type MermaidRenderer struct{}

// NewMermaidRenderer 创建渲染器
func NewMermaidRenderer() *MermaidRenderer {
	return &MermaidRenderer{}
}

// Render 渲染为 Mermaid 格式
func (m *MermaidRenderer) Render(g *graph.Graph) string {
	var sb strings.Builder

	sb.WriteString("erDiagram\n")

	for _, table := range g.NodesByKind(graph.KindTable) {
		sb.WriteString(fmt.Sprintf("    %s {\n", sanitize(table.Name)))
		for _, field := range childrenOfKind(g, table.ID, graph.KindField) {
			dataType := field.Attr("dataType")
			if dataType == "" {
				dataType = "Text"
			}
			sb.WriteString(fmt.Sprintf("        %s %s\n", sanitize(dataType), sanitize(field.Name)))
		}
		sb.WriteString("    }\n")
	}

	sb.WriteString("\n")

	// 关系实体连接的前两个表画成一条关系线
	for _, rel := range g.NodesByKind(graph.KindRelationship) {
		var tables []*graph.Node
		for _, edge := range g.Outgoing(rel.ID) {
			target := g.Node(edge.To)
			if edge.Relation == graph.RelationReferences && target.Kind == graph.KindTable {
				tables = append(tables, target)
			}
		}
		if len(tables) < 2 {
			continue
		}
		label := rel.Name
		if label == "" {
			label = rel.ID
		}
		sb.WriteString(fmt.Sprintf("    %s ||--o{ %s : \"%s\"\n",
			sanitize(tables[0].Name), sanitize(tables[1].Name), label))
	}

	return sb.String()
}

// sanitize Mermaid 标识符不允许空格
func sanitize(name string) string {
	return strings.ReplaceAll(name, " ", "_")
}
