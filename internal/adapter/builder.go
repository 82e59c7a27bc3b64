package adapter

import (
	"fmt"
	"log"

	"ddr-analyzer/internal/graph"
)

// BuildGraph 把内省出来的元数据转成和 DDR 导入同构的图：
// 表节点、字段节点（belongs_to 表）、外键（字段 references 字段，
// 表 depends_on 表）。构建完成后冻结
func BuildGraph(meta *SchemaMetadata, fks []ForeignKey) *graph.Graph {
	g := graph.NewGraph()

	for _, table := range meta.Tables {
		tableNode := &graph.Node{
			ID:   "table:" + table.Name,
			Kind: graph.KindTable,
			Name: table.Name,
			Attributes: map[string]string{
				"schema": table.Schema,
			},
		}
		if err := g.AddNode(tableNode); err != nil {
			log.Printf("跳过表 %s: %v", table.Name, err)
			continue
		}

		for _, col := range table.Columns {
			attrs := map[string]string{
				"table":    table.Name,
				"dataType": col.DataType,
			}
			if col.IsPrimaryKey {
				attrs["primaryKey"] = "true"
			}
			if col.Nullable {
				attrs["nullable"] = "true"
			}
			if col.Length > 0 {
				attrs["length"] = fmt.Sprintf("%d", col.Length)
			}

			fieldNode := &graph.Node{
				ID:         fmt.Sprintf("field:%s.%s", table.Name, col.Name),
				Kind:       graph.KindField,
				Name:       col.Name,
				Attributes: attrs,
			}
			if err := g.AddNode(fieldNode); err != nil {
				log.Printf("跳过字段 %s.%s: %v", table.Name, col.Name, err)
				continue
			}
			if err := g.AddEdge(&graph.Edge{From: fieldNode.ID, To: tableNode.ID, Relation: graph.RelationBelongsTo}); err != nil {
				log.Printf("跳过归属边 %s -> %s: %v", fieldNode.ID, tableNode.ID, err)
			}
		}
	}

	for _, fk := range fks {
		fromField := fmt.Sprintf("field:%s.%s", fk.FromTable, fk.FromColumn)
		toField := fmt.Sprintf("field:%s.%s", fk.ToTable, fk.ToColumn)
		if err := g.AddEdge(&graph.Edge{From: fromField, To: toField, Relation: graph.RelationReferences}); err != nil {
			log.Printf("跳过外键 %s -> %s: %v", fromField, toField, err)
			continue
		}
		// 表级依赖；同一对表的多条外键只保留第一条，其余记日志跳过
		if err := g.AddEdge(&graph.Edge{
			From:     "table:" + fk.FromTable,
			To:       "table:" + fk.ToTable,
			Relation: graph.RelationDependsOn,
		}); err != nil {
			log.Printf("跳过表级依赖 %s -> %s: %v", fk.FromTable, fk.ToTable, err)
		}
	}

	g.Freeze()
	return g
}
