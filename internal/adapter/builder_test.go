package adapter

import (
	"testing"

	"ddr-analyzer/internal/graph"
)

func TestBuildGraph(t *testing.T) {
	meta := &SchemaMetadata{
		Tables: []Table{
			{
				Schema: "sales",
				Name:   "customers",
				Columns: []Column{
					{Name: "id", DataType: "int", IsPrimaryKey: true},
					{Name: "email", DataType: "varchar", Length: 255, Nullable: true},
				},
			},
			{
				Schema: "sales",
				Name:   "orders",
				Columns: []Column{
					{Name: "id", DataType: "int", IsPrimaryKey: true},
					{Name: "customer_id", DataType: "int"},
				},
			},
		},
	}
	fks := []ForeignKey{
		{FromTable: "orders", FromColumn: "customer_id", ToTable: "customers", ToColumn: "id"},
	}

	g := BuildGraph(meta, fks)

	if !g.Frozen() {
		t.Error("built graph should be frozen")
	}
	if g.NodeCount() != 6 {
		t.Errorf("expected 6 nodes, got %d", g.NodeCount())
	}

	table := g.Node("table:customers")
	if table == nil || table.Kind != graph.KindTable {
		t.Fatalf("expected table node, got %+v", table)
	}
	if table.Attr("schema") != "sales" {
		t.Errorf("expected schema attribute, got %q", table.Attr("schema"))
	}

	field := g.Node("field:customers.email")
	if field == nil || field.Kind != graph.KindField {
		t.Fatalf("expected field node, got %+v", field)
	}
	if field.Attr("dataType") != "varchar" || field.Attr("length") != "255" {
		t.Errorf("unexpected field attributes: %v", field.Attributes)
	}

	// 字段属于表
	if !hasEdge(g, "field:customers.email", "table:customers", graph.RelationBelongsTo) {
		t.Error("expected belongs_to edge")
	}
	// 外键：字段引用字段，表依赖表
	if !hasEdge(g, "field:orders.customer_id", "field:customers.id", graph.RelationReferences) {
		t.Error("expected references edge from fk")
	}
	if !hasEdge(g, "table:orders", "table:customers", graph.RelationDependsOn) {
		t.Error("expected depends_on edge from fk")
	}
}

func TestBuildGraphDuplicateTableDependency(t *testing.T) {
	meta := &SchemaMetadata{
		Tables: []Table{
			{Name: "customers", Columns: []Column{
				{Name: "id", DataType: "int", IsPrimaryKey: true},
				{Name: "billing_id", DataType: "int"},
			}},
			{Name: "orders", Columns: []Column{
				{Name: "customer_id", DataType: "int"},
				{Name: "billed_to", DataType: "int"},
			}},
		},
	}
	// 同一对表之间的两条外键：字段边两条，表级依赖只留一条
	fks := []ForeignKey{
		{FromTable: "orders", FromColumn: "customer_id", ToTable: "customers", ToColumn: "id"},
		{FromTable: "orders", FromColumn: "billed_to", ToTable: "customers", ToColumn: "billing_id"},
	}

	g := BuildGraph(meta, fks)

	if !hasEdge(g, "field:orders.customer_id", "field:customers.id", graph.RelationReferences) ||
		!hasEdge(g, "field:orders.billed_to", "field:customers.billing_id", graph.RelationReferences) {
		t.Error("expected both field-level references edges")
	}

	dependsOn := 0
	for _, edge := range g.Outgoing("table:orders") {
		if edge.To == "table:customers" && edge.Relation == graph.RelationDependsOn {
			dependsOn++
		}
	}
	if dependsOn != 1 {
		t.Errorf("expected exactly 1 depends_on edge, got %d", dependsOn)
	}
}

func TestBuildGraphSkipsBadForeignKey(t *testing.T) {
	meta := &SchemaMetadata{
		Tables: []Table{
			{Name: "customers", Columns: []Column{{Name: "id", DataType: "int"}}},
		},
	}
	fks := []ForeignKey{
		{FromTable: "customers", FromColumn: "id", ToTable: "missing", ToColumn: "id"},
	}

	g := BuildGraph(meta, fks)

	// 指向不存在表的外键被跳过，不产生悬空边
	for _, edge := range g.Edges() {
		if !g.HasNode(edge.From) || !g.HasNode(edge.To) {
			t.Errorf("dangling edge %+v", edge)
		}
	}
}

func hasEdge(g *graph.Graph, from, to string, relation graph.Relation) bool {
	for _, edge := range g.Outgoing(from) {
		if edge.To == to && edge.Relation == relation {
			return true
		}
	}
	return false
}
