package importer

import (
	"errors"
	"testing"

	"ddr-analyzer/internal/graph"
)

const sampleDDR = `<?xml version="1.0" encoding="UTF-8"?>
<FMPReport>
  <File name="Sales.fmp12">
    <BaseTableCatalog>
      <BaseTable id="T1" name="Customers">
        <FieldCatalog>
          <Field id="F1" name="CustomerID" dataType="Number"/>
          <Field id="F2" name="Email" dataType="Text"/>
        </FieldCatalog>
      </BaseTable>
      <BaseTable id="T2" name="Orders">
        <FieldCatalog>
          <Field id="F3" name="OrderID" dataType="Number"/>
        </FieldCatalog>
      </BaseTable>
    </BaseTableCatalog>
    <RelationshipCatalog>
      <Relationship id="R1" name="Customers_Orders">
        <LeftTable><TableReference id="T1"/></LeftTable>
        <RightTable><TableReference id="T2"/></RightTable>
      </Relationship>
    </RelationshipCatalog>
    <ScriptCatalog>
      <Script id="S1" name="CreateCustomer">
        <StepList>
          <Step id="ST1" name="New Record/Request">
            <TableReference id="T1"/>
          </Step>
          <Step id="ST2" name="Set Field">
            <FieldReference id="F2"/>
          </Step>
          <Step id="ST3" name="Perform Script">
            <ScriptReference id="S2"/>
          </Step>
        </StepList>
      </Script>
      <Script id="S2" name="DupeCheck">
        <StepList>
          <Step id="ST4" name="Go to Layout">
            <LayoutReference id="L9"/>
          </Step>
        </StepList>
      </Script>
    </ScriptCatalog>
    <ValueListCatalog>
      <ValueList id="V1" name="Statuses"/>
    </ValueListCatalog>
    <WeirdCatalog>
      <WeirdThing id="W1" name="Mystery"/>
    </WeirdCatalog>
  </File>
</FMPReport>`

func importSample(t *testing.T) (*graph.Graph, []*SchemaError) {
	t.Helper()
	g, warnings, err := Import([]byte(sampleDDR))
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	return g, warnings
}

func TestImportNodeKinds(t *testing.T) {
	g, _ := importSample(t)

	tests := []struct {
		id   string
		kind graph.NodeKind
		name string
	}{
		{"T1", graph.KindTable, "Customers"},
		{"F1", graph.KindField, "CustomerID"},
		{"S1", graph.KindScript, "CreateCustomer"},
		{"ST1", graph.KindScriptStep, "New Record/Request"},
		{"R1", graph.KindRelationship, "Customers_Orders"},
		{"V1", graph.KindValueList, "Statuses"},
		{"W1", graph.KindOther, "Mystery"}, // 未识别类型不丢弃
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			node := g.Node(tt.id)
			if node == nil {
				t.Fatalf("node %s missing", tt.id)
			}
			if node.Kind != tt.kind {
				t.Errorf("expected kind %s, got %s", tt.kind, node.Kind)
			}
			if node.Name != tt.name {
				t.Errorf("expected name %s, got %s", tt.name, node.Name)
			}
		})
	}

	// 引用元素和无 id 元素不产生节点
	if g.Node("L9") != nil {
		t.Error("dangling reference target should not exist as node")
	}
}

func TestImportAttributesVerbatim(t *testing.T) {
	g, _ := importSample(t)

	node := g.Node("F1")
	if node.Attr("dataType") != "Number" {
		t.Errorf("expected dataType=Number, got %q", node.Attr("dataType"))
	}
	if node.Attr("tag") != "Field" {
		t.Errorf("expected tag=Field, got %q", node.Attr("tag"))
	}
	if _, exists := node.Attributes["id"]; exists {
		t.Error("id should not be duplicated into attributes")
	}
}

func TestImportEdges(t *testing.T) {
	g, _ := importSample(t)

	tests := []struct {
		from     string
		to       string
		relation graph.Relation
	}{
		{"F1", "T1", graph.RelationBelongsTo}, // 字段属于表
		{"ST1", "S1", graph.RelationBelongsTo},
		{"ST1", "T1", graph.RelationModifies},  // 写操作步骤
		{"ST2", "F2", graph.RelationModifies},  // Set Field
		{"ST3", "S2", graph.RelationCalls},     // 前向引用，第二遍解析
		{"R1", "T1", graph.RelationReferences}, // 关系实体连接表
		{"R1", "T2", graph.RelationReferences},
	}

	for _, tt := range tests {
		t.Run(tt.from+"_"+tt.to, func(t *testing.T) {
			if !hasEdge(g, tt.from, tt.to, tt.relation) {
				t.Errorf("expected edge %s -[%s]-> %s", tt.from, tt.relation, tt.to)
			}
		})
	}
}

func TestImportNoDanglingEdges(t *testing.T) {
	g, _ := importSample(t)

	for _, edge := range g.Edges() {
		if !g.HasNode(edge.From) || !g.HasNode(edge.To) {
			t.Errorf("dangling edge %s -[%s]-> %s", edge.From, edge.Relation, edge.To)
		}
	}
}

func TestImportUnresolvedReferenceWarns(t *testing.T) {
	g, warnings := importSample(t)

	// ST4 引用不存在的布局 L9：记告警、跳过边、导入继续
	if len(warnings) != 1 {
		t.Fatalf("expected 1 warning, got %d: %v", len(warnings), warnings)
	}
	if warnings[0].ElementID != "ST4" {
		t.Errorf("expected warning on ST4, got %s", warnings[0].ElementID)
	}
	for _, edge := range g.Outgoing("ST4") {
		if edge.Relation != graph.RelationBelongsTo {
			t.Errorf("unexpected edge from ST4: %v", edge)
		}
	}
}

func TestImportDuplicateID(t *testing.T) {
	doc := `<FMPReport>
  <BaseTable id="T1" name="Customers"/>
  <BaseTable id="T1" name="Orders"/>
</FMPReport>`

	g, warnings, err := Import([]byte(doc))
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if len(warnings) != 1 {
		t.Fatalf("expected 1 warning, got %d", len(warnings))
	}
	// 先到的节点保留
	if g.Node("T1").Name != "Customers" {
		t.Errorf("expected first node to win, got %s", g.Node("T1").Name)
	}
}

func TestImportMalformedXML(t *testing.T) {
	_, _, err := Import([]byte("<FMPReport><unclosed"))
	if err == nil {
		t.Fatal("expected ParseError, got nil")
	}
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Errorf("expected *ParseError, got %T", err)
	}
}

func TestImportGraphFrozen(t *testing.T) {
	g, _ := importSample(t)
	if !g.Frozen() {
		t.Error("imported graph should be frozen")
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
