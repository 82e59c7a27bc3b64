package graph

// NodeKind 节点类型
type NodeKind string

const (
	KindTable          NodeKind = "table"
	KindField          NodeKind = "field"
	KindScript         NodeKind = "script"
	KindScriptStep     NodeKind = "script_step"
	KindRelationship   NodeKind = "relationship"
	KindValueList      NodeKind = "value_list"
	KindLayout         NodeKind = "layout"
	KindCustomFunction NodeKind = "custom_function"
	KindOther          NodeKind = "other" // 未识别的元素类型，保留不丢弃
)

// Node 图节点，对应 DDR 导出中的一个 schema 元素
type Node struct {
	ID         string            `json:"id"`
	Kind       NodeKind          `json:"kind"`
	Name       string            `json:"name"`
	Attributes map[string]string `json:"attributes"`
}

// Attr 读取属性值，不存在返回空串
func (n *Node) Attr(key string) string {
	if n.Attributes == nil {
		return ""
	}
	return n.Attributes[key]
}
