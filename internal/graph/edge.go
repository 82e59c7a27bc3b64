package graph

// Relation 边类型
type Relation string

const (
	RelationReferences    Relation = "references"      // 脚本步骤/布局引用表或字段
	RelationCalls         Relation = "calls"           // 脚本调用子脚本
	RelationModifies      Relation = "modifies"        // 写操作步骤引用表或字段
	RelationBelongsTo     Relation = "belongs_to"      // 包含关系（字段属于表）
	RelationUsesValueList Relation = "uses_value_list" // 引用值列表
	RelationDependsOn     Relation = "depends_on"      // 依赖自定义函数
)

// Edge 有向边。同一有序节点对之间允许多条边，但 Relation 必须不同
type Edge struct {
	From     string   `json:"from"`
	To       string   `json:"to"`
	Relation Relation `json:"relation"`
}
