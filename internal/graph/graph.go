package graph

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

// Graph DDR 结构图。导入阶段构建，Freeze 之后只读，
// 多个查询可以并发读取（publish-once, read-many）
type Graph struct {
	mu     sync.RWMutex
	frozen bool

	nodes map[string]*Node
	order []string // 节点插入顺序，保证遍历结果可复现

	edges    []*Edge
	outgoing map[string][]*Edge
	incoming map[string][]*Edge
	edgeSet  map[string]bool // from|to|relation 去重

	nameIndex map[NodeKind]map[string][]string // (kind, 小写 name) -> 节点 id 集合
}

// NewGraph 创建空图
func NewGraph() *Graph {
	return &Graph{
		nodes:     make(map[string]*Node),
		outgoing:  make(map[string][]*Edge),
		incoming:  make(map[string][]*Edge),
		edgeSet:   make(map[string]bool),
		nameIndex: make(map[NodeKind]map[string][]string),
	}
}

// AddNode 添加节点。id 一经分配不可变，重复 id 报错
func (g *Graph) AddNode(node *Node) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.frozen {
		return fmt.Errorf("图已冻结，不能添加节点 %s", node.ID)
	}
	if node.ID == "" {
		return fmt.Errorf("节点 id 不能为空")
	}
	if _, exists := g.nodes[node.ID]; exists {
		return fmt.Errorf("节点 id 重复: %s", node.ID)
	}

	g.nodes[node.ID] = node
	g.order = append(g.order, node.ID)

	byName := g.nameIndex[node.Kind]
	if byName == nil {
		byName = make(map[string][]string)
		g.nameIndex[node.Kind] = byName
	}
	key := strings.ToLower(node.Name)
	byName[key] = append(byName[key], node.ID)

	return nil
}

// AddEdge 添加有向边。两端节点必须已存在（禁止悬空边），
// 同一有序对 + 同一 Relation 的重复边报错
func (g *Graph) AddEdge(edge *Edge) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.frozen {
		return fmt.Errorf("图已冻结，不能添加边 %s -> %s", edge.From, edge.To)
	}
	if _, exists := g.nodes[edge.From]; !exists {
		return fmt.Errorf("边的起点不存在: %s", edge.From)
	}
	if _, exists := g.nodes[edge.To]; !exists {
		return fmt.Errorf("边的终点不存在: %s", edge.To)
	}

	key := edge.From + "|" + edge.To + "|" + string(edge.Relation)
	if g.edgeSet[key] {
		return fmt.Errorf("边重复: %s -[%s]-> %s", edge.From, edge.Relation, edge.To)
	}
	g.edgeSet[key] = true

	g.edges = append(g.edges, edge)
	g.outgoing[edge.From] = append(g.outgoing[edge.From], edge)
	g.incoming[edge.To] = append(g.incoming[edge.To], edge)

	return nil
}

// Freeze 冻结图。冻结后不再接受修改，读取不再加锁开销之外的限制
func (g *Graph) Freeze() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.frozen = true
}

// Frozen 是否已冻结
func (g *Graph) Frozen() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.frozen
}

// Node 获取节点，不存在返回 nil
func (g *Graph) Node(id string) *Node {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.nodes[id]
}

// HasNode 节点是否存在
func (g *Graph) HasNode(id string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, exists := g.nodes[id]
	return exists
}

// Outgoing 节点的出边，按导入时的索引顺序
func (g *Graph) Outgoing(id string) []*Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.outgoing[id]
}

// Incoming 节点的入边，按导入时的索引顺序
func (g *Graph) Incoming(id string) []*Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.incoming[id]
}

// NodeIDs 全部节点 id，按插入顺序
func (g *Graph) NodeIDs() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	ids := make([]string, len(g.order))
	copy(ids, g.order)
	return ids
}

// Edges 全部边，按插入顺序
func (g *Graph) Edges() []*Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	edges := make([]*Edge, len(g.edges))
	copy(edges, g.edges)
	return edges
}

// NodeCount 节点数
func (g *Graph) NodeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// EdgeCount 边数
func (g *Graph) EdgeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.edges)
}

// FindExact 按 (kind, name) 精确查找，忽略大小写，返回节点 id 集合
func (g *Graph) FindExact(kind NodeKind, name string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	byName := g.nameIndex[kind]
	if byName == nil {
		return nil
	}
	ids := byName[strings.ToLower(name)]
	out := make([]string, len(ids))
	copy(out, ids)
	return out
}

// FindSubstring 按 (kind, name 子串) 查找，忽略大小写，按插入顺序返回
func (g *Graph) FindSubstring(kind NodeKind, name string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	needle := strings.ToLower(name)
	var out []string
	for _, id := range g.order {
		node := g.nodes[id]
		if node.Kind != kind {
			continue
		}
		if strings.Contains(strings.ToLower(node.Name), needle) {
			out = append(out, id)
		}
	}
	return out
}

// FindExactAnyKind 跨 kind 按 name 精确查找，按插入顺序返回
func (g *Graph) FindExactAnyKind(name string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	needle := strings.ToLower(name)
	var out []string
	for _, id := range g.order {
		if strings.ToLower(g.nodes[id].Name) == needle {
			out = append(out, id)
		}
	}
	return out
}

// FindSubstringAnyKind 跨 kind 按 name 子串查找，按插入顺序返回
func (g *Graph) FindSubstringAnyKind(name string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	needle := strings.ToLower(name)
	var out []string
	for _, id := range g.order {
		if strings.Contains(strings.ToLower(g.nodes[id].Name), needle) {
			out = append(out, id)
		}
	}
	return out
}

// NodesByKind 某一 kind 的全部节点，按插入顺序
func (g *Graph) NodesByKind(kind NodeKind) []*Node {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var out []*Node
	for _, id := range g.order {
		if g.nodes[id].Kind == kind {
			out = append(out, g.nodes[id])
		}
	}
	return out
}

// jsonGraph JSON 导出视图
type jsonGraph struct {
	Nodes []*Node `json:"nodes"`
	Edges []*Edge `json:"edges"`
}

// ToJSON 导出为 JSON，节点和边保持插入顺序
func (g *Graph) ToJSON() ([]byte, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	view := jsonGraph{Edges: g.edges}
	for _, id := range g.order {
		view.Nodes = append(view.Nodes, g.nodes[id])
	}
	return json.MarshalIndent(view, "", "  ")
}
