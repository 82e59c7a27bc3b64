package traversal

import (
	"fmt"
	"strings"

	"ddr-analyzer/internal/graph"
)

// InvalidQueryError 查询本身不合法（空种子集、种子不存在）。
// 只影响当前查询，图保持可用
type InvalidQueryError struct {
	Reason string
	Seeds  []string
}

func (e *InvalidQueryError) Error() string {
	if len(e.Seeds) == 0 {
		return fmt.Sprintf("无效查询: %s", e.Reason)
	}
	return fmt.Sprintf("无效查询: %s (种子: %s)", e.Reason, strings.Join(e.Seeds, ", "))
}

// Options 遍历参数。MaxHops 为 0 只返回种子本身，负数归一化为 0，
// 不存在"无限制"的遍历
type Options struct {
	MaxHops   int
	Relations []graph.Relation // 限制可扩展的边类型，空 = 不过滤
	Kinds     []graph.NodeKind // 限制可输出的节点类型，空 = 不过滤；种子不受此限制
}

// Visit 一次节点访问：节点、到最近种子的跳数、从种子出发的关系链
type Visit struct {
	NodeID string           `json:"node_id"`
	Depth  int              `json:"depth"`
	Path   []graph.Relation `json:"path"`
}

// Result 单次遍历的结果。访问顺序即插入顺序，同一节点不会出现两次。
// 结果归发起该查询的调用方独占
type Result struct {
	Traversal string  `json:"traversal"` // bfs / dfs
	Visited   []Visit `json:"visited"`
}

// Engine 有界遍历引擎。只读取 Graph，不持有任何跨查询状态
type Engine struct {
	g *graph.Graph
}

// NewEngine 创建遍历引擎
func NewEngine(g *graph.Graph) *Engine {
	return &Engine{g: g}
}

// BFS 从种子集合逐层扩展，边按双向处理（出边 + 入边），
// 捕捉"什么和它有关"的近邻视图。同层节点按导入时的边索引顺序访问，
// 相同输入保证结果可复现
func (e *Engine) BFS(seeds []string, opts Options) (*Result, error) {
	if err := e.validateSeeds(seeds); err != nil {
		return nil, err
	}
	maxHops := normalizeHops(opts.MaxHops)
	relAllowed := relationSet(opts.Relations)
	kindAllowed := kindSet(opts.Kinds)

	result := &Result{Traversal: "bfs"}
	visited := make(map[string]bool)

	type item struct {
		id    string
		depth int
		path  []graph.Relation
	}
	queue := make([]item, 0, len(seeds))
	for _, seed := range seeds {
		queue = append(queue, item{id: seed})
	}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		if visited[cur.id] {
			continue
		}
		visited[cur.id] = true

		// 种子无条件输出，其余节点受 kind 过滤
		if cur.depth == 0 || e.kindOK(cur.id, kindAllowed) {
			result.Visited = append(result.Visited, Visit{NodeID: cur.id, Depth: cur.depth, Path: cur.path})
		}

		if cur.depth == maxHops {
			continue
		}
		for _, edge := range e.g.Outgoing(cur.id) {
			if relAllowed != nil && !relAllowed[edge.Relation] {
				continue
			}
			if !visited[edge.To] {
				queue = append(queue, item{id: edge.To, depth: cur.depth + 1, path: extendPath(cur.path, edge.Relation)})
			}
		}
		for _, edge := range e.g.Incoming(cur.id) {
			if relAllowed != nil && !relAllowed[edge.Relation] {
				continue
			}
			if !visited[edge.From] {
				queue = append(queue, item{id: edge.From, depth: cur.depth + 1, path: extendPath(cur.path, edge.Relation)})
			}
		}
	}

	return result, nil
}

// DFS 沿出边深度优先扩展（方向有意义：calls/modifies/references 向前），
// 捕捉"它会触发什么"的执行链视图。跳数预算是每条分支的硬上限；
// 访问过的节点立即终止该分支（脚本互相调用会形成环）
func (e *Engine) DFS(seeds []string, opts Options) (*Result, error) {
	if err := e.validateSeeds(seeds); err != nil {
		return nil, err
	}
	maxHops := normalizeHops(opts.MaxHops)
	relAllowed := relationSet(opts.Relations)
	kindAllowed := kindSet(opts.Kinds)

	result := &Result{Traversal: "dfs"}
	visited := make(map[string]bool)

	var walk func(id string, depth int, path []graph.Relation)
	walk = func(id string, depth int, path []graph.Relation) {
		if visited[id] {
			return
		}
		visited[id] = true

		if depth == 0 || e.kindOK(id, kindAllowed) {
			result.Visited = append(result.Visited, Visit{NodeID: id, Depth: depth, Path: path})
		}

		if depth == maxHops {
			return
		}
		for _, edge := range e.g.Outgoing(id) {
			if relAllowed != nil && !relAllowed[edge.Relation] {
				continue
			}
			walk(edge.To, depth+1, extendPath(path, edge.Relation))
		}
	}

	for _, seed := range seeds {
		walk(seed, 0, nil)
	}

	return result, nil
}

// validateSeeds 空种子集或不存在的种子直接失败
func (e *Engine) validateSeeds(seeds []string) error {
	if len(seeds) == 0 {
		return &InvalidQueryError{Reason: "种子集合为空"}
	}
	for _, seed := range seeds {
		if !e.g.HasNode(seed) {
			return &InvalidQueryError{Reason: "种子节点不存在", Seeds: []string{seed}}
		}
	}
	return nil
}

// kindOK 节点是否通过 kind 过滤
func (e *Engine) kindOK(id string, allowed map[graph.NodeKind]bool) bool {
	if allowed == nil {
		return true
	}
	node := e.g.Node(id)
	return node != nil && allowed[node.Kind]
}

func normalizeHops(hops int) int {
	if hops < 0 {
		return 0
	}
	return hops
}

func relationSet(relations []graph.Relation) map[graph.Relation]bool {
	if len(relations) == 0 {
		return nil
	}
	set := make(map[graph.Relation]bool, len(relations))
	for _, r := range relations {
		set[r] = true
	}
	return set
}

func kindSet(kinds []graph.NodeKind) map[graph.NodeKind]bool {
	if len(kinds) == 0 {
		return nil
	}
	set := make(map[graph.NodeKind]bool, len(kinds))
	for _, k := range kinds {
		set[k] = true
	}
	return set
}

// extendPath 复制并追加，避免分支间共享底层数组
func extendPath(path []graph.Relation, relation graph.Relation) []graph.Relation {
	next := make([]graph.Relation, len(path)+1)
	copy(next, path)
	next[len(path)] = relation
	return next
}
