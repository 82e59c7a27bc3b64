package assembler

import (
	"fmt"
	"log"
	"sort"
	"strings"

	"ddr-analyzer/internal/graph"
	"ddr-analyzer/internal/traversal"
)

// Fragment 上下文片段，合并结果中每个不同节点一条
type Fragment struct {
	NodeID     string         `json:"node_id"`
	Kind       graph.NodeKind `json:"kind"`
	Name       string         `json:"name"`
	Depth      int            `json:"depth"`
	Paths      []string       `json:"paths"`      // 所有不同的关系链说明
	Traversals []string       `json:"traversals"` // bfs / dfs
	Text       string         `json:"text"`
}

// Bundle 装配输出：有序、去重、带预算上限的上下文包。
// 输出顺序稳定，相同图和查询重复运行产出字节一致的结果
type Bundle struct {
	Fragments  []Fragment `json:"fragments"`
	TotalNodes int        `json:"total_nodes"`
	Dropped    int        `json:"dropped"` // 因预算被丢弃的节点数
}

// Text 拼接全部片段
func (b *Bundle) Text() string {
	var sb strings.Builder
	for _, frag := range b.Fragments {
		sb.WriteString(frag.Text)
		sb.WriteString("\n")
	}
	if b.Dropped > 0 {
		sb.WriteString(droppedNote(b.Dropped))
	}
	return sb.String()
}

// droppedNote 预算丢弃说明。它本身也计入预算
func droppedNote(dropped int) string {
	return fmt.Sprintf("(预算限制，已省略 %d 个低优先级节点)\n", dropped)
}

// DefaultKindPriority 默认优先级：脚本类节点排在描述性节点之前。
// 被调查的问题（重复行、异常写入）通常由脚本引起，这是有意的领域启发，
// 可按需要替换成别的优先级表
var DefaultKindPriority = map[graph.NodeKind]int{
	graph.KindScript:         0,
	graph.KindScriptStep:     1,
	graph.KindTable:          2,
	graph.KindRelationship:   3,
	graph.KindLayout:         4,
	graph.KindValueList:      5,
	graph.KindCustomFunction: 6,
	graph.KindField:          7,
	graph.KindOther:          8,
}

// Assembler 上下文装配器
type Assembler struct {
	g            *graph.Graph
	kindPriority map[graph.NodeKind]int
}

// New 创建装配器，使用默认优先级表
func New(g *graph.Graph) *Assembler {
	return NewWithPriority(g, DefaultKindPriority)
}

// NewWithPriority 创建装配器，自定义 kind 优先级（值越小越优先）
func NewWithPriority(g *graph.Graph, priority map[graph.NodeKind]int) *Assembler {
	return &Assembler{g: g, kindPriority: priority}
}

// merged 按节点 id 合并后的中间条目
type merged struct {
	nodeID     string
	depth      int
	path       []graph.Relation
	traversals []string
	order      int // 首次发现顺序，最终的稳定 tie-break
}

// Assemble 合并 BFS 和 DFS 的结果为一个上下文包。
// budget 是字符预算，<= 0 表示不限制；超出预算时按优先级从后往前整段丢弃，
// 绝不截断片段中部（超预算是正常情况，记日志不报错）
func (a *Assembler) Assemble(bfsResult, dfsResult *traversal.Result, budget int) *Bundle {
	byID := make(map[string]*merged)
	var entries []*merged

	absorb := func(result *traversal.Result) {
		if result == nil {
			return
		}
		for _, visit := range result.Visited {
			entry, exists := byID[visit.NodeID]
			if !exists {
				entry = &merged{
					nodeID: visit.NodeID,
					depth:  visit.Depth,
					path:   visit.Path,
					order:  len(entries),
				}
				byID[visit.NodeID] = entry
				entries = append(entries, entry)
			} else if len(visit.Path) < len(entry.path) {
				// 两种遍历都到达时保留更短的关系链（更直接的理由）
				entry.path = visit.Path
				entry.depth = visit.Depth
			}
			entry.traversals = appendDistinct(entry.traversals, result.Traversal)
		}
	}
	absorb(bfsResult)
	absorb(dfsResult)

	// 相同 (kind, name, attributes) 的节点合并为一个片段，列出所有关系链
	byTuple := make(map[string]*Fragment)
	type ranked struct {
		frag     *Fragment
		priority int
		order    int
	}
	var fragments []*ranked

	for _, entry := range entries {
		node := a.g.Node(entry.nodeID)
		if node == nil {
			continue
		}
		key := tupleKey(node)
		pathDesc := describePath(entry.path)

		if frag, exists := byTuple[key]; exists {
			frag.Paths = appendDistinct(frag.Paths, pathDesc)
			for _, tr := range entry.traversals {
				frag.Traversals = appendDistinct(frag.Traversals, tr)
			}
			if entry.depth < frag.Depth {
				frag.Depth = entry.depth
			}
			continue
		}

		frag := &Fragment{
			NodeID:     entry.nodeID,
			Kind:       node.Kind,
			Name:       node.Name,
			Depth:      entry.depth,
			Paths:      []string{pathDesc},
			Traversals: entry.traversals,
		}
		byTuple[key] = frag
		fragments = append(fragments, &ranked{frag: frag, priority: a.priorityOf(node.Kind), order: entry.order})
	}

	// 优先级排序：种子（深度 0）最前，然后按深度、kind 优先级、发现顺序
	sort.SliceStable(fragments, func(i, j int) bool {
		fi, fj := fragments[i], fragments[j]
		if fi.frag.Depth != fj.frag.Depth {
			return fi.frag.Depth < fj.frag.Depth
		}
		if fi.priority != fj.priority {
			return fi.priority < fj.priority
		}
		return fi.order < fj.order
	})

	// 渲染片段文本后按预算截取前缀
	bundle := &Bundle{TotalNodes: len(fragments)}
	used := 0
	for _, r := range fragments {
		r.frag.Text = a.renderFragment(r.frag)
		cost := len(r.frag.Text) + 1
		if budget > 0 && used+cost > budget {
			break
		}
		used += cost
		bundle.Fragments = append(bundle.Fragments, *r.frag)
	}
	bundle.Dropped = bundle.TotalNodes - len(bundle.Fragments)

	// 一旦发生丢弃，说明行也要占预算；加上说明仍超限就继续从尾部丢
	if budget > 0 && bundle.Dropped > 0 {
		for len(bundle.Fragments) > 0 && used+len(droppedNote(bundle.Dropped)) > budget {
			last := bundle.Fragments[len(bundle.Fragments)-1]
			bundle.Fragments = bundle.Fragments[:len(bundle.Fragments)-1]
			used -= len(last.Text) + 1
			bundle.Dropped++
		}
	}

	if bundle.Dropped > 0 {
		log.Printf("上下文预算 %d 超限: 保留 %d 个节点, 丢弃 %d 个", budget, len(bundle.Fragments), bundle.Dropped)
	}

	return bundle
}

// renderFragment 单个片段的文本。字段顺序固定，保证输出可复现
func (a *Assembler) renderFragment(frag *Fragment) string {
	node := a.g.Node(frag.NodeID)

	parts := []string{fmt.Sprintf("[%s] %s", frag.Kind, frag.Name)}
	if attrs := describeAttributes(node); attrs != "" {
		parts = append(parts, attrs)
	}
	parts = append(parts, fmt.Sprintf("深度: %d", frag.Depth))
	parts = append(parts, fmt.Sprintf("路径: %s", strings.Join(frag.Paths, " / ")))
	parts = append(parts, fmt.Sprintf("来源: %s", strings.Join(frag.Traversals, "+")))

	return strings.Join(parts, " | ")
}

// describeAttributes 属性按 key 排序输出，tag 和 text 之外的内部键不过滤
func describeAttributes(node *graph.Node) string {
	if len(node.Attributes) == 0 {
		return ""
	}
	keys := make([]string, 0, len(node.Attributes))
	for key := range node.Attributes {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, key := range keys {
		pairs = append(pairs, fmt.Sprintf("%s=%s", key, node.Attributes[key]))
	}
	return strings.Join(pairs, ", ")
}

// describePath 关系链的可读形式
func describePath(path []graph.Relation) string {
	if len(path) == 0 {
		return "种子"
	}
	parts := make([]string, len(path))
	for i, rel := range path {
		parts[i] = string(rel)
	}
	return strings.Join(parts, " → ")
}

// tupleKey (kind, name, attributes) 去重键，属性序列化按 key 排序
func tupleKey(node *graph.Node) string {
	keys := make([]string, 0, len(node.Attributes))
	for key := range node.Attributes {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString(string(node.Kind))
	sb.WriteString("|")
	sb.WriteString(node.Name)
	for _, key := range keys {
		sb.WriteString("|")
		sb.WriteString(key)
		sb.WriteString("=")
		sb.WriteString(node.Attributes[key])
	}
	return sb.String()
}

func (a *Assembler) priorityOf(kind graph.NodeKind) int {
	if priority, ok := a.kindPriority[kind]; ok {
		return priority
	}
	return len(a.kindPriority)
}

func appendDistinct(list []string, value string) []string {
	for _, existing := range list {
		if existing == value {
			return list
		}
	}
	return append(list, value)
}
