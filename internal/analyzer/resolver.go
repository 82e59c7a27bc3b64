package analyzer

import (
	"math"
	"strings"

	"ddr-analyzer/internal/graph"
	"ddr-analyzer/internal/traversal"

	"github.com/texttheater/golang-levenshtein/levenshtein"
)

// fuzzyThreshold 模糊匹配的相似度下限
const fuzzyThreshold = 0.7

// SeedResolver 把查询里的表名/属性名解析为种子节点。
// 匹配顺序：精确 > 子串 > Levenshtein 相似度
type SeedResolver struct {
	g *graph.Graph
}

// NewSeedResolver 创建解析器
func NewSeedResolver(g *graph.Graph) *SeedResolver {
	return &SeedResolver{g: g}
}

// Resolve 解析种子集合。table 在表节点内查找，property 跨所有 kind 查找，
// 两者结果取并集。两个参数都为空、或者都解析不到任何节点时返回 InvalidQueryError
func (r *SeedResolver) Resolve(table, property string) ([]string, error) {
	if table == "" && property == "" {
		return nil, &traversal.InvalidQueryError{Reason: "未提供表名或属性名"}
	}

	var seeds []string
	seen := make(map[string]bool)
	add := func(ids []string) {
		for _, id := range ids {
			if !seen[id] {
				seen[id] = true
				seeds = append(seeds, id)
			}
		}
	}

	if table != "" {
		add(r.resolveTable(table))
	}
	if property != "" {
		add(r.resolveProperty(property))
	}

	if len(seeds) == 0 {
		var names []string
		if table != "" {
			names = append(names, "表 "+table)
		}
		if property != "" {
			names = append(names, "属性 "+property)
		}
		return nil, &traversal.InvalidQueryError{Reason: "找不到匹配的节点", Seeds: names}
	}

	return seeds, nil
}

// resolveTable 表名解析，只在 Table 节点内匹配
func (r *SeedResolver) resolveTable(name string) []string {
	if ids := r.g.FindExact(graph.KindTable, name); len(ids) > 0 {
		return ids
	}
	if ids := r.g.FindSubstring(graph.KindTable, name); len(ids) > 0 {
		return ids
	}
	return r.fuzzyMatch(name, r.g.NodesByKind(graph.KindTable))
}

// resolveProperty 属性名解析，跨所有 kind 匹配（字段、脚本、值列表都可能）
func (r *SeedResolver) resolveProperty(name string) []string {
	if ids := r.g.FindExactAnyKind(name); len(ids) > 0 {
		return ids
	}
	if ids := r.g.FindSubstringAnyKind(name); len(ids) > 0 {
		return ids
	}
	var nodes []*graph.Node
	for _, id := range r.g.NodeIDs() {
		nodes = append(nodes, r.g.Node(id))
	}
	return r.fuzzyMatch(name, nodes)
}

// fuzzyMatch 取相似度最高且超过阈值的节点集合
func (r *SeedResolver) fuzzyMatch(name string, candidates []*graph.Node) []string {
	best := 0.0
	var ids []string
	for _, node := range candidates {
		score := nameSimilarity(name, node.Name)
		if score < fuzzyThreshold {
			continue
		}
		if score > best {
			best = score
			ids = []string{node.ID}
		} else if score == best {
			ids = append(ids, node.ID)
		}
	}
	return ids
}

// nameSimilarity 命名相似度：完全匹配 1.0，包含 0.8，其余用 Levenshtein 距离
func nameSimilarity(name1, name2 string) float64 {
	n1 := strings.ToLower(name1)
	n2 := strings.ToLower(name2)

	if n1 == n2 {
		return 1.0
	}
	if n1 == "" || n2 == "" {
		return 0
	}
	if strings.Contains(n1, n2) || strings.Contains(n2, n1) {
		return 0.8
	}

	maxLen := math.Max(float64(len([]rune(n1))), float64(len([]rune(n2))))
	distance := levenshtein.DistanceForStrings([]rune(n1), []rune(n2), levenshtein.DefaultOptions)
	similarity := 1.0 - float64(distance)/maxLen

	if similarity >= fuzzyThreshold {
		return similarity
	}
	return 0
}
