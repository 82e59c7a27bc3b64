package analyzer

import (
	"log"

	"ddr-analyzer/internal/ai"
	"ddr-analyzer/internal/assembler"
	"ddr-analyzer/internal/graph"
	"ddr-analyzer/internal/traversal"
)

const (
	// DefaultMaxHops 默认跳数预算
	DefaultMaxHops = 3
	// DefaultBudget 默认上下文字符预算
	DefaultBudget = 8000
)

// Query 一次查询的输入。Question 原样传给推理协作方，核心不解析。
// MaxHops 和 Budget 的 0 表示未设置、取默认值；显式的最小语义用负值表达：
// MaxHops < 0 只返回种子本身，Budget < 0 不限预算
type Query struct {
	Question string `json:"question"`
	Table    string `json:"table"`
	Property string `json:"property"`
	MaxHops  int    `json:"max_hops"`
	Budget   int    `json:"budget"`
}

// Answer 查询结果
type Answer struct {
	Question string            `json:"question"`
	Seeds    []string          `json:"seeds"`
	Bundle   *assembler.Bundle `json:"bundle"`
	Context  string            `json:"context"`
	Response string            `json:"response"` // AI 回答，未启用 AI 时为空
}

// QueryEngine 查询编排：解析种子 → BFS 近邻 + DFS 执行链 → 装配上下文 → 调用 AI。
// 不持有跨查询状态，同一个图上的多个查询可以并发执行
type QueryEngine struct {
	g         *graph.Graph
	resolver  *SeedResolver
	engine    *traversal.Engine
	assembler *assembler.Assembler
	aiClient  ai.Client // 可选
}

// NewQueryEngine 创建查询编排器。aiClient 为 nil 时只产出上下文不调用 AI
func NewQueryEngine(g *graph.Graph, aiClient ai.Client) *QueryEngine {
	return &QueryEngine{
		g:         g,
		resolver:  NewSeedResolver(g),
		engine:    traversal.NewEngine(g),
		assembler: assembler.New(g),
		aiClient:  aiClient,
	}
}

// Run 执行一次查询。
// BFS 提供"什么和它有关"的近邻上下文，DFS 提供"它会触发什么"的执行链上下文，
// 两者合并为一个上下文包
func (q *QueryEngine) Run(query Query) (*Answer, error) {
	seeds, err := q.resolver.Resolve(query.Table, query.Property)
	if err != nil {
		return nil, err
	}

	// 0 = 未设置取默认；负值透传给下游：遍历端把负跳数归一化为 0（只看种子），
	// 装配端把负预算当作不限制
	maxHops := query.MaxHops
	if maxHops == 0 {
		maxHops = DefaultMaxHops
	}
	budget := query.Budget
	if budget == 0 {
		budget = DefaultBudget
	}

	opts := traversal.Options{MaxHops: maxHops}
	bfsResult, err := q.engine.BFS(seeds, opts)
	if err != nil {
		return nil, err
	}
	dfsResult, err := q.engine.DFS(seeds, opts)
	if err != nil {
		return nil, err
	}

	bundle := q.assembler.Assemble(bfsResult, dfsResult, budget)
	answer := &Answer{
		Question: query.Question,
		Seeds:    seeds,
		Bundle:   bundle,
		Context:  bundle.Text(),
	}

	if q.aiClient != nil {
		log.Printf("查询: %d 个种子, 上下文 %d 个片段, 调用 AI", len(seeds), len(bundle.Fragments))
		response, err := q.aiClient.Analyze(query.Question, answer.Context)
		if err != nil {
			return nil, err
		}
		answer.Response = response
	}

	return answer, nil
}
