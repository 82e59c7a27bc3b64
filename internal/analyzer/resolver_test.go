package analyzer

import (
	"errors"
	"testing"

	"ddr-analyzer/internal/graph"
	"ddr-analyzer/internal/traversal"
)

func buildResolverGraph(t *testing.T) *graph.Graph {
	t.Helper()
	g := graph.NewGraph()

	nodes := []*graph.Node{
		{ID: "T1", Kind: graph.KindTable, Name: "Customers"},
		{ID: "T2", Kind: graph.KindTable, Name: "CustomerOrders"},
		{ID: "S1", Kind: graph.KindScript, Name: "Customers"}, // 与表重名，kind 不同
		{ID: "F1", Kind: graph.KindField, Name: "Email"},
	}
	for _, n := range nodes {
		if err := g.AddNode(n); err != nil {
			t.Fatalf("AddNode: %v", err)
		}
	}
	g.Freeze()
	return g
}

func TestResolveTable(t *testing.T) {
	g := buildResolverGraph(t)
	r := NewSeedResolver(g)

	tests := []struct {
		name  string
		table string
		wants []string
	}{
		{"exact", "Customers", []string{"T1"}}, // 脚本 Customers 不进表查询
		{"case_insensitive", "customers", []string{"T1"}},
		{"substring", "Orders", []string{"T2"}},
		{"fuzzy", "Custoemrs", []string{"T1"}}, // 拼写错误走 Levenshtein
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seeds, err := r.Resolve(tt.table, "")
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			if len(seeds) != len(tt.wants) {
				t.Fatalf("expected %v, got %v", tt.wants, seeds)
			}
			for i := range seeds {
				if seeds[i] != tt.wants[i] {
					t.Errorf("expected %v, got %v", tt.wants, seeds)
				}
			}
		})
	}
}

func TestResolvePropertyAcrossKinds(t *testing.T) {
	g := buildResolverGraph(t)
	r := NewSeedResolver(g)

	// 属性名跨 kind 匹配：表和脚本都叫 Customers
	seeds, err := r.Resolve("", "Customers")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(seeds) != 2 {
		t.Errorf("expected 2 seeds across kinds, got %v", seeds)
	}
}

func TestResolveUnionDedup(t *testing.T) {
	g := buildResolverGraph(t)
	r := NewSeedResolver(g)

	// 表名和属性名都命中 T1：并集去重
	seeds, err := r.Resolve("Customers", "Customers")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	seen := make(map[string]bool)
	for _, seed := range seeds {
		if seen[seed] {
			t.Errorf("duplicate seed %s in %v", seed, seeds)
		}
		seen[seed] = true
	}
}

func TestResolveNotFound(t *testing.T) {
	g := buildResolverGraph(t)
	r := NewSeedResolver(g)

	tests := []struct {
		name     string
		table    string
		property string
	}{
		{"no_input", "", ""},
		{"no_match", "ZZZZZZZZ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Resolve(tt.table, tt.property)
			var invalidErr *traversal.InvalidQueryError
			if !errors.As(err, &invalidErr) {
				t.Errorf("expected InvalidQueryError, got %v", err)
			}
		})
	}
}

func TestNameSimilarity(t *testing.T) {
	tests := []struct {
		name1    string
		name2    string
		expected float64
		minScore float64
	}{
		{"Customers", "Customers", 1.0, 1.0},
		{"Customers", "customers", 1.0, 1.0},
		{"CustomerOrders", "Orders", 0.8, 0.8},
		{"Customers", "Custoemrs", 0.0, 0.7},
		{"Customers", "Invoices", 0.0, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name1+"_"+tt.name2, func(t *testing.T) {
			score := nameSimilarity(tt.name1, tt.name2)
			if tt.expected > 0 {
				if score != tt.expected {
					t.Errorf("expected %f, got %f", tt.expected, score)
				}
			} else if tt.minScore > 0 {
				if score < tt.minScore {
					t.Errorf("expected >= %f, got %f", tt.minScore, score)
				}
			} else {
				if score != 0 {
					t.Errorf("expected 0, got %f", score)
				}
			}
		})
	}
}
