package main

import (
	"fmt"
	"log"
	"os"

	"ddr-analyzer/internal/adapter"
	"ddr-analyzer/internal/ai"
	"ddr-analyzer/internal/analyzer"
	"ddr-analyzer/internal/graph"
	"ddr-analyzer/internal/importer"
	"ddr-analyzer/internal/renderer"

	"github.com/spf13/cobra"
)

var (
	ddrPath   string
	tableName string
	propName  string
	question  string
	maxHops   int
	budget    int
	enableAI  bool
	aiAPIKey  string

	sourceType string
	connStr    string
	dbSchema   string
	outputDir  string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "ddr-analyzer",
		Short: "FileMaker DDR 结构分析器",
		Long:  "解析 FileMaker DDR 导出，构建结构图，检索相关上下文并辅助排查脚本问题",
	}

	queryCmd := &cobra.Command{
		Use:   "query",
		Short: "对 DDR 结构图提问",
		Run:   runQuery,
	}
	queryCmd.Flags().StringVar(&ddrPath, "ddr", "", "DDR XML 文件路径")
	queryCmd.Flags().StringVar(&tableName, "table", "", "聚焦的表名（可选）")
	queryCmd.Flags().StringVar(&propName, "property", "", "聚焦的属性名（可选）")
	queryCmd.Flags().StringVar(&question, "question", "", "关于数据库的问题")
	queryCmd.Flags().IntVar(&maxHops, "max-hops", analyzer.DefaultMaxHops, "遍历跳数上限（负数只返回种子）")
	queryCmd.Flags().IntVar(&budget, "budget", analyzer.DefaultBudget, "上下文字符预算（负数不限制）")
	queryCmd.Flags().BoolVar(&enableAI, "enable-ai", false, "启用 AI 回答（需要 API Key）")
	queryCmd.Flags().StringVar(&aiAPIKey, "ai-key", "", "AI API Key（或使用环境变量 OPENAI_API_KEY）")
	queryCmd.MarkFlagRequired("ddr")
	queryCmd.MarkFlagRequired("question")

	scanCmd := &cobra.Command{
		Use:   "scan",
		Short: "扫描结构并生成数据字典和 ER 图",
		Run:   runScan,
	}
	scanCmd.Flags().StringVar(&ddrPath, "ddr", "", "DDR XML 文件路径")
	scanCmd.Flags().StringVar(&sourceType, "type", "", "活数据库类型 (mysql/sqlserver)，与 --ddr 二选一")
	scanCmd.Flags().StringVar(&connStr, "conn", "", "数据库连接字符串")
	scanCmd.Flags().StringVar(&dbSchema, "schema", "", "数据库 schema (MySQL 必需)")
	scanCmd.Flags().StringVar(&outputDir, "output", "./output", "输出目录")

	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(scanCmd)

	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

func runQuery(cmd *cobra.Command, args []string) {
	g := loadDDR(ddrPath)

	var aiClient ai.Client
	if enableAI {
		apiKey := aiAPIKey
		if apiKey == "" {
			apiKey = os.Getenv("OPENAI_API_KEY")
		}
		if apiKey == "" {
			log.Fatal("启用 AI 需要 --ai-key 或环境变量 OPENAI_API_KEY")
		}
		aiClient = ai.NewOpenAIClient(apiKey)
	}

	engine := analyzer.NewQueryEngine(g, aiClient)

	fmt.Println("\n🔎 检索相关上下文...")
	answer, err := engine.Run(analyzer.Query{
		Question: question,
		Table:    tableName,
		Property: propName,
		MaxHops:  maxHops,
		Budget:   budget,
	})
	if err != nil {
		log.Fatalf("查询失败: %v", err)
	}

	fmt.Printf("✓ 种子节点 %d 个, 上下文片段 %d 个", len(answer.Seeds), len(answer.Bundle.Fragments))
	if answer.Bundle.Dropped > 0 {
		fmt.Printf(" (预算丢弃 %d 个)", answer.Bundle.Dropped)
	}
	fmt.Println()

	if aiClient == nil {
		fmt.Println("\n上下文:")
		fmt.Println(answer.Context)
		return
	}

	fmt.Println("\n分析结果:")
	fmt.Println("--------------------------------------------------------------------------------")
	fmt.Println(answer.Response)
	fmt.Println("--------------------------------------------------------------------------------")
}

func runScan(cmd *cobra.Command, args []string) {
	var g *graph.Graph

	switch {
	case ddrPath != "":
		g = loadDDR(ddrPath)
	case sourceType != "":
		g = loadLiveDatabase()
	default:
		log.Fatal("需要指定 --ddr 或者 --type/--conn")
	}

	fmt.Println("\n📝 生成输出文件...")
	os.MkdirAll(outputDir, 0755)

	jsonData, err := g.ToJSON()
	if err != nil {
		log.Fatalf("导出 JSON 失败: %v", err)
	}
	os.WriteFile(fmt.Sprintf("%s/graph.json", outputDir), jsonData, 0644)
	fmt.Printf("✓ %s/graph.json\n", outputDir)

	mdRenderer := renderer.NewMarkdownRenderer()
	os.WriteFile(fmt.Sprintf("%s/dict.md", outputDir), []byte(mdRenderer.Render(g)), 0644)
	fmt.Printf("✓ %s/dict.md\n", outputDir)

	mermaidRenderer := renderer.NewMermaidRenderer()
	os.WriteFile(fmt.Sprintf("%s/er.mmd", outputDir), []byte(mermaidRenderer.Render(g)), 0644)
	fmt.Printf("✓ %s/er.mmd\n", outputDir)

	fmt.Println("\n✅ 扫描完成！")
}

// loadDDR 读取并导入 DDR 文件
func loadDDR(path string) *graph.Graph {
	fmt.Printf("🔍 解析 DDR 文件 %s...\n", path)

	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("读取文件失败: %v", err)
	}

	g, warnings, err := importer.Import(data)
	if err != nil {
		log.Fatalf("导入失败: %v", err)
	}

	fmt.Printf("✓ 图构建完成: %d 个节点, %d 条边", g.NodeCount(), g.EdgeCount())
	if len(warnings) > 0 {
		fmt.Printf(", %d 条告警", len(warnings))
	}
	fmt.Println()

	return g
}

// loadLiveDatabase 从活数据库内省结构
func loadLiveDatabase() *graph.Graph {
	fmt.Println("🔍 连接数据库...")

	var source adapter.SchemaSource
	var err error

	switch sourceType {
	case "mysql":
		if dbSchema == "" {
			log.Fatal("MySQL 需要指定 --schema 参数")
		}
		source, err = adapter.NewMySQLSource(connStr, dbSchema)
	case "sqlserver":
		source, err = adapter.NewSQLServerSource(connStr)
	default:
		log.Fatalf("不支持的数据库类型: %s", sourceType)
	}
	if err != nil {
		log.Fatalf("连接数据库失败: %v", err)
	}
	defer source.Close()

	fmt.Println("✓ 数据库连接成功")

	meta, err := source.IntrospectSchema()
	if err != nil {
		log.Fatalf("获取元数据失败: %v", err)
	}
	fmt.Printf("✓ 发现 %d 个表\n", len(meta.Tables))

	fks, err := source.ForeignKeys()
	if err != nil {
		log.Printf("获取外键失败: %v", err)
	}

	g := adapter.BuildGraph(meta, fks)
	fmt.Printf("✓ 图构建完成: %d 个节点, %d 条边\n", g.NodeCount(), g.EdgeCount())

	return g
}
