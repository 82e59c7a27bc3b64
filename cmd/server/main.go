package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"ddr-analyzer/internal/ai"
	"ddr-analyzer/internal/analyzer"
	"ddr-analyzer/internal/importer"
	"ddr-analyzer/internal/renderer"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // 允许跨域
	},
}

// AnalysisRequest 分析请求
type AnalysisRequest struct {
	DDRPath  string `json:"ddr_path"` // DDR XML 文件路径
	Question string `json:"question"` // 问题
	Table    string `json:"table"`    // 聚焦的表名（可选）
	Property string `json:"property"` // 聚焦的属性名（可选）
	MaxHops  int    `json:"max_hops"` // 遍历跳数上限
	Budget   int    `json:"budget"`   // 上下文字符预算
	EnableAI bool   `json:"enable_ai"`
	APIKey   string `json:"api_key"`
}

// AnalysisTask 分析任务
type AnalysisTask struct {
	ID        string
	Request   AnalysisRequest
	Status    string // pending/running/completed/failed
	Progress  int    // 0-100
	Message   string
	Result    *AnalysisResult
	CreatedAt time.Time
	UpdatedAt time.Time
}

// AnalysisResult 分析结果
type AnalysisResult struct {
	Seeds    []string       `json:"seeds"`
	Context  string         `json:"context"`
	Response string         `json:"response"`
	DictMD   string         `json:"dict_md"`
	Stats    map[string]int `json:"stats"`
}

var (
	tasks   = make(map[string]*AnalysisTask)
	tasksMu sync.RWMutex
)

func main() {
	// 静态文件
	http.Handle("/", http.FileServer(http.Dir("web/static")))

	// API 路由
	http.HandleFunc("/api/analyze", handleAnalyze)
	http.HandleFunc("/api/task/", handleTaskStatus)
	http.HandleFunc("/api/ws", handleWebSocket)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	fmt.Printf("🚀 DDR Analyzer Web Server\n")
	fmt.Printf("📡 服务地址: http://localhost:%s\n\n", port)

	log.Fatal(http.ListenAndServe(":"+port, nil))
}

// handleAnalyze 处理分析请求
func handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req AnalysisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	taskID := fmt.Sprintf("task_%d", time.Now().UnixNano())
	task := &AnalysisTask{
		ID:        taskID,
		Request:   req,
		Status:    "pending",
		Progress:  0,
		Message:   "任务已创建，等待执行...",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	tasksMu.Lock()
	tasks[taskID] = task
	tasksMu.Unlock()

	// 异步执行分析
	go runAnalysis(task)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"task_id": taskID,
		"status":  "pending",
	})
}

// handleTaskStatus 查询任务状态
func handleTaskStatus(w http.ResponseWriter, r *http.Request) {
	taskID := filepath.Base(r.URL.Path)

	snap, exists := taskSnapshot(taskID)
	if !exists {
		http.Error(w, "Task not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(snap)
}

// handleWebSocket WebSocket 连接，持续推送任务状态
func handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("WebSocket upgrade error:", err)
		return
	}
	defer conn.Close()

	taskID := r.URL.Query().Get("task_id")
	if taskID == "" {
		return
	}

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for range ticker.C {
		snap, exists := taskSnapshot(taskID)
		if !exists {
			break
		}

		if err := conn.WriteJSON(snap); err != nil {
			break
		}

		if snap.Status == "completed" || snap.Status == "failed" {
			break
		}
	}
}

// taskSnapshot 在锁内拷贝任务状态。序列化必须基于快照，
// 直接序列化共享的任务指针会和 runAnalysis 的写入竞争
func taskSnapshot(taskID string) (AnalysisTask, bool) {
	tasksMu.RLock()
	defer tasksMu.RUnlock()
	task, exists := tasks[taskID]
	if !exists {
		return AnalysisTask{}, false
	}
	return *task, true
}

// updateTask 在锁内更新任务状态
func updateTask(task *AnalysisTask, status string, progress int, message string) {
	tasksMu.Lock()
	task.Status = status
	task.Progress = progress
	task.Message = message
	task.UpdatedAt = time.Now()
	tasksMu.Unlock()
}

// runAnalysis 执行分析
func runAnalysis(task *AnalysisTask) {
	req := task.Request

	updateTask(task, "running", 10, "正在读取 DDR 文件...")

	data, err := os.ReadFile(req.DDRPath)
	if err != nil {
		updateTask(task, "failed", 10, fmt.Sprintf("读取文件失败: %v", err))
		return
	}

	updateTask(task, "running", 30, "解析 DDR，构建结构图...")

	g, warnings, err := importer.Import(data)
	if err != nil {
		updateTask(task, "failed", 30, fmt.Sprintf("导入失败: %v", err))
		return
	}

	updateTask(task, "running", 60, fmt.Sprintf("图构建完成（%d 节点 / %d 边），检索上下文...",
		g.NodeCount(), g.EdgeCount()))

	var aiClient ai.Client
	if req.EnableAI && req.APIKey != "" {
		aiClient = ai.NewOpenAIClient(req.APIKey)
	}

	engine := analyzer.NewQueryEngine(g, aiClient)
	answer, err := engine.Run(analyzer.Query{
		Question: req.Question,
		Table:    req.Table,
		Property: req.Property,
		MaxHops:  req.MaxHops,
		Budget:   req.Budget,
	})
	if err != nil {
		updateTask(task, "failed", 60, fmt.Sprintf("查询失败: %v", err))
		return
	}

	updateTask(task, "running", 90, "生成输出...")

	mdRenderer := renderer.NewMarkdownRenderer()

	result := &AnalysisResult{
		Seeds:    answer.Seeds,
		Context:  answer.Context,
		Response: answer.Response,
		DictMD:   mdRenderer.Render(g),
		Stats: map[string]int{
			"nodes":     g.NodeCount(),
			"edges":     g.EdgeCount(),
			"warnings":  len(warnings),
			"seeds":     len(answer.Seeds),
			"fragments": len(answer.Bundle.Fragments),
			"dropped":   answer.Bundle.Dropped,
		},
	}

	tasksMu.Lock()
	task.Result = result
	tasksMu.Unlock()

	updateTask(task, "completed", 100, "分析完成！")
}
