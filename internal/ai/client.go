package ai

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Client AI 客户端接口。核心只负责交付上下文和问题，
// 提示词格式和网络调用都在这个边界之外
type Client interface {
	// Analyze 基于结构上下文回答问题
	Analyze(question, context string) (string, error)
}

// OpenAIClient OpenAI 客户端
type OpenAIClient struct {
	apiKey     string
	endpoint   string
	model      string
	httpClient *http.Client
}

// NewOpenAIClient 创建 OpenAI 客户端
func NewOpenAIClient(apiKey string) *OpenAIClient {
	return &OpenAIClient{
		apiKey:     apiKey,
		endpoint:   "https://api.openai.com/v1/chat/completions",
		model:      "gpt-4-turbo-preview",
		httpClient: &http.Client{},
	}
}

// Analyze 把上下文包和原始问题组装成一个提示词并调用模型
func (c *OpenAIClient) Analyze(question, context string) (string, error) {
	prompt := fmt.Sprintf(`你正在分析一个 FileMaker 数据库结构。基于以下数据库结构和关系的上下文，回答这个问题: %s

上下文:
%s

请分析上下文并给出详细回答，重点关注哪些脚本可能导致问题，尤其是修改表或创建记录的脚本。如果发现可疑脚本，解释它为什么可能引起问题。`, question, context)

	return c.callAPI(prompt)
}

// callAPI 调用 chat completions API
func (c *OpenAIClient) callAPI(prompt string) (string, error) {
	requestBody := map[string]interface{}{
		"model": c.model,
		"messages": []map[string]string{
			{
				"role":    "system",
				"content": "你是 FileMaker 数据库专家，帮助排查脚本和数据写入的问题。",
			},
			{
				"role":    "user",
				"content": prompt,
			},
		},
		"temperature": 0.7,
	}

	jsonData, err := json.Marshal(requestBody)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequest("POST", c.endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API 调用失败: %s, 响应: %s", resp.Status, string(body))
	}

	var apiResp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}

	if err := json.Unmarshal(body, &apiResp); err != nil {
		return "", fmt.Errorf("解析响应失败: %v", err)
	}

	if len(apiResp.Choices) == 0 {
		return "", fmt.Errorf("API 返回空响应")
	}

	return apiResp.Choices[0].Message.Content, nil
}
