package importer

import "fmt"

// ParseError 文档格式错误，导入直接失败
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("DDR 文档解析失败: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// SchemaError 结构性告警（悬空引用、重复 id 等）。
// 非致命：对应的边或节点被跳过，导入继续（容忍不完整的真实导出）
type SchemaError struct {
	ElementID string `json:"element_id"`
	Message   string `json:"message"`
}

func (e *SchemaError) Error() string {
	if e.ElementID == "" {
		return e.Message
	}
	return fmt.Sprintf("%s (元素 %s)", e.Message, e.ElementID)
}
