package node

import "strings"

// schemaRejectionMarkers 提供商拒绝结构化输出参数时错误信息里出现的片段；
// 同一行内的片段须同时出现
var schemaRejectionMarkers = [][]string{
	{"response_format"},
	{"json_schema"},
	{"response_schema"},
	{"unknown parameter", "response"},
	{"invalid", "response"},
}

// IsResponseFormatUnsupportedError 模型不接受 json_schema 时返回 true，调用方据此降级为纯提示词约束
func IsResponseFormatUnsupportedError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, markers := range schemaRejectionMarkers {
		if containsAll(msg, markers) {
			return true
		}
	}
	return false
}

func containsAll(s string, parts []string) bool {
	for _, p := range parts {
		if !strings.Contains(s, p) {
			return false
		}
	}
	return true
}
