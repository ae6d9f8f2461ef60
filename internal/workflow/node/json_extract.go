package node

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrEmptyResponse 模型返回空内容
var ErrEmptyResponse = errors.New("empty llm response")

// ExtractJSONObject 尝试从模型输出中截取“第一个完整 JSON 对象/数组”。
// 模型可能在 JSON 前后夹杂说明文字或 markdown 代码块。
func ExtractJSONObject(s string) string {
	raw := StripCodeFence(s)
	if raw == "" {
		return raw
	}

	objStart := strings.Index(raw, "{")
	arrStart := strings.Index(raw, "[")
	start := -1
	end := -1
	switch {
	case objStart >= 0 && (arrStart < 0 || objStart < arrStart):
		start = objStart
		end = strings.LastIndex(raw, "}")
	case arrStart >= 0:
		start = arrStart
		end = strings.LastIndex(raw, "]")
	}
	if start >= 0 && end > start {
		raw = raw[start : end+1]
	}

	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	tok, err := dec.Token()
	if err == nil {
		if d, ok := tok.(json.Delim); ok && (d == '{' || d == '[') {
			return raw
		}
	}

	// 兜底：整段可被完整消费时原样返回
	dec = json.NewDecoder(strings.NewReader(raw))
	for {
		_, e := dec.Token()
		if e != nil {
			if errors.Is(e, io.EOF) {
				break
			}
			return strings.TrimSpace(s)
		}
	}
	return raw
}

// DecodeJSONObject 截取并解析模型输出中的 JSON 对象
func DecodeJSONObject(content string, v any) error {
	if strings.TrimSpace(content) == "" {
		return ErrEmptyResponse
	}
	raw := ExtractJSONObject(content)
	if !strings.HasPrefix(raw, "{") {
		return fmt.Errorf("llm output is not a json object")
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("decode llm json: %w", err)
	}
	return nil
}

// StripCodeFence 去掉 ```json ... ``` 包裹
func StripCodeFence(s string) string {
	raw := strings.TrimSpace(s)
	if !strings.HasPrefix(raw, "```") {
		return raw
	}
	raw = strings.TrimPrefix(raw, "```")
	if i := strings.Index(raw, "\n"); i >= 0 {
		raw = raw[i+1:]
	} else {
		raw = ""
	}
	if j := strings.LastIndex(raw, "```"); j >= 0 {
		raw = raw[:j]
	}
	return strings.TrimSpace(raw)
}
