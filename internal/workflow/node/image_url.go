package node

import (
	"net/url"
	"strings"
)

// IsResolvableImageURL 判断图片地址是否可用：http(s) 绝对地址或 data:image URI
func IsResolvableImageURL(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	if strings.HasPrefix(s, "data:image/") {
		return strings.Contains(s, ",")
	}
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
