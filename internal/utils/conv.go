package utils

import (
	"strconv"
)

// ParseLimit 解析分页大小，非法输入回退到默认值，并限制在 [min, max] 区间
func ParseLimit(s string, def, min, max int) int {
	limit := def
	if s != "" {
		if i, err := strconv.Atoi(s); err == nil {
			limit = i
		}
	}
	if limit < min {
		limit = min
	}
	if limit > max {
		limit = max
	}
	return limit
}

// Preview 按字符截取前 n 个字符
func Preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
