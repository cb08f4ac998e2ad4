package transform

import (
	"strconv"
	"strings"
)

// Params 转换参数，非法值一律回退到默认值
type Params map[string]string

// Raw 返回原始值，允许空字符串
func (p Params) Raw(key string) (string, bool) {
	v, ok := p[key]
	return v, ok
}

// String 返回非空字符串参数，否则返回默认值
func (p Params) String(key, def string) string {
	if v, ok := p[key]; ok && v != "" {
		return v
	}
	return def
}

// Int 返回 [min, max] 范围内的整数参数
func (p Params) Int(key string, def, min, max int) int {
	v, ok := p[key]
	if !ok {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n < min || n > max {
		return def
	}
	return n
}

// Choice 返回允许值之一
func (p Params) Choice(key, def string, allowed ...string) string {
	v := strings.ToLower(strings.TrimSpace(p[key]))
	for _, a := range allowed {
		if v == a {
			return v
		}
	}
	return def
}
