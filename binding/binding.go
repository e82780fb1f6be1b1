package binding

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var exprPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Interpolate 将文本中的 ${path.to.value} 替换为 data 中的值。
// 占位符可带默认值 ${path|默认值}，路径不存在时使用默认值；
// 没有默认值且路径不存在（或 data 为空）时保留原占位符。
func Interpolate(text string, data any) string {
	return exprPattern.ReplaceAllStringFunc(text, func(match string) string {
		inner := match[2 : len(match)-1]
		path, fallback, hasFallback := strings.Cut(inner, "|")
		if val, ok := Lookup(data, path); ok && val != nil {
			return fmt.Sprint(val)
		}
		if hasFallback {
			return fallback
		}
		return match
	})
}

// Lookup 返回 data 中 path 处的值。路径段以 . 分隔，数组下标既可写作
// items[1] 也可写作 items.1。
func Lookup(data any, path string) (any, bool) {
	path = strings.TrimSpace(path)
	if data == nil || path == "" {
		return nil, false
	}
	current := data
	for _, key := range splitPath(path) {
		next, ok := descend(current, key)
		if !ok {
			return nil, false
		}
		current = next
	}
	return current, true
}

// splitPath 把 a.b[0][1] 拆成 ["a", "b", "0", "1"]。
func splitPath(path string) []string {
	path = strings.NewReplacer("[", ".", "]", "").Replace(path)
	var keys []string
	for _, k := range strings.Split(path, ".") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

func descend(current any, key string) (any, bool) {
	switch c := current.(type) {
	case map[string]any:
		val, ok := c[key]
		return val, ok
	case map[string]string:
		val, ok := c[key]
		return val, ok
	case []any:
		return index(c, key)
	case []string:
		return index(c, key)
	default:
		return nil, false
	}
}

func index[T any](items []T, key string) (any, bool) {
	i, err := strconv.Atoi(key)
	if err != nil || i < 0 || i >= len(items) {
		return nil, false
	}
	return items[i], true
}
