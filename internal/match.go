package internal

import (
	"fmt"
	"path"
	"regexp"
)

// KeyMatcher 编译一个 key 匹配函数 供 search 使用
// regex=false 时按 glob（path.Match 语法）匹配 否则按正则
func KeyMatcher(pattern string, regex bool) (func(string) bool, error) {
	if pattern == "" {
		return func(string) bool { return true }, nil
	}

	if regex {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("compile pattern %q failed: %w", pattern, err)
		}
		return re.MatchString, nil
	}

	// 先试编译一次 把坏 pattern 在进入迭代前暴露出来
	if _, err := path.Match(pattern, ""); err != nil {
		return nil, fmt.Errorf("bad glob pattern %q: %w", pattern, err)
	}
	return func(key string) bool {
		ok, err := path.Match(pattern, key)
		return err == nil && ok
	}, nil
}
