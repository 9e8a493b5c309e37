// Package manifest 解析镜像文件清单。
// 清单是 UTF-8 文本，每行一个相对路径，支持空行与 # 注释。
package manifest

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Entry 表示清单中的一个目标相对路径，始终使用正斜杠分隔。
type Entry string

func (e Entry) String() string {
	return string(e)
}

// Load 从清单文件读取目标路径列表。
func Load(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("读取文件清单失败: %w", err)
	}
	defer f.Close()

	entries, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("解析文件清单失败: %w", err)
	}
	return entries, nil
}

// Parse 逐行解析清单内容，保持首次出现的顺序并去重。
func Parse(r io.Reader) ([]Entry, error) {
	scanner := bufio.NewScanner(r)
	seen := make(map[Entry]struct{})
	var entries []Entry

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		entry := Entry(strings.TrimPrefix(line, "/"))
		if _, dup := seen[entry]; dup {
			continue
		}
		seen[entry] = struct{}{}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}
