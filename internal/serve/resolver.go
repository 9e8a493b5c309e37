package serve

import (
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/Quaternijkon/HomDGCat/internal/mirror"
)

// ErrNotFound 表示请求路径没有对应的本地文件。
var ErrNotFound = errors.New("no local file for request path")

// Resolver 把请求路径映射为镜像目录内的文件。
// 先试解码后的路径，再试原始路径：部分镜像文件名本身就携带百分号编码。
type Resolver struct {
	guard     *mirror.Guard
	rootIndex string
}

// NewResolver 构建解析器；rootIndex 是根路径对应的站内文件（如 index/index.html）。
func NewResolver(guard *mirror.Guard, rootIndex string) (*Resolver, error) {
	if guard == nil {
		return nil, errors.New("mirror guard required")
	}
	if rootIndex == "" {
		return nil, errors.New("root index required")
	}
	return &Resolver{guard: guard, rootIndex: rootIndex}, nil
}

// Resolve 将原始请求路径（保留百分号编码，不含查询串）解析为本地文件。
// 候选路径越界一律视为未找到，不向上层暴露内部错误。
func (r *Resolver) Resolve(rawPath string) (string, error) {
	decoded, err := url.PathUnescape(rawPath)
	if err != nil {
		decoded = rawPath
	}
	candidates := []string{decoded}
	if rawPath != decoded {
		candidates = append(candidates, rawPath)
	}

	for _, candidate := range candidates {
		stripped := strings.TrimLeft(candidate, "/")
		if stripped == "" {
			target, err := r.guard.Resolve(r.rootIndex)
			if err != nil {
				return "", ErrNotFound
			}
			if isRegularFile(target) {
				return target, nil
			}
			continue
		}

		target, err := r.guard.Resolve(stripped)
		if err != nil {
			// 任一候选越界立即终止，不再回退尝试另一种拼写
			return "", ErrNotFound
		}
		if isRegularFile(target) {
			return target, nil
		}
		index := filepath.Join(target, "index.html")
		if isRegularFile(index) {
			return index, nil
		}
	}
	return "", ErrNotFound
}

func isRegularFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
