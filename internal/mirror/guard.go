// Package mirror 描述镜像目录的布局：本地目标路径、远端请求地址，
// 以及两侧共用的路径越界防护。
package mirror

import (
	"errors"
	"io/fs"
	"path/filepath"
	"strings"
)

// ErrTraversal 表示候选路径解析后落在镜像根目录之外。
var ErrTraversal = errors.New("path escapes mirror root")

// Guard 固定一个镜像根目录，校验任意候选相对路径的落点。
// 方法无共享可变状态，可并发调用。
type Guard struct {
	root string
}

// NewGuard 绑定根目录；目录存在时按真实路径（展开符号链接）记录。
func NewGuard(root string) (*Guard, error) {
	if root == "" {
		return nil, errors.New("mirror root required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if real, err := filepath.EvalSymlinks(abs); err == nil {
		abs = real
	}
	return &Guard{root: abs}, nil
}

// Root 返回绑定的绝对根目录。
func (g *Guard) Root() string {
	return g.root
}

// Resolve 将相对路径落到根目录下并确认未越界。
// `..` 逃逸、符号链接逃逸以及系统级解析错误一律返回 ErrTraversal，
// 调用方在任何文件 I/O 前必须先通过本方法。
func (g *Guard) Resolve(rel string) (string, error) {
	if strings.ContainsRune(rel, 0) {
		return "", ErrTraversal
	}

	candidate := filepath.Join(g.root, filepath.FromSlash(strings.TrimPrefix(rel, "/")))
	back, err := filepath.Rel(g.root, candidate)
	if err != nil {
		return "", ErrTraversal
	}
	if back == ".." || strings.HasPrefix(back, ".."+string(filepath.Separator)) {
		return "", ErrTraversal
	}

	if err := g.checkRealPath(candidate); err != nil {
		return "", err
	}
	return candidate, nil
}

// checkRealPath 对最深的已存在祖先展开符号链接，确认真实落点仍在根内。
// 目标尚未下载时祖先可能全部缺失，此时只依赖上面的词法校验。
func (g *Guard) checkRealPath(candidate string) error {
	probe := candidate
	for {
		if probe == g.root {
			return nil
		}
		real, err := filepath.EvalSymlinks(probe)
		if err == nil {
			if real == g.root || strings.HasPrefix(real, g.root+string(filepath.Separator)) {
				return nil
			}
			return ErrTraversal
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return ErrTraversal
		}
		parent := filepath.Dir(probe)
		if parent == probe {
			return nil
		}
		probe = parent
	}
}
