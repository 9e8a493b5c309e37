package mirror

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestGuard(t *testing.T) (*Guard, string) {
	t.Helper()
	root := t.TempDir()
	guard, err := NewGuard(root)
	if err != nil {
		t.Fatalf("NewGuard 失败: %v", err)
	}
	return guard, guard.Root()
}

func TestResolveKeepsPathInsideRoot(t *testing.T) {
	guard, root := newTestGuard(t)

	got, err := guard.Resolve("AR/item_.html")
	if err != nil {
		t.Fatalf("Resolve 返回错误: %v", err)
	}
	want := filepath.Join(root, "AR", "item_.html")
	if got != want {
		t.Fatalf("解析结果不符: got %s want %s", got, want)
	}
}

func TestResolveRejectsDotDotEscape(t *testing.T) {
	guard, _ := newTestGuard(t)

	for _, rel := range []string{
		"../outside.txt",
		"../../etc/passwd",
		"a/../../../etc/passwd",
		"..",
	} {
		if _, err := guard.Resolve(rel); !errors.Is(err, ErrTraversal) {
			t.Fatalf("%q 应被拒绝, err=%v", rel, err)
		}
	}
}

func TestResolveAllowsInternalDotDot(t *testing.T) {
	guard, root := newTestGuard(t)

	got, err := guard.Resolve("a/b/../c.html")
	if err != nil {
		t.Fatalf("目录内的 .. 不应被拒绝: %v", err)
	}
	if got != filepath.Join(root, "a", "c.html") {
		t.Fatalf("解析结果不符: %s", got)
	}
}

func TestResolveRejectsSymlinkEscape(t *testing.T) {
	guard, root := newTestGuard(t)

	outside := t.TempDir()
	link := filepath.Join(root, "evil")
	if err := os.Symlink(outside, link); err != nil {
		t.Skipf("无法创建符号链接: %v", err)
	}

	if _, err := guard.Resolve("evil/secret.txt"); !errors.Is(err, ErrTraversal) {
		t.Fatalf("经符号链接逃逸应被拒绝, err=%v", err)
	}
}

func TestResolveAllowsSymlinkInsideRoot(t *testing.T) {
	guard, root := newTestGuard(t)

	realDir := filepath.Join(root, "real")
	if err := os.MkdirAll(realDir, 0o755); err != nil {
		t.Fatalf("创建目录失败: %v", err)
	}
	link := filepath.Join(root, "alias")
	if err := os.Symlink(realDir, link); err != nil {
		t.Skipf("无法创建符号链接: %v", err)
	}

	if _, err := guard.Resolve("alias/page.html"); err != nil {
		t.Fatalf("根内符号链接不应被拒绝: %v", err)
	}
}

func TestResolveWorksBeforeRootExists(t *testing.T) {
	parent := t.TempDir()
	guard, err := NewGuard(filepath.Join(parent, "site"))
	if err != nil {
		t.Fatalf("NewGuard 失败: %v", err)
	}

	got, err := guard.Resolve("gi/char/1001/index.html")
	if err != nil {
		t.Fatalf("根目录未创建时 Resolve 不应失败: %v", err)
	}
	if !strings.HasPrefix(got, guard.Root()) {
		t.Fatalf("解析结果应位于根内: %s", got)
	}
}
