package serve

import (
	"io"
	"net/http"
	"os"
	"path/filepath"
	"reflect"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

var etagPattern = regexp.MustCompile(`^"[0-9a-f]+-[0-9a-f]+"$`)

func newTestResponder(t *testing.T, files map[string]string) (*Responder, *CompressedCache, string) {
	t.Helper()
	guard, root := newSiteRoot(t, files)
	resolver, err := NewResolver(guard, "index/index.html")
	if err != nil {
		t.Fatalf("resolver failed: %v", err)
	}
	cache, err := NewCompressedCache(64, 6)
	if err != nil {
		t.Fatalf("cache failed: %v", err)
	}
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	responder, err := NewResponder(ResponderOptions{
		Resolver: resolver,
		Cache:    cache,
		Logger:   logger,
		Engine:   "test",
		MinBytes: 256,
	})
	if err != nil {
		t.Fatalf("responder failed: %v", err)
	}
	return responder, cache, root
}

func TestRespondSmallFileUncompressed(t *testing.T) {
	content := "<html>hi</html>"
	responder, _, _ := newTestResponder(t, map[string]string{"page.html": content})

	resp := responder.Respond(Request{Method: "GET", RawPath: "/page.html", AcceptEncoding: "gzip"})

	if resp.Status != http.StatusOK {
		t.Fatalf("status = %d", resp.Status)
	}
	if got := resp.Header("Content-Type"); got != "text/html; charset=utf-8" {
		t.Fatalf("content type = %q", got)
	}
	if resp.ContentLength != len(content) {
		t.Fatalf("content length = %d, want %d", resp.ContentLength, len(content))
	}
	if string(resp.Body) != content {
		t.Fatalf("body = %q", resp.Body)
	}
	if got := resp.Header("Content-Encoding"); got != "" {
		t.Fatalf("small file must not be compressed, got %q", got)
	}
	if !etagPattern.MatchString(resp.Header("ETag")) {
		t.Fatalf("etag format: %q", resp.Header("ETag"))
	}
	if got := resp.Header("Cache-Control"); got != "public, max-age=3600" {
		t.Fatalf("cache control = %q", got)
	}
	if _, err := http.ParseTime(resp.Header("Last-Modified")); err != nil {
		t.Fatalf("last modified unparsable: %v", err)
	}
	if got := resp.Header("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("cors header = %q", got)
	}
}

func TestRespondCompressesEligibleFile(t *testing.T) {
	content := strings.Repeat("var x = 1;\n", 40)
	responder, _, _ := newTestResponder(t, map[string]string{"assets/app.js": content})

	resp := responder.Respond(Request{Method: "GET", RawPath: "/assets/app.js", AcceptEncoding: "gzip, br"})

	if resp.Status != http.StatusOK {
		t.Fatalf("status = %d", resp.Status)
	}
	if got := resp.Header("Content-Encoding"); got != "gzip" {
		t.Fatalf("content encoding = %q", got)
	}
	if got := resp.Header("Vary"); got != "Accept-Encoding" {
		t.Fatalf("vary = %q", got)
	}
	if resp.ContentLength != len(resp.Body) {
		t.Fatalf("content length %d != body %d", resp.ContentLength, len(resp.Body))
	}
	if resp.ContentLength >= len(content) {
		t.Fatalf("repetitive js should shrink: %d >= %d", resp.ContentLength, len(content))
	}
	if got := gunzip(t, resp.Body); string(got) != content {
		t.Fatalf("gunzip mismatch")
	}
	if got := resp.Header("Cache-Control"); got != "public, max-age=86400" {
		t.Fatalf("cache control = %q", got)
	}
}

func TestRespondSkipsCompressionWithoutAcceptEncoding(t *testing.T) {
	content := strings.Repeat("var x = 1;\n", 40)
	responder, _, _ := newTestResponder(t, map[string]string{"assets/app.js": content})

	resp := responder.Respond(Request{Method: "GET", RawPath: "/assets/app.js"})

	if got := resp.Header("Content-Encoding"); got != "" {
		t.Fatalf("must not compress without accept-encoding, got %q", got)
	}
	if string(resp.Body) != content {
		t.Fatalf("body mismatch")
	}
}

func TestRespondSkipsCompressionForBinary(t *testing.T) {
	content := strings.Repeat("P", 1024)
	responder, _, _ := newTestResponder(t, map[string]string{"img/logo.png": content})

	resp := responder.Respond(Request{Method: "GET", RawPath: "/img/logo.png", AcceptEncoding: "gzip"})

	if got := resp.Header("Content-Encoding"); got != "" {
		t.Fatalf("binary ext must not compress, got %q", got)
	}
	if got := resp.Header("Content-Type"); got != "image/png" {
		t.Fatalf("content type = %q", got)
	}
	if got := resp.Header("Cache-Control"); got != "public, max-age=604800" {
		t.Fatalf("cache control = %q", got)
	}
	if got := resp.Header("Vary"); got != "" {
		t.Fatalf("binary ext must not vary, got %q", got)
	}
}

func TestRespondConditionalRoundTrip(t *testing.T) {
	responder, _, _ := newTestResponder(t, map[string]string{"page.html": "<html>etag</html>"})

	first := responder.Respond(Request{Method: "GET", RawPath: "/page.html"})
	etag := first.Header("ETag")
	if etag == "" {
		t.Fatalf("missing etag")
	}

	second := responder.Respond(Request{Method: "GET", RawPath: "/page.html", IfNoneMatch: etag})
	if second.Status != http.StatusNotModified {
		t.Fatalf("status = %d", second.Status)
	}
	if len(second.Body) != 0 {
		t.Fatalf("304 must not carry a body")
	}
	if second.Header("ETag") != etag {
		t.Fatalf("304 etag = %q", second.Header("ETag"))
	}
	if second.Header("Cache-Control") == "" || second.Header("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("304 headers incomplete: %+v", second.Headers)
	}
	if second.Header("Vary") != "Accept-Encoding" {
		t.Fatalf("compressible ext should vary on 304: %+v", second.Headers)
	}
	if second.Header("Content-Type") != "" {
		t.Fatalf("304 must not set content type")
	}
}

func TestRespondConditionalListAndMismatch(t *testing.T) {
	responder, _, _ := newTestResponder(t, map[string]string{"page.html": "<html>list</html>"})

	etag := responder.Respond(Request{Method: "GET", RawPath: "/page.html"}).Header("ETag")

	listed := responder.Respond(Request{
		Method:      "GET",
		RawPath:     "/page.html",
		IfNoneMatch: `"stale", ` + etag + ` , "other"`,
	})
	if listed.Status != http.StatusNotModified {
		t.Fatalf("listed etag should match, status = %d", listed.Status)
	}

	mismatch := responder.Respond(Request{Method: "GET", RawPath: "/page.html", IfNoneMatch: `"stale"`})
	if mismatch.Status != http.StatusOK {
		t.Fatalf("mismatch should serve content, status = %d", mismatch.Status)
	}
}

func TestRespondHeadMatchesGet(t *testing.T) {
	files := map[string]string{
		"page.html":     "<html>head</html>",
		"assets/app.js": strings.Repeat("var x = 1;\n", 40),
	}
	responder, _, _ := newTestResponder(t, files)

	for _, path := range []string{"/page.html", "/assets/app.js"} {
		get := responder.Respond(Request{Method: "GET", RawPath: path, AcceptEncoding: "gzip"})
		head := responder.Respond(Request{Method: "HEAD", RawPath: path, AcceptEncoding: "gzip"})

		if head.Status != get.Status || head.ContentLength != get.ContentLength {
			t.Fatalf("%s: head status/length diverges: %d/%d vs %d/%d",
				path, head.Status, head.ContentLength, get.Status, get.ContentLength)
		}
		if !reflect.DeepEqual(head.Headers, get.Headers) {
			t.Fatalf("%s: head headers diverge:\n%+v\n%+v", path, head.Headers, get.Headers)
		}
		if len(head.Body) != 0 {
			t.Fatalf("%s: head must not carry a body", path)
		}
		if len(get.Body) == 0 {
			t.Fatalf("%s: get must carry a body", path)
		}
	}
}

func TestRespondNotFound(t *testing.T) {
	responder, _, _ := newTestResponder(t, nil)

	for _, path := range []string{"/missing.html", "/../etc/passwd", "/%2e%2e/x"} {
		resp := responder.Respond(Request{Method: "GET", RawPath: path})
		if resp.Status != http.StatusNotFound {
			t.Fatalf("%s: status = %d", path, resp.Status)
		}
		if len(resp.Body) != 0 || len(resp.Headers) != 0 {
			t.Fatalf("%s: 404 should be bare: %+v", path, resp)
		}
	}
}

func TestRespondReadFailureReturns500(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root 不受文件权限约束")
	}

	files := map[string]string{
		"page.html":     "<html>locked</html>",
		"assets/app.js": strings.Repeat("var x = 1;\n", 40),
	}
	responder, _, root := newTestResponder(t, files)
	for rel := range files {
		if err := os.Chmod(filepath.Join(root, filepath.FromSlash(rel)), 0o000); err != nil {
			t.Fatalf("chmod failed: %v", err)
		}
	}

	// 小 html 走未压缩读取，大 js 加 gzip 走压缩缓存加载，两条路径都要降级
	for _, tc := range []struct {
		path   string
		accept string
	}{
		{path: "/page.html"},
		{path: "/assets/app.js", accept: "gzip"},
	} {
		resp := responder.Respond(Request{Method: "GET", RawPath: tc.path, AcceptEncoding: tc.accept})
		if resp.Status != http.StatusInternalServerError {
			t.Fatalf("%s: status = %d", tc.path, resp.Status)
		}
		if len(resp.Body) != 0 || len(resp.Headers) != 0 {
			t.Fatalf("%s: 500 should be bare: %+v", tc.path, resp)
		}
	}
}

func TestRespondETagTracksFileVersion(t *testing.T) {
	responder, _, root := newTestResponder(t, map[string]string{"page.html": "<html>v1</html>"})
	target := filepath.Join(root, "page.html")

	t1 := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	if err := os.Chtimes(target, t1, t1); err != nil {
		t.Fatalf("chtimes failed: %v", err)
	}
	etag1 := responder.Respond(Request{Method: "GET", RawPath: "/page.html"}).Header("ETag")

	t2 := t1.Add(2 * time.Second)
	if err := os.Chtimes(target, t2, t2); err != nil {
		t.Fatalf("chtimes failed: %v", err)
	}
	resp := responder.Respond(Request{Method: "GET", RawPath: "/page.html", IfNoneMatch: etag1})

	if resp.Status != http.StatusOK {
		t.Fatalf("stale etag must not short-circuit, status = %d", resp.Status)
	}
	if resp.Header("ETag") == etag1 {
		t.Fatalf("etag should change with mtime")
	}
	if lm, err := http.ParseTime(resp.Header("Last-Modified")); err != nil || !lm.Equal(t2) {
		t.Fatalf("last modified = %q, want %v", resp.Header("Last-Modified"), t2)
	}
}

func TestRespondPopulatesCompressedCache(t *testing.T) {
	responder, cache, _ := newTestResponder(t, map[string]string{
		"assets/app.js": strings.Repeat("var x = 1;\n", 40),
	})

	responder.Respond(Request{Method: "GET", RawPath: "/assets/app.js", AcceptEncoding: "gzip"})
	if cache.Len() != 1 {
		t.Fatalf("first gzip response should cache, len = %d", cache.Len())
	}
	responder.Respond(Request{Method: "GET", RawPath: "/assets/app.js", AcceptEncoding: "gzip"})
	if cache.Len() != 1 {
		t.Fatalf("second response should reuse entry, len = %d", cache.Len())
	}
}

func TestRespondUnknownExtensionDefaults(t *testing.T) {
	responder, _, _ := newTestResponder(t, map[string]string{"data/blob.bin": "\x00\x01\x02"})

	resp := responder.Respond(Request{Method: "GET", RawPath: "/data/blob.bin"})
	if got := resp.Header("Content-Type"); got != "application/octet-stream" {
		t.Fatalf("content type = %q", got)
	}
	if got := resp.Header("Cache-Control"); got != "public, max-age=3600" {
		t.Fatalf("cache control = %q", got)
	}
}
