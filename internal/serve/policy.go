// Package serve 将镜像目录作为静态站点重新提供：
// 路径解析、ETag/304 条件请求、gzip 压缩缓存，以及可选的两种 HTTP 引擎。
package serve

import (
	"path/filepath"
	"strings"
)

// contentTypes 按扩展名给出 Content-Type，文本类显式携带 charset。
var contentTypes = map[string]string{
	".js":    "application/javascript; charset=utf-8",
	".css":   "text/css; charset=utf-8",
	".json":  "application/json; charset=utf-8",
	".html":  "text/html; charset=utf-8",
	".png":   "image/png",
	".jpg":   "image/jpeg",
	".jpeg":  "image/jpeg",
	".gif":   "image/gif",
	".svg":   "image/svg+xml; charset=utf-8",
	".webp":  "image/webp",
	".wav":   "audio/wav",
	".woff2": "font/woff2",
	".woff":  "font/woff",
	".xml":   "application/xml; charset=utf-8",
	".txt":   "text/plain; charset=utf-8",
	".ico":   "image/x-icon",
}

const defaultContentType = "application/octet-stream"

// ContentTypeFor 返回扩展名对应的 MIME，未知类型按通用二进制处理。
func ContentTypeFor(ext string) string {
	if ct, ok := contentTypes[ext]; ok {
		return ct
	}
	return defaultContentType
}

// compressible 是值得 gzip 的文本类扩展名。
var compressible = map[string]struct{}{
	".js":   {},
	".css":  {},
	".html": {},
	".json": {},
	".svg":  {},
	".txt":  {},
	".xml":  {},
}

// Compressible 报告该扩展名是否参与 gzip 压缩与 Vary 协商。
func Compressible(ext string) bool {
	_, ok := compressible[ext]
	return ok
}

const (
	ccLongLived = "public, max-age=604800" // 图片/字体/音频，内容不变
	ccDaily     = "public, max-age=86400"  // JS/CSS，偶尔更新
	ccHourly    = "public, max-age=3600"   // 页面与数据
)

var cacheControl = map[string]string{
	".png":   ccLongLived,
	".jpg":   ccLongLived,
	".jpeg":  ccLongLived,
	".gif":   ccLongLived,
	".webp":  ccLongLived,
	".woff":  ccLongLived,
	".woff2": ccLongLived,
	".wav":   ccLongLived,
	".ico":   ccLongLived,
	".js":    ccDaily,
	".css":   ccDaily,
	".html":  ccHourly,
	".json":  ccHourly,
}

// CacheControlFor 返回扩展名对应的 Cache-Control，未知类型按一小时处理。
func CacheControlFor(ext string) string {
	if cc, ok := cacheControl[ext]; ok {
		return cc
	}
	return ccHourly
}

// ExtOf 返回小写扩展名（含点）。
func ExtOf(path string) string {
	return strings.ToLower(filepath.Ext(path))
}
