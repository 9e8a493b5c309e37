package mirror

import (
	"fmt"
	"strings"
)

// indexSuffix 是目录页在本地的落盘文件名。
// 源站按目录 URL 提供这些页面（如 /sr/char/1001/），请求时需去掉文件名。
const indexSuffix = "/index.html"

// RequestPath 将清单条目转换为源站请求路径（带前导斜杠）。
func RequestPath(entry string) string {
	p := "/" + strings.TrimPrefix(entry, "/")
	if strings.HasSuffix(p, indexSuffix) {
		p = strings.TrimSuffix(p, "index.html")
	}
	return p
}

// safePathBytes 是请求路径中无需转义的保留字符集合。
// `%` 保留是为了不二次转义清单中本就携带百分号编码的文件名。
const safePathBytes = "/:@!$&'()*+,;=-._~%"

// EncodePath 对请求路径做百分号编码，安全字符原样保留。
func EncodePath(p string) string {
	var b strings.Builder
	b.Grow(len(p))
	for i := 0; i < len(p); i++ {
		c := p[i]
		if isAlnum(c) || strings.IndexByte(safePathBytes, c) >= 0 {
			b.WriteByte(c)
			continue
		}
		fmt.Fprintf(&b, "%%%02X", c)
	}
	return b.String()
}

func isAlnum(c byte) bool {
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9')
}

// RemoteURL 拼出某条清单条目的完整下载地址。
func RemoteURL(origin, entry string) string {
	return strings.TrimRight(origin, "/") + EncodePath(RequestPath(entry))
}
