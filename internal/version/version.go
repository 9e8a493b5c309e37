// Package version 保存构建期注入的版本元数据。
package version

import "fmt"

// 发布构建通过 -ldflags "-X" 覆盖这三个值，开发构建保持占位符。
var (
	Version = "0.1.0"
	Commit  = "dev"
	Date    = ""
)

// Full 拼出 CLI 展示用的一行版本串，发布构建附带构建日期。
func Full() string {
	s := fmt.Sprintf("homdgcat-mirror %s (%s)", Version, Commit)
	if Date != "" {
		s += " built " + Date
	}
	return s
}
