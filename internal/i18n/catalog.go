// Package i18n 提供 CLI 输出的双语消息表。
// 语言来自显式配置，核心引擎不感知语言状态。
package i18n

import "fmt"

// Catalog 按配置选定的语言查找消息文本。
type Catalog struct {
	lang string
}

// New 创建消息目录；未知语言回退到中文。
func New(lang string) *Catalog {
	if _, ok := messages[lang]; !ok {
		lang = "zh"
	}
	return &Catalog{lang: lang}
}

// Lang 返回生效的语言代码。
func (c *Catalog) Lang() string {
	return c.lang
}

// T 返回 key 对应的文本；找不到时原样返回 key，方便暴露遗漏。
func (c *Catalog) T(key string) string {
	if text, ok := messages[c.lang][key]; ok {
		return text
	}
	if text, ok := messages["zh"][key]; ok {
		return text
	}
	return key
}

// Tf 是 T 加 fmt.Sprintf 的便捷形式。
func (c *Catalog) Tf(key string, args ...interface{}) string {
	return fmt.Sprintf(c.T(key), args...)
}

var messages = map[string]map[string]string{
	"zh": {
		"manifest.missing":      "错误: 找不到文件列表 %s",
		"manifest.hint":         "请先准备文件清单，或在配置中指向正确路径。",
		"download.title":        "  HomDGCat Wiki 镜像下载",
		"download.filelist":     "  文件列表: %d 个",
		"download.existing":     "  已存在:   %d 个",
		"download.pending":      "  待下载:   %d 个",
		"download.workers":      "  并发数:   %d",
		"download.retries":      "  重试次数: %d",
		"download.nothing":      "\n所有文件已存在，无需下载。",
		"download.progress":     "  [%d/%d] 成功: %d  404: %d  失败: %d  速度: %.0f KB/s",
		"download.done":         "  下载完成! 耗时 %.0f 秒",
		"download.new":          "  新增: %d (%.1f MB)",
		"download.notfound":     "  404:  %d",
		"download.failed":       "  失败: %d",
		"download.report_saved": "  失败列表已保存到 %s",
		"serve.title":           "  HomDGCat Wiki 本地服务器",
		"serve.no_site":         "错误: %s 目录不存在，请先运行 download 命令。",
		"serve.engine":          "  引擎:   %s",
		"serve.addr":            "  地址:   %s",
		"serve.stop":            "  按 Ctrl+C 停止",
		"serve.stopped":         "\n服务器已停止。",
		"status.title":          "  HomDGCat Wiki 镜像状态",
		"status.filelist":       "  文件列表: %d 个",
		"status.downloaded":     "  已下载:   %d (%.1f MB)",
		"status.missing":        "  缺失:     %d",
		"status.progress":       "  完成度:   %.1f%%",
		"status.categories":     "\n  缺失分类:",
		"usage.text": `HomDGCat Wiki 完整镜像工具

用法: homdgcat-mirror [全局选项] <命令> [命令选项]

命令:
  download    下载所有缺失文件
                -w/-workers N   并发下载数
                -r/-retry N     失败重试次数
  serve       启动本地 HTTP 服务器
                -p/-port N      监听端口
                -engine NAME    服务引擎 (fiber|stdlib)
  status      查看下载进度

全局选项:
  -config PATH    配置文件路径 (默认 mirror.toml)
  -lang zh|en     覆盖显示语言
  -check-config   仅校验配置后退出
  -version        显示版本信息`,
	},
	"en": {
		"manifest.missing":      "Error: file list not found: %s",
		"manifest.hint":         "Prepare the file list first, or point the config at the right path.",
		"download.title":        "  HomDGCat Wiki Mirror Download",
		"download.filelist":     "  File list:  %d",
		"download.existing":     "  Existing:   %d",
		"download.pending":      "  Pending:    %d",
		"download.workers":      "  Workers:    %d",
		"download.retries":      "  Retries:    %d",
		"download.nothing":      "\nAll files already exist, nothing to download.",
		"download.progress":     "  [%d/%d] OK: %d  404: %d  Failed: %d  Speed: %.0f KB/s",
		"download.done":         "  Done! Elapsed %.0fs",
		"download.new":          "  New:    %d (%.1f MB)",
		"download.notfound":     "  404:    %d",
		"download.failed":       "  Failed: %d",
		"download.report_saved": "  Failure list saved to %s",
		"serve.title":           "  HomDGCat Wiki Local Server",
		"serve.no_site":         "Error: %s not found. Run the download command first.",
		"serve.engine":          "  Engine:   %s",
		"serve.addr":            "  Address:  %s",
		"serve.stop":            "  Press Ctrl+C to stop",
		"serve.stopped":         "\nServer stopped.",
		"status.title":          "  HomDGCat Wiki Mirror Status",
		"status.filelist":       "  File list:   %d",
		"status.downloaded":     "  Downloaded:  %d (%.1f MB)",
		"status.missing":        "  Missing:     %d",
		"status.progress":       "  Progress:    %.1f%%",
		"status.categories":     "\n  Missing by category:",
		"usage.text": `HomDGCat Wiki complete mirror tool

Usage: homdgcat-mirror [global options] <command> [command options]

Commands:
  download    Download all missing files
                -w/-workers N   concurrent downloads
                -r/-retry N     retry count
  serve       Start the local HTTP server
                -p/-port N      listen port
                -engine NAME    serve engine (fiber|stdlib)
  status      Show download progress

Global options:
  -config PATH    config file path (default mirror.toml)
  -lang zh|en     override display language
  -check-config   validate config and exit
  -version        print version info`,
	},
}
