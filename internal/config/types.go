package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Duration 提供更灵活的反序列化能力，同时兼容纯秒整数与 Go Duration 字符串。
type Duration time.Duration

// UnmarshalText 使 Viper 可以识别诸如 "30s"、"5m" 或纯数字秒值等配置写法。
func (d *Duration) UnmarshalText(text []byte) error {
	raw := strings.TrimSpace(string(text))
	if raw == "" {
		*d = Duration(0)
		return nil
	}

	if parsed, err := time.ParseDuration(raw); err == nil {
		*d = Duration(parsed)
		return nil
	}

	if intVal, err := parseInt(raw); err == nil {
		*d = Duration(time.Duration(intVal) * time.Second)
		return nil
	}

	return fmt.Errorf("invalid duration value: %s", raw)
}

// DurationValue 返回真实的 time.Duration，便于调用方计算。
func (d Duration) DurationValue() time.Duration {
	return time.Duration(d)
}

// parseInt 支持十进制或 0x 前缀的十六进制字符串解析。
func parseInt(value string) (int64, error) {
	if strings.HasPrefix(value, "0x") || strings.HasPrefix(value, "0X") {
		return strconv.ParseInt(value, 0, 64)
	}
	return strconv.ParseInt(value, 10, 64)
}

// defaultUserAgent 模拟常见桌面浏览器，部分源站会拒绝默认 Go UA。
const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64)"

// GlobalConfig 描述下载与服务两侧共享的全局参数。
type GlobalConfig struct {
	ListenPort    int    `mapstructure:"ListenPort"`
	SiteDir       string `mapstructure:"SiteDir"`
	FileList      string `mapstructure:"FileList"`
	BaseURL       string `mapstructure:"BaseURL"`
	Language      string `mapstructure:"Language"`
	LogLevel      string `mapstructure:"LogLevel"`
	LogFilePath   string `mapstructure:"LogFilePath"`
	LogMaxSize    int    `mapstructure:"LogMaxSize"`
	LogMaxBackups int    `mapstructure:"LogMaxBackups"`
	LogCompress   bool   `mapstructure:"LogCompress"`
}

// FetchConfig 控制批量下载行为。
type FetchConfig struct {
	Workers          int      `mapstructure:"Workers"`
	MaxRetries       int      `mapstructure:"MaxRetries"`
	Timeout          Duration `mapstructure:"Timeout"`
	InitialBackoff   Duration `mapstructure:"InitialBackoff"`
	RateLimit        int64    `mapstructure:"RateLimit"`
	ProgressInterval int      `mapstructure:"ProgressInterval"`
	FailureReport    string   `mapstructure:"FailureReport"`
	UserAgent        string   `mapstructure:"UserAgent"`
	Referer          string   `mapstructure:"Referer"`
}

// ServeConfig 控制静态服务行为。
type ServeConfig struct {
	Engine           string   `mapstructure:"Engine"`
	RootIndex        string   `mapstructure:"RootIndex"`
	CompressMinBytes int64    `mapstructure:"CompressMinBytes"`
	CompressLevel    int      `mapstructure:"CompressLevel"`
	CacheEntries     int      `mapstructure:"CacheEntries"`
	IdleTimeout      Duration `mapstructure:"IdleTimeout"`
}

// Config 是 TOML 文件映射的整体结构。
type Config struct {
	Global GlobalConfig `mapstructure:",squash"`
	Fetch  FetchConfig  `mapstructure:"Fetch"`
	Serve  ServeConfig  `mapstructure:"Serve"`
}

// Origin 返回去除尾部斜杠的源站地址，作为远端请求的前缀。
func (g GlobalConfig) Origin() string {
	return strings.TrimRight(g.BaseURL, "/")
}
