package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"reflect"
	"strconv"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// DefaultPath 是未显式指定 -config 时使用的配置文件位置。
const DefaultPath = "mirror.toml"

// Load 读取并解析 TOML 配置文件，同时注入默认值与校验逻辑。
// path 为空时回退到 DefaultPath，且允许该文件缺失（全部使用默认值）；
// 显式指定的文件缺失则视为错误。
func Load(path string) (*Config, error) {
	optional := path == ""
	if optional {
		path = DefaultPath
	}

	v := viper.New()
	v.SetConfigFile(path)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		missing := errors.Is(err, fs.ErrNotExist) || errors.As(err, &notFound)
		if !optional || !missing {
			return nil, fmt.Errorf("读取配置失败: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(durationDecodeHook())); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	absSite, err := filepath.Abs(cfg.Global.SiteDir)
	if err != nil {
		return nil, fmt.Errorf("无法解析镜像目录: %w", err)
	}
	cfg.Global.SiteDir = absSite

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ListenPort", 9000)
	v.SetDefault("SiteDir", "./site")
	v.SetDefault("FileList", "./filelist.txt")
	v.SetDefault("BaseURL", "https://homdgcat.wiki")
	v.SetDefault("Language", "zh")
	v.SetDefault("LogLevel", "info")
	v.SetDefault("LogFilePath", "")
	v.SetDefault("LogMaxSize", 100)
	v.SetDefault("LogMaxBackups", 10)
	v.SetDefault("LogCompress", true)
	v.SetDefault("Fetch.Workers", 10)
	v.SetDefault("Fetch.MaxRetries", 3)
	v.SetDefault("Fetch.Timeout", "30s")
	v.SetDefault("Fetch.InitialBackoff", "1s")
	v.SetDefault("Fetch.RateLimit", 0)
	v.SetDefault("Fetch.ProgressInterval", 200)
	v.SetDefault("Fetch.FailureReport", "download_failures.txt")
	v.SetDefault("Fetch.UserAgent", defaultUserAgent)
	v.SetDefault("Fetch.Referer", "")
	v.SetDefault("Serve.Engine", "auto")
	v.SetDefault("Serve.RootIndex", "index/index.html")
	v.SetDefault("Serve.CompressMinBytes", 256)
	v.SetDefault("Serve.CompressLevel", 6)
	v.SetDefault("Serve.CacheEntries", 1024)
	v.SetDefault("Serve.IdleTimeout", "60s")
}

// applyDefaults 兜底填充零值字段，保证直接构造 Config 的调用方也能拿到可用配置。
func applyDefaults(cfg *Config) {
	g := &cfg.Global
	if g.ListenPort == 0 {
		g.ListenPort = 9000
	}
	if g.Language == "" {
		g.Language = "zh"
	}
	if g.LogLevel == "" {
		g.LogLevel = "info"
	}

	f := &cfg.Fetch
	if f.Workers == 0 {
		f.Workers = 10
	}
	if f.Timeout.DurationValue() == 0 {
		f.Timeout = Duration(30 * time.Second)
	}
	if f.InitialBackoff.DurationValue() == 0 {
		f.InitialBackoff = Duration(time.Second)
	}
	if f.ProgressInterval == 0 {
		f.ProgressInterval = 200
	}
	if f.FailureReport == "" {
		f.FailureReport = "download_failures.txt"
	}
	if f.UserAgent == "" {
		f.UserAgent = defaultUserAgent
	}
	if f.Referer == "" && g.BaseURL != "" {
		f.Referer = g.Origin() + "/"
	}

	s := &cfg.Serve
	if s.Engine == "" {
		s.Engine = "auto"
	}
	if s.RootIndex == "" {
		s.RootIndex = "index/index.html"
	}
	if s.CompressLevel == 0 {
		s.CompressLevel = 6
	}
	if s.CacheEntries == 0 {
		s.CacheEntries = 1024
	}
	if s.IdleTimeout.DurationValue() == 0 {
		s.IdleTimeout = Duration(60 * time.Second)
	}
}

func durationDecodeHook() mapstructure.DecodeHookFunc {
	targetType := reflect.TypeOf(Duration(0))

	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != targetType {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			if v == "" {
				return Duration(0), nil
			}
			if parsed, err := time.ParseDuration(v); err == nil {
				return Duration(parsed), nil
			}
			if seconds, err := strconv.ParseFloat(v, 64); err == nil {
				return Duration(time.Duration(seconds * float64(time.Second))), nil
			}
			return nil, fmt.Errorf("无法解析 Duration 字段: %s", v)
		case int:
			return Duration(time.Duration(v) * time.Second), nil
		case int64:
			return Duration(time.Duration(v) * time.Second), nil
		case float64:
			return Duration(time.Duration(v * float64(time.Second))), nil
		case time.Duration:
			return Duration(v), nil
		case Duration:
			return v, nil
		default:
			return nil, fmt.Errorf("不支持的 Duration 类型: %T", v)
		}
	}
}
