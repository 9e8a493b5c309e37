package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var supportedEngines = map[string]struct{}{
	"auto":   {},
	"fiber":  {},
	"stdlib": {},
}

var supportedLanguages = map[string]struct{}{
	"zh": {},
	"en": {},
}

// Validate 针对语义级别做进一步校验，防止非法配置启动服务。
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("配置为空")
	}

	g := c.Global
	if g.ListenPort <= 0 || g.ListenPort > 65535 {
		return FieldError{Field: "ListenPort", Value: g.ListenPort, Reason: "必须在 1-65535"}
	}
	if g.SiteDir == "" {
		return FieldError{Field: "SiteDir", Reason: "不能为空"}
	}
	if g.FileList == "" {
		return FieldError{Field: "FileList", Reason: "不能为空"}
	}
	if err := validateBaseURL(g.BaseURL); err != nil {
		return fmt.Errorf("BaseURL: %w", err)
	}
	lang := strings.ToLower(strings.TrimSpace(g.Language))
	if _, ok := supportedLanguages[lang]; !ok {
		return FieldError{Field: "Language", Value: g.Language, Reason: "仅支持 zh/en"}
	}
	c.Global.Language = lang

	f := c.Fetch
	if f.Workers <= 0 {
		return FieldError{Field: "Fetch.Workers", Value: f.Workers, Reason: "必须大于 0"}
	}
	if f.MaxRetries < 0 {
		return FieldError{Field: "Fetch.MaxRetries", Value: f.MaxRetries, Reason: "不能为负数"}
	}
	if f.Timeout.DurationValue() <= 0 {
		return FieldError{Field: "Fetch.Timeout", Value: f.Timeout.DurationValue(), Reason: "必须大于 0"}
	}
	if f.InitialBackoff.DurationValue() <= 0 {
		return FieldError{Field: "Fetch.InitialBackoff", Value: f.InitialBackoff.DurationValue(), Reason: "必须大于 0"}
	}
	if f.RateLimit < 0 {
		return FieldError{Field: "Fetch.RateLimit", Value: f.RateLimit, Reason: "不能为负数"}
	}
	if f.ProgressInterval <= 0 {
		return FieldError{Field: "Fetch.ProgressInterval", Value: f.ProgressInterval, Reason: "必须大于 0"}
	}

	s := c.Serve
	engine := strings.ToLower(strings.TrimSpace(s.Engine))
	if _, ok := supportedEngines[engine]; !ok {
		return FieldError{Field: "Serve.Engine", Value: s.Engine, Reason: "仅支持 auto/fiber/stdlib"}
	}
	c.Serve.Engine = engine
	if err := validateRootIndex(s.RootIndex); err != nil {
		return fmt.Errorf("Serve.RootIndex: %w", err)
	}
	if s.CompressMinBytes < 0 {
		return FieldError{Field: "Serve.CompressMinBytes", Value: s.CompressMinBytes, Reason: "不能为负数"}
	}
	if s.CompressLevel < 1 || s.CompressLevel > 9 {
		return FieldError{Field: "Serve.CompressLevel", Value: s.CompressLevel, Reason: "必须在 1-9"}
	}
	if s.CacheEntries <= 0 {
		return FieldError{Field: "Serve.CacheEntries", Value: s.CacheEntries, Reason: "必须大于 0"}
	}
	if s.IdleTimeout.DurationValue() <= 0 {
		return FieldError{Field: "Serve.IdleTimeout", Value: s.IdleTimeout.DurationValue(), Reason: "必须大于 0"}
	}

	return nil
}

func validateBaseURL(raw string) error {
	if raw == "" {
		return errors.New("缺少源站地址")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("仅支持 http/https，源站: %s", raw)
	}
	if parsed.Host == "" {
		return fmt.Errorf("源站缺少 Host: %s", raw)
	}
	return nil
}

func validateRootIndex(raw string) error {
	if raw == "" {
		return errors.New("不能为空")
	}
	if strings.HasPrefix(raw, "/") {
		return errors.New("必须是相对路径")
	}
	for _, seg := range strings.Split(raw, "/") {
		if seg == ".." {
			return errors.New("不允许包含 .. 片段")
		}
	}
	return nil
}
