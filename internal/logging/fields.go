package logging

import "github.com/sirupsen/logrus"

// BaseFields 构建 action + 配置路径等基础字段，便于不同入口复用。
func BaseFields(action, configPath string) logrus.Fields {
	return logrus.Fields{
		"action":     action,
		"configPath": configPath,
	}
}

// FetchFields 提供单个下载条目的通用字段，供抓取日志复用。
func FetchFields(path, url string, attempt int) logrus.Fields {
	return logrus.Fields{
		"path":    path,
		"url":     url,
		"attempt": attempt,
	}
}

// ServeFields 提供请求路径/状态/引擎字段，供静态服务日志复用。
func ServeFields(path string, status int, engine string, cacheHit bool) logrus.Fields {
	return logrus.Fields{
		"path":      path,
		"status":    status,
		"engine":    engine,
		"cache_hit": cacheHit,
	}
}
