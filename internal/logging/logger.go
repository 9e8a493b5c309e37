// Package logging 初始化全局唯一的 logrus 实例。
// 所有组件通过注入共享同一个 logger，输出统一为 JSON 行。
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/Quaternijkon/HomDGCat/internal/config"
)

// InitLogger 构建 JSON 结构化日志。
// 配置了 LogFilePath 时写入滚动文件；路径不可用时降级到 stdout 并告警，
// 下载或服务流程不因日志落盘问题中断。
func InitLogger(cfg config.GlobalConfig) (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("无法解析日志级别: %w", err)
	}

	logger := logrus.New()
	logger.SetLevel(level)
	logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	logger.SetOutput(os.Stdout)

	if cfg.LogFilePath == "" {
		return logger, nil
	}

	rotator, err := newRotator(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger_fallback: %v\n", err)
		logger.WithFields(logrus.Fields{
			"action": "logger_fallback",
			"path":   cfg.LogFilePath,
		}).Warn(err.Error())
		return logger, nil
	}
	logger.SetOutput(rotator)
	return logger, nil
}

// newRotator 创建滚动日志文件；目录无法创建时报错，由调用方降级。
func newRotator(cfg config.GlobalConfig) (*lumberjack.Logger, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.LogFilePath), 0o755); err != nil {
		return nil, fmt.Errorf("创建日志目录失败: %w", err)
	}
	return &lumberjack.Logger{
		Filename:   cfg.LogFilePath,
		MaxSize:    cfg.LogMaxSize,
		MaxBackups: cfg.LogMaxBackups,
		Compress:   cfg.LogCompress,
		LocalTime:  true,
	}, nil
}
