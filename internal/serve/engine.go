package serve

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Quaternijkon/HomDGCat/internal/mirror"
)

// Engine 是一次性选定的 HTTP 服务实现。
// 两个实现共享同一个 Responder，对外行为一致，仅调度方式不同。
type Engine interface {
	Name() string
	Serve(ln net.Listener) error
	Shutdown(ctx context.Context) error
}

const (
	EngineAuto   = "auto"
	EngineFiber  = "fiber"
	EngineStdlib = "stdlib"
)

// Options 汇集构建服务引擎所需的全部配置。
type Options struct {
	Engine           string
	Guard            *mirror.Guard
	RootIndex        string
	Logger           *logrus.Logger
	CompressMinBytes int64
	CompressLevel    int
	CacheEntries     int
	IdleTimeout      time.Duration
}

// New 按配置选定引擎并完成装配，auto 等价于 fiber。
// 选择只发生在这里一次，之后的每个请求不再做任何引擎分支。
func New(opts Options) (Engine, error) {
	if opts.Logger == nil {
		return nil, errors.New("logger is required")
	}

	name := opts.Engine
	if name == "" || name == EngineAuto {
		name = EngineFiber
	}
	if name != EngineFiber && name != EngineStdlib {
		return nil, fmt.Errorf("unknown serve engine: %s", opts.Engine)
	}

	resolver, err := NewResolver(opts.Guard, opts.RootIndex)
	if err != nil {
		return nil, err
	}
	cache, err := NewCompressedCache(opts.CacheEntries, opts.CompressLevel)
	if err != nil {
		return nil, err
	}
	responder, err := NewResponder(ResponderOptions{
		Resolver: resolver,
		Cache:    cache,
		Logger:   opts.Logger,
		Engine:   name,
		MinBytes: opts.CompressMinBytes,
	})
	if err != nil {
		return nil, err
	}

	if name == EngineStdlib {
		return newStdlibEngine(responder, opts.IdleTimeout), nil
	}
	return newFiberEngine(responder, opts.IdleTimeout)
}
