package serve

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// stdlibEngine 是 net/http 的保底实现，每连接一个 goroutine。
type stdlibEngine struct {
	server *http.Server
}

func newStdlibEngine(responder *Responder, idleTimeout time.Duration) *stdlibEngine {
	// 单路由直接挂 HandlerFunc。ServeMux 会对 .. 路径先发 301，
	// 这里必须让原始路径抵达守卫。
	handler := func(w http.ResponseWriter, r *http.Request) {
		// 请求标识先于方法检查，405 也要携带，与 fiber 中间件行为对齐
		h := w.Header()
		h.Set("X-Request-ID", uuid.NewString())
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		resp := responder.Respond(Request{
			Method:         r.Method,
			RawPath:        r.URL.EscapedPath(),
			IfNoneMatch:    r.Header.Get("If-None-Match"),
			AcceptEncoding: r.Header.Get("Accept-Encoding"),
		})

		for _, hd := range resp.Headers {
			h.Set(hd.Key, hd.Value)
		}
		// HEAD 不写主体，长度必须显式给出才能与 GET 一致
		if resp.Status == http.StatusOK {
			h.Set("Content-Length", strconv.Itoa(resp.ContentLength))
		}
		w.WriteHeader(resp.Status)
		if len(resp.Body) > 0 {
			_, _ = w.Write(resp.Body)
		}
	}

	return &stdlibEngine{
		server: &http.Server{
			Handler:           http.HandlerFunc(handler),
			ReadHeaderTimeout: 10 * time.Second,
			WriteTimeout:      0,
			IdleTimeout:       idleTimeout,
		},
	}
}

func (e *stdlibEngine) Name() string {
	return EngineStdlib
}

func (e *stdlibEngine) Serve(ln net.Listener) error {
	if err := e.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (e *stdlibEngine) Shutdown(ctx context.Context) error {
	return e.server.Shutdown(ctx)
}
