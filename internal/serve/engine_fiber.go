package serve

import (
	"context"
	"net"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/google/uuid"
)

// fiberEngine 以 fasthttp 事件驱动模型提供加速路径。
type fiberEngine struct {
	app *fiber.App
}

func newFiberEngine(responder *Responder, idleTimeout time.Duration) (*fiberEngine, error) {
	app := fiber.New(fiber.Config{
		CaseSensitive: true,
		IdleTimeout:   idleTimeout,
	})

	app.Use(recover.New())
	app.Use(requestIDMiddleware())

	app.All("/*", func(c fiber.Ctx) error {
		method := c.Method()
		if method != fiber.MethodGet && method != fiber.MethodHead {
			c.Status(fiber.StatusMethodNotAllowed)
			return nil
		}

		resp := responder.Respond(Request{
			Method:         method,
			RawPath:        string(c.Request().URI().PathOriginal()),
			IfNoneMatch:    c.Get(fiber.HeaderIfNoneMatch),
			AcceptEncoding: c.Get(fiber.HeaderAcceptEncoding),
		})

		for _, h := range resp.Headers {
			c.Set(h.Key, h.Value)
		}
		c.Status(resp.Status)
		if resp.Status == fiber.StatusOK {
			c.Response().Header.SetContentLength(resp.ContentLength)
		}
		if method == fiber.MethodHead {
			c.Response().SkipBody = true
			return nil
		}
		if len(resp.Body) > 0 {
			return c.Send(resp.Body)
		}
		return nil
	})

	return &fiberEngine{app: app}, nil
}

// requestIDMiddleware 为每个响应附加请求标识，便于对照访问日志。
func requestIDMiddleware() fiber.Handler {
	return func(c fiber.Ctx) error {
		c.Set("X-Request-ID", uuid.NewString())
		return c.Next()
	}
}

func (e *fiberEngine) Name() string {
	return EngineFiber
}

func (e *fiberEngine) Serve(ln net.Listener) error {
	return e.app.Listener(ln)
}

func (e *fiberEngine) Shutdown(ctx context.Context) error {
	return e.app.ShutdownWithContext(ctx)
}
