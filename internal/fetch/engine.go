// Package fetch 实现有界并发的镜像下载引擎：
// 工作池从清单拉取条目，带重试与指数退避，临时文件加原子重命名落盘。
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/Quaternijkon/HomDGCat/internal/logging"
	"github.com/Quaternijkon/HomDGCat/internal/manifest"
	"github.com/Quaternijkon/HomDGCat/internal/mirror"
)

// chunkSize 是流式落盘的读写块大小。
const chunkSize = 64 * 1024

// tempSuffix 标记尚未完成的下载，重命名之前读者永远看不到目标文件。
const tempSuffix = ".tmp"

// Options 汇集 Engine 的依赖与参数。
type Options struct {
	Guard          *mirror.Guard
	Origin         string
	Client         *http.Client
	Logger         *logrus.Logger
	UserAgent      string
	Referer        string
	Workers        int
	MaxRetries     int
	InitialBackoff time.Duration
	RateLimit      int64
}

// Engine 按固定并发把清单条目镜像到本地目录。
// 单个条目的副作用只涉及它自己的临时/目标文件，条目之间互不影响。
type Engine struct {
	guard          *mirror.Guard
	origin         string
	client         *http.Client
	logger         *logrus.Logger
	limiter        *rate.Limiter
	userAgent      string
	referer        string
	workers        int
	attempts       int
	initialBackoff time.Duration
}

// NewEngine 校验依赖并构建下载引擎。
func NewEngine(opts Options) (*Engine, error) {
	if opts.Guard == nil {
		return nil, errors.New("mirror guard required")
	}
	if opts.Origin == "" {
		return nil, errors.New("origin required")
	}
	if opts.Client == nil {
		return nil, errors.New("http client required")
	}
	if opts.Logger == nil {
		return nil, errors.New("logger required")
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = 1
	}
	attempts := opts.MaxRetries
	if attempts < 1 {
		attempts = 1
	}
	backoff := opts.InitialBackoff
	if backoff <= 0 {
		backoff = time.Second
	}

	var limiter *rate.Limiter
	if opts.RateLimit > 0 {
		burst := int(opts.RateLimit)
		if burst < chunkSize {
			burst = chunkSize
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}

	return &Engine{
		guard:          opts.Guard,
		origin:         opts.Origin,
		client:         opts.Client,
		logger:         opts.Logger,
		limiter:        limiter,
		userAgent:      opts.UserAgent,
		referer:        opts.Referer,
		workers:        workers,
		attempts:       attempts,
		initialBackoff: backoff,
	}, nil
}

// Run 启动工作池处理全部条目，结果按完成顺序送出。
// 返回的通道在所有条目处理完毕后关闭。
func (e *Engine) Run(ctx context.Context, entries []manifest.Entry) <-chan Result {
	jobs := make(chan manifest.Entry)
	results := make(chan Result, e.workers)

	var wg sync.WaitGroup
	for i := 0; i < e.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for entry := range jobs {
				results <- Result{Entry: entry, Outcome: e.fetchOne(ctx, entry)}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, entry := range entries {
			select {
			case jobs <- entry:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	return results
}

// fetchOne 处理单个条目。任何文件 I/O 之前必须先通过路径防护。
func (e *Engine) fetchOne(ctx context.Context, entry manifest.Entry) Outcome {
	target, err := e.guard.Resolve(entry.String())
	if err != nil {
		e.logger.WithFields(logrus.Fields{
			"action": "fetch_blocked",
			"path":   entry.String(),
		}).Warn(err.Error())
		return failed(FailTraversalBlocked, err.Error())
	}

	if info, err := os.Stat(target); err == nil && !info.IsDir() && info.Size() > 0 {
		return Outcome{Kind: OutcomeAlreadyPresent}
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return failed(FailTransportError, err.Error())
	}

	url := mirror.RemoteURL(e.origin, entry.String())
	tempPath := target + tempSuffix

	var lastErr error
	for attempt := 0; attempt < e.attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(e.initialBackoff << (attempt - 1)):
			case <-ctx.Done():
				return failed(FailTransportError, ctx.Err().Error())
			}
		}

		outcome, retry, err := e.attempt(ctx, url, tempPath, target)
		if !retry {
			e.logOutcome(entry, url, attempt+1, outcome)
			return outcome
		}
		lastErr = err
		e.logger.WithFields(logging.FetchFields(entry.String(), url, attempt+1)).
			WithField("action", "fetch_retry").Warn(err.Error())
	}

	outcome := failed(FailExhaustedRetries, lastErr.Error())
	e.logOutcome(entry, url, e.attempts, outcome)
	return outcome
}

// attempt 执行一次完整的 GET 尝试。
// retry 为 true 表示可以退避后再试；否则 outcome 即最终结局。
func (e *Engine) attempt(ctx context.Context, url, tempPath, target string) (outcome Outcome, retry bool, attemptErr error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return failed(FailTransportError, err.Error()), false, nil
	}
	req.Header.Set("User-Agent", e.userAgent)
	req.Header.Set("Referer", e.referer)

	resp, err := e.client.Do(req)
	if err != nil {
		return Outcome{}, true, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return failed(FailNotFound, "404"), false, nil
	case resp.StatusCode != http.StatusOK:
		return Outcome{}, true, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	written, err := e.writeTemp(ctx, tempPath, resp.Body)
	if err != nil {
		os.Remove(tempPath)
		return Outcome{}, true, err
	}
	if written == 0 {
		os.Remove(tempPath)
		return failed(FailEmptyBody, "empty response body"), false, nil
	}

	if err := os.Rename(tempPath, target); err != nil {
		os.Remove(tempPath)
		return failed(FailTransportError, err.Error()), false, nil
	}
	if modTime := extractModTime(resp.Header); !modTime.IsZero() {
		_ = os.Chtimes(target, modTime, modTime)
	}
	return Outcome{Kind: OutcomeFetched, Bytes: written}, false, nil
}

// writeTemp 将响应体流式写入临时文件，避免整段缓冲到内存。
func (e *Engine) writeTemp(ctx context.Context, path string, body io.Reader) (int64, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, err
	}
	written, err := e.copyWithContext(ctx, f, body)
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	return written, err
}

func (e *Engine) copyWithContext(ctx context.Context, dst io.Writer, src io.Reader) (int64, error) {
	var copied int64
	buf := make([]byte, chunkSize)
	for {
		if err := ctx.Err(); err != nil {
			return copied, err
		}
		n, err := src.Read(buf)
		if n > 0 {
			if e.limiter != nil {
				if waitErr := e.limiter.WaitN(ctx, n); waitErr != nil {
					return copied, waitErr
				}
			}
			w, wErr := dst.Write(buf[:n])
			copied += int64(w)
			if wErr != nil {
				return copied, wErr
			}
			if w < n {
				return copied, io.ErrShortWrite
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return copied, nil
			}
			return copied, err
		}
	}
}

func (e *Engine) logOutcome(entry manifest.Entry, url string, attempts int, outcome Outcome) {
	fields := logging.FetchFields(entry.String(), url, attempts)
	switch outcome.Kind {
	case OutcomeFetched:
		e.logger.WithFields(fields).WithFields(logrus.Fields{
			"action": "fetch_complete",
			"bytes":  outcome.Bytes,
		}).Debug("fetched")
	case OutcomeFailed:
		e.logger.WithFields(fields).WithFields(logrus.Fields{
			"action": "fetch_failed",
			"reason": string(outcome.Reason),
		}).Warn(outcome.Detail)
	}
}
