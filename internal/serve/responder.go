package serve

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Quaternijkon/HomDGCat/internal/logging"
)

// Request 是引擎无关的请求视图。RawPath 保留百分号编码，不含查询串。
type Request struct {
	Method         string
	RawPath        string
	IfNoneMatch    string
	AcceptEncoding string
}

// Header 是一对响应头。
type Header struct {
	Key   string
	Value string
}

// Response 是引擎无关的响应。Content-Length 单列，由各引擎按自己的方式写出；
// HEAD 请求 Body 为空但 ContentLength 仍反映对应 GET 的主体长度。
type Response struct {
	Status        int
	ContentLength int
	Headers       []Header
	Body          []byte
}

func (r *Response) add(key, value string) {
	r.Headers = append(r.Headers, Header{Key: key, Value: value})
}

// Header 返回首个同名响应头的值，供测试与引擎适配使用。
func (r Response) Header(key string) string {
	for _, h := range r.Headers {
		if h.Key == key {
			return h.Value
		}
	}
	return ""
}

// ResponderOptions 汇集 Responder 的依赖。
type ResponderOptions struct {
	Resolver *Resolver
	Cache    *CompressedCache
	Logger   *logrus.Logger
	Engine   string
	MinBytes int64
}

// Responder 把本地文件转换为带校验器与压缩策略的响应，两个引擎共用同一实例，
// 保证引擎之间响应头与主体完全一致。
type Responder struct {
	resolver *Resolver
	cache    *CompressedCache
	logger   *logrus.Logger
	engine   string
	minBytes int64
}

// NewResponder 校验依赖并构建响应器。
func NewResponder(opts ResponderOptions) (*Responder, error) {
	if opts.Resolver == nil {
		return nil, errors.New("resolver required")
	}
	if opts.Cache == nil {
		return nil, errors.New("compressed cache required")
	}
	if opts.Logger == nil {
		return nil, errors.New("logger required")
	}
	return &Responder{
		resolver: opts.Resolver,
		cache:    opts.Cache,
		logger:   opts.Logger,
		engine:   opts.Engine,
		minBytes: opts.MinBytes,
	}, nil
}

// Respond 处理一个 GET 或 HEAD 请求。
// 解析失败与越界都回 404；解析成功后的读盘失败回 500。
func (r *Responder) Respond(req Request) Response {
	started := time.Now()

	target, err := r.resolver.Resolve(req.RawPath)
	if err != nil {
		return r.finish(req, Response{Status: http.StatusNotFound}, started, false)
	}
	info, err := os.Stat(target)
	if err != nil {
		return r.finish(req, Response{Status: http.StatusNotFound}, started, false)
	}

	etag := makeETag(info.ModTime().UnixNano(), info.Size())
	ext := ExtOf(target)

	if etagMatches(req.IfNoneMatch, etag) {
		resp := Response{Status: http.StatusNotModified}
		resp.add("ETag", etag)
		resp.add("Cache-Control", CacheControlFor(ext))
		if Compressible(ext) {
			resp.add("Vary", "Accept-Encoding")
		}
		resp.add("Access-Control-Allow-Origin", "*")
		return r.finish(req, resp, started, false)
	}

	// gzip 判定对 HEAD 同样执行，Content-Length 必须与 GET 一致
	useGzip := false
	cacheHit := false
	var body []byte
	if Compressible(ext) && info.Size() > r.minBytes && strings.Contains(req.AcceptEncoding, "gzip") {
		compressed, hit, err := r.cache.Get(
			Fingerprint{Path: target, MtimeNS: info.ModTime().UnixNano(), Size: info.Size()},
			func() ([]byte, error) { return os.ReadFile(target) },
		)
		if err != nil {
			return r.finish(req, Response{Status: http.StatusInternalServerError}, started, false)
		}
		useGzip = true
		cacheHit = hit
		body = compressed
	} else {
		raw, err := os.ReadFile(target)
		if err != nil {
			return r.finish(req, Response{Status: http.StatusInternalServerError}, started, false)
		}
		body = raw
	}

	resp := Response{Status: http.StatusOK, ContentLength: len(body)}
	resp.add("Content-Type", ContentTypeFor(ext))
	resp.add("ETag", etag)
	resp.add("Cache-Control", CacheControlFor(ext))
	resp.add("Last-Modified", info.ModTime().UTC().Format(http.TimeFormat))
	if useGzip {
		resp.add("Content-Encoding", "gzip")
		resp.add("Vary", "Accept-Encoding")
	}
	resp.add("Access-Control-Allow-Origin", "*")
	if req.Method != http.MethodHead {
		resp.Body = body
	}
	return r.finish(req, resp, started, cacheHit)
}

// makeETag 以 mtime 纳秒与大小的十六进制组合作为校验器，格式近似 nginx。
func makeETag(mtimeNS, size int64) string {
	return fmt.Sprintf(`"%x-%x"`, mtimeNS, size)
}

// etagMatches 在逗号分隔的候选列表里做精确匹配。
func etagMatches(ifNoneMatch, etag string) bool {
	if ifNoneMatch == "" {
		return false
	}
	for _, tok := range strings.Split(ifNoneMatch, ",") {
		if strings.TrimSpace(tok) == etag {
			return true
		}
	}
	return false
}

func (r *Responder) finish(req Request, resp Response, started time.Time, cacheHit bool) Response {
	fields := logging.ServeFields(req.RawPath, resp.Status, r.engine, cacheHit)
	fields["method"] = req.Method
	fields["elapsed_ms"] = time.Since(started).Milliseconds()
	entry := r.logger.WithFields(fields)
	switch {
	case resp.Status >= http.StatusInternalServerError:
		entry.Error("serve_failed")
	case resp.Status == http.StatusNotFound:
		entry.Debug("not_found")
	default:
		entry.Debug("served")
	}
	return resp
}
