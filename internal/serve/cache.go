package serve

import (
	"bytes"
	"errors"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/klauspost/compress/gzip"
)

// Fingerprint 标识文件的某个版本，mtime 或大小变化即产生新键，旧条目随容量淘汰。
type Fingerprint struct {
	Path    string
	MtimeNS int64
	Size    int64
}

// CompressedCache 按 Fingerprint 缓存 gzip 结果。
// 并发未命中同一文件时会重复压缩一次，后写者覆盖，结果等价。
type CompressedCache struct {
	entries *lru.Cache[Fingerprint, []byte]
	level   int
}

// NewCompressedCache 构建压缩缓存。
func NewCompressedCache(maxEntries, level int) (*CompressedCache, error) {
	if maxEntries <= 0 {
		return nil, errors.New("cache entries must be positive")
	}
	if level < gzip.BestSpeed || level > gzip.BestCompression {
		return nil, errors.New("gzip level out of range")
	}
	entries, err := lru.New[Fingerprint, []byte](maxEntries)
	if err != nil {
		return nil, err
	}
	return &CompressedCache{entries: entries, level: level}, nil
}

// Get 返回指纹对应的压缩字节；未命中时通过 load 取原始内容并压缩入缓存。
// 第二个返回值报告是否命中。
func (c *CompressedCache) Get(fp Fingerprint, load func() ([]byte, error)) ([]byte, bool, error) {
	if body, ok := c.entries.Get(fp); ok {
		return body, true, nil
	}

	raw, err := load()
	if err != nil {
		return nil, false, err
	}
	var buf bytes.Buffer
	gz, err := gzip.NewWriterLevel(&buf, c.level)
	if err != nil {
		return nil, false, err
	}
	if _, err := gz.Write(raw); err != nil {
		return nil, false, err
	}
	if err := gz.Close(); err != nil {
		return nil, false, err
	}

	body := buf.Bytes()
	c.entries.Add(fp, body)
	return body, false, nil
}

// Len 返回当前缓存条目数。
func (c *CompressedCache) Len() int {
	return c.entries.Len()
}
