// Package progress 聚合下载结果并盘点镜像目录，为命令行提供进度与统计。
package progress

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Quaternijkon/HomDGCat/internal/fetch"
)

// Totals 是一次下载运行的统计快照。
type Totals struct {
	Processed int
	Total     int
	Fetched   int
	Skipped   int
	NotFound  int
	Failed    int
	Bytes     int64
	Elapsed   time.Duration
}

// SpeedKBps 返回累计平均下载速度（KB/s）。
func (t Totals) SpeedKBps() float64 {
	sec := t.Elapsed.Seconds()
	if sec <= 0 {
		return 0
	}
	return float64(t.Bytes) / sec / 1024
}

// Failure 记录最终失败的条目及原因。404 缺失单独计数，不在其列。
type Failure struct {
	Path   string
	Reason string
}

// Tracker 聚合下载结果。由单一结果消费者驱动，内部不加锁。
type Tracker struct {
	total      int
	interval   int
	start      time.Time
	totals     Totals
	failures   []Failure
	onProgress func(Totals)
}

// NewTracker 构建聚合器；interval 为进度回调的条目间隔。
func NewTracker(total, interval int, onProgress func(Totals)) *Tracker {
	if interval <= 0 {
		interval = 200
	}
	return &Tracker{
		total:      total,
		interval:   interval,
		start:      time.Now(),
		totals:     Totals{Total: total},
		onProgress: onProgress,
	}
}

// Observe 记录一个下载结果，按间隔或在最后一个条目上触发进度回调。
func (t *Tracker) Observe(res fetch.Result) {
	t.totals.Processed++
	switch res.Outcome.Kind {
	case fetch.OutcomeFetched:
		t.totals.Fetched++
		t.totals.Bytes += res.Outcome.Bytes
	case fetch.OutcomeAlreadyPresent:
		t.totals.Skipped++
	case fetch.OutcomeFailed:
		if res.Outcome.Reason == fetch.FailNotFound {
			t.totals.NotFound++
			break
		}
		t.totals.Failed++
		reason := res.Outcome.Detail
		if reason == "" {
			reason = string(res.Outcome.Reason)
		}
		t.failures = append(t.failures, Failure{Path: res.Entry.String(), Reason: reason})
	}

	if t.onProgress != nil && (t.totals.Processed%t.interval == 0 || t.totals.Processed == t.total) {
		t.onProgress(t.snapshot())
	}
}

func (t *Tracker) snapshot() Totals {
	s := t.totals
	s.Elapsed = time.Since(t.start)
	return s
}

// Finish 返回最终统计。
func (t *Tracker) Finish() Totals {
	return t.snapshot()
}

// Failures 返回按观察顺序排列的失败清单。
func (t *Tracker) Failures() []Failure {
	return t.failures
}

// WriteFailureReport 将失败清单写为 path<TAB>reason 文本。
// 无失败时不落盘并返回 false。
func (t *Tracker) WriteFailureReport(path string) (bool, error) {
	if len(t.failures) == 0 {
		return false, nil
	}
	var b strings.Builder
	for _, f := range t.failures {
		fmt.Fprintf(&b, "%s\t%s\n", f.Path, f.Reason)
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return false, fmt.Errorf("写入失败报告失败: %w", err)
	}
	return true, nil
}
