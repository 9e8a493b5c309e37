package fetch

import "github.com/Quaternijkon/HomDGCat/internal/manifest"

// OutcomeKind 区分单个条目的下载结局。
type OutcomeKind int

const (
	// OutcomeFetched 表示文件本次成功落盘。
	OutcomeFetched OutcomeKind = iota
	// OutcomeAlreadyPresent 表示本地已有非空文件，跳过网络请求。
	OutcomeAlreadyPresent
	// OutcomeFailed 表示所有尝试后仍未取得文件，原因见 Reason。
	OutcomeFailed
)

// FailReason 是失败结局的稳定分类，写入失败清单并参与统计。
type FailReason string

const (
	FailNotFound         FailReason = "not-found"
	FailTraversalBlocked FailReason = "traversal-blocked"
	FailEmptyBody        FailReason = "empty-body"
	FailTransportError   FailReason = "transport-error"
	FailExhaustedRetries FailReason = "exhausted-retries"
)

// Outcome 描述一个清单条目的处理结果。
// Bytes 仅在 OutcomeFetched 时有效；Reason/Detail 仅在 OutcomeFailed 时有效。
type Outcome struct {
	Kind   OutcomeKind
	Bytes  int64
	Reason FailReason
	Detail string
}

// Result 将条目与结局配对，按完成顺序经结果通道交付。
type Result struct {
	Entry   manifest.Entry
	Outcome Outcome
}

func failed(reason FailReason, detail string) Outcome {
	return Outcome{Kind: OutcomeFailed, Reason: reason, Detail: detail}
}
