package config

import "fmt"

// FieldError 指出未通过校验的配置键，Field 为 TOML 中的完整键路径。
// Value 保留用户写入的值，空值类错误不携带。
type FieldError struct {
	Field  string
	Value  any
	Reason string
}

func (e FieldError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("%s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("%s: %s (当前值 %v)", e.Field, e.Reason, e.Value)
}
