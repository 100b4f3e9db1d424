package task

import (
	"fmt"
	"reflect"
	"strings"
)

// Error 任务工作项的结构化错误（对外导出）
// Class与Message拼接构成日志消息；ResponseMessage是对外可见的响应消息，
// 捕获时逐字节保留原始消息文本
type Error struct {
	Class           string // 原始错误的类型名
	Message         string // 原始错误消息
	ResponseMessage string // 对外可见的响应消息（原始消息非空时与Message相同）
}

// Error 实现error接口，格式为 "{class}: {message}"
func (e *Error) Error() string {
	return e.Class + ": " + e.Message
}

// NewError 创建结构化错误（对外导出）
func NewError(class, message string) *Error {
	return &Error{
		Class:           class,
		Message:         message,
		ResponseMessage: message,
	}
}

// captureError 隔离上下文边界的唯一翻译点：
// 把工作项抛出的任意错误或panic值归一为结构化错误
func captureError(v any) *Error {
	switch err := v.(type) {
	case *Error:
		return err
	case error:
		return NewError(classOf(err), err.Error())
	default:
		return NewError(classOf(v), fmt.Sprint(v))
	}
}

// classOf 取值的类型名作为错误类名，去掉指针前缀
func classOf(v any) string {
	t := reflect.TypeOf(v)
	if t == nil {
		return "nil"
	}
	return strings.TrimPrefix(t.String(), "*")
}
