package task

import (
	"github.com/LENAX/searchd-sidecar/pkg/ipc"
)

// Column 结果集中一列的名称与类型描述（对外导出）
type Column struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Result 任务完成后返回的值对象（对外导出）
// 通过命名构造器创建，构造完成后不再修改；
// 设置了raw负载时序列化只输出raw，抑制全部结构化字段
type Result struct {
	total   int
	err     string
	warning string
	columns []Column
	data    []map[string]any
	raw     any
	hasRaw  bool
}

// None 创建空结果（对外导出）
func None() *Result {
	return &Result{}
}

// WithData 创建带行数据的结果，total取行数（对外导出）
func WithData(data []map[string]any) *Result {
	return &Result{
		total: len(data),
		data:  data,
	}
}

// WithRow 创建单行结果（对外导出）
func WithRow(row map[string]any) *Result {
	return WithData([]map[string]any{row})
}

// WithTotal 创建仅含受影响行数的结果（对外导出）
func WithTotal(total int) *Result {
	return &Result{total: total}
}

// WithError 创建带错误消息的结果（对外导出）
func WithError(message string) *Result {
	return &Result{err: message}
}

// WithWarning 创建带警告消息的结果（对外导出）
func WithWarning(message string) *Result {
	return &Result{warning: message}
}

// FromResponse 由守护进程响应字段直接构造结果（对外导出）
func FromResponse(total int, errMsg, warning string, columns []Column, data []map[string]any) *Result {
	return &Result{
		total:   total,
		err:     errMsg,
		warning: warning,
		columns: columns,
		data:    data,
	}
}

// Raw 创建原样透传负载的结果（对外导出）
// 序列化时只输出该负载
func Raw(payload any) *Result {
	return &Result{raw: payload, hasRaw: true}
}

// AddColumn 在构造阶段追加一列描述，支持链式调用（对外导出）
func (r *Result) AddColumn(name, typ string) *Result {
	r.columns = append(r.columns, Column{Name: name, Type: typ})
	return r
}

// AddRow 在构造阶段追加一行数据并递增total，支持链式调用（对外导出）
func (r *Result) AddRow(row map[string]any) *Result {
	r.data = append(r.data, row)
	r.total++
	return r
}

// Total 行数（对外导出）
func (r *Result) Total() int {
	return r.total
}

// ErrorMessage 错误消息，空串表示无错误（对外导出）
func (r *Result) ErrorMessage() string {
	return r.err
}

// Warning 警告消息，空串表示无警告（对外导出）
func (r *Result) Warning() string {
	return r.warning
}

// Columns 列描述（对外导出）
func (r *Result) Columns() []Column {
	return r.columns
}

// Data 行数据（对外导出）
func (r *Result) Data() []map[string]any {
	return r.data
}

// HasRaw 是否为原样透传结果（对外导出）
func (r *Result) HasRaw() bool {
	return r.hasRaw
}

// RawPayload 原样透传负载（对外导出）
func (r *Result) RawPayload() any {
	return r.raw
}

// MarshalJSON 序列化为守护进程协议格式
// raw负载存在时抑制全部结构化字段
func (r *Result) MarshalJSON() ([]byte, error) {
	if r.hasRaw {
		return ipc.Marshal(r.raw)
	}

	columns := r.columns
	if columns == nil {
		columns = []Column{}
	}
	data := r.data
	if data == nil {
		data = []map[string]any{}
	}

	return ipc.Marshal(struct {
		Total   int              `json:"total"`
		Error   string           `json:"error"`
		Warning string           `json:"warning"`
		Columns []Column         `json:"columns"`
		Data    []map[string]any `json:"data"`
	}{
		Total:   r.total,
		Error:   r.err,
		Warning: r.warning,
		Columns: columns,
		Data:    data,
	})
}
