package ipc

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Envelope 管道上的一条远程方法调用负载（对外导出）
// 线上表示为两元素JSON数组: [method, args]
type Envelope struct {
	Method string
	Args   []any
}

// EncodeEnvelope 编码(method, args)为帧负载（对外导出）
func EncodeEnvelope(method string, args []any) ([]byte, error) {
	if method == "" {
		return nil, fmt.Errorf("方法名不能为空")
	}
	if args == nil {
		args = []any{}
	}
	return Marshal([2]any{method, args})
}

// DecodeEnvelope 解码帧负载为(method, args)（对外导出）
// 数字统一解码为json.Number，保证大整数逐字节保真
func DecodeEnvelope(data []byte) (*Envelope, error) {
	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return nil, fmt.Errorf("负载不是合法JSON数组: %w", err)
	}
	if len(parts) != 2 {
		return nil, fmt.Errorf("负载必须是[method, args]两元素数组，实际%d个元素", len(parts))
	}

	var method string
	if err := json.Unmarshal(parts[0], &method); err != nil {
		return nil, fmt.Errorf("方法名不是字符串: %w", err)
	}

	var args []any
	if err := Unmarshal(parts[1], &args); err != nil {
		return nil, fmt.Errorf("参数表不是数组: %w", err)
	}

	return &Envelope{Method: method, Args: args}, nil
}

// Marshal bigint安全的JSON编码（对外导出）
// json.Number原样透传，不经过float64
func Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	// Encoder会追加换行
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Unmarshal bigint安全的JSON解码（对外导出）
// 所有数字解码为json.Number，超出float64精度的整数不丢失
func Unmarshal(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}
