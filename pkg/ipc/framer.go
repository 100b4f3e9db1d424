// Package ipc 提供监督子执行体与父进程之间的管道帧协议与负载编解码
package ipc

import (
	"encoding/binary"
	"fmt"
	"io"
)

// HeaderSize 帧头长度：4字节大端uint32表示负载长度
const HeaderSize = 4

// readChunkSize 单次管道读取的缓冲大小
const readChunkSize = 4096

// Pack 打包负载（对外导出）
// 线格式: u32be(len(payload)) || payload
func Pack(payload []byte) []byte {
	frame := make([]byte, HeaderSize+len(payload))
	binary.BigEndian.PutUint32(frame[:HeaderSize], uint32(len(payload)))
	copy(frame[HeaderSize:], payload)
	return frame
}

// IsComplete 判断缓冲头部是否已含一个完整帧（对外导出）
func IsComplete(buf []byte) bool {
	if len(buf) < HeaderSize {
		return false
	}
	declared := binary.BigEndian.Uint32(buf[:HeaderSize])
	return uint32(len(buf)-HeaderSize) >= declared
}

// Unpack 从缓冲头部拆出一个完整帧，返回(payload, 剩余字节)（对外导出）
// 在短于声明长度的缓冲上调用属于调用方使用错误，立即报错
func Unpack(buf []byte) ([]byte, []byte, error) {
	if len(buf) < HeaderSize {
		return nil, buf, fmt.Errorf("帧缓冲不足%d字节，无法读取长度前缀", HeaderSize)
	}
	declared := int(binary.BigEndian.Uint32(buf[:HeaderSize]))
	if len(buf)-HeaderSize < declared {
		return nil, buf, fmt.Errorf("帧缓冲不完整: 声明长度%d，实际负载%d", declared, len(buf)-HeaderSize)
	}
	payload := make([]byte, declared)
	copy(payload, buf[HeaderSize:HeaderSize+declared])
	return payload, buf[HeaderSize+declared:], nil
}

// Framer 带结转缓冲的帧重组器（对外导出）
// 跨多次读取重组完整帧；非并发安全，仅供单一接收循环持有
type Framer struct {
	carry []byte // 结转缓冲（上次读取遗留的残帧字节）
	chunk []byte // 复用的读取缓冲
}

// NewFramer 创建Framer实例（对外导出）
func NewFramer() *Framer {
	return &Framer{
		carry: make([]byte, 0, readChunkSize),
		chunk: make([]byte, readChunkSize),
	}
}

// Read 从source执行一次读取并产出零个或多个完整帧（对外导出）
// 尾部残帧保留在结转缓冲中等待下次调用。必须正确处理：
// 恰好在长度前缀内切断、在负载中切断、一次读取含多帧、零长负载。
// 读取出错时已重组出的完整帧仍然返回，错误由调用方处置。
func (f *Framer) Read(source io.Reader) ([][]byte, error) {
	n, readErr := source.Read(f.chunk)
	if n > 0 {
		f.carry = append(f.carry, f.chunk[:n]...)
	}

	var frames [][]byte
	for IsComplete(f.carry) {
		payload, rest, err := Unpack(f.carry)
		if err != nil {
			// IsComplete已保证帧完整，此处不可达
			return frames, err
		}
		frames = append(frames, payload)
		f.carry = append(f.carry[:0], rest...)
	}

	return frames, readErr
}

// Pending 返回结转缓冲中尚未成帧的字节数（对外导出，供诊断）
func (f *Framer) Pending() int {
	return len(f.carry)
}
