// Package output 提供CLI的着色输出与表格渲染
package output

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
)

// Success 打印成功消息
func Success(format string, args ...any) {
	color.Green("✅ "+format, args...)
}

// Info 打印提示消息
func Info(format string, args ...any) {
	color.Cyan(format, args...)
}

// Warn 打印警告消息
func Warn(format string, args ...any) {
	color.Yellow("⚠️  "+format, args...)
}

// Error 打印错误消息到stderr
func Error(format string, args ...any) {
	fmt.Fprintln(os.Stderr, color.RedString("❌ "+format, args...))
}

// PrintJSON 以缩进JSON输出任意值
func PrintJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
