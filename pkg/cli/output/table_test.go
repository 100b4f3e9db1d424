package output

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTable_ColumnWidthsByDisplayWidth(t *testing.T) {
	tb := NewTable([]string{"ID", "Name"})
	tb.AddRow([]string{"1", "统计刷新"})
	tb.AddRow([]string{"2", "ok"})

	// 中日韩全角字符占两列："统计刷新"宽8而非字节数12
	assert.Equal(t, []int{2, 8}, tb.widths)
}

func TestPad_DisplayWidth(t *testing.T) {
	// 已满宽不补空格
	assert.Equal(t, "统计刷新", pad("统计刷新", 8))
	// 全角与半角补齐后显示宽度一致
	assert.Equal(t, "刷新    ", pad("刷新", 8))
	assert.Equal(t, "ok      ", pad("ok", 8))
}
