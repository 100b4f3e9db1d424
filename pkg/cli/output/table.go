package output

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
)

// Table 简易等宽表格
type Table struct {
	headers []string
	rows    [][]string
	widths  []int
}

// NewTable 创建表格
func NewTable(headers []string) *Table {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = runewidth.StringWidth(h)
	}
	return &Table{headers: headers, widths: widths}
}

// AddRow 追加一行，列数不足时右侧补空
func (t *Table) AddRow(cells []string) {
	row := make([]string, len(t.headers))
	for i := range row {
		if i < len(cells) {
			row[i] = cells[i]
		}
		if w := runewidth.StringWidth(row[i]); w > t.widths[i] {
			t.widths[i] = w
		}
	}
	t.rows = append(t.rows, row)
}

// Render 渲染到标准输出
func (t *Table) Render() {
	header := make([]string, len(t.headers))
	for i, h := range t.headers {
		header[i] = pad(h, t.widths[i])
	}
	color.New(color.Bold).Println(strings.Join(header, "  "))

	for _, row := range t.rows {
		cells := make([]string, len(row))
		for i, cell := range row {
			cells[i] = pad(cell, t.widths[i])
		}
		fmt.Println(strings.Join(cells, "  "))
	}
}

// pad 按终端显示宽度补空格，中日韩全角字符占两列
func pad(s string, width int) string {
	w := runewidth.StringWidth(s)
	if w >= width {
		return s
	}
	return s + strings.Repeat(" ", width-w)
}
