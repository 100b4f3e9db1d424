// Package client 提供访问searchd守护进程HTTP接口的客户端
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/LENAX/searchd-sidecar/pkg/core/task"
	"github.com/LENAX/searchd-sidecar/pkg/ipc"
)

const (
	defaultTimeout = 30 * time.Second
	cliJSONPath    = "/cli_json"
)

// Searchd searchd守护进程HTTP客户端（对外导出）
type Searchd struct {
	baseURL string
	http    *http.Client
}

// New 创建客户端（对外导出）
func New(baseURL string) *Searchd {
	return &Searchd{
		baseURL: baseURL,
		http:    &http.Client{Timeout: defaultTimeout},
	}
}

// WithTimeout 设置请求超时，支持链式调用（对外导出）
func (c *Searchd) WithTimeout(d time.Duration) *Searchd {
	c.http.Timeout = d
	return c
}

// Query 将SQL原文提交到守护进程的/cli_json端点（对外导出）
// 多语句文本返回逐语句的结果列表；守护进程侧报错体现在
// 对应结果的ErrorMessage上，不作为调用错误返回
func (c *Searchd) Query(ctx context.Context, sql string) ([]*task.Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+cliJSONPath, bytes.NewBufferString(sql))
	if err != nil {
		return nil, fmt.Errorf("构造请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "text/plain")
	req.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("请求守护进程失败: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取守护进程响应失败: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("守护进程返回状态 %d: %s", resp.StatusCode, body)
	}

	return parseResponse(body)
}

// QueryOne 提交单语句SQL并返回首个结果（对外导出）
func (c *Searchd) QueryOne(ctx context.Context, sql string) (*task.Result, error) {
	results, err := c.Query(ctx, sql)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("守护进程返回空结果集")
	}
	return results[0], nil
}

// Ping 以SHOW STATUS探测守护进程存活（对外导出）
func (c *Searchd) Ping(ctx context.Context) error {
	r, err := c.QueryOne(ctx, "SHOW STATUS")
	if err != nil {
		return err
	}
	if r.ErrorMessage() != "" {
		return fmt.Errorf("守护进程探活失败: %s", r.ErrorMessage())
	}
	return nil
}

// parseResponse 解析/cli_json响应
// 数值一律走json.Number通道，避免大整数在float64中丢失精度
func parseResponse(body []byte) ([]*task.Result, error) {
	var items []map[string]any
	if err := ipc.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("解码守护进程响应失败: %w", err)
	}

	results := make([]*task.Result, 0, len(items))
	for _, item := range items {
		results = append(results, parseItem(item))
	}
	return results, nil
}

func parseItem(item map[string]any) *task.Result {
	total := toInt(item["total"])
	errMsg, _ := item["error"].(string)
	warning, _ := item["warning"].(string)

	// 列描述形如 [{"id":{"type":"bigint"}}, ...]
	var columns []task.Column
	if rawCols, ok := item["columns"].([]any); ok {
		for _, rawCol := range rawCols {
			colObj, ok := rawCol.(map[string]any)
			if !ok {
				continue
			}
			for name, meta := range colObj {
				typ := ""
				if m, ok := meta.(map[string]any); ok {
					typ, _ = m["type"].(string)
				}
				columns = append(columns, task.Column{Name: name, Type: typ})
			}
		}
	}

	var data []map[string]any
	if rawRows, ok := item["data"].([]any); ok {
		for _, rawRow := range rawRows {
			if row, ok := rawRow.(map[string]any); ok {
				data = append(data, row)
			}
		}
	}
	if total == 0 {
		total = len(data)
	}

	return task.FromResponse(total, errMsg, warning, columns, data)
}

func toInt(v any) int {
	switch n := v.(type) {
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0
		}
		return int(i)
	case float64:
		return int(n)
	case int:
		return n
	default:
		return 0
	}
}
