// Package sidecar 提供CLI访问旁路助手HTTP API的客户端
package sidecar

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/LENAX/searchd-sidecar/pkg/ipc"
)

// Client 旁路助手API客户端
type Client struct {
	baseURL string
	http    *http.Client
}

// New 创建客户端
func New(serverURL string) *Client {
	return &Client{
		baseURL: serverURL,
		http:    &http.Client{Timeout: 60 * time.Second},
	}
}

// ColumnPayload 结果列描述
type ColumnPayload struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// ResultPayload 单语句结果
type ResultPayload struct {
	Total   int              `json:"total"`
	Error   string           `json:"error"`
	Warning string           `json:"warning"`
	Columns []ColumnPayload  `json:"columns"`
	Data    []map[string]any `json:"data"`
}

// QueryData 同步查询响应数据
type QueryData struct {
	Total   int             `json:"total"`
	Results []ResultPayload `json:"results"`
}

// DeferredData 延迟执行响应数据
type DeferredData struct {
	TaskID string `json:"task_id"`
	Status string `json:"status"`
}

// TaskData Task状态响应数据
type TaskData struct {
	TaskID  string          `json:"task_id"`
	Status  string          `json:"status"`
	Error   string          `json:"error"`
	Results []ResultPayload `json:"results"`
}

// HealthData 健康检查响应数据
type HealthData struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	Daemon    string `json:"daemon"`
	Uptime    string `json:"uptime"`
	Timestamp string `json:"timestamp"`
}

// Query 同步执行SQL
func (c *Client) Query(sql string) (*QueryData, error) {
	var data QueryData
	if err := c.post("/api/v1/query", map[string]any{"sql": sql}, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// QueryDeferred 提交延迟执行SQL
func (c *Client) QueryDeferred(sql string) (*DeferredData, error) {
	var data DeferredData
	if err := c.post("/api/v1/query", map[string]any{"sql": sql, "deferred": true}, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetTask 查询延迟Task状态
func (c *Client) GetTask(id string) (*TaskData, error) {
	var data TaskData
	if err := c.get("/api/v1/tasks/"+id, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// Health 健康检查
func (c *Client) Health() (*HealthData, error) {
	var data HealthData
	if err := c.get("/health", &data); err != nil {
		return nil, err
	}
	return &data, nil
}

func (c *Client) post(path string, body any, out any) error {
	payload, err := ipc.Marshal(body)
	if err != nil {
		return err
	}
	resp, err := c.http.Post(c.baseURL+path, "application/json", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("请求旁路助手失败: %w", err)
	}
	return c.decode(resp, out)
}

func (c *Client) get(path string, out any) error {
	resp, err := c.http.Get(c.baseURL + path)
	if err != nil {
		return fmt.Errorf("请求旁路助手失败: %w", err)
	}
	return c.decode(resp, out)
}

func (c *Client) decode(resp *http.Response, out any) error {
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("读取响应失败: %w", err)
	}

	var env struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Data    any    `json:"data"`
	}
	if err := ipc.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("解码响应失败: %w", err)
	}
	if env.Code != 0 {
		return fmt.Errorf("服务端错误(%d): %s", env.Code, env.Message)
	}

	// data段重编码再解到目标结构，数字经json.Number透传不丢精度
	raw, err := ipc.Marshal(env.Data)
	if err != nil {
		return err
	}
	return ipc.Unmarshal(raw, out)
}
