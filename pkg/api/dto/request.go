package dto

// QueryRequest SQL查询请求
type QueryRequest struct {
	SQL      string `json:"sql" binding:"required"`
	Deferred bool   `json:"deferred" binding:"omitempty"`
}
