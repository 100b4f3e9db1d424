package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LENAX/searchd-sidecar/pkg/client"
)

func healthRouter(daemonURL string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/health", NewHealthHandler(client.New(daemonURL)).Check)
	return r
}

func TestHealthHandler_DaemonAlive(t *testing.T) {
	daemon := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"total":1,"error":"","warning":"","columns":[],"data":[{"Counter":"uptime"}]}]`))
	}))
	defer daemon.Close()

	w := httptest.NewRecorder()
	healthRouter(daemon.URL).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data struct {
			Status string `json:"status"`
			Daemon string `json:"daemon"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Data.Status)
	assert.Equal(t, "ok", resp.Data.Daemon)
}

func TestHealthHandler_DaemonDownDegrades(t *testing.T) {
	daemon := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusBadGateway)
	}))
	daemon.Close() // 守护进程不可达

	w := httptest.NewRecorder()
	healthRouter(daemon.URL).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data struct {
			Status string `json:"status"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "degraded", resp.Data.Status)
}
