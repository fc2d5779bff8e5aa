package handlers

import (
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strings"

	"agentchain/internal/middleware"
	"agentchain/internal/models"
	"agentchain/internal/services"

	"github.com/gin-gonic/gin"
)

const maxBodySize = 1 << 20

// Success 写出 {success:true, ...payload}
func Success(c *gin.Context, code int, obj gin.H) {
	if obj == nil {
		obj = gin.H{}
	}
	obj["success"] = true
	c.JSON(code, obj)
}

// Fail 写出统一的错误响应
func Fail(c *gin.Context, err error) {
	middleware.AbortWithError(c, err)
}

// jsonBody 请求体的顶层字段，类型不符的字段按缺失处理
type jsonBody map[string]json.RawMessage

// readBody 解析 JSON 对象请求体，空请求体视为空对象
func readBody(c *gin.Context) (jsonBody, error) {
	data, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodySize))
	if err != nil {
		return nil, services.ValidationError("Invalid request body.")
	}
	body := jsonBody{}
	if len(strings.TrimSpace(string(data))) == 0 {
		return body, nil
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return nil, services.ValidationError("Invalid JSON body.")
	}
	return body, nil
}

func (b jsonBody) String(key string) string {
	var s string
	if raw, ok := b[key]; ok {
		_ = json.Unmarshal(raw, &s)
	}
	return s
}

// Raw 字段不存在时返回 nil
func (b jsonBody) Raw(key string) json.RawMessage {
	return b[key]
}

// Strings 解析字符串数组，忽略非字符串元素
func (b jsonBody) Strings(key string) []string {
	var items []interface{}
	if raw, ok := b[key]; ok {
		_ = json.Unmarshal(raw, &items)
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func currentAgent(c *gin.Context) *models.Agent {
	return middleware.CurrentAgent(c)
}

var localHosts = map[string]bool{
	"localhost": true,
	"127.0.0.1": true,
	"::1":       true,
}

// isLocalRequest 连接来自回环地址并且 Host 是本机名
func isLocalRequest(r *http.Request) bool {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	ip := net.ParseIP(host)
	if ip == nil || !ip.IsLoopback() {
		return false
	}

	hostname := r.Host
	if h, _, err := net.SplitHostPort(hostname); err == nil {
		hostname = h
	}
	hostname = strings.Trim(hostname, "[]")
	return localHosts[strings.ToLower(hostname)]
}
