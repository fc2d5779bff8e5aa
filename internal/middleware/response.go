package middleware

import (
	"log/slog"
	"net/http"
	"strconv"

	"agentchain/internal/services"

	"github.com/gin-gonic/gin"
)

// StatusCode 错误类型对应的 HTTP 状态码
func StatusCode(kind services.ErrorKind) int {
	switch kind {
	case services.KindValidation:
		return http.StatusBadRequest
	case services.KindAuthentication:
		return http.StatusUnauthorized
	case services.KindAuthorization:
		return http.StatusForbidden
	case services.KindNotFound:
		return http.StatusNotFound
	case services.KindConflict:
		return http.StatusConflict
	case services.KindRateLimit:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// ErrorBody 统一的错误响应 {success:false, error, hint?}
func ErrorBody(e *services.Error) gin.H {
	body := gin.H{"success": false, "error": e.Message}
	if e.Hint != "" {
		body["hint"] = e.Hint
	}
	return body
}

// AbortWithError 把任意错误写成 JSON 响应并中止后续处理
func AbortWithError(c *gin.Context, err error) {
	e := services.AsError(err)
	status := StatusCode(e.Kind)

	if e.Kind == services.KindInternal {
		slog.ErrorContext(c.Request.Context(), "request failed",
			slog.String("module", "http"),
			slog.String("request_id", c.GetString(RequestIDKey)),
			slog.String("path", c.FullPath()),
			slog.String("error", e.Error()),
		)
	}
	if e.RetryAfter > 0 {
		c.Header("Retry-After", strconv.Itoa(int(e.RetryAfter.Seconds())))
	}

	_ = c.Error(e)
	c.AbortWithStatusJSON(status, ErrorBody(e))
}
