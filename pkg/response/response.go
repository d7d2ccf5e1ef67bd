// Package response 统一的 JSON 响应封装
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Body 响应体，code 为 0 表示成功
type Body struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Success 返回 200 与数据
func Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Body{Code: 0, Message: "success", Data: data})
}

// ErrorWithStatus 返回指定 HTTP 状态码与错误信息，data 可为 nil
func ErrorWithStatus(c *gin.Context, status int, message string, data any) {
	c.JSON(status, Body{Code: status, Message: message, Data: data})
}

// Abort 终止后续处理并返回错误
func Abort(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, Body{Code: status, Message: message})
}
