// Package middleware 提供 Gin 与 gRPC 的通用中间件（日志、会话、panic recover、跨域、指标、限流）
package middleware

import (
	"context"
	"net/http"
	"slices"
	"time"

	"github.com/deogratias228/espoir-medical-ecommerce/pkg/config"
	"github.com/deogratias228/espoir-medical-ecommerce/pkg/logger"
	"github.com/deogratias228/espoir-medical-ecommerce/pkg/metrics"
	"github.com/deogratias228/espoir-medical-ecommerce/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// RequestIDKey gin.Context 中请求 ID 的键
const RequestIDKey = "request_id"

// SessionIDKey gin.Context 中会话 ID 的键
const SessionIDKey = "session_id"

// RequestIDHeader 请求 ID 头
const RequestIDHeader = "X-Request-ID"

// GinLoggingMiddleware Gin 日志中间件
func GinLoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set(RequestIDKey, requestID)
		c.Header(RequestIDHeader, requestID)

		// 无 OTel span 时以请求 ID 作为 trace_id
		ctx := context.WithValue(c.Request.Context(), logger.TraceIDKey, requestID)
		c.Request = c.Request.WithContext(ctx)

		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		args := []any{
			"request_id", requestID,
			"method", method,
			"path", path,
			"status_code", c.Writer.Status(),
			"response_size", c.Writer.Size(),
			"client_ip", c.ClientIP(),
			"duration", time.Since(start),
		}
		if len(c.Errors) > 0 {
			args = append(args, "errors", c.Errors.String())
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			logger.Error(c.Request.Context(), "HTTP request completed", args...)
			return
		}
		logger.Info(c.Request.Context(), "HTTP request completed", args...)
	}
}

// GinRecoveryMiddleware Gin panic 恢复中间件
func GinRecoveryMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error(c.Request.Context(), "HTTP request panicked",
					"request_id", c.GetString(RequestIDKey),
					"path", c.Request.URL.Path,
					"panic", err,
				)
				response.Abort(c, http.StatusInternalServerError, "Internal server error")
			}
		}()
		c.Next()
	}
}

// GinCORSMiddleware Gin CORS 中间件，origins 为空时允许任意来源（不携带凭证）
func GinCORSMiddleware(origins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		h := c.Writer.Header()
		switch {
		case len(origins) == 0:
			h.Set("Access-Control-Allow-Origin", "*")
		case origin != "" && slices.Contains(origins, origin):
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Add("Vary", "Origin")
		}
		h.Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept, Accept-Encoding, Cache-Control, X-Requested-With, X-Request-ID")
		h.Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// SessionMiddleware 为每个访客分配会话 ID（Cookie），购物车与搜索状态按会话隔离
func SessionMiddleware(cfg config.SessionConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := canonicalSessionID(c, cfg.CookieName)
		// 每次请求续期
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(cfg.CookieName, sessionID, cfg.MaxAge, "/", "", cfg.Secure, true)

		c.Set(SessionIDKey, sessionID)
		ctx := context.WithValue(c.Request.Context(), logger.SessionIDKey, sessionID)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// canonicalSessionID 读取 Cookie 中的会话 ID，统一为 36 位小写形式；
// 缺失或不是 UUID 时分配新 ID
func canonicalSessionID(c *gin.Context, name string) string {
	raw, err := c.Cookie(name)
	if err != nil {
		return uuid.New().String()
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}

// SessionID 返回 SessionMiddleware 写入的会话 ID
func SessionID(c *gin.Context) string {
	return c.GetString(SessionIDKey)
}

// MetricsMiddleware 记录 HTTP 请求指标，未匹配路由统一记为 unmatched
func MetricsMiddleware(collector metrics.Collector) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		collector.RecordHTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start).Seconds())
	}
}

// GRPCLoggingInterceptor gRPC 日志拦截器
func GRPCLoggingInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		requestID := requestIDFromMetadata(ctx)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		ctx = context.WithValue(ctx, logger.TraceIDKey, requestID)

		start := time.Now()
		resp, err := handler(ctx, req)

		if err != nil {
			st, _ := status.FromError(err)
			logger.Error(ctx, "gRPC request failed",
				"request_id", requestID,
				"method", info.FullMethod,
				"error_code", st.Code().String(),
				"error_message", st.Message(),
				"duration", time.Since(start),
			)
			return resp, err
		}
		logger.Debug(ctx, "gRPC request completed",
			"request_id", requestID,
			"method", info.FullMethod,
			"duration", time.Since(start),
		)
		return resp, nil
	}
}

// GRPCRecoveryInterceptor gRPC panic 恢复拦截器
func GRPCRecoveryInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error(ctx, "gRPC request panicked",
					"method", info.FullMethod,
					"panic", r,
				)
				err = status.Error(codes.Internal, "internal error")
			}
		}()
		return handler(ctx, req)
	}
}

// requestIDFromMetadata 从 gRPC metadata 读取 x-request-id
func requestIDFromMetadata(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	if values := md.Get("x-request-id"); len(values) > 0 {
		return values[0]
	}
	return ""
}
