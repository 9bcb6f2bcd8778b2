// Package middleware 提供 HTTP 中间件
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/shreyan01/ruberic/internal/domain/entity"
	"github.com/shreyan01/ruberic/pkg/logger"
)

const (
	// APIKeyHeader 自定义密钥请求头
	APIKeyHeader = "X-API-Key"

	// ContextAccountID Gin Context 中的账户 ID 键
	ContextAccountID = "account_id"
	// ContextAPIKeyID Gin Context 中的密钥 ID 键
	ContextAPIKeyID = "api_key_id"
)

// KeyVerifier 密钥认证接口
type KeyVerifier interface {
	Verify(ctx context.Context, plaintext string) (*entity.APIKey, error)
}

// APIKeyAuth API 密钥认证中间件
// 接受 X-API-Key 头或 Authorization: Bearer 头；认证失败统一返回 401，
// 不区分未知、停用、过期与格式错误。
func APIKeyAuth(verifier KeyVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		secret := extractAPIKey(c)
		if secret == "" {
			abortUnauthorized(c, "missing API key")
			return
		}

		key, err := verifier.Verify(c.Request.Context(), secret)
		if err != nil {
			abortUnauthorized(c, "invalid or expired API key")
			return
		}

		c.Set(ContextAccountID, key.AccountID)
		c.Set(ContextAPIKeyID, key.ID)

		ctx := logger.WithContext(c.Request.Context(), logger.AccountIDKey, key.AccountID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// extractAPIKey 从请求头取出密钥明文
func extractAPIKey(c *gin.Context) string {
	if v := strings.TrimSpace(c.GetHeader(APIKeyHeader)); v != "" {
		return v
	}

	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// abortUnauthorized 终止请求并返回 401
func abortUnauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"code":     401,
		"message":  msg,
		"trace_id": c.GetString("trace_id"),
	})
}

// GetAccountIDFromGin 从 Gin Context 获取账户 ID
func GetAccountIDFromGin(c *gin.Context) string {
	return c.GetString(ContextAccountID)
}

// GetAPIKeyIDFromGin 从 Gin Context 获取密钥 ID
func GetAPIKeyIDFromGin(c *gin.Context) string {
	return c.GetString(ContextAPIKeyID)
}
